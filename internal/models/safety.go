package models

import "strings"

// Severity grades how concerning a child message is.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsValidSeverity checks if the given severity is one of the known levels.
func IsValidSeverity(s Severity) bool {
	switch s {
	case SeverityNone, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// AtLeastMedium reports whether the severity is medium, high or critical.
func (s Severity) AtLeastMedium() bool {
	return s == SeverityMedium || s == SeverityHigh || s == SeverityCritical
}

// Action is the safety model's suggested handling of a message.
type Action string

const (
	ActionAllow          Action = "allow"
	ActionRedirect       Action = "redirect"
	ActionAlertParent    Action = "alert_parent"
	ActionCrisisProtocol Action = "crisis_protocol"
)

// IsValidAction checks if the given action is supported.
func IsValidAction(a Action) bool {
	switch a {
	case ActionAllow, ActionRedirect, ActionAlertParent, ActionCrisisProtocol:
		return true
	default:
		return false
	}
}

// SafetyVerdict is the outcome of a full safety check for one message.
type SafetyVerdict struct {
	Safe            bool     `json:"safe"`
	Severity        Severity `json:"severity"`
	Concerns        []string `json:"concerns"`
	SuggestedAction Action   `json:"suggested_action"`
	FlagForParent   bool     `json:"flag_for_parent"`
}

// ApplyParentFlag enforces that medium or worse verdicts are always flagged for the parent.
func (v *SafetyVerdict) ApplyParentFlag() {
	if v.Severity.AtLeastMedium() {
		v.FlagForParent = true
	}
}

// FirstConcern returns the first non-blank concern, trimmed.
func (v *SafetyVerdict) FirstConcern() string {
	if v == nil {
		return ""
	}
	for _, c := range v.Concerns {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return ""
}

// AgentType names a specialist persona that can answer a message.
type AgentType string

const (
	AgentConversational AgentType = "conversational"
	AgentEducational    AgentType = "educational"
	AgentEmotional      AgentType = "emotional"
	AgentCreative       AgentType = "creative"
	AgentProblemSolving AgentType = "problem_solving"

	// AgentSafety labels turns answered by the safety redirection. It is
	// never a routing target.
	AgentSafety AgentType = "safety"
)

// IsValidAgentType checks if the given agent type is a routable specialist.
func IsValidAgentType(a AgentType) bool {
	switch a {
	case AgentConversational, AgentEducational, AgentEmotional, AgentCreative, AgentProblemSolving:
		return true
	default:
		return false
	}
}

// RoutingDecision records which specialist should answer and why.
type RoutingDecision struct {
	Agent      AgentType `json:"agent"`
	Confidence float64   `json:"confidence"`
	Reasoning  string    `json:"reasoning"`
}

// ValidationResult is the post-generation review of a drafted reply.
type ValidationResult struct {
	Approved      bool     `json:"approved"`
	Issues        []string `json:"issues"`
	SuggestedEdit string   `json:"suggested_edit,omitempty"`
}

// Tier is the escalation level assigned to a single turn.
type Tier int

const (
	TierNormal  Tier = 0
	TierSession Tier = 1
	TierPattern Tier = 2
	TierSevere  Tier = 3
)

// ResponseShape tells the orchestrator how to shape the outgoing reply.
type ResponseShape string

const (
	ShapeNormal               ResponseShape = "normal"
	ShapeLongerEmpathy        ResponseShape = "longer_empathy"
	ShapeAddGrownUpSuggestion ResponseShape = "add_grown_up_suggestion"
	ShapeCalmPlusAlert        ResponseShape = "calm_plus_alert"
)

// EscalationResult is the outcome of evaluating a turn against the escalation ladder.
type EscalationResult struct {
	Tier            Tier          `json:"tier"`
	ResponseShape   ResponseShape `json:"response_shape"`
	Reason          string        `json:"reason,omitempty"`
	MessageToParent string        `json:"message_to_parent,omitempty"` // tier 3 only
}
