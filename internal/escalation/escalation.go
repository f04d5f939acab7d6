// Package escalation decides how serious a conversational turn is.
//
// Evaluate walks a fixed priority ladder of rules and returns the first tier
// that applies. It performs no I/O and has no randomness, so it is safe to call
// from any goroutine.
package escalation

import (
	"strings"

	"github.com/BTreeMap/BraveCall/internal/models"
)

const (
	// RepeatedDistressThreshold is the number of distress words that triggers tier 1.
	RepeatedDistressThreshold = 2
	// RecentUserMessages is how many prior child messages are scanned for distress words.
	RecentUserMessages = 5
)

// Reasons reported on escalated results.
const (
	ReasonSafetyConcern    = "Safety concern"
	ReasonPatternOverDays  = "Distress pattern over multiple days"
	ReasonRepeatedDistress = "Repeated distress words"
)

// DefaultParentChildName is used in the parent message when the child's name is unknown.
const DefaultParentChildName = "Your child"

// Input is everything the ladder looks at for one turn.
type Input struct {
	UserMessage    string
	RecentMessages []models.ChatMessage
	// Safety is nil when no full safety check ran; nil means no concerns.
	Safety  *models.SafetyVerdict
	Context *models.ConversationContext
	// PatternOverDays is computed by the caller, see PatternOverDays.
	PatternOverDays bool
}

type rule struct {
	name    string
	applies func(Input) bool
	result  func(Input) models.EscalationResult
}

// ladder is ordered from most to least severe. The first rule that applies wins.
var ladder = []rule{
	{name: "severe", applies: isSevere, result: severeResult},
	{
		name:    "pattern_over_days",
		applies: func(in Input) bool { return in.PatternOverDays },
		result: func(Input) models.EscalationResult {
			return models.EscalationResult{
				Tier:          models.TierPattern,
				ResponseShape: models.ShapeAddGrownUpSuggestion,
				Reason:        ReasonPatternOverDays,
			}
		},
	},
	{
		name:    "repeated_distress",
		applies: hasRepeatedDistress,
		result: func(Input) models.EscalationResult {
			return models.EscalationResult{
				Tier:          models.TierSession,
				ResponseShape: models.ShapeLongerEmpathy,
				Reason:        ReasonRepeatedDistress,
			}
		},
	},
}

// Evaluate returns the escalation tier and response shape for a turn.
func Evaluate(in Input) models.EscalationResult {
	for _, r := range ladder {
		if r.applies(in) {
			return r.result(in)
		}
	}
	return models.EscalationResult{Tier: models.TierNormal, ResponseShape: models.ShapeNormal}
}

func isSevere(in Input) bool {
	v := in.Safety
	if v == nil {
		return false
	}
	switch {
	case v.SuggestedAction == models.ActionAlertParent, v.SuggestedAction == models.ActionCrisisProtocol:
		return true
	case v.Severity == models.SeverityHigh, v.Severity == models.SeverityCritical:
		return true
	case v.FlagForParent && v.Severity.AtLeastMedium():
		return true
	}
	return false
}

func severeResult(in Input) models.EscalationResult {
	concern := in.Safety.FirstConcern()
	reason := concern
	if reason == "" {
		reason = ReasonSafetyConcern
	}
	return models.EscalationResult{
		Tier:            models.TierSevere,
		ResponseShape:   models.ShapeCalmPlusAlert,
		Reason:          reason,
		MessageToParent: ParentMessage(childName(in.Context), concern),
	}
}

// ParentMessage builds the SMS text sent to a parent. It never includes the
// child's own words.
func ParentMessage(childName, concern string) string {
	msg := "Brave Call: " + childName + " may need your support. Please check in when you can."
	if c := strings.TrimSpace(concern); c != "" {
		msg += " (" + c + ")"
	}
	return msg
}

func childName(cc *models.ConversationContext) string {
	if cc == nil || strings.TrimSpace(cc.ChildName) == "" {
		return DefaultParentChildName
	}
	return strings.TrimSpace(cc.ChildName)
}

func hasRepeatedDistress(in Input) bool {
	count := CountDistress(in.UserMessage)
	for _, text := range recentUserText(in.RecentMessages) {
		count += CountDistress(text)
		if count >= RepeatedDistressThreshold {
			return true
		}
	}
	return count >= RepeatedDistressThreshold
}

// recentUserText returns the content of the last RecentUserMessages child messages.
func recentUserText(messages []models.ChatMessage) []string {
	var out []string
	for _, m := range messages {
		if m.Role == models.RoleUser {
			out = append(out, m.Content)
		}
	}
	if len(out) > RecentUserMessages {
		out = out[len(out)-RecentUserMessages:]
	}
	return out
}
