package agents

import (
	"context"
	"log/slog"
	"strings"

	"github.com/BTreeMap/BraveCall/internal/config"
	"github.com/BTreeMap/BraveCall/internal/genai"
	"github.com/BTreeMap/BraveCall/internal/models"
)

const (
	// QuickRouteConfidence is assigned to every keyword match.
	QuickRouteConfidence = 0.8
	// MinRoutingConfidence is the lowest model confidence that is acted upon.
	MinRoutingConfidence = 0.5
)

// Routing reasons surfaced on fallback decisions.
const (
	ReasonUncertain     = "Default routing due to uncertainty"
	ReasonRoutingFailed = "Error during routing, using fallback"
)

type keywordRule struct {
	agent     models.AgentType
	reasoning string
	keywords  []string
}

// keywordRules are evaluated in order; the first matching set wins.
var keywordRules = []keywordRule{
	{
		agent:     models.AgentEducational,
		reasoning: "Educational keywords detected",
		keywords:  []string{"homework", "math", "reading", "science", "study", "learn", "teach", "explain"},
	},
	{
		agent:     models.AgentEmotional,
		reasoning: "Emotional keywords detected",
		keywords:  []string{"sad", "scared", "afraid", "worried", "angry", "lonely", "cry", "upset"},
	},
	{
		agent:     models.AgentCreative,
		reasoning: "Creative keywords detected",
		keywords:  []string{"story", "game", "play", "pretend", "imagine", "draw", "create"},
	},
	{
		agent:     models.AgentProblemSolving,
		reasoning: "Problem-solving keywords detected",
		keywords:  []string{"problem", "conflict", "fight", "argue", "disagree", "help me decide"},
	},
}

type routingReply struct {
	Agent      string   `json:"agent"`
	Confidence *float64 `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

// Router picks the specialist persona that answers a message.
type Router struct {
	llm      genai.Generator
	settings config.AgentSettings
}

// NewRouter creates a Router backed by llm.
func NewRouter(llm genai.Generator, settings config.AgentSettings) *Router {
	return &Router{llm: llm, settings: settings}
}

// QuickRoute matches the message against the keyword sets. It returns nil when
// nothing matches.
func (r *Router) QuickRoute(message string) *models.RoutingDecision {
	lower := strings.ToLower(message)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return &models.RoutingDecision{
					Agent:      rule.agent,
					Confidence: QuickRouteConfidence,
					Reasoning:  rule.reasoning,
				}
			}
		}
	}
	return nil
}

// Route asks the routing model to classify the message. It never fails: low
// confidence, unparseable replies and unknown agents fall back to the
// conversational persona.
func (r *Router) Route(ctx context.Context, message string, cc *models.ConversationContext) models.RoutingDecision {
	content, err := generateJSON(ctx, r.llm, genai.Request{
		SystemPrompt: routingPrompt,
		Messages:     buildMessages(message, cc),
		Settings:     r.settings,
	})
	if err != nil {
		slog.Error("Router.Route: routing model call failed, using fallback", "error", err)
		return fallbackRoute(ReasonRoutingFailed)
	}

	var reply routingReply
	if err := parseJSONObject(content, &reply); err != nil {
		slog.Warn("Router.Route: failed to parse routing decision, defaulting to conversational", "error", err)
		return fallbackRoute(ReasonUncertain)
	}

	agent := models.AgentType(strings.ToLower(strings.TrimSpace(reply.Agent)))
	if reply.Confidence == nil || *reply.Confidence < MinRoutingConfidence || !models.IsValidAgentType(agent) {
		slog.Debug("Router.Route: low confidence or unknown agent, defaulting to conversational", "agent", reply.Agent)
		return fallbackRoute(ReasonUncertain)
	}

	confidence := *reply.Confidence
	if confidence > 1 {
		confidence = 1
	}
	decision := models.RoutingDecision{Agent: agent, Confidence: confidence, Reasoning: reply.Reasoning}
	slog.Debug("Router.Route: routing decision", "agent", decision.Agent, "confidence", decision.Confidence)
	return decision
}

func fallbackRoute(reason string) models.RoutingDecision {
	return models.RoutingDecision{
		Agent:      models.AgentConversational,
		Confidence: MinRoutingConfidence,
		Reasoning:  reason,
	}
}
