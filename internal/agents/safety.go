// Package agents implements the LLM-backed decision steps of a BraveCall turn:
// the safety check, specialist routing, reply generation and reply validation.
package agents

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/BTreeMap/BraveCall/internal/config"
	"github.com/BTreeMap/BraveCall/internal/genai"
	"github.com/BTreeMap/BraveCall/internal/models"
)

// quickCheckKeywords trigger the full safety check when found anywhere in a message.
var quickCheckKeywords = []string{
	"kill",
	"die",
	"suicide",
	"hurt myself",
	"hate myself",
	"stupid",
	"dumb",
	"hate you",
}

var redirections = []string{
	"Let's talk about something happy and positive instead! What's your favorite thing to do for fun?",
	"I'd rather chat about things that make you smile! What made you laugh today?",
	"How about we talk about something cheerful? Do you have a favorite game or book?",
	"Let's focus on positive things! Tell me about something you're proud of!",
	"I'm here to chat about fun and friendly topics! What's something cool you learned recently?",
}

// SystemErrorConcern is reported when the safety model could not be reached.
const SystemErrorConcern = "Unable to verify safety due to system error"

// safetyReply is the JSON object the safety model is asked to produce.
type safetyReply struct {
	Safe            *bool    `json:"safe"`
	Severity        string   `json:"severity"`
	Concerns        []string `json:"concerns"`
	SuggestedAction string   `json:"suggestedAction"`
	FlagForParent   bool     `json:"flagForParent"`
}

// SafetyChecker screens child messages before any reply is generated.
type SafetyChecker struct {
	llm      genai.Generator
	settings config.AgentSettings
	pick     func(n int) int
}

// SafetyOption configures a SafetyChecker.
type SafetyOption func(*SafetyChecker)

// WithRandom overrides the index source used to pick a redirection message.
func WithRandom(pick func(n int) int) SafetyOption {
	return func(s *SafetyChecker) {
		s.pick = pick
	}
}

// NewSafetyChecker creates a SafetyChecker that classifies messages with llm.
func NewSafetyChecker(llm genai.Generator, settings config.AgentSettings, opts ...SafetyOption) *SafetyChecker {
	s := &SafetyChecker{llm: llm, settings: settings, pick: rand.IntN}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QuickCheck reports whether the message contains any keyword that warrants a
// full check. It never calls the model.
func (s *SafetyChecker) QuickCheck(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range quickCheckKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// CheckSafety asks the safety model for a verdict. A failed call blocks the
// message; an unparseable reply lets it through.
func (s *SafetyChecker) CheckSafety(ctx context.Context, message string) models.SafetyVerdict {
	content, err := generateJSON(ctx, s.llm, genai.Request{
		SystemPrompt: safetyPrompt,
		Messages:     []genai.Message{{Role: genai.RoleUser, Content: message}},
		Settings:     s.settings,
	})
	if err != nil {
		slog.Error("SafetyChecker.CheckSafety: safety model call failed, blocking message", "error", err)
		return models.SafetyVerdict{
			Safe:            false,
			Severity:        models.SeverityMedium,
			Concerns:        []string{SystemErrorConcern},
			SuggestedAction: models.ActionRedirect,
			FlagForParent:   true,
		}
	}

	var reply safetyReply
	if err := parseJSONObject(content, &reply); err != nil || reply.Safe == nil {
		slog.Warn("SafetyChecker.CheckSafety: failed to parse safety verdict, defaulting to safe", "error", err)
		return models.SafetyVerdict{
			Safe:            true,
			Severity:        models.SeverityNone,
			Concerns:        []string{},
			SuggestedAction: models.ActionAllow,
		}
	}

	verdict := normalizeVerdict(reply)
	verdict.ApplyParentFlag()
	if !verdict.Safe {
		slog.Warn("SafetyChecker.CheckSafety: unsafe content detected",
			"severity", verdict.Severity, "concerns", verdict.Concerns, "action", verdict.SuggestedAction)
	}
	return verdict
}

// normalizeVerdict maps unknown severity and action strings onto the closest
// known value given the safe flag.
func normalizeVerdict(r safetyReply) models.SafetyVerdict {
	v := models.SafetyVerdict{
		Safe:            *r.Safe,
		Severity:        models.Severity(strings.ToLower(strings.TrimSpace(r.Severity))),
		Concerns:        r.Concerns,
		SuggestedAction: models.Action(strings.ToLower(strings.TrimSpace(r.SuggestedAction))),
		FlagForParent:   r.FlagForParent,
	}
	if v.Concerns == nil {
		v.Concerns = []string{}
	}
	if !models.IsValidSeverity(v.Severity) {
		if v.Safe {
			v.Severity = models.SeverityNone
		} else {
			v.Severity = models.SeverityMedium
		}
	}
	if !models.IsValidAction(v.SuggestedAction) {
		if v.Safe {
			v.SuggestedAction = models.ActionAllow
		} else {
			v.SuggestedAction = models.ActionRedirect
		}
	}
	return v
}

// RedirectionMessage returns one of the fixed gentle redirections. The choice
// does not depend on concerns.
func (s *SafetyChecker) RedirectionMessage(concerns []string) string {
	i := s.pick(len(redirections))
	if i < 0 || i >= len(redirections) {
		i = 0
	}
	return redirections[i]
}

// Redirections returns a copy of the redirection messages.
func Redirections() []string {
	return append([]string(nil), redirections...)
}
