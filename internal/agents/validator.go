package agents

import (
	"context"
	"log/slog"
	"strings"

	"github.com/BTreeMap/BraveCall/internal/config"
	"github.com/BTreeMap/BraveCall/internal/genai"
	"github.com/BTreeMap/BraveCall/internal/models"
)

// ValidationErrorIssue is reported when the validator model could not be reached.
const ValidationErrorIssue = "Validation error occurred"

type validationReply struct {
	Approved      *bool    `json:"approved"`
	Issues        []string `json:"issues"`
	SuggestedEdit string   `json:"suggestedEdit"`
}

// Validator reviews a drafted reply before it reaches the child. It fails
// open because the message already passed the safety check.
type Validator struct {
	llm      genai.Generator
	settings config.AgentSettings
}

// NewValidator creates a Validator backed by llm.
func NewValidator(llm genai.Generator, settings config.AgentSettings) *Validator {
	return &Validator{llm: llm, settings: settings}
}

// Validate returns the validator model's judgement of response.
func (v *Validator) Validate(ctx context.Context, response string) models.ValidationResult {
	content, err := generateJSON(ctx, v.llm, genai.Request{
		SystemPrompt: validatorPrompt,
		Messages:     []genai.Message{{Role: genai.RoleUser, Content: "Validate this response for a child:\n\n\"" + response + "\""}},
		Settings:     v.settings,
	})
	if err != nil {
		slog.Error("Validator.Validate: validator model call failed, approving", "error", err)
		return models.ValidationResult{Approved: true, Issues: []string{ValidationErrorIssue}}
	}

	var reply validationReply
	if err := parseJSONObject(content, &reply); err != nil || reply.Approved == nil {
		slog.Warn("Validator.Validate: failed to parse validation result, approving", "error", err)
		return models.ValidationResult{Approved: true, Issues: []string{}}
	}

	result := models.ValidationResult{
		Approved:      *reply.Approved,
		Issues:        reply.Issues,
		SuggestedEdit: strings.TrimSpace(reply.SuggestedEdit),
	}
	if result.Issues == nil {
		result.Issues = []string{}
	}
	return result
}
