package agents

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/BraveCall/internal/config"
	"github.com/BTreeMap/BraveCall/internal/genai"
	"github.com/BTreeMap/BraveCall/internal/models"
)

// Specialists generates replies in the voice of the routed persona.
type Specialists struct {
	llm    genai.Generator
	agents config.Agents
}

// NewSpecialists creates a reply generator. Settings for each persona are
// looked up in agents by name.
func NewSpecialists(llm genai.Generator, agents config.Agents) *Specialists {
	if agents == nil {
		agents = config.DefaultAgents()
	}
	return &Specialists{llm: llm, agents: agents}
}

// Respond generates the reply for message using the given persona. Unknown
// personas answer as the conversational one.
func (s *Specialists) Respond(ctx context.Context, agent models.AgentType, message string, cc *models.ConversationContext) (string, error) {
	prompt, ok := specialistPrompts[agent]
	if !ok {
		agent = models.AgentConversational
		prompt = specialistPrompts[agent]
	}

	reply, err := s.llm.Generate(ctx, genai.Request{
		SystemPrompt: interpolate(prompt, cc),
		Messages:     buildMessages(message, cc),
		Settings:     s.agents.Get(string(agent)),
	})
	if err != nil {
		return "", fmt.Errorf("agent %s failed: %w", agent, err)
	}
	slog.Debug("Specialists.Respond: reply generated", "agent", agent, "length", len(reply))
	return reply, nil
}
