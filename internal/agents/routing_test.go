package agents

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/BTreeMap/BraveCall/internal/config"
	"github.com/BTreeMap/BraveCall/internal/genai"
	"github.com/BTreeMap/BraveCall/internal/models"
)

func newTestRouter(gen *mockGenerator) *Router {
	return NewRouter(gen, config.DefaultAgents().Get(config.AgentRouting))
}

func TestQuickRoute(t *testing.T) {
	r := newTestRouter(&mockGenerator{})
	tests := []struct {
		message   string
		want      models.AgentType
		reasoning string
	}{
		{"Can you help with my math homework?", models.AgentEducational, "Educational keywords detected"},
		{"I feel sad today", models.AgentEmotional, "Emotional keywords detected"},
		{"Tell me a story about dragons", models.AgentCreative, "Creative keywords detected"},
		{"My friends had a fight", models.AgentProblemSolving, "Problem-solving keywords detected"},
		// Educational is checked before emotional.
		{"I am worried about my science test", models.AgentEducational, "Educational keywords detected"},
		{"Help me decide what to do", models.AgentProblemSolving, "Problem-solving keywords detected"},
	}
	for _, tt := range tests {
		got := r.QuickRoute(tt.message)
		if got == nil {
			t.Errorf("QuickRoute(%q) = nil, want %s", tt.message, tt.want)
			continue
		}
		if got.Agent != tt.want || got.Confidence != QuickRouteConfidence || got.Reasoning != tt.reasoning {
			t.Errorf("QuickRoute(%q) = %+v", tt.message, got)
		}
	}

	if got := r.QuickRoute("hello there"); got != nil {
		t.Errorf("expected nil for unmatched message, got %+v", got)
	}
}

func TestRoute_UsesModelDecision(t *testing.T) {
	gen := &mockGenerator{reply: `{"agent": "creative", "confidence": 0.9, "reasoning": "wants to pretend"}`}
	r := newTestRouter(gen)

	history := make([]models.ChatMessage, 0, 8)
	for i := 0; i < 8; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleModel
		}
		history = append(history, models.ChatMessage{Role: role, Content: fmt.Sprintf("m%d", i)})
	}
	cc := &models.ConversationContext{ChildName: "Alex", RecentMessages: history}

	d := r.Route(context.Background(), "let's be pirates", cc)
	if d.Agent != models.AgentCreative || d.Confidence != 0.9 || d.Reasoning != "wants to pretend" {
		t.Errorf("unexpected decision: %+v", d)
	}

	req := gen.last()
	if len(req.Messages) != historyWindow+1 {
		t.Fatalf("expected %d messages, got %d", historyWindow+1, len(req.Messages))
	}
	if req.Messages[0].Content != "m3" || req.Messages[len(req.Messages)-1].Content != "let's be pirates" {
		t.Errorf("unexpected message window: %+v", req.Messages)
	}
}

func TestRoute_Fallbacks(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		err    error
		reason string
	}{
		{"low confidence", `{"agent": "emotional", "confidence": 0.3, "reasoning": "unsure"}`, nil, ReasonUncertain},
		{"unparseable", "emotional, probably", nil, ReasonUncertain},
		{"unknown agent", `{"agent": "pirate", "confidence": 0.9}`, nil, ReasonUncertain},
		{"missing confidence", `{"agent": "emotional"}`, nil, ReasonUncertain},
		{"empty reply", "", genai.ErrEmptyResponse, ReasonUncertain},
		{"call error", "", errors.New("boom"), ReasonRoutingFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&mockGenerator{reply: tt.reply, err: tt.err})
			d := r.Route(context.Background(), "hmm", nil)
			if d.Agent != models.AgentConversational || d.Confidence != 0.5 || d.Reasoning != tt.reason {
				t.Errorf("unexpected fallback: %+v", d)
			}
		})
	}
}

func TestRoute_ClampsConfidence(t *testing.T) {
	r := newTestRouter(&mockGenerator{reply: `{"agent": "educational", "confidence": 3, "reasoning": "x"}`})
	if d := r.Route(context.Background(), "hmm", nil); d.Confidence != 1 {
		t.Errorf("expected confidence clamped to 1, got %v", d.Confidence)
	}
}
