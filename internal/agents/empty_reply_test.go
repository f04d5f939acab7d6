package agents

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BTreeMap/BraveCall/internal/config"
	"github.com/BTreeMap/BraveCall/internal/genai"
	"github.com/BTreeMap/BraveCall/internal/models"
)

// filteredCompletion is what a provider returns when its content filter
// swallows the reply.
const filteredCompletion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 0,
  "model": "gpt-4o-mini",
  "choices": [{"index": 0, "finish_reason": "content_filter", "message": {"role": "assistant", "content": ""}}]
}`

func newFilteredClient(t *testing.T) *genai.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(filteredCompletion))
	}))
	t.Cleanup(srv.Close)

	client, err := genai.NewClient(genai.WithAPIKey("test-key"), genai.WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestEmptyReply_TreatedAsUnparseable(t *testing.T) {
	client := newFilteredClient(t)
	agents := config.DefaultAgents()
	ctx := context.Background()

	v := NewSafetyChecker(client, agents.Get(config.AgentSafety)).CheckSafety(ctx, "I want to kill this level")
	if !v.Safe || v.Severity != models.SeverityNone || v.SuggestedAction != models.ActionAllow || v.FlagForParent {
		t.Errorf("expected permissive verdict for filtered reply, got %+v", v)
	}

	d := NewRouter(client, agents.Get(config.AgentRouting)).Route(ctx, "hmm", nil)
	if d.Agent != models.AgentConversational || d.Reasoning != ReasonUncertain {
		t.Errorf("expected uncertain fallback for filtered reply, got %+v", d)
	}

	res := NewValidator(client, agents.Get(config.AgentValidator)).Validate(ctx, "hi there")
	if !res.Approved || len(res.Issues) != 0 {
		t.Errorf("expected approval without issues for filtered reply, got %+v", res)
	}
}
