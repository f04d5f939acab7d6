package agents

import (
	"context"

	"github.com/BTreeMap/BraveCall/internal/genai"
)

// mockGenerator implements genai.Generator for testing.
type mockGenerator struct {
	reply    string
	err      error
	calls    int
	requests []genai.Request
}

func (m *mockGenerator) Generate(ctx context.Context, req genai.Request) (string, error) {
	m.calls++
	m.requests = append(m.requests, req)
	return m.reply, m.err
}

func (m *mockGenerator) last() genai.Request {
	if len(m.requests) == 0 {
		return genai.Request{}
	}
	return m.requests[len(m.requests)-1]
}
