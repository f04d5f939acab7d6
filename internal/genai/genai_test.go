package genai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"

	"github.com/BTreeMap/BraveCall/internal/config"
)

// mockChatService implements chatService for testing.
type mockChatService struct {
	resp   openai.ChatCompletion
	err    error
	params openai.ChatCompletionNewParams
}

func (m *mockChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	m.params = params
	return m.resp, m.err
}

func completion(content string) openai.ChatCompletion {
	return openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestGenerate_Success(t *testing.T) {
	mock := &mockChatService{resp: completion("  Hello friend!  ")}
	client := &Client{chat: mock, defaultModel: "default-model"}

	out, err := client.Generate(context.Background(), Request{
		SystemPrompt: "be kind",
		Messages: []Message{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello"},
			{Role: RoleUser, Content: "how are you?"},
		},
		Settings: config.AgentSettings{Model: "gpt-test", Temperature: 0.7, MaxTokens: 800},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "Hello friend!" {
		t.Errorf("expected trimmed content, got %q", out)
	}
	if string(mock.params.Model) != "gpt-test" {
		t.Errorf("expected model gpt-test, got %s", mock.params.Model)
	}
	if len(mock.params.Messages) != 4 {
		t.Errorf("expected system + 3 messages, got %d", len(mock.params.Messages))
	}
	if mock.params.Messages[0].OfSystem == nil || mock.params.Messages[2].OfAssistant == nil {
		t.Error("expected system first and assistant in position 2")
	}
	if mock.params.MaxCompletionTokens.Value != 800 {
		t.Errorf("expected max tokens 800, got %d", mock.params.MaxCompletionTokens.Value)
	}
	if mock.params.ResponseFormat.OfJSONObject != nil {
		t.Error("did not expect JSON response format")
	}
}

func TestGenerate_JSONModeAndDefaultModel(t *testing.T) {
	mock := &mockChatService{resp: completion(`{"safe": true}`)}
	client := &Client{chat: mock, defaultModel: "default-model"}

	if _, err := client.Generate(context.Background(), Request{SystemPrompt: "classify", JSONMode: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.params.ResponseFormat.OfJSONObject == nil {
		t.Error("expected JSON object response format")
	}
	if string(mock.params.Model) != "default-model" {
		t.Errorf("expected default model, got %s", mock.params.Model)
	}
}

func TestGenerate_ServiceError(t *testing.T) {
	client := &Client{chat: &mockChatService{err: errors.New("service failure")}}
	_, err := client.Generate(context.Background(), Request{})
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
}

func TestGenerate_NoChoices(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: openai.ChatCompletion{}}}
	if _, err := client.Generate(context.Background(), Request{}); err != ErrNoChoicesReturned {
		t.Errorf("expected ErrNoChoicesReturned, got %v", err)
	}
}

func TestGenerate_EmptyContent(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: completion("   ")}}
	if _, err := client.Generate(context.Background(), Request{}); err != ErrEmptyResponse {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestNewClient_NoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(); err != ErrMissingAPIKey {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestNewClient_WithKey(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"), WithBaseURL("http://localhost:1234/v1"), WithDefaultModel("local"))
	if err != nil {
		t.Fatalf("expected no error with API key, got %v", err)
	}
	if cli.defaultModel != "local" {
		t.Errorf("expected default model 'local', got %q", cli.defaultModel)
	}
}
