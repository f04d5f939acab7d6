// Package genai wraps the OpenAI chat completion API behind the small
// Generator interface used by every BraveCall agent.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/BTreeMap/BraveCall/internal/config"
)

// Error variables for the GenAI client.
var (
	ErrMissingAPIKey     = errors.New("OPENAI_API_KEY not set")
	ErrNoChoicesReturned = errors.New("no choices returned")
	ErrEmptyResponse     = errors.New("model returned empty content")
)

// Role identifies the author of a Message sent to the model.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one prior conversation entry passed to the model.
type Message struct {
	Role    Role
	Content string
}

// Request describes a single completion call.
type Request struct {
	SystemPrompt string
	Messages     []Message
	// JSONMode asks the model to reply with a single JSON object.
	JSONMode bool
	Settings config.AgentSettings
}

// Generator produces a single text completion. Agents depend on this
// interface so that tests can substitute canned replies.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// chatService defines minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// completionsAdapter adapts the SDK's completion service to chatService.
type completionsAdapter struct {
	svc *openai.ChatCompletionService
}

func (a completionsAdapter) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := a.svc.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// Option defines a function that configures Opts.
type Option func(*Opts)

// WithAPIKey overrides the OPENAI_API_KEY environment variable.
func WithAPIKey(key string) Option {
	return func(o *Opts) {
		o.APIKey = key
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *Opts) {
		o.BaseURL = url
	}
}

// WithDefaultModel sets the model used when a request does not name one.
func WithDefaultModel(model string) Option {
	return func(o *Opts) {
		o.DefaultModel = model
	}
}

// Client implements Generator on top of the OpenAI chat completion API.
type Client struct {
	chat         chatService
	defaultModel string
}

// NewClient creates a client. The API key falls back to OPENAI_API_KEY.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{DefaultModel: config.DefaultModel}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	cli := openai.NewClient(reqOpts...)
	slog.Debug("genai.NewClient: client created", "default_model", cfg.DefaultModel, "custom_base_url", cfg.BaseURL != "")
	return &Client{chat: completionsAdapter{svc: &cli.Chat.Completions}, defaultModel: cfg.DefaultModel}, nil
}

// Generate sends the request and returns the trimmed content of the first choice.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	params := c.buildParams(req)
	resp, err := c.chat.Create(ctx, params)
	if err != nil {
		slog.Error("Client.Generate: completion failed", "model", params.Model, "error", err)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	slog.Debug("Client.Generate: completion received", "model", params.Model, "json_mode", req.JSONMode, "length", len(content))
	return content, nil
}

func (c *Client) buildParams(req Request) openai.ChatCompletionNewParams {
	model := req.Settings.Model
	if model == "" {
		model = c.defaultModel
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(req.Settings.Temperature),
	}
	if req.Settings.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.Settings.MaxTokens))
	}
	if req.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	return params
}
