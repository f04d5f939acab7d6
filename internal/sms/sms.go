// Package sms sends plain text messages to parents through the Twilio REST API.
package sms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Error variables for SMS configuration.
var (
	ErrMissingCredentials = errors.New("account SID and auth token must be provided")
	ErrMissingFromNumber  = errors.New("from number must be provided")
)

// Sender delivers one SMS and returns the provider's message ID.
type Sender interface {
	Send(ctx context.Context, to string, body string) (string, error)
}

// messageCreator is the part of the Twilio API used by Client.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// Opts holds configuration options for the Twilio SMS client.
type Opts struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// Option defines a configuration option for the Twilio SMS client.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFromNumber sets the E.164 number messages are sent from.
func WithFromNumber(from string) Option {
	return func(o *Opts) { o.FromNumber = from }
}

// Client wraps the Twilio REST API for SMS.
type Client struct {
	api        messageCreator
	fromNumber string
}

// NewClient creates a Twilio SMS client. Unset options fall back to
// TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromNumber == "" {
		cfg.FromNumber = os.Getenv("TWILIO_FROM_NUMBER")
	}
	slog.Debug("sms.NewClient: config loaded",
		"account_sid_set", cfg.AccountSID != "",
		"auth_token_set", cfg.AuthToken != "",
		"from_number_set", cfg.FromNumber != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.FromNumber == "" {
		return nil, ErrMissingFromNumber
	}

	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &Client{api: rest.Api, fromNumber: cfg.FromNumber}, nil
}

// Send delivers body to the given E.164 number.
func (c *Client) Send(ctx context.Context, to string, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(c.fromNumber)
	params.SetBody(body)

	resp, err := c.api.CreateMessage(params)
	if err != nil {
		slog.Error("Client.Send: Twilio CreateMessage failed", "error", err)
		return "", fmt.Errorf("failed to send SMS: %w", err)
	}
	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	slog.Debug("Client.Send: SMS sent", "sid", sid)
	return sid, nil
}

// SentMessage records one message passed to MockClient.
type SentMessage struct {
	To   string
	Body string
}

// MockClient is an in-memory Sender for tests and local runs without Twilio.
type MockClient struct {
	// Err, when set, is returned from every Send.
	Err error

	mu   sync.Mutex
	sent []SentMessage
}

// NewMockClient creates an empty MockClient.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Send records the message and returns a sequential fake ID.
func (m *MockClient) Send(ctx context.Context, to string, body string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	m.sent = append(m.sent, SentMessage{To: to, Body: body})
	return fmt.Sprintf("SM%032d", len(m.sent)), nil
}

// Sent returns a copy of the recorded messages.
func (m *MockClient) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.sent...)
}
