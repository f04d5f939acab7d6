// Package api provides the HTTP server for BraveCall.
//
// It exposes the child chat endpoint that drives the safety pipeline, plus
// profile, history, badge and parent alert endpoints. Run wires the store,
// the LLM client, the agents and the SMS dispatcher together and serves
// until the process receives an interrupt.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BTreeMap/BraveCall/internal/agents"
	"github.com/BTreeMap/BraveCall/internal/config"
	"github.com/BTreeMap/BraveCall/internal/genai"
	"github.com/BTreeMap/BraveCall/internal/notify"
	"github.com/BTreeMap/BraveCall/internal/pipeline"
	"github.com/BTreeMap/BraveCall/internal/sms"
	"github.com/BTreeMap/BraveCall/internal/store"
)

// Server configuration constants
const (
	// DefaultAddr is the listen address used when none is configured
	DefaultAddr = ":8080"
	// HistoryLimit is how many stored messages are passed to the pipeline as context
	HistoryLimit = 10
	// DefaultShutdownTimeout bounds graceful shutdown of the HTTP server
	DefaultShutdownTimeout = 10 * time.Second
	// DefaultReadHeaderTimeout guards against slow clients
	DefaultReadHeaderTimeout = 10 * time.Second
	// DefaultWriteTimeout leaves room for several sequential LLM calls per turn
	DefaultWriteTimeout = 90 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr            string
	AgentConfigPath string
	Pipeline        pipeline.Config
}

// Option defines a function that configures Opts.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithAgentConfig sets the path of the YAML agent settings file.
func WithAgentConfig(path string) Option {
	return func(o *Opts) { o.AgentConfigPath = path }
}

// WithPipelineConfig sets the pipeline feature flags.
func WithPipelineConfig(cfg pipeline.Config) Option {
	return func(o *Opts) { o.Pipeline = cfg }
}

// TurnProcessor runs one child message through the decision pipeline.
type TurnProcessor interface {
	Process(ctx context.Context, turn pipeline.Turn) pipeline.Result
}

// Server holds the dependencies shared by the HTTP handlers.
type Server struct {
	st   store.Store
	proc TurnProcessor
	now  func() time.Time
}

// NewServer creates a Server backed by st that answers chat turns with proc.
func NewServer(st store.Store, proc TurnProcessor) *Server {
	return &Server{st: st, proc: proc, now: time.Now}
}

// Handler returns the HTTP routes served by s.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", s.chatHandler)
	mux.HandleFunc("/api/messages", s.messagesHandler)
	mux.HandleFunc("/api/profile", s.profileHandler)
	mux.HandleFunc("/api/badges", s.badgesHandler)
	mux.HandleFunc("/api/parent/alerts", s.alertsHandler)
	mux.HandleFunc("/api/parent/alerts/review", s.reviewAlertHandler)
	mux.HandleFunc("/api/missions", s.missionsHandler)
	mux.HandleFunc("/api/requests", s.childRequestHandler)
	mux.HandleFunc("/api/parent/requests", s.parentRequestsHandler)
	mux.HandleFunc("/api/parent/requests/{id}", s.decideRequestHandler)
	mux.HandleFunc("/api/parent/children", s.childrenHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Run builds every module from the given options and serves HTTP until an
// interrupt or SIGTERM arrives. Pending parent notifications are drained
// before the store is closed.
func Run(storeOpts []store.Option, genaiOpts []genai.Option, smsOpts []sms.Option, apiOpts []Option) error {
	cfg := Opts{Addr: DefaultAddr, Pipeline: pipeline.DefaultConfig()}
	for _, opt := range apiOpts {
		opt(&cfg)
	}
	slog.Debug("api.Run: configuration applied", "addr", cfg.Addr, "agent_config", cfg.AgentConfigPath,
		"safety", cfg.Pipeline.SafetyEnabled, "routing", cfg.Pipeline.RoutingEnabled,
		"validation", cfg.Pipeline.ValidationEnabled, "sms_escalation", cfg.Pipeline.SMSEscalationEnabled)

	agentSettings, err := config.LoadAgents(cfg.AgentConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load agent settings: %w", err)
	}

	st, err := store.Open(storeOpts...)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	llm, err := genai.NewClient(genaiOpts...)
	if err != nil {
		return fmt.Errorf("failed to create GenAI client: %w", err)
	}

	orch := buildOrchestrator(cfg.Pipeline, llm, agentSettings, st, smsOpts)
	defer orch.Wait()

	srv := NewServer(st, orch)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("BraveCall API listening", "addr", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("api.Run: shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}
	slog.Info("api.Run: waiting for pending parent notifications")
	return nil
}

// buildOrchestrator assembles the agents around llm. A missing or invalid SMS
// configuration leaves the dispatcher without a sender, so tier 3 turns are
// logged as sms_not_configured instead of failing startup.
func buildOrchestrator(pcfg pipeline.Config, llm genai.Generator, settings config.Agents, st store.Store, smsOpts []sms.Option) *pipeline.Orchestrator {
	opts := []pipeline.Option{
		pipeline.WithSafety(agents.NewSafetyChecker(llm, settings.Get(config.AgentSafety))),
		pipeline.WithRouter(agents.NewRouter(llm, settings.Get(config.AgentRouting))),
		pipeline.WithValidator(agents.NewValidator(llm, settings.Get(config.AgentValidator))),
		pipeline.WithAlertRecorder(st),
	}

	if pcfg.SMSEscalationEnabled {
		var sender sms.Sender
		client, err := sms.NewClient(smsOpts...)
		if err != nil {
			slog.Warn("api.buildOrchestrator: SMS escalation enabled but Twilio is not configured", "error", err)
		} else {
			sender = client
		}
		opts = append(opts, pipeline.WithNotifier(notify.NewDispatcher(sender)))
	}

	return pipeline.New(pcfg, agents.NewSpecialists(llm, settings), opts...)
}
