// Package pipeline runs one child message through the BraveCall decision steps.
//
// A turn is processed strictly in order: safety check, routing, reply
// generation, validation, escalation and finally, for tier 3 turns, a parent
// notification that runs in the background. Every step has a documented
// fallback so the child always receives a reply.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BTreeMap/BraveCall/internal/escalation"
	"github.com/BTreeMap/BraveCall/internal/models"
	"github.com/BTreeMap/BraveCall/internal/notify"
)

// Trailers appended to the reply for each escalated response shape.
const (
	TrailerLongerEmpathy        = "I'm here for you whenever you want to talk."
	TrailerAddGrownUpSuggestion = "It might help to talk with a grown-up you trust, like a parent or teacher, about how you've been feeling. They care about you and want to help."
	TrailerCalmPlusAlert        = "You're not alone. Let's find a grown-up you trust so you can talk about this together."
)

// FallbackReply is sent when the specialist could not produce a reply.
const FallbackReply = "Hmm, I got a little mixed up just now. Can you tell me that again?"

// ReasonRoutingDisabled is reported when routing is switched off.
const ReasonRoutingDisabled = "Routing disabled"

// QuickRouteThreshold is the confidence a keyword route needs to skip the routing model.
const QuickRouteThreshold = 0.7

var trailers = map[models.ResponseShape]string{
	models.ShapeLongerEmpathy:        TrailerLongerEmpathy,
	models.ShapeAddGrownUpSuggestion: TrailerAddGrownUpSuggestion,
	models.ShapeCalmPlusAlert:        TrailerCalmPlusAlert,
}

// SafetyAgent screens messages before a reply is generated.
type SafetyAgent interface {
	QuickCheck(message string) bool
	CheckSafety(ctx context.Context, message string) models.SafetyVerdict
	RedirectionMessage(concerns []string) string
}

// RoutingAgent picks the specialist persona for a message.
type RoutingAgent interface {
	QuickRoute(message string) *models.RoutingDecision
	Route(ctx context.Context, message string, cc *models.ConversationContext) models.RoutingDecision
}

// ResponseGenerator produces the specialist's reply.
type ResponseGenerator interface {
	Respond(ctx context.Context, agent models.AgentType, message string, cc *models.ConversationContext) (string, error)
}

// ResponseValidator reviews a drafted reply.
type ResponseValidator interface {
	Validate(ctx context.Context, response string) models.ValidationResult
}

// ParentNotifier sends the tier 3 message to a parent.
type ParentNotifier interface {
	NotifyParent(ctx context.Context, req notify.Request) notify.Result
}

// AlertRecorder persists a parent alert after a successful notification.
type AlertRecorder interface {
	SaveParentAlert(ctx context.Context, alert *models.ParentAlert) error
}

// Config holds the feature flags for an Orchestrator. It is copied at
// construction, so tests can build orchestrators with different flags side by side.
type Config struct {
	SafetyEnabled        bool
	RoutingEnabled       bool
	ValidationEnabled    bool
	SMSEscalationEnabled bool
	LogDecisions         bool
}

// DefaultConfig enables every step except SMS escalation.
func DefaultConfig() Config {
	return Config{
		SafetyEnabled:     true,
		RoutingEnabled:    true,
		ValidationEnabled: true,
		LogDecisions:      true,
	}
}

// Turn is the input for one message.
type Turn struct {
	ChildID       int64
	Message       string
	Context       models.ConversationContext
	ParentContact string
	// PatternOverDays is true when distress messages were seen on two or more
	// days in the last week.
	PatternOverDays bool
}

// Result is the outcome of one turn.
type Result struct {
	TurnID     string
	Response   string
	Safe       bool
	Blocked    bool
	Edited     bool
	Agent      models.AgentType
	Safety     *models.SafetyVerdict
	Routing    *models.RoutingDecision
	Validation *models.ValidationResult
	Escalation models.EscalationResult
	Duration   time.Duration
}

// Orchestrator sequences the decision steps for a turn.
type Orchestrator struct {
	cfg       Config
	safety    SafetyAgent
	router    RoutingAgent
	generator ResponseGenerator
	validator ResponseValidator
	notifier  ParentNotifier
	alerts    AlertRecorder

	wg sync.WaitGroup
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSafety sets the safety agent.
func WithSafety(s SafetyAgent) Option {
	return func(o *Orchestrator) { o.safety = s }
}

// WithRouter sets the routing agent.
func WithRouter(r RoutingAgent) Option {
	return func(o *Orchestrator) { o.router = r }
}

// WithValidator sets the reply validator.
func WithValidator(v ResponseValidator) Option {
	return func(o *Orchestrator) { o.validator = v }
}

// WithNotifier sets the parent notifier used for tier 3 turns.
func WithNotifier(n ParentNotifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithAlertRecorder sets where successful parent notifications are recorded.
func WithAlertRecorder(a AlertRecorder) Option {
	return func(o *Orchestrator) { o.alerts = a }
}

// New creates an Orchestrator. generator is required; a step whose agent is
// not supplied is skipped as if its flag were off.
func New(cfg Config, generator ResponseGenerator, opts ...Option) *Orchestrator {
	o := &Orchestrator{cfg: cfg, generator: generator}
	for _, opt := range opts {
		opt(o)
	}
	if cfg.SafetyEnabled && o.safety == nil {
		slog.Warn("pipeline.New: safety enabled but no safety agent configured, safety checks will be skipped")
	}
	if cfg.SMSEscalationEnabled && o.notifier == nil {
		slog.Warn("pipeline.New: SMS escalation enabled but no notifier configured")
	}
	return o
}

// Process runs the full decision pipeline for one message.
func (o *Orchestrator) Process(ctx context.Context, turn Turn) Result {
	start := time.Now()
	res := Result{TurnID: uuid.NewString(), Safe: true}
	cc := turn.Context

	if o.cfg.SafetyEnabled && o.safety != nil && o.safety.QuickCheck(turn.Message) {
		verdict := o.safety.CheckSafety(ctx, turn.Message)
		res.Safety = &verdict
		if !verdict.Safe {
			res.Safe = false
			res.Blocked = true
			res.Agent = models.AgentSafety
			res.Response = o.safety.RedirectionMessage(verdict.Concerns)
			slog.Warn("Orchestrator.Process: message blocked", "turn_id", res.TurnID, "child_id", turn.ChildID,
				"severity", verdict.Severity, "action", verdict.SuggestedAction)
		}
	}

	if !res.Blocked {
		decision := o.route(ctx, turn.Message, &cc)
		res.Routing = &decision
		res.Agent = decision.Agent

		reply, err := o.generator.Respond(ctx, decision.Agent, turn.Message, &cc)
		if err != nil {
			slog.Error("Orchestrator.Process: reply generation failed, using fallback", "turn_id", res.TurnID, "agent", decision.Agent, "error", err)
			reply = FallbackReply
		}

		if o.cfg.ValidationEnabled && o.validator != nil {
			validation := o.validator.Validate(ctx, reply)
			res.Validation = &validation
			if !validation.Approved && validation.SuggestedEdit != "" {
				reply = validation.SuggestedEdit
				res.Edited = true
				slog.Info("Orchestrator.Process: reply edited by validator", "turn_id", res.TurnID, "issues", validation.Issues)
			} else if len(validation.Issues) > 0 {
				slog.Debug("Orchestrator.Process: validator reported issues", "turn_id", res.TurnID, "approved", validation.Approved, "issues", validation.Issues)
			}
		}
		res.Response = reply
	}

	res.Escalation = escalation.Evaluate(escalation.Input{
		UserMessage:     turn.Message,
		RecentMessages:  cc.RecentMessages,
		Safety:          res.Safety,
		Context:         &cc,
		PatternOverDays: turn.PatternOverDays,
	})
	res.Response = AppendTrailer(res.Response, res.Escalation.ResponseShape)

	if res.Escalation.Tier == models.TierSevere && o.cfg.SMSEscalationEnabled && o.notifier != nil {
		o.notifyParent(ctx, turn, res)
	}

	res.Duration = time.Since(start)
	o.logDecisions(turn, res)
	return res
}

func (o *Orchestrator) route(ctx context.Context, message string, cc *models.ConversationContext) models.RoutingDecision {
	if !o.cfg.RoutingEnabled || o.router == nil {
		return models.RoutingDecision{Agent: models.AgentConversational, Confidence: 1, Reasoning: ReasonRoutingDisabled}
	}
	if quick := o.router.QuickRoute(message); quick != nil && quick.Confidence >= QuickRouteThreshold {
		return *quick
	}
	return o.router.Route(ctx, message, cc)
}

// notifyParent sends the parent SMS without holding up the reply. The send
// outlives the request context; Wait blocks until it finishes.
func (o *Orchestrator) notifyParent(ctx context.Context, turn Turn, res Result) {
	bg := context.WithoutCancel(ctx)
	esc := res.Escalation
	alert := &models.ParentAlert{
		ChildID:             turn.ChildID,
		Tier:                esc.Tier,
		MessageSent:         esc.MessageToParent,
		ChildMessage:        turn.Message,
		ParentContactMasked: notify.MaskContact(turn.ParentContact),
	}
	if res.Safety != nil {
		alert.Severity = res.Safety.Severity
		alert.Action = res.Safety.SuggestedAction
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		result := o.notifier.NotifyParent(bg, notify.Request{
			ParentContact:   turn.ParentContact,
			MessageToParent: esc.MessageToParent,
		})
		if !result.Sent {
			slog.Warn("Orchestrator.notifyParent: parent notification not sent", "turn_id", res.TurnID, "child_id", turn.ChildID, "error", result.Error)
			return
		}
		if o.alerts == nil {
			return
		}
		alert.CreatedAt = time.Now()
		if err := o.alerts.SaveParentAlert(bg, alert); err != nil {
			slog.Error("Orchestrator.notifyParent: failed to record parent alert", "turn_id", res.TurnID, "child_id", turn.ChildID, "error", err)
		}
	}()
}

// Wait blocks until all background parent notifications have finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) logDecisions(turn Turn, res Result) {
	level := slog.LevelDebug
	if o.cfg.LogDecisions {
		level = slog.LevelInfo
	}
	slog.Log(context.Background(), level, "Orchestrator.Process: turn complete",
		"turn_id", res.TurnID,
		"child_id", turn.ChildID,
		"safe", res.Safe,
		"blocked", res.Blocked,
		"agent", res.Agent,
		"edited", res.Edited,
		"tier", res.Escalation.Tier,
		"shape", res.Escalation.ResponseShape,
		"duration", res.Duration)
}

// AppendTrailer adds the fixed trailer for shape to response.
func AppendTrailer(response string, shape models.ResponseShape) string {
	trailer, ok := trailers[shape]
	if !ok {
		return response
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return trailer
	}
	return response + "\n\n" + trailer
}
