// Package notify delivers tier 3 escalation messages to a parent by SMS.
package notify

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/BTreeMap/BraveCall/internal/sms"
)

// MaxSMSLength is the longest body sent to the transport, in characters.
const MaxSMSLength = 1600

// Error codes reported in Result.Error for failures that never reach the transport.
const (
	ErrNoParentContact       = "no_parent_contact"
	ErrParentContactNotPhone = "parent_contact_not_phone"
	ErrSMSNotConfigured      = "sms_not_configured"
	ErrMissingMessage        = "missing_message"
)

// Request is one notification to send.
type Request struct {
	ParentContact   string
	MessageToParent string
}

// Result reports whether a notification was sent. Error holds one of the
// codes above or the transport's error text.
type Result struct {
	Sent      bool   `json:"sent"`
	Error     string `json:"error,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

// Dispatcher validates the parent contact and hands messages to the SMS transport.
type Dispatcher struct {
	sender sms.Sender
}

// NewDispatcher creates a Dispatcher. A nil sender makes every send report
// sms_not_configured.
func NewDispatcher(sender sms.Sender) *Dispatcher {
	return &Dispatcher{sender: sender}
}

// NotifyParent sends req to the parent. It never returns a Go error; failures
// are described by the Result.
func (d *Dispatcher) NotifyParent(ctx context.Context, req Request) Result {
	contact := strings.TrimSpace(req.ParentContact)
	if contact == "" {
		return Result{Error: ErrNoParentContact}
	}
	if !LooksLikeE164(contact) {
		slog.Warn("Dispatcher.NotifyParent: parent contact is not a phone number", "contact", MaskContact(contact))
		return Result{Error: ErrParentContactNotPhone}
	}
	if d == nil || d.sender == nil {
		return Result{Error: ErrSMSNotConfigured}
	}

	body := strings.TrimSpace(truncate(req.MessageToParent, MaxSMSLength))
	if body == "" {
		return Result{Error: ErrMissingMessage}
	}

	id, err := d.sender.Send(ctx, normalizePhone(contact), body)
	if err != nil {
		slog.Error("Dispatcher.NotifyParent: SMS send failed", "contact", MaskContact(contact), "error", err)
		return Result{Error: err.Error()}
	}
	slog.Info("Dispatcher.NotifyParent: parent notified", "contact", MaskContact(contact), "message_id", id)
	return Result{Sent: true, MessageID: id}
}

// LooksLikeE164 reports whether s has the rough shape of an E.164 number: a
// leading '+', 10 to 16 characters after trimming, and only digits after the
// '+' once inner whitespace is removed.
func LooksLikeE164(s string) bool {
	s = strings.TrimSpace(s)
	if n := len(s); n < 10 || n > 16 {
		return false
	}
	if !strings.HasPrefix(s, "+") {
		return false
	}
	digits := 0
	for _, r := range s[1:] {
		switch {
		case unicode.IsSpace(r):
		case r >= '0' && r <= '9':
			digits++
		default:
			return false
		}
	}
	return digits > 0
}

// MaskContact hides all but the last 4 characters of a contact.
func MaskContact(contact string) string {
	r := []rune(strings.TrimSpace(contact))
	if len(r) <= 4 {
		return "****"
	}
	return "****" + string(r[len(r)-4:])
}

// normalizePhone drops inner whitespace so the transport gets a compact number.
func normalizePhone(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
