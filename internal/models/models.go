// Package models defines the core data structures for BraveCall.
//
// It includes the safety, routing, validation and escalation types that flow
// through a conversational turn, as well as the persisted profile, message,
// badge and parent alert records shared across modules.
package models

import (
	"errors"
	"strings"
	"time"
)

// Profile defaults applied when a child has not customised their character.
const (
	DefaultCharacterName  = "Shelly"
	DefaultCharacterType  = "Turtle"
	DefaultCharacterColor = "Emerald"

	// DefaultChildName is used in persona prompts when the child's name is unknown.
	DefaultChildName = "friend"
)

// Validation constants for input validation
const (
	// MaxChatMessageLength defines the maximum allowed length for a child message
	MaxChatMessageLength = 2000
	// MaxNameLength defines the maximum allowed length for child and character names
	MaxNameLength = 100
	// MaxChildAge is the upper bound accepted for a child's age
	MaxChildAge = 17
	// PointsPerMessage is awarded to the child for every chat turn
	PointsPerMessage = 10
	// PointsPerLevel is multiplied by the current level to get the next level threshold
	PointsPerLevel = 100
)

// Error variables for better error handling and testability
var (
	ErrMissingChildID       = errors.New("child_id is required")
	ErrEmptyMessage         = errors.New("message cannot be empty")
	ErrMessageTooLong       = errors.New("message exceeds maximum length")
	ErrMissingChildName     = errors.New("child_name is required")
	ErrNameTooLong          = errors.New("name exceeds maximum length")
	ErrInvalidChildAge      = errors.New("child_age is out of range")
	ErrInvalidParentContact = errors.New("parent_contact must be an E.164 phone number")
	ErrProfileNotFound      = errors.New("child profile not found")
	ErrAlertNotFound        = errors.New("parent alert not found")
	ErrRequestNotFound      = errors.New("child request not found")
	ErrEmptyRequestText     = errors.New("request_text cannot be empty")
	ErrRequestTooLong       = errors.New("request_text exceeds maximum length")
	ErrInvalidRequestStatus = errors.New("status must be approved or rejected")
)

// MessageRole identifies who authored a stored conversation message.
type MessageRole string

const (
	// RoleUser is a message written by the child.
	RoleUser MessageRole = "user"
	// RoleModel is a reply produced by the character.
	RoleModel MessageRole = "model"
	// RoleSystem is an out-of-band system note.
	RoleSystem MessageRole = "system"
)

// ChatMessage is one entry of the recent conversation passed to the pipeline.
type ChatMessage struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// ConversationContext is supplied by the caller for every turn and is read-only to the pipeline.
type ConversationContext struct {
	ChildName      string        `json:"child_name"`
	CharacterName  string        `json:"character_name"`
	CharacterType  string        `json:"character_type"`
	RecentMessages []ChatMessage `json:"recent_messages"` // chronological, most recent last
	ChildAge       int           `json:"child_age,omitempty"`
}

// StoredMessage is a persisted conversation message.
type StoredMessage struct {
	ID        int64       `json:"id"`
	ChildID   int64       `json:"child_id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Distress  bool        `json:"distress"` // user message contained distress words
	Timestamp time.Time   `json:"timestamp"`
}

// ChatMessages converts stored messages into pipeline history entries.
func ChatMessages(stored []StoredMessage) []ChatMessage {
	out := make([]ChatMessage, 0, len(stored))
	for _, m := range stored {
		out = append(out, ChatMessage{Role: m.Role, Content: m.Content, Timestamp: m.Timestamp})
	}
	return out
}

// ChildProfile holds a child's settings, character customisation and progress.
type ChildProfile struct {
	ID            int64     `json:"id"`
	ParentContact string    `json:"parent_contact,omitempty"`
	ChildName     string    `json:"child_name"`
	ChildAge      int       `json:"child_age,omitempty"`
	CharacterName string    `json:"character_name"`
	CharacterType string    `json:"character_type"`
	Color         string    `json:"color"`
	Level         int       `json:"level"`
	Points        int       `json:"points"`
	CreatedAt     time.Time `json:"created_at"`
}

// ApplyDefaults fills unset character fields and the starting level.
func (p *ChildProfile) ApplyDefaults() {
	if strings.TrimSpace(p.CharacterName) == "" {
		p.CharacterName = DefaultCharacterName
	}
	if strings.TrimSpace(p.CharacterType) == "" {
		p.CharacterType = DefaultCharacterType
	}
	if strings.TrimSpace(p.Color) == "" {
		p.Color = DefaultCharacterColor
	}
	if p.Level < 1 {
		p.Level = 1
	}
}

// AddPoints credits points and advances the level once the threshold is reached.
// It returns true when the level changed.
func (p *ChildProfile) AddPoints(points int) bool {
	if p.Level < 1 {
		p.Level = 1
	}
	p.Points += points
	if p.Points >= p.Level*PointsPerLevel {
		p.Level++
		return true
	}
	return false
}

// ConversationContext builds the per-turn context for this profile. An unset
// name stays empty so each consumer can pick its own fallback.
func (p *ChildProfile) ConversationContext(history []ChatMessage) ConversationContext {
	return ConversationContext{
		ChildName:      strings.TrimSpace(p.ChildName),
		CharacterName:  p.CharacterName,
		CharacterType:  p.CharacterType,
		RecentMessages: history,
		ChildAge:       p.ChildAge,
	}
}

// Badge is an achievement a child can earn while chatting.
type Badge struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Icon        string    `json:"icon"`
	Description string    `json:"description"`
	EarnedAt    time.Time `json:"earned_at,omitempty"`
}

// ParentAlert is the record written after a tier 3 notification reaches a parent.
type ParentAlert struct {
	ID                  int64     `json:"id"`
	ChildID             int64     `json:"child_id"`
	Tier                Tier      `json:"tier"`
	Severity            Severity  `json:"severity"`
	Action              Action    `json:"action"`
	MessageSent         string    `json:"message_sent"`
	ChildMessage        string    `json:"child_message"`
	ParentContactMasked string    `json:"parent_contact_masked"`
	Reviewed            bool      `json:"reviewed"`
	CreatedAt           time.Time `json:"created_at"`
}
