package models

import (
	"strings"
)

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}

// ChatRequest is the payload for POST /api/chat.
type ChatRequest struct {
	ChildID int64  `json:"child_id"`
	Message string `json:"message"`
}

// Validate performs basic validation on a chat request.
func (r *ChatRequest) Validate() error {
	if r.ChildID <= 0 {
		return ErrMissingChildID
	}
	if strings.TrimSpace(r.Message) == "" {
		return ErrEmptyMessage
	}
	if len(r.Message) > MaxChatMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// ChatResponse is the result payload returned for a chat turn.
type ChatResponse struct {
	Response  string        `json:"response"`
	Safe      bool          `json:"safe"`
	Blocked   bool          `json:"blocked"`
	Agent     AgentType     `json:"agent"`
	Tier      Tier          `json:"tier"`
	NewBadges []Badge       `json:"new_badges"`
	Profile   *ChildProfile `json:"profile,omitempty"`
}

// ProfileRequest is the payload for POST /api/profile.
type ProfileRequest struct {
	ChildID       int64  `json:"child_id,omitempty"` // zero creates a new profile
	ParentContact string `json:"parent_contact,omitempty"`
	ChildName     string `json:"child_name"`
	ChildAge      int    `json:"child_age,omitempty"`
	CharacterName string `json:"character_name,omitempty"`
	CharacterType string `json:"character_type,omitempty"`
	Color         string `json:"color,omitempty"`
}

// Validate validates a ProfileRequest. isPhone checks the parent contact shape.
func (r *ProfileRequest) Validate(isPhone func(string) bool) error {
	if strings.TrimSpace(r.ChildName) == "" {
		return ErrMissingChildName
	}
	for _, n := range []string{r.ChildName, r.CharacterName, r.CharacterType, r.Color} {
		if len(n) > MaxNameLength {
			return ErrNameTooLong
		}
	}
	if r.ChildAge < 0 || r.ChildAge > MaxChildAge {
		return ErrInvalidChildAge
	}
	if contact := strings.TrimSpace(r.ParentContact); contact != "" && isPhone != nil && !isPhone(contact) {
		return ErrInvalidParentContact
	}
	return nil
}

// AlertReviewRequest is the payload for POST /api/parent/alerts/review.
type AlertReviewRequest struct {
	ID int64 `json:"id"`
}
