package models

import (
	"strings"
	"time"
)

// MaxRequestTextLength bounds the text of a child request.
const MaxRequestTextLength = 500

// DefaultRequestType is used when a child request does not name a type.
const DefaultRequestType = "general"

// RequestStatus is the parent's decision on a child request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// IsValidRequestStatus checks if the given status is one of the known values.
func IsValidRequestStatus(s RequestStatus) bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected:
		return true
	default:
		return false
	}
}

// ChildRequest is something a child asked a parent for, such as a new
// character or more chat time.
type ChildRequest struct {
	ID          int64         `json:"id"`
	ChildID     int64         `json:"child_id"`
	RequestType string        `json:"request_type"`
	RequestText string        `json:"request_text"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}

// ChildSummary is the parent portal's view of one child.
type ChildSummary struct {
	ID        int64  `json:"id"`
	ChildName string `json:"child_name"`
	ChildAge  int    `json:"child_age,omitempty"`
	Level     int    `json:"level"`
	Points    int    `json:"points"`
}

// Summary returns the parent portal fields of the profile.
func (p *ChildProfile) Summary() ChildSummary {
	return ChildSummary{ID: p.ID, ChildName: p.ChildName, ChildAge: p.ChildAge, Level: p.Level, Points: p.Points}
}

// Mission is a small chat goal shown to the child.
type Mission struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	Completed   bool   `json:"completed"`
}

// ChildRequestPayload is the payload for POST /api/requests.
type ChildRequestPayload struct {
	ChildID     int64  `json:"child_id"`
	RequestType string `json:"request_type,omitempty"`
	RequestText string `json:"request_text"`
}

// Validate validates a ChildRequestPayload.
func (r *ChildRequestPayload) Validate() error {
	if r.ChildID <= 0 {
		return ErrMissingChildID
	}
	if strings.TrimSpace(r.RequestText) == "" {
		return ErrEmptyRequestText
	}
	if len(r.RequestText) > MaxRequestTextLength {
		return ErrRequestTooLong
	}
	if len(r.RequestType) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// RequestDecisionPayload is the payload for POST /api/parent/requests/{id}.
type RequestDecisionPayload struct {
	Status RequestStatus `json:"status"`
}

// Validate accepts only a final decision; a request cannot be moved back to pending.
func (r *RequestDecisionPayload) Validate() error {
	if r.Status != RequestApproved && r.Status != RequestRejected {
		return ErrInvalidRequestStatus
	}
	return nil
}
