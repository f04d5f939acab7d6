package models

import (
	"strings"
	"testing"
)

func TestApplyParentFlag(t *testing.T) {
	tests := []struct {
		severity Severity
		want     bool
	}{
		{SeverityNone, false},
		{SeverityLow, false},
		{SeverityMedium, true},
		{SeverityHigh, true},
		{SeverityCritical, true},
	}
	for _, tt := range tests {
		v := SafetyVerdict{Severity: tt.severity}
		v.ApplyParentFlag()
		if v.FlagForParent != tt.want {
			t.Errorf("severity %s: expected flag %v, got %v", tt.severity, tt.want, v.FlagForParent)
		}
	}
}

func TestApplyParentFlag_NeverClearsUpstreamFlag(t *testing.T) {
	v := SafetyVerdict{Severity: SeverityLow, FlagForParent: true}
	v.ApplyParentFlag()
	if !v.FlagForParent {
		t.Error("expected upstream flag to be preserved for low severity")
	}
}

func TestFirstConcern(t *testing.T) {
	var nilVerdict *SafetyVerdict
	if got := nilVerdict.FirstConcern(); got != "" {
		t.Errorf("expected empty concern for nil verdict, got %q", got)
	}
	v := &SafetyVerdict{Concerns: []string{"  ", " bullying ", "other"}}
	if got := v.FirstConcern(); got != "bullying" {
		t.Errorf("expected 'bullying', got %q", got)
	}
}

func TestChildProfile_AddPoints(t *testing.T) {
	p := ChildProfile{}
	p.ApplyDefaults()
	for i := 0; i < 9; i++ {
		if p.AddPoints(PointsPerMessage) {
			t.Fatalf("unexpected level up after %d messages", i+1)
		}
	}
	if !p.AddPoints(PointsPerMessage) {
		t.Fatal("expected level up at 100 points")
	}
	if p.Level != 2 || p.Points != 100 {
		t.Errorf("expected level 2 with 100 points, got level %d with %d points", p.Level, p.Points)
	}
}

func TestChildProfile_ApplyDefaults(t *testing.T) {
	p := ChildProfile{ChildName: "Alex", CharacterName: "Bolt"}
	p.ApplyDefaults()
	if p.CharacterName != "Bolt" {
		t.Errorf("expected custom character name to be kept, got %q", p.CharacterName)
	}
	if p.CharacterType != DefaultCharacterType || p.Color != DefaultCharacterColor || p.Level != 1 {
		t.Errorf("defaults not applied: %+v", p)
	}
}

func TestChatRequest_Validate(t *testing.T) {
	tests := []struct {
		name string
		req  ChatRequest
		want error
	}{
		{"valid", ChatRequest{ChildID: 1, Message: "hi"}, nil},
		{"missing child", ChatRequest{Message: "hi"}, ErrMissingChildID},
		{"blank message", ChatRequest{ChildID: 1, Message: "   "}, ErrEmptyMessage},
		{"too long", ChatRequest{ChildID: 1, Message: strings.Repeat("a", MaxChatMessageLength+1)}, ErrMessageTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.Validate(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestProfileRequest_Validate(t *testing.T) {
	isPhone := func(s string) bool { return strings.HasPrefix(s, "+") }

	r := ProfileRequest{ChildName: "Alex", ParentContact: "555-1234"}
	if err := r.Validate(isPhone); err != ErrInvalidParentContact {
		t.Errorf("expected ErrInvalidParentContact, got %v", err)
	}
	r.ParentContact = ""
	if err := r.Validate(isPhone); err != nil {
		t.Errorf("expected empty contact to be accepted, got %v", err)
	}
	r.ChildAge = 40
	if err := r.Validate(isPhone); err != ErrInvalidChildAge {
		t.Errorf("expected ErrInvalidChildAge, got %v", err)
	}
	if err := (&ProfileRequest{}).Validate(isPhone); err != ErrMissingChildName {
		t.Errorf("expected ErrMissingChildName, got %v", err)
	}
}

func TestChildProfile_ConversationContext(t *testing.T) {
	history := []ChatMessage{{Role: RoleUser, Content: "hi"}}
	p := ChildProfile{ChildName: "  Alex ", CharacterName: "Bolt", CharacterType: "Fox", ChildAge: 8}
	cc := p.ConversationContext(history)
	if cc.ChildName != "Alex" || cc.CharacterName != "Bolt" || cc.ChildAge != 8 || len(cc.RecentMessages) != 1 {
		t.Errorf("unexpected context: %+v", cc)
	}

	if got := (&ChildProfile{}).ConversationContext(nil).ChildName; got != "" {
		t.Errorf("expected unset name to stay empty, got %q", got)
	}
}

func TestIsValidAgentType_SafetyIsNotRoutable(t *testing.T) {
	if IsValidAgentType(AgentSafety) {
		t.Error("safety label must not be accepted as a routing target")
	}
}

func TestChildRequestPayload_Validate(t *testing.T) {
	tests := []struct {
		name string
		req  ChildRequestPayload
		want error
	}{
		{"valid", ChildRequestPayload{ChildID: 1, RequestText: "Can I have a dragon?"}, nil},
		{"missing child", ChildRequestPayload{RequestText: "hi"}, ErrMissingChildID},
		{"blank text", ChildRequestPayload{ChildID: 1, RequestText: "  "}, ErrEmptyRequestText},
		{"long text", ChildRequestPayload{ChildID: 1, RequestText: strings.Repeat("a", MaxRequestTextLength+1)}, ErrRequestTooLong},
		{"long type", ChildRequestPayload{ChildID: 1, RequestText: "hi", RequestType: strings.Repeat("t", MaxNameLength+1)}, ErrNameTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.Validate(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRequestDecisionPayload_Validate(t *testing.T) {
	for _, s := range []RequestStatus{RequestApproved, RequestRejected} {
		if err := (&RequestDecisionPayload{Status: s}).Validate(); err != nil {
			t.Errorf("status %s: unexpected error %v", s, err)
		}
	}
	for _, s := range []RequestStatus{RequestPending, "", "maybe"} {
		if err := (&RequestDecisionPayload{Status: s}).Validate(); err != ErrInvalidRequestStatus {
			t.Errorf("status %q: expected ErrInvalidRequestStatus, got %v", s, err)
		}
	}
}
