package testutil

import (
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/BTreeMap/BraveCall/internal/models"
	"github.com/BTreeMap/BraveCall/internal/store"
)

func TestAssertHTTPStatus(t *testing.T) {
	tests := []struct {
		name       string
		expected   int
		actual     int
		shouldFail bool
	}{
		{name: "matching status codes", expected: 200, actual: 200},
		{name: "different status codes", expected: 200, actual: 404, shouldFail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockT := &mockTestingT{}
			AssertHTTPStatus(mockT, tt.expected, tt.actual, "test context")

			if tt.shouldFail != mockT.failed {
				t.Errorf("expected failed=%v, got %v (%s)", tt.shouldFail, mockT.failed, mockT.errorMsg)
			}
		})
	}
}

func TestAssertJSONResponse(t *testing.T) {
	tests := []struct {
		name           string
		jsonBody       string
		expectedStatus string
		shouldFail     bool
	}{
		{"valid JSON with matching status", `{"status":"ok","result":"test"}`, "ok", false},
		{"valid JSON with different status", `{"status":"error","message":"test"}`, "ok", true},
		{"invalid JSON", `{"status":}`, "ok", true},
		{"missing status field", `{"result":"test"}`, "ok", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockT := &mockTestingT{}
			rr := httptest.NewRecorder()
			rr.Body.WriteString(tt.jsonBody)

			response := AssertJSONResponse(mockT, rr, tt.expectedStatus)

			if tt.shouldFail != mockT.failed {
				t.Errorf("expected failed=%v, got %v (%s)", tt.shouldFail, mockT.failed, mockT.errorMsg)
			}
			if !tt.shouldFail && response == nil {
				t.Error("Expected response map to be returned")
			}
			if rr.Body.Len() != len(tt.jsonBody) {
				t.Error("expected body to remain readable")
			}
		})
	}
}

func TestDecodeResult(t *testing.T) {
	rr := httptest.NewRecorder()
	rr.Body.WriteString(`{"status":"ok","message":"Profile saved","result":{"id":3,"child_name":"Alex"}}`)

	var p models.ChildProfile
	msg := DecodeResult(t, rr, &p)
	if msg != "Profile saved" || p.ID != 3 || p.ChildName != "Alex" {
		t.Errorf("unexpected decode: msg=%q profile=%+v", msg, p)
	}
}

func TestCreateHTTPRequest(t *testing.T) {
	req := CreateHTTPRequest(t, "POST", "/api/chat", models.ChatRequest{ChildID: 1, Message: "hi"})
	if req.Method != "POST" || req.URL.Path != "/api/chat" {
		t.Errorf("unexpected request: %s %s", req.Method, req.URL.Path)
	}
	if req.Header.Get("Content-Type") != "application/json" {
		t.Error("expected JSON content type")
	}

	empty := CreateJSONRequest(t, "GET", "/health", "")
	if empty.ContentLength != 0 {
		t.Errorf("expected empty body, got length %d", empty.ContentLength)
	}
}

func TestSeedHelpers(t *testing.T) {
	st := store.NewInMemoryStore()
	p := SeedProfile(t, st, "Alex", "+15551234567")
	if p.ID == 0 || p.CharacterName != models.DefaultCharacterName {
		t.Errorf("unexpected seeded profile: %+v", p)
	}

	SeedMessages(t, st, p.ID,
		models.StoredMessage{Role: models.RoleUser, Content: "first"},
		models.StoredMessage{Role: models.RoleModel, Content: "second"},
	)
	msgs, err := st.RecentMessages(t.Context(), p.ID, 0)
	if err != nil {
		t.Fatalf("failed to load messages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Content != "first" || !msgs[0].Timestamp.Before(msgs[1].Timestamp) {
		t.Errorf("unexpected seeded messages: %+v", msgs)
	}
}

// mockTestingT records failures instead of stopping the test
type mockTestingT struct {
	failed   bool
	errorMsg string
}

func (m *mockTestingT) Helper() {}

func (m *mockTestingT) Errorf(format string, args ...interface{}) {
	m.failed = true
	m.errorMsg = fmt.Sprintf(format, args...)
}

func (m *mockTestingT) Fatalf(format string, args ...interface{}) {
	m.failed = true
	m.errorMsg = fmt.Sprintf(format, args...)
}
