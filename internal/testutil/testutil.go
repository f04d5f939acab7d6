// Package testutil provides common test utilities and helpers for BraveCall tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/BraveCall/internal/models"
	"github.com/BTreeMap/BraveCall/internal/store"
)

// TB is the subset of testing.TB used by these helpers, so the helpers
// themselves can be tested with a fake.
type TB interface {
	Helper()
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

var _ TB = (*testing.T)(nil)

// envelope mirrors models.APIResponse with a raw result for typed decoding.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t TB, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
// The recorder body is left unread so it can be decoded again.
func AssertJSONResponse(t TB, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
		return nil
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Errorf("response missing or invalid 'status' field")
	}

	return response
}

// DecodeResult unmarshals the result field of an API envelope into target and
// returns the envelope message.
func DecodeResult(t TB, rr *httptest.ResponseRecorder, target interface{}) string {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode JSON envelope: %v", err)
		return ""
	}
	if target != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, target); err != nil {
			t.Fatalf("failed to decode result: %v", err)
		}
	}
	return env.Message
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t TB, method, url string, body interface{}) *http.Request {
	t.Helper()
	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		reqBody = bytes.NewBuffer(MustMarshalJSON(t, body))
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}

// CreateJSONRequest creates an HTTP request from a raw JSON string.
func CreateJSONRequest(t TB, method, url, jsonBody string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(jsonBody))
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}

// SeedProfile stores a child profile with defaults applied and returns it.
func SeedProfile(t TB, st store.Store, name, parentContact string) *models.ChildProfile {
	t.Helper()
	p := &models.ChildProfile{ChildName: name, ParentContact: parentContact, CreatedAt: time.Now().UTC()}
	p.ApplyDefaults()
	if err := st.SaveChildProfile(context.Background(), p); err != nil {
		t.Fatalf("failed to seed profile: %v", err)
	}
	return p
}

// SeedMessages stores msgs for childID in the given order. Zero timestamps are
// spaced one second apart ending now.
func SeedMessages(t TB, st store.Store, childID int64, msgs ...models.StoredMessage) {
	t.Helper()
	start := time.Now().UTC().Add(-time.Duration(len(msgs)) * time.Second)
	for i := range msgs {
		m := msgs[i]
		m.ChildID = childID
		if m.Timestamp.IsZero() {
			m.Timestamp = start.Add(time.Duration(i) * time.Second)
		}
		if err := st.SaveMessage(context.Background(), &m); err != nil {
			t.Fatalf("failed to seed message %d: %v", i, err)
		}
	}
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t TB, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}
