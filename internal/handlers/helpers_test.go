package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// envelope mirrors the response shape every handler emits.
type envelope struct {
	Success   bool            `json:"success"`
	Error     string          `json:"error"`
	Message   string          `json:"message"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to decode response envelope: %v", err)
	}
	return env
}

func TestRespondJSONEnvelope(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})

	if w.Code != http.StatusAccepted {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusAccepted)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}

	env := decodeEnvelope(t, w)
	if !env.Success {
		t.Error("Expected success to be true")
	}
	if _, err := time.Parse(time.RFC3339, env.Timestamp); err != nil {
		t.Errorf("Timestamp %q is not valid RFC3339: %v", env.Timestamp, err)
	}

	var data map[string]string
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
	if data["status"] != "queued" {
		t.Errorf("Data status = %q, want queued", data["status"])
	}
}

func TestRespondJSONNilData(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	respondJSON(w, http.StatusOK, nil)

	env := decodeEnvelope(t, w)
	if !env.Success {
		t.Error("Expected success to be true")
	}
	if string(env.Data) != "null" {
		t.Errorf("Data = %s, want null", env.Data)
	}
}

func TestRespondJSONError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		errorType string
		message   string
	}{
		{
			name:      "suggestion not found",
			status:    http.StatusNotFound,
			errorType: "Not Found",
			message:   "Suggestion not found",
		},
		{
			name:      "queue unavailable",
			status:    http.StatusServiceUnavailable,
			errorType: "Service Unavailable",
			message:   "Failed to queue content for analysis",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			respondJSONError(w, tt.status, tt.errorType, tt.message)

			if w.Code != tt.status {
				t.Errorf("Status = %d, want %d", w.Code, tt.status)
			}

			env := decodeEnvelope(t, w)
			if env.Success {
				t.Error("Expected success to be false")
			}
			if env.Error != tt.errorType {
				t.Errorf("Error = %q, want %q", env.Error, tt.errorType)
			}
			if env.Message != tt.message {
				t.Errorf("Message = %q, want %q", env.Message, tt.message)
			}
			if _, err := time.Parse(time.RFC3339, env.Timestamp); err != nil {
				t.Errorf("Timestamp %q is not valid RFC3339: %v", env.Timestamp, err)
			}
		})
	}
}

func TestRespondJSONErrorCapsLongMessages(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", strings.Repeat("x", 500))

	env := decodeEnvelope(t, w)
	if len(env.Message) != 203 {
		t.Errorf("Message length = %d, want 203", len(env.Message))
	}
	if !strings.HasSuffix(env.Message, "...") {
		t.Error("Expected capped message to end with ellipsis")
	}
}

// Test helper to create a test request with body
func newTestRequest(method, path string, body any) *http.Request {
	var bodyReader *bytes.Reader
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(bodyBytes)
	} else {
		bodyReader = bytes.NewReader(nil)
	}
	return httptest.NewRequest(method, path, bodyReader)
}
