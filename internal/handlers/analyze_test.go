package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/benvon/questline/internal/models"
	"github.com/google/uuid"
)

// fakeContentStore records created content units
type fakeContentStore struct {
	created   []*models.ContentUnit
	createErr error
}

func (f *fakeContentStore) Create(ctx context.Context, content *models.ContentUnit) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, content)
	return nil
}

func TestAnalyzeAcceptsContent(t *testing.T) {
	t.Parallel()

	store := &fakeContentStore{}
	jobQueue := &mockJobQueue{}
	h := NewAnalyzeHandler(store, jobQueue)

	userID := uuid.New()
	req := newTestRequest("POST", "/api/v1/analyze", map[string]string{
		"user_id":     userID.String(),
		"text":        "  I need to renew my passport\x00 before June  ",
		"source_kind": "journal",
	})
	w := httptest.NewRecorder()
	h.Analyze(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d", resp.StatusCode)
	}

	if len(store.created) != 1 {
		t.Fatalf("Expected 1 stored content unit, got %d", len(store.created))
	}
	content := store.created[0]
	if content.UserID != userID {
		t.Errorf("Stored content has user %s, want %s", content.UserID, userID)
	}
	if content.Text != "I need to renew my passport before June" {
		t.Errorf("Text was not sanitized: %q", content.Text)
	}
	if content.SourceKind != models.SourceKindJournal {
		t.Errorf("SourceKind = %q, want journal", content.SourceKind)
	}

	if len(jobQueue.enqueued) != 1 {
		t.Fatalf("Expected 1 enqueued job, got %d", len(jobQueue.enqueued))
	}
	job := jobQueue.enqueued[0]
	if job.Content != content {
		t.Error("Job should carry the stored content unit")
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatal("Expected data object in response")
	}
	if data["content_id"] != content.ID.String() {
		t.Errorf("content_id = %v, want %s", data["content_id"], content.ID)
	}
	if data["status"] != "queued" {
		t.Errorf("status = %v, want queued", data["status"])
	}
}

func TestAnalyzeValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body any
	}{
		{"missing user_id", map[string]string{"text": "hello", "source_kind": "chat"}},
		{"invalid user_id", map[string]string{"user_id": "not-a-uuid", "text": "hello", "source_kind": "chat"}},
		{"missing text", map[string]string{"user_id": uuid.NewString(), "source_kind": "chat"}},
		{"whitespace only text", map[string]string{"user_id": uuid.NewString(), "text": "   ", "source_kind": "chat"}},
		{"invalid source_kind", map[string]string{"user_id": uuid.NewString(), "text": "hello", "source_kind": "email"}},
		{"text too long", map[string]string{"user_id": uuid.NewString(), "text": strings.Repeat("a", MaxContentTextLength+1), "source_kind": "chat"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewAnalyzeHandler(&fakeContentStore{}, &mockJobQueue{})
			req := newTestRequest("POST", "/api/v1/analyze", tt.body)
			w := httptest.NewRecorder()
			h.Analyze(w, req)

			resp := w.Result()
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestAnalyzeInvalidJSON(t *testing.T) {
	t.Parallel()

	h := NewAnalyzeHandler(&fakeContentStore{}, &mockJobQueue{})
	req := httptest.NewRequest("POST", "/api/v1/analyze", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	h.Analyze(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}
}

func TestAnalyzeStoreFailure(t *testing.T) {
	t.Parallel()

	h := NewAnalyzeHandler(&fakeContentStore{createErr: errors.New("db down")}, &mockJobQueue{})
	req := newTestRequest("POST", "/api/v1/analyze", map[string]string{
		"user_id":     uuid.NewString(),
		"text":        "hello",
		"source_kind": "chat",
	})
	w := httptest.NewRecorder()
	h.Analyze(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", resp.StatusCode)
	}
}

func TestAnalyzeEnqueueFailure(t *testing.T) {
	t.Parallel()

	jobQueue := &mockJobQueue{enqueueErr: errors.New("broker down")}
	h := NewAnalyzeHandler(&fakeContentStore{}, jobQueue)
	req := newTestRequest("POST", "/api/v1/analyze", map[string]string{
		"user_id":     uuid.NewString(),
		"text":        "hello",
		"source_kind": "chat",
	})
	w := httptest.NewRecorder()
	h.Analyze(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", resp.StatusCode)
	}
}
