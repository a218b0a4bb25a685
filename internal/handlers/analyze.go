package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/benvon/questline/internal/models"
	"github.com/benvon/questline/internal/queue"
	"github.com/benvon/questline/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	// MaxContentTextLength is the maximum length for submitted content text
	MaxContentTextLength = 10000
)

// ContentStore persists submitted content units
type ContentStore interface {
	Create(ctx context.Context, content *models.ContentUnit) error
}

// AnalyzeHandler accepts content units and enqueues them for analysis
type AnalyzeHandler struct {
	contentRepo ContentStore
	jobQueue    queue.JobQueue
}

// NewAnalyzeHandler creates a new analyze handler
func NewAnalyzeHandler(contentRepo ContentStore, jobQueue queue.JobQueue) *AnalyzeHandler {
	return &AnalyzeHandler{contentRepo: contentRepo, jobQueue: jobQueue}
}

// RegisterRoutes registers analyze routes
func (h *AnalyzeHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/analyze", h.Analyze).Methods("POST")
}

// AnalyzeRequest represents a content submission
type AnalyzeRequest struct {
	UserID     string `json:"user_id" validate:"required,uuid"`
	Text       string `json:"text" validate:"required,min=1,max=10000"`
	SourceKind string `json:"source_kind" validate:"required,source_kind"`
}

// AnalyzeResponse acknowledges an accepted content unit
type AnalyzeResponse struct {
	ContentID string `json:"content_id"`
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
}

// Analyze persists the content unit and enqueues an analysis job. The
// pipeline itself runs in the worker; the response only acknowledges intake.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	req.Text = validation.SanitizeText(req.Text)
	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid user_id")
		return
	}

	content := &models.ContentUnit{
		ID:         uuid.New(),
		UserID:     userID,
		Text:       req.Text,
		SourceKind: models.SourceKind(req.SourceKind),
		CreatedAt:  time.Now().UTC(),
	}

	ctx := r.Context()
	if err := h.contentRepo.Create(ctx, content); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to store content")
		return
	}

	job := queue.NewContentAnalysisJob(content)
	if err := h.jobQueue.Enqueue(ctx, job); err != nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Failed to enqueue analysis job")
		return
	}

	respondJSON(w, http.StatusAccepted, AnalyzeResponse{
		ContentID: content.ID.String(),
		JobID:     job.ID.String(),
		Status:    "queued",
	})
}
