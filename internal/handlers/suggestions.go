package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/benvon/questline/internal/services/analysis"
	"github.com/benvon/questline/internal/suggestions"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// SuggestionHandler exposes the suggestion registry and its lifecycle
// operations. Suggestions are ephemeral; accepting one turns it into a
// persisted task or quest, rejecting one just drops it.
type SuggestionHandler struct {
	registry     *suggestions.Registry
	orchestrator *analysis.Orchestrator
}

// NewSuggestionHandler creates a new suggestion handler
func NewSuggestionHandler(registry *suggestions.Registry, orchestrator *analysis.Orchestrator) *SuggestionHandler {
	return &SuggestionHandler{registry: registry, orchestrator: orchestrator}
}

// RegisterRoutes registers suggestion routes on the given router
// The router should already have the /suggestions prefix
func (h *SuggestionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.List).Methods("GET")
	r.HandleFunc("/{id}/accept", h.Accept).Methods("POST")
	r.HandleFunc("/{id}/reject", h.Reject).Methods("POST")
	r.HandleFunc("/{id}/upgrade", h.Upgrade).Methods("POST")
}

// AcceptRequest identifies the user accepting a suggestion
type AcceptRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// List returns the current registry snapshot
func (h *SuggestionHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.registry.Snapshot())
}

// Accept converts a suggestion into a persisted task or quest. The kind is
// resolved by registry lookup, so one endpoint serves both.
func (h *SuggestionHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req AcceptRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid user_id")
		return
	}

	ctx := r.Context()
	if _, ok := h.registry.Task(id); ok {
		task, err := h.orchestrator.AcceptTask(ctx, userID, id)
		if err != nil {
			h.respondLifecycleError(w, err, "Failed to accept task suggestion")
			return
		}
		respondJSON(w, http.StatusCreated, map[string]any{"task": task})
		return
	}

	quest, err := h.orchestrator.AcceptGoal(ctx, userID, id)
	if err != nil {
		h.respondLifecycleError(w, err, "Failed to accept goal suggestion")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"quest": quest})
}

// Reject removes a suggestion without persisting anything
func (h *SuggestionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.orchestrator.Reject(id); err != nil {
		h.respondLifecycleError(w, err, "Failed to reject suggestion")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"rejected": id})
}

// Upgrade re-reads a task suggestion's source content as a goal and swaps
// the task for the resulting goal suggestion in the registry
func (h *SuggestionHandler) Upgrade(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	goal, err := h.orchestrator.UpgradeTask(r.Context(), id)
	if err != nil {
		h.respondLifecycleError(w, err, "Failed to upgrade suggestion")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"goal": goal})
}

func (h *SuggestionHandler) respondLifecycleError(w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, analysis.ErrSuggestionNotFound) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Suggestion not found")
		return
	}
	respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", fallback)
}
