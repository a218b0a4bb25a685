package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/benvon/questline/internal/suggestions"
	"github.com/gorilla/mux"
)

// EventsHandler streams suggestion registry snapshots over SSE
type EventsHandler struct {
	registry *suggestions.Registry
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(registry *suggestions.Registry) *EventsHandler {
	return &EventsHandler{registry: registry}
}

// RegisterRoutes registers event stream routes
func (h *EventsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/suggestions/events", h.Stream).Methods("GET")
}

// Stream pushes the current snapshot immediately, then one event per registry
// change until the client disconnects
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Streaming not supported")
		return
	}

	// Set up SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	updates, unsubscribe := h.registry.Subscribe()
	defer unsubscribe()

	if err := writeSSESnapshot(w, h.registry.Snapshot()); err != nil {
		log.Printf("Failed to write initial SSE snapshot: %v", err)
		return
	}
	flusher.Flush()

	// Keep connection alive with ping every 30 seconds
	ctx := r.Context()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, open := <-updates:
			if !open {
				return
			}
			if err := writeSSESnapshot(w, snap); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeSSESnapshot formats one snapshot as an SSE event
func writeSSESnapshot(w http.ResponseWriter, snap suggestions.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: suggestions\ndata: %s\n\n", data)
	return err
}
