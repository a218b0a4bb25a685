package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/benvon/questline/internal/database"
	"github.com/benvon/questline/internal/queue"
	"github.com/redis/go-redis/v9"
)

// HealthChecker handles health check requests
type HealthChecker struct {
	db       *database.DB
	redis    *redis.Client
	jobQueue queue.JobQueue
}

// NewHealthChecker creates a new health checker. Any dependency may be nil;
// it is reported as "not configured" in extended mode.
func NewHealthChecker(db *database.DB, redisClient *redis.Client, jobQueue queue.JobQueue) *HealthChecker {
	return &HealthChecker{db: db, redis: redisClient, jobQueue: jobQueue}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /healthz endpoint
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if mode == "extended" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := make(map[string]string)
		checks["database"] = h.runCheck(ctx, h.db == nil, func(ctx context.Context) error {
			return h.db.Health(ctx)
		}, &response)
		checks["redis"] = h.runCheck(ctx, h.redis == nil, func(ctx context.Context) error {
			return h.redis.Ping(ctx).Err()
		}, &response)
		checks["rabbitmq"] = h.runCheck(ctx, h.jobQueue == nil, func(ctx context.Context) error {
			return h.jobQueue.HealthCheck(ctx)
		}, &response)
		response.Checks = checks

		statusCode := http.StatusOK
		if response.Status == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(response)
		return
	}

	// Basic mode - just return that the server is running
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// runCheck evaluates one dependency and downgrades the overall status on
// failure. Missing dependencies are reported but never count as unhealthy.
func (h *HealthChecker) runCheck(ctx context.Context, missing bool, check func(context.Context) error, response *HealthResponse) string {
	if missing {
		return "not configured"
	}
	if err := check(ctx); err != nil {
		response.Status = "unhealthy"
		return "unhealthy: " + err.Error()
	}
	return "healthy"
}
