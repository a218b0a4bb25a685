package queue

import (
	"time"

	"github.com/benvon/questline/internal/models"
	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeContentAnalysis is a job for analyzing a single content unit
	JobTypeContentAnalysis JobType = "content_analysis"
)

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID           `json:"id"`
	Type       JobType             `json:"type"`
	UserID     uuid.UUID           `json:"user_id"`
	Content    *models.ContentUnit `json:"content,omitempty"`    // The content unit to analyze
	NotBefore  *time.Time          `json:"not_before,omitempty"` // Earliest time to process job (nil = immediate)
	NotAfter   *time.Time          `json:"not_after,omitempty"`  // Latest time to process job (nil = no expiration)
	CreatedAt  time.Time           `json:"created_at"`
	RetryCount int                 `json:"retry_count"`
	MaxRetries int                 `json:"max_retries"`
}

// NewContentAnalysisJob creates a job for analyzing one content unit
func NewContentAnalysisJob(content *models.ContentUnit) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       JobTypeContentAnalysis,
		UserID:     content.UserID,
		Content:    content,
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: 3,
	}
}

// ShouldProcess checks if the job should be processed now
func (j *Job) ShouldProcess() bool {
	now := time.Now()

	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}

	if j.NotAfter != nil && now.After(*j.NotAfter) {
		return false
	}

	return true
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}

	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
