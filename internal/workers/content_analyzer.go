package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/benvon/questline/internal/queue"
	"github.com/benvon/questline/internal/services/analysis"
	"github.com/benvon/questline/internal/services/oracle"
)

// ContentAnalyzer processes content analysis jobs
type ContentAnalyzer struct {
	orchestrator *analysis.Orchestrator
	jobQueue     queue.JobQueue // For re-enqueueing jobs with delays
}

// NewContentAnalyzer creates a new content analyzer
func NewContentAnalyzer(orchestrator *analysis.Orchestrator, jobQueue queue.JobQueue) *ContentAnalyzer {
	return &ContentAnalyzer{
		orchestrator: orchestrator,
		jobQueue:     jobQueue,
	}
}

// ProcessContentAnalysisJob runs the analysis pipeline for one content unit.
// A report whose only failures are oracle rate limits is returned as an error
// so the job gets re-enqueued with a delay; anything else the pipeline
// already absorbed.
func (a *ContentAnalyzer) ProcessContentAnalysisJob(ctx context.Context, job *queue.Job) error {
	if job.Content == nil {
		return fmt.Errorf("content unit is required for content analysis job")
	}
	if job.Content.UserID != job.UserID {
		return fmt.Errorf("content unit does not belong to user")
	}

	report, err := a.orchestrator.Analyze(ctx, job.Content)
	if err != nil {
		return fmt.Errorf("failed to analyze content: %w", err)
	}

	if report.Err != nil && (oracle.IsRateLimitError(report.Err) || oracle.IsQuotaError(report.Err)) {
		return fmt.Errorf("analysis degraded by provider limits: %w", report.Err)
	}

	log.Printf("Analyzed content %s: relevant=%d task=%v goal=%v change=%v",
		report.ContentID,
		len(report.Relevance),
		report.Task != nil,
		report.Goal != nil,
		report.Change != nil,
	)
	return nil
}

// ProcessJob processes a job based on its type
func (a *ContentAnalyzer) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	// Check if job should be processed now (respect NotBefore)
	if !job.ShouldProcess() {
		log.Printf("Job %s not ready yet (NotBefore: %v), skipping", job.ID, job.NotBefore)
		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack job for later processing: %v", ackErr)
		}
		return nil
	}

	switch job.Type {
	case queue.JobTypeContentAnalysis:
		if err := a.ProcessContentAnalysisJob(ctx, job); err != nil {
			return a.handleJobError(ctx, msg, job, err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			log.Printf("Failed to nack unknown job type: %v", nackErr)
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// handleJobError applies the retry policy: quota and rate-limit errors are
// re-enqueued through the delayed exchange with a provider-appropriate delay,
// other errors use the standard retry count, and exhausted jobs go to the DLQ.
func (a *ContentAnalyzer) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	if oracle.IsQuotaError(err) || oracle.IsRateLimitError(err) {
		retryDelay := oracle.GetRetryDelay(err, job.RetryCount)
		log.Printf("Provider limited for job %s: %v (retry in %v)", job.ID, err, retryDelay)

		if job.CanRetry() && a.jobQueue != nil {
			notBefore := time.Now().Add(retryDelay)
			delayedJob := &queue.Job{
				ID:         job.ID,
				Type:       job.Type,
				UserID:     job.UserID,
				Content:    job.Content,
				NotBefore:  &notBefore,
				NotAfter:   job.NotAfter,
				CreatedAt:  job.CreatedAt,
				RetryCount: job.RetryCount + 1,
				MaxRetries: job.MaxRetries,
			}

			if ackErr := msg.Ack(); ackErr != nil {
				log.Printf("Failed to ack limited job before re-enqueue: %v", ackErr)
			}

			if enqueueErr := a.jobQueue.Enqueue(ctx, delayedJob); enqueueErr != nil {
				log.Printf("Failed to re-enqueue job %s with delay: %v", job.ID, enqueueErr)
				return fmt.Errorf("provider limited, failed to re-enqueue: %w", enqueueErr)
			}

			log.Printf("Re-enqueued job %s for retry at %v", job.ID, notBefore)
			return nil
		}

		// No retries left or no queue access, send to DLQ
		if nackErr := msg.Nack(false); nackErr != nil {
			log.Printf("Failed to nack limited job: %v", nackErr)
		}
		return fmt.Errorf("provider limited (job %s): %w", job.ID, err)
	}

	if job.CanRetry() {
		job.IncrementRetry()
		log.Printf("Job %s failed (attempt %d/%d): %v, will retry", job.ID, job.RetryCount, job.MaxRetries, err)
		if nackErr := msg.Nack(true); nackErr != nil {
			log.Printf("Failed to nack job: %v", nackErr)
		}
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	log.Printf("Job %s failed after %d retries: %v, sending to DLQ", job.ID, job.MaxRetries, err)
	if nackErr := msg.Nack(false); nackErr != nil {
		log.Printf("Failed to nack job to DLQ: %v", nackErr)
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}
