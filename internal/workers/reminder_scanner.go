// Package workers consumes queued jobs on behalf of the reminder engine.
package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/smart-tasks/internal/database"
	"github.com/benvon/smart-tasks/internal/models"
	"github.com/benvon/smart-tasks/internal/queue"
	"github.com/benvon/smart-tasks/internal/reminders"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserGetter loads the user a job refers to
type UserGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// UserEvaluator runs the reminder rules for one user
type UserEvaluator interface {
	EvaluateUser(ctx context.Context, user *models.User, now time.Time) (reminders.Result, error)
}

// ReminderScanner processes reminder_scan jobs
type ReminderScanner struct {
	users    UserGetter
	engine   UserEvaluator
	jobQueue queue.Enqueuer // re-enqueues failed jobs with a delay
	logger   *zap.Logger
	now      func() time.Time
}

// NewReminderScanner creates a new reminder scan processor
func NewReminderScanner(users UserGetter, engine UserEvaluator, jobQueue queue.Enqueuer, logger *zap.Logger) *ReminderScanner {
	return &ReminderScanner{
		users:    users,
		engine:   engine,
		jobQueue: jobQueue,
		logger:   logger,
		now:      time.Now,
	}
}

// ProcessReminderScanJob evaluates the job's user immediately
func (s *ReminderScanner) ProcessReminderScanJob(ctx context.Context, job *queue.Job) error {
	user, err := s.users.GetByID(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	res, err := s.engine.EvaluateUser(ctx, user, s.now())
	if err != nil {
		return fmt.Errorf("failed to evaluate reminders: %w", err)
	}

	s.logger.Info("reminder_scan_completed",
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", job.UserID.String()),
		zap.Int("fired", len(res.Fired)),
		zap.Int("failed", res.Failed))
	return nil
}

// ProcessJob processes a job based on its type and settles the message
func (s *ReminderScanner) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	switch job.Type {
	case queue.JobTypeReminderScan:
		if err := s.ProcessReminderScanJob(ctx, job); err != nil {
			return s.handleJobError(ctx, msg, job, err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	default:
		if nackErr := msg.Nack(false); nackErr != nil { // unknown job type goes to the DLQ
			s.logger.Warn("failed_to_nack_job", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// retryDelay backs off 5s, 10s, 20s... capped at 5 minutes
func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 6 {
		attempt = 6
	}
	delay := 5 * time.Second << uint(attempt)
	if delay > 5*time.Minute {
		delay = 5 * time.Minute
	}
	return delay
}

func (s *ReminderScanner) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	// The account is gone; retrying cannot help
	if errors.Is(err, database.ErrNotFound) {
		s.logger.Info("reminder_scan_user_missing", zap.String("user_id", job.UserID.String()))
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil
	}

	if !job.CanRetry() {
		s.logger.Error("reminder_scan_failed_permanently",
			zap.String("job_id", job.ID.String()),
			zap.Int("retries", job.RetryCount),
			zap.Error(err))
		if nackErr := msg.Nack(false); nackErr != nil {
			s.logger.Warn("failed_to_nack_job", zap.Error(nackErr))
		}
		return fmt.Errorf("job failed (max retries): %w", err)
	}

	// Republish with the incremented count; a plain requeue would lose it
	if s.jobQueue != nil {
		notBefore := s.now().Add(retryDelay(job.RetryCount))
		retry := *job
		retry.RetryCount = job.RetryCount + 1
		retry.NotBefore = &notBefore

		enqueueErr := s.jobQueue.Enqueue(ctx, &retry)
		if enqueueErr == nil {
			if ackErr := msg.Ack(); ackErr != nil {
				s.logger.Warn("failed_to_ack_retried_job", zap.Error(ackErr))
			}
			s.logger.Warn("reminder_scan_retry_scheduled",
				zap.String("job_id", job.ID.String()),
				zap.Int("attempt", retry.RetryCount),
				zap.Int("max_retries", job.MaxRetries),
				zap.Time("not_before", notBefore),
				zap.Error(err))
			return fmt.Errorf("job failed (will retry): %w", err)
		}
		s.logger.Warn("failed_to_reenqueue_job", zap.Error(enqueueErr))
	}

	job.IncrementRetry()
	if nackErr := msg.Nack(true); nackErr != nil {
		s.logger.Warn("failed_to_nack_job", zap.Error(nackErr))
	}
	return fmt.Errorf("job failed (will retry): %w", err)
}
