package reminders

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benvon/smart-tasks/internal/models"
	"go.uber.org/zap"
)

// DefaultInterval is the period between reminder ticks
const DefaultInterval = 5 * time.Minute

// UserLister returns the users who granted notification permission
type UserLister interface {
	ListNotifiable(ctx context.Context) ([]*models.User, error)
}

// Scheduler runs the engine for every notifiable user on a fixed interval
type Scheduler struct {
	engine   *Engine
	users    UserLister
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	running  atomic.Bool
	inflight sync.WaitGroup
}

// NewScheduler creates a scheduler ticking every interval
func NewScheduler(engine *Engine, users UserLister, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		engine:   engine,
		users:    users,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start ticks once immediately and then on every interval until ctx is cancelled.
// Ticks run in the background; a tick that finds the previous one still running is skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.inflight.Wait()

	s.launch(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.launch(ctx)
		}
	}
}

func (s *Scheduler) launch(ctx context.Context) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.Tick(ctx)
	}()
}

// Tick evaluates every notifiable user once. It returns false when skipped
// because another tick is still in progress.
func (s *Scheduler) Tick(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("reminder_tick_skipped", zap.String("reason", "previous tick still running"))
		return false
	}
	defer s.running.Store(false)

	started := s.now()
	users, err := s.users.ListNotifiable(ctx)
	if err != nil {
		s.logger.Error("failed_to_list_notifiable_users", zap.Error(err))
		return true
	}

	var total Result
	for _, user := range users {
		if ctx.Err() != nil {
			break
		}
		result, err := s.engine.EvaluateUser(ctx, user, s.now())
		if err != nil {
			s.logger.Warn("failed_to_evaluate_user_reminders",
				zap.String("user_id", user.ID.String()),
				zap.Error(err),
			)
			continue
		}
		total.merge(result)
	}

	s.logger.Info("reminder_tick_completed",
		zap.Int("users", len(users)),
		zap.Int("fired", len(total.Fired)),
		zap.Int("failed", total.Failed),
		zap.Duration("duration", s.now().Sub(started)),
	)
	return true
}
