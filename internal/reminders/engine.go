package reminders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benvon/smart-tasks/internal/lifecycle"
	"github.com/benvon/smart-tasks/internal/models"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultWindow is how long after its trigger time a custom reminder may still fire
	DefaultWindow = 5 * time.Minute

	// claimTTL bounds how long a crashed evaluation can block a key
	claimTTL = 2 * time.Minute

	tracerName = "github.com/benvon/smart-tasks/internal/reminders"
)

// TaskLister fetches the tasks a user owns
type TaskLister interface {
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Task, error)
}

// Result summarizes one evaluation pass. Undelivered counts keys in Fired
// whose push could never be delivered.
type Result struct {
	Fired       []Key
	Failed      int
	Undelivered int
}

func (r *Result) merge(other Result) {
	r.Fired = append(r.Fired, other.Fired...)
	r.Failed += other.Failed
	r.Undelivered += other.Undelivered
}

// Engine decides which reminders are due and delivers each key at most once
type Engine struct {
	tasks      TaskLister
	ledger     Ledger
	feed       Feed
	dispatcher Dispatcher
	logger     *zap.Logger
	tracer     trace.Tracer
	window     time.Duration
	location   *time.Location

	// serializes evaluations within the process; Ledger.Claim covers other replicas
	mu sync.Mutex
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithWindow sets the custom reminder firing window
func WithWindow(window time.Duration) EngineOption {
	return func(e *Engine) {
		if window > 0 {
			e.window = window
		}
	}
}

// WithLocation sets the timezone used for calendar-day comparisons
func WithLocation(loc *time.Location) EngineOption {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

// WithTracer overrides the tracer used for evaluation spans
func WithTracer(tracer trace.Tracer) EngineOption {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// NewEngine creates a reminder engine
func NewEngine(tasks TaskLister, ledger Ledger, feed Feed, dispatcher Dispatcher, logger *zap.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		tasks:      tasks,
		ledger:     ledger,
		feed:       feed,
		dispatcher: dispatcher,
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
		window:     DefaultWindow,
		location:   time.UTC,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EvaluateUser fetches the user's tasks and evaluates them at now.
// Users without notification permission are skipped.
func (e *Engine) EvaluateUser(ctx context.Context, user *models.User, now time.Time) (Result, error) {
	ctx, span := e.tracer.Start(ctx, "reminders.evaluate_user",
		trace.WithAttributes(attribute.String("user.id", user.ID.String())),
	)
	defer span.End()

	if !user.NotificationsEnabled {
		return Result{}, nil
	}

	tasks, err := e.tasks.ListByOwner(ctx, user.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list tasks")
		return Result{}, fmt.Errorf("failed to list tasks for reminders: %w", err)
	}

	result := e.EvaluateTasks(ctx, user, tasks, now)
	span.SetAttributes(
		attribute.Int("reminders.tasks", len(tasks)),
		attribute.Int("reminders.fired", len(result.Fired)),
		attribute.Int("reminders.failed", result.Failed),
		attribute.Int("reminders.undelivered", result.Undelivered),
	)
	return result, nil
}

// EvaluateTasks applies every reminder rule to tasks in order. A failure on one
// task or rule is logged and never stops the rest.
func (e *Engine) EvaluateTasks(ctx context.Context, user *models.User, tasks []*models.Task, now time.Time) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	var result Result
	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		if task == nil || !task.HasDueDate() {
			continue
		}
		result.merge(e.evaluateTask(ctx, user, task, now))
	}
	return result
}

func (e *Engine) evaluateTask(ctx context.Context, user *models.User, task *models.Task, now time.Time) Result {
	var result Result

	hours := reminderOffsets(task.CustomReminders)
	if len(hours) > 0 {
		for _, h := range hours {
			remindAt := task.EndDate.Add(-time.Duration(h) * time.Hour)
			if now.Before(remindAt) || now.Sub(remindAt) >= e.window {
				continue
			}
			result.merge(e.fire(ctx, user, task, now, CustomKey(task.ID, h),
				"Task reminder",
				fmt.Sprintf("Task '%s' is due in %d hour(s)", task.Name, h),
				models.NotificationTypeReminder,
			))
		}
	} else if lifecycle.DaysUntil(task.EndDate, now, e.location) == 1 {
		result.merge(e.fire(ctx, user, task, now, DueTomorrowKey(task.ID),
			"Task reminder",
			fmt.Sprintf("Task '%s' is due tomorrow", task.Name),
			models.NotificationTypeDueTomorrow,
		))
	}

	if task.EndDate.Before(now) && !lifecycle.IsTerminal(task.Status) {
		result.merge(e.fire(ctx, user, task, now, OverdueKey(task.ID),
			"Task overdue",
			fmt.Sprintf("Task '%s' is overdue", task.Name),
			models.NotificationTypeOverdue,
		))
	}

	return result
}

// fire delivers one notice unless its key is already in the ledger. The key is
// recorded after the dispatcher accepts the notice or reports it undeliverable.
func (e *Engine) fire(ctx context.Context, user *models.User, task *models.Task, now time.Time, key Key, title, body string, kind models.NotificationType) Result {
	fields := []zap.Field{
		zap.String("user_id", user.ID.String()),
		zap.String("task_id", task.ID.String()),
		zap.String("reminder_key", key.String()),
	}

	fired, err := e.ledger.HasFired(ctx, key)
	if err != nil {
		e.logger.Warn("failed_to_check_reminder_ledger", append(fields, zap.Error(err))...)
		return Result{Failed: 1}
	}
	if fired {
		return Result{}
	}

	claimed, err := e.ledger.Claim(ctx, key, claimTTL)
	if err != nil {
		e.logger.Warn("failed_to_claim_reminder", append(fields, zap.Error(err))...)
		return Result{Failed: 1}
	}
	if !claimed {
		e.logger.Debug("reminder_claimed_elsewhere", fields...)
		return Result{}
	}
	defer func() {
		if err := e.ledger.Release(ctx, key); err != nil {
			e.logger.Warn("failed_to_release_reminder_claim", append(fields, zap.Error(err))...)
		}
	}()

	// Another replica may have finished this key between the check and the claim
	if fired, err := e.ledger.HasFired(ctx, key); err != nil {
		e.logger.Warn("failed_to_check_reminder_ledger", append(fields, zap.Error(err))...)
		return Result{Failed: 1}
	} else if fired {
		return Result{}
	}

	notice := Notice{
		UserID: user.ID,
		TaskID: task.ID,
		Title:  title,
		Body:   body,
	}
	if user.PushSubscriptionID != nil {
		notice.SubscriptionID = *user.PushSubscriptionID
	}

	result := Result{Fired: []Key{key}}
	if err := e.dispatcher.Display(ctx, notice); err != nil {
		if !errors.Is(err, ErrUndeliverable) {
			e.logger.Warn("failed_to_dispatch_reminder", append(fields, zap.Error(err))...)
			return Result{Failed: 1}
		}
		e.logger.Warn("reminder_undeliverable", append(fields, zap.Error(err))...)
		result.Undelivered = 1
	}

	if err := e.ledger.MarkFired(ctx, key); err != nil {
		// Delivered but unrecorded; the next tick may repeat it.
		e.logger.Error("failed_to_mark_reminder_fired", append(fields, zap.Error(err))...)
	}

	taskID := task.ID
	entry := models.Notification{
		ID:        uuid.New(),
		Message:   body,
		Timestamp: now,
		Type:      kind,
		TaskID:    &taskID,
	}
	if task.Project.ID != uuid.Nil {
		projectID := task.Project.ID
		entry.ProjectID = &projectID
	}
	if err := e.feed.Append(ctx, user.ID, entry); err != nil {
		e.logger.Warn("failed_to_append_notification", append(fields, zap.Error(err))...)
	}

	if result.Undelivered == 0 {
		e.logger.Info("reminder_dispatched", fields...)
	}
	return result
}

// reminderOffsets returns the positive hour offsets, deduplicated and descending
func reminderOffsets(hours []int) []int {
	seen := make(map[int]struct{}, len(hours))
	out := make([]int, 0, len(hours))
	for _, h := range hours {
		if h <= 0 {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
