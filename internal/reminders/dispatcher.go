package reminders

import (
	"context"
	"errors"

	"github.com/benvon/smart-tasks/internal/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notice is a notification ready to be shown to a user
type Notice struct {
	UserID         uuid.UUID
	SubscriptionID string
	TaskID         uuid.UUID
	Title          string
	Body           string
}

// ErrUndeliverable marks a dispatch failure that retrying cannot fix, such as a
// user with no push subscription. The reminder is recorded as fired anyway.
var ErrUndeliverable = errors.New("notification is undeliverable")

// Dispatcher delivers a notice to the user's notification surface.
// Display returns only once delivery has been accepted or has failed.
type Dispatcher interface {
	Display(ctx context.Context, notice Notice) error
}

// LogDispatcher writes notices to the log instead of delivering them.
// Used when no push provider is configured.
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher creates a dispatcher that only logs
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// Display logs the notice
func (d *LogDispatcher) Display(_ context.Context, notice Notice) error {
	d.logger.Info("notification_displayed",
		zap.String("user_id", notice.UserID.String()),
		zap.String("task_id", notice.TaskID.String()),
		zap.String("title", logger.SanitizeString(notice.Title, 200)),
		zap.String("body", logger.SanitizeString(notice.Body, 500)),
	)
	return nil
}

var _ Dispatcher = (*LogDispatcher)(nil)
