package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/benvon/smart-tasks/internal/app"
	"github.com/benvon/smart-tasks/internal/models"
	"github.com/benvon/smart-tasks/internal/reminders"
	"github.com/spf13/cobra"
)

// NewRemindersCmd creates the reminders command group
func NewRemindersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Run reminder evaluation",
	}

	var userFlag string
	scan := &cobra.Command{
		Use:   "scan",
		Short: "Evaluate one user's tasks now and deliver due reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseIDFlag("user", userFlag)
			if err != nil {
				return err
			}

			e, err := openEnv(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer e.close()

			user, err := e.stores.Users.GetByID(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("failed to load user: %w", err)
			}

			engine := app.NewEngine(e.cfg, e.stores, e.redis, app.NewDispatcher(e.cfg, e.log), e.log)
			return scanUser(cmd.Context(), cmd.OutOrStdout(), engine, user, time.Now())
		},
	}
	scan.Flags().StringVar(&userFlag, "user", "", "User ID")
	cmd.AddCommand(scan)

	return cmd
}

type userEvaluator interface {
	EvaluateUser(ctx context.Context, user *models.User, now time.Time) (reminders.Result, error)
}

func scanUser(ctx context.Context, out io.Writer, engine userEvaluator, user *models.User, now time.Time) error {
	if !user.NotificationsEnabled {
		fmt.Fprintf(out, "User %s has not granted notification permission\n", user.ID)
		return nil
	}

	result, err := engine.EvaluateUser(ctx, user, now)
	if err != nil {
		return fmt.Errorf("failed to evaluate reminders: %w", err)
	}

	for _, key := range result.Fired {
		fmt.Fprintf(out, "Recorded %s\n", key)
	}
	fmt.Fprintf(out, "%d delivered, %d failed", len(result.Fired)-result.Undelivered, result.Failed)
	if result.Undelivered > 0 {
		fmt.Fprintf(out, ", %d undeliverable (no push recipient)", result.Undelivered)
	}
	fmt.Fprintln(out)
	if result.Failed > 0 {
		return fmt.Errorf("%d reminders could not be delivered", result.Failed)
	}
	return nil
}

var _ userEvaluator = (*reminders.Engine)(nil)
