package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/benvon/smart-tasks/internal/reminders"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewLedgerCmd creates the ledger command group
func NewLedgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect or reset delivered reminder keys",
	}

	var taskFlag string
	cmd.PersistentFlags().StringVar(&taskFlag, "task", "", "Task ID")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the reminder keys already delivered for a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseIDFlag("task", taskFlag)
			if err != nil {
				return err
			}
			return withLedger(cmd.Context(), func(ledger reminders.Ledger) error {
				return listLedger(cmd.Context(), cmd.OutOrStdout(), ledger, taskID)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "forget",
		Short: "Forget delivered reminders so a task can be notified again",
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseIDFlag("task", taskFlag)
			if err != nil {
				return err
			}
			return withLedger(cmd.Context(), func(ledger reminders.Ledger) error {
				return forgetLedger(cmd.Context(), cmd.OutOrStdout(), ledger, taskID)
			})
		},
	})

	return cmd
}

func withLedger(ctx context.Context, fn func(reminders.Ledger) error) error {
	e, err := openEnv(ctx, true)
	if err != nil {
		return err
	}
	defer e.close()
	return fn(reminders.NewRedisLedger(e.redis))
}

func listLedger(ctx context.Context, out io.Writer, ledger reminders.Ledger, taskID uuid.UUID) error {
	keys, err := ledger.List(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to list ledger: %w", err)
	}
	if len(keys) == 0 {
		fmt.Fprintf(out, "No reminders delivered for task %s\n", taskID)
		return nil
	}
	for _, key := range keys {
		fmt.Fprintln(out, key.String())
	}
	return nil
}

func forgetLedger(ctx context.Context, out io.Writer, ledger reminders.Ledger, taskID uuid.UUID) error {
	if err := ledger.Forget(ctx, taskID); err != nil {
		return fmt.Errorf("failed to forget ledger entries: %w", err)
	}
	fmt.Fprintf(out, "Forgot delivered reminders for task %s\n", taskID)
	return nil
}
