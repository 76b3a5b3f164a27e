package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/benvon/smart-tasks/internal/services/projects"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewProjectsCmd creates the projects command group
func NewProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Project maintenance",
	}

	var projectFlag string
	resync := &cobra.Command{
		Use:   "resync-names",
		Short: "Copy a project's current name onto its tasks",
		Long: "Tasks keep the project name they were assigned with. " +
			"Run this after renaming a project to refresh the copies.",
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseIDFlag("project", projectFlag)
			if err != nil {
				return err
			}

			e, err := openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.close()

			svc := projects.NewService(e.stores.Projects, e.stores.Tasks, e.log)
			return resyncNames(cmd.Context(), cmd.OutOrStdout(), svc, projectID)
		},
	}
	resync.Flags().StringVar(&projectFlag, "project", "", "Project ID")
	cmd.AddCommand(resync)

	return cmd
}

type nameResyncer interface {
	ResyncNames(ctx context.Context, id uuid.UUID) (int64, error)
}

var _ nameResyncer = (*projects.Service)(nil)

func resyncNames(ctx context.Context, out io.Writer, svc nameResyncer, projectID uuid.UUID) error {
	n, err := svc.ResyncNames(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to resync project names: %w", err)
	}
	fmt.Fprintf(out, "Updated %d tasks\n", n)
	return nil
}
