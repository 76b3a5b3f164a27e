package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate command
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Long:  "Apply pending SQL migrations on Postgres, or create the collection indexes on MongoDB",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.close()

			applied, err := e.stores.Migrate(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to migrate: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(applied) == 0 {
				fmt.Fprintln(out, "Schema is up to date")
				return nil
			}
			for _, step := range applied {
				fmt.Fprintf(out, "Applied %s\n", step)
			}
			return nil
		},
	}
}
