package main

import (
	"fmt"
	"os"

	"github.com/benvon/smart-tasks/cmd/tasksctl/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:           "tasksctl",
		Short:         "Operator tool for Smart Tasks",
		Long:          "CLI tool for schema migrations, reminder ledger maintenance and project upkeep",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewMigrateCmd())
	rootCmd.AddCommand(commands.NewLedgerCmd())
	rootCmd.AddCommand(commands.NewRemindersCmd())
	rootCmd.AddCommand(commands.NewProjectsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
