package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/0xRaghu/gemini-cli-updater/internal/common/output"
	"github.com/0xRaghu/gemini-cli-updater/internal/update"
)

var (
	// rollbackTool selects a non-default tool to roll back
	rollbackTool string
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Reinstall the previously installed version",
	Long: `Reinstall the source version of the second-to-last recorded transition,
pinned exactly. Requires at least two entries in the version history.`,
	Run: runRollback,
}

func init() {
	rollbackCmd.Flags().StringVar(&rollbackTool, "tool", "", "Tool to roll back (default: configured tool)")

	rootCmd.AddCommand(rollbackCmd)
}

func runRollback(cmd *cobra.Command, args []string) {
	app, err := newApp(rollbackTool)
	if err != nil {
		output.PrintError("initialization failed: %v", err)
		exitCode = 1
		return
	}
	defer app.Close()

	target, err := app.Updater().Rollback(context.Background())
	if err != nil {
		if errors.Is(err, update.ErrNoRollbackTarget) {
			output.PrintError("nothing to roll back to: %v", err)
		} else {
			output.PrintError("rollback failed: %v", err)
		}
		exitCode = 1
		return
	}

	output.PrintSuccess("%s rolled back to %s", app.tool.Name, target)
}
