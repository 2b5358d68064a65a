package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/0xRaghu/gemini-cli-updater/internal/common/output"
)

var (
	// updateTool selects a non-default tool to update
	updateTool string
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Check for and install the latest version now",
	Long: `Force an update check, bypassing the cooldown window, and install the
latest published version when the local installation is missing or older.

Unlike the passthrough flow, failures here are fatal: an explicitly requested
update that cannot complete is reported as an error.`,
	Run: runUpdate,
}

func init() {
	updateCmd.Flags().StringVar(&updateTool, "tool", "", "Tool to update (default: configured tool)")

	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) {
	app, err := newApp(updateTool)
	if err != nil {
		output.PrintError("initialization failed: %v", err)
		exitCode = 1
		return
	}
	defer app.Close()

	res, err := app.RetryingUpdater().Force(context.Background())
	if err != nil {
		output.PrintError("update failed: %v", err)
		exitCode = 1
		return
	}

	if !res.UpdateNeeded {
		output.PrintSuccess("%s is up to date (%s)", app.tool.Name, res.LatestVersion)
		return
	}

	output.PrintSuccess("%s updated: %s", app.tool.Name, output.Arrow(res.CurrentVersion, res.LatestVersion))
}
