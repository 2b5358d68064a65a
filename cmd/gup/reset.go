package main

import (

	"github.com/spf13/cobra"

	"github.com/0xRaghu/gemini-cli-updater/internal/common/output"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the saved state and recreate defaults",
	Long: `Delete the state document (timestamps, version history, settings) and
recreate it with default values. The next invocation will check for updates
immediately.`,
	Run: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) {
	app, err := newApp("")
	if err != nil {
		output.PrintError("initialization failed: %v", err)
		exitCode = 1
		return
	}
	defer app.Close()

	if err := app.store.Reset(); err != nil {
		output.PrintError("failed to reset state: %v", err)
		exitCode = 1
		return
	}

	output.PrintSuccess("state reset to defaults (%s)", app.store.Path())
}
