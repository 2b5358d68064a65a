package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xRaghu/gemini-cli-updater/internal/common/output"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the recorded version transitions",
	Run:   runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	app, err := newApp("")
	if err != nil {
		output.PrintError("initialization failed: %v", err)
		exitCode = 1
		return
	}
	defer app.Close()

	history := app.store.History()
	if len(history) == 0 {
		output.PrintInfo("no version transitions recorded yet")
		return
	}

	fmt.Println()
	output.Header.Printf("Version history for %s\n", app.tool.Name)
	fmt.Println()

	for _, entry := range history {
		when := time.UnixMilli(entry.Timestamp).Format("2006-01-02 15:04")
		from := entry.From
		if from == "" {
			from = "(not installed)"
		}
		fmt.Printf("  %s  %s\n", output.Dim.Sprint(when), output.Arrow(from, entry.To))
	}
	fmt.Println()
}
