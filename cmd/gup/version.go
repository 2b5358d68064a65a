package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xRaghu/gemini-cli-updater/internal/common/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show gup's own version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Info())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
