package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xRaghu/gemini-cli-updater/internal/common/output"
	"github.com/0xRaghu/gemini-cli-updater/internal/registry"
)

var (
	// statusTags additionally lists the package's dist-tags
	statusTags bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show installed and latest versions and cooldown state",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusTags, "tags", false, "Also list the package's dist-tags")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	app, err := newApp("")
	if err != nil {
		output.PrintError("initialization failed: %v", err)
		exitCode = 1
		return
	}
	defer app.Close()

	ctx := context.Background()

	fmt.Println()
	output.Header.Println("gup status")
	fmt.Println()
	fmt.Printf("  tool:      %s (%s)\n", output.Tool.Sprint(app.tool.Name), app.tool.Package)

	if current, ok := app.npm.InstalledVersion(ctx, app.tool); ok {
		fmt.Printf("  installed: %s\n", output.Version.Sprint(current))
	} else {
		fmt.Printf("  installed: %s\n", output.Warning.Sprint("not installed"))
	}

	client := registry.NewClient(app.cfg.Registry.URL)
	if latest, err := client.LatestVersion(ctx, app.tool.Package); err == nil {
		fmt.Printf("  latest:    %s\n", output.Version.Sprint(latest))
	} else {
		fmt.Printf("  latest:    %s\n", output.Warning.Sprintf("unavailable (%v)", err))
	}

	settings := app.store.Settings()
	if last, ok := app.store.LastCheck(); ok {
		remaining := settings.Cooldown() - time.Since(last)
		if remaining > 0 {
			fmt.Printf("  checked:   %s %s\n", last.Format("2006-01-02 15:04"),
				output.Dim.Sprintf("(cooldown: %s remaining)", remaining.Round(time.Second)))
		} else {
			fmt.Printf("  checked:   %s\n", last.Format("2006-01-02 15:04"))
		}
	} else {
		fmt.Printf("  checked:   %s\n", output.Dim.Sprint("never"))
	}

	if updated, ok := app.store.LastUpdateTime(); ok {
		fmt.Printf("  updated:   %s\n", updated.Format("2006-01-02 15:04"))
	} else {
		fmt.Printf("  updated:   %s\n", output.Dim.Sprint("never"))
	}

	fmt.Printf("  state:     %s\n", output.Dim.Sprint(app.store.Path()))

	if statusTags {
		printDistTags(ctx, client, app.tool.Package)
	}

	fmt.Println()
}

func printDistTags(ctx context.Context, client *registry.Client, pkg string) {
	tags, err := client.DistTags(ctx, pkg)
	if err != nil {
		output.PrintWarning("dist-tags unavailable: %v", err)
		return
	}

	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println()
	output.Header.Println("  dist-tags")
	for _, name := range names {
		fmt.Printf("    %-10s %s\n", name, output.Version.Sprint(tags[name]))
	}
}
