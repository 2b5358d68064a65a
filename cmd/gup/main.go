// Command gup wraps an npm-published CLI tool (by default the Gemini CLI),
// transparently keeping it up to date before every launch.
//
// Invoked without a subcommand, gup checks for updates (bounded by a
// cooldown), optionally installs them, then executes the wrapped tool with
// all remaining arguments, mirroring its exit code. Subcommands manage
// updates, rollback, history, and the shell alias explicitly.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/0xRaghu/gemini-cli-updater/internal/common/logger"
	"github.com/0xRaghu/gemini-cli-updater/internal/common/output"
	"github.com/0xRaghu/gemini-cli-updater/internal/launch"
	"github.com/0xRaghu/gemini-cli-updater/internal/update"
)

// Environment variables recognized by the wrapper
const (
	// envSkipUpdate unconditionally skips the update phase when set
	envSkipUpdate = "GUP_SKIP_UPDATE"
	// envDebug enables verbose logging when set
	envDebug = "GUP_DEBUG"
	// envQuiet suppresses everything below error severity when set
	envQuiet = "GUP_QUIET"
)

// skipUpdateFlag is the one flag the wrapper recognizes; everything else is
// forwarded verbatim to the wrapped tool
const skipUpdateFlag = "--skip-update"

var rootCmd = &cobra.Command{
	Use:   "gup [-- tool arguments...]",
	Short: "Auto-updating launcher for the Gemini CLI",
	Long: `gup keeps an npm-published CLI tool up to date and launches it.

Run gup with arbitrary arguments to forward them to the wrapped tool after a
(rate-limited) update check. Use the subcommands to update, roll back, or
manage the shell alias explicitly.

Environment:
  GUP_SKIP_UPDATE   skip the update phase entirely
  GUP_DEBUG         enable verbose logging
  GUP_QUIET         log errors only`,
	// All unrecognized flags belong to the wrapped tool
	DisableFlagParsing: true,
	Args:               cobra.ArbitraryArgs,
	Run:                runWrapper,
}

// exitCode is set by command handlers instead of calling os.Exit directly,
// so deferred cleanup (state flush, log file close) runs before the process
// exits.
var exitCode int

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}

// applyLogEnv configures the logger from the environment. Debug wins over
// quiet when both are set.
func applyLogEnv() {
	if os.Getenv(envDebug) != "" {
		logger.SetVerbose(true)
	} else if os.Getenv(envQuiet) != "" {
		logger.SetQuiet(true)
	}
}

// runWrapper is the passthrough flow: optional update check, then launch.
func runWrapper(cmd *cobra.Command, args []string) {
	applyLogEnv()

	args, skip := peelSkipFlag(args)
	if os.Getenv(envSkipUpdate) != "" {
		skip = true
	}

	app, err := newApp("")
	if err != nil {
		output.PrintError("initialization failed: %v", err)
		exitCode = 1
		return
	}
	defer app.Close()

	if !skip {
		// An interrupt during the update phase aborts the check and falls
		// through to the launch, where signals are forwarded to the child
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		maybeUpdate(ctx, app)
		stop()
	} else {
		logger.Debug("update phase skipped")
	}

	launcher := launch.NewLauncher(app.tool, app.npm)
	code, err := launcher.Launch(context.Background(), args)
	if err != nil {
		if errors.Is(err, launch.ErrDependencyNotFound) {
			output.PrintError("%s is not installed and could not be located: %v", app.tool.Command, err)
		} else {
			output.PrintError("failed to launch %s: %v", app.tool.Command, err)
		}
		exitCode = 1
		return
	}

	exitCode = code
}

// maybeUpdate runs the update phase. Every failure here degrades to a
// warning: the user's intent is running the tool, not updating it.
func maybeUpdate(ctx context.Context, app *app) {
	updater := app.Updater()

	res, err := updater.Check(ctx)
	if err != nil {
		logger.Warn("update check failed: %v", err)
		return
	}

	if res.Skipped || !res.UpdateNeeded {
		return
	}

	if !app.store.Settings().AutoUpdate {
		output.PrintInfo("update available for %s: %s (run `gup update` to install)",
			app.tool.Name, output.Arrow(res.CurrentVersion, res.LatestVersion))
		return
	}

	if err := updater.Apply(ctx, res); err != nil {
		if errors.Is(err, update.ErrUpdateVerification) {
			logger.Warn("update applied but not verified: %v", err)
		} else {
			logger.Warn("update failed, launching current installation: %v", err)
		}
		return
	}

	output.PrintSuccess("%s updated to %s", app.tool.Name, res.LatestVersion)
}

// peelSkipFlag removes the wrapper's one recognized flag from the argument
// list, forwarding everything else untouched.
func peelSkipFlag(args []string) ([]string, bool) {
	kept := args[:0:0]
	skip := false
	for _, a := range args {
		if a == skipUpdateFlag {
			skip = true
			continue
		}
		kept = append(kept, a)
	}
	return kept, skip
}
