package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/0xRaghu/gemini-cli-updater/internal/common/output"
	"github.com/0xRaghu/gemini-cli-updater/internal/shellrc"
)

var aliasCmd = &cobra.Command{
	Use:   "alias",
	Short: "Manage the shell alias redirecting the tool's command to gup",
	Long: `Install or remove the shell alias that makes the wrapped tool's command
name (e.g. "gemini") invoke gup, so every launch goes through the update
check. The alias lives in a marker-delimited block in your shell's rc file.`,
}

var aliasInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the alias into your shell's rc file",
	Run:   runAliasInstall,
}

var aliasRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the alias from your shell's rc file",
	Run:   runAliasRemove,
}

func init() {
	aliasCmd.AddCommand(aliasInstallCmd)
	aliasCmd.AddCommand(aliasRemoveCmd)

	rootCmd.AddCommand(aliasCmd)
}

// resolveRCPath detects the shell and the rc file the alias belongs in.
func resolveRCPath() (shellrc.Shell, string, error) {
	shell, err := shellrc.Detect()
	if err != nil {
		return "", "", err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", err
	}

	rcPath, err := shellrc.RCPath(shell, home)
	if err != nil {
		return "", "", err
	}

	return shell, rcPath, nil
}

func runAliasInstall(cmd *cobra.Command, args []string) {
	app, err := newApp("")
	if err != nil {
		output.PrintError("initialization failed: %v", err)
		exitCode = 1
		return
	}
	defer app.Close()

	shell, rcPath, err := resolveRCPath()
	if err != nil {
		output.PrintError("%v", err)
		exitCode = 1
		return
	}

	if err := shellrc.Install(rcPath, shell, app.tool.Command, "gup"); err != nil {
		output.PrintError("failed to install alias: %v", err)
		exitCode = 1
		return
	}

	output.PrintSuccess("alias installed in %s", rcPath)
	output.PrintInfo("restart your shell or `source %s` to activate it", rcPath)
}

func runAliasRemove(cmd *cobra.Command, args []string) {
	_, rcPath, err := resolveRCPath()
	if err != nil {
		output.PrintError("%v", err)
		exitCode = 1
		return
	}

	if err := shellrc.Remove(rcPath); err != nil {
		if errors.Is(err, shellrc.ErrAliasNotInstalled) {
			output.PrintInfo("no alias installed in %s", rcPath)
			return
		}
		output.PrintError("failed to remove alias: %v", err)
		exitCode = 1
		return
	}

	output.PrintSuccess("alias removed from %s", rcPath)
}
