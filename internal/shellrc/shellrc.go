// Package shellrc installs and removes the shell alias that redirects the
// wrapped tool's command name to the wrapper.
//
// The alias lives in a marker-delimited block inside the shell's rc file so
// installation is idempotent and removal never disturbs surrounding lines.
package shellrc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Error variables for shellrc errors
var (
	// ErrUnsupportedShell is returned for shells gup does not know how to configure
	ErrUnsupportedShell = errors.New("unsupported shell")
	// ErrAliasNotInstalled is returned when removal finds no alias block
	ErrAliasNotInstalled = errors.New("alias not installed")
)

// Block markers delimiting the managed alias lines
const (
	beginMarker = "# >>> gup alias >>>"
	endMarker   = "# <<< gup alias <<<"
)

// Shell identifies a supported login shell.
type Shell string

const (
	Bash Shell = "bash"
	Zsh  Shell = "zsh"
	Fish Shell = "fish"
)

// Detect determines the user's shell from the SHELL environment variable.
func Detect() (Shell, error) {
	shellEnv := os.Getenv("SHELL")
	switch filepath.Base(shellEnv) {
	case "bash":
		return Bash, nil
	case "zsh":
		return Zsh, nil
	case "fish":
		return Fish, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedShell, shellEnv)
	}
}

// RCPath returns the rc file the alias block belongs in for the given shell.
func RCPath(shell Shell, home string) (string, error) {
	switch shell {
	case Bash:
		return filepath.Join(home, ".bashrc"), nil
	case Zsh:
		if zdot := os.Getenv("ZDOTDIR"); zdot != "" {
			return filepath.Join(zdot, ".zshrc"), nil
		}
		return filepath.Join(home, ".zshrc"), nil
	case Fish:
		return filepath.Join(home, ".config", "fish", "config.fish"), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedShell, shell)
	}
}

// aliasLine renders the shell-appropriate alias statement.
func aliasLine(shell Shell, command, wrapper string) string {
	if shell == Fish {
		return fmt.Sprintf("alias %s %q", command, wrapper)
	}
	return fmt.Sprintf("alias %s=%q", command, wrapper)
}

// block renders the full managed block, markers included.
func block(shell Shell, command, wrapper string) string {
	return beginMarker + "\n" + aliasLine(shell, command, wrapper) + "\n" + endMarker + "\n"
}

// Install writes the alias block into the rc file, creating the file when
// missing and replacing any previously installed block.
func Install(rcPath string, shell Shell, command, wrapper string) error {
	content := ""
	if data, err := os.ReadFile(rcPath); err == nil {
		content = string(data)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read %s: %w", rcPath, err)
	}

	stripped, _ := stripBlock(content)

	if stripped != "" && !strings.HasSuffix(stripped, "\n") {
		stripped += "\n"
	}
	updated := stripped + block(shell, command, wrapper)

	if err := os.MkdirAll(filepath.Dir(rcPath), 0755); err != nil {
		return fmt.Errorf("failed to create rc directory: %w", err)
	}

	return os.WriteFile(rcPath, []byte(updated), 0644)
}

// Remove deletes the alias block from the rc file.
// Returns ErrAliasNotInstalled when no block is present.
func Remove(rcPath string) error {
	data, err := os.ReadFile(rcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrAliasNotInstalled
		}
		return fmt.Errorf("failed to read %s: %w", rcPath, err)
	}

	stripped, found := stripBlock(string(data))
	if !found {
		return ErrAliasNotInstalled
	}

	return os.WriteFile(rcPath, []byte(stripped), 0644)
}

// Installed reports whether the rc file contains a managed alias block.
func Installed(rcPath string) bool {
	data, err := os.ReadFile(rcPath)
	if err != nil {
		return false
	}
	_, found := stripBlock(string(data))
	return found
}

// stripBlock removes the managed block from content. It scans line-wise so a
// block is removed even when surrounded by unrelated edits.
func stripBlock(content string) (string, bool) {
	if !strings.Contains(content, beginMarker) {
		return content, false
	}

	lines := strings.Split(content, "\n")
	var kept []string
	inBlock := false
	found := false

	for _, line := range lines {
		switch {
		case strings.TrimSpace(line) == beginMarker:
			inBlock = true
			found = true
		case strings.TrimSpace(line) == endMarker:
			inBlock = false
		case !inBlock:
			kept = append(kept, line)
		}
	}

	return strings.Join(kept, "\n"), found
}
