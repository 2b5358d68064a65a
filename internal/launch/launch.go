// Package launch locates and executes the wrapped tool, forwarding streams,
// signals, and the exit code.
package launch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/0xRaghu/gemini-cli-updater/internal/common/logger"
	"github.com/0xRaghu/gemini-cli-updater/internal/npm"
	"github.com/0xRaghu/gemini-cli-updater/internal/tool"
)

// ErrDependencyNotFound is returned when the wrapped tool cannot be located.
// It aliases the npm package's sentinel so callers can match either.
var ErrDependencyNotFound = npm.ErrDependencyNotFound

// Launcher executes the wrapped tool.
type Launcher struct {
	tool tool.Tool
	npm  *npm.Manager
}

// NewLauncher creates a launcher for the given tool.
func NewLauncher(t tool.Tool, manager *npm.Manager) *Launcher {
	return &Launcher{tool: t, npm: manager}
}

// Launch runs the wrapped tool with args, inheriting standard streams and
// forwarding interrupt and terminate signals to the child. It returns the
// child's exit code, or 0 when the child was killed by a signal without
// producing one. ErrDependencyNotFound is returned when nothing can be run.
func (l *Launcher) Launch(ctx context.Context, args []string) (int, error) {
	name, argv, err := l.resolve(ctx, args)
	if err != nil {
		return 0, err
	}

	logger.Debug("launching %s %v", name, argv)

	cmd := exec.Command(name, argv...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrDependencyNotFound, name, err)
	}

	// Forward termination signals to the child instead of dying ourselves
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigCh:
				cmd.Process.Signal(sig)
			case <-done:
				return
			}
		}
	}()

	err = cmd.Wait()
	close(done)
	signal.Stop(sigCh)

	return ExitCode(err)
}

// resolve locates the wrapped tool's executable. It prefers the command on
// PATH (skipping the wrapper's own binary, which the shell alias points at),
// then falls back to the entry point declared under npm's global root, run
// through node.
func (l *Launcher) resolve(ctx context.Context, args []string) (string, []string, error) {
	if path, err := exec.LookPath(l.tool.Command); err == nil && !isSelf(path) {
		return path, args, nil
	}

	root, err := l.npm.GlobalRoot(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s: %v", ErrDependencyNotFound, l.tool.Command, err)
	}

	entry, err := npm.BinPath(root, l.tool)
	if err != nil {
		return "", nil, err
	}

	node, err := exec.LookPath("node")
	if err != nil {
		return "", nil, fmt.Errorf("%w: node runtime not on PATH: %v", ErrDependencyNotFound, err)
	}

	return node, append([]string{entry}, args...), nil
}

// isSelf reports whether path points at the currently running binary.
func isSelf(path string) bool {
	self, err := os.Executable()
	if err != nil {
		return false
	}
	selfResolved, err := filepath.EvalSymlinks(self)
	if err != nil {
		selfResolved = self
	}
	pathResolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		pathResolved = path
	}
	return selfResolved == pathResolved
}

// ExitCode maps a Wait error to the process exit code the wrapper should
// mirror. A child killed by a signal without an exit code maps to 0.
func ExitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		return 0, nil
	}

	return 0, err
}
