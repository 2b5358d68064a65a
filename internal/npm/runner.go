// Package npm drives the npm package manager and the locally installed
// wrapped tool through bounded subprocess calls.
package npm

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

var (
	// ErrCommandFailed is returned when a subprocess exits non-zero
	ErrCommandFailed = errors.New("command failed")
)

// Runner defines the interface for subprocess execution.
// This interface allows for mocking subprocess calls in tests.
type Runner interface {
	// Run executes name with args and returns its combined stdout.
	// The context bounds the subprocess lifetime.
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner executes commands with os/exec.
type ExecRunner struct{}

// NewExecRunner creates a Runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command and returns its stdout.
// On a non-zero exit, stderr is folded into the returned error.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	stdout := stdoutBuf.String()

	if err != nil {
		if stderr := strings.TrimSpace(stderrBuf.String()); stderr != "" {
			err = errors.Join(ErrCommandFailed, errors.New(stderr))
		}
		return stdout, err
	}

	return stdout, nil
}

// MockRunner implements Runner for testing.
// RunFunc controls behavior; Calls records every invocation.
type MockRunner struct {
	RunFunc func(ctx context.Context, name string, args ...string) (string, error)
	Calls   [][]string
}

// Run records the invocation and delegates to RunFunc when set.
func (m *MockRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	m.Calls = append(m.Calls, append([]string{name}, args...))
	if m.RunFunc != nil {
		return m.RunFunc(ctx, name, args...)
	}
	return "", nil
}
