package launch

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/0xRaghu/gemini-cli-updater/internal/npm"
	"github.com/0xRaghu/gemini-cli-updater/internal/tool"
)

func TestExitCode(t *testing.T) {
	t.Run("nil error is zero", func(t *testing.T) {
		code, err := ExitCode(nil)
		if err != nil || code != 0 {
			t.Errorf("got (%d, %v), want (0, nil)", code, err)
		}
	})

	t.Run("child exit code is mirrored", func(t *testing.T) {
		waitErr := exec.Command("sh", "-c", "exit 3").Run()
		code, err := ExitCode(waitErr)
		if err != nil {
			t.Fatalf("ExitCode failed: %v", err)
		}
		if code != 3 {
			t.Errorf("code: got %d, want 3", code)
		}
	})

	t.Run("signal-killed child maps to zero", func(t *testing.T) {
		waitErr := exec.Command("sh", "-c", "kill -TERM $$").Run()
		code, err := ExitCode(waitErr)
		if err != nil {
			t.Fatalf("ExitCode failed: %v", err)
		}
		if code != 0 {
			t.Errorf("code: got %d, want 0", code)
		}
	})

	t.Run("non-exit errors propagate", func(t *testing.T) {
		boom := errors.New("wait failed")
		if _, err := ExitCode(boom); !errors.Is(err, boom) {
			t.Errorf("got %v, want original error", err)
		}
	})
}

func TestResolveMissingEverywhere(t *testing.T) {
	// A command that is neither on PATH nor resolvable through npm
	missing := tool.Tool{
		Name:        "ghost",
		Package:     "ghost-cli-does-not-exist",
		Command:     "ghost-cli-does-not-exist",
		VersionArgs: []string{"--version"},
	}

	runner := &npm.MockRunner{
		RunFunc: func(ctx context.Context, name string, args ...string) (string, error) {
			return "", errors.New("npm missing too")
		},
	}
	launcher := NewLauncher(missing, npm.NewManager("npm", npm.WithRunner(runner)))

	_, _, err := launcher.resolve(context.Background(), nil)
	if !errors.Is(err, ErrDependencyNotFound) {
		t.Errorf("got %v, want ErrDependencyNotFound", err)
	}
}

func TestResolvePrefersPath(t *testing.T) {
	// sh is always on PATH; resolve must not consult npm at all
	onPath := tool.Tool{
		Name:        "sh",
		Package:     "not-consulted",
		Command:     "sh",
		VersionArgs: []string{"--version"},
	}

	runner := &npm.MockRunner{}
	launcher := NewLauncher(onPath, npm.NewManager("npm", npm.WithRunner(runner)))

	name, argv, err := launcher.resolve(context.Background(), []string{"-c", "true"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if name == "" {
		t.Error("expected a resolved path")
	}
	if len(argv) != 2 || argv[0] != "-c" {
		t.Errorf("args not forwarded verbatim: %v", argv)
	}
	if len(runner.Calls) != 0 {
		t.Errorf("npm consulted despite PATH hit: %v", runner.Calls)
	}
}

func TestLaunchMirrorsExitCode(t *testing.T) {
	onPath := tool.Tool{
		Name:        "sh",
		Package:     "not-consulted",
		Command:     "sh",
		VersionArgs: []string{"--version"},
	}
	launcher := NewLauncher(onPath, npm.NewManager("npm"))

	code, err := launcher.Launch(context.Background(), []string{"-c", "exit 7"})
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	if code != 7 {
		t.Errorf("exit code: got %d, want 7", code)
	}
}
