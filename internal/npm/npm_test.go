package npm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/0xRaghu/gemini-cli-updater/internal/tool"
)

var testTool = tool.Tool{
	Name:        "gemini",
	Package:     "@google/gemini-cli",
	Command:     "gemini",
	VersionArgs: []string{"--version"},
}

func TestExtractVersion(t *testing.T) {
	tests := []struct {
		name  string
		out   string
		want  string
		found bool
	}{
		{"bare version", "1.4.2\n", "1.4.2", true},
		{"prefixed", "gemini-cli version 1.4.2 (build 77)\n", "1.4.2", true},
		{"first of several", "deps: 0.1.0\nself: 2.3.4\n", "0.1.0", true},
		{"prerelease suffix", "v2.0.0-beta.1\n", "2.0.0-beta.1", true},
		{"two components only", "v1.4\n", "", false},
		{"empty output", "", "", false},
		{"no digits", "version unknown\n", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ExtractVersion(tt.out)
			if found != tt.found || got != tt.want {
				t.Errorf("ExtractVersion(%q): got (%q, %v), want (%q, %v)", tt.out, got, found, tt.want, tt.found)
			}
		})
	}
}

func TestInstalledVersion(t *testing.T) {
	runner := &MockRunner{
		RunFunc: func(ctx context.Context, name string, args ...string) (string, error) {
			return "1.2.3\n", nil
		},
	}
	m := NewManager("npm", WithRunner(runner))

	version, ok := m.InstalledVersion(context.Background(), testTool)
	if !ok || version != "1.2.3" {
		t.Errorf("got (%q, %v), want (1.2.3, true)", version, ok)
	}

	want := []string{"gemini", "--version"}
	if len(runner.Calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(runner.Calls))
	}
	for i, arg := range want {
		if runner.Calls[0][i] != arg {
			t.Errorf("call: got %v, want %v", runner.Calls[0], want)
			break
		}
	}
}

func TestInstalledVersionFailureIsAbsence(t *testing.T) {
	tests := []struct {
		name string
		out  string
		err  error
	}{
		{"command error", "", errors.New("exec: not found")},
		{"no version in output", "hello\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &MockRunner{
				RunFunc: func(ctx context.Context, name string, args ...string) (string, error) {
					return tt.out, tt.err
				},
			}
			m := NewManager("npm", WithRunner(runner))

			if _, ok := m.InstalledVersion(context.Background(), testTool); ok {
				t.Error("expected absence, got a version")
			}
		})
	}
}

func TestInstallArgs(t *testing.T) {
	runner := &MockRunner{}
	m := NewManager("npm", WithRunner(runner))

	if err := m.Install(context.Background(), "@google/gemini-cli"); err != nil {
		t.Fatal(err)
	}
	if err := m.InstallVersion(context.Background(), "@google/gemini-cli", "1.2.3"); err != nil {
		t.Fatal(err)
	}

	want := [][]string{
		{"npm", "install", "-g", "@google/gemini-cli@latest"},
		{"npm", "install", "-g", "@google/gemini-cli@1.2.3"},
	}
	if len(runner.Calls) != len(want) {
		t.Fatalf("expected %d calls, got %d", len(want), len(runner.Calls))
	}
	for i, call := range want {
		for j, arg := range call {
			if runner.Calls[i][j] != arg {
				t.Errorf("call %d: got %v, want %v", i, runner.Calls[i], call)
				break
			}
		}
	}
}

func TestInstallFailure(t *testing.T) {
	runner := &MockRunner{
		RunFunc: func(ctx context.Context, name string, args ...string) (string, error) {
			return "", errors.New("EACCES")
		},
	}
	m := NewManager("npm", WithRunner(runner))

	err := m.Install(context.Background(), "pkg")
	if !errors.Is(err, ErrInstallFailed) {
		t.Errorf("got %v, want ErrInstallFailed", err)
	}
}

func TestGlobalRoot(t *testing.T) {
	runner := &MockRunner{
		RunFunc: func(ctx context.Context, name string, args ...string) (string, error) {
			return "/usr/lib/node_modules\n", nil
		},
	}
	m := NewManager("npm", WithRunner(runner))

	root, err := m.GlobalRoot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if root != "/usr/lib/node_modules" {
		t.Errorf("root: got %q", root)
	}
}

func TestBinPath(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		wantRel  string
		wantErr  bool
	}{
		{"map form", `{"bin": {"gemini": "dist/index.js"}}`, "dist/index.js", false},
		{"string form", `{"bin": "cli.js"}`, "cli.js", false},
		{"other command name", `{"bin": {"other": "run.js"}}`, "run.js", false},
		{"no bin field", `{"name": "x"}`, "", true},
		{"invalid manifest", `{`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			pkgDir := filepath.Join(root, "@google", "gemini-cli")
			if err := os.MkdirAll(pkgDir, 0755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(filepath.Join(pkgDir, "package.json"), []byte(tt.manifest), 0644); err != nil {
				t.Fatal(err)
			}
			if tt.wantRel != "" {
				entry := filepath.Join(pkgDir, filepath.FromSlash(tt.wantRel))
				if err := os.MkdirAll(filepath.Dir(entry), 0755); err != nil {
					t.Fatal(err)
				}
				if err := os.WriteFile(entry, []byte("#!/usr/bin/env node\n"), 0755); err != nil {
					t.Fatal(err)
				}
			}

			got, err := BinPath(root, testTool)
			if tt.wantErr {
				if !errors.Is(err, ErrDependencyNotFound) {
					t.Errorf("got %v, want ErrDependencyNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("BinPath failed: %v", err)
			}
			want := filepath.Join(pkgDir, filepath.FromSlash(tt.wantRel))
			if got != want {
				t.Errorf("path: got %q, want %q", got, want)
			}
		})
	}
}

func TestBinPathMissingPackage(t *testing.T) {
	_, err := BinPath(t.TempDir(), testTool)
	if !errors.Is(err, ErrDependencyNotFound) {
		t.Errorf("got %v, want ErrDependencyNotFound", err)
	}
}
