package npm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/0xRaghu/gemini-cli-updater/internal/tool"
)

// Error variables for npm errors
var (
	// ErrInstallFailed is returned when npm install exits non-zero
	ErrInstallFailed = errors.New("npm install failed")
	// ErrDependencyNotFound is returned when the wrapped tool's executable cannot be located
	ErrDependencyNotFound = errors.New("wrapped tool executable not found")
)

// Subprocess deadlines
const (
	// VersionQueryTimeout bounds the wrapped tool's version query
	VersionQueryTimeout = 5 * time.Second
	// InstallTimeout bounds a global npm install
	InstallTimeout = 5 * time.Minute
)

// versionPattern matches the first dotted version triple in command output
var versionPattern = regexp.MustCompile(`\d+\.\d+\.\d+(?:[-+][0-9A-Za-z.-]+)?`)

// Manager runs npm and wrapped-tool subprocesses.
type Manager struct {
	// binary is the npm executable name or path
	binary string
	runner Runner
}

// ManagerOption is a functional option for configuring Manager
type ManagerOption func(*Manager)

// WithRunner sets a custom subprocess runner (useful for testing)
func WithRunner(r Runner) ManagerOption {
	return func(m *Manager) {
		m.runner = r
	}
}

// NewManager creates a Manager that invokes the given npm binary.
func NewManager(binary string, opts ...ManagerOption) *Manager {
	if binary == "" {
		binary = "npm"
	}

	m := &Manager{binary: binary}

	for _, opt := range opts {
		opt(m)
	}

	if m.runner == nil {
		m.runner = NewExecRunner()
	}

	return m
}

// InstalledVersion queries the wrapped tool for its version with a bounded
// timeout and extracts the first dotted version triple from the output.
// Returns ("", false) when the tool is missing or prints no recognizable
// version; absence is not an error.
func (m *Manager) InstalledVersion(ctx context.Context, t tool.Tool) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, VersionQueryTimeout)
	defer cancel()

	out, err := m.runner.Run(ctx, t.Command, t.VersionArgs...)
	if err != nil {
		return "", false
	}

	return ExtractVersion(out)
}

// ExtractVersion extracts the first dotted version triple from command output.
func ExtractVersion(out string) (string, bool) {
	match := versionPattern.FindString(out)
	if match == "" {
		return "", false
	}
	return match, true
}

// Install installs the latest published version of pkg globally.
func (m *Manager) Install(ctx context.Context, pkg string) error {
	return m.install(ctx, pkg+"@latest")
}

// InstallVersion installs pkg pinned to the exact given version globally.
func (m *Manager) InstallVersion(ctx context.Context, pkg, version string) error {
	return m.install(ctx, pkg+"@"+version)
}

func (m *Manager) install(ctx context.Context, spec string) error {
	ctx, cancel := context.WithTimeout(ctx, InstallTimeout)
	defer cancel()

	if _, err := m.runner.Run(ctx, m.binary, "install", "-g", spec); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInstallFailed, spec, err)
	}

	return nil
}

// GlobalRoot returns npm's global node_modules directory.
func (m *Manager) GlobalRoot(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, VersionQueryTimeout)
	defer cancel()

	out, err := m.runner.Run(ctx, m.binary, "root", "-g")
	if err != nil {
		return "", fmt.Errorf("failed to resolve npm global root: %w", err)
	}

	root := strings.TrimSpace(out)
	if root == "" {
		return "", fmt.Errorf("failed to resolve npm global root: empty output")
	}

	return root, nil
}

// packageManifest is the subset of package.json we read
type packageManifest struct {
	Bin json.RawMessage `json:"bin"`
}

// BinPath resolves the wrapped tool's entry point under npm's global root by
// reading the declared bin entry from the package's package.json.
// The bin field is either a plain string or a map of command name to path.
func BinPath(globalRoot string, t tool.Tool) (string, error) {
	pkgDir := filepath.Join(globalRoot, filepath.FromSlash(t.Package))

	data, err := os.ReadFile(filepath.Join(pkgDir, "package.json"))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrDependencyNotFound, t.Package, err)
	}

	var manifest packageManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return "", fmt.Errorf("%w: %s: invalid package.json: %v", ErrDependencyNotFound, t.Package, err)
	}

	rel, err := binEntry(manifest.Bin, t.Command)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrDependencyNotFound, t.Package, err)
	}

	entry := filepath.Join(pkgDir, filepath.FromSlash(rel))
	if _, err := os.Stat(entry); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrDependencyNotFound, t.Package, err)
	}

	return entry, nil
}

// binEntry extracts the path for command from a package.json bin field.
func binEntry(raw json.RawMessage, command string) (string, error) {
	if len(raw) == 0 {
		return "", errors.New("package declares no bin entry")
	}

	// String form: a single unnamed entry point
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single, nil
	}

	// Map form: command name to path
	var entries map[string]string
	if err := json.Unmarshal(raw, &entries); err != nil {
		return "", errors.New("unrecognized bin field format")
	}

	if path, ok := entries[command]; ok {
		return path, nil
	}

	// Fall back to any declared entry when the command name is absent
	for _, path := range entries {
		return path, nil
	}

	return "", errors.New("package declares no bin entry")
}
