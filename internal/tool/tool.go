// Package tool provides wrapped-tool definitions for gup.
//
// A tool definition names the npm package that publishes a CLI, the command
// the package installs, and how to query its version. The built-in default
// covers the Gemini CLI; additional tools can be declared in
// ~/.config/gup/tools.toml:
//
//	[tools.gemini]
//	package = "@google/gemini-cli"
//	command = "gemini"
//	version_args = ["--version"]
package tool

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Error variables for tool configuration errors
var (
	// ErrToolNotFound is returned when a tool name is not defined
	ErrToolNotFound = errors.New("tool not defined")
	// ErrMissingPackage is returned when a tool definition is missing the required package field
	ErrMissingPackage = errors.New("missing required field: package")
	// ErrMissingCommand is returned when a tool definition is missing the required command field
	ErrMissingCommand = errors.New("missing required field: command")
)

// DefaultName is the tool gup wraps when none is configured
const DefaultName = "gemini"

// Tool describes one wrapped CLI tool.
type Tool struct {
	// Name is the short name the tool is registered under
	Name string `toml:"-"`
	// Package is the npm package that publishes the tool
	Package string `toml:"package"`
	// Command is the executable name the package installs
	Command string `toml:"command"`
	// VersionArgs are the arguments that make the tool print its version
	VersionArgs []string `toml:"version_args,omitempty"`
}

// Registry holds all known tool definitions, keyed by short name.
type Registry struct {
	Tools map[string]Tool `toml:"tools"`
}

// Builtin returns the tool definitions gup ships with.
func Builtin() *Registry {
	return &Registry{
		Tools: map[string]Tool{
			DefaultName: {
				Name:        DefaultName,
				Package:     "@google/gemini-cli",
				Command:     "gemini",
				VersionArgs: []string{"--version"},
			},
		},
	}
}

// Load reads tool definitions from tools.toml in the given config directory,
// merged over the built-in definitions. A missing file yields the built-ins
// without error.
func Load(configDir string) (*Registry, error) {
	reg := Builtin()

	path := filepath.Join(configDir, "tools.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return reg, nil
		}
		return nil, fmt.Errorf("failed to read tools.toml: %w", err)
	}

	var file Registry
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse tools.toml: %w", err)
	}

	for name, t := range file.Tools {
		t.Name = name
		if err := Validate(name, &t); err != nil {
			return nil, err
		}
		reg.Tools[name] = t
	}

	return reg, nil
}

// Validate checks a single tool definition for required fields.
func Validate(name string, t *Tool) error {
	if t.Package == "" {
		return fmt.Errorf("tool %s: %w", name, ErrMissingPackage)
	}
	if t.Command == "" {
		return fmt.Errorf("tool %s: %w", name, ErrMissingCommand)
	}
	return nil
}

// Lookup returns the definition for the named tool.
func (r *Registry) Lookup(name string) (Tool, error) {
	t, ok := r.Tools[name]
	if !ok {
		return Tool{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	t.Name = name
	if len(t.VersionArgs) == 0 {
		t.VersionArgs = []string{"--version"}
	}
	return t, nil
}
