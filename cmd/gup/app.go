package main

import (
	"fmt"
	"os"

	"github.com/0xRaghu/gemini-cli-updater/internal/common/config"
	"github.com/0xRaghu/gemini-cli-updater/internal/common/logger"
	"github.com/0xRaghu/gemini-cli-updater/internal/common/output"
	"github.com/0xRaghu/gemini-cli-updater/internal/npm"
	"github.com/0xRaghu/gemini-cli-updater/internal/registry"
	"github.com/0xRaghu/gemini-cli-updater/internal/state"
	"github.com/0xRaghu/gemini-cli-updater/internal/tool"
	"github.com/0xRaghu/gemini-cli-updater/internal/update"
)

// app bundles the wired components shared by every command: the app config,
// the selected tool, the state store, and the npm manager. The store handle
// is opened once per invocation and flushed on Close.
type app struct {
	cfg   *config.Config
	tool  tool.Tool
	store *state.Store
	npm   *npm.Manager
}

// newApp loads configuration and opens the state store. An empty toolName
// selects the configured default tool.
func newApp(toolName string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	applyColorPreference(cfg)

	configDir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}

	tools, err := tool.Load(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading tool definitions: %w", err)
	}

	if toolName == "" {
		toolName = cfg.DefaultTool
	}
	if toolName == "" {
		toolName = tool.DefaultName
	}

	t, err := tools.Lookup(toolName)
	if err != nil {
		return nil, err
	}

	store, err := state.NewStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}

	if store.Settings().EnableLogging {
		if err := logger.Default().EnableFileLogging(); err != nil {
			logger.Warn("file logging unavailable: %v", err)
		}
	}

	return &app{
		cfg:   cfg,
		tool:  t,
		store: store,
		npm:   npm.NewManager(cfg.Npm.Binary),
	}, nil
}

// applyColorPreference resolves the color mode from config and environment.
// FORCE_COLOR wins over terminal detection; NO_COLOR and the config toggle
// win over everything.
func applyColorPreference(cfg *config.Config) {
	switch {
	case cfg.Output.NoColor || os.Getenv("NO_COLOR") != "":
		output.NoColor()
	case os.Getenv("FORCE_COLOR") != "":
		output.ForceColor()
	case !output.IsTerminal():
		output.NoColor()
	}
}

// Close releases resources held for the invocation.
func (a *app) Close() {
	logger.Default().Close()
}

// Updater builds the decision core with a no-retry registry client, suited
// to the passthrough flow where a failed check must degrade quickly.
func (a *app) Updater() *update.Updater {
	client := registry.NewClient(a.cfg.Registry.URL)
	return update.NewUpdater(a.tool, a.store, client, a.npm)
}

// RetryingUpdater builds the decision core with registry retries enabled,
// suited to explicit user-requested operations.
func (a *app) RetryingUpdater() *update.Updater {
	client := registry.NewClient(a.cfg.Registry.URL,
		registry.WithHTTPClient(registry.NewRetryableHTTPClient(registry.DefaultRetryConfig())))
	return update.NewUpdater(a.tool, a.store, client, a.npm)
}
