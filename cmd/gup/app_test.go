package main

import (
	"testing"

	"github.com/fatih/color"

	"github.com/0xRaghu/gemini-cli-updater/internal/common/config"
)

func TestApplyColorPreference(t *testing.T) {
	orig := color.NoColor
	defer func() { color.NoColor = orig }()

	tests := []struct {
		name        string
		noColorCfg  bool
		noColorEnv  string
		forceEnv    string
		wantNoColor bool
	}{
		{"config disables color", true, "", "", true},
		{"NO_COLOR disables color", false, "1", "", true},
		{"FORCE_COLOR enables color", false, "", "1", false},
		{"NO_COLOR wins over FORCE_COLOR", false, "1", "1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", tt.noColorEnv)
			t.Setenv("FORCE_COLOR", tt.forceEnv)

			cfg := config.Default()
			cfg.Output.NoColor = tt.noColorCfg

			// Start from the opposite state so the switch has to act
			color.NoColor = !tt.wantNoColor
			applyColorPreference(cfg)

			if color.NoColor != tt.wantNoColor {
				t.Errorf("color.NoColor: got %v, want %v", color.NoColor, tt.wantNoColor)
			}
		})
	}
}
