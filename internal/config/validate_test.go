package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	warnings, err := Validate(Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestValidateRejectsInvalidCoreFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "empty base url", mutate: func(c *Config) { c.API.BaseURL = "" }, wantErr: "api.base_url must not be empty"},
		{name: "base url without scheme", mutate: func(c *Config) { c.API.BaseURL = "localhost:8000" }, wantErr: "http(s) URL"},
		{name: "base url ftp", mutate: func(c *Config) { c.API.BaseURL = "ftp://example.com" }, wantErr: "http(s) URL"},
		{name: "zero timeout", mutate: func(c *Config) { c.API.TimeoutMS = 0 }, wantErr: "api.timeout_ms"},
		{name: "empty health path", mutate: func(c *Config) { c.API.HealthPath = " " }, wantErr: "api.health_path must not be empty"},
		{name: "bad health path", mutate: func(c *Config) { c.API.HealthPath = "health" }, wantErr: "must start"},
		{name: "unknown category", mutate: func(c *Config) { c.Interview.Category = "sales" }, wantErr: "interview.category"},
		{name: "empty indicator backend", mutate: func(c *Config) { c.Indicator.Backend = "" }, wantErr: "indicator.backend must not be empty"},
		{name: "unknown indicator backend", mutate: func(c *Config) { c.Indicator.Backend = "tray" }, wantErr: "hypr, desktop"},
		{name: "desktop without app name", mutate: func(c *Config) {
			c.Indicator.Backend = "desktop"
			c.Indicator.DesktopAppName = ""
		}, wantErr: "desktop_app_name"},
		{name: "negative error timeout", mutate: func(c *Config) { c.Indicator.ErrorTimeoutMS = -1 }, wantErr: "error_timeout"},
		{name: "clipboard raw but empty argv", mutate: func(c *Config) {
			c.Clipboard = CommandConfig{Raw: "   ", Argv: nil}
		}, wantErr: "clipboard_cmd"},
		{name: "unknown export format", mutate: func(c *Config) { c.Export.Format = "pdf" }, wantErr: "export.format"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateWarnsOnRemoteCleartextAPI(t *testing.T) {
	cfg := Default()
	cfg.API.BaseURL = "http://interview.example.com"

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "not encrypted")

	cfg.API.BaseURL = "https://interview.example.com"
	warnings, err = Validate(cfg)
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestValidateAllowsUnsetClipboardCommand(t *testing.T) {
	cfg := Default()
	cfg.Clipboard = CommandConfig{}
	_, err := Validate(cfg)
	require.NoError(t, err)
}
