package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rbright/parley/internal/session"
)

// ExportFormats lists the renderers accepted by export.format and --format.
var ExportFormats = []string{"json", "yaml", "markdown"}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	base := strings.TrimSpace(cfg.API.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("api.base_url must not be empty")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("api.base_url must be an http(s) URL, got %q", base)
	}
	if parsed.Scheme == "http" && !isLoopbackHost(parsed.Hostname()) {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("api.base_url %q is not encrypted; audio is sent in cleartext", base)})
	}
	if cfg.API.TimeoutMS <= 0 {
		return nil, fmt.Errorf("api.timeout_ms must be > 0")
	}
	if strings.TrimSpace(cfg.API.HealthPath) == "" {
		return nil, fmt.Errorf("api.health_path must not be empty")
	}
	if !strings.HasPrefix(strings.TrimSpace(cfg.API.HealthPath), "/") {
		return nil, fmt.Errorf("api.health_path must start with '/'")
	}
	if _, err := session.ParseCategory(cfg.Interview.Category); err != nil {
		return nil, fmt.Errorf("interview.category: %w", err)
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend == "" {
		return nil, fmt.Errorf("indicator.backend must not be empty")
	}
	if backend != "hypr" && backend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}
	if cfg.Clipboard.Raw != "" && len(cfg.Clipboard.Argv) == 0 {
		return nil, fmt.Errorf("clipboard_cmd is configured but empty")
	}
	if !validExportFormat(cfg.Export.Format) {
		return nil, fmt.Errorf("export.format must be one of: %s", strings.Join(ExportFormats, ", "))
	}

	return warnings, nil
}

func validExportFormat(format string) bool {
	for _, candidate := range ExportFormats {
		if strings.EqualFold(strings.TrimSpace(format), candidate) {
			return true
		}
	}
	return false
}

func isLoopbackHost(host string) bool {
	switch strings.ToLower(host) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}
