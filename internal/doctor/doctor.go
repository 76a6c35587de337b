// Package doctor runs readiness diagnostics for config, backend, audio, and desktop tools.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/parley/internal/audio"
	"github.com/rbright/parley/internal/backend"
	"github.com/rbright/parley/internal/config"
	"github.com/rbright/parley/internal/hypr"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", status, check.Name, check.Message)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment, config, and backend checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{configCheck(cfg)}

	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "runtime dir available for the owner socket", "XDG_RUNTIME_DIR is empty"))

	checks = append(checks, checkAPIReady(ctx, cfg.Config.API))
	checks = append(checks, checkAudioSelection(ctx, cfg.Config.Audio))

	if cfg.Config.Indicator.Enable {
		if strings.EqualFold(strings.TrimSpace(cfg.Config.Indicator.Backend), "desktop") {
			checks = append(checks, checkBinary("busctl", "desktop notifications"))
		} else {
			checks = append(checks, checkHyprland(ctx))
		}
	}

	if len(cfg.Config.Clipboard.Argv) > 0 {
		checks = append(checks, checkCommand(cfg.Config.Clipboard.Argv, "clipboard_cmd"))
	}

	return Report{Checks: checks}
}

func configCheck(cfg config.Loaded) Check {
	message := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		message = fmt.Sprintf("using defaults (%q not found)", cfg.Path)
	}
	if cfg.EnvFile != "" {
		message += fmt.Sprintf(", env from %q", cfg.EnvFile)
	}
	return Check{Name: "config", Pass: true, Message: message}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkHyprland asks the compositor for its version through hyprctl.
func checkHyprland(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	tag, err := hypr.Version(ctx)
	if err != nil {
		return Check{Name: "hyprctl", Pass: false, Message: err.Error()}
	}
	return Check{Name: "hyprctl", Pass: true, Message: fmt.Sprintf("Hyprland %s", tag)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.AudioConfig) Check {
	selection, err := audio.SelectDevice(ctx, audio.SelectionPolicy{
		Input:           cfg.Input,
		Fallback:        cfg.Fallback,
		VoiceProcessing: cfg.VoiceProcessing,
	})
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %s", audio.DescribeDevice(selection.Device))
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkAPIReady probes the interview API health endpoint.
func checkAPIReady(ctx context.Context, cfg config.APIConfig) Check {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return Check{Name: "api.ready", Pass: false, Message: "api.base_url is empty"}
	}

	client := backend.NewClient(base, 2*time.Second)
	client.HealthPath = cfg.HealthPath
	message, err := client.Health(ctx)
	if err != nil {
		return Check{Name: "api.ready", Pass: false, Message: err.Error()}
	}
	if message == "" {
		return Check{Name: "api.ready", Pass: true, Message: fmt.Sprintf("reachable at %s", base)}
	}
	return Check{Name: "api.ready", Pass: true, Message: fmt.Sprintf("%s (%s)", message, base)}
}
