// Package hypr wraps the hyprctl calls used for on-screen interview status.
package hypr

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Default notification colors.
const (
	ColorBusy  = "rgb(89b4fa)"
	ColorError = "rgb(f38ba8)"
)

// Notify sends a Hyprland notification payload.
func Notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if strings.TrimSpace(color) == "" {
		color = ColorBusy
	}
	return runHyprctl(
		ctx,
		"--quiet",
		"dispatch",
		"notify",
		strconv.Itoa(icon),
		strconv.Itoa(timeoutMS),
		color,
		text,
	)
}

// DismissNotify dismisses active Hyprland notifications.
func DismissNotify(ctx context.Context) error {
	return runHyprctl(ctx, "--quiet", "dispatch", "dismissnotify")
}

// Version reports the running compositor tag, which also proves hyprctl can reach it.
func Version(ctx context.Context) (string, error) {
	output, err := runHyprctlOutput(ctx, "-j", "version")
	if err != nil {
		return "", err
	}
	var payload struct {
		Tag string `json:"tag"`
	}
	if err := json.Unmarshal(output, &payload); err != nil {
		return "", fmt.Errorf("decode hyprctl version json: %w", err)
	}
	tag := strings.TrimSpace(payload.Tag)
	if tag == "" {
		return "", fmt.Errorf("hyprctl version returned no tag")
	}
	return tag, nil
}

func runHyprctl(ctx context.Context, args ...string) error {
	_, err := runHyprctlOutput(ctx, args...)
	return err
}

func runHyprctlOutput(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "hyprctl", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return nil, fmt.Errorf("hyprctl %v failed: %w", args, err)
		}
		return nil, fmt.Errorf("hyprctl %v failed: %w (%s)", args, err, trimmed)
	}
	return out, nil
}
