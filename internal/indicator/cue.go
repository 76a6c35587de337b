package indicator

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rbright/parley/internal/config"
	"github.com/rbright/parley/internal/playback"
)

// emitCue prefers a configured cue file and falls back to the synthesized tone.
func emitCue(ctx context.Context, cue playback.Cue, cfg config.IndicatorConfig, player CuePlayer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path := cuePath(cue, cfg); path != "" {
		if err := playCueFile(ctx, path); err == nil {
			return nil
		}
	}
	if player == nil {
		return nil
	}
	return player.PlayCue(ctx, cue)
}

func cuePath(cue playback.Cue, cfg config.IndicatorConfig) string {
	var raw string
	switch cue {
	case playback.CueStart:
		raw = cfg.SoundStartFile
	case playback.CueStop:
		raw = cfg.SoundStopFile
	case playback.CueComplete:
		raw = cfg.SoundCompleteFile
	case playback.CueCancel:
		raw = cfg.SoundCancelFile
	default:
		return ""
	}
	return expandUserPath(raw)
}

func expandUserPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if raw != "~" && !strings.HasPrefix(raw, "~/") {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return raw
	}
	return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(raw, "~"), "/"))
}

func playCueFile(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stat cue file %q: %w", path, err)
	}

	cmd := exec.CommandContext(ctx, "pw-play", "--media-role", "Notification", path)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("play cue file %q: %w", path, err)
	}
	return nil
}
