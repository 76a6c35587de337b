// Package output applies export side effects (clipboard).
package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/atotto/clipboard"

	"github.com/rbright/parley/internal/config"
)

// Copier writes text to the system clipboard through the configured command,
// falling back to the platform clipboard library.
type Copier struct {
	argv     []string
	logger   *slog.Logger
	fallback func(string) error
}

// NewCopier constructs a clipboard writer from the clipboard_cmd setting.
func NewCopier(cmd config.CommandConfig, logger *slog.Logger) *Copier {
	return &Copier{argv: cmd.Argv, logger: logger, fallback: clipboard.WriteAll}
}

// Copy sets the clipboard to text. Empty text is a no-op.
func (c *Copier) Copy(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if len(c.argv) == 0 {
		return c.copyFallback(text, nil)
	}

	cmdCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err := runCommandWithInput(cmdCtx, c.argv, text)
	if err == nil {
		return nil
	}
	if c.logger != nil {
		c.logger.Warn("clipboard command failed; trying fallback", "command", c.argv[0], "error", err.Error())
	}
	return c.copyFallback(text, err)
}

func (c *Copier) copyFallback(text string, cmdErr error) error {
	if c.fallback == nil {
		if cmdErr != nil {
			return fmt.Errorf("set clipboard: %w", cmdErr)
		}
		return errors.New("set clipboard: no clipboard command configured")
	}
	if err := c.fallback(text); err != nil {
		return fmt.Errorf("set clipboard: %w", errors.Join(cmdErr, err))
	}
	return nil
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
