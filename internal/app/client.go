package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/rbright/parley/internal/backend"
	"github.com/rbright/parley/internal/cli"
	"github.com/rbright/parley/internal/config"
	"github.com/rbright/parley/internal/conversation"
	"github.com/rbright/parley/internal/export"
	"github.com/rbright/parley/internal/ipc"
	"github.com/rbright/parley/internal/output"
	"github.com/rbright/parley/internal/session"
)

const forwardTimeout = 2 * time.Second

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandStatus})
	if !handled {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	state := resp.State
	if state == "" {
		state = "idle"
	}
	if resp.Recording {
		state = fmt.Sprintf("%s, recording %s", state, resp.Elapsed())
	}
	fmt.Fprintln(r.Stdout, state)
	if resp.Session != nil && resp.Session.ID != "" {
		fmt.Fprintf(r.Stdout, "session: %s (%s)\n", resp.Session.ID, resp.Session.Category)
	}
	if resp.Error != "" {
		fmt.Fprintf(r.Stdout, "last error: %s\n", resp.Error)
	}
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, req ipc.Request) int {
	resp, ok := r.forward(ctx, req)
	if !ok {
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// forward sends req to the owner and reports failures on stderr.
func (r Runner) forward(ctx context.Context, req ipc.Request) (ipc.Response, bool) {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return ipc.Response{}, false
	}

	resp, handled, err := tryForward(ctx, socketPath, req)
	if !handled {
		fmt.Fprintln(r.Stderr, "error: no interview running; start one with `parley start`")
		return ipc.Response{}, false
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return ipc.Response{}, false
	}
	return resp, true
}

func (r Runner) commandTranscript(ctx context.Context, role string) int {
	resp, ok := r.forward(ctx, ipc.Request{Command: ipc.CommandTranscript, Role: role})
	if !ok {
		return 1
	}
	if len(resp.Turns) == 0 {
		fmt.Fprintln(r.Stdout, "no turns yet")
		return 0
	}
	for _, turn := range resp.Turns {
		fmt.Fprintf(r.Stdout, "[%d] %s: %s\n", turn.Index, turn.Role, turn.Content)
	}
	return 0
}

func (r Runner) commandExport(ctx context.Context, parsed cli.Parsed, cfg config.Config, logger *slog.Logger) int {
	resp, ok := r.forward(ctx, ipc.Request{Command: ipc.CommandExport})
	if !ok {
		return 1
	}
	if resp.Session == nil || resp.Session.ID == "" {
		fmt.Fprintln(r.Stderr, "error: owner did not report a session")
		return 1
	}

	var doc export.Document
	if parsed.Remote {
		client := backend.NewClient(cfg.API.BaseURL, time.Duration(cfg.API.TimeoutMS)*time.Millisecond)
		data, err := client.Export(ctx, resp.Session.ID)
		if err == nil {
			doc, err = export.Decode(data)
		}
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			logger.Error("remote export failed", "session_id", resp.Session.ID, "error", err.Error())
			return 1
		}
	} else {
		doc = export.Build(sessionFromView(resp.Session), turnsFromViews(resp.Turns))
	}

	format := cfg.Export.Format
	if parsed.Format != "" {
		format = parsed.Format
	}
	data, err := export.Render(doc, format)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 2
	}

	switch {
	case parsed.Clipboard:
		if err := output.NewCopier(cfg.Clipboard, logger).Copy(ctx, string(data)); err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		fmt.Fprintln(r.Stdout, "export copied to clipboard")
	case parsed.Output != "":
		if err := os.WriteFile(parsed.Output, data, 0o644); err != nil {
			fmt.Fprintf(r.Stderr, "error: write export: %v\n", err)
			return 1
		}
		fmt.Fprintf(r.Stdout, "export written to %s\n", parsed.Output)
	default:
		text := string(data)
		if isMarkdown(format) && r.stdoutIsTerminal() {
			if styled, err := export.Style(data); err == nil {
				text = styled
			}
		}
		fmt.Fprint(r.Stdout, text)
	}

	logger.Info("export complete",
		"session_id", doc.SessionInfo.ID,
		"format", format,
		"remote", parsed.Remote,
		"turns", len(doc.Conversation),
	)
	return 0
}

func (r Runner) stdoutIsTerminal() bool {
	f, ok := r.Stdout.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func isMarkdown(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case export.FormatMarkdown, "md":
		return true
	}
	return false
}

func sessionFromView(view *ipc.SessionView) session.Session {
	return session.Session{
		ID:        view.ID,
		Category:  session.Category(view.Category),
		CreatedAt: view.CreatedAt,
	}
}

func turnsFromViews(views []ipc.TurnView) []conversation.Turn {
	turns := make([]conversation.Turn, 0, len(views))
	for _, view := range views {
		turns = append(turns, conversation.Turn{
			Role:      conversation.Role(view.Role),
			Content:   view.Content,
			Timestamp: view.Timestamp,
		})
	}
	return turns
}

func tryForward(ctx context.Context, socketPath string, req ipc.Request) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, forwardTimeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if ipc.OwnerGone(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}
