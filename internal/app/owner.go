package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rbright/parley/internal/audio"
	"github.com/rbright/parley/internal/backend"
	"github.com/rbright/parley/internal/cli"
	"github.com/rbright/parley/internal/config"
	"github.com/rbright/parley/internal/host"
	"github.com/rbright/parley/internal/indicator"
	"github.com/rbright/parley/internal/ipc"
	"github.com/rbright/parley/internal/logging"
	"github.com/rbright/parley/internal/playback"
	"github.com/rbright/parley/internal/session"
)

// commandStart becomes the interview owner: it claims the socket, opens a
// session, and serves client commands until the interview ends.
func (r Runner) commandStart(ctx context.Context, parsed cli.Parsed, cfg config.Config, logger *slog.Logger) int {
	rawCategory := cfg.Interview.Category
	if strings.TrimSpace(parsed.Category) != "" {
		rawCategory = parsed.Category
	}
	category, err := session.ParseCategory(rawCategory)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 2
	}

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	listener, err := ipc.Acquire(ctx, socketPath, ipc.AcquireOptions{
		ProbeTimeout: 180 * time.Millisecond,
		Retries:      8,
		OnStale: func(path string) {
			logger.Warn("removed stale owner socket", "socket", path)
		},
	})
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: an interview is already running; use `parley end` first")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	client := backend.NewClient(cfg.API.BaseURL, time.Duration(cfg.API.TimeoutMS)*time.Millisecond)
	client.HealthPath = cfg.API.HealthPath

	sess, err := client.CreateSession(ctx, category)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: could not start the interview: %v\n", err)
		logger.Error("create session failed", "error", err.Error(), "base_url", client.BaseURL)
		return 1
	}

	player := playback.NewManager(playback.PulseSink{AppName: "parley"}, logger)
	notifier := indicator.NewNotifier(cfg.Indicator, player, logger)
	controller := session.NewController(logger, sess, client, client, nil, notifier)

	policy := audio.SelectionPolicy{
		Input:           cfg.Audio.Input,
		Fallback:        cfg.Audio.Fallback,
		VoiceProcessing: cfg.Audio.VoiceProcessing,
	}
	newRecorder := func(onClip func(audio.Clip)) host.Recorder {
		return audio.NewRecorder(policy, logger, onClip)
	}

	opts := host.Options{Autoplay: cfg.Playback.Autoplay}
	if cfg.Debug.EnableAudioDump {
		if stateDir, err := logging.StateDir(); err == nil {
			opts.DumpDir = filepath.Join(stateDir, "debug")
		}
	}
	owner := host.New(logger, controller, newRecorder, player, notifier, r.Stdout, opts)

	fmt.Fprintf(r.Stdout, "interview %s started (%s); run `parley record` to answer\n", sess.ID, sess.Category)
	logger.Info("owner started", "session_id", sess.ID, "category", string(sess.Category), "socket", socketPath)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return ipc.Serve(gctx, listener, owner)
	})
	g.Go(func() error {
		defer cancel()
		return owner.Run(gctx)
	})
	err = g.Wait()
	notifier.Wait()

	if err != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", err)
		return 1
	}
	fmt.Fprintf(r.Stdout, "interview %s ended after %d turns\n", sess.ID, controller.Log().Len())
	return 0
}
