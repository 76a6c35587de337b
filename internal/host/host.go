// Package host runs the interview owner: it answers IPC commands, drives the
// microphone toggle, and hands recorded clips to the turn controller.
package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rbright/parley/internal/audio"
	"github.com/rbright/parley/internal/conversation"
	"github.com/rbright/parley/internal/session"
)

// Recorder is the capture surface the owner drives.
type Recorder interface {
	StartCapture(ctx context.Context) error
	StopCapture(ctx context.Context) (audio.Clip, bool, error)
	Cancel() bool
	Active() bool
	Elapsed() time.Duration
	Close() error
}

// RecorderFactory builds a recorder that reports finished clips to onClip.
type RecorderFactory func(onClip func(audio.Clip)) Recorder

// Player plays interviewer audio references asynchronously.
type Player interface {
	Play(ctx context.Context, ref string) <-chan error
	Wait()
}

// Indicator is the recording-side notification surface.
type Indicator interface {
	ShowRecording(ctx context.Context)
	ShowError(ctx context.Context, text string)
	CueStop(ctx context.Context)
	CueCancel(ctx context.Context)
	Hide(ctx context.Context)
}

type noopIndicator struct{}

func (noopIndicator) ShowRecording(context.Context)     {}
func (noopIndicator) ShowError(context.Context, string) {}
func (noopIndicator) CueStop(context.Context)           {}
func (noopIndicator) CueCancel(context.Context)         {}
func (noopIndicator) Hide(context.Context)              {}

// Options tunes owner side effects.
type Options struct {
	Autoplay bool
	// DumpDir receives a WAV copy of every clip when non-empty.
	DumpDir string
}

// Host owns one interview for the lifetime of the owner process.
type Host struct {
	logger     *slog.Logger
	controller *session.Controller
	recorder   Recorder
	player     Player
	indicator  Indicator
	opts       Options

	clips    chan audio.Clip
	done     chan struct{}
	endOnce  sync.Once
	lifetime context.Context
	stop     context.CancelFunc

	mu      sync.Mutex
	stopped bool
	tasks   sync.WaitGroup

	outMu sync.Mutex
	out   io.Writer
}

// New wires the owner around controller. out receives each turn as it is appended.
func New(
	logger *slog.Logger,
	controller *session.Controller,
	newRecorder RecorderFactory,
	player Player,
	indicator Indicator,
	out io.Writer,
	opts Options,
) *Host {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if out == nil {
		out = io.Discard
	}
	if indicator == nil {
		indicator = noopIndicator{}
	}
	lifetime, stop := context.WithCancel(context.Background())

	h := &Host{
		logger:     logger,
		controller: controller,
		player:     player,
		indicator:  indicator,
		opts:       opts,
		clips:      make(chan audio.Clip, 1),
		done:       make(chan struct{}),
		lifetime:   lifetime,
		stop:       stop,
		out:        out,
	}
	h.recorder = newRecorder(h.deliver)
	controller.OnTurn(h.turnAppended)
	return h
}

// Done is closed once the interview has been ended.
func (h *Host) Done() <-chan struct{} {
	return h.done
}

// Run requests the opening question and then submits clips until ctx is
// cancelled or the interview is ended. Pending work is drained before return.
func (h *Host) Run(ctx context.Context) error {
	defer h.shutdown()

	h.spawn(h.initialize)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.done:
			return nil
		case clip := <-h.clips:
			h.dump(clip)
			h.spawn(func(ctx context.Context) { h.submit(ctx, clip) })
		}
	}
}

// end closes the interview exactly once.
func (h *Host) end() bool {
	ended := false
	h.endOnce.Do(func() {
		ended = true
		h.recorder.Cancel()
		h.controller.End()
		close(h.done)
	})
	return ended
}

func (h *Host) shutdown() {
	h.end()

	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()

	h.stop()
	if err := h.recorder.Close(); err != nil {
		h.logger.Warn("close recorder failed", "error", err.Error())
	}
	h.tasks.Wait()
	if h.player != nil {
		h.player.Wait()
	}
	h.logger.Info("interview owner stopped", "turns", h.controller.Log().Len())
}

// spawn runs fn on the owner lifetime context unless shutdown has begun.
func (h *Host) spawn(fn func(context.Context)) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return false
	}
	h.tasks.Add(1)
	go func() {
		defer h.tasks.Done()
		fn(h.lifetime)
	}()
	return true
}

func (h *Host) deliver(clip audio.Clip) {
	select {
	case h.clips <- clip:
	case <-h.done:
		h.logger.Info("clip dropped after end", "clip_id", clip.ID)
	}
}

func (h *Host) initialize(ctx context.Context) {
	sess := h.controller.Session()
	h.logger.Info("interview starting", "session_id", sess.ID, "category", string(sess.Category))
	if err := h.controller.Initialize(ctx); err != nil {
		h.logger.Debug("initialize returned", "error", err.Error())
	}
}

func (h *Host) submit(ctx context.Context, clip audio.Clip) {
	err := h.controller.SubmitRecordedClip(ctx, clip)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrNotReady), errors.Is(err, session.ErrClosed):
		h.logger.Info("clip not submitted", "clip_id", clip.ID, "reason", err.Error())
	default:
		h.logger.Debug("submit returned", "clip_id", clip.ID, "error", err.Error())
	}
}

func (h *Host) turnAppended(index int, turn conversation.Turn) {
	h.printTurn(index, turn)
	if turn.Role == conversation.RoleInterviewer && h.opts.Autoplay && turn.HasAudio() {
		h.play(index, turn.AudioReference)
	}
}

func (h *Host) printTurn(index int, turn conversation.Turn) {
	h.outMu.Lock()
	defer h.outMu.Unlock()
	fmt.Fprintf(h.out, "[%d] %s: %s\n", index, turn.Role, turn.Content)
}

// play starts playback of ref and reports failures without blocking the caller.
func (h *Host) play(index int, ref string) bool {
	if h.player == nil {
		return false
	}
	return h.spawn(func(ctx context.Context) {
		err := <-h.player.Play(ctx, ref)
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}
		h.logger.Warn("playback failed", "turn", index, "error", err.Error())
		h.indicator.ShowError(ctx, "Could not play interviewer audio")
	})
}

func (h *Host) dump(clip audio.Clip) {
	if h.opts.DumpDir == "" || clip.Empty() {
		return
	}
	if err := os.MkdirAll(h.opts.DumpDir, 0o700); err != nil {
		h.logger.Warn("unable to create debug audio dump", "error", err.Error())
		return
	}
	path := filepath.Join(h.opts.DumpDir, fmt.Sprintf("%s-%s.wav", clip.StartedAt.Format("20060102-150405"), clip.ID))
	if err := os.WriteFile(path, clip.Data, 0o600); err != nil {
		h.logger.Warn("unable to write debug audio dump", "error", err.Error())
		return
	}
	h.logger.Debug("debug audio dump written", "path", path)
}
