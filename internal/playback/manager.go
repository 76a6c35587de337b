// Package playback decodes interviewer audio references and renders them, plus short indicator cues.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrPlaybackFailed marks an audio reference that could not be decoded or rendered.
var ErrPlaybackFailed = errors.New("playback failed")

// Manager starts asynchronous plays. Overlapping plays are allowed.
type Manager struct {
	sink   Sink
	logger *slog.Logger
	decode func(string) (PCM, error)

	wg     sync.WaitGroup
	active atomic.Int32
}

// NewManager builds a manager over sink. A nil sink plays through Pulse.
func NewManager(sink Sink, logger *slog.Logger) *Manager {
	if sink == nil {
		sink = PulseSink{}
	}
	return &Manager{sink: sink, logger: logger, decode: Decode}
}

// Play decodes ref and renders it in the background. The returned channel
// yields exactly one result and is then closed.
func (m *Manager) Play(ctx context.Context, ref string) <-chan error {
	done := make(chan error, 1)
	m.wg.Add(1)
	m.active.Add(1)

	go func() {
		defer m.wg.Done()
		defer m.active.Add(-1)
		defer close(done)

		err := m.play(ctx, ref)
		if err != nil && m.logger != nil {
			m.logger.Warn("playback failed", "error", err.Error())
		}
		done <- err
	}()
	return done
}

func (m *Manager) play(ctx context.Context, ref string) error {
	pcm, err := m.decode(ref)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPlaybackFailed, err)
	}
	if err := m.sink.Play(ctx, pcm, "parley interviewer"); err != nil {
		return fmt.Errorf("%w: %w", ErrPlaybackFailed, err)
	}
	return nil
}

// Active reports plays that have started and not yet finished.
func (m *Manager) Active() int {
	return int(m.active.Load())
}

// Wait blocks until every started play has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// PlayCue renders a synthesized indicator cue and blocks until it ends.
func (m *Manager) PlayCue(ctx context.Context, cue Cue) error {
	samples := cueSamples(cue)
	if len(samples) == 0 {
		return fmt.Errorf("unknown cue %d", cue)
	}
	return m.sink.Play(ctx, PCM{Samples: samples, SampleRate: cueSampleRate, Channels: 1}, "parley indicator cue")
}
