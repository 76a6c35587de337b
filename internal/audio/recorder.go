package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrPermissionDenied means no usable input device could be acquired.
	ErrPermissionDenied = errors.New("microphone access denied")
	// ErrDeviceUnavailable means the input stream could not be opened.
	ErrDeviceUnavailable = errors.New("microphone unavailable")
	// ErrCaptureActive rejects a second concurrent capture.
	ErrCaptureActive = errors.New("capture already active")
	// ErrRecorderClosed rejects captures after Close.
	ErrRecorderClosed = errors.New("recorder closed")
)

// Selector resolves the input device to capture from.
type Selector func(ctx context.Context) (Selection, error)

// Recorder is the capture device adapter: it owns the input device for the
// duration of one capture and hands finished clips to onClip.
type Recorder struct {
	logger       *slog.Logger
	selectDevice Selector
	open         Opener
	onClip       func(Clip)
	tick         time.Duration
	now          func() time.Time

	mu          sync.Mutex
	selection   Selection
	permitted   bool
	starting    bool
	closed      bool
	active      *recording
	openStreams int
}

type recording struct {
	stream    Stream
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	elapsed   atomic.Int64

	mu     sync.Mutex
	slices [][]byte
	bytes  int
}

// NewRecorder builds a Pulse-backed recorder for the given selection policy.
func NewRecorder(policy SelectionPolicy, logger *slog.Logger, onClip func(Clip)) *Recorder {
	return newRecorder(
		func(ctx context.Context) (Selection, error) { return SelectDevice(ctx, policy) },
		OpenPulse,
		onClip,
		logger,
	)
}

func newRecorder(selector Selector, opener Opener, onClip func(Clip), logger *slog.Logger) *Recorder {
	return &Recorder{
		logger:       logger,
		selectDevice: selector,
		open:         opener,
		onClip:       onClip,
		tick:         time.Second,
		now:          time.Now,
	}
}

// AcquirePermission resolves and verifies the input device. Safe to repeat.
func (r *Recorder) AcquirePermission(ctx context.Context) error {
	selection, err := r.selectDevice(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.permitted = false
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}
	r.selection = selection
	r.permitted = true
	if selection.Warning != "" && r.logger != nil {
		r.logger.Warn(selection.Warning)
	}
	return nil
}

// Permitted reports whether AcquirePermission last succeeded.
func (r *Recorder) Permitted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.permitted
}

// Selection returns the device resolved by the last successful AcquirePermission.
func (r *Recorder) Selection() Selection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selection
}

// StartCapture opens the input stream and begins accumulating 100ms slices.
func (r *Recorder) StartCapture(ctx context.Context) error {
	if !r.Permitted() {
		if err := r.AcquirePermission(ctx); err != nil {
			return err
		}
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRecorderClosed
	}
	if r.active != nil || r.starting {
		r.mu.Unlock()
		return ErrCaptureActive
	}
	r.starting = true
	device := r.selection.Device
	r.mu.Unlock()

	captureCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stream, err := r.open(captureCtx, device)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.starting = false
	if err != nil {
		cancel()
		if stream != nil {
			_ = stream.Close()
		}
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	if r.closed {
		// Close ran while the device was opening.
		cancel()
		go func() {
			for range stream.Slices() {
			}
		}()
		_ = stream.Close()
		return ErrRecorderClosed
	}

	rec := &recording{
		stream:    stream,
		startedAt: r.now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	r.openStreams++
	r.active = rec

	go rec.accumulate()
	go rec.count(captureCtx, r.tick)

	if r.logger != nil {
		r.logger.Debug("capture started", "device", DescribeDevice(device))
	}
	return nil
}

// StopCapture finalizes the active capture into a clip, releases the device,
// and delivers the clip to the callback. It is a no-op without an active capture.
func (r *Recorder) StopCapture(ctx context.Context) (Clip, bool, error) {
	rec := r.detach()
	if rec == nil {
		return Clip{}, false, nil
	}

	r.release(rec)
	select {
	case <-rec.done:
	case <-ctx.Done():
		return Clip{}, false, ctx.Err()
	}

	clip := rec.assemble(DescribeDevice(r.Selection().Device))
	if r.logger != nil {
		r.logger.Debug("capture stopped", "clip_id", clip.ID, "duration_ms", clip.Duration.Milliseconds(), "slices", clip.Slices)
	}
	if r.onClip != nil {
		r.onClip(clip)
	}
	return clip, true, nil
}

// Cancel discards the active capture without emitting a clip.
func (r *Recorder) Cancel() bool {
	rec := r.detach()
	if rec == nil {
		return false
	}
	r.release(rec)
	<-rec.done
	return true
}

// Close tears the recorder down, cancelling any in-flight capture. A capture
// still opening its device is closed as soon as the open returns. Later
// captures fail with ErrRecorderClosed.
func (r *Recorder) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.Cancel()
	return nil
}

// Active reports whether a capture is in progress.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Elapsed reports whole seconds recorded by the active capture.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	rec := r.active
	r.mu.Unlock()
	if rec == nil {
		return 0
	}
	return time.Duration(rec.elapsed.Load()) * time.Second
}

// OpenStreams reports device streams that have been opened and not yet closed.
func (r *Recorder) OpenStreams() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openStreams
}

func (r *Recorder) detach() *recording {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.active
	r.active = nil
	return rec
}

// release closes the recording's stream exactly once.
func (r *Recorder) release(rec *recording) {
	rec.closeOnce.Do(func() {
		rec.cancel()
		if err := rec.stream.Close(); err != nil && r.logger != nil {
			r.logger.Warn("close capture stream failed", "error", err.Error())
		}
		r.mu.Lock()
		r.openStreams--
		r.mu.Unlock()
	})
}

func (rec *recording) accumulate() {
	defer close(rec.done)
	for slice := range rec.stream.Slices() {
		if len(slice) == 0 {
			continue
		}
		rec.mu.Lock()
		rec.slices = append(rec.slices, slice)
		rec.bytes += len(slice)
		rec.mu.Unlock()
	}
}

func (rec *recording) count(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rec.elapsed.Add(1)
		}
	}
}

func (rec *recording) assemble(device string) Clip {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	pcm := make([]byte, 0, rec.bytes)
	for _, slice := range rec.slices {
		pcm = append(pcm, slice...)
	}
	count := len(rec.slices)
	rec.slices = nil

	return Clip{
		ID:        uuid.NewString(),
		Data:      EncodeWAV(pcm, SampleRate, Channels),
		MIMEType:  "audio/wav",
		Filename:  "audio.wav",
		StartedAt: rec.startedAt,
		Duration:  pcmDuration(len(pcm)),
		Slices:    count,
		Device:    device,
	}
}
