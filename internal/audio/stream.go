package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	SampleRate     = 16000
	Channels       = 1
	SliceDuration  = 100 * time.Millisecond
	sliceSizeBytes = SampleRate * Channels * 2 / 10 // 100ms @ 16kHz mono s16
)

// Stream is one open input stream. Close stops the device and closes Slices
// after the residual partial slice has been delivered.
type Stream interface {
	Slices() <-chan []byte
	Close() error
}

// Opener opens an input stream on a selected device.
type Opener func(ctx context.Context, device Device) (Stream, error)

// PulseStream streams fixed-size PCM slices from one Pulse source.
type PulseStream struct {
	device Device

	client *pulse.Client
	stream *pulse.RecordStream

	slices chan []byte
	stopCh chan struct{}

	mu      sync.Mutex
	pending []byte
	stopped bool

	inflight sync.WaitGroup
	bytes    atomic.Int64
}

// OpenPulse creates and starts a 16kHz mono s16 record stream on device.
func OpenPulse(ctx context.Context, device Device) (Stream, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(device.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", device.ID, err)
	}

	s := &PulseStream{
		device: device,
		client: client,
		slices: make(chan []byte, 128),
		stopCh: make(chan struct{}),
	}

	writer := pulse.NewWriter(writerFunc(s.onPCM), pulseproto.FormatInt16LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(sliceSizeBytes),
		pulse.RecordMediaName("parley interview answer"),
	)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}

	s.stream = stream
	stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.stopCh:
		}
	}()

	return s, nil
}

// Device returns the source this stream records from.
func (s *PulseStream) Device() Device {
	return s.device
}

// Slices returns PCM as 100ms byte slices.
func (s *PulseStream) Slices() <-chan []byte {
	return s.slices
}

// BytesCaptured reports total bytes accepted from Pulse.
func (s *PulseStream) BytesCaptured() int64 {
	return s.bytes.Load()
}

// Close halts the stream, flushes residual PCM, and closes Slices exactly once.
// It blocks until the residual slice is received.
func (s *PulseStream) Close() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	close(s.stopCh)
	s.mu.Unlock()

	if s.stream != nil {
		s.stream.Stop()
		s.stream.Close()
	}
	if s.client != nil {
		s.client.Close()
	}

	s.inflight.Wait()

	s.mu.Lock()
	pending := append([]byte(nil), s.pending...)
	s.pending = nil
	s.mu.Unlock()

	// Requires a reader on Slices.
	if len(pending) > 0 {
		s.slices <- pending
	}

	close(s.slices)
	return nil
}

// onPCM receives raw Pulse frames and emits sliceSizeBytes slices.
func (s *PulseStream) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	select {
	case <-s.stopCh:
		return 0, io.EOF
	default:
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return 0, io.EOF
	}
	// Add under the same mutex as stopped so Close never races Wait.
	s.inflight.Add(1)

	s.pending = append(s.pending, buffer...)
	out := make([][]byte, 0, len(s.pending)/sliceSizeBytes)
	for len(s.pending) >= sliceSizeBytes {
		slice := make([]byte, sliceSizeBytes)
		copy(slice, s.pending[:sliceSizeBytes])
		s.pending = s.pending[sliceSizeBytes:]
		out = append(out, slice)
	}
	s.mu.Unlock()
	defer s.inflight.Done()

	s.bytes.Add(int64(len(buffer)))

	for _, slice := range out {
		select {
		case <-s.stopCh:
			return 0, io.EOF
		case s.slices <- slice:
		}
	}

	return len(buffer), nil
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
