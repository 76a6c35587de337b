package playback

import (
	"context"
	"fmt"

	"github.com/jfreymuth/pulse"
)

// Sink renders PCM to an output device. Play blocks until the audio drained
// or ctx ended.
type Sink interface {
	Play(ctx context.Context, pcm PCM, mediaName string) error
}

// PulseSink plays through the default Pulse/PipeWire output.
type PulseSink struct {
	AppName string
}

// Play opens a dedicated playback stream so concurrent plays mix on the server.
func (s PulseSink) Play(ctx context.Context, pcm PCM, mediaName string) error {
	if pcm.Empty() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	appName := s.AppName
	if appName == "" {
		appName = "parley"
	}
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(appName),
		pulse.ClientApplicationIconName("audio-speakers"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	layout := pulse.PlaybackMono
	if pcm.Channels == 2 {
		layout = pulse.PlaybackStereo
	}

	stream, err := client.NewPlayback(
		int16Source(ctx, pcm.Samples),
		layout,
		pulse.PlaybackSampleRate(pcm.SampleRate),
		pulse.PlaybackLatency(0.05),
		pulse.PlaybackMediaName(mediaName),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play stream: %w", err)
	}
	return ctx.Err()
}

// int16Source feeds samples to Pulse and ends early once ctx is done.
func int16Source(ctx context.Context, samples []int16) pulse.Reader {
	cursor := 0
	return pulse.Int16Reader(func(buf []int16) (int, error) {
		if ctx.Err() != nil || cursor >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})
}
