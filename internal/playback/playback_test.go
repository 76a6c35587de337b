package playback

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/parley/internal/audio"
)

type recordingSink struct {
	mu      sync.Mutex
	played  []PCM
	names   []string
	err     error
	release chan struct{}
}

func (s *recordingSink) Play(ctx context.Context, pcm PCM, mediaName string) error {
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.played = append(s.played, pcm)
	s.names = append(s.names, mediaName)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.played)
}

func wavReference(samples ...byte) string {
	wav := audio.EncodeWAV(samples, audio.SampleRate, audio.Channels)
	return "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(wav)
}

func TestDecodeWAVDataURI(t *testing.T) {
	pcm, err := Decode(wavReference(0x01, 0x00, 0xff, 0xff))
	require.NoError(t, err)
	require.Equal(t, []int16{1, -1}, pcm.Samples)
	require.Equal(t, audio.SampleRate, pcm.SampleRate)
	require.Equal(t, 1, pcm.Channels)
}

func TestDecodeSniffsWAVUnderMP3MediaType(t *testing.T) {
	wav := audio.EncodeWAV([]byte{2, 0}, 8000, 2)
	pcm, err := Decode("data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString(wav))
	require.NoError(t, err)
	require.Equal(t, []int16{2}, pcm.Samples)
	require.Equal(t, 8000, pcm.SampleRate)
	require.Equal(t, 2, pcm.Channels)
}

func TestDecodeRejectsMalformedReferences(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"opaque":       "ref-42",
		"no_payload":   "data:audio/mpeg;base64",
		"bad_base64":   "data:audio/mpeg;base64,!!!",
		"empty_base64": "data:audio/mpeg;base64,",
		"not_mp3":      "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString([]byte("definitely not audio")),
		"bad_wav":      "data:audio/wav;base64," + base64.StdEncoding.EncodeToString([]byte("RIFFxxxxWAVE")),
	}
	for name, ref := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(ref)
			require.Error(t, err)
		})
	}
}

func TestManagerPlaysAsynchronously(t *testing.T) {
	sink := &recordingSink{release: make(chan struct{})}
	mgr := NewManager(sink, nil)

	first := mgr.Play(context.Background(), wavReference(1, 0))
	second := mgr.Play(context.Background(), wavReference(2, 0))
	require.Eventually(t, func() bool { return mgr.Active() == 2 }, time.Second, 5*time.Millisecond)

	close(sink.release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)
	mgr.Wait()

	require.Equal(t, 0, mgr.Active())
	require.Equal(t, 2, sink.count())
	require.Equal(t, "parley interviewer", sink.names[0])
}

func TestManagerMalformedReferenceFails(t *testing.T) {
	sink := &recordingSink{}
	mgr := NewManager(sink, nil)

	err := <-mgr.Play(context.Background(), "data:audio/mpeg;base64,@@@")
	require.ErrorIs(t, err, ErrPlaybackFailed)
	require.Zero(t, sink.count())

	_, open := <-mgr.Play(context.Background(), "nope")
	require.True(t, open)
}

func TestManagerSinkFailureWrapped(t *testing.T) {
	broken := errors.New("no output device")
	mgr := NewManager(&recordingSink{err: broken}, nil)

	err := <-mgr.Play(context.Background(), wavReference(1, 0))
	require.ErrorIs(t, err, ErrPlaybackFailed)
	require.ErrorIs(t, err, broken)
}

func TestManagerPlayStopsWithContext(t *testing.T) {
	mgr := NewManager(&recordingSink{release: make(chan struct{})}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	result := mgr.Play(ctx, wavReference(1, 0))
	cancel()

	err := <-result
	require.ErrorIs(t, err, context.Canceled)
	mgr.Wait()
}

func TestPlayCueUsesMonoCueFormat(t *testing.T) {
	sink := &recordingSink{}
	mgr := NewManager(sink, nil)

	require.NoError(t, mgr.PlayCue(context.Background(), CueComplete))
	require.Equal(t, 1, sink.count())
	require.Equal(t, cueSampleRate, sink.played[0].SampleRate)
	require.Equal(t, 1, sink.played[0].Channels)

	require.Error(t, mgr.PlayCue(context.Background(), Cue(99)))
}

func TestCueSamplesPresent(t *testing.T) {
	for _, cue := range []Cue{CueStart, CueStop, CueComplete, CueCancel} {
		require.NotEmpty(t, cueSamples(cue))
	}
	require.Empty(t, cueSamples(Cue(0)))
}

func TestSynthesizeToneDuration(t *testing.T) {
	got := synthesizeTone(toneSpec{frequencyHz: 440, duration: 100 * time.Millisecond, volume: 0.2})
	require.Len(t, got, samplesForDuration(100*time.Millisecond))
	require.Zero(t, got[0])
	require.Zero(t, got[len(got)-1])
}

func TestSynthesizeToneInvalidSpecReturnsEmpty(t *testing.T) {
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 0, duration: 100 * time.Millisecond, volume: 0.2}))
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 440, duration: 0, volume: 0.2}))
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 440, duration: 100 * time.Millisecond, volume: 0}))
}

func TestSynthesizeCueAddsGap(t *testing.T) {
	one := toneSpec{frequencyHz: 440, duration: 10 * time.Millisecond, volume: 0.2}
	got := synthesizeCue([]toneSpec{one, one})
	require.Len(t, got, 2*samplesForDuration(10*time.Millisecond)+samplesForDuration(22*time.Millisecond))
}
