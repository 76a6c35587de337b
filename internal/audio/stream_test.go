package audio

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPulseStreamOnPCMSlicingAndCloseFlushesPending(t *testing.T) {
	stream := &PulseStream{
		slices: make(chan []byte, 8),
		stopCh: make(chan struct{}),
	}

	input := make([]byte, sliceSizeBytes+111)
	for i := range input {
		input[i] = byte(i % 255)
	}

	n, err := stream.onPCM(input)
	require.NoError(t, err)
	require.Equal(t, len(input), n)
	require.Equal(t, int64(len(input)), stream.BytesCaptured())

	first := <-stream.Slices()
	require.Len(t, first, sliceSizeBytes)

	require.NoError(t, stream.Close())

	remaining, ok := <-stream.Slices()
	require.True(t, ok)
	require.Len(t, remaining, 111)

	_, ok = <-stream.Slices()
	require.False(t, ok)

	require.NoError(t, stream.Close())
}

func TestPulseStreamCloseKeepsTailWhenBufferFull(t *testing.T) {
	stream := &PulseStream{
		slices: make(chan []byte, 1),
		stopCh: make(chan struct{}),
	}

	_, err := stream.onPCM(make([]byte, sliceSizeBytes+50))
	require.NoError(t, err)

	closed := make(chan error, 1)
	go func() {
		closed <- stream.Close()
	}()

	var got [][]byte
	for slice := range stream.Slices() {
		got = append(got, slice)
	}
	require.NoError(t, <-closed)
	require.Len(t, got, 2)
	require.Len(t, got[0], sliceSizeBytes)
	require.Len(t, got[1], 50)
}

func TestPulseStreamOnPCMReturnsEOFWhenStopped(t *testing.T) {
	stream := &PulseStream{
		slices: make(chan []byte, 1),
		stopCh: make(chan struct{}),
	}
	close(stream.stopCh)

	n, err := stream.onPCM([]byte{1, 2, 3})
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, int64(0), stream.BytesCaptured())
}

func TestSliceSizeIsOneHundredMilliseconds(t *testing.T) {
	require.Equal(t, 3200, sliceSizeBytes)
	require.Equal(t, SliceDuration, pcmDuration(sliceSizeBytes))
}

func TestWriterFuncDelegatesWrite(t *testing.T) {
	called := false
	writer := writerFunc(func(b []byte) (int, error) {
		called = true
		require.Equal(t, []byte{1, 2, 3}, b)
		return len(b), nil
	})

	n, err := writer.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.True(t, called)
}
