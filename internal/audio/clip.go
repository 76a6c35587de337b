package audio

import (
	"bytes"
	"encoding/binary"
	"time"
)

// Clip is one finished capture, encoded as a 16-bit PCM WAV file.
type Clip struct {
	ID        string
	Data      []byte
	MIMEType  string
	Filename  string
	StartedAt time.Time
	Duration  time.Duration
	Slices    int
	Device    string
}

// Empty reports whether the clip carries no audio samples.
func (c Clip) Empty() bool {
	return len(c.Data) <= wavHeaderSize
}

const wavHeaderSize = 44

// pcmDuration converts a mono s16 byte count to playback time.
func pcmDuration(n int) time.Duration {
	bytesPerSecond := SampleRate * Channels * 2
	return time.Duration(n) * time.Second / time.Duration(bytesPerSecond)
}

// EncodeWAV prefixes raw little-endian PCM with a minimal WAV header.
func EncodeWAV(pcm []byte, sampleRate int, channels int) []byte {
	if channels <= 0 {
		channels = 1
	}
	const bitsPerSample = 16
	byteRate := sampleRate * channels * (bitsPerSample / 8)
	blockAlign := channels * (bitsPerSample / 8)

	header := make([]byte, wavHeaderSize)
	copy(header[0:4], []byte("RIFF"))
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(pcm)))
	copy(header[8:12], []byte("WAVE"))
	copy(header[12:16], []byte("fmt "))
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], []byte("data"))
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	var buf bytes.Buffer
	buf.Grow(len(header) + len(pcm))
	buf.Write(header)
	buf.Write(pcm)
	return buf.Bytes()
}
