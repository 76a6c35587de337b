package playback

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/hajimehoshi/go-mp3"
)

// PCM is interleaved signed 16-bit audio ready for a sink.
type PCM struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Empty reports whether there is nothing to play.
func (p PCM) Empty() bool {
	return len(p.Samples) == 0
}

var errUnsupportedReference = errors.New("unsupported audio reference")

// Decode resolves an audio reference into PCM. References are data URIs
// carrying base64 MP3 or 16-bit PCM WAV payloads.
func Decode(ref string) (PCM, error) {
	mediaType, payload, err := parseDataURI(ref)
	if err != nil {
		return PCM{}, err
	}

	switch {
	case bytes.HasPrefix(payload, []byte("RIFF")):
		return decodeWAV(payload)
	case mediaType == "audio/wav", mediaType == "audio/x-wav", mediaType == "audio/wave":
		return decodeWAV(payload)
	default:
		return decodeMP3(payload)
	}
}

func parseDataURI(ref string) (string, []byte, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil, fmt.Errorf("%w: empty", errUnsupportedReference)
	}
	rest, ok := strings.CutPrefix(ref, "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: want a data: URI", errUnsupportedReference)
	}
	header, data, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: data URI has no payload", errUnsupportedReference)
	}

	params := strings.Split(header, ";")
	mediaType := strings.ToLower(strings.TrimSpace(params[0]))
	encoded := false
	for _, param := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(param), "base64") {
			encoded = true
		}
	}

	if !encoded {
		unescaped, err := url.PathUnescape(data)
		if err != nil {
			return "", nil, fmt.Errorf("decode data URI: %w", err)
		}
		return mediaType, []byte(unescaped), nil
	}

	payload, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", nil, fmt.Errorf("decode base64 audio: %w", err)
	}
	if len(payload) == 0 {
		return "", nil, fmt.Errorf("%w: empty payload", errUnsupportedReference)
	}
	return mediaType, payload, nil
}

// decodeMP3 expands an MP3 stream. go-mp3 always yields 16-bit stereo.
func decodeMP3(payload []byte) (PCM, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(payload))
	if err != nil {
		return PCM{}, fmt.Errorf("decode mp3: %w", err)
	}
	raw, err := io.ReadAll(decoder)
	if err != nil {
		return PCM{}, fmt.Errorf("decode mp3: %w", err)
	}
	if len(raw) < 4 {
		return PCM{}, fmt.Errorf("decode mp3: no audio frames")
	}
	return PCM{
		Samples:    bytesToInt16(raw),
		SampleRate: decoder.SampleRate(),
		Channels:   2,
	}, nil
}

func decodeWAV(payload []byte) (PCM, error) {
	if len(payload) < 12 || string(payload[0:4]) != "RIFF" || string(payload[8:12]) != "WAVE" {
		return PCM{}, fmt.Errorf("decode wav: missing RIFF/WAVE header")
	}

	var (
		format        uint16
		channels      int
		sampleRate    int
		bitsPerSample uint16
		haveFormat    bool
	)
	offset := 12
	for offset+8 <= len(payload) {
		id := string(payload[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(payload[offset+4 : offset+8]))
		body := offset + 8
		if size < 0 || body+size > len(payload) {
			size = len(payload) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return PCM{}, fmt.Errorf("decode wav: short fmt chunk")
			}
			format = binary.LittleEndian.Uint16(payload[body : body+2])
			channels = int(binary.LittleEndian.Uint16(payload[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(payload[body+4 : body+8]))
			bitsPerSample = binary.LittleEndian.Uint16(payload[body+14 : body+16])
			haveFormat = true
		case "data":
			if !haveFormat {
				return PCM{}, fmt.Errorf("decode wav: data before fmt chunk")
			}
			if format != 1 || bitsPerSample != 16 {
				return PCM{}, fmt.Errorf("decode wav: unsupported encoding (format=%d bits=%d)", format, bitsPerSample)
			}
			if channels <= 0 || sampleRate <= 0 {
				return PCM{}, fmt.Errorf("decode wav: invalid format (channels=%d rate=%d)", channels, sampleRate)
			}
			return PCM{
				Samples:    bytesToInt16(payload[body : body+size]),
				SampleRate: sampleRate,
				Channels:   channels,
			}, nil
		}

		offset = body + size + size%2
	}
	return PCM{}, fmt.Errorf("decode wav: missing data chunk")
}

func bytesToInt16(raw []byte) []int16 {
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return samples
}
