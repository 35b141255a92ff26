package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// decoded is the raw output of a format decoder: one slice per channel,
// all channels the same length, at the container's native rate.
type decoded struct {
	channels   [][]float32
	sampleRate int
}

// decodeAudio dispatches on the declared mime type, falling back to header
// sniffing when the type is missing or generic.
func decodeAudio(data []byte, mimeType string) (decoded, error) {
	if len(data) == 0 {
		return decoded{}, fmt.Errorf("empty audio payload")
	}

	switch normalizeFormat(data, mimeType) {
	case "wav":
		return decodeWAV(data)
	case "mp3":
		return decodeMP3(data)
	default:
		return decoded{}, fmt.Errorf("unsupported audio format %q", mimeType)
	}
}

func normalizeFormat(data []byte, mimeType string) string {
	mt := strings.ToLower(mimeType)
	switch {
	case strings.Contains(mt, "wav"):
		return "wav"
	case strings.Contains(mt, "mpeg"), strings.Contains(mt, "mp3"):
		return "mp3"
	}

	// Sniff: RIFF header for WAV, frame sync or ID3 tag for MP3
	if len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")) {
		return "wav"
	}
	if len(data) >= 3 && (bytes.Equal(data[0:3], []byte("ID3")) || (data[0] == 0xFF && data[1]&0xE0 == 0xE0)) {
		return "mp3"
	}
	return ""
}

// decodeMP3 decodes an MP3 stream. go-mp3 always emits signed 16-bit
// little-endian stereo PCM.
func decodeMP3(data []byte) (decoded, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return decoded{}, fmt.Errorf("mp3 decoder: %w", err)
	}

	pcm, err := io.ReadAll(dec)
	if err != nil {
		return decoded{}, fmt.Errorf("mp3 read: %w", err)
	}

	numSamples := len(pcm) / 4 // 2 bytes per sample, 2 channels
	left := make([]float32, numSamples)
	right := make([]float32, numSamples)
	for i := 0; i < numSamples; i++ {
		l := int16(binary.LittleEndian.Uint16(pcm[i*4:]))
		r := int16(binary.LittleEndian.Uint16(pcm[i*4+2:]))
		left[i] = float32(l) / 32768.0
		right[i] = float32(r) / 32768.0
	}

	return decoded{channels: [][]float32{left, right}, sampleRate: dec.SampleRate()}, nil
}

// decodeWAV parses a RIFF/WAVE container carrying PCM16 or IEEE float32
// samples.
func decodeWAV(data []byte) (decoded, error) {
	if len(data) < 44 || !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return decoded{}, fmt.Errorf("not a RIFF/WAVE stream")
	}

	var (
		audioFormat   uint16
		numChannels   uint16
		sampleRate    uint32
		bitsPerSample uint16
		pcm           []byte
	)

	// Walk the chunk list; fmt must precede data
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return decoded{}, fmt.Errorf("truncated fmt chunk")
			}
			audioFormat = binary.LittleEndian.Uint16(data[body:])
			numChannels = binary.LittleEndian.Uint16(data[body+2:])
			sampleRate = binary.LittleEndian.Uint32(data[body+4:])
			bitsPerSample = binary.LittleEndian.Uint16(data[body+14:])
		case "data":
			pcm = data[body : body+size]
		}

		// Chunks are word-aligned
		off = body + size
		if size%2 == 1 {
			off++
		}
	}

	if pcm == nil {
		return decoded{}, fmt.Errorf("missing data chunk")
	}
	if numChannels == 0 || sampleRate == 0 {
		return decoded{}, fmt.Errorf("missing fmt chunk")
	}

	ch := int(numChannels)
	channels := make([][]float32, ch)

	switch {
	case audioFormat == 1 && bitsPerSample == 16:
		frames := len(pcm) / (2 * ch)
		for c := range channels {
			channels[c] = make([]float32, frames)
		}
		for i := 0; i < frames; i++ {
			for c := 0; c < ch; c++ {
				v := int16(binary.LittleEndian.Uint16(pcm[(i*ch+c)*2:]))
				channels[c][i] = float32(v) / 32768.0
			}
		}
	case audioFormat == 3 && bitsPerSample == 32:
		frames := len(pcm) / (4 * ch)
		for c := range channels {
			channels[c] = make([]float32, frames)
		}
		for i := 0; i < frames; i++ {
			for c := 0; c < ch; c++ {
				bits := binary.LittleEndian.Uint32(pcm[(i*ch+c)*4:])
				channels[c][i] = math.Float32frombits(bits)
			}
		}
	default:
		return decoded{}, fmt.Errorf("unsupported WAV encoding: format=%d bits=%d", audioFormat, bitsPerSample)
	}

	return decoded{channels: channels, sampleRate: int(sampleRate)}, nil
}

// downmix averages all channels sample-wise into a fresh mono buffer.
// The input channels are left untouched.
func downmix(channels [][]float32) []float32 {
	if len(channels) == 0 {
		return nil
	}
	if len(channels) == 1 {
		out := make([]float32, len(channels[0]))
		copy(out, channels[0])
		return out
	}

	n := len(channels[0])
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		var sum float32
		for _, c := range channels {
			sum += c[i]
		}
		out[i] = sum / float32(len(channels))
	}
	return out
}
