package audio

import (
	"context"
	"encoding/binary"
	"math"
	"testing"
	"time"

	apperrors "github.com/istimaa-app/istimaa/errors"
	"github.com/istimaa-app/istimaa/internal/domain/entities"
	"github.com/istimaa-app/istimaa/pkg/config"
)

func testAudioConfig() config.AudioConfig {
	return config.AudioConfig{
		TargetSampleRate: 16000,
		MinDuration:      1 * time.Second,
		MaxDuration:      10 * time.Minute,
	}
}

// makeWAV builds a PCM16 WAV with the given per-channel sample data
func makeWAV(t *testing.T, sampleRate int, channels [][]float32) []byte {
	t.Helper()
	frames := len(channels[0])
	ch := len(channels)
	dataLen := frames * ch * 2

	buf := make([]byte, 44+dataLen)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataLen))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(ch))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*ch*2))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(ch*2))
	binary.LittleEndian.PutUint16(buf[34:36], 16)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))

	for i := 0; i < frames; i++ {
		for c := 0; c < ch; c++ {
			v := int16(channels[c][i] * 32767)
			binary.LittleEndian.PutUint16(buf[44+(i*ch+c)*2:], uint16(v))
		}
	}
	return buf
}

func sine(freq float64, sampleRate int, seconds float64) []float32 {
	n := int(seconds * float64(sampleRate))
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return out
}

func TestPrepare_MonoWAV(t *testing.T) {
	wav := makeWAV(t, 44100, [][]float32{sine(440, 44100, 5)})
	src := entities.NewUploadSource("tone.wav", "audio/wav", wav)

	p := NewPreparer(testAudioConfig(), nil)
	sample, err := p.Prepare(context.Background(), src, nil)
	if err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
	if sample.SampleRate != 16000 {
		t.Fatalf("expected 16kHz got %d", sample.SampleRate)
	}
	if d := sample.Duration(); math.Abs(d-5) > 0.01 {
		t.Fatalf("expected ~5s duration got %.3f", d)
	}
}

func TestPrepare_StereoDownmix(t *testing.T) {
	// Opposite-phase channels cancel to silence when averaged
	left := sine(440, 8000, 2)
	right := make([]float32, len(left))
	for i := range left {
		right[i] = -left[i]
	}
	wav := makeWAV(t, 8000, [][]float32{left, right})
	src := entities.NewUploadSource("stereo.wav", "audio/wav", wav)

	p := NewPreparer(testAudioConfig(), nil)
	sample, err := p.Prepare(context.Background(), src, nil)
	if err != nil {
		t.Fatalf("prepare failed: %v", err)
	}

	var peak float32
	for _, v := range sample.Samples {
		if v > peak {
			peak = v
		}
	}
	if peak > 0.01 {
		t.Fatalf("expected near-silence after downmix, peak=%.4f", peak)
	}
}

func TestPrepare_DurationBounds(t *testing.T) {
	wav := makeWAV(t, 16000, [][]float32{sine(440, 16000, 0.2)})
	src := entities.NewUploadSource("short.wav", "audio/wav", wav)

	p := NewPreparer(testAudioConfig(), nil)
	_, err := p.Prepare(context.Background(), src, nil)
	if err == nil {
		t.Fatal("expected duration error")
	}
	if !apperrors.IsCode(err, apperrors.ErrorCode_AUDIO_DURATION) {
		t.Fatalf("expected AUDIO_DURATION error, got %v", err)
	}
}

func TestPrepare_MalformedInput(t *testing.T) {
	src := entities.NewUploadSource("junk.wav", "audio/wav", []byte("definitely not audio"))

	p := NewPreparer(testAudioConfig(), nil)
	_, err := p.Prepare(context.Background(), src, nil)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if !apperrors.IsCode(err, apperrors.ErrorCode_AUDIO_DECODE) {
		t.Fatalf("expected AUDIO_DECODE error, got %v", err)
	}
}

func TestPrepare_ProgressMonotone(t *testing.T) {
	wav := makeWAV(t, 22050, [][]float32{sine(440, 22050, 3)})
	src := entities.NewUploadSource("tone.wav", "audio/wav", wav)

	last := map[string]float64{}
	p := NewPreparer(testAudioConfig(), nil)
	_, err := p.Prepare(context.Background(), src, func(ev entities.ProgressEvent) {
		if prev, ok := last[ev.Stage]; ok && ev.Percent < prev {
			t.Fatalf("progress went backwards in stage %s: %.0f -> %.0f", ev.Stage, prev, ev.Percent)
		}
		last[ev.Stage] = ev.Percent
	})
	if err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
	if _, ok := last[StageDecode]; !ok {
		t.Fatal("no decode progress reported")
	}
	if _, ok := last[StageResample]; !ok {
		t.Fatal("no resample progress reported")
	}
}

func TestPrepare_DoesNotMutateSourceBuffer(t *testing.T) {
	wav := makeWAV(t, 16000, [][]float32{sine(440, 16000, 2)})
	orig := make([]byte, len(wav))
	copy(orig, wav)

	src := entities.NewUploadSource("tone.wav", "audio/wav", wav)
	p := NewPreparer(testAudioConfig(), nil)
	if _, err := p.Prepare(context.Background(), src, nil); err != nil {
		t.Fatalf("prepare failed: %v", err)
	}

	for i := range wav {
		if wav[i] != orig[i] {
			t.Fatalf("source buffer mutated at byte %d", i)
		}
	}
}

func TestResample_LengthAndDC(t *testing.T) {
	// A constant signal must survive resampling at the same level
	in := make([]float32, 44100)
	for i := range in {
		in[i] = 0.25
	}

	out := Resample(in, 44100, 16000)
	wantLen := int(float64(len(in)) * 16000.0 / 44100.0)
	if len(out) != wantLen {
		t.Fatalf("expected %d output samples got %d", wantLen, len(out))
	}
	for i := 100; i < len(out)-100; i++ {
		if math.Abs(float64(out[i])-0.25) > 0.001 {
			t.Fatalf("DC level not preserved at %d: %.4f", i, out[i])
		}
	}
}

func TestResample_SameRateReturnsCopy(t *testing.T) {
	in := []float32{1, 2, 3}
	out := Resample(in, 16000, 16000)
	out[0] = 99
	if in[0] != 1 {
		t.Fatal("resample aliased the input buffer")
	}
}

func TestEncodeWAV_RoundTrip(t *testing.T) {
	s := Sample{Samples: sine(440, 16000, 1), SampleRate: 16000}
	wav := EncodeWAV(s)

	dec, err := decodeWAV(wav)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if dec.sampleRate != 16000 || len(dec.channels) != 1 {
		t.Fatalf("unexpected decode result: rate=%d channels=%d", dec.sampleRate, len(dec.channels))
	}
	if len(dec.channels[0]) != len(s.Samples) {
		t.Fatalf("sample count mismatch: %d vs %d", len(dec.channels[0]), len(s.Samples))
	}
}
