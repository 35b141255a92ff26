package audio

import (
	"context"
	"encoding/binary"
	"math"

	"go.uber.org/zap"

	apperrors "github.com/istimaa-app/istimaa/errors"
	"github.com/istimaa-app/istimaa/internal/domain/entities"
	"github.com/istimaa-app/istimaa/pkg/config"
)

// Stage names reported in progress events
const (
	StageDecode   = "decode"
	StageResample = "resample"
)

// Preparer decodes and resamples source audio into the mono format the
// recognizer expects.
type Preparer struct {
	cfg    config.AudioConfig
	logger *zap.Logger
}

// NewPreparer constructs a Preparer
func NewPreparer(cfg config.AudioConfig, logger *zap.Logger) *Preparer {
	return &Preparer{cfg: cfg, logger: logger}
}

// Prepare decodes src's audio payload, averages channels to mono, checks the
// configured duration bounds, and resamples to the target rate. The source's
// byte buffer is never mutated; the returned Sample owns fresh buffers.
func (p *Preparer) Prepare(ctx context.Context, src entities.Source, onProgress entities.ProgressFunc) (Sample, error) {
	emit := func(stage string, pct float64) {
		if onProgress != nil {
			onProgress(entities.ProgressEvent{Stage: stage, Percent: pct})
		}
	}

	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}

	emit(StageDecode, 0)
	dec, err := decodeAudio(src.Data, src.MimeType)
	if err != nil {
		return Sample{}, apperrors.ErrDecodeFailed(src.MimeType, err)
	}
	emit(StageDecode, 100)

	mono := downmix(dec.channels)

	duration := float64(len(mono)) / float64(dec.sampleRate)
	minSec := p.cfg.MinDuration.Seconds()
	maxSec := p.cfg.MaxDuration.Seconds()
	if duration < minSec || duration > maxSec {
		return Sample{}, apperrors.ErrDurationOutOfBounds(duration, minSec, maxSec)
	}

	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}

	emit(StageResample, 0)
	resampled := Resample(mono, dec.sampleRate, p.cfg.TargetSampleRate)
	emit(StageResample, 100)

	if p.logger != nil {
		p.logger.Info("audio prepared",
			zap.Float64("duration_seconds", duration),
			zap.Int("source_rate", dec.sampleRate),
			zap.Int("target_rate", p.cfg.TargetSampleRate),
			zap.Int("channels", len(dec.channels)),
		)
	}

	return Sample{Samples: resampled, SampleRate: p.cfg.TargetSampleRate}, nil
}

// EncodeWAV serializes a sample as 16-bit PCM mono WAV, the format stored
// alongside lessons for playback.
func EncodeWAV(s Sample) []byte {
	dataLen := len(s.Samples) * 2
	buf := make([]byte, 44+dataLen)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataLen))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(s.SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(s.SampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)
	binary.LittleEndian.PutUint16(buf[34:36], 16)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))

	for i, v := range s.Samples {
		clamped := math.Max(-1, math.Min(1, float64(v)))
		binary.LittleEndian.PutUint16(buf[44+i*2:], uint16(int16(clamped*32767)))
	}

	return buf
}
