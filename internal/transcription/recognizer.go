package transcription

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/istimaa-app/istimaa/errors"
	"github.com/istimaa-app/istimaa/internal/audio"
	"github.com/istimaa-app/istimaa/internal/domain/entities"
	"github.com/istimaa-app/istimaa/pkg/config"
)

// Recognizer runs long audio through an engine in fixed overlapping
// windows. Windows are sequential; the engine is a single stateful
// resource and must not see two windows at once.
type Recognizer struct {
	engine Engine
	cfg    config.RecognizerConfig
	logger *zap.Logger
}

// NewRecognizer creates a recognizer over the given engine
func NewRecognizer(engine Engine, cfg config.RecognizerConfig, logger *zap.Logger) *Recognizer {
	return &Recognizer{engine: engine, cfg: cfg, logger: logger}
}

// Recognize transcribes the full sample. Progress is the fraction of
// windows completed.
func (r *Recognizer) Recognize(ctx context.Context, sample audio.Sample, onProgress entities.ProgressFunc) (entities.Transcript, error) {
	duration := sample.Duration()
	window := r.cfg.WindowSeconds
	stride := r.cfg.StrideSeconds

	starts := windowStarts(duration, window, stride)

	var segments []entities.TranscriptSegment
	for i, start := range starts {
		if err := ctx.Err(); err != nil {
			return entities.Transcript{}, err
		}

		end := start + window
		if end > duration {
			end = duration
		}

		chunk := audio.Sample{
			Samples:    sample.Slice(start, end),
			SampleRate: sample.SampleRate,
		}

		words, err := r.engine.TranscribeWindow(ctx, chunk, r.cfg.Language)
		if err != nil {
			return entities.Transcript{}, apperrors.ErrRecognitionFailed(err).
				WithDetail("engine", r.engine.Name())
		}

		// Engine timestamps are window-relative
		for j := range words {
			words[j].Start += start
			words[j].End += start
		}

		segments = append(segments, clusterWords(words, r.cfg.GapThreshold)...)

		if onProgress != nil {
			onProgress(entities.ProgressEvent{
				Stage:   "recognize",
				Percent: float64(i+1) / float64(len(starts)) * 100,
			})
		}
	}

	merged := mergeOverlaps(segments)
	for i := range merged {
		merged[i] = collapseRepeats(merged[i], r.cfg.RepeatCollapse)
	}

	return assembleTranscript(merged, r.cfg.Language), nil
}

// windowStarts returns the start offsets of every recognition window. The
// window advances by (window - stride) so adjacent windows share a strip
// of audio.
func windowStarts(duration, window, stride float64) []float64 {
	step := window - stride
	if step <= 0 {
		step = window
	}

	var starts []float64
	for start := 0.0; ; start += step {
		starts = append(starts, start)
		if start+window >= duration {
			break
		}
	}
	return starts
}

// clusterWords groups words into segments, starting a new segment whenever
// the silence between consecutive words exceeds gapThreshold. Segment
// confidence is the running mean of its words.
func clusterWords(words []entities.Word, gapThreshold float64) []entities.TranscriptSegment {
	var segments []entities.TranscriptSegment

	var current *entities.TranscriptSegment
	var confSum float64
	flush := func() {
		if current == nil {
			return
		}
		current.Confidence = confSum / float64(len(current.Words))
		segments = append(segments, *current)
		current = nil
		confSum = 0
	}

	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		w.Text = text

		if current != nil && w.Start-current.End > gapThreshold {
			flush()
		}
		if current == nil {
			current = &entities.TranscriptSegment{Start: w.Start, End: w.End, Text: w.Text}
			current.Words = []entities.Word{w}
			confSum = w.Confidence
			continue
		}

		current.End = w.End
		current.Text += " " + w.Text
		current.Words = append(current.Words, w)
		confSum += w.Confidence
	}
	flush()

	return segments
}

// mergeOverlaps sorts segments by start time and folds any segment that
// starts before the previous one ends into it. Adjacent windows reprocess
// a shared strip of audio; without this pass that strip appears twice.
func mergeOverlaps(segments []entities.TranscriptSegment) []entities.TranscriptSegment {
	if len(segments) == 0 {
		return nil
	}

	sorted := make([]entities.TranscriptSegment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	merged := []entities.TranscriptSegment{sorted[0]}
	for _, seg := range sorted[1:] {
		last := &merged[len(merged)-1]
		if seg.Start >= last.End {
			merged = append(merged, seg)
			continue
		}

		if seg.End > last.End {
			last.End = seg.End
		}
		appendNonDuplicate(last, seg)
	}
	return merged
}

// appendNonDuplicate extends last with the words of seg that are not
// already present in the shared strip. A word is a duplicate when the same
// text occupies a near-identical time span.
func appendNonDuplicate(last *entities.TranscriptSegment, seg entities.TranscriptSegment) {
	const slack = 0.3 // seconds of timestamp tolerance between window passes

	var confSum float64
	for _, w := range last.Words {
		confSum += w.Confidence
	}

	for _, w := range seg.Words {
		dup := false
		for _, existing := range last.Words {
			if existing.Text == w.Text &&
				abs(existing.Start-w.Start) <= slack &&
				abs(existing.End-w.End) <= slack {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		last.Words = append(last.Words, w)
		last.Text += " " + w.Text
		confSum += w.Confidence
	}

	if len(last.Words) > 0 {
		last.Confidence = confSum / float64(len(last.Words))
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// assembleTranscript joins segment texts and computes the aggregate
// confidence as the segment-duration-weighted mean.
func assembleTranscript(segments []entities.TranscriptSegment, language string) entities.Transcript {
	var (
		texts     []string
		confSum   float64
		weightSum float64
	)
	for _, seg := range segments {
		texts = append(texts, seg.Text)
		weight := seg.End - seg.Start
		if weight <= 0 {
			weight = 0.01
		}
		confSum += seg.Confidence * weight
		weightSum += weight
	}

	confidence := 0.0
	if weightSum > 0 {
		confidence = confSum / weightSum
	}

	return entities.Transcript{
		Text:       strings.Join(texts, " "),
		Segments:   segments,
		Language:   language,
		SourceKind: entities.TranscriptSourceRecognizer,
		Confidence: confidence,
	}
}
