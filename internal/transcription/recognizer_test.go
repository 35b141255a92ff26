package transcription

import (
	"context"
	"fmt"
	"testing"

	"github.com/istimaa-app/istimaa/internal/audio"
	"github.com/istimaa-app/istimaa/internal/domain/entities"
	"github.com/istimaa-app/istimaa/pkg/config"
)

func testRecognizerConfig() config.RecognizerConfig {
	return config.RecognizerConfig{
		WindowSeconds:  30,
		StrideSeconds:  5,
		GapThreshold:   0.5,
		RepeatCollapse: 3,
		Language:       "ar",
	}
}

// gridEngine emits one word per whole second of every window, named after
// its absolute position, so overlap handling is fully deterministic.
type gridEngine struct {
	windowStarts []float64
	calls        int
}

func (g *gridEngine) Name() string { return "grid" }

func (g *gridEngine) TranscribeWindow(_ context.Context, window audio.Sample, _ string) ([]entities.Word, error) {
	start := g.windowStarts[g.calls]
	g.calls++

	var words []entities.Word
	for t := 0.0; t < window.Duration(); t++ {
		words = append(words, entities.Word{
			Text:       fmt.Sprintf("w%d", int(start+t)),
			Start:      t,
			End:        t + 0.8,
			Confidence: 0.9,
		})
	}
	return words, nil
}

func silentSample(seconds float64, rate int) audio.Sample {
	return audio.Sample{
		Samples:    make([]float32, int(seconds*float64(rate))),
		SampleRate: rate,
	}
}

func TestWindowStarts_65sClipProducesThreeWindows(t *testing.T) {
	starts := windowStarts(65, 30, 5)
	want := []float64{0, 25, 50}
	if len(starts) != len(want) {
		t.Fatalf("expected %d windows, got %v", len(want), starts)
	}
	for i := range want {
		if starts[i] != want[i] {
			t.Fatalf("window %d: expected start %v, got %v", i, want[i], starts[i])
		}
	}
}

func TestWindowStarts_ShortClipSingleWindow(t *testing.T) {
	if starts := windowStarts(12, 30, 5); len(starts) != 1 || starts[0] != 0 {
		t.Fatalf("expected one window at 0, got %v", starts)
	}
}

func TestRecognize_OverlapMergeProducesOrderedNonOverlappingSegments(t *testing.T) {
	engine := &gridEngine{windowStarts: []float64{0, 25, 50}}
	rec := NewRecognizer(engine, testRecognizerConfig(), nil)

	transcript, err := rec.Recognize(context.Background(), silentSample(65, 1000), nil)
	if err != nil {
		t.Fatalf("recognize failed: %v", err)
	}
	if engine.calls != 3 {
		t.Fatalf("expected 3 windows processed, got %d", engine.calls)
	}

	segs := transcript.Segments
	if len(segs) == 0 {
		t.Fatal("expected segments")
	}
	for i := 1; i < len(segs); i++ {
		if segs[i].Start < segs[i-1].End {
			t.Fatalf("segments overlap: %v then %v", segs[i-1], segs[i])
		}
		if segs[i].Start < segs[i-1].Start {
			t.Fatalf("segments out of order: %v then %v", segs[i-1], segs[i])
		}
	}

	// The word grid is continuous, so the merged list must span the clip
	// with no invented gaps.
	if segs[0].Start != 0 {
		t.Fatalf("expected coverage from 0, got %v", segs[0].Start)
	}
	if last := segs[len(segs)-1].End; last < 64 || last > 65 {
		t.Fatalf("expected coverage to clip end, got %v", last)
	}

	// The overlap strips must not duplicate words
	seen := make(map[string]int)
	total := 0
	for _, seg := range segs {
		for _, w := range seg.Words {
			seen[w.Text]++
			total++
		}
	}
	if total != 65 {
		t.Fatalf("expected 65 unique words, got %d", total)
	}
	for text, n := range seen {
		if n != 1 {
			t.Fatalf("word %s appears %d times after merge", text, n)
		}
	}
}

func TestRecognize_TimestampsOffsetByWindowStart(t *testing.T) {
	engine := &gridEngine{windowStarts: []float64{0, 25, 50}}
	rec := NewRecognizer(engine, testRecognizerConfig(), nil)

	transcript, err := rec.Recognize(context.Background(), silentSample(65, 1000), nil)
	if err != nil {
		t.Fatalf("recognize failed: %v", err)
	}

	for _, seg := range transcript.Segments {
		for _, w := range seg.Words {
			var abs int
			if _, err := fmt.Sscanf(w.Text, "w%d", &abs); err != nil {
				t.Fatalf("unexpected word %q", w.Text)
			}
			if w.Start != float64(abs) {
				t.Fatalf("word %s has start %v, want %v", w.Text, w.Start, float64(abs))
			}
		}
	}
}

func TestRecognize_ProgressPerWindow(t *testing.T) {
	engine := &gridEngine{windowStarts: []float64{0, 25, 50}}
	rec := NewRecognizer(engine, testRecognizerConfig(), nil)

	var percents []float64
	_, err := rec.Recognize(context.Background(), silentSample(65, 1000), func(ev entities.ProgressEvent) {
		percents = append(percents, ev.Percent)
	})
	if err != nil {
		t.Fatalf("recognize failed: %v", err)
	}
	if len(percents) != 3 {
		t.Fatalf("expected 3 progress events, got %v", percents)
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] <= percents[i-1] {
			t.Fatalf("progress not increasing: %v", percents)
		}
	}
	if percents[len(percents)-1] != 100 {
		t.Fatalf("final progress must be 100, got %v", percents)
	}
}

func TestRecognize_CancelledBetweenWindows(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := &gridEngine{windowStarts: []float64{0, 25, 50}}
	rec := NewRecognizer(engine, testRecognizerConfig(), nil)

	if _, err := rec.Recognize(ctx, silentSample(65, 1000), nil); err == nil {
		t.Fatal("expected cancellation error")
	}
	if engine.calls != 0 {
		t.Fatalf("no window should run after cancellation, got %d calls", engine.calls)
	}
}

func TestClusterWords_GapStartsNewSegment(t *testing.T) {
	words := []entities.Word{
		{Text: "مرحبا", Start: 0, End: 0.4, Confidence: 0.9},
		{Text: "بكم", Start: 0.5, End: 0.9, Confidence: 0.7},
		// 1.1s gap, above the 0.5s threshold
		{Text: "اليوم", Start: 2.0, End: 2.4, Confidence: 0.8},
	}

	segs := clusterWords(words, 0.5)
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if segs[0].Text != "مرحبا بكم" {
		t.Fatalf("unexpected first segment %q", segs[0].Text)
	}
	if got := segs[0].Confidence; got < 0.79 || got > 0.81 {
		t.Fatalf("segment confidence must be the word mean, got %v", got)
	}
	if segs[1].Start != 2.0 {
		t.Fatalf("second segment must start at the gapped word, got %v", segs[1].Start)
	}
}

func TestClusterWords_SmallGapsStayTogether(t *testing.T) {
	words := []entities.Word{
		{Text: "a", Start: 0, End: 0.4, Confidence: 1},
		{Text: "b", Start: 0.8, End: 1.2, Confidence: 1},
	}
	if segs := clusterWords(words, 0.5); len(segs) != 1 {
		t.Fatalf("0.4s gap must not split, got %d segments", len(segs))
	}
}
