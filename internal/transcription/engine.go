// Package transcription turns prepared audio into transcripts: a windowed
// recognizer over pluggable speech engines, hallucination cleanup, and the
// orchestrator that arbitrates cache, captions and recognition.
package transcription

import (
	"context"

	"github.com/istimaa-app/istimaa/internal/audio"
	"github.com/istimaa-app/istimaa/internal/domain/entities"
)

// Engine transcribes one audio window into word-level tuples. Timestamps
// are relative to the window start; the recognizer offsets them.
type Engine interface {
	Name() string
	TranscribeWindow(ctx context.Context, window audio.Sample, language string) ([]entities.Word, error)
}
