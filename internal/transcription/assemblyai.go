package transcription

import (
	"bytes"
	"context"
	"fmt"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"

	"github.com/istimaa-app/istimaa/internal/audio"
	"github.com/istimaa-app/istimaa/internal/domain/entities"
	"github.com/istimaa-app/istimaa/pkg/config"
)

// AssemblyAIEngine runs windows through the hosted AssemblyAI API. Slower
// per window than a local server because each window is a full upload and
// poll cycle, but needs no local model.
type AssemblyAIEngine struct {
	client *aai.Client
}

// NewAssemblyAIEngine creates an engine from the recognizer config
func NewAssemblyAIEngine(cfg config.RecognizerConfig) *AssemblyAIEngine {
	return &AssemblyAIEngine{client: aai.NewClient(cfg.AssemblyAIKey)}
}

// Name returns the engine identifier
func (a *AssemblyAIEngine) Name() string { return "assemblyai" }

// TranscribeWindow uploads one window and waits for the transcript
func (a *AssemblyAIEngine) TranscribeWindow(ctx context.Context, window audio.Sample, language string) ([]entities.Word, error) {
	wav := audio.EncodeWAV(window)

	params := &aai.TranscriptOptionalParams{
		LanguageCode: aai.TranscriptLanguageCode(language),
	}
	transcript, err := a.client.Transcripts.TranscribeFromReader(ctx, bytes.NewReader(wav), params)
	if err != nil {
		return nil, err
	}
	if transcript.Status == aai.TranscriptStatusError {
		return nil, fmt.Errorf("assemblyai transcription failed: %s", deref(transcript.Error))
	}

	var words []entities.Word
	for _, w := range transcript.Words {
		words = append(words, entities.Word{
			Text:       deref(w.Text),
			Start:      float64(derefInt(w.Start)) / 1000,
			End:        float64(derefInt(w.End)) / 1000,
			Confidence: derefFloat(w.Confidence),
		})
	}
	return words, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int64) int64 {
	if i == nil {
		return 0
	}
	return *i
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
