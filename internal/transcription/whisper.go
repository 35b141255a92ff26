package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/istimaa-app/istimaa/internal/audio"
	"github.com/istimaa-app/istimaa/internal/domain/entities"
	"github.com/istimaa-app/istimaa/pkg/config"
)

// WhisperEngine sends windows to a local whisper-server instance over its
// inference endpoint.
type WhisperEngine struct {
	baseURL string
	client  *http.Client
}

// NewWhisperEngine creates an engine pointed at the whisper server
func NewWhisperEngine(cfg config.RecognizerConfig) *WhisperEngine {
	return &WhisperEngine{
		baseURL: cfg.WhisperURL,
		// A 30s window can take a while on CPU-only hosts
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Name returns the engine identifier
func (w *WhisperEngine) Name() string { return "whisper" }

type whisperResponse struct {
	Segments []struct {
		Words []struct {
			Word  string  `json:"word"`
			Start float64 `json:"start"`
			End   float64 `json:"end"`
			Prob  float64 `json:"probability"`
		} `json:"words"`
	} `json:"segments"`
}

// TranscribeWindow posts one window as a WAV file and returns word tuples
// with window-relative timestamps.
func (w *WhisperEngine) TranscribeWindow(ctx context.Context, window audio.Sample, language string) ([]entities.Word, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "window.wav")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(audio.EncodeWAV(window)); err != nil {
		return nil, err
	}
	writer.WriteField("language", language)
	writer.WriteField("response_format", "verbose_json")
	writer.WriteField("timestamp_granularities[]", "word")
	if err := writer.Close(); err != nil {
		return nil, err
	}

	endpoint := w.baseURL + "/v1/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("whisper server returned status %d: %s", resp.StatusCode, msg)
	}

	var wr whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return nil, fmt.Errorf("parse whisper response: %w", err)
	}

	var words []entities.Word
	for _, seg := range wr.Segments {
		for _, word := range seg.Words {
			words = append(words, entities.Word{
				Text:       word.Word,
				Start:      word.Start,
				End:        word.End,
				Confidence: word.Prob,
			})
		}
	}
	return words, nil
}
