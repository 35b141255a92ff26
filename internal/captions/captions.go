// Package captions integrates pre-existing subtitle tracks as a cheaper
// first-choice alternative to speech recognition.
package captions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/istimaa-app/istimaa/errors"
	"github.com/istimaa-app/istimaa/internal/domain/entities"
	"github.com/istimaa-app/istimaa/pkg/config"
)

// Result is the caption lookup outcome. Available=false means the source has
// no usable track; that is an expected condition, not an error.
type Result struct {
	Available       bool
	FullText        string
	Segments        []entities.TranscriptSegment
	Language        string
	IsAutoGenerated bool
}

// Source provides pre-existing subtitles for a remote video
type Source interface {
	GetCaptions(ctx context.Context, sourceID string) (Result, error)
}

// YouTubeSource fetches caption tracks from the timedtext endpoint in the
// JSON3 format.
type YouTubeSource struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewYouTubeSource constructs a caption source from config
func NewYouTubeSource(cfg config.CaptionsConfig, logger *zap.Logger) *YouTubeSource {
	return &YouTubeSource{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

// timedtext JSON3 payload shapes
type json3Response struct {
	Events []json3Event `json:"events"`
}

type json3Event struct {
	StartMs    int64      `json:"tStartMs"`
	DurationMs int64      `json:"dDurationMs"`
	Segs       []json3Seg `json:"segs"`
}

type json3Seg struct {
	UTF8 string `json:"utf8"`
}

// GetCaptions fetches the Arabic caption track for videoID. Every failure
// mode maps to CaptionsUnavailable so the orchestrator can fall through to
// recognition without special-casing.
func (y *YouTubeSource) GetCaptions(ctx context.Context, videoID string) (Result, error) {
	// Manual tracks are preferred; the auto-generated (asr) track is the
	// fallback.
	for _, kind := range []string{"", "asr"} {
		res, err := y.fetchTrack(ctx, videoID, kind)
		if err != nil {
			if y.logger != nil {
				y.logger.Debug("caption track fetch failed",
					zap.String("video_id", videoID),
					zap.String("kind", kind),
					zap.Error(err),
				)
			}
			continue
		}
		if res.Available {
			res.IsAutoGenerated = kind == "asr"
			return res, nil
		}
	}

	return Result{}, apperrors.ErrCaptionsUnavailable(videoID)
}

func (y *YouTubeSource) fetchTrack(ctx context.Context, videoID, kind string) (Result, error) {
	q := url.Values{}
	q.Set("v", videoID)
	q.Set("lang", "ar")
	q.Set("fmt", "json3")
	if kind != "" {
		q.Set("kind", kind)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Result{}, err
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("timedtext returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}
	// An empty body means the track does not exist
	if len(strings.TrimSpace(string(body))) == 0 {
		return Result{}, nil
	}

	var payload json3Response
	if err := json.Unmarshal(body, &payload); err != nil {
		return Result{}, fmt.Errorf("parse timedtext payload: %w", err)
	}

	return buildResult(payload), nil
}

// buildResult converts timedtext events into transcript segments. Caption
// sources carry no word-level detail; segment confidence is fixed at 1.0.
func buildResult(payload json3Response) Result {
	var (
		segments []entities.TranscriptSegment
		texts    []string
	)

	for _, ev := range payload.Events {
		var sb strings.Builder
		for _, seg := range ev.Segs {
			sb.WriteString(seg.UTF8)
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			continue
		}

		start := float64(ev.StartMs) / 1000
		end := start + float64(ev.DurationMs)/1000
		segments = append(segments, entities.TranscriptSegment{
			Start:      start,
			End:        end,
			Text:       text,
			Confidence: 1.0,
		})
		texts = append(texts, text)
	}

	if len(segments) == 0 {
		return Result{}
	}

	return Result{
		Available: true,
		FullText:  strings.Join(texts, " "),
		Segments:  segments,
		Language:  "ar",
	}
}

// Transcript converts an available result into a transcript entity
func (r Result) Transcript() entities.Transcript {
	return entities.Transcript{
		Text:            r.FullText,
		Segments:        r.Segments,
		Language:        r.Language,
		SourceKind:      entities.TranscriptSourceCaptions,
		Confidence:      1.0,
		IsAutoGenerated: r.IsAutoGenerated,
	}
}
