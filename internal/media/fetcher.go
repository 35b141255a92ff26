// Package media resolves the raw audio stream for a remote video through a
// sidecar resolver service.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	apperrors "github.com/istimaa-app/istimaa/errors"
	"github.com/istimaa-app/istimaa/pkg/config"
)

// maxAudioBytes caps a single download at 256 MiB
const maxAudioBytes = 256 << 20

// Fetcher downloads remote audio via GET {base}/audio/{videoID}
type Fetcher struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewFetcher creates a media fetcher against the configured resolver
func NewFetcher(cfg config.MediaConfig, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

// AcquireAudioStream fetches the audio bytes and content type for a video
func (f *Fetcher) AcquireAudioStream(ctx context.Context, videoID string) ([]byte, string, error) {
	endpoint := fmt.Sprintf("%s/audio/%s", f.baseURL, url.PathEscape(videoID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", apperrors.ErrRecognitionFailed(err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", apperrors.ErrRecognitionFailed(fmt.Errorf("audio fetch: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", apperrors.ErrRecognitionFailed(
			fmt.Errorf("audio fetch for %s: status %d", videoID, resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, "", apperrors.ErrRecognitionFailed(fmt.Errorf("audio fetch read: %w", err))
	}
	if len(data) == 0 {
		return nil, "", apperrors.ErrRecognitionFailed(fmt.Errorf("audio fetch for %s: empty body", videoID))
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	f.logger.Debug("audio stream acquired",
		zap.String("video_id", videoID),
		zap.Int("bytes", len(data)),
		zap.String("mime_type", mimeType),
	)
	return data, mimeType, nil
}
