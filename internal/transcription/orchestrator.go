package transcription

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	apperrors "github.com/istimaa-app/istimaa/errors"
	"github.com/istimaa-app/istimaa/internal/audio"
	"github.com/istimaa-app/istimaa/internal/cache"
	"github.com/istimaa-app/istimaa/internal/captions"
	"github.com/istimaa-app/istimaa/internal/domain/entities"
)

// Stage names as reported in progress events and error details
const (
	stageCheckCache  = "check_cache"
	stageTryCaptions = "try_captions"
	stageRecognize   = "recognize"
	stagePersist     = "persist"
)

// Global progress windows per stage so a UI can render one continuous bar
const (
	prepareWindowStart   = 0.0
	prepareWindowEnd     = 30.0
	recognizeWindowStart = 30.0
	recognizeWindowEnd   = 95.0
	persistWindowEnd     = 100.0
)

// AudioStreamProvider acquires the raw audio for a remote source. The
// retrieval strategy (direct download, alternate endpoints) is outside
// this package.
type AudioStreamProvider interface {
	AcquireAudioStream(ctx context.Context, videoID string) (data []byte, mimeType string, err error)
}

// Orchestrator arbitrates the transcript acquisition paths: cache first,
// then captions for sources that have them, then speech recognition. One
// run at a time; a second concurrent call is refused, not queued.
type Orchestrator struct {
	cache      cache.Store
	captions   captions.Source
	audioFetch AudioStreamProvider
	preparer   *audio.Preparer
	recognizer *Recognizer
	logger     *zap.Logger
	busy       atomic.Bool
}

// NewOrchestrator wires the transcription pipeline. cache, captions and
// audioFetch may be nil; the corresponding paths are skipped.
func NewOrchestrator(
	store cache.Store,
	captionSource captions.Source,
	audioFetch AudioStreamProvider,
	preparer *audio.Preparer,
	recognizer *Recognizer,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		cache:      store,
		captions:   captionSource,
		audioFetch: audioFetch,
		preparer:   preparer,
		recognizer: recognizer,
		logger:     logger,
	}
}

// Transcribe resolves a transcript for the source. Returns PIPELINE_BUSY
// when a run is already in flight.
func (o *Orchestrator) Transcribe(ctx context.Context, src entities.Source, onProgress entities.ProgressFunc) (entities.Transcript, error) {
	if !o.busy.CompareAndSwap(false, true) {
		return entities.Transcript{}, apperrors.ErrPipelineBusy()
	}
	defer o.busy.Store(false)

	emit := func(stage string, percent float64) {
		if onProgress != nil {
			onProgress(entities.ProgressEvent{Stage: stage, Percent: percent})
		}
	}

	// CHECK_CACHE
	key := src.CacheKey()
	if key != "" && o.cache != nil {
		hit, err := o.cache.Get(ctx, key)
		if err != nil {
			// Cache trouble never fails the run
			if o.logger != nil {
				o.logger.Warn("cache lookup failed", zap.String("source_id", key), zap.Error(err))
			}
		} else if hit != nil {
			if o.logger != nil {
				o.logger.Info("transcript served from cache", zap.String("source_id", key))
			}
			emit(stageCheckCache, persistWindowEnd)
			return *hit, nil
		}
	}

	// TRY_CAPTIONS, remote sources only. Any failure falls through to
	// recognition.
	if src.SupportsCaptions() && o.captions != nil {
		res, err := o.captions.GetCaptions(ctx, src.VideoID)
		if err == nil && res.Available {
			transcript := res.Transcript()
			o.persist(ctx, key, transcript)
			emit(stageTryCaptions, persistWindowEnd)
			return transcript, nil
		}
		if o.logger != nil {
			o.logger.Debug("captions unavailable, falling back to recognition",
				zap.String("video_id", src.VideoID), zap.Error(err))
		}
	}
	if err := ctx.Err(); err != nil {
		return entities.Transcript{}, err
	}

	// RECOGNIZE
	transcript, err := o.recognize(ctx, src, emit)
	if err != nil {
		return entities.Transcript{}, err
	}

	// PERSIST, non-fatal
	o.persist(ctx, key, transcript)
	emit(stagePersist, persistWindowEnd)

	return transcript, nil
}

// Busy reports whether a run is currently in flight
func (o *Orchestrator) Busy() bool { return o.busy.Load() }

func (o *Orchestrator) recognize(ctx context.Context, src entities.Source, emit func(string, float64)) (entities.Transcript, error) {
	audioSrc, err := o.resolveAudio(ctx, src)
	if err != nil {
		return entities.Transcript{}, err
	}

	sample, err := o.preparer.Prepare(ctx, audioSrc, func(ev entities.ProgressEvent) {
		emit(ev.Stage, scaleProgress(ev.Percent, prepareWindowStart, prepareWindowEnd))
	})
	if err != nil {
		return entities.Transcript{}, err
	}

	transcript, err := o.recognizer.Recognize(ctx, sample, func(ev entities.ProgressEvent) {
		emit(ev.Stage, scaleProgress(ev.Percent, recognizeWindowStart, recognizeWindowEnd))
	})
	if err != nil {
		return entities.Transcript{}, err
	}
	return transcript, nil
}

// resolveAudio turns a remote source into one carrying audio bytes
func (o *Orchestrator) resolveAudio(ctx context.Context, src entities.Source) (entities.Source, error) {
	if src.Kind != entities.SourceKindRemote {
		return src, nil
	}
	if o.audioFetch == nil {
		return entities.Source{}, apperrors.ErrRecognitionFailed(
			fmt.Errorf("no audio stream provider configured for remote sources"))
	}

	data, mimeType, err := o.audioFetch.AcquireAudioStream(ctx, src.VideoID)
	if err != nil {
		return entities.Source{}, apperrors.ErrRecognitionFailed(err).
			WithDetail("video_id", src.VideoID)
	}
	return entities.NewUploadSource(src.VideoID, mimeType, data), nil
}

// persist writes the transcript to the cache. Failures are logged and
// swallowed; the transcript is still returned to the caller.
func (o *Orchestrator) persist(ctx context.Context, key string, transcript entities.Transcript) {
	if key == "" || o.cache == nil {
		return
	}
	if err := o.cache.Put(ctx, key, transcript); err != nil && o.logger != nil {
		o.logger.Warn("transcript cache write failed",
			zap.String("source_id", key),
			zap.Error(apperrors.ErrCacheWriteFailed(key, err)),
		)
	}
}

// scaleProgress maps a stage-local 0-100 value into its global window
func scaleProgress(local, windowStart, windowEnd float64) float64 {
	if local < 0 {
		local = 0
	}
	if local > 100 {
		local = 100
	}
	return windowStart + local/100*(windowEnd-windowStart)
}
