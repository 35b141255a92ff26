package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/istimaa-app/istimaa/errors"
	"github.com/istimaa-app/istimaa/internal/adapter/dto/common"
	lessondto "github.com/istimaa-app/istimaa/internal/adapter/dto/lesson"
	"github.com/istimaa-app/istimaa/internal/cache"
)

// Cache handles transcript cache inspection endpoints
type Cache struct {
	store  cache.Store
	logger *zap.Logger
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(store cache.Store, logger *zap.Logger) *Cache {
	return &Cache{store: store, logger: logger}
}

// Get returns the cached transcript for a source.
// GET /v1/cache/:sourceId
func (h *Cache) Get(c echo.Context) error {
	sourceID := c.Param("sourceId")
	if sourceID == "" {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("source id is required"))
	}

	transcript, err := h.store.Get(c.Request().Context(), sourceID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if transcript == nil {
		return HandleError(h.logger, c, apperrors.ErrNotFound("cached transcript"))
	}

	resp := lessondto.CacheEntryResponse{
		SourceID:   sourceID,
		Language:   transcript.Language,
		SourceKind: string(transcript.SourceKind),
		Confidence: transcript.Confidence,
		Segments:   len(transcript.Segments),
	}
	return HandleSuccess(h.logger, c, http.StatusOK, resp)
}

// Invalidate drops the cached transcript for a source.
// DELETE /v1/cache/:sourceId
func (h *Cache) Invalidate(c echo.Context) error {
	sourceID := c.Param("sourceId")
	if sourceID == "" {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("source id is required"))
	}

	if err := h.store.Invalidate(c.Request().Context(), sourceID); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, http.StatusOK, common.SuccessResponse{Message: "cache entry invalidated"})
}

// Purge removes expired cache entries.
// POST /v1/cache/purge
func (h *Cache) Purge(c echo.Context) error {
	removed, err := h.store.Purge(c.Request().Context())
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, http.StatusOK, lessondto.PurgeResponse{Removed: removed})
}
