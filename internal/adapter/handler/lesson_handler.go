package handler

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/istimaa-app/istimaa/errors"
	"github.com/istimaa-app/istimaa/internal/adapter/dto/common"
	lessondto "github.com/istimaa-app/istimaa/internal/adapter/dto/lesson"
	"github.com/istimaa-app/istimaa/internal/domain/entities"
	"github.com/istimaa-app/istimaa/internal/domain/repositories"
	"github.com/istimaa-app/istimaa/internal/lesson"
)

// AudioStorage exposes the object store operations the lesson handler needs.
// Nil when object storage is disabled.
type AudioStorage interface {
	AudioURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
	DeleteLessonAudio(ctx context.Context, lessonID string) error
}

// Lesson handles lesson building and retrieval endpoints
type Lesson struct {
	pipeline *lesson.Pipeline
	repo     repositories.LessonRepository
	audio    AudioStorage
	logger   *zap.Logger
}

// NewLessonHandler creates a new lesson handler
func NewLessonHandler(pipeline *lesson.Pipeline, repo repositories.LessonRepository, audio AudioStorage, logger *zap.Logger) *Lesson {
	return &Lesson{
		pipeline: pipeline,
		repo:     repo,
		audio:    audio,
		logger:   logger,
	}
}

// Create builds a lesson from an uploaded file, a remote video or raw text.
// POST /v1/lessons
func (h *Lesson) Create(c echo.Context) error {
	src, err := h.resolveSource(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	onProgress := func(ev entities.ProgressEvent) {
		h.logger.Debug("pipeline progress",
			zap.String("stage", ev.Stage),
			zap.Float64("percent", ev.Percent),
		)
	}

	l, err := h.pipeline.Run(c.Request().Context(), src, onProgress)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, http.StatusCreated, l.Export())
}

// resolveSource builds the pipeline source from the request. Multipart
// requests carry an audio file; JSON bodies name a video or provide text.
func (h *Lesson) resolveSource(c echo.Context) (entities.Source, error) {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		return h.resolveUpload(c)
	}

	var req lessondto.CreateLessonRequest
	if err := c.Bind(&req); err != nil {
		return entities.Source{}, apperrors.ErrInvalidArgument("malformed request body")
	}
	if err := c.Validate(&req); err != nil {
		return entities.Source{}, apperrors.ErrInvalidArgument(err.Error())
	}

	switch {
	case req.VideoID != "" && req.Text != "":
		return entities.Source{}, apperrors.ErrInvalidArgument("provide either video_id or text, not both")
	case req.VideoID != "":
		return entities.NewRemoteSource(req.VideoID), nil
	case req.Text != "":
		return entities.NewTextSource(req.Text), nil
	default:
		return entities.Source{}, apperrors.ErrInvalidArgument("one of video_id or text is required")
	}
}

func (h *Lesson) resolveUpload(c echo.Context) (entities.Source, error) {
	fileHeader, err := c.FormFile("audio")
	if err != nil {
		return entities.Source{}, apperrors.ErrInvalidArgument("multipart request must carry an 'audio' file")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return entities.Source{}, apperrors.ErrInvalidArgument("unable to open uploaded file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return entities.Source{}, apperrors.ErrInternal(err)
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	return entities.NewUploadSource(fileHeader.Filename, mimeType, data), nil
}

// List returns lessons with filters and pagination.
// GET /v1/lessons
func (h *Lesson) List(c echo.Context) error {
	var req lessondto.ListLessonsRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("malformed query parameters"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument(err.Error()))
	}
	req.Normalize()

	filters := repositories.LessonFilters{
		Language:  req.Language,
		Dialect:   req.Dialect,
		Search:    req.Search,
		Limit:     req.PageSize,
		Offset:    (req.Page - 1) * req.PageSize,
		SortOrder: req.SortOrder,
	}

	lessons, total, err := h.repo.List(c.Request().Context(), filters)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	totalPages := int(total) / req.PageSize
	if int(total)%req.PageSize > 0 {
		totalPages++
	}

	resp := common.ListResponse{
		Data: lessondto.NewLessonSummaries(lessons),
		Pagination: &common.PaginationResponse{
			Page:       req.Page,
			PageSize:   req.PageSize,
			TotalPages: totalPages,
			TotalItems: total,
		},
	}
	return HandleSuccess(h.logger, c, http.StatusOK, resp)
}

// Get returns one stored lesson.
// GET /v1/lessons/:id
func (h *Lesson) Get(c echo.Context) error {
	id, err := parseLessonID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	l, err := h.repo.FindByID(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, http.StatusOK, l)
}

// Export returns the versioned export document for a lesson.
// GET /v1/lessons/:id/export
func (h *Lesson) Export(c echo.Context) error {
	id, err := parseLessonID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	l, err := h.repo.FindByID(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, http.StatusOK, l.Export())
}

// AudioURL returns a short-lived streaming URL for the lesson audio.
// GET /v1/lessons/:id/audio
func (h *Lesson) AudioURL(c echo.Context) error {
	id, err := parseLessonID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	l, err := h.repo.FindByID(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if h.audio == nil || l.AudioRef == "" {
		return HandleError(h.logger, c, apperrors.ErrNotFound("lesson audio"))
	}

	url, err := h.audio.AudioURL(c.Request().Context(), l.AudioRef, 15*time.Minute)
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrStorageFailed("presign audio", err))
	}
	return HandleSuccess(h.logger, c, http.StatusOK, map[string]string{"url": url})
}

// Delete removes a lesson and its stored audio.
// DELETE /v1/lessons/:id
func (h *Lesson) Delete(c echo.Context) error {
	id, err := parseLessonID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	if err := h.repo.Delete(c.Request().Context(), id); err != nil {
		return HandleError(h.logger, c, err)
	}

	// Stored audio is cleaned up best effort; the lesson row is already gone
	if h.audio != nil {
		if err := h.audio.DeleteLessonAudio(c.Request().Context(), id.String()); err != nil {
			h.logger.Warn("failed to delete lesson audio",
				zap.String("lesson_id", id.String()), zap.Error(err))
		}
	}

	return HandleSuccess(h.logger, c, http.StatusOK, common.SuccessResponse{Message: "lesson deleted"})
}

func parseLessonID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperrors.ErrInvalidArgument("invalid lesson id")
	}
	return id, nil
}
