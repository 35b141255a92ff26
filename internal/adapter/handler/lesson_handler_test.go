package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	apperrors "github.com/istimaa-app/istimaa/errors"
	"github.com/istimaa-app/istimaa/internal/domain/entities"
	"github.com/istimaa-app/istimaa/internal/domain/repositories"
	"github.com/istimaa-app/istimaa/internal/generation"
	"github.com/istimaa-app/istimaa/internal/lesson"
	pkgvalidator "github.com/istimaa-app/istimaa/pkg/validator"
)

// fakeLessonRepo is an in-memory LessonRepository
type fakeLessonRepo struct {
	lessons map[uuid.UUID]*entities.Lesson
}

func newFakeLessonRepo() *fakeLessonRepo {
	return &fakeLessonRepo{lessons: make(map[uuid.UUID]*entities.Lesson)}
}

func (r *fakeLessonRepo) Create(ctx context.Context, l *entities.Lesson) error {
	r.lessons[l.ID] = l
	return nil
}

func (r *fakeLessonRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.Lesson, error) {
	l, ok := r.lessons[id]
	if !ok {
		return nil, apperrors.ErrNotFound("lesson")
	}
	return l, nil
}

func (r *fakeLessonRepo) List(ctx context.Context, filters repositories.LessonFilters) ([]*entities.Lesson, int64, error) {
	var out []*entities.Lesson
	for _, l := range r.lessons {
		meta := l.Metadata.Data()
		if filters.Language != "" && meta.Language != filters.Language {
			continue
		}
		out = append(out, l)
	}
	return out, int64(len(out)), nil
}

func (r *fakeLessonRepo) Update(ctx context.Context, l *entities.Lesson) error {
	r.lessons[l.ID] = l
	return nil
}

func (r *fakeLessonRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.lessons[id]; !ok {
		return apperrors.ErrNotFound("lesson")
	}
	delete(r.lessons, id)
	return nil
}

func (r *fakeLessonRepo) FindBySourceID(ctx context.Context, sourceID string) (*entities.Lesson, error) {
	for _, l := range r.lessons {
		if l.Metadata.Data().SourceID == sourceID {
			return l, nil
		}
	}
	return nil, apperrors.ErrNotFound("lesson")
}

func storedLesson(title, language string) *entities.Lesson {
	l := entities.NewLesson()
	l.Metadata = datatypes.NewJSONType(entities.LessonMetadata{
		Title:    title,
		Language: language,
	})
	l.Transcript = entities.Transcript{Text: "نص", Language: language}
	return l
}

// newTestPipeline builds a pipeline with no providers configured; analysis
// and questions degrade but text-source runs still assemble a lesson.
func newTestPipeline(t *testing.T, store lesson.Store) *lesson.Pipeline {
	t.Helper()
	logger := zap.NewNop()

	quota := generation.NewQuotaManager(
		generation.NewFileQuotaStore(filepath.Join(t.TempDir(), "quota.json")), nil, logger)
	gen := generation.NewClient(generation.NewPool(), quota, logger)

	return lesson.NewPipeline(nil,
		lesson.NewAnalyzer(gen, logger),
		lesson.NewQuestionGenerator(gen, logger),
		store, nil, logger)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = pkgvalidator.New()
	return e
}

func TestCreateLessonFromText(t *testing.T) {
	repo := newFakeLessonRepo()
	h := NewLessonHandler(newTestPipeline(t, &repoStore{repo}), repo, nil, zap.NewNop())

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodPost, "/v1/lessons",
		strings.NewReader(`{"text": "مرحبا بكم في هذا الدرس"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.Create(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var export entities.LessonExport
	if err := json.Unmarshal(rec.Body.Bytes(), &export); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if export.SchemaVersion != entities.LessonSchemaVersion {
		t.Errorf("schema version = %d, want %d", export.SchemaVersion, entities.LessonSchemaVersion)
	}
	if export.Content.Transcript.Text != "مرحبا بكم في هذا الدرس" {
		t.Errorf("transcript text = %q", export.Content.Transcript.Text)
	}
	if len(repo.lessons) != 1 {
		t.Errorf("stored lessons = %d, want 1", len(repo.lessons))
	}
}

type repoStore struct {
	repo repositories.LessonRepository
}

func (s *repoStore) Save(ctx context.Context, l *entities.Lesson) error {
	return s.repo.Create(ctx, l)
}

func TestCreateLessonRejectsAmbiguousSource(t *testing.T) {
	h := NewLessonHandler(newTestPipeline(t, nil), newFakeLessonRepo(), nil, zap.NewNop())

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodPost, "/v1/lessons",
		strings.NewReader(`{"text": "نص", "video_id": "vid42"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.Create(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), string(apperrors.ErrorCode_INVALID_ARGUMENT)) {
		t.Errorf("body missing INVALID_ARGUMENT code: %s", rec.Body.String())
	}
}

func TestCreateLessonRejectsEmptyBody(t *testing.T) {
	h := NewLessonHandler(newTestPipeline(t, nil), newFakeLessonRepo(), nil, zap.NewNop())

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodPost, "/v1/lessons", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.Create(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetLesson(t *testing.T) {
	repo := newFakeLessonRepo()
	l := storedLesson("درس القاهرة", "ar")
	repo.lessons[l.ID] = l

	h := NewLessonHandler(nil, repo, nil, zap.NewNop())

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/lessons/:id")
	c.SetParamNames("id")
	c.SetParamValues(l.ID.String())

	if err := h.Get(c); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "درس القاهرة") {
		t.Errorf("body missing lesson title: %s", rec.Body.String())
	}
}

func TestGetLessonInvalidID(t *testing.T) {
	h := NewLessonHandler(nil, newFakeLessonRepo(), nil, zap.NewNop())

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	if err := h.Get(c); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetLessonNotFound(t *testing.T) {
	h := NewLessonHandler(nil, newFakeLessonRepo(), nil, zap.NewNop())

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	if err := h.Get(c); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), string(apperrors.ErrorCode_NOT_FOUND)) {
		t.Errorf("body missing NOT_FOUND code: %s", rec.Body.String())
	}
}

func TestExportLesson(t *testing.T) {
	repo := newFakeLessonRepo()
	l := storedLesson("درس", "ar")
	repo.lessons[l.ID] = l

	h := NewLessonHandler(nil, repo, nil, zap.NewNop())

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(l.ID.String())

	if err := h.Export(c); err != nil {
		t.Fatalf("Export: %v", err)
	}

	var export entities.LessonExport
	if err := json.Unmarshal(rec.Body.Bytes(), &export); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if export.ID != l.ID.String() {
		t.Errorf("export id = %q, want %q", export.ID, l.ID)
	}
	// Export always carries question arrays, even when empty
	if export.Content.Questions.Pre == nil {
		t.Error("export pre questions should be an empty array, not null")
	}
}

func TestListLessons(t *testing.T) {
	repo := newFakeLessonRepo()
	for i := 0; i < 3; i++ {
		l := storedLesson("درس", "ar")
		repo.lessons[l.ID] = l
	}

	h := NewLessonHandler(nil, repo, nil, zap.NewNop())

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/v1/lessons?page=1&page_size=2", nil)
	rec := httptest.NewRecorder()

	if err := h.List(e.NewContext(req, rec)); err != nil {
		t.Fatalf("List: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data       []map[string]interface{} `json:"data"`
		Pagination struct {
			TotalItems int64 `json:"total_items"`
			TotalPages int   `json:"total_pages"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if resp.Pagination.TotalItems != 3 {
		t.Errorf("total items = %d, want 3", resp.Pagination.TotalItems)
	}
	if resp.Pagination.TotalPages != 2 {
		t.Errorf("total pages = %d, want 2", resp.Pagination.TotalPages)
	}
}

func TestDeleteLesson(t *testing.T) {
	repo := newFakeLessonRepo()
	l := storedLesson("درس", "ar")
	repo.lessons[l.ID] = l

	h := NewLessonHandler(nil, repo, nil, zap.NewNop())

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(l.ID.String())

	if err := h.Delete(c); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(repo.lessons) != 0 {
		t.Errorf("lesson not removed")
	}
}

func TestAudioURLWithoutStorage(t *testing.T) {
	repo := newFakeLessonRepo()
	l := storedLesson("درس", "ar")
	repo.lessons[l.ID] = l

	h := NewLessonHandler(nil, repo, nil, zap.NewNop())

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(l.ID.String())

	if err := h.AudioURL(c); err != nil {
		t.Fatalf("AudioURL: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
