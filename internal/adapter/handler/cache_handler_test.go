package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/istimaa-app/istimaa/errors"
	"github.com/istimaa-app/istimaa/internal/cache"
	"github.com/istimaa-app/istimaa/internal/domain/entities"
)

func seededCacheStore(t *testing.T) cache.Store {
	t.Helper()
	store := cache.NewMemoryStore(time.Hour)
	err := store.Put(context.Background(), "yt_vid42", entities.Transcript{
		Text:       "مرحبا بكم",
		Language:   "ar",
		SourceKind: entities.TranscriptSourceCaptions,
		Confidence: 1.0,
		Segments: []entities.TranscriptSegment{
			{Start: 0, End: 2.5, Text: "مرحبا بكم"},
		},
	})
	if err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	return store
}

func TestCacheGet(t *testing.T) {
	h := NewCacheHandler(seededCacheStore(t), zap.NewNop())

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("sourceId")
	c.SetParamValues("yt_vid42")

	if err := h.Get(c); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	// Reads mark the transcript as cache-sourced regardless of origin
	body := rec.Body.String()
	if !strings.Contains(body, `"source_kind":"cache"`) {
		t.Errorf("body missing source kind: %s", body)
	}
	if !strings.Contains(body, `"segments":1`) {
		t.Errorf("body missing segment count: %s", body)
	}
}

func TestCacheGetMiss(t *testing.T) {
	h := NewCacheHandler(cache.NewMemoryStore(time.Hour), zap.NewNop())

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("sourceId")
	c.SetParamValues("yt_missing")

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

func TestCacheInvalidate(t *testing.T) {
	store := seededCacheStore(t)
	h := NewCacheHandler(store, zap.NewNop())

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("sourceId")
	c.SetParamValues("yt_vid42")

	if err := h.Invalidate(c); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	got, err := store.Get(context.Background(), "yt_vid42")
	if err != nil {
		t.Fatalf("store.Get: %v", err)
	}
	if got != nil {
		t.Error("entry survived invalidation")
	}
}

func TestCachePurge(t *testing.T) {
	h := NewCacheHandler(cache.NewMemoryStore(time.Hour), zap.NewNop())

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodPost, "/v1/cache/purge", nil)
	rec := httptest.NewRecorder()

	if err := h.Purge(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"removed":0`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}
