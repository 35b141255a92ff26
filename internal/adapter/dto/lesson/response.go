package lesson

import (
	"time"

	"github.com/istimaa-app/istimaa/internal/domain/entities"
)

// LessonSummary is the list-view projection of a lesson
type LessonSummary struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Language        string    `json:"language"`
	Dialect         string    `json:"dialect,omitempty"`
	ILRLevel        float64   `json:"ilr_level,omitempty"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	QuestionCount   int       `json:"question_count"`
	VocabularyCount int       `json:"vocabulary_count"`
	Degraded        []string  `json:"degraded_stages,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewLessonSummary projects a stored lesson into its list shape
func NewLessonSummary(l *entities.Lesson) LessonSummary {
	meta := l.Metadata.Data()
	return LessonSummary{
		ID:              l.ID.String(),
		Title:           meta.Title,
		Language:        meta.Language,
		Dialect:         meta.Dialect,
		ILRLevel:        meta.ILRLevel,
		DurationSeconds: meta.DurationSeconds,
		QuestionCount:   l.QuestionCount(),
		VocabularyCount: len(l.Vocabulary),
		Degraded:        meta.DegradedStages,
		CreatedAt:       l.CreatedAt,
	}
}

// NewLessonSummaries projects a page of lessons
func NewLessonSummaries(lessons []*entities.Lesson) []LessonSummary {
	out := make([]LessonSummary, 0, len(lessons))
	for _, l := range lessons {
		out = append(out, NewLessonSummary(l))
	}
	return out
}

// CacheEntryResponse describes one cached transcript
type CacheEntryResponse struct {
	SourceID   string  `json:"source_id"`
	Language   string  `json:"language"`
	SourceKind string  `json:"source_kind"`
	Confidence float64 `json:"confidence"`
	Segments   int     `json:"segments"`
}

// PurgeResponse reports how many expired cache entries were removed
type PurgeResponse struct {
	Removed int `json:"removed"`
}
