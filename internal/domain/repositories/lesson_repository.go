package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/istimaa-app/istimaa/internal/domain/entities"
)

// LessonRepository defines the interface for lesson data access
type LessonRepository interface {
	// Create persists a newly assembled lesson
	Create(ctx context.Context, lesson *entities.Lesson) error

	// FindByID retrieves a lesson by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Lesson, error)

	// List retrieves lessons with filters and pagination
	List(ctx context.Context, filters LessonFilters) ([]*entities.Lesson, int64, error)

	// Update updates an existing lesson (player-owned settings only)
	Update(ctx context.Context, lesson *entities.Lesson) error

	// Delete removes a lesson
	Delete(ctx context.Context, id uuid.UUID) error

	// FindBySourceID retrieves the most recent lesson built from a source
	FindBySourceID(ctx context.Context, sourceID string) (*entities.Lesson, error)
}

// LessonFilters represents filter options for listing lessons
type LessonFilters struct {
	Language  string
	Dialect   string
	Search    string // Search in metadata title
	Limit     int
	Offset    int
	SortOrder string // "asc", "desc"
}
