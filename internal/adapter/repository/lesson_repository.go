package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "github.com/istimaa-app/istimaa/errors"
	"github.com/istimaa-app/istimaa/internal/domain/entities"
	"github.com/istimaa-app/istimaa/internal/domain/repositories"
)

// lessonRepository implements the LessonRepository interface
type lessonRepository struct {
	db *gorm.DB
}

// NewLessonRepository creates a new lesson repository
func NewLessonRepository(db *gorm.DB) repositories.LessonRepository {
	return &lessonRepository{db: db}
}

// Create persists a newly assembled lesson
func (r *lessonRepository) Create(ctx context.Context, lesson *entities.Lesson) error {
	if err := r.db.WithContext(ctx).Create(lesson).Error; err != nil {
		return apperrors.ErrDBQueryFailed("create lesson", err)
	}
	return nil
}

// FindByID retrieves a lesson by its ID
func (r *lessonRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Lesson, error) {
	var lesson entities.Lesson
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&lesson).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound("lesson")
		}
		return nil, apperrors.ErrDBQueryFailed("find lesson", err)
	}
	return &lesson, nil
}

// List retrieves lessons with filters and pagination
func (r *lessonRepository) List(ctx context.Context, filters repositories.LessonFilters) ([]*entities.Lesson, int64, error) {
	query := r.db.WithContext(ctx).Model(&entities.Lesson{})

	if filters.Language != "" {
		query = query.Where("metadata->>'language' = ?", filters.Language)
	}
	if filters.Dialect != "" {
		query = query.Where("metadata->>'dialect' = ?", filters.Dialect)
	}
	if filters.Search != "" {
		query = query.Where("metadata->>'title' ILIKE ?", "%"+filters.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.ErrDBQueryFailed("count lessons", err)
	}

	order := "created_at DESC"
	if filters.SortOrder == "asc" {
		order = "created_at ASC"
	}
	query = query.Order(order)

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var lessons []*entities.Lesson
	if err := query.Find(&lessons).Error; err != nil {
		return nil, 0, apperrors.ErrDBQueryFailed("list lessons", err)
	}
	return lessons, total, nil
}

// Update updates an existing lesson
func (r *lessonRepository) Update(ctx context.Context, lesson *entities.Lesson) error {
	if err := r.db.WithContext(ctx).Save(lesson).Error; err != nil {
		return apperrors.ErrDBQueryFailed("update lesson", err)
	}
	return nil
}

// Delete removes a lesson
func (r *lessonRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&entities.Lesson{}, "id = ?", id)
	if result.Error != nil {
		return apperrors.ErrDBQueryFailed("delete lesson", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound("lesson")
	}
	return nil
}

// FindBySourceID retrieves the most recent lesson built from a source
func (r *lessonRepository) FindBySourceID(ctx context.Context, sourceID string) (*entities.Lesson, error) {
	var lesson entities.Lesson
	err := r.db.WithContext(ctx).
		Where("metadata->>'source_id' = ?", sourceID).
		Order("created_at DESC").
		First(&lesson).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound(fmt.Sprintf("lesson for source %s", sourceID))
		}
		return nil, apperrors.ErrDBQueryFailed("find lesson by source", err)
	}
	return &lesson, nil
}
