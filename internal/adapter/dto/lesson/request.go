package lesson

// CreateLessonRequest represents a request to build a new lesson.
// Exactly one source field group must be set: an uploaded file is sent as
// multipart form data instead of this JSON body.
type CreateLessonRequest struct {
	VideoID string `json:"video_id,omitempty" validate:"omitempty,min=3,max=64"`
	Text    string `json:"text,omitempty" validate:"omitempty,min=1"`
}

// ListLessonsRequest represents query parameters for listing lessons
type ListLessonsRequest struct {
	Language  string `query:"language" validate:"omitempty,max=16"`
	Dialect   string `query:"dialect" validate:"omitempty,max=32"`
	Search    string `query:"search" validate:"omitempty,max=128"`
	Page      int    `query:"page" validate:"omitempty,min=1"`
	PageSize  int    `query:"page_size" validate:"omitempty,min=1,max=100"`
	SortOrder string `query:"sort_order" validate:"omitempty,oneof=asc desc"`
}

// Normalize applies list defaults
func (r *ListLessonsRequest) Normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = 20
	}
	if r.SortOrder == "" {
		r.SortOrder = "desc"
	}
}
