package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// LessonSchemaVersion is the version of the exported lesson JSON contract.
// Bump on any backward-incompatible change to LessonExport.
const LessonSchemaVersion = 2

// LessonMetadata describes the lesson as a whole
type LessonMetadata struct {
	Title           string   `json:"title"`
	SourceID        string   `json:"source_id,omitempty"`
	Language        string   `json:"language"`
	Dialect         string   `json:"dialect,omitempty"`
	ILRLevel        float64  `json:"ilr_level,omitempty"`
	DurationSeconds float64  `json:"duration_seconds,omitempty"`
	DegradedStages  []string `json:"degraded_stages,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
}

// Lesson is the stored lesson aggregate. Assembled exactly once per pipeline
// run; immutable after assembly except for player-owned settings.
type Lesson struct {
	ID             uuid.UUID                            `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SchemaVersion  int                                  `json:"schema_version" gorm:"not null"`
	Metadata       datatypes.JSONType[LessonMetadata]   `json:"metadata" gorm:"type:jsonb"`
	Transcript     Transcript                           `json:"transcript" gorm:"type:jsonb;serializer:json"`
	Translation    string                               `json:"translation,omitempty" gorm:"type:text"`
	Vocabulary     []VocabularyItem                     `json:"vocabulary,omitempty" gorm:"type:jsonb;serializer:json"`
	QuestionsPre   []Question                           `json:"questions_pre,omitempty" gorm:"type:jsonb;serializer:json"`
	QuestionsWhile []Question                           `json:"questions_while,omitempty" gorm:"type:jsonb;serializer:json"`
	QuestionsPost  []Question                           `json:"questions_post,omitempty" gorm:"type:jsonb;serializer:json"`
	AudioRef       string                               `json:"audio_ref,omitempty" gorm:"type:varchar(512)"`
	CreatedAt      time.Time                            `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time                            `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Lesson) TableName() string {
	return "lessons"
}

// NewLesson creates an empty lesson shell
func NewLesson() *Lesson {
	return &Lesson{
		ID:            uuid.New(),
		SchemaVersion: LessonSchemaVersion,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
}

// QuestionCount returns the total number of questions across all phases
func (l *Lesson) QuestionCount() int {
	return len(l.QuestionsPre) + len(l.QuestionsWhile) + len(l.QuestionsPost)
}

// LessonExport is the durable JSON contract consumed by the external
// player/exporter. Schema changes require a LessonSchemaVersion bump and
// must remain backward-readable.
type LessonExport struct {
	SchemaVersion int            `json:"schemaVersion"`
	ID            string         `json:"id"`
	CreatedAt     time.Time      `json:"createdAt"`
	Metadata      LessonMetadata `json:"metadata"`
	Content       LessonContent  `json:"content"`
	Audio         string         `json:"audio,omitempty"`
}

// LessonContent groups the learner-facing material
type LessonContent struct {
	Transcript  Transcript       `json:"transcript"`
	Translation string           `json:"translation,omitempty"`
	Vocabulary  []VocabularyItem `json:"vocabulary"`
	Questions   LessonQuestions  `json:"questions"`
}

// LessonQuestions holds questions grouped by phase
type LessonQuestions struct {
	Pre   []Question `json:"pre"`
	While []Question `json:"while"`
	Post  []Question `json:"post"`
}

// Export converts the stored lesson to the versioned export shape
func (l *Lesson) Export() LessonExport {
	return LessonExport{
		SchemaVersion: l.SchemaVersion,
		ID:            l.ID.String(),
		CreatedAt:     l.CreatedAt,
		Metadata:      l.Metadata.Data(),
		Content: LessonContent{
			Transcript:  l.Transcript,
			Translation: l.Translation,
			Vocabulary:  emptyIfNilVocab(l.Vocabulary),
			Questions: LessonQuestions{
				Pre:   emptyIfNil(l.QuestionsPre),
				While: emptyIfNil(l.QuestionsWhile),
				Post:  emptyIfNil(l.QuestionsPost),
			},
		},
		Audio: l.AudioRef,
	}
}

func emptyIfNil(qs []Question) []Question {
	if qs == nil {
		return []Question{}
	}
	return qs
}

func emptyIfNilVocab(vs []VocabularyItem) []VocabularyItem {
	if vs == nil {
		return []VocabularyItem{}
	}
	return vs
}
