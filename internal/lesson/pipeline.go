// Package lesson assembles complete listening lessons: transcript
// acquisition, LLM analysis, question generation and final assembly.
package lesson

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	apperrors "github.com/istimaa-app/istimaa/errors"
	"github.com/istimaa-app/istimaa/internal/domain/entities"
)

// Pipeline stage names used in errors and logs
const (
	StageFetch             = "fetch"
	StageTranscribe        = "transcribe"
	StageAnalyze           = "analyze"
	StageGenerateQuestions = "generate_questions"
	StageAssemble          = "assemble"
)

// Transcriber resolves a transcript for a source
type Transcriber interface {
	Transcribe(ctx context.Context, src entities.Source, onProgress entities.ProgressFunc) (entities.Transcript, error)
}

// Store persists assembled lessons
type Store interface {
	Save(ctx context.Context, l *entities.Lesson) error
}

// AudioStore keeps the source audio for playback and returns a reference
type AudioStore interface {
	StoreAudio(ctx context.Context, lessonID, fileName, mimeType string, data []byte) (string, error)
}

// Pipeline runs the five lesson stages in order. Stage-fatal errors abort
// the run naming the failed stage; recoverable ones mark the lesson
// degraded instead.
type Pipeline struct {
	transcriber Transcriber
	analyzer    *Analyzer
	questions   *QuestionGenerator
	store       Store
	audio       AudioStore
	logger      *zap.Logger
}

// NewPipeline wires a lesson pipeline. store and audio may be nil; the
// lesson is then only returned, not persisted.
func NewPipeline(
	transcriber Transcriber,
	analyzer *Analyzer,
	questions *QuestionGenerator,
	store Store,
	audio AudioStore,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		transcriber: transcriber,
		analyzer:    analyzer,
		questions:   questions,
		store:       store,
		audio:       audio,
		logger:      logger,
	}
}

// Run builds one lesson from the source
func (p *Pipeline) Run(ctx context.Context, src entities.Source, onProgress entities.ProgressFunc) (*entities.Lesson, error) {
	l := entities.NewLesson()
	var degraded []string
	var warnings []string

	// FETCH: validate that the source can yield material at all
	if err := checkSource(src); err != nil {
		return nil, apperrors.ErrStageFailed(StageFetch, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// TRANSCRIBE
	transcript, err := p.transcribe(ctx, src, onProgress)
	if err != nil {
		return nil, apperrors.ErrStageFailed(StageTranscribe, err)
	}
	l.Transcript = transcript
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// ANALYZE: sub-call failures degrade, they do not abort
	analysis := p.analyzer.Analyze(ctx, transcript.Text)
	l.Translation = analysis.Translation
	l.Vocabulary = analysis.Vocabulary
	degraded = append(degraded, analysis.Degraded...)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// GENERATE QUESTIONS
	clipDuration := transcript.Duration()
	set := p.questions.Generate(ctx, transcript.Text, clipDuration)
	l.QuestionsPre = set.Pre
	l.QuestionsWhile = set.While
	l.QuestionsPost = set.Post
	degraded = append(degraded, set.DegradedPhases...)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if total, expected := set.Total(), p.questions.ExpectedTotal(); total < expected {
		warnings = append(warnings,
			fmt.Sprintf("only %d of %d expected questions were generated", total, expected))
	}

	// ASSEMBLE
	p.storeAudio(ctx, l, src, &degraded)

	l.Metadata = datatypes.NewJSONType(entities.LessonMetadata{
		Title:           analysis.Title,
		SourceID:        src.CacheKey(),
		Language:        transcript.Language,
		Dialect:         analysis.Dialect,
		ILRLevel:        analysis.ILRLevel,
		DurationSeconds: clipDuration,
		DegradedStages:  degraded,
		Warnings:        warnings,
	})

	if p.store != nil {
		if err := p.store.Save(ctx, l); err != nil {
			return nil, apperrors.ErrStageFailed(StageAssemble, err)
		}
	}

	if p.logger != nil {
		p.logger.Info("lesson assembled",
			zap.String("lesson_id", l.ID.String()),
			zap.Int("questions", l.QuestionCount()),
			zap.Int("vocabulary", len(l.Vocabulary)),
			zap.Strings("degraded", degraded),
		)
	}
	return l, nil
}

// transcribe resolves the transcript; text sources skip audio entirely
func (p *Pipeline) transcribe(ctx context.Context, src entities.Source, onProgress entities.ProgressFunc) (entities.Transcript, error) {
	if src.Kind == entities.SourceKindText {
		return entities.Transcript{
			Text:       src.Text,
			Language:   "ar",
			Confidence: 1.0,
		}, nil
	}
	return p.transcriber.Transcribe(ctx, src, onProgress)
}

// storeAudio uploads the source audio when a store is configured. Failures
// degrade the lesson instead of failing it.
func (p *Pipeline) storeAudio(ctx context.Context, l *entities.Lesson, src entities.Source, degraded *[]string) {
	if p.audio == nil || src.Kind != entities.SourceKindUpload || len(src.Data) == 0 {
		return
	}

	ref, err := p.audio.StoreAudio(ctx, l.ID.String(), src.FileName, src.MimeType, src.Data)
	if err != nil {
		*degraded = append(*degraded, "audio")
		if p.logger != nil {
			p.logger.Warn("audio upload failed",
				zap.String("lesson_id", l.ID.String()), zap.Error(err))
		}
		return
	}
	l.AudioRef = ref
}

func checkSource(src entities.Source) error {
	switch src.Kind {
	case entities.SourceKindUpload:
		if len(src.Data) == 0 {
			return fmt.Errorf("upload source has no data")
		}
	case entities.SourceKindRemote:
		if src.VideoID == "" {
			return fmt.Errorf("remote source has no video id")
		}
	case entities.SourceKindText:
		if src.Text == "" {
			return fmt.Errorf("text source is empty")
		}
	default:
		return fmt.Errorf("unknown source kind %q", src.Kind)
	}
	return nil
}
