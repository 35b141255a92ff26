package lesson

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/istimaa-app/istimaa/internal/domain/entities"
	"github.com/istimaa-app/istimaa/internal/generation"
	"github.com/istimaa-app/istimaa/internal/validation"
)

// QuestionSet is the outcome of the generate-questions stage, grouped by
// phase. DegradedPhases lists phases whose generation failed entirely.
type QuestionSet struct {
	Pre            []entities.Question
	While          []entities.Question
	Post           []entities.Question
	DegradedPhases []string
}

// Total returns the question count across phases
func (s QuestionSet) Total() int {
	return len(s.Pre) + len(s.While) + len(s.Post)
}

// QuestionGenerator produces the three question phases. Phases are
// independent; one failing yields an empty phase, not a failed stage.
type QuestionGenerator struct {
	gen       *generation.Client
	validator *validation.Validator
	logger    *zap.Logger
	perPhase  int
}

// NewQuestionGenerator creates a question generator
func NewQuestionGenerator(gen *generation.Client, logger *zap.Logger) *QuestionGenerator {
	return &QuestionGenerator{
		gen:       gen,
		validator: validation.NewValidator(),
		logger:    logger,
		perPhase:  3,
	}
}

// ExpectedTotal is the question count a fully successful run produces
func (g *QuestionGenerator) ExpectedTotal() int {
	return g.perPhase * 3
}

// Generate runs the three phases concurrently. Quota state is the only
// shared mutable state and the quota manager serializes its own access.
func (g *QuestionGenerator) Generate(ctx context.Context, transcript string, clipDuration float64) QuestionSet {
	phases := []entities.Phase{entities.PhasePre, entities.PhaseWhile, entities.PhasePost}

	results := make([][]entities.Question, len(phases))
	failures := make([]bool, len(phases))

	var wg sync.WaitGroup
	for i, phase := range phases {
		wg.Add(1)
		go func(i int, phase entities.Phase) {
			defer wg.Done()
			questions, ok := g.generatePhase(ctx, transcript, phase, clipDuration)
			results[i] = questions
			failures[i] = !ok
		}(i, phase)
	}
	wg.Wait()

	set := QuestionSet{Pre: results[0], While: results[1], Post: results[2]}
	for i, phase := range phases {
		if failures[i] {
			set.DegradedPhases = append(set.DegradedPhases, "questions_"+string(phase))
		}
	}
	return set
}

// generatePhase returns the validated questions for one phase. ok is false
// when the phase produced nothing usable.
func (g *QuestionGenerator) generatePhase(ctx context.Context, transcript string, phase entities.Phase, clipDuration float64) ([]entities.Question, bool) {
	data, _, err := g.gen.JSON(ctx, questionsPrompt(transcript, phase, g.perPhase), generation.Options{
		System:      systemPrompt,
		Temperature: 0.5,
		MaxTokens:   3000,
	})
	if err != nil || data == nil {
		if g.logger != nil {
			g.logger.Warn("question phase failed",
				zap.String("phase", string(phase)), zap.Error(err))
		}
		return nil, false
	}

	items, ok := data.([]any)
	if !ok {
		// A single object is still one usable question
		if obj, isObj := data.(map[string]any); isObj {
			items = []any{obj}
		} else {
			return nil, false
		}
	}

	var questions []entities.Question
	for _, entry := range items {
		raw, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		q := validation.SanitizeQuestion(raw, phase, clipDuration)
		verdict := g.validator.ValidateQuestion(q)
		if !verdict.IsValid {
			if g.logger != nil {
				g.logger.Info("dropping invalid question",
					zap.String("phase", string(phase)),
					zap.String("type", string(q.Type)),
					zap.Strings("errors", verdict.Errors),
				)
			}
			continue
		}
		for _, warning := range verdict.Warnings {
			if g.logger != nil {
				g.logger.Debug("question warning",
					zap.String("id", q.ID), zap.String("warning", warning))
			}
		}
		questions = append(questions, q)
	}

	return questions, len(questions) > 0
}
