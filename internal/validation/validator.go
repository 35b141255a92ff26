package validation

import (
	"fmt"
	"strings"

	"github.com/istimaa-app/istimaa/internal/domain/entities"
)

// Verdict is the validation outcome for one item. Errors make the item
// unusable; warnings are quality notes the pipeline only logs.
type Verdict struct {
	IsValid  bool
	Errors   []string
	Warnings []string
}

// Validator checks sanitized content against the type-specific required
// field sets. Inputs are never mutated.
type Validator struct{}

// NewValidator creates a content validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateQuestion checks one canonical question
func (v *Validator) ValidateQuestion(q entities.Question) Verdict {
	var verdict Verdict

	if strings.TrimSpace(q.TextAr) == "" {
		verdict.Errors = append(verdict.Errors, "missing Arabic question text")
	}

	switch q.Type {
	case entities.QuestionTypeMultipleChoice:
		v.checkMultipleChoice(q, &verdict)
	case entities.QuestionTypeTrueFalse:
		if q.CorrectAnswer == nil {
			verdict.Errors = append(verdict.Errors, "missing correct_answer")
		}
	case entities.QuestionTypeFillBlank:
		if strings.TrimSpace(q.BlankAnswer) == "" {
			verdict.Errors = append(verdict.Errors, "missing blank_answer")
		}
		if !strings.Contains(q.TextAr, "____") {
			verdict.Warnings = append(verdict.Warnings, "question text has no blank marker")
		}
	case entities.QuestionTypeOpenEnded:
		if strings.TrimSpace(q.SampleAnswer) == "" {
			verdict.Errors = append(verdict.Errors, "missing sample_answer")
		}
	default:
		verdict.Errors = append(verdict.Errors, fmt.Sprintf("unknown question type %q", q.Type))
	}

	switch q.Phase {
	case entities.PhasePre, entities.PhaseWhile, entities.PhasePost:
	default:
		verdict.Errors = append(verdict.Errors, fmt.Sprintf("unknown phase %q", q.Phase))
	}
	if q.Phase == entities.PhaseWhile && q.TimestampSeconds == nil {
		verdict.Warnings = append(verdict.Warnings, "while-phase question has no timestamp")
	}

	if q.TextEn == "" {
		verdict.Warnings = append(verdict.Warnings, "missing English question text")
	}

	verdict.IsValid = len(verdict.Errors) == 0
	return verdict
}

func (v *Validator) checkMultipleChoice(q entities.Question, verdict *Verdict) {
	if len(q.Options) < 2 {
		verdict.Errors = append(verdict.Errors,
			fmt.Sprintf("multiple_choice needs at least 2 options, got %d", len(q.Options)))
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt.TextAr) == "" {
			verdict.Errors = append(verdict.Errors, fmt.Sprintf("option %d has no text", i+1))
		}
	}

	switch n := q.CorrectOptionCount(); {
	case n == 0:
		verdict.Errors = append(verdict.Errors, "No correct answer marked")
	case n > 1:
		verdict.Errors = append(verdict.Errors,
			fmt.Sprintf("%d options marked correct, expected exactly 1", n))
	}

	if strings.TrimSpace(q.ExplanationAr) == "" && strings.TrimSpace(q.ExplanationEn) == "" {
		verdict.Errors = append(verdict.Errors, "missing explanation")
	}
}

// ValidateVocabularyItem checks one canonical vocabulary entry
func (v *Validator) ValidateVocabularyItem(item entities.VocabularyItem) Verdict {
	var verdict Verdict

	if strings.TrimSpace(item.WordAr) == "" {
		verdict.Errors = append(verdict.Errors, "missing Arabic word")
	}
	if strings.TrimSpace(item.WordEn) == "" {
		verdict.Errors = append(verdict.Errors, "missing English word")
	}
	if len(item.Definitions) == 0 {
		verdict.Warnings = append(verdict.Warnings, "no definitions")
	}
	if strings.TrimSpace(item.Example) == "" {
		verdict.Warnings = append(verdict.Warnings, "no example sentence")
	}

	verdict.IsValid = len(verdict.Errors) == 0
	return verdict
}
