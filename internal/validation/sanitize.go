// Package validation normalizes and validates generated lesson content.
// Generator output is untrusted raw JSON; sanitization folds the field
// name variants models produce into one canonical shape, and validation
// issues a verdict without ever mutating its input.
package validation

import (
	"strings"

	"github.com/google/uuid"

	"github.com/istimaa-app/istimaa/internal/domain/entities"
)

// SanitizeQuestion normalizes one raw generated item into a canonical
// Question. Idempotent: sanitizing an already-canonical question changes
// nothing. phase is the default when the item carries none; clipDuration
// supplies the midpoint default for while-phase timestamps.
func SanitizeQuestion(raw map[string]any, phase entities.Phase, clipDuration float64) entities.Question {
	q := entities.Question{
		ID:    stringField(raw, "id"),
		Type:  entities.QuestionType(stringField(raw, "type")),
		Skill: stringField(raw, "skill"),
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}

	q.Phase = entities.Phase(stringField(raw, "phase"))
	if q.Phase == "" {
		q.Phase = phase
	}

	q.TextAr, q.TextEn = bilingualField(raw, "question")
	q.ExplanationAr, q.ExplanationEn = bilingualField(raw, "explanation")

	switch q.Type {
	case entities.QuestionTypeMultipleChoice:
		q.Options = sanitizeOptions(raw["options"])
	case entities.QuestionTypeTrueFalse:
		if b, ok := boolField(raw, "correct_answer", "answer"); ok {
			q.CorrectAnswer = &b
		}
	case entities.QuestionTypeFillBlank:
		q.BlankAnswer = stringField(raw, "blank_answer", "answer")
	case entities.QuestionTypeOpenEnded:
		q.SampleAnswer = stringField(raw, "sample_answer", "model_answer", "answer")
	}

	if ts, ok := numberField(raw, "timestamp_seconds", "timestamp"); ok {
		q.TimestampSeconds = &ts
	} else if q.Phase == entities.PhaseWhile && clipDuration > 0 {
		mid := clipDuration / 2
		q.TimestampSeconds = &mid
	}

	return q
}

// SanitizeVocabularyItem normalizes one raw vocabulary entry
func SanitizeVocabularyItem(raw map[string]any) entities.VocabularyItem {
	item := entities.VocabularyItem{
		ID:           stringField(raw, "id"),
		WordAr:       stringField(raw, "word_ar", "word_arabic", "arabic", "word"),
		WordEn:       stringField(raw, "word_en", "word_english", "english", "translation"),
		Root:         stringField(raw, "root"),
		PartOfSpeech: stringField(raw, "part_of_speech", "pos"),
		Example:      stringField(raw, "example", "example_sentence"),
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	switch defs := raw["definitions"].(type) {
	case []any:
		for _, d := range defs {
			if s, ok := d.(string); ok && strings.TrimSpace(s) != "" {
				item.Definitions = append(item.Definitions, strings.TrimSpace(s))
			}
		}
	case string:
		if strings.TrimSpace(defs) != "" {
			item.Definitions = []string{strings.TrimSpace(defs)}
		}
	}
	if len(item.Definitions) == 0 {
		if def := stringField(raw, "definition", "meaning"); def != "" {
			item.Definitions = []string{def}
		}
	}

	return item
}

func sanitizeOptions(raw any) []entities.QuestionOption {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}

	var options []entities.QuestionOption
	for _, entry := range list {
		switch v := entry.(type) {
		case map[string]any:
			opt := entities.QuestionOption{}
			opt.TextAr, opt.TextEn = bilingualField(v, "text")
			if opt.TextAr == "" {
				opt.TextAr = stringField(v, "option", "ar")
			}
			if b, ok := boolField(v, "is_correct", "correct"); ok {
				opt.IsCorrect = b
			}
			options = append(options, opt)
		case string:
			// Bare-string options carry no correctness marker
			options = append(options, entities.QuestionOption{TextAr: strings.TrimSpace(v)})
		}
	}
	return options
}

// bilingualField resolves the `<base>_ar`/`<base>_en` pair, accepting a
// nested {"ar": ..., "en": ...} object or a bare string under the base key.
func bilingualField(raw map[string]any, base string) (ar, en string) {
	ar = stringField(raw, base+"_ar", base+"_arabic")
	en = stringField(raw, base+"_en", base+"_english")

	if nested, ok := raw[base].(map[string]any); ok {
		if ar == "" {
			ar = stringField(nested, "ar", "arabic")
		}
		if en == "" {
			en = stringField(nested, "en", "english")
		}
		return ar, en
	}

	if ar == "" {
		if s, ok := raw[base].(string); ok {
			ar = strings.TrimSpace(s)
		}
	}
	return ar, en
}

func stringField(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := raw[key].(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func boolField(raw map[string]any, keys ...string) (bool, bool) {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case bool:
			return v, true
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "yes":
				return true, true
			case "false", "no":
				return false, true
			}
		case float64:
			return v != 0, true
		}
	}
	return false, false
}

func numberField(raw map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		}
	}
	return 0, false
}
