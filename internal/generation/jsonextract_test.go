package generation

import (
	"testing"
)

func TestExtractJSON_CleanArray(t *testing.T) {
	got := ExtractJSON(`[{"a": 1}, {"a": 2}]`)
	arr, ok := got.([]any)
	if !ok || len(arr) != 2 {
		t.Fatalf("expected 2-element array, got %#v", got)
	}
}

func TestExtractJSON_MarkdownFences(t *testing.T) {
	input := "```json\n{\"question_ar\": \"ما هذا؟\"}\n```"
	got := ExtractJSON(input)
	obj, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %#v", got)
	}
	if obj["question_ar"] != "ما هذا؟" {
		t.Fatalf("unexpected value %v", obj["question_ar"])
	}
}

func TestExtractJSON_ProseWrappedArray(t *testing.T) {
	input := `Here are the questions you asked for:

[{"type": "true_false"}, {"type": "open_ended"}]

Let me know if you need more.`

	got := ExtractJSON(input)
	arr, ok := got.([]any)
	if !ok || len(arr) != 2 {
		t.Fatalf("expected 2-element array, got %#v", got)
	}
}

func TestExtractJSON_TrailingCommas(t *testing.T) {
	input := `{"options": [{"text": "a",}, {"text": "b"},],}`
	got := ExtractJSON(input)
	obj, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %#v", got)
	}
	if opts, _ := obj["options"].([]any); len(opts) != 2 {
		t.Fatalf("options not preserved: %#v", obj["options"])
	}
}

func TestExtractJSON_WrapperKeyUnwrapped(t *testing.T) {
	for _, key := range []string{"items", "data", "results", "questions", "vocabulary"} {
		input := `{"` + key + `": [{"a": 1}]}`
		got := ExtractJSON(input)
		arr, ok := got.([]any)
		if !ok || len(arr) != 1 {
			t.Fatalf("key %q: expected unwrapped array, got %#v", key, got)
		}
	}
}

func TestExtractJSON_NonWrapperObjectKeptWhole(t *testing.T) {
	input := `{"ilr_level": "2+", "dialect": "MSA"}`
	got := ExtractJSON(input)
	obj, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("expected object preserved, got %#v", got)
	}
	if obj["dialect"] != "MSA" {
		t.Fatalf("unexpected object %#v", obj)
	}
}

func TestExtractJSON_SalvagesObjectLiterals(t *testing.T) {
	// First literal is malformed, the rest are individually valid
	input := `{"word_ar": } garbage {"word_ar": "قلم"} and {"word_ar": "كتاب"}`
	got := ExtractJSON(input)
	arr, ok := got.([]any)
	if !ok || len(arr) != 2 {
		t.Fatalf("expected 2 salvaged objects, got %#v", got)
	}
}

func TestExtractJSON_NothingRecoverable(t *testing.T) {
	if got := ExtractJSON("I cannot answer that question."); got != nil {
		t.Fatalf("expected nil for unrecoverable input, got %#v", got)
	}
	if got := ExtractJSON(""); got != nil {
		t.Fatalf("expected nil for empty input, got %#v", got)
	}
}

func TestExtractJSON_BracesInsideStrings(t *testing.T) {
	input := `prefix {"text": "use } and { freely"} suffix`
	got := ExtractJSON(input)
	obj, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %#v", got)
	}
	if obj["text"] != "use } and { freely" {
		t.Fatalf("string braces mishandled: %#v", obj)
	}
}
