package lesson

import (
	"fmt"

	"github.com/istimaa-app/istimaa/internal/domain/entities"
)

const systemPrompt = "You are an experienced teacher of Arabic as a foreign language. " +
	"You build listening-comprehension lessons from authentic Arabic audio transcripts. " +
	"Always answer with JSON only, no prose around it."

func analysisPrompt(transcript string) string {
	return fmt.Sprintf(`Analyze the following Arabic transcript for a language lesson.

Return a JSON object with exactly these fields:
- "ilr_level": estimated ILR listening difficulty as a number (e.g. 1, 1.5, 2, 2.5, 3)
- "dialect": the variety spoken, one of "MSA", "Egyptian", "Levantine", "Gulf", "Maghrebi", "Iraqi", "mixed"
- "title": a short Arabic title for the lesson

Transcript:
%s`, transcript)
}

func vocabularyPrompt(transcript string, count int) string {
	return fmt.Sprintf(`From the following Arabic transcript, select the %d most useful vocabulary items for an intermediate learner.

Return a JSON array where each item has:
- "word_ar": the word as it appears
- "word_en": English translation
- "root": the triliteral root, hyphen-separated (e.g. "ك-ت-ب"), or "" for loanwords
- "part_of_speech": noun, verb, adjective, adverb, particle or phrase
- "definitions": array of short English definitions
- "example": a short Arabic example sentence using the word

Transcript:
%s`, count, transcript)
}

func translationPrompt(transcript string) string {
	return fmt.Sprintf(`Translate the following Arabic transcript into natural English. Return a JSON object with a single field "translation".

Transcript:
%s`, transcript)
}

var phaseInstructions = map[entities.Phase]string{
	entities.PhasePre: "pre-listening questions that activate background knowledge and preview key vocabulary, " +
		"answerable before hearing the audio",
	entities.PhaseWhile: "while-listening questions tied to specific moments in the audio, each with a " +
		`"timestamp_seconds" field for when it should appear`,
	entities.PhasePost: "post-listening questions that check overall comprehension and invite reflection",
}

func questionsPrompt(transcript string, phase entities.Phase, count int) string {
	return fmt.Sprintf(`Write %d %s for the Arabic transcript below.

Return a JSON array. Each question has:
- "type": one of "multiple_choice", "true_false", "fill_blank", "open_ended"
- "phase": "%s"
- "question_ar" and "question_en": the question in Arabic and English
- "skill": the listening skill practiced (e.g. "gist", "detail", "inference")
- for multiple_choice: "options" (array of {"text_ar", "text_en", "is_correct"}) with exactly one correct option, and "explanation_ar"
- for true_false: "correct_answer" (boolean)
- for fill_blank: question text containing "____" and "blank_answer"
- for open_ended: "sample_answer"

Transcript:
%s`, count, phaseInstructions[phase], phase, transcript)
}
