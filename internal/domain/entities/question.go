package entities

// QuestionType discriminates the supported question shapes
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeTrueFalse      QuestionType = "true_false"
	QuestionTypeFillBlank      QuestionType = "fill_blank"
	QuestionTypeOpenEnded      QuestionType = "open_ended"
)

// Phase determines when a question is presented relative to playback
type Phase string

const (
	PhasePre   Phase = "pre"
	PhaseWhile Phase = "while"
	PhasePost  Phase = "post"
)

// QuestionOption is one answer choice of a multiple_choice question
type QuestionOption struct {
	TextAr    string `json:"text_ar"`
	TextEn    string `json:"text_en,omitempty"`
	IsCorrect bool   `json:"is_correct"`
}

// Question is a generated comprehension question in canonical shape.
// Only the fields required by its Type are populated.
type Question struct {
	ID     string       `json:"id"`
	Type   QuestionType `json:"type"`
	Phase  Phase        `json:"phase"`
	Skill  string       `json:"skill,omitempty"`
	TextAr string       `json:"question_ar"`
	TextEn string       `json:"question_en,omitempty"`

	// multiple_choice
	Options []QuestionOption `json:"options,omitempty"`

	// true_false
	CorrectAnswer *bool `json:"correct_answer,omitempty"`

	// fill_blank
	BlankAnswer string `json:"blank_answer,omitempty"`

	// open_ended
	SampleAnswer string `json:"sample_answer,omitempty"`

	ExplanationAr string `json:"explanation_ar,omitempty"`
	ExplanationEn string `json:"explanation_en,omitempty"`

	// while-phase questions surface at this playback position
	TimestampSeconds *float64 `json:"timestamp_seconds,omitempty"`
}

// CorrectOptionCount returns how many options are marked correct
func (q Question) CorrectOptionCount() int {
	n := 0
	for _, o := range q.Options {
		if o.IsCorrect {
			n++
		}
	}
	return n
}
