package entities

// TranscriptSource records how a transcript was obtained
type TranscriptSource string

const (
	TranscriptSourceCache      TranscriptSource = "cache"
	TranscriptSourceCaptions   TranscriptSource = "captions"
	TranscriptSourceRecognizer TranscriptSource = "recognizer"
)

// Word represents a single recognized word with time and confidence info
type Word struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// TranscriptSegment is a contiguous, time-bounded span of transcript text.
// Segments are time-ordered and non-overlapping after merge; End >= Start.
type TranscriptSegment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words,omitempty"`
}

// Transcript is the full transcription result for one source
type Transcript struct {
	Text            string              `json:"text"`
	Segments        []TranscriptSegment `json:"segments"`
	Language        string              `json:"language,omitempty"`
	SourceKind      TranscriptSource    `json:"source_kind"`
	Confidence      float64             `json:"confidence"`
	IsAutoGenerated bool                `json:"is_auto_generated,omitempty"`
}

// Duration returns the end time of the last segment in seconds
func (t Transcript) Duration() float64 {
	if len(t.Segments) == 0 {
		return 0
	}
	return t.Segments[len(t.Segments)-1].End
}

// WordCount returns the number of whitespace-separated tokens in the text
func (t Transcript) WordCount() int {
	n := 0
	inWord := false
	for _, r := range t.Text {
		if r == ' ' || r == '\n' || r == '\t' {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	return n
}
