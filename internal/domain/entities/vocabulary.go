package entities

// VocabularyItem is one extracted vocabulary entry in canonical shape
type VocabularyItem struct {
	ID           string   `json:"id"`
	WordAr       string   `json:"word_ar"`
	WordEn       string   `json:"word_en"`
	Root         string   `json:"root,omitempty"`
	PartOfSpeech string   `json:"part_of_speech,omitempty"`
	Definitions  []string `json:"definitions,omitempty"`
	Example      string   `json:"example,omitempty"`
}
