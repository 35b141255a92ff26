package transcription

import (
	"strings"

	"github.com/istimaa-app/istimaa/internal/domain/entities"
)

// phrase delimiters recognized in Arabic and Latin text
const phraseDelimiters = ".!?؟،,؛;"

// collapseRepeats removes recognizer hallucinations from one segment: a
// run of an identical word, or an identical punctuation-delimited phrase,
// repeated more than threshold times in a row is collapsed to a single
// occurrence. Runs at or below the threshold pass through untouched.
func collapseRepeats(seg entities.TranscriptSegment, threshold int) entities.TranscriptSegment {
	if threshold <= 0 {
		return seg
	}

	if len(seg.Words) > 0 {
		seg.Words = collapseWordRuns(seg.Words, threshold)
		seg.Text = joinWords(seg.Words)
		seg.Confidence = meanConfidence(seg.Words)
	} else {
		seg.Text = joinTokens(collapseTokenRuns(strings.Fields(seg.Text), threshold))
	}

	seg.Text = collapsePhraseRuns(seg.Text, threshold)
	return seg
}

func collapseWordRuns(words []entities.Word, threshold int) []entities.Word {
	var kept []entities.Word
	for i := 0; i < len(words); {
		j := i + 1
		for j < len(words) && words[j].Text == words[i].Text {
			j++
		}
		runLen := j - i
		if runLen > threshold {
			kept = append(kept, words[i])
		} else {
			kept = append(kept, words[i:j]...)
		}
		i = j
	}
	return kept
}

func collapseTokenRuns(tokens []string, threshold int) []string {
	var kept []string
	for i := 0; i < len(tokens); {
		j := i + 1
		for j < len(tokens) && tokens[j] == tokens[i] {
			j++
		}
		if j-i > threshold {
			kept = append(kept, tokens[i])
		} else {
			kept = append(kept, tokens[i:j]...)
		}
		i = j
	}
	return kept
}

// collapsePhraseRuns collapses consecutive identical punctuation-delimited
// phrases. Comparison ignores surrounding whitespace but the kept phrase
// retains its original form.
func collapsePhraseRuns(text string, threshold int) string {
	phrases := splitPhrases(text)
	if len(phrases) <= threshold {
		return text
	}

	var kept []string
	for i := 0; i < len(phrases); {
		j := i + 1
		for j < len(phrases) && normalizePhrase(phrases[j]) == normalizePhrase(phrases[i]) {
			j++
		}
		if j-i > threshold && normalizePhrase(phrases[i]) != "" {
			kept = append(kept, phrases[i])
		} else {
			kept = append(kept, phrases[i:j]...)
		}
		i = j
	}
	return strings.TrimSpace(strings.Join(kept, ""))
}

// splitPhrases cuts text after each delimiter, keeping the delimiter
// attached to its phrase.
func splitPhrases(text string) []string {
	var phrases []string
	start := 0
	for i, r := range text {
		if strings.ContainsRune(phraseDelimiters, r) {
			phrases = append(phrases, text[start:i+len(string(r))])
			start = i + len(string(r))
		}
	}
	if start < len(text) {
		phrases = append(phrases, text[start:])
	}
	return phrases
}

func normalizePhrase(p string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(p), phraseDelimiters))
}

func joinWords(words []entities.Word) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.Text
	}
	return strings.Join(parts, " ")
}

func joinTokens(tokens []string) string {
	return strings.Join(tokens, " ")
}

func meanConfidence(words []entities.Word) float64 {
	if len(words) == 0 {
		return 0
	}
	sum := 0.0
	for _, w := range words {
		sum += w.Confidence
	}
	return sum / float64(len(words))
}
