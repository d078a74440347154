package preprocess

import (
	"regexp"
	"strings"
)

// Abbreviations that end with a period but do not end a sentence.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true,
	"inc": true, "ltd": true, "corp": true, "co": true, "vs": true,
	"etc": true, "e.g": true, "i.e": true, "jr": true, "sr": true,
	"st": true, "no": true, "fig": true, "vol": true, "approx": true,
}

var sentenceEnd = regexp.MustCompile(`[.!?]+["')\]]?\s+`)

// Sentence is one segmented sentence with its character offsets in the
// original text.
type Sentence struct {
	Text  string
	Start int
	End   int
}

// SplitSentences segments text into sentences. The splitter is deterministic
// and abbreviation-aware; it never needs a model.
func SplitSentences(text string) []Sentence {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var sentences []Sentence
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		candidate := text[start:loc[1]]
		if isAbbreviationBoundary(text[start:loc[0]]) {
			continue
		}
		trimmed := strings.TrimSpace(candidate)
		if trimmed != "" {
			sentences = append(sentences, Sentence{
				Text:  trimmed,
				Start: start,
				End:   loc[1],
			})
		}
		start = loc[1]
	}

	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, Sentence{Text: rest, Start: start, End: len(text)})
	}
	return sentences
}

// isAbbreviationBoundary reports whether the text up to the punctuation ends
// in a known abbreviation or a single initial, in which case the period is
// not a sentence boundary.
func isAbbreviationBoundary(before string) bool {
	fields := strings.Fields(before)
	if len(fields) == 0 {
		return false
	}
	last := strings.ToLower(strings.TrimRight(fields[len(fields)-1], "."))
	if abbreviations[last] {
		return true
	}
	// Single capital initial, e.g. "J." in "J. Smith".
	return len(last) == 1 && last >= "a" && last <= "z"
}

// CountSentences is a fast sentence-count heuristic used to decide whether
// windowing is worthwhile, without running full segmentation.
func CountSentences(text string) int {
	count := len(regexp.MustCompile(`[.!?][\s\n]`).FindAllString(text, -1))
	trimmed := strings.TrimRight(text, " \t\n")
	if strings.HasSuffix(trimmed, ".") || strings.HasSuffix(trimmed, "!") || strings.HasSuffix(trimmed, "?") {
		count++
	}
	return count
}
