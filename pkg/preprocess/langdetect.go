// Package preprocess prepares raw text for extraction: language detection,
// heuristic coreference resolution, sentence segmentation, and overlapping
// sentence windows for cross-sentence relation extraction.
package preprocess

import "strings"

// Language is a supported language code.
type Language string

const (
	LangEnglish Language = "en"
	LangGerman  Language = "de"
	LangFrench  Language = "fr"
	LangSpanish Language = "es"
)

// Small high-frequency stop-word lists per language. Detection compares how
// many tokens of the input appear in each list; ties resolve to English.
var stopWords = map[Language]map[string]bool{
	LangEnglish: toSet("the", "a", "an", "and", "or", "of", "in", "on", "is",
		"was", "were", "to", "for", "with", "by", "it", "that", "this", "at",
		"from", "as", "are", "be", "has", "have", "not", "but", "its"),
	LangGerman: toSet("der", "die", "das", "und", "oder", "von", "in", "ist",
		"war", "zu", "für", "mit", "durch", "es", "dass", "diese", "ein",
		"eine", "auf", "aus", "als", "sind", "hat", "nicht", "auch", "dem"),
	LangFrench: toSet("le", "la", "les", "et", "ou", "de", "des", "dans",
		"est", "était", "à", "pour", "avec", "par", "il", "elle", "que", "ce",
		"une", "un", "sur", "du", "en", "sont", "pas", "aussi", "au"),
	LangSpanish: toSet("el", "la", "los", "las", "y", "o", "de", "en", "es",
		"era", "a", "para", "con", "por", "que", "este", "una", "un", "sobre",
		"del", "son", "no", "también", "se", "su", "al", "como"),
}

func toSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// IsStopWord reports whether a (lower-cased) word is a stop word in the
// given language.
func IsStopWord(lang Language, word string) bool {
	set, ok := stopWords[lang]
	if !ok {
		set = stopWords[LangEnglish]
	}
	return set[word]
}

// DetectLanguage guesses the language of a text by stop-word frequency.
// Unrecognizable input defaults to English.
func DetectLanguage(text string) Language {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return LangEnglish
	}

	best := LangEnglish
	bestScore := -1
	// Fixed iteration order keeps ties deterministic (en wins).
	for _, lang := range []Language{LangEnglish, LangGerman, LangFrench, LangSpanish} {
		score := 0
		for _, tok := range tokens {
			tok = strings.Trim(tok, ".,;:!?\"'()")
			if stopWords[lang][tok] {
				score++
			}
		}
		if score > bestScore {
			best = lang
			bestScore = score
		}
	}
	return best
}
