package preprocess

import (
	"log/slog"
	"sort"
	"strings"
)

// pronoun categories drive antecedent type preference.
type pronounClass int

const (
	pronounPerson pronounClass = iota
	pronounThing
	pronounRelative
)

var pronounsByLang = map[Language]map[string]pronounClass{
	LangEnglish: {
		"he": pronounPerson, "she": pronounPerson, "him": pronounPerson,
		"her": pronounPerson, "his": pronounPerson, "hers": pronounPerson,
		"himself": pronounPerson, "herself": pronounPerson,
		"they": pronounPerson, "them": pronounPerson, "their": pronounPerson,
		"theirs": pronounPerson, "themselves": pronounPerson,
		"it": pronounThing, "its": pronounThing, "itself": pronounThing,
		"who": pronounRelative, "whom": pronounRelative, "whose": pronounRelative,
	},
	LangGerman: {
		"er": pronounPerson, "ihm": pronounPerson, "ihn": pronounPerson,
		"sie": pronounPerson, "ihr": pronounPerson, "ihnen": pronounPerson,
		"es": pronounThing,
	},
	LangFrench: {
		"il": pronounThing, "elle": pronounThing, "lui": pronounPerson,
		"eux": pronounPerson, "elles": pronounPerson,
		"cela": pronounThing, "ceci": pronounThing,
		"qui": pronounRelative, "dont": pronounRelative,
	},
	LangSpanish: {
		"él": pronounPerson, "ella": pronounPerson, "ellos": pronounPerson,
		"ellas": pronounPerson,
		"ello": pronounThing, "esto": pronounThing, "eso": pronounThing,
		"quien": pronounRelative, "quienes": pronounRelative,
	},
}

// Antecedent type preferences per pronoun class, in universal entity types.
var preferredTypes = map[pronounClass]map[string]bool{
	pronounPerson: {"PERSON": true, "ORGANIZATION": true},
	pronounThing: {"ORGANIZATION": true, "PRODUCT": true,
		"TECHNOLOGY": true, "CONCEPT": true},
	pronounRelative: nil, // any type
}

// NamedEntity is the minimal view of a tagged entity the resolver needs.
type NamedEntity struct {
	Name     string
	Category string // universal entity type
	Start    int
	End      int
}

// EntityTagger produces named entities with character offsets. The NER
// baseline satisfies this; the resolver never loads models itself.
type EntityTagger interface {
	Entities(text string) []NamedEntity
}

// CorefResolver rewrites pronouns to their most recent plausible antecedent
// using simple recency and category heuristics. It never fails: any problem
// returns the input unchanged with a zero resolution count.
type CorefResolver struct {
	lang        Language
	maxDistance int
	tagger      EntityTagger
}

// NewCorefResolver creates a resolver. maxDistance is the number of
// preceding sentences searched for an antecedent.
func NewCorefResolver(lang Language, maxDistance int, tagger EntityTagger) *CorefResolver {
	if maxDistance <= 0 {
		maxDistance = 3
	}
	return &CorefResolver{lang: lang, maxDistance: maxDistance, tagger: tagger}
}

type resolution struct {
	start       int
	end         int
	replacement string
}

// Resolve rewrites resolvable pronouns in text and returns the rewritten
// text with the number of resolutions applied.
func (r *CorefResolver) Resolve(text string) (string, int) {
	if r == nil || r.tagger == nil || strings.TrimSpace(text) == "" {
		return text, 0
	}

	pronouns := pronounsByLang[r.lang]
	if pronouns == nil {
		pronouns = pronounsByLang[LangEnglish]
	}

	entities := r.tagger.Entities(text)
	if len(entities) == 0 {
		return text, 0
	}

	sentences := SplitSentences(text)
	sentIndexOf := func(pos int) int {
		for i, s := range sentences {
			if pos >= s.Start && pos < s.End {
				return i
			}
		}
		return len(sentences) - 1
	}

	var resolutions []resolution
	for _, tok := range tokenize(text) {
		class, ok := pronouns[strings.ToLower(tok.text)]
		if !ok {
			continue
		}
		sentIdx := sentIndexOf(tok.start)
		antecedent := r.findAntecedent(tok.start, sentIdx, class, entities, sentIndexOf)
		if antecedent == nil {
			continue
		}
		resolutions = append(resolutions, resolution{
			start:       tok.start,
			end:         tok.end,
			replacement: antecedent.Name,
		})
	}

	if len(resolutions) == 0 {
		return text, 0
	}

	// Rewrite back to front so earlier offsets stay valid.
	sort.Slice(resolutions, func(i, j int) bool { return resolutions[i].start > resolutions[j].start })
	resolved := text
	for _, res := range resolutions {
		resolved = resolved[:res.start] + res.replacement + resolved[res.end:]
	}

	slog.Debug("coreference_resolved",
		"resolution_count", len(resolutions),
		"text_length_change", len(resolved)-len(text))

	return resolved, len(resolutions)
}

// findAntecedent scores candidate entities preceding the pronoun:
// +10 for a category match, +2 per sentence of remaining budget, +5 for the
// same sentence. Ties break by recency.
func (r *CorefResolver) findAntecedent(
	pronounStart, sentIdx int,
	class pronounClass,
	entities []NamedEntity,
	sentIndexOf func(int) int,
) *NamedEntity {
	preferred := preferredTypes[class]

	bestScore := -1
	bestStart := -1
	var best *NamedEntity

	for i := range entities {
		ent := &entities[i]
		if ent.End >= pronounStart {
			continue
		}
		entSent := sentIndexOf(ent.Start)
		distance := sentIdx - entSent
		if distance > r.maxDistance {
			continue
		}

		score := 0
		if preferred == nil || preferred[ent.Category] {
			score += 10
		}
		score += (r.maxDistance - distance) * 2
		if distance == 0 {
			score += 5
		}

		if score > bestScore || (score == bestScore && ent.Start > bestStart) {
			bestScore = score
			bestStart = ent.Start
			best = ent
		}
	}
	return best
}

type token struct {
	text  string
	start int
	end   int
}

// tokenize splits text into word tokens with offsets.
func tokenize(text string) []token {
	var tokens []token
	start := -1
	for i, r := range text {
		isWord := r == '\'' || r == '-' ||
			('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') ||
			('0' <= r && r <= '9') || r > 127
		if isWord {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, token{text: text[start:i], start: start, end: i})
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{text: text[start:], start: start, end: len(text)})
	}
	return tokens
}
