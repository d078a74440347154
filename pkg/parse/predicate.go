package parse

import (
	"regexp"
	"strings"
)

// predicateMap folds common natural-language predicates into UPPER_SNAKE
// relation types. Longer patterns are checked first via orderedPredicates.
var predicateMap = map[string]string{
	"works at":    "WORKS_AT",
	"works for":   "WORKS_FOR",
	"created by":  "CREATED_BY",
	"created":     "CREATED",
	"directed by": "DIRECTED_BY",
	"directed":    "DIRECTED",
	"produced by": "PRODUCED_BY",
	"produced":    "PRODUCED",
	"stars in":    "STARS_IN",
	"founded by":  "FOUNDED_BY",
	"founded":     "FOUNDED",
	"born in":     "BORN_IN",
	"located in":  "LOCATED_IN",
	"part of":     "PART_OF",
	"member of":   "MEMBER_OF",
	"written by":  "WRITTEN_BY",
	"wrote":       "WROTE",
	"contains":    "CONTAINS",
	"uses":        "USES",
	"has":         "HAS",
	"is an":       "IS_A",
	"is a":        "IS_A",
	"based on":    "BASED_ON",
	"released":    "RELEASED",
	"published":   "PUBLISHED",
}

// orderedPredicates lists patterns longest-first so "works at" wins over a
// hypothetical "works" prefix.
var orderedPredicates = func() []string {
	keys := make([]string, 0, len(predicateMap))
	for k := range predicateMap {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && len(keys[j]) > len(keys[j-1]); j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}()

var nonTypeChars = regexp.MustCompile(`[^A-Z0-9_]`)

// NormalizePredicate folds a natural-language predicate into an UPPER_SNAKE
// relation type. A predicate starting with a known pattern maps to that
// pattern's type ("is a setting that can be tried" becomes "IS_A"); unknown
// predicates tokenize their first three words ("orbits around the sun"
// becomes "ORBITS_AROUND_THE").
func NormalizePredicate(predicate string) string {
	lower := strings.ToLower(strings.TrimSpace(predicate))
	if lower == "" {
		return "RELATED_TO"
	}

	for _, pattern := range orderedPredicates {
		if strings.HasPrefix(lower, pattern) {
			return predicateMap[pattern]
		}
	}

	words := strings.Fields(lower)
	if len(words) > 3 {
		words = words[:3]
	}
	typ := nonTypeChars.ReplaceAllString(strings.ToUpper(strings.Join(words, "_")), "")
	if typ == "" {
		return "RELATED_TO"
	}
	return typ
}
