package ner

import (
	"regexp"
	"strings"

	"github.com/kgee-io/kgee/pkg/preprocess"
)

// Mention is a single recognized entity with character offsets.
type Mention struct {
	Text  string
	Label string
	Start int
	End   int
}

// Model recognizes named entities for one language. Recognition is
// deterministic: the same text always yields the same mentions.
type Model struct {
	lang        preprocess.Language
	orgSuffixes map[string]bool
	honorifics  map[string]bool
	stopTitle   map[string]bool
}

var datePattern = regexp.MustCompile(`\b(?:\d{4}|(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2}(?:,\s*\d{4})?)\b`)
var moneyPattern = regexp.MustCompile(`[$€£]\s?\d[\d,.]*(?:\s?(?:million|billion|thousand))?`)
var percentPattern = regexp.MustCompile(`\b\d+(?:\.\d+)?\s?%`)
var numberPattern = regexp.MustCompile(`\b\d+(?:[.,]\d+)*\b`)

func newModel(lang preprocess.Language) *Model {
	m := &Model{
		lang: lang,
		orgSuffixes: map[string]bool{
			"inc": true, "inc.": true, "corp": true, "corp.": true,
			"corporation": true, "ltd": true, "ltd.": true, "llc": true,
			"gmbh": true, "ag": true, "sa": true, "s.a.": true,
			"co": true, "co.": true, "company": true, "group": true,
			"foundation": true, "institute": true, "university": true,
			"labs": true, "laboratories": true,
		},
		honorifics: map[string]bool{
			"mr": true, "mr.": true, "mrs": true, "mrs.": true,
			"ms": true, "ms.": true, "dr": true, "dr.": true,
			"prof": true, "prof.": true, "sir": true,
		},
		// Sentence-initial function words that look capitalized but are
		// never entity heads.
		stopTitle: map[string]bool{
			"the": true, "a": true, "an": true, "this": true, "that": true,
			"it": true, "he": true, "she": true, "they": true, "in": true,
			"on": true, "at": true, "der": true, "die": true, "das": true,
			"le": true, "la": true, "les": true, "el": true, "los": true,
		},
	}
	return m
}

// Recognize extracts entity mentions from text. Pattern matches (dates,
// quantities) win over capitalization runs on overlapping spans.
func (m *Model) Recognize(text string) []Mention {
	var mentions []Mention
	claimed := make([]bool, len(text))

	claim := func(start, end int) {
		for i := start; i < end && i < len(claimed); i++ {
			claimed[i] = true
		}
	}
	free := func(start, end int) bool {
		for i := start; i < end && i < len(claimed); i++ {
			if claimed[i] {
				return false
			}
		}
		return true
	}

	for _, loc := range moneyPattern.FindAllStringIndex(text, -1) {
		mentions = append(mentions, Mention{Text: text[loc[0]:loc[1]], Label: LabelMoney, Start: loc[0], End: loc[1]})
		claim(loc[0], loc[1])
	}
	for _, loc := range percentPattern.FindAllStringIndex(text, -1) {
		if free(loc[0], loc[1]) {
			mentions = append(mentions, Mention{Text: text[loc[0]:loc[1]], Label: LabelPercent, Start: loc[0], End: loc[1]})
			claim(loc[0], loc[1])
		}
	}
	for _, loc := range datePattern.FindAllStringIndex(text, -1) {
		if free(loc[0], loc[1]) {
			mentions = append(mentions, Mention{Text: text[loc[0]:loc[1]], Label: LabelDate, Start: loc[0], End: loc[1]})
			claim(loc[0], loc[1])
		}
	}

	for _, run := range m.titleCaseRuns(text) {
		if !free(run.start, run.end) {
			continue
		}
		label := m.classifyRun(text, run)
		mentions = append(mentions, Mention{Text: run.text, Label: label, Start: run.start, End: run.end})
		claim(run.start, run.end)
	}

	for _, loc := range numberPattern.FindAllStringIndex(text, -1) {
		if free(loc[0], loc[1]) {
			mentions = append(mentions, Mention{Text: text[loc[0]:loc[1]], Label: LabelCardinal, Start: loc[0], End: loc[1]})
			claim(loc[0], loc[1])
		}
	}

	sortMentions(mentions)
	return mentions
}

type capRun struct {
	text  string
	start int
	end   int
	words []string
	// prev is the lower-cased token immediately before the run, if any.
	prev string
	// sentenceInitial marks a run starting a sentence, where
	// capitalization carries no signal.
	sentenceInitial bool
}

// titleCaseRuns finds maximal runs of capitalized words.
func (m *Model) titleCaseRuns(text string) []capRun {
	type tok struct {
		text  string
		start int
		end   int
	}
	var toks []tok
	start := -1
	for i, r := range text {
		isWord := r == '\'' || r == '-' || r == '.' ||
			('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') ||
			('0' <= r && r <= '9') || r > 127
		if isWord {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			toks = append(toks, tok{text: strings.TrimRight(text[start:i], "."), start: start, end: i})
			if text[i-1] == '.' {
				toks[len(toks)-1].end = i - 1
			}
			start = -1
		}
	}
	if start >= 0 {
		toks = append(toks, tok{text: strings.TrimRight(text[start:], "."), start: start, end: len(text)})
		if strings.HasSuffix(text, ".") {
			toks[len(toks)-1].end = len(text) - 1
		}
	}

	isCap := func(s string) bool {
		if s == "" {
			return false
		}
		c := s[0]
		return c >= 'A' && c <= 'Z'
	}

	var runs []capRun
	i := 0
	for i < len(toks) {
		if !isCap(toks[i].text) || m.stopTitle[strings.ToLower(toks[i].text)] {
			i++
			continue
		}
		j := i
		for j+1 < len(toks) && isCap(toks[j+1].text) && toks[j+1].start-toks[j].end <= 1 {
			j++
		}
		run := capRun{
			start: toks[i].start,
			end:   toks[j].end,
			text:  text[toks[i].start:toks[j].end],
		}
		for k := i; k <= j; k++ {
			run.words = append(run.words, toks[k].text)
		}
		if i > 0 {
			run.prev = strings.ToLower(toks[i-1].text)
			run.sentenceInitial = strings.ContainsAny(text[toks[i-1].end:toks[i].start], ".!?")
		} else {
			run.sentenceInitial = true
		}
		runs = append(runs, run)
		i = j + 1
	}
	return runs
}

var knownLocations = map[string]bool{
	"albuquerque": true, "berlin": true, "paris": true, "london": true,
	"madrid": true, "munich": true, "seattle": true, "redmond": true,
	"new york": true, "san francisco": true, "tokyo": true, "beijing": true,
	"california": true, "germany": true, "france": true, "spain": true,
	"europe": true, "usa": true, "united states": true,
}

var knownOrgs = map[string]bool{
	"microsoft": true, "google": true, "github": true, "openai": true,
	"apple": true, "amazon": true, "ibm": true, "intel": true,
	"nvidia": true, "meta": true, "siemens": true, "sap": true,
}

// classifyRun assigns a raw label to a capitalized run using gazetteer and
// suffix cues; unresolvable single-word sentence-initial runs fall to MISC.
func (m *Model) classifyRun(text string, run capRun) string {
	lower := strings.ToLower(run.text)

	if knownOrgs[lower] {
		return LabelOrganization
	}
	if knownLocations[lower] {
		return LabelLocation
	}

	last := strings.ToLower(run.words[len(run.words)-1])
	if m.orgSuffixes[last] {
		return LabelOrganization
	}
	if m.honorifics[strings.ToLower(run.words[0])] {
		return LabelPerson
	}
	if run.prev != "" && (run.prev == "in" || run.prev == "at" || run.prev == "near" || run.prev == "from") {
		return LabelLocation
	}
	// Two TitleCase words with no other cue read as a person name.
	if len(run.words) == 2 && !run.sentenceInitial {
		return LabelPerson
	}
	if len(run.words) == 2 {
		return LabelPerson
	}
	if run.sentenceInitial && len(run.words) == 1 {
		return LabelMisc
	}
	return LabelMisc
}

func sortMentions(mentions []Mention) {
	for i := 1; i < len(mentions); i++ {
		for j := i; j > 0 && mentions[j].Start < mentions[j-1].Start; j-- {
			mentions[j], mentions[j-1] = mentions[j-1], mentions[j]
		}
	}
}
