package parse

import "regexp"

var (
	singleQuoteHead = regexp.MustCompile(`[\[{]\s*{?\s*'`)

	// Structural single-quote rewrites, applied only when the document head
	// looks single-quote-delimited. The patterns touch quotes adjacent to
	// JSON structure so apostrophes inside values survive.
	sqKeyColon    = regexp.MustCompile(`'\s*:`)
	sqColonValue  = regexp.MustCompile(`:\s*'`)
	sqValueComma  = regexp.MustCompile(`'\s*,`)
	sqCommaKey    = regexp.MustCompile(`,\s*'`)
	sqValueBrace  = regexp.MustCompile(`'\s*}`)
	sqValueBrack  = regexp.MustCompile(`'\s*]`)
	sqBrackValue  = regexp.MustCompile(`\[\s*'`)
	sqBraceKey    = regexp.MustCompile(`{\s*'`)

	pyNone  = regexp.MustCompile(`\bNone\b`)
	pyTrue  = regexp.MustCompile(`\bTrue\b`)
	pyFalse = regexp.MustCompile(`\bFalse\b`)

	trailingCommaArr = regexp.MustCompile(`,\s*]`)
	trailingCommaObj = regexp.MustCompile(`,\s*}`)

	missingCommaObjObj = regexp.MustCompile(`}\s*{`)
	missingCommaArrArr = regexp.MustCompile(`]\s*\[`)
	missingCommaArrObj = regexp.MustCompile(`]\s*{`)

	controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f]`)
)

// Repair applies common fixes to malformed JSON from LLM responses:
// single quotes used as delimiters (apostrophes in values are preserved),
// Python None/True/False literals, trailing commas, missing commas between
// adjacent objects, and stray control characters.
func Repair(jsonStr string) string {
	// Only rewrite single quotes when the head of the document is
	// single-quote-delimited. Blindly replacing quotes corrupts
	// apostrophes: {"source": "L'Histoire"} must survive untouched.
	head := jsonStr
	if len(head) > 50 {
		head = head[:50]
	}
	if singleQuoteHead.MatchString(head) {
		jsonStr = sqKeyColon.ReplaceAllString(jsonStr, `":`)
		jsonStr = sqColonValue.ReplaceAllString(jsonStr, `: "`)
		jsonStr = sqValueComma.ReplaceAllString(jsonStr, `",`)
		jsonStr = sqCommaKey.ReplaceAllString(jsonStr, `, "`)
		jsonStr = sqValueBrace.ReplaceAllString(jsonStr, `"}`)
		jsonStr = sqValueBrack.ReplaceAllString(jsonStr, `"]`)
		jsonStr = sqBrackValue.ReplaceAllString(jsonStr, `["`)
		jsonStr = sqBraceKey.ReplaceAllString(jsonStr, `{"`)
	}

	jsonStr = pyNone.ReplaceAllString(jsonStr, "null")
	jsonStr = pyTrue.ReplaceAllString(jsonStr, "true")
	jsonStr = pyFalse.ReplaceAllString(jsonStr, "false")

	jsonStr = trailingCommaArr.ReplaceAllString(jsonStr, "]")
	jsonStr = trailingCommaObj.ReplaceAllString(jsonStr, "}")

	jsonStr = missingCommaObjObj.ReplaceAllString(jsonStr, "},{")
	jsonStr = missingCommaArrArr.ReplaceAllString(jsonStr, "],[")
	jsonStr = missingCommaArrObj.ReplaceAllString(jsonStr, "],{")

	jsonStr = controlChars.ReplaceAllString(jsonStr, "")

	return jsonStr
}
