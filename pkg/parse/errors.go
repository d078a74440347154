// Package parse extracts JSON arrays of entities or relationships from
// free-form LLM output. It tolerates markdown fences, surrounding prose,
// Python literals, trailing or missing commas, and single-quote-delimited
// JSON, and salvages individual objects when the array as a whole is
// unrecoverable.
package parse

import "fmt"

// ParseError reports that no strategy could recover a JSON array from the
// response. It carries the last strategy tried and a bounded input preview.
type ParseError struct {
	Strategy string
	Preview  string
}

// Error returns the formatted error message.
func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse LLM response (strategy %s): %q", e.Strategy, e.Preview)
}

// previewLimit bounds how much raw input a ParseError carries.
const previewLimit = 500

func newParseError(strategy, input string) *ParseError {
	if len(input) > previewLimit {
		input = input[:previewLimit]
	}
	return &ParseError{Strategy: strategy, Preview: input}
}
