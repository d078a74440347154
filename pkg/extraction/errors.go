// Package extraction implements the extraction core: the stage executor
// with timeout/retry/fallback handling, the NER-first pipeline and the
// legacy three-rank cascade, the multi-pass gleaning loop, and the entity
// consolidator.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kgee-io/kgee/pkg/llm"
	"github.com/kgee-io/kgee/pkg/parse"
)

// TimeoutError reports a stage deadline breach.
type TimeoutError struct {
	Stage   string
	Timeout time.Duration
}

// Error returns the formatted message.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("stage %s timed out after %s", e.Stage, e.Timeout)
}

// IsRetriable reports whether an error should be retried by the stage
// executor: timeouts, gateway failures, and parse failures are retriable;
// everything else (cancellation included) is not.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return true
	}
	var llmErr *llm.Error
	if errors.As(err, &llmErr) {
		return true
	}
	var parseErr *parse.ParseError
	if errors.As(err, &parseErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// reasonFor labels an error for cascade_fallback logging.
func reasonFor(err error) string {
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) || errors.Is(err, context.DeadlineExceeded) {
		return "TimeoutError"
	}
	var llmErr *llm.Error
	if errors.As(err, &llmErr) {
		return "LLMError"
	}
	var parseErr *parse.ParseError
	if errors.As(err, &parseErr) {
		return "ParseError"
	}
	return "Internal"
}
