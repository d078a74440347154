package research

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/kgee-io/kgee/pkg/config"
	"github.com/kgee-io/kgee/pkg/llm"
	"github.com/kgee-io/kgee/pkg/models"
	"github.com/kgee-io/kgee/pkg/prompt"
)

// Synthesizer builds the final cited answer from the accumulated contexts.
type Synthesizer struct {
	gateway          Gateway
	maxContextLength int
}

// NewSynthesizer creates a synthesizer. maxContextLength bounds the context
// block sent to the LLM (default 4000 characters).
func NewSynthesizer(gateway Gateway, maxContextLength int) *Synthesizer {
	if maxContextLength <= 0 {
		maxContextLength = 4000
	}
	return &Synthesizer{gateway: gateway, maxContextLength: maxContextLength}
}

// Synthesize produces the final answer. On any LLM failure a deterministic
// concatenation of the top-3 contexts is returned instead, so the answer is
// always non-empty.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, contexts []models.RetrievedContext) string {
	if len(contexts) == 0 {
		return "No information found to answer the query."
	}

	formatted := FormatContexts(contexts, s.maxContextLength)
	rendered := prompt.Render(prompt.SynthesisPrompt, map[string]string{
		"text":     query,
		"entities": formatted,
	})

	result, err := s.gateway.Generate(ctx, llm.Task{
		Kind:        llm.TaskGeneration,
		Prompt:      rendered,
		UseCase:     config.UseCaseSynthesis,
		Temperature: 0.3,
		MaxTokens:   1500,
	})
	if err != nil {
		slog.Error("synthesis_failed_using_fallback", "error", err)
		return FallbackSynthesis(query, contexts)
	}
	if strings.TrimSpace(result.Content) == "" {
		slog.Warn("synthesis_empty_using_fallback")
		return FallbackSynthesis(query, contexts)
	}
	return strings.TrimSpace(result.Content)
}

// FormatContexts renders contexts as "[<source> #<idx> | Score: x.xx]" blocks
// within the character budget. The last entry is truncated to fit when
// enough budget remains.
func FormatContexts(contexts []models.RetrievedContext, maxLength int) string {
	var lines []string
	current := 0

	for idx, ctx := range contexts {
		text := strings.TrimSpace(ctx.Text)
		if text == "" {
			continue
		}
		source := ctx.SourceChannel
		if source == "" {
			source = "unknown"
		}
		line := fmt.Sprintf("[%s #%d | Score: %.2f]\n%s\n", capitalize(source), idx+1, ctx.Score, text)

		if current+len(line) > maxLength {
			remaining := maxLength - current
			if remaining > 100 {
				truncated := text
				if len(truncated) > remaining-50 {
					truncated = truncated[:remaining-50] + "..."
				}
				lines = append(lines, fmt.Sprintf("[%s #%d | Score: %.2f]\n%s\n",
					capitalize(source), idx+1, ctx.Score, truncated))
			}
			break
		}
		lines = append(lines, line)
		current += len(line)
	}
	return strings.Join(lines, "\n")
}

// FallbackSynthesis concatenates the top-3 contexts by score. Deterministic
// and always non-empty for non-empty input.
func FallbackSynthesis(query string, contexts []models.RetrievedContext) string {
	top := make([]models.RetrievedContext, len(contexts))
	copy(top, contexts)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Score > top[j].Score })
	if len(top) > 3 {
		top = top[:3]
	}

	parts := []string{fmt.Sprintf("Information found for: %s\n", query)}
	for idx, ctx := range top {
		text := strings.TrimSpace(ctx.Text)
		if text == "" {
			continue
		}
		source := ctx.SourceChannel
		if source == "" {
			source = "unknown"
		}
		parts = append(parts, fmt.Sprintf("\n%d. [From %s]\n%s", idx+1, source, text))
	}
	return strings.Join(parts, "\n")
}

var citationPattern = regexp.MustCompile(`\[Source #(\d+)\]`)

// ExtractCitations returns the sorted distinct source numbers cited as
// [Source #N] in a synthesis.
func ExtractCitations(synthesis string) []int {
	seen := map[int]bool{}
	var cited []int
	for _, m := range citationPattern.FindAllStringSubmatch(synthesis, -1) {
		n := 0
		fmt.Sscanf(m[1], "%d", &n)
		if n > 0 && !seen[n] {
			seen[n] = true
			cited = append(cited, n)
		}
	}
	sort.Ints(cited)
	return cited
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
