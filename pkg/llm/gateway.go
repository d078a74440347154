// Package llm provides the gateway facade over the LLM backends: a uniform
// Generate contract, model routing through a TTL-cached registry, and a
// month-keyed cost ledger. The gateway transports requests and reports
// failures; it never parses or validates response content.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kgee-io/kgee/pkg/config"
)

// TaskKind classifies what the caller does with the response.
type TaskKind string

const (
	TaskExtraction     TaskKind = "extraction"
	TaskGeneration     TaskKind = "generation"
	TaskClassification TaskKind = "classification"
)

// Complexity and Quality hint at model sizing; they travel with the task for
// ledger attribution and future routing.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

type Quality string

const (
	QualityLow      Quality = "low"
	QualityBalanced Quality = "balanced"
	QualityMedium   Quality = "medium"
	QualityHigh     Quality = "high"
)

// Task is one generation request.
type Task struct {
	Kind          TaskKind
	Prompt        string
	SystemPrompt  string
	Complexity    Complexity
	Quality       Quality
	MaxTokens     int
	Temperature   float64
	ModelOverride string
	// UseCase resolves the model through the registry when no explicit
	// override is set.
	UseCase config.LLMUseCase
}

// Result is the uniform response envelope.
type Result struct {
	Content      string
	Provider     string
	Model        string
	TokensInput  int
	TokensOutput int
	CostUSD      float64
	LatencyMS    int64
}

// Error is the gateway failure type (unreachable backend, non-successful
// status, or deadline exceeded). Stage executors treat it as retriable.
type Error struct {
	Provider string
	Model    string
	Err      error
}

// Error returns the formatted message.
func (e *Error) Error() string {
	return fmt.Sprintf("llm backend %s (model %s): %v", e.Provider, e.Model, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Backend is one concrete LLM provider.
type Backend interface {
	// Name identifies the provider in results and the ledger.
	Name() string
	// Generate runs one completion. Implementations honor ctx deadlines.
	Generate(ctx context.Context, model string, task Task) (*Result, error)
}

// Gateway routes tasks to backends and records usage.
type Gateway struct {
	backends        map[string]Backend
	defaultProvider string
	registry        *ModelRegistry
	ledger          *CostLedger
}

// NewGateway creates a gateway over the given backends. defaultProvider
// names the backend used for models without a provider-specific prefix.
func NewGateway(backends []Backend, defaultProvider string, registry *ModelRegistry, ledger *CostLedger) *Gateway {
	byName := make(map[string]Backend, len(backends))
	for _, b := range backends {
		byName[b.Name()] = b
	}
	return &Gateway{
		backends:        byName,
		defaultProvider: defaultProvider,
		registry:        registry,
		ledger:          ledger,
	}
}

// Generate resolves the model (explicit override first, then the registry by
// use case), dispatches to the owning backend, and records the outcome into
// the cost ledger.
func (g *Gateway) Generate(ctx context.Context, task Task) (*Result, error) {
	model := task.ModelOverride
	if model == "" {
		model = g.registry.ResolveModel(ctx, task.UseCase)
	}

	backend := g.backendForModel(model)
	if backend == nil {
		return nil, &Error{Provider: g.defaultProvider, Model: model,
			Err: fmt.Errorf("no backend configured")}
	}

	start := time.Now()
	result, err := backend.Generate(ctx, model, task)
	if err != nil {
		var gwErr *Error
		if e, ok := err.(*Error); ok {
			gwErr = e
		} else {
			gwErr = &Error{Provider: backend.Name(), Model: model, Err: err}
		}
		slog.Warn("llm_generate_failed",
			"provider", backend.Name(),
			"model", model,
			"task_kind", string(task.Kind),
			"error", gwErr.Err)
		return nil, gwErr
	}

	result.LatencyMS = time.Since(start).Milliseconds()
	result.Provider = backend.Name()
	result.Model = model

	if g.ledger != nil {
		g.ledger.Record(result.Provider, result.Model, task.Kind,
			result.TokensInput, result.TokensOutput, result.CostUSD)
	}

	slog.Debug("llm_generate_completed",
		"provider", result.Provider,
		"model", model,
		"task_kind", string(task.Kind),
		"tokens_in", result.TokensInput,
		"tokens_out", result.TokensOutput,
		"latency_ms", result.LatencyMS)

	return result, nil
}

// backendForModel picks the backend owning a model name. Gemini-prefixed
// models route to the gemini backend when present; everything else goes to
// the default provider.
func (g *Gateway) backendForModel(model string) Backend {
	if strings.HasPrefix(model, "gemini") {
		if b, ok := g.backends[string(config.ProviderGemini)]; ok {
			return b
		}
	}
	return g.backends[g.defaultProvider]
}
