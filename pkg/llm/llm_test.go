package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgee-io/kgee/pkg/config"
)

type scriptedBackend struct {
	name    string
	content string
	err     error
	calls   int
}

func (b *scriptedBackend) Name() string { return b.name }

func (b *scriptedBackend) Generate(_ context.Context, _ string, _ Task) (*Result, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	return &Result{Content: b.content, TokensInput: 10, TokensOutput: 5, CostUSD: 0.001}, nil
}

func newTestRegistry(models map[config.LLMUseCase]string) *ModelRegistry {
	return NewModelRegistry(&StaticModelSource{Models: models, Fallback: "fallback-model"}, time.Minute)
}

func TestGatewayRoutesAndRecords(t *testing.T) {
	backend := &scriptedBackend{name: "local", content: "hello"}
	ledger := NewCostLedger()
	gw := NewGateway([]Backend{backend}, "local",
		newTestRegistry(map[config.LLMUseCase]string{config.UseCasePlanner: "small-model"}), ledger)

	result, err := gw.Generate(context.Background(), Task{
		Kind:    TaskGeneration,
		UseCase: config.UseCasePlanner,
		Prompt:  "plan something",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", result.Content)
	assert.Equal(t, "local", result.Provider)
	assert.Equal(t, "small-model", result.Model)

	usage := ledger.Snapshot(MonthKey(time.Now()))
	key := UsageKey{Provider: "local", Model: "small-model", TaskKind: TaskGeneration}
	require.Contains(t, usage, key)
	assert.Equal(t, 1, usage[key].Calls)
	assert.Equal(t, 10, usage[key].TokensInput)
}

func TestGatewayModelOverrideWins(t *testing.T) {
	backend := &scriptedBackend{name: "local", content: "x"}
	gw := NewGateway([]Backend{backend}, "local", newTestRegistry(nil), nil)

	result, err := gw.Generate(context.Background(), Task{
		ModelOverride: "explicit-model",
		UseCase:       config.UseCaseSynthesis,
	})
	require.NoError(t, err)
	assert.Equal(t, "explicit-model", result.Model)
}

func TestGatewayWrapsBackendErrors(t *testing.T) {
	backend := &scriptedBackend{name: "local", err: errors.New("connection refused")}
	gw := NewGateway([]Backend{backend}, "local", newTestRegistry(nil), nil)

	_, err := gw.Generate(context.Background(), Task{UseCase: config.UseCasePlanner})
	require.Error(t, err)

	var llmErr *Error
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, "local", llmErr.Provider)
}

func TestLocalBackendGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response": "generated text", "prompt_eval_count": 42, "eval_count": 17, "done": true}`))
	}))
	defer server.Close()

	backend := NewLocalBackend(server.URL)
	result, err := backend.Generate(context.Background(), "test-model", Task{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "generated text", result.Content)
	assert.Equal(t, 42, result.TokensInput)
	assert.Equal(t, 17, result.TokensOutput)
	assert.Zero(t, result.CostUSD)
}

func TestLocalBackendErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	backend := NewLocalBackend(server.URL)
	_, err := backend.Generate(context.Background(), "missing", Task{})
	var llmErr *Error
	require.True(t, errors.As(err, &llmErr))
}

func TestLocalBackendHonorsDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	backend := NewLocalBackend(server.URL)
	_, err := backend.Generate(ctx, "slow", Task{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestModelRegistryTTL(t *testing.T) {
	source := &countingSource{model: "first"}
	registry := NewModelRegistry(source, 50*time.Millisecond)

	assert.Equal(t, "first", registry.ResolveModel(context.Background(), config.UseCasePlanner))
	assert.Equal(t, "first", registry.ResolveModel(context.Background(), config.UseCasePlanner))
	assert.Equal(t, 1, source.calls, "second resolve within TTL must hit the cache")

	time.Sleep(60 * time.Millisecond)
	source.model = "second"
	assert.Equal(t, "second", registry.ResolveModel(context.Background(), config.UseCasePlanner))
	assert.Equal(t, 2, source.calls)
}

func TestModelRegistryInvalidate(t *testing.T) {
	source := &countingSource{model: "a"}
	registry := NewModelRegistry(source, time.Hour)

	registry.ResolveModel(context.Background(), config.UseCasePlanner)
	source.model = "b"
	registry.Invalidate()
	assert.Equal(t, "b", registry.ResolveModel(context.Background(), config.UseCasePlanner))
}

func TestModelRegistryStaleFallback(t *testing.T) {
	source := &countingSource{model: "good"}
	registry := NewModelRegistry(source, time.Millisecond)

	assert.Equal(t, "good", registry.ResolveModel(context.Background(), config.UseCasePlanner))
	time.Sleep(5 * time.Millisecond)
	source.err = errors.New("config service down")
	assert.Equal(t, "good", registry.ResolveModel(context.Background(), config.UseCasePlanner))
}

type countingSource struct {
	model string
	err   error
	calls int
}

func (s *countingSource) ModelForUseCase(context.Context, config.LLMUseCase) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.model, nil
}

func TestCostLedgerAggregates(t *testing.T) {
	ledger := NewCostLedger()
	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return fixed }

	ledger.Record("local", "m", TaskExtraction, 100, 50, 0)
	ledger.Record("local", "m", TaskExtraction, 200, 80, 0)
	ledger.Record("gemini", "gemini-2.5-flash", TaskGeneration, 10, 5, 0.002)

	usage := ledger.Snapshot("2026-08")
	key := UsageKey{Provider: "local", Model: "m", TaskKind: TaskExtraction}
	require.Contains(t, usage, key)
	assert.Equal(t, 2, usage[key].Calls)
	assert.Equal(t, 300, usage[key].TokensInput)
	assert.Equal(t, 130, usage[key].TokensOutput)

	assert.Len(t, ledger.Months(), 1)
}
