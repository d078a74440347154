package extraction

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgee-io/kgee/pkg/config"
	"github.com/kgee-io/kgee/pkg/llm"
	"github.com/kgee-io/kgee/pkg/ner"
	"github.com/kgee-io/kgee/pkg/preprocess"
	"github.com/kgee-io/kgee/pkg/prompt"
)

// modelGateway scripts responses per model name.
type modelGateway struct {
	mu        sync.Mutex
	responses map[string]string
	errors    map[string]error
	calls     []string
}

func (g *modelGateway) Generate(_ context.Context, task llm.Task) (*llm.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, task.ModelOverride)
	if err, ok := g.errors[task.ModelOverride]; ok {
		return nil, err
	}
	if resp, ok := g.responses[task.ModelOverride]; ok {
		return &llm.Result{Content: resp}, nil
	}
	return &llm.Result{Content: "[]"}, nil
}

// logRecorder captures slog records for asserting structured events.
type logRecorder struct {
	mu      sync.Mutex
	records []logRecord
}

type logRecord struct {
	message string
	attrs   map[string]any
}

func (r *logRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *logRecorder) Handle(_ context.Context, rec slog.Record) error {
	attrs := make(map[string]any)
	rec.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})
	r.mu.Lock()
	r.records = append(r.records, logRecord{message: rec.Message, attrs: attrs})
	r.mu.Unlock()
	return nil
}

func (r *logRecorder) WithAttrs([]slog.Attr) slog.Handler { return r }
func (r *logRecorder) WithGroup(string) slog.Handler      { return r }

func (r *logRecorder) find(message string) []logRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []logRecord
	for _, rec := range r.records {
		if rec.message == message {
			found = append(found, rec)
		}
	}
	return found
}

func testCascadeRanks() []config.CascadeRankConfig {
	return []config.CascadeRankConfig{
		{Rank: 1, Model: "small", Method: config.MethodLLMOnly, EntityTimeoutS: 5, RelationTimeoutS: 5, MaxRetries: 1, RetryBackoffMultiplier: 1},
		{Rank: 2, Model: "large", Method: config.MethodLLMOnly, EntityTimeoutS: 5, RelationTimeoutS: 5, MaxRetries: 1, RetryBackoffMultiplier: 1},
		{Rank: 3, Model: "large", Method: config.MethodHybridNERLLM, EntityTimeoutS: 9999, RelationTimeoutS: 10, MaxRetries: 1, RetryBackoffMultiplier: 1},
	}
}

func newTestCascade(gw Gateway) *Cascade {
	executor := NewExecutor(gw, prompt.NewResolver(nil, true))
	registry := ner.NewRegistry()
	consolidator := NewConsolidator(ConsolidatorConfig{}, nil)
	windower := preprocess.NewWindower(3, 1, 5)
	pipeline := NewPipeline(config.DefaultPipeline(), executor, registry, consolidator, windower, config.Features{}, 3)
	return NewCascade(testCascadeRanks(), executor, registry, pipeline)
}

func TestCascadeFallbackLoggedOnce(t *testing.T) {
	recorder := &logRecorder{}
	old := slog.Default()
	slog.SetDefault(slog.New(recorder))
	defer slog.SetDefault(old)

	gw := &modelGateway{
		errors:    map[string]error{"small": &llm.Error{Provider: "local", Model: "small", Err: context.DeadlineExceeded}},
		responses: map[string]string{"large": `[{"name": "OnlyOne", "type": "CONCEPT"}]`},
	}
	cascade := newTestCascade(gw)

	entities, err := cascade.ExtractEntities(context.Background(), "some text", "", "doc-5")
	require.NoError(t, err)
	assert.Len(t, entities, 1, "final entity count equals rank 2's output")

	fallbacks := recorder.find("cascade_fallback")
	require.Len(t, fallbacks, 1, "exactly one cascade_fallback event")
	assert.EqualValues(t, 1, fallbacks[0].attrs["from_rank"])
	assert.EqualValues(t, 2, fallbacks[0].attrs["to_rank"])
	assert.Equal(t, "TimeoutError", fallbacks[0].attrs["reason"])
}

func TestCascadeAllRanksFailRaisesLastError(t *testing.T) {
	gw := &modelGateway{
		errors: map[string]error{
			"small": &llm.Error{Provider: "local", Model: "small", Err: assertErr("rank1 down")},
			"large": &llm.Error{Provider: "local", Model: "large", Err: assertErr("rank2 down")},
		},
	}
	cascade := newTestCascade(gw)

	// Relations fall through all three ranks (rank 3 also uses the LLM).
	_, err := cascade.ExtractRelations(context.Background(), "text", "", "doc", nil)
	require.Error(t, err)

	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, "large", llmErr.Model)
}

func TestCascadeHybridRankUsesNER(t *testing.T) {
	gw := &modelGateway{
		errors: map[string]error{
			"small": &llm.Error{Err: assertErr("down")},
			"large": &llm.Error{Err: assertErr("down")},
		},
	}
	cascade := newTestCascade(gw)

	// Entity extraction succeeds at rank 3 without the LLM.
	entities, err := cascade.ExtractEntities(context.Background(),
		"Microsoft was founded by Bill Gates.", "", "doc")
	require.NoError(t, err)

	var names []string
	for _, e := range entities {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "Microsoft")
	assert.Contains(t, names, "Bill Gates")
}

func TestCascadeCancelledMidRankDoesNotTryNextRank(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gw := &modelGateway{
		errors: map[string]error{"small": &llm.Error{Err: assertErr("down")}},
	}
	cascade := newTestCascade(gw)
	cancel()

	_, err := cascade.ExtractEntities(ctx, "text", "", "doc")
	require.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, len(gw.calls), 1)
}

func TestCascadeCallBudget(t *testing.T) {
	gw := &modelGateway{
		errors: map[string]error{
			"small": &llm.Error{Err: assertErr("down")},
			"large": &llm.Error{Err: assertErr("down")},
		},
	}
	cascade := newTestCascade(gw)

	start := time.Now()
	_, err := cascade.ExtractRelations(context.Background(), "text", "", "doc", nil)
	require.Error(t, err)

	// Gateway calls are bounded by the sum of per-rank retry budgets.
	budget := 0
	for _, rank := range cascade.Ranks() {
		budget += rank.MaxRetries
	}
	assert.LessOrEqual(t, gw.callCountTotal(), budget)
	assert.Less(t, time.Since(start), 30*time.Second)
}

func (g *modelGateway) callCountTotal() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
