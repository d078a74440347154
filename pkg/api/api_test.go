package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgee-io/kgee/pkg/config"
	"github.com/kgee-io/kgee/pkg/events"
	"github.com/kgee-io/kgee/pkg/extraction"
	"github.com/kgee-io/kgee/pkg/models"
	"github.com/kgee-io/kgee/pkg/research"
	"github.com/kgee-io/kgee/pkg/session"
)

// stubRunner walks the state through the full happy path.
type stubRunner struct {
	contexts []models.RetrievedContext
	answer   string
	delay    time.Duration
}

func (r *stubRunner) Run(ctx context.Context, state *models.ResearchState, observer research.Observer) *models.ResearchState {
	emit := func(step models.ResearchStep) {
		state.CurrentStep = step
		if observer != nil {
			observer.OnStateUpdate(*state)
		}
		if r.delay > 0 {
			select {
			case <-time.After(r.delay):
			case <-ctx.Done():
			}
		}
	}

	emit(models.StepDecomposing)
	state.SubQueries = []string{"sub query one"}
	emit(models.StepRetrieving)
	for i := range r.contexts {
		r.contexts[i].ResearchQuery = "sub query one"
		r.contexts[i].QueryIndex = 1
	}
	state.AllContexts = r.contexts
	state.Iteration = 1
	emit(models.StepAnalyzing)
	emit(models.StepSynthesizing)
	state.Synthesis = r.answer
	state.ExecutionSteps = append(state.ExecutionSteps, models.ExecutionStep{
		StepName:  "decompose_query",
		StartedAt: time.Now().UTC(),
		Status:    models.StepStatusCompleted,
	})
	state.CurrentStep = models.StepComplete
	if observer != nil {
		observer.OnStateUpdate(*state)
	}
	return state
}

func newTestServer(runner session.SupervisorRunner) *Server {
	cfg := config.GetBuiltinConfig()
	broker := events.NewBroker()
	sessions := session.NewManager(time.Hour, broker)
	connManager := events.NewConnectionManager(broker, time.Second)
	return NewServer(cfg, sessions, runner, broker, connManager)
}

func doJSON(t *testing.T, server *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echoHeaderContentType, "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

func defaultContexts() []models.RetrievedContext {
	return []models.RetrievedContext{
		{Text: "context one", Score: 0.9, SourceChannel: "vector"},
		{Text: "context two", Score: 0.7, SourceChannel: "graph"},
	}
}

func startResearch(t *testing.T, server *Server, body string) string {
	t.Helper()
	rec := doJSON(t, server, http.MethodPost, "/api/v1/research/deep", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp DeepResearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, strings.HasPrefix(resp.ID, "research_"))
	assert.Equal(t, "pending", resp.Status)
	return resp.ID
}

func waitForStatus(t *testing.T, server *Server, id, want string) DeepResearchStatusResponse {
	t.Helper()
	var status DeepResearchStatusResponse
	require.Eventually(t, func() bool {
		rec := doJSON(t, server, http.MethodGet, "/api/v1/research/deep/"+id+"/status", "")
		if rec.Code != http.StatusOK {
			return false
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		return status.Status == want
	}, 2*time.Second, 10*time.Millisecond)
	return status
}

func TestResearchLifecycle(t *testing.T) {
	server := newTestServer(&stubRunner{contexts: defaultContexts(), answer: "Answer citing [Source #1]."})

	id := startResearch(t, server, `{"query": "Q", "max_iterations": 2}`)
	status := waitForStatus(t, server, id, "complete")
	assert.Equal(t, 100, status.ProgressPercent)

	rec := doJSON(t, server, http.MethodGet, "/api/v1/research/deep/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var result DeepResearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "complete", result.Status)
	assert.Equal(t, "Answer citing [Source #1].", result.FinalAnswer)
	assert.LessOrEqual(t, len(result.Sources), 20)
	require.Len(t, result.IntermediateAnswers, 1)
	assert.Equal(t, "sub query one", result.IntermediateAnswers[0].SubQuestion)
	for _, step := range result.ExecutionSteps {
		assert.GreaterOrEqual(t, step.DurationMS, int64(0))
	}

	// Cancel after completion still returns 200.
	rec = doJSON(t, server, http.MethodPost, "/api/v1/research/deep/"+id+"/cancel", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIntermediateAnswerConfidence(t *testing.T) {
	server := newTestServer(&stubRunner{contexts: defaultContexts(), answer: "A"})
	id := startResearch(t, server, `{"query": "Q"}`)
	waitForStatus(t, server, id, "complete")

	rec := doJSON(t, server, http.MethodGet, "/api/v1/research/deep/"+id, "")
	var result DeepResearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))

	// avg = 0.8, coverage = 2/5 -> 0.7*0.8 + 0.3*0.4 = 0.68
	require.Len(t, result.IntermediateAnswers, 1)
	assert.InDelta(t, 0.68, result.IntermediateAnswers[0].Confidence, 1e-9)
	assert.Equal(t, 2, result.IntermediateAnswers[0].ContextsCount)
}

func TestResearchValidation(t *testing.T) {
	server := newTestServer(&stubRunner{})

	tests := []struct {
		name string
		body string
	}{
		{"empty query", `{"query": ""}`},
		{"iterations too high", `{"query": "q", "max_iterations": 6}`},
		{"timeout too low", `{"query": "q", "timeout_seconds": 5}`},
		{"step timeout too high", `{"query": "q", "step_timeout_seconds": 500}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, server, http.MethodPost, "/api/v1/research/deep", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		})
	}
}

func TestUnknownIDReturns404(t *testing.T) {
	server := newTestServer(&stubRunner{})

	for _, path := range []string{
		"/api/v1/research/deep/research_missing/status",
		"/api/v1/research/deep/research_missing",
		"/api/v1/research/deep/research_missing/export",
	} {
		rec := doJSON(t, server, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}

	rec := doJSON(t, server, http.MethodPost, "/api/v1/research/deep/research_missing/cancel", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelRunningResearch(t *testing.T) {
	server := newTestServer(&stubRunner{contexts: defaultContexts(), answer: "A", delay: 200 * time.Millisecond})
	id := startResearch(t, server, `{"query": "slow one"}`)

	rec := doJSON(t, server, http.MethodPost, "/api/v1/research/deep/"+id+"/cancel", `{"reason": "done waiting"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var cancelResp CancelResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cancelResp))
	assert.Equal(t, "cancelled", cancelResp.Status)

	waitForStatus(t, server, id, "cancelled")
}

func TestExportMarkdown(t *testing.T) {
	server := newTestServer(&stubRunner{contexts: defaultContexts(), answer: "The verbatim final answer."})
	id := startResearch(t, server, `{"query": "Q"}`)
	waitForStatus(t, server, id, "complete")

	rec := doJSON(t, server, http.MethodGet, "/api/v1/research/deep/"+id+"/export?format=markdown", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "research_"+id+".md")

	body := rec.Body.String()
	assert.Contains(t, body, "The verbatim final answer.")
	assert.Equal(t, 1, strings.Count(body, "context one"), "each source listed exactly once")
	assert.Equal(t, 1, strings.Count(body, "context two"))
}

func TestExportInvalidFormat(t *testing.T) {
	server := newTestServer(&stubRunner{answer: "A"})
	id := startResearch(t, server, `{"query": "Q"}`)
	waitForStatus(t, server, id, "complete")

	rec := doJSON(t, server, http.MethodGet, "/api/v1/research/deep/"+id+"/export?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, server, http.MethodGet, "/api/v1/research/deep/"+id+"/export?format=pdf", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestStreamResearchEmitsSSE(t *testing.T) {
	server := newTestServer(&stubRunner{contexts: defaultContexts(), answer: "streamed answer"})

	rec := doJSON(t, server, http.MethodPost, "/api/v1/research/stream", `{"query": "Q"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")
	for _, phase := range []string{"plan", "search", "evaluate", "synthesize"} {
		assert.Contains(t, body, `"phase":"`+phase+`"`)
	}
	assert.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"))
	assert.Contains(t, body, "streamed answer")
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(&stubRunner{})
	rec := doJSON(t, server, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
}

func TestStatusETAExtrapolation(t *testing.T) {
	server := newTestServer(&stubRunner{contexts: defaultContexts(), answer: "A", delay: 150 * time.Millisecond})
	id := startResearch(t, server, `{"query": "Q"}`)

	require.Eventually(t, func() bool {
		rec := doJSON(t, server, http.MethodGet, "/api/v1/research/deep/"+id+"/status", "")
		var status DeepResearchStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		if status.ProgressPercent > 0 && status.ProgressPercent < 100 {
			return status.EstimatedTimeRemainingMS != nil
		}
		return false
	}, 2*time.Second, 10*time.Millisecond, "mid-flight status carries an ETA")

	waitForStatus(t, server, id, "complete")
}

type stubExtractor struct {
	result *extraction.Result
	err    error
}

func (s *stubExtractor) ExtractDocument(context.Context, string, string, string) (*extraction.Result, error) {
	return s.result, s.err
}

func TestExtractEndpoint(t *testing.T) {
	server := newTestServer(&stubRunner{})
	server.SetExtractor(&stubExtractor{result: &extraction.Result{
		Entities:  []models.Entity{{Name: "Microsoft", Type: "ORGANIZATION"}},
		Relations: []models.Relation{{Source: "Microsoft", Target: "GitHub", Type: "OWNS"}},
	}})

	rec := doJSON(t, server, http.MethodPost, "/api/v1/extract", `{"text": "Microsoft acquired GitHub."}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result extraction.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Entities, 1)
	assert.Equal(t, "ORGANIZATION", result.Entities[0].Type)
}

func TestExtractEndpointValidation(t *testing.T) {
	server := newTestServer(&stubRunner{})
	server.SetExtractor(&stubExtractor{result: &extraction.Result{}})

	rec := doJSON(t, server, http.MethodPost, "/api/v1/extract", `{"text": "  "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestExtractEndpointUnconfigured(t *testing.T) {
	server := newTestServer(&stubRunner{})
	rec := doJSON(t, server, http.MethodPost, "/api/v1/extract", `{"text": "x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
