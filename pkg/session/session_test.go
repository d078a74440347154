package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgee-io/kgee/pkg/models"
	"github.com/kgee-io/kgee/pkg/research"
)

// fakeRunner drives the observer through a scripted sequence of steps.
type fakeRunner struct {
	steps   []models.ResearchStep
	delay   time.Duration
	blockCh chan struct{} // when set, blocks until closed or ctx done
}

func (r *fakeRunner) Run(ctx context.Context, state *models.ResearchState, observer research.Observer) *models.ResearchState {
	for _, step := range r.steps {
		if ctx.Err() != nil {
			return state
		}
		state.CurrentStep = step
		if observer != nil {
			observer.OnStateUpdate(*state)
		}
		if r.delay > 0 {
			time.Sleep(r.delay)
		}
	}
	if r.blockCh != nil {
		select {
		case <-r.blockCh:
		case <-ctx.Done():
			return state
		}
	}
	state.CurrentStep = models.StepComplete
	state.Synthesis = "answer"
	if observer != nil {
		observer.OnStateUpdate(*state)
	}
	return state
}

func params() Params {
	return Params{
		Query:         "Q",
		Namespace:     "default",
		MaxIterations: 2,
		Timeout:       5 * time.Second,
		StepTimeout:   time.Second,
	}
}

func TestSessionIDFormat(t *testing.T) {
	id := NewSessionID()
	require.True(t, strings.HasPrefix(id, "research_"))
	assert.Len(t, id, len("research_")+12)
}

func TestCreateAndGet(t *testing.T) {
	m := NewManager(time.Hour, nil)
	sess := m.Create(params())

	got, ok := m.Get(sess.ID)
	require.True(t, ok)
	assert.Equal(t, StatusPending, got.Snapshot().Status)

	_, ok = m.Get("research_missing")
	assert.False(t, ok)
}

func TestStartRunsToCompletion(t *testing.T) {
	m := NewManager(time.Hour, nil)
	sess := m.Create(params())

	runner := &fakeRunner{steps: []models.ResearchStep{
		models.StepDecomposing, models.StepRetrieving, models.StepAnalyzing, models.StepSynthesizing,
	}}
	m.Start(sess, runner)

	require.Eventually(t, func() bool {
		return sess.Snapshot().Status == StatusComplete
	}, 2*time.Second, 10*time.Millisecond)

	snap := sess.Snapshot()
	assert.Equal(t, "answer", snap.State.Synthesis)
	assert.NotNil(t, snap.CompletedAt)
	assert.GreaterOrEqual(t, snap.TotalTimeMS, int64(0))
}

func TestStatusSequenceIsPrefixOfAllowedOrder(t *testing.T) {
	var mu sync.Mutex
	var observed []string

	m := NewManager(time.Hour, publisherFunc(func(id string, state models.ResearchState) {
		mu.Lock()
		observed = append(observed, string(state.CurrentStep))
		mu.Unlock()
	}))
	sess := m.Create(params())

	runner := &fakeRunner{
		steps: []models.ResearchStep{models.StepDecomposing, models.StepRetrieving, models.StepAnalyzing, models.StepSynthesizing},
		delay: time.Millisecond,
	}
	m.Start(sess, runner)

	require.Eventually(t, func() bool {
		return sess.Snapshot().Status == StatusComplete
	}, 2*time.Second, 10*time.Millisecond)

	allowed := []string{"decomposing", "retrieving", "analyzing", "synthesizing", "complete"}
	mu.Lock()
	defer mu.Unlock()
	pos := 0
	for _, step := range observed {
		found := false
		for ; pos < len(allowed); pos++ {
			if allowed[pos] == step {
				found = true
				break
			}
		}
		assert.True(t, found, "step %q out of order in %v", step, observed)
	}
}

type publisherFunc func(string, models.ResearchState)

func (f publisherFunc) PublishProgress(id string, state models.ResearchState) { f(id, state) }

func TestCancelStopsBackgroundTask(t *testing.T) {
	m := NewManager(time.Hour, nil)
	sess := m.Create(params())

	block := make(chan struct{})
	runner := &fakeRunner{steps: []models.ResearchStep{models.StepRetrieving}, blockCh: block}
	m.Start(sess, runner)

	require.Eventually(t, func() bool {
		return sess.Snapshot().Status == "retrieving"
	}, time.Second, 5*time.Millisecond)

	start := time.Now()
	require.True(t, m.Cancel(sess.ID, "changed my mind"))

	require.Eventually(t, func() bool {
		return sess.Snapshot().Status == StatusCancelled
	}, time.Second, 5*time.Millisecond)
	assert.Less(t, time.Since(start), time.Second, "cancellation terminates promptly")
	assert.Contains(t, sess.Snapshot().Error, "changed my mind")
}

func TestCancelUnknownSession(t *testing.T) {
	m := NewManager(time.Hour, nil)
	assert.False(t, m.Cancel("research_nope", ""))
}

func TestCancelAfterCompletionKeepsResult(t *testing.T) {
	m := NewManager(time.Hour, nil)
	sess := m.Create(params())
	m.Start(sess, &fakeRunner{})

	require.Eventually(t, func() bool {
		return sess.Snapshot().Status == StatusComplete
	}, time.Second, 5*time.Millisecond)

	// Cancel after completion still succeeds (no-op on status).
	assert.True(t, m.Cancel(sess.ID, ""))
	assert.Equal(t, StatusComplete, sess.Snapshot().Status)
}

func TestOverallTimeoutMarksError(t *testing.T) {
	m := NewManager(time.Hour, nil)
	p := params()
	p.Timeout = 30 * time.Millisecond
	sess := m.Create(p)

	block := make(chan struct{})
	defer close(block)
	m.Start(sess, &fakeRunner{steps: []models.ResearchStep{models.StepRetrieving}, blockCh: block})

	require.Eventually(t, func() bool {
		return sess.Snapshot().Status == StatusError
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, sess.Snapshot().Error, "timeout")
}

func TestEviction(t *testing.T) {
	m := NewManager(20*time.Millisecond, nil)
	sess := m.Create(params())
	m.Start(sess, &fakeRunner{})

	require.Eventually(t, func() bool {
		return sess.Snapshot().Status == StatusComplete
	}, time.Second, 5*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	m.evictExpired()
	assert.Zero(t, m.Len())
}

func TestSnapshotDoesNotAliasState(t *testing.T) {
	sess := &Session{ID: "research_x", CreatedAt: time.Now()}
	sess.OnStateUpdate(models.ResearchState{
		SubQueries:          []string{"a"},
		IntermediateAnswers: map[string]string{"a": "b"},
	})

	snap := sess.Snapshot()
	snap.State.SubQueries[0] = "mutated"
	snap.State.IntermediateAnswers["a"] = "mutated"

	fresh := sess.Snapshot()
	assert.Equal(t, "a", fresh.State.SubQueries[0])
	assert.Equal(t, "b", fresh.State.IntermediateAnswers["a"])
}
