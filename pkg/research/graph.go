package research

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kgee-io/kgee/pkg/models"
)

// Node step names recorded in execution steps.
const (
	stepPlanner     = "decompose_query"
	stepSearcher    = "retrieve_context"
	stepSupervisor  = "evaluate_results"
	stepSynthesizer = "synthesize_answer"
)

// Observer receives a consistent state snapshot after every mutation. The
// session handle implements it to expose status reads and progress events.
type Observer interface {
	OnStateUpdate(state models.ResearchState)
}

// nopObserver discards updates.
type nopObserver struct{}

func (nopObserver) OnStateUpdate(models.ResearchState) {}

// Runner drives the fixed research graph:
//
//	START -> planner -> searcher -> supervisor -> (continue => searcher)
//	                                           -> (synthesize => synthesizer -> END)
//
// The graph has exactly four nodes and two conditional edges, so it is a
// plain loop over a small node table rather than a generic graph engine.
type Runner struct {
	planner     *Planner
	searcher    *Searcher
	synthesizer *Synthesizer
	stepTimeout time.Duration
}

// NewRunner creates a runner. stepTimeout bounds each LLM-backed node.
func NewRunner(planner *Planner, searcher *Searcher, synthesizer *Synthesizer, stepTimeout time.Duration) *Runner {
	if stepTimeout <= 0 {
		stepTimeout = 60 * time.Second
	}
	return &Runner{
		planner:     planner,
		searcher:    searcher,
		synthesizer: synthesizer,
		stepTimeout: stepTimeout,
	}
}

// Run executes the research loop to completion. It never returns an error:
// terminal failures land in state.Error and the synthesizer still produces a
// best-effort answer. A cancelled context stops the loop where it stands.
func (r *Runner) Run(ctx context.Context, state *models.ResearchState, observer Observer) *models.ResearchState {
	if observer == nil {
		observer = nopObserver{}
	}

	// planner
	r.runStep(ctx, state, observer, stepPlanner, models.StepDecomposing, func(ctx context.Context) (map[string]any, error) {
		state.SubQueries = r.planner.Plan(ctx, state.OriginalQuery)
		state.Iteration = 0
		quality := EvaluatePlan(state.SubQueries)
		return map[string]any{
			"num_queries":   len(state.SubQueries),
			"quality_score": quality.QualityScore,
		}, nil
	})
	if ctx.Err() != nil {
		return state
	}

	// searcher/supervisor loop; the iteration bound always terminates it.
	for {
		r.runStep(ctx, state, observer, stepSearcher, models.StepRetrieving, func(ctx context.Context) (map[string]any, error) {
			r.searcher.Search(ctx, state)
			return map[string]any{
				"iteration": state.Iteration,
				"contexts":  len(state.AllContexts),
			}, nil
		})
		if ctx.Err() != nil {
			return state
		}

		var quality SearchQuality
		r.runStep(ctx, state, observer, stepSupervisor, models.StepAnalyzing, func(context.Context) (map[string]any, error) {
			quality = Supervise(state)
			return map[string]any{
				"num_results":     quality.NumResults,
				"avg_score":       quality.AvgScore,
				"quality":         quality.Quality,
				"should_continue": state.ShouldContinue,
			}, nil
		})
		if ctx.Err() != nil {
			return state
		}
		if !state.ShouldContinue {
			break
		}
	}

	// synthesizer — exactly one invocation per run.
	r.runStep(ctx, state, observer, stepSynthesizer, models.StepSynthesizing, func(ctx context.Context) (map[string]any, error) {
		state.Synthesis = r.synthesizer.Synthesize(ctx, state.OriginalQuery, state.AllContexts)
		r.recordIntermediateAnswers(state)
		return map[string]any{
			"answer_length": len(state.Synthesis),
			"citations":     len(ExtractCitations(state.Synthesis)),
		}, nil
	})

	state.CurrentStep = models.StepComplete
	observer.OnStateUpdate(*state)
	return state
}

// runStep executes one node under the step timeout and records its
// execution step. Node panics are converted into step failures so the loop
// always reaches the synthesizer.
func (r *Runner) runStep(
	ctx context.Context,
	state *models.ResearchState,
	observer Observer,
	name string,
	phase models.ResearchStep,
	fn func(context.Context) (map[string]any, error),
) {
	state.CurrentStep = phase
	step := models.ExecutionStep{
		StepName:  name,
		StartedAt: time.Now().UTC(),
		Status:    models.StepStatusRunning,
	}
	state.ExecutionSteps = append(state.ExecutionSteps, step)
	idx := len(state.ExecutionSteps) - 1
	observer.OnStateUpdate(*state)

	stepCtx, cancel := context.WithTimeout(ctx, r.stepTimeout)
	defer cancel()

	result, err := r.safeRun(stepCtx, fn)

	completed := time.Now().UTC()
	state.ExecutionSteps[idx].CompletedAt = &completed
	state.ExecutionSteps[idx].DurationMS = completed.Sub(step.StartedAt).Milliseconds()
	state.ExecutionSteps[idx].Result = result
	if err != nil {
		state.ExecutionSteps[idx].Status = models.StepStatusFailed
		state.ExecutionSteps[idx].Error = err.Error()
		if state.Error == "" {
			state.Error = fmt.Sprintf("%s: %v", name, err)
		}
		slog.Error("research_step_failed", "step", name, "error", err)
	} else {
		state.ExecutionSteps[idx].Status = models.StepStatusCompleted
	}
	observer.OnStateUpdate(*state)
}

// safeRun isolates node panics.
func (r *Runner) safeRun(ctx context.Context, fn func(context.Context) (map[string]any, error)) (result map[string]any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn(ctx)
}

// recordIntermediateAnswers groups contexts per sub-query into the state's
// intermediate answer map.
func (r *Runner) recordIntermediateAnswers(state *models.ResearchState) {
	for _, subQuery := range state.SubQueries {
		count := 0
		for _, ctx := range state.AllContexts {
			if ctx.ResearchQuery == subQuery {
				count++
			}
		}
		if _, ok := state.IntermediateAnswers[subQuery]; !ok {
			state.IntermediateAnswers[subQuery] = fmt.Sprintf("Searching... (%d contexts found)", count)
		}
	}
}
