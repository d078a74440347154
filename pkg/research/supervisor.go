package research

import (
	"log/slog"

	"github.com/kgee-io/kgee/pkg/models"
)

// SearchQuality summarizes the accumulated contexts for the stop decision.
type SearchQuality struct {
	NumResults int     `json:"num_results"`
	AvgScore   float64 `json:"avg_score"`
	Sufficient bool    `json:"sufficient"`
	Quality    string  `json:"quality"`
}

// EvaluateQuality computes the sufficiency rule and quality label over the
// retrieved contexts.
func EvaluateQuality(contexts []models.RetrievedContext) SearchQuality {
	if len(contexts) == 0 {
		return SearchQuality{Quality: "poor"}
	}

	sum := 0.0
	for _, ctx := range contexts {
		sum += ctx.Score
	}
	q := SearchQuality{
		NumResults: len(contexts),
		AvgScore:   sum / float64(len(contexts)),
	}
	q.Sufficient = q.NumResults >= 5 && q.AvgScore > 0.5

	switch {
	case q.NumResults >= 10 && q.AvgScore > 0.7:
		q.Quality = "excellent"
	case q.NumResults >= 5 && q.AvgScore > 0.5:
		q.Quality = "good"
	case q.NumResults >= 3:
		q.Quality = "fair"
	default:
		q.Quality = "poor"
	}
	return q
}

// Supervise decides whether the loop continues: it stops on error, at the
// iteration bound, or when the contexts meet the sufficiency rule. Returns
// the quality for step reporting.
func Supervise(state *models.ResearchState) SearchQuality {
	quality := EvaluateQuality(state.AllContexts)

	switch {
	case state.Error != "":
		state.ShouldContinue = false
	case state.Iteration >= state.MaxIterations:
		state.ShouldContinue = false
	case quality.Sufficient:
		state.ShouldContinue = false
	default:
		state.ShouldContinue = true
	}

	slog.Info("supervisor_decision",
		"iteration", state.Iteration,
		"max_iterations", state.MaxIterations,
		"num_results", quality.NumResults,
		"avg_score", quality.AvgScore,
		"quality", quality.Quality,
		"should_continue", state.ShouldContinue)

	return quality
}
