package api

import (
	"net/http"
	"strings"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/kgee-io/kgee/pkg/models"
	"github.com/kgee-io/kgee/pkg/session"
)

// Request bounds per the API contract.
const (
	minIterations  = 1
	maxIterations  = 5
	minTimeoutSec  = 30
	maxTimeoutSec  = 300
	minStepTimeout = 10
	maxStepTimeout = 120
	maxSources     = 20
)

// startDeepResearchHandler handles POST /api/v1/research/deep.
func (s *Server) startDeepResearchHandler(c *echo.Context) error {
	var req DeepResearchRequest
	if err := c.Bind(&req); err != nil {
		return validationError("invalid request body")
	}

	params, err := s.paramsFromRequest(&req)
	if err != nil {
		return err
	}

	sess := s.sessions.Create(params)
	s.sessions.Start(sess, s.runner)

	return c.JSON(http.StatusCreated, DeepResearchResponse{
		ID:                  sess.ID,
		Query:               req.Query,
		Status:              session.StatusPending,
		SubQuestions:        []string{},
		IntermediateAnswers: []IntermediateAnswer{},
		FinalAnswer:         "",
		Sources:             []Source{},
		ExecutionSteps:      []ExecutionStepModel{},
		TotalTimeMS:         0,
		CreatedAt:           sess.CreatedAt,
	})
}

// paramsFromRequest validates and defaults the request per §6.1.
func (s *Server) paramsFromRequest(req *DeepResearchRequest) (session.Params, error) {
	if strings.TrimSpace(req.Query) == "" {
		return session.Params{}, validationError("query must not be empty")
	}

	namespace := req.Namespace
	if namespace == "" {
		namespace = "default"
	}

	iterations := req.MaxIterations
	if iterations == 0 {
		iterations = s.cfg.Research.DefaultMaxIterations
	}
	if iterations < minIterations || iterations > maxIterations {
		return session.Params{}, validationError("max_iterations must be between 1 and 5")
	}

	timeout := req.TimeoutSeconds
	if timeout == 0 {
		timeout = s.cfg.Research.DefaultTimeoutSeconds
	}
	if timeout < minTimeoutSec || timeout > maxTimeoutSec {
		return session.Params{}, validationError("timeout_seconds must be between 30 and 300")
	}

	stepTimeout := req.StepTimeoutSeconds
	if stepTimeout == 0 {
		stepTimeout = s.cfg.Research.StepTimeoutSeconds
	}
	if stepTimeout < minStepTimeout || stepTimeout > maxStepTimeout {
		return session.Params{}, validationError("step_timeout_seconds must be between 10 and 120")
	}

	return session.Params{
		Query:         req.Query,
		Namespace:     namespace,
		MaxIterations: iterations,
		Timeout:       time.Duration(timeout) * time.Second,
		StepTimeout:   time.Duration(stepTimeout) * time.Second,
	}, nil
}

// researchStatusHandler handles GET /api/v1/research/deep/:id/status.
func (s *Server) researchStatusHandler(c *echo.Context) error {
	id := c.Param("id")
	sess, ok := s.sessions.Get(id)
	if !ok {
		return notFound(id)
	}

	snap := sess.Snapshot()
	progress := snap.State.CurrentStep.ProgressPercent()

	// ETA is a linear extrapolation from elapsed time and progress.
	var eta *int64
	if snap.Status != session.StatusComplete &&
		snap.Status != session.StatusError &&
		snap.Status != session.StatusCancelled &&
		progress > 0 {
		elapsed := time.Since(snap.CreatedAt).Milliseconds()
		total := float64(elapsed) / (float64(progress) / 100.0)
		remaining := int64(total) - elapsed
		if remaining < 0 {
			remaining = 0
		}
		eta = &remaining
	}

	return c.JSON(http.StatusOK, DeepResearchStatusResponse{
		ID:                       id,
		Status:                   snap.Status,
		CurrentStep:              string(currentStep(snap)),
		ProgressPercent:          progress,
		EstimatedTimeRemainingMS: eta,
		ExecutionSteps:           toStepModels(snap.State.ExecutionSteps),
	})
}

// currentStep exposes pending for freshly created sessions whose state has
// no step yet.
func currentStep(snap session.Snapshot) models.ResearchStep {
	if snap.State.CurrentStep == "" {
		return models.StepPending
	}
	return snap.State.CurrentStep
}

// researchResultHandler handles GET /api/v1/research/deep/:id.
func (s *Server) researchResultHandler(c *echo.Context) error {
	id := c.Param("id")
	sess, ok := s.sessions.Get(id)
	if !ok {
		return notFound(id)
	}
	return c.JSON(http.StatusOK, buildResultResponse(sess.Snapshot()))
}

// buildResultResponse assembles the full response document from a snapshot.
func buildResultResponse(snap session.Snapshot) DeepResearchResponse {
	return DeepResearchResponse{
		ID:                  snap.ID,
		Query:               snap.Query,
		Status:              snap.Status,
		SubQuestions:        snap.State.SubQueries,
		IntermediateAnswers: buildIntermediateAnswers(snap.State),
		FinalAnswer:         snap.State.Synthesis,
		Sources:             buildSources(snap.State.AllContexts),
		ExecutionSteps:      toStepModels(snap.State.ExecutionSteps),
		TotalTimeMS:         snap.TotalTimeMS,
		CreatedAt:           snap.CreatedAt,
		CompletedAt:         snap.CompletedAt,
		Error:               snap.Error,
	}
}

// buildSources sorts contexts by score and keeps the top 20.
func buildSources(contexts []models.RetrievedContext) []Source {
	sorted := make([]models.RetrievedContext, len(contexts))
	copy(sorted, contexts)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Score > sorted[j-1].Score; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	if len(sorted) > maxSources {
		sorted = sorted[:maxSources]
	}
	out := make([]Source, 0, len(sorted))
	for _, ctx := range sorted {
		out = append(out, toSource(ctx))
	}
	return out
}

// buildIntermediateAnswers groups contexts per sub-query; confidence is
// 0.7 * mean(score) + 0.3 * min(contexts/5, 1).
func buildIntermediateAnswers(state models.ResearchState) []IntermediateAnswer {
	answers := make([]IntermediateAnswer, 0, len(state.SubQueries))
	for _, subQuery := range state.SubQueries {
		var contexts []models.RetrievedContext
		for _, ctx := range state.AllContexts {
			if ctx.ResearchQuery == subQuery {
				contexts = append(contexts, ctx)
			}
		}

		sources := make([]Source, 0, 5)
		for i, ctx := range contexts {
			if i >= 5 {
				break
			}
			sources = append(sources, toSource(ctx))
		}

		confidence := 0.0
		if len(contexts) > 0 {
			sum := 0.0
			for _, ctx := range contexts {
				sum += ctx.Score
			}
			avg := sum / float64(len(contexts))
			coverage := float64(len(contexts)) / 5.0
			if coverage > 1 {
				coverage = 1
			}
			confidence = avg*0.7 + coverage*0.3
		}

		answer := state.IntermediateAnswers[subQuery]
		if answer == "" {
			answer = "Searching..."
		}

		answers = append(answers, IntermediateAnswer{
			SubQuestion:   subQuery,
			Answer:        answer,
			ContextsCount: len(contexts),
			Sources:       sources,
			Confidence:    confidence,
		})
	}
	return answers
}

// cancelResearchHandler handles POST /api/v1/research/deep/:id/cancel.
// Cancelling a finished session returns 200 and leaves its result intact.
func (s *Server) cancelResearchHandler(c *echo.Context) error {
	id := c.Param("id")

	var req CancelResearchRequest
	_ = c.Bind(&req) // body is optional

	if !s.sessions.Cancel(id, req.Reason) {
		return notFound(id)
	}
	return c.JSON(http.StatusOK, CancelResponse{
		Status:  "cancelled",
		Message: "Research cancelled successfully",
	})
}

// deepResearchHealthHandler handles GET /api/v1/research/deep/health.
func (s *Server) deepResearchHealthHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "deep_research",
	})
}
