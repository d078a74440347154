package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/kgee-io/kgee/pkg/events"
	"github.com/kgee-io/kgee/pkg/models"
	"github.com/kgee-io/kgee/pkg/research"
)

// streamResearchHandler handles POST /api/v1/research/stream: it runs the
// supervisor loop inline and emits phase-based SSE frames, terminated by a
// [DONE] frame. This front-end shares the supervisor core with the polling
// endpoints but never registers in their session registry.
func (s *Server) streamResearchHandler(c *echo.Context) error {
	var req StreamResearchRequest
	if err := c.Bind(&req); err != nil {
		return validationError("invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return validationError("query must not be empty")
	}

	iterations := req.MaxIterations
	if iterations == 0 {
		iterations = s.cfg.Research.DefaultMaxIterations
	}
	if iterations < minIterations || iterations > maxIterations {
		return validationError("max_iterations must be between 1 and 5")
	}
	namespace := req.Namespace
	if namespace == "" {
		namespace = "default"
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	ctx := c.Request().Context()
	if timeout := s.cfg.Research.DefaultTimeoutSeconds; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()
	}

	observer := &sseObserver{resp: resp}
	state := models.NewResearchState(req.Query, namespace, iterations)
	final := s.runner.Run(ctx, state, observer)

	// Final frame carries the synthesized answer before termination.
	_ = events.WriteSSEJSON(resp, map[string]any{
		"phase":     events.PhaseSynthesize,
		"answer":    final.Synthesis,
		"citations": research.ExtractCitations(final.Synthesis),
		"error":     final.Error,
	})
	_ = events.WriteSSEDone(resp)
	return nil
}

// sseObserver emits one SSE frame per phase transition.
type sseObserver struct {
	resp      http.ResponseWriter
	lastPhase string
}

func (o *sseObserver) OnStateUpdate(state models.ResearchState) {
	phase := events.PhaseForStep(state.CurrentStep)
	if phase == o.lastPhase {
		return
	}
	o.lastPhase = phase
	payload := map[string]any{
		"phase":     phase,
		"step":      string(state.CurrentStep),
		"iteration": state.Iteration,
	}
	if err := events.WriteSSEJSON(o.resp, payload); err != nil {
		return
	}
	if f, ok := o.resp.(http.Flusher); ok {
		f.Flush()
	}
}
