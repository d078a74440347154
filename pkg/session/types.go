// Package session manages research sessions in memory: creation, background
// task ownership, consistent status snapshots, cancellation, and eviction of
// finished sessions after the retention window.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/kgee-io/kgee/pkg/models"
)

// Status values exposed over the HTTP surface. While a session runs, its
// status mirrors the supervisor's current step; cancellation and errors are
// terminal overrides.
const (
	StatusPending   = "pending"
	StatusComplete  = "complete"
	StatusError     = "error"
	StatusCancelled = "cancelled"
)

// Params are the knobs of one research run.
type Params struct {
	Query          string
	Namespace      string
	MaxIterations  int
	Timeout        time.Duration
	StepTimeout    time.Duration
}

// Session is one research run. All fields behind mu; reads go through
// Snapshot for a consistent view.
type Session struct {
	ID        string
	Params    Params
	CreatedAt time.Time

	mu          sync.RWMutex
	state       models.ResearchState
	cancelled   bool
	failed      bool
	errMsg      string
	completedAt *time.Time
	totalTimeMS int64
	cancelFunc  context.CancelFunc
}

// Snapshot is a consistent copy of a session's observable state.
type Snapshot struct {
	ID          string
	Query       string
	Status      string
	State       models.ResearchState
	CreatedAt   time.Time
	CompletedAt *time.Time
	TotalTimeMS int64
	Error       string
}

// OnStateUpdate implements the research Observer: it stores a copy of the
// supervisor's state so status reads observe a consistent snapshot.
func (s *Session) OnStateUpdate(state models.ResearchState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = cloneState(state)
}

// SetCancelFunc stores the cancel handle for the background task.
func (s *Session) SetCancelFunc(cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelFunc = cancel
}

// Cancel cancels the background task and marks the session cancelled.
// Idempotent; cancelling a finished session only updates the status when it
// has not already reached a terminal state.
func (s *Session) Cancel(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	if s.completedAt == nil && !s.cancelled && !s.failed {
		s.cancelled = true
		if reason != "" {
			s.errMsg = "Cancelled by user: " + reason
		} else {
			s.errMsg = "Cancelled by user"
		}
	}
}

// Complete marks the session finished and records timing.
func (s *Session) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return
	}
	now := time.Now().UTC()
	s.completedAt = &now
	s.totalTimeMS = now.Sub(s.CreatedAt).Milliseconds()
	if s.state.Error != "" {
		s.errMsg = s.state.Error
	}
}

// Fail marks the session terminally failed (e.g. overall timeout).
func (s *Session) Fail(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return
	}
	s.failed = true
	s.errMsg = message
	now := time.Now().UTC()
	s.completedAt = &now
	s.totalTimeMS = now.Sub(s.CreatedAt).Milliseconds()
}

// Snapshot returns a consistent copy of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		ID:          s.ID,
		Query:       s.Params.Query,
		Status:      s.statusLocked(),
		State:       cloneState(s.state),
		CreatedAt:   s.CreatedAt,
		CompletedAt: s.completedAt,
		TotalTimeMS: s.totalTimeMS,
		Error:       s.errMsg,
	}
}

// statusLocked computes the exposed status. Callers hold mu.
func (s *Session) statusLocked() string {
	switch {
	case s.cancelled:
		return StatusCancelled
	case s.failed:
		return StatusError
	case s.completedAt != nil:
		if s.state.Error != "" {
			return StatusError
		}
		return StatusComplete
	case s.state.CurrentStep == "" || s.state.CurrentStep == models.StepPending:
		return StatusPending
	case s.state.CurrentStep == models.StepError:
		return StatusError
	default:
		return string(s.state.CurrentStep)
	}
}

// terminal reports whether the session reached a final state.
func (s *Session) terminal() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancelled || s.failed || s.completedAt != nil
}

// cloneState deep-copies the slices and maps of a state so snapshots do not
// alias the supervisor's working copy.
func cloneState(state models.ResearchState) models.ResearchState {
	out := state
	out.SubQueries = append([]string(nil), state.SubQueries...)
	out.AllContexts = append([]models.RetrievedContext(nil), state.AllContexts...)
	out.ExecutionSteps = append([]models.ExecutionStep(nil), state.ExecutionSteps...)
	out.IntermediateAnswers = make(map[string]string, len(state.IntermediateAnswers))
	for k, v := range state.IntermediateAnswers {
		out.IntermediateAnswers[k] = v
	}
	if state.Metadata != nil {
		out.Metadata = make(map[string]any, len(state.Metadata))
		for k, v := range state.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
