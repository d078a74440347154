// Package events provides real-time progress delivery for research
// sessions: an in-process broker with per-channel subscriptions, SSE frame
// encoding for the streaming endpoint, and a WebSocket connection manager
// for dashboards.
package events

import (
	"time"

	"github.com/kgee-io/kgee/pkg/models"
)

// EventTypeResearchProgress is the single event type on the progress feed.
const EventTypeResearchProgress = "research.progress"

// Streaming phases emitted over SSE and WebSocket.
const (
	PhaseStart      = "start"
	PhasePlan       = "plan"
	PhaseSearch     = "search"
	PhaseEvaluate   = "evaluate"
	PhaseSynthesize = "synthesize"
)

// SessionChannel returns the channel name for one research session's events.
func SessionChannel(sessionID string) string {
	return "research:" + sessionID
}

// ProgressPayload is the wire payload for one progress update.
type ProgressPayload struct {
	Type            string    `json:"type"`
	SessionID       string    `json:"session_id"`
	Phase           string    `json:"phase"`
	Step            string    `json:"step"`
	ProgressPercent int       `json:"progress_percent"`
	Iteration       int       `json:"iteration"`
	Timestamp       time.Time `json:"timestamp"`
}

// PhaseForStep maps a supervisor step onto the streaming phase vocabulary.
func PhaseForStep(step models.ResearchStep) string {
	switch step {
	case models.StepDecomposing:
		return PhasePlan
	case models.StepRetrieving:
		return PhaseSearch
	case models.StepAnalyzing:
		return PhaseEvaluate
	case models.StepSynthesizing, models.StepComplete:
		return PhaseSynthesize
	default:
		return PhaseStart
	}
}

// NewProgressPayload builds the payload for a state update.
func NewProgressPayload(sessionID string, state models.ResearchState) ProgressPayload {
	return ProgressPayload{
		Type:            EventTypeResearchProgress,
		SessionID:       sessionID,
		Phase:           PhaseForStep(state.CurrentStep),
		Step:            string(state.CurrentStep),
		ProgressPercent: state.CurrentStep.ProgressPercent(),
		Iteration:       state.Iteration,
		Timestamp:       time.Now().UTC(),
	}
}
