package models

import "time"

// ResearchStep identifies the supervisor's current phase. The polling status
// endpoint maps each step to a fixed progress percentage.
type ResearchStep string

const (
	StepPending      ResearchStep = "pending"
	StepDecomposing  ResearchStep = "decomposing"
	StepRetrieving   ResearchStep = "retrieving"
	StepAnalyzing    ResearchStep = "analyzing"
	StepSynthesizing ResearchStep = "synthesizing"
	StepComplete     ResearchStep = "complete"
	StepError        ResearchStep = "error"
)

// IsValid checks if the research step is a known phase.
func (s ResearchStep) IsValid() bool {
	switch s {
	case StepPending, StepDecomposing, StepRetrieving, StepAnalyzing,
		StepSynthesizing, StepComplete, StepError:
		return true
	default:
		return false
	}
}

// ProgressPercent returns the fixed step-to-percent mapping used by the
// status endpoint.
func (s ResearchStep) ProgressPercent() int {
	switch s {
	case StepDecomposing:
		return 20
	case StepRetrieving:
		return 40
	case StepAnalyzing:
		return 60
	case StepSynthesizing:
		return 80
	case StepComplete:
		return 100
	default:
		return 0
	}
}

// ExecutionStepStatus is the status of a single recorded workflow step.
type ExecutionStepStatus string

const (
	StepStatusRunning   ExecutionStepStatus = "running"
	StepStatusCompleted ExecutionStepStatus = "completed"
	StepStatusFailed    ExecutionStepStatus = "failed"
)

// ExecutionStep records timing and outcome of one supervisor node run.
type ExecutionStep struct {
	StepName    string              `json:"step_name"`
	StartedAt   time.Time           `json:"started_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	DurationMS  int64               `json:"duration_ms"`
	Status      ExecutionStepStatus `json:"status"`
	Result      map[string]any      `json:"result,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// RetrievedContext is one deduplicated retrieval result accumulated by the
// searcher. ResearchQuery and QueryIndex tag which sub-query produced it.
type RetrievedContext struct {
	Text          string         `json:"text"`
	Score         float64        `json:"score"`
	SourceChannel string         `json:"source"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Entities      []string       `json:"entities,omitempty"`
	Relationships []string       `json:"relationships,omitempty"`
	ResearchQuery string         `json:"research_query,omitempty"`
	QueryIndex    int            `json:"query_index,omitempty"`
}

// ResearchState is the supervisor's working state. It is owned by the
// session's background goroutine; the session handle publishes consistent
// snapshots for status reads.
type ResearchState struct {
	OriginalQuery       string             `json:"original_query"`
	Namespace           string             `json:"namespace"`
	SubQueries          []string           `json:"sub_queries"`
	Iteration           int                `json:"iteration"`
	MaxIterations       int                `json:"max_iterations"`
	AllContexts         []RetrievedContext `json:"all_contexts"`
	Synthesis           string             `json:"synthesis"`
	ShouldContinue      bool               `json:"should_continue"`
	CurrentStep         ResearchStep       `json:"current_step"`
	ExecutionSteps      []ExecutionStep    `json:"execution_steps"`
	IntermediateAnswers map[string]string  `json:"intermediate_answers"`
	Metadata            map[string]any     `json:"metadata,omitempty"`
	Error               string             `json:"error,omitempty"`
}

// NewResearchState creates the initial state for a research run.
func NewResearchState(query, namespace string, maxIterations int) *ResearchState {
	return &ResearchState{
		OriginalQuery:       query,
		Namespace:           namespace,
		MaxIterations:       maxIterations,
		ShouldContinue:      true,
		CurrentStep:         StepPending,
		IntermediateAnswers: make(map[string]string),
		Metadata:            make(map[string]any),
	}
}
