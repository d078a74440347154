package api

import (
	"time"

	"github.com/kgee-io/kgee/pkg/models"
)

// Source is one retrieval result exposed in responses.
type Source struct {
	Text          string         `json:"text"`
	Score         float64        `json:"score"`
	SourceType    string         `json:"source_type"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Entities      []string       `json:"entities,omitempty"`
	Relationships []string       `json:"relationships,omitempty"`
}

// IntermediateAnswer groups one sub-question's contexts and confidence.
type IntermediateAnswer struct {
	SubQuestion   string   `json:"sub_question"`
	Answer        string   `json:"answer"`
	ContextsCount int      `json:"contexts_count"`
	Sources       []Source `json:"sources"`
	Confidence    float64  `json:"confidence"`
}

// ExecutionStepModel is the wire shape of one recorded workflow step.
type ExecutionStepModel struct {
	StepName    string         `json:"step_name"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	DurationMS  int64          `json:"duration_ms"`
	Status      string         `json:"status"`
	Result      map[string]any `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// DeepResearchResponse is the full research result document.
type DeepResearchResponse struct {
	ID                  string               `json:"id"`
	Query               string               `json:"query"`
	Status              string               `json:"status"`
	SubQuestions        []string             `json:"sub_questions"`
	IntermediateAnswers []IntermediateAnswer `json:"intermediate_answers"`
	FinalAnswer         string               `json:"final_answer"`
	Sources             []Source             `json:"sources"`
	ExecutionSteps      []ExecutionStepModel `json:"execution_steps"`
	TotalTimeMS         int64                `json:"total_time_ms"`
	CreatedAt           time.Time            `json:"created_at"`
	CompletedAt         *time.Time           `json:"completed_at,omitempty"`
	Error               string               `json:"error,omitempty"`
}

// DeepResearchStatusResponse is the polling status document.
type DeepResearchStatusResponse struct {
	ID                       string               `json:"id"`
	Status                   string               `json:"status"`
	CurrentStep              string               `json:"current_step"`
	ProgressPercent          int                  `json:"progress_percent"`
	EstimatedTimeRemainingMS *int64               `json:"estimated_time_remaining_ms,omitempty"`
	ExecutionSteps           []ExecutionStepModel `json:"execution_steps"`
}

// CancelResponse is returned by POST .../cancel.
type CancelResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version"`
	Services map[string]string `json:"services"`
}

// toStepModels converts recorded steps to the wire shape.
func toStepModels(steps []models.ExecutionStep) []ExecutionStepModel {
	out := make([]ExecutionStepModel, 0, len(steps))
	for _, step := range steps {
		out = append(out, ExecutionStepModel{
			StepName:    step.StepName,
			StartedAt:   step.StartedAt,
			CompletedAt: step.CompletedAt,
			DurationMS:  step.DurationMS,
			Status:      string(step.Status),
			Result:      step.Result,
			Error:       step.Error,
		})
	}
	return out
}

// toSource converts one retrieved context.
func toSource(ctx models.RetrievedContext) Source {
	sourceType := ctx.SourceChannel
	if sourceType == "" {
		sourceType = "unknown"
	}
	return Source{
		Text:          ctx.Text,
		Score:         ctx.Score,
		SourceType:    sourceType,
		Metadata:      ctx.Metadata,
		Entities:      ctx.Entities,
		Relationships: ctx.Relationships,
	}
}
