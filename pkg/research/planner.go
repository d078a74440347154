package research

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/kgee-io/kgee/pkg/config"
	"github.com/kgee-io/kgee/pkg/llm"
	"github.com/kgee-io/kgee/pkg/prompt"
)

// maxSubQueries bounds the decomposition.
const maxSubQueries = 5

var (
	numberedLine = regexp.MustCompile(`^\s*\d+\.\s*(.+)$`)
	bulletLine   = regexp.MustCompile(`^\s*[-*•]\s*(.+)$`)
)

// Planner decomposes the original query into 1-5 sub-queries via the LLM.
type Planner struct {
	gateway Gateway
}

// NewPlanner creates a planner.
func NewPlanner(gateway Gateway) *Planner {
	return &Planner{gateway: gateway}
}

// Plan generates sub-queries for a research question. Any failure falls back
// to the original query as the single sub-query.
func (p *Planner) Plan(ctx context.Context, query string) []string {
	rendered := prompt.Render(prompt.PlanningPrompt, map[string]string{"text": query})

	result, err := p.gateway.Generate(ctx, llm.Task{
		Kind:        llm.TaskGeneration,
		Prompt:      rendered,
		UseCase:     config.UseCasePlanner,
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		slog.Error("planning_failed", "error", err)
		return []string{query}
	}

	queries := ParsePlan(result.Content)
	if len(queries) == 0 {
		return []string{query}
	}
	if len(queries) > maxSubQueries {
		queries = queries[:maxSubQueries]
	}
	slog.Info("research_plan_created", "num_queries", len(queries))
	return queries
}

// ParsePlan parses LLM plan text into individual queries. Precedence:
// numbered list, then bulleted list, then non-empty lines longer than 10
// characters.
func ParsePlan(planText string) []string {
	var queries []string

	for _, line := range strings.Split(planText, "\n") {
		if m := numberedLine.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			if q := strings.TrimSpace(m[1]); q != "" {
				queries = append(queries, q)
			}
		}
	}
	if len(queries) > 0 {
		return queries
	}

	for _, line := range strings.Split(planText, "\n") {
		if m := bulletLine.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			if q := strings.TrimSpace(m[1]); q != "" {
				queries = append(queries, q)
			}
		}
	}
	if len(queries) > 0 {
		return queries
	}

	for _, line := range strings.Split(planText, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") && len(line) > 10 {
			queries = append(queries, line)
		}
	}
	return queries
}

// PlanQuality scores a plan for step-result reporting.
type PlanQuality struct {
	NumQueries     int     `json:"num_queries"`
	AvgQueryLength float64 `json:"avg_query_length"`
	CoverageScore  float64 `json:"coverage_score"`
	DiversityScore float64 `json:"diversity_score"`
	QualityScore   float64 `json:"quality_score"`
}

// EvaluatePlan computes quality metrics for a plan.
func EvaluatePlan(plan []string) PlanQuality {
	quality := PlanQuality{NumQueries: len(plan)}
	if len(plan) == 0 {
		return quality
	}

	total := 0
	unique := make(map[string]bool, len(plan))
	for _, q := range plan {
		total += len(q)
		unique[q] = true
	}
	quality.AvgQueryLength = float64(total) / float64(len(plan))
	quality.CoverageScore = min(float64(len(plan))/3.0, 1.0)
	quality.DiversityScore = float64(len(unique)) / float64(len(plan))
	quality.QualityScore = quality.CoverageScore*0.5 + quality.DiversityScore*0.5
	return quality
}
