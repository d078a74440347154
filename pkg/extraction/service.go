package extraction

import (
	"context"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"github.com/kgee-io/kgee/pkg/config"
	"github.com/kgee-io/kgee/pkg/hygiene"
	"github.com/kgee-io/kgee/pkg/models"
)

// Result is the output of one document extraction.
type Result struct {
	Entities         []models.Entity       `json:"entities"`
	Relations        []models.Relation     `json:"relations"`
	Stats            ConsolidationStats    `json:"stats"`
	Hygiene          hygiene.Report        `json:"hygiene"`
	SelfLoopsRemoved int                   `json:"self_loops_removed"`
}

// Service is the extraction entry point. It selects the NER-first pipeline
// or the legacy cascade per the feature flag, applies optional gleaning,
// runs the hygiene pass, and bounds process-wide parallelism with a
// semaphore so concurrent documents do not thrash the LLM backend.
type Service struct {
	features  config.Features
	pipeline  *Pipeline
	cascade   *Cascade
	gleaner   *Gleaner
	validator *hygiene.Validator
	sem       *semaphore.Weighted
}

// NewService creates the extraction service.
func NewService(
	features config.Features,
	pipeline *Pipeline,
	cascade *Cascade,
	gleaner *Gleaner,
	validator *hygiene.Validator,
	maxConcurrent int,
) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Service{
		features:  features,
		pipeline:  pipeline,
		cascade:   cascade,
		gleaner:   gleaner,
		validator: validator,
		sem:       semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// ExtractDocument runs the configured extraction flow over one chunk of
// text. The call blocks while the process is at its concurrency bound.
func (s *Service) ExtractDocument(ctx context.Context, text, domain, documentID string) (*Result, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	var (
		entities  []models.Entity
		relations []models.Relation
		stats     ConsolidationStats
		err       error
	)

	if s.features.NERFirstPipeline() {
		entities, relations, stats, err = s.pipeline.Extract(ctx, text, domain, documentID)
	} else {
		entities, relations, err = s.extractWithCascade(ctx, text, domain, documentID)
	}
	if err != nil {
		return nil, err
	}

	if s.gleaner != nil && s.gleaner.Steps() > 0 {
		entities = s.gleaner.GleanEntities(ctx, text, documentID, entities)
		relations = s.gleaner.GleanRelations(ctx, text, documentID, entities, relations)
	}

	cleaned, selfLoops := hygiene.CleanPair(relations)
	report := s.validator.Analyze(entities, cleaned)

	slog.Info("document_extraction_complete",
		"document_id", documentID,
		"entities", len(entities),
		"relations", len(cleaned),
		"self_loops_removed", selfLoops,
		"health_score", report.HealthScore())

	return &Result{
		Entities:         entities,
		Relations:        cleaned,
		Stats:            stats,
		Hygiene:          report,
		SelfLoopsRemoved: selfLoops,
	}, nil
}

// extractWithCascade runs the legacy driver: entities and relations each
// fall through the rank table independently.
func (s *Service) extractWithCascade(ctx context.Context, text, domain, documentID string) ([]models.Entity, []models.Relation, error) {
	text = s.pipeline.ResolveCoreference(text, documentID)
	entities, err := s.cascade.ExtractEntities(ctx, text, domain, documentID)
	if err != nil {
		return nil, nil, err
	}
	relations, err := s.cascade.ExtractRelations(ctx, text, domain, documentID, entities)
	if err != nil {
		return nil, nil, err
	}
	return entities, relations, nil
}
