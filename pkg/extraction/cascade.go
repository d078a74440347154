package extraction

import (
	"context"
	"log/slog"

	"github.com/kgee-io/kgee/pkg/config"
	"github.com/kgee-io/kgee/pkg/models"
	"github.com/kgee-io/kgee/pkg/ner"
	"github.com/kgee-io/kgee/pkg/preprocess"
)

// Cascade is the legacy three-rank fallback driver: each rank is a complete
// attempt at extraction with a larger model or a different method; a rank
// failure falls through to the next rank with a structured cascade_fallback
// log.
type Cascade struct {
	ranks       []config.CascadeRankConfig
	executor    *Executor
	nerRegistry *ner.Registry
	pipeline    *Pipeline
}

// NewCascade creates the cascade driver. pipeline supplies the NER entity
// construction shared with the NER-first path.
func NewCascade(ranks []config.CascadeRankConfig, executor *Executor, nerRegistry *ner.Registry, pipeline *Pipeline) *Cascade {
	return &Cascade{ranks: ranks, executor: executor, nerRegistry: nerRegistry, pipeline: pipeline}
}

// Ranks exposes the rank table (gleaning uses rank 1).
func (c *Cascade) Ranks() []config.CascadeRankConfig { return c.ranks }

// ExtractEntities attempts entity extraction rank by rank. A cancelled
// context aborts without trying further ranks.
func (c *Cascade) ExtractEntities(ctx context.Context, text, domain, documentID string) ([]models.Entity, error) {
	var lastErr error
	for i, rank := range c.ranks {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		entities, err := c.entitiesForRank(ctx, rank, text, domain, documentID)
		if err == nil {
			return entities, nil
		}
		lastErr = err
		c.logFallback(i, documentID, err)
	}
	return nil, lastErr
}

// ExtractRelations attempts relation extraction rank by rank.
func (c *Cascade) ExtractRelations(ctx context.Context, text, domain, documentID string, entities []models.Entity) ([]models.Relation, error) {
	var lastErr error
	for i, rank := range c.ranks {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		policy := RetryPolicy{MaxAttempts: rank.MaxRetries, BackoffMultiplier: rank.RetryBackoffMultiplier}
		relations, err := c.executor.ExtractRelations(ctx, text, domain, documentID,
			rank.Model, entities, rank.RelationTimeout(), policy)
		if err == nil {
			return DedupeRelations(relations), nil
		}
		lastErr = err
		c.logFallback(i, documentID, err)
	}
	return nil, lastErr
}

func (c *Cascade) entitiesForRank(ctx context.Context, rank config.CascadeRankConfig, text, domain, documentID string) ([]models.Entity, error) {
	if rank.Method == config.MethodHybridNERLLM {
		// The NER baseline is synchronous and deterministic.
		lang := preprocess.DetectLanguage(text)
		return c.pipeline.RecognizeEntities(text, documentID, lang), nil
	}
	policy := RetryPolicy{MaxAttempts: rank.MaxRetries, BackoffMultiplier: rank.RetryBackoffMultiplier}
	return c.executor.ExtractEntities(ctx, text, domain, documentID, rank.Model, rank.EntityTimeout(), policy)
}

// logFallback emits one cascade_fallback event per rank transition. The last
// rank has no successor; its failure propagates to the caller instead.
func (c *Cascade) logFallback(rankIdx int, documentID string, err error) {
	if rankIdx+1 >= len(c.ranks) {
		return
	}
	from := c.ranks[rankIdx].Rank
	to := c.ranks[rankIdx+1].Rank
	slog.Warn("cascade_fallback",
		"from_rank", from,
		"to_rank", to,
		"reason", reasonFor(err),
		"document_id", documentID)
}
