package extraction

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kgee-io/kgee/pkg/config"
	"github.com/kgee-io/kgee/pkg/llm"
	"github.com/kgee-io/kgee/pkg/models"
	"github.com/kgee-io/kgee/pkg/parse"
	"github.com/kgee-io/kgee/pkg/prompt"
)

// Gleaner runs the optional multi-pass extraction loop: after the initial
// round, a completeness probe asks the LLM whether items were missed; while
// it answers YES (or the probe fails), a continuation extraction appends the
// missing items, up to the configured number of rounds.
//
// Continuation rounds always use the first cascade rank's model and
// timeouts, matching the original behavior even when the legacy cascade is
// the active driver. Flagged for review in DESIGN.md.
type Gleaner struct {
	executor *Executor
	rank     rankParams
	steps    int
}

type rankParams struct {
	model   string
	timeout int
	policy  RetryPolicy
}

func (p rankParams) timeoutDuration() time.Duration {
	return time.Duration(p.timeout) * time.Second
}

// gleaningTask builds the gateway task for a continuation round.
func gleaningTask(rendered, model string) llm.Task {
	return llm.Task{
		Kind:          llm.TaskExtraction,
		Prompt:        rendered,
		UseCase:       config.UseCaseEntityExtraction,
		ModelOverride: model,
		Temperature:   0.1,
		MaxTokens:     2048,
	}
}

// NewGleaner creates a gleaner using the first cascade rank's parameters.
// steps is the number of probe/continuation rounds; 0 disables gleaning.
func NewGleaner(executor *Executor, cascade *Cascade, steps int) *Gleaner {
	params := rankParams{policy: RetryPolicy{MaxAttempts: 1, BackoffMultiplier: 1}}
	if ranks := cascade.Ranks(); len(ranks) > 0 {
		first := ranks[0]
		params = rankParams{
			model:   first.Model,
			timeout: first.EntityTimeoutS,
			policy:  RetryPolicy{MaxAttempts: first.MaxRetries, BackoffMultiplier: first.RetryBackoffMultiplier},
		}
	}
	return &Gleaner{executor: executor, rank: params, steps: steps}
}

// Steps returns the configured round count.
func (g *Gleaner) Steps() int { return g.steps }

// GleanEntities runs up to steps probe/continuation rounds over the entity
// list and returns the deduplicated union.
func (g *Gleaner) GleanEntities(ctx context.Context, text, documentID string, entities []models.Entity) []models.Entity {
	if g.steps <= 0 {
		return entities
	}

	all := entities
	for round := 2; round <= g.steps+1; round++ {
		probe := prompt.Render(prompt.EntityCompletenessPrompt, map[string]string{
			"entities": FormatEntityList(all),
			"text":     text,
		})
		incomplete, err := g.executor.askYesNo(ctx, probe, g.rank.model, g.rank.timeoutDuration())
		if err != nil {
			// A failed probe assumes the extraction is incomplete.
			slog.Warn("gleaning_completeness_check_failed", "round", round, "error", err)
			incomplete = true
		}
		if !incomplete {
			slog.Info("gleaning_complete", "round", round, "entities", len(all))
			break
		}

		more, err := g.continueEntities(ctx, text, documentID, all)
		if err != nil {
			slog.Warn("gleaning_continuation_failed", "round", round, "error", err)
			break
		}
		if len(more) == 0 {
			break
		}
		all = append(all, more...)
	}

	deduped, removed := DedupeEntities(all)
	if removed > 0 {
		slog.Info("gleaning_deduplication_complete", "removed", removed, "kept", len(deduped))
	}
	return deduped
}

// GleanRelations runs up to steps probe/continuation rounds over the
// relation list.
func (g *Gleaner) GleanRelations(ctx context.Context, text, documentID string, entities []models.Entity, relations []models.Relation) []models.Relation {
	if g.steps <= 0 {
		return relations
	}

	all := relations
	for round := 2; round <= g.steps+1; round++ {
		probe := prompt.Render(prompt.RelationCompletenessPrompt, map[string]string{
			"relationships": FormatRelationList(all),
			"entities":      FormatEntityList(entities),
			"text":          text,
		})
		incomplete, err := g.executor.askYesNo(ctx, probe, g.rank.model, g.rank.timeoutDuration())
		if err != nil {
			slog.Warn("gleaning_completeness_check_failed", "round", round, "error", err)
			incomplete = true
		}
		if !incomplete {
			break
		}

		more, err := g.continueRelations(ctx, text, documentID, entities, all)
		if err != nil {
			slog.Warn("gleaning_continuation_failed", "round", round, "error", err)
			break
		}
		if len(more) == 0 {
			break
		}
		all = append(all, more...)
	}

	return DedupeRelations(all)
}

func (g *Gleaner) continueEntities(ctx context.Context, text, documentID string, existing []models.Entity) ([]models.Entity, error) {
	rendered := prompt.Render(prompt.EntityContinuationPrompt, map[string]string{
		"entities": FormatEntityList(existing),
		"text":     text,
	})
	return stageCall(ctx, "entity_gleaning", g.rank.timeoutDuration(), g.rank.policy,
		func(ctx context.Context) ([]models.Entity, error) {
			result, err := g.executor.gateway.Generate(ctx, gleaningTask(rendered, g.rank.model))
			if err != nil {
				return nil, err
			}
			objects, err := parse.ExtractObjects(result.Content, parse.KindEntity)
			if err != nil {
				return nil, err
			}
			return buildEntities(objects, documentID, models.OriginGleaning, gleaningConfidence), nil
		})
}

func (g *Gleaner) continueRelations(ctx context.Context, text, documentID string, entities []models.Entity, existing []models.Relation) ([]models.Relation, error) {
	rendered := prompt.Render(prompt.RelationContinuationPrompt, map[string]string{
		"relationships": FormatRelationList(existing),
		"entities":      FormatEntityList(entities),
		"text":          text,
	})
	return stageCall(ctx, "relation_gleaning", g.rank.timeoutDuration(), g.rank.policy,
		func(ctx context.Context) ([]models.Relation, error) {
			result, err := g.executor.gateway.Generate(ctx, gleaningTask(rendered, g.rank.model))
			if err != nil {
				return nil, err
			}
			objects, err := parse.ExtractObjects(result.Content, parse.KindRelationship)
			if err != nil {
				return nil, err
			}
			return buildRelations(objects, documentID), nil
		})
}

// DedupeEntities merges duplicate entities: case-insensitive exact matches
// keep the higher-confidence entity; substring containment keeps the longer
// form. Returns the kept list and the number removed.
func DedupeEntities(entities []models.Entity) ([]models.Entity, int) {
	removed := 0

	// Exact pass.
	byName := make(map[string]models.Entity)
	var order []string
	for _, ent := range entities {
		key := strings.ToLower(strings.TrimSpace(ent.Name))
		if key == "" {
			removed++
			continue
		}
		if existing, ok := byName[key]; ok {
			removed++
			if ent.Confidence > existing.Confidence {
				byName[key] = ent
			}
			continue
		}
		byName[key] = ent
		order = append(order, key)
	}

	// Containment pass: a name fully contained in a longer kept name loses.
	dropped := make(map[string]bool)
	for i := 0; i < len(order); i++ {
		for j := 0; j < len(order); j++ {
			if i == j || dropped[order[i]] || dropped[order[j]] {
				continue
			}
			a, b := order[i], order[j]
			if len(a) < len(b) && strings.Contains(b, a) {
				dropped[a] = true
				removed++
			}
		}
	}

	out := make([]models.Entity, 0, len(order))
	for _, key := range order {
		if !dropped[key] {
			out = append(out, byName[key])
		}
	}
	return out, removed
}
