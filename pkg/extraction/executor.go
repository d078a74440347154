package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kgee-io/kgee/pkg/config"
	"github.com/kgee-io/kgee/pkg/llm"
	"github.com/kgee-io/kgee/pkg/models"
	"github.com/kgee-io/kgee/pkg/parse"
	"github.com/kgee-io/kgee/pkg/prompt"
)

// Per-chunk output caps.
const (
	maxEntitiesPerChunk  = 50
	maxRelationsPerChunk = 100
)

// Default confidences by origin.
const (
	nerConfidence      = 0.9
	llmConfidence      = 0.7
	gleaningConfidence = 0.6
)

// Gateway is the slice of the LLM gateway the executor needs.
type Gateway interface {
	Generate(ctx context.Context, task llm.Task) (*llm.Result, error)
}

// Executor runs one extraction call under one rank/stage configuration:
// format the prompt, call the gateway, parse the response, build typed
// values, all bounded by the stage timeout and retried per policy.
type Executor struct {
	gateway  Gateway
	resolver *prompt.Resolver
}

// NewExecutor creates a stage executor.
func NewExecutor(gateway Gateway, resolver *prompt.Resolver) *Executor {
	return &Executor{gateway: gateway, resolver: resolver}
}

// stageCall is the timeout/retry envelope shared by all stage operations.
// It logs exactly one structured event per outcome.
func stageCall[T any](
	ctx context.Context,
	stage string,
	timeout time.Duration,
	policy RetryPolicy,
	fn func(context.Context) (T, error),
) (T, error) {
	start := time.Now()
	result, err := withRetry(ctx, policy, stage, func(ctx context.Context) (T, error) {
		callCtx := ctx
		var cancel context.CancelFunc
		if timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		out, err := fn(callCtx)
		if err != nil && callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return out, &TimeoutError{Stage: stage, Timeout: timeout}
		}
		return out, err
	})

	duration := time.Since(start).Milliseconds()
	if err != nil {
		slog.Warn("stage_failed", "stage", stage, "duration_ms", duration, "error", err)
		var zero T
		return zero, err
	}
	slog.Info("stage_completed", "stage", stage, "duration_ms", duration)
	return result, nil
}

// ExtractEntities runs one LLM entity extraction over text.
func (e *Executor) ExtractEntities(
	ctx context.Context,
	text, domain, documentID, model string,
	timeout time.Duration,
	policy RetryPolicy,
) ([]models.Entity, error) {
	entityPrompt, _ := e.resolver.Resolve(ctx, domain)
	rendered := prompt.Render(entityPrompt, map[string]string{
		"text":   text,
		"domain": domain,
	})

	return stageCall(ctx, "entity_extraction", timeout, policy,
		func(ctx context.Context) ([]models.Entity, error) {
			result, err := e.gateway.Generate(ctx, llm.Task{
				Kind:          llm.TaskExtraction,
				Prompt:        rendered,
				UseCase:       config.UseCaseEntityExtraction,
				ModelOverride: model,
				Temperature:   0.1,
				MaxTokens:     2048,
			})
			if err != nil {
				return nil, err
			}
			objects, err := parse.ExtractObjects(result.Content, parse.KindEntity)
			if err != nil {
				return nil, err
			}
			return buildEntities(objects, documentID, models.OriginLLM, llmConfidence), nil
		})
}

// EnrichEntities asks the LLM for additional entity kinds only, given the
// entities already extracted. Entities duplicating an existing name
// (case-insensitive) are dropped.
func (e *Executor) EnrichEntities(
	ctx context.Context,
	text, documentID, model string,
	existing []models.Entity,
	timeout time.Duration,
	policy RetryPolicy,
) ([]models.Entity, error) {
	rendered := prompt.Render(prompt.EnrichmentPrompt, map[string]string{
		"text":     text,
		"entities": FormatEntityList(existing),
	})

	enriched, err := stageCall(ctx, "entity_enrichment", timeout, policy,
		func(ctx context.Context) ([]models.Entity, error) {
			result, err := e.gateway.Generate(ctx, llm.Task{
				Kind:          llm.TaskExtraction,
				Prompt:        rendered,
				UseCase:       config.UseCaseEntityExtraction,
				ModelOverride: model,
				Temperature:   0.1,
				MaxTokens:     2048,
			})
			if err != nil {
				return nil, err
			}
			objects, err := parse.ExtractObjects(result.Content, parse.KindEntity)
			if err != nil {
				return nil, err
			}
			return buildEntities(objects, documentID, models.OriginLLM, llmConfidence), nil
		})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(existing))
	for _, ent := range existing {
		seen[strings.ToLower(ent.Name)] = true
	}
	kept := enriched[:0]
	for _, ent := range enriched {
		if seen[strings.ToLower(ent.Name)] {
			continue
		}
		kept = append(kept, ent)
	}
	return kept, nil
}

// ExtractRelations runs one LLM relation extraction over text given the
// consolidated entity list.
func (e *Executor) ExtractRelations(
	ctx context.Context,
	text, domain, documentID, model string,
	entities []models.Entity,
	timeout time.Duration,
	policy RetryPolicy,
) ([]models.Relation, error) {
	_, relationPrompt := e.resolver.Resolve(ctx, domain)
	rendered := prompt.Render(relationPrompt, map[string]string{
		"text":     text,
		"entities": FormatEntityList(entities),
		"domain":   domain,
	})

	return stageCall(ctx, "relation_extraction", timeout, policy,
		func(ctx context.Context) ([]models.Relation, error) {
			result, err := e.gateway.Generate(ctx, llm.Task{
				Kind:          llm.TaskExtraction,
				Prompt:        rendered,
				UseCase:       config.UseCaseRelationExtraction,
				ModelOverride: model,
				Temperature:   0.1,
				MaxTokens:     3072,
			})
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

// askYesNo runs a classification prompt expecting a strict YES/NO answer.
// Used by the gleaning completeness probes.
func (e *Executor) askYesNo(ctx context.Context, question, model string, timeout time.Duration) (bool, error) {
	callCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	result, err := e.gateway.Generate(callCtx, llm.Task{
		Kind:          llm.TaskClassification,
		Prompt:        question,
		UseCase:       config.UseCaseClassifier,
		ModelOverride: model,
		Temperature:   0,
		MaxTokens:     8,
	})
	if err != nil {
		return false, err
	}
	answer := strings.ToUpper(strings.TrimSpace(result.Content))
	return strings.HasPrefix(answer, "YES"), nil
}

// FormatEntityList renders entities as "Name (TYPE)" lines for prompts.
func FormatEntityList(entities []models.Entity) string {
	if len(entities) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for i, ent := range entities {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s (%s)", ent.Name, ent.Type)
	}
	return b.String()
}

// FormatRelationList renders relations as "source -TYPE-> target" lines.
func FormatRelationList(relations []models.Relation) string {
	if len(relations) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for i, rel := range relations {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s -%s-> %s", rel.Source, rel.Type, rel.Target)
	}
	return b.String()
}

// buildEntities converts parsed objects into typed entities: names are
// word-capped, types alias-mapped into the universal set, and the list is
// truncated to the per-chunk cap.
func buildEntities(objects []map[string]any, documentID string, origin models.EntityOrigin, confidence float64) []models.Entity {
	entities := make([]models.Entity, 0, len(objects))
	for _, obj := range objects {
		name, _ := obj["name"].(string)
		name = models.TruncateEntityName(name, models.MaxEntityNameWords)
		if strings.TrimSpace(name) == "" {
			continue
		}
		typ, _ := obj["type"].(string)
		description, _ := obj["description"].(string)

		conf := confidence
		if c, ok := obj["confidence"].(float64); ok && c > 0 && c <= 1 {
			conf = c
		}

		entities = append(entities, models.Entity{
			ID:             uuid.New().String(),
			Name:           name,
			Type:           models.NormalizeEntityType(typ),
			Description:    description,
			SourceDocument: documentID,
			Confidence:     conf,
			Properties:     map[string]any{models.PropOrigin: string(origin)},
		})
		if len(entities) >= maxEntitiesPerChunk {
			slog.Warn("entity_list_truncated", "cap", maxEntitiesPerChunk)
			break
		}
	}
	return entities
}

// buildRelations converts parsed objects into typed relations with the
// per-chunk cap applied. Types are alias-mapped into the universal set.
func buildRelations(objects []map[string]any, documentID string) []models.Relation {
	relations := make([]models.Relation, 0, len(objects))
	for _, obj := range objects {
		source, _ := obj["source"].(string)
		target, _ := obj["target"].(string)
		if strings.TrimSpace(source) == "" || strings.TrimSpace(target) == "" {
			continue
		}
		typ, _ := obj["type"].(string)
		description, _ := obj["description"].(string)
		evidence, _ := obj["evidence_span"].(string)

		strength := 5
		if s, ok := obj["strength"].(float64); ok && s >= 1 && s <= 10 {
			strength = int(s)
		}
		confidence := llmConfidence
		if c, ok := obj["confidence"].(float64); ok && c > 0 && c <= 1 {
			confidence = c
		}

		relations = append(relations, models.Relation{
			ID:             uuid.New().String(),
			Source:         strings.TrimSpace(source),
			Target:         strings.TrimSpace(target),
			Type:           models.NormalizeRelationType(typ),
			Description:    description,
			EvidenceSpan:   evidence,
			SourceDocument: documentID,
			Confidence:     confidence,
			Strength:       strength,
		})
		if len(relations) >= maxRelationsPerChunk {
			slog.Warn("relation_list_truncated", "cap", maxRelationsPerChunk)
			break
		}
	}
	return relations
}
