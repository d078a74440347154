package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/kgee-io/kgee/pkg/config"
	"github.com/kgee-io/kgee/pkg/models"
	"github.com/kgee-io/kgee/pkg/ner"
	"github.com/kgee-io/kgee/pkg/preprocess"
)

// Pipeline is the NER-first three-stage driver: deterministic NER baseline,
// mandatory LLM entity enrichment, consolidation, then windowed LLM relation
// extraction.
type Pipeline struct {
	stages       []config.PipelineStageConfig
	executor     *Executor
	nerRegistry  *ner.Registry
	consolidator *Consolidator
	windower     *preprocess.Windower
	features     config.Features
	corefMaxDist int
}

// NewPipeline creates the pipeline driver.
func NewPipeline(
	stages []config.PipelineStageConfig,
	executor *Executor,
	nerRegistry *ner.Registry,
	consolidator *Consolidator,
	windower *preprocess.Windower,
	features config.Features,
	corefMaxDist int,
) *Pipeline {
	return &Pipeline{
		stages:       stages,
		executor:     executor,
		nerRegistry:  nerRegistry,
		consolidator: consolidator,
		windower:     windower,
		features:     features,
		corefMaxDist: corefMaxDist,
	}
}

// stageByMethod finds the stage config for a method; zero value if absent.
func (p *Pipeline) stageByMethod(method config.ExtractionMethod) (config.PipelineStageConfig, bool) {
	for _, stage := range p.stages {
		if stage.Method == method {
			return stage, true
		}
	}
	return config.PipelineStageConfig{}, false
}

// ResolveCoreference rewrites pronouns to antecedents when the feature is
// enabled. Shared by both drivers; never fails.
func (p *Pipeline) ResolveCoreference(text, documentID string) string {
	if !p.features.Coreference() {
		return text
	}
	lang := preprocess.DetectLanguage(text)
	tagger := ner.NewTagger(p.nerRegistry, lang)
	resolver := preprocess.NewCorefResolver(lang, p.corefMaxDist, tagger)
	resolved, count := resolver.Resolve(text)
	if count > 0 {
		slog.Debug("coreference_applied", "document_id", documentID, "resolutions", count)
	}
	return resolved
}

// Extract runs the full pipeline over one chunk of text.
func (p *Pipeline) Extract(ctx context.Context, text, domain, documentID string) ([]models.Entity, []models.Relation, ConsolidationStats, error) {
	lang := preprocess.DetectLanguage(text)

	entityText := p.ResolveCoreference(text, documentID)

	// Stage 1: NER baseline, with optional single LLM fallback.
	nerEntities, err := p.runNERStage(ctx, entityText, domain, documentID, lang)
	if err != nil {
		return nil, nil, ConsolidationStats{}, err
	}

	// Stage 2: LLM entity enrichment is mandatory in this pipeline.
	var llmEntities []models.Entity
	if stage, ok := p.stageByMethod(config.MethodLLMEntityEnrichment); ok {
		llmEntities, err = p.executor.EnrichEntities(ctx, entityText, documentID, stage.Model,
			nerEntities, stage.Timeout(), RetryPolicy{MaxAttempts: stage.MaxRetries, BackoffMultiplier: 1})
		if err != nil {
			return nil, nil, ConsolidationStats{}, fmt.Errorf("entity enrichment: %w", err)
		}
	}

	// Stage 2.5: consolidation before relation extraction.
	entities, stats := p.consolidator.Consolidate(ctx, nerEntities, llmEntities)

	// Stage 3: windowed relation extraction across the consolidated list.
	relations, err := p.extractRelations(ctx, entityText, domain, documentID, entities)
	if err != nil {
		return nil, nil, stats, err
	}

	return entities, relations, stats, nil
}

// runNERStage executes the deterministic baseline; on empty output or
// failure with fallback_to_llm set, runs a single LLM entity extraction.
func (p *Pipeline) runNERStage(ctx context.Context, text, domain, documentID string, lang preprocess.Language) ([]models.Entity, error) {
	stage, ok := p.stageByMethod(config.MethodNEROnly)
	if !ok {
		return nil, nil
	}

	entities := p.RecognizeEntities(text, documentID, lang)
	if len(entities) > 0 {
		return entities, nil
	}

	if !stage.FallbackToLLM {
		return nil, nil
	}

	slog.Info("ner_empty_falling_back_to_llm", "document_id", documentID)
	enrichStage, _ := p.stageByMethod(config.MethodLLMEntityEnrichment)
	fallback, err := p.executor.ExtractEntities(ctx, text, domain, documentID, enrichStage.Model,
		stage.Timeout(), RetryPolicy{MaxAttempts: stage.MaxRetries, BackoffMultiplier: 1})
	if err != nil {
		// The baseline is best-effort: enrichment still runs.
		slog.Warn("ner_llm_fallback_failed", "document_id", documentID, "error", err)
		return nil, nil
	}
	return fallback, nil
}

// RecognizeEntities maps NER mentions into typed entities with offset
// provenance.
func (p *Pipeline) RecognizeEntities(text, documentID string, lang preprocess.Language) []models.Entity {
	mentions := p.nerRegistry.Get(lang).Recognize(text)
	entities := make([]models.Entity, 0, len(mentions))
	seen := make(map[string]bool, len(mentions))
	for _, m := range mentions {
		key := strings.ToLower(m.Text)
		if seen[key] {
			continue
		}
		seen[key] = true
		entities = append(entities, models.Entity{
			ID:             uuid.New().String(),
			Name:           m.Text,
			Type:           ner.MapLabel(m.Label),
			SourceDocument: documentID,
			Confidence:     nerConfidence,
			Properties: map[string]any{
				models.PropOrigin:    string(models.OriginNER),
				models.PropNERLabel:  m.Label,
				models.PropStartChar: m.Start,
				models.PropEndChar:   m.End,
			},
		})
	}
	return entities
}

// extractRelations runs stage 3 over sentence windows and merges results by
// deduplicating (source, target, type) triples case-insensitively.
func (p *Pipeline) extractRelations(ctx context.Context, text, domain, documentID string, entities []models.Entity) ([]models.Relation, error) {
	stage, ok := p.stageByMethod(config.MethodLLMRelationOnly)
	if !ok || len(entities) == 0 {
		return nil, nil
	}

	windows := []string{text}
	if p.features.CrossSentence() {
		wins := p.windower.Windows(text)
		windows = windows[:0]
		for _, w := range wins {
			windows = append(windows, w.Text())
		}
	}

	policy := RetryPolicy{MaxAttempts: stage.MaxRetries, BackoffMultiplier: 1}
	var all []models.Relation
	for i, window := range windows {
		relations, err := p.executor.ExtractRelations(ctx, window, domain, documentID,
			stage.Model, entities, stage.Timeout(), policy)
		if err != nil {
			if len(windows) == 1 {
				return nil, err
			}
			slog.Warn("window_relation_extraction_failed",
				"document_id", documentID, "window", i, "error", err)
			continue
		}
		all = append(all, relations...)
	}

	return DedupeRelations(all), nil
}

// DedupeRelations removes duplicate (source, target, type) triples,
// comparing names case-insensitively and keeping the first occurrence.
func DedupeRelations(relations []models.Relation) []models.Relation {
	seen := make(map[string]bool, len(relations))
	out := make([]models.Relation, 0, len(relations))
	for _, rel := range relations {
		key := strings.ToLower(rel.Source) + "\x00" + strings.ToLower(rel.Target) + "\x00" + strings.ToUpper(rel.Type)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, rel)
	}
	return out
}
