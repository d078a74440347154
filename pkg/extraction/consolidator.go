package extraction

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/kgee-io/kgee/pkg/models"
	"github.com/kgee-io/kgee/pkg/preprocess"
)

// Generic type buckets rejected outright, from either source.
var invalidEntityTypes = map[string]bool{
	"ENTITY":  true,
	"MISC":    true,
	"UNKNOWN": true,
}

// Leading articles stripped per language before the stop-word check.
var articlesByLang = map[preprocess.Language][]string{
	preprocess.LangEnglish: {"the", "a", "an"},
	preprocess.LangGerman:  {"der", "die", "das", "den", "dem", "ein", "eine"},
	preprocess.LangFrench:  {"le", "la", "les", "l'", "un", "une", "des"},
	preprocess.LangSpanish: {"el", "la", "los", "las", "un", "una", "unos", "unas"},
}

// ConsolidationStats records what the consolidator filtered and why.
type ConsolidationStats struct {
	NERInput            int `json:"ner_input"`
	LLMInput            int `json:"llm_input"`
	TotalInput          int `json:"total_input"`
	FilteredByType      int `json:"filtered_by_type"`
	FilteredByLength    int `json:"filtered_by_length"`
	FilteredByStopWord  int `json:"filtered_by_stop_word"`
	FilteredByDuplicate int `json:"filtered_by_duplicate"`
	TotalOutput         int `json:"total_output"`
}

// FilterRate returns the percentage of input entities removed.
func (s ConsolidationStats) FilterRate() float64 {
	if s.TotalInput == 0 {
		return 0
	}
	return float64(s.TotalInput-s.TotalOutput) / float64(s.TotalInput) * 100
}

// Embedder is the optional embedding service used for semantic dedup.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ConsolidatorConfig tunes filtering and deduplication.
type ConsolidatorConfig struct {
	MinLength           int
	MaxLength           int
	SimilarityThreshold float64
	StripArticles       bool
	Language            preprocess.Language
}

// Consolidator merges NER entities (trusted) with LLM-enrichment entities
// (less trusted): validates types, filters by length and stop words,
// deduplicates NER-first by exact name and optionally by embedding
// similarity.
type Consolidator struct {
	cfg      ConsolidatorConfig
	embedder Embedder
}

// NewConsolidator creates a consolidator. embedder may be nil, which
// disables semantic dedup.
func NewConsolidator(cfg ConsolidatorConfig, embedder Embedder) *Consolidator {
	if cfg.MinLength <= 0 {
		cfg.MinLength = models.MinEntityNameLength
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = models.MaxEntityNameLength
	}
	if cfg.SimilarityThreshold <= 0 || cfg.SimilarityThreshold > 1 {
		cfg.SimilarityThreshold = 0.85
	}
	if cfg.Language == "" {
		cfg.Language = preprocess.LangEnglish
	}
	return &Consolidator{cfg: cfg, embedder: embedder}
}

// Consolidate merges the two entity lists and returns the kept entities with
// filtering stats. Every surviving NER entity is kept; LLM entities are
// dropped when they duplicate a kept name.
func (c *Consolidator) Consolidate(ctx context.Context, nerEntities, llmEntities []models.Entity) ([]models.Entity, ConsolidationStats) {
	stats := ConsolidationStats{
		NERInput:   len(nerEntities),
		LLMInput:   len(llmEntities),
		TotalInput: len(nerEntities) + len(llmEntities),
	}

	filteredNER := c.filter(nerEntities, &stats)
	filteredLLM := c.filter(llmEntities, &stats)

	result := make([]models.Entity, 0, len(filteredNER)+len(filteredLLM))
	result = append(result, filteredNER...)

	existing := make(map[string]bool, len(filteredNER))
	for _, ent := range filteredNER {
		existing[strings.ToLower(strings.TrimSpace(ent.Name))] = true
	}

	for _, ent := range filteredLLM {
		key := strings.ToLower(strings.TrimSpace(ent.Name))
		if existing[key] {
			stats.FilteredByDuplicate++
			continue
		}
		if c.embedder != nil && c.isSemanticDuplicate(ctx, ent.Name, existing) {
			stats.FilteredByDuplicate++
			continue
		}
		result = append(result, ent)
		existing[key] = true
	}

	stats.TotalOutput = len(result)
	slog.Info("entity_consolidation_complete",
		"ner_input", stats.NERInput,
		"llm_input", stats.LLMInput,
		"filtered_by_type", stats.FilteredByType,
		"filtered_by_length", stats.FilteredByLength,
		"filtered_by_duplicate", stats.FilteredByDuplicate,
		"total_output", stats.TotalOutput)

	return result, stats
}

// filter applies type, length, and stop-word rules to one source list.
func (c *Consolidator) filter(entities []models.Entity, stats *ConsolidationStats) []models.Entity {
	filtered := make([]models.Entity, 0, len(entities))
	for _, ent := range entities {
		name := strings.TrimSpace(ent.Name)
		typ := strings.ToUpper(strings.TrimSpace(ent.Type))

		if invalidEntityTypes[typ] {
			stats.FilteredByType++
			continue
		}
		if len(name) < c.cfg.MinLength {
			stats.FilteredByLength++
			continue
		}
		if len(name) > c.cfg.MaxLength {
			// Sentence-length names are LLM noise, not entities.
			stats.FilteredByLength++
			continue
		}
		if c.cfg.StripArticles {
			stripped := c.stripArticle(name)
			if stripped == "" || c.isStopWordName(stripped) {
				stats.FilteredByStopWord++
				continue
			}
			ent.Name = stripped
		} else if c.isStopWordName(name) {
			stats.FilteredByStopWord++
			continue
		}

		filtered = append(filtered, ent)
	}
	return filtered
}

// stripArticle removes a single leading article for the configured language.
func (c *Consolidator) stripArticle(name string) string {
	lower := strings.ToLower(name)
	for _, article := range articlesByLang[c.cfg.Language] {
		if strings.HasSuffix(article, "'") {
			if strings.HasPrefix(lower, article) {
				return strings.TrimSpace(name[len(article):])
			}
			continue
		}
		if strings.HasPrefix(lower, article+" ") {
			return strings.TrimSpace(name[len(article)+1:])
		}
	}
	return name
}

// isStopWordName reports whether every token of the name is a stop word.
func (c *Consolidator) isStopWordName(name string) bool {
	words := strings.Fields(strings.ToLower(name))
	if len(words) == 0 {
		return true
	}
	for _, w := range words {
		if !preprocess.IsStopWord(c.cfg.Language, w) {
			return false
		}
	}
	return true
}

// isSemanticDuplicate checks embedding cosine similarity between the
// candidate and every kept name. Embedding failures disable the check for
// this candidate rather than blocking consolidation.
func (c *Consolidator) isSemanticDuplicate(ctx context.Context, name string, existing map[string]bool) bool {
	candidate, err := c.embedder.Embed(ctx, name)
	if err != nil {
		slog.Debug("semantic_dedup_embed_failed", "name", name, "error", err)
		return false
	}
	for kept := range existing {
		vec, err := c.embedder.Embed(ctx, kept)
		if err != nil {
			continue
		}
		if CosineSimilarity(candidate, vec) >= c.cfg.SimilarityThreshold {
			return true
		}
	}
	return false
}

// CosineSimilarity computes the cosine similarity of two vectors. Mismatched
// or empty vectors score zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
