package extraction

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgee-io/kgee/pkg/models"
	"github.com/kgee-io/kgee/pkg/preprocess"
)

func ent(name, typ string, origin models.EntityOrigin) models.Entity {
	return models.Entity{
		Name: name, Type: typ, Confidence: 0.8,
		Properties: map[string]any{models.PropOrigin: string(origin)},
	}
}

func TestConsolidateRejectsGenericTypes(t *testing.T) {
	c := NewConsolidator(ConsolidatorConfig{}, nil)

	nerEntities := []models.Entity{
		ent("Microsoft", "ORGANIZATION", models.OriginNER),
		ent("Something", "ENTITY", models.OriginNER),
		ent("Other", "MISC", models.OriginNER),
	}
	llmEntities := []models.Entity{
		ent("Mystery", "UNKNOWN", models.OriginLLM),
	}

	result, stats := c.Consolidate(context.Background(), nerEntities, llmEntities)
	require.Len(t, result, 1)
	assert.Equal(t, "Microsoft", result[0].Name)
	assert.Equal(t, 3, stats.FilteredByType)

	for _, e := range result {
		assert.NotContains(t, []string{"ENTITY", "MISC", "UNKNOWN"}, e.Type)
	}
}

func TestConsolidateFiltersByLength(t *testing.T) {
	c := NewConsolidator(ConsolidatorConfig{MinLength: 2, MaxLength: 20}, nil)

	llmEntities := []models.Entity{
		ent("x", "CONCEPT", models.OriginLLM),
		ent("This is a whole sentence pretending to be an entity", "CONCEPT", models.OriginLLM),
		ent("Fine", "CONCEPT", models.OriginLLM),
	}

	result, stats := c.Consolidate(context.Background(), nil, llmEntities)
	require.Len(t, result, 1)
	assert.Equal(t, "Fine", result[0].Name)
	assert.Equal(t, 2, stats.FilteredByLength)
}

func TestConsolidateNERFirstDedup(t *testing.T) {
	c := NewConsolidator(ConsolidatorConfig{}, nil)

	nerEntities := []models.Entity{ent("Microsoft", "ORGANIZATION", models.OriginNER)}
	llmEntities := []models.Entity{
		ent("microsoft", "TECHNOLOGY", models.OriginLLM),
		ent("Azure", "PRODUCT", models.OriginLLM),
	}

	result, stats := c.Consolidate(context.Background(), nerEntities, llmEntities)
	require.Len(t, result, 2)
	assert.Equal(t, "Microsoft", result[0].Name, "every retained NER entity is kept")
	assert.Equal(t, 1, stats.FilteredByDuplicate)

	// No two entities share a lower-cased name.
	seen := map[string]bool{}
	for _, e := range result {
		key := strings.ToLower(e.Name)
		assert.False(t, seen[key])
		seen[key] = true
	}
}

type fixedEmbedder struct {
	vectors map[string][]float32
}

func (f *fixedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[strings.ToLower(text)]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func TestConsolidateSemanticDedup(t *testing.T) {
	embedder := &fixedEmbedder{vectors: map[string][]float32{
		"microsoft":      {1, 0, 0},
		"microsoft corp": {0.99, 0.05, 0},
		"qdrant":         {0, 1, 0},
	}}
	c := NewConsolidator(ConsolidatorConfig{SimilarityThreshold: 0.85}, embedder)

	nerEntities := []models.Entity{ent("Microsoft", "ORGANIZATION", models.OriginNER)}
	llmEntities := []models.Entity{
		ent("Microsoft Corp", "ORGANIZATION", models.OriginLLM),
		ent("Qdrant", "TECHNOLOGY", models.OriginLLM),
	}

	result, stats := c.Consolidate(context.Background(), nerEntities, llmEntities)
	require.Len(t, result, 2)
	assert.Equal(t, 1, stats.FilteredByDuplicate)

	names := []string{result[0].Name, result[1].Name}
	assert.Contains(t, names, "Qdrant")
	assert.NotContains(t, names, "Microsoft Corp")
}

func TestConsolidateStripArticlesAndStopWords(t *testing.T) {
	c := NewConsolidator(ConsolidatorConfig{
		StripArticles: true,
		Language:      preprocess.LangEnglish,
	}, nil)

	llmEntities := []models.Entity{
		ent("the Transformer", "ARCHITECTURE", models.OriginLLM),
		ent("the and", "CONCEPT", models.OriginLLM),
	}

	result, stats := c.Consolidate(context.Background(), nil, llmEntities)
	require.Len(t, result, 1)
	assert.Equal(t, "Transformer", result[0].Name)
	assert.Equal(t, 1, stats.FilteredByStopWord)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, CosineSimilarity(nil, []float32{1}))
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 2}))
}

func TestFilterRate(t *testing.T) {
	stats := ConsolidationStats{TotalInput: 10, TotalOutput: 7}
	assert.InDelta(t, 30.0, stats.FilterRate(), 1e-9)
	assert.Zero(t, ConsolidationStats{}.FilterRate())
}
