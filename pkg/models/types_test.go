package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniversalVocabularySizes(t *testing.T) {
	assert.Len(t, UniversalEntityTypes, 15)
	assert.Len(t, UniversalRelationTypes, 22)
}

func TestNormalizeEntityType(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"universal passthrough", "PERSON", "PERSON"},
		{"case insensitive", "organization", "ORGANIZATION"},
		{"alias company", "COMPANY", "ORGANIZATION"},
		{"alias tool", "TOOL", "TECHNOLOGY"},
		{"alias paper", "PAPER", "DOCUMENT"},
		{"alias law", "LAW", "REGULATION"},
		{"alias algorithm", "ALGORITHM", "PROCESS"},
		{"unknown falls back", "WIDGET_KIND", "CONCEPT"},
		{"empty falls back", "", "CONCEPT"},
		{"whitespace trimmed", "  date  ", "TEMPORAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeEntityType(tt.in))
		})
	}
}

func TestNormalizeRelationType(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"universal passthrough", "PART_OF", "PART_OF"},
		{"case insensitive", "employs", "EMPLOYS"},
		{"alias relates_to", "RELATES_TO", "RELATED_TO"},
		{"alias founded", "FOUNDED", "FOUNDED_BY"},
		{"alias developed", "DEVELOPED", "CREATES"},
		{"alias based_on", "BASED_ON", "DEPENDS_ON"},
		{"spaces folded", "part of", "PART_OF"},
		{"unknown falls back", "ORBITS", "RELATED_TO"},
		{"empty falls back", "", "RELATED_TO"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeRelationType(tt.in))
		})
	}
}

func TestAliasTargetsAreUniversal(t *testing.T) {
	for alias, target := range EntityTypeAliases {
		assert.True(t, UniversalEntityTypes[target], "entity alias %s maps outside the universal set", alias)
	}
	for alias, target := range RelationTypeAliases {
		assert.True(t, UniversalRelationTypes[target], "relation alias %s maps outside the universal set", alias)
	}
}

func TestTruncateEntityName(t *testing.T) {
	assert.Equal(t, "NVIDIA", TruncateEntityName("NVIDIA", 4))
	assert.Equal(t, "Google Cloud Platform", TruncateEntityName("Google Cloud Platform", 4))
	assert.Equal(t, "NVIDIA Corporation headquartered in",
		TruncateEntityName("NVIDIA Corporation headquartered in Santa Clara California", 4))
	assert.Equal(t, "", TruncateEntityName("   ", 4))
}

func TestResearchStepProgress(t *testing.T) {
	assert.Equal(t, 0, StepPending.ProgressPercent())
	assert.Equal(t, 20, StepDecomposing.ProgressPercent())
	assert.Equal(t, 40, StepRetrieving.ProgressPercent())
	assert.Equal(t, 60, StepAnalyzing.ProgressPercent())
	assert.Equal(t, 80, StepSynthesizing.ProgressPercent())
	assert.Equal(t, 100, StepComplete.ProgressPercent())
	assert.Equal(t, 0, StepError.ProgressPercent())
}

func TestResearchStepIsValid(t *testing.T) {
	assert.True(t, StepRetrieving.IsValid())
	assert.False(t, ResearchStep("warming_up").IsValid())
}
