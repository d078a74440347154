package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubRepo struct {
	prompts *DomainPrompts
	err     error
}

func (s *stubRepo) GetDomain(context.Context, string) (*DomainPrompts, error) {
	return s.prompts, s.err
}

func TestResolveTrainedDomainWins(t *testing.T) {
	repo := &stubRepo{prompts: &DomainPrompts{
		EntityPrompt:   "custom entity {text}",
		RelationPrompt: "custom relation {text} {entities}",
		Status:         StatusTrained,
	}}
	r := NewResolver(repo, true)

	entity, relation := r.Resolve(context.Background(), "legal_contracts")
	assert.Equal(t, "custom entity {text}", entity)
	assert.Equal(t, "custom relation {text} {entities}", relation)
}

func TestResolveUntrainedDomainFallsThrough(t *testing.T) {
	repo := &stubRepo{prompts: &DomainPrompts{
		EntityPrompt:   "draft",
		RelationPrompt: "draft",
		Status:         "training",
	}}
	r := NewResolver(repo, true)

	entity, relation := r.Resolve(context.Background(), "legal_contracts")
	assert.Equal(t, DSPyEntityPrompt, entity)
	assert.Equal(t, DSPyRelationPrompt, relation)
}

func TestResolveRepoErrorFallsThroughSilently(t *testing.T) {
	r := NewResolver(&stubRepo{err: errors.New("repo down")}, true)
	entity, _ := r.Resolve(context.Background(), "x")
	assert.Equal(t, DSPyEntityPrompt, entity)
}

func TestResolveLegacyWhenDSPyDisabled(t *testing.T) {
	r := NewResolver(nil, false)
	entity, relation := r.Resolve(context.Background(), "")
	assert.Equal(t, LegacyEntityPrompt, entity)
	assert.Equal(t, LegacyRelationPrompt, relation)
}

func TestRender(t *testing.T) {
	out := Render("extract from {text} in {domain}", map[string]string{
		"text":   "some document",
		"domain": "technical",
	})
	assert.Equal(t, "extract from some document in technical", out)
}

func TestRenderUnusedPlaceholderIsNotAnError(t *testing.T) {
	out := Render("no placeholders here", map[string]string{"text": "x"})
	assert.Equal(t, "no placeholders here", out)

	// A placeholder in the template with no supplied value stays put.
	out = Render("keep {entities}", map[string]string{"text": "x"})
	assert.Equal(t, "keep {entities}", out)
}

func TestTemplatesCarryExpectedPlaceholders(t *testing.T) {
	assert.True(t, strings.Contains(DSPyEntityPrompt, "{text}"))
	assert.True(t, strings.Contains(DSPyEntityPrompt, "{domain}"))
	assert.True(t, strings.Contains(DSPyRelationPrompt, "{entities}"))
	assert.True(t, strings.Contains(EnrichmentPrompt, "{entities}"))
	assert.True(t, strings.Contains(PlanningPrompt, "{text}"))
}
