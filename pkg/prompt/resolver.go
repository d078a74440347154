package prompt

import (
	"context"
	"log/slog"
	"strings"
)

// DomainPrompts is a trained prompt pair stored in the domain repository.
type DomainPrompts struct {
	EntityPrompt   string
	RelationPrompt string
	Status         string
}

// StatusTrained marks a domain whose custom prompts are ready for use.
const StatusTrained = "trained"

// DomainRepository looks up per-domain prompt overrides. Optional; a nil
// repository always falls through to the built-in pairs.
type DomainRepository interface {
	GetDomain(ctx context.Context, name string) (*DomainPrompts, error)
}

// Resolver selects the active (entity, relation) prompt pair for a domain.
//
// Priority:
//  1. Trained custom prompts from the domain repository
//  2. The DSPy-optimized universal pair (when enabled; default)
//  3. The legacy generic pair
//
// Any lookup failure falls through silently to the next level.
type Resolver struct {
	repo       DomainRepository
	useDSPy    bool
}

// NewResolver creates a resolver. repo may be nil.
func NewResolver(repo DomainRepository, useDSPy bool) *Resolver {
	return &Resolver{repo: repo, useDSPy: useDSPy}
}

// Resolve returns the (entity, relation) prompt pair for a domain.
func (r *Resolver) Resolve(ctx context.Context, domain string) (string, string) {
	if r.repo != nil && domain != "" {
		prompts, err := r.repo.GetDomain(ctx, domain)
		if err != nil {
			slog.Debug("domain_prompt_lookup_failed", "domain", domain, "error", err)
		} else if prompts != nil && prompts.Status == StatusTrained &&
			prompts.EntityPrompt != "" && prompts.RelationPrompt != "" {
			return prompts.EntityPrompt, prompts.RelationPrompt
		}
	}

	if r.useDSPy {
		return DSPyEntityPrompt, DSPyRelationPrompt
	}
	return LegacyEntityPrompt, LegacyRelationPrompt
}

// Render substitutes placeholder values into a template. Placeholders absent
// from the template are ignored; placeholders without a value are left
// untouched.
func Render(template string, values map[string]string) string {
	rendered := template
	for key, value := range values {
		rendered = strings.ReplaceAll(rendered, "{"+key+"}", value)
	}
	return rendered
}
