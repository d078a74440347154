// Package hygiene validates finished (entity set, relation set) pairs
// against the graph invariants — no self-loops, no orphan relations, known
// relation types, well-formed entities — and optionally repairs a stored
// graph through a narrow graph-store interface.
package hygiene

import (
	"log/slog"
	"strings"

	"github.com/kgee-io/kgee/pkg/models"
)

// Severity of a violation.
const (
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Violation is one hygiene rule breach.
type Violation struct {
	Rule        string `json:"rule"`
	SubjectID   string `json:"subject_id"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	AutoFixable bool   `json:"auto_fixable"`
}

// Report summarizes a hygiene analysis.
type Report struct {
	TotalEntities     int         `json:"total_entities"`
	TotalRelations    int         `json:"total_relations"`
	SelfLoops         int         `json:"self_loops"`
	MissingEvidence   int         `json:"missing_evidence"`
	InvalidTypes      int         `json:"invalid_types"`
	OrphanRelations   int         `json:"orphan_relations"`
	DuplicateEntities int         `json:"duplicate_entities"`
	Violations        []Violation `json:"violations"`
}

// IsHealthy reports whether the pair passes the hard invariants.
func (r Report) IsHealthy() bool {
	return r.SelfLoops == 0 && r.OrphanRelations == 0 && r.InvalidTypes == 0
}

// HealthScore computes the 0-100 health score.
func (r Report) HealthScore() float64 {
	if r.TotalRelations == 0 {
		return 100
	}
	issues := float64(r.SelfLoops + r.OrphanRelations + r.InvalidTypes)
	score := 100 - issues/float64(r.TotalRelations)*100
	if score < 0 {
		return 0
	}
	return score
}

// Validator checks entity/relation pairs. RequireEvidence controls whether
// an empty evidence_span is an error or a warning.
type Validator struct {
	RequireEvidence bool
	MinNameLength   int
	MaxNameLength   int
}

// NewValidator creates a validator with the default name bounds.
func NewValidator(requireEvidence bool) *Validator {
	return &Validator{
		RequireEvidence: requireEvidence,
		MinNameLength:   models.MinEntityNameLength,
		MaxNameLength:   models.MaxEntityNameLength,
	}
}

// ValidateRelation checks one relation against the rules. The type rule is a
// warning only: an unknown type is reported but does not fail the relation.
func (v *Validator) ValidateRelation(rel models.Relation) (bool, string) {
	if rel.Source != "" && strings.EqualFold(rel.Source, rel.Target) {
		return false, "self-loop: " + rel.Source + " -> " + rel.Target
	}
	if v.RequireEvidence && strings.TrimSpace(rel.EvidenceSpan) == "" {
		return false, "missing evidence_span"
	}
	if !models.IsUniversalRelationType(rel.Type) {
		slog.Warn("unknown_relation_type", "type", rel.Type)
	}
	return true, "valid"
}

// ValidateEntity checks one entity against the rules.
func (v *Validator) ValidateEntity(ent models.Entity) (bool, string) {
	name := strings.TrimSpace(ent.Name)
	if name == "" {
		return false, "empty name"
	}
	if len(name) < v.MinNameLength || len(name) > v.MaxNameLength {
		return false, "name length out of bounds"
	}
	if !models.UniversalEntityTypes[strings.ToUpper(ent.Type)] {
		return false, "type outside universal set"
	}
	return true, "valid"
}

// Analyze builds a report over a finished pair without mutating it.
func (v *Validator) Analyze(entities []models.Entity, relations []models.Relation) Report {
	report := Report{
		TotalEntities:  len(entities),
		TotalRelations: len(relations),
	}

	names := make(map[string]int, len(entities))
	for _, ent := range entities {
		names[strings.ToLower(strings.TrimSpace(ent.Name))]++
	}
	for _, count := range names {
		if count > 1 {
			report.DuplicateEntities++
		}
	}

	for _, rel := range relations {
		if strings.EqualFold(rel.Source, rel.Target) {
			report.SelfLoops++
			report.Violations = append(report.Violations, Violation{
				Rule:        "no_self_loops",
				SubjectID:   rel.ID,
				Description: "relation " + rel.Source + " -> " + rel.Target + " is a self-loop",
				Severity:    SeverityError,
				AutoFixable: true,
			})
		}
		if strings.TrimSpace(rel.EvidenceSpan) == "" {
			report.MissingEvidence++
		}
		if !models.IsUniversalRelationType(rel.Type) {
			report.InvalidTypes++
			report.Violations = append(report.Violations, Violation{
				Rule:        "valid_relation_type",
				SubjectID:   rel.ID,
				Description: "unknown relation type " + rel.Type,
				Severity:    SeverityWarning,
			})
		}
		if names[strings.ToLower(strings.TrimSpace(rel.Source))] == 0 ||
			names[strings.ToLower(strings.TrimSpace(rel.Target))] == 0 {
			report.OrphanRelations++
			report.Violations = append(report.Violations, Violation{
				Rule:        "no_orphan_relations",
				SubjectID:   rel.ID,
				Description: "relation endpoint missing from entity set",
				Severity:    SeverityError,
				AutoFixable: true,
			})
		}
	}

	return report
}

// CleanPair removes self-loop relations from a pair in memory and returns
// the cleaned relations with the count removed.
func CleanPair(relations []models.Relation) ([]models.Relation, int) {
	out := make([]models.Relation, 0, len(relations))
	removed := 0
	for _, rel := range relations {
		if strings.EqualFold(rel.Source, rel.Target) {
			removed++
			continue
		}
		out = append(out, rel)
	}
	if removed > 0 {
		slog.Info("self_loops_removed", "count", removed)
	}
	return out, removed
}
