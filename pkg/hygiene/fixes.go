package hygiene

import (
	"context"
	"fmt"
	"log/slog"
)

// GraphStore is the narrow slice of the graph database the fixer needs.
// Store failures degrade fixes to no-ops; they never propagate.
type GraphStore interface {
	Read(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
	Write(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
}

// DuplicatePair is a candidate entity merge found in the store.
type DuplicatePair struct {
	Entity1    string  `json:"entity1"`
	Entity2    string  `json:"entity2"`
	Similarity float64 `json:"similarity"`
}

// FixResult summarizes a store-assisted hygiene run.
type FixResult struct {
	SelfLoopsRemoved int             `json:"self_loops_removed"`
	EntitiesMerged   int             `json:"entities_merged"`
	Duplicates       []DuplicatePair `json:"duplicates"`
}

// Fixer applies hygiene repairs against a stored graph.
type Fixer struct {
	store GraphStore
}

// NewFixer creates a fixer over the store.
func NewFixer(store GraphStore) *Fixer {
	return &Fixer{store: store}
}

// RemoveSelfLoops deletes relations whose source and target are the same
// node. Returns the number deleted; store errors return zero.
func (f *Fixer) RemoveSelfLoops(ctx context.Context, namespace string) int {
	rows, err := f.store.Write(ctx, `
		MATCH (e:base)-[r:RELATES_TO]->(e)
		WHERE e.entity_name IS NOT NULL AND ($namespace = '' OR e.namespace_id = $namespace)
		DELETE r
		RETURN count(r) AS deleted`,
		map[string]any{"namespace": namespace})
	if err != nil {
		slog.Error("remove_self_loops_failed", "error", err)
		return 0
	}
	if len(rows) == 0 {
		return 0
	}
	deleted := toInt(rows[0]["deleted"])
	slog.Info("self_loops_removed", "count", deleted, "namespace", namespace)
	return deleted
}

// toInt normalizes the numeric types store drivers hand back.
func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// FindDuplicates looks for candidate duplicate entities, preferring the
// vector index when available and falling back to name containment.
func (f *Fixer) FindDuplicates(ctx context.Context, namespace string, threshold float64, limit int) []DuplicatePair {
	if limit <= 0 {
		limit = 100
	}

	rows, err := f.store.Read(ctx, `
		MATCH (e1:base)
		WHERE e1.embedding IS NOT NULL AND ($namespace = '' OR e1.namespace_id = $namespace)
		CALL db.index.vector.queryNodes('entity_embedding_index', 10, e1.embedding)
		YIELD node AS e2, score
		WHERE e1 <> e2 AND score >= $threshold
		RETURN e1.entity_name AS entity1, e2.entity_name AS entity2, score AS similarity
		ORDER BY score DESC
		LIMIT $limit`,
		map[string]any{"namespace": namespace, "threshold": threshold, "limit": limit})
	if err == nil {
		return toPairs(rows)
	}
	slog.Warn("vector_index_not_available_using_name_similarity", "error", err)

	rows, err = f.store.Read(ctx, `
		MATCH (e1:base), (e2:base)
		WHERE e1 <> e2
		  AND ($namespace = '' OR e1.namespace_id = $namespace)
		  AND toLower(e1.entity_name) < toLower(e2.entity_name)
		  AND (toLower(e1.entity_name) CONTAINS toLower(e2.entity_name)
		    OR toLower(e2.entity_name) CONTAINS toLower(e1.entity_name))
		RETURN e1.entity_name AS entity1, e2.entity_name AS entity2, 1.0 AS similarity
		ORDER BY entity1
		LIMIT $limit`,
		map[string]any{"namespace": namespace, "limit": limit})
	if err != nil {
		slog.Error("find_duplicate_entities_failed", "error", err)
		return nil
	}
	return toPairs(rows)
}

func toPairs(rows []map[string]any) []DuplicatePair {
	pairs := make([]DuplicatePair, 0, len(rows))
	for _, row := range rows {
		e1, _ := row["entity1"].(string)
		e2, _ := row["entity2"].(string)
		sim, _ := row["similarity"].(float64)
		if e1 != "" && e2 != "" {
			pairs = append(pairs, DuplicatePair{Entity1: e1, Entity2: e2, Similarity: sim})
		}
	}
	return pairs
}

// MergeEntities merges loser into keeper: incoming and outgoing edges are
// transferred (unique per neighbor and type), then the loser is deleted.
func (f *Fixer) MergeEntities(ctx context.Context, keeper, loser string) error {
	steps := []string{
		`MATCH (remove:base {entity_name: $loser})-[r:RELATES_TO]->(target:base)
		 MATCH (keep:base {entity_name: $keeper})
		 WHERE NOT (keep)-[:RELATES_TO]->(target)
		 CREATE (keep)-[r2:RELATES_TO]->(target)
		 SET r2 = properties(r)
		 DELETE r`,
		`MATCH (source:base)-[r:RELATES_TO]->(remove:base {entity_name: $loser})
		 MATCH (keep:base {entity_name: $keeper})
		 WHERE NOT (source)-[:RELATES_TO]->(keep)
		 CREATE (source)-[r2:RELATES_TO]->(keep)
		 SET r2 = properties(r)
		 DELETE r`,
		`MATCH (remove:base {entity_name: $loser})
		 DETACH DELETE remove`,
	}
	params := map[string]any{"keeper": keeper, "loser": loser}
	for _, query := range steps {
		if _, err := f.store.Write(ctx, query, params); err != nil {
			return fmt.Errorf("merging %q into %q: %w", loser, keeper, err)
		}
	}
	slog.Info("entities_merged", "keep", keeper, "removed", loser)
	return nil
}

// RunFixes performs the full store-assisted pass: delete self-loops, then
// optionally find and merge duplicates above the threshold. Store errors
// leave the result partial; they are logged, never raised.
func (f *Fixer) RunFixes(ctx context.Context, namespace string, mergeDuplicates bool, threshold float64) FixResult {
	result := FixResult{}
	result.SelfLoopsRemoved = f.RemoveSelfLoops(ctx, namespace)

	if !mergeDuplicates {
		return result
	}

	result.Duplicates = f.FindDuplicates(ctx, namespace, threshold, 100)
	for _, pair := range result.Duplicates {
		// Keep the longer name; it usually carries the fuller form.
		keeper, loser := pair.Entity1, pair.Entity2
		if len(loser) > len(keeper) {
			keeper, loser = loser, keeper
		}
		if err := f.MergeEntities(ctx, keeper, loser); err != nil {
			slog.Error("merge_duplicate_entities_failed",
				"entity1", pair.Entity1, "entity2", pair.Entity2, "error", err)
			continue
		}
		result.EntitiesMerged++
	}
	return result
}
