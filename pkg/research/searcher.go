package research

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kgee-io/kgee/pkg/models"
)

// Searcher fans the sub-queries out to the hybrid retriever and accumulates
// deduplicated contexts into the state.
type Searcher struct {
	retriever Retriever
}

// NewSearcher creates a searcher.
func NewSearcher(retriever Retriever) *Searcher {
	return &Searcher{retriever: retriever}
}

// Search runs every sub-query once, tags results with the producing query,
// deduplicates the accumulated contexts, and increments the iteration
// counter. Per-query failures are logged and skipped.
func (s *Searcher) Search(ctx context.Context, state *models.ResearchState) {
	for idx, query := range state.SubQueries {
		if ctx.Err() != nil {
			return
		}
		contexts, err := s.retriever.Retrieve(ctx, query, state.Namespace, IntentHybrid)
		if err != nil {
			slog.Error("research_query_failed",
				"query_index", idx+1, "query", query, "error", err)
			continue
		}
		for i := range contexts {
			contexts[i].ResearchQuery = query
			contexts[i].QueryIndex = idx + 1
		}
		state.AllContexts = append(state.AllContexts, contexts...)
	}

	before := len(state.AllContexts)
	state.AllContexts = DedupeContexts(state.AllContexts)
	state.Iteration++

	slog.Info("research_queries_completed",
		"iteration", state.Iteration,
		"total_contexts", before,
		"unique_contexts", len(state.AllContexts))
}

// DedupeContexts removes contexts whose lower-cased first 200 characters of
// text match an earlier context.
func DedupeContexts(contexts []models.RetrievedContext) []models.RetrievedContext {
	seen := make(map[string]bool, len(contexts))
	unique := make([]models.RetrievedContext, 0, len(contexts))
	for _, ctx := range contexts {
		key := ctx.Text
		if len(key) > 200 {
			key = key[:200]
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, ctx)
	}
	return unique
}
