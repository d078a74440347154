// Package research implements the multi-turn research supervisor: a fixed
// four-node loop (planner, searcher, supervisor, synthesizer) over
// ResearchState, with per-node execution-step recording and bounded
// iteration. The retriever and the LLM gateway are collaborators consumed
// through narrow interfaces.
package research

import (
	"context"

	"github.com/kgee-io/kgee/pkg/llm"
	"github.com/kgee-io/kgee/pkg/models"
)

// IntentHybrid is the retrieval intent used for all research queries.
const IntentHybrid = "hybrid"

// Retriever is the external hybrid retrieval collaborator.
type Retriever interface {
	Retrieve(ctx context.Context, query, namespace, intent string) ([]models.RetrievedContext, error)
}

// Gateway is the slice of the LLM gateway the research nodes need.
type Gateway interface {
	Generate(ctx context.Context, task llm.Task) (*llm.Result, error)
}
