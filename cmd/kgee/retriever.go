package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/kgee-io/kgee/pkg/models"
	"github.com/kgee-io/kgee/pkg/research"
)

// httpRetriever is a thin client for the external hybrid retrieval service.
type httpRetriever struct {
	baseURL    string
	httpClient *http.Client
}

// newRetrieverFromEnv builds the retriever client from RETRIEVER_URL.
func newRetrieverFromEnv() research.Retriever {
	baseURL := os.Getenv("RETRIEVER_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8100"
	}
	return &httpRetriever{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type retrieveRequest struct {
	Query     string `json:"query"`
	Namespace string `json:"namespace"`
	Intent    string `json:"intent"`
}

type retrieveResponse struct {
	Contexts []struct {
		Text          string         `json:"text"`
		Score         float64        `json:"score"`
		Source        string         `json:"source"`
		Metadata      map[string]any `json:"metadata"`
		Entities      []string       `json:"entities"`
		Relationships []string       `json:"relationships"`
	} `json:"contexts"`
}

// Retrieve implements research.Retriever.
func (r *httpRetriever) Retrieve(ctx context.Context, query, namespace, intent string) ([]models.RetrievedContext, error) {
	payload, err := json.Marshal(retrieveRequest{Query: query, Namespace: namespace, Intent: intent})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.baseURL+"/api/v1/retrieve", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("retriever status %d", resp.StatusCode)
	}

	var parsed retrieveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding retriever response: %w", err)
	}

	contexts := make([]models.RetrievedContext, 0, len(parsed.Contexts))
	for _, c := range parsed.Contexts {
		contexts = append(contexts, models.RetrievedContext{
			Text:          c.Text,
			Score:         c.Score,
			SourceChannel: c.Source,
			Metadata:      c.Metadata,
			Entities:      c.Entities,
			Relationships: c.Relationships,
		})
	}
	return contexts, nil
}
