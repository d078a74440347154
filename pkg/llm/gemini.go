package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/kgee-io/kgee/pkg/config"
)

// Gemini pricing per million tokens, used for the cost ledger. Values track
// the flash tier; unknown models fall back to these.
const (
	geminiInputPerMTok  = 0.30
	geminiOutputPerMTok = 2.50
)

// GeminiBackend is the cloud backend over the Google GenAI SDK. It also
// serves as the optional embedding service for semantic entity dedup.
type GeminiBackend struct {
	client         *genai.Client
	embeddingModel string
}

// NewGeminiBackend creates a Gemini backend with the given API key.
func NewGeminiBackend(ctx context.Context, apiKey string) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiBackend{
		client:         client,
		embeddingModel: "gemini-embedding-001",
	}, nil
}

// Name implements Backend.
func (b *GeminiBackend) Name() string { return string(config.ProviderGemini) }

// Generate implements Backend.
func (b *GeminiBackend) Generate(ctx context.Context, model string, task Task) (*Result, error) {
	cfg := &genai.GenerateContentConfig{}
	if task.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(task.Temperature))
	}
	if task.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(task.MaxTokens)
	}
	if task.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(task.SystemPrompt, genai.RoleUser)
	}

	resp, err := b.client.Models.GenerateContent(ctx, model, genai.Text(task.Prompt), cfg)
	if err != nil {
		return nil, &Error{Provider: b.Name(), Model: model, Err: err}
	}

	content := resp.Text()
	if content == "" {
		return nil, &Error{Provider: b.Name(), Model: model,
			Err: fmt.Errorf("empty response")}
	}

	result := &Result{Content: content}
	if usage := resp.UsageMetadata; usage != nil {
		result.TokensInput = int(usage.PromptTokenCount)
		result.TokensOutput = int(usage.CandidatesTokenCount)
		result.CostUSD = float64(usage.PromptTokenCount)/1e6*geminiInputPerMTok +
			float64(usage.CandidatesTokenCount)/1e6*geminiOutputPerMTok
	}
	return result, nil
}

// Embed generates an embedding vector for a text. Satisfies the optional
// embedding-service interface consumed by the entity consolidator.
func (b *GeminiBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	result, err := b.client.Models.EmbedContent(ctx, b.embeddingModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini embed failed: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return result.Embeddings[0].Values, nil
}
