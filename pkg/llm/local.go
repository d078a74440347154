package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// LocalBackend speaks to a single-host HTTP model runner with an
// Ollama-compatible /api/generate endpoint. Local inference carries no cost.
type LocalBackend struct {
	baseURL    string
	httpClient *http.Client
}

// NewLocalBackend creates a local backend for the given base URL.
func NewLocalBackend(baseURL string) *LocalBackend {
	return &LocalBackend{
		baseURL: baseURL,
		httpClient: &http.Client{
			// The per-call deadline comes from ctx; this is a hard upper
			// bound against a hung connection.
			Timeout: 10 * time.Minute,
		},
	}
}

// Name implements Backend.
func (b *LocalBackend) Name() string { return "local" }

type generateRequest struct {
	Model   string           `json:"model"`
	Prompt  string           `json:"prompt"`
	System  string           `json:"system,omitempty"`
	Stream  bool             `json:"stream"`
	Options *generateOptions `json:"options,omitempty"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateResponse struct {
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Done            bool   `json:"done"`
}

// Generate implements Backend.
func (b *LocalBackend) Generate(ctx context.Context, model string, task Task) (*Result, error) {
	reqBody := generateRequest{
		Model:  model,
		Prompt: task.Prompt,
		System: task.SystemPrompt,
		Stream: false,
	}
	if task.Temperature > 0 || task.MaxTokens > 0 {
		reqBody.Options = &generateOptions{
			Temperature: task.Temperature,
			NumPredict:  task.MaxTokens,
		}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &Error{Provider: b.Name(), Model: model, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Provider: b.Name(), Model: model, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Provider: b.Name(), Model: model, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &Error{Provider: b.Name(), Model: model,
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, body)}
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &Error{Provider: b.Name(), Model: model,
			Err: fmt.Errorf("decoding response: %w", err)}
	}

	return &Result{
		Content:      parsed.Response,
		TokensInput:  parsed.PromptEvalCount,
		TokensOutput: parsed.EvalCount,
		CostUSD:      0,
	}, nil
}
