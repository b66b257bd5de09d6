package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-retryablehttp"
)

// OllamaClient implements ModelClient using the local Ollama API.
type OllamaClient struct {
	baseURL string
	model   string
	http    *retryablehttp.Client
}

// NewOllamaClient creates a new Ollama model client. Local models are slow
// to load, so the default timeout is doubled.
func NewOllamaClient(baseURL string, opts ...Option) *OllamaClient {
	opts = append([]Option{WithTimeout(2 * defaultTimeout), WithBaseURL(baseURL)}, opts...)
	o := buildOptions("llama3", "http://localhost:11434", opts)
	return &OllamaClient{
		baseURL: o.baseURL,
		model:   o.model,
		http:    newHTTPClient(o),
	}
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	System  string        `json:"system,omitempty"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Complete sends the request to Ollama and returns the response text.
func (c *OllamaClient) Complete(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:  c.model,
		System: req.System,
		Prompt: req.Prompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  maxTokens(req),
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := postJSON(ctx, c.http, c.baseURL+"/api/generate", body, nil)
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}

	var ollamaResp ollamaResponse
	if err := json.Unmarshal(respBody, &ollamaResp); err != nil {
		return "", fmt.Errorf("ollama: unmarshal response: %w", err)
	}
	if ollamaResp.Error != "" {
		return "", fmt.Errorf("ollama: %s", ollamaResp.Error)
	}
	if ollamaResp.Response == "" {
		return "", fmt.Errorf("ollama: empty response")
	}
	return ollamaResp.Response, nil
}
