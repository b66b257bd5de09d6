package engine

import "context"

// ModelClient abstracts LLM calls. Implementations wrap OpenAI-compatible
// services, Anthropic, Gemini, Ollama or the stub.
type ModelClient interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is a single-turn completion request.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// ContentExtractor abstracts web content extraction.
type ContentExtractor interface {
	Extract(ctx context.Context, url string) (*ExtractedContent, error)
}

// ExtractedContent holds the result of content extraction.
type ExtractedContent struct {
	Title          string `json:"title,omitempty"`
	NormalizedText string `json:"normalized_text"`
	WordCount      int    `json:"word_count"`
}

// Action is the classifier's structured decision.
type Action string

const (
	ActionAllow Action = "allow"
	ActionBlock Action = "block"
)

// Decision is the structured output of the classify call.
type Decision struct {
	Action Action `json:"action"`
	Reason string `json:"reason,omitempty"`
}
