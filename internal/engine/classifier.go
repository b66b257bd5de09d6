package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yangwenmai/anonrelay/internal/model"
)

// errMalformedDecision is wrapped when the model's output cannot be read as a
// Decision.
var errMalformedDecision = errors.New("malformed classifier output")

// Classifier asks a model whether a text contains profanity.
type Classifier struct {
	model ModelClient
}

// NewClassifier creates a Classifier backed by mc.
func NewClassifier(mc ModelClient) *Classifier {
	return &Classifier{model: mc}
}

// Classify returns the model's structured decision for text. Any transport
// failure or unreadable output is returned as a *model.BackendError.
func (c *Classifier) Classify(ctx context.Context, text string) (Decision, error) {
	raw, err := c.model.Complete(ctx, Request{
		System:      classifySystemPrompt,
		Prompt:      buildClassifyPrompt(text),
		Temperature: 0,
		MaxTokens:   128,
	})
	if err != nil {
		return Decision{}, &model.BackendError{Backend: "classifier", Err: err}
	}

	d, err := ParseDecision(raw)
	if err != nil {
		return Decision{}, &model.BackendError{Backend: "classifier", Err: err}
	}
	return d, nil
}

// ParseDecision reads a Decision from raw model output. Markdown fences and
// text around the JSON object are tolerated; anything else is malformed.
func ParseDecision(raw string) (Decision, error) {
	obj := extractJSONObject(raw)
	if obj == "" {
		return Decision{}, fmt.Errorf("%w: no JSON object in %q", errMalformedDecision, truncateRunes(raw, 80))
	}

	var d Decision
	if err := json.Unmarshal([]byte(obj), &d); err != nil {
		return Decision{}, fmt.Errorf("%w: %v", errMalformedDecision, err)
	}

	d.Action = Action(strings.ToLower(strings.TrimSpace(string(d.Action))))
	d.Reason = strings.TrimSpace(d.Reason)
	switch d.Action {
	case ActionAllow:
		d.Reason = ""
	case ActionBlock:
	default:
		return Decision{}, fmt.Errorf("%w: unknown action %q", errMalformedDecision, d.Action)
	}
	return d, nil
}

func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
