package engine

import (
	"context"
	"strings"
)

// StubModelClient returns canned responses (for development/testing).
// Classification requests are blocked when the message mentions "stub-block".
type StubModelClient struct{}

func (m *StubModelClient) Complete(_ context.Context, req Request) (string, error) {
	switch req.System {
	case classifySystemPrompt:
		if strings.Contains(req.Prompt, "stub-block") {
			return `{"action": "block", "reason": "[Stub] flagged word"}`, nil
		}
		return `{"action": "allow"}`, nil
	case generateSystemPrompt:
		return "[Stub] Anyone else think the library coffee machine has been extra moody this week?", nil
	}
	return "{}", nil
}

// StubExtractor returns a fixed excerpt (for development/testing).
type StubExtractor struct{}

func (e *StubExtractor) Extract(_ context.Context, url string) (*ExtractedContent, error) {
	text := "This is a stub excerpt about " + url + ". It talks about study groups, late buses and the best spots for lunch."
	return &ExtractedContent{
		Title:          "Stub page",
		NormalizedText: text,
		WordCount:      len(strings.Fields(text)),
	}, nil
}
