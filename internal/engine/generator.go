package engine

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"github.com/yangwenmai/anonrelay/internal/model"
)

const maxPostRunes = 400

var defaultTones = []string{
	"playful", "wistful", "curious", "deadpan", "warm", "excited", "reflective", "mildly annoyed",
}

// Generator produces short filler posts for the channel.
type Generator struct {
	model     ModelClient
	topic     string
	tones     []string
	source    ContentExtractor
	sourceURL string
	pick      func(n int) int
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithSource seeds generation with an excerpt extracted from url.
func WithSource(extractor ContentExtractor, url string) GeneratorOption {
	return func(g *Generator) {
		g.source = extractor
		g.sourceURL = url
	}
}

// WithTones replaces the tone pool the generator rotates through.
func WithTones(tones ...string) GeneratorOption {
	return func(g *Generator) {
		if len(tones) > 0 {
			g.tones = tones
		}
	}
}

// NewGenerator creates a Generator that writes posts about topic.
func NewGenerator(mc ModelClient, topic string, opts ...GeneratorOption) *Generator {
	g := &Generator{
		model: mc,
		topic: topic,
		tones: defaultTones,
		pick:  rand.IntN,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns one post. Failures are returned as *model.BackendError.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	tone := g.tones[g.pick(len(g.tones))]

	var inspiration string
	if g.source != nil && g.sourceURL != "" {
		content, err := g.source.Extract(ctx, g.sourceURL)
		if err != nil {
			slog.Warn("topic source extraction failed, generating without it", "url", g.sourceURL, "error", err)
		} else {
			inspiration = content.NormalizedText
		}
	}

	raw, err := g.model.Complete(ctx, Request{
		System:      generateSystemPrompt,
		Prompt:      buildGeneratePrompt(g.topic, tone, inspiration),
		Temperature: 0.9,
		MaxTokens:   200,
	})
	if err != nil {
		return "", &model.BackendError{Backend: "generator", Err: err}
	}

	post := cleanPost(raw)
	if post == "" {
		return "", &model.BackendError{Backend: "generator", Err: errors.New("empty post")}
	}
	return post, nil
}

// cleanPost strips wrapping quotes and whitespace and caps the length.
func cleanPost(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'“”")
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > maxPostRunes {
		s = string([]rune(s)[:maxPostRunes])
	}
	return s
}
