// Package moderation decides whether a submission may be relayed. A fixed
// keyword denylist runs first; when a classifier backend is configured it
// is consulted for text the denylist lets through, failing open on error.
package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yangwenmai/anonrelay/internal/engine"
	"github.com/yangwenmai/anonrelay/internal/model"
)

const classifierFallbackReason = "flagged by content classifier"

// Classifier is the optional second stage.
type Classifier interface {
	Classify(ctx context.Context, text string) (engine.Decision, error)
}

// Filter evaluates text against the denylist and the optional classifier.
type Filter struct {
	keywords   []keyword
	classifier Classifier
	log        *slog.Logger
}

// NewFilter creates a Filter. classifier may be nil, in which case a text
// with no keyword match is always allowed. extra entries are appended to
// DefaultKeywords.
func NewFilter(classifier Classifier, extra []string) *Filter {
	return &Filter{
		keywords:   compileKeywords(DefaultKeywords, extra),
		classifier: classifier,
		log:        slog.Default().With("system", "moderation"),
	}
}

// MatchKeyword returns the first denylist entry contained in text.
func (f *Filter) MatchKeyword(text string) (string, bool) {
	folded := normalize(text)
	for _, kw := range f.keywords {
		if strings.Contains(folded, kw.folded) {
			return kw.word, true
		}
	}
	return "", false
}

// Evaluate returns the verdict for text. Empty text is allowed without
// consulting the classifier.
func (f *Filter) Evaluate(ctx context.Context, text string) model.Verdict {
	if strings.TrimSpace(text) == "" {
		verdictCount.WithLabelValues("empty", "allow").Inc()
		return model.Allow()
	}

	if word, ok := f.MatchKeyword(text); ok {
		verdictCount.WithLabelValues("keyword", "block").Inc()
		return model.Block(fmt.Sprintf("contains blocked word %q", word))
	}

	if f.classifier == nil {
		verdictCount.WithLabelValues("keyword", "allow").Inc()
		return model.Allow()
	}

	d, err := f.classifier.Classify(ctx, text)
	if err != nil {
		f.log.Warn("classifier unavailable, allowing message", "error", err)
		verdictCount.WithLabelValues("classifier", "fail_open").Inc()
		return model.Allow()
	}

	if d.Action == engine.ActionBlock {
		verdictCount.WithLabelValues("classifier", "block").Inc()
		reason := d.Reason
		if reason == "" {
			reason = classifierFallbackReason
		}
		return model.Block(reason)
	}

	verdictCount.WithLabelValues("classifier", "allow").Inc()
	return model.Allow()
}
