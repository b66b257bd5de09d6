// Package relay turns an inbound submission into an anonymous channel post:
// moderation first, then publish, then a retraction token for the sender.
package relay

import (
	"context"

	"github.com/yangwenmai/anonrelay/internal/model"
)

// Moderator decides whether text may be published.
type Moderator interface {
	Evaluate(ctx context.Context, text string) model.Verdict
}

// Relay runs the per-submission pipeline. It holds no mutable state and is
// safe for concurrent use.
type Relay struct {
	moderator Moderator
	publisher *Publisher
}

// New creates a Relay.
func New(moderator Moderator, publisher *Publisher) *Relay {
	return &Relay{moderator: moderator, publisher: publisher}
}

// Submit moderates and publishes sub. A rejection is a normal outcome, not
// an error. Errors are model.ErrUnsupportedKind, *model.ValidationError or
// *model.TransportError; nothing is published when any of them is returned
// before the send.
func (r *Relay) Submit(ctx context.Context, sub model.Submission) (model.Outcome, error) {
	if err := sub.Validate(); err != nil {
		return model.Outcome{}, err
	}

	verdict := r.moderator.Evaluate(ctx, sub.ModeratedText())
	if !verdict.Allowed {
		rejectCount.Inc()
		return model.Outcome{Verdict: verdict}, nil
	}

	artifact, err := r.publisher.Publish(ctx, sub)
	if err != nil {
		return model.Outcome{Verdict: verdict}, err
	}
	return model.Outcome{Verdict: verdict, Artifact: &artifact}, nil
}

// Comment moderates text and posts it to target as a reply to replyTo.
// Comments are not retractable, so the outcome carries the message ID
// without an owner token.
func (r *Relay) Comment(ctx context.Context, target, replyTo, text string) (model.Outcome, error) {
	sub := model.NewTextSubmission(text)
	sub.Source = model.SourceGroup
	if err := sub.Validate(); err != nil {
		return model.Outcome{}, err
	}

	verdict := r.moderator.Evaluate(ctx, text)
	if !verdict.Allowed {
		rejectCount.Inc()
		return model.Outcome{Verdict: verdict}, nil
	}

	id, err := r.publisher.PublishReply(ctx, target, replyTo, text)
	if err != nil {
		return model.Outcome{Verdict: verdict}, err
	}
	return model.Outcome{Verdict: verdict, Artifact: &model.PublishedArtifact{ArtifactID: id}}, nil
}

// Retract deletes the artifact behind req's token.
func (r *Relay) Retract(ctx context.Context, req model.RetractionRequest) (string, error) {
	return r.publisher.Retract(ctx, req.Token)
}
