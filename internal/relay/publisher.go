package relay

import (
	"context"
	"fmt"

	"github.com/yangwenmai/anonrelay/internal/model"
)

// Sender is the slice of the chat transport the publisher needs. Every send
// returns the identifier the channel assigned to the new message.
type Sender interface {
	SendText(ctx context.Context, target, text, replyTo string) (string, error)
	SendPhoto(ctx context.Context, target, fileRef, caption string) (string, error)
	SendVideo(ctx context.Context, target, fileRef, caption string) (string, error)
	SendVoice(ctx context.Context, target, fileRef string) (string, error)
	SendSticker(ctx context.Context, target, fileRef string) (string, error)
	SendDocument(ctx context.Context, target, fileRef, caption string) (string, error)
	// DeleteMessage returns an error wrapping model.ErrNotFound when the
	// message no longer exists.
	DeleteMessage(ctx context.Context, target, messageID string) error
}

// Publisher posts submissions to the target channel. Media is handed to the
// Sender by reference; the payload itself is never inspected.
type Publisher struct {
	sender    Sender
	channelID string
}

// NewPublisher creates a Publisher for channelID.
func NewPublisher(sender Sender, channelID string) *Publisher {
	return &Publisher{sender: sender, channelID: channelID}
}

// Publish sends sub to the channel and returns the artifact with its
// retraction token.
func (p *Publisher) Publish(ctx context.Context, sub model.Submission) (model.PublishedArtifact, error) {
	id, err := p.send(ctx, sub)
	if err != nil {
		publishErrorCount.WithLabelValues(string(sub.Kind)).Inc()
		return model.PublishedArtifact{}, err
	}
	publishCount.WithLabelValues(string(sub.Kind)).Inc()
	return model.PublishedArtifact{ArtifactID: id, OwnerToken: DeriveToken(id)}, nil
}

func (p *Publisher) send(ctx context.Context, sub model.Submission) (string, error) {
	var (
		id  string
		err error
	)
	switch sub.Kind {
	case model.KindText:
		id, err = p.sender.SendText(ctx, p.channelID, sub.Text, "")
	case model.KindPhoto:
		photo, ok := sub.LargestPhoto()
		if !ok {
			return "", fmt.Errorf("%w: photo without variants", model.ErrUnsupportedKind)
		}
		id, err = p.sender.SendPhoto(ctx, p.channelID, photo.FileRef, sub.Caption)
	case model.KindVideo:
		id, err = p.sender.SendVideo(ctx, p.channelID, sub.FileRef, sub.Caption)
	case model.KindVoice:
		id, err = p.sender.SendVoice(ctx, p.channelID, sub.FileRef)
	case model.KindSticker:
		id, err = p.sender.SendSticker(ctx, p.channelID, sub.FileRef)
	case model.KindDocument:
		id, err = p.sender.SendDocument(ctx, p.channelID, sub.FileRef, sub.Caption)
	default:
		return "", model.ErrUnsupportedKind
	}
	if err != nil {
		return "", &model.TransportError{Op: "send " + string(sub.Kind), Err: err}
	}
	return id, nil
}

// PublishReply posts text to target outside the channel, optionally as a
// reply to replyTo. It returns the new message ID.
func (p *Publisher) PublishReply(ctx context.Context, target, replyTo, text string) (string, error) {
	id, err := p.sender.SendText(ctx, target, text, replyTo)
	if err != nil {
		publishErrorCount.WithLabelValues("comment").Inc()
		return "", &model.TransportError{Op: "send comment", Err: err}
	}
	publishCount.WithLabelValues("comment").Inc()
	return id, nil
}

// Retract deletes the artifact addressed by token. An artifact that is
// already gone yields an error wrapping model.ErrNotFound.
func (p *Publisher) Retract(ctx context.Context, token string) (string, error) {
	id, err := ResolveToken(token)
	if err != nil {
		retractCount.WithLabelValues("malformed").Inc()
		return "", err
	}
	if err := p.sender.DeleteMessage(ctx, p.channelID, id); err != nil {
		retractCount.WithLabelValues("failed").Inc()
		return id, &model.TransportError{Op: "delete", Err: err}
	}
	retractCount.WithLabelValues("deleted").Inc()
	return id, nil
}
