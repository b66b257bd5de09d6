package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yangwenmai/anonrelay/internal/model"
	"github.com/yangwenmai/anonrelay/internal/relay"
)

const (
	welcomeText = "👋 Welcome to the Anonymous Confession Bot!\n\n" +
		"📝 How it works:\n" +
		"• Send me any message (text, photo, etc.)\n" +
		"• I'll post it anonymously to our channel\n" +
		"• Your identity stays completely private\n\n" +
		"⚠️ Please be respectful and follow community guidelines.\n\n" +
		"Type /help for more information."

	helpText = "ℹ️ How to use this bot:\n\n" +
		"📱 In Private Chat:\n" +
		"• Send me any message (text, photo, etc.)\n" +
		"• I'll post it anonymously to the channel\n\n" +
		"💬 In Group Comments:\n" +
		"• Use /anon [your message] to post anonymously\n" +
		"• Reply to a message and use /anon [your message] to reply anonymously\n\n" +
		"📌 Supported content:\n" +
		"• Text messages\n" +
		"• Photos with captions\n" +
		"• Videos, voice messages, stickers, documents\n\n" +
		"❌ Rules:\n" +
		"• Be respectful\n" +
		"• No spam or harassment\n" +
		"• No illegal content\n\n" +
		"Questions? Contact the channel admin."

	anonUsageText    = "⚠️ Usage: /anon [your message]"
	anonErrorText    = "❌ Error posting anonymous message."
	anonRejectedText = "🚫 Anonymous message not posted: %s"
	postedText       = "✅ Your message has been posted anonymously!"
	rejectedText     = "🚫 Your message was not posted: %s"
	unsupportedText  = "⚠️ Sorry, this type of content is not supported yet.\nPlease send text, photos, videos, or voice messages."
	postErrorText    = "❌ Sorry, there was an error posting your message. Please try again later."
	deletedText      = "🗑️ Your message has been deleted from the channel."
	deleteFailedText = "❌ Failed to delete the message. It may have already been deleted."
)

// Bot holds the handlers for the anonymous relay.
type Bot struct {
	relay     *relay.Relay
	transport Transport
	groupID   string
	log       *slog.Logger
}

// NewBot creates a Bot. An empty groupID disables /anon.
func NewBot(r *relay.Relay, t Transport, groupID string) *Bot {
	return &Bot{
		relay:     r,
		transport: t,
		groupID:   groupID,
		log:       slog.Default().With("system", "bot"),
	}
}

// Register installs the bot's handlers on rt.
func (b *Bot) Register(rt *Router) {
	rt.OnCommand("start", b.handleStart)
	rt.OnCommand("help", b.handleHelp)
	rt.OnCommand("anon", b.handleAnon)
	rt.OnCallback(relay.TokenPrefix, b.handleRetract)
	rt.OnMessage(isPrivate, b.handleSubmission)
}

func isPrivate(ev Event) bool {
	return ev.ChatType == ChatPrivate
}

func (b *Bot) handleStart(ctx context.Context, ev Event) error {
	return b.transport.Reply(ctx, ev.ChatID, ev.MessageID, welcomeText, "")
}

func (b *Bot) handleHelp(ctx context.Context, ev Event) error {
	return b.transport.Reply(ctx, ev.ChatID, ev.MessageID, helpText, "")
}

// handleAnon posts the command's arguments to the group without the
// sender's name. The command message is removed before anything is posted.
func (b *Bot) handleAnon(ctx context.Context, ev Event) error {
	if b.groupID == "" || ev.ChatID != b.groupID {
		return nil
	}

	text := strings.TrimSpace(strings.Join(ev.Args, " "))
	if text == "" {
		if err := b.transport.Reply(ctx, ev.ChatID, ev.MessageID, anonUsageText, ""); err != nil {
			b.log.Warn("could not send usage reply", "error", err)
		}
		if err := b.transport.DeleteMessage(ctx, ev.ChatID, ev.MessageID); err != nil {
			return &model.TransportError{Op: "delete command", Err: err}
		}
		return nil
	}

	if err := b.transport.DeleteMessage(ctx, ev.ChatID, ev.MessageID); err != nil {
		b.replyQuietly(ctx, ev.ChatID, "", anonErrorText)
		return &model.TransportError{Op: "delete command", Err: err}
	}

	out, err := b.relay.Comment(ctx, b.groupID, ev.ReplyToMessageID, text)
	if err != nil {
		b.replyQuietly(ctx, ev.ChatID, "", anonErrorText)
		return fmt.Errorf("anon comment: %w", err)
	}
	if !out.Published() {
		b.replyQuietly(ctx, ev.ChatID, "", fmt.Sprintf(anonRejectedText, out.Verdict.Reason))
		return nil
	}
	b.log.Info("anonymous comment posted", "message_id", out.Artifact.ArtifactID)
	return nil
}

// handleSubmission relays a private message to the channel and confirms
// with a retraction control.
func (b *Bot) handleSubmission(ctx context.Context, ev Event) error {
	var sub model.Submission
	if ev.Submission != nil {
		sub = *ev.Submission
	}
	sub.SenderID = ev.SenderID
	sub.Source = model.SourcePrivate

	out, err := b.relay.Submit(ctx, sub)
	var ve *model.ValidationError
	switch {
	case errors.Is(err, model.ErrUnsupportedKind), errors.As(err, &ve):
		return b.transport.Reply(ctx, ev.ChatID, ev.MessageID, unsupportedText, "")
	case err != nil:
		b.replyQuietly(ctx, ev.ChatID, ev.MessageID, postErrorText)
		return fmt.Errorf("relay %s: %w", sub.Kind, err)
	case !out.Published():
		return b.transport.Reply(ctx, ev.ChatID, ev.MessageID, fmt.Sprintf(rejectedText, out.Verdict.Reason), "")
	}

	b.log.Info("message posted to channel", "kind", sub.Kind, "artifact_id", out.Artifact.ArtifactID)
	// the post stands even when the confirmation cannot be delivered
	if err := b.transport.Reply(ctx, ev.ChatID, ev.MessageID, postedText, out.Artifact.OwnerToken); err != nil {
		return &model.TransportError{Op: "confirm", Err: err}
	}
	return nil
}

// handleRetract deletes the artifact named by the callback token and edits
// the confirmation to say what happened.
func (b *Bot) handleRetract(ctx context.Context, ev Event) error {
	if err := b.transport.AnswerCallback(ctx, ev.CallbackRef); err != nil {
		b.log.Warn("could not answer callback", "error", err)
	}

	id, err := b.relay.Retract(ctx, model.RetractionRequest{Token: ev.CallbackData})
	text := deletedText
	if err != nil {
		text = deleteFailedText
		if errors.Is(err, model.ErrNotFound) {
			b.log.Info("retraction of missing message", "artifact_id", id)
			err = nil
		} else {
			b.log.Error("retraction failed", "error", err)
		}
	} else {
		b.log.Info("message retracted", "artifact_id", id)
	}

	if editErr := b.transport.EditText(ctx, ev.CallbackRef, text); editErr != nil {
		return errors.Join(err, &model.TransportError{Op: "edit confirmation", Err: editErr})
	}
	return err
}

func (b *Bot) replyQuietly(ctx context.Context, chatID, replyTo, text string) {
	if err := b.transport.Reply(ctx, chatID, replyTo, text, ""); err != nil {
		b.log.Warn("could not send reply", "error", err)
	}
}
