// Package discord adapts a discordgo session to the router's Transport and
// feeds gateway events into the router.
package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hashicorp/go-retryablehttp"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/yangwenmai/anonrelay/internal/model"
	"github.com/yangwenmai/anonrelay/internal/relay"
	"github.com/yangwenmai/anonrelay/internal/router"
)

// pendingInteractions bounds how many unanswered button presses are kept
// for the follow-up edit.
const pendingInteractions = 4096

// mediaTimeout bounds one download of a relayed attachment.
const mediaTimeout = 2 * time.Minute

// Intents needed for DMs, guild messages and their content.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent

// session is the part of *discordgo.Session the transport calls.
type session interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// fetchFunc opens the body of an attachment and reports its content type.
type fetchFunc func(ctx context.Context, ref string) (io.ReadCloser, string, error)

// Transport implements router.Transport on top of Discord.
//
// Attachments are downloaded and uploaded again under a neutral file name.
// The CDN URL of a direct message names the private channel and the
// uploader's file, so it is never published.
type Transport struct {
	dg      *discordgo.Session
	sess    session
	fetch   fetchFunc
	pending *lru.Cache[string, *discordgo.Interaction]
	log     *slog.Logger
}

var _ router.Transport = (*Transport)(nil)

// New creates a Transport for a bot token. The gateway is not opened until
// Run.
func New(token string) (*Transport, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	dg.Identify.Intents = Intents
	t, err := newTransport(dg)
	if err != nil {
		return nil, err
	}
	t.dg = dg
	return t, nil
}

func newTransport(sess session) (*Transport, error) {
	pending, err := lru.New[string, *discordgo.Interaction](pendingInteractions)
	if err != nil {
		return nil, err
	}
	return &Transport{
		sess:    sess,
		fetch:   httpFetch(newMediaClient()),
		pending: pending,
		log:     slog.Default().With("system", "discord"),
	}, nil
}

func newMediaClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.HTTPClient.Timeout = mediaTimeout
	c.RetryMax = 2
	c.Logger = nil
	return c
}

func httpFetch(c *retryablehttp.Client) fetchFunc {
	return func(ctx context.Context, ref string) (io.ReadCloser, string, error) {
		req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return nil, "", err
		}
		resp, err := c.Do(req)
		if err != nil {
			return nil, "", err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden {
				return nil, "", fmt.Errorf("attachment: HTTP %d: %w", resp.StatusCode, model.ErrNotFound)
			}
			return nil, "", fmt.Errorf("attachment: HTTP %d", resp.StatusCode)
		}
		return resp.Body, resp.Header.Get("Content-Type"), nil
	}
}

// Run opens the gateway and passes every relevant event to dispatch until
// ctx is cancelled.
func (t *Transport) Run(ctx context.Context, dispatch func(ctx context.Context, ev router.Event) error) error {
	if t.dg == nil {
		return errors.New("discord: transport has no gateway session")
	}

	removeMsg := t.dg.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		ev, ok := MessageEvent(m.Message)
		if !ok {
			return
		}
		t.dispatch(ctx, dispatch, ev)
	})
	defer removeMsg()

	removeInteraction := t.dg.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		t.handleInteraction(ctx, i.Interaction, dispatch)
	})
	defer removeInteraction()

	if err := t.dg.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}
	t.log.Info("gateway connected")

	<-ctx.Done()
	t.log.Info("closing gateway")
	return t.dg.Close()
}

// handleInteraction routes retraction buttons. Any other button press is
// acknowledged at once and kept out of the pending cache.
func (t *Transport) handleInteraction(ctx context.Context, i *discordgo.Interaction, dispatch func(context.Context, router.Event) error) {
	ev, ok := InteractionEvent(i)
	if !ok {
		return
	}
	if !strings.HasPrefix(ev.CallbackData, relay.TokenPrefix) {
		err := t.sess.InteractionRespond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredMessageUpdate,
		}, discordgo.WithContext(ctx))
		if err != nil {
			t.log.Warn("could not answer unrouted button", "error", err)
		}
		return
	}
	t.pending.Add(i.ID, i)
	t.dispatch(ctx, dispatch, ev)
}

func (t *Transport) dispatch(ctx context.Context, dispatch func(context.Context, router.Event) error, ev router.Event) {
	eventCount.WithLabelValues(ev.Type.String()).Inc()
	if err := dispatch(ctx, ev); err != nil {
		t.log.Warn("could not queue event", "event", ev.Type.String(), "error", err)
	}
}

func (t *Transport) send(ctx context.Context, target string, msg *discordgo.MessageSend) (string, error) {
	if msg.AllowedMentions == nil {
		msg.AllowedMentions = &discordgo.MessageAllowedMentions{}
	}
	m, err := t.sess.ChannelMessageSendComplex(target, msg, discordgo.WithContext(ctx))
	if err != nil {
		return "", mapError(err)
	}
	return m.ID, nil
}

func reference(target, replyTo string) *discordgo.MessageReference {
	if replyTo == "" {
		return nil
	}
	return &discordgo.MessageReference{MessageID: replyTo, ChannelID: target}
}

var safeExt = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// neutralName names an upload after its kind. Only the extension of the
// source is kept, and only when it is a plain short one.
func neutralName(kind model.Kind, fileRef, contentType string) string {
	ext := ""
	if u, err := url.Parse(fileRef); err == nil {
		ext = strings.ToLower(path.Ext(u.Path))
	}
	if !safeExt.MatchString(ext) {
		ext = ""
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			if exts, _ := mime.ExtensionsByType(mt); len(exts) > 0 && safeExt.MatchString(exts[0]) {
				ext = exts[0]
			}
		}
	}
	return string(kind) + ext
}

// sendFile streams the attachment behind fileRef into a new message.
func (t *Transport) sendFile(ctx context.Context, target string, kind model.Kind, fileRef, caption string) (string, error) {
	body, contentType, err := t.fetch(ctx, fileRef)
	if err != nil {
		mediaFetchErrors.WithLabelValues(string(kind)).Inc()
		return "", fmt.Errorf("discord: fetch %s: %w", kind, err)
	}
	defer body.Close()

	return t.send(ctx, target, &discordgo.MessageSend{
		Content: caption,
		Files: []*discordgo.File{{
			Name:        neutralName(kind, fileRef, contentType),
			ContentType: contentType,
			Reader:      body,
		}},
	})
}

func (t *Transport) SendText(ctx context.Context, target, text, replyTo string) (string, error) {
	return t.send(ctx, target, &discordgo.MessageSend{Content: text, Reference: reference(target, replyTo)})
}

func (t *Transport) SendPhoto(ctx context.Context, target, fileRef, caption string) (string, error) {
	return t.sendFile(ctx, target, model.KindPhoto, fileRef, caption)
}

func (t *Transport) SendVideo(ctx context.Context, target, fileRef, caption string) (string, error) {
	return t.sendFile(ctx, target, model.KindVideo, fileRef, caption)
}

func (t *Transport) SendVoice(ctx context.Context, target, fileRef string) (string, error) {
	return t.sendFile(ctx, target, model.KindVoice, fileRef, "")
}

func (t *Transport) SendSticker(ctx context.Context, target, fileRef string) (string, error) {
	return t.send(ctx, target, &discordgo.MessageSend{StickerIDs: []string{fileRef}})
}

func (t *Transport) SendDocument(ctx context.Context, target, fileRef, caption string) (string, error) {
	return t.sendFile(ctx, target, model.KindDocument, fileRef, caption)
}

func (t *Transport) DeleteMessage(ctx context.Context, target, messageID string) error {
	return mapError(t.sess.ChannelMessageDelete(target, messageID, discordgo.WithContext(ctx)))
}

// Reply sends text to chatID. A non-empty token adds the delete button.
func (t *Transport) Reply(ctx context.Context, chatID, replyTo, text, token string) error {
	msg := &discordgo.MessageSend{Content: text, Reference: reference(chatID, replyTo)}
	if token != "" {
		msg.Components = []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "🗑️ Delete", Style: discordgo.DangerButton, CustomID: token},
			}},
		}
	}
	_, err := t.send(ctx, chatID, msg)
	return err
}

// AnswerCallback acknowledges the button press so the client stops waiting.
func (t *Transport) AnswerCallback(ctx context.Context, ref string) error {
	i, ok := t.pending.Get(ref)
	if !ok {
		return fmt.Errorf("discord: interaction %s: %w", ref, model.ErrNotFound)
	}
	err := t.sess.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}, discordgo.WithContext(ctx))
	return mapError(err)
}

// EditText replaces the content of the message that carried the button and
// removes its controls.
func (t *Transport) EditText(ctx context.Context, ref, text string) error {
	i, ok := t.pending.Get(ref)
	if !ok {
		return fmt.Errorf("discord: interaction %s: %w", ref, model.ErrNotFound)
	}
	defer t.pending.Remove(ref)

	components := []discordgo.MessageComponent{}
	_, err := t.sess.InteractionResponseEdit(i, &discordgo.WebhookEdit{
		Content:    &text,
		Components: &components,
	}, discordgo.WithContext(ctx))
	return mapError(err)
}

// mapError turns "unknown message" responses into model.ErrNotFound.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		if rest.Message != nil && rest.Message.Code == discordgo.ErrCodeUnknownMessage {
			return fmt.Errorf("%w: %v", model.ErrNotFound, err)
		}
		if rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %v", model.ErrNotFound, err)
		}
	}
	return err
}
