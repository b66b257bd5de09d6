package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/yangwenmai/anonrelay/internal/model"
	"github.com/yangwenmai/anonrelay/internal/router"
)

// MessageEvent converts a created message into a router event. Messages from
// bots, including this one, are skipped.
func MessageEvent(m *discordgo.Message) (router.Event, bool) {
	if m == nil || m.Author == nil || m.Author.Bot {
		return router.Event{}, false
	}

	ev := router.Event{
		ChatID:    m.ChannelID,
		ChatType:  router.ChatGroup,
		MessageID: m.ID,
		SenderID:  m.Author.ID,
	}
	if m.GuildID == "" {
		ev.ChatType = router.ChatPrivate
	}
	if m.MessageReference != nil && m.MessageReference.MessageID != "" {
		ev.ReplyToMessageID = m.MessageReference.MessageID
	}

	if name, args, ok := parseCommand(m.Content); ok {
		ev.Type = router.EventCommand
		ev.Command = name
		ev.Args = args
		return ev, true
	}

	sub := submissionFromMessage(m)
	ev.Type = router.EventMessage
	ev.Submission = &sub
	return ev, true
}

// parseCommand splits "/name@bot arg1 arg2" into its name and arguments.
func parseCommand(content string) (string, []string, bool) {
	fields := strings.Fields(content)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}
	name := strings.TrimPrefix(fields[0], "/")
	name, _, _ = strings.Cut(name, "@")
	if name == "" {
		return "", nil, false
	}
	return strings.ToLower(name), fields[1:], true
}

// submissionFromMessage maps the message payload onto a submission. Only
// the first attachment is relayed. Its CDN URL stays inside the process as
// the file reference; the transport uploads the bytes under a neutral name.
// A message with nothing relayable gets an empty kind.
func submissionFromMessage(m *discordgo.Message) model.Submission {
	if len(m.StickerItems) > 0 {
		return model.Submission{Kind: model.KindSticker, FileRef: m.StickerItems[0].ID}
	}

	if len(m.Attachments) > 0 {
		a := m.Attachments[0]
		sub := model.Submission{Caption: m.Content, FileRef: a.URL}
		ct := strings.ToLower(a.ContentType)
		switch {
		case strings.HasPrefix(ct, "image/"):
			sub.Kind = model.KindPhoto
			sub.FileRef = ""
			sub.Photos = []model.PhotoSize{{FileRef: a.URL, Width: a.Width, Height: a.Height, FileSize: a.Size}}
		case strings.HasPrefix(ct, "video/"):
			sub.Kind = model.KindVideo
		case strings.HasPrefix(ct, "audio/"):
			sub.Kind = model.KindVoice
			sub.Caption = ""
		default:
			sub.Kind = model.KindDocument
		}
		return sub
	}

	if m.Content != "" {
		return model.NewTextSubmission(m.Content)
	}
	return model.Submission{}
}

// InteractionEvent converts a button press into a callback event. Other
// interaction types are skipped.
func InteractionEvent(i *discordgo.Interaction) (router.Event, bool) {
	if i == nil || i.Type != discordgo.InteractionMessageComponent {
		return router.Event{}, false
	}

	ev := router.Event{
		Type:         router.EventCallback,
		ChatID:       i.ChannelID,
		ChatType:     router.ChatPrivate,
		CallbackData: i.MessageComponentData().CustomID,
		CallbackRef:  i.ID,
	}
	if i.GuildID != "" {
		ev.ChatType = router.ChatGroup
	}
	if i.Message != nil {
		ev.MessageID = i.Message.ID
	}
	switch {
	case i.Member != nil && i.Member.User != nil:
		ev.SenderID = i.Member.User.ID
	case i.User != nil:
		ev.SenderID = i.User.ID
	}
	return ev, true
}
