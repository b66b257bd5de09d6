// Package router dispatches inbound chat events to handlers and runs them on
// a keyed worker pool.
package router

import (
	"context"

	"github.com/yangwenmai/anonrelay/internal/model"
	"github.com/yangwenmai/anonrelay/internal/relay"
)

// EventType is the class of an inbound event.
type EventType int

const (
	EventMessage EventType = iota
	EventCommand
	EventCallback
)

func (t EventType) String() string {
	switch t {
	case EventMessage:
		return "message"
	case EventCommand:
		return "command"
	case EventCallback:
		return "callback"
	}
	return "unknown"
}

// ChatType is the kind of conversation an event arrived in.
type ChatType string

const (
	ChatPrivate ChatType = "private"
	ChatGroup   ChatType = "group"
)

// Event is one inbound event, already converted from the transport's
// representation.
type Event struct {
	Type      EventType
	ChatID    string
	ChatType  ChatType
	MessageID string
	// SenderID is used for pool ordering only. It is never logged.
	SenderID string

	// Command is the lowercased command name without the leading slash.
	Command string
	Args    []string
	// ReplyToMessageID is the message the triggering message replies to.
	ReplyToMessageID string

	// CallbackData is the payload of the pressed control.
	CallbackData string
	// CallbackRef addresses the interaction for answering and editing.
	CallbackRef string

	// Submission is set for non-command messages.
	Submission *model.Submission
}

// Key returns the ordering key of the event.
func (e Event) Key() string {
	if e.SenderID != "" {
		return e.SenderID
	}
	return e.ChatID
}

// Transport is everything the bot needs from the chat service.
type Transport interface {
	relay.Sender

	// Reply answers in chatID, quoting replyTo when set. A non-empty token
	// attaches a retraction control carrying it.
	Reply(ctx context.Context, chatID, replyTo, text, token string) error
	// EditText replaces the text of the message behind an interaction.
	EditText(ctx context.Context, ref, text string) error
	// AnswerCallback acknowledges an interaction.
	AnswerCallback(ctx context.Context, ref string) error
}
