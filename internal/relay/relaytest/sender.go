// Package relaytest provides an in-memory channel for tests.
package relaytest

import (
	"context"
	"strconv"
	"sync"

	"github.com/yangwenmai/anonrelay/internal/model"
)

// Message is one message held by the fake channel.
type Message struct {
	ID      string
	Target  string
	Kind    model.Kind
	Text    string
	FileRef string
	Caption string
	ReplyTo string
}

// Sender is an in-memory relay.Sender. Messages get increasing numeric IDs.
// Deleting a message twice reports model.ErrNotFound, like a real channel.
type Sender struct {
	mu       sync.Mutex
	next     int
	messages map[string]Message
	sent     []Message
	deleted  []string

	// SendErr, when set, is returned by every send.
	SendErr error
}

// NewSender creates an empty fake channel.
func NewSender() *Sender {
	return &Sender{next: 100, messages: make(map[string]Message)}
}

func (s *Sender) add(m Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SendErr != nil {
		return "", s.SendErr
	}
	s.next++
	m.ID = strconv.Itoa(s.next)
	s.messages[m.ID] = m
	s.sent = append(s.sent, m)
	return m.ID, nil
}

func (s *Sender) SendText(_ context.Context, target, text, replyTo string) (string, error) {
	return s.add(Message{Target: target, Kind: model.KindText, Text: text, ReplyTo: replyTo})
}

func (s *Sender) SendPhoto(_ context.Context, target, fileRef, caption string) (string, error) {
	return s.add(Message{Target: target, Kind: model.KindPhoto, FileRef: fileRef, Caption: caption})
}

func (s *Sender) SendVideo(_ context.Context, target, fileRef, caption string) (string, error) {
	return s.add(Message{Target: target, Kind: model.KindVideo, FileRef: fileRef, Caption: caption})
}

func (s *Sender) SendVoice(_ context.Context, target, fileRef string) (string, error) {
	return s.add(Message{Target: target, Kind: model.KindVoice, FileRef: fileRef})
}

func (s *Sender) SendSticker(_ context.Context, target, fileRef string) (string, error) {
	return s.add(Message{Target: target, Kind: model.KindSticker, FileRef: fileRef})
}

func (s *Sender) SendDocument(_ context.Context, target, fileRef, caption string) (string, error) {
	return s.add(Message{Target: target, Kind: model.KindDocument, FileRef: fileRef, Caption: caption})
}

func (s *Sender) DeleteMessage(_ context.Context, _ string, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[messageID]; !ok {
		return model.ErrNotFound
	}
	delete(s.messages, messageID)
	s.deleted = append(s.deleted, messageID)
	return nil
}

// Seed stores a message that was not sent through the fake, such as a
// user's own message in a group.
func (s *Sender) Seed(id, target, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[id] = Message{ID: id, Target: target, Kind: model.KindText, Text: text}
}

// Sent returns the messages sent so far, including deleted ones, in order.
func (s *Sender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}

// Exists reports whether message id is still in the channel.
func (s *Sender) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.messages[id]
	return ok
}

// Deleted returns the IDs deleted so far, in order.
func (s *Sender) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}
