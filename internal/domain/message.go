package domain

import (
	"errors"
	"strings"
	"time"
)

var ErrEmptyMessage = errors.New("message text empty")

type MessageID string

// Message is one chat entry of a room. The json tags follow the chat-send
// wire payload so the same record is published and ingested.
type Message struct {
	ID         MessageID     `json:"messageId,omitempty"`
	RoomID     RoomID        `json:"roomId"`
	SenderID   ParticipantID `json:"senderId"`
	SenderName string        `json:"sender"`
	Text       string        `json:"message"`
	Timestamp  string        `json:"timestamp"`
}

// NewMessage builds an outgoing message stamped with the given id and time.
func NewMessage(id MessageID, room RoomID, from ParticipantIdentity, text string, at time.Time) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}
	return Message{
		ID:         id,
		RoomID:     room,
		SenderID:   from.ID,
		SenderName: from.DisplayName,
		Text:       text,
		Timestamp:  at.UTC().Format(time.RFC3339Nano),
	}, nil
}

// CompositeKey is the weak identity of a message used only when a frame
// carries no messageId. It can collide on legitimate rapid repeats.
func (m Message) CompositeKey() string {
	return m.SenderName + "\x00" + m.Timestamp + "\x00" + m.Text
}

// IsOwn reports whether m was sent by the given participant.
func (m Message) IsOwn(self ParticipantID) bool {
	return self != "" && m.SenderID == self
}
