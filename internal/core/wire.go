package core

import "github.com/dkeye/debateroom/internal/domain"

// TypingPayload is published to the typing destination and broadcast as is.
type TypingPayload struct {
	Typing   bool                 `json:"typing"`
	RoomID   domain.RoomID        `json:"roomId"`
	Sender   string               `json:"sender"`
	SenderID domain.ParticipantID `json:"senderId"`
}

// JoinPayload announces a participant to a room once per connect lifetime.
type JoinPayload struct {
	SenderID domain.ParticipantID `json:"senderId"`
	Sender   string               `json:"sender"`
}

// Envelope is the optional discriminant a relay may put on any frame.
type Envelope struct {
	Type   string `json:"type,omitempty"`
	Typing bool   `json:"typing,omitempty"`
}

const (
	EnvelopeChat         = "chat"
	EnvelopeTyping       = "typing"
	EnvelopeParticipants = "participants"
)
