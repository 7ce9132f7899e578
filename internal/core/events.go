package core

import "github.com/dkeye/debateroom/internal/domain"

// Event is a decoded inbound frame. The concrete variants are ChatMessage,
// TypingSignal and ParticipantCount.
type Event interface {
	isEvent()
}

type ChatMessage struct {
	Message domain.Message
}

type TypingSignal struct {
	SenderID   domain.ParticipantID
	SenderName string
}

type ParticipantCount struct {
	Count int
}

func (ChatMessage) isEvent()      {}
func (TypingSignal) isEvent()     {}
func (ParticipantCount) isEvent() {}
