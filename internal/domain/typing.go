package domain

import "time"

// TypingEvent is an ephemeral "currently typing" indicator. Never persisted.
type TypingEvent struct {
	SenderID   ParticipantID
	SenderName string
	ExpiresAt  time.Time
}

func (t TypingEvent) Active(now time.Time) bool {
	return now.Before(t.ExpiresAt)
}
