package realtime

import (
	"time"

	"github.com/dkeye/debateroom/internal/core"
	"github.com/dkeye/debateroom/internal/domain"
)

// TypingSignaler holds the single "currently typing" slot. A new signal
// replaces the slot and restarts its expiry; signals from self are ignored.
type TypingSignaler struct {
	self    domain.ParticipantID
	ttl     time.Duration
	current *domain.TypingEvent
}

func NewTypingSignaler(self domain.ParticipantID, ttl time.Duration) *TypingSignaler {
	return &TypingSignaler{self: self, ttl: ttl}
}

// Receive reports whether the slot changed.
func (s *TypingSignaler) Receive(sig core.TypingSignal, now time.Time) bool {
	if sig.SenderID == s.self {
		return false
	}
	s.current = &domain.TypingEvent{
		SenderID:   sig.SenderID,
		SenderName: sig.SenderName,
		ExpiresAt:  now.Add(s.ttl),
	}
	return true
}

// Current returns the typer visible at now.
func (s *TypingSignaler) Current(now time.Time) (domain.TypingEvent, bool) {
	if s.current == nil || !s.current.Active(now) {
		return domain.TypingEvent{}, false
	}
	return *s.current, true
}

// Expire clears an elapsed slot and reports whether it did.
func (s *TypingSignaler) Expire(now time.Time) bool {
	if s.current == nil || s.current.Active(now) {
		return false
	}
	s.current = nil
	return true
}

func (s *TypingSignaler) Clear() {
	s.current = nil
}
