package core

import "github.com/dkeye/debateroom/internal/domain"

type SessionID string

// MemberSession binds a participant and its relay transport endpoint.
// This is what a room stores and counts.
type MemberSession interface {
	Meta() domain.ParticipantIdentity
	Signal() SignalConnection
	// Deliver encodes body as a broadcast on destination for the given
	// subscription of this session. It never blocks.
	Deliver(subscription, destination string, body Frame) error
}
