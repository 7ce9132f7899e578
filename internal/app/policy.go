package app

import (
	"github.com/dkeye/debateroom/internal/core"
	"github.com/dkeye/debateroom/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

// Policy decides what happens to a subscriber whose send buffer is full
// while a frame of the given topic is fanned out.
type Policy interface {
	OnBackPressure(room domain.RoomID, topic core.TopicKind, member core.MemberSession) BackpressureAction
}

// SimplePolicy drops typing frames for a slow subscriber and disconnects it
// on anything else; it resubscribes on reconnect.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(_ domain.RoomID, topic core.TopicKind, _ core.MemberSession) BackpressureAction {
	if topic == core.TopicTyping {
		return DropFrame
	}
	return KickMember
}
