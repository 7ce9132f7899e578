package core

import (
	"github.com/dkeye/debateroom/internal/domain"
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []SessionID
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	ID       domain.ParticipantID `json:"id"`
	Username string               `json:"username"`
}

// RoomService is the relay-facing live state of a room.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	Room() domain.RoomID
	MemberCount() int
	MembersSnapshot() []MemberDTO

	// AddMember and RemoveMember report whether MemberCount changed.
	AddMember(sid SessionID, ms MemberSession) bool
	RemoveMember(sid SessionID) bool
}

type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"participantsCount"`
}

type RoomManager interface {
	GetOrCreate(id domain.RoomID) RoomService
	Get(id domain.RoomID) (RoomService, bool)
	List() []RoomInfo
	StopRoom(id domain.RoomID)
}
