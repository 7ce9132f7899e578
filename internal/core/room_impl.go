package core

import (
	"sort"
	"sync"

	"github.com/dkeye/debateroom/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	id     domain.RoomID
	mu     sync.RWMutex
	bySID  map[SessionID]MemberSession
	byUser map[domain.ParticipantID]int
}

func NewRoomService(id domain.RoomID) RoomService {
	return &roomImpl{
		id:     id,
		bySID:  make(map[SessionID]MemberSession),
		byUser: make(map[domain.ParticipantID]int),
	}
}

func (r *roomImpl) Room() domain.RoomID { return r.id }

// MemberCount counts distinct participants; one participant with two tabs open counts once.
func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

func (r *roomImpl) AddMember(sid SessionID, ms MemberSession) bool {
	u := ms.Meta().ID
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySID[sid]; ok {
		return false
	}
	r.bySID[sid] = ms
	r.byUser[u]++
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("sid", string(sid)).Str("participant", string(u)).Msg("member added")
	return r.byUser[u] == 1
}

func (r *roomImpl) RemoveMember(sid SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ms, ok := r.bySID[sid]
	if !ok {
		return false
	}
	delete(r.bySID, sid)
	u := ms.Meta().ID
	r.byUser[u]--
	left := r.byUser[u] <= 0
	if left {
		delete(r.byUser, u)
	}
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("sid", string(sid)).Msg("member removed")
	return left
}

func (r *roomImpl) MembersSnapshot() []MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[domain.ParticipantID]struct{}, len(r.byUser))
	out := make([]MemberDTO, 0, len(r.byUser))
	for _, ms := range r.bySID {
		u := ms.Meta()
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}
		out = append(out, MemberDTO{ID: u.ID, Username: u.DisplayName})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Username != out[j].Username {
			return out[i].Username < out[j].Username
		}
		return out[i].ID < out[j].ID
	})
	return out
}
