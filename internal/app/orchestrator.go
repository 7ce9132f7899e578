package app

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dkeye/debateroom/internal/core"
	"github.com/dkeye/debateroom/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownSession        = errors.New("unknown session")
	ErrBadDestination        = errors.New("not a room topic")
	ErrDuplicateSubscription = errors.New("subscription id already in use")
)

// Orchestrator is the relay's broker: it owns subscriptions, room
// membership and fan-out.
type Orchestrator struct {
	Registry *Registry
	Rooms    core.RoomManager
	Policy   Policy
	Now      func() time.Time

	// serialises membership changes and fan-out so every subscriber sees
	// frames of a topic in the same order
	mu sync.Mutex
}

func NewOrchestrator(reg *Registry, rooms core.RoomManager, policy Policy) *Orchestrator {
	return &Orchestrator{Registry: reg, Rooms: rooms, Policy: policy, Now: time.Now}
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// Subscribe registers subID of sid on destination. A chat subscription makes
// the session a room member; a participants subscription immediately
// receives the current count.
func (o *Orchestrator) Subscribe(sid core.SessionID, subID, destination string) error {
	room, kind := core.ParseTopic(destination)
	if kind == core.TopicUnknown {
		return fmt.Errorf("%w: %s", ErrBadDestination, destination)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	sess, ok := o.Registry.GetSession(sid)
	if !ok {
		return ErrUnknownSession
	}
	if !o.Registry.AddSubscription(sid, subID, Subscription{Destination: destination, Room: room, Kind: kind}) {
		return ErrDuplicateSubscription
	}
	log.Debug().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("destination", destination).Msg("subscribed")

	switch kind {
	case core.TopicChat:
		if o.Rooms.GetOrCreate(room).AddMember(sid, sess) {
			o.broadcastCount(room)
		}
	case core.TopicParticipants:
		var res core.PublishResult
		o.deliver(room, regSnap{SID: sid, Session: sess, SubID: subID}, destination, countFrame(o.count(room)), &res)
	}
	return nil
}

func (o *Orchestrator) Unsubscribe(sid core.SessionID, subID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	sub, ok := o.Registry.RemoveSubscription(sid, subID)
	if !ok {
		return false
	}
	if sub.Kind == core.TopicChat && !o.Registry.Listens(sid, sub.Room, core.TopicChat) {
		o.leave(sid, sub.Room)
	}
	return true
}

// OnDisconnect drops every subscription of sid and forgets the session.
func (o *Orchestrator) OnDisconnect(sid core.SessionID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	left := make(map[domain.RoomID]struct{})
	for _, s := range o.Registry.Unbind(sid) {
		if s.Kind == core.TopicChat {
			left[s.Room] = struct{}{}
		}
	}
	for room := range left {
		o.leave(sid, room)
	}
}

func (o *Orchestrator) leave(sid core.SessionID, room domain.RoomID) {
	rs, ok := o.Rooms.Get(room)
	if !ok {
		return
	}
	if rs.RemoveMember(sid) {
		o.broadcastCount(room)
	}
	if rs.MemberCount() == 0 {
		o.Rooms.StopRoom(room)
	}
}

// Broadcast fans body out to every subscriber of destination.
func (o *Orchestrator) Broadcast(destination string, body core.Frame) core.PublishResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.broadcast(destination, body)
}

func (o *Orchestrator) broadcast(destination string, body core.Frame) core.PublishResult {
	room, _ := core.ParseTopic(destination)
	var res core.PublishResult
	for _, s := range o.Registry.SubscribersOf(destination) {
		o.deliver(room, s, destination, body, &res)
	}
	return res
}

func (o *Orchestrator) deliver(room domain.RoomID, s regSnap, destination string, body core.Frame, res *core.PublishResult) {
	if err := s.Session.Deliver(s.SubID, destination, body); err != nil {
		res.Dropped = append(res.Dropped, s.SID)
		o.onSlow(room, destination, s, err)
		return
	}
	res.SendTo++
}

func (o *Orchestrator) onSlow(room domain.RoomID, destination string, s regSnap, err error) {
	if o.Policy == nil {
		return
	}
	_, kind := core.ParseTopic(destination)
	switch o.Policy.OnBackPressure(room, kind, s.Session) {
	case KickMember:
		log.Warn().Err(err).Str("module", "app.orchestrator").Str("sid", string(s.SID)).Str("room", string(room)).Msg("kicking slow subscriber")
		o.Registry.Cancel(s.SID)
	case DropFrame:
		log.Debug().Err(err).Str("module", "app.orchestrator").Str("sid", string(s.SID)).Str("topic", kind.String()).Msg("frame dropped for slow subscriber")
	case NoAction:
	}
}

func (o *Orchestrator) broadcastCount(room domain.RoomID) {
	n := o.count(room)
	res := o.broadcast(core.ParticipantsTopic(room), countFrame(n))
	log.Info().Str("module", "app.orchestrator").Str("room", string(room)).Int("count", n).Int("sent_to", res.SendTo).Msg("participant count")
}

func (o *Orchestrator) count(room domain.RoomID) int {
	if rs, ok := o.Rooms.Get(room); ok {
		return rs.MemberCount()
	}
	return 0
}

// Count is the number of distinct participants on the room's chat topic.
func (o *Orchestrator) Count(room domain.RoomID) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.count(room)
}

// Members lists the distinct participants on the room's chat topic.
func (o *Orchestrator) Members(room domain.RoomID) []core.MemberDTO {
	o.mu.Lock()
	defer o.mu.Unlock()
	if rs, ok := o.Rooms.Get(room); ok {
		return rs.MembersSnapshot()
	}
	return []core.MemberDTO{}
}

// LiveRooms lists the rooms that currently have members.
func (o *Orchestrator) LiveRooms() []core.RoomInfo {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Rooms.List()
}

// EvictRoom disconnects every session subscribed anywhere in room.
func (o *Orchestrator) EvictRoom(room domain.RoomID) {
	o.mu.Lock()
	sids := o.Registry.SessionsInRoom(room)
	o.mu.Unlock()
	for _, sid := range sids {
		o.Registry.Cancel(sid)
	}
	log.Info().Str("module", "app.orchestrator").Str("room", string(room)).Int("sessions", len(sids)).Msg("room evicted")
}

func countFrame(n int) core.Frame { return core.Frame(strconv.Itoa(n)) }
