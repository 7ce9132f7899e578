package app

import (
	"context"
	"sync"

	"github.com/dkeye/debateroom/internal/core"
	"github.com/dkeye/debateroom/internal/domain"
	"github.com/rs/zerolog/log"
)

// Subscription is one topic a session listens to.
type Subscription struct {
	Destination string
	Room        domain.RoomID
	Kind        core.TopicKind
}

type sessionEntry struct {
	Session core.MemberSession
	Cancel  context.CancelFunc
	Subs    map[string]Subscription
}

// Registry tracks live relay sessions and their subscriptions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[core.SessionID]*sessionEntry)}
}

func (r *Registry) BindSignal(sid core.SessionID, sess core.MemberSession, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{Session: sess, Cancel: cancel, Subs: make(map[string]Subscription)}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("participant", string(sess.Meta().ID)).Msg("bound signal")
}

func (r *Registry) GetSession(sid core.SessionID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Session, true
	}
	return nil, false
}

// Unbind forgets the session and returns the subscriptions it still held.
func (r *Registry) Unbind(sid core.SessionID) []Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil
	}
	delete(r.sessions, sid)
	out := make([]Subscription, 0, len(e.Subs))
	for _, s := range e.Subs {
		out = append(out, s)
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
	return out
}

// AddSubscription fails for an unknown session or a reused subscription id.
func (r *Registry) AddSubscription(sid core.SessionID, subID string, sub Subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	if _, dup := e.Subs[subID]; dup {
		return false
	}
	e.Subs[subID] = sub
	return true
}

func (r *Registry) RemoveSubscription(sid core.SessionID, subID string) (Subscription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return Subscription{}, false
	}
	sub, ok := e.Subs[subID]
	if ok {
		delete(e.Subs, subID)
	}
	return sub, ok
}

// Listens reports whether sid still has a subscription of kind in room.
func (r *Registry) Listens(sid core.SessionID, room domain.RoomID, kind core.TopicKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	for _, s := range e.Subs {
		if s.Room == room && s.Kind == kind {
			return true
		}
	}
	return false
}

type regSnap struct {
	SID     core.SessionID
	Session core.MemberSession
	SubID   string
}

// SubscribersOf lists every (session, subscription) pair on destination.
func (r *Registry) SubscribersOf(destination string) []regSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []regSnap
	for sid, e := range r.sessions {
		for id, s := range e.Subs {
			if s.Destination == destination {
				out = append(out, regSnap{SID: sid, Session: e.Session, SubID: id})
			}
		}
	}
	return out
}

// SessionsInRoom lists sessions with any subscription in room.
func (r *Registry) SessionsInRoom(room domain.RoomID) []core.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []core.SessionID
	for sid, e := range r.sessions {
		for _, s := range e.Subs {
			if s.Room == room {
				out = append(out, sid)
				break
			}
		}
	}
	return out
}

func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}
