package realtime

import (
	"context"
	"sync"

	"github.com/dkeye/debateroom/internal/core"
	"github.com/dkeye/debateroom/internal/domain"
)

// Manager is the connect guard: at most one active Channel per room.
type Manager struct {
	dialer core.Dialer
	opts   Options

	mu     sync.Mutex
	active map[domain.RoomID]*Channel
}

func NewManager(d core.Dialer, opts Options) *Manager {
	return &Manager{
		dialer: d,
		opts:   opts.withDefaults(),
		active: make(map[domain.RoomID]*Channel),
	}
}

// Connect opens a Channel for room, or returns the one already active or
// activating for it. The Channel lives until Teardown or until ctx ends.
func (m *Manager) Connect(ctx context.Context, room domain.RoomID, who domain.ParticipantIdentity) (*Channel, error) {
	if room == "" {
		return nil, ErrNoRoom
	}
	if who.ID == "" {
		return nil, ErrNoIdentity
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.active[room]; ok {
		return ch, nil
	}
	ch := newChannel(room, who, m.dialer, m.opts)
	ch.release = func() { m.forget(room, ch) }
	m.active[room] = ch
	ch.start(ctx)
	return ch, nil
}

func (m *Manager) forget(room domain.RoomID, ch *Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active[room] == ch {
		delete(m.active, room)
	}
}

// Active reports the live channel for room, if any.
func (m *Manager) Active(room domain.RoomID) (*Channel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.active[room]
	return ch, ok
}

// Close tears down every channel.
func (m *Manager) Close() {
	m.mu.Lock()
	chans := make([]*Channel, 0, len(m.active))
	for _, ch := range m.active {
		chans = append(chans, ch)
	}
	m.mu.Unlock()
	for _, ch := range chans {
		ch.Teardown()
	}
}
