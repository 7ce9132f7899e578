package realtime

import "github.com/dkeye/debateroom/internal/domain"

type phase int

const (
	phaseIdle phase = iota
	phaseConnecting
	phaseConnected
	phaseBackoff
	phaseClosed
)

// machine is the lifecycle of one Channel. The join announcement is part of
// the machine: a join stays owed across reconnects until announced records
// a successful publish, so a Channel publishes at most one join no matter how
// often it reconnects or resubscribes, and a join lost with a dropped
// connection is sent on the next one.
type machine struct {
	phase  phase
	joined bool
}

func (m *machine) state() domain.ConnectionState {
	switch m.phase {
	case phaseConnecting:
		return domain.Connecting
	case phaseConnected:
		return domain.Connected
	default:
		return domain.Disconnected
	}
}

func (m *machine) closed() bool { return m.phase == phaseClosed }

func (m *machine) beginConnect() bool {
	if m.closed() {
		return false
	}
	m.phase = phaseConnecting
	return true
}

// connected reports whether the transition happened and whether a join is
// still owed for this Channel.
func (m *machine) connected() (ok, joinOwed bool) {
	if m.phase != phaseConnecting {
		return false, false
	}
	m.phase = phaseConnected
	return true, !m.joined
}

// announced records that the join frame went out.
func (m *machine) announced() {
	m.joined = true
}

func (m *machine) dropped() bool {
	if m.closed() {
		return false
	}
	m.phase = phaseBackoff
	return true
}

// close is terminal.
func (m *machine) close() bool {
	if m.closed() {
		return false
	}
	m.phase = phaseClosed
	return true
}
