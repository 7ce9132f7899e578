package realtime

import "github.com/dkeye/debateroom/internal/domain"

// MessageLog is the append-only, deduplicated chat history of one room view.
// Order is arrival order on the chat topic.
type MessageLog struct {
	entries   []domain.Message
	ids       map[domain.MessageID]struct{}
	composite map[string]struct{}
}

func NewMessageLog() *MessageLog {
	return &MessageLog{
		ids:       make(map[domain.MessageID]struct{}),
		composite: make(map[string]struct{}),
	}
}

// Ingest appends m unless it duplicates an existing entry. A message with an
// id is a duplicate only of the same id; an id-less message falls back to
// the (sender, timestamp, text) key against every entry.
func (l *MessageLog) Ingest(m domain.Message) bool {
	key := m.CompositeKey()
	if m.ID != "" {
		if _, dup := l.ids[m.ID]; dup {
			return false
		}
		l.ids[m.ID] = struct{}{}
	} else if _, dup := l.composite[key]; dup {
		return false
	}
	l.composite[key] = struct{}{}
	l.entries = append(l.entries, m)
	return true
}

func (l *MessageLog) Len() int { return len(l.entries) }

// Messages returns a copy safe to hand to the renderer.
func (l *MessageLog) Messages() []domain.Message {
	return append([]domain.Message(nil), l.entries...)
}
