package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dkeye/debateroom/internal/core"
	"github.com/dkeye/debateroom/internal/domain"
)

var (
	ErrUnroutable   = errors.New("realtime: frame matches no subscription")
	ErrInvalidFrame = errors.New("realtime: invalid frame")
)

// Router owns the per-room subscriptions of the current connection and
// turns inbound frames into typed events.
type Router struct {
	room domain.RoomID
	subs map[string]core.TopicKind
}

func NewRouter(room domain.RoomID) *Router {
	return &Router{room: room, subs: make(map[string]core.TopicKind, 3)}
}

// Subscribe registers the chat, participants and typing topics on conn.
func (r *Router) Subscribe(conn core.PubSubConn) error {
	topics := []struct {
		kind  core.TopicKind
		topic string
	}{
		{core.TopicChat, core.ChatTopic(r.room)},
		{core.TopicParticipants, core.ParticipantsTopic(r.room)},
		{core.TopicTyping, core.TypingTopic(r.room)},
	}
	for _, t := range topics {
		id, err := conn.Subscribe(t.topic)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", t.topic, err)
		}
		r.subs[id] = t.kind
	}
	return nil
}

// Unsubscribe drops every subscription on conn. Errors are collected, not fatal.
func (r *Router) Unsubscribe(conn core.PubSubConn) error {
	var errs []error
	for id := range r.subs {
		if err := conn.Unsubscribe(id); err != nil {
			errs = append(errs, fmt.Errorf("unsubscribe %s: %w", id, err))
		}
	}
	r.Reset()
	return errors.Join(errs...)
}

// Reset forgets subscription ids of a connection that is gone.
func (r *Router) Reset() {
	clear(r.subs)
}

// Classify resolves the topic of origin: subscription id first, then destination.
func (r *Router) Classify(in core.Inbound) core.TopicKind {
	if kind, ok := r.subs[in.Subscription]; ok {
		return kind
	}
	room, kind := core.ParseTopic(in.Destination)
	if room != r.room {
		return core.TopicUnknown
	}
	return kind
}

// Decode classifies and parses one frame. An explicit "type" (or "typing")
// field in a JSON body overrides the topic of origin.
func (r *Router) Decode(in core.Inbound) (core.Event, error) {
	kind := r.Classify(in)
	if kind == core.TopicUnknown {
		return nil, fmt.Errorf("%w: %s", ErrUnroutable, in.Destination)
	}
	body := bytes.TrimSpace(in.Body)
	if len(body) > 0 && body[0] == '{' {
		var env core.Envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
		}
		switch {
		case env.Type == core.EnvelopeChat:
			kind = core.TopicChat
		case env.Type == core.EnvelopeTyping, env.Typing:
			kind = core.TopicTyping
		case env.Type == core.EnvelopeParticipants:
			kind = core.TopicParticipants
		}
	}

	switch kind {
	case core.TopicChat:
		return r.decodeChat(body)
	case core.TopicTyping:
		return r.decodeTyping(body)
	default:
		return decodeCount(body)
	}
}

func (r *Router) decodeChat(body []byte) (core.Event, error) {
	var m domain.Message
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("%w: chat: %v", ErrInvalidFrame, err)
	}
	if m.Text == "" {
		return nil, fmt.Errorf("%w: chat: empty message", ErrInvalidFrame)
	}
	if m.RoomID == "" {
		m.RoomID = r.room
	}
	if m.RoomID != r.room {
		return nil, fmt.Errorf("%w: chat for room %s", ErrInvalidFrame, m.RoomID)
	}
	return core.ChatMessage{Message: m}, nil
}

func (r *Router) decodeTyping(body []byte) (core.Event, error) {
	var p core.TypingPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: typing: %v", ErrInvalidFrame, err)
	}
	if !p.Typing || p.SenderID == "" {
		return nil, fmt.Errorf("%w: typing: missing sender or flag", ErrInvalidFrame)
	}
	if p.RoomID != "" && p.RoomID != r.room {
		return nil, fmt.Errorf("%w: typing for room %s", ErrInvalidFrame, p.RoomID)
	}
	return core.TypingSignal{SenderID: p.SenderID, SenderName: p.Sender}, nil
}

// decodeCount accepts a bare decimal body or {"count": n}.
func decodeCount(body []byte) (core.Event, error) {
	n, err := strconv.Atoi(string(body))
	if err != nil {
		var obj struct {
			Count *int `json:"count"`
		}
		if jerr := json.Unmarshal(body, &obj); jerr != nil || obj.Count == nil {
			return nil, fmt.Errorf("%w: participants: %q", ErrInvalidFrame, body)
		}
		n = *obj.Count
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: participants: negative count %d", ErrInvalidFrame, n)
	}
	return core.ParticipantCount{Count: n}, nil
}
