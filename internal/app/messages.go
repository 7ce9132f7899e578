package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dkeye/debateroom/internal/core"
	"github.com/dkeye/debateroom/internal/domain"
	"github.com/dkeye/debateroom/internal/idgen"
	"github.com/rs/zerolog/log"
)

var ErrBadPayload = errors.New("bad payload")

// PostMessage validates a chat send, fills what the client left out and fans
// it out on the room's chat topic. Client-assigned message ids are kept so
// the sender can match the echo.
func (o *Orchestrator) PostMessage(sid core.SessionID, room domain.RoomID, body []byte) (domain.Message, error) {
	sess, ok := o.Registry.GetSession(sid)
	if !ok {
		return domain.Message{}, ErrUnknownSession
	}
	var m domain.Message
	if err := json.Unmarshal(body, &m); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	m.Text = strings.TrimSpace(m.Text)
	if m.Text == "" {
		return domain.Message{}, domain.ErrEmptyMessage
	}
	// the sender is always the session's participant
	who := sess.Meta()
	m.RoomID = room
	m.SenderID = who.ID
	m.SenderName = who.DisplayName
	if m.ID == "" {
		m.ID = idgen.NewMessageID()
	}
	if m.Timestamp == "" {
		m.Timestamp = o.now().UTC().Format(time.RFC3339Nano)
	}

	out, err := json.Marshal(m)
	if err != nil {
		return domain.Message{}, err
	}
	res := o.Broadcast(core.ChatTopic(room), out)
	log.Debug().Str("module", "app.orchestrator").Str("room", string(room)).Str("message_id", string(m.ID)).Int("sent_to", res.SendTo).Msg("chat message")
	return m, nil
}

// PostTyping relays a typing signal to the room's typing topic.
func (o *Orchestrator) PostTyping(sid core.SessionID, room domain.RoomID, body []byte) error {
	sess, ok := o.Registry.GetSession(sid)
	if !ok {
		return ErrUnknownSession
	}
	var p core.TypingPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if !p.Typing {
		return fmt.Errorf("%w: typing flag not set", ErrBadPayload)
	}
	who := sess.Meta()
	p.RoomID = room
	p.SenderID = who.ID
	p.Sender = who.DisplayName
	out, err := json.Marshal(p)
	if err != nil {
		return err
	}
	o.Broadcast(core.TypingTopic(room), out)
	return nil
}

// Announce records a join frame. Membership itself follows the chat subscription.
func (o *Orchestrator) Announce(sid core.SessionID, room domain.RoomID, body []byte) error {
	var p core.JoinPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("room", string(room)).
		Str("participant", string(p.SenderID)).Str("name", p.Sender).Msg("participant joined")
	return nil
}
