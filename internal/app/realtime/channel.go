package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/debateroom/internal/core"
	"github.com/dkeye/debateroom/internal/domain"
	"github.com/dkeye/debateroom/internal/idgen"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// View is a point-in-time copy of what a room view renders.
type View struct {
	Room         domain.RoomID
	Self         domain.ParticipantIdentity
	State        domain.ConnectionState
	Messages     []domain.Message
	Typing       *domain.TypingEvent
	Participants int
}

// IsOwn is resolved at read time against the identity the channel was opened with.
func (v View) IsOwn(m domain.Message) bool { return m.IsOwn(v.Self.ID) }

// Channel is the live binding of one room to one pub/sub connection.
type Channel struct {
	room   domain.RoomID
	self   domain.ParticipantIdentity
	dialer core.Dialer
	opts   Options
	log    zerolog.Logger

	// owned by the run goroutine
	router *Router
	expiry *time.Timer

	mu     sync.Mutex
	m      machine
	conn   core.PubSubConn
	msgs   *MessageLog
	typing *TypingSignaler
	count  *ParticipantCounter

	changes chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
	release func()
}

func newChannel(room domain.RoomID, who domain.ParticipantIdentity, d core.Dialer, opts Options) *Channel {
	opts = opts.withDefaults()
	expiry := time.NewTimer(time.Hour)
	expiry.Stop()
	return &Channel{
		room:    room,
		self:    who,
		dialer:  d,
		opts:    opts,
		log:     log.With().Str("module", "app.realtime").Str("room", string(room)).Logger(),
		router:  NewRouter(room),
		expiry:  expiry,
		msgs:    NewMessageLog(),
		typing:  NewTypingSignaler(who.ID, opts.TypingTTL),
		count:   NewParticipantCounter(),
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (c *Channel) start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	go c.run(ctx)
}

func (c *Channel) Room() domain.RoomID { return c.room }

func (c *Channel) State() domain.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m.state()
}

// Changes fires (coalesced) whenever the View may have changed. It is closed
// once the channel is torn down.
func (c *Channel) Changes() <-chan struct{} { return c.changes }

// Done is closed after teardown has released every resource.
func (c *Channel) Done() <-chan struct{} { return c.done }

func (c *Channel) Snapshot() View {
	now := c.opts.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	v := View{
		Room:         c.room,
		Self:         c.self,
		State:        c.m.state(),
		Messages:     c.msgs.Messages(),
		Participants: c.count.Value(),
	}
	if ev, ok := c.typing.Current(now); ok {
		v.Typing = &ev
	}
	return v
}

// SendMessage publishes a chat frame. The message shows up in the log only
// when the relay echoes it back.
func (c *Channel) SendMessage(text string) (domain.Message, error) {
	msg, err := domain.NewMessage(idgen.NewMessageID(), c.room, c.self, text, c.opts.Now())
	if err != nil {
		return domain.Message{}, err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return domain.Message{}, err
	}
	if err := c.publish(core.SendDestination(c.room), body); err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

// EmitTyping is safe to call on every keystroke; receivers smooth it out.
func (c *Channel) EmitTyping() error {
	body, err := json.Marshal(core.TypingPayload{
		Typing:   true,
		RoomID:   c.room,
		Sender:   c.self.DisplayName,
		SenderID: c.self.ID,
	})
	if err != nil {
		return err
	}
	return c.publish(core.TypingDestination(c.room), body)
}

// publish never queues: anything sent outside Connected is dropped.
func (c *Channel) publish(dest string, body core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m.closed() {
		return ErrClosed
	}
	if st := c.m.state(); st != domain.Connected || c.conn == nil {
		c.log.Warn().Str("destination", dest).Str("state", st.String()).Msg("send dropped, channel not connected")
		return ErrNotConnected
	}
	if err := c.conn.Publish(dest, body); err != nil {
		c.log.Warn().Err(err).Str("destination", dest).Msg("publish failed")
		return fmt.Errorf("publish %s: %w", dest, err)
	}
	return nil
}

// Teardown unsubscribes, closes the connection and cancels every pending
// timer. Safe to call repeatedly and before the first connect resolves.
func (c *Channel) Teardown() {
	c.mu.Lock()
	c.m.close()
	c.mu.Unlock()
	c.cancel()
	<-c.done
}

func (c *Channel) notify() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

func (c *Channel) run(ctx context.Context) {
	defer c.finish()
	for {
		if conn, ok := c.connect(ctx); ok {
			c.serve(ctx, conn)
		}
		if ctx.Err() != nil {
			return
		}
		c.mu.Lock()
		ok := c.m.dropped()
		c.mu.Unlock()
		if !ok {
			return
		}
		c.notify()
		if !c.backoff(ctx) {
			return
		}
	}
}

func (c *Channel) connect(ctx context.Context) (core.PubSubConn, bool) {
	c.mu.Lock()
	ok := c.m.beginConnect()
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	c.notify()

	conn, err := c.dial(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.log.Warn().Err(err).Dur("retry_in", c.opts.ReconnectDelay).Msg("connect failed")
		}
		return nil, false
	}
	if err := c.router.Subscribe(conn); err != nil {
		c.log.Warn().Err(err).Msg("subscribe failed")
		c.router.Reset()
		_ = conn.Close()
		return nil, false
	}

	c.mu.Lock()
	ok, joinOwed := c.m.connected()
	if ok {
		c.conn = conn
	}
	c.mu.Unlock()
	if !ok {
		_ = c.router.Unsubscribe(conn)
		_ = conn.Close()
		return nil, false
	}
	c.log.Info().Bool("join_owed", joinOwed).Msg("connected")

	if joinOwed {
		body, _ := json.Marshal(core.JoinPayload{SenderID: c.self.ID, Sender: c.self.DisplayName})
		if err := conn.Publish(core.JoinDestination(c.room), body); err != nil {
			c.log.Warn().Err(err).Msg("join announce failed, retrying on next connect")
		} else {
			c.mu.Lock()
			c.m.announced()
			c.mu.Unlock()
		}
	}
	c.notify()
	return conn, true
}

// dial keeps typing expiry running while the handshake is in flight. The
// dialer must return once ctx is done.
func (c *Channel) dial(ctx context.Context) (core.PubSubConn, error) {
	type result struct {
		conn core.PubSubConn
		err  error
	}
	res := make(chan result, 1)
	go func() {
		conn, err := c.dialer.Dial(ctx, c.self)
		res <- result{conn, err}
	}()
	for {
		select {
		case r := <-res:
			return r.conn, r.err
		case <-c.expiry.C:
			c.expireTyping()
		}
	}
}

func (c *Channel) serve(ctx context.Context, conn core.PubSubConn) {
	for {
		select {
		case <-ctx.Done():
			c.detach()
			if err := c.router.Unsubscribe(conn); err != nil {
				c.log.Debug().Err(err).Msg("unsubscribe on teardown")
			}
			_ = conn.Close()
			return
		case <-conn.Done():
			c.log.Warn().Msg("connection lost")
			c.detach()
			c.router.Reset()
			_ = conn.Close()
			return
		case in := <-conn.Inbound():
			c.dispatch(in)
		case <-c.expiry.C:
			c.expireTyping()
		}
	}
}

func (c *Channel) detach() {
	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
}

// dispatch applies one frame. Undecodable frames are logged and dropped.
func (c *Channel) dispatch(in core.Inbound) {
	ev, err := c.router.Decode(in)
	if err != nil {
		c.log.Warn().Err(err).Str("destination", in.Destination).Msg("frame dropped")
		return
	}
	now := c.opts.Now()
	c.mu.Lock()
	var changed bool
	switch e := ev.(type) {
	case core.ChatMessage:
		changed = c.msgs.Ingest(e.Message)
	case core.TypingSignal:
		changed = c.typing.Receive(e, now)
	case core.ParticipantCount:
		changed = c.count.Set(e.Count)
	}
	c.mu.Unlock()
	if _, ok := ev.(core.TypingSignal); ok && changed {
		c.expiry.Reset(c.opts.TypingTTL)
	}
	if changed {
		c.notify()
	}
}

func (c *Channel) expireTyping() {
	now := c.opts.Now()
	c.mu.Lock()
	cleared := c.typing.Expire(now)
	var rearm time.Duration
	if ev, ok := c.typing.Current(now); ok {
		rearm = ev.ExpiresAt.Sub(now)
	}
	c.mu.Unlock()
	if rearm > 0 {
		c.expiry.Reset(rearm)
	}
	if cleared {
		c.notify()
	}
}

// backoff waits the fixed reconnect delay; typing expiry keeps running.
func (c *Channel) backoff(ctx context.Context) bool {
	t := time.NewTimer(c.opts.ReconnectDelay)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-t.C:
			return true
		case <-c.expiry.C:
			c.expireTyping()
		}
	}
}

func (c *Channel) finish() {
	c.mu.Lock()
	c.m.close()
	c.conn = nil
	c.typing.Clear()
	c.mu.Unlock()
	c.expiry.Stop()
	close(c.changes)
	if c.release != nil {
		c.release()
	}
	c.log.Info().Msg("channel closed")
	close(c.done)
}
