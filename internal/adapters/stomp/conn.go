package stomp

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/debateroom/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Conn is a client STOMP session. All socket writes go through writePump.
type Conn struct {
	ws         *websocket.Conn
	pingPeriod time.Duration

	send    chan []byte
	inbound chan core.Inbound

	quit       chan struct{}
	broken     chan struct{}
	done       chan struct{}
	quitOnce   sync.Once
	brokenOnce sync.Once

	nextSub atomic.Uint64
	mu      sync.Mutex
	subs    map[string]string
}

var _ core.PubSubConn = (*Conn)(nil)

func newConn(ws *websocket.Conn, pingPeriod time.Duration) *Conn {
	return &Conn{
		ws:         ws,
		pingPeriod: pingPeriod,
		send:       make(chan []byte, defaultSendBuffer),
		inbound:    make(chan core.Inbound, defaultInboundBuffer),
		quit:       make(chan struct{}),
		broken:     make(chan struct{}),
		done:       make(chan struct{}),
		subs:       make(map[string]string),
	}
}

func (c *Conn) Inbound() <-chan core.Inbound { return c.inbound }
func (c *Conn) Done() <-chan struct{}        { return c.done }

func (c *Conn) Subscribe(destination string) (string, error) {
	id := fmt.Sprintf("sub-%d", c.nextSub.Add(1))
	f := NewFrame(CmdSubscribe, HdrID, id, HdrDestination, destination, HdrAck, "auto")
	if err := c.trySend(f.Encode()); err != nil {
		return "", err
	}
	c.mu.Lock()
	c.subs[id] = destination
	c.mu.Unlock()
	log.Debug().Str("module", "adapters.stomp").Str("sub", id).Str("destination", destination).Msg("subscribed")
	return id, nil
}

func (c *Conn) Unsubscribe(id string) error {
	c.mu.Lock()
	_, ok := c.subs[id]
	delete(c.subs, id)
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return c.trySend(NewFrame(CmdUnsubscribe, HdrID, id).Encode())
}

func (c *Conn) Publish(destination string, body core.Frame) error {
	f := NewFrame(CmdSend, HdrDestination, destination, HdrContentType, "application/json")
	f.Body = body
	return c.trySend(f.Encode())
}

// Close sends DISCONNECT, closes the socket and waits for the pumps. Idempotent.
func (c *Conn) Close() error {
	c.quitOnce.Do(func() { close(c.quit) })
	<-c.done
	return nil
}

func (c *Conn) trySend(b []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- b:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return ErrBackpressure
	}
}

func (c *Conn) readPump() {
	defer c.brokenOnce.Do(func() { close(c.broken) })

	if c.pingPeriod > 0 {
		pongWait := c.pingPeriod * 10 / 9
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		c.ws.SetPongHandler(func(string) error {
			return c.ws.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !IsExpectedCloseError(err) && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error().Err(err).Str("module", "adapters.stomp").Msg("readPump read error")
			}
			return
		}
		f, err := Decode(data)
		if errors.Is(err, ErrHeartbeat) {
			continue
		}
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.stomp").Msg("bad frame")
			continue
		}
		switch f.Command {
		case CmdMessage:
			in := core.Inbound{
				Subscription: f.Value(HdrSubscription),
				Destination:  f.Value(HdrDestination),
				Body:         f.Body,
			}
			select {
			case c.inbound <- in:
			case <-c.done:
				return
			}
		case CmdError:
			log.Error().Str("module", "adapters.stomp").Str("message", f.Value(HdrMessage)).Bytes("body", f.Body).Msg("broker error")
		case CmdReceipt:
			log.Debug().Str("module", "adapters.stomp").Str("receipt", f.Value(HdrReceiptID)).Msg("receipt")
		default:
			log.Warn().Str("module", "adapters.stomp").Str("command", f.Command).Msg("unexpected frame")
		}
	}
}

func (c *Conn) writePump() {
	var tick <-chan time.Time
	if c.pingPeriod > 0 {
		ticker := time.NewTicker(c.pingPeriod)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer func() {
		_ = c.ws.Close()
		close(c.done)
	}()

	for {
		select {
		case <-c.quit:
			// queued UNSUBSCRIBE frames go out before DISCONNECT
			for n := len(c.send); n > 0; n-- {
				_ = c.write(websocket.TextMessage, <-c.send)
			}
			_ = c.write(websocket.TextMessage, NewFrame(CmdDisconnect).Encode())
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-c.broken:
			return
		case b := <-c.send:
			if err := c.write(websocket.TextMessage, b); err != nil {
				log.Error().Err(err).Str("module", "adapters.stomp").Msg("writePump write error")
				return
			}
		case <-tick:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("module", "adapters.stomp").Msg("writePump ping error")
				return
			}
		}
	}
}

func (c *Conn) write(kind int, data []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return err
	}
	return c.ws.WriteMessage(kind, data)
}
