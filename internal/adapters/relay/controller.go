// Package relay is the server side of the room channel: a small STOMP
// broker over WebSocket in front of app.Orchestrator.
package relay

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/debateroom/internal/adapters/stomp"
	"github.com/dkeye/debateroom/internal/app"
	"github.com/dkeye/debateroom/internal/core"
	"github.com/dkeye/debateroom/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	sendBuffer       = 64
	handshakeTimeout = 10 * time.Second
	writeWait        = 5 * time.Second
	guestName        = "guest"

	// SessionUserKey is the cookie-session key the HTTP login stores the username under.
	SessionUserKey = "username"
)

// RoomGate tells whether a room exists. When set, subscriptions to unknown
// rooms are refused.
type RoomGate interface {
	Get(ctx context.Context, id domain.RoomID) (domain.Room, error)
}

type Controller struct {
	Orch       *app.Orchestrator
	Limiter    *RateLimiter
	Rooms      RoomGate
	ReadLimit  int64
	PingPeriod time.Duration
}

func NewController(orch *app.Orchestrator, limiter *RateLimiter, rooms RoomGate) *Controller {
	return &Controller{
		Orch:       orch,
		Limiter:    limiter,
		Rooms:      rooms,
		ReadLimit:  65536,
		PingPeriod: 54 * time.Second,
	}
}

type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return stomp.ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return stomp.ErrBackpressure
	}
	return nil
}

// Close stops accepting frames. The write pump flushes what is queued and
// then closes the socket.
func (c *wsConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// memberSession is what the orchestrator stores for one connection.
type memberSession struct {
	meta domain.ParticipantIdentity
	conn *wsConn
	seq  atomic.Uint64
}

func (s *memberSession) Meta() domain.ParticipantIdentity { return s.meta }
func (s *memberSession) Signal() core.SignalConnection    { return s.conn }

func (s *memberSession) Deliver(subscription, destination string, body core.Frame) error {
	f := stomp.NewFrame(stomp.CmdMessage,
		stomp.HdrDestination, destination,
		stomp.HdrSubscription, subscription,
		stomp.HdrMessageID, strconv.FormatUint(s.seq.Add(1), 10),
		stomp.HdrContentType, "application/json",
	)
	f.Body = body
	return s.conn.TrySend(f.Encode())
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

var (
	errNotConnect      = errors.New("expected CONNECT frame")
	errNoParticipantID = errors.New("participant-id header required")
)

// HandleWS upgrades the request, runs the STOMP handshake and starts the
// pumps. The session lives until the socket closes, ctx ends or the
// orchestrator kicks it.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.relay").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	fallback := guestName
	if _, ok := c.Get(sessions.DefaultKey); ok {
		if name, ok := sessions.Default(c).Get(SessionUserKey).(string); ok && name != "" {
			fallback = name
		}
	}
	who, err := handshake(ws, fallback)
	if err != nil {
		log.Warn().Err(err).Str("module", "adapters.relay").Msg("handshake failed")
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = ws.WriteMessage(websocket.TextMessage, errorFrame(err.Error(), "").Encode())
		_ = ws.Close()
		return
	}

	conn := &wsConn{conn: ws, send: make(chan core.Frame, sendBuffer)}
	sid := core.SessionID(uuid.NewString())
	sess := &memberSession{meta: who, conn: conn}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Registry.BindSignal(sid, sess, cancel)
	log.Info().Str("module", "adapters.relay").Str("sid", string(sid)).Str("participant", string(who.ID)).
		Str("client_token", c.GetString("client_token")).Msg("new STOMP session")

	_ = conn.TrySend(stomp.NewFrame(stomp.CmdConnected,
		stomp.HdrVersion, "1.2",
		stomp.HdrHeartBeat, "0,0",
		"session", string(sid),
	).Encode())

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sid, conn)
}
