package stomp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dkeye/debateroom/internal/core"
	"github.com/dkeye/debateroom/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultPingPeriod       = 54 * time.Second
	defaultSendBuffer       = 64
	defaultInboundBuffer    = 64
)

// Dialer opens STOMP sessions against a WebSocket endpoint.
type Dialer struct {
	Endpoint string
	// Host is the STOMP virtual host; defaults to the endpoint host.
	Host             string
	HandshakeTimeout time.Duration
	// PingPeriod is the WebSocket ping interval; zero disables pings.
	PingPeriod time.Duration
	Header     http.Header
	WS         *websocket.Dialer
}

var _ core.Dialer = (*Dialer)(nil)

func NewDialer(endpoint string) *Dialer {
	return &Dialer{
		Endpoint:         endpoint,
		HandshakeTimeout: defaultHandshakeTimeout,
		PingPeriod:       defaultPingPeriod,
	}
}

// Dial upgrades to a WebSocket and completes the CONNECT/CONNECTED exchange.
func (d *Dialer) Dial(ctx context.Context, who domain.ParticipantIdentity) (core.PubSubConn, error) {
	wsd := d.WS
	if wsd == nil {
		wsd = websocket.DefaultDialer
	}
	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}

	ws, _, err := wsd.DialContext(ctx, d.Endpoint, d.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.Endpoint, err)
	}
	stop := context.AfterFunc(ctx, func() { _ = ws.Close() })

	if err := d.handshake(ws, who, timeout); err != nil {
		stop()
		_ = ws.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	if !stop() {
		return nil, ctx.Err()
	}

	c := newConn(ws, d.PingPeriod)
	go c.readPump()
	go c.writePump()
	log.Info().Str("module", "adapters.stomp").Str("endpoint", d.Endpoint).Str("participant", string(who.ID)).Msg("connected")
	return c, nil
}

func (d *Dialer) handshake(ws *websocket.Conn, who domain.ParticipantIdentity, timeout time.Duration) error {
	host := d.Host
	if host == "" {
		host = ws.RemoteAddr().String()
	}
	connect := NewFrame(CmdConnect,
		HdrAcceptVersion, "1.2",
		HdrHost, host,
		HdrHeartBeat, "0,0",
		HdrParticipantID, string(who.ID),
		HdrParticipantName, who.DisplayName,
	)

	deadline := time.Now().Add(timeout)
	if err := ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := ws.WriteMessage(websocket.TextMessage, connect.Encode()); err != nil {
		return fmt.Errorf("write CONNECT: %w", err)
	}
	if err := ws.SetReadDeadline(deadline); err != nil {
		return err
	}
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return fmt.Errorf("read CONNECTED: %w", err)
		}
		f, err := Decode(data)
		if errors.Is(err, ErrHeartbeat) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read CONNECTED: %w", err)
		}
		switch f.Command {
		case CmdConnected:
			_ = ws.SetReadDeadline(time.Time{})
			_ = ws.SetWriteDeadline(time.Time{})
			return nil
		case CmdError:
			return fmt.Errorf("%w: %s", ErrRejected, f.Value(HdrMessage))
		default:
			return fmt.Errorf("%w: unexpected %s", ErrRejected, f.Command)
		}
	}
}
