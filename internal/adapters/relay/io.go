package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/debateroom/internal/adapters/stomp"
	"github.com/dkeye/debateroom/internal/core"
	"github.com/dkeye/debateroom/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// handshake reads frames until the first real one, which must be CONNECT
// (or STOMP) carrying the participant headers.
func handshake(ws *websocket.Conn, fallbackName string) (domain.ParticipantIdentity, error) {
	_ = ws.SetReadDeadline(time.Now().Add(handshakeTimeout))
	defer func() { _ = ws.SetReadDeadline(time.Time{}) }()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return domain.ParticipantIdentity{}, err
		}
		f, err := stomp.Decode(data)
		if errors.Is(err, stomp.ErrHeartbeat) {
			continue
		}
		if err != nil {
			return domain.ParticipantIdentity{}, err
		}
		if f.Command != stomp.CmdConnect && f.Command != stomp.CmdStomp {
			return domain.ParticipantIdentity{}, fmt.Errorf("%w, got %s", errNotConnect, f.Command)
		}
		id := f.Value(stomp.HdrParticipantID)
		if id == "" {
			return domain.ParticipantIdentity{}, errNoParticipantID
		}
		if len(id) > domain.MaxParticipantIDLen {
			return domain.ParticipantIdentity{}, fmt.Errorf("participant-id longer than %d", domain.MaxParticipantIDLen)
		}
		name := f.Value(stomp.HdrParticipantName)
		if name == "" {
			name = fallbackName
		}
		return domain.NewParticipantIdentity(domain.ParticipantID(id), name)
	}
}

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	var tick <-chan time.Time
	if ctl.PingPeriod > 0 {
		ticker := time.NewTicker(ctl.PingPeriod)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer func() { _ = c.conn.Close() }()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "adapters.relay").Msg("writePump ctx done")
			c.Close()
			for data := range c.send {
				if write(c.conn, websocket.TextMessage, data) != nil {
					return
				}
			}
			_ = write(c.conn, websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case data, ok := <-c.send:
			if !ok {
				_ = write(c.conn, websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := write(c.conn, websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "adapters.relay").Msg("writePump write error")
				c.Close()
				return
			}
		case <-tick:
			if err := write(c.conn, websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

func write(ws *websocket.Conn, kind int, data []byte) error {
	if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return ws.WriteMessage(kind, data)
}

func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, sid core.SessionID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "adapters.relay").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Orch.OnDisconnect(sid)
		cancel()
		c.Close()
	}()

	if ctl.PingPeriod > 0 {
		pongWait := ctl.PingPeriod * 10 / 9
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !stomp.IsExpectedCloseError(err) &&
				!websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error().Err(err).Str("module", "adapters.relay").Str("sid", string(sid)).Msg("readPump read error")
			}
			return
		}
		f, err := stomp.Decode(data)
		if errors.Is(err, stomp.ErrHeartbeat) {
			continue
		}
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.relay").Str("sid", string(sid)).Msg("bad frame")
			ctl.sendError(c, "malformed frame", "")
			continue
		}
		if !ctl.handleFrame(ctx, sid, c, f) {
			return
		}
	}
}

// handleFrame reports false once the client asked to disconnect.
func (ctl *Controller) handleFrame(ctx context.Context, sid core.SessionID, c *wsConn, f *stomp.Frame) bool {
	switch f.Command {
	case stomp.CmdSubscribe:
		ctl.handleSubscribe(ctx, sid, c, f)
	case stomp.CmdUnsubscribe:
		if !ctl.Orch.Unsubscribe(sid, f.Value(stomp.HdrID)) {
			log.Debug().Str("module", "adapters.relay").Str("sid", string(sid)).Str("id", f.Value(stomp.HdrID)).Msg("unsubscribe of unknown id")
		}
	case stomp.CmdSend:
		ctl.handleSend(sid, c, f)
	case stomp.CmdDisconnect:
		ctl.sendReceipt(c, f)
		log.Info().Str("module", "adapters.relay").Str("sid", string(sid)).Msg("client disconnect")
		return false
	case stomp.CmdConnect, stomp.CmdStomp:
		ctl.sendError(c, "already connected", f.Value(stomp.HdrReceipt))
		return true
	default:
		log.Warn().Str("module", "adapters.relay").Str("command", f.Command).Msg("unknown command")
		ctl.sendError(c, "unknown command "+f.Command, f.Value(stomp.HdrReceipt))
		return true
	}
	ctl.sendReceipt(c, f)
	return true
}

func (ctl *Controller) sendReceipt(c *wsConn, f *stomp.Frame) {
	if r := f.Value(stomp.HdrReceipt); r != "" {
		_ = c.TrySend(stomp.NewFrame(stomp.CmdReceipt, stomp.HdrReceiptID, r).Encode())
	}
}

func (ctl *Controller) sendError(c *wsConn, msg, receipt string) {
	_ = c.TrySend(errorFrame(msg, receipt).Encode())
}

func errorFrame(msg, receipt string) *stomp.Frame {
	f := stomp.NewFrame(stomp.CmdError, stomp.HdrMessage, msg)
	if receipt != "" {
		f.Set(stomp.HdrReceiptID, receipt)
	}
	return f
}
