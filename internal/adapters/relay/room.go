package relay

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/debateroom/internal/adapters/stomp"
	"github.com/dkeye/debateroom/internal/core"
	"github.com/rs/zerolog/log"
)

const gateTimeout = 2 * time.Second

func (ctl *Controller) handleSubscribe(ctx context.Context, sid core.SessionID, c *wsConn, f *stomp.Frame) {
	dest := f.Value(stomp.HdrDestination)
	id := f.Value(stomp.HdrID)
	if dest == "" || id == "" {
		ctl.sendError(c, "SUBSCRIBE needs destination and id", f.Value(stomp.HdrReceipt))
		return
	}
	room, kind := core.ParseTopic(dest)
	if kind != core.TopicUnknown && ctl.Rooms != nil {
		gctx, cancel := context.WithTimeout(ctx, gateTimeout)
		_, err := ctl.Rooms.Get(gctx, room)
		cancel()
		if err != nil {
			msg := "room lookup failed"
			if errors.Is(err, core.ErrRoomNotFound) {
				msg = "room not found"
			}
			log.Warn().Err(err).Str("module", "adapters.relay").Str("sid", string(sid)).Str("room", string(room)).Msg("subscribe refused")
			ctl.sendError(c, msg, f.Value(stomp.HdrReceipt))
			return
		}
	}
	if err := ctl.Orch.Subscribe(sid, id, dest); err != nil {
		log.Warn().Err(err).Str("module", "adapters.relay").Str("sid", string(sid)).Str("destination", dest).Msg("subscribe failed")
		ctl.sendError(c, err.Error(), f.Value(stomp.HdrReceipt))
	}
}

func (ctl *Controller) handleSend(sid core.SessionID, c *wsConn, f *stomp.Frame) {
	dest := f.Value(stomp.HdrDestination)
	room, action := core.ParseAppDestination(dest)

	var err error
	switch action {
	case core.ActionSend:
		if sess, ok := ctl.Orch.Registry.GetSession(sid); ok && ctl.Limiter != nil && !ctl.Limiter.Allow(sess.Meta().ID) {
			log.Warn().Str("module", "adapters.relay").Str("sid", string(sid)).Str("room", string(room)).Msg("rate limited")
			ctl.sendError(c, "rate limited", f.Value(stomp.HdrReceipt))
			return
		}
		_, err = ctl.Orch.PostMessage(sid, room, f.Body)
	case core.ActionTyping:
		err = ctl.Orch.PostTyping(sid, room, f.Body)
	case core.ActionJoin:
		err = ctl.Orch.Announce(sid, room, f.Body)
	default:
		log.Warn().Str("module", "adapters.relay").Str("destination", dest).Msg("unknown destination")
		ctl.sendError(c, "unknown destination "+dest, f.Value(stomp.HdrReceipt))
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "adapters.relay").Str("sid", string(sid)).Str("destination", dest).Msg("send rejected")
		ctl.sendError(c, err.Error(), f.Value(stomp.HdrReceipt))
	}
}
