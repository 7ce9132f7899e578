package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/debateroom/internal/adapters/stomp"
	"github.com/dkeye/debateroom/internal/app"
	"github.com/dkeye/debateroom/internal/core"
	"github.com/dkeye/debateroom/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_SlidingWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Second)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("u1"))
	assert.True(t, rl.Allow("u1"))
	assert.False(t, rl.Allow("u1"))
	assert.True(t, rl.Allow("u2"), "limits are per participant")

	now = now.Add(1001 * time.Millisecond)
	assert.True(t, rl.Allow("u1"))
}

type gateFunc func(ctx context.Context, id domain.RoomID) (domain.Room, error)

func (f gateFunc) Get(ctx context.Context, id domain.RoomID) (domain.Room, error) { return f(ctx, id) }

// rawClient speaks STOMP frames directly so the broker's replies can be asserted.
type rawClient struct {
	t  *testing.T
	ws *websocket.Conn
}

func (c *rawClient) send(f *stomp.Frame) {
	c.t.Helper()
	require.NoError(c.t, c.ws.WriteMessage(websocket.TextMessage, f.Encode()))
}

func (c *rawClient) read() *stomp.Frame {
	c.t.Helper()
	require.NoError(c.t, c.ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := c.ws.ReadMessage()
	require.NoError(c.t, err)
	f, err := stomp.Decode(data)
	require.NoError(c.t, err)
	return f
}

func startRelay(t *testing.T, gate RoomGate, limit int) (*app.Orchestrator, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	orch := app.NewOrchestrator(app.NewRegistry(), app.NewRoomManager(), app.SimplePolicy{})
	ctl := NewController(orch, NewRateLimiter(limit, time.Minute), gate)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ctl.HandleWS(ctx, c) })
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return orch, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dialRaw(t *testing.T, url string, connect *stomp.Frame) *rawClient {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, http.Header{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	c := &rawClient{t: t, ws: ws}
	c.send(connect)
	return c
}

func connectFrame(id, name string) *stomp.Frame {
	return stomp.NewFrame(stomp.CmdConnect,
		stomp.HdrAcceptVersion, "1.2",
		stomp.HdrParticipantID, id,
		stomp.HdrParticipantName, name,
	)
}

func TestRelay_HandshakeRequiresParticipant(t *testing.T) {
	_, url := startRelay(t, nil, 10)
	c := dialRaw(t, url, stomp.NewFrame(stomp.CmdConnect, stomp.HdrAcceptVersion, "1.2"))
	f := c.read()
	assert.Equal(t, stomp.CmdError, f.Command)
	assert.Contains(t, f.Value(stomp.HdrMessage), "participant-id")
}

func TestRelay_SubscribeSendEcho(t *testing.T) {
	orch, url := startRelay(t, nil, 10)
	c := dialRaw(t, url, connectFrame("u1", "Alice"))
	require.Equal(t, stomp.CmdConnected, c.read().Command)

	c.send(stomp.NewFrame(stomp.CmdSubscribe, stomp.HdrID, "sub-1", stomp.HdrDestination, "/topic/debate/42"))
	c.send(stomp.NewFrame(stomp.CmdSubscribe, stomp.HdrID, "sub-2", stomp.HdrDestination, "/topic/debate/42/participants",
		stomp.HdrReceipt, "r1"))

	count := c.read()
	assert.Equal(t, stomp.CmdMessage, count.Command)
	assert.Equal(t, "sub-2", count.Value(stomp.HdrSubscription))
	assert.Equal(t, "1", string(count.Body))
	assert.Equal(t, "r1", c.read().Value(stomp.HdrReceiptID))
	assert.Equal(t, 1, orch.Count("42"))

	send := stomp.NewFrame(stomp.CmdSend, stomp.HdrDestination, "/app/debate/42/send")
	send.Body = []byte(`{"messageId":"m1","roomId":"42","senderId":"u1","sender":"Alice","message":"hi","timestamp":"t"}`)
	c.send(send)

	echo := c.read()
	assert.Equal(t, stomp.CmdMessage, echo.Command)
	assert.Equal(t, "/topic/debate/42", echo.Value(stomp.HdrDestination))
	assert.Equal(t, "sub-1", echo.Value(stomp.HdrSubscription))
	assert.Contains(t, string(echo.Body), `"messageId":"m1"`)
}

func TestRelay_RateLimitAndBadSend(t *testing.T) {
	_, url := startRelay(t, nil, 1)
	c := dialRaw(t, url, connectFrame("u1", "Alice"))
	require.Equal(t, stomp.CmdConnected, c.read().Command)

	c.send(stomp.NewFrame(stomp.CmdSubscribe, stomp.HdrID, "s", stomp.HdrDestination, "/topic/debate/1"))
	send := stomp.NewFrame(stomp.CmdSend, stomp.HdrDestination, "/app/debate/1/send")
	send.Body = []byte(`{"message":"one"}`)
	c.send(send)
	assert.Equal(t, stomp.CmdMessage, c.read().Command)

	c.send(send)
	f := c.read()
	assert.Equal(t, stomp.CmdError, f.Command)
	assert.Equal(t, "rate limited", f.Value(stomp.HdrMessage))

	c.send(stomp.NewFrame(stomp.CmdSend, stomp.HdrDestination, "/app/elsewhere"))
	assert.Equal(t, stomp.CmdError, c.read().Command)
}

func TestRelay_GateRefusesUnknownRoom(t *testing.T) {
	gate := gateFunc(func(_ context.Context, id domain.RoomID) (domain.Room, error) {
		if id == "1" {
			return domain.Room{ID: id}, nil
		}
		return domain.Room{}, core.ErrRoomNotFound
	})
	orch, url := startRelay(t, gate, 10)
	c := dialRaw(t, url, connectFrame("u1", "Alice"))
	require.Equal(t, stomp.CmdConnected, c.read().Command)

	c.send(stomp.NewFrame(stomp.CmdSubscribe, stomp.HdrID, "s", stomp.HdrDestination, "/topic/debate/9"))
	f := c.read()
	assert.Equal(t, stomp.CmdError, f.Command)
	assert.Equal(t, "room not found", f.Value(stomp.HdrMessage))
	assert.Equal(t, 0, orch.Count("9"))
}

func TestRelay_DisconnectReleasesMembership(t *testing.T) {
	orch, url := startRelay(t, nil, 10)
	c := dialRaw(t, url, connectFrame("u1", "Alice"))
	require.Equal(t, stomp.CmdConnected, c.read().Command)

	c.send(stomp.NewFrame(stomp.CmdSubscribe, stomp.HdrID, "s", stomp.HdrDestination, "/topic/debate/5"))
	require.Eventually(t, func() bool { return orch.Count("5") == 1 }, 2*time.Second, 10*time.Millisecond)

	c.send(stomp.NewFrame(stomp.CmdDisconnect, stomp.HdrReceipt, "bye"))
	assert.Equal(t, "bye", c.read().Value(stomp.HdrReceiptID))
	require.Eventually(t, func() bool { return orch.Count("5") == 0 }, 2*time.Second, 10*time.Millisecond)
}
