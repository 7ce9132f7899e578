package realtime

import (
	"testing"
	"time"

	"github.com/dkeye/debateroom/internal/core"
	"github.com/dkeye/debateroom/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageLog_DedupByID(t *testing.T) {
	l := NewMessageLog()
	m := domain.Message{ID: "m1", SenderName: "Alice", Text: "hi", Timestamp: "2024-01-01T00:00:00Z"}

	assert.True(t, l.Ingest(m))
	assert.False(t, l.Ingest(m))
	assert.Equal(t, 1, l.Len())
}

func TestMessageLog_KeepsArrivalOrder(t *testing.T) {
	l := NewMessageLog()
	l.Ingest(domain.Message{ID: "b", Text: "B"})
	l.Ingest(domain.Message{ID: "a", Text: "A"})

	msgs := l.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "B", msgs[0].Text)
	assert.Equal(t, "A", msgs[1].Text)
}

func TestMessageLog_CompositeFallbackOnlyWithoutID(t *testing.T) {
	l := NewMessageLog()
	base := domain.Message{SenderName: "Bob", Text: "same", Timestamp: "2024-01-01T00:00:00Z"}

	assert.True(t, l.Ingest(base))
	assert.False(t, l.Ingest(base), "id-less repeat collapses on composite key")

	withID := base
	withID.ID = "m7"
	assert.True(t, l.Ingest(withID), "an id wins over a composite collision")

	assert.False(t, l.Ingest(base), "id-less frame still matches the recorded key")
	assert.Equal(t, 2, l.Len())
}

func TestMessageLog_MessagesIsACopy(t *testing.T) {
	l := NewMessageLog()
	l.Ingest(domain.Message{ID: "x", Text: "one"})
	msgs := l.Messages()
	msgs[0].Text = "mutated"
	assert.Equal(t, "one", l.Messages()[0].Text)
}

func TestTypingSignaler_ExpiresAfterTTL(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewTypingSignaler("me", 3*time.Second)

	require.True(t, s.Receive(core.TypingSignal{SenderID: "u2", SenderName: "Bob"}, t0))

	ev, ok := s.Current(t0.Add(2999 * time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, "Bob", ev.SenderName)

	_, ok = s.Current(t0.Add(3001 * time.Millisecond))
	assert.False(t, ok)
	assert.True(t, s.Expire(t0.Add(3001*time.Millisecond)))
	assert.False(t, s.Expire(t0.Add(4*time.Second)))
}

func TestTypingSignaler_RefreshExtends(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewTypingSignaler("me", 3*time.Second)
	sig := core.TypingSignal{SenderID: "u2", SenderName: "Bob"}

	s.Receive(sig, t0)
	s.Receive(sig, t0.Add(time.Second))

	_, ok := s.Current(t0.Add(3500 * time.Millisecond))
	assert.True(t, ok)
	assert.False(t, s.Expire(t0.Add(3500*time.Millisecond)))

	_, ok = s.Current(t0.Add(4001 * time.Millisecond))
	assert.False(t, ok)
}

func TestTypingSignaler_SingleSlotAndSelfIgnored(t *testing.T) {
	t0 := time.Now()
	s := NewTypingSignaler("me", 3*time.Second)

	assert.False(t, s.Receive(core.TypingSignal{SenderID: "me", SenderName: "Me"}, t0))
	_, ok := s.Current(t0)
	assert.False(t, ok)

	s.Receive(core.TypingSignal{SenderID: "u2", SenderName: "Bob"}, t0)
	s.Receive(core.TypingSignal{SenderID: "u3", SenderName: "Carol"}, t0)
	ev, ok := s.Current(t0)
	require.True(t, ok)
	assert.Equal(t, domain.ParticipantID("u3"), ev.SenderID)
}

func TestParticipantCounter_LatestValueWins(t *testing.T) {
	c := NewParticipantCounter()
	assert.Equal(t, 1, c.Value())
	assert.True(t, c.Set(5))
	assert.True(t, c.Set(3))
	assert.False(t, c.Set(3))
	assert.Equal(t, 3, c.Value())
}

func TestMachine_JoinOwedUntilAnnounced(t *testing.T) {
	var m machine
	assert.Equal(t, domain.Disconnected, m.state())

	require.True(t, m.beginConnect())
	assert.Equal(t, domain.Connecting, m.state())
	ok, owed := m.connected()
	assert.True(t, ok)
	assert.True(t, owed)

	// dropped before the join went out: still owed
	require.True(t, m.dropped())
	assert.Equal(t, domain.Disconnected, m.state())
	require.True(t, m.beginConnect())
	ok, owed = m.connected()
	assert.True(t, ok)
	assert.True(t, owed)
	m.announced()

	require.True(t, m.dropped())
	require.True(t, m.beginConnect())
	ok, owed = m.connected()
	assert.True(t, ok)
	assert.False(t, owed)

	assert.True(t, m.close())
	assert.False(t, m.close())
	assert.False(t, m.beginConnect())
	assert.False(t, m.dropped())
	ok, _ = m.connected()
	assert.False(t, ok)
}

func TestRouter_Decode(t *testing.T) {
	r := NewRouter("42")
	conn := newFakeConn()
	require.NoError(t, r.Subscribe(conn))

	cases := []struct {
		name string
		dest string
		body string
		want core.Event
	}{
		{
			name: "chat",
			dest: "/topic/debate/42",
			body: `{"messageId":"m1","senderId":"u1","sender":"Alice","message":"hi","timestamp":"t"}`,
			want: core.ChatMessage{Message: domain.Message{ID: "m1", RoomID: "42", SenderID: "u1", SenderName: "Alice", Text: "hi", Timestamp: "t"}},
		},
		{
			name: "bare count",
			dest: "/topic/debate/42/participants",
			body: "5",
			want: core.ParticipantCount{Count: 5},
		},
		{
			name: "object count",
			dest: "/topic/debate/42/participants",
			body: `{"count":2}`,
			want: core.ParticipantCount{Count: 2},
		},
		{
			name: "typing",
			dest: "/topic/debate/42/typing",
			body: `{"typing":true,"roomId":"42","sender":"Bob","senderId":"u2"}`,
			want: core.TypingSignal{SenderID: "u2", SenderName: "Bob"},
		},
		{
			name: "typing discriminant on chat topic",
			dest: "/topic/debate/42",
			body: `{"typing":true,"sender":"Bob","senderId":"u2"}`,
			want: core.TypingSignal{SenderID: "u2", SenderName: "Bob"},
		},
		{
			name: "explicit type",
			dest: "/topic/debate/42/typing",
			body: `{"type":"participants","count":4}`,
			want: core.ParticipantCount{Count: 4},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conn.push(tc.dest, tc.body)
			in := <-conn.Inbound()
			ev, err := r.Decode(in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ev)
		})
	}
}

func TestRouter_DecodeRejects(t *testing.T) {
	r := NewRouter("42")

	cases := []struct {
		name string
		dest string
		body string
	}{
		{"other room", "/topic/debate/7", `{"message":"x"}`},
		{"broken json", "/topic/debate/42", `{"message":`},
		{"empty text", "/topic/debate/42", `{"message":"","senderId":"u1"}`},
		{"chat for another room", "/topic/debate/42", `{"message":"x","roomId":"9"}`},
		{"negative count", "/topic/debate/42/participants", "-1"},
		{"garbage count", "/topic/debate/42/participants", "many"},
		{"typing without sender", "/topic/debate/42/typing", `{"typing":true}`},
		{"typing for another room", "/topic/debate/42/typing", `{"typing":true,"senderId":"u2","roomId":"9"}`},
		{"unknown destination", "/queue/x", `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Decode(core.Inbound{Destination: tc.dest, Body: core.Frame(tc.body)})
			assert.Error(t, err)
		})
	}
}

func TestRouter_SubscribeAndUnsubscribe(t *testing.T) {
	r := NewRouter("42")
	conn := newFakeConn()
	require.NoError(t, r.Subscribe(conn))
	assert.ElementsMatch(t, []string{
		"/topic/debate/42",
		"/topic/debate/42/participants",
		"/topic/debate/42/typing",
	}, conn.subscriptions())

	require.NoError(t, r.Unsubscribe(conn))
	assert.Empty(t, conn.subscriptions())
	assert.Equal(t, core.TopicUnknown, r.Classify(core.Inbound{Subscription: "sub-1"}))
}
