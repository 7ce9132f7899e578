package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomDraft_Validate(t *testing.T) {
	cases := []struct {
		name  string
		draft RoomDraft
		err   error
	}{
		{"ok", RoomDraft{Title: " Cats ", Description: "vs dogs"}, nil},
		{"title at limit", RoomDraft{Title: strings.Repeat("가", 50), Description: "d"}, nil},
		{"empty title", RoomDraft{Title: "  ", Description: "d"}, ErrRoomTitleEmpty},
		{"long title", RoomDraft{Title: strings.Repeat("x", 51), Description: "d"}, ErrRoomTitleTooLong},
		{"empty description", RoomDraft{Title: "t"}, ErrRoomDescriptionEmpty},
		{"long description", RoomDraft{Title: "t", Description: strings.Repeat("x", 201)}, ErrRoomDescriptionTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := tc.draft
			err := d.Validate()
			if tc.err == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.err)
		})
	}

	d := RoomDraft{Title: " Cats ", Description: " vs dogs "}
	require.NoError(t, d.Validate())
	assert.Equal(t, RoomDraft{Title: "Cats", Description: "vs dogs"}, d)
}

func TestNewMessage(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.FixedZone("KST", 9*3600))
	who := ParticipantIdentity{ID: "u1", DisplayName: "Alice"}

	m, err := NewMessage("m1", "42", who, "  hi  ", at)
	require.NoError(t, err)
	assert.Equal(t, Message{
		ID: "m1", RoomID: "42", SenderID: "u1", SenderName: "Alice",
		Text: "hi", Timestamp: "2024-05-01T00:30:00Z",
	}, m)

	_, err = NewMessage("m2", "42", who, " \n ", at)
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestMessage_IsOwnAndCompositeKey(t *testing.T) {
	m := Message{SenderID: "u1", SenderName: "Alice", Text: "hi", Timestamp: "t"}
	assert.True(t, m.IsOwn("u1"))
	assert.False(t, m.IsOwn("u2"))
	assert.False(t, Message{}.IsOwn(""))

	other := m
	other.ID = "different"
	assert.Equal(t, m.CompositeKey(), other.CompositeKey())
	other.Text = "hi!"
	assert.NotEqual(t, m.CompositeKey(), other.CompositeKey())
}

func TestNewParticipantIdentity(t *testing.T) {
	who, err := NewParticipantIdentity("u1", "  Alice ")
	require.NoError(t, err)
	assert.Equal(t, "Alice", who.DisplayName)

	_, err = NewParticipantIdentity("", "Alice")
	assert.ErrorIs(t, err, ErrParticipantIDEmpty)
	_, err = NewParticipantIdentity("u1", " ")
	assert.ErrorIs(t, err, ErrDisplayNameEmpty)
	_, err = NewParticipantIdentity("u1", strings.Repeat("a", MaxDisplayNameLen+1))
	assert.ErrorIs(t, err, ErrDisplayNameTooLong)
}

func TestTypingEventAndState(t *testing.T) {
	t0 := time.Now()
	ev := TypingEvent{ExpiresAt: t0.Add(3 * time.Second)}
	assert.True(t, ev.Active(t0))
	assert.False(t, ev.Active(t0.Add(3*time.Second)))

	assert.Equal(t, "connected", Connected.String())
	assert.Equal(t, "unknown", ConnectionState(9).String())
}
