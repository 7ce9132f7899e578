package catalog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/debateroom/internal/core"
	"github.com/dkeye/debateroom/internal/domain"
	"github.com/dkeye/debateroom/internal/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLive struct {
	counts  map[domain.RoomID]int
	evicted []domain.RoomID
}

func (f *fakeLive) Count(id domain.RoomID) int { return f.counts[id] }
func (f *fakeLive) EvictRoom(id domain.RoomID) { f.evicted = append(f.evicted, id) }

func newService() (*Service, *fakeLive) {
	live := &fakeLive{counts: map[domain.RoomID]int{}}
	s := NewService(repo.NewMemoryRoomRepo(), live, live)
	s.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	return s, live
}

func TestService_CreateGetList(t *testing.T) {
	s, live := newService()
	ctx := context.Background()

	room, err := s.Create(ctx, domain.RoomDraft{Title: " Pineapple on pizza ", Description: "yes or no"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoomID("1"), room.ID)
	assert.Equal(t, "Pineapple on pizza", room.Title)
	assert.Equal(t, 1, room.ParticipantsCount)

	live.counts["1"] = 4
	got, err := s.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 4, got.ParticipantsCount)
	assert.Equal(t, room.CreatedAt, got.CreatedAt)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 4, list[0].ParticipantsCount)
}

func TestService_CreateRejectsInvalidDraft(t *testing.T) {
	s, _ := newService()
	_, err := s.Create(context.Background(), domain.RoomDraft{Title: strings.Repeat("t", 51), Description: "d"})
	assert.ErrorIs(t, err, domain.ErrRoomTitleTooLong)

	list, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestService_DeleteEvicts(t *testing.T) {
	s, live := newService()
	ctx := context.Background()
	room, err := s.Create(ctx, domain.RoomDraft{Title: "t", Description: "d"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, room.ID))
	assert.Equal(t, []domain.RoomID{room.ID}, live.evicted)

	_, err = s.Get(ctx, room.ID)
	assert.ErrorIs(t, err, core.ErrRoomNotFound)
	assert.ErrorIs(t, s.Delete(ctx, room.ID), core.ErrRoomNotFound)
}
