// Package catalog serves room metadata with live participant counts.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/debateroom/internal/core"
	"github.com/dkeye/debateroom/internal/domain"
	"github.com/rs/zerolog/log"
)

// LiveCounter reports how many distinct participants are in a room right now.
type LiveCounter interface {
	Count(id domain.RoomID) int
}

// Evictor disconnects everyone from a room that no longer exists.
type Evictor interface {
	EvictRoom(id domain.RoomID)
}

type Service struct {
	repo  core.RoomRepo
	live  LiveCounter
	evict Evictor
	now   func() time.Time
}

func NewService(repo core.RoomRepo, live LiveCounter, evict Evictor) *Service {
	return &Service{repo: repo, live: live, evict: evict, now: time.Now}
}

func (s *Service) List(ctx context.Context) ([]domain.Room, error) {
	rooms, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	for i := range rooms {
		s.withCount(&rooms[i])
	}
	return rooms, nil
}

func (s *Service) Create(ctx context.Context, draft domain.RoomDraft) (domain.Room, error) {
	if err := draft.Validate(); err != nil {
		return domain.Room{}, err
	}
	id, err := s.repo.NextID(ctx)
	if err != nil {
		return domain.Room{}, fmt.Errorf("allocate room id: %w", err)
	}
	room := domain.Room{
		ID:          id,
		Title:       draft.Title,
		Description: draft.Description,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Create(ctx, room); err != nil {
		return domain.Room{}, fmt.Errorf("create room: %w", err)
	}
	log.Info().Str("module", "app.catalog").Str("room", string(id)).Str("title", room.Title).Msg("room created")
	s.withCount(&room)
	return room, nil
}

func (s *Service) Get(ctx context.Context, id domain.RoomID) (domain.Room, error) {
	room, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Room{}, err
	}
	s.withCount(&room)
	return room, nil
}

func (s *Service) Delete(ctx context.Context, id domain.RoomID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.evict != nil {
		s.evict.EvictRoom(id)
	}
	log.Info().Str("module", "app.catalog").Str("room", string(id)).Msg("room deleted")
	return nil
}

// withCount fills the live count. A room page is only ever opened by a
// participant, so it never reports fewer than one.
func (s *Service) withCount(r *domain.Room) {
	n := 0
	if s.live != nil {
		n = s.live.Count(r.ID)
	}
	r.ParticipantsCount = max(n, 1)
}
