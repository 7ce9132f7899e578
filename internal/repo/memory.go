// Package repo holds the room and account stores: an in-memory one for
// local runs and tests, and a Redis one.
package repo

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/dkeye/debateroom/internal/core"
	"github.com/dkeye/debateroom/internal/domain"
)

type MemoryRoomRepo struct {
	mu    sync.RWMutex
	seq   int64
	rooms map[domain.RoomID]domain.Room
}

func NewMemoryRoomRepo() *MemoryRoomRepo {
	return &MemoryRoomRepo{rooms: make(map[domain.RoomID]domain.Room)}
}

func (m *MemoryRoomRepo) NextID(context.Context) (domain.RoomID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return domain.RoomID(strconv.FormatInt(m.seq, 10)), nil
}

func (m *MemoryRoomRepo) Create(_ context.Context, room domain.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[room.ID]; ok {
		return fmt.Errorf("room %s already exists", room.ID)
	}
	m.rooms[room.ID] = room
	return nil
}

func (m *MemoryRoomRepo) Get(_ context.Context, id domain.RoomID) (domain.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	if !ok {
		return domain.Room{}, core.ErrRoomNotFound
	}
	return r, nil
}

func (m *MemoryRoomRepo) List(context.Context) ([]domain.Room, error) {
	m.mu.RLock()
	out := make([]domain.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	m.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

func (m *MemoryRoomRepo) Delete(_ context.Context, id domain.RoomID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[id]; !ok {
		return core.ErrRoomNotFound
	}
	delete(m.rooms, id)
	return nil
}

func sortNewestFirst(rooms []domain.Room) {
	sort.SliceStable(rooms, func(i, j int) bool {
		if !rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
		}
		return rooms[i].ID > rooms[j].ID
	})
}

type MemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
}

func NewMemoryAccountRepo() *MemoryAccountRepo {
	return &MemoryAccountRepo{accounts: make(map[string]domain.Account)}
}

func (m *MemoryAccountRepo) Create(_ context.Context, acc domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[acc.Username]; ok {
		return core.ErrAccountExists
	}
	m.accounts[acc.Username] = acc
	return nil
}

func (m *MemoryAccountRepo) Get(_ context.Context, username string) (domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.accounts[username]
	if !ok {
		return domain.Account{}, core.ErrAccountNotFound
	}
	return acc, nil
}
