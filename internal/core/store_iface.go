package core

import (
	"context"
	"errors"

	"github.com/dkeye/debateroom/internal/domain"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrAccountExists   = errors.New("account already exists")
	ErrAccountNotFound = errors.New("account not found")
)

// RoomRepo persists room metadata. Live participant counts are not stored.
type RoomRepo interface {
	NextID(ctx context.Context) (domain.RoomID, error)
	Create(ctx context.Context, room domain.Room) error
	Get(ctx context.Context, id domain.RoomID) (domain.Room, error)
	// List returns rooms newest first.
	List(ctx context.Context) ([]domain.Room, error)
	Delete(ctx context.Context, id domain.RoomID) error
}

type AccountRepo interface {
	// Create fails with ErrAccountExists when the username is taken.
	Create(ctx context.Context, acc domain.Account) error
	Get(ctx context.Context, username string) (domain.Account, error)
}
