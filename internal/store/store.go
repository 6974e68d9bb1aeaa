// Package store declares the persistence contract shared by the postgres and
// sqlite backends.
package store

import (
	"context"

	"github.com/codesync/codesync-backend/internal/domain"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type RoomStore interface {
	FindRoom(ctx context.Context, id string) (*domain.Room, error)
	// CreateRoom is idempotent: when id already exists the stored room is
	// returned unchanged.
	CreateRoom(ctx context.Context, id, name, owner string) (*domain.Room, error)
	GetBuffer(ctx context.Context, roomID, lang string) (code string, found bool, err error)
	// SetBuffer overwrites one language slot and bumps the room's updated_at.
	// Returns domain.ErrRoomNotFound when the room does not exist.
	SetBuffer(ctx context.Context, roomID, lang, code string) error
	// ListByOwner pages through an owner's rooms, most recently updated first.
	// Rooms in the page carry no code map.
	ListByOwner(ctx context.Context, owner string, limit int, cursor string) ([]domain.Room, string, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)
	FindUserByID(ctx context.Context, id int64) (*domain.User, error)
}

// Store is a complete backend.
type Store interface {
	RoomStore
	UserStore
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()
}
