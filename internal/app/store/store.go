/*
Package store defines the durable record store consumed by the chat relay and the
HTTP layer: users, rooms, room membership, and message history.

Two implementations exist: Postgres (pgx) for production and an in-memory store
used by tests.
*/
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("store: record not found")

	// ErrDuplicate is returned when a unique constraint rejects a create.
	ErrDuplicate = errors.New("store: duplicate record")
)

// Store is the record store contract.
//
// Creation methods return the stored record so callers see generated IDs and
// timestamps. Message reads are enriched with the sender's display name.
type Store interface {
	CreateUser(ctx context.Context, username, name, passwordHash string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, name, passwordHash string) (User, error)
	SetUserAvatar(ctx context.Context, id uuid.UUID, avatarKey string) error

	CreateRoom(ctx context.Context, name string) (Room, error)
	GetRoom(ctx context.Context, id uuid.UUID) (Room, error)
	AddRoomMember(ctx context.Context, roomID, userID uuid.UUID) error
	ListRooms(ctx context.Context) ([]Room, error)
	ListRoomsForUser(ctx context.Context, userID uuid.UUID) ([]Room, error)

	CreateMessage(ctx context.Context, roomID, senderID uuid.UUID, content string, kind MessageKind) (Message, error)
	GetMessage(ctx context.Context, id uuid.UUID) (Message, error)
	ListMessages(ctx context.Context, roomID uuid.UUID) ([]Message, error)
}
