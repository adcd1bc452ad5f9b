/*
Package chat contains the core logic of the real-time room relay.

This file defines the Manager, which owns room lifecycle: seeding the presence
registry from durable storage at startup and creating new rooms at runtime.
*/
package chat

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"relaychat/internal/app/store"
	"relaychat/internal/pkg/logx"
)

// Manager coordinates durable room records with the in-memory presence registry.
type Manager struct {
	registry *Registry
	store    store.Store
	logger   zerolog.Logger
}

// NewManager constructs a Manager over the given registry and record store.
func NewManager(registry *Registry, st store.Store) *Manager {
	return &Manager{
		registry: registry,
		store:    st,
		logger:   logx.Logger().With().Str("component", "RoomManager").Logger(),
	}
}

// Bootstrap ensures a presence entry exists for every durable room. It must
// complete before the server accepts connections, so an early join never races
// an uninitialized registry.
func (m *Manager) Bootstrap(ctx context.Context) error {
	rooms, err := m.store.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap rooms: %w", err)
	}

	for _, room := range rooms {
		m.registry.EnsureRoom(room.ID.String())
	}

	m.logger.Info().Int("rooms", len(rooms)).Msg("Presence registry bootstrapped from storage.")
	return nil
}

// CreateRoom is the single path that mutates durable storage and the presence
// table together: it persists the room, links the creator as a member, and
// makes the presence entry visible before returning. Once the caller sends its
// acknowledgement the room is already joinable.
func (m *Manager) CreateRoom(ctx context.Context, name string, creator store.User) (store.Room, error) {
	room, err := m.store.CreateRoom(ctx, name)
	if err != nil {
		return store.Room{}, fmt.Errorf("create room: %w", err)
	}

	if err := m.store.AddRoomMember(ctx, room.ID, creator.ID); err != nil {
		return store.Room{}, fmt.Errorf("link creator membership: %w", err)
	}

	m.registry.EnsureRoom(room.ID.String())

	m.logger.Info().
		Str("room_id", room.ID.String()).
		Str("creator_id", creator.ID.String()).
		Msg("Room created and registered.")

	return room, nil
}
