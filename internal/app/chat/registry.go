/*
Package chat contains the core logic of the real-time room relay: the presence
registry, the per-connection protocol handler, and the room lifecycle manager.

This file defines the Registry, which tracks the set of live connections
subscribed to each room and fans broadcast payloads out to them.
*/
package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"relaychat/internal/pkg/logx"
)

// Registry maps room IDs to the set of currently subscribed connections.
//
// An entry existing here does not imply the room exists durably: entries are
// deleted the moment their set becomes empty, and joinRoom may create entries
// for rooms with no backing record.
type Registry struct {
	// mu protects the rooms map and every set inside it.
	mu sync.RWMutex

	// rooms holds the presence entries, keyed by room ID.
	rooms map[string]map[*Client]struct{}

	logger zerolog.Logger
}

// NewRegistry returns an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string]map[*Client]struct{}),
		logger: logx.Logger().With().Str("component", "Registry").Logger(),
	}
}

// EnsureRoom idempotently creates an empty presence entry for roomID.
func (g *Registry) EnsureRoom(roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.rooms[roomID]; !ok {
		g.rooms[roomID] = make(map[*Client]struct{})
	}
}

// HasRoom reports whether a presence entry exists for roomID.
func (g *Registry) HasRoom(roomID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.rooms[roomID]
	return ok
}

// Subscribe adds the connection to the room's set, creating the entry if it is
// missing. Subscribing twice is a no-op, so a double join never causes
// duplicate delivery.
func (g *Registry) Subscribe(roomID string, c *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()

	set, ok := g.rooms[roomID]
	if !ok {
		set = make(map[*Client]struct{})
		g.rooms[roomID] = set
	}
	set[c] = struct{}{}
}

// UnsubscribeAll removes the connection from every room's set. Any room whose
// set transitions to empty loses its presence entry entirely. Entries the
// connection was never in (including bootstrap-seeded empty ones) are left
// alone. Calling it twice has the same effect as once.
func (g *Registry) UnsubscribeAll(c *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for roomID, set := range g.rooms {
		if _, ok := set[c]; !ok {
			continue
		}
		delete(set, c)
		if len(set) == 0 {
			delete(g.rooms, roomID)
		}
	}
}

// Broadcast queues payload for every open connection currently subscribed to
// roomID. A missing presence entry is logged and skipped: a sender can
// legitimately hold a stale or fabricated room ID.
func (g *Registry) Broadcast(roomID string, payload []byte) {
	g.mu.RLock()
	set, ok := g.rooms[roomID]
	if !ok {
		g.mu.RUnlock()
		g.logger.Warn().Str("room_id", roomID).Msg("Broadcast to room without presence entry. Dropping.")
		return
	}

	targets := make([]*Client, 0, len(set))
	for client := range set {
		targets = append(targets, client)
	}
	g.mu.RUnlock()

	for _, client := range targets {
		if !client.Open() {
			continue
		}
		client.enqueue(payload)
	}
}

// SubscriberCount returns the size of the room's presence set, zero if the
// entry does not exist.
func (g *Registry) SubscriberCount(roomID string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.rooms[roomID])
}

// RoomCount returns the number of presence entries currently held.
func (g *Registry) RoomCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.rooms)
}
