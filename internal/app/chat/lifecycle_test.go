package chat

import (
	"context"
	"testing"

	"relaychat/internal/app/store"
)

func TestBootstrapSeedsEveryDurableRoom(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	first, err := st.CreateRoom(ctx, "first")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	second, err := st.CreateRoom(ctx, "second")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	registry := NewRegistry()
	rooms := NewManager(registry, st)

	if err := rooms.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	for _, room := range []store.Room{first, second} {
		if !registry.HasRoom(room.ID.String()) {
			t.Fatalf("room %s missing from presence table after bootstrap", room.ID)
		}
	}
	if got := registry.RoomCount(); got != 2 {
		t.Fatalf("expected 2 presence entries, got %d", got)
	}
}

func TestCreateRoomLinksCreatorMembership(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	creator, err := st.CreateUser(ctx, "alice", "Alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	registry := NewRegistry()
	rooms := NewManager(registry, st)

	room, err := rooms.CreateRoom(ctx, "general", creator)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	if !registry.HasRoom(room.ID.String()) {
		t.Fatal("presence entry must exist before CreateRoom returns")
	}

	memberRooms, err := st.ListRoomsForUser(ctx, creator.ID)
	if err != nil {
		t.Fatalf("list rooms for user: %v", err)
	}
	if len(memberRooms) != 1 || memberRooms[0].ID != room.ID {
		t.Fatalf("creator should be a member of the new room, got %v", memberRooms)
	}
}
