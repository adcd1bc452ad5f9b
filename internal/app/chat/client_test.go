package chat

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"relaychat/internal/app/store"
)

// relayFixture wires a memory store, registry, manager, and two authenticated
// clients subscribed to the same room.
type relayFixture struct {
	store    *store.Memory
	registry *Registry
	rooms    *Manager
	room     store.Room
	sender   *Client
	peer     *Client
}

func newRelayFixture(t *testing.T) *relayFixture {
	t.Helper()

	st := store.NewMemory()
	registry := NewRegistry()
	rooms := NewManager(registry, st)
	ctx := context.Background()

	alice, err := st.CreateUser(ctx, "alice", "Alice", "hash")
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob, err := st.CreateUser(ctx, "bob", "Bob", "hash")
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}

	room, err := rooms.CreateRoom(ctx, "general", alice)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	sender := NewClient(nil, alice, registry, rooms, st)
	peer := NewClient(nil, bob, registry, rooms, st)
	registry.Subscribe(room.ID.String(), sender)
	registry.Subscribe(room.ID.String(), peer)

	return &relayFixture{
		store:    st,
		registry: registry,
		rooms:    rooms,
		room:     room,
		sender:   sender,
		peer:     peer,
	}
}

func mustReceive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case payload := <-c.send:
		return payload
	default:
		t.Fatal("expected a queued payload, send channel is empty")
		return nil
	}
}

func expectSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case payload := <-c.send:
		t.Fatalf("expected no payload, got %q", payload)
	default:
	}
}

func TestSendMessagePersistsThenBroadcasts(t *testing.T) {
	f := newRelayFixture(t)

	f.sender.processInbound([]byte(`{"action":"sendMessage","content":"hello","roomId":"` + f.room.ID.String() + `"}`))

	for _, c := range []*Client{f.sender, f.peer} {
		var msg store.Message
		if err := json.Unmarshal(mustReceive(t, c), &msg); err != nil {
			t.Fatalf("broadcast payload is not a message: %v", err)
		}
		if msg.Content != "hello" {
			t.Fatalf("unexpected content %q", msg.Content)
		}
		if msg.SenderName != "Alice" {
			t.Fatalf("broadcast must carry the sender display name, got %q", msg.SenderName)
		}
		if msg.Kind != store.KindText {
			t.Fatalf("unexpected kind %q", msg.Kind)
		}
	}

	history, err := f.store.ListMessages(context.Background(), f.room.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected exactly one durable record, got %d", len(history))
	}
}

func TestSendMessageToUnknownRoomIsIgnored(t *testing.T) {
	f := newRelayFixture(t)

	f.sender.processInbound([]byte(`{"action":"sendMessage","content":"hi","roomId":"no-such-room"}`))

	expectSilent(t, f.sender)
	expectSilent(t, f.peer)

	history, err := f.store.ListMessages(context.Background(), f.room.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("nothing should be persisted, got %d records", len(history))
	}
}

func TestSendMessageTooLongRejected(t *testing.T) {
	f := newRelayFixture(t)

	long := strings.Repeat("a", MaxContentBytes+1)
	f.sender.processInbound([]byte(`{"action":"sendMessage","content":"` + long + `","roomId":"` + f.room.ID.String() + `"}`))

	var ctrl ControlEnvelope
	if err := json.Unmarshal(mustReceive(t, f.sender), &ctrl); err != nil {
		t.Fatalf("unmarshal control envelope: %v", err)
	}
	if ctrl.Type != TypeError {
		t.Fatalf("expected %s envelope, got %s", TypeError, ctrl.Type)
	}
	expectSilent(t, f.peer)
}

// failingStore wraps a working store and fails message inserts on demand.
type failingStore struct {
	store.Store
	failCreate bool
}

func (f *failingStore) CreateMessage(ctx context.Context, roomID, senderID uuid.UUID, content string, kind store.MessageKind) (store.Message, error) {
	if f.failCreate {
		return store.Message{}, errors.New("insert rejected")
	}
	return f.Store.CreateMessage(ctx, roomID, senderID, content, kind)
}

func TestSendMessagePersistenceFailureAbortsBroadcast(t *testing.T) {
	f := newRelayFixture(t)

	broken := &failingStore{Store: f.store, failCreate: true}
	f.sender.store = broken

	f.sender.processInbound([]byte(`{"action":"sendMessage","content":"hello","roomId":"` + f.room.ID.String() + `"}`))

	var ctrl ControlEnvelope
	if err := json.Unmarshal(mustReceive(t, f.sender), &ctrl); err != nil {
		t.Fatalf("unmarshal control envelope: %v", err)
	}
	if ctrl.Type != TypeError {
		t.Fatalf("sender should receive an %s envelope, got %s", TypeError, ctrl.Type)
	}

	expectSilent(t, f.peer)

	history, err := f.store.ListMessages(context.Background(), f.room.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("failed insert must not leave a record, got %d", len(history))
	}
}

func TestJoinRoomAcksSenderOnly(t *testing.T) {
	f := newRelayFixture(t)
	st := store.NewMemory()
	late := NewClient(nil, store.User{Name: "Carol"}, f.registry, f.rooms, st)

	late.processInbound([]byte(`{"action":"joinRoom","roomId":"` + f.room.ID.String() + `"}`))

	var ctrl ControlEnvelope
	if err := json.Unmarshal(mustReceive(t, late), &ctrl); err != nil {
		t.Fatalf("unmarshal control envelope: %v", err)
	}
	if ctrl.Type != TypeRoomJoined || ctrl.RoomID != f.room.ID.String() {
		t.Fatalf("unexpected ack %+v", ctrl)
	}

	expectSilent(t, f.sender)
	expectSilent(t, f.peer)

	if got := f.registry.SubscriberCount(f.room.ID.String()); got != 3 {
		t.Fatalf("expected 3 subscribers after join, got %d", got)
	}
}

func TestJoinUnknownRoomCreatesBarePresenceEntry(t *testing.T) {
	f := newRelayFixture(t)

	f.sender.processInbound([]byte(`{"action":"joinRoom","roomId":"ephemeral-42"}`))

	var ctrl ControlEnvelope
	if err := json.Unmarshal(mustReceive(t, f.sender), &ctrl); err != nil {
		t.Fatalf("unmarshal control envelope: %v", err)
	}
	if ctrl.Type != TypeRoomJoined {
		t.Fatalf("expected %s, got %s", TypeRoomJoined, ctrl.Type)
	}
	if !f.registry.HasRoom("ephemeral-42") {
		t.Fatal("joining an unknown id should create a presence entry")
	}
}

func TestCreateRoomIsImmediatelyJoinable(t *testing.T) {
	f := newRelayFixture(t)

	f.sender.processInbound([]byte(`{"action":"createRoom","name":"side-channel"}`))

	var ctrl ControlEnvelope
	if err := json.Unmarshal(mustReceive(t, f.sender), &ctrl); err != nil {
		t.Fatalf("unmarshal control envelope: %v", err)
	}
	if ctrl.Type != TypeRoomCreated || ctrl.RoomName != "side-channel" {
		t.Fatalf("unexpected ack %+v", ctrl)
	}
	if !f.registry.HasRoom(ctrl.RoomID) {
		t.Fatal("room must be joinable by the time the ack is queued")
	}

	expectSilent(t, f.peer)
}

// failingRoomStore rejects room creation.
type failingRoomStore struct {
	store.Store
}

func (f *failingRoomStore) CreateRoom(ctx context.Context, name string) (store.Room, error) {
	return store.Room{}, errors.New("insert rejected")
}

func TestCreateRoomFailureReportsToSenderOnly(t *testing.T) {
	f := newRelayFixture(t)
	broken := &failingRoomStore{Store: f.store}
	f.sender.rooms = NewManager(f.registry, broken)

	before := f.registry.RoomCount()

	f.sender.processInbound([]byte(`{"action":"createRoom","name":"doomed"}`))

	var ctrl ControlEnvelope
	if err := json.Unmarshal(mustReceive(t, f.sender), &ctrl); err != nil {
		t.Fatalf("unmarshal control envelope: %v", err)
	}
	if ctrl.Type != TypeError {
		t.Fatalf("expected %s envelope, got %s", TypeError, ctrl.Type)
	}
	if f.registry.RoomCount() != before {
		t.Fatal("failed creation must not add a presence entry")
	}
	expectSilent(t, f.peer)
}

func TestMalformedAndUnknownEnvelopesAreDropped(t *testing.T) {
	f := newRelayFixture(t)

	f.sender.processInbound([]byte(`{not json`))
	f.sender.processInbound([]byte(`{"action":"selfDestruct"}`))

	expectSilent(t, f.sender)
	expectSilent(t, f.peer)
}

func TestImageMessageBroadcastsAsImageKind(t *testing.T) {
	f := newRelayFixture(t)

	encoded := base64.StdEncoding.EncodeToString([]byte("fake image bytes"))
	f.sender.processInbound([]byte(`{"type":"image","fileBase64":"` + encoded + `","roomId":"` + f.room.ID.String() + `"}`))

	var msg store.Message
	if err := json.Unmarshal(mustReceive(t, f.peer), &msg); err != nil {
		t.Fatalf("broadcast payload is not a message: %v", err)
	}
	if msg.Kind != store.KindImage {
		t.Fatalf("expected image kind, got %q", msg.Kind)
	}
	if msg.Content != encoded {
		t.Fatal("image payload should be relayed unchanged")
	}
}

func TestImageMessageWithBadPayloadRejected(t *testing.T) {
	f := newRelayFixture(t)

	f.sender.processInbound([]byte(`{"type":"image","fileBase64":"!!not-base64!!","roomId":"` + f.room.ID.String() + `"}`))

	var ctrl ControlEnvelope
	if err := json.Unmarshal(mustReceive(t, f.sender), &ctrl); err != nil {
		t.Fatalf("unmarshal control envelope: %v", err)
	}
	if ctrl.Type != TypeError {
		t.Fatalf("expected %s envelope, got %s", TypeError, ctrl.Type)
	}
	expectSilent(t, f.peer)
}
