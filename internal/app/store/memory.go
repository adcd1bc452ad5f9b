package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a mutex-guarded in-memory Store. It backs the test suite and is not
// wired into the server binary.
type Memory struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]User
	rooms    map[uuid.UUID]Room
	members  map[uuid.UUID]map[uuid.UUID]struct{} // room -> set of users
	messages map[uuid.UUID]Message
	seq      map[uuid.UUID]int // message insertion order, per id
	nextSeq  int
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:    make(map[uuid.UUID]User),
		rooms:    make(map[uuid.UUID]Room),
		members:  make(map[uuid.UUID]map[uuid.UUID]struct{}),
		messages: make(map[uuid.UUID]Message),
		seq:      make(map[uuid.UUID]int),
	}
}

func (m *Memory) CreateUser(ctx context.Context, username, name, passwordHash string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			return User{}, ErrDuplicate
		}
	}

	u := User{
		ID:           uuid.New(),
		Username:     username,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *Memory) GetUserByUsername(ctx context.Context, username string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *Memory) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) UpdateUser(ctx context.Context, id uuid.UUID, name, passwordHash string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	u.Name = name
	u.PasswordHash = passwordHash
	m.users[id] = u
	return u, nil
}

func (m *Memory) SetUserAvatar(ctx context.Context, id uuid.UUID, avatarKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.AvatarKey = avatarKey
	m.users[id] = u
	return nil
}

func (m *Memory) CreateRoom(ctx context.Context, name string) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room := Room{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: time.Now(),
	}
	m.rooms[room.ID] = room
	m.members[room.ID] = make(map[uuid.UUID]struct{})
	return room, nil
}

func (m *Memory) GetRoom(ctx context.Context, id uuid.UUID) (Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms[id]
	if !ok {
		return Room{}, ErrNotFound
	}
	return room, nil
}

func (m *Memory) AddRoomMember(ctx context.Context, roomID, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[roomID]; !ok {
		return ErrNotFound
	}
	if _, ok := m.users[userID]; !ok {
		return ErrNotFound
	}
	if m.members[roomID] == nil {
		m.members[roomID] = make(map[uuid.UUID]struct{})
	}
	m.members[roomID][userID] = struct{}{}
	return nil
}

func (m *Memory) ListRooms(ctx context.Context) ([]Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rooms := make([]Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	sortRooms(rooms)
	return rooms, nil
}

func (m *Memory) ListRoomsForUser(ctx context.Context, userID uuid.UUID) ([]Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rooms := []Room{}
	for roomID, users := range m.members {
		if _, ok := users[userID]; ok {
			rooms = append(rooms, m.rooms[roomID])
		}
	}
	sortRooms(rooms)
	return rooms, nil
}

func sortRooms(rooms []Room) {
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].ID.String() < rooms[j].ID.String()
		}
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
}

func (m *Memory) CreateMessage(ctx context.Context, roomID, senderID uuid.UUID, content string, kind MessageKind) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[roomID]; !ok {
		return Message{}, ErrNotFound
	}
	if _, ok := m.users[senderID]; !ok {
		return Message{}, ErrNotFound
	}

	msg := Message{
		ID:        uuid.New(),
		RoomID:    roomID,
		SenderID:  senderID,
		Content:   content,
		Kind:      kind,
		CreatedAt: time.Now(),
	}
	m.messages[msg.ID] = msg
	m.nextSeq++
	m.seq[msg.ID] = m.nextSeq
	return msg, nil
}

func (m *Memory) GetMessage(ctx context.Context, id uuid.UUID) (Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msg, ok := m.messages[id]
	if !ok {
		return Message{}, ErrNotFound
	}
	msg.SenderName = m.users[msg.SenderID].Name
	return msg, nil
}

func (m *Memory) ListMessages(ctx context.Context, roomID uuid.UUID) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	messages := []Message{}
	for _, msg := range m.messages {
		if msg.RoomID == roomID {
			msg.SenderName = m.users[msg.SenderID].Name
			messages = append(messages, msg)
		}
	}
	sort.Slice(messages, func(i, j int) bool {
		return m.seq[messages[i].ID] < m.seq[messages[j].ID]
	})
	return messages, nil
}

var _ Store = (*Memory)(nil)
