package store

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	AvatarKey    string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Room is a named group chat context. Rooms are created explicitly and never
// deleted; only their in-memory presence entries come and go.
type Room struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageKind tags a message as text or an inline base64 image.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
)

// Message is an immutable chat message. SenderName is filled on reads by
// joining against the sender record; it is what clients render.
type Message struct {
	ID         uuid.UUID   `json:"id"`
	RoomID     uuid.UUID   `json:"roomId"`
	SenderID   uuid.UUID   `json:"senderId"`
	SenderName string      `json:"senderName,omitempty"`
	Content    string      `json:"content"`
	Kind       MessageKind `json:"type"`
	CreatedAt  time.Time   `json:"createdAt"`
}
