package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Store on top of a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const userColumns = "id, username, name, password_hash, avatar_key, created_at"

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Name, &u.PasswordHash, &u.AvatarKey, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func (p *Postgres) CreateUser(ctx context.Context, username, name, passwordHash string) (User, error) {
	row := p.pool.QueryRow(ctx,
		"INSERT INTO users (username, name, password_hash) VALUES ($1, $2, $3) RETURNING "+userColumns,
		username, name, passwordHash)

	u, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrDuplicate
		}
		return User{}, err
	}
	return u, nil
}

func (p *Postgres) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := p.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1", username)
	return scanUser(row)
}

func (p *Postgres) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := p.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUser(row)
}

func (p *Postgres) UpdateUser(ctx context.Context, id uuid.UUID, name, passwordHash string) (User, error) {
	row := p.pool.QueryRow(ctx,
		"UPDATE users SET name = $2, password_hash = $3 WHERE id = $1 RETURNING "+userColumns,
		id, name, passwordHash)
	return scanUser(row)
}

func (p *Postgres) SetUserAvatar(ctx context.Context, id uuid.UUID, avatarKey string) error {
	tag, err := p.pool.Exec(ctx,
		"UPDATE users SET avatar_key = $2 WHERE id = $1", id, avatarKey)
	if err != nil {
		return fmt.Errorf("set avatar: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) CreateRoom(ctx context.Context, name string) (Room, error) {
	var room Room
	err := p.pool.QueryRow(ctx,
		"INSERT INTO rooms (name) VALUES ($1) RETURNING id, name, created_at",
		name).Scan(&room.ID, &room.Name, &room.CreatedAt)
	if err != nil {
		return Room{}, fmt.Errorf("create room: %w", err)
	}
	return room, nil
}

func (p *Postgres) GetRoom(ctx context.Context, id uuid.UUID) (Room, error) {
	var room Room
	err := p.pool.QueryRow(ctx,
		"SELECT id, name, created_at FROM rooms WHERE id = $1", id).
		Scan(&room.ID, &room.Name, &room.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Room{}, ErrNotFound
	}
	if err != nil {
		return Room{}, fmt.Errorf("get room: %w", err)
	}
	return room, nil
}

func (p *Postgres) AddRoomMember(ctx context.Context, roomID, userID uuid.UUID) error {
	_, err := p.pool.Exec(ctx,
		"INSERT INTO room_members (room_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		roomID, userID)
	if err != nil {
		return fmt.Errorf("add room member: %w", err)
	}
	return nil
}

func (p *Postgres) ListRooms(ctx context.Context) ([]Room, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT id, name, created_at FROM rooms ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	return collectRooms(rows)
}

func (p *Postgres) ListRoomsForUser(ctx context.Context, userID uuid.UUID) ([]Room, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT r.id, r.name, r.created_at
		 FROM rooms r
		 JOIN room_members rm ON rm.room_id = r.id
		 WHERE rm.user_id = $1
		 ORDER BY r.created_at, r.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list rooms for user: %w", err)
	}
	defer rows.Close()

	return collectRooms(rows)
}

func collectRooms(rows pgx.Rows) ([]Room, error) {
	rooms := []Room{}
	for rows.Next() {
		var room Room
		if err := rows.Scan(&room.ID, &room.Name, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

const messageColumns = `m.id, m.room_id, m.sender_id, u.name, m.content, m.kind, m.created_at`

func scanMessage(row pgx.Row) (Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.SenderName, &m.Content, &m.Kind, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, ErrNotFound
	}
	if err != nil {
		return Message{}, fmt.Errorf("scan message: %w", err)
	}
	return m, nil
}

func (p *Postgres) CreateMessage(ctx context.Context, roomID, senderID uuid.UUID, content string, kind MessageKind) (Message, error) {
	var m Message
	m.RoomID = roomID
	m.SenderID = senderID
	m.Content = content
	m.Kind = kind

	err := p.pool.QueryRow(ctx,
		"INSERT INTO messages (room_id, sender_id, content, kind) VALUES ($1, $2, $3, $4) RETURNING id, created_at",
		roomID, senderID, content, string(kind)).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("create message: %w", err)
	}
	return m, nil
}

func (p *Postgres) GetMessage(ctx context.Context, id uuid.UUID) (Message, error) {
	row := p.pool.QueryRow(ctx,
		"SELECT "+messageColumns+" FROM messages m JOIN users u ON u.id = m.sender_id WHERE m.id = $1", id)
	return scanMessage(row)
}

func (p *Postgres) ListMessages(ctx context.Context, roomID uuid.UUID) ([]Message, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT "+messageColumns+" FROM messages m JOIN users u ON u.id = m.sender_id WHERE m.room_id = $1 ORDER BY m.created_at, m.id",
		roomID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.SenderName, &m.Content, &m.Kind, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

var _ Store = (*Postgres)(nil)
