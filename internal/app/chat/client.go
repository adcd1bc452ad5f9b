/*
Package chat contains the core logic of the real-time room relay.

This file defines the Client struct, the per-connection protocol handler. It owns
the read and write pumps, parses inbound action envelopes, sequences persistence
before broadcast, and guarantees presence cleanup when the transport closes.
*/
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"relaychat/internal/app/store"
	"relaychat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time the server waits for a Pong from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of an inbound frame. Sized for inline
	// base64 image payloads plus envelope overhead.
	maxMessageSize = MaxImageBase64Bytes + 1024

	// MaxContentBytes is the maximum allowed size for text message content.
	MaxContentBytes = 5000
)

// Client represents one authenticated WebSocket connection.
//
// A Client only exists in the Authenticated state: the handshake (token
// extraction, verification, identity resolution) happens before construction,
// and a failed handshake closes the raw connection without ever creating one.
type Client struct {
	// underlying WebSocket connection.
	conn *websocket.Conn

	// the authenticated user identity bound to this connection.
	user store.User

	// presence registry shared by all connections.
	registry *Registry

	// room lifecycle manager, the single path for creating rooms.
	rooms *Manager

	// durable record store.
	store store.Store

	// buffered channel of payloads waiting to be written to the client.
	send chan []byte

	// closed flips once when the connection leaves the open state. Broadcasts
	// consult it so a closed-but-not-yet-unsubscribed connection is skipped.
	closed atomic.Bool

	logger zerolog.Logger
}

// NewClient constructs a Client for an already-authenticated connection.
func NewClient(conn *websocket.Conn, user store.User, registry *Registry, rooms *Manager, st store.Store) *Client {
	clientLogger := logx.Logger().With().
		Str("user_id", user.ID.String()).
		Logger()

	return &Client{
		conn:     conn,
		user:     user,
		registry: registry,
		rooms:    rooms,
		store:    st,
		send:     make(chan []byte, 256),
		logger:   clientLogger,
	}
}

// User returns the identity bound to this connection.
func (c *Client) User() store.User {
	return c.user
}

// Open reports whether the connection is still in the open state.
func (c *Client) Open() bool {
	return !c.closed.Load()
}

// ReadPump reads frames from the WebSocket connection until it closes, handling
// heartbeats and dispatching action envelopes. It must run in the connection's
// own goroutine. Cleanup on exit is unconditional.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		c.processInbound(messageBytes)
	}
}

// cleanupOnDisconnect is the single cleanup path for a connection. It removes
// the connection from every room's presence set, which also deletes any room
// entry that becomes empty.
func (c *Client) cleanupOnDisconnect() {
	c.closed.Store(true)

	c.registry.UnsubscribeAll(c)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}

	c.logger.Info().Msg("Client disconnected and unsubscribed from all rooms.")
}

// processInbound parses one raw frame and dispatches it. A malformed or
// unrecognized envelope is a per-message failure: it is dropped and the
// connection stays open.
func (c *Client) processInbound(messageBytes []byte) {
	var env Envelope

	if err := json.Unmarshal(messageBytes, &env); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid JSON. Dropping message.")
		return
	}

	switch {
	case env.Type == typeImage:
		c.handleSend(env.RoomID, env.FileBase64, store.KindImage)

	case env.Action == actionSendMessage:
		c.handleSend(env.RoomID, env.Content, store.KindText)

	case env.Action == actionJoinRoom:
		c.handleJoin(env.RoomID)

	case env.Action == actionCreateRoom:
		c.handleCreate(env.Name)

	default:
		c.logger.Warn().
			Str("action", env.Action).
			Str("msg_type", env.Type).
			Msg("Client sent unsupported envelope. Dropping message.")
	}
}

// handleSend is the single create-message path for both text and image sends.
// The message is persisted, re-read enriched with the sender's display name,
// and only then broadcast to the room's current subscriber set. A persistence
// failure aborts the broadcast and is reported to the sender alone.
func (c *Client) handleSend(roomID, content string, kind store.MessageKind) {
	if kind == store.KindImage {
		if customErr := ValidateImagePayload(content); customErr != nil {
			c.SendError(customErr.Message)
			return
		}
	} else if len(content) > MaxContentBytes {
		c.SendError("Message is too long.")
		return
	}

	if !c.registry.HasRoom(roomID) {
		c.logger.Warn().Str("room_id", roomID).Msg("sendMessage for room without presence entry. Ignoring.")
		return
	}

	rid, err := uuid.Parse(roomID)
	if err != nil {
		c.logger.Warn().Str("room_id", roomID).Msg("sendMessage with malformed room id. Ignoring.")
		return
	}

	ctx := context.Background()

	created, err := c.store.CreateMessage(ctx, rid, c.user.ID, content, kind)
	if err != nil {
		c.logger.Error().Err(err).Str("room_id", roomID).Msg("Failed to persist message. Broadcast aborted.")
		c.SendError("Failed to send message")
		return
	}

	// Re-read so the broadcast carries the enriched record, sender name included.
	enriched, err := c.store.GetMessage(ctx, created.ID)
	if err != nil {
		c.logger.Error().Err(err).Str("message_id", created.ID.String()).Msg("Failed to load persisted message. Broadcast aborted.")
		c.SendError("Failed to send message")
		return
	}

	payload, err := json.Marshal(enriched)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to marshal message for broadcast.")
		return
	}

	c.registry.Broadcast(roomID, payload)
}

// handleJoin subscribes the connection to the room's presence set and
// acknowledges to the sender only. The room is deliberately not checked against
// durable storage: joining an unknown id creates a bare presence entry.
func (c *Client) handleJoin(roomID string) {
	if roomID == "" {
		c.logger.Warn().Msg("joinRoom without room id. Dropping message.")
		return
	}

	c.registry.Subscribe(roomID, c)

	c.sendControl(ControlEnvelope{
		Type:   TypeRoomJoined,
		RoomID: roomID,
	})
}

// handleCreate creates a durable room with the connection's user as first
// member, makes it joinable, and acknowledges to the sender only. Storage
// failures are reported to the sender and never tear down the connection.
func (c *Client) handleCreate(name string) {
	room, err := c.rooms.CreateRoom(context.Background(), name, c.user)
	if err != nil {
		c.logger.Error().Err(err).Str("room_name", name).Msg("Room creation failed.")
		c.SendError("Failed to create room")
		return
	}

	c.sendControl(ControlEnvelope{
		Type:     TypeRoomCreated,
		RoomID:   room.ID.String(),
		RoomName: room.Name,
	})
}

// sendControl marshals and queues a control envelope for this connection only.
func (c *Client) sendControl(ctrl ControlEnvelope) {
	payload, err := json.Marshal(ctrl)
	if err != nil {
		c.logger.Error().Err(err).Str("ctrl_type", ctrl.Type).Msg("Failed to marshal control envelope.")
		return
	}

	c.enqueue(payload)
}

// SendError queues an ERROR envelope for this connection only.
func (c *Client) SendError(message string) {
	c.sendControl(ControlEnvelope{
		Type:    TypeError,
		Message: message,
	})
}

// enqueue places a payload on the send channel without blocking. A full queue
// drops the payload; a slow consumer must not stall the relay.
func (c *Client) enqueue(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping payload")
		return false
	}
}

// WritePump writes queued payloads to the WebSocket connection and keeps the
// heartbeat alive. It must run in its own goroutine, one per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		c.closed.Store(true)

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline")
				return
			}

			if !ok {
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
					c.logger.Error().Err(err).Msg("Error writing close message")
				}
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Error().Err(err).Msg("Error writing message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Error().Err(err).Msg("Error writing ping")
				return
			}
		}
	}
}
