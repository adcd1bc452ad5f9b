package chat

// Inbound actions recognized by the relay.
const (
	actionSendMessage = "sendMessage"
	actionJoinRoom    = "joinRoom"
	actionCreateRoom  = "createRoom"

	// typeImage marks the separate image envelope shape, which carries no action.
	typeImage = "image"
)

// Outbound control envelope types.
const (
	TypeRoomJoined  = "ROOM_JOINED"
	TypeRoomCreated = "ROOM_CREATED"
	TypeError       = "ERROR"
)

// Envelope is the inbound message shape. Which fields are set depends on the
// action: sendMessage uses content+roomId, joinRoom uses roomId, createRoom
// uses name, and the image shape uses roomId+fileBase64 with type "image".
type Envelope struct {
	Action     string `json:"action,omitempty"`
	Content    string `json:"content,omitempty"`
	RoomID     string `json:"roomId,omitempty"`
	Name       string `json:"name,omitempty"`
	Type       string `json:"type,omitempty"`
	FileBase64 string `json:"fileBase64,omitempty"`
}

// ControlEnvelope is the outbound shape for sender-only acknowledgements and
// error reports.
type ControlEnvelope struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId,omitempty"`
	RoomName string `json:"roomName,omitempty"`
	Message  string `json:"message,omitempty"`
}
