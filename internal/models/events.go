package models

import "encoding/json"

// Event tags carried in the envelope. Inbound and outbound tags share one
// namespace, matching the wire protocol.
const (
	EventMessage        = "message"
	EventPrivateMessage = "privateMessage"
	EventPing           = "ping"
	EventPong           = "pong"
	EventJoinRoom       = "joinRoom"
	EventJoinedRoom     = "joinedRoom"
	EventUserJoined     = "userJoined"
	EventLeaveRoom      = "leaveRoom"
	EventLeftRoom       = "leftRoom"
	EventUserLeft       = "userLeft"
	EventError          = "error"
)

// Envelope is the frame format for every WebSocket message, inbound and
// outbound: an event tag plus a JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound payloads.

type ChatMessage struct {
	Message string `json:"message"`
}

type PrivateMessage struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

type JoinRoom struct {
	Room string `json:"room"`
}

type LeaveRoom struct {
	Room string `json:"room"`
}

// Outbound payloads.

type BroadcastMessage struct {
	User      string `json:"user"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type PrivateMessageAck struct {
	Status  string `json:"status"`
	From    string `json:"from"`
	To      string `json:"to"`
	Message string `json:"message"`
}

type Pong struct {
	Timestamp string `json:"timestamp"`
	ClientID  string `json:"clientId"`
}

type RoomAck struct {
	Room   string `json:"room"`
	Status string `json:"status"`
}

type RoomPresence struct {
	User      string `json:"user"`
	Room      string `json:"room"`
	Timestamp string `json:"timestamp"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}
