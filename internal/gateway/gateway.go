// Package gateway implements the real-time message-broadcast core: the
// connection registry, room index, and the dispatcher that authenticates
// connections at handshake time and fans events out to one or many peers.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chat-gateway/internal/models"
)

var errSendQueueFull = errors.New("send queue full")

type handlerFunc func(c *Conn, data json.RawMessage)

// Gateway owns the connection lifecycle and routes inbound events through
// an explicit dispatch table built at startup. Privileged handlers are
// wrapped with the authentication guard when the table is constructed.
type Gateway struct {
	registry *Registry
	rooms    *RoomIndex
	hooks    Hooks
	handlers map[string]handlerFunc
}

func New(verifier TokenVerifier, hooks Hooks) *Gateway {
	g := &Gateway{
		registry: NewRegistry(verifier),
		rooms:    NewRoomIndex(),
		hooks:    hooks,
	}

	g.handlers = map[string]handlerFunc{
		models.EventMessage:        g.withAuth(g.handleMessage),
		models.EventPrivateMessage: g.withAuth(g.handlePrivateMessage),
		models.EventJoinRoom:       g.withAuth(g.handleJoinRoom),
		models.EventLeaveRoom:      g.withAuth(g.handleLeaveRoom),
		models.EventPing:           g.handlePing,
	}
	return g
}

// Registry exposes the connection registry, mainly for tests and the HTTP
// layer's diagnostics.
func (g *Gateway) Registry() *Registry { return g.registry }

// Rooms exposes the room index.
func (g *Gateway) Rooms() *RoomIndex { return g.rooms }

// Connect accepts a transport and runs the handshake: the connection is
// registered first, then authenticated with the supplied token, if any.
// A present-but-invalid token is fatal and closes the transport; an absent
// token leaves the connection open and anonymous. On success the read and
// write loops are started and the connection id is returned.
func (g *Gateway) Connect(sock Socket, token string) (string, error) {
	c := g.registry.Register(sock)
	g.hooks.connected(c.id)

	if token != "" {
		identity, err := g.registry.Authenticate(c.id, token)
		if err != nil {
			g.hooks.authFailed(c.id, err)
			g.registry.Unregister(c.id)
			c.close()
			return "", err
		}
		g.hooks.authenticated(c.id, identity)
	}

	go c.writeLoop()
	go g.readLoop(c)

	return c.id, nil
}

// Disconnect tears a connection down: it leaves every joined room, telling
// each remaining member exactly once, then removes the connection from the
// registry and closes the transport. Safe to call more than once.
func (g *Gateway) Disconnect(c *Conn) {
	user := g.userLabel(c.id)
	ts := timestamp()

	for _, room := range g.rooms.RoomsOf(c.id) {
		if g.rooms.Leave(room, c.id) {
			g.notifyRoom(room, models.EventUserLeft, models.RoomPresence{
				User:      user,
				Room:      room,
				Timestamp: ts,
			})
		}
	}

	removed := g.registry.Unregister(c.id)
	c.close()
	if removed {
		g.hooks.disconnected(c.id)
	}
}

// readLoop pulls frames off the transport and dispatches them one at a
// time, so each connection's events are processed in the order received.
// Any read error ends the session and triggers the disconnect cascade.
func (g *Gateway) readLoop(c *Conn) {
	defer g.Disconnect(c)

	c.sock.SetReadDeadline(time.Now().Add(pongWait))
	c.sock.SetPongHandler(func(string) error {
		c.sock.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.sock.ReadMessage()
		if err != nil {
			return
		}
		g.dispatch(c, raw)
	}
}

// dispatch routes one inbound frame through the handler table. Malformed
// frames and unknown tags yield an error envelope to the sender and never
// end the session.
func (g *Gateway) dispatch(c *Conn, raw []byte) {
	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		g.sendError(c, "malformed event")
		return
	}

	handler, ok := g.handlers[env.Event]
	if !ok {
		g.sendError(c, fmt.Sprintf("unknown event: %s", env.Event))
		return
	}

	g.hooks.event(c.id, env.Event)
	handler(c, env.Data)
}

// withAuth wraps a privileged handler with the authentication guard. A
// rejected event is answered with an error envelope; the connection stays
// open, unlike a handshake-time failure.
func (g *Gateway) withAuth(h func(c *Conn, identity *models.Identity, data json.RawMessage)) handlerFunc {
	return func(c *Conn, data json.RawMessage) {
		identity, err := g.registry.Require(c.id)
		if err != nil {
			g.sendError(c, "unauthorized")
			return
		}
		h(c, identity, data)
	}
}

func (g *Gateway) handleMessage(c *Conn, identity *models.Identity, data json.RawMessage) {
	var msg models.ChatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		g.sendError(c, "malformed message payload")
		return
	}

	g.broadcastAll(models.EventMessage, models.BroadcastMessage{
		User:      identity.Email,
		Message:   msg.Message,
		Timestamp: timestamp(),
	})
}

func (g *Gateway) handlePrivateMessage(c *Conn, identity *models.Identity, data json.RawMessage) {
	var msg models.PrivateMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		g.sendError(c, "malformed privateMessage payload")
		return
	}

	// Acknowledgement only: the declared recipient is echoed back, no
	// point-to-point routing is performed.
	g.send(c, models.EventPrivateMessage, models.PrivateMessageAck{
		Status:  "sent",
		From:    identity.Email,
		To:      msg.To,
		Message: msg.Message,
	})
}

func (g *Gateway) handleJoinRoom(c *Conn, identity *models.Identity, data json.RawMessage) {
	var req models.JoinRoom
	if err := json.Unmarshal(data, &req); err != nil || req.Room == "" {
		g.sendError(c, "malformed joinRoom payload")
		return
	}

	joined := g.rooms.Join(req.Room, c.id)

	g.send(c, models.EventJoinedRoom, models.RoomAck{
		Room:   req.Room,
		Status: "success",
	})

	// Repeat joins are no-ops and do not re-announce.
	if joined {
		g.notifyRoom(req.Room, models.EventUserJoined, models.RoomPresence{
			User:      identity.Email,
			Room:      req.Room,
			Timestamp: timestamp(),
		})
	}
}

func (g *Gateway) handleLeaveRoom(c *Conn, identity *models.Identity, data json.RawMessage) {
	var req models.LeaveRoom
	if err := json.Unmarshal(data, &req); err != nil || req.Room == "" {
		g.sendError(c, "malformed leaveRoom payload")
		return
	}

	left := g.rooms.Leave(req.Room, c.id)

	g.send(c, models.EventLeftRoom, models.RoomAck{
		Room:   req.Room,
		Status: "success",
	})

	// The sender has already left, so only remaining members hear it.
	if left {
		g.notifyRoom(req.Room, models.EventUserLeft, models.RoomPresence{
			User:      identity.Email,
			Room:      req.Room,
			Timestamp: timestamp(),
		})
	}
}

func (g *Gateway) handlePing(c *Conn, data json.RawMessage) {
	g.send(c, models.EventPong, models.Pong{
		Timestamp: timestamp(),
		ClientID:  c.id,
	})
}

// broadcastAll delivers one event to every registered connection, sender
// included. Each write is independent: a stale or stalled recipient is
// reported and dropped without aborting delivery to the rest.
func (g *Gateway) broadcastAll(event string, payload any) {
	frame, err := marshalEnvelope(event, payload)
	if err != nil {
		return
	}

	var failed []*Conn
	for _, c := range g.registry.Connections() {
		if !c.enqueue(frame) {
			g.hooks.deliveryFailed(c.id, errSendQueueFull)
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		g.Disconnect(c)
	}
}

// notifyRoom delivers one event to every current member of the room, with
// the same per-recipient failure isolation as broadcastAll.
func (g *Gateway) notifyRoom(room, event string, payload any) {
	frame, err := marshalEnvelope(event, payload)
	if err != nil {
		return
	}

	var failed []*Conn
	for _, id := range g.rooms.MembersOf(room) {
		c, err := g.registry.Lookup(id)
		if err != nil {
			continue
		}
		if !c.enqueue(frame) {
			g.hooks.deliveryFailed(c.id, errSendQueueFull)
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		g.Disconnect(c)
	}
}

// send delivers one event to a single connection.
func (g *Gateway) send(c *Conn, event string, payload any) {
	frame, err := marshalEnvelope(event, payload)
	if err != nil {
		return
	}
	if !c.enqueue(frame) {
		g.hooks.deliveryFailed(c.id, errSendQueueFull)
		g.Disconnect(c)
	}
}

func (g *Gateway) sendError(c *Conn, msg string) {
	g.send(c, models.EventError, models.ErrorPayload{Error: msg})
}

func (g *Gateway) userLabel(connID string) string {
	if identity := g.registry.Identity(connID); identity != nil {
		return identity.Email
	}
	return "anonymous"
}

func marshalEnvelope(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(models.Envelope{Event: event, Data: data})
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
