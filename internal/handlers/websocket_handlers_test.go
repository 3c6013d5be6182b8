package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chat-gateway/internal/auth"
	"chat-gateway/internal/config"
	"chat-gateway/internal/gateway"
	"chat-gateway/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// End-to-end tests over real WebSocket connections: an httptest server
// running the gateway handler, gorilla clients dialing in.

func newGatewayServer(t *testing.T) (*httptest.Server, *auth.Service) {
	t.Helper()

	cfg := &config.Config{JWT: config.JWTConfig{
		Secret:    []byte("integration-test-secret"),
		ExpiresIn: time.Hour,
	}}
	authService := auth.NewService(nil, cfg)
	gw := gateway.New(authService, gateway.Hooks{})

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", NewWebSocketHandlers(gw).HandleWebSocket)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, authService
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func issueToken(t *testing.T, svc *auth.Service, email string) string {
	t.Helper()

	token, err := svc.IssueToken(&models.User{
		ID:       "user-" + email,
		Username: strings.SplitN(email, "@", 2)[0],
		Email:    email,
	})
	require.NoError(t, err)
	return token
}

func dial(t *testing.T, rawURL string, header http.Header) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(rawURL, header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func emit(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(models.Envelope{Event: event, Data: data}))
}

func readEnvelope(t *testing.T, conn *websocket.Conn) models.Envelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env models.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestWebSocket_AnonymousPing(t *testing.T) {
	srv, _ := newGatewayServer(t)

	conn := dial(t, wsURL(srv), nil)
	emit(t, conn, models.EventPing, struct{}{})

	env := readEnvelope(t, conn)
	require.Equal(t, models.EventPong, env.Event)

	var pong models.Pong
	require.NoError(t, json.Unmarshal(env.Data, &pong))
	assert.NotEmpty(t, pong.ClientID)
	assert.NotEmpty(t, pong.Timestamp)
}

func TestWebSocket_InvalidTokenIsDisconnected(t *testing.T) {
	srv, _ := newGatewayServer(t)

	// The upgrade itself succeeds; the gateway closes the transport right
	// after the failed handshake authentication.
	conn := dial(t, wsURL(srv)+"?token=forged", nil)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestWebSocket_AuthViaBearerHeader(t *testing.T) {
	srv, svc := newGatewayServer(t)
	token := issueToken(t, svc, "alice@example.com")

	header := http.Header{"Authorization": {"Bearer " + token}}
	conn := dial(t, wsURL(srv), header)

	emit(t, conn, models.EventJoinRoom, models.JoinRoom{Room: "lobby"})

	env := readEnvelope(t, conn)
	require.Equal(t, models.EventJoinedRoom, env.Event)
}

func TestWebSocket_BroadcastBetweenClients(t *testing.T) {
	srv, svc := newGatewayServer(t)

	alice := dial(t, wsURL(srv)+"?token="+issueToken(t, svc, "alice@example.com"), nil)
	bob := dial(t, wsURL(srv)+"?token="+issueToken(t, svc, "bob@example.com"), nil)

	emit(t, alice, models.EventMessage, models.ChatMessage{Message: "hello everyone"})

	for _, conn := range []*websocket.Conn{alice, bob} {
		env := readEnvelope(t, conn)
		require.Equal(t, models.EventMessage, env.Event)

		var msg models.BroadcastMessage
		require.NoError(t, json.Unmarshal(env.Data, &msg))
		assert.Equal(t, "alice@example.com", msg.User)
		assert.Equal(t, "hello everyone", msg.Message)
	}
}

func TestWebSocket_RoomFlow(t *testing.T) {
	srv, svc := newGatewayServer(t)

	bob := dial(t, wsURL(srv)+"?token="+issueToken(t, svc, "bob@example.com"), nil)
	carol := dial(t, wsURL(srv)+"?token="+issueToken(t, svc, "carol@example.com"), nil)

	emit(t, bob, models.EventJoinRoom, models.JoinRoom{Room: "lobby"})
	require.Equal(t, models.EventJoinedRoom, readEnvelope(t, bob).Event)
	require.Equal(t, models.EventUserJoined, readEnvelope(t, bob).Event)

	emit(t, carol, models.EventJoinRoom, models.JoinRoom{Room: "lobby"})
	require.Equal(t, models.EventJoinedRoom, readEnvelope(t, carol).Event)
	require.Equal(t, models.EventUserJoined, readEnvelope(t, carol).Event)

	env := readEnvelope(t, bob)
	require.Equal(t, models.EventUserJoined, env.Event)
	var presence models.RoomPresence
	require.NoError(t, json.Unmarshal(env.Data, &presence))
	assert.Equal(t, "carol@example.com", presence.User)

	// Carol drops; bob hears userLeft for the room.
	carol.Close()
	env = readEnvelope(t, bob)
	require.Equal(t, models.EventUserLeft, env.Event)
	require.NoError(t, json.Unmarshal(env.Data, &presence))
	assert.Equal(t, "carol@example.com", presence.User)
	assert.Equal(t, "lobby", presence.Room)
}

func TestWebSocket_GuardRejectsAnonymousBroadcast(t *testing.T) {
	srv, _ := newGatewayServer(t)

	conn := dial(t, wsURL(srv), nil)
	emit(t, conn, models.EventMessage, models.ChatMessage{Message: "should bounce"})

	env := readEnvelope(t, conn)
	require.Equal(t, models.EventError, env.Event)

	var payload models.ErrorPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "unauthorized", payload.Error)

	// The connection survives the rejection.
	emit(t, conn, models.EventPing, struct{}{})
	assert.Equal(t, models.EventPong, readEnvelope(t, conn).Event)
}
