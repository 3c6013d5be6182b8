package gateway

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Send pings at this interval; must be less than pongWait.
	pingPeriod = 54 * time.Second

	// Outbound queue size per connection.
	sendBuffer = 256
)

// Socket is the transport surface a connection needs. *websocket.Conn
// satisfies it; tests substitute in-memory implementations.
type Socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Conn is one live client session. The registry owns it for its lifetime;
// all shared state about it (identity, room memberships) lives in the
// registry and room index, so Conn itself needs no locking beyond the
// close guard.
type Conn struct {
	id   string
	sock Socket
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newConn(id string, sock Socket) *Conn {
	return &Conn{
		id:   id,
		sock: sock,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() string { return c.id }

// enqueue hands a frame to the write loop without blocking. It reports
// false when the connection is closed or its outbound queue is full, so a
// stalled peer can never block fan-out to others.
func (c *Conn) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Conn) close() {
	c.once.Do(func() {
		close(c.done)
		c.sock.Close()
	})
}

func (c *Conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.sock.Close()
	}()

	for {
		select {
		case <-c.done:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			c.sock.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case frame := <-c.send:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
