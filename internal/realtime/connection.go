package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxFrameSize   = 64 << 10
	sendBufferSize = 128
)

var (
	errConnClosed     = errors.New("connection closed")
	errBufferExceeded = errors.New("connection buffer exceeded")
)

// Connection wraps a websocket and serialises outbound writes through a buffered channel.
// It is safe for concurrent use.
type Connection struct {
	ID  string
	UID string

	ws     *websocket.Conn
	send   chan []byte
	once   sync.Once
	closed chan struct{}
}

func NewConnection(uid string, ws *websocket.Conn) *Connection {
	return &Connection{
		ID:     uuid.NewString(),
		UID:    uid,
		ws:     ws,
		send:   make(chan []byte, sendBufferSize),
		closed: make(chan struct{}),
	}
}

// Start launches the write loop. Call it once.
func (c *Connection) Start() {
	go c.writeLoop()
}

// Send enqueues payload. A client that lets the buffer fill up is disconnected.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}
	select {
	case <-c.closed:
		return errConnClosed
	case c.send <- payload:
		return nil
	default:
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return errBufferExceeded
	}
}

// Close sends a close frame and tears down the socket. Later calls are no-ops.
func (c *Connection) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.closed)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		_ = c.ws.Close()
	})
}

// Closed is closed together with the connection.
func (c *Connection) Closed() <-chan struct{} {
	return c.closed
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "ping failed")
				return
			}
		}
	}
}

func (c *Connection) write(kind int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(kind, payload)
}
