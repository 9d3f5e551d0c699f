package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/farhorizons/tabletop/internal/game"
)

const sendBuffer = 32

// conn adapts one websocket to the session.Subscriber contract. Outbound
// messages go through a buffered channel drained by writeLoop; a full buffer
// means the client is too slow and the session evicts us.
type conn struct {
	sock *websocket.Conn

	mu       sync.Mutex
	playerID string
	closed   bool

	out  chan []byte
	done chan struct{}
}

func newConn(sock *websocket.Conn) *conn {
	return &conn{
		sock: sock,
		out:  make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

func (c *conn) PlayerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

func (c *conn) setPlayerID(id string) {
	c.mu.Lock()
	c.playerID = id
	c.mu.Unlock()
}

func (c *conn) SendState(view *game.ClientState) bool {
	return c.send(outbound{Type: "state_update", State: view})
}

func (c *conn) SendEvent(event string, payload interface{}) bool {
	return c.send(outbound{Type: event, Payload: payload})
}

func (c *conn) sendError(kind, message string) {
	c.send(outbound{Type: "error", Kind: kind, Message: message})
}

func (c *conn) send(msg outbound) bool {
	b, err := json.Marshal(msg)
	if err != nil {
		return false
	}
	select {
	case c.out <- b:
		return true
	case <-c.done:
		return false
	default:
		return false // buffer full; the session will evict us
	}
}

func (c *conn) writeLoop() {
	for {
		select {
		case b := <-c.out:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := c.sock.Write(ctx, websocket.MessageText, b)
			cancel()
			if err != nil {
				c.Close("write failed")
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close is idempotent and safe from any goroutine.
func (c *conn) Close(reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
	_ = c.sock.Close(websocket.StatusNormalClosure, reason)
}
