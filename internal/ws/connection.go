package ws

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	model "picking-control.com/picking-control/internal/models"
)

const (
	sendBufferSize = 32
	writeWait      = 10 * time.Second
)

// connection wraps one live websocket. All data frames go through the send
// channel so a single writer goroutine owns the socket; control frames use
// WriteControl, which gorilla allows concurrently.
type connection struct {
	session model.Session
	ws      *websocket.Conn
	send    chan []byte
	alive   atomic.Bool
	done    chan struct{}
	once    sync.Once
}

func newConnection(ws *websocket.Conn) *connection {
	c := &connection{
		ws:   ws,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
	c.alive.Store(true)
	return c
}

// enqueue hands a frame to the writer without blocking. A full buffer means a
// slow client; the frame is dropped and the fan-out moves on.
func (c *connection) enqueue(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

func (c *connection) writeLoop() {
	for {
		select {
		case payload := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.close()
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("ws write to %s failed: %v", c.session.Name, err)
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *connection) ping() error {
	if c.ws == nil {
		return nil
	}
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *connection) close() {
	c.once.Do(func() {
		close(c.done)
		if c.ws != nil {
			c.ws.Close()
		}
	})
}
