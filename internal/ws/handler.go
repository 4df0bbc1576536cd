package ws

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"picking-control.com/picking-control/internal/constants"
	model "picking-control.com/picking-control/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type clientMessage struct {
	Type string         `json:"type"`
	Name string         `json:"name"`
	Role constants.Role `json:"role"`
}

// Handler accepts websocket connections and runs the registration handshake.
// A connection only joins the registry after a valid register message.
type Handler struct {
	registry *Registry
}

func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

func (h *Handler) Serve(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return nil
	}

	client := newConnection(conn)
	conn.SetPongHandler(func(string) error {
		client.alive.Store(true)
		return nil
	})

	go client.writeLoop()

	var connID string
	defer func() {
		if connID != "" {
			h.registry.remove(connID)
			log.Printf("client disconnected: %s (%s)", client.session.Name, client.session.Role)
		}
		client.close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return nil
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("ws: discarding malformed message: %v", err)
			continue
		}

		switch msg.Type {
		case "ping":
			// Application-level heartbeat, independent of the control-frame probe.
			client.enqueue(mustMarshal(map[string]any{"type": "pong"}))

		case "register":
			if connID != "" {
				continue
			}
			connID = uuid.NewString()
			client.session = model.Session{ID: connID, Name: msg.Name, Role: msg.Role}
			h.registry.add(connID, client)

			client.enqueue(mustMarshal(map[string]any{
				"type":         "registered",
				"connectionId": connID,
			}))
			log.Printf("client registered: %s (%s)", msg.Name, msg.Role)
		}
	}
}

func mustMarshal(v map[string]any) []byte {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("ws: marshal failed: %v", err)
		return []byte("{}")
	}
	return payload
}
