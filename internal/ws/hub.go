package ws

import (
	"encoding/json"
	"log"

	"picking-control.com/picking-control/internal/constants"
)

// Hub fans events out to registered connections. Delivery is fire-and-forget:
// a send failure on one connection never blocks or fails delivery to others,
// and never reaches the caller.
type Hub struct {
	registry *Registry
}

func NewHub(registry *Registry) *Hub {
	return &Hub{registry: registry}
}

// Broadcast serializes the event once and enqueues it on every registered
// connection whose role matches filter. An empty filter reaches everyone.
func (h *Hub) Broadcast(event map[string]any, filter constants.Role) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("broadcast: marshal failed: %v", err)
		return
	}

	for id, conn := range h.registry.snapshot() {
		if filter != "" && conn.session.Role != filter {
			continue
		}
		if !conn.enqueue(payload) {
			log.Printf("broadcast: dropped %v frame for slow connection %s", event["type"], id)
		}
	}
}
