package ws

import (
	"context"
	"log"
	"time"
)

// Monitor runs the liveness sweep: each tick, connections that never
// acknowledged the previous probe are terminated, everyone else is marked
// unacknowledged and probed again. One full probe round trip per interval.
type Monitor struct {
	registry *Registry
	interval time.Duration
}

func NewMonitor(registry *Registry, interval time.Duration) *Monitor {
	return &Monitor{registry: registry, interval: interval}
}

func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) sweep() {
	for id, conn := range m.registry.snapshot() {
		if !conn.alive.Swap(false) {
			log.Printf("liveness: connection %s missed probe, terminating", id)
			m.registry.remove(id)
			conn.close()
			continue
		}
		if err := conn.ping(); err != nil {
			log.Printf("liveness: probe to %s failed: %v", id, err)
			m.registry.remove(id)
			conn.close()
		}
	}
}
