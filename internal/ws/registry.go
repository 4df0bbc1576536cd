package ws

import (
	"sync"

	model "picking-control.com/picking-control/internal/models"
)

// Registry tracks the currently registered viewer connections. Sessions exist
// only here; dropping a connection destroys its session.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*connection
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*connection)}
}

func (r *Registry) add(id string, conn *connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = conn
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

func (r *Registry) snapshot() map[string]*connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make(map[string]*connection, len(r.conns))
	for id, conn := range r.conns {
		conns[id] = conn
	}
	return conns
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Sessions lists the registered sessions, for diagnostics.
func (r *Registry) Sessions() []model.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]model.Session, 0, len(r.conns))
	for _, conn := range r.conns {
		sessions = append(sessions, conn.session)
	}
	return sessions
}

// CloseAll drops every connection. Called on process shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]*connection)
	r.mu.Unlock()

	for _, conn := range conns {
		conn.close()
	}
}
