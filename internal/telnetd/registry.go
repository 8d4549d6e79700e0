// Package telnetd is a small reference application built on internal/telnet:
// it accepts connections, negotiates a handful of options, and tracks the
// connected sessions.
package telnetd

import (
	"fmt"
	"sync"
)

// Registry tracks every live Session under a single RWMutex-guarded map.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int]*Session
	nextID   int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[int]*Session), nextID: 1}
}

// Add assigns the next session id to s, registers it, and returns the id.
func (r *Registry) Add(s *Session) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	s.ID = id
	r.sessions[id] = s
	return id
}

// Remove unregisters the session with the given id.
func (r *Registry) Remove(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Count returns the number of currently connected sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// List returns a snapshot of every connected session.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Broadcast writes msg, as a line, to every connected session. Write errors
// on individual sessions are silently ignored here — one dead peer must not
// stop the broadcast, and its own Run loop will notice the closed connection
// and return, after which the goroutine that started Run unregisters it.
func (r *Registry) Broadcast(msg string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		s.SendLine(fmt.Sprintf("*** %s", msg))
	}
}
