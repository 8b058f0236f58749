// Package server maintains the mapping between live connection identifiers
// and the display names clients register under.
package server

import (
	"log"
	"sync"
)

// Registry tracks the display name bound to each live connection. It exists
// for diagnostics only: broadcast delivery never consults it, so an
// unregistered connection participates in the relay like any other.
type Registry struct {
	mu    sync.RWMutex
	names map[string]string
}

// NewRegistry creates an empty Registry. One instance is created per process
// and injected into the Hub that owns it.
func NewRegistry() *Registry {
	return &Registry{
		names: make(map[string]string),
	}
}

// Register binds a display name to a connection id, overwriting any previous
// binding. Display names are not unique across connections.
func (r *Registry) Register(connID, displayName string) {
	r.mu.Lock()
	r.names[connID] = displayName
	r.mu.Unlock()

	log.Printf("User %q registered on connection %s", displayName, connID)
}

// Unregister removes the binding for a connection id. Removing an id that
// was never registered, or was already removed, is a no-op.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	delete(r.names, connID)
	r.mu.Unlock()
}

// Lookup returns the display name bound to a connection id.
func (r *Registry) Lookup(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.names[connID]
	return name, ok
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.names)
}
