// Package modules implements the dynamic module machinery: the factory
// registry, the script VM that executes fetched game modules, and the loader
// state machine that turns a level identifier into a running game instance.
package modules

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/calebhart/chrono-arcade/internal/game"
)

// Registry maps a game identifier to the factory producing its instances.
// It is an explicitly owned object injected into the loader, not a hidden
// package singleton, so tests can run with independent registries. Entries
// are appended or overwritten, never removed; a Registry cannot fail, only
// warn.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]game.Factory
	order     []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]game.Factory)}
}

// Register stores factory under id. Overwriting an existing entry is allowed
// and is reported as a warning, not an error; the later registration wins.
func (r *Registry) Register(id string, factory game.Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[id]; exists {
		logrus.WithField("game", id).Warn("module registry: overwriting existing factory")
	} else {
		r.order = append(r.order, id)
	}
	r.factories[id] = factory
}

// Has reports whether a factory is registered under id.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[id]
	return ok
}

// Get returns the factory registered under id.
func (r *Registry) Get(id string) (game.Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[id]
	return f, ok
}

// List returns all identifiers in first-registration order. Diagnostics
// only; correctness never depends on this ordering.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
