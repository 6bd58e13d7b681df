// Package plugin provides the generic named-and-prioritized registration
// table shared by every pluggable capability kind (document extractors,
// OCR backends, post-processors, validators).
//
// A Registry holds opaque handler references; it never inspects them.
// Reads (extraction-time dispatch) take a shared lock, writes (register,
// unregister, clear) take an exclusive lock.
package plugin

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrDuplicateName is returned when registering a name that already exists
// within a registry. Duplicate names are rejected rather than silently
// overwritten; unregister first to replace a handler.
var ErrDuplicateName = errors.New("plugin: name already registered")

// Registration pairs a handler with its name and priority.
type Registration[H any] struct {
	Name     string
	Priority int
	Handler  H
}

// Registry is a process-wide table of handlers of one capability kind.
// The zero value is not usable; call New.
type Registry[H any] struct {
	mu      sync.RWMutex
	entries map[string]Registration[H]
}

// New returns an empty registry.
func New[H any]() *Registry[H] {
	return &Registry[H]{entries: make(map[string]Registration[H])}
}

// Register adds a handler under a unique name. Higher priority sorts first
// in All. Registering an existing name fails with ErrDuplicateName.
func (r *Registry[H]) Register(name string, priority int, handler H) error {
	if name == "" {
		return fmt.Errorf("plugin: empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	r.entries[name] = Registration[H]{Name: name, Priority: priority, Handler: handler}
	return nil
}

// Unregister removes a handler by name. Removing a name that is absent is
// a silent no-op, not an error.
func (r *Registry[H]) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// Get returns the handler registered under name.
func (r *Registry[H]) Get(name string) (H, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[name]
	return reg.Handler, ok
}

// List returns all registered names in lexical order.
func (r *Registry[H]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registration ordered by descending priority.
// Ties break by name so the order is stable across calls.
func (r *Registry[H]) All() []Registration[H] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	regs := make([]Registration[H], 0, len(r.entries))
	for _, reg := range r.entries {
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(i, j int) bool {
		if regs[i].Priority != regs[j].Priority {
			return regs[i].Priority > regs[j].Priority
		}
		return regs[i].Name < regs[j].Name
	})
	return regs
}

// Clear removes every registration.
func (r *Registry[H]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.entries)
}

// Len reports the number of registered handlers.
func (r *Registry[H]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
