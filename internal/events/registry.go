package events

import (
	"log/slog"
	"slices"
	"sync"
)

// Listener receives workflow events. Listeners are invoked synchronously,
// in registration order, on the emitting goroutine; a listener that panics
// is logged and skipped, never propagated to the engine.
type Listener func(Event)

// Registry fans events out to registered listeners. Each workflow engine
// owns exactly one registry; registries are never shared across runs of
// different engines.
type Registry struct {
	mu        sync.Mutex
	listeners map[int]Listener
	next      int
	logger    *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used to report listener panics.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty listener registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		listeners: make(map[int]Listener),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// On registers a listener and returns a closure that removes it.
// Unsubscribing twice is harmless.
func (r *Registry) On(l Listener) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.next
	r.next++
	r.listeners[id] = l

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}

// Emit delivers the event to every listener in registration order.
// Delivery is synchronous so observers see a total order matching the
// engine's own state transitions.
func (r *Registry) Emit(event Event) {
	r.mu.Lock()
	ids := make([]int, 0, len(r.listeners))
	for id := range r.listeners {
		ids = append(ids, id)
	}
	// Map iteration order is random; restore registration order.
	slices.Sort(ids)
	ls := make([]Listener, len(ids))
	for i, id := range ids {
		ls[i] = r.listeners[id]
	}
	r.mu.Unlock()

	for _, l := range ls {
		r.dispatch(l, event)
	}
}

// dispatch invokes a single listener, containing any panic.
func (r *Registry) dispatch(l Listener, event Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("event listener panicked",
				"event", event.Type,
				"workflow_id", event.WorkflowID,
				"panic", rec)
		}
	}()
	l(event)
}

// Count returns the number of registered listeners.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}
