// Package state holds the per-user application state containers: entity
// collections plus their derived views, with mutation funneled through
// operations that keep derived fields consistent. Containers are explicit
// objects handed out by a registry — there are no package-level singletons.
package state

import "sync"

// Registry hands out one container per user id, creating it on first use.
type Registry[T any] struct {
	mu     sync.Mutex
	byUser map[string]*T
	newFn  func() *T
}

// NewRegistry creates a registry that builds containers with newFn.
func NewRegistry[T any](newFn func() *T) *Registry[T] {
	return &Registry[T]{
		byUser: make(map[string]*T),
		newFn:  newFn,
	}
}

// For returns the container for userID, creating it if needed.
func (r *Registry[T]) For(userID string) *T {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.byUser[userID]; ok {
		return c
	}
	c := r.newFn()
	r.byUser[userID] = c
	return c
}

// Drop discards the container for userID (e.g. on sign-out).
func (r *Registry[T]) Drop(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byUser, userID)
}
