// Package observer provides the listener list shared by event sources.
//
// Sources notify listeners from their own goroutine while other goroutines
// attach and detach listeners. List hands out snapshots so a notification
// pass never observes a half-mutated slice, and a listener added during a
// pass only sees later notifications.
package observer

import "sync"

// List is an ordered set of listeners safe for concurrent use.
//
// T is usually an interface type. Listeners are compared with ==, so the
// dynamic types stored in the list must be comparable (pointers are).
type List[T comparable] struct {
	mu    sync.Mutex
	items []T
}

// Add appends item in registration order.
// Returns false if item is already registered.
func (l *List[T]) Add(item T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, it := range l.items {
		if it == item {
			return false
		}
	}

	// Copy-on-write: snapshots handed out earlier keep their backing array.
	next := make([]T, len(l.items), len(l.items)+1)
	copy(next, l.items)
	l.items = append(next, item)
	return true
}

// Remove detaches item. Returns false if it was not registered.
func (l *List[T]) Remove(item T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, it := range l.items {
		if it != item {
			continue
		}
		next := make([]T, 0, len(l.items)-1)
		next = append(next, l.items[:i]...)
		next = append(next, l.items[i+1:]...)
		l.items = next
		return true
	}
	return false
}

// Snapshot returns the current listeners in registration order.
// The returned slice must not be modified.
func (l *List[T]) Snapshot() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.items
}

// Each calls fn for every listener registered when Each was called.
func (l *List[T]) Each(fn func(T)) {
	for _, it := range l.Snapshot() {
		fn(it)
	}
}

// Len returns the number of registered listeners.
func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}
