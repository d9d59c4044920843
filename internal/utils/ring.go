package utils

import "sync"

// Ring is a fixed-capacity FIFO buffer that evicts its oldest entry on overflow.
// It is safe for one writer and many readers; reads always return copies.
type Ring[T any] struct {
	mu    sync.RWMutex
	items []T
	start int
	size  int
}

// NewRing creates a ring holding up to capacity items. Non-positive capacities fall back to 1.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push appends v, evicting the oldest entry when the ring is full.
func (r *Ring[T]) Push(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size < len(r.items) {
		r.items[(r.start+r.size)%len(r.items)] = v
		r.size++
		return
	}
	r.items[r.start] = v
	r.start = (r.start + 1) % len(r.items)
}

// Snapshot returns every stored entry, oldest first.
func (r *Ring[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tail(r.size)
}

// Last returns up to n of the newest entries, oldest first.
func (r *Ring[T]) Last(n int) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n > r.size {
		n = r.size
	}
	return r.tail(n)
}

// Latest returns the newest entry and whether the ring holds anything.
func (r *Ring[T]) Latest() (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var zero T
	if r.size == 0 {
		return zero, false
	}
	return r.items[(r.start+r.size-1)%len(r.items)], true
}

// Len returns the number of stored entries.
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int {
	return len(r.items)
}

func (r *Ring[T]) tail(n int) []T {
	if n <= 0 {
		return []T{}
	}
	out := make([]T, n)
	first := r.start + r.size - n
	for i := 0; i < n; i++ {
		out[i] = r.items[(first+i)%len(r.items)]
	}
	return out
}
