// Package hourcache is a bounded key/value cache with destructive reads.
//
// Capacity is a weighted semaphore: a producer reserves a slot before it
// starts the expensive work, fills it with the result, and the slot is only
// given back when a consumer reads the entry. Resident plus in-flight entries
// therefore never exceed the capacity. Consumers wait for a key on a channel
// that is closed when the key is filled.
package hourcache

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrSlotUsed is returned when a Slot is filled or released twice
var ErrSlotUsed = errors.New("hourcache: slot already used")

type entry[V any] struct {
	val     V
	ready   chan struct{}
	set     bool
	waiters int
}

// Cache holds at most Cap() entries; Get removes what it returns
type Cache[K comparable, V any] struct {
	capacity int64
	sem      *semaphore.Weighted

	mu      sync.Mutex
	entries map[K]*entry[V]
	size    int
}

// New returns a cache holding at most capacity entries (minimum 1)
func New[K comparable, V any](capacity int) *Cache[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache[K, V]{
		capacity: int64(capacity),
		sem:      semaphore.NewWeighted(int64(capacity)),
		entries:  make(map[K]*entry[V]),
	}
}

// Slot is one unit of reserved capacity, owned by a single producer
type Slot[K comparable, V any] struct {
	c    *Cache[K, V]
	once sync.Once
}

// Reserve blocks until a unit of capacity is free or ctx is done
func (c *Cache[K, V]) Reserve(ctx context.Context) (*Slot[K, V], error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return &Slot[K, V]{c: c}, nil
}

// Fill stores v under k using the reserved capacity and wakes waiters on k.
// The capacity is returned by the destructive Get of k.
func (s *Slot[K, V]) Fill(k K, v V) error {
	err := ErrSlotUsed
	s.once.Do(func() {
		s.c.store(k, v)
		err = nil
	})
	return err
}

// Release gives the capacity back without storing anything; no-op after Fill
func (s *Slot[K, V]) Release() {
	s.once.Do(func() {
		s.c.sem.Release(1)
	})
}

func (c *Cache[K, V]) store(k K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(k)
	if e.set {
		// overwrite keeps a single resident entry; the extra unit goes back
		e.val = v
		c.sem.Release(1)
		return
	}
	e.val = v
	e.set = true
	c.size++
	close(e.ready)
}

func (c *Cache[K, V]) entryLocked(k K) *entry[V] {
	e, ok := c.entries[k]
	if !ok {
		e = &entry[V]{ready: make(chan struct{})}
		c.entries[k] = e
	}
	return e
}

// Put reserves capacity (blocking while full) and stores v under k
func (c *Cache[K, V]) Put(ctx context.Context, k K, v V) error {
	s, err := c.Reserve(ctx)
	if err != nil {
		return err
	}
	return s.Fill(k, v)
}

// Get removes and returns the value for k, freeing its capacity
func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[k]
	if !ok || !e.set {
		var zero V
		return zero, false
	}
	delete(c.entries, k)
	c.size--
	c.sem.Release(1)
	return e.val, true
}

// Await blocks until k is resident, then performs the destructive Get.
// Only one consumer per key is expected; a later waiter keeps waiting for a new fill.
func (c *Cache[K, V]) Await(ctx context.Context, k K) (V, error) {
	for {
		c.mu.Lock()
		e := c.entryLocked(k)
		e.waiters++
		ready := e.ready
		c.mu.Unlock()

		select {
		case <-ready:
			c.leave(k, e)
			if v, ok := c.Get(k); ok {
				return v, nil
			}
		case <-ctx.Done():
			c.leave(k, e)
			var zero V
			return zero, ctx.Err()
		}
	}
}

// leave drops a waiter and removes a placeholder nobody filled or waits on
func (c *Cache[K, V]) leave(k K, e *entry[V]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.waiters--
	if cur, ok := c.entries[k]; ok && cur == e && !e.set && e.waiters == 0 {
		delete(c.entries, k)
	}
}

// Has reports whether k is resident
func (c *Cache[K, V]) Has(k K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	return ok && e.set
}

// Size is the number of resident entries
func (c *Cache[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Cap is the configured capacity
func (c *Cache[K, V]) Cap() int { return int(c.capacity) }

// Full reports whether resident entries have reached capacity
func (c *Cache[K, V]) Full() bool { return c.Size() >= c.Cap() }
