package hourcache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestPutGetIsDestructive(t *testing.T) {
	c := New[string, int](2)
	ctx := context.Background()

	if err := c.Put(ctx, "a", 1); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !c.Has("a") || c.Size() != 1 {
		t.Fatalf("after Put: Has=%v Size=%d", c.Has("a"), c.Size())
	}
	v, ok := c.Get("a")
	if !ok || v != 1 {
		t.Fatalf("Get = (%d,%v), want (1,true)", v, ok)
	}
	if c.Has("a") || c.Size() != 0 {
		t.Fatalf("Get must remove the entry")
	}
	if _, ok := c.Get("a"); ok {
		t.Fatalf("second Get should miss")
	}
}

func TestFullAndCap(t *testing.T) {
	c := New[int, int](2)
	ctx := context.Background()
	if c.Cap() != 2 || c.Full() {
		t.Fatalf("fresh cache Cap=%d Full=%v", c.Cap(), c.Full())
	}
	_ = c.Put(ctx, 1, 1)
	_ = c.Put(ctx, 2, 2)
	if !c.Full() {
		t.Fatalf("expected Full at capacity")
	}
	if New[int, int](0).Cap() != 1 {
		t.Fatalf("capacity below 1 should clamp to 1")
	}
}

func TestPutBlocksWhileFull(t *testing.T) {
	c := New[int, int](1)
	_ = c.Put(context.Background(), 1, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := c.Put(ctx, 2, 2); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Put on full cache = %v, want deadline exceeded", err)
	}

	done := make(chan error, 1)
	go func() { done <- c.Put(context.Background(), 3, 3) }()
	time.Sleep(10 * time.Millisecond)
	c.Get(1)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Put after Get: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Put did not unblock after Get freed capacity")
	}
}

func TestReservedSlotsCountAgainstCapacity(t *testing.T) {
	c := New[int, int](1)
	s, err := c.Reserve(context.Background())
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	// nothing resident yet, but the in-flight slot holds the capacity
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Reserve(ctx); err == nil {
		t.Fatalf("second Reserve should block while a slot is in flight")
	}
	s.Release()
	s.Release()
	if _, err := c.Reserve(context.Background()); err != nil {
		t.Fatalf("Reserve after Release: %v", err)
	}
}

func TestSlotFillTwice(t *testing.T) {
	c := New[string, int](2)
	s, _ := c.Reserve(context.Background())
	if err := s.Fill("k", 1); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if err := s.Fill("k", 2); !errors.Is(err, ErrSlotUsed) {
		t.Fatalf("second Fill = %v, want ErrSlotUsed", err)
	}
	s.Release() // no-op after Fill
	if c.Size() != 1 {
		t.Fatalf("Size = %d, want 1", c.Size())
	}
}

func TestOverwriteKeepsOneEntry(t *testing.T) {
	c := New[string, int](2)
	ctx := context.Background()
	_ = c.Put(ctx, "k", 1)
	_ = c.Put(ctx, "k", 2)
	if c.Size() != 1 {
		t.Fatalf("Size = %d, want 1", c.Size())
	}
	v, _ := c.Get("k")
	if v != 2 {
		t.Fatalf("Get = %d, want 2", v)
	}
	// both units must be free again
	_ = c.Put(ctx, "a", 1)
	_ = c.Put(ctx, "b", 1)
	if !c.Full() {
		t.Fatalf("expected capacity 2 to be fully usable")
	}
}

func TestAwaitWakesOnFill(t *testing.T) {
	c := New[string, string](1)
	got := make(chan string, 1)
	go func() {
		v, err := c.Await(context.Background(), "hour")
		if err != nil {
			t.Errorf("Await: %v", err)
		}
		got <- v
	}()

	time.Sleep(10 * time.Millisecond)
	if c.Has("hour") {
		t.Fatalf("placeholder must not count as resident")
	}
	_ = c.Put(context.Background(), "hour", "records")

	select {
	case v := <-got:
		if v != "records" {
			t.Fatalf("Await = %q", v)
		}
	case <-time.After(time.Second):
		t.Fatalf("Await did not wake")
	}
	if c.Size() != 0 || c.Has("hour") {
		t.Fatalf("Await must consume the entry")
	}
}

func TestAwaitAlreadyResident(t *testing.T) {
	c := New[int, int](1)
	_ = c.Put(context.Background(), 7, 49)
	v, err := c.Await(context.Background(), 7)
	if err != nil || v != 49 {
		t.Fatalf("Await = (%d,%v)", v, err)
	}
}

func TestAwaitCancelled(t *testing.T) {
	c := New[int, int](1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Await(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("Await = %v, want canceled", err)
	}
	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()
	if n != 0 {
		t.Fatalf("cancelled waiter left %d placeholder(s)", n)
	}
}

func TestConcurrentProducersNeverExceedCapacity(t *testing.T) {
	const capacity, keys = 3, 40
	c := New[int, int](capacity)
	ctx := context.Background()

	var wg sync.WaitGroup
	// slots are reserved in key order, fills complete in any order
	go func() {
		for k := 0; k < keys; k++ {
			s, err := c.Reserve(ctx)
			if err != nil {
				t.Errorf("Reserve: %v", err)
				return
			}
			wg.Add(1)
			go func(k int) {
				defer wg.Done()
				time.Sleep(time.Duration(keys-k) * 100 * time.Microsecond)
				if c.Size() > capacity {
					t.Errorf("Size %d exceeds capacity", c.Size())
				}
				_ = s.Fill(k, k*k)
				if c.Size() > capacity {
					t.Errorf("Size %d exceeds capacity after fill", c.Size())
				}
			}(k)
		}
	}()

	// consume in key order, like the driver does
	for k := 0; k < keys; k++ {
		v, err := c.Await(ctx, k)
		if err != nil || v != k*k {
			t.Fatalf("Await(%d) = (%d,%v)", k, v, err)
		}
	}
	wg.Wait()
}
