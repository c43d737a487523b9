package workpool

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	perr "ghscan/internal/platform/errors"
	kit "ghscan/internal/platform/testkit"
)

func TestProcessRunsAllJobs(t *testing.T) {
	p := New(4)
	var n atomic.Int64
	for i := 0; i < 100; i++ {
		if _, err := p.Process(func() { n.Add(1) }); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}
	p.Shutdown(false)
	p.Wait()
	if n.Load() != 100 {
		t.Fatalf("ran %d jobs, want 100", n.Load())
	}
}

func TestSingleWorkerIsFIFO(t *testing.T) {
	p := New(1)
	var mu sync.Mutex
	var order []int
	for i := 0; i < 20; i++ {
		_, _ = Go(p, i, func(i int) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	p.Shutdown(false)
	p.Wait()
	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want ascending", order)
		}
	}
	if len(order) != 20 {
		t.Fatalf("ran %d jobs, want 20", len(order))
	}
}

func TestProcessReturnsQueueDepth(t *testing.T) {
	p := New(1)
	block := make(chan struct{})
	started := make(chan struct{})
	_, _ = p.Process(func() { close(started); <-block })
	<-started

	for want := 1; want <= 3; want++ {
		got, err := p.Process(func() {})
		if err != nil || got != want {
			t.Fatalf("Process depth = (%d,%v), want %d", got, err, want)
		}
	}
	if p.Enqueued() != 3 || p.Active() != 1 {
		t.Fatalf("Enqueued=%d Active=%d, want 3 and 1", p.Enqueued(), p.Active())
	}
	close(block)
	p.Shutdown(false)
	p.Wait()
	if p.Enqueued() != 0 || p.Active() != 0 {
		t.Fatalf("after Wait: Enqueued=%d Active=%d", p.Enqueued(), p.Active())
	}
}

func TestShutdownRejectsNewJobs(t *testing.T) {
	p := New(2)
	p.Shutdown(false)
	if !p.ShuttingDown() {
		t.Fatalf("ShuttingDown = false after Shutdown")
	}
	_, err := p.Process(func() {})
	if !errors.Is(err, ErrShutdown) || !perr.IsCode(err, perr.CodeShutdown) {
		t.Fatalf("Process after Shutdown = %v, want ErrShutdown", err)
	}
	p.Wait()
}

func TestShutdownDiscardDropsQueued(t *testing.T) {
	p := New(1)
	block := make(chan struct{})
	started := make(chan struct{})
	_, _ = p.Process(func() { close(started); <-block })
	<-started

	var ran atomic.Int64
	for i := 0; i < 5; i++ {
		_, _ = p.Process(func() { ran.Add(1) })
	}
	p.Shutdown(true)
	if p.Enqueued() != 0 {
		t.Fatalf("Enqueued = %d after discard", p.Enqueued())
	}
	close(block)
	p.Wait()
	if ran.Load() != 0 {
		t.Fatalf("discarded jobs ran: %d", ran.Load())
	}
}

func TestPanickingJobDoesNotKillWorker(t *testing.T) {
	p := New(1)
	var ok atomic.Bool
	kit.MustNotPanic(t, func() {
		_, _ = p.Process(func() { panic("boom") })
		_, _ = p.Process(func() { ok.Store(true) })
		p.Shutdown(false)
		p.Wait()
	})
	if !ok.Load() {
		t.Fatalf("job after panic did not run")
	}
}

func TestJobsRunConcurrently(t *testing.T) {
	p := New(3)
	var cur, peak atomic.Int64
	for i := 0; i < 9; i++ {
		_, _ = p.Process(func() {
			n := cur.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			cur.Add(-1)
		})
	}
	p.Shutdown(false)
	p.Wait()
	if peak.Load() < 2 || peak.Load() > 3 {
		t.Fatalf("peak concurrency = %d, want 2..3", peak.Load())
	}
	q := New(0)
	defer func() { q.Shutdown(true); q.Wait() }()
	if q.Size() != 1 {
		t.Fatalf("size below 1 should clamp")
	}
}
