// Package workpool runs submitted jobs on a fixed set of goroutines.
// Jobs are dequeued in submission order; completion order is not defined.
package workpool

import (
	"runtime/debug"
	"sync"

	perr "ghscan/internal/platform/errors"
	"ghscan/internal/platform/logger"

	"golang.org/x/sync/errgroup"
)

// ErrShutdown is returned by Process once Shutdown was called
var ErrShutdown = perr.New(perr.CodeShutdown, "workpool: shutting down")

// Job is one unit of work
type Job func()

// Pool is a fixed-size worker pool fed from a FIFO queue
type Pool struct {
	size int

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []Job
	active   int
	shutdown bool

	g *errgroup.Group
}

// New starts size workers (minimum 1)
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{size: size, g: new(errgroup.Group)}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < size; i++ {
		p.g.Go(p.worker)
	}
	return p
}

// Size is the number of workers
func (p *Pool) Size() int { return p.size }

// Process enqueues job and returns the queue depth after enqueueing
func (p *Pool) Process(job Job) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shutdown {
		return len(p.queue), ErrShutdown
	}
	p.queue = append(p.queue, job)
	p.cond.Signal()
	return len(p.queue), nil
}

// Go enqueues fn(arg); it is the argument-carrying form of Process
func Go[A any](p *Pool, arg A, fn func(A)) (int, error) {
	return p.Process(func() { fn(arg) })
}

// Enqueued is the number of jobs waiting for a worker
func (p *Pool) Enqueued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Active is the number of jobs currently running
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// ShuttingDown reports whether Shutdown was called
func (p *Pool) ShuttingDown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutdown
}

// Shutdown stops accepting jobs; with discard the queued jobs are dropped,
// otherwise workers drain the queue first. Running jobs are never interrupted.
func (p *Pool) Shutdown(discard bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shutdown = true
	if discard {
		clear(p.queue)
		p.queue = p.queue[:0]
	}
	p.cond.Broadcast()
}

// Wait blocks until Shutdown was called, the queue is empty and every worker exited
func (p *Pool) Wait() {
	_ = p.g.Wait()
}

func (p *Pool) worker() error {
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.shutdown {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return nil
		}
		job := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.active++
		p.mu.Unlock()

		p.run(job)

		p.mu.Lock()
		p.active--
		p.mu.Unlock()
	}
}

func (p *Pool) run(job Job) {
	defer func() {
		if r := recover(); r != nil {
			logger.Named("workpool").Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("workpool: job panicked")
		}
	}()
	job()
}
