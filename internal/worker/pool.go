// Package worker runs CPU-bound jobs on a fixed set of goroutines so they
// cannot starve the goroutines serving requests.
package worker

import (
	"context"
	"sync"

	"github.com/samber/oops"

	"github.com/BradenHooton/warden/internal/models"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = oops.Code(models.CodeHashPoolClosed).Errorf("worker pool is closed")

type job struct {
	fn   func()
	done chan struct{}
}

// Pool is a fixed-size pool of worker goroutines fed from a bounded queue.
type Pool struct {
	jobs    chan job
	quit    chan struct{}
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	size    int
	once    sync.Once
	onQueue func(depth int)
}

// Option configures a Pool.
type Option func(*Pool)

// WithQueueObserver registers a callback invoked with the queue depth each
// time a job is enqueued or dequeued.
func WithQueueObserver(fn func(depth int)) Option {
	return func(p *Pool) {
		p.onQueue = fn
	}
}

// New starts size workers reading from a queue of queueSize pending jobs.
func New(size, queueSize int, opts ...Option) *Pool {
	if size < 1 {
		size = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	p := &Pool{
		jobs: make(chan job, queueSize),
		quit: make(chan struct{}),
		size: size,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for {
		select {
		case j := <-p.jobs:
			p.observe()
			j.fn()
			close(j.done)
		case <-p.quit:
			// drain what was accepted before Close
			for {
				select {
				case j := <-p.jobs:
					j.fn()
					close(j.done)
				default:
					return
				}
			}
		}
	}
}

// Submit runs fn on a worker and blocks until it finishes or ctx is done.
// If ctx ends after fn was queued, fn still runs; its result is discarded
// by the caller.
func (p *Pool) Submit(ctx context.Context, fn func()) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}

	j := job{fn: fn, done: make(chan struct{})}
	select {
	case p.jobs <- j:
		p.mu.RUnlock()
		p.observe()
	case <-ctx.Done():
		p.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Size is the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// QueueDepth is the number of jobs waiting for a worker.
func (p *Pool) QueueDepth() int {
	return len(p.jobs)
}

// Close stops accepting jobs, finishes the queued ones and waits for the
// workers to exit. Safe to call more than once.
func (p *Pool) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.quit)
	})
	p.wg.Wait()
}

func (p *Pool) observe() {
	if p.onQueue != nil {
		p.onQueue(len(p.jobs))
	}
}
