// Package worker provides the fixed-size background pool and the cover
// sweep runner that re-checks stored artwork for generic placeholders.
package worker

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Job is one unit of background work. Jobs receive the pool's context and
// report failures per job; a failed job does not stop the pool.
type Job func(ctx context.Context) error

// Pool runs jobs on a fixed number of goroutines fed from a channel.
// Submit after Shutdown is a dropped job, not a panic.
type Pool struct {
	jobs  chan Job
	group *errgroup.Group
	gctx  context.Context

	mu     sync.Mutex
	closed bool

	errMu sync.Mutex
	errs  []error
}

// NewPool starts size workers draining the job channel. size < 1 is
// clamped to 1.
func NewPool(ctx context.Context, size int) *Pool {
	if size < 1 {
		size = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	p := &Pool{
		jobs:  make(chan Job),
		group: g,
		gctx:  gctx,
	}
	for i := 0; i < size; i++ {
		g.Go(p.run)
	}
	return p
}

func (p *Pool) run() error {
	for job := range p.jobs {
		if err := job(p.gctx); err != nil {
			p.errMu.Lock()
			p.errs = append(p.errs, err)
			p.errMu.Unlock()
		}
	}
	return nil
}

// Submit queues a job, blocking until a worker takes it. It returns false
// when the pool has shut down or its context is cancelled, and the job is
// dropped. The intake lock keeps Submit ordered before a concurrent
// Shutdown's channel close.
func (p *Pool) Submit(job Job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.jobs <- job:
		return true
	case <-p.gctx.Done():
		return false
	}
}

// Shutdown stops intake, drains in-flight jobs, and returns the errors
// collected from failed jobs. It is safe to call more than once.
func (p *Pool) Shutdown() []error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	_ = p.group.Wait()

	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.errs
}
