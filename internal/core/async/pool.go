// Package async runs indexed jobs over a bounded set of workers.
package async

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Pool fans n indexed jobs out to a fixed number of workers.
type Pool struct {
	logger  *slog.Logger
	workers int
	timeout time.Duration
}

type Option func(*Pool)

func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithJobTimeout bounds each job; zero leaves jobs on the caller's context.
func WithJobTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func NewPool(logger *slog.Logger, opts ...Option) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{logger: logger, workers: 4}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run calls fn once for every index in [0, n) and returns when all calls
// finished. Jobs not yet started when ctx is cancelled are skipped; fn
// should record results by index.
func (p *Pool) Run(ctx context.Context, n int, fn func(ctx context.Context, i int)) {
	if n <= 0 {
		return
	}
	workers := min(p.workers, n)
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.logger.Debug("worker started", "worker_id", workerID)
			for i := range jobs {
				jobCtx, cancel := ctx, context.CancelFunc(func() {})
				if p.timeout > 0 {
					jobCtx, cancel = context.WithTimeout(ctx, p.timeout)
				}
				fn(jobCtx, i)
				cancel()
			}
			p.logger.Debug("worker stopped", "worker_id", workerID)
		}(w + 1)
	}

feed:
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			p.logger.Warn("pool interrupted by context", "dispatched", i, "total", n)
			break
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			p.logger.Warn("pool interrupted by context", "dispatched", i, "total", n)
			break feed
		}
	}
	close(jobs)
	wg.Wait()
}
