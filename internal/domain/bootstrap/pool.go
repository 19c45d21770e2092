package bootstrap

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/okian/mcf/pkg/logger"
)

// pool runs a fixed number of workers that claim job indices from a shared
// counter until the jobs are exhausted, the context ends or a job fails.
type pool struct {
	workers int
	logger  logger.Logger
}

func newPool(workers int, log logger.Logger) *pool {
	if workers < 1 {
		workers = 1
	}
	return &pool{workers: workers, logger: log}
}

// run calls fn(worker, job) for every job in [0, jobs). It returns the first
// job error or the context error.
func (p *pool) run(parent context.Context, jobs int, fn func(worker, job int) error) error {
	workers := min(p.workers, jobs)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var (
		next     atomic.Int64
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		name := "worker-" + strconv.Itoa(w)
		go func(w int) {
			defer wg.Done()
			for {
				if err := ctx.Err(); err != nil {
					return
				}
				job := int(next.Add(1) - 1)
				if job >= jobs {
					return
				}
				if err := fn(w, job); err != nil {
					errOnce.Do(func() {
						firstErr = fmt.Errorf("%s: job %d: %w", name, job, err)
						cancel()
					})
					return
				}
			}
		}(w)
	}
	wg.Wait()

	if firstErr != nil {
		p.logger.Error(ctx, "bootstrap worker failed", logger.Error(firstErr))
		return firstErr
	}
	return parent.Err()
}
