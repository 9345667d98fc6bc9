package async

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is one unit of work handed to a Pool.
type Task[T any] func(ctx context.Context) (T, error)

// Result pairs a task's output with its position in the submitted slice.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// Pool runs independent tasks on a bounded set of workers. Each task gets its
// own timeout; one failing task never stops the others.
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

func WithProcessTimeout(d time.Duration) Option {
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
	p := &Pool{
		logger:  logger,
		workers: 1,
		timeout: 3 * time.Minute,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Pool) Workers() int { return p.workers }

// Run executes tasks and returns their results in submission order.
func Run[T any](ctx context.Context, p *Pool, tasks []Task[T]) []Result[T] {
	results := make([]Result[T], len(tasks))
	if len(tasks) == 0 {
		return results
	}

	workers := min(p.workers, len(tasks))
	ch := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := range ch {
				tctx, cancel := context.WithTimeout(ctx, p.timeout)
				v, err := tasks[i](tctx)
				cancel()
				results[i] = Result[T]{Index: i, Value: v, Err: err}
				if err != nil {
					p.logger.Debug("async.task.failed", "worker_id", workerID, "index", i, "error", err)
				}
			}
		}(w + 1)
	}

	for i := range tasks {
		ch <- i
	}
	close(ch)
	wg.Wait()
	return results
}
