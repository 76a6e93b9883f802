package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Pool runs submitted jobs on a fixed set of goroutines. Each job gets its
// own context with a bounded timeout, and panics are recovered at the job
// boundary so a misbehaving sync can never take the server down.
type Pool struct {
	jobs    chan job
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

type job struct {
	name string
	fn   func(ctx context.Context) error
}

func NewPool(workers, queueSize int, timeout time.Duration, logger *zap.Logger) *Pool {
	p := &Pool{
		jobs:    make(chan job, queueSize),
		timeout: timeout,
		logger:  logger,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.work()
	}
	return p
}

// Submit queues a job for background execution. It never blocks: when the
// queue is full, or the pool has been stopped, the job is dropped and
// false is returned.
func (p *Pool) Submit(name string, fn func(ctx context.Context) error) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return false
	}

	select {
	case p.jobs <- job{name: name, fn: fn}:
		return true
	default:
		return false
	}
}

// Stop closes the queue and waits for in-flight jobs to finish. Submissions
// after Stop are rejected.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) work() {
	defer p.wg.Done()
	for j := range p.jobs {
		p.runOne(j)
	}
}

func (p *Pool) runOne(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("background job panicked",
				zap.String("job", j.name), zap.Any("panic", r))
		}
	}()

	if err := j.fn(ctx); err != nil {
		p.logger.Error("background job failed",
			zap.String("job", j.name), zap.Error(err))
	}
}
