// Package scheduler runs background tasks on a bounded worker pool.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// TaskFunc is the body of a background task
type TaskFunc func(ctx context.Context) error

type task struct {
	name        string
	fn          TaskFunc
	submittedAt time.Time
}

// Config holds worker pool configuration
type Config struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
}

// DefaultConfig returns default pool configuration
func DefaultConfig() Config {
	return Config{
		Workers:     4,
		QueueSize:   100,
		TaskTimeout: 10 * time.Minute,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("%w: queue size cannot be negative", ErrInvalidConfig)
	}
	if c.TaskTimeout <= 0 {
		return fmt.Errorf("%w: task timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// Stats is a snapshot of pool counters
type Stats struct {
	Submitted int64
	Succeeded int64
	Failed    int64
	Panicked  int64
	Queued    int
}

// Pool runs submitted tasks on a fixed number of workers. Tasks are never retried.
type Pool struct {
	config Config
	logger *zap.Logger

	tasks     chan task
	baseCtx   context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	stopped   bool

	submitted atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	panicked  atomic.Int64
}

// NewPool creates a worker pool. It does nothing until Start is called.
func NewPool(config Config, logger *zap.Logger) (*Pool, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		config: config,
		logger: logger.Named("scheduler"),
		tasks:  make(chan task, config.QueueSize),
	}, nil
}

// Start launches the workers. Task contexts derive from ctx without its cancellation,
// so an in-flight task is only cut short by its own timeout or by a Stop that times out.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isRunning {
		return nil
	}
	if p.stopped {
		return ErrSchedulerNotRunning
	}
	p.isRunning = true
	p.baseCtx, p.cancel = context.WithCancel(context.WithoutCancel(ctx))

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.logger.Info("Worker pool started",
		zap.Int("workers", p.config.Workers),
		zap.Int("queue_size", p.config.QueueSize),
		zap.Duration("task_timeout", p.config.TaskTimeout),
	)
	return nil
}

// Stop closes the queue and waits for queued and running tasks to finish.
// If ctx expires first, running tasks are cancelled and ctx.Err() is returned.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("Worker pool stopped gracefully")
		return nil
	case <-ctx.Done():
		p.cancel()
		p.logger.Warn("Worker pool stop timed out, cancelling running tasks")
		<-done
		return ctx.Err()
	}
}

// Submit enqueues a task without blocking
func (p *Pool) Submit(name string, fn TaskFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isRunning {
		return ErrSchedulerNotRunning
	}

	select {
	case p.tasks <- task{name: name, fn: fn, submittedAt: time.Now()}:
		p.submitted.Add(1)
		p.logger.Debug("Task submitted", zap.String("task", name))
		return nil
	default:
		return ErrQueueFull
	}
}

// Stats returns a snapshot of the pool counters
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Succeeded: p.succeeded.Load(),
		Failed:    p.failed.Load(),
		Panicked:  p.panicked.Load(),
		Queued:    len(p.tasks),
	}
}

func (p *Pool) worker(workerID int) {
	defer p.wg.Done()

	for t := range p.tasks {
		p.run(t, workerID)
	}
	p.logger.Debug("Worker stopping", zap.Int("worker_id", workerID))
}

func (p *Pool) run(t task, workerID int) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(p.baseCtx, p.config.TaskTimeout)
	defer cancel()

	err := p.execute(ctx, t)
	fields := []zap.Field{
		zap.Int("worker_id", workerID),
		zap.String("task", t.name),
		zap.Duration("queued", start.Sub(t.submittedAt)),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		p.failed.Add(1)
		p.logger.Error("Task failed", append(fields, zap.Error(err))...)
		return
	}
	p.succeeded.Add(1)
	p.logger.Debug("Task completed", fields...)
}

// execute runs the task body and turns a panic into an error
func (p *Pool) execute(ctx context.Context, t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.panicked.Add(1)
			p.logger.Error("Task panic recovered",
				zap.String("task", t.name),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()
	return t.fn(ctx)
}
