package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/memoir-labs/memoir/internal/metrics"
)

// Task is one unit of background work. Run returns a JSON-serializable
// result; a non-nil error marks an infrastructure failure eligible for
// retry. Business failures belong inside the result, not in the error.
type Task struct {
	Name string
	Run  func(ctx context.Context) (any, error)
}

// Config holds worker pool settings.
type Config struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
	Retry       RetryPolicy
	Logger      *zap.Logger
}

// Pool executes background tasks on a fixed set of workers. Each task
// execution is isolated: it gets its own deadline-bounded context, and no
// state is shared between concurrent executions.
type Pool struct {
	tasks       chan Task
	workers     int
	taskTimeout time.Duration
	retry       RetryPolicy
	logger      *zap.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once

	mu     sync.Mutex
	closed bool

	sleep func(time.Duration) // injected for tests
}

// NewPool creates a worker pool. Call Start to begin draining the queue.
func NewPool(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 5 * time.Minute
	}
	if cfg.Retry.Attempts <= 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Pool{
		tasks:       make(chan Task, cfg.QueueSize),
		workers:     cfg.Workers,
		taskTimeout: cfg.TaskTimeout,
		retry:       cfg.Retry,
		logger:      cfg.Logger,
		sleep:       time.Sleep,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(workerID int) {
			defer p.wg.Done()
			for task := range p.tasks {
				metrics.QueueDepth.Dec()
				p.execute(workerID, task)
			}
		}(i)
	}
}

// Enqueue submits a task without waiting for its result. Returns false when
// the queue is full or the pool has been stopped; the caller decides
// whether dropping is acceptable.
func (p *Pool) Enqueue(task Task) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		metrics.TasksTotal.WithLabelValues(task.Name, "dropped").Inc()
		p.logger.Error("pool stopped, dropping task", zap.String("task", task.Name))
		return false
	}

	select {
	case p.tasks <- task:
		metrics.QueueDepth.Inc()
		return true
	default:
		metrics.TasksTotal.WithLabelValues(task.Name, "dropped").Inc()
		p.logger.Error("task queue full, dropping task", zap.String("task", task.Name))
		return false
	}
}

// Stop closes the queue and waits for in-flight tasks to finish. Enqueue
// after Stop reports the task as dropped instead of panicking on the
// closed channel.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()
	})
	p.wg.Wait()
}

// execute runs one task with the retry policy. Each attempt gets a fresh
// deadline so a stuck external call cannot hold the worker slot forever.
func (p *Pool) execute(workerID int, task Task) {
	start := time.Now()

	var result any
	var err error

	for attempt := 1; attempt <= p.retry.Attempts; attempt++ {
		result, err = p.runAttempt(task)
		if err == nil {
			break
		}

		p.logger.Warn("task attempt failed",
			zap.String("task", task.Name),
			zap.Int("worker", workerID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if attempt < p.retry.Attempts {
			metrics.TaskRetriesTotal.WithLabelValues(task.Name).Inc()
			p.sleep(p.retry.Delay(attempt))
		}
	}

	duration := time.Since(start)
	metrics.TaskDuration.WithLabelValues(task.Name).Observe(duration.Seconds())

	if err != nil {
		metrics.TasksTotal.WithLabelValues(task.Name, "error").Inc()
		p.logger.Error("task failed after retries",
			zap.String("task", task.Name),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}

	metrics.TasksTotal.WithLabelValues(task.Name, "ok").Inc()
	p.logger.Info("task finished",
		zap.String("task", task.Name),
		zap.Duration("duration", duration),
		zap.Any("result", jsonSafe(result)),
	)
}

func (p *Pool) runAttempt(task Task) (any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.taskTimeout)
	defer cancel()
	return task.Run(ctx)
}

// jsonSafe keeps log output well-formed even for odd result types.
func jsonSafe(v any) any {
	if v == nil {
		return nil
	}
	if _, err := json.Marshal(v); err != nil {
		return "unserializable result"
	}
	return v
}
