package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestPool(workers, queueSize int, retry RetryPolicy) *Pool {
	p := NewPool(Config{
		Workers:     workers,
		QueueSize:   queueSize,
		TaskTimeout: time.Second,
		Retry:       retry,
		Logger:      zap.NewNop(),
	})
	p.sleep = func(time.Duration) {} // no real backoff in tests
	return p
}

func TestPool_RunsTask(t *testing.T) {
	p := newTestPool(2, 8, RetryPolicy{Attempts: 1, BaseDelay: time.Millisecond})
	p.Start()

	done := make(chan struct{})
	ok := p.Enqueue(Task{
		Name: "test.task",
		Run: func(context.Context) (any, error) {
			close(done)
			return "done", nil
		},
	})
	if !ok {
		t.Fatal("enqueue should succeed with free capacity")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
	p.Stop()
}

func TestPool_RetriesInfrastructureFailure(t *testing.T) {
	p := newTestPool(1, 8, RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond})
	p.Start()

	var calls atomic.Int32
	p.Enqueue(Task{
		Name: "test.flaky",
		Run: func(context.Context) (any, error) {
			if calls.Add(1) < 3 {
				return nil, errors.New("transient")
			}
			return "ok", nil
		},
	})
	p.Stop()

	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestPool_StopsRetryingAfterAttempts(t *testing.T) {
	p := newTestPool(1, 8, RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond})
	p.Start()

	var calls atomic.Int32
	p.Enqueue(Task{
		Name: "test.hopeless",
		Run: func(context.Context) (any, error) {
			calls.Add(1)
			return nil, errors.New("permanent")
		},
	})
	p.Stop()

	if got := calls.Load(); got != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", got)
	}
}

func TestPool_NoRetryOnSuccess(t *testing.T) {
	p := newTestPool(1, 8, RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond})
	p.Start()

	var calls atomic.Int32
	p.Enqueue(Task{
		Name: "test.once",
		Run: func(context.Context) (any, error) {
			calls.Add(1)
			return nil, nil
		},
	})
	p.Stop()

	if got := calls.Load(); got != 1 {
		t.Errorf("expected a single attempt, got %d", got)
	}
}

func TestPool_EnqueueFullQueue(t *testing.T) {
	// No workers started: the queue fills and stays full.
	p := newTestPool(1, 1, RetryPolicy{Attempts: 1, BaseDelay: time.Millisecond})

	noop := Task{Name: "test.noop", Run: func(context.Context) (any, error) { return nil, nil }}
	if !p.Enqueue(noop) {
		t.Fatal("first enqueue should fit")
	}
	if p.Enqueue(noop) {
		t.Error("second enqueue should report a full queue")
	}
}

func TestPool_AttemptContextHasDeadline(t *testing.T) {
	p := newTestPool(1, 8, RetryPolicy{Attempts: 1, BaseDelay: time.Millisecond})
	p.Start()

	var hasDeadline atomic.Bool
	p.Enqueue(Task{
		Name: "test.deadline",
		Run: func(ctx context.Context) (any, error) {
			_, ok := ctx.Deadline()
			hasDeadline.Store(ok)
			return nil, nil
		},
	})
	p.Stop()

	if !hasDeadline.Load() {
		t.Error("task context must carry a deadline")
	}
}

func TestPool_ConcurrentTasksIsolated(t *testing.T) {
	p := newTestPool(4, 64, RetryPolicy{Attempts: 1, BaseDelay: time.Millisecond})
	p.Start()

	const n = 32
	var (
		mu   sync.Mutex
		seen = make(map[int]bool, n)
	)
	for i := 0; i < n; i++ {
		i := i
		p.Enqueue(Task{
			Name: "test.parallel",
			Run: func(context.Context) (any, error) {
				mu.Lock()
				seen[i] = true
				mu.Unlock()
				return i, nil
			},
		})
	}
	p.Stop()

	if len(seen) != n {
		t.Errorf("expected %d distinct tasks to run, got %d", n, len(seen))
	}
}

func TestPool_StopIsIdempotent(t *testing.T) {
	p := newTestPool(1, 8, RetryPolicy{Attempts: 1, BaseDelay: time.Millisecond})
	p.Start()
	p.Stop()
	p.Stop() // must not panic
}

func TestPool_EnqueueAfterStop(t *testing.T) {
	p := newTestPool(1, 8, RetryPolicy{Attempts: 1, BaseDelay: time.Millisecond})
	p.Start()
	p.Stop()

	var ran atomic.Bool
	ok := p.Enqueue(Task{ // must not panic on the closed queue
		Name: "test.late",
		Run: func(context.Context) (any, error) {
			ran.Store(true)
			return nil, nil
		},
	})
	if ok {
		t.Error("enqueue after stop must report the task as dropped")
	}
	if ran.Load() {
		t.Error("dropped task must not run")
	}
}
