// Package scheduler runs a function at a fixed interval on a background
// goroutine.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrInvalidInterval is returned by Start for a non-positive interval.
var ErrInvalidInterval = errors.New("scheduler: interval must be positive")

// Task invokes a function every interval until stopped.
//
// Deadlines advance by exactly one interval from the previous deadline, so
// a slow run does not push later runs back. The next run is scheduled
// before the function is called; a run that outlasts the interval is
// followed immediately by the next one. Runs never overlap.
type Task struct {
	interval time.Duration
	fn       func()

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// New creates a stopped task.
func New(interval time.Duration, fn func()) *Task {
	return &Task{interval: interval, fn: fn}
}

// Every creates a task and starts it.
func Every(interval time.Duration, fn func()) (*Task, error) {
	t := New(interval, fn)
	if err := t.Start(); err != nil {
		return nil, err
	}
	return t, nil
}

// Start begins firing. The first run happens one interval from now.
// Starting a running task does nothing.
func (t *Task) Start() error {
	if t.interval <= 0 {
		return ErrInvalidInterval
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan struct{})
	t.running = true
	go t.loop(ctx, t.done)
	return nil
}

func (t *Task) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	next := time.Now().Add(t.interval)
	timer := time.NewTimer(t.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		next = next.Add(t.interval)
		timer.Reset(time.Until(next))

		if ctx.Err() != nil {
			return
		}
		t.fn()
	}
}

// Stop cancels future runs and waits for an in-flight run to finish.
// It is safe to call on a task that was never started or already stopped.
// Stop must not be called from inside the task's own function.
func (t *Task) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	cancel, done := t.cancel, t.done
	t.mu.Unlock()

	cancel()
	<-done
}

// Running reports whether the task is started.
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}
