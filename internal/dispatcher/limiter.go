package dispatcher

import (
	"context"
	"sync"
	"sync/atomic"
)

// Limiter runs submitted tasks with at most concurrency of them in flight.
// Submit never blocks: tasks beyond the limit wait in a FIFO queue and are
// admitted in submission order as running tasks finish.
type Limiter struct {
	concurrency int

	mu      sync.Mutex
	queue   []func()
	running int
	changed chan struct{} // closed and replaced whenever a task finishes
}

// NewLimiter creates a Limiter. concurrency below 1 is treated as 1.
func NewLimiter(concurrency int) *Limiter {
	return &Limiter{
		concurrency: max(concurrency, 1),
		changed:     make(chan struct{}),
	}
}

// Submit schedules task and returns immediately
func (l *Limiter) Submit(task func()) {
	l.mu.Lock()
	if l.running < l.concurrency {
		l.running++
		l.mu.Unlock()
		go l.worker(task)
		return
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()
}

// worker runs task, then keeps draining the queue head until it is empty
func (l *Limiter) worker(task func()) {
	for task != nil {
		task()

		l.mu.Lock()
		if len(l.queue) > 0 {
			task = l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
		} else {
			task = nil
			l.running--
		}
		close(l.changed)
		l.changed = make(chan struct{})
		l.mu.Unlock()
	}
}

// Pending returns the number of tasks queued or running
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running + len(l.queue)
}

// WaitBelow blocks until fewer than n tasks are queued or running, or ctx
// is done
func (l *Limiter) WaitBelow(ctx context.Context, n int) error {
	for {
		l.mu.Lock()
		if l.running+len(l.queue) < n {
			l.mu.Unlock()
			return nil
		}
		changed := l.changed
		l.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Wait blocks until every submitted task has finished
func (l *Limiter) Wait() {
	_ = l.WaitBelow(context.Background(), 1)
}

// StopSignal is the shared "stop issuing work" flag. It is set on a match,
// by the coordination monitor when a sibling reports one, and by a
// dispatcher whose context was cancelled. Requests already sent are never
// interrupted by it.
type StopSignal struct {
	stopped atomic.Bool

	mu     sync.Mutex
	reason string
}

// Stop sets the flag. The first reason wins.
func (s *StopSignal) Stop(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped.Load() {
		s.reason = reason
		s.stopped.Store(true)
	}
}

// Stopped reports whether Stop has been called
func (s *StopSignal) Stopped() bool {
	return s.stopped.Load()
}

// Reason returns the reason passed to the first Stop call
func (s *StopSignal) Reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}
