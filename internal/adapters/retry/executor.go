// Package retry implements the background retry/backoff executor the
// uplink pipeline uses to keep retrying a failed publish without blocking
// the rest of the agent. Grounded on the source agent's RetryThread: a
// single worker goroutine, exponential backoff that saturates at a
// maximum, a wakeable sleep so Stop returns promptly instead of waiting
// out the current backoff, and an idempotent Stop safe to call even if
// Start was never called.
package retry

import (
	"context"
	"sync"
	"time"

	"github.com/ridgeline-iot/canopy-edge/internal/ports"
)

// Executor runs one ports.Retryable on a dedicated goroutine until it
// reports RetrySuccess or RetryAbort, or until Stop is called.
type Executor struct {
	retryable    ports.Retryable
	startBackoff time.Duration
	maxBackoff   time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewExecutor builds an executor for retryable with the given backoff
// bounds. startBackoff is the wait before the second attempt (the first
// attempt runs immediately); the wait saturates (never exceeds)
// maxBackoff.
func NewExecutor(retryable ports.Retryable, startBackoff, maxBackoff time.Duration) *Executor {
	return &Executor{
		retryable:    retryable,
		startBackoff: startBackoff,
		maxBackoff:   maxBackoff,
	}
}

// Start launches the worker goroutine. It returns false without starting
// anything if the executor is already running — concurrent starts are
// rejected rather than queued, matching the source agent's
// single-in-flight-thread invariant.
func (e *Executor) Start() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	e.running = true

	go e.doWork(ctx, e.done)
	return true
}

// Stop requests the worker to exit, waking it immediately even mid-wait,
// and blocks until it has exited. Calling Stop when the executor isn't
// running is a safe no-op.
func (e *Executor) Stop() bool {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return true
	}
	cancel := e.cancel
	done := e.done
	e.mu.Unlock()

	cancel()
	<-done
	return true
}

// Wait blocks until the worker reaches RetrySuccess or RetryAbort on its
// own, without requesting cancellation — unlike Stop, a slow retryable is
// left to keep retrying at its current backoff. Safe to call when the
// executor was never started (returns immediately).
func (e *Executor) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done == nil {
		return
	}
	<-done
}

func (e *Executor) doWork(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	wait := e.startBackoff

	for {
		result := e.retryable.Attempt()
		if result != ports.RetryRetry {
			e.retryable.OnFinished(result)
			return
		}

		select {
		case <-ctx.Done():
			e.retryable.OnFinished(ports.RetryAbort)
			return
		case <-time.After(wait):
		}

		wait *= 2
		if wait > e.maxBackoff {
			wait = e.maxBackoff
		}
	}
}
