package retry

import (
	"sync"
	"testing"
	"time"

	"github.com/ridgeline-iot/canopy-edge/internal/ports"
)

type fakeRetryable struct {
	mu         sync.Mutex
	attemptsAt []time.Time
	results    []ports.RetryOutcome
	finished   chan ports.RetryOutcome
}

func newFakeRetryable(results []ports.RetryOutcome) *fakeRetryable {
	return &fakeRetryable{results: results, finished: make(chan ports.RetryOutcome, 1)}
}

func (f *fakeRetryable) Attempt() ports.RetryOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attemptsAt = append(f.attemptsAt, time.Now())
	if len(f.results) == 0 {
		return ports.RetryRetry
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r
}

func (f *fakeRetryable) OnFinished(outcome ports.RetryOutcome) {
	f.finished <- outcome
}

func TestExecutorExponentialBackoff(t *testing.T) {
	retryable := newFakeRetryable([]ports.RetryOutcome{ports.RetryRetry, ports.RetryRetry, ports.RetrySuccess})
	e := NewExecutor(retryable, 10*time.Millisecond, 1*time.Second)

	if !e.Start() {
		t.Fatalf("expected Start to succeed")
	}

	select {
	case outcome := <-retryable.finished:
		if outcome != ports.RetrySuccess {
			t.Fatalf("expected RetrySuccess, got %v", outcome)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("executor did not finish in time")
	}

	retryable.mu.Lock()
	defer retryable.mu.Unlock()
	if len(retryable.attemptsAt) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(retryable.attemptsAt))
	}
	firstGap := retryable.attemptsAt[1].Sub(retryable.attemptsAt[0])
	secondGap := retryable.attemptsAt[2].Sub(retryable.attemptsAt[1])
	if firstGap < 8*time.Millisecond {
		t.Fatalf("expected first backoff around 10ms, got %v", firstGap)
	}
	if secondGap < firstGap {
		t.Fatalf("expected second backoff to grow, first=%v second=%v", firstGap, secondGap)
	}
}

func TestExecutorStartRejectedWhileRunning(t *testing.T) {
	retryable := newFakeRetryable(nil)
	e := NewExecutor(retryable, 50*time.Millisecond, 1*time.Second)

	if !e.Start() {
		t.Fatalf("expected first Start to succeed")
	}
	if e.Start() {
		t.Fatalf("expected concurrent Start to be rejected")
	}

	e.Stop()
	<-retryable.finished
}

func TestExecutorStopWakesSleepImmediately(t *testing.T) {
	retryable := newFakeRetryable(nil)
	e := NewExecutor(retryable, 10*time.Second, 1*time.Minute)
	e.Start()

	start := time.Now()
	e.Stop()
	elapsed := time.Since(start)

	if elapsed > 1*time.Second {
		t.Fatalf("expected Stop to wake the worker promptly, took %v", elapsed)
	}

	select {
	case outcome := <-retryable.finished:
		if outcome != ports.RetryAbort {
			t.Fatalf("expected RetryAbort, got %v", outcome)
		}
	default:
		t.Fatalf("expected OnFinished to have been called")
	}
}

func TestExecutorStopIdempotent(t *testing.T) {
	retryable := newFakeRetryable(nil)
	e := NewExecutor(retryable, 10*time.Millisecond, 1*time.Second)

	if !e.Stop() {
		t.Fatalf("expected Stop on a never-started executor to be a no-op success")
	}

	e.Start()
	e.Stop()
	if !e.Stop() {
		t.Fatalf("expected a second Stop to remain a no-op success")
	}
}
