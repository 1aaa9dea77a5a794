// Package distributor fans one producer's output out to every registered
// consumer queue, cloning the value for every queue but the last so no
// consumer can mutate another's copy through a shared pointer.
package distributor

import (
	"sync"

	"github.com/ridgeline-iot/canopy-edge/internal/ports"
)

// Cloner produces an independent copy of a value, used by Distributor so
// every registered queue but the last receives its own copy. Types pushed
// through a Distributor must implement it.
type Cloner[T any] interface {
	Clone() T
}

// Distributor fans out values pushed to it to every registered queue,
// grounded on the orion-care-sensor project's framebus fan-out: each
// subscriber queue applies its own overflow policy independently, so one
// slow consumer never blocks another. The last registered queue receives
// the original value (no clone needed); earlier queues each get Clone()'d
// a copy.
type Distributor[T Cloner[T]] struct {
	mu      sync.RWMutex
	queues  []ports.Queue[T]
	dropped uint64
}

// New returns a distributor with no queues registered.
func New[T Cloner[T]]() *Distributor[T] {
	return &Distributor[T]{}
}

// Register adds q as a fan-out target. Registration order matters only in
// that the most-recently-registered queue is the one spared a clone.
func (d *Distributor[T]) Register(q ports.Queue[T]) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queues = append(d.queues, q)
}

// Push fans v out to every registered queue. A queue that rejects the push
// (overflow under drop_new) increments the distributor's own dropped
// counter in addition to the queue's own Overflows(); Push itself never
// blocks the caller beyond what an individual queue's own policy does.
func (d *Distributor[T]) Push(v T) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n := len(d.queues)
	for i, q := range d.queues {
		item := v
		if i != n-1 {
			item = v.Clone()
		}
		if !q.Push(item) {
			d.dropped++
		}
	}
}

// Dropped reports how many fan-out pushes were rejected by some queue
// since construction.
func (d *Distributor[T]) Dropped() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dropped
}
