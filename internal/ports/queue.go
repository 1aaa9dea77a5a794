package ports

// Queue is a bounded, single-consumer queue carrying one record type T
// with try-push semantics under the drop policies: on overflow the oldest
// or the newest record is dropped per the queue's configured policy and
// its overflow counter is incremented. A queue configured with the "block"
// policy instead makes Push wait until there is room.
type Queue[T any] interface {
	// Push attempts to enqueue v. It returns false if the record was
	// dropped due to the overflow policy (the overflow counter has
	// already been incremented by the time Push returns).
	Push(v T) bool
	// Pop removes and returns up to max queued records, oldest first. It
	// returns nil if the queue had nothing to give.
	Pop(max int) []T
	Len() int
	Overflows() uint64
}

// Distributor fans a single producer's records out to N registered
// queues: the record moves into the last queue and is cloned into every
// earlier one, so ownership transfer never copies more than necessary.
type Distributor[T any] interface {
	Register(q Queue[T])
	Push(v T)
}
