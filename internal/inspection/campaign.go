package inspection

import (
	"time"

	"github.com/ridgeline-iot/canopy-edge/internal/domain"
)

// TriggerMode controls when a campaign's condition becoming true results
// in a fire.
type TriggerMode uint8

const (
	// TriggerAlways fires on every evaluation round that returns true.
	TriggerAlways TriggerMode = iota
	// TriggerRisingEdge fires only on a false/undefined -> true transition.
	TriggerRisingEdge
)

// WindowSpec bounds how much of a signal's history a campaign pulls in on
// fire: a time span, a sample count, or both (the wider of the two wins
// when sizing the backing ring — see history.go).
type WindowSpec struct {
	TimeSpan    time.Duration
	SampleCount int
}

// Campaign is a cloud-issued, immutable-once-active rule: a compiled
// condition expression plus what to collect when it fires.
type Campaign struct {
	ID   string
	Root *Node

	TriggerMode TriggerMode

	// CollectSignals is the ordered set of signal ids to include in the
	// collection frame on fire.
	CollectSignals []domain.SignalID
	// Windows maps a collected signal id to how much history to pull.
	// A signal absent from this map collects only its latest value.
	Windows map[domain.SignalID]WindowSpec

	MinInterTriggerInterval time.Duration
	Expiry                  time.Time

	// invocationIDs is the ordered set of invocation identities assigned at
	// compile time to every custom_function call site in Root, used to
	// drive cleanup when the campaign retires (see customfunctions.go).
	invocationIDs []InvocationID
}

// Expired reports whether t is at or past the campaign's expiry. A zero
// Expiry means "never expires".
func (c *Campaign) Expired(t time.Time) bool {
	return !c.Expiry.IsZero() && !t.Before(c.Expiry)
}

// ReferencedSignals returns the set of signal ids appearing anywhere in the
// condition expression, used by the engine to size/attach history rings.
func (c *Campaign) ReferencedSignals() map[domain.SignalID]struct{} {
	out := make(map[domain.SignalID]struct{})
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		if n.Kind == NodeSignalRef || n.Kind == NodeWindowFunc {
			out[n.Signal] = struct{}{}
		}
		walk(n.Left)
		walk(n.Right)
		walk(n.Operand)
		walk(n.Cond)
		walk(n.Then)
		walk(n.Else)
		for _, a := range n.Args {
			walk(a)
		}
	}
	walk(c.Root)
	return out
}

// MaxWindow returns the widest window (by time span and by sample count
// independently) referenced anywhere in the campaign for the given signal,
// across both the condition expression's window functions and the
// collect-time window spec. Used by the history ring sizing in
// internal/inspection/history.go.
func (c *Campaign) MaxWindow(id domain.SignalID) WindowSpec {
	var out WindowSpec
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		// window.since stores a timestamp, not a span, in WindowSpan.
		if n.Kind == NodeWindowFunc && n.Signal == id && n.WindowKind != WindowSince {
			span := time.Duration(n.WindowSpan) * time.Millisecond
			if span > out.TimeSpan {
				out.TimeSpan = span
			}
			if n.WindowN > out.SampleCount {
				out.SampleCount = n.WindowN
			}
		}
		walk(n.Left)
		walk(n.Right)
		walk(n.Operand)
		walk(n.Cond)
		walk(n.Then)
		walk(n.Else)
		for _, a := range n.Args {
			walk(a)
		}
	}
	walk(c.Root)

	if w, ok := c.Windows[id]; ok {
		if w.TimeSpan > out.TimeSpan {
			out.TimeSpan = w.TimeSpan
		}
		if w.SampleCount > out.SampleCount {
			out.SampleCount = w.SampleCount
		}
	}
	return out
}
