package inspection

import (
	"testing"

	"github.com/ridgeline-iot/canopy-edge/internal/domain"
	"github.com/ridgeline-iot/canopy-edge/internal/ports"
)

type overflowDistributor struct {
	accept bool
	got    *ports.CollectionPayload
}

func (d *overflowDistributor) Push(p ports.CollectionPayload) bool {
	d.got = &p
	return d.accept
}

type fakeCustomFunc struct {
	conditionEndCalls []InvocationID
}

func (fakeCustomFunc) Invoke(InvocationID, []domain.Value) (ports.CustomFuncStatus, domain.Value) {
	return ports.CustomFuncOK, domain.Undefined
}

func (f *fakeCustomFunc) ConditionEnd(id InvocationID, collected map[domain.SignalID]struct{}, ts domain.Timestamp, out *[]domain.CollectedSignal) {
	f.conditionEndCalls = append(f.conditionEndCalls, id)
	if _, ok := collected[42]; ok {
		*out = append(*out, domain.CollectedSignal{SignalID: 42, Timestamp: ts, Value: domain.NumValue(1)})
	}
}

func (fakeCustomFunc) Cleanup(InvocationID) {}

func TestEmitterCollectsLatestValue(t *testing.T) {
	history := newHistoryStore()
	history.ensure(1, 4, 0).append(10, domain.NumValue(99))
	dist := &overflowDistributor{accept: true}
	e := NewEmitter(history, NewCustomFuncRegistry(), dist, nil)

	c := &Campaign{ID: "c1", CollectSignals: []domain.SignalID{1}, Windows: map[domain.SignalID]WindowSpec{}}
	e.Emit(c, 10, nil)

	if dist.got == nil {
		t.Fatalf("expected a payload to be pushed")
	}
	if len(dist.got.Signals) != 1 || dist.got.Signals[0].SignalID != 1 {
		t.Fatalf("expected 1 collected signal for id 1, got %+v", dist.got.Signals)
	}
}

func TestEmitterCollectsWindowedHistory(t *testing.T) {
	history := newHistoryStore()
	h := history.ensure(1, 8, 0)
	h.append(0, domain.NumValue(1))
	h.append(1, domain.NumValue(2))
	h.append(2, domain.NumValue(3))
	dist := &overflowDistributor{accept: true}
	e := NewEmitter(history, NewCustomFuncRegistry(), dist, nil)

	c := &Campaign{
		ID:             "c1",
		CollectSignals: []domain.SignalID{1},
		Windows:        map[domain.SignalID]WindowSpec{1: {SampleCount: 2}},
	}
	e.Emit(c, 2, nil)

	if len(dist.got.Signals) != 2 {
		t.Fatalf("expected 2 windowed samples, got %d", len(dist.got.Signals))
	}
}

func TestEmitterCollectsStringSignal(t *testing.T) {
	history := newHistoryStore()
	history.ensureString(5, 4).append(10, "hello")
	dist := &overflowDistributor{accept: true}
	e := NewEmitter(history, NewCustomFuncRegistry(), dist, nil)

	c := &Campaign{ID: "c1", CollectSignals: []domain.SignalID{5}, Windows: map[domain.SignalID]WindowSpec{}}
	e.Emit(c, 10, nil)

	if len(dist.got.Signals) != 1 {
		t.Fatalf("expected 1 string signal collected, got %d", len(dist.got.Signals))
	}
	if s, ok := dist.got.Signals[0].Value.(string); !ok || s != "hello" {
		t.Fatalf("expected string value 'hello', got %+v", dist.got.Signals[0].Value)
	}
}

func TestEmitterInvokesConditionEndOnlyForInvokedFuncs(t *testing.T) {
	history := newHistoryStore()
	registry := NewCustomFuncRegistry()
	fn := &fakeCustomFunc{}
	registry.Register("fake_fn", fn)
	dist := &overflowDistributor{accept: true}
	e := NewEmitter(history, registry, dist, nil)

	c := &Campaign{ID: "c1", CollectSignals: []domain.SignalID{42}, Windows: map[domain.SignalID]WindowSpec{}}
	// No history for signal 42, so the only signal in the payload comes from
	// ConditionEnd's append.
	invoked := map[InvocationID]string{7: "fake_fn"}
	e.Emit(c, 5, invoked)

	if len(fn.conditionEndCalls) != 1 || fn.conditionEndCalls[0] != 7 {
		t.Fatalf("expected ConditionEnd called once with invocation id 7, got %+v", fn.conditionEndCalls)
	}
	if len(dist.got.Signals) != 1 || dist.got.Signals[0].SignalID != 42 {
		t.Fatalf("expected ConditionEnd's appended signal 42 in the payload, got %+v", dist.got.Signals)
	}
}

func TestEmitterSkipsConditionEndForUnknownFunc(t *testing.T) {
	history := newHistoryStore()
	dist := &overflowDistributor{accept: true}
	e := NewEmitter(history, NewCustomFuncRegistry(), dist, nil)

	c := &Campaign{ID: "c1", CollectSignals: nil, Windows: map[domain.SignalID]WindowSpec{}}
	invoked := map[InvocationID]string{1: "does_not_exist"}
	e.Emit(c, 1, invoked) // must not panic

	if dist.got == nil {
		t.Fatalf("expected a payload to still be pushed")
	}
}

func TestEmitterAttachesRawFrameBackingCollectedSignal(t *testing.T) {
	history := newHistoryStore()
	history.ensure(1, 4, 0).append(10, domain.NumValue(99))
	raw := &domain.CollectedCanRawFrame{Channel: 2, FrameID: 0x321, ReceiveTime: 10, Size: 3}
	raw.Data[0], raw.Data[1], raw.Data[2] = 1, 2, 3
	history.ingestRawFrame(raw, []domain.SignalID{1})

	dist := &overflowDistributor{accept: true}
	e := NewEmitter(history, NewCustomFuncRegistry(), dist, nil)

	c := &Campaign{ID: "c1", CollectSignals: []domain.SignalID{1}, Windows: map[domain.SignalID]WindowSpec{}}
	e.Emit(c, 10, nil)

	if len(dist.got.RawFrames) != 1 {
		t.Fatalf("expected exactly 1 raw frame attached, got %d", len(dist.got.RawFrames))
	}
	got := dist.got.RawFrames[0]
	if got.Channel != 2 || got.FrameID != 0x321 || got.ReceiveTime != 10 {
		t.Fatalf("unexpected raw frame DTO: %+v", got)
	}
	if len(got.Data) != 3 || got.Data[0] != 1 || got.Data[1] != 2 || got.Data[2] != 3 {
		t.Fatalf("unexpected raw frame data: %+v", got.Data)
	}
}

func TestEmitterDedupsRawFrameSharedByMultipleCollectedSignals(t *testing.T) {
	history := newHistoryStore()
	history.ensure(1, 4, 0).append(10, domain.NumValue(1))
	history.ensure(2, 4, 0).append(10, domain.NumValue(2))
	raw := &domain.CollectedCanRawFrame{Channel: 0, FrameID: 0x10, Size: 1}
	history.ingestRawFrame(raw, []domain.SignalID{1, 2})

	dist := &overflowDistributor{accept: true}
	e := NewEmitter(history, NewCustomFuncRegistry(), dist, nil)

	c := &Campaign{ID: "c1", CollectSignals: []domain.SignalID{1, 2}, Windows: map[domain.SignalID]WindowSpec{}}
	e.Emit(c, 10, nil)

	if len(dist.got.RawFrames) != 1 {
		t.Fatalf("expected the shared raw frame to be deduped to 1 entry, got %d", len(dist.got.RawFrames))
	}
}

func TestEmitterIncrementsOverflowCounterOnRejectedPush(t *testing.T) {
	history := newHistoryStore()
	dist := &overflowDistributor{accept: false}
	obs := &countingObservability{}
	e := NewEmitter(history, NewCustomFuncRegistry(), dist, obs)

	c := &Campaign{ID: "c1", CollectSignals: nil, Windows: map[domain.SignalID]WindowSpec{}}
	e.Emit(c, 1, nil)

	if obs.counters["uplink_queue_overflow_total"] != 1 {
		t.Fatalf("expected the overflow counter to increment once, got %v", obs.counters)
	}
}

// countingObservability is a minimal ports.Observability stub that records
// counter increments by name.
type countingObservability struct {
	counters map[string]float64
}

func (o *countingObservability) LogInfo(string, ...ports.Field)            {}
func (o *countingObservability) LogError(string, error, ...ports.Field)    {}
func (o *countingObservability) LogCritical(string, error, ...ports.Field) {}
func (o *countingObservability) IncCounter(name string, v float64) {
	if o.counters == nil {
		o.counters = make(map[string]float64)
	}
	o.counters[name] += v
}
func (o *countingObservability) ObserveLatency(string, float64) {}
func (o *countingObservability) SetGauge(string, float64)       {}
