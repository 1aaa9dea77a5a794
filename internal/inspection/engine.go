package inspection

import (
	"time"

	"github.com/ridgeline-iot/canopy-edge/internal/domain"
	"github.com/ridgeline-iot/canopy-edge/internal/ports"
)

// edgeState is the per-(campaign) memory the engine needs for rising-edge
// detection and the minimum inter-trigger interval.
type edgeState struct {
	priorResult  bool
	priorValid   bool
	lastFireTime time.Time
}

// Engine is the inspection engine proper: it owns every signal's history
// ring, the set of active campaigns, and re-evaluates the campaigns a new
// sample could have affected on every ingested signal.
//
// An Engine is owned by exactly one goroutine (see internal/app/pipeline);
// it holds no internal locking — every history ring is owned solely by
// the inspection worker.
type Engine struct {
	history   *historyStore
	evaluator *evaluator
	registry  *CustomFuncRegistry
	obs       ports.Observability
	policy    ports.Policy

	campaigns map[string]*Campaign
	// bySignal maps a signal id to the campaigns that reference it, so a
	// new sample only re-evaluates the campaigns it could have affected.
	bySignal map[domain.SignalID][]*Campaign
	// tracked is every signal id any active campaign either evaluates or
	// collects; IngestSignal gates on this so a collect-only signal (one
	// listed in CollectSignals but never referenced by the condition
	// expression) still gets a history ring even though it never appears
	// in bySignal.
	tracked map[domain.SignalID]struct{}
	edges   map[string]*edgeState

	emitter *Emitter
}

// NewEngine builds an engine with no active campaigns. Call LoadCampaigns
// to install a campaign set (e.g. after a cloud push).
func NewEngine(policy ports.Policy, obs ports.Observability, registry *CustomFuncRegistry, uplink Distributor) *Engine {
	history := newHistoryStore()
	e := &Engine{
		history:   history,
		evaluator: newEvaluator(history, registry, obs),
		registry:  registry,
		obs:       obs,
		policy:    policy,
		campaigns: make(map[string]*Campaign),
		bySignal:  make(map[domain.SignalID][]*Campaign),
		tracked:   make(map[domain.SignalID]struct{}),
		edges:     make(map[string]*edgeState),
	}
	e.emitter = NewEmitter(history, registry, uplink, obs)
	return e
}

// LoadCampaigns atomically replaces the active campaign set. Custom
// functions invoked only by retiring campaigns have Cleanup called
// exactly once for every invocation id that ever ran under them.
//
// A signal's history ring is sized once, after every campaign has been
// considered, to the widest window any of them needs — whether that
// window comes from a condition-expression window function or from a
// collect-time window spec — so a signal two campaigns both touch gets a
// ring wide enough for the more demanding one regardless of campaign
// iteration order.
func (e *Engine) LoadCampaigns(campaigns []*Campaign) {
	retiring := e.campaigns
	e.campaigns = make(map[string]*Campaign, len(campaigns))
	e.bySignal = make(map[domain.SignalID][]*Campaign)
	e.tracked = make(map[domain.SignalID]struct{})
	newEdges := make(map[string]*edgeState, len(campaigns))

	sizing := make(map[domain.SignalID]WindowSpec)
	fold := func(id domain.SignalID, w WindowSpec) {
		cur := sizing[id]
		if w.TimeSpan > cur.TimeSpan {
			cur.TimeSpan = w.TimeSpan
		}
		if w.SampleCount > cur.SampleCount {
			cur.SampleCount = w.SampleCount
		}
		sizing[id] = cur
	}

	for _, c := range campaigns {
		e.campaigns[c.ID] = c
		for sig := range c.ReferencedSignals() {
			e.bySignal[sig] = append(e.bySignal[sig], c)
			e.tracked[sig] = struct{}{}
			fold(sig, c.MaxWindow(sig))
		}
		for _, sig := range c.CollectSignals {
			e.tracked[sig] = struct{}{}
			fold(sig, c.MaxWindow(sig))
		}
		if old, ok := e.edges[c.ID]; ok {
			newEdges[c.ID] = old
		} else {
			newEdges[c.ID] = &edgeState{}
		}
	}
	e.edges = newEdges

	for sig, w := range sizing {
		e.history.ensure(sig, w.SampleCount, uint64(w.TimeSpan/time.Millisecond))
	}

	for id, c := range retiring {
		if _, stillActive := e.campaigns[id]; stillActive {
			continue
		}
		for _, invID := range c.invocationIDs {
			e.cleanupInvocation(c.Root, invID)
		}
	}
}

func (e *Engine) cleanupInvocation(root *Node, id InvocationID) {
	var found string
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil || found != "" {
			return
		}
		if n.Kind == NodeCustomFunc && n.InvocationID == id {
			found = n.FuncName
			return
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
	walk(root)
	if found == "" {
		return
	}
	if fn, ok := e.registry.Lookup(found); ok {
		fn.Cleanup(id)
	}
}

// IngestRawFrame records the raw CAN capture backing a decoded frame, so
// a campaign collecting any of signals can attach it to its next fire's
// collection payload. A no-op if raw is nil.
//
// signals is the set of signal ids decoded from this same raw frame.
func (e *Engine) IngestRawFrame(raw *domain.CollectedCanRawFrame, signals []domain.SignalID) {
	if raw == nil {
		return
	}
	e.history.ingestRawFrame(raw, signals)
}

// IngestSignal records one decoded signal sample and re-evaluates every
// campaign that references it. A signal only ever needed for collection
// (listed in a campaign's CollectSignals but absent from its condition
// expression) is still recorded, just never triggers re-evaluation.
func (e *Engine) IngestSignal(id domain.SignalID, ts domain.Timestamp, v domain.Value) {
	if _, tracked := e.tracked[id]; !tracked {
		// Not referenced or collected by any active campaign: no history slot needed.
		return
	}
	capHint := 64
	ok := e.history.ingest(id, ts, v, capHint, 0)
	if !ok {
		if e.obs != nil {
			e.obs.IncCounter("inspection_out_of_order_total", 1)
		}
		return
	}

	now := time.Now()
	for _, c := range e.bySignal[id] {
		e.evaluateCampaign(c, ts, now)
	}
}

func (e *Engine) evaluateCampaign(c *Campaign, ts domain.Timestamp, now time.Time) {
	if c.Expired(now) {
		return
	}

	active, _, invoked := e.evaluator.evaluate(c, ts)
	state := e.edges[c.ID]

	fire := false
	switch c.TriggerMode {
	case TriggerAlways:
		fire = active
	case TriggerRisingEdge:
		fire = active && (!state.priorValid || !state.priorResult)
	}
	state.priorResult = active
	state.priorValid = true

	if !fire {
		return
	}

	minInterval := c.MinInterTriggerInterval
	if minInterval <= 0 {
		minInterval = e.policy.MinInterTriggerInterval
	}
	if minInterval > 0 && !state.lastFireTime.IsZero() && now.Sub(state.lastFireTime) < minInterval {
		return
	}
	state.lastFireTime = now

	e.emitter.Emit(c, ts, invoked)
}

// Stats exposes counters useful to observability gauges.
type Stats struct {
	OutOfOrder uint64
}

func (e *Engine) Stats() Stats {
	return Stats{OutOfOrder: e.history.outOfOrder}
}
