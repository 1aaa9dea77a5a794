package inspection

import (
	"time"

	"github.com/ridgeline-iot/canopy-edge/internal/domain"
	"github.com/ridgeline-iot/canopy-edge/internal/ports"
)

// Distributor is the emitter's uplink-side dependency: a fan-out sink that
// accepts one finished collection payload per fire and never blocks the
// inspection worker (overflow is the sink's problem, tracked via its own
// Overflows counter).
type Distributor interface {
	Push(ports.CollectionPayload) bool
}

// Emitter assembles the collection frame for a fired campaign: the latest
// value (or windowed history) of every collected signal, plus whatever a
// custom function appends via ConditionEnd, and hands the finished payload
// to the uplink distributor.
type Emitter struct {
	history  *historyStore
	registry *CustomFuncRegistry
	uplink   Distributor
	obs      ports.Observability
}

func NewEmitter(history *historyStore, registry *CustomFuncRegistry, uplink Distributor, obs ports.Observability) *Emitter {
	return &Emitter{history: history, registry: registry, uplink: uplink, obs: obs}
}

// Emit builds and pushes the collection payload for c's fire at ts.
// invoked is the set of custom-function invocation ids that actually ran
// during this round's evaluation; a short-circuited call is absent and so
// never receives ConditionEnd for this round.
func (m *Emitter) Emit(c *Campaign, ts domain.Timestamp, invoked map[InvocationID]string) {
	collectedSet := make(map[domain.SignalID]struct{}, len(c.CollectSignals))
	for _, id := range c.CollectSignals {
		collectedSet[id] = struct{}{}
	}

	var signals []domain.CollectedSignal
	var rawFrames []ports.RawFrameDTO
	seenRaw := make(map[*domain.CollectedCanRawFrame]struct{})

	for _, id := range c.CollectSignals {
		window := c.Windows[id]
		signals = append(signals, m.collectSignal(id, ts, window)...)

		if raw, ok := m.history.rawFrames[id]; ok {
			if _, dup := seenRaw[raw]; !dup {
				seenRaw[raw] = struct{}{}
				rawFrames = append(rawFrames, toRawFrameDTO(raw))
			}
		}
	}

	for invID, funcName := range invoked {
		fn, ok := m.registry.Lookup(funcName)
		if !ok {
			continue
		}
		fn.ConditionEnd(invID, collectedSet, ts, &signals)
	}

	dtos := make([]ports.CollectedSignalDTO, 0, len(signals))
	for _, s := range signals {
		dtos = append(dtos, toSignalDTO(s))
	}

	payload := ports.CollectionPayload{
		CampaignID:    c.ID,
		FireTimestamp: uint64(ts),
		Signals:       dtos,
		RawFrames:     rawFrames,
	}

	if ok := m.uplink.Push(payload); !ok {
		if m.obs != nil {
			m.obs.IncCounter("uplink_queue_overflow_total", 1)
		}
	}
}

func (m *Emitter) collectSignal(id domain.SignalID, ts domain.Timestamp, window WindowSpec) []domain.CollectedSignal {
	if sh, ok := m.history.strings[id]; ok {
		if s, ok := sh.latest(); ok {
			return []domain.CollectedSignal{{
				SignalID:  id,
				Timestamp: s.ts,
				Value:     domain.StringValue(s.str),
				Type:      domain.SignalTypeString,
			}}
		}
		return nil
	}

	nh, ok := m.history.numeric[id]
	if !ok {
		return nil
	}

	if window.TimeSpan <= 0 && window.SampleCount <= 0 {
		s, ok := nh.latest()
		if !ok {
			return nil
		}
		return []domain.CollectedSignal{{SignalID: id, Timestamp: s.ts, Value: s.val}}
	}

	var samples []sample
	if window.TimeSpan > 0 {
		samples = nh.windowBySpan(ts, uint64(window.TimeSpan/time.Millisecond))
	} else {
		samples = nh.windowByCount(window.SampleCount)
	}
	out := make([]domain.CollectedSignal, 0, len(samples))
	for _, s := range samples {
		out = append(out, domain.CollectedSignal{SignalID: id, Timestamp: s.ts, Value: s.val})
	}
	return out
}

func toRawFrameDTO(raw *domain.CollectedCanRawFrame) ports.RawFrameDTO {
	return ports.RawFrameDTO{
		Channel:     uint8(raw.Channel),
		FrameID:     raw.FrameID,
		ReceiveTime: uint64(raw.ReceiveTime),
		Data:        append([]byte(nil), raw.Data[:raw.Size]...),
	}
}

func toSignalDTO(s domain.CollectedSignal) ports.CollectedSignalDTO {
	var v any
	switch s.Value.Kind {
	case domain.KindBool:
		v = s.Value.Bool
	case domain.KindDouble:
		v = s.Value.Num
	case domain.KindString:
		v = s.Value.Str
	default:
		v = nil
	}
	return ports.CollectedSignalDTO{
		SignalID:  uint32(s.SignalID),
		Timestamp: uint64(s.Timestamp),
		Value:     v,
	}
}
