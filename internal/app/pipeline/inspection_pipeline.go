package pipeline

import (
	"time"

	"github.com/ridgeline-iot/canopy-edge/internal/domain"
	"github.com/ridgeline-iot/canopy-edge/internal/inspection"
	"github.com/ridgeline-iot/canopy-edge/internal/ports"
)

// SignalIngester is the engine's ingest-side API, narrowed to what this
// pipeline needs so tests can stub it out.
type SignalIngester interface {
	IngestSignal(id domain.SignalID, ts domain.Timestamp, v domain.Value)
	IngestRawFrame(raw *domain.CollectedCanRawFrame, signals []domain.SignalID)
}

// RunInspectionPipeline drains the distributed-frame queue in batches,
// feeding every decoded signal (plus any raw capture backing it) to the
// engine, sleeping pol.IdleSleep whenever the queue is momentarily empty.
// It returns as soon as stop is closed, so callers can shut the worker
// down cleanly instead of leaking the goroutine.
func RunInspectionPipeline(stop <-chan struct{}, q ports.Queue[domain.CollectedDataFrame], engine SignalIngester, pol ports.Policy) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		batch := q.Pop(pol.MaxBatchSize)
		if len(batch) == 0 {
			select {
			case <-stop:
				return
			case <-time.After(pol.IdleSleep):
			}
			continue
		}
		for _, frame := range batch {
			if frame.RawFrame != nil {
				ids := make([]domain.SignalID, len(frame.Signals))
				for i, sig := range frame.Signals {
					ids[i] = sig.SignalID
				}
				engine.IngestRawFrame(frame.RawFrame, ids)
			}
			for _, sig := range frame.Signals {
				engine.IngestSignal(sig.SignalID, sig.Timestamp, sig.Value)
			}
		}
	}
}

var _ SignalIngester = (*inspection.Engine)(nil)
