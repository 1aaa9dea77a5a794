// Package pipeline wires the three worker loops that make up a running
// agent: ingest (bus -> decode -> distribute), inspection (distributed
// frames -> campaign evaluation -> fire), and uplink (fired collections ->
// retrying publish). Inspection and uplink follow a poll-batch-or-idle-sleep
// worker shape; ingest ranges over its frame channel.
package pipeline

import (
	"github.com/ridgeline-iot/canopy-edge/internal/decode"
	"github.com/ridgeline-iot/canopy-edge/internal/domain"
	"github.com/ridgeline-iot/canopy-edge/internal/ports"
)

// FrameDistributor is the ingest pipeline's downstream: every decoded
// frame is fanned out to it (typically to the inspection queue, and
// optionally a raw-capture recorder).
type FrameDistributor interface {
	Push(domain.CollectedDataFrame)
}

// RunIngestPipeline drains frames, one at a time, decoding each against
// the consumer's active dictionary and fanning non-empty results out to
// dist. It returns when frames is closed.
func RunIngestPipeline(frames <-chan decode.RawFrame, consumer *decode.Consumer, dist FrameDistributor, obs ports.Observability) {
	for raw := range frames {
		out, ok := consumer.Process(raw)
		if !ok {
			continue
		}
		if obs != nil && len(out.Signals) > 0 {
			obs.IncCounter("signals_decoded_total", float64(len(out.Signals)))
		}
		dist.Push(out)
	}
}
