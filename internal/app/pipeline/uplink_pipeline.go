package pipeline

import (
	"time"

	"github.com/ridgeline-iot/canopy-edge/internal/adapters/retry"
	"github.com/ridgeline-iot/canopy-edge/internal/ports"
)

// publishRetryable adapts one queued collection payload to ports.Retryable
// so the retry executor can drive its backoff loop against it.
type publishRetryable struct {
	publisher ports.UplinkPublisher
	payload   ports.CollectionPayload
	obs       ports.Observability
}

func (p *publishRetryable) Attempt() ports.RetryOutcome {
	if err := p.publisher.Publish(p.payload); err != nil {
		if p.obs != nil {
			p.obs.LogError("uplink_publish_failed", err, ports.Field{Key: "campaign_id", Value: p.payload.CampaignID})
		}
		return ports.RetryRetry
	}
	return ports.RetrySuccess
}

func (p *publishRetryable) OnFinished(outcome ports.RetryOutcome) {
	if outcome == ports.RetryAbort && p.obs != nil {
		p.obs.IncCounter("retry_abort_total", 1)
		p.obs.LogCritical("uplink_publish_aborted", nil, ports.Field{Key: "campaign_id", Value: p.payload.CampaignID})
	}
}

// RunUplinkPipeline drains the uplink queue one payload at a time,
// publishing each through its own retry.Executor and waiting for that
// executor to finish before popping the next payload, so payloads are
// published strictly in order. It blocks forever; run it on its own
// goroutine.
func RunUplinkPipeline(q ports.Queue[ports.CollectionPayload], publisher ports.UplinkPublisher, pol ports.Policy, obs ports.Observability) {
	for {
		batch := q.Pop(1)
		if len(batch) == 0 {
			time.Sleep(pol.IdleSleep)
			continue
		}

		r := &publishRetryable{publisher: publisher, payload: batch[0], obs: obs}
		exec := retry.NewExecutor(r, pol.RetryStartBackoff, pol.RetryMaxBackoff)
		exec.Start()
		exec.Wait()
	}
}
