// Package observability provides the Prometheus-backed ports.Observability
// implementation used by the running edge agent.
package observability

import (
	"fmt"
	"log"
	"strings"

	"github.com/ridgeline-iot/canopy-edge/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// PromObs is a ports.Observability backed by Prometheus counters/gauges/
// histograms, with one named counter pre-registered per tracked error
// kind so every failure mode has a dashboard-ready metric from process
// start, plus a small set of general-purpose gauges/histograms for
// everything else.
type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// errorCounters names every error-kind counter this module increments via
// IncCounter; the general-purpose signals_decoded_total counter is
// registered separately in NewPromObsFor.
var errorCounters = []string{
	"decode_failure_total",
	"decode_format_invalid_total",
	"decode_dictionary_absent_total",
	"inspection_expression_type_mismatch_total",
	"inspection_out_of_order_total",
	"uplink_queue_overflow_total",
	"retry_abort_total",
}

// NewPromObs builds and registers every metric up front (later calls share
// the collectors already on the default registry); use NewPromObsFor
// in tests that need an isolated registry instead of the global default.
func NewPromObs() *PromObs {
	return NewPromObsFor(prometheus.DefaultRegisterer)
}

// NewPromObsFor builds the same metric set against a caller-supplied
// registerer, so package tests don't collide with the process-wide
// default registry across test runs.
func NewPromObsFor(reg prometheus.Registerer) *PromObs {
	p := &PromObs{
		counters: make(map[string]prometheus.Counter),
		gauges:   make(map[string]prometheus.Gauge),
		histos:   make(map[string]prometheus.Observer),
	}

	// register reuses a collector already registered on reg under the same
	// name, so building a second PromObs on one registry does not panic.
	register := func(c prometheus.Collector) prometheus.Collector {
		if err := reg.Register(c); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				return are.ExistingCollector
			}
			panic(err)
		}
		return c
	}

	for _, name := range errorCounters {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Name: "canopy_" + name,
			Help: "Count of " + strings.ReplaceAll(name, "_", " ") + " events.",
		})
		p.counters[name] = register(c).(prometheus.Counter)
	}

	ingested := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "canopy_signals_decoded_total",
		Help: "Total signal samples successfully decoded.",
	})
	queueGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "canopy_queue_length",
		Help: "Current number of records buffered in an in-memory queue.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "canopy_campaign_eval_latency_seconds",
		Help:    "Latency of one campaign condition evaluation round.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	})
	ingested = register(ingested).(prometheus.Counter)
	queueGauge = register(queueGauge).(prometheus.Gauge)
	latency = register(latency).(prometheus.Histogram)

	p.counters["signals_decoded_total"] = ingested
	p.gauges["queue_length"] = queueGauge
	p.histos["campaign_eval_latency_seconds"] = latency

	return p
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	log.Printf("INFO: %s%s", msg, formatFields(fields))
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	log.Printf("ERROR: %s%s%s", msg, formatFields(fields), errSuffix(err))
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	log.Printf("CRITICAL: %s%s%s", msg, formatFields(fields), errSuffix(err))
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func formatFields(fields []ports.Field) string {
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(" ")
		b.WriteString(f.Key)
		b.WriteString("=")
		b.WriteString(toString(f.Value))
	}
	return b.String()
}

func errSuffix(err error) string {
	if err == nil {
		return ""
	}
	return ": " + err.Error()
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case error:
		return t.Error()
	default:
		return fmt.Sprintf("%v", t)
	}
}
