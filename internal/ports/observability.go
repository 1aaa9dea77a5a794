package ports

// Field is a structured log/metric field used by Observability
// implementations.
type Field struct {
	Key   string
	Value any
}

// Observability emits metrics/logs for the error kinds and throughput
// counters the runtime tracks: decode_failure, format_invalid,
// dictionary_absent, expression_type_mismatch, queue_overflow,
// retry_abort, out_of_order_sample, plus generic counters/gauges/latency.
type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)
	LogCritical(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	ObserveLatency(name string, seconds float64)
	SetGauge(name string, v float64)
}
