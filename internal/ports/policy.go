package ports

import "time"

// Policy controls the bounded-queue and backoff knobs shared by every
// stage of the pipeline (ingest distributor, inspection input queue,
// uplink queue).
type Policy struct {
	MaxQueueLen  int           `yaml:"max_queue_len"`
	MaxBatchSize int           `yaml:"max_batch_size"`
	IdleSleep    time.Duration `yaml:"idle_sleep"`

	// OnQueueFull is "drop_old", "drop_new", or "block".
	OnQueueFull string `yaml:"on_queue_full"`

	// ExtendedIDMask is the configured mask for the SocketCAN extended-frame
	// flag. The decoder's fallback lookup (internal/decode) does not read
	// this field; it masks with the fixed domain.ExtendedIDMask.
	ExtendedIDMask uint32 `yaml:"extended_id_mask"`

	// MinInterTriggerInterval is the default applied to campaigns that do
	// not specify their own gap.
	MinInterTriggerInterval time.Duration `yaml:"min_inter_trigger_interval"`

	RetryStartBackoff time.Duration `yaml:"retry_start_backoff"`
	RetryMaxBackoff   time.Duration `yaml:"retry_max_backoff"`
}
