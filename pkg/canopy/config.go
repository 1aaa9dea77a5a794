// Package canopy is the public facade over the inspection engine: a
// Conf -> StreamIN -> StreamOUT builder that wires the ingest, inspection,
// and uplink pipelines into one runnable Runtime.
package canopy

import (
	"github.com/ridgeline-iot/canopy-edge/internal/app/config"
	"github.com/ridgeline-iot/canopy-edge/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects
// can construct or modify it programmatically.
type Config = config.Config

type (
	// Policy controls queue/backoff thresholds shared across pipelines.
	Policy = ports.Policy
	// ChannelConfig names one CAN bus the agent listens on.
	ChannelConfig = config.ChannelConfig
	// DecoderConfig points at the decoder manifest.
	DecoderConfig = config.DecoderConfig
	// CampaignConfig points at the campaign document.
	CampaignConfig = config.CampaignConfig
	// MetricsConfig configures the Prometheus HTTP listener.
	MetricsConfig = config.MetricsConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
