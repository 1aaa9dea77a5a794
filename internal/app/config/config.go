// Package config loads and validates the edge agent's YAML configuration
// with a Load/applyDefaults/validate shape.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ridgeline-iot/canopy-edge/internal/ports"
	"gopkg.in/yaml.v3"
)

// Config is the root of the agent's on-disk configuration.
type Config struct {
	Policy    ports.Policy    `yaml:"policy"`
	Channels  []ChannelConfig `yaml:"channels"`
	Decoder   DecoderConfig   `yaml:"decoder"`
	Campaigns CampaignConfig  `yaml:"campaigns"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ChannelConfig names one CAN bus the agent listens on.
type ChannelConfig struct {
	ID        uint8  `yaml:"id"`
	Interface string `yaml:"interface"`
}

// DecoderConfig points at the decoder manifest describing every
// (channel, frame id) -> signal layout the agent knows how to decode.
type DecoderConfig struct {
	ManifestPath string `yaml:"manifest_path"`
}

// CampaignConfig points at the campaign document describing which
// conditions to evaluate and what to collect when they fire.
type CampaignConfig struct {
	DocumentPath string `yaml:"document_path"`
}

// MetricsConfig controls the Prometheus HTTP listener.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads, parses, defaults, and validates the configuration at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Policy.MaxQueueLen == 0 {
		c.Policy.MaxQueueLen = 10_000
	}
	if c.Policy.MaxBatchSize == 0 {
		c.Policy.MaxBatchSize = 256
	}
	if c.Policy.IdleSleep == 0 {
		c.Policy.IdleSleep = 5 * time.Millisecond
	}
	if c.Policy.OnQueueFull == "" {
		c.Policy.OnQueueFull = "drop_old"
	}
	if c.Policy.ExtendedIDMask == 0 {
		c.Policy.ExtendedIDMask = 0x1FFFFFFF
	}
	if c.Policy.MinInterTriggerInterval == 0 {
		c.Policy.MinInterTriggerInterval = 0
	}
	if c.Policy.RetryStartBackoff == 0 {
		c.Policy.RetryStartBackoff = 1 * time.Second
	}
	if c.Policy.RetryMaxBackoff == 0 {
		c.Policy.RetryMaxBackoff = 1 * time.Minute
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
}

func (c *Config) validate() error {
	if len(c.Channels) == 0 {
		return fmt.Errorf("at least one entry under channels is required")
	}
	seen := make(map[uint8]bool)
	for _, ch := range c.Channels {
		if ch.Interface == "" {
			return fmt.Errorf("channel %d: interface is required", ch.ID)
		}
		if seen[ch.ID] {
			return fmt.Errorf("channel %d: duplicate channel id", ch.ID)
		}
		seen[ch.ID] = true
	}
	if c.Decoder.ManifestPath == "" {
		return fmt.Errorf("decoder.manifest_path is required")
	}
	if c.Campaigns.DocumentPath == "" {
		return fmt.Errorf("campaigns.document_path is required")
	}
	switch c.Policy.OnQueueFull {
	case "drop_old", "drop_new", "block":
	default:
		return fmt.Errorf("policy.on_queue_full: unknown value %q", c.Policy.OnQueueFull)
	}
	return nil
}
