// Copyright 2026 The BeaconKit Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath is the environment variable naming the config file.
const EnvConfigPath = "BEACONKIT_CONFIG"

// Config is the master configuration for a BeaconKit relay.
type Config struct {
	// Collector configures the backend the relay ships beacons to.
	Collector CollectorConfig `yaml:"collector"`

	// Cache configures the in-memory beacon cache bounds.
	Cache CacheConfig `yaml:"cache"`

	// Sender configures the beacon sending loop.
	Sender SenderConfig `yaml:"sender"`

	// Relay configures the local submit socket.
	Relay RelayConfig `yaml:"relay"`
}

// CollectorConfig identifies the backend collector.
type CollectorConfig struct {
	// URL is the collector's beacon endpoint, e.g.
	// https://collector.example.com/mbeacon.
	URL string `yaml:"url"`

	// ApplicationID identifies the monitored application.
	ApplicationID string `yaml:"application_id"`

	// ApplicationName is the human-readable application name stamped
	// into every beacon.
	ApplicationName string `yaml:"application_name"`

	// ApplicationVersion is the monitored application's version string.
	// Optional.
	ApplicationVersion string `yaml:"application_version"`

	// DeviceID identifies this host to the collector. Defaults to 0.
	DeviceID int64 `yaml:"device_id"`

	// ServerID selects the collector cluster node. Default 1.
	ServerID int `yaml:"server_id"`

	// RequestTimeout bounds a single beacon POST. Default 10s.
	RequestTimeout Duration `yaml:"request_timeout"`
}

// CacheConfig bounds the beacon cache. The defaults mirror the upstream
// agent: records older than 105 minutes are evicted, and when the cache
// grows past the upper bound the space eviction runs until it is back
// under the lower bound.
type CacheConfig struct {
	// MaxRecordAge is the oldest a staged record may get before the
	// age eviction removes it. Zero disables age eviction.
	MaxRecordAge Duration `yaml:"max_record_age"`

	// LowerMemoryBound is the byte size space eviction shrinks the
	// cache down to. Zero disables space eviction.
	LowerMemoryBound int64 `yaml:"lower_memory_bound"`

	// UpperMemoryBound is the byte size that triggers space eviction.
	UpperMemoryBound int64 `yaml:"upper_memory_bound"`

	// EvictionInterval is the cadence of the age eviction pass.
	// Default 1s.
	EvictionInterval Duration `yaml:"eviction_interval"`
}

// SenderConfig configures the beacon sending loop.
type SenderConfig struct {
	// SendInterval is how often idle sessions are flushed. Default 2m.
	SendInterval Duration `yaml:"send_interval"`

	// MaxChunkSize is the soft byte cap for one beacon chunk.
	// Default 30720 (30 KB).
	MaxChunkSize int `yaml:"max_chunk_size"`
}

// RelayConfig configures the local submit socket.
type RelayConfig struct {
	// SocketPath is the Unix socket producers submit records to.
	SocketPath string `yaml:"socket_path"`
}

// Default returns the configuration defaults applied before the file
// is merged in.
func Default() Config {
	return Config{
		Collector: CollectorConfig{
			ServerID:       1,
			RequestTimeout: Duration(10 * time.Second),
		},
		Cache: CacheConfig{
			MaxRecordAge:     Duration(105 * time.Minute),
			LowerMemoryBound: 80 * 1024 * 1024,
			UpperMemoryBound: 100 * 1024 * 1024,
			EvictionInterval: Duration(time.Second),
		},
		Sender: SenderConfig{
			SendInterval: Duration(2 * time.Minute),
			MaxChunkSize: 30 * 1024,
		},
		Relay: RelayConfig{
			SocketPath: "/run/beaconkit/relay.sock",
		},
	}
}

// Load reads the config file at path. If path is empty, the
// BEACONKIT_CONFIG environment variable is consulted. Defaults are
// applied first, then the file contents, then Validate.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		return nil, fmt.Errorf("no config file: set %s or pass --config", EnvConfigPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if c.Collector.URL == "" {
		return fmt.Errorf("collector.url is required")
	}
	if c.Collector.ApplicationID == "" {
		return fmt.Errorf("collector.application_id is required")
	}
	if c.Collector.ServerID <= 0 {
		return fmt.Errorf("collector.server_id must be positive, got %d", c.Collector.ServerID)
	}
	if c.Cache.LowerMemoryBound < 0 || c.Cache.UpperMemoryBound < 0 {
		return fmt.Errorf("cache memory bounds must not be negative")
	}
	if c.Cache.UpperMemoryBound > 0 && c.Cache.LowerMemoryBound >= c.Cache.UpperMemoryBound {
		return fmt.Errorf("cache.lower_memory_bound (%d) must be below cache.upper_memory_bound (%d)",
			c.Cache.LowerMemoryBound, c.Cache.UpperMemoryBound)
	}
	if c.Cache.EvictionInterval <= 0 {
		return fmt.Errorf("cache.eviction_interval must be positive")
	}
	if c.Sender.SendInterval <= 0 {
		return fmt.Errorf("sender.send_interval must be positive")
	}
	if c.Sender.MaxChunkSize <= 0 {
		return fmt.Errorf("sender.max_chunk_size must be positive, got %d", c.Sender.MaxChunkSize)
	}
	if c.Relay.SocketPath == "" {
		return fmt.Errorf("relay.socket_path is required")
	}
	return nil
}

// Duration is a time.Duration that unmarshals from YAML strings like
// "105m" or "10s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }
