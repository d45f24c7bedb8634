// Package config loads the tunables that govern the work-stealing
// scheduler: excess/starve thresholds, the donation split ratio, the
// per-peer steal cap, the archive container size cap, and the peer count.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all scheduler tunables loaded from an optional YAML file.
// A missing file, or a missing field, falls back to the defaults below.
type Config struct {
	Peers              int
	ExcessThreshold    int
	StarveThreshold    int
	MaxRequestsPerPeer int
	SplitDivisor       int
	ContainerSizeCap   int64
	LogLevel           string
	ArchiveDir         string
}

// rawConfig mirrors Config field for field but keeps ExcessThreshold as a
// pointer. Spec.md §3 treats 0 as a legal, meaningful threshold (every peer
// is donor-eligible the instant its queue is nonempty), so a plain int
// can't tell "absent from the file" apart from "explicitly set to zero";
// only Load needs that distinction, to decide whether to backfill it.
type rawConfig struct {
	Peers              int    `yaml:"peers"`
	ExcessThreshold    *int   `yaml:"excess_threshold"`
	StarveThreshold    int    `yaml:"starve_threshold"`
	MaxRequestsPerPeer int    `yaml:"max_requests_per_peer"`
	SplitDivisor       int    `yaml:"split_divisor"`
	ContainerSizeCap   int64  `yaml:"container_size_cap"`
	LogLevel           string `yaml:"log_level"`
	ArchiveDir         string `yaml:"archive_dir"`
}

// Default returns the built-in defaults named by the specification.
func Default() *Config {
	c := &Config{}
	c.applyDefaults(false)
	return c
}

// applyDefaults fills zero-valued fields with the spec's reference values.
// excessThresholdSet indicates whether the caller already assigned a
// deliberate value to ExcessThreshold (including zero); only when it is
// false does this backfill the default of 1.
func (c *Config) applyDefaults(excessThresholdSet bool) {
	if c.Peers == 0 {
		c.Peers = 4
	}
	if !excessThresholdSet {
		c.ExcessThreshold = 1
	}
	// StarveThreshold defaults to 0, which is also the zero value: nothing
	// to backfill there.
	if c.MaxRequestsPerPeer == 0 {
		c.MaxRequestsPerPeer = 10
	}
	if c.SplitDivisor == 0 {
		c.SplitDivisor = 4
	}
	if c.ContainerSizeCap == 0 {
		c.ContainerSizeCap = 2 * 1024 * 1024 * 1024 * 1024 // 2 TiB
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ArchiveDir == "" {
		c.ArchiveDir = "."
	}
}

// Load reads and parses the YAML config at path. If the file does not
// exist, Load returns the defaults so the CLI can run without one.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open config %q: %w", path, err)
	}
	defer f.Close()

	var r rawConfig
	if err := yaml.NewDecoder(f).Decode(&r); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}

	c := &Config{
		Peers:              r.Peers,
		StarveThreshold:    r.StarveThreshold,
		MaxRequestsPerPeer: r.MaxRequestsPerPeer,
		SplitDivisor:       r.SplitDivisor,
		ContainerSizeCap:   r.ContainerSizeCap,
		LogLevel:           r.LogLevel,
		ArchiveDir:         r.ArchiveDir,
	}
	excessSet := r.ExcessThreshold != nil
	if excessSet {
		c.ExcessThreshold = *r.ExcessThreshold
	}
	c.applyDefaults(excessSet)
	return c, nil
}
