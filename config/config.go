// Package config holds the simulator configuration shared by the command
// line front end and the benchmarks.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/armsim/loader"
	"github.com/sarchlab/armsim/timing/cache"
	"github.com/sarchlab/armsim/timing/latency"
)

// Default values.
const (
	DefaultMemorySize   = 32768
	DefaultStackPointer = 0x7000
)

// Config describes one simulator run.
type Config struct {
	// MemorySize is the size of guest RAM in bytes.
	MemorySize int `json:"memory_size"`

	// StackPointer is the initial value of r13.
	StackPointer uint32 `json:"stack_pointer"`

	// TraceFile receives one trace line per executed instruction. Empty
	// disables tracing.
	TraceFile string `json:"trace_file,omitempty"`

	// MaxSteps stops the run after that many instructions. Zero means no
	// limit.
	MaxSteps uint64 `json:"max_steps"`

	// Breakpoints are addresses the run pauses before.
	Breakpoints []uint32 `json:"breakpoints,omitempty"`

	Latency *latency.TimingConfig `json:"latency"`
	ICache  cache.Config          `json:"icache"`
	DCache  cache.Config          `json:"dcache"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		MemorySize:   DefaultMemorySize,
		StackPointer: DefaultStackPointer,
		Latency:      latency.DefaultTimingConfig(),
		ICache:       cache.DefaultICacheConfig(),
		DCache:       cache.DefaultDCacheConfig(),
	}
}

// LoadConfig reads a JSON configuration. Fields missing from the file keep
// their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	c := DefaultConfig()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return c, nil
}

// SaveConfig writes the configuration as indented JSON.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	if c.MemorySize <= 0 || c.MemorySize > loader.MaxMemorySize {
		return fmt.Errorf("memory_size %d: %w", c.MemorySize, loader.ErrInvalidMemorySize)
	}
	if c.StackPointer%4 != 0 {
		return fmt.Errorf("stack_pointer 0x%X is not word aligned", c.StackPointer)
	}
	if c.Latency == nil {
		return fmt.Errorf("latency: missing")
	}
	if err := c.Latency.Validate(); err != nil {
		return fmt.Errorf("latency: %w", err)
	}
	if err := c.ICache.Validate(); err != nil {
		return fmt.Errorf("icache: %w", err)
	}
	if err := c.DCache.Validate(); err != nil {
		return fmt.Errorf("dcache: %w", err)
	}
	return nil
}
