package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds latency values for different instruction types.
type TimingConfig struct {
	// ALULatency is the execution latency for data processing
	// instructions. Default: 1 cycle.
	ALULatency uint64 `json:"alu_latency"`

	// MultiplyLatency is the latency of MUL. Default: 3 cycles.
	MultiplyLatency uint64 `json:"multiply_latency"`

	// BranchLatency is the base execution latency of a taken branch.
	// Default: 1 cycle.
	BranchLatency uint64 `json:"branch_latency"`

	// BranchTakenPenalty is the refill cost of a taken branch, since the
	// fetch unit always predicts fall-through. Default: 2 cycles.
	BranchTakenPenalty uint64 `json:"branch_taken_penalty"`

	// LoadLatency is the latency of one word loaded, assuming a data cache
	// hit. Default: 3 cycles.
	LoadLatency uint64 `json:"load_latency"`

	// StoreLatency is the latency of one word stored. Default: 2 cycles.
	StoreLatency uint64 `json:"store_latency"`

	// SWILatency is the latency of a software interrupt. Default: 3 cycles.
	SWILatency uint64 `json:"swi_latency"`
}

// DefaultTimingConfig returns a TimingConfig with default values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:         1,
		MultiplyLatency:    3,
		BranchLatency:      1,
		BranchTakenPenalty: 2,
		LoadLatency:        3,
		StoreLatency:       2,
		SWILatency:         3,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields missing from the
// file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that every latency that an executed instruction can be
// charged is positive.
func (c *TimingConfig) Validate() error {
	if c.ALULatency == 0 {
		return fmt.Errorf("alu_latency must be > 0")
	}
	if c.MultiplyLatency == 0 {
		return fmt.Errorf("multiply_latency must be > 0")
	}
	if c.BranchLatency == 0 {
		return fmt.Errorf("branch_latency must be > 0")
	}
	if c.LoadLatency == 0 {
		return fmt.Errorf("load_latency must be > 0")
	}
	if c.StoreLatency == 0 {
		return fmt.Errorf("store_latency must be > 0")
	}
	if c.SWILatency == 0 {
		return fmt.Errorf("swi_latency must be > 0")
	}
	return nil
}

// Clone returns a copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
