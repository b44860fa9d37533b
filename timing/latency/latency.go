// Package latency provides per-instruction execution latencies for the
// timing profile of a functional run.
//
// The values describe a simple in-order ARM core and can be configured via
// TimingConfig.
package latency

import (
	"github.com/sarchlab/armsim/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the execution latency in cycles for the given
// instruction, excluding cache effects. Instructions whose condition failed
// cost one cycle.
func (t *Table) GetLatency(inst *insts.Instruction) uint64 {
	if inst == nil || !inst.Executed {
		return 1
	}

	switch inst.Format {
	case insts.FormatDataProcessing:
		return t.config.ALULatency
	case insts.FormatMultiply:
		return t.config.MultiplyLatency
	case insts.FormatLoadStore:
		if inst.Load {
			return t.config.LoadLatency
		}
		return t.config.StoreLatency
	case insts.FormatLoadStoreMultiple:
		n := uint64(len(inst.RegList))
		if n == 0 {
			return 1
		}
		if inst.Load {
			return n * t.config.LoadLatency
		}
		return n * t.config.StoreLatency
	case insts.FormatBranch, insts.FormatBranchExchange:
		return t.config.BranchLatency + t.config.BranchTakenPenalty
	case insts.FormatSoftwareInterrupt:
		return t.config.SWILatency
	default:
		return 1
	}
}

// IsMemoryOp returns true if the instruction accesses data memory.
func (t *Table) IsMemoryOp(inst *insts.Instruction) bool {
	return t.IsLoadOp(inst) || t.IsStoreOp(inst)
}

// IsLoadOp returns true if the instruction is a load operation.
func (t *Table) IsLoadOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	return inst.Op == insts.OpLDR || inst.Op == insts.OpLDM
}

// IsStoreOp returns true if the instruction is a store operation.
func (t *Table) IsStoreOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	return inst.Op == insts.OpSTR || inst.Op == insts.OpSTM
}

// IsBranchOp returns true if the instruction is a branch operation.
func (t *Table) IsBranchOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	switch inst.Op {
	case insts.OpB, insts.OpBL, insts.OpBX:
		return true
	default:
		return false
	}
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
