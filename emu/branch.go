package emu

import "github.com/sarchlab/armsim/insts"

// BranchUnit implements condition evaluation and the branch instructions.
type BranchUnit struct {
	regFile *RegFile
}

// NewBranchUnit creates a new BranchUnit connected to the given register file.
func NewBranchUnit(regFile *RegFile) *BranchUnit {
	return &BranchUnit{regFile: regFile}
}

// CheckCondition evaluates a condition code against the current flags.
func (b *BranchUnit) CheckCondition(cond insts.Cond) bool {
	return ConditionPassed(cond, b.regFile.Flags())
}

// ConditionPassed evaluates a condition code against f. The reserved code
// 0b1111 never passes.
func ConditionPassed(cond insts.Cond, f Flags) bool {
	switch cond {
	case insts.CondEQ:
		return f.Z
	case insts.CondNE:
		return !f.Z
	case insts.CondCS:
		return f.C
	case insts.CondCC:
		return !f.C
	case insts.CondMI:
		return f.N
	case insts.CondPL:
		return !f.N
	case insts.CondVS:
		return f.V
	case insts.CondVC:
		return !f.V
	case insts.CondHI:
		return f.C && !f.Z
	case insts.CondLS:
		return !f.C || f.Z
	case insts.CondGE:
		return f.N == f.V
	case insts.CondLT:
		return f.N != f.V
	case insts.CondGT:
		return !f.Z && f.N == f.V
	case insts.CondLE:
		return f.Z || f.N != f.V
	case insts.CondAL:
		return true
	default:
		return false
	}
}

// Branch executes B or BL. While an instruction executes, r15 reads as its
// address plus 8, so the return address saved by BL is r15 - 4.
func (b *BranchUnit) Branch(inst *insts.Instruction) {
	if inst.Link {
		b.regFile.WriteReg(insts.RegLR, b.regFile.PC()-4)
	}
	b.regFile.SetPC(inst.Target)
}

// BranchExchange executes BX. The decoded Thumb bit is copied to the CPSR
// state bit. The PC is left 4 past the target because the run loop takes 4
// back off.
func (b *BranchUnit) BranchExchange(inst *insts.Instruction) {
	target := b.regFile.ReadReg(inst.Rm)
	b.regFile.SetFlag(BitThumb, inst.Thumb)
	b.regFile.SetPC(target&^1 + 4)
}
