package emu

import (
	"math/bits"

	"github.com/sarchlab/armsim/insts"
)

// ALU implements data processing and multiply instructions.
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU connected to the given register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// Shift applies a barrel-shifter operation to value. Shift amounts of 32 or
// more give 0 for LSL/LSR and the sign fill for ASR; rotations wrap
// modulo 32.
func Shift(shiftType insts.ShiftType, value, amount uint32) uint32 {
	switch shiftType {
	case insts.ShiftLSL:
		return value << amount
	case insts.ShiftLSR:
		return value >> amount
	case insts.ShiftASR:
		if amount > 31 {
			amount = 31
		}
		return uint32(int32(value) >> amount)
	case insts.ShiftROR:
		return bits.RotateLeft32(value, -int(amount%32))
	default:
		return 0
	}
}

// Operand2 computes the second operand of a data processing instruction.
func (a *ALU) Operand2(inst *insts.Instruction) uint32 {
	switch inst.Operand {
	case insts.OperandImmediate:
		return inst.RotatedImm()
	case insts.OperandShiftByImm:
		return Shift(inst.ShiftType, a.regFile.ReadReg(inst.Rm), uint32(inst.ShiftAmount))
	case insts.OperandShiftByReg:
		return Shift(inst.ShiftType, a.regFile.ReadReg(inst.Rm), a.regFile.ReadReg(inst.Rs))
	default:
		return 0
	}
}

// DataProcessing executes a data processing instruction. It reports whether
// the instruction wrote r15.
//
// ADC, SBC, RSC, TST, TEQ and CMN are accepted but have no effect, and
// only CMP updates the flags.
func (a *ALU) DataProcessing(inst *insts.Instruction) bool {
	op1 := a.regFile.ReadReg(inst.Rn)
	op2 := a.Operand2(inst)

	var result uint32
	switch inst.Op {
	case insts.OpAND:
		result = op1 & op2
	case insts.OpEOR:
		result = op1 ^ op2
	case insts.OpSUB:
		result = op1 - op2
	case insts.OpRSB:
		result = op2 - op1
	case insts.OpADD:
		result = op1 + op2
	case insts.OpORR:
		result = op1 | op2
	case insts.OpMOV:
		result = op2
	case insts.OpBIC:
		result = op1 &^ op2
	case insts.OpMVN:
		result = ^op2
	case insts.OpCMP:
		a.setSubFlags(op1, op2, op1-op2)
		return false
	default:
		return false
	}

	a.regFile.WriteReg(inst.Rd, result)
	return inst.Rd == insts.RegPC
}

// Multiply executes MUL: Rd = Rs * Rm, truncated to 32 bits.
func (a *ALU) Multiply(inst *insts.Instruction) bool {
	a.regFile.WriteReg(inst.Rd, a.regFile.ReadReg(inst.Rs)*a.regFile.ReadReg(inst.Rm))
	return inst.Rd == insts.RegPC
}

// setSubFlags sets NZCV for op1 - op2 = result.
func (a *ALU) setSubFlags(op1, op2, result uint32) {
	a.regFile.SetFlags(Flags{
		N: result>>31 == 1,
		Z: result == 0,
		C: op2 <= op1,
		V: (op1^op2)>>31 == 1 && (op1^result)>>31 == 1,
	})
}
