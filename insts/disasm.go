package insts

import (
	"fmt"
	"strings"
)

var opNames = map[Op]string{
	OpAND: "and", OpEOR: "eor", OpSUB: "sub", OpRSB: "rsb",
	OpADD: "add", OpADC: "adc", OpSBC: "sbc", OpRSC: "rsc",
	OpTST: "tst", OpTEQ: "teq", OpCMP: "cmp", OpCMN: "cmn",
	OpORR: "orr", OpMOV: "mov", OpBIC: "bic", OpMVN: "mvn",
	OpMUL: "mul", OpLDR: "ldr", OpSTR: "str", OpLDM: "ldm", OpSTM: "stm",
	OpB: "b", OpBL: "bl", OpBX: "bx", OpSWI: "swi",
}

var condNames = [16]string{
	"eq", "ne", "cs", "cc", "mi", "pl", "vs", "vc",
	"hi", "ls", "ge", "lt", "gt", "le", "", "nv",
}

var shiftNames = [4]string{"lsl", "lsr", "asr", "ror"}

// String returns the mnemonic of an opcode.
func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "unknown"
}

// String returns the mnemonic suffix of a condition code. AL has no suffix.
func (c Cond) String() string {
	return condNames[c&0xF]
}

// String returns the mnemonic of a shift type.
func (s ShiftType) String() string {
	return shiftNames[s&0x3]
}

// String returns the disassembly text of the instruction, computed on
// first use.
func (inst *Instruction) String() string {
	if inst.text == "" {
		inst.text = inst.disassemble()
	}
	return inst.text
}

func (inst *Instruction) disassemble() string {
	switch inst.Format {
	case FormatDataProcessing:
		return inst.disassembleDataProcessing()
	case FormatMultiply:
		return fmt.Sprintf("%s r%d, r%d, r%d", inst.mnemonic(), inst.Rd, inst.Rm, inst.Rs)
	case FormatLoadStore:
		return inst.disassembleLoadStore()
	case FormatLoadStoreMultiple:
		return inst.disassembleLoadStoreMultiple()
	case FormatBranch:
		return fmt.Sprintf("%s #0x%X", inst.mnemonic(), inst.Target)
	case FormatBranchExchange:
		return fmt.Sprintf("%s r%d", inst.mnemonic(), inst.Rm)
	case FormatSoftwareInterrupt:
		return fmt.Sprintf("%s #0x%X", inst.mnemonic(), inst.SWI)
	default:
		return fmt.Sprintf(".word 0x%08X", inst.Raw)
	}
}

// mnemonic returns the opcode name with its condition suffix, plus "s" for
// flag-setting arithmetic.
func (inst *Instruction) mnemonic() string {
	name := inst.Op.String() + inst.Cond.String()
	if inst.SetFlags && !inst.isCompare() {
		name += "s"
	}
	return name
}

func (inst *Instruction) isCompare() bool {
	switch inst.Op {
	case OpTST, OpTEQ, OpCMP, OpCMN:
		return true
	}
	return false
}

func (inst *Instruction) disassembleDataProcessing() string {
	var op2 string
	switch inst.Operand {
	case OperandImmediate:
		op2 = fmt.Sprintf("#%d", inst.RotatedImm())
	case OperandShiftByImm:
		op2 = fmt.Sprintf("r%d", inst.Rm)
		if inst.ShiftType != ShiftLSL || inst.ShiftAmount != 0 {
			op2 += fmt.Sprintf(", %s #%d", inst.ShiftType, inst.ShiftAmount)
		}
	case OperandShiftByReg:
		op2 = fmt.Sprintf("r%d, %s r%d", inst.Rm, inst.ShiftType, inst.Rs)
	}

	switch {
	case inst.Op == OpMOV || inst.Op == OpMVN:
		return fmt.Sprintf("%s r%d, %s", inst.mnemonic(), inst.Rd, op2)
	case inst.isCompare():
		return fmt.Sprintf("%s r%d, %s", inst.mnemonic(), inst.Rn, op2)
	default:
		return fmt.Sprintf("%s r%d, r%d, %s", inst.mnemonic(), inst.Rd, inst.Rn, op2)
	}
}

func (inst *Instruction) disassembleLoadStore() string {
	name := inst.Op.String()
	if inst.Byte {
		name += "b"
	}
	name += inst.Cond.String()

	sign := ""
	if !inst.Up {
		sign = "-"
	}

	var addr string
	switch {
	case inst.Operand == OperandImmediate && inst.Imm == 0:
		addr = fmt.Sprintf("[r%d]", inst.Rn)
	case inst.Operand == OperandImmediate:
		addr = fmt.Sprintf("[r%d, #%s%d]", inst.Rn, sign, inst.Imm)
	case inst.ShiftAmount == 0 && inst.ShiftType == ShiftLSL:
		addr = fmt.Sprintf("[r%d, %sr%d]", inst.Rn, sign, inst.Rm)
	default:
		addr = fmt.Sprintf("[r%d, %sr%d, %s #%d]", inst.Rn, sign, inst.Rm, inst.ShiftType, inst.ShiftAmount)
	}

	if inst.WriteBack {
		addr += "!"
	}

	return fmt.Sprintf("%s r%d, %s", name, inst.Rd, addr)
}

func (inst *Instruction) disassembleLoadStoreMultiple() string {
	mode := "i"
	if !inst.Up {
		mode = "d"
	}
	if inst.PreIndex {
		mode += "b"
	} else {
		mode += "a"
	}

	wb := ""
	if inst.WriteBack {
		wb = "!"
	}

	regs := make([]string, len(inst.RegList))
	for i, r := range inst.RegList {
		regs[i] = fmt.Sprintf("r%d", r)
	}

	return fmt.Sprintf("%s%s%s r%d%s, {%s}",
		inst.Op, mode, inst.Cond, inst.Rn, wb, strings.Join(regs, ", "))
}
