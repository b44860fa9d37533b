package benchmarks

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/sarchlab/armsim/insts"
)

// BuildProgram assembles instruction words into a little-endian byte slice.
func BuildProgram(instrs ...uint32) []byte {
	program := make([]byte, 4*len(instrs))
	for i, inst := range instrs {
		binary.LittleEndian.PutUint32(program[4*i:], inst)
	}
	return program
}

// Data-processing opcodes, bits [24:21].
const (
	opcodeSUB uint32 = 0b0010
	opcodeADD uint32 = 0b0100
	opcodeCMP uint32 = 0b1010
	opcodeORR uint32 = 0b1100
	opcodeMOV uint32 = 0b1101
)

const condAL = uint32(insts.CondAL) << 28

// WithCond replaces the condition field of an encoded instruction.
func WithCond(inst uint32, cond insts.Cond) uint32 {
	return inst&0x0FFFFFFF | uint32(cond)<<28
}

// EncodeImm finds the 8-bit value and 4-bit rotation that represent value
// as a data-processing immediate.
func EncodeImm(value uint32) (imm8, rotate uint32, ok bool) {
	for rotate = 0; rotate < 16; rotate++ {
		v := bits.RotateLeft32(value, int(2*rotate))
		if v <= 0xFF {
			return v, rotate, true
		}
	}
	return 0, 0, false
}

func encodeDPImm(opcode uint32, setFlags bool, rd, rn uint8, value uint32) uint32 {
	imm8, rotate, ok := EncodeImm(value)
	if !ok {
		panic(fmt.Sprintf("immediate 0x%X cannot be encoded", value))
	}

	inst := condAL | 1<<25 | opcode<<21
	if setFlags {
		inst |= 1 << 20
	}
	inst |= uint32(rn&0xF) << 16
	inst |= uint32(rd&0xF) << 12
	inst |= rotate<<8 | imm8
	return inst
}

func encodeDPReg(opcode uint32, setFlags bool, rd, rn, rm uint8) uint32 {
	inst := condAL | opcode<<21
	if setFlags {
		inst |= 1 << 20
	}
	inst |= uint32(rn&0xF) << 16
	inst |= uint32(rd&0xF) << 12
	inst |= uint32(rm & 0xF)
	return inst
}

// EncodeMOVImm encodes MOV Rd, #imm. It panics if imm is not a rotated
// 8-bit value.
func EncodeMOVImm(rd uint8, imm uint32) uint32 {
	return encodeDPImm(opcodeMOV, false, rd, 0, imm)
}

// EncodeMOVReg encodes MOV Rd, Rm.
func EncodeMOVReg(rd, rm uint8) uint32 {
	return encodeDPReg(opcodeMOV, false, rd, 0, rm)
}

// EncodeADDImm encodes ADD Rd, Rn, #imm.
func EncodeADDImm(rd, rn uint8, imm uint32) uint32 {
	return encodeDPImm(opcodeADD, false, rd, rn, imm)
}

// EncodeADDReg encodes ADD Rd, Rn, Rm.
func EncodeADDReg(rd, rn, rm uint8) uint32 {
	return encodeDPReg(opcodeADD, false, rd, rn, rm)
}

// EncodeSUBImm encodes SUB Rd, Rn, #imm.
func EncodeSUBImm(rd, rn uint8, imm uint32) uint32 {
	return encodeDPImm(opcodeSUB, false, rd, rn, imm)
}

// EncodeSUBReg encodes SUB Rd, Rn, Rm.
func EncodeSUBReg(rd, rn, rm uint8) uint32 {
	return encodeDPReg(opcodeSUB, false, rd, rn, rm)
}

// EncodeORRImm encodes ORR Rd, Rn, #imm.
func EncodeORRImm(rd, rn uint8, imm uint32) uint32 {
	return encodeDPImm(opcodeORR, false, rd, rn, imm)
}

// EncodeCMPImm encodes CMP Rn, #imm.
func EncodeCMPImm(rn uint8, imm uint32) uint32 {
	return encodeDPImm(opcodeCMP, true, 0, rn, imm)
}

// EncodeCMPReg encodes CMP Rn, Rm.
func EncodeCMPReg(rn, rm uint8) uint32 {
	return encodeDPReg(opcodeCMP, true, 0, rn, rm)
}

// EncodeMUL encodes MUL Rd, Rm, Rs.
func EncodeMUL(rd, rm, rs uint8) uint32 {
	return condAL | uint32(rd&0xF)<<16 | uint32(rs&0xF)<<8 | 0b1001<<4 | uint32(rm&0xF)
}

func encodeTransferImm(load, byteSized bool, rd, rn uint8, offset int32) uint32 {
	inst := condAL | 0b01<<26 | 1<<24 // pre-indexed
	if offset >= 0 {
		inst |= 1 << 23
	} else {
		offset = -offset
	}
	if byteSized {
		inst |= 1 << 22
	}
	if load {
		inst |= 1 << 20
	}
	inst |= uint32(rn&0xF) << 16
	inst |= uint32(rd&0xF) << 12
	inst |= uint32(offset) & 0xFFF
	return inst
}

// EncodeLDRImm encodes LDR Rd, [Rn, #offset].
func EncodeLDRImm(rd, rn uint8, offset int32) uint32 {
	return encodeTransferImm(true, false, rd, rn, offset)
}

// EncodeSTRImm encodes STR Rd, [Rn, #offset].
func EncodeSTRImm(rd, rn uint8, offset int32) uint32 {
	return encodeTransferImm(false, false, rd, rn, offset)
}

// EncodeLDRBImm encodes LDRB Rd, [Rn, #offset].
func EncodeLDRBImm(rd, rn uint8, offset int32) uint32 {
	return encodeTransferImm(true, true, rd, rn, offset)
}

// EncodeSTRBImm encodes STRB Rd, [Rn, #offset].
func EncodeSTRBImm(rd, rn uint8, offset int32) uint32 {
	return encodeTransferImm(false, true, rd, rn, offset)
}

// EncodeLDRRegLSL encodes LDR Rd, [Rn, Rm, LSL #shift].
func EncodeLDRRegLSL(rd, rn, rm uint8, shift uint8) uint32 {
	return condAL | 0b011<<25 | 1<<24 | 1<<23 | 1<<20 |
		uint32(rn&0xF)<<16 | uint32(rd&0xF)<<12 |
		uint32(shift&0x1F)<<7 | uint32(rm&0xF)
}

func regList(regs []uint8) uint32 {
	var list uint32
	for _, r := range regs {
		list |= 1 << (r & 0xF)
	}
	return list
}

// EncodeSTM encodes STMDB Rn!, {regs}, the full-descending push.
func EncodeSTM(rn uint8, regs ...uint8) uint32 {
	return condAL | 0b100<<25 | 1<<24 | 1<<21 | uint32(rn&0xF)<<16 | regList(regs)
}

// EncodeLDM encodes LDMIA Rn!, {regs}, the full-descending pop.
func EncodeLDM(rn uint8, regs ...uint8) uint32 {
	return condAL | 0b100<<25 | 1<<23 | 1<<21 | 1<<20 | uint32(rn&0xF)<<16 | regList(regs)
}

// EncodeB encodes B to an address offset bytes from the branch itself.
func EncodeB(offset int32) uint32 {
	return condAL | 0b101<<25 | (uint32((offset-8)>>2) & 0xFFFFFF)
}

// EncodeBCond encodes a conditional B.
func EncodeBCond(cond insts.Cond, offset int32) uint32 {
	return WithCond(EncodeB(offset), cond)
}

// EncodeBL encodes BL to an address offset bytes from the branch itself.
func EncodeBL(offset int32) uint32 {
	return EncodeB(offset) | 1<<24
}

// EncodeBX encodes BX Rm.
func EncodeBX(rm uint8) uint32 {
	return condAL | 0x012FFF10 | uint32(rm&0xF)
}

// EncodeSWI encodes SWI #vector.
func EncodeSWI(vector uint32) uint32 {
	return condAL | 0xF<<24 | vector&0xFFFFFF
}
