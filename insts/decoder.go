// Package insts provides ARM instruction definitions and decoding.
package insts

import "math/bits"

// Op represents an ARM opcode.
type Op uint16

// ARM opcodes.
const (
	OpUnknown Op = iota
	OpAND
	OpEOR
	OpSUB
	OpRSB
	OpADD
	OpADC
	OpSBC
	OpRSC
	OpTST
	OpTEQ
	OpCMP
	OpCMN
	OpORR
	OpMOV
	OpBIC
	OpMVN
	OpMUL
	OpLDR
	OpSTR
	OpLDM
	OpSTM
	OpB
	OpBL
	OpBX
	OpSWI
)

// dataProcessingOps maps the 4-bit data processing opcode field to an Op.
var dataProcessingOps = [16]Op{
	OpAND, OpEOR, OpSUB, OpRSB, OpADD, OpADC, OpSBC, OpRSC,
	OpTST, OpTEQ, OpCMP, OpCMN, OpORR, OpMOV, OpBIC, OpMVN,
}

// Format represents an instruction encoding class. It is the tag of the
// Instruction variant: only the fields documented for a format are
// meaningful.
type Format uint8

// Instruction formats.
const (
	FormatUnknown           Format = iota
	FormatDataProcessing           // Data processing (type 000 / 001)
	FormatLoadStore                // Single data transfer (type 010 / 011)
	FormatLoadStoreMultiple        // Block data transfer (type 100)
	FormatMultiply                 // MUL (type 000, bit 7 and bit 4 set)
	FormatBranch                   // B / BL (type 101)
	FormatBranchExchange           // BX
	FormatSoftwareInterrupt        // SWI (type 111)
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatDataProcessing:
		return "DataProcessing"
	case FormatLoadStore:
		return "LoadStore"
	case FormatLoadStoreMultiple:
		return "LoadStoreMultiple"
	case FormatMultiply:
		return "Multiply"
	case FormatBranch:
		return "Branch"
	case FormatBranchExchange:
		return "BranchExchange"
	case FormatSoftwareInterrupt:
		return "SoftwareInterrupt"
	default:
		return "Unknown"
	}
}

// OperandKind selects how the second operand or the offset of an
// instruction is formed.
type OperandKind uint8

// Operand kinds.
const (
	OperandImmediate  OperandKind = iota // rotated immediate (DP) or 12-bit offset (LS)
	OperandShiftByImm                    // Rm shifted by an immediate amount
	OperandShiftByReg                    // Rm shifted by the value in Rs
)

// Cond represents an ARM condition code.
type Cond uint8

// ARM condition codes.
const (
	CondEQ Cond = 0b0000 // Equal (Z == 1)
	CondNE Cond = 0b0001 // Not Equal (Z == 0)
	CondCS Cond = 0b0010 // Carry Set / Unsigned higher or same (C == 1)
	CondCC Cond = 0b0011 // Carry Clear / Unsigned lower (C == 0)
	CondMI Cond = 0b0100 // Minus / Negative (N == 1)
	CondPL Cond = 0b0101 // Plus / Positive or zero (N == 0)
	CondVS Cond = 0b0110 // Overflow (V == 1)
	CondVC Cond = 0b0111 // No overflow (V == 0)
	CondHI Cond = 0b1000 // Unsigned higher (C == 1 && Z == 0)
	CondLS Cond = 0b1001 // Unsigned lower or same (C == 0 || Z == 1)
	CondGE Cond = 0b1010 // Signed greater than or equal (N == V)
	CondLT Cond = 0b1011 // Signed less than (N != V)
	CondGT Cond = 0b1100 // Signed greater than (Z == 0 && N == V)
	CondLE Cond = 0b1101 // Signed less than or equal (Z == 1 || N != V)
	CondAL Cond = 0b1110 // Always (unconditional)
	CondNV Cond = 0b1111 // Reserved
)

// ShiftType represents a shift type for register operands.
type ShiftType uint8

// Shift types.
const (
	ShiftLSL ShiftType = 0b00 // Logical shift left
	ShiftLSR ShiftType = 0b01 // Logical shift right
	ShiftASR ShiftType = 0b10 // Arithmetic shift right
	ShiftROR ShiftType = 0b11 // Rotate right
)

// Register numbers with a conventional role.
const (
	RegSP uint8 = 13 // Stack pointer
	RegLR uint8 = 14 // Link register
	RegPC uint8 = 15 // Program counter
)

// Software interrupt vectors understood by the simulator.
const (
	SWIPutChar  uint32 = 0x00 // Write the character in r0 to the console
	SWIExit     uint32 = 0x11 // Halt the program
	SWIReadLine uint32 = 0x6A // Read a line of console input
)

// bxEncoding is the fixed value of bits [27:4] of a BX instruction.
const bxEncoding = 0x12FFF1

// Instruction represents a decoded ARM instruction. It is created once by
// the Decoder; the only field changed afterwards is Executed.
type Instruction struct {
	Op     Op     // Operation code
	Format Format // Encoding class (variant tag)

	// Common fields
	Raw      uint32 // Raw instruction word
	Cond     Cond   // Condition code, bits [31:28]
	Type     uint8  // Type field, bits [27:25]
	Executed bool   // Set by the execution engine once the condition passed

	// Register fields
	Rd uint8 // Destination (DP: bits [15:12], MUL: bits [19:16]); LS: transfer register
	Rn uint8 // First operand / base register
	Rm uint8 // Second operand / offset / branch-exchange target register
	Rs uint8 // Shift-amount register (DP) or multiplier (MUL)

	// Data processing and multiply
	SetFlags bool        // S bit (bit 20)
	Operand  OperandKind // How Operand2 or the LS offset is formed

	// Immediate operand. DP: 8-bit immediate, LS: 12-bit offset.
	Imm    uint32
	Rotate uint8 // DP immediate rotate field; the value rotates right by 2*Rotate

	// Shift for register operand
	ShiftType   ShiftType // Type of shift applied to Rm
	ShiftAmount uint8     // Immediate shift amount for Rm

	// Load/store addressing bits
	PreIndex  bool // P bit (bit 24)
	Up        bool // U bit (bit 23): add the offset when set
	Byte      bool // B bit (bit 22) for LS; S bit for LSM
	WriteBack bool // W bit (bit 21)
	Load      bool // L bit (bit 20)

	// Load/store multiple register list, ascending register index
	RegList []uint8

	// Branch fields
	Link         bool   // L bit (bit 24)
	BranchOffset int32  // Sign-extended offset in bytes
	Target       uint32 // Resolved branch target
	Thumb        bool   // BX: bit 0 of the instruction word

	// Software interrupt vector, bits [23:0]
	SWI uint32

	text string
}

// Decoder decodes ARM machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new ARM instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit ARM instruction word located at address 0.
// Branch targets are therefore relative to 8.
func (d *Decoder) Decode(word uint32) *Instruction {
	return d.DecodeAt(word, 0)
}

// DecodeAt decodes a 32-bit ARM instruction word fetched from addr. The
// address is only used to resolve branch targets (addr + 8 + offset).
// Decoding never fails: unrecognised encodings become FormatUnknown.
func (d *Decoder) DecodeAt(word uint32, addr uint32) *Instruction {
	inst := &Instruction{
		Op:     OpUnknown,
		Format: FormatUnknown,
		Raw:    word,
		Cond:   Cond(ShiftToEnd(word, 28, 31)),
		Type:   uint8(ShiftToEnd(word, 25, 27)),
	}

	bit4 := ShiftToEnd(word, 4, 4)
	bit7 := ShiftToEnd(word, 7, 7)

	switch {
	case ShiftToEnd(word, 4, 27) == bxEncoding:
		d.decodeBranchExchange(word, inst)
	case inst.Type == 0b001 || (inst.Type == 0b000 && !(bit4 == 1 && bit7 == 1)):
		d.decodeDataProcessing(word, inst)
	case inst.Type == 0b000:
		d.decodeMultiply(word, inst)
	case inst.Type == 0b010 || inst.Type == 0b011:
		d.decodeLoadStore(word, inst)
	case inst.Type == 0b100:
		d.decodeLoadStoreMultiple(word, inst)
	case inst.Type == 0b111:
		d.decodeSoftwareInterrupt(word, inst)
	case inst.Type == 0b101:
		d.decodeBranch(word, addr, inst)
	}

	return inst
}

// decodeDataProcessing decodes data processing instructions.
// Format: cond | 00 | I | opcode | S | Rn | Rd | operand2
func (d *Decoder) decodeDataProcessing(word uint32, inst *Instruction) {
	inst.Format = FormatDataProcessing
	inst.Op = dataProcessingOps[ShiftToEnd(word, 21, 24)]
	inst.SetFlags = ShiftToEnd(word, 20, 20) == 1
	inst.Rn = uint8(ShiftToEnd(word, 16, 19))
	inst.Rd = uint8(ShiftToEnd(word, 12, 15))

	if inst.Type == 0b001 {
		inst.Operand = OperandImmediate
		inst.Rotate = uint8(ShiftToEnd(word, 8, 11))
		inst.Imm = ShiftToEnd(word, 0, 7)
		return
	}

	inst.ShiftType = ShiftType(ShiftToEnd(word, 5, 6))
	inst.Rm = uint8(ShiftToEnd(word, 0, 3))

	if ShiftToEnd(word, 4, 4) == 0 {
		inst.Operand = OperandShiftByImm
		inst.ShiftAmount = uint8(ShiftToEnd(word, 7, 11))
	} else {
		inst.Operand = OperandShiftByReg
		inst.Rs = uint8(ShiftToEnd(word, 8, 11))
	}
}

// decodeMultiply decodes MUL.
// Format: cond | 000000 | A | S | Rd | Rn | Rs | 1001 | Rm
func (d *Decoder) decodeMultiply(word uint32, inst *Instruction) {
	inst.Format = FormatMultiply
	inst.Op = OpMUL
	inst.SetFlags = ShiftToEnd(word, 20, 20) == 1
	inst.Rd = uint8(ShiftToEnd(word, 16, 19))
	inst.Rs = uint8(ShiftToEnd(word, 8, 11))
	inst.Rm = uint8(ShiftToEnd(word, 0, 3))
}

// decodeLoadStore decodes single data transfer instructions.
// Format: cond | 01 | I | P | U | B | W | L | Rn | Rd | offset
func (d *Decoder) decodeLoadStore(word uint32, inst *Instruction) {
	inst.Format = FormatLoadStore
	d.decodeTransferBits(word, inst)
	inst.Rd = uint8(ShiftToEnd(word, 12, 15))

	if inst.Load {
		inst.Op = OpLDR
	} else {
		inst.Op = OpSTR
	}

	if inst.Type == 0b010 {
		inst.Operand = OperandImmediate
		inst.Imm = ShiftToEnd(word, 0, 11)
		return
	}

	inst.Operand = OperandShiftByImm
	inst.ShiftAmount = uint8(ShiftToEnd(word, 7, 11))
	inst.ShiftType = ShiftType(ShiftToEnd(word, 5, 6))
	inst.Rm = uint8(ShiftToEnd(word, 0, 3))
}

// decodeLoadStoreMultiple decodes block data transfer instructions.
// Format: cond | 100 | P | U | S | W | L | Rn | register list
func (d *Decoder) decodeLoadStoreMultiple(word uint32, inst *Instruction) {
	inst.Format = FormatLoadStoreMultiple
	d.decodeTransferBits(word, inst)

	if inst.Load {
		inst.Op = OpLDM
	} else {
		inst.Op = OpSTM
	}

	inst.RegList = make([]uint8, 0, bits.OnesCount32(ShiftToEnd(word, 0, 15)))
	for i := uint(0); i <= 15; i++ {
		if ShiftToEnd(word, i, i) == 1 {
			inst.RegList = append(inst.RegList, uint8(i))
		}
	}
}

// decodeTransferBits extracts the P/U/B(S)/W/L bits and Rn shared by the
// single and multiple transfer formats.
func (d *Decoder) decodeTransferBits(word uint32, inst *Instruction) {
	inst.PreIndex = ShiftToEnd(word, 24, 24) == 1
	inst.Up = ShiftToEnd(word, 23, 23) == 1
	inst.Byte = ShiftToEnd(word, 22, 22) == 1
	inst.WriteBack = ShiftToEnd(word, 21, 21) == 1
	inst.Load = ShiftToEnd(word, 20, 20) == 1
	inst.Rn = uint8(ShiftToEnd(word, 16, 19))
}

// decodeBranch decodes B and BL.
// Format: cond | 101 | L | imm24
func (d *Decoder) decodeBranch(word, addr uint32, inst *Instruction) {
	inst.Format = FormatBranch
	inst.Link = ShiftToEnd(word, 24, 24) == 1

	// Sign-extend imm24 and multiply by 4
	imm24 := ShiftToEnd(word, 0, 23)
	offset := int32(imm24<<8) >> 8
	inst.BranchOffset = offset << 2
	inst.Target = addr + 8 + uint32(inst.BranchOffset)

	if inst.Link {
		inst.Op = OpBL
	} else {
		inst.Op = OpB
	}
}

// decodeBranchExchange decodes BX.
// Format: cond | 0001 0010 1111 1111 1111 0001 | Rm
func (d *Decoder) decodeBranchExchange(word uint32, inst *Instruction) {
	inst.Format = FormatBranchExchange
	inst.Op = OpBX
	inst.Rm = uint8(ShiftToEnd(word, 0, 3))
	inst.Thumb = ShiftToEnd(word, 0, 0) == 1
}

// decodeSoftwareInterrupt decodes SWI.
// Format: cond | 1111 | imm24
func (d *Decoder) decodeSoftwareInterrupt(word uint32, inst *Instruction) {
	inst.Format = FormatSoftwareInterrupt
	inst.Op = OpSWI
	inst.SWI = ShiftToEnd(word, 0, 23)
}

// RotatedImm returns the data processing immediate rotated right by
// 2*Rotate bits.
func (inst *Instruction) RotatedImm() uint32 {
	return bits.RotateLeft32(inst.Imm, -2*int(inst.Rotate))
}
