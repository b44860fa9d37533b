// Package emu provides functional ARM (32-bit) emulation.
package emu

// NumRegisters is the number of 32-bit words in the register file:
// r0-r15 followed by the CPSR.
const NumRegisters = 17

// cpsrOffset is the byte offset of the CPSR in the register file memory.
const cpsrOffset = 16 * 4

// CPSR bit positions.
const (
	BitN     uint = 31 // Negative
	BitZ     uint = 30 // Zero
	BitC     uint = 29 // Carry
	BitV     uint = 28 // Overflow
	BitThumb uint = 5  // Instruction set state
)

// Flags holds the NZCV condition flags.
type Flags struct {
	N bool
	Z bool
	C bool
	V bool
}

// String renders the flags as four 0/1 digits in NZCV order.
func (f Flags) String() string {
	b := []byte("0000")
	for i, set := range []bool{f.N, f.Z, f.C, f.V} {
		if set {
			b[i] = '1'
		}
	}
	return string(b)
}

// RegFile represents the ARM register file. It is stored as a small
// little-endian memory of 17 words so that flags use the same bit helpers as
// main memory.
type RegFile struct {
	mem *Memory
}

// NewRegFile creates a register file with every register zero.
func NewRegFile() *RegFile {
	return &RegFile{mem: NewMemory(NumRegisters * 4)}
}

// ReadReg reads r0-r15. Only the low four bits of reg are used.
func (r *RegFile) ReadReg(reg uint8) uint32 {
	// Offsets are aligned and in range, so the access cannot fail.
	v, _ := r.mem.Read32(uint32(reg&0xF) * 4)
	return v
}

// WriteReg writes r0-r15. Only the low four bits of reg are used.
func (r *RegFile) WriteReg(reg uint8, value uint32) {
	_ = r.mem.Write32(uint32(reg&0xF)*4, value)
}

// PC returns r15.
func (r *RegFile) PC() uint32 {
	return r.ReadReg(15)
}

// SetPC writes r15.
func (r *RegFile) SetPC(value uint32) {
	r.WriteReg(15, value)
}

// SP returns r13.
func (r *RegFile) SP() uint32 {
	return r.ReadReg(13)
}

// SetSP writes r13.
func (r *RegFile) SetSP(value uint32) {
	r.WriteReg(13, value)
}

// CPSR returns the raw status register.
func (r *RegFile) CPSR() uint32 {
	v, _ := r.mem.Read32(cpsrOffset)
	return v
}

// SetCPSR overwrites the raw status register.
func (r *RegFile) SetCPSR(value uint32) {
	_ = r.mem.Write32(cpsrOffset, value)
}

// Flag reports whether the given CPSR bit is set.
func (r *RegFile) Flag(bit uint) bool {
	set, _ := r.mem.TestBit(cpsrOffset, bit)
	return set
}

// SetFlag sets or clears the given CPSR bit.
func (r *RegFile) SetFlag(bit uint, value bool) {
	_ = r.mem.SetBit(cpsrOffset, bit, value)
}

// Flags returns the NZCV flags.
func (r *RegFile) Flags() Flags {
	return Flags{
		N: r.Flag(BitN),
		Z: r.Flag(BitZ),
		C: r.Flag(BitC),
		V: r.Flag(BitV),
	}
}

// SetFlags writes all four NZCV flags.
func (r *RegFile) SetFlags(f Flags) {
	r.SetFlag(BitN, f.N)
	r.SetFlag(BitZ, f.Z)
	r.SetFlag(BitC, f.C)
	r.SetFlag(BitV, f.V)
}

// Thumb reports the CPSR instruction set state bit.
func (r *RegFile) Thumb() bool {
	return r.Flag(BitThumb)
}

// Snapshot returns a copy of r0-r15.
func (r *RegFile) Snapshot() [16]uint32 {
	var regs [16]uint32
	for i := range regs {
		regs[i] = r.ReadReg(uint8(i))
	}
	return regs
}

// Reset zeroes every register and the CPSR.
func (r *RegFile) Reset() {
	r.mem.Clear()
}
