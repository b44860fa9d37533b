package emu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/armsim/insts"
)

// ErrAlignment is wrapped by every AlignmentFault.
var ErrAlignment = errors.New("misaligned memory access")

// ErrOutOfBounds is returned when an access falls outside the memory.
var ErrOutOfBounds = errors.New("memory access out of bounds")

// AlignmentFault reports a halfword or word access at an address that is
// not a multiple of the access size.
type AlignmentFault struct {
	Addr  uint32
	Size  int
	Write bool
}

func (f *AlignmentFault) Error() string {
	kind := "read"
	if f.Write {
		kind = "write"
	}
	return fmt.Sprintf("%d-byte %s at 0x%08X: %v", f.Size, kind, f.Addr, ErrAlignment)
}

// Unwrap lets errors.Is match ErrAlignment.
func (f *AlignmentFault) Unwrap() error {
	return ErrAlignment
}

// Memory is a fixed-size, byte-addressable, little-endian memory.
type Memory struct {
	data []byte
}

// NewMemory creates a zero-filled memory of the given size in bytes.
func NewMemory(size uint32) *Memory {
	return &Memory{data: make([]byte, size)}
}

// Size returns the number of bytes in the memory.
func (m *Memory) Size() uint32 {
	return uint32(len(m.data))
}

// Contains reports whether the n bytes starting at addr are all inside the
// memory.
func (m *Memory) Contains(addr uint32, n uint32) bool {
	return uint64(addr)+uint64(n) <= uint64(len(m.data))
}

// Read8 reads a byte. Out-of-range addresses panic; callers that handle
// guest addresses check Contains first.
func (m *Memory) Read8(addr uint32) byte {
	return m.data[addr]
}

// Write8 writes a byte.
func (m *Memory) Write8(addr uint32, value byte) {
	m.data[addr] = value
}

// Read16 reads a little-endian halfword. addr must be 2-byte aligned.
func (m *Memory) Read16(addr uint32) (uint16, error) {
	if err := m.check(addr, 2, false); err != nil {
		return 0, err
	}
	return uint16(m.data[addr]) | uint16(m.data[addr+1])<<8, nil
}

// Write16 writes a little-endian halfword. addr must be 2-byte aligned.
func (m *Memory) Write16(addr uint32, value uint16) error {
	if err := m.check(addr, 2, true); err != nil {
		return err
	}
	m.data[addr] = byte(value)
	m.data[addr+1] = byte(value >> 8)
	return nil
}

// Read32 reads a little-endian word. addr must be 4-byte aligned.
func (m *Memory) Read32(addr uint32) (uint32, error) {
	if err := m.check(addr, 4, false); err != nil {
		return 0, err
	}
	return uint32(m.data[addr]) |
		uint32(m.data[addr+1])<<8 |
		uint32(m.data[addr+2])<<16 |
		uint32(m.data[addr+3])<<24, nil
}

// Write32 writes a little-endian word. addr must be 4-byte aligned.
func (m *Memory) Write32(addr uint32, value uint32) error {
	if err := m.check(addr, 4, true); err != nil {
		return err
	}
	m.data[addr] = byte(value)
	m.data[addr+1] = byte(value >> 8)
	m.data[addr+2] = byte(value >> 16)
	m.data[addr+3] = byte(value >> 24)
	return nil
}

func (m *Memory) check(addr uint32, size int, write bool) error {
	if addr%uint32(size) != 0 {
		return &AlignmentFault{Addr: addr, Size: size, Write: write}
	}
	if !m.Contains(addr, uint32(size)) {
		return fmt.Errorf("%d-byte access at 0x%08X: %w", size, addr, ErrOutOfBounds)
	}
	return nil
}

// TestBit reports whether bit (0..31) of the word at addr is set.
func (m *Memory) TestBit(addr uint32, bit uint) (bool, error) {
	word, err := m.Read32(addr)
	if err != nil {
		return false, err
	}
	return insts.ExtractBits(word, bit, bit) != 0, nil
}

// SetBit sets or clears bit (0..31) of the word at addr.
func (m *Memory) SetBit(addr uint32, bit uint, value bool) error {
	word, err := m.Read32(addr)
	if err != nil {
		return err
	}

	mask := uint32(1) << bit
	if value {
		word |= mask
	} else {
		word &^= mask
	}
	return m.Write32(addr, word)
}

// Checksum returns the sum over every address of (byte XOR address).
func (m *Memory) Checksum() int64 {
	var sum int64
	for i, b := range m.data {
		sum += int64(b) ^ int64(i)
	}
	return sum
}

// Slice returns a copy of n bytes starting at addr.
func (m *Memory) Slice(addr uint32, n uint32) ([]byte, error) {
	if !m.Contains(addr, n) {
		return nil, fmt.Errorf("slice 0x%08X+%d: %w", addr, n, ErrOutOfBounds)
	}
	out := make([]byte, n)
	copy(out, m.data[addr:])
	return out, nil
}

// LoadBytes copies data into memory starting at addr.
func (m *Memory) LoadBytes(addr uint32, data []byte) error {
	if !m.Contains(addr, uint32(len(data))) {
		return fmt.Errorf("load 0x%08X+%d: %w", addr, len(data), ErrOutOfBounds)
	}
	copy(m.data[addr:], data)
	return nil
}

// Clear zeroes every byte.
func (m *Memory) Clear() {
	clear(m.data)
}
