package emu

import (
	"fmt"

	"github.com/sarchlab/armsim/insts"
)

// SWIResult represents the result of a software interrupt.
type SWIResult struct {
	// Halted is true if the interrupt stops the program.
	Halted bool

	// Err is set if the interrupt touched memory it could not access.
	Err error
}

// SWIHandler services software interrupts.
type SWIHandler interface {
	// Handle services the interrupt with the given 24-bit vector. Unknown
	// vectors are no-ops.
	Handle(vector uint32) SWIResult
}

// DefaultSWIHandler implements the console interrupts:
//   - 0x00 writes the low byte of r0 to the host
//   - 0x11 halts the program
//   - 0x6A reads a line into the buffer at r1 of capacity r2, stores a NUL
//     terminator and returns the number of characters in r0
type DefaultSWIHandler struct {
	regFile *RegFile
	memory  *Memory
	host    Host
}

// NewDefaultSWIHandler creates a DefaultSWIHandler.
func NewDefaultSWIHandler(regFile *RegFile, memory *Memory, host Host) *DefaultSWIHandler {
	return &DefaultSWIHandler{
		regFile: regFile,
		memory:  memory,
		host:    host,
	}
}

// Handle services the interrupt.
func (h *DefaultSWIHandler) Handle(vector uint32) SWIResult {
	switch vector {
	case insts.SWIPutChar:
		h.host.Output(byte(h.regFile.ReadReg(0)))
	case insts.SWIExit:
		return SWIResult{Halted: true}
	case insts.SWIReadLine:
		return h.handleReadLine()
	}
	return SWIResult{}
}

func (h *DefaultSWIHandler) handleReadLine() SWIResult {
	buf := h.regFile.ReadReg(1)
	capacity := h.regFile.ReadReg(2)

	line := h.host.InputLine()
	if capacity == 0 {
		h.regFile.WriteReg(0, 0)
		return SWIResult{}
	}
	if uint32(len(line)) > capacity-1 {
		line = line[:capacity-1]
	}

	if !h.memory.Contains(buf, uint32(len(line))+1) {
		return SWIResult{Err: fmt.Errorf("read line into 0x%08X: %w", buf, ErrOutOfBounds)}
	}

	for i, c := range line {
		h.memory.Write8(buf+uint32(i), c)
	}
	h.memory.Write8(buf+uint32(len(line)), 0)

	h.regFile.WriteReg(0, uint32(len(line)))
	return SWIResult{}
}
