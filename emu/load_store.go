package emu

import (
	"fmt"

	"github.com/sarchlab/armsim/insts"
)

// LoadStoreUnit implements single and multiple data transfers.
type LoadStoreUnit struct {
	regFile  *RegFile
	memory   *Memory
	observer Observer
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given
// register file and memory. observer may be nil.
func NewLoadStoreUnit(regFile *RegFile, memory *Memory, observer Observer) *LoadStoreUnit {
	return &LoadStoreUnit{
		regFile:  regFile,
		memory:   memory,
		observer: observer,
	}
}

// EffectiveAddress computes Rn +/- offset for LDR/STR. The P bit is not
// modelled: the address is always the offset one.
func (lsu *LoadStoreUnit) EffectiveAddress(inst *insts.Instruction) uint32 {
	base := lsu.regFile.ReadReg(inst.Rn)

	var offset uint32
	if inst.Operand == insts.OperandImmediate {
		offset = inst.Imm
	} else {
		offset = Shift(inst.ShiftType, lsu.regFile.ReadReg(inst.Rm), uint32(inst.ShiftAmount))
	}

	if inst.Up {
		return base + offset
	}
	return base - offset
}

// Transfer executes LDR, STR, LDRB or STRB and reports whether r15 was
// loaded.
func (lsu *LoadStoreUnit) Transfer(inst *insts.Instruction) (bool, error) {
	addr := lsu.EffectiveAddress(inst)

	size := uint32(4)
	if inst.Byte {
		size = 1
	}
	if !lsu.memory.Contains(addr, size) {
		return false, fmt.Errorf("%s at 0x%08X: %w", inst.Op, addr, ErrOutOfBounds)
	}

	pcWritten := false
	if inst.Load {
		value, err := lsu.load(addr, inst.Byte)
		if err != nil {
			return false, err
		}
		lsu.regFile.WriteReg(inst.Rd, value)
		pcWritten = inst.Rd == insts.RegPC
	} else {
		if err := lsu.store(addr, inst.Byte, lsu.regFile.ReadReg(inst.Rd)); err != nil {
			return false, err
		}
	}

	if inst.WriteBack {
		lsu.regFile.WriteReg(inst.Rn, addr)
		pcWritten = pcWritten || inst.Rn == insts.RegPC
	}

	return pcWritten, nil
}

// Multiple executes LDM/STM. Only LDMIA and STMDB are modelled; every other
// addressing mode is a no-op, including its write-back.
func (lsu *LoadStoreUnit) Multiple(inst *insts.Instruction) (bool, error) {
	base := lsu.regFile.ReadReg(inst.Rn)
	span := uint32(len(inst.RegList)) * 4

	switch {
	case inst.Load && !inst.PreIndex && inst.Up:
		if !lsu.memory.Contains(base, span) {
			return false, fmt.Errorf("ldmia at 0x%08X: %w", base, ErrOutOfBounds)
		}

		pcWritten := false
		addr := base
		for _, reg := range inst.RegList {
			value, err := lsu.load(addr, false)
			if err != nil {
				return false, err
			}
			lsu.regFile.WriteReg(reg, value)
			pcWritten = pcWritten || reg == insts.RegPC
			addr += 4
		}

		if inst.WriteBack {
			lsu.regFile.WriteReg(inst.Rn, base+span)
		}
		return pcWritten, nil

	case !inst.Load && inst.PreIndex && !inst.Up:
		start := base - span
		if !lsu.memory.Contains(start, span) {
			return false, fmt.Errorf("stmdb at 0x%08X: %w", start, ErrOutOfBounds)
		}

		addr := start
		for _, reg := range inst.RegList {
			if err := lsu.store(addr, false, lsu.regFile.ReadReg(reg)); err != nil {
				return false, err
			}
			addr += 4
		}

		if inst.WriteBack {
			lsu.regFile.WriteReg(inst.Rn, start)
		}
		return false, nil
	}

	return false, nil
}

func (lsu *LoadStoreUnit) load(addr uint32, byteSized bool) (uint32, error) {
	if byteSized {
		lsu.observeLoad(addr, 1)
		return uint32(lsu.memory.Read8(addr)), nil
	}

	lsu.observeLoad(addr, 4)
	return lsu.memory.Read32(addr)
}

func (lsu *LoadStoreUnit) store(addr uint32, byteSized bool, value uint32) error {
	if byteSized {
		lsu.observeStore(addr, 1, value&0xFF)
		lsu.memory.Write8(addr, byte(value))
		return nil
	}

	lsu.observeStore(addr, 4, value)
	return lsu.memory.Write32(addr, value)
}

func (lsu *LoadStoreUnit) observeLoad(addr uint32, size int) {
	if lsu.observer != nil {
		lsu.observer.Load(addr, size)
	}
}

func (lsu *LoadStoreUnit) observeStore(addr uint32, size int, value uint32) {
	if lsu.observer != nil {
		lsu.observer.Store(addr, size, value)
	}
}
