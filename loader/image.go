package loader

import (
	"debug/elf"
	"encoding/binary"
)

// Sizes of the ELF32 structures written by Image.
const (
	elf32HeaderSize  = 52
	elf32ProgSize    = 32
	elf32SectionSize = 40
)

var shstrtab = []byte("\x00.text\x00.shstrtab\x00")

// Image assembles a minimal little-endian ELF32 ARM executable: one program
// header per segment, followed by a section table holding a null section,
// .text over the first segment and the section name table.
type Image struct {
	Entry    uint32
	Segments []Segment
}

// Bytes encodes the image.
func (img *Image) Bytes() []byte {
	le := binary.LittleEndian

	phoff := uint32(elf32HeaderSize)
	dataOff := phoff + uint32(len(img.Segments))*elf32ProgSize

	// Segment payloads in order, then the string table, then the section
	// headers.
	offsets := make([]uint32, len(img.Segments))
	off := dataOff
	for i, seg := range img.Segments {
		offsets[i] = off
		off += uint32(len(seg.Data))
	}
	strOff := off
	shoff := align4(strOff + uint32(len(shstrtab)))
	size := shoff + 3*elf32SectionSize

	buf := make([]byte, size)

	copy(buf[0:4], elf.ELFMAG)
	buf[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	buf[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	buf[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	le.PutUint16(buf[16:], uint16(elf.ET_EXEC))
	le.PutUint16(buf[18:], uint16(elf.EM_ARM))
	le.PutUint32(buf[20:], uint32(elf.EV_CURRENT))
	le.PutUint32(buf[24:], img.Entry)
	le.PutUint32(buf[28:], phoff)
	le.PutUint32(buf[32:], shoff)
	le.PutUint16(buf[40:], elf32HeaderSize)
	le.PutUint16(buf[42:], elf32ProgSize)
	le.PutUint16(buf[44:], uint16(len(img.Segments)))
	le.PutUint16(buf[46:], elf32SectionSize)
	le.PutUint16(buf[48:], 3)
	le.PutUint16(buf[50:], 2)

	for i, seg := range img.Segments {
		ph := buf[phoff+uint32(i)*elf32ProgSize:]
		memSize := seg.MemSize
		if memSize < uint32(len(seg.Data)) {
			memSize = uint32(len(seg.Data))
		}

		le.PutUint32(ph[0:], uint32(elf.PT_LOAD))
		le.PutUint32(ph[4:], offsets[i])
		le.PutUint32(ph[8:], seg.VirtAddr)
		le.PutUint32(ph[12:], seg.VirtAddr)
		le.PutUint32(ph[16:], uint32(len(seg.Data)))
		le.PutUint32(ph[20:], memSize)
		le.PutUint32(ph[24:], uint32(progFlags(seg.Flags)))
		le.PutUint32(ph[28:], 4)

		copy(buf[offsets[i]:], seg.Data)
	}

	copy(buf[strOff:], shstrtab)

	// Section 0 stays all zero.
	text := buf[shoff+elf32SectionSize:]
	le.PutUint32(text[0:], 1)
	le.PutUint32(text[4:], uint32(elf.SHT_PROGBITS))
	le.PutUint32(text[8:], uint32(elf.SHF_ALLOC|elf.SHF_EXECINSTR))
	le.PutUint32(text[16:], dataOff)
	if len(img.Segments) > 0 {
		le.PutUint32(text[12:], img.Segments[0].VirtAddr)
		le.PutUint32(text[20:], uint32(len(img.Segments[0].Data)))
	}
	le.PutUint32(text[32:], 4)

	strtab := buf[shoff+2*elf32SectionSize:]
	le.PutUint32(strtab[0:], 7)
	le.PutUint32(strtab[4:], uint32(elf.SHT_STRTAB))
	le.PutUint32(strtab[16:], strOff)
	le.PutUint32(strtab[20:], uint32(len(shstrtab)))
	le.PutUint32(strtab[32:], 1)

	return buf
}

func progFlags(f SegmentFlags) elf.ProgFlag {
	var pf elf.ProgFlag
	if f&SegmentFlagExecute != 0 {
		pf |= elf.PF_X
	}
	if f&SegmentFlagWrite != 0 {
		pf |= elf.PF_W
	}
	if f&SegmentFlagRead != 0 {
		pf |= elf.PF_R
	}
	return pf
}

func align4(v uint32) uint32 {
	return (v + 3) &^ 3
}
