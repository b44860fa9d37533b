// Package loader provides ELF loading for 32-bit ARM executables.
package loader

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// MaxMemorySize is the largest memory size accepted by the loader.
const MaxMemorySize = 1_000_000

// Load errors. Every error returned by the loader wraps exactly one of them.
var (
	ErrNotExecutable     = errors.New("file is not an .exe")
	ErrInvalidMemorySize = errors.New("invalid memory size")
	ErrFileNotFound      = errors.New("file not found")
	ErrAccessDenied      = errors.New("access denied")
	ErrNotElf            = errors.New("not an ELF file")
	ErrNot32Bit          = errors.New("not a 32-bit ELF file")
	ErrOutOfMemory       = errors.New("segment does not fit in memory")
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Segment is one program header's file image.
type Segment struct {
	// VirtAddr is the address the data is copied to.
	VirtAddr uint32
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory. Bytes past len(Data) are left zero.
	MemSize uint32
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Program is a parsed ELF executable.
type Program struct {
	// Entry is the address where execution begins.
	Entry uint32
	// CodeStart is the file offset of the first real section, normally
	// .text. Front ends seed their disassembly window with it.
	CodeStart uint32
	// Segments holds every program header, in file order.
	Segments []Segment
}

// Writer is the memory the loader copies segments into.
type Writer interface {
	Write8(addr uint32, value byte)
}

// Loader parses ELF files and places them into memory.
type Loader struct {
	log logrus.FieldLogger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used to report the layout of loaded files.
func WithLogger(l logrus.FieldLogger) Option {
	return func(ld *Loader) {
		ld.log = l.WithField("component", "loader")
	}
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	ld := &Loader{log: logrus.StandardLogger().WithField("component", "loader")}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// Load loads the executable at path into mem, which holds memSize bytes.
func Load(path string, mem Writer, memSize int) (*Program, error) {
	return New().Load(path, mem, memSize)
}

// LoadBytes loads an executable image held in memory into mem.
func LoadBytes(image []byte, mem Writer, memSize int) (*Program, error) {
	return New().LoadBytes(image, mem, memSize)
}

// Load checks the path and memory size, then parses the file and copies
// its segments into mem. Nothing is written unless every segment fits.
func (ld *Loader) Load(path string, mem Writer, memSize int) (*Program, error) {
	if !strings.HasSuffix(path, ".exe") {
		return nil, fmt.Errorf("%s: %w", path, ErrNotExecutable)
	}
	if err := checkMemorySize(memSize); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("%s: %w", path, ErrFileNotFound)
		case errors.Is(err, fs.ErrPermission):
			return nil, fmt.Errorf("%s: %w", path, ErrAccessDenied)
		default:
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
	}
	defer func() { _ = f.Close() }()

	prog, err := ld.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if err := prog.LoadInto(mem, memSize); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	ld.log.WithFields(logrus.Fields{
		"path":  path,
		"entry": fmt.Sprintf("0x%08X", prog.Entry),
	}).Info("program loaded")

	return prog, nil
}

// LoadBytes is Load for an image that is already in memory.
func (ld *Loader) LoadBytes(image []byte, mem Writer, memSize int) (*Program, error) {
	if err := checkMemorySize(memSize); err != nil {
		return nil, err
	}

	prog, err := ld.Parse(bytes.NewReader(image))
	if err != nil {
		return nil, err
	}

	if err := prog.LoadInto(mem, memSize); err != nil {
		return nil, err
	}

	return prog, nil
}

func checkMemorySize(memSize int) error {
	if memSize <= 0 || memSize > MaxMemorySize {
		return fmt.Errorf("%d bytes: %w", memSize, ErrInvalidMemorySize)
	}
	return nil
}

// Parse reads the ELF header, program headers and section headers of r.
func (ld *Loader) Parse(r io.ReaderAt) (*Program, error) {
	var ident [elf.EI_NIDENT]byte
	if _, err := r.ReadAt(ident[:], 0); err != nil {
		return nil, fmt.Errorf("reading ident: %w", ErrNotElf)
	}
	if string(ident[:4]) != elf.ELFMAG {
		return nil, ErrNotElf
	}
	if elf.Class(ident[elf.EI_CLASS]) != elf.ELFCLASS32 {
		return nil, ErrNot32Bit
	}

	order := byteOrder(ident)
	var hdr elf.Header32
	sr := io.NewSectionReader(r, 0, int64(binary.Size(hdr)))
	if err := binary.Read(sr, order, &hdr); err != nil {
		return nil, fmt.Errorf("reading header: %w", ErrNotElf)
	}

	ld.log.WithFields(logrus.Fields{
		"segments":  hdr.Phnum,
		"phoff":     hdr.Phoff,
		"phentsize": hdr.Phentsize,
	}).Info("reading program headers")

	prog := &Program{
		Entry:     hdr.Entry,
		CodeStart: codeStart(r, order, &hdr),
	}

	if hdr.Phnum > 0 && int(hdr.Phentsize) < binary.Size(elf.Prog32{}) {
		return nil, fmt.Errorf("program header size %d: %w", hdr.Phentsize, ErrNotElf)
	}

	for i := 0; i < int(hdr.Phnum); i++ {
		var phdr elf.Prog32
		off := int64(hdr.Phoff) + int64(i)*int64(hdr.Phentsize)
		sr := io.NewSectionReader(r, off, int64(binary.Size(phdr)))
		if err := binary.Read(sr, order, &phdr); err != nil {
			return nil, fmt.Errorf("reading program header %d: %w", i, ErrNotElf)
		}

		seg, err := readSegment(r, &phdr)
		if err != nil {
			return nil, err
		}

		ld.log.WithFields(logrus.Fields{
			"index":  i,
			"type":   elf.ProgType(phdr.Type),
			"offset": phdr.Off,
			"vaddr":  fmt.Sprintf("0x%08X", phdr.Vaddr),
			"filesz": phdr.Filesz,
			"memsz":  phdr.Memsz,
		}).Debug("program header")

		prog.Segments = append(prog.Segments, seg)
	}

	return prog, nil
}

// codeStart returns the file offset of section 1, or 0 when the section
// table is missing or unreadable. Nothing else depends on sections.
func codeStart(r io.ReaderAt, order binary.ByteOrder, hdr *elf.Header32) uint32 {
	var sh elf.Section32
	if hdr.Shnum < 2 || hdr.Shoff == 0 || int(hdr.Shentsize) < binary.Size(sh) {
		return 0
	}

	off := int64(hdr.Shoff) + int64(hdr.Shentsize)
	sr := io.NewSectionReader(r, off, int64(binary.Size(sh)))
	if err := binary.Read(sr, order, &sh); err != nil {
		return 0
	}
	return sh.Off
}

func byteOrder(ident [elf.EI_NIDENT]byte) binary.ByteOrder {
	if elf.Data(ident[elf.EI_DATA]) == elf.ELFDATA2MSB {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func readSegment(r io.ReaderAt, phdr *elf.Prog32) (Segment, error) {
	data := make([]byte, phdr.Filesz)
	if phdr.Filesz > 0 {
		n, err := r.ReadAt(data, int64(phdr.Off))
		if err != nil && err != io.EOF {
			return Segment{}, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
		}
		if uint32(n) != phdr.Filesz {
			return Segment{}, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d: %w",
				phdr.Vaddr, n, phdr.Filesz, ErrNotElf)
		}
	}

	pf := elf.ProgFlag(phdr.Flags)
	var flags SegmentFlags
	if pf&elf.PF_X != 0 {
		flags |= SegmentFlagExecute
	}
	if pf&elf.PF_W != 0 {
		flags |= SegmentFlagWrite
	}
	if pf&elf.PF_R != 0 {
		flags |= SegmentFlagRead
	}

	return Segment{
		VirtAddr: phdr.Vaddr,
		Data:     data,
		MemSize:  phdr.Memsz,
		Flags:    flags,
	}, nil
}

// LoadInto copies every segment's file image to its virtual address. If
// any segment would reach past memSize, nothing is copied.
func (p *Program) LoadInto(mem Writer, memSize int) error {
	for _, seg := range p.Segments {
		end := uint64(seg.VirtAddr) + uint64(len(seg.Data))
		if end > uint64(memSize) {
			return fmt.Errorf("segment 0x%08X+%d exceeds %d bytes: %w",
				seg.VirtAddr, len(seg.Data), memSize, ErrOutOfMemory)
		}
	}

	for _, seg := range p.Segments {
		for i, b := range seg.Data {
			mem.Write8(seg.VirtAddr+uint32(i), b)
		}
	}

	return nil
}
