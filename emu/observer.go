package emu

import "github.com/sarchlab/armsim/insts"

// Observer is notified of the memory traffic and retirements produced by the
// guest program. Timing models implement it to profile a functional run.
type Observer interface {
	// Fetch is called once per instruction fetch.
	Fetch(addr uint32)

	// Load is called for every data read of size bytes.
	Load(addr uint32, size int)

	// Store is called for every data write of size bytes, before memory
	// changes.
	Store(addr uint32, size int, value uint32)

	// Retire is called after an instruction finished executing, whether or
	// not its condition passed.
	Retire(inst *insts.Instruction)
}
