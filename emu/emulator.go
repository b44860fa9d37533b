package emu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/armsim/insts"
	"github.com/sarchlab/armsim/loader"
)

// DefaultStackPointer is the value written to r13 after every load.
const DefaultStackPointer uint32 = 0x7000

// ErrStepLimit is returned by Step once the configured instruction limit
// has been reached.
var ErrStepLimit = errors.New("max instructions reached")

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Inst is the decoded instruction, nil if nothing was fetched.
	Inst *insts.Instruction

	// Trace is the state after the step, nil if nothing was executed.
	Trace *TraceRecord

	// Halted is true if the program has stopped via SWI 0x11.
	Halted bool

	// Err is set if an error occurred during execution.
	Err error
}

// StopReason tells why Run returned.
type StopReason int

// Reasons for Run to return.
const (
	StopHalted    StopReason = iota // The program executed SWI 0x11
	StopPaused                      // A breakpoint matched the next PC
	StopCancelled                   // The context was cancelled
	StopLimit                       // The instruction limit was reached
	StopFault                       // A step failed
	StopIdle                        // No program is loaded
)

// String returns the lower-case name of the reason.
func (r StopReason) String() string {
	switch r {
	case StopHalted:
		return "halted"
	case StopPaused:
		return "paused"
	case StopCancelled:
		return "cancelled"
	case StopLimit:
		return "limit"
	case StopFault:
		return "fault"
	case StopIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// RunResult summarizes a call to Run.
type RunResult struct {
	Reason StopReason
	Steps  uint64 // Instructions executed by this call
	Err    error  // Set for StopFault and StopCancelled
}

// Emulator executes ARM instructions functionally.
type Emulator struct {
	regFile    *RegFile
	memory     *Memory
	decoder    *insts.Decoder
	swiHandler SWIHandler

	// Execution units
	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit

	// Collaborators
	host          Host
	stdin         io.Reader
	stdout        io.Writer
	observer      Observer
	stepObservers []func(*TraceRecord)
	log           *logrus.Entry

	// Execution state
	stackPointer uint32
	steps        uint64
	maxSteps     uint64 // 0 means no limit
	halted       bool
	program      *loader.Program
	reload       func() error
	pausedAt     uint32
	paused       bool
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithHost sets the collaborator that receives output, supplies input,
// observes steps and decides breakpoints. It overrides WithStdout and
// WithStdin.
func WithHost(h Host) EmulatorOption {
	return func(e *Emulator) {
		e.host = h
	}
}

// WithStdout sets the writer of the default console host.
func WithStdout(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stdout = w
	}
}

// WithStdin sets the reader of the default console host.
func WithStdin(r io.Reader) EmulatorOption {
	return func(e *Emulator) {
		e.stdin = r
	}
}

// WithSWIHandler sets a custom software interrupt handler.
func WithSWIHandler(handler SWIHandler) EmulatorOption {
	return func(e *Emulator) {
		e.swiHandler = handler
	}
}

// WithStackPointer sets the stack pointer written after every load.
func WithStackPointer(sp uint32) EmulatorOption {
	return func(e *Emulator) {
		e.stackPointer = sp
	}
}

// WithMaxSteps sets the maximum number of instructions to execute after a
// load. A value of 0 means no limit.
func WithMaxSteps(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxSteps = max
	}
}

// WithLogger sets the logger. Per-step records are logged at debug level.
func WithLogger(l logrus.FieldLogger) EmulatorOption {
	return func(e *Emulator) {
		e.log = l.WithField("component", "emu")
	}
}

// WithAccessObserver attaches an observer of fetches, data accesses and
// retirements.
func WithAccessObserver(o Observer) EmulatorOption {
	return func(e *Emulator) {
		e.observer = o
	}
}

// WithStepObserver registers a callback invoked with every trace record,
// after the host has seen it.
func WithStepObserver(fn func(*TraceRecord)) EmulatorOption {
	return func(e *Emulator) {
		e.stepObservers = append(e.stepObservers, fn)
	}
}

// NewEmulator creates an emulator with memSize bytes of RAM.
func NewEmulator(memSize uint32, opts ...EmulatorOption) *Emulator {
	regFile := NewRegFile()
	memory := NewMemory(memSize)

	e := &Emulator{
		regFile:      regFile,
		memory:       memory,
		decoder:      insts.NewDecoder(),
		stdout:       os.Stdout,
		stdin:        os.Stdin,
		stackPointer: DefaultStackPointer,
		log:          logrus.StandardLogger().WithField("component", "emu"),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.host == nil {
		e.host = NewConsoleHost(e.stdin, e.stdout)
	}

	e.alu = NewALU(regFile)
	e.lsu = NewLoadStoreUnit(regFile, memory, e.observer)
	e.branchUnit = NewBranchUnit(regFile)

	if e.swiHandler == nil {
		e.swiHandler = NewDefaultSWIHandler(regFile, memory, e.host)
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's RAM.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// Program returns the last loaded ELF image, or nil.
func (e *Emulator) Program() *loader.Program {
	return e.program
}

// InstructionCount returns the number of instructions executed since the
// last load.
func (e *Emulator) InstructionCount() uint64 {
	return e.steps
}

// Halted reports whether the program has executed SWI 0x11.
func (e *Emulator) Halted() bool {
	return e.halted
}

// Loaded reports whether a program is ready to run.
func (e *Emulator) Loaded() bool {
	return e.reload != nil
}

// Load loads the ELF executable at path, replacing all memory and register
// state.
func (e *Emulator) Load(path string) error {
	return e.loadWith(func() error {
		prog, err := loader.New(loader.WithLogger(e.log)).
			Load(path, e.memory, int(e.memory.Size()))
		if err != nil {
			return err
		}
		e.program = prog
		e.regFile.SetPC(prog.Entry)
		return nil
	})
}

// LoadELF loads an ELF executable image held in memory.
func (e *Emulator) LoadELF(image []byte) error {
	return e.loadWith(func() error {
		prog, err := loader.New(loader.WithLogger(e.log)).
			LoadBytes(image, e.memory, int(e.memory.Size()))
		if err != nil {
			return err
		}
		e.program = prog
		e.regFile.SetPC(prog.Entry)
		return nil
	})
}

// LoadBytes places raw machine code at entry and points the PC at it.
func (e *Emulator) LoadBytes(entry uint32, code []byte) error {
	return e.loadWith(func() error {
		if err := e.memory.LoadBytes(entry, code); err != nil {
			return err
		}
		e.program = nil
		e.regFile.SetPC(entry)
		return nil
	})
}

// Reset repeats the last load.
func (e *Emulator) Reset() error {
	if e.reload == nil {
		return fmt.Errorf("reset: no program loaded")
	}
	return e.loadWith(e.reload)
}

func (e *Emulator) loadWith(load func() error) error {
	e.memory.Clear()
	e.regFile.Reset()
	e.steps = 0
	e.halted = false
	e.paused = false
	e.reload = nil

	if err := load(); err != nil {
		return err
	}

	e.regFile.SetSP(e.stackPointer)
	e.reload = load
	return nil
}

// Fetch returns the word at the PC, or 0 when the program has halted or
// nothing is loaded.
func (e *Emulator) Fetch() uint32 {
	if e.halted || e.reload == nil {
		return 0
	}
	word, err := e.memory.Read32(e.regFile.PC())
	if err != nil {
		return 0
	}
	return word
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	if e.halted {
		return StepResult{Halted: true}
	}
	if e.maxSteps > 0 && e.steps >= e.maxSteps {
		return StepResult{Err: fmt.Errorf("after %d steps: %w", e.steps, ErrStepLimit)}
	}

	// 1. Fetch
	addr := e.regFile.PC()
	word, err := e.memory.Read32(addr)
	if err != nil {
		return StepResult{Err: fmt.Errorf("fetch at 0x%08X: %w", addr, err)}
	}
	if e.observer != nil {
		e.observer.Fetch(addr)
	}

	// 2. Decode
	inst := e.decoder.DecodeAt(word, addr)

	// 3. Execute. r15 reads as addr+8 while the instruction runs.
	e.regFile.SetPC(addr + 8)
	pcWritten, err := e.execute(inst)
	if err != nil {
		e.regFile.SetPC(addr)
		return StepResult{Inst: inst, Err: fmt.Errorf("%q at 0x%08X: %w", inst, addr, err)}
	}
	if !pcWritten {
		e.regFile.SetPC(e.regFile.PC() - 4)
	}

	// 4. Software interrupts
	if inst.Format == insts.FormatSoftwareInterrupt && inst.Executed {
		res := e.swiHandler.Handle(inst.SWI)
		if res.Err != nil {
			return StepResult{Inst: inst, Err: fmt.Errorf("swi 0x%X at 0x%08X: %w", inst.SWI, addr, res.Err)}
		}
		if res.Halted {
			e.halted = true
		}
	}

	if e.observer != nil {
		e.observer.Retire(inst)
	}
	e.steps++

	rec := e.traceRecord(addr, inst)
	if e.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		e.log.WithFields(logrus.Fields{
			"step":     rec.Step,
			"pc":       fmt.Sprintf("0x%08X", addr),
			"word":     fmt.Sprintf("0x%08X", word),
			"inst":     inst.String(),
			"executed": inst.Executed,
		}).Debug("step")
	}

	e.host.StepCompleted(rec)
	for _, fn := range e.stepObservers {
		fn(rec)
	}

	return StepResult{Inst: inst, Trace: rec, Halted: e.halted}
}

// execute evaluates the condition and performs the instruction. It reports
// whether the instruction wrote the PC itself.
func (e *Emulator) execute(inst *insts.Instruction) (bool, error) {
	if !e.branchUnit.CheckCondition(inst.Cond) {
		return false, nil
	}
	inst.Executed = true

	switch inst.Format {
	case insts.FormatDataProcessing:
		return e.alu.DataProcessing(inst), nil
	case insts.FormatMultiply:
		return e.alu.Multiply(inst), nil
	case insts.FormatLoadStore:
		return e.lsu.Transfer(inst)
	case insts.FormatLoadStoreMultiple:
		return e.lsu.Multiple(inst)
	case insts.FormatBranch:
		e.branchUnit.Branch(inst)
		return true, nil
	case insts.FormatBranchExchange:
		e.branchUnit.BranchExchange(inst)
		return false, nil
	default:
		// SWI side effects run after the PC is settled; unknown
		// encodings are no-ops.
		return false, nil
	}
}

func (e *Emulator) traceRecord(addr uint32, inst *insts.Instruction) *TraceRecord {
	rec := &TraceRecord{
		Step:     e.steps,
		Addr:     addr,
		Inst:     inst,
		Checksum: e.memory.Checksum(),
		Flags:    e.regFile.Flags(),
	}
	regs := e.regFile.Snapshot()
	copy(rec.Registers[:], regs[:15])
	return rec
}

// Run executes instructions until the program halts, a breakpoint matches,
// the instruction limit is reached, a step fails or ctx is cancelled. A Run
// that starts at the address where the previous one paused executes that
// instruction without consulting the breakpoint again.
func (e *Emulator) Run(ctx context.Context) RunResult {
	var steps uint64

	if e.reload == nil {
		return RunResult{Reason: StopIdle}
	}

	resuming := e.paused
	e.paused = false

	for {
		if e.halted {
			return RunResult{Reason: StopHalted, Steps: steps}
		}
		if err := ctx.Err(); err != nil {
			return RunResult{Reason: StopCancelled, Steps: steps, Err: err}
		}

		pc := e.regFile.PC()
		skip := resuming && steps == 0 && pc == e.pausedAt
		if !skip && e.host.BreakBefore(pc) {
			e.paused = true
			e.pausedAt = pc
			e.log.WithField("pc", fmt.Sprintf("0x%08X", pc)).Info("breakpoint")
			return RunResult{Reason: StopPaused, Steps: steps}
		}

		res := e.Step()
		if res.Err != nil {
			if errors.Is(res.Err, ErrStepLimit) {
				return RunResult{Reason: StopLimit, Steps: steps, Err: res.Err}
			}
			e.log.WithError(res.Err).Error("step failed")
			return RunResult{Reason: StopFault, Steps: steps, Err: res.Err}
		}
		steps++
	}
}

// Disassemble decodes n words starting at addr without executing them.
// Words outside memory are not returned.
func (e *Emulator) Disassemble(addr uint32, n int) []*insts.Instruction {
	out := make([]*insts.Instruction, 0, n)
	for i := 0; i < n; i++ {
		at := addr + uint32(i)*4
		word, err := e.memory.Read32(at)
		if err != nil {
			break
		}
		out = append(out, e.decoder.DecodeAt(word, at))
	}
	return out
}
