package benchmarks

import (
	"github.com/sarchlab/armsim/emu"
	"github.com/sarchlab/armsim/insts"
)

// Register numbers used by the programs.
const (
	r0 uint8 = iota
	r1
	r2
	r3
	r4
	sp = insts.RegSP
	lr = insts.RegLR
	pc = insts.RegPC
)

const dataAddr = 0x1000

// GetMicrobenchmarks returns every benchmark. Each one exercises a single
// part of the instruction set and validates its own result.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		sumLoop(),
		memorySequential(),
		functionCalls(),
		nestedCall(),
		factorial(),
		conditionalMax(),
		arraySum(),
		helloOutput(),
		readEcho(),
	}
}

// GetCoreBenchmarks returns a small set covering loops, memory and calls
// for quick validation.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		sumLoop(),
		arraySum(),
		nestedCall(),
	}
}

// writeString stores s followed by a NUL at addr.
func writeString(memory *emu.Memory, addr uint32, s string) {
	for i := 0; i < len(s); i++ {
		memory.Write8(addr+uint32(i), s[i])
	}
	memory.Write8(addr+uint32(len(s)), 0)
}

func arithmeticSequential() Benchmark {
	instrs := make([]uint32, 0, 21)
	for i := 0; i < 4; i++ {
		for r := r0; r <= r4; r++ {
			instrs = append(instrs, EncodeADDImm(r, r, 1))
		}
	}
	instrs = append(instrs, EncodeSWI(insts.SWIExit))

	return Benchmark{
		Name:         "arithmetic_sequential",
		Description:  "20 independent ADDs across five registers",
		Program:      BuildProgram(instrs...),
		ExpectedRegs: map[uint8]uint32{r0: 4, r1: 4, r2: 4, r3: 4, r4: 4},
	}
}

func sumLoop() Benchmark {
	return Benchmark{
		Name:        "sum_loop",
		Description: "Sum 10 down to 1 with a counted loop",
		Program: BuildProgram(
			EncodeMOVImm(r0, 0),                  // 0x00
			EncodeMOVImm(r1, 10),                 // 0x04
			EncodeADDReg(r0, r0, r1),             // 0x08 loop:
			EncodeSUBImm(r1, r1, 1),              // 0x0C
			EncodeCMPImm(r1, 0),                  // 0x10
			EncodeBCond(insts.CondNE, 0x08-0x14), // 0x14
			EncodeSWI(insts.SWIExit),             // 0x18
		),
		ExpectedRegs: map[uint8]uint32{r0: 55, r1: 0},
	}
}

func memorySequential() Benchmark {
	instrs := []uint32{
		EncodeMOVImm(r1, dataAddr),
		EncodeMOVImm(r0, 42),
		EncodeMOVImm(r3, 0),
	}
	for i := int32(0); i < 10; i++ {
		instrs = append(instrs,
			EncodeSTRImm(r0, r1, 4*i),
			EncodeLDRImm(r2, r1, 4*i),
			EncodeADDReg(r3, r3, r2),
		)
	}
	instrs = append(instrs, EncodeSWI(insts.SWIExit))

	return Benchmark{
		Name:         "memory_sequential",
		Description:  "10 store/load pairs to sequential words",
		Program:      BuildProgram(instrs...),
		ExpectedRegs: map[uint8]uint32{r2: 42, r3: 420},
	}
}

func functionCalls() Benchmark {
	return Benchmark{
		Name:        "function_calls",
		Description: "5 BL/BX pairs into a one-instruction function",
		Program: BuildProgram(
			EncodeMOVImm(r0, 0),      // 0x00
			EncodeBL(0x1C-0x04),      // 0x04
			EncodeBL(0x1C-0x08),      // 0x08
			EncodeBL(0x1C-0x0C),      // 0x0C
			EncodeBL(0x1C-0x10),      // 0x10
			EncodeBL(0x1C-0x14),      // 0x14
			EncodeSWI(insts.SWIExit), // 0x18
			EncodeADDImm(r0, r0, 1),  // 0x1C add_one:
			EncodeBX(lr),             // 0x20
		),
		ExpectedRegs: map[uint8]uint32{r0: 5, lr: 0x18},
	}
}

func nestedCall() Benchmark {
	return Benchmark{
		Name:        "nested_call",
		Description: "Callee-saved register preserved across a call with push/pop",
		Program: BuildProgram(
			EncodeMOVImm(r4, 7),      // 0x00
			EncodeMOVImm(r0, 1),      // 0x04
			EncodeBL(0x14-0x08),      // 0x08
			EncodeADDReg(r0, r0, r4), // 0x0C
			EncodeSWI(insts.SWIExit), // 0x10
			EncodeSTM(sp, r4, lr),    // 0x14 callee:
			EncodeMOVImm(r4, 100),    // 0x18
			EncodeADDReg(r0, r0, r4), // 0x1C
			EncodeLDM(sp, r4, pc),    // 0x20
		),
		ExpectedRegs: map[uint8]uint32{r0: 108, r4: 7, sp: 0x7000},
	}
}

func factorial() Benchmark {
	return Benchmark{
		Name:        "factorial",
		Description: "5! with a MUL loop",
		Program: BuildProgram(
			EncodeMOVImm(r0, 1),                  // 0x00
			EncodeMOVImm(r1, 5),                  // 0x04
			EncodeMUL(r2, r0, r1),                // 0x08 loop:
			EncodeMOVReg(r0, r2),                 // 0x0C
			EncodeSUBImm(r1, r1, 1),              // 0x10
			EncodeCMPImm(r1, 1),                  // 0x14
			EncodeBCond(insts.CondGT, 0x08-0x18), // 0x18
			EncodeSWI(insts.SWIExit),             // 0x1C
		),
		ExpectedRegs: map[uint8]uint32{r0: 120, r1: 1},
	}
}

func conditionalMax() Benchmark {
	return Benchmark{
		Name:        "conditional_max",
		Description: "Branch-free maximum with conditional moves",
		Program: BuildProgram(
			EncodeMOVImm(r1, 17),
			EncodeMOVImm(r2, 42),
			EncodeCMPReg(r1, r2),
			WithCond(EncodeMOVReg(r0, r1), insts.CondGE),
			WithCond(EncodeMOVReg(r0, r2), insts.CondLT),
			EncodeSWI(insts.SWIExit),
		),
		ExpectedRegs: map[uint8]uint32{r0: 42},
	}
}

var arraySumData = []uint32{3, 1, 4, 1, 5, 9, 2, 6}

func arraySum() Benchmark {
	return Benchmark{
		Name:        "array_sum",
		Description: "Sum an 8-word array with scaled register offsets",
		Setup: func(_ *emu.RegFile, memory *emu.Memory) {
			for i, v := range arraySumData {
				_ = memory.Write32(dataAddr+uint32(4*i), v)
			}
		},
		Program: BuildProgram(
			EncodeMOVImm(r1, dataAddr),           // 0x00
			EncodeMOVImm(r2, 0),                  // 0x04
			EncodeMOVImm(r0, 0),                  // 0x08
			EncodeLDRRegLSL(r3, r1, r2, 2),       // 0x0C loop:
			EncodeADDReg(r0, r0, r3),             // 0x10
			EncodeADDImm(r2, r2, 1),              // 0x14
			EncodeCMPImm(r2, 8),                  // 0x18
			EncodeBCond(insts.CondLT, 0x0C-0x1C), // 0x1C
			EncodeSWI(insts.SWIExit),             // 0x20
		),
		ExpectedRegs: map[uint8]uint32{r0: 31, r2: 8},
	}
}

// printString writes the NUL-terminated string at r1 with SWI 0x00, then
// halts. Offsets in the comments are relative to its first instruction.
func printString() []uint32 {
	return []uint32{
		EncodeLDRBImm(r0, r1, 0),             // +0x00 loop:
		EncodeCMPImm(r0, 0),                  // +0x04
		EncodeBCond(insts.CondEQ, 0x18-0x08), // +0x08
		EncodeSWI(insts.SWIPutChar),          // +0x0C
		EncodeADDImm(r1, r1, 1),              // +0x10
		EncodeB(0x00 - 0x14),                 // +0x14
		EncodeSWI(insts.SWIExit),             // +0x18 done:
	}
}

func helloOutput() Benchmark {
	const msg = "Hello, ARM!\n"

	instrs := []uint32{EncodeMOVImm(r1, dataAddr)}
	instrs = append(instrs, printString()...)

	return Benchmark{
		Name:        "hello_output",
		Description: "Print a string one character at a time",
		Setup: func(_ *emu.RegFile, memory *emu.Memory) {
			writeString(memory, dataAddr, msg)
		},
		Program:        BuildProgram(instrs...),
		ExpectedRegs:   map[uint8]uint32{r0: 0, r1: dataAddr + uint32(len(msg))},
		ExpectedOutput: msg,
	}
}

func readEcho() Benchmark {
	instrs := []uint32{
		EncodeMOVImm(r1, dataAddr),
		EncodeMOVImm(r2, 32),
		EncodeSWI(insts.SWIReadLine),
		EncodeMOVReg(r3, r0),
	}
	instrs = append(instrs, printString()...)

	return Benchmark{
		Name:           "read_echo",
		Description:    "Read a line of input and echo it back",
		Input:          []string{"echo me"},
		Program:        BuildProgram(instrs...),
		ExpectedRegs:   map[uint8]uint32{r3: 7},
		ExpectedOutput: "echo me",
	}
}
