// Package insts provides ARM (32-bit) instruction definitions and decoding.
//
// This package implements decoding of ARM machine code into structured
// instruction representations. It supports:
//   - Data Processing: AND, EOR, SUB, RSB, ADD, ORR, MOV, BIC, MVN, CMP
//     with rotated-immediate, immediate-shift and register-shift operands
//   - Load/Store: LDR, STR, LDRB, STRB with immediate or register offsets
//   - Load/Store Multiple: LDM, STM
//   - Multiply: MUL
//   - Branch instructions: B, BL, BX
//   - Software interrupt: SWI
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0xE3A02030) // MOV R2, #48
//	fmt.Printf("Op: %v, Rd: %d, Imm: %d\n", inst.Op, inst.Rd, inst.Imm)
//	fmt.Println(inst) // mov r2, #48
package insts
