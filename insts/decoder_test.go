package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/armsim/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("Data Processing", func() {
		// MOV r2, #48 -> 0xE3A02030
		It("should decode MOV r2, #48", func() {
			inst := decoder.Decode(0xE3A02030)

			Expect(inst.Format).To(Equal(insts.FormatDataProcessing))
			Expect(inst.Op).To(Equal(insts.OpMOV))
			Expect(inst.Cond).To(Equal(insts.CondAL))
			Expect(inst.Type).To(Equal(uint8(0b001)))
			Expect(inst.Rd).To(Equal(uint8(2)))
			Expect(inst.Operand).To(Equal(insts.OperandImmediate))
			Expect(inst.RotatedImm()).To(Equal(uint32(48)))
			Expect(inst.SetFlags).To(BeFalse())
			Expect(inst.String()).To(Equal("mov r2, #48"))
		})

		// MOV r0, #0xFF000000 -> imm 0xFF rotated right by 8
		It("should rotate the immediate", func() {
			inst := decoder.Decode(0xE3A004FF)

			Expect(inst.Imm).To(Equal(uint32(0xFF)))
			Expect(inst.Rotate).To(Equal(uint8(4)))
			Expect(inst.RotatedImm()).To(Equal(uint32(0xFF000000)))
		})

		// ADD r0, r1, r2 -> 0xE0810002
		It("should decode a register operand", func() {
			inst := decoder.Decode(0xE0810002)

			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(inst.Rd).To(Equal(uint8(0)))
			Expect(inst.Rn).To(Equal(uint8(1)))
			Expect(inst.Rm).To(Equal(uint8(2)))
			Expect(inst.Operand).To(Equal(insts.OperandShiftByImm))
			Expect(inst.ShiftAmount).To(Equal(uint8(0)))
			Expect(inst.String()).To(Equal("add r0, r1, r2"))
		})

		// ADD r0, r1, r2, LSL #2 -> 0xE0810102
		It("should decode an immediate shift", func() {
			inst := decoder.Decode(0xE0810102)

			Expect(inst.ShiftType).To(Equal(insts.ShiftLSL))
			Expect(inst.ShiftAmount).To(Equal(uint8(2)))
			Expect(inst.String()).To(Equal("add r0, r1, r2, lsl #2"))
		})

		// MOV r0, r1, LSL r2 -> 0xE1A00211
		It("should decode a register shift", func() {
			inst := decoder.Decode(0xE1A00211)

			Expect(inst.Format).To(Equal(insts.FormatDataProcessing))
			Expect(inst.Operand).To(Equal(insts.OperandShiftByReg))
			Expect(inst.Rm).To(Equal(uint8(1)))
			Expect(inst.Rs).To(Equal(uint8(2)))
			Expect(inst.String()).To(Equal("mov r0, r1, lsl r2"))
		})

		// CMP r1, #10 -> 0xE351000A
		It("should decode CMP without a destination", func() {
			inst := decoder.Decode(0xE351000A)

			Expect(inst.Op).To(Equal(insts.OpCMP))
			Expect(inst.SetFlags).To(BeTrue())
			Expect(inst.Rn).To(Equal(uint8(1)))
			Expect(inst.String()).To(Equal("cmp r1, #10"))
		})

		It("should add the condition and S suffixes", func() {
			Expect(decoder.Decode(0x00810002).String()).To(Equal("addeq r0, r1, r2"))
			Expect(decoder.Decode(0xE3B00001).String()).To(Equal("movs r0, #1"))
			Expect(decoder.Decode(0xF3A02030).Cond).To(Equal(insts.CondNV))
		})
	})

	Describe("Multiply", func() {
		// MUL r1, r2, r3 -> 0xE0010392
		It("should decode MUL r1, r2, r3", func() {
			inst := decoder.Decode(0xE0010392)

			Expect(inst.Format).To(Equal(insts.FormatMultiply))
			Expect(inst.Op).To(Equal(insts.OpMUL))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Rm).To(Equal(uint8(2)))
			Expect(inst.Rs).To(Equal(uint8(3)))
			Expect(inst.String()).To(Equal("mul r1, r2, r3"))
		})
	})

	Describe("Load/Store", func() {
		// LDR r0, [r1, #4] -> 0xE5910004
		It("should decode an immediate offset load", func() {
			inst := decoder.Decode(0xE5910004)

			Expect(inst.Format).To(Equal(insts.FormatLoadStore))
			Expect(inst.Op).To(Equal(insts.OpLDR))
			Expect(inst.Load).To(BeTrue())
			Expect(inst.PreIndex).To(BeTrue())
			Expect(inst.Up).To(BeTrue())
			Expect(inst.Byte).To(BeFalse())
			Expect(inst.WriteBack).To(BeFalse())
			Expect(inst.Rn).To(Equal(uint8(1)))
			Expect(inst.Rd).To(Equal(uint8(0)))
			Expect(inst.Imm).To(Equal(uint32(4)))
			Expect(inst.String()).To(Equal("ldr r0, [r1, #4]"))
		})

		// STRB r2, [r3, #-1]! -> 0xE5632001
		It("should decode a byte store with write-back", func() {
			inst := decoder.Decode(0xE5632001)

			Expect(inst.Op).To(Equal(insts.OpSTR))
			Expect(inst.Byte).To(BeTrue())
			Expect(inst.Up).To(BeFalse())
			Expect(inst.WriteBack).To(BeTrue())
			Expect(inst.String()).To(Equal("strb r2, [r3, #-1]!"))
		})

		// LDR r0, [r1, r2, LSL #2] -> 0xE7910102
		It("should decode a scaled register offset", func() {
			inst := decoder.Decode(0xE7910102)

			Expect(inst.Operand).To(Equal(insts.OperandShiftByImm))
			Expect(inst.Rm).To(Equal(uint8(2)))
			Expect(inst.ShiftAmount).To(Equal(uint8(2)))
			Expect(inst.String()).To(Equal("ldr r0, [r1, r2, lsl #2]"))
		})
	})

	Describe("Load/Store Multiple", func() {
		// STMDB sp!, {r4, lr} -> 0xE92D4010
		It("should decode STMDB with write-back", func() {
			inst := decoder.Decode(0xE92D4010)

			Expect(inst.Format).To(Equal(insts.FormatLoadStoreMultiple))
			Expect(inst.Op).To(Equal(insts.OpSTM))
			Expect(inst.PreIndex).To(BeTrue())
			Expect(inst.Up).To(BeFalse())
			Expect(inst.WriteBack).To(BeTrue())
			Expect(inst.Rn).To(Equal(insts.RegSP))
			Expect(inst.RegList).To(Equal([]uint8{4, 14}))
			Expect(inst.String()).To(Equal("stmdb r13!, {r4, r14}"))
		})

		// LDMIA sp!, {r4, pc} -> 0xE8BD8010
		It("should decode LDMIA in ascending register order", func() {
			inst := decoder.Decode(0xE8BD8010)

			Expect(inst.Op).To(Equal(insts.OpLDM))
			Expect(inst.RegList).To(Equal([]uint8{4, 15}))
			Expect(inst.String()).To(Equal("ldmia r13!, {r4, r15}"))
		})
	})

	Describe("Branch", func() {
		It("should resolve a forward target from the fetch address", func() {
			inst := decoder.DecodeAt(0xEA000002, 0x100)

			Expect(inst.Format).To(Equal(insts.FormatBranch))
			Expect(inst.Op).To(Equal(insts.OpB))
			Expect(inst.Link).To(BeFalse())
			Expect(inst.BranchOffset).To(Equal(int32(8)))
			Expect(inst.Target).To(Equal(uint32(0x110)))
			Expect(inst.String()).To(Equal("b #0x110"))
		})

		It("should sign-extend a backward offset", func() {
			inst := decoder.DecodeAt(0xEBFFFFFE, 0x200)

			Expect(inst.Op).To(Equal(insts.OpBL))
			Expect(inst.BranchOffset).To(Equal(int32(-8)))
			Expect(inst.Target).To(Equal(uint32(0x200)))
		})

		It("should keep the condition of a conditional branch", func() {
			inst := decoder.DecodeAt(0x1AFFFFFD, 0x20)

			Expect(inst.Cond).To(Equal(insts.CondNE))
			Expect(inst.Target).To(Equal(uint32(0x1C)))
			Expect(inst.String()).To(Equal("bne #0x1C"))
		})
	})

	Describe("Branch and Exchange", func() {
		// BX lr -> 0xE12FFF1E
		It("should decode BX before data processing", func() {
			inst := decoder.Decode(0xE12FFF1E)

			Expect(inst.Format).To(Equal(insts.FormatBranchExchange))
			Expect(inst.Op).To(Equal(insts.OpBX))
			Expect(inst.Rm).To(Equal(insts.RegLR))
			Expect(inst.String()).To(Equal("bx r14"))
			Expect(inst.Thumb).To(BeFalse())
		})

		It("should extract bit 0 of the word", func() {
			Expect(decoder.Decode(0xE12FFF13).Thumb).To(BeTrue()) // bx r3
		})
	})

	Describe("Software Interrupt", func() {
		It("should decode the vector", func() {
			inst := decoder.Decode(0xEF000011)

			Expect(inst.Format).To(Equal(insts.FormatSoftwareInterrupt))
			Expect(inst.SWI).To(Equal(insts.SWIExit))
			Expect(inst.String()).To(Equal("swi #0x11"))
		})
	})

	Describe("Unknown encodings", func() {
		It("should decode to an unknown instruction instead of failing", func() {
			inst := decoder.Decode(0xEC000000)

			Expect(inst.Format).To(Equal(insts.FormatUnknown))
			Expect(inst.Op).To(Equal(insts.OpUnknown))
			Expect(inst.Raw).To(Equal(uint32(0xEC000000)))
			Expect(inst.String()).To(Equal(".word 0xEC000000"))
		})
	})
})
