package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/armsim/emu"
	"github.com/sarchlab/armsim/insts"
)

var _ = Describe("BranchUnit", func() {
	DescribeTable("ConditionPassed",
		func(cond insts.Cond, f emu.Flags, expected bool) {
			Expect(emu.ConditionPassed(cond, f)).To(Equal(expected))
		},
		Entry("EQ with Z", insts.CondEQ, emu.Flags{Z: true}, true),
		Entry("EQ without Z", insts.CondEQ, emu.Flags{}, false),
		Entry("NE without Z", insts.CondNE, emu.Flags{}, true),
		Entry("CS with C", insts.CondCS, emu.Flags{C: true}, true),
		Entry("CC with C", insts.CondCC, emu.Flags{C: true}, false),
		Entry("MI with N", insts.CondMI, emu.Flags{N: true}, true),
		Entry("PL with N", insts.CondPL, emu.Flags{N: true}, false),
		Entry("VS with V", insts.CondVS, emu.Flags{V: true}, true),
		Entry("VC with V", insts.CondVC, emu.Flags{V: true}, false),
		Entry("HI with C and not Z", insts.CondHI, emu.Flags{C: true}, true),
		Entry("HI with C and Z", insts.CondHI, emu.Flags{C: true, Z: true}, false),
		Entry("LS with Z", insts.CondLS, emu.Flags{C: true, Z: true}, true),
		Entry("GE with N == V", insts.CondGE, emu.Flags{N: true, V: true}, true),
		Entry("LT with N != V", insts.CondLT, emu.Flags{N: true}, true),
		Entry("GT with Z", insts.CondGT, emu.Flags{Z: true}, false),
		Entry("GT with N == V and not Z", insts.CondGT, emu.Flags{}, true),
		Entry("LE with N != V", insts.CondLE, emu.Flags{V: true}, true),
		Entry("AL", insts.CondAL, emu.Flags{}, true),
		Entry("reserved code", insts.CondNV, emu.Flags{}, false),
	)

	Describe("branches", func() {
		var (
			regs    *emu.RegFile
			unit    *emu.BranchUnit
			decoder *insts.Decoder
		)

		BeforeEach(func() {
			regs = emu.NewRegFile()
			unit = emu.NewBranchUnit(regs)
			decoder = insts.NewDecoder()
		})

		It("should save the return address for BL", func() {
			// BL executed at 0x100; r15 reads as 0x108
			regs.SetPC(0x108)
			unit.Branch(decoder.DecodeAt(0xEB000002, 0x100))

			Expect(regs.PC()).To(Equal(uint32(0x110)))
			Expect(regs.ReadReg(insts.RegLR)).To(Equal(uint32(0x104)))
		})

		It("should not touch the link register for B", func() {
			regs.SetPC(0x108)
			unit.Branch(decoder.DecodeAt(0xEA000002, 0x100))
			Expect(regs.ReadReg(insts.RegLR)).To(BeZero())
		})

		It("should clear bit 0 of the BX target", func() {
			regs.WriteReg(1, 0x41)
			unit.BranchExchange(decoder.Decode(0xE12FFF11)) // bx r1

			Expect(regs.PC()).To(Equal(uint32(0x44)))
		})

		It("should take the state bit from the instruction word", func() {
			regs.WriteReg(2, 0x41)
			unit.BranchExchange(decoder.Decode(0xE12FFF12)) // bx r2
			Expect(regs.Thumb()).To(BeFalse())
			Expect(regs.PC()).To(Equal(uint32(0x44)))

			regs.WriteReg(3, 0x40)
			unit.BranchExchange(decoder.Decode(0xE12FFF13)) // bx r3
			Expect(regs.Thumb()).To(BeTrue())
		})
	})
})
