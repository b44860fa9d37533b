package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/armsim/emu"
)

var _ = Describe("RegFile", func() {
	var regs *emu.RegFile

	BeforeEach(func() {
		regs = emu.NewRegFile()
	})

	It("should read back written registers", func() {
		regs.WriteReg(0, 1)
		regs.WriteReg(12, 0xCAFEBABE)

		Expect(regs.ReadReg(0)).To(Equal(uint32(1)))
		Expect(regs.ReadReg(12)).To(Equal(uint32(0xCAFEBABE)))
	})

	It("should alias PC and SP to r15 and r13", func() {
		regs.SetPC(0x100)
		regs.SetSP(0x7000)

		Expect(regs.ReadReg(15)).To(Equal(uint32(0x100)))
		Expect(regs.ReadReg(13)).To(Equal(uint32(0x7000)))
	})

	It("should keep the flags in the top bits of the CPSR", func() {
		regs.SetFlags(emu.Flags{N: true, V: true})

		Expect(regs.CPSR()).To(Equal(uint32(0x90000000)))
		Expect(regs.Flags()).To(Equal(emu.Flags{N: true, V: true}))
		Expect(regs.Flags().String()).To(Equal("1001"))
	})

	It("should expose the Thumb bit", func() {
		regs.SetFlag(emu.BitThumb, true)
		Expect(regs.Thumb()).To(BeTrue())
		Expect(regs.CPSR()).To(Equal(uint32(0x20)))
	})

	It("should snapshot r0-r15", func() {
		for i := 0; i < 16; i++ {
			regs.WriteReg(uint8(i), uint32(i*10))
		}

		snap := regs.Snapshot()
		Expect(snap[0]).To(Equal(uint32(0)))
		Expect(snap[15]).To(Equal(uint32(150)))
	})

	It("should clear everything on reset", func() {
		regs.WriteReg(3, 3)
		regs.SetCPSR(0xF0000000)
		regs.Reset()

		Expect(regs.ReadReg(3)).To(BeZero())
		Expect(regs.CPSR()).To(BeZero())
	})
})
