package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/armsim/insts"
)

var _ = Describe("Insts Package", func() {
	It("should have an Instruction type", func() {
		var i insts.Instruction
		Expect(i.Format).To(Equal(insts.FormatUnknown))
		Expect(i.Executed).To(BeFalse())
	})

	It("should have a Decoder type", func() {
		decoder := insts.NewDecoder()
		Expect(decoder).ToNot(BeNil())
	})

	Describe("bit helpers", func() {
		It("should mask a range in place", func() {
			Expect(insts.ExtractBits(0xF0F0F0F0, 4, 7)).To(Equal(uint32(0xF0)))
			Expect(insts.ExtractBits(0xF0F0F0F0, 0, 3)).To(Equal(uint32(0)))
		})

		It("should return the whole word for [0, 31]", func() {
			Expect(insts.ExtractBits(0xDEADBEEF, 0, 31)).To(Equal(uint32(0xDEADBEEF)))
		})

		It("should shift a range down to bit 0", func() {
			Expect(insts.ShiftToEnd(0xE3A02030, 28, 31)).To(Equal(uint32(0xE)))
			Expect(insts.ShiftToEnd(0xE3A02030, 12, 15)).To(Equal(uint32(2)))
			Expect(insts.ShiftToEnd(0x80000000, 31, 31)).To(Equal(uint32(1)))
		})

		It("should panic on a reversed range", func() {
			Expect(func() { insts.ExtractBits(1, 5, 4) }).To(Panic())
		})

		It("should panic past bit 31", func() {
			Expect(func() { insts.ShiftToEnd(1, 0, 32) }).To(Panic())
		})
	})
})
