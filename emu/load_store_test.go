package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/armsim/emu"
	"github.com/sarchlab/armsim/insts"
)

type access struct {
	addr  uint32
	size  int
	store bool
}

// recordingObserver remembers every notification it receives.
type recordingObserver struct {
	fetches  []uint32
	accesses []access
	retired  []*insts.Instruction
}

func (o *recordingObserver) Fetch(addr uint32) {
	o.fetches = append(o.fetches, addr)
}

func (o *recordingObserver) Load(addr uint32, size int) {
	o.accesses = append(o.accesses, access{addr: addr, size: size})
}

func (o *recordingObserver) Store(addr uint32, size int, _ uint32) {
	o.accesses = append(o.accesses, access{addr: addr, size: size, store: true})
}

func (o *recordingObserver) Retire(inst *insts.Instruction) {
	o.retired = append(o.retired, inst)
}

var _ = Describe("LoadStoreUnit", func() {
	var (
		regs     *emu.RegFile
		mem      *emu.Memory
		observer *recordingObserver
		lsu      *emu.LoadStoreUnit
		decoder  *insts.Decoder
	)

	BeforeEach(func() {
		regs = emu.NewRegFile()
		mem = emu.NewMemory(0x1000)
		observer = &recordingObserver{}
		lsu = emu.NewLoadStoreUnit(regs, mem, observer)
		decoder = insts.NewDecoder()
	})

	Describe("Transfer", func() {
		It("should store and load a word", func() {
			regs.WriteReg(0, 0xDEADBEEF)
			regs.WriteReg(1, 0x100)

			_, err := lsu.Transfer(decoder.Decode(0xE5810004)) // str r0, [r1, #4]
			Expect(err).NotTo(HaveOccurred())
			w, _ := mem.Read32(0x104)
			Expect(w).To(Equal(uint32(0xDEADBEEF)))

			_, err = lsu.Transfer(decoder.Decode(0xE5913004)) // ldr r3, [r1, #4]
			Expect(err).NotTo(HaveOccurred())
			Expect(regs.ReadReg(3)).To(Equal(uint32(0xDEADBEEF)))

			Expect(observer.accesses).To(Equal([]access{
				{addr: 0x104, size: 4, store: true},
				{addr: 0x104, size: 4},
			}))
		})

		It("should store only the low byte for STRB", func() {
			regs.WriteReg(0, 0x12345678)
			regs.WriteReg(1, 0x201)

			_, err := lsu.Transfer(decoder.Decode(0xE5C10000)) // strb r0, [r1]
			Expect(err).NotTo(HaveOccurred())
			Expect(mem.Read8(0x201)).To(Equal(byte(0x78)))
			Expect(mem.Read8(0x202)).To(BeZero())
		})

		It("should zero-extend LDRB", func() {
			mem.Write8(0x203, 0xFF)
			regs.WriteReg(1, 0x203)

			_, err := lsu.Transfer(decoder.Decode(0xE5D10000)) // ldrb r0, [r1]
			Expect(err).NotTo(HaveOccurred())
			Expect(regs.ReadReg(0)).To(Equal(uint32(0xFF)))
		})

		It("should subtract the offset and write back the address", func() {
			Expect(mem.Write32(0x100, 7)).To(Succeed())
			regs.WriteReg(1, 0x104)

			_, err := lsu.Transfer(decoder.Decode(0xE5310004)) // ldr r0, [r1, #-4]!
			Expect(err).NotTo(HaveOccurred())
			Expect(regs.ReadReg(0)).To(Equal(uint32(7)))
			Expect(regs.ReadReg(1)).To(Equal(uint32(0x100)))
		})

		It("should scale a register offset", func() {
			Expect(mem.Write32(0x10C, 3)).To(Succeed())
			regs.WriteReg(1, 0x100)
			regs.WriteReg(2, 3)

			Expect(lsu.EffectiveAddress(decoder.Decode(0xE7910102))).To(Equal(uint32(0x10C)))
			_, err := lsu.Transfer(decoder.Decode(0xE7910102)) // ldr r0, [r1, r2, lsl #2]
			Expect(err).NotTo(HaveOccurred())
			Expect(regs.ReadReg(0)).To(Equal(uint32(3)))
		})

		It("should report a misaligned word access", func() {
			regs.WriteReg(1, 0x101)
			_, err := lsu.Transfer(decoder.Decode(0xE5910000)) // ldr r0, [r1]
			Expect(err).To(MatchError(emu.ErrAlignment))
		})

		It("should report an access outside memory", func() {
			regs.WriteReg(1, 0x1000)
			_, err := lsu.Transfer(decoder.Decode(0xE5910000)) // ldr r0, [r1]
			Expect(err).To(MatchError(emu.ErrOutOfBounds))
		})

		It("should report a load into the PC", func() {
			regs.WriteReg(1, 0x100)
			pcWritten, err := lsu.Transfer(decoder.Decode(0xE591F000)) // ldr pc, [r1]
			Expect(err).NotTo(HaveOccurred())
			Expect(pcWritten).To(BeTrue())
		})
	})

	Describe("Multiple", func() {
		BeforeEach(func() {
			regs.SetSP(0x800)
		})

		It("should push with STMDB and pop with LDMIA", func() {
			regs.WriteReg(4, 1)
			regs.WriteReg(14, 2)

			_, err := lsu.Multiple(decoder.Decode(0xE92D4010)) // stmdb sp!, {r4, lr}
			Expect(err).NotTo(HaveOccurred())
			Expect(regs.SP()).To(Equal(uint32(0x7F8)))

			w, _ := mem.Read32(0x7F8)
			Expect(w).To(Equal(uint32(1)))
			w, _ = mem.Read32(0x7FC)
			Expect(w).To(Equal(uint32(2)))

			regs.WriteReg(4, 0)
			regs.WriteReg(5, 0)
			_, err = lsu.Multiple(decoder.Decode(0xE8BD0030)) // ldmia sp!, {r4, r5}
			Expect(err).NotTo(HaveOccurred())
			Expect(regs.ReadReg(4)).To(Equal(uint32(1)))
			Expect(regs.ReadReg(5)).To(Equal(uint32(2)))
			Expect(regs.SP()).To(Equal(uint32(0x800)))
		})

		It("should report a pop into the PC", func() {
			Expect(mem.Write32(0x800, 0x40)).To(Succeed())
			pcWritten, err := lsu.Multiple(decoder.Decode(0xE8BD8000)) // ldmia sp!, {pc}
			Expect(err).NotTo(HaveOccurred())
			Expect(pcWritten).To(BeTrue())
			Expect(regs.PC()).To(Equal(uint32(0x40)))
		})

		It("should ignore unmodelled addressing modes entirely", func() {
			regs.WriteReg(1, 5)
			_, err := lsu.Multiple(decoder.Decode(0xE8AD0002)) // stmia sp!, {r1}
			Expect(err).NotTo(HaveOccurred())

			Expect(regs.SP()).To(Equal(uint32(0x800)))
			w, _ := mem.Read32(0x800)
			Expect(w).To(BeZero())
		})
	})
})
