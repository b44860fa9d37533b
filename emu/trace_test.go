package emu_test

import (
	"bytes"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/armsim/emu"
	"github.com/sarchlab/armsim/insts"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

var _ = Describe("Trace", func() {
	var rec *emu.TraceRecord

	BeforeEach(func() {
		rec = &emu.TraceRecord{
			Step:     7,
			Addr:     0x1000,
			Inst:     insts.NewDecoder().Decode(0xE3A02030),
			Checksum: 0x1_0000_00AB,
			Flags:    emu.Flags{Z: true, C: true},
		}
		rec.Registers[0] = 0xFF
		rec.Registers[14] = 0x1004
	})

	It("should format one line per record", func() {
		line := rec.String()

		Expect(line).To(HavePrefix("000007 00001000 E3A02030 000000AB 0110 SYS 0=000000FF 1=00000000"))
		Expect(line).To(HaveSuffix(" 13=00000000 14=00001004"))
		Expect(strings.Count(line, "=")).To(Equal(15))
	})

	It("should write newline-terminated records", func() {
		buf := &bytes.Buffer{}
		tw := emu.NewTraceWriter(buf)

		Expect(tw.Write(rec)).To(Succeed())
		Expect(tw.Write(rec)).To(Succeed())
		Expect(strings.Count(buf.String(), "\n")).To(Equal(2))
		Expect(tw.Err()).NotTo(HaveOccurred())
	})

	It("should keep the first write error", func() {
		tw := emu.NewTraceWriter(failingWriter{})

		Expect(tw.Write(rec)).To(HaveOccurred())
		Expect(tw.Err()).To(MatchError(ContainSubstring("disk full")))
	})
})

var _ = Describe("Breakpoints", func() {
	It("should add, toggle and remove addresses", func() {
		bp := emu.NewBreakpoints(0x20)
		bp.Add(0x10)

		Expect(bp.Has(0x10)).To(BeTrue())
		Expect(bp.List()).To(Equal([]uint32{0x10, 0x20}))

		Expect(bp.Toggle(0x10)).To(BeFalse())
		Expect(bp.Has(0x10)).To(BeFalse())
		Expect(bp.Toggle(0x30)).To(BeTrue())

		bp.Remove(0x20)
		Expect(bp.List()).To(Equal([]uint32{0x30}))
	})
})

var _ = Describe("ConsoleHost", func() {
	It("should strip line terminators", func() {
		h := emu.NewConsoleHost(strings.NewReader("first\r\nsecond"), nil)

		Expect(string(h.InputLine())).To(Equal("first"))
		Expect(string(h.InputLine())).To(Equal("second"))
		Expect(h.InputLine()).To(BeEmpty())
	})

	It("should consult its breakpoints and trace writer", func() {
		buf := &bytes.Buffer{}
		h := emu.NewConsoleHost(nil, buf)
		h.SetBreakpoints(emu.NewBreakpoints(0x8))
		trace := &bytes.Buffer{}
		h.SetTrace(emu.NewTraceWriter(trace))

		Expect(h.BreakBefore(0x8)).To(BeTrue())
		Expect(h.BreakBefore(0xC)).To(BeFalse())

		h.Output('x')
		Expect(buf.String()).To(Equal("x"))

		h.StepCompleted(&emu.TraceRecord{Inst: insts.NewDecoder().Decode(0)})
		Expect(trace.Len()).NotTo(BeZero())
	})
})
