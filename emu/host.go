package emu

import (
	"bufio"
	"bytes"
	"io"
)

// Host is the surrounding application as seen by the run loop. A GUI, the
// command line front end and tests each provide their own.
type Host interface {
	// Output receives the character written by SWI 0x00.
	Output(b byte)

	// InputLine returns one line of input for SWI 0x6A, without the line
	// terminator.
	InputLine() []byte

	// StepCompleted receives the trace record of every executed step.
	StepCompleted(rec *TraceRecord)

	// BreakBefore reports whether Run should pause before executing the
	// instruction at addr.
	BreakBefore(addr uint32) bool
}

// ConsoleHost is a Host backed by plain streams. Trace output and
// breakpoints are optional.
type ConsoleHost struct {
	in          *bufio.Reader
	out         io.Writer
	trace       *TraceWriter
	breakpoints *Breakpoints
}

// NewConsoleHost creates a ConsoleHost reading lines from in and writing
// characters to out. in may be nil, in which case every read returns an
// empty line.
func NewConsoleHost(in io.Reader, out io.Writer) *ConsoleHost {
	h := &ConsoleHost{out: out}
	if in != nil {
		h.in = bufio.NewReader(in)
	}
	return h
}

// SetTrace directs step records to t. A nil t disables tracing.
func (h *ConsoleHost) SetTrace(t *TraceWriter) {
	h.trace = t
}

// SetBreakpoints makes BreakBefore consult b.
func (h *ConsoleHost) SetBreakpoints(b *Breakpoints) {
	h.breakpoints = b
}

// Output writes b to the output stream. Write errors are ignored.
func (h *ConsoleHost) Output(b byte) {
	if h.out != nil {
		_, _ = h.out.Write([]byte{b})
	}
}

// InputLine reads up to the next newline.
func (h *ConsoleHost) InputLine() []byte {
	if h.in == nil {
		return nil
	}

	line, _ := h.in.ReadBytes('\n')
	return bytes.TrimRight(line, "\r\n")
}

// StepCompleted forwards rec to the trace writer, if any.
func (h *ConsoleHost) StepCompleted(rec *TraceRecord) {
	if h.trace != nil {
		_ = h.trace.Write(rec)
	}
}

// BreakBefore reports whether addr holds a breakpoint.
func (h *ConsoleHost) BreakBefore(addr uint32) bool {
	return h.breakpoints != nil && h.breakpoints.Has(addr)
}
