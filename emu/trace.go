package emu

import (
	"fmt"
	"io"
	"strings"

	"github.com/sarchlab/armsim/insts"
)

// TraceRecord is the architecturally visible state after one step.
type TraceRecord struct {
	Step      uint64             // 1-based step counter since load
	Addr      uint32             // Fetch address
	Inst      *insts.Instruction // Decoded instruction
	Checksum  int64              // Memory checksum after execute
	Flags     Flags              // NZCV after execute
	Registers [15]uint32         // r0-r14 after execute
}

// String renders the record as a single trace line:
//
//	000001 00000008 E3A02030 0001A2B4 0000 SYS 0=00000000 ... 14=00000000
func (r *TraceRecord) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%06d %08X %08X %08X %s SYS",
		r.Step, r.Addr, r.Inst.Raw, uint32(r.Checksum), r.Flags)
	for i, v := range r.Registers {
		fmt.Fprintf(&sb, " %d=%08X", i, v)
	}

	return sb.String()
}

// TraceWriter writes trace records one per line. After the first write
// error every further write is dropped and Err reports it.
type TraceWriter struct {
	w   io.Writer
	err error
}

// NewTraceWriter creates a TraceWriter on w.
func NewTraceWriter(w io.Writer) *TraceWriter {
	return &TraceWriter{w: w}
}

// Write appends one record.
func (t *TraceWriter) Write(rec *TraceRecord) error {
	if t.err != nil {
		return t.err
	}
	if _, err := io.WriteString(t.w, rec.String()+"\n"); err != nil {
		t.err = fmt.Errorf("writing trace: %w", err)
	}
	return t.err
}

// Err returns the first write error, if any.
func (t *TraceWriter) Err() error {
	return t.err
}
