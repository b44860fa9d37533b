// Package core provides the timing profile of a functional run. A Profiler
// attaches to the emulator as its access observer and charges every retired
// instruction its execution latency plus the cache misses it caused.
package core

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/armsim/emu"
	"github.com/sarchlab/armsim/insts"
	"github.com/sarchlab/armsim/timing/cache"
	"github.com/sarchlab/armsim/timing/latency"
)

var _ emu.Observer = (*Profiler)(nil)

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles charged.
	Cycles uint64
	// Instructions is the number of instructions retired, including those
	// whose condition failed.
	Instructions uint64
	// Executed is the number of retired instructions whose condition passed.
	Executed uint64
	// TakenBranches counts executed B, BL and BX.
	TakenBranches uint64
	// Stalls is the number of cycles spent waiting on cache misses.
	Stalls uint64

	ICache cache.Statistics
	DCache cache.Statistics
}

// CPI returns cycles per retired instruction.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// String summarises the statistics on one line.
func (s Stats) String() string {
	return fmt.Sprintf("instructions=%d cycles=%d cpi=%.2f icache_hit=%.1f%% dcache_hit=%.1f%%",
		s.Instructions, s.Cycles, s.CPI(),
		100*s.ICache.HitRate(), 100*s.DCache.HitRate())
}

// Profiler accumulates cycle counts for the instructions it observes.
type Profiler struct {
	table  *latency.Table
	icache *cache.Cache
	dcache *cache.Cache
	log    *logrus.Entry

	pending uint64 // miss cycles of the instruction in flight
	stats   Stats
}

// ProfilerOption configures a Profiler.
type ProfilerOption func(*Profiler)

// WithLatencyTable sets the instruction latencies.
func WithLatencyTable(t *latency.Table) ProfilerOption {
	return func(p *Profiler) {
		p.table = t
	}
}

// WithICache sets the instruction cache geometry.
func WithICache(config cache.Config) ProfilerOption {
	return func(p *Profiler) {
		p.icache = cache.New(config)
	}
}

// WithDCache sets the data cache geometry.
func WithDCache(config cache.Config) ProfilerOption {
	return func(p *Profiler) {
		p.dcache = cache.New(config)
	}
}

// WithLogger sets the logger used for per-instruction timing.
func WithLogger(l logrus.FieldLogger) ProfilerOption {
	return func(p *Profiler) {
		p.log = l.WithField("component", "timing")
	}
}

// NewProfiler creates a Profiler with default latencies and caches.
func NewProfiler(opts ...ProfilerOption) *Profiler {
	p := &Profiler{
		table:  latency.NewTable(),
		icache: cache.New(cache.DefaultICacheConfig()),
		dcache: cache.New(cache.DefaultDCacheConfig()),
		log:    logrus.StandardLogger().WithField("component", "timing"),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Fetch charges the instruction cache.
func (p *Profiler) Fetch(addr uint32) {
	p.charge(p.icache.Read(addr, 4))
}

// Load charges the data cache for a read.
func (p *Profiler) Load(addr uint32, size int) {
	p.charge(p.dcache.Read(addr, size))
}

// Store charges the data cache for a write.
func (p *Profiler) Store(addr uint32, size int, value uint32) {
	p.charge(p.dcache.Write(addr, size, value))
}

func (p *Profiler) charge(res cache.AccessResult) {
	if !res.Hit {
		p.pending += res.Latency
	}
}

// Retire closes the accounting for inst.
func (p *Profiler) Retire(inst *insts.Instruction) {
	cycles := p.table.GetLatency(inst) + p.pending

	p.stats.Instructions++
	p.stats.Cycles += cycles
	p.stats.Stalls += p.pending
	if inst != nil && inst.Executed {
		p.stats.Executed++
		if p.table.IsBranchOp(inst) {
			p.stats.TakenBranches++
		}
	}

	if p.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
		p.log.WithFields(logrus.Fields{
			"inst":   inst,
			"cycles": cycles,
			"stall":  p.pending,
		}).Trace("retire")
	}

	p.pending = 0
}

// Stats returns the statistics gathered so far.
func (p *Profiler) Stats() Stats {
	s := p.stats
	s.ICache = p.icache.Stats()
	s.DCache = p.dcache.Stats()
	return s
}

// Reset clears the caches and all counters.
func (p *Profiler) Reset() {
	p.icache.Reset()
	p.dcache.Reset()
	p.pending = 0
	p.stats = Stats{}
}
