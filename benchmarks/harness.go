// Package benchmarks runs hand-encoded ARM programs through the emulator and
// the timing profiler, checking their results and reporting cycle counts.
package benchmarks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/armsim/config"
	"github.com/sarchlab/armsim/emu"
	"github.com/sarchlab/armsim/timing/core"
	"github.com/sarchlab/armsim/timing/latency"
)

// ProgramAddr is where every benchmark program is placed.
const ProgramAddr = 0

// BenchmarkResult holds the results of a single benchmark run.
type BenchmarkResult struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	// Stop is why the run ended; anything but "halted" fails the benchmark.
	Stop string `json:"stop"`

	// Passed is true when the run halted with the expected registers and
	// output.
	Passed   bool     `json:"passed"`
	Failures []string `json:"failures,omitempty"`

	// Output is everything the program wrote with SWI 0x00.
	Output string `json:"output,omitempty"`

	InstructionsRetired uint64  `json:"instructions_retired"`
	SimulatedCycles     uint64  `json:"simulated_cycles"`
	CPI                 float64 `json:"cpi"`
	StallCycles         uint64  `json:"stall_cycles"`
	TakenBranches       uint64  `json:"taken_branches"`

	ICacheHits   uint64 `json:"icache_hits"`
	ICacheMisses uint64 `json:"icache_misses"`
	DCacheHits   uint64 `json:"dcache_hits"`
	DCacheMisses uint64 `json:"dcache_misses"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	Name        string
	Description string

	// Setup prepares registers and memory after the program is loaded.
	Setup func(regFile *emu.RegFile, memory *emu.Memory)

	// Program is the ARM machine code, placed at ProgramAddr.
	Program []byte

	// Input holds the lines returned to SWI 0x6A, in order.
	Input []string

	// ExpectedRegs maps register numbers to their values at the halt.
	ExpectedRegs map[uint8]uint32

	// ExpectedOutput is compared with the console output when non-empty.
	ExpectedOutput string
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Sim supplies memory size, stack pointer, step limit, latencies and
	// cache geometry.
	Sim *config.Config

	// Parallelism bounds the number of benchmarks run at once. Zero uses
	// GOMAXPROCS.
	Parallelism int

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose logs every result as it completes.
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	sim := config.DefaultConfig()
	sim.MaxSteps = 1_000_000

	return HarnessConfig{
		Sim:    sim,
		Output: os.Stdout,
	}
}

// Harness runs benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
	log        logrus.FieldLogger
}

// NewHarness creates a new benchmark harness.
func NewHarness(hc HarnessConfig) *Harness {
	if hc.Output == nil {
		hc.Output = os.Stdout
	}
	if hc.Sim == nil {
		hc.Sim = DefaultConfig().Sim
	}
	if hc.Parallelism <= 0 {
		hc.Parallelism = runtime.GOMAXPROCS(0)
	}
	return &Harness{
		config: hc,
		log:    logrus.StandardLogger().WithField("component", "benchmarks"),
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes every benchmark, each on its own emulator, and returns
// the results in the order the benchmarks were added. A benchmark that
// fails validation still produces a result; only cancellation and load
// errors are returned.
func (h *Harness) RunAll(ctx context.Context) ([]BenchmarkResult, error) {
	results := make([]BenchmarkResult, len(h.benchmarks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(h.config.Parallelism)

	for i, bench := range h.benchmarks {
		g.Go(func() error {
			result, err := h.runBenchmark(ctx, bench)
			if err != nil {
				return fmt.Errorf("benchmark %s: %w", bench.Name, err)
			}
			results[i] = result

			if h.config.Verbose {
				h.log.WithFields(logrus.Fields{
					"name":   result.Name,
					"passed": result.Passed,
					"cpi":    fmt.Sprintf("%.3f", result.CPI),
				}).Info("benchmark finished")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (h *Harness) runBenchmark(ctx context.Context, bench Benchmark) (BenchmarkResult, error) {
	sim := h.config.Sim

	profiler := core.NewProfiler(
		core.WithLatencyTable(latency.NewTableWithConfig(sim.Latency)),
		core.WithICache(sim.ICache),
		core.WithDCache(sim.DCache),
	)

	var out strings.Builder
	var in io.Reader
	if len(bench.Input) > 0 {
		in = strings.NewReader(strings.Join(bench.Input, "\n") + "\n")
	}

	e := emu.NewEmulator(uint32(sim.MemorySize),
		emu.WithStdout(&out),
		emu.WithStdin(in),
		emu.WithStackPointer(sim.StackPointer),
		emu.WithMaxSteps(sim.MaxSteps),
		emu.WithAccessObserver(profiler),
	)

	if err := e.LoadBytes(ProgramAddr, bench.Program); err != nil {
		return BenchmarkResult{}, err
	}
	if bench.Setup != nil {
		bench.Setup(e.RegFile(), e.Memory())
	}

	start := time.Now()
	run := e.Run(ctx)
	wallTime := time.Since(start)

	if run.Reason == emu.StopCancelled {
		return BenchmarkResult{}, run.Err
	}

	stats := profiler.Stats()
	result := BenchmarkResult{
		Name:                bench.Name,
		Description:         bench.Description,
		Stop:                run.Reason.String(),
		Output:              out.String(),
		InstructionsRetired: stats.Instructions,
		SimulatedCycles:     stats.Cycles,
		CPI:                 stats.CPI(),
		StallCycles:         stats.Stalls,
		TakenBranches:       stats.TakenBranches,
		ICacheHits:          stats.ICache.Hits,
		ICacheMisses:        stats.ICache.Misses,
		DCacheHits:          stats.DCache.Hits,
		DCacheMisses:        stats.DCache.Misses,
		WallTime:            wallTime,
	}

	result.Failures = validate(bench, e, run, result.Output)
	result.Passed = len(result.Failures) == 0

	return result, nil
}

func validate(bench Benchmark, e *emu.Emulator, run emu.RunResult, output string) []string {
	var failures []string

	if run.Reason != emu.StopHalted {
		msg := fmt.Sprintf("stopped with %s", run.Reason)
		if run.Err != nil {
			msg += ": " + run.Err.Error()
		}
		failures = append(failures, msg)
	}

	regs := make([]uint8, 0, len(bench.ExpectedRegs))
	for r := range bench.ExpectedRegs {
		regs = append(regs, r)
	}
	slices.Sort(regs)

	for _, r := range regs {
		want := bench.ExpectedRegs[r]
		if got := e.RegFile().ReadReg(r); got != want {
			failures = append(failures, fmt.Sprintf("r%d = %d, want %d", r, got, want))
		}
	}

	if bench.ExpectedOutput != "" && output != bench.ExpectedOutput {
		failures = append(failures, fmt.Sprintf("output %q, want %q", output, bench.ExpectedOutput))
	}

	return failures
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	w := h.config.Output

	_, _ = fmt.Fprintln(w, "=== ARM Simulator Benchmark Results ===")
	_, _ = fmt.Fprintln(w, "")

	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		}

		_, _ = fmt.Fprintf(w, "Benchmark: %s [%s]\n", r.Name, status)
		_, _ = fmt.Fprintf(w, "  Description: %s\n", r.Description)
		for _, f := range r.Failures {
			_, _ = fmt.Fprintf(w, "  Failure: %s\n", f)
		}
		_, _ = fmt.Fprintln(w, "  --- Timing ---")
		_, _ = fmt.Fprintf(w, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(w, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(w, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(w, "  Stall Cycles:         %d\n", r.StallCycles)
		_, _ = fmt.Fprintf(w, "  Taken Branches:       %d\n", r.TakenBranches)
		_, _ = fmt.Fprintln(w, "  --- I-Cache ---")
		_, _ = fmt.Fprintf(w, "  Hits:   %d\n", r.ICacheHits)
		_, _ = fmt.Fprintf(w, "  Misses: %d\n", r.ICacheMisses)
		if r.DCacheHits > 0 || r.DCacheMisses > 0 {
			_, _ = fmt.Fprintln(w, "  --- D-Cache ---")
			_, _ = fmt.Fprintf(w, "  Hits:   %d\n", r.DCacheHits)
			_, _ = fmt.Fprintf(w, "  Misses: %d\n", r.DCacheMisses)
		}
		_, _ = fmt.Fprintf(w, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(w, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	w := h.config.Output

	_, _ = fmt.Fprintln(w,
		"name,passed,cycles,instructions,cpi,stalls,taken_branches,icache_hits,icache_misses,dcache_hits,dcache_misses")

	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%s,%t,%d,%d,%.3f,%d,%d,%d,%d,%d,%d\n",
			r.Name,
			r.Passed,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.StallCycles,
			r.TakenBranches,
			r.ICacheHits,
			r.ICacheMisses,
			r.DCacheHits,
			r.DCacheMisses,
		)
	}
}

// PrintJSON outputs benchmark results as an indented JSON array.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	enc := json.NewEncoder(h.config.Output)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}
