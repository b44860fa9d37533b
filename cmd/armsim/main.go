// Command armsim loads a 32-bit ARM ELF executable and either summarises it
// or runs it to completion.
//
// Usage:
//
//	armsim [flags] program.exe
//
// Without -exec the program is loaded and its entry point, memory checksum
// and a disassembly window are printed. With -exec it runs with console
// output on stdout and line input from stdin until it executes SWI 0x11.
// An interrupt stops the run at the next instruction boundary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/armsim/config"
	"github.com/sarchlab/armsim/emu"
	"github.com/sarchlab/armsim/timing/core"
	"github.com/sarchlab/armsim/timing/latency"
)

const disassemblyWindow = 16

// options holds the parsed command line.
type options struct {
	memSize     int
	exec        bool
	tracePath   string
	configPath  string
	breakpoints []uint32
	profile     bool
	maxSteps    uint64
	verbose     bool
	program     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, set, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	log := logrus.New()
	log.SetOutput(stderr)
	log.SetLevel(logrus.WarnLevel)
	if opts.verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg, err := buildConfig(opts, set)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	sim := &simulation{
		opts:   opts,
		cfg:    cfg,
		log:    log,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}
	if err := sim.run(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseArgs(args []string, stderr io.Writer) (*options, map[string]bool, error) {
	fs := flag.NewFlagSet("armsim", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.IntVar(&opts.memSize, "mem", config.DefaultMemorySize, "Memory size in bytes")
	fs.BoolVar(&opts.exec, "exec", false, "Run the program instead of printing a summary")
	fs.StringVar(&opts.tracePath, "trace", "", "Write one trace line per instruction to this file")
	fs.StringVar(&opts.configPath, "config", "", "Path to simulator configuration JSON file")
	breaks := fs.String("break", "", "Comma-separated breakpoint addresses; registers are dumped before each")
	fs.BoolVar(&opts.profile, "cache", false, "Profile cycles and cache behaviour while running")
	fs.Uint64Var(&opts.maxSteps, "max-steps", 0, "Stop after this many instructions (0 = no limit)")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose output")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: armsim [options] <program.exe>\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, nil, fmt.Errorf("expected one program, got %d", fs.NArg())
	}
	opts.program = fs.Arg(0)

	if *breaks != "" {
		addrs, err := parseAddrs(*breaks)
		if err != nil {
			fmt.Fprintf(stderr, "Error: -break: %v\n", err)
			return nil, nil, err
		}
		opts.breakpoints = addrs
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	return opts, set, nil
}

// parseAddrs parses a list such as "0x8,0x1c,64".
func parseAddrs(s string) ([]uint32, error) {
	var addrs []uint32
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseUint(field, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("bad address %q: %w", field, err)
		}
		addrs = append(addrs, uint32(v))
	}
	return addrs, nil
}

// buildConfig starts from the config file, if any, and applies the flags
// given explicitly on the command line.
func buildConfig(opts *options, set map[string]bool) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := config.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if set["mem"] || opts.configPath == "" {
		cfg.MemorySize = opts.memSize
	}
	if set["trace"] {
		cfg.TraceFile = opts.tracePath
	}
	if set["max-steps"] {
		cfg.MaxSteps = opts.maxSteps
	}
	cfg.Breakpoints = append(cfg.Breakpoints, opts.breakpoints...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type simulation struct {
	opts   *options
	cfg    *config.Config
	log    *logrus.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (s *simulation) run(ctx context.Context) error {
	host := emu.NewConsoleHost(s.stdin, s.stdout)
	breakpoints := emu.NewBreakpoints(s.cfg.Breakpoints...)
	host.SetBreakpoints(breakpoints)

	var executed atomic.Uint64
	emuOpts := []emu.EmulatorOption{
		emu.WithHost(host),
		emu.WithLogger(s.log),
		emu.WithStackPointer(s.cfg.StackPointer),
		emu.WithMaxSteps(s.cfg.MaxSteps),
		emu.WithStepObserver(func(rec *emu.TraceRecord) { executed.Store(rec.Step) }),
	}

	var profiler *core.Profiler
	if s.opts.profile {
		profiler = core.NewProfiler(
			core.WithLatencyTable(latency.NewTableWithConfig(s.cfg.Latency)),
			core.WithICache(s.cfg.ICache),
			core.WithDCache(s.cfg.DCache),
			core.WithLogger(s.log),
		)
		emuOpts = append(emuOpts, emu.WithAccessObserver(profiler))
	}

	e := emu.NewEmulator(uint32(s.cfg.MemorySize), emuOpts...)
	if err := e.Load(s.opts.program); err != nil {
		return err
	}

	if !s.opts.exec {
		s.printSummary(e)
		return nil
	}

	var trace *emu.TraceWriter
	if s.cfg.TraceFile != "" {
		f, err := os.Create(s.cfg.TraceFile)
		if err != nil {
			return fmt.Errorf("failed to create trace file: %w", err)
		}
		defer func() { _ = f.Close() }()
		trace = emu.NewTraceWriter(f)
		host.SetTrace(trace)
	}

	g, ctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	g.Go(func() error {
		defer close(done)
		return s.execute(ctx, e)
	})

	g.Go(func() error {
		s.reportProgress(done, &executed)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	if trace != nil {
		if err := trace.Err(); err != nil {
			return err
		}
	}

	if profiler != nil {
		s.printProfile(profiler.Stats())
	}

	return nil
}

// execute runs until the program halts, dumping registers at every
// breakpoint and continuing.
func (s *simulation) execute(ctx context.Context, e *emu.Emulator) error {
	for {
		res := e.Run(ctx)
		switch res.Reason {
		case emu.StopHalted:
			s.log.WithField("instructions", e.InstructionCount()).Info("program halted")
			return nil
		case emu.StopPaused:
			s.dumpRegisters(e)
		case emu.StopLimit:
			return fmt.Errorf("instruction limit reached: %w", res.Err)
		case emu.StopCancelled:
			return fmt.Errorf("interrupted after %d instructions: %w", e.InstructionCount(), res.Err)
		default:
			return fmt.Errorf("run stopped (%s): %w", res.Reason, res.Err)
		}
	}
}

func (s *simulation) reportProgress(done <-chan struct{}, executed *atomic.Uint64) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.log.WithField("instructions", executed.Load()).Info("running")
		}
	}
}

func (s *simulation) printSummary(e *emu.Emulator) {
	prog := e.Program()

	fmt.Fprintf(s.stdout, "Program: %s\n", s.opts.program)
	fmt.Fprintf(s.stdout, "Entry point: 0x%08X\n", prog.Entry)
	fmt.Fprintf(s.stdout, "Code offset: 0x%X\n", prog.CodeStart)
	fmt.Fprintf(s.stdout, "Segments: %d\n", len(prog.Segments))
	fmt.Fprintf(s.stdout, "Memory: %d bytes\n", e.Memory().Size())
	fmt.Fprintf(s.stdout, "Checksum: %08X\n", uint32(e.Memory().Checksum()))
	fmt.Fprintf(s.stdout, "\nDisassembly:\n")

	start := prog.Entry &^ 3
	for i, inst := range e.Disassemble(start, disassemblyWindow) {
		addr := start + uint32(i)*4
		marker := " "
		if addr == prog.Entry {
			marker = ">"
		}
		fmt.Fprintf(s.stdout, "%s %08X  %08X  %s\n", marker, addr, inst.Raw, inst)
	}
}

func (s *simulation) dumpRegisters(e *emu.Emulator) {
	regs := e.RegFile().Snapshot()

	fmt.Fprintf(s.stderr, "break at 0x%08X  flags %s\n", e.RegFile().PC(), e.RegFile().Flags())
	for i, v := range regs {
		sep := "  "
		if i%4 == 3 || i == len(regs)-1 {
			sep = "\n"
		}
		fmt.Fprintf(s.stderr, "r%-2d=%08X%s", i, v, sep)
	}
}

func (s *simulation) printProfile(stats core.Stats) {
	fmt.Fprintf(s.stderr, "\nInstructions: %d\n", stats.Instructions)
	fmt.Fprintf(s.stderr, "Cycles: %d\n", stats.Cycles)
	fmt.Fprintf(s.stderr, "CPI: %.2f\n", stats.CPI())
	fmt.Fprintf(s.stderr, "Stall cycles: %d\n", stats.Stalls)
	fmt.Fprintf(s.stderr, "Taken branches: %d\n", stats.TakenBranches)
	fmt.Fprintf(s.stderr, "I-cache: %d hits, %d misses (%.1f%%)\n",
		stats.ICache.Hits, stats.ICache.Misses, 100*stats.ICache.HitRate())
	fmt.Fprintf(s.stderr, "D-cache: %d hits, %d misses (%.1f%%)\n",
		stats.DCache.Hits, stats.DCache.Misses, 100*stats.DCache.HitRate())
}
