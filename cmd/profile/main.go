// Package main runs a program under runtime/pprof to find where the
// simulator itself spends its time.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/armsim/config"
	"github.com/sarchlab/armsim/emu"
	"github.com/sarchlab/armsim/timing/core"
)

var (
	timing      = flag.Bool("timing", false, "Attach the cache and cycle profiler")
	cpuProfile  = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile  = flag.String("memprofile", "", "write memory profile to file")
	duration    = flag.Duration("duration", 30*time.Second, "max duration to run (for profiling)")
	instruction = flag.Uint64("max-instr", 1000000, "max instructions to execute (0 = unlimited)")
	memSize     = flag.Int("mem", config.DefaultMemorySize, "Memory size in bytes")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] <program.exe>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	logrus.SetLevel(logrus.WarnLevel)

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	programPath := flag.Arg(0)

	var profiler *core.Profiler
	opts := []emu.EmulatorOption{
		emu.WithMaxSteps(*instruction),
		emu.WithStdout(io.Discard),
		emu.WithStdin(nil),
	}
	if *timing {
		profiler = core.NewProfiler()
		opts = append(opts, emu.WithAccessObserver(profiler))
	}

	e := emu.NewEmulator(uint32(*memSize), opts...)
	if err := e.Load(programPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded: %s\n", programPath)
	fmt.Printf("Entry point: 0x%X\n", e.Program().Entry)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	res := e.Run(ctx)
	elapsed := time.Since(start)

	if res.Reason == emu.StopCancelled {
		fmt.Printf("\nTimeout reached after %v - stopping execution\n", *duration)
	}

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
	}

	instrCount := e.InstructionCount()

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Stopped: %s\n", res.Reason)
	fmt.Printf("Instructions executed: %d\n", instrCount)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if instrCount > 0 {
		fmt.Printf("Instructions/second: %.0f\n", float64(instrCount)/elapsed.Seconds())
	}
	if profiler != nil {
		fmt.Printf("Simulated: %s\n", profiler.Stats())
	}
}
