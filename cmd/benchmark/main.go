// Command benchmark runs the benchmark programs through the emulator and the
// timing profiler.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv       Output results in CSV format (default: human-readable)
//	-json      Output results as JSON
//	-core      Run only the core benchmarks
//	-config    Simulator configuration file (latencies, cache geometry)
//	-emit dir  Also write every program to dir as an ELF executable
//	-v         Log each benchmark as it finishes
//
// Example:
//
//	# Output CSV for spreadsheet comparison
//	go run ./cmd/benchmark -csv > results.csv
//
// The command exits with status 1 if any benchmark fails validation.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/armsim/benchmarks"
	"github.com/sarchlab/armsim/config"
	"github.com/sarchlab/armsim/loader"
)

func main() {
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results as JSON")
	coreOnly := flag.Bool("core", false, "Run only the core benchmarks")
	configPath := flag.String("config", "", "Path to simulator configuration JSON file")
	emitDir := flag.String("emit", "", "Write every program to this directory as an .exe")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}

	hc := benchmarks.DefaultConfig()
	hc.Verbose = *verbose
	hc.Output = os.Stdout
	if *configPath != "" {
		sim, err := config.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if sim.MaxSteps == 0 {
			sim.MaxSteps = hc.Sim.MaxSteps
		}
		hc.Sim = sim
	}
	if err := hc.Sim.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid config: %v\n", err)
		os.Exit(1)
	}

	suite := benchmarks.GetMicrobenchmarks()
	if *coreOnly {
		suite = benchmarks.GetCoreBenchmarks()
	}

	if *emitDir != "" {
		if err := emit(*emitDir, suite); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	harness := benchmarks.NewHarness(hc)
	harness.AddBenchmarks(suite)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := harness.RunAll(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		fmt.Println("ARM Simulator Benchmark Harness")
		fmt.Println("===============================")
		fmt.Printf("I-Cache: %d B, %d-way, %d B lines\n",
			hc.Sim.ICache.Size, hc.Sim.ICache.Associativity, hc.Sim.ICache.BlockSize)
		fmt.Printf("D-Cache: %d B, %d-way, %d B lines\n",
			hc.Sim.DCache.Size, hc.Sim.DCache.Associativity, hc.Sim.DCache.BlockSize)
		fmt.Println("")
		harness.PrintResults(results)
	}

	for _, r := range results {
		if !r.Passed {
			os.Exit(1)
		}
	}
}

// emit writes each program as a single-segment executable. Programs that
// read data set up by the harness will not produce the same results when
// run on their own.
func emit(dir string, suite []benchmarks.Benchmark) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	for _, b := range suite {
		img := loader.Image{
			Entry: benchmarks.ProgramAddr,
			Segments: []loader.Segment{{
				VirtAddr: benchmarks.ProgramAddr,
				Data:     b.Program,
				Flags:    loader.SegmentFlagRead | loader.SegmentFlagExecute,
			}},
		}

		path := filepath.Join(dir, b.Name+".exe")
		if err := os.WriteFile(path, img.Bytes(), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	return nil
}
