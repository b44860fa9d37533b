// Package main provides the entry point for armsim, a functional simulator
// for 32-bit ARM programs with an optional cache and cycle profile.
//
// For the full CLI, use: go run ./cmd/armsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("armsim - ARM (32-bit) instruction simulator")
	fmt.Println("")
	fmt.Println("Usage: armsim [options] <program.exe>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -exec      Run the program instead of printing a summary")
	fmt.Println("  -trace     Write a per-instruction trace log")
	fmt.Println("  -break     Comma-separated breakpoint addresses")
	fmt.Println("  -cache     Profile cycles and cache behaviour")
	fmt.Println("  -config    Path to simulator configuration JSON file")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/armsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/armsim' instead.")
	}
}
