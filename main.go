// Package main is the entry point for the dronegrid overlay simulator.
package main

import (
	"fmt"
	"os"

	"aetheric.io/dronegrid/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
