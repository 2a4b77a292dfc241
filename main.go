// Package main is the entry point for the highway-event-pipeline CLI.
package main

import (
	"fmt"
	"os"

	"github.com/MrWwei/highway-event-pipeline/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
