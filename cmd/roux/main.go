// Package main provides the entry point for the roux CLI.
package main

import (
	"os"

	"github.com/alexgetty/roux/cmd/roux/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
