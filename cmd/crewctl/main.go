// Package main is the entry point for the crewctl CLI tool.
package main

import (
	"os"

	"github.com/tidewater-dev/crewdeck/cmd/crewctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
