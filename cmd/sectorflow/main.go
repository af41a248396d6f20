package main

import (
	"os"

	"github.com/mwjiang/sectorflow/cmd/sectorflow/commands"
)

// main is the entry point for the sectorflow CLI.
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
