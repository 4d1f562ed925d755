// Package main is the entry point for the briefwire CLI.
package main

import (
	"os"

	"github.com/Briefwire/Briefwire/cmd/briefwire/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
