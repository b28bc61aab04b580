// Package main is the entry point for the robotctl CLI.
// The CLI is the operator terminal tool for interacting with the
// robotplane control plane.
package main

import (
	"os"

	"robotplane/cmd/robotctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
