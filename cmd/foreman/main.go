// Package main provides the entry point for the foreman CLI.
package main

import (
	"os"

	"github.com/forgelight/foreman/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
