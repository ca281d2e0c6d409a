// Package main provides the entry point for the snapdist CLI.
//
// snapdist inspects, verifies and catalogs attribute snapshot
// archives produced by pkg/snapdist.
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/snapdist-go/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
