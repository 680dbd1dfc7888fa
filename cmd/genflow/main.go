// Package main is the entry point for the genflow CLI: a multi-phase
// content-generation workflow engine driving agent CLIs through
// generate/critique/adjudicate/refine steps.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mikewrather/agent-arena/internal/cli"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := cli.Execute(version, commit, date); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			if !exitErr.Printed {
				fmt.Fprintf(os.Stderr, "Error: %v\n", exitErr.Err)
			}
			os.Exit(exitErr.Code)
		}

		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
