// Package main provides the actorflow CLI: it runs, renders and configures
// a demo signal-processing pipeline built on the actorflow runtime.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
)

// Version information set during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Exit codes
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

const usage = `actorflow - typed actor dataflow runtime

Usage:
  actorflow version
  actorflow run    [flags]   run the demo pipeline
  actorflow dot    [flags]   render the demo pipeline (DOT or Mermaid)
  actorflow config [flags]   print the effective configuration

Run 'actorflow <command> --help' for the flags of a command.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches one CLI invocation and returns its exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	var err error
	switch args[0] {
	case "version", "--version":
		fmt.Fprintf(stdout, "actorflow %s (commit: %s, built: %s)\n", Version, Commit, BuildTime)
		return exitOK
	case "run":
		err = runCommand(args[1:], stdout, stderr)
	case "dot":
		err = dotCommand(args[1:], stdout, stderr)
	case "config":
		err = configCommand(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return exitUsage
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, pflag.ErrHelp):
		return exitOK
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}
}
