// Package main provides the triagedl CLI for batch downloading samples by malware family.
package main

import (
	"context"
	"fmt"
	"os"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitRunError     = 1
	ExitInvalidArgs  = 2
	ExitPrecondition = 3
	ExitSearchFailed = 4
	ExitCanceled     = 5
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:]))
}

func run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	command := args[0]

	// Dispatch to subcommand
	switch command {
	case "fetch":
		return runFetch(ctx, args[1:])
	case "creds":
		return runCreds(ctx, args[1:])
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `triagedl - Search a sample sandbox by malware family and download every match

Usage:
  triagedl <command> [options]

Commands:
  fetch     Search for a family and download all matching samples
  creds     Store or check the session credentials used by fetch
  help      Show this help

Exit codes:
  0  success
  1  run error
  2  invalid arguments
  3  missing or incomplete credentials
  4  search request failed
  5  canceled

Use "triagedl <command> -h" for more information about a command.`)
}
