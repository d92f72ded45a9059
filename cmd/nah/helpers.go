package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nah-run/nah/internal/config"
	"github.com/nah-run/nah/internal/errmsg"
	"github.com/nah-run/nah/internal/envelope"
)

// printInfo prints an informational message unless quiet mode is enabled.
func printInfo(a ...interface{}) {
	if !quietFlag {
		fmt.Println(a...)
	}
}

// printInfof prints a formatted informational message unless quiet mode is enabled.
func printInfof(format string, a ...interface{}) {
	if !quietFlag {
		fmt.Printf(format, a...)
	}
}

// printJSON marshals v to indented JSON and writes it to stdout.
func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		exitWithCode(ExitGeneral)
	}
}

// printError formats err with errmsg's causes/suggestions and writes it to
// stderr. ctx may be nil for generic formatting.
func printError(err error, ctx *errmsg.ErrorContext) {
	fmt.Fprintln(os.Stderr, errmsg.Format(err, ctx))
}

// printEnvelope prints env as indented JSON to stdout and nothing else, in
// quiet mode too. An envelope with a critical error still prints as JSON;
// callers exit ExitCriticalError.
func printEnvelope(env *envelope.Envelope) {
	printJSON(env)
}

// requireRoot resolves the NAH root or exits ExitGeneral, mirroring the
// teacher's "fail fast on bad config" pattern in cmd/tsuku's init().
func requireRoot() *config.Root {
	root, err := config.DefaultRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve NAH root: %v\n", err)
		exitWithCode(ExitGeneral)
	}
	if err := root.EnsureDirectories(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to prepare NAH root: %v\n", err)
		exitWithCode(ExitGeneral)
	}
	return root
}
