package main

import "os"

// Exit codes let scripts distinguish failure modes without parsing stderr.
const (
	// ExitSuccess indicates successful execution.
	ExitSuccess = 0

	// ExitGeneral indicates a general error.
	ExitGeneral = 1

	// ExitUsage indicates invalid arguments or usage error.
	ExitUsage = 2

	// ExitCriticalError indicates a critical composition error (spec §7):
	// the envelope was printed with a non-null critical_error field. It
	// matches envelope.CriticalError.ExitCode for any critical error.
	ExitCriticalError = 1

	// ExitVerifyFailed indicates `nah verify` found at least one issue.
	ExitVerifyFailed = 4

	// ExitCancelled indicates the operation was interrupted by a signal.
	ExitCancelled = 130
)

// exitWithCode exits the process with the given code.
func exitWithCode(code int) {
	os.Exit(code)
}
