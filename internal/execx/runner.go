package execx

import (
	"context"
	"strings"
)

// Result carries the captured output of a finished subprocess.
// A non-zero ExitCode is not an error at this layer; Runner implementations
// return an error only when the process could not be started or the
// invocation itself broke down.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner abstracts subprocess invocation so tests can assert exact arguments
// without touching the real system. Run executes a binary directly; RunShell
// hands a pipeline to /bin/sh for the echo-into-relay style invocations.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
	RunShell(ctx context.Context, script string) (Result, error)
}

// ShellQuote wraps s in single quotes for safe embedding in a shell script.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
