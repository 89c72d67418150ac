package gateway

import (
	"context"
	"errors"
	"log"
	"os/exec"
	"strings"

	"backup-warden/internal/config"
	"backup-warden/internal/execx"
	"backup-warden/internal/journal"
)

// FailureKind classifies why an imaging tool invocation failed.
type FailureKind string

const (
	// ToolNotFound: the imaging binary is not installed or not on PATH
	ToolNotFound FailureKind = "TOOL_NOT_FOUND"
	// NonZeroExit: the tool ran and reported failure
	NonZeroExit FailureKind = "NON_ZERO_EXIT"
	// TransportError: the invocation layer itself broke down
	TransportError FailureKind = "TRANSPORT_ERROR"
)

// Result is the outcome of one imaging tool invocation. A failed backup is
// data, never an error: the orchestrator decides what a failure means.
type Result struct {
	Succeeded   bool
	Stdout      string
	Stderr      string
	ExitCode    *int
	FailureKind FailureKind
}

// Gateway invokes the external imaging tool against a target artifact path.
type Gateway struct {
	runner  execx.Runner
	relay   *journal.Relay
	logger  *log.Logger
	command string
	flag    string
	useSudo bool
}

// New creates a Gateway from config
func New(cfg *config.Config, runner execx.Runner, relay *journal.Relay, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = log.Default()
	}
	return &Gateway{
		runner:  runner,
		relay:   relay,
		logger:  logger,
		command: cfg.BackupCommand,
		flag:    cfg.BackupFlag,
		useSudo: !cfg.NoSudo,
	}
}

// Execute runs the imaging tool with the artifact path as its target,
// capturing both streams in full. Captured output is mirrored to the system
// journal best-effort; relay failures never affect the returned Result.
func (g *Gateway) Execute(ctx context.Context, artifactPath string) Result {
	name := g.command
	args := []string{g.flag, artifactPath}
	if g.useSudo {
		name = "sudo"
		args = append([]string{g.command}, args...)
	}

	g.logger.Printf("running: %s %s", name, strings.Join(args, " "))

	res, err := g.runner.Run(ctx, name, args...)

	out := Result{Stdout: res.Stdout, Stderr: res.Stderr}

	if out.Stdout != "" {
		g.logger.Print(out.Stdout)
	}
	if out.Stderr != "" {
		g.logger.Print(out.Stderr)
	}
	g.relay.Mirror(ctx, out.Stdout)
	g.relay.Mirror(ctx, out.Stderr)

	switch {
	case err != nil && errors.Is(err, exec.ErrNotFound):
		g.logger.Printf("imaging tool %q not found", g.command)
		out.FailureKind = ToolNotFound
	case err != nil:
		g.logger.Printf("imaging tool invocation failed: %v", err)
		out.FailureKind = TransportError
	case res.ExitCode != 0:
		g.logger.Printf("imaging tool exited with code %d", res.ExitCode)
		code := res.ExitCode
		out.ExitCode = &code
		out.FailureKind = NonZeroExit
	default:
		code := 0
		out.ExitCode = &code
		out.Succeeded = true
	}

	return out
}
