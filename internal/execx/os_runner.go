package execx

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// OSRunner implements Runner using os/exec.
type OSRunner struct{}

func (OSRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	return run(exec.CommandContext(ctx, name, args...))
}

func (OSRunner) RunShell(ctx context.Context, script string) (Result, error) {
	return run(exec.CommandContext(ctx, "/bin/sh", "-c", script))
}

func run(cmd *exec.Cmd) (Result, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// The process ran and failed; surface the code, not an error.
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		return res, err
	}
	return res, nil
}
