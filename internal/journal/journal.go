package journal

import (
	"context"
	"fmt"
	"log"
	"strings"

	"backup-warden/internal/execx"
)

// Relay mirrors captured subprocess output into the system journal via
// logger(1). Strictly best-effort: a relay failure is logged and dropped.
type Relay struct {
	runner   execx.Runner
	tag      string
	logger   *log.Logger
	disabled bool
}

// New creates a journal relay with the given tag
func New(runner execx.Runner, tag string, disabled bool, logger *log.Logger) *Relay {
	if logger == nil {
		logger = log.Default()
	}
	return &Relay{runner: runner, tag: tag, logger: logger, disabled: disabled}
}

// Mirror pipes one captured stream to the journal. Empty streams are skipped.
func (r *Relay) Mirror(ctx context.Context, stream string) {
	if r == nil || r.disabled || strings.TrimSpace(stream) == "" {
		return
	}

	script := fmt.Sprintf("echo %s | logger -t %s", execx.ShellQuote(stream), r.tag)
	if _, err := r.runner.RunShell(ctx, script); err != nil {
		r.logger.Printf("journal relay failed: %v", err)
	}
}
