package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"backup-warden/internal/config"
	"backup-warden/internal/database"
	"backup-warden/internal/disk"
	"backup-warden/internal/gateway"
	"backup-warden/internal/metrics"
	"backup-warden/internal/naming"
	"backup-warden/internal/sweep"
)

// ErrBackupFailed is returned when both the primary and the fallback attempt
// failed. The process must exit non-zero in this case.
var ErrBackupFailed = errors.New("backup failed on primary and fallback attempts")

// PreconditionError reports an invalid backup target. Fatal, no retry.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Reason
}

// Target is one backup request: where to write, how to name, when "now" is.
// Now may be zero, in which case the wall clock is used.
type Target struct {
	Directory string
	Prefix    string
	Now       time.Time
}

// ExecutionGateway invokes the imaging tool against an artifact path.
type ExecutionGateway interface {
	Execute(ctx context.Context, artifactPath string) gateway.Result
}

// RetentionSweeper prunes stale artifacts from the backup directory.
type RetentionSweeper interface {
	Sweep(dir string, retentionDays int, now time.Time) ([]sweep.Removed, error)
}

// Alerter delivers a failure report to the operator, best-effort.
type Alerter interface {
	SendFailure(ctx context.Context, message, stdout, stderr string)
}

// Orchestrator sequences one backup run:
//
//	validate target -> derive primary name -> sweep -> execute primary
//	  -> on failure: derive weekday-qualified name -> execute fallback
//	  -> on failure: alert with the fallback attempt's captured output
//
// Exactly one retry is performed; there is no backoff loop.
type Orchestrator struct {
	cfg     *config.Config
	logger  *log.Logger
	gateway ExecutionGateway
	sweeper RetentionSweeper
	mailer  Alerter
	db      *database.HistoryDB
}

// New creates an Orchestrator with its collaborators
func New(cfg *config.Config, logger *log.Logger, gw ExecutionGateway, sw RetentionSweeper, mailer Alerter, db *database.HistoryDB) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		cfg:     cfg,
		logger:  logger,
		gateway: gw,
		sweeper: sw,
		mailer:  mailer,
		db:      db,
	}
}

// Run executes one orchestration start-to-finish. All expected failures are
// returned as typed errors; anything escaping the components is caught here,
// alerted, and returned so the caller can exit non-zero.
func (o *Orchestrator) Run(ctx context.Context, target Target) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected failure: %v", r)
			o.logger.Printf("ERROR: %v", err)
			o.mailer.SendFailure(ctx, err.Error(), "", "")
		}
	}()

	now := target.Now
	if now.IsZero() {
		now = time.Now()
	}

	metrics.LastRunTimestamp.Set(float64(time.Now().Unix()))

	// Start: validate the target before touching the filesystem
	if perr := validate(target); perr != nil {
		o.logger.Printf("ERROR: %v", perr)
		o.mailer.SendFailure(ctx, perr.Error(), "", "")
		return perr
	}

	o.preflight(target.Directory)

	// NamePrimary
	primary, derr := naming.Derive(target.Directory, target.Prefix, now, false)
	if derr != nil {
		return o.unexpected(ctx, fmt.Errorf("derive primary artifact name: %w", derr))
	}
	if o.cfg.SizeHint {
		primary = naming.WithSizeHint(primary)
	}

	// Sweep: strictly before the primary execution so the sweep can never
	// race the artifact this run is about to create
	removed, serr := o.sweeper.Sweep(target.Directory, o.cfg.RetentionDays, now)
	if serr != nil {
		return o.unexpected(ctx, fmt.Errorf("retention sweep: %w", serr))
	}
	o.logger.Printf("retention sweep removed %d stale artifacts", len(removed))

	// ExecutePrimary
	res := o.attempt(ctx, target, "primary", primary)
	if res.Succeeded {
		o.logger.Printf("backup complete: %s", primary)
		return nil
	}

	o.logger.Printf("primary attempt failed (%s), retrying with weekday-qualified name", res.FailureKind)

	// NameFallback: same directory, prefix and time, weekday-qualified
	fallback, derr := naming.Derive(target.Directory, target.Prefix, now, true)
	if derr != nil {
		return o.unexpected(ctx, fmt.Errorf("derive fallback artifact name: %w", derr))
	}
	if o.cfg.SizeHint {
		fallback = naming.WithSizeHint(fallback)
	}

	// ExecuteFallback
	res2 := o.attempt(ctx, target, "fallback", fallback)
	if res2.Succeeded {
		o.logger.Printf("backup complete on fallback attempt: %s", fallback)
		return nil
	}

	// Failed: alert once with the fallback attempt's captured output
	msg := fmt.Sprintf("backup failed on both attempts: primary %s (%s), fallback %s (%s)",
		primary, res.FailureKind, fallback, res2.FailureKind)
	o.logger.Printf("ERROR: %s", msg)
	o.mailer.SendFailure(ctx, msg, res2.Stdout, res2.Stderr)

	return fmt.Errorf("%w: %s", ErrBackupFailed, res2.FailureKind)
}

// attempt runs the gateway once, recording duration, metrics and history.
func (o *Orchestrator) attempt(ctx context.Context, target Target, attempt, artifact string) gateway.Result {
	start := time.Now()
	res := o.gateway.Execute(ctx, artifact)
	metrics.AttemptDuration.Observe(time.Since(start).Seconds())

	outcome := "SUCCESS"
	if !res.Succeeded {
		outcome = string(res.FailureKind)
	}
	metrics.RunsTotal.WithLabelValues(attempt, outcome).Inc()

	if o.db != nil {
		rec := database.RunRecord{
			Timestamp: start,
			Directory: target.Directory,
			Prefix:    target.Prefix,
			Artifact:  artifact,
			Attempt:   attempt,
			Outcome:   outcome,
			ExitCode:  res.ExitCode,
			Stderr:    res.Stderr,
		}
		if err := o.db.RecordRun(rec); err != nil {
			o.logger.Printf("failed to record %s attempt: %v", attempt, err)
		}
	}

	return res
}

// unexpected handles a failure outside the retry protocol: alert, return.
func (o *Orchestrator) unexpected(ctx context.Context, err error) error {
	o.logger.Printf("ERROR: %v", err)
	o.mailer.SendFailure(ctx, err.Error(), "", "")
	return err
}

// preflight logs and exports free space of the backup directory, best-effort
func (o *Orchestrator) preflight(dir string) {
	free, err := disk.GetFreePercent(dir)
	if err != nil {
		return
	}
	o.logger.Printf("backup directory %s: %.1f%% free", dir, free)
	metrics.DirectoryFreePercent.WithLabelValues(dir).Set(free)
}

func validate(target Target) *PreconditionError {
	if strings.TrimSpace(target.Prefix) == "" {
		return &PreconditionError{Reason: "prefix must be a non-empty string"}
	}
	info, err := os.Stat(target.Directory)
	if err != nil {
		return &PreconditionError{Reason: fmt.Sprintf("directory %s does not exist", target.Directory)}
	}
	if !info.IsDir() {
		return &PreconditionError{Reason: fmt.Sprintf("%s is not a directory", target.Directory)}
	}
	return nil
}
