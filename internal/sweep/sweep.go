package sweep

import (
	"fmt"
	"log"
	"os"
	"time"

	"backup-warden/internal/database"
	"backup-warden/internal/fsops"
	"backup-warden/internal/metrics"
	"backup-warden/internal/safety"
	"backup-warden/internal/scan"
)

// Logger interface for structured logging in the sweep
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// stdLogger wraps standard log.Logger to implement Logger interface
type stdLogger struct {
	*log.Logger
}

func (l *stdLogger) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *stdLogger) Error(msg string, args ...interface{}) {
	l.logWithLevel("ERROR", msg, args...)
}

func (l *stdLogger) logWithLevel(level, msg string, args ...interface{}) {
	var parts []interface{}
	parts = append(parts, fmt.Sprintf("[%s]", level), msg)
	parts = append(parts, args...)
	l.Logger.Println(parts...)
}

// Removed describes one artifact deleted by a sweep.
type Removed struct {
	Path string
	Size int64
}

// Sweeper removes backup artifacts that have outlived the retention window.
// Per-file failures are absorbed; only directory-level failures propagate.
type Sweeper struct {
	logger    Logger
	scanner   *scan.Scanner
	deleter   fsops.Deleter
	validator *safety.Validator
	db        *database.HistoryDB
	dryRun    bool
}

// NewSweeper creates a new Sweeper instance
func NewSweeper(logger *log.Logger, dryRun bool, db *database.HistoryDB) *Sweeper {
	if logger == nil {
		logger = log.Default()
	}
	return &Sweeper{
		logger:  &stdLogger{Logger: logger},
		scanner: scan.NewScanner(logger),
		deleter: fsops.OSDeleter{},
		db:      db,
		dryRun:  dryRun,
	}
}

// SetDeleter replaces the filesystem deleter (used by tests)
func (s *Sweeper) SetDeleter(d fsops.Deleter) {
	s.deleter = d
}

// SetValidator replaces the per-directory safety validator (used by tests)
func (s *Sweeper) SetValidator(v *safety.Validator) {
	s.validator = v
}

// Sweep enumerates .img artifacts directly inside dir and deletes those older
// than the retention window, measured from now. Returns the removed paths.
func (s *Sweeper) Sweep(dir string, retentionDays int, now time.Time) ([]Removed, error) {
	candidates, err := s.scanner.Artifacts(dir, retentionDays, now)
	if err != nil {
		return nil, err
	}

	validator := s.validator
	if validator == nil {
		validator = safety.NewValidator(dir, nil)
	}

	cutoff := time.Duration(retentionDays) * 24 * time.Hour

	var removed []Removed
	errorCount := 0

	for _, cand := range candidates {
		if !cand.Expired(now, cutoff) {
			continue
		}

		if err := validator.ValidateDeleteTarget(cand.Path); err != nil {
			s.logger.Error("Refusing to delete", "path", cand.Path, "error", err)
			s.record("SKIP", cand, err.Error())
			metrics.SweepErrorsTotal.Inc()
			errorCount++
			continue
		}

		if s.dryRun {
			s.logger.Info("[DRY RUN] Would delete stale artifact", "path", cand.Path, "reason", cand.Reason.ToLogString())
			s.record("DRY_RUN", cand, "")
			continue
		}

		if err := s.deleter.Remove(cand.Path); err != nil {
			if os.IsNotExist(err) {
				// Already gone; an external writer beat us to it.
				s.logger.Info("Artifact already deleted", "path", cand.Path)
				continue
			}
			s.logger.Error("Failed to delete stale artifact", "path", cand.Path, "error", err)
			s.record("ERROR", cand, err.Error())
			metrics.SweepErrorsTotal.Inc()
			errorCount++
			continue
		}

		s.logger.Info("Deleted stale artifact", "path", cand.Path, "size", cand.Size, "reason", cand.Reason.ToLogString())
		s.record("DELETE", cand, "")
		removed = append(removed, Removed{Path: cand.Path, Size: cand.Size})

		metrics.SweepFilesDeletedTotal.Inc()
		metrics.SweepBytesFreedTotal.Add(float64(cand.Size))
	}

	s.logger.Info("Sweep complete",
		"dir", dir,
		"candidates", len(candidates),
		"deleted", len(removed),
		"errors", errorCount,
	)

	return removed, nil
}

// record writes a sweep event to the history database, best-effort
func (s *Sweeper) record(action string, cand scan.Candidate, errMsg string) {
	if s.db == nil {
		return
	}
	if err := s.db.RecordSweep(action, cand, errMsg); err != nil {
		s.logger.Error("Failed to record sweep event", "error", err)
	}
}
