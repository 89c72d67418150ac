package scan

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"backup-warden/internal/naming"
)

// Logger interface for structured logging
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
}

// stdLogger wraps standard log.Logger to implement Logger interface
type stdLogger struct {
	*log.Logger
}

func (l *stdLogger) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *stdLogger) Warn(msg string, args ...interface{}) {
	l.logWithLevel("WARN", msg, args...)
}

func (l *stdLogger) logWithLevel(level, msg string, args ...interface{}) {
	var parts []interface{}
	parts = append(parts, fmt.Sprintf("[%s]", level), msg)
	parts = append(parts, args...)
	l.Logger.Println(parts...)
}

var ErrDirectoryNotFound = errors.New("directory does not exist or is not a directory")

// Candidate is one backup artifact found during a retention scan.
type Candidate struct {
	Path    string
	Size    int64
	ModTime time.Time
	Reason  AgeReason
}

// Expired reports whether the candidate has outlived the retention cutoff.
func (c Candidate) Expired(now time.Time, cutoff time.Duration) bool {
	return now.Sub(c.ModTime) > cutoff
}

// Scanner enumerates retention candidates in a backup directory
type Scanner struct {
	logger Logger
}

// NewScanner creates a new Scanner with the given logger
func NewScanner(logger *log.Logger) *Scanner {
	if logger == nil {
		logger = log.Default()
	}
	return &Scanner{
		logger: &stdLogger{Logger: logger},
	}
}

// Artifacts lists the backup artifacts directly inside dir (non-recursive),
// filtered to the artifact extension, each annotated with its age against
// the retention window. Candidates are returned oldest first.
func (s *Scanner) Artifacts(dir string, retentionDays int, now time.Time) ([]Candidate, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	candidates := make([]Candidate, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), naming.Extension) {
			continue
		}

		fi, err := entry.Info()
		if err != nil {
			// Entry vanished between ReadDir and Info; not our problem.
			s.logger.Warn("Failed to stat artifact", "path", entry.Name(), "error", err)
			continue
		}

		candidates = append(candidates, Candidate{
			Path:    filepath.Join(dir, entry.Name()),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
			Reason: AgeReason{
				ConfiguredDays: retentionDays,
				ActualAgeDays:  int(now.Sub(fi.ModTime()).Hours() / 24),
				EvaluatedAt:    now,
			},
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ModTime.Before(candidates[j].ModTime)
	})

	s.logger.Info("Artifact scan complete", "dir", dir, "candidates_found", len(candidates))
	return candidates, nil
}
