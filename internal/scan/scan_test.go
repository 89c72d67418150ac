package scan

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeAged(t *testing.T, dir, name string, ageDays int, now time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("artifact"), 0o644); err != nil {
		t.Fatalf("failed to create %s: %v", name, err)
	}
	mtime := now.AddDate(0, 0, -ageDays)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("failed to set mtime on %s: %v", name, err)
	}
	return path
}

func TestArtifactsFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	old := writeAged(t, dir, "a.img", 400, now)
	young := writeAged(t, dir, "b.img", 10, now)
	writeAged(t, dir, "c.txt", 400, now)
	if err := os.Mkdir(filepath.Join(dir, "d.img"), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}

	scanner := NewScanner(nil)
	candidates, err := scanner.Artifacts(dir, 365, now)
	if err != nil {
		t.Fatalf("Artifacts failed: %v", err)
	}

	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	// Oldest first
	if candidates[0].Path != old || candidates[1].Path != young {
		t.Errorf("unexpected order: %s, %s", candidates[0].Path, candidates[1].Path)
	}

	reason := candidates[0].Reason
	if reason.ConfiguredDays != 365 {
		t.Errorf("expected configured threshold 365, got %d", reason.ConfiguredDays)
	}
	if reason.ActualAgeDays < 399 || reason.ActualAgeDays > 401 {
		t.Errorf("expected age around 400 days, got %d", reason.ActualAgeDays)
	}
}

func TestCandidateExpired(t *testing.T) {
	now := time.Now()
	cutoff := 365 * 24 * time.Hour

	old := Candidate{ModTime: now.AddDate(0, 0, -400)}
	if !old.Expired(now, cutoff) {
		t.Error("400-day-old candidate should be expired")
	}

	young := Candidate{ModTime: now.AddDate(0, 0, -10)}
	if young.Expired(now, cutoff) {
		t.Error("10-day-old candidate should not be expired")
	}
}

func TestArtifactsMissingDirectory(t *testing.T) {
	scanner := NewScanner(nil)
	_, err := scanner.Artifacts("/nonexistent/backup/dir", 365, time.Now())
	if !errors.Is(err, ErrDirectoryNotFound) {
		t.Errorf("expected ErrDirectoryNotFound, got %v", err)
	}
}
