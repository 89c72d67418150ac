package sweep

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"backup-warden/internal/fsops"
	"backup-warden/internal/metrics"
	"backup-warden/internal/scan"
)

func init() {
	// Initialize metrics once for all tests
	metrics.Init()
}

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

// TestSweepRemovesOnlyExpiredImages proves the retention contract: only
// .img artifacts older than the cutoff are deleted.
func TestSweepRemovesOnlyExpiredImages(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	old := writeAged(t, dir, "a.img", 400, now)
	young := writeAged(t, dir, "b.img", 10, now)
	oldText := writeAged(t, dir, "c.txt", 400, now)

	sweeper := NewSweeper(nil, false, nil)
	removed, err := sweeper.Sweep(dir, 365, now)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if len(removed) != 1 || removed[0].Path != old {
		t.Errorf("expected only %s removed, got %v", old, removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Errorf("expected %s to be deleted", old)
	}
	if _, err := os.Stat(young); err != nil {
		t.Errorf("expected %s to survive: %v", young, err)
	}
	if _, err := os.Stat(oldText); err != nil {
		t.Errorf("expected %s to survive: %v", oldText, err)
	}
}

// TestSweepPerFileFailureIsAbsorbed proves a single failing deletion does
// not abort the sweep.
func TestSweepPerFileFailureIsAbsorbed(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	bad := writeAged(t, dir, "a.img", 400, now)
	good := writeAged(t, dir, "b.img", 500, now)

	fake := &fsops.FakeDeleter{Fail: map[string]error{bad: os.ErrPermission}}
	sweeper := NewSweeper(nil, false, nil)
	sweeper.SetDeleter(fake)

	removed, err := sweeper.Sweep(dir, 365, now)
	if err != nil {
		t.Fatalf("per-file failure must not abort the sweep: %v", err)
	}

	if len(removed) != 1 || removed[0].Path != good {
		t.Errorf("expected only %s reported removed, got %v", good, removed)
	}
	// Both expired candidates must have been attempted
	if len(fake.Calls) != 2 {
		t.Errorf("expected 2 delete attempts, got %d: %v", len(fake.Calls), fake.Calls)
	}
}

// TestDryRunNeverDeletes proves the dry-run contract:
// When dryRun=true, ZERO delete syscalls must occur
func TestDryRunNeverDeletes(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	old := writeAged(t, dir, "a.img", 400, now)

	fake := &fsops.FakeDeleter{}
	sweeper := NewSweeper(nil, true, nil) // dryRun=true
	sweeper.SetDeleter(fake)

	removed, err := sweeper.Sweep(dir, 365, now)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if len(fake.Calls) != 0 {
		t.Errorf("DRY-RUN VIOLATION: expected 0 delete calls, got %d: %v", len(fake.Calls), fake.Calls)
	}
	if len(removed) != 0 {
		t.Errorf("dry run must not report removals, got %v", removed)
	}
	if _, err := os.Stat(old); err != nil {
		t.Errorf("expected %s to survive dry run: %v", old, err)
	}
}

// TestSweepAlreadyDeletedIsNotAnError covers the race where an external
// writer removes the artifact between scan and delete.
func TestSweepAlreadyDeletedIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	old := writeAged(t, dir, "a.img", 400, now)

	fake := &fsops.FakeDeleter{Fail: map[string]error{old: os.ErrNotExist}}
	sweeper := NewSweeper(nil, false, nil)
	sweeper.SetDeleter(fake)

	removed, err := sweeper.Sweep(dir, 365, now)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if len(removed) != 0 {
		t.Errorf("vanished artifact must not be reported removed, got %v", removed)
	}
}

func TestSweepMissingDirectory(t *testing.T) {
	sweeper := NewSweeper(nil, false, nil)
	_, err := sweeper.Sweep("/nonexistent/backup/dir", 365, time.Now())
	if !errors.Is(err, scan.ErrDirectoryNotFound) {
		t.Errorf("expected ErrDirectoryNotFound, got %v", err)
	}
}
