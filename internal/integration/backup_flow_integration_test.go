package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"backup-warden/internal/alert"
	"backup-warden/internal/config"
	"backup-warden/internal/database"
	"backup-warden/internal/execx"
	"backup-warden/internal/gateway"
	"backup-warden/internal/journal"
	"backup-warden/internal/metrics"
	"backup-warden/internal/orchestrator"
	"backup-warden/internal/sweep"
)

func init() {
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

// TestEndToEndSuccessfulBackup wires real naming, scanning, sweeping and
// gateway against a faked subprocess layer: an October 2025 run over
// directory <tmp> with prefix "db" and an always-succeeding imaging tool
// must produce db_102025.img on the primary attempt, sweep the stale
// artifact, and send no mail.
func TestEndToEndSuccessfulBackup(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 10, 15, 3, 0, 0, 0, time.Local)

	stale := writeAged(t, dir, "db_082024.img", 400, now)
	fresh := writeAged(t, dir, "db_092025.img", 20, now)

	runner := &execx.FakeRunner{Outcomes: []execx.Outcome{
		{Result: execx.Result{Stdout: "image written\n"}},
	}}

	cfg := config.Default()
	db, err := database.NewHistoryDB(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("failed to open history database: %v", err)
	}
	defer db.Close()

	relay := journal.New(runner, cfg.Journal.Tag, cfg.Journal.Disabled, nil)
	gw := gateway.New(cfg, runner, relay, nil)
	sweeper := sweep.NewSweeper(nil, false, db)
	mailer := alert.NewMailer(cfg, runner, nil)
	orch := orchestrator.New(cfg, nil, gw, sweeper, mailer, db)

	err = orch.Run(context.Background(), orchestrator.Target{Directory: dir, Prefix: "db", Now: now})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// One primary invocation of the imaging tool, with sudo and the -i flag
	execCalls := runner.ExecCalls()
	if len(execCalls) != 1 {
		t.Fatalf("expected 1 imaging tool invocation, got %d", len(execCalls))
	}
	wantArgv := "sudo image-backup -i " + filepath.Join(dir, "db_102025.img")
	if got := execCalls[0].Argv(); got != wantArgv {
		t.Errorf("expected argv %q, got %q", wantArgv, got)
	}

	// The stale artifact is swept, the fresh one survives
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("expected %s to be swept", stale)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("expected %s to survive the sweep: %v", fresh, err)
	}

	// No mail on success; only the journal mirror uses the shell
	for _, call := range runner.ShellCalls() {
		if strings.Contains(call.Script, "msmtp") {
			t.Errorf("unexpected mail invocation on success: %s", call.Script)
		}
	}

	// Both the attempt and the sweep landed in the history database
	runs, err := db.GetRecentRuns(10)
	if err != nil {
		t.Fatalf("failed to query runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Outcome != "SUCCESS" || runs[0].Attempt != "primary" {
		t.Errorf("unexpected run history: %+v", runs)
	}
	sweeps, err := db.GetRecentSweeps(10)
	if err != nil {
		t.Fatalf("failed to query sweeps: %v", err)
	}
	if len(sweeps) != 1 || sweeps[0].Action != "DELETE" {
		t.Errorf("unexpected sweep history: %+v", sweeps)
	}
}

// TestEndToEndTotalFailureAlerts drives both attempts to failure and
// verifies the mail pipeline fires exactly once with the fallback output.
func TestEndToEndTotalFailureAlerts(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 10, 15, 3, 0, 0, 0, time.Local)

	runner := &execx.FakeRunner{Outcomes: []execx.Outcome{
		{Result: execx.Result{ExitCode: 1, Stderr: "primary failed\n"}},
		{Result: execx.Result{}}, // journal mirror of primary stderr
		{Result: execx.Result{ExitCode: 1, Stderr: "fallback failed\n"}},
		{Result: execx.Result{}}, // journal mirror of fallback stderr
	}}

	cfg := config.Default()
	relay := journal.New(runner, cfg.Journal.Tag, cfg.Journal.Disabled, nil)
	gw := gateway.New(cfg, runner, relay, nil)
	sweeper := sweep.NewSweeper(nil, false, nil)
	mailer := alert.NewMailer(cfg, runner, nil)
	orch := orchestrator.New(cfg, nil, gw, sweeper, mailer, nil)

	err := orch.Run(context.Background(), orchestrator.Target{Directory: dir, Prefix: "db", Now: now})
	if err == nil {
		t.Fatal("expected Run to fail after both attempts")
	}

	if got := len(runner.ExecCalls()); got != 2 {
		t.Fatalf("expected 2 imaging tool invocations, got %d", got)
	}

	var mails []execx.Call
	for _, call := range runner.ShellCalls() {
		if strings.Contains(call.Script, "msmtp") {
			mails = append(mails, call)
		}
	}
	if len(mails) != 1 {
		t.Fatalf("expected exactly one alert mail, got %d", len(mails))
	}
	if !strings.Contains(mails[0].Script, "fallback failed") {
		t.Errorf("alert should carry the fallback attempt's stderr: %s", mails[0].Script)
	}
}
