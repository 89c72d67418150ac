package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"backup-warden/internal/alert"
	"backup-warden/internal/config"
	"backup-warden/internal/database"
	"backup-warden/internal/execx"
	"backup-warden/internal/exitcodes"
	"backup-warden/internal/gateway"
	"backup-warden/internal/journal"
	"backup-warden/internal/logging"
	"backup-warden/internal/metrics"
	"backup-warden/internal/orchestrator"
	"backup-warden/internal/sweep"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] <directory> <prefix>\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "", "Path to optional configuration file")
	dryRun := flag.Bool("dry-run", false, "Log sweep deletions without removing files")
	retentionDays := flag.Int("retention-days", 0, "Override the artifact retention window in days")
	flag.Usage = usage
	flag.Parse()

	// Exactly two positional arguments: directory and prefix
	if flag.NArg() != 2 {
		usage()
		os.Exit(exitcodes.FatalError)
	}
	dir := flag.Arg(0)
	prefix := flag.Arg(1)

	// Load configuration
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: failed to load config: %v\n", err)
			os.Exit(exitcodes.FatalError)
		}
		cfg = loaded
	}
	if *retentionDays > 0 {
		cfg.RetentionDays = *retentionDays
	}

	logger := logging.NewWithConfig(cfg)
	if *dryRun {
		logger.Println("DRY RUN MODE: no artifacts will be deleted")
	}

	// Initialize metrics (Prometheus)
	metrics.Init()
	if cfg.Prometheus.Port > 0 {
		addr := fmt.Sprintf(":%d", cfg.Prometheus.Port)
		metrics.StartServer(addr, logger)
	}

	// Run/sweep history is best-effort: a backup must not fail because the
	// history database is unwritable
	var db *database.HistoryDB
	if cfg.DatabasePath != "" {
		var err error
		db, err = database.NewHistoryDB(cfg.DatabasePath)
		if err != nil {
			logger.Printf("WARN: history database unavailable: %v", err)
			db = nil
		} else {
			defer func() {
				if err := db.Close(); err != nil {
					logger.Printf("ERROR: failed to close history database: %v", err)
				}
			}()
		}
	}

	// Cancel the run context on shutdown signals; subprocesses inherit it
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Printf("received signal %v, aborting run", sig)
		cancel()
	}()

	runner := execx.OSRunner{}
	relay := journal.New(runner, cfg.Journal.Tag, cfg.Journal.Disabled, logger)
	gw := gateway.New(cfg, runner, relay, logger)
	sweeper := sweep.NewSweeper(logger, *dryRun, db)
	mailer := alert.NewMailer(cfg, runner, logger)

	orch := orchestrator.New(cfg, logger, gw, sweeper, mailer, db)
	err := orch.Run(ctx, orchestrator.Target{Directory: dir, Prefix: prefix})

	var precondition *orchestrator.PreconditionError
	switch {
	case err == nil:
		os.Exit(exitcodes.Success)
	case errors.Is(err, orchestrator.ErrBackupFailed):
		os.Exit(exitcodes.BackupFailed)
	case errors.As(err, &precondition):
		os.Exit(exitcodes.FatalError)
	default:
		os.Exit(exitcodes.FatalError)
	}
}
