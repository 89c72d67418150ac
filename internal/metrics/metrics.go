package metrics

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce    sync.Once
	serverMutex sync.Mutex
	currentSrv  *http.Server
)

// Backup subsystem metrics
var (
	// RunsTotal counts execution attempts by attempt ("primary"/"fallback")
	// and outcome (SUCCESS, TOOL_NOT_FOUND, NON_ZERO_EXIT, TRANSPORT_ERROR)
	RunsTotal *prometheus.CounterVec

	// AttemptDuration tracks how long imaging tool invocations take
	AttemptDuration prometheus.Histogram

	// LastRunTimestamp records Unix timestamp of the last orchestration run
	LastRunTimestamp prometheus.Gauge

	// SweepFilesDeletedTotal counts artifacts removed by the retention sweep
	SweepFilesDeletedTotal prometheus.Counter

	// SweepBytesFreedTotal tracks bytes freed by the retention sweep
	SweepBytesFreedTotal prometheus.Counter

	// SweepErrorsTotal counts absorbed per-file sweep failures
	SweepErrorsTotal prometheus.Counter

	// AlertsSentTotal counts failure notifications handed to the mail relay
	AlertsSentTotal prometheus.Counter

	// DirectoryFreePercent reports free space of the backup directory
	DirectoryFreePercent *prometheus.GaugeVec
)

// Init initializes and registers all metrics with Prometheus
// This function is safe to call multiple times (uses sync.Once)
func Init() {
	initOnce.Do(func() {
		RunsTotal = NewCounterVec(
			"backupwarden_runs_total",
			"Total imaging tool invocations by attempt and outcome.",
			[]string{"attempt", "outcome"},
		)
		AttemptDuration = NewDurationHistogram(
			"backupwarden_attempt_duration_seconds",
			"Duration of imaging tool invocations in seconds.",
		)
		LastRunTimestamp = NewGauge(
			"backupwarden_last_run_timestamp",
			"Timestamp of the last orchestration run (Unix epoch seconds).",
		)
		SweepFilesDeletedTotal = NewCounter(
			"backupwarden_sweep_files_deleted_total",
			"Total number of stale artifacts deleted by the retention sweep.",
		)
		SweepBytesFreedTotal = NewBytesCounter(
			"backupwarden_sweep_bytes_freed_total",
			"Total bytes freed by the retention sweep.",
		)
		SweepErrorsTotal = NewCounter(
			"backupwarden_sweep_errors_total",
			"Total per-file sweep failures (absorbed, non-fatal).",
		)
		AlertsSentTotal = NewCounter(
			"backupwarden_alerts_sent_total",
			"Total failure notifications handed to the mail relay.",
		)
		DirectoryFreePercent = NewGaugeVec(
			"backupwarden_directory_free_percent",
			"Free disk space of the backup directory in percent.",
			[]string{"path"},
		)

		prometheus.MustRegister(
			RunsTotal,
			AttemptDuration,
			LastRunTimestamp,
			SweepFilesDeletedTotal,
			SweepBytesFreedTotal,
			SweepErrorsTotal,
			AlertsSentTotal,
			DirectoryFreePercent,
		)

		// Default values so the series appear in /metrics before the first run
		LastRunTimestamp.Set(0)
	})
}

// StartServer starts the metrics HTTP server on the specified address
// Exposes /metrics (Prometheus) and /health
func StartServer(addr string, logger *log.Logger) {
	serverMutex.Lock()
	defer serverMutex.Unlock()

	if currentSrv != nil {
		logger.Printf("metrics server already running on %s", currentSrv.Addr)
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	currentSrv = srv

	go func() {
		logger.Printf("metrics server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("metrics server error: %v", err)
		}
	}()

	// Give server 100ms to start
	time.Sleep(100 * time.Millisecond)
}

// Shutdown gracefully shuts down the metrics server
func Shutdown(ctx context.Context, logger *log.Logger) {
	serverMutex.Lock()
	defer serverMutex.Unlock()

	if currentSrv == nil {
		return
	}

	if err := currentSrv.Shutdown(ctx); err != nil {
		logger.Printf("metrics server shutdown error: %v", err)
	}
	currentSrv = nil
}
