package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"backup-warden/internal/database"
	"backup-warden/internal/exitcodes"
)

func main() {
	dbPath := flag.String("db", "/var/lib/backup-warden/history.db", "Path to run history database")
	runs := flag.Int("runs", 0, "Show N most recent backup attempts")
	sweeps := flag.Int("sweeps", 0, "Show N most recent sweep events")
	stats := flag.Bool("stats", false, "Show run and sweep statistics")
	days := flag.Int("days", 30, "Number of days for statistics (default: 30)")
	jsonOutput := flag.Bool("json", false, "Output in JSON format")
	flag.Parse()

	db, err := database.NewHistoryDB(*dbPath)
	if err != nil {
		log.Fatalf("ERROR: Failed to open database %s: %v", *dbPath, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("ERROR: Failed to close database: %v", err)
		}
	}()

	switch {
	case *stats:
		showStats(db, *days, *jsonOutput)
	case *runs > 0:
		showRuns(db, *runs, *jsonOutput)
	case *sweeps > 0:
		showSweeps(db, *sweeps, *jsonOutput)
	default:
		flag.Usage()
		fmt.Println("\nExamples:")
		fmt.Println("  backup-warden-query --runs 10    # Show 10 most recent backup attempts")
		fmt.Println("  backup-warden-query --sweeps 10  # Show 10 most recent sweep events")
		fmt.Println("  backup-warden-query --stats      # Show run and sweep statistics")
		os.Exit(exitcodes.FatalError)
	}
}

func showStats(db *database.HistoryDB, days int, jsonOutput bool) {
	stats, err := db.GetStats(days)
	if err != nil {
		log.Fatalf("ERROR: Failed to get statistics: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Backup History (Last %d days)\n", days)
	fmt.Printf("Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Printf("Total Attempts:     %d\n", stats.TotalRuns)
	fmt.Printf("Successful:         %d\n", stats.SuccessfulRuns)
	fmt.Printf("Failed:             %d\n", stats.FailedRuns)
	fmt.Printf("Fallback Attempts:  %d\n", stats.FallbackRuns)
	fmt.Printf("Artifacts Swept:    %d\n", stats.ArtifactsDeleted)
	fmt.Printf("Bytes Freed:        %d\n", stats.BytesFreed)
}

func showRuns(db *database.HistoryDB, limit int, jsonOutput bool) {
	records, err := db.GetRecentRuns(limit)
	if err != nil {
		log.Fatalf("ERROR: Failed to query runs: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(data))
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tATTEMPT\tOUTCOME\tEXIT\tARTIFACT")
	for _, r := range records {
		exit := "-"
		if r.ExitCode != nil {
			exit = fmt.Sprintf("%d", *r.ExitCode)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.Timestamp.Format("2006-01-02 15:04:05"), r.Attempt, r.Outcome, exit, r.Artifact)
	}
	w.Flush()
}

func showSweeps(db *database.HistoryDB, limit int, jsonOutput bool) {
	records, err := db.GetRecentSweeps(limit)
	if err != nil {
		log.Fatalf("ERROR: Failed to query sweep events: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(data))
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tACTION\tSIZE\tAGE\tPATH")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%d\t%dd\t%s\n",
			r.Timestamp.Format("2006-01-02 15:04:05"), r.Action, r.Size, r.AgeDays, r.Path)
	}
	w.Flush()
}
