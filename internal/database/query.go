package database

import (
	"database/sql"
	"time"
)

// GetRecentRuns returns the N most recent imaging tool invocations
func (d *HistoryDB) GetRecentRuns(limit int) ([]RunRecord, error) {
	query := `
	SELECT id, timestamp, directory, prefix, artifact, attempt, outcome, exit_code, stderr
	FROM backup_runs
	ORDER BY timestamp DESC
	LIMIT ?
	`

	rows, err := d.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		var exitCode sql.NullInt64
		var stderr sql.NullString
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.Directory, &r.Prefix, &r.Artifact,
			&r.Attempt, &r.Outcome, &exitCode, &stderr); err != nil {
			return nil, err
		}
		if exitCode.Valid {
			code := int(exitCode.Int64)
			r.ExitCode = &code
		}
		r.Stderr = stderr.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetRecentSweeps returns the N most recent sweep events
func (d *HistoryDB) GetRecentSweeps(limit int) ([]SweepRecord, error) {
	query := `
	SELECT id, timestamp, action, path, file_name, size, age_days, threshold_days, reason, error_message
	FROM sweep_deletions
	ORDER BY timestamp DESC
	LIMIT ?
	`

	rows, err := d.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []SweepRecord
	for rows.Next() {
		var r SweepRecord
		var fileName, reason, errMsg sql.NullString
		var ageDays, thresholdDays sql.NullInt64
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.Action, &r.Path, &fileName,
			&r.Size, &ageDays, &thresholdDays, &reason, &errMsg); err != nil {
			return nil, err
		}
		r.FileName = fileName.String
		r.AgeDays = int(ageDays.Int64)
		r.ThresholdDays = int(thresholdDays.Int64)
		r.Reason = reason.String
		r.ErrorMessage = errMsg.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// HistoryStats summarizes runs and sweeps over a period
type HistoryStats struct {
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	TotalRuns        int64     `json:"total_runs"`
	SuccessfulRuns   int64     `json:"successful_runs"`
	FailedRuns       int64     `json:"failed_runs"`
	FallbackRuns     int64     `json:"fallback_runs"`
	ArtifactsDeleted int64     `json:"artifacts_deleted"`
	BytesFreed       int64     `json:"bytes_freed"`
}

// GetStats returns run and sweep statistics for the last N days
func (d *HistoryDB) GetStats(days int) (*HistoryStats, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	stats := &HistoryStats{StartDate: start, EndDate: end}

	runQuery := `
	SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN outcome = 'SUCCESS' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN outcome != 'SUCCESS' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN attempt = 'fallback' THEN 1 ELSE 0 END), 0)
	FROM backup_runs
	WHERE timestamp BETWEEN ? AND ?
	`
	if err := d.db.QueryRow(runQuery, start, end).Scan(
		&stats.TotalRuns, &stats.SuccessfulRuns, &stats.FailedRuns, &stats.FallbackRuns); err != nil {
		return nil, err
	}

	sweepQuery := `
	SELECT COUNT(*), COALESCE(SUM(size), 0)
	FROM sweep_deletions
	WHERE action = 'DELETE' AND timestamp BETWEEN ? AND ?
	`
	if err := d.db.QueryRow(sweepQuery, start, end).Scan(
		&stats.ArtifactsDeleted, &stats.BytesFreed); err != nil {
		return nil, err
	}

	return stats, nil
}
