package scan

import (
	"fmt"
	"time"
)

// AgeReason captures why an artifact is a retention candidate. Recorded on
// every candidate so the sweep log and the history database can show the
// threshold that was in force when the file was evaluated.
type AgeReason struct {
	ConfiguredDays int       // retention window from config
	ActualAgeDays  int       // artifact age at scan time
	EvaluatedAt    time.Time // when the age was computed
}

// ToLogString formats the reason for structured logging.
// Example: "age_threshold: 400d (max=365d)"
func (r AgeReason) ToLogString() string {
	return fmt.Sprintf("age_threshold: %dd (max=%dd)", r.ActualAgeDays, r.ConfiguredDays)
}
