package exitcodes

// Exit codes for backup-warden
// These codes form the operational contract with cron and operators
const (
	Success      = 0 // Backup completed on the primary or fallback attempt
	FatalError   = 1 // Usage error, failed precondition, or unexpected runtime failure
	BackupFailed = 2 // Both backup attempts failed
)
