// Package models contains the data structures used throughout gobackup-homelab.
package models

// BackupConfig holds the complete configuration for a backup run.
type BackupConfig struct {
	Settings Settings
	Tasks    []TaskDescriptor
	Telegram *TelegramConfig // nil if not configured
}

// Settings holds the process-wide backup settings. It is loaded once and
// shared read-only by every running task.
type Settings struct {
	Destination      string
	TimestampFormat  string // strftime format, e.g. "%Y%m%d_%H%M%S"
	ArchiverPath     string
	ArchiveExtension string
	DefaultStrategy  Strategy
	MaxConcurrent    int    // 0 means no limit
	Schedule         string // cron spec used by the schedule command
}
