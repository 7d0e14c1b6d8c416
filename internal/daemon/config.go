package daemon

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ramonehamilton/snap-companion/internal/config"
	"github.com/ramonehamilton/snap-companion/internal/storage"
)

// Config holds configuration for the daemon service.
type Config struct {
	// Game States directory (auto-detect if empty)
	StateDir string

	// Game state poll interval
	PollInterval time.Duration

	// Enable file system events (fsnotify) for early ticks
	UseFSNotify bool

	// Read attempts per tick and the pause between them
	ReadRetries  int
	RetryBackoff time.Duration

	// Ticks spent correlating the selected deck with the collection
	SelectedDeckAttempts int

	// Tracker error log file; empty logs through Logger only
	ErrorLogPath string

	// Log every snapshot update, not only commits and errors
	Verbose bool

	// Scheduled backups; nil disables them
	Backup *storage.SchedulerConfig

	Logger *zap.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		PollInterval:         1500 * time.Millisecond,
		UseFSNotify:          true,
		ReadRetries:          3,
		RetryBackoff:         150 * time.Millisecond,
		SelectedDeckAttempts: 3,
	}
}

// FromSettings builds a daemon Config from the application configuration.
func FromSettings(settings *config.Config) (*Config, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	poll, err := settings.GetPollInterval()
	if err != nil {
		return nil, err
	}
	backoff, err := settings.GetRetryBackoff()
	if err != nil {
		return nil, err
	}
	errLog, err := settings.ErrorLogPath()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		StateDir:             settings.Game.StateDir,
		PollInterval:         poll,
		UseFSNotify:          settings.Game.UseFsnotify,
		ReadRetries:          settings.Game.ReadRetries,
		RetryBackoff:         backoff,
		SelectedDeckAttempts: settings.Game.SelectedDeckAttempts,
		ErrorLogPath:         errLog,
		Verbose:              settings.Log.Level == "debug",
	}

	if settings.Backup.Enabled {
		interval, err := settings.GetBackupInterval()
		if err != nil {
			return nil, err
		}
		backup := storage.DefaultBackupConfig()
		backup.Dir = settings.Backup.Dir
		if settings.Backup.Password != "" {
			backup.Encryption = storage.DefaultEncryptionConfig(settings.Backup.Password)
		}
		cfg.Backup = &storage.SchedulerConfig{
			Interval:     interval,
			BackupConfig: backup,
			Keep:         settings.Backup.Keep,
		}
	}

	return cfg, nil
}
