package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	// DirName is the per-user directory holding config, database and logs.
	DirName = ".snap-companion"

	// FileName is the configuration file inside DirName.
	FileName = "config.toml"
)

// Config represents the application configuration.
type Config struct {
	// Game state file settings
	Game GameConfig `toml:"game"`

	// Match database settings
	Database DatabaseConfig `toml:"database"`

	// Logging settings
	Log LogConfig `toml:"log"`

	// Scheduled backup settings
	Backup BackupConfig `toml:"backup"`
}

// GameConfig contains game state monitoring settings.
type GameConfig struct {
	StateDir             string `toml:"state_dir"`              // Override for the game's States directory
	PollInterval         string `toml:"poll_interval"`          // Polling interval (e.g., "1.5s")
	UseFsnotify          bool   `toml:"use_fsnotify"`           // Tick early on file system events
	ReadRetries          int    `toml:"read_retries"`           // Attempts per tick for a torn read
	RetryBackoff         string `toml:"retry_backoff"`          // Pause between read attempts
	SelectedDeckAttempts int    `toml:"selected_deck_attempts"` // Ticks spent matching the selected deck
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	Path string `toml:"path"` // Empty means ~/.snap-companion/snap.db
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level    string `toml:"level"`     // debug, info, warn or error
	ErrorLog string `toml:"error_log"` // Tracker error log; empty means next to the database
}

// BackupConfig contains scheduled backup settings.
type BackupConfig struct {
	Enabled  bool   `toml:"enabled"`
	Interval string `toml:"interval"` // e.g. "24h"
	Dir      string `toml:"dir"`      // Empty means <database dir>/backups
	Keep     int    `toml:"keep"`     // Backups to retain (0 = all)
	Password string `toml:"password"` // Encrypts backups when set
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Game: GameConfig{
			PollInterval:         "1.5s",
			UseFsnotify:          true,
			ReadRetries:          3,
			RetryBackoff:         "150ms",
			SelectedDeckAttempts: 3,
		},
		Log: LogConfig{
			Level: "info",
		},
		Backup: BackupConfig{
			Enabled:  false,
			Interval: "24h",
			Keep:     7,
		},
	}
}

// Dir returns ~/.snap-companion.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName), nil
}

// DefaultPath returns the path to the configuration file.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load loads the configuration from path, or from DefaultPath when path is
// empty. Returns the default config if the file doesn't exist. Keys missing
// from the file keep their default values.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return config, nil
}

// Save saves the configuration to path, or to DefaultPath when path is empty.
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	// The file may hold the backup password.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if d, err := time.ParseDuration(c.Game.PollInterval); err != nil {
		return fmt.Errorf("invalid poll interval %q: %w", c.Game.PollInterval, err)
	} else if d <= 0 {
		return fmt.Errorf("poll interval must be positive: %s", c.Game.PollInterval)
	}

	if _, err := time.ParseDuration(c.Game.RetryBackoff); err != nil {
		return fmt.Errorf("invalid retry backoff %q: %w", c.Game.RetryBackoff, err)
	}

	if c.Game.ReadRetries < 1 {
		return fmt.Errorf("read retries must be at least 1: %d", c.Game.ReadRetries)
	}

	if c.Game.SelectedDeckAttempts < 1 {
		return fmt.Errorf("selected deck attempts must be at least 1: %d", c.Game.SelectedDeckAttempts)
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}

	if c.Backup.Enabled {
		if d, err := time.ParseDuration(c.Backup.Interval); err != nil {
			return fmt.Errorf("invalid backup interval %q: %w", c.Backup.Interval, err)
		} else if d < time.Minute {
			return fmt.Errorf("backup interval too short: %s", c.Backup.Interval)
		}
	}

	if c.Backup.Keep < 0 {
		return fmt.Errorf("backup keep cannot be negative: %d", c.Backup.Keep)
	}

	return nil
}

// GetPollInterval returns the game state poll interval as a duration.
func (c *Config) GetPollInterval() (time.Duration, error) {
	return time.ParseDuration(c.Game.PollInterval)
}

// GetRetryBackoff returns the pause between read attempts as a duration.
func (c *Config) GetRetryBackoff() (time.Duration, error) {
	return time.ParseDuration(c.Game.RetryBackoff)
}

// GetBackupInterval returns the backup interval as a duration.
func (c *Config) GetBackupInterval() (time.Duration, error) {
	return time.ParseDuration(c.Backup.Interval)
}

// DatabasePath returns the configured database path or ~/.snap-companion/snap.db.
func (c *Config) DatabasePath() (string, error) {
	if c.Database.Path != "" {
		return c.Database.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "snap.db"), nil
}

// ErrorLogPath returns the configured tracker error log, defaulting to
// errors.log next to the database.
func (c *Config) ErrorLogPath() (string, error) {
	if c.Log.ErrorLog != "" {
		return c.Log.ErrorLog, nil
	}
	dbPath, err := c.DatabasePath()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(dbPath), "errors.log"), nil
}
