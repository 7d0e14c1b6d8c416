// Command snap-companion tracks Marvel Snap matches from the game's state
// files and reports statistics over them.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ramonehamilton/snap-companion/internal/config"
	"github.com/ramonehamilton/snap-companion/internal/logging"
	"github.com/ramonehamilton/snap-companion/internal/storage"
	"github.com/ramonehamilton/snap-companion/internal/version"
)

// app carries the root flags and the state every subcommand shares.
type app struct {
	cfgFile  string
	dbPath   string
	logLevel string

	settings *config.Config
	logger   *zap.Logger
}

func main() {
	a := &app{}
	if err := newRootCmd(a).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "snap-companion",
		Short:        "Marvel Snap match tracker",
		Version:      version.String(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync() //nolint:errcheck // stderr sync fails on some terminals
			}
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Path to configuration file (default ~/.snap-companion/config.toml)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (overrides config)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newWatchCmd(a),
		newStatsCmd(a),
		newMatchesCmd(a),
		newNoteCmd(a),
		newDeleteCmd(a),
		newDecksCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newBackupCmd(a),
		newRestoreCmd(a),
		newCleanupEventsCmd(a),
		newServiceCmd(a),
	)
	return root
}

// init loads the configuration and applies the root flag overrides.
func (a *app) init() error {
	settings, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		settings.Database.Path = a.dbPath
	}
	if a.logLevel != "" {
		settings.Log.Level = a.logLevel
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.settings = settings

	logger, err := logging.NewLogger(settings.Log.Level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.logger = logger
	return nil
}

// openStore opens the configured database, creating its directory.
func (a *app) openStore() (*storage.Service, error) {
	path, err := a.settings.DatabasePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	cfg := storage.DefaultConfig(path)
	cfg.Logger = a.logger
	db, err := storage.Open(cfg)
	if err != nil {
		return nil, err
	}

	store := storage.NewService(db)
	if err := store.CheckEventIndex(); err != nil {
		a.logger.Warn("duplicate match events found; run cleanup-events", zap.Error(err))
	}
	return store, nil
}

// withStore runs fn against an open store and closes it afterwards.
func (a *app) withStore(fn func(*storage.Service) error) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			a.logger.Warn("failed to close database", zap.Error(err))
		}
	}()
	return fn(store)
}
