package statereader

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// WatcherConfig holds configuration for a Watcher.
type WatcherConfig struct {
	// Dir is the state directory to watch for changes. Empty disables
	// file notifications and leaves plain polling.
	Dir string

	// File is the base name whose changes trigger an early tick.
	// Default: GameState.json
	File string

	// Interval is the polling period.
	// Default: 1.5 seconds
	Interval time.Duration

	// UseFSNotify enables early ticks on file change events.
	UseFSNotify bool

	// MinGap is the minimum spacing between notification-triggered ticks.
	// Default: 250ms
	MinGap time.Duration

	Logger *zap.Logger
}

// DefaultWatcherConfig returns a WatcherConfig with sensible defaults.
func DefaultWatcherConfig(dir string) *WatcherConfig {
	return &WatcherConfig{
		Dir:         dir,
		File:        GameStateFile,
		Interval:    1500 * time.Millisecond,
		UseFSNotify: true,
		MinGap:      250 * time.Millisecond,
	}
}

// TickFunc is invoked once per tick. Ticks never overlap.
type TickFunc func(ctx context.Context)

// Watcher drives the observer tick from a ticker, optionally firing early
// when the game rewrites its state file.
type Watcher struct {
	config  WatcherConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewWatcher creates a Watcher with the given configuration.
func NewWatcher(config *WatcherConfig) (*Watcher, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	cfg := *config
	if cfg.Interval <= 0 {
		cfg.Interval = 1500 * time.Millisecond
	}
	if cfg.MinGap <= 0 {
		cfg.MinGap = 250 * time.Millisecond
	}
	if cfg.File == "" {
		cfg.File = GameStateFile
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Watcher{
		config:  cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.MinGap), 1),
		logger:  logger,
	}, nil
}

// Run ticks until ctx is cancelled. The first tick happens immediately.
// A tick in progress always completes before Run returns.
func (w *Watcher) Run(ctx context.Context, tick TickFunc) error {
	var events <-chan fsnotify.Event
	var errs <-chan error

	if w.config.UseFSNotify && w.config.Dir != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			w.logger.Warn("file notifications unavailable, polling only", zap.Error(err))
		} else {
			defer func() {
				_ = watcher.Close() //nolint:errcheck // Ignore error on cleanup
			}()
			if err := watcher.Add(w.config.Dir); err != nil {
				w.logger.Warn("failed to watch state directory, polling only",
					zap.String("dir", w.config.Dir), zap.Error(err))
			} else {
				events = watcher.Events
				errs = watcher.Errors
			}
		}
	}

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			tick(ctx)
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !w.relevant(event) || !w.limiter.Allow() {
				continue
			}
			tick(ctx)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Base(event.Name) != w.config.File {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
