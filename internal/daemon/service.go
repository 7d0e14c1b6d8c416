// Package daemon runs the match tracker continuously: it ticks the observer
// from the state-file watcher, logs tracker events and runs scheduled backups.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ramonehamilton/snap-companion/internal/events"
	"github.com/ramonehamilton/snap-companion/internal/metrics"
	"github.com/ramonehamilton/snap-companion/internal/snap/statereader"
	"github.com/ramonehamilton/snap-companion/internal/snap/tracker"
	"github.com/ramonehamilton/snap-companion/internal/storage"
	"github.com/ramonehamilton/snap-companion/internal/version"
)

// Service represents the daemon service that runs continuously.
type Service struct {
	config     *Config
	storage    *storage.Service
	logger     *zap.Logger
	locator    *statereader.Locator
	dispatcher *events.EventDispatcher
	observer   *tracker.Observer
	errLog     *tracker.ErrorLog
	scheduler  *storage.BackupScheduler
	tickTimes  *metrics.Histogram
	startTime  time.Time

	cancel context.CancelFunc
	done   chan error

	// Health tracking
	healthMu     sync.RWMutex
	lastTick     time.Time
	lastCommit   time.Time
	lastError    string
	running      bool
	stateFound   bool
	totalTicks   int64
	totalCommits int64
	totalErrors  int64
}

// New creates a new daemon service.
func New(config *Config, store *storage.Service) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if store == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	locator, err := statereader.NewLocator("", config.StateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create state locator: %w", err)
	}

	errLog, err := tracker.NewErrorLog(config.ErrorLogPath, logger)
	if err != nil {
		return nil, err
	}

	s := &Service{
		config:     config,
		storage:    store,
		logger:     logger,
		locator:    locator,
		dispatcher: events.NewEventDispatcher(logger),
		errLog:     errLog,
		tickTimes:  metrics.NewHistogram(0),
	}

	s.dispatcher.Register(events.NewLoggingObserver(logger, config.Verbose))
	s.dispatcher.Register(&events.FuncObserver{
		Name:  "health",
		Types: []string{events.TypeMatchCommitted, events.TypeTrackerError},
		Fn:    s.track,
	})

	reader := statereader.NewReader(&statereader.ReaderConfig{
		Retries: config.ReadRetries,
		Backoff: config.RetryBackoff,
	})
	s.observer, err = tracker.NewObserver(tracker.Config{
		Locator:              locator,
		Reader:               reader,
		Store:                store,
		Dispatcher:           s.dispatcher,
		ErrorLog:             errLog,
		Logger:               logger,
		SelectedDeckAttempts: config.SelectedDeckAttempts,
	})
	if err != nil {
		_ = errLog.Close()
		return nil, err
	}

	if config.Backup != nil {
		manager := storage.NewBackupManager(store.DB().Path(), logger)
		s.scheduler = storage.NewBackupScheduler(manager, config.Backup)
	}

	return s, nil
}

// Dispatcher returns the event dispatcher so callers can add observers.
func (s *Service) Dispatcher() *events.EventDispatcher {
	return s.dispatcher
}

// Observer returns the match observer.
func (s *Service) Observer() *tracker.Observer {
	return s.observer
}

// Run ticks the observer until ctx is cancelled. The backup scheduler, when
// configured, runs for the same lifetime.
func (s *Service) Run(ctx context.Context) error {
	s.healthMu.Lock()
	s.startTime = time.Now()
	s.healthMu.Unlock()
	s.logger.Info("starting snap-companion daemon", zap.String("version", version.String()))

	wcfg := statereader.DefaultWatcherConfig(s.watchDir())
	wcfg.Interval = s.config.PollInterval
	wcfg.UseFSNotify = s.config.UseFSNotify
	wcfg.Logger = s.logger
	watcher, err := statereader.NewWatcher(wcfg)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if s.scheduler != nil {
		if err := s.scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start backup scheduler: %w", err)
		}
		defer func() {
			if err := s.scheduler.Stop(); err != nil {
				s.logger.Warn("failed to stop backup scheduler", zap.Error(err))
			}
		}()
	}
	defer func() {
		if err := s.errLog.Close(); err != nil {
			s.logger.Warn("failed to close error log", zap.Error(err))
		}
	}()

	s.logger.Info("daemon started",
		zap.String("watch_dir", wcfg.Dir),
		zap.Duration("interval", wcfg.Interval),
		zap.Bool("fsnotify", wcfg.UseFSNotify))

	s.setRunning(true)
	err = watcher.Run(ctx, s.tick)
	s.setRunning(false)
	s.logger.Info("daemon stopped")
	return err
}

// Start runs the daemon in the background until Stop is called.
func (s *Service) Start() error {
	if s.cancel != nil {
		return fmt.Errorf("daemon is already running")
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan error, 1)
	go func() {
		s.done <- s.Run(ctx)
	}()
	return nil
}

// Stop gracefully stops a daemon started with Start.
func (s *Service) Stop() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	err := <-s.done
	s.cancel = nil
	return err
}

// watchDir is the directory whose changes trigger early ticks: the override
// if set, else wherever the game state file currently lives.
func (s *Service) watchDir() string {
	if s.config.StateDir != "" {
		return s.config.StateDir
	}
	path, err := s.locator.GameState()
	if err != nil {
		s.logger.Info("game state file not found yet, polling only", zap.Error(err))
		return ""
	}
	return filepath.Dir(path)
}

func (s *Service) setRunning(running bool) {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()
	s.running = running
}

func (s *Service) tick(ctx context.Context) {
	start := time.Now()
	res := s.observer.Tick(ctx)
	s.tickTimes.Time(start)

	s.healthMu.Lock()
	defer s.healthMu.Unlock()
	s.lastTick = time.Now()
	s.totalTicks++
	s.stateFound = !errors.Is(res.Err, statereader.ErrStateFileNotFound)
}

func (s *Service) track(event events.Event) error {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	switch data := event.TypedData.(type) {
	case events.MatchCommittedEvent:
		s.lastCommit = time.Now()
		s.totalCommits++
	case events.TrackerErrorEvent:
		s.totalErrors++
		s.lastError = data.Error
	}
	return nil
}

// HealthStatus represents the health status of the daemon.
type HealthStatus struct {
	Status    string          `json:"status"`
	Running   bool            `json:"running"`
	Version   string          `json:"version"`
	Uptime    float64         `json:"uptime"`
	StateFile StateFileHealth `json:"stateFile"`
	Backups   *BackupHealth   `json:"backups,omitempty"`
	Metrics   HealthMetrics   `json:"metrics"`
}

// StateFileHealth represents game state monitoring health.
type StateFileHealth struct {
	Status   string `json:"status"`
	LastTick string `json:"lastTick,omitempty"`
}

// BackupHealth represents scheduled backup health.
type BackupHealth struct {
	Running   bool   `json:"running"`
	LastError string `json:"lastError,omitempty"`
}

// HealthMetrics represents daemon counters.
type HealthMetrics struct {
	Ticks       int64           `json:"ticks"`
	Commits     int64           `json:"commits"`
	Errors      int64           `json:"errors"`
	LastCommit  string          `json:"lastCommit,omitempty"`
	LastError   string          `json:"lastError,omitempty"`
	TickLatency metrics.Summary `json:"tickLatency"`
}

// GetHealth returns the current health status of the daemon.
func (s *Service) GetHealth() *HealthStatus {
	s.healthMu.RLock()
	defer s.healthMu.RUnlock()

	status := &HealthStatus{
		Status:    "healthy",
		Running:   s.running,
		Version:   version.GetVersion(),
		StateFile: StateFileHealth{Status: "ok"},
		Metrics: HealthMetrics{
			Ticks:       s.totalTicks,
			Commits:     s.totalCommits,
			Errors:      s.totalErrors,
			LastError:   s.lastError,
			TickLatency: s.tickTimes.Summary(),
		},
	}
	if !s.startTime.IsZero() {
		status.Uptime = time.Since(s.startTime).Seconds()
	}
	if !s.lastTick.IsZero() {
		status.StateFile.LastTick = s.lastTick.Format(time.RFC3339)
	}
	if !s.lastCommit.IsZero() {
		status.Metrics.LastCommit = s.lastCommit.Format(time.RFC3339)
	}

	if s.totalTicks > 0 && !s.stateFound {
		status.StateFile.Status = "missing"
		status.Status = "degraded"
	}
	// A tick that has not run for ten intervals means the loop is stuck.
	if s.running && !s.lastTick.IsZero() && time.Since(s.lastTick) > 10*s.config.PollInterval {
		status.StateFile.Status = "stalled"
		status.Status = "degraded"
	}

	if s.scheduler != nil {
		st := s.scheduler.Status()
		status.Backups = &BackupHealth{Running: st.Running}
		if st.LastError != nil {
			status.Backups.LastError = st.LastError.Error()
		}
	}

	return status
}
