package storage

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// BackupScheduler runs periodic backups and prunes old ones.
type BackupScheduler struct {
	manager *BackupManager
	config  *SchedulerConfig
	logger  *zap.Logger

	mu           sync.RWMutex
	sched        gocron.Scheduler
	job          gocron.Job
	lastBackup   time.Time
	lastPath     string
	lastError    error
	backupCount  int
	failureCount int
}

// SchedulerConfig holds configuration for the backup scheduler.
type SchedulerConfig struct {
	// Interval between backups. Default: 24h.
	Interval time.Duration

	// BackupConfig is used for every scheduled backup.
	BackupConfig *BackupConfig

	// Keep is how many backups to retain after each run. 0 keeps all.
	Keep int

	// StartImmediately runs one backup as soon as the scheduler starts.
	StartImmediately bool

	// OnBackupComplete is called after each attempt.
	OnBackupComplete func(backupPath string, err error)
}

// DefaultSchedulerConfig returns a daily schedule keeping the last 7 backups.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Interval:     24 * time.Hour,
		BackupConfig: DefaultBackupConfig(),
		Keep:         7,
	}
}

// NewBackupScheduler creates a new backup scheduler.
func NewBackupScheduler(manager *BackupManager, config *SchedulerConfig) *BackupScheduler {
	if config == nil {
		config = DefaultSchedulerConfig()
	}
	return &BackupScheduler{
		manager: manager,
		config:  config,
		logger:  manager.logger,
	}
}

// Start schedules the backup job.
func (s *BackupScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sched != nil {
		return fmt.Errorf("scheduler is already running")
	}
	if s.config.Interval <= 0 {
		return fmt.Errorf("backup interval must be positive")
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	opts := []gocron.JobOption{
		gocron.WithName("database-backup"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if s.config.StartImmediately {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	job, err := sched.NewJob(
		gocron.DurationJob(s.config.Interval),
		gocron.NewTask(s.runBackup),
		opts...,
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("failed to schedule backup job: %w", err)
	}

	sched.Start()
	s.sched = sched
	s.job = job

	s.logger.Info("backup scheduler started", zap.Duration("interval", s.config.Interval))
	return nil
}

// Stop shuts the scheduler down, waiting for a running backup to finish.
func (s *BackupScheduler) Stop() error {
	s.mu.Lock()
	sched := s.sched
	s.sched = nil
	s.job = nil
	s.mu.Unlock()

	if sched == nil {
		return fmt.Errorf("scheduler is not running")
	}
	if err := sched.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	return nil
}

// IsRunning reports whether the scheduler is started.
func (s *BackupScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sched != nil
}

// TriggerBackup runs the backup job now without changing the schedule.
func (s *BackupScheduler) TriggerBackup() error {
	s.mu.RLock()
	job := s.job
	s.mu.RUnlock()

	if job == nil {
		return fmt.Errorf("scheduler is not running")
	}
	return job.RunNow()
}

func (s *BackupScheduler) runBackup() {
	path, err := s.manager.Backup(s.config.BackupConfig)
	if err == nil && s.config.Keep > 0 {
		dir := ""
		if s.config.BackupConfig != nil {
			dir = s.config.BackupConfig.Dir
		}
		if _, pruneErr := s.manager.Prune(dir, s.config.Keep); pruneErr != nil {
			s.logger.Warn("failed to prune backups", zap.Error(pruneErr))
		}
	}

	s.mu.Lock()
	s.lastBackup = time.Now()
	s.lastPath = path
	s.lastError = err
	if err != nil {
		s.failureCount++
	} else {
		s.backupCount++
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled backup failed", zap.Error(err))
	}
	if s.config.OnBackupComplete != nil {
		s.config.OnBackupComplete(path, err)
	}
}

// SchedulerStatus is a snapshot of scheduler state.
type SchedulerStatus struct {
	Running      bool
	Interval     time.Duration
	LastBackup   time.Time
	LastPath     string
	NextBackup   time.Time
	BackupCount  int
	FailureCount int
	LastError    error
}

// Status returns the current scheduler status.
func (s *BackupScheduler) Status() *SchedulerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := &SchedulerStatus{
		Running:      s.sched != nil,
		Interval:     s.config.Interval,
		LastBackup:   s.lastBackup,
		LastPath:     s.lastPath,
		BackupCount:  s.backupCount,
		FailureCount: s.failureCount,
		LastError:    s.lastError,
	}
	if s.job != nil {
		if next, err := s.job.NextRun(); err == nil {
			status.NextBackup = next
		}
	}
	return status
}

// String renders the status for the CLI.
func (st *SchedulerStatus) String() string {
	if !st.Running {
		return "Scheduler: Stopped"
	}

	out := "Scheduler: Running\n"
	out += fmt.Sprintf("  Interval: %s\n", st.Interval)
	out += fmt.Sprintf("  Total Backups: %d\n", st.BackupCount)
	out += fmt.Sprintf("  Failures: %d\n", st.FailureCount)
	if !st.LastBackup.IsZero() {
		out += fmt.Sprintf("  Last Backup: %s (%s)\n", st.LastBackup.Format(time.RFC3339), st.LastPath)
	}
	if !st.NextBackup.IsZero() {
		out += fmt.Sprintf("  Next Backup: %s\n", st.NextBackup.Format(time.RFC3339))
	}
	if st.LastError != nil {
		out += fmt.Sprintf("  Last Error: %v\n", st.LastError)
	}
	return out
}
