package tracker

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ramonehamilton/snap-companion/internal/storage/models"
)

// ErrorLog is an append-only log of tracker errors. Consecutive identical
// messages are written once, followed by a repeat count when a different
// message arrives or the log is closed.
type ErrorLog struct {
	mu      sync.Mutex
	file    *os.File
	logger  *zap.Logger
	now     func() time.Time
	last    string
	repeats int
}

// NewErrorLog opens (or creates) the log file at path. An empty path keeps
// only the zap output.
func NewErrorLog(path string, logger *zap.Logger) (*ErrorLog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &ErrorLog{logger: logger, now: time.Now}
	if path == "" {
		return l, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create error log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open error log: %w", err)
	}
	l.file = file
	return l, nil
}

// Log records err under kind.
func (l *ErrorLog) Log(kind ErrorKind, err error) {
	if err == nil {
		return
	}
	msg := fmt.Sprintf("[%s] %v", kind, err)

	l.mu.Lock()
	defer l.mu.Unlock()

	if msg == l.last {
		l.repeats++
		return
	}
	l.flushRepeats()
	l.last = msg
	l.write(msg)
	l.logger.Warn("tracker error", zap.String("kind", string(kind)), zap.Error(err))
}

func (l *ErrorLog) flushRepeats() {
	if l.repeats == 0 {
		return
	}
	l.write(fmt.Sprintf("previous message repeated %d times", l.repeats))
	l.repeats = 0
}

func (l *ErrorLog) write(line string) {
	if l.file == nil {
		return
	}
	if _, err := fmt.Fprintf(l.file, "%s %s\n", models.FormatTime(l.now()), line); err != nil {
		l.logger.Error("failed to write error log", zap.Error(err))
	}
}

// Close flushes any pending repeat count and closes the file.
func (l *ErrorLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.flushRepeats()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
