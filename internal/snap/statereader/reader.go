package statereader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ramonehamilton/snap-companion/internal/snap/refgraph"
)

// ReaderConfig holds configuration for a Reader.
type ReaderConfig struct {
	// Retries is the number of attempts per read.
	// Default: 3
	Retries int

	// Backoff is the pause between attempts.
	// Default: 150ms
	Backoff time.Duration
}

// DefaultReaderConfig returns a ReaderConfig with sensible defaults.
func DefaultReaderConfig() *ReaderConfig {
	return &ReaderConfig{
		Retries: 3,
		Backoff: 150 * time.Millisecond,
	}
}

// Reader reads and decodes state files, retrying torn writes.
type Reader struct {
	retries int
	backoff time.Duration
}

// NewReader creates a Reader. A nil config uses the defaults.
func NewReader(config *ReaderConfig) *Reader {
	if config == nil {
		config = DefaultReaderConfig()
	}
	r := &Reader{retries: config.Retries, backoff: config.Backoff}
	if r.retries <= 0 {
		r.retries = 3
	}
	if r.backoff < 0 {
		r.backoff = 0
	}
	return r
}

// ReadGraph reads path and decodes it as a reference graph. A missing file
// fails immediately with ErrStateFileNotFound; read and parse failures are
// retried and then reported as *ReadError.
func (r *Reader) ReadGraph(ctx context.Context, path string) (*refgraph.Graph, error) {
	var lastErr error
	for attempt := 1; attempt <= r.retries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.backoff):
			}
		}

		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrStateFileNotFound)
		}
		if err != nil {
			lastErr = err
			continue
		}

		g, err := refgraph.Decode(data)
		if err != nil {
			lastErr = err
			continue
		}
		return g, nil
	}
	return nil, &ReadError{Path: path, Attempts: r.retries, Err: lastErr}
}

// ModTime returns the modification time of path.
func ModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, fmt.Errorf("%s: %w", path, ErrStateFileNotFound)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("stat state file: %w", err)
	}
	return info.ModTime(), nil
}
