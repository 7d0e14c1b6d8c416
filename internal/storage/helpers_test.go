package storage

import (
	"testing"
	"time"
)

// testNow is the fixed clock used by service tests.
var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// setupTestService creates a service over a temporary database file.
func setupTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(NewTestDB(t), WithClock(func() time.Time { return testNow }))
}
