package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/snap-companion/internal/storage/models"
)

func seedMatch(t *testing.T, svc *Service, id string) {
	t.Helper()
	c := 2
	ok, err := svc.RecordMatch(context.Background(), &models.Match{
		MatchID:        id,
		TimestampEnded: models.FormatTime(testNow),
		Result:         models.ResultWin,
		Cubes:          &c,
	}, models.DeckInput{Cards: []string{"A", "B"}}, nil)
	require.NoError(t, err)
	require.True(t, ok)
}

func openFileService(t *testing.T) (*Service, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snap.db")
	db, err := Open(DefaultConfig(path))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewService(db, WithClock(func() time.Time { return testNow })), path
}

func TestBackupAndRestore(t *testing.T) {
	svc, path := openFileService(t)
	seedMatch(t, svc, "M1")

	mgr := NewBackupManager(path, nil)
	backupPath, err := mgr.Backup(&BackupConfig{Name: "first", Verify: true})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(mgr.DefaultDir(), "first.db"), backupPath)

	seedMatch(t, svc, "M2")
	require.NoError(t, svc.Close())

	require.NoError(t, mgr.Restore(backupPath, nil))

	db, err := Open(DefaultConfig(path))
	require.NoError(t, err)
	defer db.Close()
	restored := NewService(db)

	m1, err := restored.GetMatch(context.Background(), "M1")
	require.NoError(t, err)
	assert.NotNil(t, m1)
	m2, err := restored.GetMatch(context.Background(), "M2")
	require.NoError(t, err)
	assert.Nil(t, m2, "restore returns to the backed-up state")
}

func TestEncryptedBackup(t *testing.T) {
	svc, path := openFileService(t)
	seedMatch(t, svc, "M1")

	mgr := NewBackupManager(path, nil)
	enc := fastEncryption("hunter2")
	backupPath, err := mgr.Backup(&BackupConfig{Name: "secret", Verify: true, Encryption: enc})
	require.NoError(t, err)
	assert.Equal(t, ".enc", filepath.Ext(backupPath))

	_, err = os.Stat(filepath.Join(mgr.DefaultDir(), "secret.db"))
	assert.True(t, os.IsNotExist(err), "plain copy is removed")

	require.NoError(t, svc.Close())
	assert.Error(t, mgr.Restore(backupPath, nil), "password required")
	require.NoError(t, mgr.Restore(backupPath, enc))
}

func TestBackupRejectsExistingName(t *testing.T) {
	_, path := openFileService(t)
	mgr := NewBackupManager(path, nil)

	_, err := mgr.Backup(&BackupConfig{Name: "dup"})
	require.NoError(t, err)
	_, err = mgr.Backup(&BackupConfig{Name: "dup"})
	assert.Error(t, err)
}

func TestVerifyBackupRejectsForeignDatabase(t *testing.T) {
	dir := t.TempDir()
	other := filepath.Join(dir, "other.db")
	require.NoError(t, os.WriteFile(other, []byte("not a database at all, just text"), 0o600))

	mgr := NewBackupManager(filepath.Join(dir, "snap.db"), nil)
	assert.Error(t, mgr.VerifyBackup(other))
}

func TestListAndPruneBackups(t *testing.T) {
	_, path := openFileService(t)
	mgr := NewBackupManager(path, nil)

	for i := 0; i < 4; i++ {
		p, err := mgr.Backup(&BackupConfig{Name: fmt.Sprintf("b%d", i)})
		require.NoError(t, err)
		mtime := testNow.Add(time.Duration(i) * time.Hour)
		require.NoError(t, os.Chtimes(p, mtime, mtime))
	}

	backups, err := mgr.ListBackups("")
	require.NoError(t, err)
	require.Len(t, backups, 4)
	assert.Equal(t, "b3.db", backups[0].Name)
	assert.NotEqual(t, "unknown", backups[0].Checksum)

	removed, err := mgr.Prune("", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	backups, err = mgr.ListBackups("")
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "b3.db", backups[0].Name)
	assert.Equal(t, "b2.db", backups[1].Name)

	empty, err := mgr.ListBackups(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Empty(t, empty)
}
