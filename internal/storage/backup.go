package storage

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	backupExt          = ".db"
	encryptedBackupExt = ".db.enc"
	backupTimeLayout   = "20060102_150405"
)

// BackupManager creates, verifies and restores copies of the match database.
type BackupManager struct {
	dbPath string
	logger *zap.Logger
	now    func() time.Time
}

// NewBackupManager creates a backup manager for the database at dbPath.
func NewBackupManager(dbPath string, logger *zap.Logger) *BackupManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackupManager{dbPath: dbPath, logger: logger, now: time.Now}
}

// BackupConfig holds configuration for one backup.
type BackupConfig struct {
	// Dir is where backups are written. Empty means "<db dir>/backups".
	Dir string

	// Name is the file name without extension. Empty means a timestamp.
	Name string

	// Verify opens the result and checks the schema before returning.
	Verify bool

	// Encryption, when non-nil with a password, writes an encrypted .db.enc file.
	Encryption *EncryptionConfig
}

// DefaultBackupConfig returns a BackupConfig with verification enabled.
func DefaultBackupConfig() *BackupConfig {
	return &BackupConfig{Verify: true}
}

// BackupInfo describes one backup file.
type BackupInfo struct {
	Path      string
	Name      string
	Size      int64
	ModTime   time.Time
	Checksum  string
	Encrypted bool
}

// DefaultDir returns "<db dir>/backups".
func (bm *BackupManager) DefaultDir() string {
	return filepath.Join(filepath.Dir(bm.dbPath), "backups")
}

func (bm *BackupManager) dir(dir string) string {
	if dir == "" {
		return bm.DefaultDir()
	}
	return dir
}

// Backup writes a consistent copy of the database using VACUUM INTO and
// returns the path of the new file.
func (bm *BackupManager) Backup(config *BackupConfig) (string, error) {
	if config == nil {
		config = DefaultBackupConfig()
	}

	backupDir := bm.dir(config.Dir)
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := config.Name
	if name == "" {
		name = "snap_" + bm.now().Format(backupTimeLayout)
	}
	plainPath := filepath.Join(backupDir, name+backupExt)
	if _, err := os.Stat(plainPath); err == nil {
		return "", fmt.Errorf("backup already exists: %s", plainPath)
	}

	source, err := sql.Open("sqlite", bm.dbPath)
	if err != nil {
		return "", fmt.Errorf("failed to open source database: %w", err)
	}
	defer func() {
		//nolint:errcheck // Ignore error on cleanup - this is a defer cleanup operation
		_ = source.Close()
	}()

	if _, err := source.Exec("VACUUM INTO ?", plainPath); err != nil {
		return "", fmt.Errorf("failed to vacuum into backup: %w", err)
	}

	if config.Verify {
		if err := bm.VerifyBackup(plainPath); err != nil {
			_ = os.Remove(plainPath)
			return "", fmt.Errorf("backup verification failed: %w", err)
		}
	}

	result := plainPath
	if config.Encryption != nil && config.Encryption.Password != "" {
		encPath := filepath.Join(backupDir, name+encryptedBackupExt)
		if err := EncryptFile(plainPath, encPath, config.Encryption); err != nil {
			_ = os.Remove(plainPath)
			return "", fmt.Errorf("failed to encrypt backup: %w", err)
		}
		if err := os.Remove(plainPath); err != nil {
			return "", fmt.Errorf("failed to remove unencrypted backup: %w", err)
		}
		result = encPath
	}

	bm.logger.Info("backup created", zap.String("path", result))
	return result, nil
}

// Restore replaces the database file with a backup. The caller must close
// every open connection first. The previous file is kept beside it with an
// ".old.<timestamp>" suffix.
func (bm *BackupManager) Restore(backupPath string, encryption *EncryptionConfig) error {
	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("backup file not accessible: %w", err)
	}

	tempPath := bm.dbPath + ".restore.tmp"

	encrypted, err := IsEncrypted(backupPath)
	if err != nil {
		return fmt.Errorf("failed to inspect backup: %w", err)
	}
	if encrypted {
		if encryption == nil || encryption.Password == "" {
			return errors.New("backup is encrypted; a password is required")
		}
		if err := DecryptFile(backupPath, tempPath, encryption); err != nil {
			return err
		}
	} else if err := copyFile(backupPath, tempPath); err != nil {
		return err
	}

	if err := bm.VerifyBackup(tempPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("restored database verification failed: %w", err)
	}

	if _, err := os.Stat(bm.dbPath); err == nil {
		oldPath := bm.dbPath + ".old." + bm.now().Format(backupTimeLayout)
		if err := os.Rename(bm.dbPath, oldPath); err != nil {
			_ = os.Remove(tempPath)
			return fmt.Errorf("failed to move current database aside: %w", err)
		}
		// WAL side files belong to the database being replaced.
		_ = os.Remove(bm.dbPath + "-wal")
		_ = os.Remove(bm.dbPath + "-shm")
	}

	if err := os.Rename(tempPath, bm.dbPath); err != nil {
		return fmt.Errorf("failed to replace database with backup: %w", err)
	}

	bm.logger.Info("database restored", zap.String("from", backupPath))
	return nil
}

// VerifyBackup checks that path is a readable SQLite database holding the
// match tables.
func (bm *BackupManager) VerifyBackup(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open backup as database: %w", err)
	}
	defer func() {
		//nolint:errcheck // Ignore error on cleanup - this is a defer cleanup operation
		_ = db.Close()
	}()

	var check string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&check); err != nil {
		return fmt.Errorf("failed to check backup integrity: %w", err)
	}
	if check != "ok" {
		return fmt.Errorf("integrity check failed: %s", check)
	}

	for _, table := range tableOrder {
		var n int
		err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
		if err != nil {
			return fmt.Errorf("failed to inspect backup schema: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("backup is missing table %s", table)
		}
	}
	return nil
}

// ListBackups returns backups in dir (default dir when empty), newest first.
func (bm *BackupManager) ListBackups(dir string) ([]BackupInfo, error) {
	backupDir := bm.dir(dir)

	entries, err := os.ReadDir(backupDir)
	if errors.Is(err, os.ErrNotExist) {
		return []BackupInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		isEnc := strings.HasSuffix(name, encryptedBackupExt)
		if !isEnc && filepath.Ext(name) != backupExt {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(backupDir, name)
		checksum, err := calculateChecksum(path)
		if err != nil {
			checksum = "unknown"
		}

		backups = append(backups, BackupInfo{
			Path:      path,
			Name:      name,
			Size:      info.Size(),
			ModTime:   info.ModTime(),
			Checksum:  checksum,
			Encrypted: isEnc,
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].ModTime.Equal(backups[j].ModTime) {
			return backups[i].ModTime.After(backups[j].ModTime)
		}
		return backups[i].Name > backups[j].Name
	})
	return backups, nil
}

// Prune deletes all but the newest keep backups in dir and returns how many
// were removed. keep <= 0 disables pruning.
func (bm *BackupManager) Prune(dir string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	backups, err := bm.ListBackups(dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, b := range backups[min(keep, len(backups)):] {
		if err := os.Remove(b.Path); err != nil {
			return removed, fmt.Errorf("failed to remove backup %s: %w", b.Name, err)
		}
		removed++
	}
	if removed > 0 {
		bm.logger.Info("old backups pruned", zap.Int("removed", removed), zap.Int("kept", keep))
	}
	return removed, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }() //nolint:errcheck // Ignore error on cleanup

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}

// calculateChecksum returns the hex SHA-256 of a file.
func calculateChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }() //nolint:errcheck // Ignore error on cleanup

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
