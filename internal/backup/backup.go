// Package backup creates, lists, rotates, and restores SQLite snapshots of
// the running database — scheduled backups gated by the scheduler's own
// sub-cron, plus manual backups triggered from the admin surface.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"
)

const filePrefix = "teamarr_"

// seq disambiguates backups requested within the same second — the
// reference's second-resolution filename can collide under rapid manual
// requests, and VACUUM INTO refuses to overwrite an existing file.
var seq int64

// Info describes one backup file on disk.
type Info struct {
	Filename   string
	Filepath   string
	SizeBytes  int64
	CreatedAt  time.Time
	Protected  bool
	BackupType string // "scheduled", "manual", or "pre_restore"
}

// Result is the outcome of a single create/restore operation.
type Result struct {
	Success   bool
	Filename  string
	Filepath  string
	SizeBytes int64
	Error     string
}

// RotationResult is the outcome of RotateBackups.
type RotationResult struct {
	DeletedCount   int
	DeletedFiles   []string
	KeptCount      int
	ProtectedCount int
}

// Service manages backup files for one SQLite database. It never holds the
// active *sql.DB open across a restore — restore replaces the file on disk,
// so the caller is responsible for reopening its own store.Store afterward.
type Service struct {
	DB   *sql.DB
	Path string // directory backups are written to and read from
}

func New(db *sql.DB, path string) *Service {
	return &Service{DB: db, Path: path}
}

func (s *Service) ensureDir() error {
	return os.MkdirAll(s.Path, 0o755)
}

func generateFilename(backupType string) string {
	n := atomic.AddInt64(&seq, 1)
	return fmt.Sprintf("%s%s_%s_%04d.db", filePrefix, backupType, time.Now().Format("20060102_150405"), n%10000)
}

func protectedMarkerPath(backupPath string) string {
	return backupPath + ".protected"
}

func isProtected(backupPath string) bool {
	_, err := os.Stat(protectedMarkerPath(backupPath))
	return err == nil
}

// parseFilename extracts (type, createdAt) from a "teamarr_TYPE_YYYYMMDD_HHMMSS.db"
// filename, or ok=false if it doesn't match the naming convention.
func parseFilename(name string) (backupType string, createdAt time.Time, ok bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".db") {
		return "", time.Time{}, false
	}
	trimmed := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), ".db")
	backupType = ""
	for _, t := range []string{"scheduled", "manual", "pre_restore"} {
		if strings.HasPrefix(trimmed, t+"_") {
			backupType = t
			break
		}
	}
	if backupType == "" {
		return "", time.Time{}, false
	}
	parts := strings.Split(strings.TrimPrefix(trimmed, backupType+"_"), "_")
	if len(parts) < 2 {
		return "", time.Time{}, false
	}
	ts, err := time.ParseInLocation("20060102_150405", parts[0]+"_"+parts[1], time.Local)
	if err != nil {
		return "", time.Time{}, false
	}
	return backupType, ts, true
}

// CreateBackup snapshots the live database via SQLite's own VACUUM INTO,
// which (like the reference's sqlite3.backup()) produces a consistent copy
// of a database that may have concurrent readers/writers without locking
// them out.
func (s *Service) CreateBackup(ctx context.Context, manual bool) Result {
	if err := s.ensureDir(); err != nil {
		return Result{Error: fmt.Sprintf("create backup dir: %v", err)}
	}

	backupType := "scheduled"
	if manual {
		backupType = "manual"
	}
	filename := generateFilename(backupType)
	backupPath := filepath.Join(s.Path, filename)

	if _, err := s.DB.ExecContext(ctx, `VACUUM INTO ?`, backupPath); err != nil {
		_ = os.Remove(backupPath)
		return Result{Error: fmt.Sprintf("vacuum into %s: %v", filename, err)}
	}

	info, err := os.Stat(backupPath)
	if err != nil {
		return Result{Error: fmt.Sprintf("stat backup: %v", err)}
	}

	return Result{Success: true, Filename: filename, Filepath: backupPath, SizeBytes: info.Size()}
}

// ListBackups returns every recognized backup file, newest first.
func (s *Service) ListBackups() ([]Info, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}

	matches, err := filepath.Glob(filepath.Join(s.Path, filePrefix+"*.db"))
	if err != nil {
		return nil, err
	}

	var backups []Info
	for _, path := range matches {
		name := filepath.Base(path)
		backupType, createdAt, ok := parseFilename(name)
		if !ok {
			continue
		}
		stat, err := os.Stat(path)
		if err != nil {
			continue
		}
		backups = append(backups, Info{
			Filename:   name,
			Filepath:   path,
			SizeBytes:  stat.Size(),
			CreatedAt:  createdAt,
			Protected:  isProtected(path),
			BackupType: backupType,
		})
	}

	sort.Slice(backups, func(i, j int) bool { return backups[i].CreatedAt.After(backups[j].CreatedAt) })
	return backups, nil
}

// DeleteBackup removes a backup file, refusing protected ones unless force
// is set.
func (s *Service) DeleteBackup(filename string, force bool) (bool, error) {
	path := filepath.Join(s.Path, filename)
	if _, err := os.Stat(path); err != nil {
		return false, nil
	}
	if !force && isProtected(path) {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		return false, err
	}
	_ = os.Remove(protectedMarkerPath(path))
	return true, nil
}

// ProtectBackup marks a backup so RotateBackups never deletes it.
func (s *Service) ProtectBackup(filename string) (bool, error) {
	path := filepath.Join(s.Path, filename)
	if _, err := os.Stat(path); err != nil {
		return false, nil
	}
	f, err := os.Create(protectedMarkerPath(path))
	if err != nil {
		return false, err
	}
	return true, f.Close()
}

// UnprotectBackup clears a prior ProtectBackup mark.
func (s *Service) UnprotectBackup(filename string) (bool, error) {
	path := filepath.Join(s.Path, filename)
	if _, err := os.Stat(path); err != nil {
		return false, nil
	}
	marker := protectedMarkerPath(path)
	if _, err := os.Stat(marker); err != nil {
		return true, nil
	}
	return true, os.Remove(marker)
}

// RotateBackups deletes the oldest unprotected backups beyond maxCount,
// leaving protected backups untouched and uncounted.
func (s *Service) RotateBackups(maxCount int) (RotationResult, error) {
	backups, err := s.ListBackups()
	if err != nil {
		return RotationResult{}, err
	}

	var protected, unprotected []Info
	for _, b := range backups {
		if b.Protected {
			protected = append(protected, b)
		} else {
			unprotected = append(unprotected, b)
		}
	}

	result := RotationResult{
		KeptCount:      len(unprotected),
		ProtectedCount: len(protected),
	}
	if len(unprotected) <= maxCount {
		return result, nil
	}

	toDelete := unprotected[maxCount:]
	result.KeptCount = maxCount
	for _, b := range toDelete {
		ok, err := s.DeleteBackup(b.Filename, false)
		if err != nil || !ok {
			continue
		}
		result.DeletedFiles = append(result.DeletedFiles, b.Filename)
	}
	result.DeletedCount = len(result.DeletedFiles)
	return result, nil
}

// RestoreBackup replaces the database file backing s.DB with the contents
// of a previously-taken backup, after an integrity check and a pre-restore
// safety snapshot. The caller must close and reopen its store.Store against
// dbPath afterward — Service never reopens a connection on the caller's
// behalf.
func (s *Service) RestoreBackup(ctx context.Context, filename, dbPath string) (preRestorePath string, err error) {
	backupPath := filepath.Join(s.Path, filename)
	if _, statErr := os.Stat(backupPath); statErr != nil {
		return "", fmt.Errorf("backup not found: %s", filename)
	}

	if err := checkIntegrity(ctx, backupPath); err != nil {
		return "", err
	}

	if _, statErr := os.Stat(dbPath); statErr == nil {
		if err := s.ensureDir(); err != nil {
			return "", err
		}
		preRestorePath = filepath.Join(s.Path, "teamarr_pre_restore_"+time.Now().Format("20060102_150405")+".db")
		if _, err := s.DB.ExecContext(ctx, `VACUUM INTO ?`, preRestorePath); err != nil {
			return "", fmt.Errorf("pre-restore snapshot: %w", err)
		}
	}

	data, err := os.ReadFile(backupPath)
	if err != nil {
		return preRestorePath, fmt.Errorf("read backup: %w", err)
	}
	if err := os.WriteFile(dbPath, data, 0o644); err != nil {
		return preRestorePath, fmt.Errorf("write database file: %w", err)
	}

	return preRestorePath, nil
}

// checkIntegrity opens backupPath as its own SQLite connection and runs
// PRAGMA integrity_check, independent of the live s.DB connection.
func checkIntegrity(ctx context.Context, path string) error {
	dsn := fmt.Sprintf("file:%s?mode=ro", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open backup for integrity check: %w", err)
	}
	defer db.Close()

	var status string
	if err := db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&status); err != nil {
		return fmt.Errorf("backup file is not a valid SQLite database: %w", err)
	}
	if status != "ok" {
		return fmt.Errorf("backup file failed integrity check: %s", status)
	}
	return nil
}

// GetBackupFilepath returns the absolute path to a named backup if it exists.
func (s *Service) GetBackupFilepath(filename string) (string, bool) {
	path := filepath.Join(s.Path, filename)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}
