package reliability

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/aristath/folio/internal/database"
	"github.com/rs/zerolog"
)

// BackupService creates verified local copies of the registered
// databases using SQLite's VACUUM INTO.
type BackupService struct {
	databases map[string]*database.DB
	log       zerolog.Logger
}

// NewBackupService creates a new backup service over the given
// databases, keyed by name.
func NewBackupService(databases map[string]*database.DB, log zerolog.Logger) *BackupService {
	return &BackupService{
		databases: databases,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// DatabaseNames returns the registered database names.
func (s *BackupService) DatabaseNames() []string {
	names := make([]string, 0, len(s.databases))
	for name := range s.databases {
		names = append(names, name)
	}
	return names
}

// BackupDatabase copies one database to backupPath and verifies the
// copy's integrity. A copy that fails verification is removed.
func (s *BackupService) BackupDatabase(name, backupPath string) error {
	db, ok := s.databases[name]
	if !ok {
		return fmt.Errorf("database %s not registered", name)
	}

	// VACUUM INTO produces a fresh compacted copy with no WAL files.
	if _, err := db.Conn().Exec(fmt.Sprintf("VACUUM INTO '%s'", backupPath)); err != nil {
		return fmt.Errorf("VACUUM INTO failed for %s: %w", name, err)
	}

	if err := verifyBackup(backupPath); err != nil {
		os.Remove(backupPath)
		return fmt.Errorf("backup verification failed for %s: %w", name, err)
	}

	info, err := os.Stat(backupPath)
	if err != nil {
		return fmt.Errorf("failed to stat backup: %w", err)
	}

	s.log.Debug().
		Str("database", name).
		Float64("size_mb", float64(info.Size())/1024/1024).
		Msg("Backup created")

	return nil
}

// verifyBackup opens the copy and runs an integrity check.
func verifyBackup(backupPath string) error {
	backupDB, err := sql.Open("sqlite", backupPath)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer backupDB.Close()

	var result string
	if err := backupDB.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}
