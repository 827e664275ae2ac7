package reliability

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// BackupJob runs a full cloud backup plus rotation on each invocation.
// It satisfies the scheduler's Job interface.
type BackupJob struct {
	service       *R2BackupService
	retentionDays int
	log           zerolog.Logger
}

// NewBackupJob creates a new backup job.
func NewBackupJob(service *R2BackupService, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:       service,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "r2_backup").Logger(),
	}
}

// Name implements the scheduler Job interface.
func (j *BackupJob) Name() string { return "r2_backup" }

// Run creates and uploads a backup, then rotates old archives.
// Rotation failure does not fail the run; the backup itself succeeded.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := j.service.CreateAndUploadBackup(ctx); err != nil {
		return err
	}

	if err := j.service.RotateOldBackups(ctx, j.retentionDays); err != nil {
		j.log.Error().Err(err).Msg("Backup rotation failed")
	}
	return nil
}
