package snapshots

import (
	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
)

// Job captures one whole-portfolio snapshot for a scope on each run.
// It satisfies the scheduler's Job interface.
type Job struct {
	service *Service
	scope   domain.Scope
	log     zerolog.Logger
}

// NewJob creates a snapshot job for a scope.
func NewJob(service *Service, scope domain.Scope, log zerolog.Logger) *Job {
	return &Job{
		service: service,
		scope:   scope,
		log:     log.With().Str("job", "snapshot_"+string(scope)).Logger(),
	}
}

// Name implements the scheduler Job interface.
func (j *Job) Name() string {
	return "snapshot_" + string(j.scope)
}

// Run captures a snapshot. A quote outage makes the run fail; the next
// scheduled run retries.
func (j *Job) Run() error {
	snap, err := j.service.SnapshotNow(j.scope, "")
	if err != nil {
		return err
	}
	j.log.Info().Float64("value_eur", snap.ValueEUR).Msg("Scheduled snapshot captured")
	return nil
}
