package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs int32
	err  error
}

func (j *countingJob) Run() error {
	atomic.AddInt32(&j.runs, 1)
	return j.err
}

func (j *countingJob) Name() string { return "counting" }

func TestAddJobValidatesSchedule(t *testing.T) {
	s := New(zerolog.New(nil).Level(zerolog.Disabled))

	assert.NoError(t, s.AddJob("0 8 * * *", &countingJob{}))
	assert.Error(t, s.AddJob("not a schedule", &countingJob{}))
}

func TestRunNow(t *testing.T) {
	s := New(zerolog.New(nil).Level(zerolog.Disabled))

	job := &countingJob{}
	require.NoError(t, s.RunNow(job))
	assert.Equal(t, int32(1), atomic.LoadInt32(&job.runs))

	failing := &countingJob{err: errors.New("boom")}
	assert.Error(t, s.RunNow(failing))
}

func TestStartStop(t *testing.T) {
	s := New(zerolog.New(nil).Level(zerolog.Disabled))
	require.NoError(t, s.AddJob("@hourly", &countingJob{}))

	s.Start()
	s.Stop()
}
