package jobstate_test

import (
	"context"
	"testing"
	"time"

	"github.com/cuemby/distsched/pkg/events"
	"github.com/cuemby/distsched/pkg/graph"
	"github.com/cuemby/distsched/pkg/jobstate"
	"github.com/cuemby/distsched/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemState_AcceptThenSubmitMovesJobOutOfPending(t *testing.T) {
	s := jobstate.NewMemState()
	ctx := context.Background()

	require.NoError(t, s.AcceptJob(ctx, "job-1", "demo", time.Now()))
	assert.Equal(t, 1, s.PendingJobCount())

	job := graph.NewJob("job-1", "session-1")
	job.Status = types.JobStatusRunning
	require.NoError(t, s.SubmitJob(ctx, job))
	assert.Equal(t, 0, s.PendingJobCount())

	status, ok, err := s.JobStatus(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.JobStatusRunning, status)
}

func TestMemState_TryAcquireJobRejectsSecondOwner(t *testing.T) {
	s := jobstate.NewMemState()
	ctx := context.Background()

	job := graph.NewJob("job-1", "session-1")
	require.NoError(t, s.SubmitJob(ctx, job))

	_, err := s.TryAcquireJob(ctx, "job-1", "scheduler-a")
	require.NoError(t, err)

	_, err = s.TryAcquireJob(ctx, "job-1", "scheduler-b")
	assert.ErrorIs(t, err, jobstate.ErrAlreadyOwned)

	require.NoError(t, s.ReleaseJob(ctx, "job-1", "scheduler-a"))
	_, err = s.TryAcquireJob(ctx, "job-1", "scheduler-b")
	assert.NoError(t, err)
}

func TestMemState_PublishesJobAcquiredEvent(t *testing.T) {
	s := jobstate.NewMemState()
	ctx := context.Background()

	job := graph.NewJob("job-1", "session-1")
	require.NoError(t, s.SubmitJob(ctx, job))

	sub := s.Events().Subscribe()
	defer s.Events().Unsubscribe(sub)

	_, err := s.TryAcquireJob(ctx, "job-1", "scheduler-a")
	require.NoError(t, err)

	select {
	case evt := <-sub:
		assert.Equal(t, events.JobAcquired, evt.Kind)
		assert.Equal(t, "scheduler-a", evt.Owner)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for JobAcquired event")
	}
}

func TestMemState_SessionCRUD(t *testing.T) {
	s := jobstate.NewMemState()
	ctx := context.Background()

	cfg, err := s.CreateSession(ctx, jobstate.SessionConfig{SessionID: "sess-1", Settings: map[string]string{"target_partitions": "4"}})
	require.NoError(t, err)
	assert.Equal(t, "sess-1", cfg.SessionID)

	got, err := s.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "4", got.Settings["target_partitions"])

	updated, err := s.UpdateSession(ctx, "sess-1", jobstate.SessionConfig{Settings: map[string]string{"target_partitions": "8"}})
	require.NoError(t, err)
	assert.Equal(t, "8", updated.Settings["target_partitions"])

	require.NoError(t, s.RemoveSession(ctx, "sess-1"))
	_, err = s.GetSession(ctx, "sess-1")
	assert.ErrorIs(t, err, jobstate.ErrSessionNotFound)
}

func TestMemState_UpdateSessionCreatesWhenMissing(t *testing.T) {
	s := jobstate.NewMemState()
	ctx := context.Background()

	sub := s.Events().Subscribe()
	defer s.Events().Unsubscribe(sub)

	updated, err := s.UpdateSession(ctx, "sess-new", jobstate.SessionConfig{Settings: map[string]string{"target_partitions": "2"}})
	require.NoError(t, err)
	assert.Equal(t, "sess-new", updated.SessionID)

	got, err := s.GetSession(ctx, "sess-new")
	require.NoError(t, err)
	assert.Equal(t, "2", got.Settings["target_partitions"])

	select {
	case evt := <-sub:
		assert.Equal(t, events.SessionCreated, evt.Kind)
		assert.Equal(t, "sess-new", evt.SessionID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for SessionCreated event")
	}
}

func TestMemState_FailUnscheduledJobSetsFailedStatus(t *testing.T) {
	s := jobstate.NewMemState()
	ctx := context.Background()

	job := graph.NewJob("job-1", "session-1")
	job.Status = types.JobStatusQueued
	require.NoError(t, s.SubmitJob(ctx, job))

	require.NoError(t, s.FailUnscheduledJob(ctx, "job-1", "no executors available"))
	status, ok, err := s.JobStatus(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.JobStatusFailed, status)
}
