// Package jobstate specifies the external contract pkg/binding and
// pkg/cluster are called from: job submission, ownership, and the
// session configuration a job runs under. The binding core only ever
// reads the pieces of this surface described in its own package
// comments (job status, session id, per-stage task_infos); everything
// else here exists so a complete scheduler has a concrete place to put
// job lifecycle and session CRUD, matching the shape the Rust scheduler
// this module was modeled on exposes as its own JobState trait.
package jobstate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/distsched/pkg/events"
	"github.com/cuemby/distsched/pkg/graph"
	"github.com/cuemby/distsched/pkg/types"
)

// ErrJobNotFound is returned when an operation names a job the store has
// no record of.
var ErrJobNotFound = errors.New("jobstate: job not found")

// ErrSessionNotFound is returned when an operation names a session the
// store has no record of.
var ErrSessionNotFound = errors.New("jobstate: session not found")

// ErrAlreadyOwned is returned by TryAcquireJob when another scheduler
// already holds the job.
var ErrAlreadyOwned = errors.New("jobstate: job already owned")

// SessionConfig is the set of key/value execution settings a session
// runs with, analogous to the settings map BallistaConfig carries in
// the original scheduler.
type SessionConfig struct {
	SessionID string
	Settings  map[string]string
}

// State is the job-state contract: job submission and lifecycle, session
// CRUD, and the JobStateEvent stream. A binding round only needs the
// ExecutionGraph and ownership pieces of this surface; the rest rounds
// out a complete implementation.
type State interface {
	// AcceptJob records a newly queued job before its execution graph has
	// been planned.
	AcceptJob(ctx context.Context, jobID, jobName string, queuedAt time.Time) error
	PendingJobCount() int

	// SubmitJob stores a planned execution graph for a previously
	// accepted job and removes it from the pending set; the job keeps the
	// status its graph carries.
	SubmitJob(ctx context.Context, job *graph.Job) error
	Jobs(ctx context.Context) ([]string, error)
	JobStatus(ctx context.Context, jobID string) (types.JobStatus, bool, error)
	ExecutionGraph(ctx context.Context, jobID string) (*graph.Job, bool, error)
	SaveJob(ctx context.Context, job *graph.Job) error
	FailUnscheduledJob(ctx context.Context, jobID, reason string) error
	RemoveJob(ctx context.Context, jobID string) error

	// TryAcquireJob claims exclusive ownership of a job's execution graph
	// for the duration of a binding round, returning it for mutation. A
	// job already owned by another scheduler returns ErrAlreadyOwned.
	TryAcquireJob(ctx context.Context, jobID, owner string) (*graph.Job, error)
	ReleaseJob(ctx context.Context, jobID, owner string) error

	CreateSession(ctx context.Context, cfg SessionConfig) (SessionConfig, error)
	GetSession(ctx context.Context, sessionID string) (SessionConfig, error)
	// UpdateSession saves cfg under sessionID, creating a new session if
	// one by that ID does not already exist.
	UpdateSession(ctx context.Context, sessionID string, cfg SessionConfig) (SessionConfig, error)
	RemoveSession(ctx context.Context, sessionID string) error

	// Events returns the broker every JobUpdated/JobAcquired/JobReleased/
	// SessionCreated/SessionUpdated notification is published on.
	Events() *events.Broker
}

type pendingJob struct {
	name     string
	queuedAt time.Time
}

type jobRecord struct {
	job      *graph.Job
	owner    string
	ownedAt  time.Time
}

// MemState is the in-process State implementation: a single mutex over
// plain maps, mirroring the same pattern pkg/inventory.MemTable and
// pkg/cluster.MemoryState use for their own single-process storage.
type MemState struct {
	mu       sync.Mutex
	pending  map[string]pendingJob
	jobs     map[string]*jobRecord
	sessions map[string]SessionConfig
	broker   *events.Broker
}

// NewMemState returns an empty job-state store with its event broker
// already started.
func NewMemState() *MemState {
	s := &MemState{
		pending:  make(map[string]pendingJob),
		jobs:     make(map[string]*jobRecord),
		sessions: make(map[string]SessionConfig),
		broker:   events.NewBroker(),
	}
	s.broker.Start()
	return s
}

func (s *MemState) Events() *events.Broker { return s.broker }

func (s *MemState) AcceptJob(_ context.Context, jobID, jobName string, queuedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[jobID] = pendingJob{name: jobName, queuedAt: queuedAt}
	return nil
}

func (s *MemState) PendingJobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *MemState) SubmitJob(_ context.Context, job *graph.Job) error {
	s.mu.Lock()
	delete(s.pending, job.ID)
	s.jobs[job.ID] = &jobRecord{job: job}
	s.mu.Unlock()

	s.broker.Publish(&events.JobStateEvent{
		Kind:      events.JobUpdated,
		Timestamp: time.Now(),
		JobID:     job.ID,
		Status:    job.Status,
	})
	return nil
}

func (s *MemState) Jobs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemState) JobStatus(_ context.Context, jobID string) (types.JobStatus, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[jobID]
	if !ok {
		return "", false, nil
	}
	return rec.job.Status, true, nil
}

func (s *MemState) ExecutionGraph(_ context.Context, jobID string) (*graph.Job, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[jobID]
	if !ok {
		return nil, false, nil
	}
	return rec.job, true, nil
}

func (s *MemState) SaveJob(_ context.Context, job *graph.Job) error {
	s.mu.Lock()
	rec, ok := s.jobs[job.ID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobNotFound, job.ID)
	}
	rec.job = job
	s.mu.Unlock()

	s.broker.Publish(&events.JobStateEvent{
		Kind:      events.JobUpdated,
		Timestamp: time.Now(),
		JobID:     job.ID,
		Status:    job.Status,
	})
	return nil
}

func (s *MemState) FailUnscheduledJob(_ context.Context, jobID, _ string) error {
	s.mu.Lock()
	rec, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	rec.job.Status = types.JobStatusFailed
	s.mu.Unlock()

	s.broker.Publish(&events.JobStateEvent{
		Kind:      events.JobUpdated,
		Timestamp: time.Now(),
		JobID:     jobID,
		Status:    types.JobStatusFailed,
	})
	return nil
}

func (s *MemState) RemoveJob(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
	delete(s.pending, jobID)
	return nil
}

func (s *MemState) TryAcquireJob(_ context.Context, jobID, owner string) (*graph.Job, error) {
	s.mu.Lock()
	rec, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if rec.owner != "" && rec.owner != owner {
		s.mu.Unlock()
		return nil, ErrAlreadyOwned
	}
	rec.owner = owner
	rec.ownedAt = time.Now()
	job := rec.job
	s.mu.Unlock()

	s.broker.Publish(&events.JobStateEvent{
		Kind:      events.JobAcquired,
		Timestamp: time.Now(),
		JobID:     jobID,
		Owner:     owner,
	})
	return job, nil
}

func (s *MemState) ReleaseJob(_ context.Context, jobID, owner string) error {
	s.mu.Lock()
	rec, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if rec.owner != owner {
		s.mu.Unlock()
		return nil
	}
	rec.owner = ""
	s.mu.Unlock()

	s.broker.Publish(&events.JobStateEvent{
		Kind:      events.JobReleased,
		Timestamp: time.Now(),
		JobID:     jobID,
		Owner:     owner,
	})
	return nil
}

func (s *MemState) CreateSession(_ context.Context, cfg SessionConfig) (SessionConfig, error) {
	s.mu.Lock()
	s.sessions[cfg.SessionID] = cfg
	s.mu.Unlock()

	s.broker.Publish(&events.JobStateEvent{
		Kind:          events.SessionCreated,
		Timestamp:     time.Now(),
		SessionID:     cfg.SessionID,
		SessionConfig: cfg.Settings,
	})
	return cfg, nil
}

func (s *MemState) GetSession(_ context.Context, sessionID string) (SessionConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.sessions[sessionID]
	if !ok {
		return SessionConfig{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return cfg, nil
}

// UpdateSession saves cfg under sessionID, creating it if no session by
// that ID exists yet rather than failing: sessions are derived from query
// configuration the caller already has in hand, so there is no separate
// creation step to have missed.
func (s *MemState) UpdateSession(_ context.Context, sessionID string, cfg SessionConfig) (SessionConfig, error) {
	s.mu.Lock()
	_, existed := s.sessions[sessionID]
	cfg.SessionID = sessionID
	s.sessions[sessionID] = cfg
	s.mu.Unlock()

	kind := events.SessionUpdated
	if !existed {
		kind = events.SessionCreated
	}
	s.broker.Publish(&events.JobStateEvent{
		Kind:          kind,
		Timestamp:     time.Now(),
		SessionID:     sessionID,
		SessionConfig: cfg.Settings,
	})
	return cfg, nil
}

func (s *MemState) RemoveSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
