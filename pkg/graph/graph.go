// Package graph models the execution-graph view a binding round consumes:
// the per-job stage DAG, each stage's task_infos table, and the stage
// iteration contract the binding policies rely on to visit every running
// stage exactly once per round.
//
// Ownership of a Job's graph belongs to the external job-state store this
// package does not implement (pkg/jobstate names the contract). Job's own
// mutex guards only its stage map and is not held across a binding round,
// so two rounds running against the same Job at once are not serialized
// by this package; the MemoryState and BboltState backends in pkg/cluster
// run each round under their own mutex.
package graph

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cuemby/distsched/pkg/types"
)

// Stage is one node of a job's stage DAG: a fixed partition count, a
// task_infos table recording which executor and task ID a partition was
// bound to, and a per-partition failure counter.
type Stage struct {
	ID        int
	Attempt   int
	ScanFiles [][][]types.PartitionedFile // scan x partition x file; nil if not a scan stage
	Plan      types.Plan

	mu                 sync.Mutex
	taskInfos          []*types.TaskInfo
	taskFailureNumbers []int
	nextTaskID         uint64
}

// NewStage allocates a stage with partitionCount empty partitions.
func NewStage(id, attempt, partitionCount int) *Stage {
	return &Stage{
		ID:                 id,
		Attempt:            attempt,
		taskInfos:          make([]*types.TaskInfo, partitionCount),
		taskFailureNumbers: make([]int, partitionCount),
	}
}

// PartitionCount returns the number of partitions in the stage.
func (s *Stage) PartitionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.taskInfos)
}

// EmptyPartitions returns the indices of partitions with no task_infos
// entry yet, in ascending order.
func (s *Stage) EmptyPartitions() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int
	for i, ti := range s.taskInfos {
		if ti == nil {
			out = append(out, i)
		}
	}
	return out
}

// NextTaskID returns the next monotonically increasing task ID for this
// stage attempt, starting from 1.
func (s *Stage) NextTaskID() uint64 {
	return atomic.AddUint64(&s.nextTaskID, 1)
}

// Bind records a task_infos entry for partition, failing if the partition
// is already bound. Binding the same partition twice without an
// intervening Unbind is a caller error, caught here rather than silently
// overwriting an in-flight task.
func (s *Stage) Bind(partition int, info types.TaskInfo) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if partition < 0 || partition >= len(s.taskInfos) {
		return false
	}
	if s.taskInfos[partition] != nil {
		return false
	}
	s.taskInfos[partition] = &info
	return true
}

// Unbind clears a partition's task_infos entry, returning it to the empty
// pool for a future binding round (used on task failure or cancellation
// rollback).
func (s *Stage) Unbind(partition int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if partition >= 0 && partition < len(s.taskInfos) {
		s.taskInfos[partition] = nil
	}
}

// TaskInfo returns a copy of partition's task_infos entry, if bound.
func (s *Stage) TaskInfo(partition int) (types.TaskInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if partition < 0 || partition >= len(s.taskInfos) || s.taskInfos[partition] == nil {
		return types.TaskInfo{}, false
	}
	return *s.taskInfos[partition], true
}

// RecordFailure increments partition's failure counter and returns the new
// count.
func (s *Stage) RecordFailure(partition int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if partition < 0 || partition >= len(s.taskFailureNumbers) {
		return 0
	}
	s.taskFailureNumbers[partition]++
	return s.taskFailureNumbers[partition]
}

// Job is the execution-graph view of one running job: its stage DAG plus
// coarse lifecycle status.
type Job struct {
	ID        string
	SessionID string
	Status    types.JobStatus

	mu     sync.Mutex
	stages map[int]*Stage
}

// NewJob returns an empty job in JobStatusRunning.
func NewJob(id, sessionID string) *Job {
	return &Job{ID: id, SessionID: sessionID, Status: types.JobStatusRunning, stages: make(map[int]*Stage)}
}

// AddStage inserts or replaces a stage in the job's DAG.
func (j *Job) AddStage(stage *Stage) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stages[stage.ID] = stage
}

// Stage returns the stage with the given ID, if present.
func (j *Job) Stage(id int) (*Stage, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	s, ok := j.stages[id]
	return s, ok
}

// RunningStages returns the job's stages in ascending ID order, skipping
// any whose ID appears in blacklist. A stable order is what lets a binding
// round enumerate every running stage exactly once even as the policy
// aborts partway through a job's stage list.
func (j *Job) RunningStages(blacklist map[int]bool) []*Stage {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]*Stage, 0, len(j.stages))
	for id, s := range j.stages {
		if blacklist != nil && blacklist[id] {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out
}

// StageBlacklist tracks (job_id, stage_id) pairs a binding round has given
// up on for the remainder of the round, e.g. after a consistent-hash pass
// over a stage bound nothing.
type StageBlacklist struct {
	byJob map[string]map[int]bool
}

// NewStageBlacklist returns an empty blacklist.
func NewStageBlacklist() *StageBlacklist {
	return &StageBlacklist{byJob: make(map[string]map[int]bool)}
}

// Add blacklists stageID within jobID.
func (b *StageBlacklist) Add(jobID string, stageID int) {
	m, ok := b.byJob[jobID]
	if !ok {
		m = make(map[int]bool)
		b.byJob[jobID] = m
	}
	m[stageID] = true
}

// For returns the blacklisted stage IDs for jobID, suitable for passing to
// Job.RunningStages.
func (b *StageBlacklist) For(jobID string) map[int]bool {
	return b.byJob[jobID]
}
