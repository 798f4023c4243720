// Package types defines the shared data model for the task-binding core:
// executors, jobs, stages, partitions, and the task descriptions that a
// binding round produces. Types here are intentionally storage-agnostic;
// pkg/cluster and pkg/graph decide how they are persisted.
package types

import (
	"strconv"
	"time"
)

// ExecutorMetadata identifies an executor and its network address.
type ExecutorMetadata struct {
	ID     string
	Host   string
	Port   int
	Labels map[string]string
}

// Name returns the executor's "host:port" network name.
func (m ExecutorMetadata) Name() string {
	return m.Host + ":" + strconv.Itoa(m.Port)
}

// ExecutorSpecification describes an executor's static capacity.
type ExecutorSpecification struct {
	TaskSlots uint32
}

// ExecutorHeartbeat is the last-seen liveness record for an executor.
type ExecutorHeartbeat struct {
	ExecutorID string
	Timestamp  time.Time
	// State carries a free-form status string (e.g. "ready", "draining"),
	// mirroring the informal node-status field external callers attach.
	State string
}

// AvailableTaskSlots is a point-in-time snapshot of one executor's free
// concurrent task capacity, as fed into the bias and round-robin policies.
type AvailableTaskSlots struct {
	ExecutorID string
	Slots      uint32
}

// ExecutorSlot is the (executor_id, count) pair unbind_tasks operates on.
type ExecutorSlot struct {
	ExecutorID string
	Slots      uint32
}

// JobStatus is the coarse lifecycle state of a job. Only JobStatusRunning
// is bindable.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// TaskDistributionKind selects one of the three binding policies.
type TaskDistributionKind string

const (
	DistributionBias           TaskDistributionKind = "bias"
	DistributionRoundRobin     TaskDistributionKind = "round_robin"
	DistributionConsistentHash TaskDistributionKind = "consistent_hash"
)

// TaskDistributionPolicy is the external configuration knob selecting a
// binding algorithm and, for consistent hashing, its ring parameters.
type TaskDistributionPolicy struct {
	Kind        TaskDistributionKind
	NumReplicas int // consistent hash only; default 31
	Tolerance   int // consistent hash only; default 0
}

// DefaultConsistentHashPolicy returns the policy defaults named in spec §6.
func DefaultConsistentHashPolicy() TaskDistributionPolicy {
	return TaskDistributionPolicy{
		Kind:        DistributionConsistentHash,
		NumReplicas: 31,
		Tolerance:   0,
	}
}

// Plan is an opaque handle to a physical execution plan. The binder never
// interprets it; it only copies the reference into emitted task
// descriptions. Consistent-hash placement reads scan files from
// graph.Stage.ScanFiles, not from the plan. Physical planning lives
// outside the binding core.
type Plan interface{}

// PartitionedFile is the narrow view of a scan input the binder needs:
// enough to hash an object-storage location for locality placement.
type PartitionedFile struct {
	Location  string // object-store path, e.g. "s3://bucket/part-00001.parquet"
	SizeBytes int64
}

// PartitionID addresses a single unit of work within a job's stage DAG.
type PartitionID struct {
	JobID       string
	StageID     int
	PartitionID int
}

// TaskInfo is the per-partition cell of a stage's task_infos table: filled
// exactly once per stage attempt when a partition is bound.
type TaskInfo struct {
	ExecutorID string
	TaskID     uint64
	StartedAt  time.Time
}

// TaskDescription is the payload half of a BoundTask.
type TaskDescription struct {
	SessionID       string
	Partition       PartitionID
	StageAttemptNum int
	TaskID          uint64
	TaskAttempt     int
	// DataCache is true only when consistent-hash placement hit the
	// partition's primary ring node (tolerance 0).
	DataCache bool
	Plan      Plan
}

// BoundTask pairs an executor with the task it must run.
type BoundTask struct {
	ExecutorID string
	Task       TaskDescription
}
