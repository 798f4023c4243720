/*
Package types defines the core data structures shared by the task-binding
core: executors, task slots, and the partition/stage addressing scheme a
binding round consumes and produces.

# Architecture

	┌─────────────────────────────────────────────────────────────┐
	│                      Binding Round Input                     │
	│  AvailableTaskSlots{executor_id, slots}  ×  active jobs      │
	└───────────────────────────┬───────────────────────────────────┘
	                            │
	                            ▼
	┌─────────────────────────────────────────────────────────────┐
	│                     Binding Policy (pkg/binding)              │
	│   bias | round_robin | consistent_hash{num_replicas,tolerance}│
	└───────────────────────────┬───────────────────────────────────┘
	                            │
	                            ▼
	┌─────────────────────────────────────────────────────────────┐
	│                     Binding Round Output                     │
	│  BoundTask{executor_id, TaskDescription{PartitionID, ...}}    │
	└─────────────────────────────────────────────────────────────┘

# Core Types

Executors:
  - ExecutorMetadata: network identity (host:port) of an executor
  - ExecutorSpecification: static task-slot capacity
  - ExecutorHeartbeat: last-seen liveness record
  - AvailableTaskSlots: point-in-time free-slot snapshot
  - ExecutorSlot: (executor_id, count) pair used to unbind slots

Jobs and stages:
  - JobStatus: queued, running, succeeded, failed, canceled
  - PartitionID: (job_id, stage_id, partition_id) address
  - TaskInfo: the per-partition task_infos cell
  - TaskDescription / BoundTask: binding round output

Policy selection:
  - TaskDistributionKind, TaskDistributionPolicy: bias / round_robin /
    consistent_hash{num_replicas, tolerance}, defaults from
    DefaultConsistentHashPolicy

Scan locality:
  - Plan: opaque physical-plan handle, never interpreted by the binder
  - PartitionedFile: object-store location used to hash a partition onto
    the consistent-hash ring

# Usage

Building a slot snapshot for the bias/round-robin policies:

	slots := []types.AvailableTaskSlots{
		{ExecutorID: "exec-1", Slots: 3},
		{ExecutorID: "exec-2", Slots: 5},
	}

Selecting a policy:

	policy := types.DefaultConsistentHashPolicy()
	policy.Tolerance = 1
*/
package types
