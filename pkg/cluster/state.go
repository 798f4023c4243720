// Package cluster implements the ClusterState façade: the pluggable
// backend that owns executor inventory and executes binding rounds
// atomically against it. Three backends are provided: an in-memory
// backend for single-process use and tests, a Raft-replicated backend for
// multi-manager deployments, and an embedded bbolt backend for a single
// manager that wants durability without the operational cost of Raft.
package cluster

import (
	"context"
	"errors"

	"github.com/cuemby/distsched/pkg/binding"
	"github.com/cuemby/distsched/pkg/types"
)

// ErrNotLeader is returned by write operations on a replicated backend
// when called against a non-leader node; only the leader may serialize
// writes into the replicated log.
var ErrNotLeader = errors.New("cluster: not the leader")

// State is the ClusterState façade every backend implements.
type State interface {
	// RegisterExecutor adds a new executor with its static capacity.
	RegisterExecutor(ctx context.Context, meta types.ExecutorMetadata, spec types.ExecutorSpecification) error
	SaveExecutorMetadata(ctx context.Context, meta types.ExecutorMetadata) error
	GetExecutorMetadata(ctx context.Context, executorID string) (types.ExecutorMetadata, error)
	RemoveExecutor(ctx context.Context, executorID string) error

	SaveExecutorHeartbeat(ctx context.Context, hb types.ExecutorHeartbeat) error
	GetExecutorHeartbeat(ctx context.Context, executorID string) (types.ExecutorHeartbeat, bool)
	ExecutorHeartbeats(ctx context.Context) map[string]types.ExecutorHeartbeat

	// BindSchedulableTasks runs one binding round: it snapshots available
	// slots (optionally restricted to executorIDs), applies policy to the
	// running jobs, and atomically commits the resulting slot deltas. The
	// snapshot-and-commit pair is the operation's sole unit of atomicity;
	// a caller never observes a round that bound tasks without also
	// observing the corresponding slot decrement, or vice versa.
	BindSchedulableTasks(ctx context.Context, policy types.TaskDistributionPolicy, jobs binding.Jobs, executorIDs []string) (binding.Result, error)

	// UnbindTasks releases previously bound slots back to their
	// executors, e.g. after task failure or job cancellation.
	UnbindTasks(ctx context.Context, deltas []types.ExecutorSlot) error

	// Close releases any resources the backend holds (raft transport,
	// bbolt file handle, etc).
	Close() error
}
