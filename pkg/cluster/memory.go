package cluster

import (
	"context"
	"sync"

	"github.com/cuemby/distsched/pkg/binding"
	"github.com/cuemby/distsched/pkg/inventory"
	"github.com/cuemby/distsched/pkg/log"
	"github.com/cuemby/distsched/pkg/types"
	"github.com/google/uuid"
)

// MemoryState is the in-process ClusterState backend: a single mutex
// serializes every binding round against the inventory table, which is
// what makes the snapshot-then-commit sequence in BindSchedulableTasks
// atomic without needing a separate transaction mechanism.
type MemoryState struct {
	mu    sync.Mutex
	table *inventory.MemTable
}

// NewMemoryState returns an empty in-memory cluster state.
func NewMemoryState() *MemoryState {
	return &MemoryState{table: inventory.NewMemTable()}
}

func (s *MemoryState) RegisterExecutor(_ context.Context, meta types.ExecutorMetadata, spec types.ExecutorSpecification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.RegisterExecutor(meta, spec)
}

func (s *MemoryState) SaveExecutorMetadata(_ context.Context, meta types.ExecutorMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.SaveExecutorMetadata(meta)
}

func (s *MemoryState) GetExecutorMetadata(_ context.Context, executorID string) (types.ExecutorMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.GetExecutorMetadata(executorID)
}

func (s *MemoryState) RemoveExecutor(_ context.Context, executorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.RemoveExecutor(executorID)
}

func (s *MemoryState) SaveExecutorHeartbeat(_ context.Context, hb types.ExecutorHeartbeat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.SaveExecutorHeartbeat(hb)
}

func (s *MemoryState) GetExecutorHeartbeat(_ context.Context, executorID string) (types.ExecutorHeartbeat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.GetExecutorHeartbeat(executorID)
}

func (s *MemoryState) ExecutorHeartbeats(_ context.Context) map[string]types.ExecutorHeartbeat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.ExecutorHeartbeats()
}

func (s *MemoryState) BindSchedulableTasks(_ context.Context, policy types.TaskDistributionPolicy, jobs binding.Jobs, executorIDs []string) (binding.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, deltas := runPolicy(s.table, policy, jobs, executorIDs)
	if len(deltas) > 0 {
		if err := s.table.BindSlots(deltas); err != nil {
			return binding.Result{}, err
		}
	}
	logRound(policy, result)
	return result, nil
}

func (s *MemoryState) UnbindTasks(_ context.Context, deltas []types.ExecutorSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.UnbindSlots(deltas)
}

func (s *MemoryState) Close() error { return nil }

// logRound emits one round_id/policy-tagged log line per binding round,
// the call site SPEC_FULL.md's logging section promises for pkg/cluster.
// Every backend shares it so a round looks the same in the logs
// regardless of which ClusterState implementation produced it.
func logRound(policy types.TaskDistributionPolicy, result binding.Result) {
	log.WithRound(uuid.NewString(), string(policy.Kind)).Info().
		Int("bound", len(result.Bound)).
		Int("blacklisted", len(result.Blacklist)).
		Msg("binding round completed")
}

// runPolicy snapshots the table, runs the chosen binding policy, and
// returns the result alongside the per-executor slot deltas the caller
// must still commit. Shared by every backend: only how the commit is
// made durable differs.
func runPolicy(table *inventory.MemTable, policy types.TaskDistributionPolicy, jobs binding.Jobs, executorIDs []string) (binding.Result, []types.ExecutorSlot) {
	switch policy.Kind {
	case types.DistributionRoundRobin:
		slots := table.Snapshot(executorIDs)
		before := snapshotMap(slots)
		result := binding.RoundRobin(slots, jobs, nil)
		return result, deltasFrom(before, slots)

	case types.DistributionConsistentHash:
		slots := table.Snapshot(executorIDs)
		nodes := make([]*binding.TopologyNode, len(slots))
		for i, s := range slots {
			nodes[i] = &binding.TopologyNode{ExecutorID: s.ExecutorID, Slots: s.Slots}
		}
		result := binding.ConsistentHash(nodes, policy.NumReplicas, policy.Tolerance, jobs, nil)
		deltas := make([]types.ExecutorSlot, 0, len(nodes))
		for i, n := range nodes {
			if consumed := slots[i].Slots - n.Slots; consumed > 0 {
				deltas = append(deltas, types.ExecutorSlot{ExecutorID: n.ExecutorID, Slots: consumed})
			}
		}
		return result, deltas

	default: // types.DistributionBias
		slots := table.Snapshot(executorIDs)
		before := snapshotMap(slots)
		result := binding.Bias(slots, jobs, nil)
		return result, deltasFrom(before, slots)
	}
}

func snapshotMap(slots []types.AvailableTaskSlots) map[string]uint32 {
	m := make(map[string]uint32, len(slots))
	for _, s := range slots {
		m[s.ExecutorID] = s.Slots
	}
	return m
}

func deltasFrom(before map[string]uint32, after []types.AvailableTaskSlots) []types.ExecutorSlot {
	var deltas []types.ExecutorSlot
	for _, a := range after {
		if consumed := before[a.ExecutorID] - a.Slots; consumed > 0 {
			deltas = append(deltas, types.ExecutorSlot{ExecutorID: a.ExecutorID, Slots: consumed})
		}
	}
	return deltas
}
