package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/distsched/pkg/binding"
	"github.com/cuemby/distsched/pkg/types"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
)

// RaftConfig configures a replicated RaftState node.
type RaftConfig struct {
	NodeID   string
	BindAddr string
	DataDir  string
	// Bootstrap, when true, forms a brand-new single-node cluster. A node
	// joining an existing cluster leaves this false and expects the
	// leader to call AddVoter with its NodeID/BindAddr out of band.
	Bootstrap bool
}

// RaftState is the Raft-replicated ClusterState backend: every slot
// mutation goes through the Raft log so all manager replicas converge on
// the same inventory table, and binding decisions are only made by the
// current leader.
type RaftState struct {
	nodeID string
	raft   *raft.Raft
	fsm    *fsm
}

// NewRaftState starts (or rejoins) a Raft node and returns the backend
// wrapping it. Timeouts are tuned the same way as the teacher's manager
// for sub-10s failover on a LAN: shorter heartbeat and election timeouts
// than hashicorp/raft's WAN-oriented defaults.
func NewRaftState(cfg RaftConfig) (*RaftState, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	raftCfg := raft.DefaultConfig()
	raftCfg.LocalID = raft.ServerID(cfg.NodeID)
	raftCfg.HeartbeatTimeout = 500 * time.Millisecond
	raftCfg.ElectionTimeout = 500 * time.Millisecond
	raftCfg.CommitTimeout = 50 * time.Millisecond
	raftCfg.LeaderLeaseTimeout = 250 * time.Millisecond

	addr, err := net.ResolveTCPAddr("tcp", cfg.BindAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve bind address: %w", err)
	}
	transport, err := raft.NewTCPTransport(cfg.BindAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("create transport: %w", err)
	}

	snapshotStore, err := raft.NewFileSnapshotStore(cfg.DataDir, 2, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("create snapshot store: %w", err)
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-log.db"))
	if err != nil {
		return nil, fmt.Errorf("create log store: %w", err)
	}
	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-stable.db"))
	if err != nil {
		return nil, fmt.Errorf("create stable store: %w", err)
	}

	f := newFSM()
	r, err := raft.NewRaft(raftCfg, f, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		return nil, fmt.Errorf("create raft: %w", err)
	}

	if cfg.Bootstrap {
		configuration := raft.Configuration{
			Servers: []raft.Server{{ID: raftCfg.LocalID, Address: transport.LocalAddr()}},
		}
		if err := r.BootstrapCluster(configuration).Error(); err != nil {
			return nil, fmt.Errorf("bootstrap cluster: %w", err)
		}
	}

	return &RaftState{nodeID: cfg.NodeID, raft: r, fsm: f}, nil
}

// AddVoter adds a new node to the Raft configuration; only the leader may
// call this.
func (s *RaftState) AddVoter(nodeID, addr string) error {
	if !s.IsLeader() {
		return ErrNotLeader
	}
	return s.raft.AddVoter(raft.ServerID(nodeID), raft.ServerAddress(addr), 0, 10*time.Second).Error()
}

// RemoveServer removes a node from the Raft configuration; only the
// leader may call this.
func (s *RaftState) RemoveServer(nodeID string) error {
	if !s.IsLeader() {
		return ErrNotLeader
	}
	return s.raft.RemoveServer(raft.ServerID(nodeID), 0, 10*time.Second).Error()
}

// IsLeader reports whether this node currently holds Raft leadership.
func (s *RaftState) IsLeader() bool {
	return s.raft.State() == raft.Leader
}

// LeaderAddr returns the current leader's transport address, if known.
func (s *RaftState) LeaderAddr() string {
	addr, _ := s.raft.LeaderWithID()
	return string(addr)
}

// Stats returns Raft's internal stats map as reported by hashicorp/raft.
func (s *RaftState) Stats() map[string]string {
	return s.raft.Stats()
}

func (s *RaftState) apply(op string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	cmd, err := json.Marshal(command{Op: op, Data: data})
	if err != nil {
		return err
	}
	future := s.raft.Apply(cmd, 5*time.Second)
	if err := future.Error(); err != nil {
		return err
	}
	if resp := future.Response(); resp != nil {
		if err, ok := resp.(error); ok && err != nil {
			return err
		}
	}
	return nil
}

func (s *RaftState) RegisterExecutor(_ context.Context, meta types.ExecutorMetadata, spec types.ExecutorSpecification) error {
	if !s.IsLeader() {
		return ErrNotLeader
	}
	return s.apply(opRegisterExecutor, registerExecutorCmd{Meta: meta, Spec: spec})
}

func (s *RaftState) SaveExecutorMetadata(_ context.Context, meta types.ExecutorMetadata) error {
	if !s.IsLeader() {
		return ErrNotLeader
	}
	return s.apply(opSaveMetadata, meta)
}

func (s *RaftState) GetExecutorMetadata(_ context.Context, executorID string) (types.ExecutorMetadata, error) {
	s.fsm.mu.RLock()
	defer s.fsm.mu.RUnlock()
	return s.fsm.table.GetExecutorMetadata(executorID)
}

func (s *RaftState) RemoveExecutor(_ context.Context, executorID string) error {
	if !s.IsLeader() {
		return ErrNotLeader
	}
	return s.apply(opRemoveExecutor, executorID)
}

func (s *RaftState) SaveExecutorHeartbeat(_ context.Context, hb types.ExecutorHeartbeat) error {
	if !s.IsLeader() {
		return ErrNotLeader
	}
	return s.apply(opSaveHeartbeat, hb)
}

func (s *RaftState) GetExecutorHeartbeat(_ context.Context, executorID string) (types.ExecutorHeartbeat, bool) {
	s.fsm.mu.RLock()
	defer s.fsm.mu.RUnlock()
	return s.fsm.table.GetExecutorHeartbeat(executorID)
}

func (s *RaftState) ExecutorHeartbeats(_ context.Context) map[string]types.ExecutorHeartbeat {
	s.fsm.mu.RLock()
	defer s.fsm.mu.RUnlock()
	return s.fsm.table.ExecutorHeartbeats()
}

// BindSchedulableTasks computes the binding decision locally from the
// FSM's replicated table, then commits the resulting slot deltas as a
// single Raft log entry. Only the leader computes and commits; a
// follower returns ErrNotLeader so the caller can retry against the
// current leader address.
func (s *RaftState) BindSchedulableTasks(_ context.Context, policy types.TaskDistributionPolicy, jobs binding.Jobs, executorIDs []string) (binding.Result, error) {
	if !s.IsLeader() {
		return binding.Result{}, ErrNotLeader
	}

	s.fsm.mu.RLock()
	result, deltas := runPolicy(s.fsm.table, policy, jobs, executorIDs)
	s.fsm.mu.RUnlock()

	if len(deltas) == 0 {
		logRound(policy, result)
		return result, nil
	}
	if err := s.apply(opBindSlots, deltas); err != nil {
		return binding.Result{}, err
	}
	logRound(policy, result)
	return result, nil
}

func (s *RaftState) UnbindTasks(_ context.Context, deltas []types.ExecutorSlot) error {
	if !s.IsLeader() {
		return ErrNotLeader
	}
	return s.apply(opUnbindSlots, deltas)
}

// Close shuts down the Raft node.
func (s *RaftState) Close() error {
	return s.raft.Shutdown().Error()
}
