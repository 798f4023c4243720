package cluster

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/cuemby/distsched/pkg/inventory"
	"github.com/cuemby/distsched/pkg/types"
	"github.com/hashicorp/raft"
)

// fsm is the Raft finite state machine backing RaftState: every slot
// delta and inventory mutation is applied through it so all replicas
// converge on the same table.
type fsm struct {
	mu    sync.RWMutex
	table *inventory.MemTable
}

func newFSM() *fsm {
	return &fsm{table: inventory.NewMemTable()}
}

// command is a state change operation in the Raft log.
type command struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"data"`
}

const (
	opRegisterExecutor = "register_executor"
	opSaveMetadata     = "save_executor_metadata"
	opRemoveExecutor   = "remove_executor"
	opSaveHeartbeat    = "save_heartbeat"
	opBindSlots        = "bind_slots"
	opUnbindSlots      = "unbind_slots"
)

type registerExecutorCmd struct {
	Meta types.ExecutorMetadata       `json:"meta"`
	Spec types.ExecutorSpecification `json:"spec"`
}

// Apply applies one committed Raft log entry to the FSM.
func (f *fsm) Apply(log *raft.Log) interface{} {
	var cmd command
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return fmt.Errorf("unmarshal command: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch cmd.Op {
	case opRegisterExecutor:
		var c registerExecutorCmd
		if err := json.Unmarshal(cmd.Data, &c); err != nil {
			return err
		}
		return f.table.RegisterExecutor(c.Meta, c.Spec)

	case opSaveMetadata:
		var meta types.ExecutorMetadata
		if err := json.Unmarshal(cmd.Data, &meta); err != nil {
			return err
		}
		return f.table.SaveExecutorMetadata(meta)

	case opRemoveExecutor:
		var executorID string
		if err := json.Unmarshal(cmd.Data, &executorID); err != nil {
			return err
		}
		return f.table.RemoveExecutor(executorID)

	case opSaveHeartbeat:
		var hb types.ExecutorHeartbeat
		if err := json.Unmarshal(cmd.Data, &hb); err != nil {
			return err
		}
		return f.table.SaveExecutorHeartbeat(hb)

	case opBindSlots:
		var deltas []types.ExecutorSlot
		if err := json.Unmarshal(cmd.Data, &deltas); err != nil {
			return err
		}
		return f.table.BindSlots(deltas)

	case opUnbindSlots:
		var deltas []types.ExecutorSlot
		if err := json.Unmarshal(cmd.Data, &deltas); err != nil {
			return err
		}
		return f.table.UnbindSlots(deltas)

	default:
		return fmt.Errorf("unknown command: %s", cmd.Op)
	}
}

// Snapshot captures the full inventory table for Raft log compaction.
func (f *fsm) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries := f.table.Snapshot(nil)
	meta := make(map[string]types.ExecutorMetadata, len(entries))
	specs := make(map[string]types.ExecutorSpecification, len(entries))
	heartbeats := f.table.ExecutorHeartbeats()
	for _, e := range entries {
		m, err := f.table.GetExecutorMetadata(e.ExecutorID)
		if err != nil {
			return nil, fmt.Errorf("snapshot metadata for %s: %w", e.ExecutorID, err)
		}
		meta[e.ExecutorID] = m
		spec, err := f.table.GetExecutorSpecification(e.ExecutorID)
		if err != nil {
			return nil, fmt.Errorf("snapshot spec for %s: %w", e.ExecutorID, err)
		}
		specs[e.ExecutorID] = spec
	}

	return &snapshot{
		Slots:      entries,
		Metadata:   meta,
		Specs:      specs,
		Heartbeats: heartbeats,
	}, nil
}

// Restore rebuilds the FSM's table from a previously persisted snapshot.
func (f *fsm) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var s snapshot
	if err := json.NewDecoder(rc).Decode(&s); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.table = inventory.NewMemTable()
	for _, slot := range s.Slots {
		meta := s.Metadata[slot.ExecutorID]
		spec := s.Specs[slot.ExecutorID]
		if err := f.table.RegisterExecutor(meta, spec); err != nil {
			return err
		}
		if consumed := spec.TaskSlots - slot.Slots; consumed > 0 {
			if err := f.table.BindSlots([]types.ExecutorSlot{{ExecutorID: slot.ExecutorID, Slots: consumed}}); err != nil {
				return err
			}
		}
	}
	for id, hb := range s.Heartbeats {
		hb.ExecutorID = id
		if err := f.table.SaveExecutorHeartbeat(hb); err != nil {
			return err
		}
	}
	return nil
}

// snapshot is the point-in-time FSM state persisted to Raft's snapshot
// store and shipped to a node that joins with an empty log.
type snapshot struct {
	Slots      []types.AvailableTaskSlots
	Metadata   map[string]types.ExecutorMetadata
	Specs      map[string]types.ExecutorSpecification
	Heartbeats map[string]types.ExecutorHeartbeat
}

func (s *snapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		if err := json.NewEncoder(sink).Encode(s); err != nil {
			return err
		}
		return sink.Close()
	}()
	if err != nil {
		sink.Cancel()
	}
	return err
}

func (s *snapshot) Release() {}
