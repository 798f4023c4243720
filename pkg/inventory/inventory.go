// Package inventory tracks executor registration, metadata, heartbeats, and
// available task slots: the mutable state the consistent-hash ring and the
// binding policies read a snapshot of on every round.
package inventory

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cuemby/distsched/pkg/types"
)

// ErrExecutorNotFound is returned when an operation names an executor the
// table has no record of.
var ErrExecutorNotFound = errors.New("inventory: executor not found")

// ErrInsufficientSlots is returned by BindSlots when an executor does not
// have enough free slots to satisfy the requested delta; the whole batch is
// rejected so a caller never observes a partial bind.
var ErrInsufficientSlots = errors.New("inventory: insufficient slots")

// Table is the inventory storage surface. MemTable is its only
// implementation; every pkg/cluster backend keeps one, and the durable
// backends additionally replicate (raft) or persist (bbolt) each write.
type Table interface {
	RegisterExecutor(meta types.ExecutorMetadata, spec types.ExecutorSpecification) error
	SaveExecutorMetadata(meta types.ExecutorMetadata) error
	GetExecutorMetadata(executorID string) (types.ExecutorMetadata, error)
	GetExecutorSpecification(executorID string) (types.ExecutorSpecification, error)
	RemoveExecutor(executorID string) error

	SaveExecutorHeartbeat(hb types.ExecutorHeartbeat) error
	GetExecutorHeartbeat(executorID string) (types.ExecutorHeartbeat, bool)
	ExecutorHeartbeats() map[string]types.ExecutorHeartbeat

	// Snapshot returns the current free-slot count for every registered
	// executor, or only the executors named in ids when ids is non-empty.
	Snapshot(ids []string) []types.AvailableTaskSlots

	// BindSlots atomically decrements the named executors' free slots. It
	// fails the whole batch, leaving every counter untouched, if any single
	// delta would take an executor below zero.
	BindSlots(deltas []types.ExecutorSlot) error

	// UnbindSlots atomically increments the named executors' free slots,
	// capped at each executor's registered TaskSlots specification.
	UnbindSlots(deltas []types.ExecutorSlot) error
}

type entry struct {
	meta      types.ExecutorMetadata
	spec      types.ExecutorSpecification
	slots     uint32
	heartbeat types.ExecutorHeartbeat
	hasHB     bool
}

// MemTable is the in-process, mutex-guarded Table implementation backing
// the memory ClusterState and the read-through cache both durable backends
// apply their replicated writes into.
type MemTable struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewMemTable returns an empty inventory table.
func NewMemTable() *MemTable {
	return &MemTable{entries: make(map[string]*entry)}
}

func (t *MemTable) RegisterExecutor(meta types.ExecutorMetadata, spec types.ExecutorSpecification) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[meta.ID] = &entry{meta: meta, spec: spec, slots: spec.TaskSlots}
	return nil
}

func (t *MemTable) SaveExecutorMetadata(meta types.ExecutorMetadata) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[meta.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrExecutorNotFound, meta.ID)
	}
	e.meta = meta
	return nil
}

func (t *MemTable) GetExecutorMetadata(executorID string) (types.ExecutorMetadata, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[executorID]
	if !ok {
		return types.ExecutorMetadata{}, fmt.Errorf("%w: %s", ErrExecutorNotFound, executorID)
	}
	return e.meta, nil
}

// GetExecutorSpecification returns the registered static capacity for an
// executor, used by snapshot/restore to recover capacity independently
// of how many slots happen to be free at snapshot time.
func (t *MemTable) GetExecutorSpecification(executorID string) (types.ExecutorSpecification, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[executorID]
	if !ok {
		return types.ExecutorSpecification{}, fmt.Errorf("%w: %s", ErrExecutorNotFound, executorID)
	}
	return e.spec, nil
}

func (t *MemTable) RemoveExecutor(executorID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, executorID)
	return nil
}

func (t *MemTable) SaveExecutorHeartbeat(hb types.ExecutorHeartbeat) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[hb.ExecutorID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrExecutorNotFound, hb.ExecutorID)
	}
	if hb.Timestamp.IsZero() {
		hb.Timestamp = time.Now()
	}
	e.heartbeat = hb
	e.hasHB = true
	return nil
}

func (t *MemTable) GetExecutorHeartbeat(executorID string) (types.ExecutorHeartbeat, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[executorID]
	if !ok || !e.hasHB {
		return types.ExecutorHeartbeat{}, false
	}
	return e.heartbeat, true
}

func (t *MemTable) ExecutorHeartbeats() map[string]types.ExecutorHeartbeat {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]types.ExecutorHeartbeat, len(t.entries))
	for id, e := range t.entries {
		if e.hasHB {
			out[id] = e.heartbeat
		}
	}
	return out
}

func (t *MemTable) Snapshot(ids []string) []types.AvailableTaskSlots {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []types.AvailableTaskSlots
	if len(ids) == 0 {
		out = make([]types.AvailableTaskSlots, 0, len(t.entries))
		for id, e := range t.entries {
			out = append(out, types.AvailableTaskSlots{ExecutorID: id, Slots: e.slots})
		}
	} else {
		out = make([]types.AvailableTaskSlots, 0, len(ids))
		for _, id := range ids {
			if e, ok := t.entries[id]; ok {
				out = append(out, types.AvailableTaskSlots{ExecutorID: id, Slots: e.slots})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExecutorID < out[j].ExecutorID })
	return out
}

func (t *MemTable) BindSlots(deltas []types.ExecutorSlot) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, d := range deltas {
		e, ok := t.entries[d.ExecutorID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrExecutorNotFound, d.ExecutorID)
		}
		if e.slots < d.Slots {
			return fmt.Errorf("%w: executor %s has %d, need %d", ErrInsufficientSlots, d.ExecutorID, e.slots, d.Slots)
		}
	}
	for _, d := range deltas {
		t.entries[d.ExecutorID].slots -= d.Slots
	}
	return nil
}

func (t *MemTable) UnbindSlots(deltas []types.ExecutorSlot) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, d := range deltas {
		if _, ok := t.entries[d.ExecutorID]; !ok {
			return fmt.Errorf("%w: %s", ErrExecutorNotFound, d.ExecutorID)
		}
	}
	for _, d := range deltas {
		e := t.entries[d.ExecutorID]
		e.slots += d.Slots
		if e.slots > e.spec.TaskSlots {
			e.slots = e.spec.TaskSlots
		}
	}
	return nil
}
