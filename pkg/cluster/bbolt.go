package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/cuemby/distsched/pkg/binding"
	"github.com/cuemby/distsched/pkg/inventory"
	"github.com/cuemby/distsched/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketExecutors  = []byte("executors")
	bucketMetadata   = []byte("metadata")
	bucketHeartbeats = []byte("heartbeats")
	bucketSlots      = []byte("slots")
)

// BboltState is the embedded-KV ClusterState backend (spec's "kv-B"):
// single-manager durability without a Raft cluster. An in-memory
// inventory.MemTable serves every read and the binding round itself; each
// mutation is mirrored into bbolt within the same call before it returns,
// so a restart replays the bucket contents back into the table.
type BboltState struct {
	mu    sync.Mutex
	db    *bolt.DB
	table *inventory.MemTable
}

// NewBboltState opens (or creates) the embedded database under dataDir
// and replays any persisted executors back into the in-memory table.
func NewBboltState(dataDir string) (*BboltState, error) {
	db, err := bolt.Open(filepath.Join(dataDir, "distsched.db"), 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketExecutors, bucketMetadata, bucketHeartbeats, bucketSlots} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &BboltState{db: db, table: inventory.NewMemTable()}
	if err := s.replay(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *BboltState) replay() error {
	return s.db.View(func(tx *bolt.Tx) error {
		specs := make(map[string]types.ExecutorSpecification)
		if err := tx.Bucket(bucketExecutors).ForEach(func(k, v []byte) error {
			var spec types.ExecutorSpecification
			if err := json.Unmarshal(v, &spec); err != nil {
				return err
			}
			specs[string(k)] = spec
			return nil
		}); err != nil {
			return err
		}

		metas := make(map[string]types.ExecutorMetadata)
		if err := tx.Bucket(bucketMetadata).ForEach(func(k, v []byte) error {
			var meta types.ExecutorMetadata
			if err := json.Unmarshal(v, &meta); err != nil {
				return err
			}
			metas[string(k)] = meta
			return nil
		}); err != nil {
			return err
		}

		for id, spec := range specs {
			if err := s.table.RegisterExecutor(metas[id], spec); err != nil {
				return err
			}
		}

		free := make(map[string]uint32)
		if err := tx.Bucket(bucketSlots).ForEach(func(k, v []byte) error {
			var n uint32
			if err := json.Unmarshal(v, &n); err != nil {
				return err
			}
			free[string(k)] = n
			return nil
		}); err != nil {
			return err
		}
		for id, spec := range specs {
			if consumed := spec.TaskSlots - free[id]; consumed > 0 {
				if err := s.table.BindSlots([]types.ExecutorSlot{{ExecutorID: id, Slots: consumed}}); err != nil {
					return err
				}
			}
		}

		return tx.Bucket(bucketHeartbeats).ForEach(func(k, v []byte) error {
			var hb types.ExecutorHeartbeat
			if err := json.Unmarshal(v, &hb); err != nil {
				return err
			}
			return s.table.SaveExecutorHeartbeat(hb)
		})
	})
}

func (s *BboltState) putJSON(bucket []byte, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (s *BboltState) RegisterExecutor(_ context.Context, meta types.ExecutorMetadata, spec types.ExecutorSpecification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.table.RegisterExecutor(meta, spec); err != nil {
		return err
	}
	if err := s.putJSON(bucketExecutors, meta.ID, spec); err != nil {
		return err
	}
	if err := s.putJSON(bucketMetadata, meta.ID, meta); err != nil {
		return err
	}
	return s.putJSON(bucketSlots, meta.ID, spec.TaskSlots)
}

func (s *BboltState) SaveExecutorMetadata(_ context.Context, meta types.ExecutorMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.table.SaveExecutorMetadata(meta); err != nil {
		return err
	}
	return s.putJSON(bucketMetadata, meta.ID, meta)
}

func (s *BboltState) GetExecutorMetadata(_ context.Context, executorID string) (types.ExecutorMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.GetExecutorMetadata(executorID)
}

func (s *BboltState) RemoveExecutor(_ context.Context, executorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.table.RemoveExecutor(executorID); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketExecutors, bucketMetadata, bucketHeartbeats, bucketSlots} {
			if err := tx.Bucket(b).Delete([]byte(executorID)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BboltState) SaveExecutorHeartbeat(_ context.Context, hb types.ExecutorHeartbeat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.table.SaveExecutorHeartbeat(hb); err != nil {
		return err
	}
	return s.putJSON(bucketHeartbeats, hb.ExecutorID, hb)
}

func (s *BboltState) GetExecutorHeartbeat(_ context.Context, executorID string) (types.ExecutorHeartbeat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.GetExecutorHeartbeat(executorID)
}

func (s *BboltState) ExecutorHeartbeats(_ context.Context) map[string]types.ExecutorHeartbeat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.ExecutorHeartbeats()
}

func (s *BboltState) BindSchedulableTasks(_ context.Context, policy types.TaskDistributionPolicy, jobs binding.Jobs, executorIDs []string) (binding.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, deltas := runPolicy(s.table, policy, jobs, executorIDs)
	if len(deltas) == 0 {
		logRound(policy, result)
		return result, nil
	}
	if err := s.table.BindSlots(deltas); err != nil {
		return binding.Result{}, err
	}
	if err := s.persistSlots(deltas); err != nil {
		return binding.Result{}, err
	}
	logRound(policy, result)
	return result, nil
}

func (s *BboltState) UnbindTasks(_ context.Context, deltas []types.ExecutorSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.table.UnbindSlots(deltas); err != nil {
		return err
	}
	return s.persistSlots(deltas)
}

// persistSlots writes back the current free-slot count for every
// executor named in deltas, after the in-memory table has already been
// updated.
func (s *BboltState) persistSlots(deltas []types.ExecutorSlot) error {
	ids := make([]string, len(deltas))
	for i, d := range deltas {
		ids[i] = d.ExecutorID
	}
	for _, snap := range s.table.Snapshot(ids) {
		if err := s.putJSON(bucketSlots, snap.ExecutorID, snap.Slots); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database file.
func (s *BboltState) Close() error {
	return s.db.Close()
}
