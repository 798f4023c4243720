package inventory_test

import (
	"testing"

	"github.com/cuemby/distsched/pkg/inventory"
	"github.com/cuemby/distsched/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistered(t *testing.T) *inventory.MemTable {
	t.Helper()
	tbl := inventory.NewMemTable()
	require.NoError(t, tbl.RegisterExecutor(
		types.ExecutorMetadata{ID: "e1", Host: "127.0.0.1", Port: 7001},
		types.ExecutorSpecification{TaskSlots: 4},
	))
	require.NoError(t, tbl.RegisterExecutor(
		types.ExecutorMetadata{ID: "e2", Host: "127.0.0.1", Port: 7002},
		types.ExecutorSpecification{TaskSlots: 8},
	))
	return tbl
}

func TestMemTable_SnapshotAllAndFiltered(t *testing.T) {
	tbl := newRegistered(t)

	all := tbl.Snapshot(nil)
	require.Len(t, all, 2)
	assert.Equal(t, "e1", all[0].ExecutorID)
	assert.Equal(t, uint32(4), all[0].Slots)

	filtered := tbl.Snapshot([]string{"e2"})
	require.Len(t, filtered, 1)
	assert.Equal(t, "e2", filtered[0].ExecutorID)
}

func TestMemTable_BindSlotsIsAllOrNothing(t *testing.T) {
	tbl := newRegistered(t)

	err := tbl.BindSlots([]types.ExecutorSlot{
		{ExecutorID: "e1", Slots: 2},
		{ExecutorID: "e2", Slots: 100}, // exceeds e2's capacity
	})
	require.ErrorIs(t, err, inventory.ErrInsufficientSlots)

	// e1's delta must not have been applied despite e2's failure.
	snap := tbl.Snapshot([]string{"e1"})
	require.Len(t, snap, 1)
	assert.Equal(t, uint32(4), snap[0].Slots)
}

func TestMemTable_BindThenUnbindRoundTrips(t *testing.T) {
	tbl := newRegistered(t)

	require.NoError(t, tbl.BindSlots([]types.ExecutorSlot{{ExecutorID: "e1", Slots: 3}}))
	snap := tbl.Snapshot([]string{"e1"})
	assert.Equal(t, uint32(1), snap[0].Slots)

	require.NoError(t, tbl.UnbindSlots([]types.ExecutorSlot{{ExecutorID: "e1", Slots: 3}}))
	snap = tbl.Snapshot([]string{"e1"})
	assert.Equal(t, uint32(4), snap[0].Slots)
}

func TestMemTable_UnbindSlotsCapsAtSpecification(t *testing.T) {
	tbl := newRegistered(t)

	require.NoError(t, tbl.UnbindSlots([]types.ExecutorSlot{{ExecutorID: "e1", Slots: 10}}))
	snap := tbl.Snapshot([]string{"e1"})
	assert.Equal(t, uint32(4), snap[0].Slots)
}

func TestMemTable_HeartbeatLifecycle(t *testing.T) {
	tbl := newRegistered(t)

	_, ok := tbl.GetExecutorHeartbeat("e1")
	assert.False(t, ok)

	require.NoError(t, tbl.SaveExecutorHeartbeat(types.ExecutorHeartbeat{ExecutorID: "e1", State: "ready"}))
	hb, ok := tbl.GetExecutorHeartbeat("e1")
	require.True(t, ok)
	assert.Equal(t, "ready", hb.State)
	assert.False(t, hb.Timestamp.IsZero())

	all := tbl.ExecutorHeartbeats()
	assert.Len(t, all, 1)
}

func TestMemTable_RemoveExecutorDropsItFromSnapshot(t *testing.T) {
	tbl := newRegistered(t)
	require.NoError(t, tbl.RemoveExecutor("e1"))

	all := tbl.Snapshot(nil)
	require.Len(t, all, 1)
	assert.Equal(t, "e2", all[0].ExecutorID)
}

func TestMemTable_UnknownExecutorErrors(t *testing.T) {
	tbl := newRegistered(t)

	_, err := tbl.GetExecutorMetadata("ghost")
	assert.ErrorIs(t, err, inventory.ErrExecutorNotFound)

	err = tbl.BindSlots([]types.ExecutorSlot{{ExecutorID: "ghost", Slots: 1}})
	assert.ErrorIs(t, err, inventory.ErrExecutorNotFound)
}
