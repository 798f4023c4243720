package graph_test

import (
	"testing"

	"github.com/cuemby/distsched/pkg/graph"
	"github.com/cuemby/distsched/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStage_BindRejectsDoubleBind(t *testing.T) {
	s := graph.NewStage(0, 1, 3)
	assert.ElementsMatch(t, []int{0, 1, 2}, s.EmptyPartitions())

	ok := s.Bind(1, types.TaskInfo{ExecutorID: "e1", TaskID: s.NextTaskID()})
	require.True(t, ok)
	assert.ElementsMatch(t, []int{0, 2}, s.EmptyPartitions())

	ok = s.Bind(1, types.TaskInfo{ExecutorID: "e2", TaskID: s.NextTaskID()})
	assert.False(t, ok)
}

func TestStage_UnbindReopensPartition(t *testing.T) {
	s := graph.NewStage(0, 1, 2)
	s.Bind(0, types.TaskInfo{ExecutorID: "e1", TaskID: 1})
	s.Unbind(0)
	assert.Contains(t, s.EmptyPartitions(), 0)

	_, ok := s.TaskInfo(0)
	assert.False(t, ok)
}

func TestStage_NextTaskIDIsMonotonic(t *testing.T) {
	s := graph.NewStage(0, 1, 1)
	a := s.NextTaskID()
	b := s.NextTaskID()
	c := s.NextTaskID()
	assert.Less(t, a, b)
	assert.Less(t, b, c)
}

func TestStage_RecordFailureIncrements(t *testing.T) {
	s := graph.NewStage(0, 1, 1)
	assert.Equal(t, 1, s.RecordFailure(0))
	assert.Equal(t, 2, s.RecordFailure(0))
}

func TestJob_RunningStagesOrderedAndFiltered(t *testing.T) {
	j := graph.NewJob("job-1", "session-1")
	j.AddStage(graph.NewStage(2, 0, 1))
	j.AddStage(graph.NewStage(0, 0, 1))
	j.AddStage(graph.NewStage(1, 0, 1))

	stages := j.RunningStages(nil)
	require.Len(t, stages, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{stages[0].ID, stages[1].ID, stages[2].ID})

	filtered := j.RunningStages(map[int]bool{1: true})
	require.Len(t, filtered, 2)
	assert.Equal(t, []int{0, 2}, []int{filtered[0].ID, filtered[1].ID})
}

func TestStageBlacklist_ScopedPerJob(t *testing.T) {
	bl := graph.NewStageBlacklist()
	bl.Add("job-1", 3)

	assert.True(t, bl.For("job-1")[3])
	assert.False(t, bl.For("job-2")[3])
	assert.Nil(t, bl.For("job-3"))
}
