package binding_test

import (
	"fmt"
	"testing"

	"github.com/cuemby/distsched/pkg/binding"
	"github.com/cuemby/distsched/pkg/graph"
	"github.com/cuemby/distsched/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jobWithDemand returns a single running job with one stage carrying n
// empty partitions and no scan-file locality information, the fixture
// shape used by the bias and round-robin scenarios.
func jobWithDemand(n int) binding.Jobs {
	job := graph.NewJob("job-1", "session-1")
	stage := graph.NewStage(0, 0, n)
	job.AddStage(stage)
	return binding.Jobs{job.ID: job}
}

func counts(result binding.Result) map[string]int {
	c := make(map[string]int)
	for _, bt := range result.Bound {
		c[bt.ExecutorID]++
	}
	return c
}

func TestBias_PacksFullestExecutorFirst(t *testing.T) {
	slots := []types.AvailableTaskSlots{
		{ExecutorID: "e1", Slots: 3},
		{ExecutorID: "e2", Slots: 5},
		{ExecutorID: "e3", Slots: 7},
	}
	jobs := jobWithDemand(9)

	result := binding.Bias(slots, jobs, nil)
	require.Len(t, result.Bound, 9)

	got := counts(result)
	assert.Equal(t, 7, got["e3"])
	assert.Equal(t, 2, got["e2"])
	assert.Equal(t, 0, got["e1"])
	assert.Empty(t, result.Blacklist)
}

func TestBias_StopsWhenCapacityExhausted(t *testing.T) {
	slots := []types.AvailableTaskSlots{
		{ExecutorID: "e1", Slots: 1},
		{ExecutorID: "e2", Slots: 1},
	}
	jobs := jobWithDemand(5)

	result := binding.Bias(slots, jobs, nil)
	assert.Len(t, result.Bound, 2)
}

func TestRoundRobin_DistributesEvenlyAcrossExecutors(t *testing.T) {
	slots := []types.AvailableTaskSlots{
		{ExecutorID: "e1", Slots: 3},
		{ExecutorID: "e2", Slots: 5},
		{ExecutorID: "e3", Slots: 7},
	}
	jobs := jobWithDemand(9)

	result := binding.RoundRobin(slots, jobs, nil)
	require.Len(t, result.Bound, 9)

	got := counts(result)
	assert.Equal(t, 3, got["e1"])
	assert.Equal(t, 3, got["e2"])
	assert.Equal(t, 3, got["e3"])
}

func TestRoundRobin_TerminatesWhenTotalSlotsReachZero(t *testing.T) {
	slots := []types.AvailableTaskSlots{
		{ExecutorID: "e1", Slots: 2},
		{ExecutorID: "e2", Slots: 2},
	}
	jobs := jobWithDemand(10)

	result := binding.RoundRobin(slots, jobs, nil)
	assert.Len(t, result.Bound, 4)
}

func TestBias_BlacklistExcludesStage(t *testing.T) {
	slots := []types.AvailableTaskSlots{{ExecutorID: "e1", Slots: 5}}

	job := graph.NewJob("job-1", "session-1")
	job.AddStage(graph.NewStage(0, 0, 2))
	job.AddStage(graph.NewStage(1, 0, 2))
	jobs := binding.Jobs{job.ID: job}

	bl := binding.BuildBlacklist([]binding.StageRef{{JobID: "job-1", StageID: 0}})
	result := binding.Bias(slots, jobs, bl)

	for _, bt := range result.Bound {
		assert.NotEqual(t, 0, bt.Task.Partition.StageID)
	}
	assert.Len(t, result.Bound, 2)
}

// scanFilesFor builds a single-scan fixture: one scan containing n
// partitions, each with its own single candidate file.
func scanFilesFor(n int, locations ...string) [][][]types.PartitionedFile {
	partitions := make([][]types.PartitionedFile, n)
	for i := 0; i < n; i++ {
		if i < len(locations) {
			partitions[i] = []types.PartitionedFile{{Location: locations[i]}}
		}
	}
	return [][][]types.PartitionedFile{partitions}
}

func TestConsistentHash_TotalBoundNeverExceedsCapacity(t *testing.T) {
	nodes := []*binding.TopologyNode{
		{ExecutorID: "e1", Slots: 1},
		{ExecutorID: "e2", Slots: 3},
		{ExecutorID: "e3", Slots: 5},
	}

	locations := make([]string, 20)
	for i := range locations {
		locations[i] = fmt.Sprintf("s3://bucket/part-%04d.parquet", i)
	}

	job := graph.NewJob("job-1", "session-1")
	stage := graph.NewStage(0, 0, len(locations))
	stage.ScanFiles = scanFilesFor(len(locations), locations...)
	job.AddStage(stage)
	jobs := binding.Jobs{job.ID: job}

	var capacity uint32
	for _, n := range nodes {
		capacity += n.Slots
	}

	result := binding.ConsistentHash(nodes, 31, 1, jobs, nil)
	assert.LessOrEqual(t, len(result.Bound), int(capacity))
	assert.LessOrEqual(t, len(result.Bound), len(locations))

	for _, n := range nodes {
		assert.GreaterOrEqual(t, n.Slots, uint32(0))
	}
}

func TestConsistentHash_ZeroToleranceHitsAreDataCache(t *testing.T) {
	nodes := []*binding.TopologyNode{
		{ExecutorID: "e1", Slots: 10},
		{ExecutorID: "e2", Slots: 10},
		{ExecutorID: "e3", Slots: 10},
	}

	job := graph.NewJob("job-1", "session-1")
	stage := graph.NewStage(0, 0, 3)
	stage.ScanFiles = scanFilesFor(3, "a", "b", "c")
	job.AddStage(stage)
	jobs := binding.Jobs{job.ID: job}

	result := binding.ConsistentHash(nodes, 31, 2, jobs, nil)
	require.Len(t, result.Bound, 3)
	for _, bt := range result.Bound {
		assert.True(t, bt.Task.DataCache, "ample capacity means every partition should hit at tolerance 0")
	}
}

func TestConsistentHash_SkipsStagesWithMoreThanOneScan(t *testing.T) {
	nodes := []*binding.TopologyNode{{ExecutorID: "e1", Slots: 10}}

	job := graph.NewJob("job-1", "session-1")
	stage := graph.NewStage(0, 0, 1)
	stage.ScanFiles = [][][]types.PartitionedFile{
		{{{Location: "a"}}}, // scan 0
		{{{Location: "b"}}}, // scan 1: more than one scan, ambiguous, must be skipped
	}
	job.AddStage(stage)
	jobs := binding.Jobs{job.ID: job}

	result := binding.ConsistentHash(nodes, 31, 0, jobs, nil)
	assert.Empty(t, result.Bound)
}

func TestConsistentHash_PartitionWithMultipleFilesHashesOnTheFirst(t *testing.T) {
	nodes := []*binding.TopologyNode{{ExecutorID: "e1", Slots: 10}}

	job := graph.NewJob("job-1", "session-1")
	stage := graph.NewStage(0, 0, 2)
	stage.ScanFiles = [][][]types.PartitionedFile{
		{
			{{Location: "a"}, {Location: "b"}}, // partition 0 has 2 candidate files: hash against "a"
			{{Location: "c"}},
		},
	}
	job.AddStage(stage)
	jobs := binding.Jobs{job.ID: job}

	result := binding.ConsistentHash(nodes, 31, 0, jobs, nil)
	require.Len(t, result.Bound, 2)
}

func TestConsistentHash_BlacklistsStageThatBindsNothing(t *testing.T) {
	nodes := []*binding.TopologyNode{{ExecutorID: "e1", Slots: 0}}

	job := graph.NewJob("job-1", "session-1")
	stage := graph.NewStage(0, 0, 1)
	stage.ScanFiles = scanFilesFor(1, "a")
	job.AddStage(stage)
	jobs := binding.Jobs{job.ID: job}

	result := binding.ConsistentHash(nodes, 31, 1, jobs, nil)
	assert.Empty(t, result.Bound)
	require.Len(t, result.Blacklist, 1)
	assert.Equal(t, binding.StageRef{JobID: "job-1", StageID: 0}, result.Blacklist[0])
}

func TestConsistentHash_NonRunningJobsAreIgnored(t *testing.T) {
	nodes := []*binding.TopologyNode{{ExecutorID: "e1", Slots: 10}}

	job := graph.NewJob("job-1", "session-1")
	job.Status = types.JobStatusSucceeded
	stage := graph.NewStage(0, 0, 1)
	stage.ScanFiles = scanFilesFor(1, "a")
	job.AddStage(stage)
	jobs := binding.Jobs{job.ID: job}

	result := binding.ConsistentHash(nodes, 31, 0, jobs, nil)
	assert.Empty(t, result.Bound)
}
