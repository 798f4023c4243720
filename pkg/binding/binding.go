// Package binding implements the three task-distribution policies a
// binding round chooses between: bias, round-robin, and consistent hash
// with bounded tolerance. Each policy runs over a slot snapshot and a set
// of running jobs, decrementing the snapshot in place and filling the
// task_infos cell of every partition it binds; pkg/cluster owns taking the
// snapshot and committing the resulting slot deltas.
package binding

import (
	"sort"

	"github.com/cuemby/distsched/pkg/graph"
	"github.com/cuemby/distsched/pkg/ring"
	"github.com/cuemby/distsched/pkg/types"
)

// Jobs is the set of running jobs a binding round considers, keyed by job
// ID. Iteration order within a round is the sorted key order, so repeated
// calls over the same input are deterministic.
type Jobs map[string]*graph.Job

// sortedIDs returns the IDs of the running jobs in ascending order for
// deterministic iteration; jobs in any other status are left out.
func (js Jobs) sortedIDs() []string {
	ids := make([]string, 0, len(js))
	for id, j := range js {
		if j.Status == types.JobStatusRunning {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Result is what a binding round produces: the tasks bound this round and
// any stages that should be blacklisted for the remainder of the round
// (consistent hash only; bias and round-robin never blacklist).
type Result struct {
	Bound     []types.BoundTask
	Blacklist []StageRef
}

// StageRef names a stage within a job for blacklisting purposes.
type StageRef struct {
	JobID   string
	StageID int
}

// BuildBlacklist turns prior rounds' StageRefs into the per-job lookup
// graph.Job.RunningStages expects.
func BuildBlacklist(refs []StageRef) *graph.StageBlacklist {
	bl := graph.NewStageBlacklist()
	for _, r := range refs {
		bl.Add(r.JobID, r.StageID)
	}
	return bl
}

func describeTask(job *graph.Job, stage *graph.Stage, partition int, dataCache bool) types.TaskDescription {
	return types.TaskDescription{
		SessionID: job.SessionID,
		Partition: types.PartitionID{
			JobID:       job.ID,
			StageID:     stage.ID,
			PartitionID: partition,
		},
		StageAttemptNum: stage.Attempt,
		TaskID:          stage.NextTaskID(),
		DataCache:       dataCache,
		Plan:            stage.Plan,
	}
}

// Bias packs partitions onto the emptiest executor until it is exhausted
// before moving on to the next. slots is sorted descending in place; the
// caller owns the returned slice's lifetime. It mirrors the bias binder's
// deliberately non-resetting cursor: a single call's cursor only ever
// advances, so a second call (e.g. next round) starts back at the
// fullest-sorted slot, not where the previous call left off.
func Bias(slots []types.AvailableTaskSlots, jobs Jobs, blacklist *graph.StageBlacklist) Result {
	sortSlotsDescending(slots)

	idx := 0
	advance := func() {
		for idx < len(slots) && slots[idx].Slots == 0 {
			idx++
		}
	}
	advance()

	var result Result
	for _, jobID := range jobs.sortedIDs() {
		job := jobs[jobID]
		for _, stage := range job.RunningStages(blacklistFor(blacklist, jobID)) {
			for _, partition := range stage.EmptyPartitions() {
				if idx >= len(slots) {
					return result
				}
				bindOne(&result, job, stage, partition, slots[idx].ExecutorID, false)
				slots[idx].Slots--
				if slots[idx].Slots == 0 {
					advance()
				}
			}
		}
	}
	return result
}

// RoundRobin distributes one partition at a time across the slot list in
// rotation, wrapping back to the start whenever the cursor runs past the
// end or lands on an exhausted slot. It terminates as soon as total
// remaining capacity reaches zero, which may be before every partition is
// bound.
func RoundRobin(slots []types.AvailableTaskSlots, jobs Jobs, blacklist *graph.StageBlacklist) Result {
	sortSlotsDescending(slots)

	var total uint32
	for _, s := range slots {
		total += s.Slots
	}

	idx := 0
	var result Result
	for _, jobID := range jobs.sortedIDs() {
		job := jobs[jobID]
		for _, stage := range job.RunningStages(blacklistFor(blacklist, jobID)) {
			for _, partition := range stage.EmptyPartitions() {
				if total == 0 {
					return result
				}
				if idx >= len(slots) || slots[idx].Slots == 0 {
					idx = 0
					for slots[idx].Slots == 0 {
						idx = (idx + 1) % len(slots)
					}
				}
				bindOne(&result, job, stage, partition, slots[idx].ExecutorID, false)
				slots[idx].Slots--
				total--
				idx++
			}
		}
	}
	return result
}

func bindOne(result *Result, job *graph.Job, stage *graph.Stage, partition int, executorID string, dataCache bool) {
	desc := describeTask(job, stage, partition, dataCache)
	stage.Bind(partition, types.TaskInfo{ExecutorID: executorID, TaskID: desc.TaskID})
	result.Bound = append(result.Bound, types.BoundTask{ExecutorID: executorID, Task: desc})
}

func sortSlotsDescending(slots []types.AvailableTaskSlots) {
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Slots != slots[j].Slots {
			return slots[i].Slots > slots[j].Slots
		}
		return slots[i].ExecutorID < slots[j].ExecutorID
	})
}

func blacklistFor(bl *graph.StageBlacklist, jobID string) map[int]bool {
	if bl == nil {
		return nil
	}
	return bl.For(jobID)
}

// TopologyNode is a ring.Node backed by a live, mutable slot count: binding
// a partition onto it decrements Slots in place, which the ring observes
// on the very next lookup.
type TopologyNode struct {
	ExecutorID string
	Slots      uint32
}

func (n *TopologyNode) Name() string { return n.ExecutorID }
func (n *TopologyNode) Valid() bool  { return n.Slots > 0 }

// ConsistentHash places partitions using locality hashing: each empty
// partition's first scan file is hashed onto the ring, first at zero
// tolerance (so only an exact primary-node hit marks the task as
// data-cache eligible), then at the caller's configured tolerance for
// whatever didn't match. A stage whose two rounds together bind nothing
// is blacklisted for the remainder of the round; the whole binding aborts
// early once every node's slots are exhausted.
func ConsistentHash(nodes []*TopologyNode, numReplicas, tolerance int, jobs Jobs, blacklist *graph.StageBlacklist) Result {
	weighted := make([]ring.WeightedNode, 0, len(nodes))
	var total uint32
	for _, n := range nodes {
		weighted = append(weighted, ring.WeightedNode{Node: n, NumReplicas: numReplicas})
		total += n.Slots
	}
	r := ring.New(weighted)

	var result Result
	tolerances := []int{0, tolerance}

	for _, jobID := range jobs.sortedIDs() {
		job := jobs[jobID]
		for _, stage := range job.RunningStages(blacklistFor(blacklist, jobID)) {
			if isSkipConsistentHash(stage) {
				continue
			}
			before := len(result.Bound)
			partitionFiles := stage.ScanFiles[0]
			for _, tol := range tolerances {
				for _, partition := range stage.EmptyPartitions() {
					if total == 0 {
						return result
					}
					if partition >= len(partitionFiles) || len(partitionFiles[partition]) == 0 {
						continue
					}
					fileForHash := partitionFiles[partition][0]
					node, ok := r.GetWithTolerance([]byte(fileForHash.Location), tol)
					if !ok {
						continue
					}
					tn := node.(*TopologyNode)
					bindOne(&result, job, stage, partition, tn.ExecutorID, tol == 0)
					tn.Slots--
					total--
				}
			}
			if len(result.Bound) == before {
				result.Blacklist = append(result.Blacklist, StageRef{JobID: job.ID, StageID: stage.ID})
			}
		}
	}
	return result
}

// isSkipConsistentHash reports whether a stage's scan-file layout is
// ambiguous for locality hashing: zero scans means there is nothing to
// hash against, and more than one scan means there is no single set of
// per-partition files to pick from. A partition with more than one
// candidate file is not ambiguous at this level; the first file is always
// used for hashing.
func isSkipConsistentHash(stage *graph.Stage) bool {
	return len(stage.ScanFiles) == 0 || len(stage.ScanFiles) > 1
}
