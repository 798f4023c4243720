package ring_test

import (
	"testing"

	"github.com/cuemby/distsched/pkg/ring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNode struct {
	name  string
	valid bool
}

func (n *fakeNode) Name() string { return n.name }
func (n *fakeNode) Valid() bool  { return n.valid }

func TestRing_EmptyRingReturnsNoMatch(t *testing.T) {
	r := ring.New(nil)
	node, ok := r.GetWithTolerance([]byte("key"), 0)
	assert.False(t, ok)
	assert.Nil(t, node)
}

func TestRing_ZeroReplicasIsAbsent(t *testing.T) {
	n1 := &fakeNode{name: "e1", valid: true}
	r := ring.New([]ring.WeightedNode{{Node: n1, NumReplicas: 0}})
	_, ok := r.GetWithTolerance([]byte("anything"), 5)
	assert.False(t, ok)
}

func TestRing_SingleNodeAlwaysWins(t *testing.T) {
	n1 := &fakeNode{name: "e1", valid: true}
	r := ring.New([]ring.WeightedNode{{Node: n1, NumReplicas: 31}})

	for _, key := range []string{"a", "b", "c", "s3://bucket/part-0001.parquet"} {
		got, ok := r.GetWithTolerance([]byte(key), 0)
		require.True(t, ok)
		assert.Equal(t, "e1", got.Name())
	}
}

func TestRing_IsDeterministic(t *testing.T) {
	nodes := []ring.WeightedNode{
		{Node: &fakeNode{name: "e1", valid: true}, NumReplicas: 1},
		{Node: &fakeNode{name: "e2", valid: true}, NumReplicas: 3},
		{Node: &fakeNode{name: "e3", valid: true}, NumReplicas: 5},
	}
	r1 := ring.New(nodes)
	r2 := ring.New(nodes)

	for _, key := range []string{"part-1", "part-2", "part-3", "part-4"} {
		got1, ok1 := r1.GetWithTolerance([]byte(key), 0)
		got2, ok2 := r2.GetWithTolerance([]byte(key), 0)
		require.Equal(t, ok1, ok2)
		if ok1 {
			assert.Equal(t, got1.Name(), got2.Name())
		}
	}
}

func TestRing_ToleranceFallsBackWhenPrimaryInvalid(t *testing.T) {
	e1 := &fakeNode{name: "e1", valid: false}
	e2 := &fakeNode{name: "e2", valid: true}
	nodes := []ring.WeightedNode{
		{Node: e1, NumReplicas: 31},
		{Node: e2, NumReplicas: 31},
	}
	r := ring.New(nodes)

	got, ok := r.GetWithTolerance([]byte("s3://bucket/part-0001.parquet"), 1)
	require.True(t, ok)
	assert.Equal(t, "e2", got.Name())
}

func TestRing_ZeroToleranceDoesNotFallBack(t *testing.T) {
	e1 := &fakeNode{name: "e1", valid: false}
	e2 := &fakeNode{name: "e2", valid: true}
	nodes := []ring.WeightedNode{
		{Node: e1, NumReplicas: 31},
		{Node: e2, NumReplicas: 31},
	}
	r := ring.New(nodes)

	// With both nodes present but e1 invalid and tolerance 0, a key whose
	// primary point lands on e1 must miss rather than fall through to e2.
	missed := false
	for _, key := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		if _, ok := r.GetWithTolerance([]byte(key), 0); !ok {
			missed = true
			break
		}
	}
	assert.True(t, missed, "expected at least one key to miss at zero tolerance")
}

func TestRing_AllNodesInvalidMisses(t *testing.T) {
	nodes := []ring.WeightedNode{
		{Node: &fakeNode{name: "e1", valid: false}, NumReplicas: 10},
		{Node: &fakeNode{name: "e2", valid: false}, NumReplicas: 10},
	}
	r := ring.New(nodes)
	_, ok := r.GetWithTolerance([]byte("key"), 1)
	assert.False(t, ok)
}
