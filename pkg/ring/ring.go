// Package ring implements the consistent-hash ring used by the
// consistent-hash binding policy to place partitions on locality-primary
// executors, with bounded fallback when the primary is saturated.
package ring

import (
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Node is a topology node the ring can place keys onto. Validity is
// recomputed on every query so a node exhausted mid-round is transparently
// skipped by later lookups against the same Ring.
type Node interface {
	Name() string
	Valid() bool
}

type point struct {
	hash       uint64
	name       string
	replicaIdx int
	node       Node
}

// Ring maps opaque byte keys onto the node whose virtual point is nearest
// clockwise, falling back to up to `tolerance` further distinct physical
// nodes when the primary is invalid.
type Ring struct {
	points []point
	// nodes indexes the caller-owned Node values by name so mutation
	// applied through a returned Node is visible on the next query.
	nodes map[string]Node
}

// WeightedNode pairs a node with the number of virtual replicas it gets on
// the ring.
type WeightedNode struct {
	Node        Node
	NumReplicas int
}

// New builds a ring from a set of nodes and their replica counts. A node
// with NumReplicas == 0 contributes no virtual points and is effectively
// absent from the ring.
func New(nodes []WeightedNode) *Ring {
	r := &Ring{
		nodes: make(map[string]Node, len(nodes)),
	}
	for _, wn := range nodes {
		name := wn.Node.Name()
		r.nodes[name] = wn.Node
		for i := 0; i < wn.NumReplicas; i++ {
			r.points = append(r.points, point{
				hash:       hashVirtualPoint(name, i),
				name:       name,
				replicaIdx: i,
				node:       wn.Node,
			})
		}
	}
	sort.Slice(r.points, func(i, j int) bool {
		a, b := r.points[i], r.points[j]
		if a.hash != b.hash {
			return a.hash < b.hash
		}
		if a.name != b.name {
			return a.name < b.name
		}
		return a.replicaIdx < b.replicaIdx
	})
	return r
}

// GetWithTolerance returns the first valid node encountered clockwise from
// key's hashed position, inspecting at most tolerance+1 distinct physical
// nodes (the primary and up to tolerance fallbacks). It returns (nil,
// false) if the ring is empty or no valid node is found within the window.
func (r *Ring) GetWithTolerance(key []byte, tolerance int) (Node, bool) {
	if len(r.points) == 0 {
		return nil, false
	}

	h := xxhash.Sum64(key)
	start := sort.Search(len(r.points), func(i int) bool {
		return r.points[i].hash >= h
	})

	seen := make(map[string]bool, tolerance+1)
	for i := 0; i < len(r.points) && len(seen) <= tolerance; i++ {
		p := r.points[(start+i)%len(r.points)]
		if seen[p.name] {
			continue
		}
		seen[p.name] = true
		if p.node.Valid() {
			return p.node, true
		}
	}
	return nil, false
}

// hashVirtualPoint hashes (name, replica_index) to derive a node's virtual
// point position on the ring, the same keying scheme as the key itself so
// both sides of GetWithTolerance live on one hash space.
func hashVirtualPoint(name string, replicaIdx int) uint64 {
	buf := make([]byte, 0, len(name)+1+20)
	buf = append(buf, name...)
	buf = append(buf, '#')
	buf = append(buf, strconv.Itoa(replicaIdx)...)
	return xxhash.Sum64(buf)
}
