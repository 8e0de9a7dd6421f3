// Package ring implements the consistent-hash ring that maps keys to the
// storage node currently responsible for them.
//
// # Overview
//
// A Ring holds a set of live node IDs and, for each one, V virtual-node
// positions scattered across a 128-bit position space. Looking up a key
// walks clockwise from the key's own position to the nearest virtual node
// and returns the physical node it belongs to. Adding or removing a node
// touches only that node's V positions, so membership churn remaps a small
// fraction of the key space instead of the whole thing.
//
// # Position space
//
// Both keys and virtual nodes are hashed into the same 128-bit space with
// MD5, so a key and a virtual-node identifier are directly comparable. The
// virtual-node identifier for node N, replica i is the literal string
// "N:i" (decimal, unpadded) — this exact format is part of the contract:
// two independent implementations of this ring must agree on it, or they
// will route the same key to different nodes.
//
// # Concurrency
//
// Ring is single-writer, many-reader. Add and Remove take an exclusive
// lock and rebuild the sorted position slice; Owner and Owners take a
// shared lock and never block each other.
package ring

import (
	"crypto/md5" //nolint:gosec // used for uniform distribution, not security
	"fmt"
	"sort"
	"sync"

	"golang.org/x/exp/slices"
)

// DefaultVirtualNodes is the number of ring positions assigned to each
// node in production use.
const DefaultVirtualNodes = 150

// AdminVirtualNodes is the virtual-node count a ring is reset to by an
// administrative clear operation (fewer positions, since clearing is a
// test/ops affordance, not a capacity decision).
const AdminVirtualNodes = 100

// Position is a point on the ring: the full 16-byte MD5 digest of either a
// key or a "nodeID:replica" virtual-node identifier.
type Position [md5.Size]byte

// Less reports whether p sorts before other, treating both as big-endian
// 128-bit unsigned integers.
func (p Position) Less(other Position) bool {
	for i := range p {
		if p[i] != other[i] {
			return p[i] < other[i]
		}
	}
	return false
}

func hashPosition(s string) Position {
	return Position(md5.Sum([]byte(s))) //nolint:gosec
}

// Ring is a consistent-hash ring over a set of live node IDs.
type Ring struct {
	mu        sync.RWMutex
	positions map[Position]string
	sorted    []Position
	nodes     map[string]struct{}
	vnodes    int
}

// New creates an empty ring with the given number of virtual nodes per
// physical node. A non-positive v falls back to DefaultVirtualNodes.
func New(v int) *Ring {
	if v <= 0 {
		v = DefaultVirtualNodes
	}
	return &Ring{
		positions: make(map[Position]string),
		nodes:     make(map[string]struct{}),
		vnodes:    v,
	}
}

func virtualNodeKey(nodeID string, replica int) string {
	return fmt.Sprintf("%s:%d", nodeID, replica)
}

// Add inserts nodeID's virtual nodes into the ring. Idempotent: if nodeID
// is already live, Add is a no-op.
func (r *Ring) Add(nodeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.nodes[nodeID]; ok {
		return
	}
	r.nodes[nodeID] = struct{}{}

	for i := 0; i < r.vnodes; i++ {
		pos := hashPosition(virtualNodeKey(nodeID, i))
		// Last writer wins on collision; collisions are vanishingly rare
		// at this position-space size and are not worth detecting.
		r.positions[pos] = nodeID
	}
	r.rebuild()
}

// Remove drops nodeID's virtual nodes from the ring. Idempotent.
func (r *Ring) Remove(nodeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.nodes[nodeID]; !ok {
		return
	}
	delete(r.nodes, nodeID)

	for i := 0; i < r.vnodes; i++ {
		pos := hashPosition(virtualNodeKey(nodeID, i))
		if r.positions[pos] == nodeID {
			delete(r.positions, pos)
		}
	}
	r.rebuild()
}

// rebuild recomputes the sorted position slice. Caller must hold the write lock.
func (r *Ring) rebuild() {
	sorted := make([]Position, 0, len(r.positions))
	for pos := range r.positions {
		sorted = append(sorted, pos)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })
	r.sorted = sorted
}

// search returns the index of the first position >= pos, wrapping to 0 if
// pos is greater than every position on the ring. Caller must hold a lock.
func (r *Ring) search(pos Position) int {
	idx := sort.Search(len(r.sorted), func(i int) bool {
		return !r.sorted[i].Less(pos)
	})
	if idx == len(r.sorted) {
		idx = 0
	}
	return idx
}

// Owner returns the node responsible for key, and false if the ring holds
// no live nodes.
func (r *Ring) Owner(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.sorted) == 0 {
		return "", false
	}
	pos := hashPosition(key)
	idx := r.search(pos)
	return r.positions[r.sorted[idx]], true
}

// Owners returns up to count distinct node IDs holding key's position and
// the next positions clockwise, in walk order. The first element, if any,
// equals the result of Owner. Intended for future replication; current
// callers use only the first result.
func (r *Ring) Owners(key string, count int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.sorted) == 0 || count <= 0 {
		return nil
	}
	pos := hashPosition(key)
	start := r.search(pos)

	seen := make(map[string]struct{}, count)
	owners := make([]string, 0, count)
	for i := 0; i < len(r.sorted) && len(owners) < count; i++ {
		nodeID := r.positions[r.sorted[(start+i)%len(r.sorted)]]
		if _, ok := seen[nodeID]; ok {
			continue
		}
		seen[nodeID] = struct{}{}
		owners = append(owners, nodeID)
	}
	return owners
}

// Nodes returns the sorted list of distinct live node IDs.
func (r *Ring) Nodes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	nodes := make([]string, 0, len(r.nodes))
	for id := range r.nodes {
		nodes = append(nodes, id)
	}
	slices.Sort(nodes)
	return nodes
}

// Size returns the number of distinct live nodes.
func (r *Ring) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// Positions returns the number of occupied ring positions. At any
// quiescent moment this equals V * Size(), modulo virtual-node collisions.
func (r *Ring) Positions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.positions)
}

// VirtualNodes returns the configured virtual-node count per physical node.
func (r *Ring) VirtualNodes() int {
	return r.vnodes
}
