package ring

import (
	"fmt"
	"testing"
)

func TestNewDefaultsVirtualNodes(t *testing.T) {
	tests := []struct {
		name string
		v    int
		want int
	}{
		{name: "positive value kept", v: 20, want: 20},
		{name: "zero falls back to default", v: 0, want: DefaultVirtualNodes},
		{name: "negative falls back to default", v: -5, want: DefaultVirtualNodes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.v)
			if got := r.VirtualNodes(); got != tt.want {
				t.Errorf("VirtualNodes() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOwnerEmptyRing(t *testing.T) {
	r := New(10)
	if _, ok := r.Owner("any-key"); ok {
		t.Error("expected Owner to report false on an empty ring")
	}
}

func TestAddIsIdempotent(t *testing.T) {
	r := New(10)
	r.Add("node-a")
	before := r.Positions()

	r.Add("node-a")
	if got := r.Positions(); got != before {
		t.Errorf("Positions() after repeat Add = %d, want %d", got, before)
	}
	if got := r.Size(); got != 1 {
		t.Errorf("Size() = %d, want 1", got)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	r := New(10)
	r.Add("node-a")
	r.Remove("node-a")
	before := r.Positions()

	r.Remove("node-a")
	if got := r.Positions(); got != before {
		t.Errorf("Positions() after repeat Remove = %d, want %d", got, before)
	}
	if got := r.Size(); got != 0 {
		t.Errorf("Size() = %d, want 0", got)
	}
}

func TestAddThenRemoveRestoresInitialState(t *testing.T) {
	r := New(10)
	r.Add("node-a")
	r.Remove("node-a")

	if got := r.Positions(); got != 0 {
		t.Errorf("Positions() = %d, want 0", got)
	}
	if got := r.Size(); got != 0 {
		t.Errorf("Size() = %d, want 0", got)
	}
	if _, ok := r.Owner("key"); ok {
		t.Error("expected empty ring after add+remove")
	}
}

func TestRingSizeInvariant(t *testing.T) {
	const v = 30
	r := New(v)
	nodes := []string{"node-a", "node-b", "node-c", "node-d"}
	for _, n := range nodes {
		r.Add(n)
	}

	if got, want := r.Positions(), v*len(nodes); got != want {
		t.Errorf("Positions() = %d, want %d (V*live nodes)", got, want)
	}
}

func TestOwnerDeterministic(t *testing.T) {
	r := New(50)
	for _, n := range []string{"node-a", "node-b", "node-c"} {
		r.Add(n)
	}

	keys := []string{"user:1001", "user:1002", "product:2001", "order:3001", "cache:abc", "session:xyz"}
	for _, key := range keys {
		first, ok := r.Owner(key)
		if !ok {
			t.Fatalf("Owner(%q) reported empty ring", key)
		}
		for i := 0; i < 10; i++ {
			got, ok := r.Owner(key)
			if !ok || got != first {
				t.Errorf("Owner(%q) call %d = %q, want %q", key, i, got, first)
			}
		}
	}
}

func TestOwnershipCoversLiveSet(t *testing.T) {
	r := New(50)
	live := map[string]struct{}{"node-a": {}, "node-b": {}, "node-c": {}}
	for n := range live {
		r.Add(n)
	}

	for i := 0; i < 1000; i++ {
		key := fmt.Sprintf("key_%d", i)
		owner, ok := r.Owner(key)
		if !ok {
			t.Fatalf("Owner(%q) reported empty ring", key)
		}
		if _, isLive := live[owner]; !isLive {
			t.Errorf("Owner(%q) = %q, not in live set", key, owner)
		}
	}
}

func TestBalanceAcrossNodes(t *testing.T) {
	r := New(50)
	nodes := []string{"node-a", "node-b", "node-c"}
	for _, n := range nodes {
		r.Add(n)
	}

	counts := make(map[string]int, len(nodes))
	const sampleSize = 1000
	for i := 0; i < sampleSize; i++ {
		key := fmt.Sprintf("balance-key-%d", i)
		owner, _ := r.Owner(key)
		counts[owner]++
	}

	for _, n := range nodes {
		if counts[n] == 0 {
			t.Errorf("node %q received zero keys out of %d", n, sampleSize)
		}
		if frac := float64(counts[n]) / float64(sampleSize); frac > 0.60 {
			t.Errorf("node %q received %.2f%% of keys, want <= 60%%", n, frac*100)
		}
	}
}

func TestLowRemappingOnInsert(t *testing.T) {
	r := New(100)
	nodes := []string{"node-a", "node-b", "node-c"}
	for _, n := range nodes {
		r.Add(n)
	}

	const sampleSize = 1000
	keys := make([]string, sampleSize)
	before := make([]string, sampleSize)
	for i := range keys {
		keys[i] = fmt.Sprintf("remap-key-%d", i)
		before[i], _ = r.Owner(keys[i])
	}

	r.Add("node-d")

	moved := 0
	newNodeUsed := false
	for i, key := range keys {
		after, _ := r.Owner(key)
		if after != before[i] {
			moved++
		}
		if after == "node-d" {
			newNodeUsed = true
		}
	}

	if frac := float64(moved) / float64(sampleSize); frac > 0.50 {
		t.Errorf("inserting a 4th node remapped %.2f%% of keys, want <= 50%%", frac*100)
	}
	if !newNodeUsed {
		t.Error("expected the newly added node to own at least one key")
	}
}

func TestOwnersFirstElementMatchesOwner(t *testing.T) {
	r := New(50)
	for _, n := range []string{"node-a", "node-b", "node-c"} {
		r.Add(n)
	}

	owner, _ := r.Owner("user:42")
	owners := r.Owners("user:42", 3)
	if len(owners) == 0 || owners[0] != owner {
		t.Errorf("Owners()[0] = %v, want first element %q", owners, owner)
	}
}

func TestOwnersReturnsDistinctNodes(t *testing.T) {
	r := New(50)
	for _, n := range []string{"node-a", "node-b", "node-c"} {
		r.Add(n)
	}

	owners := r.Owners("user:42", 10)
	if len(owners) != 3 {
		t.Errorf("Owners() returned %d entries, want 3 (all live nodes, deduplicated)", len(owners))
	}
	seen := make(map[string]bool)
	for _, o := range owners {
		if seen[o] {
			t.Errorf("Owners() returned duplicate node %q", o)
		}
		seen[o] = true
	}
}

func TestOwnersOnEmptyRing(t *testing.T) {
	r := New(10)
	if owners := r.Owners("key", 3); owners != nil {
		t.Errorf("Owners() on empty ring = %v, want nil", owners)
	}
}

func TestVirtualNodeKeyFormat(t *testing.T) {
	// The separator and decimal formatting are part of the wire contract:
	// two independently implemented rings must derive the same positions.
	got := virtualNodeKey("node-1", 7)
	want := "node-1:7"
	if got != want {
		t.Errorf("virtualNodeKey() = %q, want %q", got, want)
	}
}
