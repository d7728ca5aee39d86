package ism

import (
	"math"
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"
	"pgregory.net/rapid"

	"auralis/internal/scene"
)

func nearestConst(az, el float64) int { return 1 }

func TestOrderZeroHasOneNode(t *testing.T) {
	tr := NewTree(0, 256, 48000, 343, 0.01)
	if tr.NodeCount() != 1 {
		t.Errorf("order 0: got %d nodes, want 1", tr.NodeCount())
	}
}

func TestOrderOneHasSevenNodes(t *testing.T) {
	tr := NewTree(1, 256, 48000, 343, 0.01)
	if tr.NodeCount() != 7 {
		t.Errorf("order 1: got %d nodes, want 7 (1 + 6)", tr.NodeCount())
	}
}

func TestOrderTwoNodeCount(t *testing.T) {
	tr := NewTree(2, 4096, 48000, 343, 0.01)
	want := 1 + 6 + 30
	if tr.NodeCount() != want {
		t.Errorf("order 2: got %d nodes, want %d", tr.NodeCount(), want)
	}
}

// TestFirstOrderMirrorAlgebra is scenario S6: six first-order images of a
// source at (1,1,1) in a (4,3,5) room land exactly on the expected mirrors.
func TestFirstOrderMirrorAlgebra(t *testing.T) {
	room := scene.Room{Width: 4, Height: 3, Length: 5}
	tr := NewTree(1, 4096, 48000, 343, 0.01)

	listener := scene.Pose{Position: rl.Vector3{X: 2, Y: 1.5, Z: 2.5}, Orientation: rl.QuaternionIdentity()}
	source := scene.Pose{Position: rl.Vector3{X: 1, Y: 1, Z: 1}, Orientation: rl.QuaternionIdentity()}
	tr.Update(room, listener, source, nearestConst)

	want := map[Reflector]rl.Vector3{
		ReflX0: {X: -1, Y: 1, Z: 1},
		ReflX1: {X: 7, Y: 1, Z: 1},
		ReflY0: {X: 1, Y: -1, Z: 1},
		ReflY1: {X: 1, Y: 5, Z: 1},
		ReflZ0: {X: 1, Y: 1, Z: -1},
		ReflZ1: {X: 1, Y: 1, Z: 9},
	}

	for i := 1; i < tr.NodeCount(); i++ {
		n := tr.Nodes[i]
		w, ok := want[n.Reflector]
		if !ok {
			t.Fatalf("node %d has unexpected reflector %v", i, n.Reflector)
		}
		if !closeVec(n.Position, w) {
			t.Errorf("reflector %v: got %v, want %v", n.Reflector, n.Position, w)
		}
	}
}

func closeVec(a, b rl.Vector3) bool {
	const eps = 1e-4
	return math.Abs(float64(a.X-b.X)) < eps && math.Abs(float64(a.Y-b.Y)) < eps && math.Abs(float64(a.Z-b.Z)) < eps
}

// TestISMDelayLaw checks that every node's own delay-line setting equals
// its per-hop (Remaining) distance divided by c times sample rate, not
// its cumulative path length. Each node's delay line only has to account
// for the leg from its parent, since render.go cascades each node's
// output through its already-delayed parent output (testable property 4).
func TestISMDelayLaw(t *testing.T) {
	const fs = 48000.0
	const c = 343.0
	room := scene.Room{Width: 4, Height: 3, Length: 5}
	tr := NewTree(1, 1 << 16, fs, c, 0.01)

	listener := scene.Pose{Position: rl.Vector3{X: 2, Y: 1.5, Z: 2.5}, Orientation: rl.QuaternionIdentity()}
	source := scene.Pose{Position: rl.Vector3{X: 1, Y: 1.5, Z: 2.5}, Orientation: rl.QuaternionIdentity()}
	tr.Update(room, listener, source, nearestConst)

	for i, n := range tr.Nodes {
		want := n.Remaining / c * fs
		max := float64(n.Delay.Capacity() - 1)
		if want > max {
			want = max
		}
		got := n.Delay.DelaySamples()
		if math.Abs(got-want) > 1e-6 {
			t.Errorf("node %d: delay samples got %v, want %v (per-hop, not cumulative)", i, got, want)
		}
	}
}

// TestISMCascadedDelayLawS2 reproduces spec.md scenario S2 end to end: the
// direct path and the X0 first-order reflection, cascaded through their
// delay lines exactly as render.go's mixBlock does (each node processes
// its parent's already-delayed output, not the raw source input), land
// their first nonzero sample at 140 and 420 respectively.
func TestISMCascadedDelayLawS2(t *testing.T) {
	const fs = 48000.0
	const c = 343.0
	room := scene.Room{Width: 4, Height: 3, Length: 5}
	tr := NewTree(1, 1 << 16, fs, c, 0.01)

	listener := scene.Pose{Position: rl.Vector3{X: 2, Y: 1.5, Z: 2.5}, Orientation: rl.QuaternionIdentity()}
	source := scene.Pose{Position: rl.Vector3{X: 1, Y: 1.5, Z: 2.5}, Orientation: rl.QuaternionIdentity()}
	tr.Update(room, listener, source, nearestConst)

	root := &tr.Nodes[0]
	if math.Abs(root.PathLength-1.0) > 1e-6 {
		t.Fatalf("root path length = %v, want 1.0", root.PathLength)
	}

	var x0 *Node
	for i := range tr.Nodes {
		if tr.Nodes[i].Reflector == ReflX0 {
			x0 = &tr.Nodes[i]
			break
		}
	}
	if x0 == nil {
		t.Fatal("no X0 node in tree")
	}
	if math.Abs(x0.PathLength-3.0) > 1e-6 {
		t.Fatalf("X0 path length = %v, want 3.0", x0.PathLength)
	}

	// render.go's mixBlock feeds X0's delay line root's already-delayed
	// output, not the raw source signal, so the two nodes' own delay
	// settings must sum, with no extra rounding along the way, to the
	// true end-to-end delay for that path, in fractional samples.
	rootDelay := root.Delay.DelaySamples()
	x0OwnDelay := x0.Delay.DelaySamples()
	cascadedTotal := rootDelay + x0OwnDelay
	wantTotal := x0.PathLength / c * fs
	if math.Abs(cascadedTotal-wantTotal) > 1e-6 {
		t.Errorf("cascaded X0 delay = %v, want %v (root %v + X0's own %v)", cascadedTotal, wantTotal, rootDelay, x0OwnDelay)
	}

	// The buggy formula (X0's own delay line set from its cumulative
	// PathLength instead of Remaining) would instead double-count the
	// root hop, landing near root+total instead of total.
	buggyTotal := rootDelay + x0.PathLength/c*fs
	if math.Abs(cascadedTotal-buggyTotal) < 1.0 {
		t.Fatalf("cascaded total %v is indistinguishable from the double-counted (buggy) total %v", cascadedTotal, buggyTotal)
	}

	// Translate both to spec.md S2's integer sample numbers: direct path
	// at ceil(1/c*fs) = 140, first reflection at ceil(3/c*fs) = 420.
	if got := int(math.Ceil(rootDelay)); got != 140 {
		t.Errorf("direct path delay rounds to sample %d, want 140", got)
	}
	if got := int(math.Ceil(cascadedTotal)); got != 420 {
		t.Errorf("X0 cascaded delay rounds to sample %d, want 420", got)
	}
}

// TestUpdateIdempotent checks the round-trip property: applying the same
// snapshot twice leaves positions, HRTF ids and path lengths unchanged.
func TestUpdateIdempotent(t *testing.T) {
	room := scene.Room{Width: 4, Height: 3, Length: 5}
	tr := NewTree(2, 1 << 16, 48000, 343, 0.01)
	listener := scene.Pose{Position: rl.Vector3{X: 2, Y: 1.5, Z: 2.5}, Orientation: rl.QuaternionIdentity()}
	source := scene.Pose{Position: rl.Vector3{X: 1, Y: 1, Z: 3}, Orientation: rl.QuaternionIdentity()}

	tr.Update(room, listener, source, nearestConst)
	first := make([]Node, len(tr.Nodes))
	copy(first, tr.Nodes)

	tr.Update(room, listener, source, nearestConst)

	for i := range tr.Nodes {
		if !closeVec(tr.Nodes[i].Position, first[i].Position) {
			t.Errorf("node %d: position changed on idempotent update: %v -> %v", i, first[i].Position, tr.Nodes[i].Position)
		}
		if tr.Nodes[i].CurrentHRTFID != first[i].CurrentHRTFID {
			t.Errorf("node %d: HRTF id changed on idempotent update", i)
		}
		if math.Abs(tr.Nodes[i].PathLength-first[i].PathLength) > 1e-9 {
			t.Errorf("node %d: path length changed on idempotent update", i)
		}
	}
}

func TestHRTFSelectionPreviousTracksOldCurrent(t *testing.T) {
	room := scene.Room{Width: 10, Height: 10, Length: 10}
	tr := NewTree(0, 4096, 48000, 343, 0.01)
	listener := scene.Pose{Position: rl.Vector3{X: 5, Y: 5, Z: 5}, Orientation: rl.QuaternionIdentity()}

	calls := 0
	seq := []int{7, 9}
	fn := func(az, el float64) int {
		id := seq[calls]
		calls++
		return id
	}

	tr.Update(room, listener, scene.Pose{Position: rl.Vector3{X: 5, Y: 5, Z: 6}, Orientation: rl.QuaternionIdentity()}, fn)
	if tr.Nodes[0].CurrentHRTFID != 7 {
		t.Fatalf("expected current id 7 after first update, got %d", tr.Nodes[0].CurrentHRTFID)
	}

	tr.Update(room, listener, scene.Pose{Position: rl.Vector3{X: 5, Y: 5, Z: 6}, Orientation: rl.QuaternionIdentity()}, fn)
	if tr.Nodes[0].PreviousHRTFID != 7 {
		t.Errorf("expected previous id to be the old current (7), got %d", tr.Nodes[0].PreviousHRTFID)
	}
	if tr.Nodes[0].CurrentHRTFID != 9 {
		t.Errorf("expected current id 9 after second update, got %d", tr.Nodes[0].CurrentHRTFID)
	}
}

// TestRemainingDistanceNeverNegative is a property test over random room/
// source/listener geometry: remaining distance is always floored at 0.
func TestRemainingDistanceNeverNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		w := rapid.Float64Range(1, 20).Draw(rt, "w")
		h := rapid.Float64Range(1, 20).Draw(rt, "h")
		l := rapid.Float64Range(1, 20).Draw(rt, "l")
		room := scene.Room{Width: float32(w), Height: float32(h), Length: float32(l)}

		lx := rapid.Float64Range(0, w).Draw(rt, "lx")
		ly := rapid.Float64Range(0, h).Draw(rt, "ly")
		lz := rapid.Float64Range(0, l).Draw(rt, "lz")
		listener := scene.Pose{Position: rl.Vector3{X: float32(lx), Y: float32(ly), Z: float32(lz)}, Orientation: rl.QuaternionIdentity()}

		sx := rapid.Float64Range(0, w).Draw(rt, "sx")
		sy := rapid.Float64Range(0, h).Draw(rt, "sy")
		sz := rapid.Float64Range(0, l).Draw(rt, "sz")
		source := scene.Pose{Position: rl.Vector3{X: float32(sx), Y: float32(sy), Z: float32(sz)}, Orientation: rl.QuaternionIdentity()}

		tr := NewTree(2, 1<<17, 48000, 343, 0.01)
		tr.Update(room, listener, source, nearestConst)

		for i, n := range tr.Nodes {
			if n.Remaining < 0 {
				rt.Fatalf("node %d has negative remaining distance %v", i, n.Remaining)
			}
		}
	})
}
