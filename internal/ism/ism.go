// Package ism implements the image-source model: for each real source, a
// fixed-shape, level-ordered flat array of image sources mirrored across
// the six shoebox boundaries up to a configured reflection order.
package ism

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"auralis/internal/dsp/delay"
	"auralis/internal/geom"
	"auralis/internal/scene"
)

// Reflector names the room boundary (if any) an image source was mirrored
// across to reach its position. The real source carries ReflNone.
type Reflector int8

const (
	ReflNone Reflector = iota
	ReflX0
	ReflX1
	ReflY0
	ReflY1
	ReflZ0
	ReflZ1
)

func (r Reflector) String() string {
	switch r {
	case ReflNone:
		return "None"
	case ReflX0:
		return "X0"
	case ReflX1:
		return "X1"
	case ReflY0:
		return "Y0"
	case ReflY1:
		return "Y1"
	case ReflZ0:
		return "Z0"
	case ReflZ1:
		return "Z1"
	default:
		return "?"
	}
}

var allReflectors = [6]Reflector{ReflX0, ReflX1, ReflY0, ReflY1, ReflZ0, ReflZ1}

func mirror(pos rl.Vector3, room scene.Room, r Reflector) rl.Vector3 {
	switch r {
	case ReflX0:
		return geom.MirrorAcrossPlane(pos, 0, 0)
	case ReflX1:
		return geom.MirrorAcrossPlane(pos, 0, room.Width)
	case ReflY0:
		return geom.MirrorAcrossPlane(pos, 1, 0)
	case ReflY1:
		return geom.MirrorAcrossPlane(pos, 1, room.Height)
	case ReflZ0:
		return geom.MirrorAcrossPlane(pos, 2, 0)
	case ReflZ1:
		return geom.MirrorAcrossPlane(pos, 2, room.Length)
	default:
		return pos
	}
}

// Node is one image source (or, at index 0, the real source itself).
type Node struct {
	Reflector   Reflector
	ParentIndex int // -1 for the root (real source)

	Position   rl.Vector3
	PathLength float64
	Remaining  float64

	AzimuthDeg, ElevationDeg               float64 // listener-relative, for HRTF selection
	SourceRelAzimuthDeg, SourceRelElevation float64 // source-relative, reserved for directivity (spec open question iii)

	PreviousHRTFID, CurrentHRTFID int
	DistanceGain                  float64

	Delay *delay.Line
}

// Tree is the level-ordered image-source array for one real source.
type Tree struct {
	Order       int
	Nodes       []Node
	levelStart  []int
	SpeedOfSound float64
	SampleRate   float64
	GainEpsilon  float64
}

// NewTree builds the fixed topology for the given reflection order: node
// count, reflector tags and parent indices are all assigned once here and
// never change; only Update mutates positions and derived state.
// delayCapacitySamples sizes every node's delay line for the worst-case
// room diagonal.
func NewTree(order int, delayCapacitySamples int, sampleRate, speedOfSound, gainEpsilon float64) *Tree {
	if order < 0 {
		order = 0
	}
	levelStart := make([]int, order+2)
	levelStart[0] = 0
	levelStart[1] = 1
	for k := 1; k <= order; k++ {
		nk := 6
		for i := 1; i < k; i++ {
			nk *= 5
		}
		levelStart[k+1] = levelStart[k] + nk
	}
	total := levelStart[order+1]

	nodes := make([]Node, total)
	nodes[0] = Node{Reflector: ReflNone, ParentIndex: -1}

	for k := 0; k < order; k++ {
		fanout := 5
		if k == 0 {
			fanout = 6
		}
		for i := levelStart[k]; i < levelStart[k+1]; i++ {
			j := i - levelStart[k]
			childBase := levelStart[k+1] + j*fanout
			boundaries := childBoundaries(nodes[i].Reflector)
			for ci, b := range boundaries {
				nodes[childBase+ci] = Node{Reflector: b, ParentIndex: i}
			}
		}
	}

	for i := range nodes {
		nodes[i].Delay = delay.New(delayCapacitySamples)
	}

	return &Tree{
		Order:        order,
		Nodes:        nodes,
		levelStart:   levelStart,
		SpeedOfSound: speedOfSound,
		SampleRate:   sampleRate,
		GainEpsilon:  gainEpsilon,
	}
}

func childBoundaries(exclude Reflector) []Reflector {
	out := make([]Reflector, 0, 6)
	for _, b := range allReflectors {
		if b != exclude {
			out = append(out, b)
		}
	}
	return out
}

// NearestFunc maps a listener-relative (azimuth, elevation) in degrees to
// an HRTF angle id. Satisfied by *hrtf.Store.Nearest.
type NearestFunc func(azimuthDeg, elevationDeg float64) int

// Update recomputes every node's position, path length, spherical angles
// and HRTF id from a new listener pose and real-source pose, per the
// image-source tree's update algorithm: overwrite level 0, mirror every
// deeper node from its already-updated parent (nodes are stored in BFS
// order so a parent is always updated before its children), then derive
// path length, remaining distance, angles and HRTF selection in a final
// pass. NaN/Inf positions are rejected in favor of the last valid value.
func (t *Tree) Update(room scene.Room, listener scene.Pose, source scene.Pose, nearest NearestFunc) {
	root := &t.Nodes[0]
	pos := source.Position
	if !geom.IsFinite(pos) {
		pos = root.Position
	}
	root.Position = pos

	for i := 1; i < len(t.Nodes); i++ {
		n := &t.Nodes[i]
		parent := &t.Nodes[n.ParentIndex]
		m := mirror(parent.Position, room, n.Reflector)
		if geom.IsFinite(m) {
			n.Position = m
		}
	}

	root.PathLength = geom.Distance(root.Position, listener.Position)
	root.Remaining = root.PathLength

	for i := 1; i < len(t.Nodes); i++ {
		n := &t.Nodes[i]
		parent := &t.Nodes[n.ParentIndex]
		n.PathLength = geom.Distance(n.Position, listener.Position)
		remaining := n.PathLength - parent.PathLength
		if remaining < 0 {
			remaining = 0
		}
		n.Remaining = remaining
	}

	for i := range t.Nodes {
		n := &t.Nodes[i]

		listenerOffset := rl.Vector3Subtract(n.Position, listener.Position)
		az, el := geom.CartesianToSpherical(listenerOffset, listener.Orientation)
		n.AzimuthDeg, n.ElevationDeg = az, el

		sourceOffset := rl.Vector3Subtract(listener.Position, n.Position)
		srcAz, srcEl := geom.CartesianToSpherical(sourceOffset, source.Orientation)
		n.SourceRelAzimuthDeg, n.SourceRelElevation = srcAz, srcEl

		n.PreviousHRTFID = n.CurrentHRTFID
		n.CurrentHRTFID = nearest(az, el)

		// Each node's delay line processes its parent's already-delayed
		// output (render.go's per-node cascade), so only the per-hop
		// distance belongs here; using PathLength would double-count
		// every ancestor's delay on top of the cascade.
		delaySamples := n.Remaining / t.SpeedOfSound * t.SampleRate
		n.Delay.SetDelaySamples(delaySamples)
		n.Delay.SetAirAbsorption(n.PathLength)
		n.DistanceGain = geom.DistanceGain(n.PathLength, t.GainEpsilon)
	}
}

// NodeCount returns the fixed number of nodes in the tree (1 for order 0).
func (t *Tree) NodeCount() int { return len(t.Nodes) }

// Forest owns one fixed-shape Tree per real source slot, allocated once at
// startup for a maximum source count; real sources beyond the published
// scene's length are simply left with their last update (callers gate on
// Active).
type Forest struct {
	Trees  []*Tree
	Active int
}

// NewForest allocates maxSources trees of the given order.
func NewForest(maxSources, order, delayCapacitySamples int, sampleRate, speedOfSound, gainEpsilon float64) *Forest {
	trees := make([]*Tree, maxSources)
	for i := range trees {
		trees[i] = NewTree(order, delayCapacitySamples, sampleRate, speedOfSound, gainEpsilon)
	}
	return &Forest{Trees: trees}
}

// Update applies a snapshot's room, listener and source list to the
// forest, activating exactly len(sources) trees (clamped to capacity).
func (f *Forest) Update(room scene.Room, listener scene.Pose, sources []scene.Pose, nearest NearestFunc) {
	n := len(sources)
	if n > len(f.Trees) {
		n = len(f.Trees)
	}
	f.Active = n
	for i := 0; i < n; i++ {
		f.Trees[i].Update(room, listener, sources[i], nearest)
	}
}
