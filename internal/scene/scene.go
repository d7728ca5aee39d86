// Package scene defines the canonical scene snapshot and the single-
// producer/single-consumer latest-wins queue that hands snapshots from
// the ingest goroutine to the renderer without locks or allocation on the
// consumer side.
package scene

import (
	"sync/atomic"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Room is the shoebox room's dimensions in meters.
type Room struct {
	Width  float32
	Height float32
	Length float32
}

// Pose is a position and orientation in room-local coordinates.
type Pose struct {
	Position    rl.Vector3
	Orientation rl.Quaternion
}

// Snapshot is an immutable scene state: room size, listener pose, and the
// ordered poses of every real source. Published atomically; once
// constructed, a Snapshot is never mutated.
type Snapshot struct {
	Room     Room
	Listener Pose
	Sources  []Pose
}

// Queue is a capacity-1, overwrite-on-publish snapshot slot: the ingest
// goroutine calls Publish, the renderer calls TryConsume from the audio
// callback. TryConsume never blocks. The renderer sees either the
// pre-publish or the post-publish snapshot, never a torn one, because the
// pointer swap is the only shared state.
type Queue struct {
	slot atomic.Pointer[Snapshot]
}

// Publish overwrites the queue's single slot. Called from the ingest side
// only; any previously published, not-yet-consumed snapshot is discarded
// with no error, per the "queue full" error kind (overwrite is normal,
// not an error).
func (q *Queue) Publish(s *Snapshot) {
	q.slot.Store(s)
}

// TryConsume atomically takes the current snapshot, if any, clearing the
// slot so the same snapshot is not re-delivered. Returns nil if nothing
// new has been published since the last TryConsume. Safe to call from the
// realtime audio callback: it is a single atomic swap, no blocking, no
// allocation.
func (q *Queue) TryConsume() *Snapshot {
	return q.slot.Swap(nil)
}
