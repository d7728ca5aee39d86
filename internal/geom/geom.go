// Package geom collects the vector/quaternion helpers the image-source
// model and spatializers share, built directly on raylib-go's math types
// rather than reinventing cross/dot/quaternion-rotation arithmetic.
package geom

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// MirrorAcrossPlane reflects pos across the plane perpendicular to axis
// (0=X, 1=Y, 2=Z) at the given coordinate value. This is the shoebox
// mirror operation behind every image-source position: reflecting a point
// across one of the six room boundaries.
func MirrorAcrossPlane(pos rl.Vector3, axis int, planeValue float32) rl.Vector3 {
	out := pos
	switch axis {
	case 0:
		out.X = 2*planeValue - pos.X
	case 1:
		out.Y = 2*planeValue - pos.Y
	case 2:
		out.Z = 2*planeValue - pos.Z
	}
	return out
}

// ForwardRight derives the listener's forward and right unit vectors from
// its orientation quaternion, the same construction as the teacher's
// listener-management code: forward is the orientation applied to the
// canonical +Z axis, right is forward crossed with world-up.
func ForwardRight(orientation rl.Quaternion) (forward, right rl.Vector3) {
	forward = rl.Vector3RotateByQuaternion(rl.Vector3{X: 0, Y: 0, Z: 1}, orientation)
	up := rl.Vector3{X: 0, Y: 1, Z: 0}
	right = rl.Vector3CrossProduct(forward, up)
	if l := rl.Vector3Length(right); l > 1e-6 {
		right = rl.Vector3Scale(right, 1/l)
	}
	return forward, right
}

// CartesianToSpherical converts a world-space offset (source position
// minus listener position) into listener-relative azimuth/elevation in
// degrees: transform by the inverse listener orientation, then
// azimuth = atan2(x, z) wrapped to [0, 360), elevation = atan2(y, sqrt(x^2+z^2)).
func CartesianToSpherical(offset rl.Vector3, listenerOrientation rl.Quaternion) (azimuthDeg, elevationDeg float64) {
	inv := rl.QuaternionInvert(listenerOrientation)
	rel := rl.Vector3RotateByQuaternion(offset, inv)

	x, y, z := float64(rel.X), float64(rel.Y), float64(rel.Z)
	az := math.Atan2(x, z) * 180 / math.Pi
	if az < 0 {
		az += 360
	}
	el := math.Atan2(y, math.Sqrt(x*x+z*z)) * 180 / math.Pi
	return az, el
}

// Distance is Euclidean distance between two points. It is not clamped;
// DistanceGain applies the floor before dividing.
func Distance(a, b rl.Vector3) float64 {
	return float64(rl.Vector3Distance(a, b))
}

// DistanceGain returns 1/max(d, eps), the configured-ceiling inverse
// distance law used for direct/image-source gain.
func DistanceGain(d, eps float64) float64 {
	if d < eps {
		d = eps
	}
	return 1 / d
}

// IsFinite reports whether a vector has no NaN/Inf components, the guard
// spec.md's "Update apply edge" error kind asks for before a new position
// is accepted.
func IsFinite(v rl.Vector3) bool {
	return isFiniteF(float64(v.X)) && isFiniteF(float64(v.Y)) && isFiniteF(float64(v.Z))
}

func isFiniteF(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
