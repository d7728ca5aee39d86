package hrtf

import "sort"

// AnglePoint is one entry in the angle index: a direction in degrees and
// the filter id it selects.
type AnglePoint struct {
	Az, El float64
	ID     int
}

// AngleTree is a 2-D k-d tree over (azimuth, elevation) degrees, split
// alternately on each axis, supporting 1-nearest-neighbor lookup. Built
// once at startup from immutable points; read-only thereafter.
//
// This is a direct, dependency-free implementation rather than
// gonum.org/v1/gonum/spatial/kdtree — see DESIGN.md for why.
type AngleTree struct {
	root *kdNode
}

type kdNode struct {
	point       AnglePoint
	left, right *kdNode
	axis        int
}

// sentinelAngle guarantees every nearest-neighbor query is total, per
// spec.md §4.3: reserved id 0 at (666, 420), a point far outside any real
// HRTF measurement.
var sentinelAngle = AnglePoint{Az: 666, El: 420, ID: 0}

// NewAngleTree builds the tree from the given points, always including the
// sentinel angle.
func NewAngleTree(points []AnglePoint) *AngleTree {
	all := make([]AnglePoint, 0, len(points)+1)
	all = append(all, sentinelAngle)
	all = append(all, points...)
	return &AngleTree{root: build(all, 0)}
}

func build(points []AnglePoint, depth int) *kdNode {
	if len(points) == 0 {
		return nil
	}
	axis := depth % 2
	sort.Slice(points, func(i, j int) bool {
		if axis == 0 {
			return points[i].Az < points[j].Az
		}
		return points[i].El < points[j].El
	})
	mid := len(points) / 2
	n := &kdNode{point: points[mid], axis: axis}
	n.left = build(points[:mid], depth+1)
	n.right = build(points[mid+1:], depth+1)
	return n
}

// Nearest returns the filter id of the closest point to (az, el) by plain
// Euclidean distance in degree-space.
func (t *AngleTree) Nearest(az, el float64) int {
	if t.root == nil {
		return sentinelAngle.ID
	}
	best := t.root.point
	bestDist := sqDist(best, az, el)
	search(t.root, az, el, &best, &bestDist)
	return best.ID
}

func sqDist(p AnglePoint, az, el float64) float64 {
	dAz := p.Az - az
	dEl := p.El - el
	return dAz*dAz + dEl*dEl
}

func search(n *kdNode, az, el float64, best *AnglePoint, bestDist *float64) {
	if n == nil {
		return
	}
	d := sqDist(n.point, az, el)
	if d < *bestDist {
		*bestDist = d
		*best = n.point
	}

	var target, other *kdNode
	var diff float64
	if n.axis == 0 {
		diff = az - n.point.Az
	} else {
		diff = el - n.point.El
	}
	if diff < 0 {
		target, other = n.left, n.right
	} else {
		target, other = n.right, n.left
	}

	search(target, az, el, best, bestDist)
	if diff*diff < *bestDist {
		search(other, az, el, best, bestDist)
	}
}
