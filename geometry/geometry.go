// Package geometry implements exact polygon clipping and moment
// computation for conservative remap. Polygons are ordered vertex rings
// (counterclockwise positive) and may be non-convex. Intersections are
// reduced directly to integral moments (area, area-weighted centroid,
// second moments) rather than to explicit polygons.
package geometry

import "math"

// CoordSys selects the coordinate system moments are reported in.
type CoordSys uint8

const (
	// Cartesian treats the plane as an ordinary x-y plane.
	Cartesian CoordSys = iota
	// CylindricalAxisymmetric treats the plane as an r-z half plane
	// revolved about the z axis; moments become revolved volumes.
	CylindricalAxisymmetric
)

// Point is a position in the plane.
type Point [2]float64

// Vector is a displacement in the plane.
type Vector [2]float64

// Polygon is an ordered ring of vertices. A counterclockwise ring has
// positive area. An empty ring is a valid degenerate polygon.
type Polygon []Point

// Add returns p translated by v.
func (p Point) Add(v Vector) Point {
	return Point{p[0] + v[0], p[1] + v[1]}
}

// Sub returns the displacement from q to p.
func (p Point) Sub(q Point) Vector {
	return Vector{p[0] - q[0], p[1] - q[1]}
}

// Scale returns v scaled by s.
func (v Vector) Scale(s float64) Vector {
	return Vector{v[0] * s, v[1] * s}
}

// Dot returns the scalar product of v and w.
func (v Vector) Dot(w Vector) float64 {
	return v[0]*w[0] + v[1]*w[1]
}

// Norm returns the Euclidean length of v.
func (v Vector) Norm() float64 {
	return math.Hypot(v[0], v[1])
}

// Orient returns the signed area of triangle (a, b, c), positive when
// the vertices wind counterclockwise.
func Orient(a, b, c Point) float64 {
	return 0.5 * ((b[0]-a[0])*(c[1]-a[1]) - (c[0]-a[0])*(b[1]-a[1]))
}

// BoundingBox is an axis-aligned box.
type BoundingBox struct {
	Min, Max Point
}

// Bounds returns the axis-aligned bounding box of the ring. A zero-length
// ring returns an inverted box that overlaps nothing.
func (pg Polygon) Bounds() BoundingBox {
	bb := BoundingBox{
		Min: Point{math.Inf(1), math.Inf(1)},
		Max: Point{math.Inf(-1), math.Inf(-1)},
	}
	for _, v := range pg {
		for d := 0; d < 2; d++ {
			bb.Min[d] = math.Min(bb.Min[d], v[d])
			bb.Max[d] = math.Max(bb.Max[d], v[d])
		}
	}
	return bb
}

// Overlaps reports whether two boxes share any point.
func (bb BoundingBox) Overlaps(other BoundingBox) bool {
	for d := 0; d < 2; d++ {
		if bb.Max[d] < other.Min[d] || other.Max[d] < bb.Min[d] {
			return false
		}
	}
	return true
}

// Union returns the smallest box containing both inputs.
func (bb BoundingBox) Union(other BoundingBox) BoundingBox {
	out := bb
	for d := 0; d < 2; d++ {
		out.Min[d] = math.Min(out.Min[d], other.Min[d])
		out.Max[d] = math.Max(out.Max[d], other.Max[d])
	}
	return out
}
