package geometry

import "errors"

// ErrNoKernelPoint is returned when no valid fan point can be found for
// a non-convex target polygon: neither the triangulation centroid nor
// the centroid of the polygon's feasible region sees every edge with
// non-negative orientation. This is distinct from degenerate input,
// which is not an error and yields all-zero moments.
var ErrNoKernelPoint = errors.New("geometry: no valid kernel point to triangulate non-convex polygon")

// IntersectOptions configures a polygon-polygon intersection.
type IntersectOptions struct {
	// TargetConvex asserts the target ring is convex, enabling the
	// single-pass clip path. The caller owns this flag; passing true
	// for a non-convex target silently produces wrong moments.
	TargetConvex bool

	// CoordSys selects planar or revolved moments.
	CoordSys CoordSys

	// Order is the highest moment order requested in the planar system
	// (0 = area, 1 = +centroid, 2 = +second moments). Axisymmetric
	// intersections always integrate to quadratic order internally and
	// return the shifted volume + first-moment vector.
	Order int

	// DistTol is the tolerance band for orientation tests when
	// validating a fan point. A candidate lying within DistTol on the
	// wrong side of an edge is still accepted; the resulting sliver
	// triangle contributes (near) zero moments.
	DistTol float64
}

// IntersectPolys intersects a source polygon (possibly non-convex, ring
// of >= 0 vertices) with a target polygon and returns the moments of the
// intersection. Either ring having fewer than three vertices is
// degenerate input and yields all-zero moments, never an error.
func IntersectPolys(source, target Polygon, opts IntersectOptions) ([]float64, error) {
	order := opts.Order
	if opts.CoordSys == CylindricalAxisymmetric {
		order = 2
	}
	moments := make([]float64, NumMoments(order))

	if len(source) < 3 || len(target) < 3 {
		if opts.CoordSys == CylindricalAxisymmetric {
			return make([]float64, 3), nil
		}
		return moments, nil
	}

	if opts.TargetConvex {
		clipped := Clip(source, FacesFromVerts(target))
		moments = Reduce(clipped, order)
	} else {
		cen, err := fanPoint(target, opts.DistTol)
		if err != nil {
			return nil, err
		}

		// The triangle fan about a kernel point partitions the target
		// exactly, so per-triangle moments accumulate without double
		// counting.
		n := len(target)
		for i := 0; i < n; i++ {
			tri := Polygon{cen, target[i], target[(i+1)%n]}
			clipped := Clip(source, FacesFromVerts(tri))
			for j, v := range Reduce(clipped, order) {
				moments[j] += v
			}
		}
	}

	if opts.CoordSys == CylindricalAxisymmetric {
		return ShiftMomentsAxisymmetric(moments), nil
	}
	return moments, nil
}

// kernelPointOK reports whether cen sees every edge of the ring with
// orientation above -tol. Orientation exactly zero (fan point on an edge
// line) is accepted: the degenerate triangle it produces has zero area
// and contributes nothing.
func kernelPointOK(cen Point, pg Polygon, tol float64) bool {
	n := len(pg)
	for i := 0; i < n; i++ {
		if Orient(cen, pg[i], pg[(i+1)%n]) < -tol {
			return false
		}
	}
	return true
}

// fanPoint selects a point in the visibility kernel of a non-convex
// ring. Preference order: the area-weighted centroid of an arbitrary
// triangulation, then the centroid of the polygon's feasible region
// (the polygon self-clipped against its own edge half planes). If both
// fail the visibility test the ring has no usable kernel point under
// this method.
func fanPoint(pg Polygon, tol float64) (Point, error) {
	n := len(pg)

	var cen Point
	areaSum := 0.0
	for i := 1; i < n; i++ {
		area := Orient(pg[0], pg[i], pg[(i+1)%n])
		areaSum += area
		cen[0] += area * (pg[0][0] + pg[i][0] + pg[(i+1)%n][0]) / 3.0
		cen[1] += area * (pg[0][1] + pg[i][1] + pg[(i+1)%n][1]) / 3.0
	}
	if areaSum != 0 {
		cen[0] /= areaSum
		cen[1] /= areaSum
		if kernelPointOK(cen, pg, tol) {
			return cen, nil
		}
	}

	// Fall back to the feasible region: self-clipping collapses a
	// concave ring toward its visibility kernel.
	feasible := Clip(pg, FacesFromVerts(pg))
	if len(feasible) == 0 {
		return Point{}, ErrNoKernelPoint
	}
	fm := Reduce(feasible, 1)
	if fm[0] == 0 {
		return Point{}, ErrNoKernelPoint
	}
	cen = Point{fm[1] / fm[0], fm[2] / fm[0]}

	// The feasible region can be degenerate even with vertices left, so
	// its centroid must be re-validated against every edge.
	if !kernelPointOK(cen, pg, tol) {
		return Point{}, ErrNoKernelPoint
	}
	return cen, nil
}
