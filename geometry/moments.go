package geometry

// Moment ordering follows the monomial basis 1, x, y, x^2, xy, y^2.
// moments[0] is the area, moments[1]/moments[0] and moments[2]/moments[0]
// the centroid.

// NumMoments returns the number of moments up to the given polynomial
// order (0, 1 or 2).
func NumMoments(order int) int {
	return (order + 1) * (order + 2) / 2
}

// Reduce integrates the monomials up to order over the polygon using the
// boundary (shoelace-type) formulas. A ring with fewer than three
// vertices reduces to all zeros. Accumulation is plain double-precision
// summation in edge order.
func Reduce(pg Polygon, order int) []float64 {
	m := make([]float64, NumMoments(order))
	n := len(pg)
	if n < 3 {
		return m
	}
	for i := 0; i < n; i++ {
		x0, y0 := pg[i][0], pg[i][1]
		x1, y1 := pg[(i+1)%n][0], pg[(i+1)%n][1]
		c := x0*y1 - x1*y0

		m[0] += 0.5 * c
		if order >= 1 {
			m[1] += c * (x0 + x1) / 6.0
			m[2] += c * (y0 + y1) / 6.0
		}
		if order >= 2 {
			m[3] += c * (x0*x0 + x0*x1 + x1*x1) / 12.0
			m[4] += c * (x0*y1 + 2.0*x0*y0 + 2.0*x1*y1 + x1*y0) / 24.0
			m[5] += c * (y0*y0 + y0*y1 + y1*y1) / 12.0
		}
	}
	return m
}

// Centroid returns the area centroid of the polygon. The polygon must
// have nonzero area.
func (pg Polygon) Centroid() Point {
	m := Reduce(pg, 1)
	return Point{m[1] / m[0], m[2] / m[0]}
}

// Area returns the signed area of the polygon.
func (pg Polygon) Area() float64 {
	return Reduce(pg, 0)[0]
}

// ShiftMomentsAxisymmetric converts planar moments about the r-z half
// plane (r = x, z = y, quadratic order required) into revolved-volume
// moments about the z axis:
//
//	volume   = 2*pi * integral(r dA)   = 2*pi * m[1]
//	vol*rbar = 2*pi * integral(r^2 dA) = 2*pi * m[3]
//	vol*zbar = 2*pi * integral(rz dA)  = 2*pi * m[4]
//
// The result is a volume + first-moment vector in the revolved system.
// The transform is a pure function of the raw moment vector and is
// applied identically on the convex and fan-triangulated paths.
func ShiftMomentsAxisymmetric(m []float64) []float64 {
	const twoPi = 2.0 * 3.14159265358979323846264338327950288
	return []float64{twoPi * m[1], twoPi * m[3], twoPi * m[4]}
}
