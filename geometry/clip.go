package geometry

// Plane is an oriented half plane n.x + d >= 0. For a counterclockwise
// ring the inward normal of each edge points into the polygon, so the
// intersection of all edge half planes contains the polygon (exactly,
// when the polygon is convex).
type Plane struct {
	N Vector
	D float64
}

// Dist returns the signed distance of p from the plane boundary,
// positive on the interior side.
func (pl Plane) Dist(p Point) float64 {
	return pl.N.Dot(Vector(p)) + pl.D
}

// FacesFromVerts derives the edge half planes of a vertex ring. A
// zero-length edge produces an all-zero plane whose Dist is identically
// zero, which clipping treats as keep-everything.
func FacesFromVerts(pg Polygon) []Plane {
	n := len(pg)
	faces := make([]Plane, n)
	for i := 0; i < n; i++ {
		a, b := pg[i], pg[(i+1)%n]
		e := b.Sub(a)
		length := e.Norm()
		if length == 0 {
			continue
		}
		normal := Vector{-e[1] / length, e[0] / length}
		faces[i] = Plane{N: normal, D: -normal.Dot(Vector(a))}
	}
	return faces
}

// ClipPlane clips the ring against a single half plane, keeping the part
// on the non-negative side (Sutherland-Hodgman step). Points exactly on
// the boundary are kept.
func ClipPlane(pg Polygon, pl Plane) Polygon {
	n := len(pg)
	if n == 0 {
		return nil
	}
	out := make(Polygon, 0, n+2)
	for i := 0; i < n; i++ {
		cur, next := pg[i], pg[(i+1)%n]
		dc, dn := pl.Dist(cur), pl.Dist(next)
		if dc >= 0 {
			out = append(out, cur)
		}
		if (dc > 0 && dn < 0) || (dc < 0 && dn > 0) {
			t := dc / (dc - dn)
			out = append(out, cur.Add(next.Sub(cur).Scale(t)))
		}
	}
	if len(out) < 3 {
		return nil
	}
	return out
}

// Clip clips the ring successively against each half plane. The result
// is the part of pg inside the intersection of all half planes, or nil
// if nothing remains. Valid for any simple source ring as long as the
// clip region (the intersection of the planes) is convex.
func Clip(pg Polygon, planes []Plane) Polygon {
	out := pg
	for _, pl := range planes {
		out = ClipPlane(out, pl)
		if out == nil {
			return nil
		}
	}
	return out
}
