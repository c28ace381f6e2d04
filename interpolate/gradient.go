package interpolate

import (
	"fmt"

	"github.com/notargets/gocfd/utils"
	"github.com/notargets/remap"
	"github.com/notargets/remap/geometry"
)

// ComputeGradients builds a limited least-squares gradient for every
// source entity of a kind. The fit minimizes the squared mismatch of the
// linear reconstruction against neighbor values over the adjacency
// stencil; the limiter then scales the gradient so the reconstruction
// evaluated at the entity's ring vertices never leaves the min/max of
// the entity and its neighbors. Gradients are recomputed whenever the
// field or limiter selection changes.
func ComputeGradients(ex remap.Executor, mesh remap.Mesh, kind remap.EntityKind,
	values []float64, limiter remap.Limiter, bnd remap.BoundaryLimiter) ([]geometry.Vector, error) {

	n := mesh.NumEntities(kind)
	if len(values) != n {
		return nil, fmt.Errorf("interpolate: %d values for %d source %ss", len(values), n, kind)
	}

	grads := make([]geometry.Vector, n)
	err := remap.ParallelFor(ex, n, func(i int) error {
		if bnd == remap.BoundaryZeroGradient && mesh.OnDomainBoundary(kind, i) {
			return nil
		}
		g := leastSquaresGradient(mesh, kind, i, values)
		if limiter == remap.BarthJespersen {
			g = g.Scale(barthJespersenFactor(mesh, kind, i, values, g))
		}
		grads[i] = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return grads, nil
}

// leastSquaresGradient solves the 2x2 normal equations of the neighbor
// difference fit. Entities with a deficient stencil (fewer than two
// neighbors, or a numerically singular system from collinear centroids)
// keep a zero gradient.
func leastSquaresGradient(mesh remap.Mesh, kind remap.EntityKind, id int, values []float64) geometry.Vector {
	nbrs := mesh.EntityNeighbors(kind, id)
	if len(nbrs) < 2 {
		return geometry.Vector{}
	}
	ci := mesh.EntityCentroid(kind, id)

	a00, a01, a11 := 0.0, 0.0, 0.0
	b0, b1 := 0.0, 0.0
	for _, j := range nbrs {
		d := mesh.EntityCentroid(kind, j).Sub(ci)
		du := values[j] - values[id]
		a00 += d[0] * d[0]
		a01 += d[0] * d[1]
		a11 += d[1] * d[1]
		b0 += d[0] * du
		b1 += d[1] * du
	}

	det := a00*a11 - a01*a01
	scale := a00 + a11
	if scale == 0 || det <= 1e-14*scale*scale {
		return geometry.Vector{}
	}

	A := utils.NewMatrix(2, 2)
	A.Set(0, 0, a00)
	A.Set(0, 1, a01)
	A.Set(1, 0, a01)
	A.Set(1, 1, a11)
	b := utils.NewMatrix(2, 1)
	b.Set(0, 0, b0)
	b.Set(1, 0, b1)

	g := A.LUSolve(b)
	return geometry.Vector{g.At(0, 0), g.At(1, 0)}
}

// barthJespersenFactor returns the scale phi in [0, 1] that keeps the
// reconstruction u_i + phi*g.(x - c_i), evaluated at the ring vertices
// of entity i, inside the min/max of the entity and its neighbors.
func barthJespersenFactor(mesh remap.Mesh, kind remap.EntityKind, id int,
	values []float64, g geometry.Vector) float64 {

	umin, umax := values[id], values[id]
	for _, j := range mesh.EntityNeighbors(kind, id) {
		if values[j] < umin {
			umin = values[j]
		}
		if values[j] > umax {
			umax = values[j]
		}
	}

	ci := mesh.EntityCentroid(kind, id)
	phi := 1.0
	for _, v := range mesh.EntityRing(kind, id) {
		du := g.Dot(v.Sub(ci))
		var bound float64
		switch {
		case du > 0 && values[id]+du > umax:
			bound = (umax - values[id]) / du
		case du < 0 && values[id]+du < umin:
			bound = (umin - values[id]) / du
		default:
			continue
		}
		if bound < phi {
			phi = bound
		}
	}
	if phi < 0 {
		phi = 0
	}
	return phi
}
