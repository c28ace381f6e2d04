// Package interpolate consumes intersection weights and source field
// values to produce target entity values, at 0th (piecewise constant)
// or 1st (limited linear reconstruction) order. Weight lists are
// computed once by intersection and reused across any number of field
// interpolations.
package interpolate

import (
	"fmt"

	"github.com/notargets/remap"
	"github.com/notargets/remap/geometry"
)

// MeshVar interpolates one mesh field from source entities of a kind
// onto target entities of the same kind.
type MeshVar struct {
	Source remap.Mesh
	Kind   remap.EntityKind

	// Order is the reconstruction order: 0 for piecewise constant,
	// 1 for limited linear.
	Order int
}

// NewMeshVar validates the reconstruction order.
func NewMeshVar(source remap.Mesh, kind remap.EntityKind, order int) (*MeshVar, error) {
	if order != 0 && order != 1 {
		return nil, fmt.Errorf("interpolate: unsupported reconstruction order %d", order)
	}
	return &MeshVar{Source: source, Kind: kind, Order: order}, nil
}

// Interpolate produces one value per target entity. gradients is
// required for order 1 and ignored for order 0. A target with an empty
// weight list keeps the zero default; partial or empty coverage is
// resolved later by fixup, never by dividing by a zero weight sum.
func (mv *MeshVar) Interpolate(ex remap.Executor, values []float64,
	weights []remap.Weights, gradients []geometry.Vector) ([]float64, error) {

	ns := mv.Source.NumEntities(mv.Kind)
	if len(values) != ns {
		return nil, fmt.Errorf("interpolate: %d values for %d source %ss", len(values), ns, mv.Kind)
	}
	if mv.Order == 1 && len(gradients) != ns {
		return nil, fmt.Errorf("interpolate: order 1 requires %d gradients, have %d", ns, len(gradients))
	}

	out := make([]float64, len(weights))
	err := remap.ParallelFor(ex, len(weights), func(i int) error {
		out[i] = mv.target(values, weights[i], gradients)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (mv *MeshVar) target(values []float64, wts remap.Weights, gradients []geometry.Vector) float64 {
	vol := wts.SumVolume()
	if vol == 0 {
		return 0
	}
	sum := 0.0
	for _, w := range wts {
		contrib := values[w.ID]
		if mv.Order == 1 {
			wc := geometry.Point{w.Moments[1] / w.Moments[0], w.Moments[2] / w.Moments[0]}
			sc := mv.Source.EntityCentroid(mv.Kind, w.ID)
			contrib += gradients[w.ID].Dot(wc.Sub(sc))
		}
		sum += w.Moments[0] * contrib
	}
	return sum / vol
}

// MatVar interpolates one material field onto target cells using the
// per-material weight lists from material intersection. Reconstruction
// is piecewise constant; material polygons already resolve the sub-cell
// variation.
type MatVar struct {
	Source remap.Mesh
}

// Interpolate produces one value per target cell for one material.
func (mv *MatVar) Interpolate(ex remap.Executor, values []float64, weights []remap.Weights) ([]float64, error) {
	ns := mv.Source.NumEntities(remap.Cell)
	if len(values) != ns {
		return nil, fmt.Errorf("interpolate: %d material values for %d source cells", len(values), ns)
	}
	out := make([]float64, len(weights))
	err := remap.ParallelFor(ex, len(weights), func(i int) error {
		vol := weights[i].SumVolume()
		if vol == 0 {
			return nil
		}
		sum := 0.0
		for _, w := range weights[i] {
			sum += w.Moments[0] * values[w.ID]
		}
		out[i] = sum / vol
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
