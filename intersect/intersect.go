// Package intersect turns candidate lists into per-target weight lists
// by invoking the geometry kernel on each (target, candidate) pair and
// discarding numerically empty intersections. For multi-material cells
// it intersects against per-material sub-polygons supplied by the
// interface-reconstruction collaborator instead of whole cells.
package intersect

import (
	"fmt"

	"github.com/notargets/remap"
	"github.com/notargets/remap/geometry"
)

// MeshIntersect intersects target control volumes of one kind against
// candidate source control volumes on one mesh pair.
type MeshIntersect struct {
	Source remap.Mesh
	Target remap.Mesh
	Kind   remap.EntityKind

	// AllConvex asserts every target control volume is convex. When
	// false, targets go through the fan-triangulation path.
	AllConvex bool

	// CoordSys selects planar or axisymmetric moments.
	CoordSys geometry.CoordSys

	// Tols supplies the distance band for orientation tests and the
	// minimum volume kept as a weight.
	Tols remap.NumericTolerances
}

// NewMeshIntersect builds an intersector with default tolerances.
func NewMeshIntersect(source, target remap.Mesh, kind remap.EntityKind, allConvex bool) *MeshIntersect {
	return &MeshIntersect{
		Source:    source,
		Target:    target,
		Kind:      kind,
		AllConvex: allConvex,
		Tols:      remap.DefaultNumericTolerances(),
	}
}

// Intersect computes the weight list for one target entity from its
// candidate list. Candidates whose intersection volume does not exceed
// the minimum absolute volume are dropped. The list order follows the
// candidate order, which search emits sorted.
func (ix *MeshIntersect) Intersect(targetID int, candidates []int) (remap.Weights, error) {
	trgRing := ix.Target.EntityRing(ix.Kind, targetID)
	opts := geometry.IntersectOptions{
		TargetConvex: ix.AllConvex,
		CoordSys:     ix.CoordSys,
		Order:        1,
		DistTol:      ix.Tols.MinAbsoluteDistance,
	}

	var weights remap.Weights
	for _, srcID := range candidates {
		srcRing := ix.Source.EntityRing(ix.Kind, srcID)
		moments, err := geometry.IntersectPolys(srcRing, trgRing, opts)
		if err != nil {
			return nil, fmt.Errorf("intersect %s %d with source %d: %w",
				ix.Kind, targetID, srcID, err)
		}
		if moments[0] > ix.Tols.MinAbsoluteVolume {
			weights = append(weights, remap.Weight{ID: srcID, Moments: moments})
		}
	}
	return weights, nil
}

// IntersectAll computes weight lists for every target entity of the
// kind, parallelized over entities. weights[i] belongs to target i; a
// nil entry is a target with no geometric overlap, resolved later by
// fixup.
func (ix *MeshIntersect) IntersectAll(ex remap.Executor, candidates [][]int) ([]remap.Weights, error) {
	n := ix.Target.NumEntities(ix.Kind)
	if len(candidates) != n {
		return nil, fmt.Errorf("intersect: %d candidate lists for %d target %ss",
			len(candidates), n, ix.Kind)
	}
	weights := make([]remap.Weights, n)
	err := remap.ParallelFor(ex, n, func(i int) error {
		w, err := ix.Intersect(i, candidates[i])
		if err != nil {
			return err
		}
		weights[i] = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return weights, nil
}
