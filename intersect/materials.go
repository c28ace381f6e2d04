package intersect

import (
	"fmt"

	"github.com/notargets/remap"
	"github.com/notargets/remap/geometry"
)

// MaterialIntersect intersects target cells against per-material
// sub-polygons of the source cells. It reuses the candidate lists of the
// mesh-mesh search; a candidate cell simply contributes nothing for
// materials it does not carry.
type MaterialIntersect struct {
	Mesh          *MeshIntersect
	Reconstructor remap.InterfaceReconstructor
	NumMaterials  int
}

// NewMaterialIntersect wraps a cell intersector with an interface
// reconstructor. Material intersection is defined on cells only.
func NewMaterialIntersect(mesh *MeshIntersect, ir remap.InterfaceReconstructor, numMats int) (*MaterialIntersect, error) {
	if mesh.Kind != remap.Cell {
		return nil, fmt.Errorf("intersect: material intersection on %s entities not supported", mesh.Kind)
	}
	if ir == nil {
		return nil, fmt.Errorf("intersect: material intersection requires an interface reconstructor")
	}
	if numMats <= 0 {
		return nil, fmt.Errorf("intersect: invalid material count %d", numMats)
	}
	return &MaterialIntersect{Mesh: mesh, Reconstructor: ir, NumMaterials: numMats}, nil
}

// IntersectAll returns one weight structure per material, each indexed
// by target cell. A source cell may contribute several weights for one
// material when the reconstructor splits the material into multiple
// sub-polygons; their moments are summed into a single weight per
// source cell to keep the list deterministic.
func (mx *MaterialIntersect) IntersectAll(ex remap.Executor, candidates [][]int) ([][]remap.Weights, error) {
	n := mx.Mesh.Target.NumEntities(remap.Cell)
	if len(candidates) != n {
		return nil, fmt.Errorf("intersect: %d candidate lists for %d target cells", len(candidates), n)
	}

	byMat := make([][]remap.Weights, mx.NumMaterials)
	for m := range byMat {
		byMat[m] = make([]remap.Weights, n)
	}

	opts := geometry.IntersectOptions{
		TargetConvex: mx.Mesh.AllConvex,
		CoordSys:     mx.Mesh.CoordSys,
		Order:        1,
		DistTol:      mx.Mesh.Tols.MinAbsoluteDistance,
	}

	err := remap.ParallelFor(ex, n, func(i int) error {
		trgRing := mx.Mesh.Target.EntityRing(remap.Cell, i)
		for m := 0; m < mx.NumMaterials; m++ {
			for _, srcID := range candidates[i] {
				polys, err := mx.Reconstructor.MaterialPolygons(srcID, m)
				if err != nil {
					return fmt.Errorf("reconstruct material %d in cell %d: %w", m, srcID, err)
				}
				var acc []float64
				for _, poly := range polys {
					moments, err := geometry.IntersectPolys(poly, trgRing, opts)
					if err != nil {
						return fmt.Errorf("intersect cell %d material %d with source %d: %w",
							i, m, srcID, err)
					}
					if acc == nil {
						acc = moments
					} else {
						for j := range acc {
							acc[j] += moments[j]
						}
					}
				}
				if acc != nil && acc[0] > mx.Mesh.Tols.MinAbsoluteVolume {
					byMat[m][i] = append(byMat[m][i], remap.Weight{ID: srcID, Moments: acc})
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return byMat, nil
}
