// Package remap defines the shared vocabulary of the conservative remap
// pipeline: entity kinds, field types, limiter and fixup selections,
// intersection weights, numeric tolerances, the execution context and
// the mesh/state collaborator interfaces. The pipeline stages live in
// the geometry, search, intersect, interpolate, fixup and driver
// subpackages.
package remap

// EntityKind identifies which control volumes a field or a pipeline
// stage operates on.
type EntityKind uint8

const (
	Cell EntityKind = iota // cell-centered control volumes
	Node                   // node-centered dual control volumes
)

func (k EntityKind) String() string {
	switch k {
	case Cell:
		return "cell"
	case Node:
		return "node"
	}
	return "unknown"
}

// FieldType distinguishes mesh-wide fields from per-material fields.
type FieldType uint8

const (
	MeshField FieldType = iota
	MultiMaterialField
)

// Limiter selects how reconstructed gradients are bounded.
type Limiter uint8

const (
	NoLimiter Limiter = iota
	BarthJespersen
)

// BoundaryLimiter selects gradient behavior on entities touching the
// domain boundary, where the neighbor stencil is one-sided.
type BoundaryLimiter uint8

const (
	BoundaryNoLimiter BoundaryLimiter = iota
	BoundaryZeroGradient
)

// PartialFixup selects how partially covered target entities are
// repaired.
type PartialFixup uint8

const (
	// PartialConstant keeps the interpolated value.
	PartialConstant PartialFixup = iota
	// PartialLocallyConservative pulls the missing contribution from
	// adjacent covered entities in proportion to shared boundary
	// measure.
	PartialLocallyConservative
	// PartialLeastSquares fits the value minimizing weighted squared
	// deviation from neighbor values, subject to the bound constraints.
	PartialLeastSquares
)

// EmptyFixup selects how entirely uncovered target entities are filled.
type EmptyFixup uint8

const (
	// EmptyExtrapolate fills empty entities layer by layer with the
	// mean of their already-filled neighbors.
	EmptyExtrapolate EmptyFixup = iota
	// EmptyLeaveDefault leaves empty entities at the caller default.
	EmptyLeaveDefault
)

// Weight associates one source entity with the moments of its
// intersection against one target entity. Moments[0] is the intersection
// volume; Moments[1:3], when present, are the volume-weighted centroid
// components.
type Weight struct {
	ID      int
	Moments []float64
}

// Weights is the ordered contribution list owned by one target entity.
// The order carries no meaning but is deterministic (ascending source
// id) for reproducibility.
type Weights []Weight

// SumVolume returns the total intersection volume of the list.
func (w Weights) SumVolume() float64 {
	total := 0.0
	for _, wt := range w {
		total += wt.Moments[0]
	}
	return total
}

// NumericTolerances collects the tolerances applied uniformly across the
// geometry kernel, intersection and fixup.
type NumericTolerances struct {
	// MinAbsoluteDistance bands orientation tests in the geometry
	// kernel.
	MinAbsoluteDistance float64
	// MinAbsoluteVolume is the smallest intersection volume kept as a
	// weight.
	MinAbsoluteVolume float64
	// RelativeConservationEps is the relative tolerance on integral
	// conservation used by mismatch detection and global repair.
	RelativeConservationEps float64
	// MaxFixupIterations caps the global repair loop.
	MaxFixupIterations int
}

// DefaultNumericTolerances returns the tolerances used when the caller
// sets none.
func DefaultNumericTolerances() NumericTolerances {
	return NumericTolerances{
		MinAbsoluteDistance:     1e-12,
		MinAbsoluteVolume:       1e-14,
		RelativeConservationEps: 100 * 2.220446049250313e-16,
		MaxFixupIterations:      5,
	}
}
