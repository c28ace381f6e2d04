package remap

import "github.com/notargets/remap/geometry"

// Mesh is the abstract mesh collaborator. It exposes the control-volume
// geometry and adjacency the pipeline needs; storage and iteration stay
// with the owning simulation code. Entities are addressed by a dense
// integer index per kind. Implementations must be safe for concurrent
// reads.
type Mesh interface {
	// Dim returns the space dimension (2 for the planar/axisymmetric
	// kernel in this package).
	Dim() int

	// NumEntities returns the entity count for a kind.
	NumEntities(kind EntityKind) int

	// EntityRing returns the ordered vertex ring of the entity's
	// control volume (the cell itself, or the node's dual cell).
	EntityRing(kind EntityKind, id int) geometry.Polygon

	// EntityVolume returns the true control-volume measure.
	EntityVolume(kind EntityKind, id int) float64

	// EntityCentroid returns the control-volume centroid.
	EntityCentroid(kind EntityKind, id int) geometry.Point

	// EntityNeighbors returns the ids of entities sharing a boundary
	// segment with id, in ascending order.
	EntityNeighbors(kind EntityKind, id int) []int

	// SharedBoundary returns the measure (length in 2D) of the boundary
	// shared by two adjacent entities, zero if not adjacent.
	SharedBoundary(kind EntityKind, a, b int) float64

	// OnDomainBoundary reports whether the entity touches the domain
	// boundary.
	OnDomainBoundary(kind EntityKind, id int) bool
}

// State is the abstract field-storage collaborator. Fields are named
// scalar arrays attached to entities of one kind on one mesh; vector
// fields are stored as one array per component.
type State interface {
	// Names returns all registered field names.
	Names() []string

	// FieldKind returns the entity kind a field is attached to.
	FieldKind(name string) (EntityKind, error)

	// FieldType returns whether a field is mesh-wide or per-material.
	FieldType(name string) (FieldType, error)

	// Field returns the raw values of a mesh field, indexed by entity
	// id.
	Field(name string) ([]float64, error)

	// SetField creates or replaces a mesh field (target-side
	// write-back).
	SetField(name string, kind EntityKind, values []float64) error
}

// MultiMaterialState extends State for meshes carrying per-material
// fields on cells.
type MultiMaterialState interface {
	State

	// NumMaterials returns the number of materials.
	NumMaterials() int

	// MatField returns the values of a material field for one material,
	// indexed by cell id (zero where the material is absent).
	MatField(name string, mat int) ([]float64, error)

	// SetMatField writes back one material's values of a target field.
	SetMatField(name string, mat int, values []float64) error
}

// InterfaceReconstructor is the external collaborator producing
// per-material sub-cell geometry for multi-material cells. It is a black
// box here; only its output polygons are consumed.
type InterfaceReconstructor interface {
	// MaterialPolygons returns the sub-polygons occupied by material
	// mat inside the given source cell. An empty slice means the
	// material is absent from the cell.
	MaterialPolygons(cell int, mat int) ([]geometry.Polygon, error)
}

// Redistributor is the external collaborator that, on distributed runs,
// gathers a locally complete view of candidate source entities onto each
// rank before the core stages execute. The core performs no inter-process
// communication itself.
type Redistributor interface {
	// Redistribute ensures the source mesh and state visible locally
	// cover everything the local target partition can overlap.
	Redistribute(source Mesh, state State, target Mesh) (Mesh, State, error)
}
