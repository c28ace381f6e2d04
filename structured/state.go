package structured

import (
	"fmt"
	"sort"

	"github.com/notargets/remap"
)

// field is one named scalar array, mesh-wide or per-material.
type field struct {
	kind  remap.EntityKind
	ftype remap.FieldType
	data  []float64
	byMat [][]float64
}

// State is a map-backed field store implementing remap.State and
// remap.MultiMaterialState. Safe for concurrent reads once populated.
type State struct {
	fields  map[string]*field
	numMats int
}

// NewState returns an empty single-material state.
func NewState() *State {
	return &State{fields: make(map[string]*field)}
}

// NewMultiMaterialState returns an empty state carrying numMats
// materials.
func NewMultiMaterialState(numMats int) *State {
	return &State{fields: make(map[string]*field), numMats: numMats}
}

// AddField registers a mesh field.
func (s *State) AddField(name string, kind remap.EntityKind, data []float64) {
	s.fields[name] = &field{kind: kind, ftype: remap.MeshField, data: data}
}

// AddMatField registers a material field; data is indexed [material][cell].
func (s *State) AddMatField(name string, data [][]float64) {
	s.fields[name] = &field{kind: remap.Cell, ftype: remap.MultiMaterialField, byMat: data}
}

// Names returns the registered field names, sorted for determinism.
func (s *State) Names() []string {
	names := make([]string, 0, len(s.fields))
	for name := range s.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *State) lookup(name string) (*field, error) {
	f, ok := s.fields[name]
	if !ok {
		return nil, fmt.Errorf("structured: no field %q", name)
	}
	return f, nil
}

// FieldKind returns the entity kind the field is attached to.
func (s *State) FieldKind(name string) (remap.EntityKind, error) {
	f, err := s.lookup(name)
	if err != nil {
		return 0, err
	}
	return f.kind, nil
}

// FieldType returns whether the field is mesh-wide or per-material.
func (s *State) FieldType(name string) (remap.FieldType, error) {
	f, err := s.lookup(name)
	if err != nil {
		return 0, err
	}
	return f.ftype, nil
}

// Field returns the raw values of a mesh field.
func (s *State) Field(name string) ([]float64, error) {
	f, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	if f.ftype != remap.MeshField {
		return nil, fmt.Errorf("structured: field %q is per-material", name)
	}
	return f.data, nil
}

// SetField creates or replaces a mesh field.
func (s *State) SetField(name string, kind remap.EntityKind, values []float64) error {
	s.fields[name] = &field{kind: kind, ftype: remap.MeshField, data: values}
	return nil
}

// NumMaterials returns the material count.
func (s *State) NumMaterials() int { return s.numMats }

// MatField returns one material's values of a material field.
func (s *State) MatField(name string, mat int) ([]float64, error) {
	f, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	if f.ftype != remap.MultiMaterialField {
		return nil, fmt.Errorf("structured: field %q is not per-material", name)
	}
	if mat < 0 || mat >= len(f.byMat) {
		return nil, fmt.Errorf("structured: field %q has no material %d", name, mat)
	}
	return f.byMat[mat], nil
}

// SetMatField writes back one material's values, creating the target
// field on first use.
func (s *State) SetMatField(name string, mat int, values []float64) error {
	if mat < 0 || mat >= s.numMats {
		return fmt.Errorf("structured: material %d out of range", mat)
	}
	f, ok := s.fields[name]
	if !ok || f.ftype != remap.MultiMaterialField {
		f = &field{kind: remap.Cell, ftype: remap.MultiMaterialField, byMat: make([][]float64, s.numMats)}
		s.fields[name] = f
	}
	f.byMat[mat] = values
	return nil
}
