// Package search generates candidate source entities for each target
// entity by overlapping axis-aligned bounding boxes through a kd-tree
// built once over all source entities of a kind. The candidate set is a
// conservative superset of the truly intersecting set: false positives
// are filtered later by intersection, false negatives would be a
// correctness bug.
package search

import (
	"fmt"
	"sort"

	"github.com/notargets/remap"
)

// KDTreeSearch finds candidate source entities for target entities of
// one kind on one mesh pair.
type KDTreeSearch struct {
	Source remap.Mesh
	Target remap.Mesh
	Kind   remap.EntityKind

	root *kdNode
}

// NewKDTreeSearch builds the search index over all source entities of
// the given kind.
func NewKDTreeSearch(source, target remap.Mesh, kind remap.EntityKind) (*KDTreeSearch, error) {
	if source.Dim() != target.Dim() {
		return nil, fmt.Errorf("search: source dim %d != target dim %d", source.Dim(), target.Dim())
	}
	n := source.NumEntities(kind)
	entries := make([]kdEntry, 0, n)
	for id := 0; id < n; id++ {
		ring := source.EntityRing(kind, id)
		if len(ring) == 0 {
			continue
		}
		entries = append(entries, kdEntry{
			id:     id,
			box:    ring.Bounds(),
			center: source.EntityCentroid(kind, id),
		})
	}
	return &KDTreeSearch{
		Source: source,
		Target: target,
		Kind:   kind,
		root:   buildTree(entries, 0),
	}, nil
}

// Search returns the candidate source ids for one target entity, sorted
// ascending so downstream weight lists are deterministic. The list may
// be empty when the target lies outside the source domain.
func (s *KDTreeSearch) Search(targetID int) []int {
	ring := s.Target.EntityRing(s.Kind, targetID)
	if len(ring) == 0 {
		return nil
	}
	out := s.root.query(ring.Bounds(), nil)
	sort.Ints(out)
	return out
}

// SearchAll runs the candidate search for every target entity of the
// kind, parallelized over entities.
func (s *KDTreeSearch) SearchAll(ex remap.Executor) ([][]int, error) {
	n := s.Target.NumEntities(s.Kind)
	candidates := make([][]int, n)
	err := remap.ParallelFor(ex, n, func(i int) error {
		candidates[i] = s.Search(i)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return candidates, nil
}
