package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/remap"
	"github.com/notargets/remap/geometry"
	"github.com/notargets/remap/structured"
)

func TestCandidatesAreSupersetOfTrueOverlaps(t *testing.T) {
	source := structured.UnitSquare(4, 4)
	target := structured.UnitSquare(5, 5)

	s, err := NewKDTreeSearch(source, target, remap.Cell)
	require.NoError(t, err)

	opts := geometry.IntersectOptions{TargetConvex: true, DistTol: 1e-12}
	for trg := 0; trg < target.NumEntities(remap.Cell); trg++ {
		candidates := s.Search(trg)
		inList := make(map[int]bool, len(candidates))
		for _, id := range candidates {
			inList[id] = true
		}

		// every source cell with a true geometric overlap must appear
		trgRing := target.EntityRing(remap.Cell, trg)
		for src := 0; src < source.NumEntities(remap.Cell); src++ {
			m, err := geometry.IntersectPolys(source.EntityRing(remap.Cell, src), trgRing, opts)
			require.NoError(t, err)
			if m[0] > 1e-12 {
				assert.True(t, inList[src], "target %d missing true overlap %d", trg, src)
			}
		}
	}
}

func TestCandidatesSortedAndDeterministic(t *testing.T) {
	source := structured.UnitSquare(8, 8)
	target := structured.UnitSquare(3, 3)

	s, err := NewKDTreeSearch(source, target, remap.Cell)
	require.NoError(t, err)

	first := s.Search(4)
	require.NotEmpty(t, first)
	for i := 1; i < len(first); i++ {
		assert.Less(t, first[i-1], first[i], "candidates must be ascending")
	}
	assert.Equal(t, first, s.Search(4), "repeated query must be identical")
}

func TestTargetOutsideSourceDomain(t *testing.T) {
	source := structured.UnitSquare(4, 4)
	far, err := structured.NewRectMesh(2, 2, 10, 10, 12, 12)
	require.NoError(t, err)

	s, err := NewKDTreeSearch(source, far, remap.Cell)
	require.NoError(t, err)
	assert.Empty(t, s.Search(0))
}

func TestSearchAllNodeKind(t *testing.T) {
	source := structured.UnitSquare(3, 3)
	target := structured.UnitSquare(4, 4)

	s, err := NewKDTreeSearch(source, target, remap.Node)
	require.NoError(t, err)
	candidates, err := s.SearchAll(remap.ParallelExecutor{Workers: 4})
	require.NoError(t, err)

	require.Len(t, candidates, target.NumEntities(remap.Node))
	for i, c := range candidates {
		assert.NotEmpty(t, c, "node %d has no candidates", i)
	}
}

func TestDimensionMismatchRejected(t *testing.T) {
	// RectMesh is always 2D, so exercise the guard through a stub.
	src := structured.UnitSquare(2, 2)
	_, err := NewKDTreeSearch(src, dim3Mesh{src}, remap.Cell)
	assert.Error(t, err)
}

type dim3Mesh struct{ *structured.RectMesh }

func (dim3Mesh) Dim() int { return 3 }
