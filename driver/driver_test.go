package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/remap"
	"github.com/notargets/remap/geometry"
	"github.com/notargets/remap/structured"
)

func newDriver(t *testing.T, cfg Config) *Driver {
	t.Helper()
	d, err := New(cfg)
	require.NoError(t, err)
	return d
}

func TestConstantFieldRemapExact(t *testing.T) {
	source := structured.UnitSquare(4, 4)
	target := structured.UnitSquare(5, 5)
	sourceState := structured.NewState()
	sourceState.AddField("temperature", remap.Cell,
		source.EvalAtCentroids(remap.Cell, func(x, y float64) float64 { return 1.25 }))
	targetState := structured.NewState()

	d := newDriver(t, Config{
		SourceMesh: source, SourceState: sourceState,
		TargetMesh: target, TargetState: targetState,
		AllConvex: true,
	})
	require.NoError(t, d.ComputeInterpolationWeights())

	rec := d.MismatchRecord(remap.Cell)
	require.NotNil(t, rec)
	assert.False(t, rec.HasMismatch())

	diag, err := d.Interpolate("temperature", DefaultInterpolateOptions())
	require.NoError(t, err)
	assert.Zero(t, diag.Iterations)

	out, err := targetState.Field("temperature")
	require.NoError(t, err)
	require.Len(t, out, target.NumEntities(remap.Cell))
	for i, v := range out {
		assert.InDelta(t, 1.25, v, 1e-12, "target cell %d", i)
	}
}

func TestLinearFieldOrder1Exact(t *testing.T) {
	source := structured.UnitSquare(2, 2)
	target := structured.UnitSquare(4, 4)
	sourceState := structured.NewState()
	sourceState.AddField("phi", remap.Cell,
		source.EvalAtCentroids(remap.Cell, func(x, y float64) float64 { return x + y }))
	targetState := structured.NewState()

	d := newDriver(t, Config{
		SourceMesh: source, SourceState: sourceState,
		TargetMesh: target, TargetState: targetState,
		AllConvex: true,
	})
	require.NoError(t, d.ComputeInterpolationWeights())

	opts := DefaultInterpolateOptions()
	opts.Order = 1
	opts.Limiter = remap.NoLimiter
	opts.BoundaryLimiter = remap.BoundaryNoLimiter
	_, err := d.Interpolate("phi", opts)
	require.NoError(t, err)

	out, err := targetState.Field("phi")
	require.NoError(t, err)
	for i, v := range out {
		c := target.EntityCentroid(remap.Cell, i)
		assert.InDelta(t, c[0]+c[1], v, 1e-12, "target cell %d", i)
	}
}

func TestMismatchedDomainsConservedAfterFixup(t *testing.T) {
	// Source covers [0,1]x[0,1]; the target extends to x = 1.25, so its
	// last column is empty and the total volume is 25% larger.
	source := structured.UnitSquare(4, 4)
	target, err := structured.NewRectMesh(5, 5, 0, 0, 1.25, 1)
	require.NoError(t, err)

	sourceState := structured.NewState()
	sourceState.AddField("density", remap.Cell,
		source.EvalAtCentroids(remap.Cell, func(x, y float64) float64 { return 1.0 }))
	targetState := structured.NewState()

	d := newDriver(t, Config{
		SourceMesh: source, SourceState: sourceState,
		TargetMesh: target, TargetState: targetState,
		AllConvex: true,
	})
	require.NoError(t, d.ComputeInterpolationWeights())

	rec := d.MismatchRecord(remap.Cell)
	require.NotNil(t, rec)
	assert.True(t, rec.HasMismatch())
	assert.Len(t, rec.Empty, 5)

	diag, err := d.Interpolate("density", DefaultInterpolateOptions())
	require.NoError(t, err)
	assert.True(t, diag.Converged)

	out, err := targetState.Field("density")
	require.NoError(t, err)
	integral := 0.0
	for i, v := range out {
		integral += v * target.EntityVolume(remap.Cell, i)
		assert.InDelta(t, 0.8, v, 1e-12, "target cell %d", i)
	}
	assert.InDelta(t, 1.0, integral, 1e-12, "source integral preserved")
}

func TestSkipMismatchCheckLeavesEmptiesAtDefault(t *testing.T) {
	source := structured.UnitSquare(4, 4)
	target, err := structured.NewRectMesh(5, 5, 0, 0, 1.25, 1)
	require.NoError(t, err)

	sourceState := structured.NewState()
	sourceState.AddField("density", remap.Cell,
		source.EvalAtCentroids(remap.Cell, func(x, y float64) float64 { return 1.0 }))
	targetState := structured.NewState()

	d := newDriver(t, Config{
		SourceMesh: source, SourceState: sourceState,
		TargetMesh: target, TargetState: targetState,
		AllConvex:         true,
		SkipMismatchCheck: true,
	})
	require.NoError(t, d.ComputeInterpolationWeights())
	assert.Nil(t, d.MismatchRecord(remap.Cell))

	_, err = d.Interpolate("density", DefaultInterpolateOptions())
	require.NoError(t, err)

	out, err := targetState.Field("density")
	require.NoError(t, err)
	for _, i := range []int{4, 9, 14, 19, 24} {
		assert.Zero(t, out[i], "uncovered cell %d", i)
	}
}

func TestInterpolateToDifferentName(t *testing.T) {
	mesh := structured.UnitSquare(3, 3)
	sourceState := structured.NewState()
	sourceState.AddField("pressure", remap.Cell,
		mesh.EvalAtCentroids(remap.Cell, func(x, y float64) float64 { return 2.0 }))
	targetState := structured.NewState()

	d := newDriver(t, Config{
		SourceMesh: mesh, SourceState: sourceState,
		TargetMesh: mesh, TargetState: targetState,
		AllConvex: true,
	})
	require.NoError(t, d.ComputeInterpolationWeights())

	_, err := d.InterpolateTo("pressure", "pressure_new", DefaultInterpolateOptions())
	require.NoError(t, err)

	out, err := targetState.Field("pressure_new")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, out[0], 1e-12)
	_, err = targetState.Field("pressure")
	assert.Error(t, err, "source name must not appear on the target")
}

func TestInterpolateVectorComponentwise(t *testing.T) {
	source := structured.UnitSquare(3, 3)
	target := structured.UnitSquare(4, 4)
	sourceState := structured.NewState()
	sourceState.AddField("vx", remap.Cell,
		source.EvalAtCentroids(remap.Cell, func(x, y float64) float64 { return x }))
	sourceState.AddField("vy", remap.Cell,
		source.EvalAtCentroids(remap.Cell, func(x, y float64) float64 { return y }))
	targetState := structured.NewState()

	d := newDriver(t, Config{
		SourceMesh: source, SourceState: sourceState,
		TargetMesh: target, TargetState: targetState,
		AllConvex: true,
	})
	require.NoError(t, d.ComputeInterpolationWeights())

	opts := DefaultInterpolateOptions()
	opts.Order = 1
	opts.Limiter = remap.NoLimiter
	opts.BoundaryLimiter = remap.BoundaryNoLimiter
	diags, err := d.InterpolateVector([]string{"vx", "vy"}, opts)
	require.NoError(t, err)
	require.Len(t, diags, 2)

	vx, err := targetState.Field("vx")
	require.NoError(t, err)
	vy, err := targetState.Field("vy")
	require.NoError(t, err)
	for i := range vx {
		c := target.EntityCentroid(remap.Cell, i)
		assert.InDelta(t, c[0], vx[i], 1e-12, "vx at cell %d", i)
		assert.InDelta(t, c[1], vy[i], 1e-12, "vy at cell %d", i)
	}
}

func TestNodeCenteredFieldRemap(t *testing.T) {
	source := structured.UnitSquare(3, 3)
	target := structured.UnitSquare(4, 4)
	sourceState := structured.NewState()
	sourceState.AddField("displacement", remap.Node,
		source.EvalAtCentroids(remap.Node, func(x, y float64) float64 { return 3.5 }))
	targetState := structured.NewState()

	d := newDriver(t, Config{
		SourceMesh: source, SourceState: sourceState,
		TargetMesh: target, TargetState: targetState,
		AllConvex: true,
	})
	require.NoError(t, d.ComputeInterpolationWeights())

	rec := d.MismatchRecord(remap.Node)
	require.NotNil(t, rec)
	assert.False(t, rec.HasMismatch(), "dual cells tile the same domain")

	_, err := d.Interpolate("displacement", DefaultInterpolateOptions())
	require.NoError(t, err)

	out, err := targetState.Field("displacement")
	require.NoError(t, err)
	require.Len(t, out, target.NumEntities(remap.Node))
	for i, v := range out {
		assert.InDelta(t, 3.5, v, 1e-12, "target node %d", i)
	}
}

// halfSplit assigns material 0 to x < X and material 1 to x > X in
// every cell.
type halfSplit struct {
	mesh remap.Mesh
	X    float64
}

func (r halfSplit) MaterialPolygons(cell, mat int) ([]geometry.Polygon, error) {
	ring := r.mesh.EntityRing(remap.Cell, cell)
	pl := geometry.Plane{N: geometry.Vector{-1, 0}, D: r.X}
	if mat == 1 {
		pl = geometry.Plane{N: geometry.Vector{1, 0}, D: -r.X}
	}
	clipped := geometry.ClipPlane(ring, pl)
	if clipped == nil {
		return nil, nil
	}
	return []geometry.Polygon{clipped}, nil
}

func TestMultiMaterialRemap(t *testing.T) {
	source := structured.UnitSquare(4, 4)
	target := structured.UnitSquare(5, 5)

	nc := source.NumEntities(remap.Cell)
	rho := make([][]float64, 2)
	for m := range rho {
		rho[m] = make([]float64, nc)
		for i := range rho[m] {
			rho[m][i] = float64(m + 1)
		}
	}
	sourceState := structured.NewMultiMaterialState(2)
	sourceState.AddMatField("rho", rho)
	targetState := structured.NewMultiMaterialState(2)

	d := newDriver(t, Config{
		SourceMesh: source, SourceState: sourceState,
		TargetMesh: target, TargetState: targetState,
		AllConvex:     true,
		Reconstructor: halfSplit{mesh: source, X: 0.5},
	})
	require.NoError(t, d.ComputeInterpolationWeights())

	_, err := d.Interpolate("rho", DefaultInterpolateOptions())
	require.NoError(t, err)

	// Target cell 0 sits left of the split: material 0 only.
	m0, err := targetState.MatField("rho", 0)
	require.NoError(t, err)
	m1, err := targetState.MatField("rho", 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, m0[0], 1e-12)
	assert.Zero(t, m1[0])
	// The last cell of the bottom row sits right of the split.
	assert.Zero(t, m0[4])
	assert.InDelta(t, 2.0, m1[4], 1e-12)
}

func TestMultiMaterialRequiresReconstructor(t *testing.T) {
	mesh := structured.UnitSquare(2, 2)
	state := structured.NewMultiMaterialState(1)
	state.AddMatField("rho", [][]float64{make([]float64, 4)})

	_, err := New(Config{
		SourceMesh: mesh, SourceState: state,
		TargetMesh: mesh, TargetState: structured.NewMultiMaterialState(1),
	})
	assert.Error(t, err)
}

func TestInterpolateBeforeWeightsRejected(t *testing.T) {
	mesh := structured.UnitSquare(2, 2)
	state := structured.NewState()
	state.AddField("u", remap.Cell, make([]float64, 4))

	d := newDriver(t, Config{
		SourceMesh: mesh, SourceState: state,
		TargetMesh: mesh, TargetState: structured.NewState(),
	})
	_, err := d.Interpolate("u", DefaultInterpolateOptions())
	assert.ErrorIs(t, err, ErrNotIntersected)
}

func TestUnknownVariableRejected(t *testing.T) {
	mesh := structured.UnitSquare(2, 2)
	state := structured.NewState()
	state.AddField("u", remap.Cell, make([]float64, 4))

	d := newDriver(t, Config{
		SourceMesh: mesh, SourceState: state,
		TargetMesh: mesh, TargetState: structured.NewState(),
		Variables:  []string{"u"},
	})
	require.NoError(t, d.ComputeInterpolationWeights())
	_, err := d.Interpolate("v", DefaultInterpolateOptions())
	assert.ErrorIs(t, err, ErrUnknownVariable)
}

func TestDistributedRequiresRedistributor(t *testing.T) {
	mesh := structured.UnitSquare(2, 2)
	state := structured.NewState()
	state.AddField("u", remap.Cell, make([]float64, 4))

	_, err := New(Config{
		SourceMesh: mesh, SourceState: state,
		TargetMesh: mesh, TargetState: structured.NewState(),
		Executor:   remap.DistributedExecutor{Local: remap.SerialExecutor{}, Ranks: 4},
	})
	assert.ErrorIs(t, err, ErrDistributedUnsupported)
}

type dim3Mesh struct{ *structured.RectMesh }

func (dim3Mesh) Dim() int { return 3 }

func TestDimensionMismatchRejected(t *testing.T) {
	mesh := structured.UnitSquare(2, 2)
	state := structured.NewState()
	state.AddField("u", remap.Cell, make([]float64, 4))

	_, err := New(Config{
		SourceMesh: mesh, SourceState: state,
		TargetMesh: dim3Mesh{mesh}, TargetState: structured.NewState(),
	})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestVariablesDefaultToAllSourceFields(t *testing.T) {
	mesh := structured.UnitSquare(2, 2)
	state := structured.NewState()
	state.AddField("a", remap.Cell, mesh.EvalAtCentroids(remap.Cell, func(x, y float64) float64 { return 1 }))
	state.AddField("b", remap.Node, mesh.EvalAtCentroids(remap.Node, func(x, y float64) float64 { return 2 }))
	targetState := structured.NewState()

	d := newDriver(t, Config{
		SourceMesh: mesh, SourceState: state,
		TargetMesh: mesh, TargetState: targetState,
		AllConvex: true,
	})
	require.NoError(t, d.ComputeInterpolationWeights())

	_, err := d.Interpolate("a", DefaultInterpolateOptions())
	require.NoError(t, err)
	_, err = d.Interpolate("b", DefaultInterpolateOptions())
	require.NoError(t, err)

	a, err := targetState.Field("a")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, a[0], 1e-12)
	b, err := targetState.Field("b")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, b[0], 1e-12)
}
