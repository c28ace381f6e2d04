package driver

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/notargets/remap"
	"github.com/notargets/remap/fixup"
	"github.com/notargets/remap/geometry"
	"github.com/notargets/remap/intersect"
	"github.com/notargets/remap/interpolate"
	"github.com/notargets/remap/search"
)

// stage tracks per-(mesh pair, entity kind) pipeline progress so later
// stages can assert correct call order.
type stage uint8

const (
	stageNone stage = iota
	stageSearched
	stageIntersected
)

// coreDriver runs the remap pipeline for one entity kind. The cell and
// node pipelines are two instances of this one type.
type coreDriver struct {
	kind        remap.EntityKind
	sourceMesh  remap.Mesh
	targetMesh  remap.Mesh
	sourceState remap.State

	allConvex bool
	coordSys  geometry.CoordSys
	tols      remap.NumericTolerances
	ex        remap.Executor
	log       *zap.Logger

	state      stage
	candidates [][]int
	weights    []remap.Weights
	mismatch   *fixup.Record
}

// runSearch builds the spatial index and candidate lists, marking the
// kind as searched. Re-running invalidates cached weights and the
// mismatch record.
func (cd *coreDriver) runSearch() error {
	s, err := search.NewKDTreeSearch(cd.sourceMesh, cd.targetMesh, cd.kind)
	if err != nil {
		return err
	}
	cd.candidates, err = s.SearchAll(cd.ex)
	if err != nil {
		return err
	}
	cd.state = stageSearched
	cd.weights = nil
	cd.mismatch = nil
	cd.log.Debug("search completed",
		zap.String("kind", cd.kind.String()),
		zap.Int("targets", len(cd.candidates)))
	return nil
}

// runIntersect filters candidates into weight lists. Search must have
// completed for this kind.
func (cd *coreDriver) runIntersect() error {
	if cd.state < stageSearched {
		return fmt.Errorf("%w: %s entities", ErrNotSearched, cd.kind)
	}
	ix := intersect.NewMeshIntersect(cd.sourceMesh, cd.targetMesh, cd.kind, cd.allConvex)
	ix.CoordSys = cd.coordSys
	ix.Tols = cd.tols

	weights, err := ix.IntersectAll(cd.ex, cd.candidates)
	if err != nil {
		return err
	}
	cd.weights = weights
	cd.state = stageIntersected
	cd.mismatch = nil
	cd.log.Debug("intersection completed", zap.String("kind", cd.kind.String()))
	return nil
}

// checkMismatch computes and caches the mismatch record. Called exactly
// once per intersect cycle, immediately after intersection, so the
// record exists before any interpolation with fixup.
func (cd *coreDriver) checkMismatch() error {
	if cd.state < stageIntersected {
		return fmt.Errorf("%w: %s entities", ErrNotIntersected, cd.kind)
	}
	rec, err := fixup.CheckMismatch(cd.targetMesh, cd.kind, cd.weights, cd.tols)
	if err != nil {
		return err
	}
	cd.mismatch = rec
	if rec.HasMismatch() {
		cd.log.Debug("coverage mismatch detected",
			zap.String("kind", cd.kind.String()),
			zap.Int("partial", len(rec.Partial)),
			zap.Int("empty", len(rec.Empty)))
	}
	return nil
}

// interpolateMeshVar produces target values for one source field at the
// requested order, computing limited gradients on demand for order 1.
func (cd *coreDriver) interpolateMeshVar(values []float64, opts InterpolateOptions) ([]float64, error) {
	if cd.state < stageIntersected {
		return nil, fmt.Errorf("%w: %s entities", ErrNotIntersected, cd.kind)
	}

	mv, err := interpolate.NewMeshVar(cd.sourceMesh, cd.kind, opts.Order)
	if err != nil {
		return nil, err
	}

	var gradients []geometry.Vector
	if opts.Order == 1 {
		gradients, err = interpolate.ComputeGradients(cd.ex, cd.sourceMesh, cd.kind,
			values, opts.Limiter, opts.BoundaryLimiter)
		if err != nil {
			return nil, err
		}
	}
	return mv.Interpolate(cd.ex, values, cd.weights, gradients)
}

// fixMismatch repairs target values in place against the source
// integral of the field.
func (cd *coreDriver) fixMismatch(target, source []float64, opts InterpolateOptions) (fixup.Diagnostics, error) {
	fixer, err := fixup.NewFixer(cd.targetMesh, cd.kind, cd.mismatch, cd.log)
	if err != nil {
		return fixup.Diagnostics{}, err
	}

	integral := 0.0
	for i, v := range source {
		integral += v * cd.sourceMesh.EntityVolume(cd.kind, i)
	}

	fopts := fixup.Options{
		Partial:         opts.Partial,
		Empty:           opts.Empty,
		LowerBound:      opts.LowerBound,
		UpperBound:      opts.UpperBound,
		ConservationTol: opts.ConservationTol,
		MaxIter:         opts.MaxFixupIter,
	}
	if fopts.ConservationTol == 0 {
		fopts.ConservationTol = cd.tols.RelativeConservationEps
	}
	if fopts.MaxIter == 0 {
		fopts.MaxIter = cd.tols.MaxFixupIterations
	}
	return fixer.Fix(target, cd.weights, integral, fopts)
}
