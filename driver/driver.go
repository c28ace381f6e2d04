// Package driver stages the remap pipeline over one (source mesh,
// target mesh) pair: candidate search, intersection, interpolation and
// conservation repair, for cell- and node-centered fields. Intersection
// weights are computed once per kind and reused across every field
// interpolation until search or intersection is re-run.
package driver

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/notargets/remap"
	"github.com/notargets/remap/fixup"
	"github.com/notargets/remap/geometry"
	"github.com/notargets/remap/intersect"
	"github.com/notargets/remap/interpolate"
)

var (
	// ErrNotSearched is returned when intersection is requested before
	// candidate search for the entity kind.
	ErrNotSearched = errors.New("driver: search has not been run")
	// ErrNotIntersected is returned when interpolation is requested
	// before intersection for the entity kind.
	ErrNotIntersected = errors.New("driver: intersection has not been run")
	// ErrUnknownVariable is returned for fields outside the configured
	// remap variable list.
	ErrUnknownVariable = errors.New("driver: variable not in remap list")
	// ErrDimensionMismatch is returned when source and target meshes
	// disagree on space dimension.
	ErrDimensionMismatch = errors.New("driver: source and target dimensions differ")
	// ErrDistributedUnsupported is returned at construction when a
	// distributed executor is configured without a redistributor.
	ErrDistributedUnsupported = errors.New("driver: distributed run requires a redistributor")
)

// Config assembles a Driver. SourceMesh, TargetMesh, SourceState and
// TargetState are required; everything else has working defaults.
type Config struct {
	SourceMesh  remap.Mesh
	SourceState remap.State
	TargetMesh  remap.Mesh
	TargetState remap.State

	// Variables lists the source fields to remap. Empty means every
	// field registered in the source state.
	Variables []string

	// AllConvex asserts all control volumes are convex, enabling the
	// single-pass clip path in the geometry kernel.
	AllConvex bool

	// CoordSys selects planar or axisymmetric moments.
	CoordSys geometry.CoordSys

	// Executor selects serial or parallel execution of the per-entity
	// loops. Nil means serial.
	Executor remap.Executor

	// Redistributor gathers a locally complete source view on
	// distributed runs. Required when Executor is distributed.
	Redistributor remap.Redistributor

	// Reconstructor supplies per-material sub-polygons. Required only
	// when multi-material fields are remapped; nil disables the
	// material intersection path.
	Reconstructor remap.InterfaceReconstructor

	// SkipMismatchCheck disables coverage mismatch detection (and with
	// it, fixup).
	SkipMismatchCheck bool

	// Tolerances overrides the default numeric tolerances when
	// non-zero.
	Tolerances remap.NumericTolerances

	Logger *zap.Logger
}

// Driver is the user-facing remap pipeline over one mesh pair. It owns
// one core driver per entity kind carrying remapped fields.
type Driver struct {
	sourceMesh  remap.Mesh
	sourceState remap.State
	targetMesh  remap.Mesh
	targetState remap.State

	vars          []string
	checkMismatch bool
	tols          remap.NumericTolerances
	ex            remap.Executor
	log           *zap.Logger
	reconstructor remap.InterfaceReconstructor

	cores        map[remap.EntityKind]*coreDriver
	hasMultiMat  bool
	weightsByMat [][]remap.Weights
	matDone      bool
}

// New validates the configuration, applies distributed-mode
// redistribution when configured, scans the variable list for entity
// kinds and field types, and instantiates one core driver per kind.
func New(cfg Config) (*Driver, error) {
	if cfg.SourceMesh == nil || cfg.TargetMesh == nil || cfg.SourceState == nil || cfg.TargetState == nil {
		return nil, fmt.Errorf("driver: source/target mesh and state are required")
	}
	if cfg.SourceMesh.Dim() != cfg.TargetMesh.Dim() {
		return nil, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch,
			cfg.SourceMesh.Dim(), cfg.TargetMesh.Dim())
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ex := cfg.Executor
	if ex == nil {
		ex = remap.SerialExecutor{}
	}
	tols := cfg.Tolerances
	if tols == (remap.NumericTolerances{}) {
		tols = remap.DefaultNumericTolerances()
	}

	sourceMesh, sourceState := cfg.SourceMesh, cfg.SourceState
	if _, distributed := ex.(remap.DistributedExecutor); distributed {
		if cfg.Redistributor == nil {
			return nil, ErrDistributedUnsupported
		}
		var err error
		sourceMesh, sourceState, err = cfg.Redistributor.Redistribute(sourceMesh, sourceState, cfg.TargetMesh)
		if err != nil {
			return nil, fmt.Errorf("driver: redistribution failed: %w", err)
		}
	}

	vars := cfg.Variables
	if len(vars) == 0 {
		vars = sourceState.Names()
	}

	d := &Driver{
		sourceMesh:    sourceMesh,
		sourceState:   sourceState,
		targetMesh:    cfg.TargetMesh,
		targetState:   cfg.TargetState,
		vars:          vars,
		checkMismatch: !cfg.SkipMismatchCheck,
		tols:          tols,
		ex:            ex,
		log:           log,
		reconstructor: cfg.Reconstructor,
		cores:         make(map[remap.EntityKind]*coreDriver),
	}

	for _, name := range vars {
		kind, err := sourceState.FieldKind(name)
		if err != nil {
			return nil, fmt.Errorf("driver: variable %q: %w", name, err)
		}
		ft, err := sourceState.FieldType(name)
		if err != nil {
			return nil, fmt.Errorf("driver: variable %q: %w", name, err)
		}
		if ft == remap.MultiMaterialField {
			if kind != remap.Cell {
				return nil, fmt.Errorf("driver: material variable %q on %s entities not supported", name, kind)
			}
			d.hasMultiMat = true
		}
		if _, ok := d.cores[kind]; !ok {
			d.cores[kind] = &coreDriver{
				kind:        kind,
				sourceMesh:  sourceMesh,
				targetMesh:  cfg.TargetMesh,
				sourceState: sourceState,
				allConvex:   cfg.AllConvex,
				coordSys:    cfg.CoordSys,
				tols:        tols,
				ex:          ex,
				log:         log,
			}
		}
	}
	if d.hasMultiMat && d.reconstructor == nil {
		return nil, fmt.Errorf("driver: multi-material variables require an interface reconstructor")
	}
	return d, nil
}

// SetNumTols replaces the numeric tolerances on the driver and all core
// drivers.
func (d *Driver) SetNumTols(tols remap.NumericTolerances) {
	d.tols = tols
	for _, cd := range d.cores {
		cd.tols = tols
	}
}

// SetCheckMismatch enables or disables coverage mismatch detection for
// subsequent weight computation.
func (d *Driver) SetCheckMismatch(check bool) {
	d.checkMismatch = check
}

// ComputeInterpolationWeights runs search and intersection for every
// entity kind carrying remapped fields, caches the weights, and (unless
// disabled) the mismatch record for each kind. Material weights are
// computed when multi-material variables are configured.
func (d *Driver) ComputeInterpolationWeights() error {
	for _, cd := range d.cores {
		if err := cd.runSearch(); err != nil {
			return err
		}
		if err := cd.runIntersect(); err != nil {
			return err
		}
		// The mismatch record must be cached before any interpolation
		// with fixup, and it needs exactly the weights just computed.
		if d.checkMismatch {
			if err := cd.checkMismatch(); err != nil {
				return err
			}
		}
	}

	if d.hasMultiMat {
		if err := d.intersectMaterials(); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) intersectMaterials() error {
	cd, ok := d.cores[remap.Cell]
	if !ok {
		return fmt.Errorf("driver: material intersection without a cell pipeline")
	}
	mmState, ok := d.sourceState.(remap.MultiMaterialState)
	if !ok {
		return fmt.Errorf("driver: source state does not carry materials")
	}

	ix := intersect.NewMeshIntersect(d.sourceMesh, d.targetMesh, remap.Cell, cd.allConvex)
	ix.CoordSys = cd.coordSys
	ix.Tols = d.tols
	mx, err := intersect.NewMaterialIntersect(ix, d.reconstructor, mmState.NumMaterials())
	if err != nil {
		return err
	}
	d.weightsByMat, err = mx.IntersectAll(d.ex, cd.candidates)
	if err != nil {
		return err
	}
	d.matDone = true
	return nil
}

// InterpolateOptions selects reconstruction order, limiting and fixup
// behavior for one interpolation. Start from DefaultInterpolateOptions;
// the zero value clamps everything to [0, 0].
type InterpolateOptions struct {
	Order           int
	Limiter         remap.Limiter
	BoundaryLimiter remap.BoundaryLimiter

	// Fixup opts in to conservation repair when a mismatch was
	// detected.
	Fixup   bool
	Partial remap.PartialFixup
	Empty   remap.EmptyFixup

	LowerBound, UpperBound float64

	// ConservationTol and MaxFixupIter override the driver tolerances
	// when non-zero.
	ConservationTol float64
	MaxFixupIter    int
}

// DefaultInterpolateOptions returns piecewise-constant remap with
// unbounded, locally conservative fixup enabled.
func DefaultInterpolateOptions() InterpolateOptions {
	return InterpolateOptions{
		Order:      0,
		Fixup:      true,
		Partial:    remap.PartialLocallyConservative,
		Empty:      remap.EmptyExtrapolate,
		LowerBound: math.Inf(-1),
		UpperBound: math.Inf(1),
	}
}

// Interpolate remaps one variable onto the target state under the same
// name.
func (d *Driver) Interpolate(name string, opts InterpolateOptions) (fixup.Diagnostics, error) {
	return d.InterpolateTo(name, name, opts)
}

// InterpolateTo remaps source variable srcvar onto target variable
// trgvar using the previously computed weights for the field's entity
// kind, running conservation repair when a mismatch was detected and
// opts.Fixup is set. The returned diagnostics carry the repair residual;
// iteration exhaustion is reported there, not as an error.
func (d *Driver) InterpolateTo(srcvar, trgvar string, opts InterpolateOptions) (fixup.Diagnostics, error) {
	if !d.hasVariable(srcvar) {
		return fixup.Diagnostics{}, fmt.Errorf("%w: %q", ErrUnknownVariable, srcvar)
	}
	kind, err := d.sourceState.FieldKind(srcvar)
	if err != nil {
		return fixup.Diagnostics{}, err
	}
	ft, err := d.sourceState.FieldType(srcvar)
	if err != nil {
		return fixup.Diagnostics{}, err
	}
	if ft == remap.MultiMaterialField {
		return fixup.Diagnostics{}, d.interpolateMatVar(srcvar, trgvar)
	}

	cd, ok := d.cores[kind]
	if !ok || cd.state < stageIntersected {
		return fixup.Diagnostics{}, fmt.Errorf("%w: %s entities", ErrNotIntersected, kind)
	}

	values, err := d.sourceState.Field(srcvar)
	if err != nil {
		return fixup.Diagnostics{}, err
	}
	target, err := cd.interpolateMeshVar(values, opts)
	if err != nil {
		return fixup.Diagnostics{}, err
	}

	var diag fixup.Diagnostics
	if d.checkMismatch && opts.Fixup && cd.mismatch != nil && cd.mismatch.HasMismatch() {
		diag, err = cd.fixMismatch(target, values, opts)
		if err != nil {
			return fixup.Diagnostics{}, err
		}
	}

	if err := d.targetState.SetField(trgvar, kind, target); err != nil {
		return fixup.Diagnostics{}, err
	}
	return diag, nil
}

// InterpolateVector remaps the component fields of a vector variable
// through the scalar path, componentwise.
func (d *Driver) InterpolateVector(components []string, opts InterpolateOptions) ([]fixup.Diagnostics, error) {
	diags := make([]fixup.Diagnostics, len(components))
	for i, name := range components {
		var err error
		diags[i], err = d.Interpolate(name, opts)
		if err != nil {
			return nil, fmt.Errorf("component %q: %w", name, err)
		}
	}
	return diags, nil
}

// interpolateMatVar remaps one material variable per material onto the
// target state using the cached material weights.
func (d *Driver) interpolateMatVar(srcvar, trgvar string) error {
	if !d.matDone {
		return fmt.Errorf("%w: materials", ErrNotIntersected)
	}
	mmSource, ok := d.sourceState.(remap.MultiMaterialState)
	if !ok {
		return fmt.Errorf("driver: source state does not carry materials")
	}
	mmTarget, ok := d.targetState.(remap.MultiMaterialState)
	if !ok {
		return fmt.Errorf("driver: target state does not carry materials")
	}

	mv := &interpolate.MatVar{Source: d.sourceMesh}
	for m := 0; m < mmSource.NumMaterials(); m++ {
		values, err := mmSource.MatField(srcvar, m)
		if err != nil {
			return err
		}
		out, err := mv.Interpolate(d.ex, values, d.weightsByMat[m])
		if err != nil {
			return err
		}
		if err := mmTarget.SetMatField(trgvar, m, out); err != nil {
			return err
		}
	}
	return nil
}

// MismatchRecord exposes the cached mismatch record for an entity kind,
// nil when not yet checked.
func (d *Driver) MismatchRecord(kind remap.EntityKind) *fixup.Record {
	if cd, ok := d.cores[kind]; ok {
		return cd.mismatch
	}
	return nil
}

func (d *Driver) hasVariable(name string) bool {
	for _, v := range d.vars {
		if v == name {
			return true
		}
	}
	return false
}
