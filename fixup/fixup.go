package fixup

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/remap"
)

// Options selects the repair policies and bounds for one field.
type Options struct {
	Partial remap.PartialFixup
	Empty   remap.EmptyFixup

	// LowerBound and UpperBound are the physical bounds clamped at
	// every repair step.
	LowerBound, UpperBound float64

	// ConservationTol is the relative tolerance on the source/target
	// integral discrepancy.
	ConservationTol float64

	// MaxIter caps the global repair loop. Exhaustion is a diagnostic,
	// not an error.
	MaxIter int
}

// DefaultOptions returns unbounded repair with the package default
// tolerances.
func DefaultOptions(tols remap.NumericTolerances) Options {
	return Options{
		Partial:         remap.PartialLocallyConservative,
		Empty:           remap.EmptyExtrapolate,
		LowerBound:      math.Inf(-1),
		UpperBound:      math.Inf(1),
		ConservationTol: tols.RelativeConservationEps,
		MaxIter:         tols.MaxFixupIterations,
	}
}

// Diagnostics reports the outcome of a repair pass.
type Diagnostics struct {
	Converged  bool
	Iterations int
	// Residual is the remaining absolute discrepancy between the
	// target integral and the source integral.
	Residual float64
}

// Fixer repairs one entity kind of one mesh pair using a cached
// mismatch record.
type Fixer struct {
	Target remap.Mesh
	Kind   remap.EntityKind
	Record *Record
	Log    *zap.Logger
}

// NewFixer wires a fixer to a checked mismatch record. A nil logger is
// replaced by a no-op logger.
func NewFixer(target remap.Mesh, kind remap.EntityKind, rec *Record, log *zap.Logger) (*Fixer, error) {
	if rec == nil || rec.State == NotChecked {
		return nil, fmt.Errorf("fixup: mismatch has not been checked for %s entities", kind)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Fixer{Target: target, Kind: kind, Record: rec, Log: log}, nil
}

// Fix repairs values in place: local fill of partial and empty entities
// per the selected policies, then iterative globally-conservative
// redistribution against the known source integral. Values of fully
// covered entities move only during global repair. Fix is idempotent
// only when the field is already converged.
func (f *Fixer) Fix(values []float64, weights []remap.Weights, sourceIntegral float64, opts Options) (Diagnostics, error) {
	n := f.Target.NumEntities(f.Kind)
	if len(values) != n {
		return Diagnostics{}, fmt.Errorf("fixup: %d values for %d target %ss", len(values), n, f.Kind)
	}
	if opts.UpperBound < opts.LowerBound {
		return Diagnostics{}, fmt.Errorf("fixup: bounds [%g, %g] are inverted", opts.LowerBound, opts.UpperBound)
	}

	f.fillPartial(values, weights, opts)
	f.fillEmpty(values, opts)
	return f.globalRepair(values, sourceIntegral, opts), nil
}

// fillPartial applies the partial-coverage policy.
func (f *Fixer) fillPartial(values []float64, weights []remap.Weights, opts Options) {
	isEmpty := make(map[int]bool, len(f.Record.Empty))
	for _, i := range f.Record.Empty {
		isEmpty[i] = true
	}

	for _, i := range f.Record.Partial {
		switch opts.Partial {
		case remap.PartialConstant:
			// interpolated value stands

		case remap.PartialLocallyConservative:
			// Pull the missing contribution from covered neighbors in
			// proportion to shared boundary measure.
			vol := f.Target.EntityVolume(f.Kind, i)
			intersected := weights[i].SumVolume()
			deficit := vol - intersected
			if deficit <= 0 {
				// Over-covered: renormalizing by the true volume is the
				// locally conservative correction.
				values[i] = values[i] * intersected / vol
				continue
			}
			totalShared := 0.0
			borrowed := 0.0
			for _, j := range f.Target.EntityNeighbors(f.Kind, i) {
				if isEmpty[j] {
					continue
				}
				s := f.Target.SharedBoundary(f.Kind, i, j)
				totalShared += s
				borrowed += s * values[j]
			}
			if totalShared > 0 {
				values[i] = (values[i]*intersected + borrowed/totalShared*deficit) / vol
			}

		case remap.PartialLeastSquares:
			values[i] = clamp(f.weightedNeighborMean(values, i, isEmpty, values[i]), opts.LowerBound, opts.UpperBound)
		}
	}
}

// fillEmpty walks the cached layers outward from the covered region,
// filling each empty entity with the mean of its already-filled
// neighbors. Entities in no layer keep the caller default.
func (f *Fixer) fillEmpty(values []float64, opts Options) {
	if opts.Empty == remap.EmptyLeaveDefault {
		return
	}
	unfilled := make(map[int]bool, len(f.Record.Empty))
	for _, i := range f.Record.Empty {
		unfilled[i] = true
	}
	for _, layer := range f.Record.Layers {
		for _, i := range layer {
			sum, count := 0.0, 0
			for _, j := range f.Target.EntityNeighbors(f.Kind, i) {
				if unfilled[j] {
					continue
				}
				sum += values[j]
				count++
			}
			if count > 0 {
				values[i] = sum / float64(count)
			}
		}
		for _, i := range layer {
			delete(unfilled, i)
		}
	}
}

// weightedNeighborMean fits the single value minimizing the
// shared-boundary-weighted squared deviation from neighbor values,
// which is their weighted mean.
func (f *Fixer) weightedNeighborMean(values []float64, id int, isEmpty map[int]bool, fallback float64) float64 {
	totalW, sum := 0.0, 0.0
	for _, j := range f.Target.EntityNeighbors(f.Kind, id) {
		if isEmpty[j] {
			continue
		}
		w := f.Target.SharedBoundary(f.Kind, id, j)
		totalW += w
		sum += w * values[j]
	}
	if totalW == 0 {
		return fallback
	}
	return sum / totalW
}

// globalRepair distributes the integral discrepancy across all target
// entities proportionally to volume, clamping each step to the bounds.
// Entities pinned at a bound drop out of the adjustable volume for
// steps pushing further past that bound.
func (f *Fixer) globalRepair(values []float64, sourceIntegral float64, opts Options) Diagnostics {
	n := f.Target.NumEntities(f.Kind)
	vols := make([]float64, n)
	prods := make([]float64, n)
	for i := 0; i < n; i++ {
		vols[i] = f.Target.EntityVolume(f.Kind, i)
	}

	tol := opts.ConservationTol * math.Abs(sourceIntegral)
	if tol == 0 {
		tol = opts.ConservationTol
	}

	diag := Diagnostics{}
	for {
		floats.MulTo(prods, values, vols)
		diff := sourceIntegral - floats.Sum(prods)
		diag.Residual = math.Abs(diff)
		if diag.Residual <= tol {
			diag.Converged = true
			return diag
		}
		if diag.Iterations >= opts.MaxIter {
			break
		}
		diag.Iterations++

		adjustable := 0.0
		for i := 0; i < n; i++ {
			if diff > 0 && values[i] >= opts.UpperBound {
				continue
			}
			if diff < 0 && values[i] <= opts.LowerBound {
				continue
			}
			adjustable += vols[i]
		}
		if adjustable == 0 {
			break
		}

		udiff := diff / adjustable
		for i := 0; i < n; i++ {
			values[i] = clamp(values[i]+udiff, opts.LowerBound, opts.UpperBound)
		}
	}

	f.Log.Warn("conservation repair did not converge",
		zap.String("kind", f.Kind.String()),
		zap.Int("iterations", diag.Iterations),
		zap.Float64("residual", diag.Residual))
	return diag
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
