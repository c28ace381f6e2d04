// Package fixup detects coverage mismatch between the union of
// intersection volumes and the true target control volumes, and repairs
// partially and entirely uncovered target entities while preserving the
// global integral of the remapped quantity within a tolerance and
// respecting caller-supplied bounds.
package fixup

import (
	"fmt"

	"github.com/notargets/remap"
)

// CoverageState is the per-(mesh pair, entity kind) mismatch state. The
// transition NotChecked -> Checked* happens exactly once, when
// intersection completes.
type CoverageState uint8

const (
	NotChecked CoverageState = iota
	CheckedClean
	CheckedMismatched
)

func (s CoverageState) String() string {
	switch s {
	case NotChecked:
		return "not-checked"
	case CheckedClean:
		return "checked-clean"
	case CheckedMismatched:
		return "checked-mismatched"
	}
	return "unknown"
}

// Record caches the mismatch analysis for one entity kind on one mesh
// pair. It stays valid until search or intersection is re-run.
type Record struct {
	State CoverageState

	// Coverage is the fraction of each target entity's volume covered
	// by intersections.
	Coverage []float64

	// Partial lists targets with some but not full coverage; Empty
	// lists targets with no coverage at all.
	Partial []int
	Empty   []int

	// Layers orders the empty entities outward from the covered region:
	// Layers[0] are empty entities adjacent to a covered or partial
	// one, Layers[1] their uncovered neighbors, and so on. Entities in
	// no layer are unreachable islands and keep the caller default.
	Layers [][]int

	// TotalIntersected and TotalTarget are the summed intersection and
	// true target volumes, for diagnostics.
	TotalIntersected float64
	TotalTarget      float64
}

// HasMismatch reports whether any target entity is under- or
// over-covered.
func (r *Record) HasMismatch() bool {
	return r.State == CheckedMismatched
}

// CheckMismatch classifies every target entity of a kind by comparing
// its summed intersection volume against its true volume within the
// relative conservation tolerance.
func CheckMismatch(target remap.Mesh, kind remap.EntityKind,
	weights []remap.Weights, tols remap.NumericTolerances) (*Record, error) {

	n := target.NumEntities(kind)
	if len(weights) != n {
		return nil, fmt.Errorf("fixup: %d weight lists for %d target %ss", len(weights), n, kind)
	}

	rec := &Record{Coverage: make([]float64, n)}
	for i := 0; i < n; i++ {
		vol := target.EntityVolume(kind, i)
		covered := weights[i].SumVolume()
		rec.TotalIntersected += covered
		rec.TotalTarget += vol

		if covered <= tols.MinAbsoluteVolume {
			rec.Empty = append(rec.Empty, i)
			continue
		}
		rec.Coverage[i] = covered / vol
		if rec.Coverage[i] < 1.0-tols.RelativeConservationEps ||
			rec.Coverage[i] > 1.0+tols.RelativeConservationEps {
			rec.Partial = append(rec.Partial, i)
		}
	}

	if len(rec.Empty) == 0 && len(rec.Partial) == 0 {
		rec.State = CheckedClean
	} else {
		rec.State = CheckedMismatched
		rec.Layers = emptyLayers(target, kind, rec)
	}
	return rec, nil
}

// emptyLayers orders empty entities by breadth-first distance from the
// covered region.
func emptyLayers(target remap.Mesh, kind remap.EntityKind, rec *Record) [][]int {
	const (
		unfilled = 0
		filled   = 1
		queued   = 2
	)
	status := make([]int8, len(rec.Coverage))
	for i := range status {
		status[i] = filled
	}
	for _, i := range rec.Empty {
		status[i] = unfilled
	}

	var layers [][]int
	remaining := len(rec.Empty)
	for remaining > 0 {
		var layer []int
		for _, i := range rec.Empty {
			if status[i] != unfilled {
				continue
			}
			for _, j := range target.EntityNeighbors(kind, i) {
				if status[j] == filled {
					layer = append(layer, i)
					status[i] = queued
					break
				}
			}
		}
		if len(layer) == 0 {
			break // remaining empties are disconnected from coverage
		}
		for _, i := range layer {
			status[i] = filled
		}
		remaining -= len(layer)
		layers = append(layers, layer)
	}
	return layers
}
