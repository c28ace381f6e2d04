package remap

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Executor is the opaque execution context selecting serial or parallel
// execution of the per-entity loops. Distributed runs additionally
// attach a Redistributor at driver construction; the core stages only
// ever see the local worker count.
type Executor interface {
	NumWorkers() int
}

// SerialExecutor runs every per-entity loop on the calling goroutine.
type SerialExecutor struct{}

func (SerialExecutor) NumWorkers() int { return 1 }

// ParallelExecutor fans per-entity loops out over Workers goroutines
// (GOMAXPROCS when zero).
type ParallelExecutor struct {
	Workers int
}

func (e ParallelExecutor) NumWorkers() int {
	if e.Workers > 0 {
		return e.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// DistributedExecutor marks a distributed run. Local performs the
// on-rank per-entity loops; Comm is an opaque process-group handle
// consumed only by the Redistributor collaborator, never by the core
// stages.
type DistributedExecutor struct {
	Local Executor
	Ranks int
	Comm  any
}

func (e DistributedExecutor) NumWorkers() int {
	if e.Local != nil {
		return e.Local.NumWorkers()
	}
	return 1
}

// ParallelFor applies fn to every index in [0, n) using the executor's
// worker count. Work is split into contiguous blocks, one per worker, so
// output slots indexed by entity id are written without contention. The
// first error cancels nothing already running but is returned once all
// workers finish their blocks.
func ParallelFor(ex Executor, n int, fn func(i int) error) error {
	workers := 1
	if ex != nil {
		workers = ex.NumWorkers()
	}
	if workers <= 1 || n < 2*workers {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	block := (n + workers - 1) / workers
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		lo := w * block
		hi := lo + block
		if hi > n {
			hi = n
		}
		if lo >= hi {
			break
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := fn(i); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
