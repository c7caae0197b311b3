package sim

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Job is one member of an ensemble. Each job must own its solver.
type Job struct {
	Simulator *Simulator
	Config    Config
}

// Ensemble runs independent simulations concurrently, for parametric
// studies.
type Ensemble struct {
	limit int
}

// NewEnsemble bounds the number of concurrent runs; limit <= 0 uses
// GOMAXPROCS.
func NewEnsemble(limit int) *Ensemble {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	return &Ensemble{limit: limit}
}

// Run returns one result per job, in job order. The first failure cancels
// the jobs that have not finished; their partial results are still
// returned.
func (e *Ensemble) Run(ctx context.Context, jobs []Job) ([]*Result, error) {
	results := make([]*Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)
	for i, job := range jobs {
		g.Go(func() error {
			res, err := job.Simulator.Run(gctx, job.Config, nil)
			results[i] = res
			return err
		})
	}
	return results, g.Wait()
}
