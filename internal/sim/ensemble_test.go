package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/furnacesim/internal/dynamo"
)

func TestEnsembleRun(t *testing.T) {
	jobs := []Job{
		{Simulator: newTestSimulator(t), Config: Config{Duration: 5, TimeStep: TimeStep{Dt: 1}}},
		{Simulator: newTestSimulator(t), Config: Config{Duration: 3, TimeStep: TimeStep{Dt: 1}}},
		{Simulator: newTestSimulator(t), Config: Config{Duration: 4, TimeStep: TimeStep{CFL: 0.5}}},
	}

	results, err := NewEnsemble(2).Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("ensemble failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].StepsExecuted != 5 || results[1].StepsExecuted != 3 || results[2].StepsExecuted != 1 {
		t.Errorf("results out of order: %d %d %d",
			results[0].StepsExecuted, results[1].StepsExecuted, results[2].StepsExecuted)
	}
	for k, r := range results {
		if r.Termination != Completed {
			t.Errorf("job %d: %s", k, r.Termination)
		}
	}
}

func TestEnsembleRun_Failure(t *testing.T) {
	good := newTestSimulator(t)
	bad := newTestSimulator(t)
	jobs := []Job{
		{Simulator: good, Config: Config{Duration: 2, TimeStep: TimeStep{Dt: 1}}},
		{Simulator: bad, Config: Config{Duration: 1}},
	}

	results, err := NewEnsemble(0).Run(context.Background(), jobs)
	if !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected the configuration error of the second job, got %v", err)
	}
	if len(results) != 2 || results[1] != nil {
		t.Errorf("unexpected results %v", results)
	}
}
