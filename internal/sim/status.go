package sim

import (
	"sync"

	"github.com/san-kum/furnacesim/internal/solver"
)

// StatusSnapshot is a consistent copy of Status.
type StatusSnapshot struct {
	State           solver.State
	Fraction        float64
	Step            int
	Time            float64
	PeakTemperature float64
	Err             error
}

// Status is written by the running simulation at step boundaries and may be
// read from any goroutine.
type Status struct {
	mu sync.RWMutex
	s  StatusSnapshot
}

func (st *Status) Snapshot() StatusSnapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s
}

func (st *Status) update(fn func(s *StatusSnapshot)) {
	st.mu.Lock()
	fn(&st.s)
	st.mu.Unlock()
}
