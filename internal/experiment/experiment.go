// Package experiment turns a validated configuration into a ready-to-run
// simulation.
package experiment

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/san-kum/furnacesim/internal/config"
	"github.com/san-kum/furnacesim/internal/formula"
	"github.com/san-kum/furnacesim/internal/heatsource"
	"github.com/san-kum/furnacesim/internal/material"
	"github.com/san-kum/furnacesim/internal/mesh"
	"github.com/san-kum/furnacesim/internal/sim"
	"github.com/san-kum/furnacesim/internal/solver"
	"github.com/sirupsen/logrus"
)

type Experiment struct {
	cfg       *config.Config
	log       logrus.FieldLogger
	mesh      *mesh.Mesh
	material  *material.Material
	model     *heatsource.Model
	solver    *solver.Solver
	simulator *sim.Simulator
	cancel    atomic.Bool
}

// New keeps its own copy of cfg.
func New(cfg *config.Config) *Experiment {
	return &Experiment{cfg: cfg.Clone(), log: logrus.StandardLogger()}
}

func (e *Experiment) SetLogger(l logrus.FieldLogger) { e.log = l }

// Setup validates the configuration and builds mesh, material, heat source,
// solver and simulator. The named metrics of reg are attached, all of them
// when no name is given; a nil registry attaches none.
func (e *Experiment) Setup(reg *Registry, names ...string) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	c := e.cfg

	m, err := mesh.New(c.Geometry.Height, c.Geometry.Radius, c.Mesh.NR, c.Mesh.NZ, mesh.WithAngular(c.Mesh.NTheta))
	if err != nil {
		return err
	}
	mat, err := c.BuildMaterial()
	if err != nil {
		return err
	}

	kind, err := heatsource.ParseKind(c.HeatSource.Kind)
	if err != nil {
		return err
	}
	opts := []heatsource.Option{
		heatsource.WithKind(kind),
		heatsource.WithAmbient(c.AmbientTemperature, c.HeatSource.AmbientCoefficient),
	}
	if c.HeatSource.DisableLosses {
		opts = append(opts, heatsource.WithoutLosses())
	}
	if c.Formulas.Source != "" {
		src, err := formula.NewSource(c.Formulas.Source, c.Formulas.Parameters)
		if err != nil {
			return err
		}
		opts = append(opts, heatsource.WithExpression(src))
	}
	model, err := heatsource.New(m, mat, c.Torches, opts...)
	if err != nil {
		return err
	}

	avg, err := solver.ParseFaceAverage(c.Solver.FaceAverage)
	if err != nil {
		return err
	}
	scfg := solver.Config{InitialTemperature: c.Initial(), FaceAverage: avg}
	if len(c.Formulas.Properties) > 0 {
		o, err := formula.NewOverrides(c.Formulas.Properties, c.Formulas.Parameters)
		if err != nil {
			return err
		}
		scfg.Override = o
	}
	s, err := solver.New(m, mat, model, scfg)
	if err != nil {
		return err
	}

	e.mesh, e.material, e.model, e.solver = m, mat, model, s
	e.simulator = sim.New(s)
	e.simulator.SetLogger(e.log)
	e.simulator.SetScenario(e.cfg)
	if reg != nil {
		if len(names) == 0 {
			names = reg.ListMetrics()
		}
		for _, name := range names {
			metric, err := reg.GetMetric(name, m, mat)
			if err != nil {
				return err
			}
			e.simulator.AddMetric(metric)
		}
	}
	e.log.WithFields(logrus.Fields{
		"material": mat.Name,
		"mesh":     fmt.Sprintf("%dx%d", m.NR, m.NZ),
		"torches":  len(c.Torches),
		"kind":     kind,
		"power_kw": model.TorchPower() / 1e3,
	}).Debug("experiment ready")
	return nil
}

// SimConfig converts the configured time settings; the experiment's cancel
// flag is attached.
func (e *Experiment) SimConfig() sim.Config {
	t := e.cfg.Time
	return sim.Config{
		Duration:    t.Duration,
		TimeStep:    sim.TimeStep{Dt: t.Dt, CFL: t.CFL, Adaptive: t.Adaptive},
		RecordEvery: t.RecordEvery,
		Cancel:      &e.cancel,
	}
}

func (e *Experiment) Run(ctx context.Context, progress sim.ProgressFunc) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx, e.SimConfig(), progress)
}

// Cancel asks a running experiment to stop at the next step boundary.
func (e *Experiment) Cancel() { e.cancel.Store(true) }

func (e *Experiment) Config() *config.Config        { return e.cfg }
func (e *Experiment) Mesh() *mesh.Mesh              { return e.mesh }
func (e *Experiment) Material() *material.Material  { return e.material }
func (e *Experiment) HeatSource() *heatsource.Model { return e.model }
func (e *Experiment) Solver() *solver.Solver        { return e.solver }

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}
