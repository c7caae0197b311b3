package solver_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/furnacesim/internal/dynamo"
	"github.com/san-kum/furnacesim/internal/formula"
	"github.com/san-kum/furnacesim/internal/heatsource"
	"github.com/san-kum/furnacesim/internal/material"
	"github.com/san-kum/furnacesim/internal/mesh"
	"github.com/san-kum/furnacesim/internal/solver"
)

type furnace struct {
	height, radius float64
	nr, nz         int
	material       *material.Material
	torches        []heatsource.Torch
	opts           []heatsource.Option
	cfg            solver.Config
}

func (f furnace) build() *solver.Solver {
	m, err := mesh.New(f.height, f.radius, f.nr, f.nz)
	Expect(err).NotTo(HaveOccurred())
	model, err := heatsource.New(m, f.material, f.torches, f.opts...)
	Expect(err).NotTo(HaveOccurred())
	cfg := f.cfg
	if cfg.InitialTemperature == 0 {
		cfg.InitialTemperature = 300
	}
	s, err := solver.New(m, f.material, model, cfg)
	Expect(err).NotTo(HaveOccurred())
	return s
}

func lookup(name string) *material.Material {
	m, err := material.Lookup(name)
	Expect(err).NotTo(HaveOccurred())
	return m
}

// test material: alpha = 1e-4 m^2/s, no phase change
func slab() *material.Material {
	m, err := material.New(material.Material{
		Name:         "slab",
		Density:      material.Constant(1000),
		SpecificHeat: material.Constant(1000),
		Conductivity: material.Constant(100),
		Emissivity:   0.5,
	})
	Expect(err).NotTo(HaveOccurred())
	return m
}

// run advances for duration at a fixed fraction of the initial stable step,
// shortening the last step to land on duration.
func run(s *solver.Solver, duration, cfl float64) {
	dt := cfl * s.StableTimeStep()
	for s.Time() < duration-1e-9 {
		step := math.Min(dt, duration-s.Time())
		Expect(s.Advance(step)).To(Succeed())
	}
}

// heatedRadius is the largest node radius on the torch's row that exceeds the
// initial temperature by more than rise.
func heatedRadius(s *solver.Solver, z, rise float64) float64 {
	m := s.Mesh()
	_, j := m.Nearest(0, z)
	temp := s.Temperature()
	r := 0.0
	for i := 0; i < m.NR; i++ {
		if temp.At(i, j) > 300+rise {
			r = m.R(i)
		}
	}
	return r
}

type brokenOverride struct{}

func (brokenOverride) Property(name material.Property, t float64) (float64, bool, error) {
	if name == material.ThermalConductivity {
		return 0, true, errors.New("table lookup failed")
	}
	return 0, false, nil
}

var _ = Describe("Solver", func() {
	var steelTorch = heatsource.Torch{ID: "main", R: 0, Z: 1.0, PowerKW: 150, Efficiency: 0.8, Sigma: 0.1}

	Describe("lifecycle", func() {
		It("rejects steps on a zero solver", func() {
			var s solver.Solver
			Expect(s.State()).To(Equal(solver.Uninitialized))
			Expect(s.Advance(1)).To(MatchError(dynamo.ErrNotInitialized))
			Expect(s.StableTimeStep()).To(BeZero())
			_, err := s.Energy()
			Expect(err).To(MatchError(dynamo.ErrNotInitialized))
		})

		It("moves from stepping to completed and then refuses steps", func() {
			s := furnace{height: 1, radius: 0.5, nr: 6, nz: 11, material: slab(),
				torches: []heatsource.Torch{{R: 0, Z: 0.5, PowerKW: 10, Efficiency: 1, Sigma: 0.1}}}.build()
			Expect(s.State()).To(Equal(solver.Stepping))
			Expect(s.Advance(0.5 * s.StableTimeStep())).To(Succeed())
			Expect(s.Steps()).To(Equal(1))

			s.Complete()
			Expect(s.State()).To(Equal(solver.Completed))
			Expect(errors.Is(s.Advance(1), dynamo.ErrTerminated)).To(BeTrue())

			s.Cancel()
			Expect(s.State()).To(Equal(solver.Completed))
			Expect(s.Snapshot().Step).To(Equal(1))
		})

		It("can be cancelled", func() {
			s := furnace{height: 1, radius: 0.5, nr: 6, nz: 11, material: slab(),
				torches: []heatsource.Torch{{R: 0, Z: 0.5, PowerKW: 10, Efficiency: 1, Sigma: 0.1}}}.build()
			s.Cancel()
			Expect(s.State()).To(Equal(solver.Cancelled))
			Expect(s.State().Terminal()).To(BeTrue())
			Expect(errors.Is(s.Advance(1), dynamo.ErrTerminated)).To(BeTrue())
		})

		It("rejects non-positive time steps without failing", func() {
			s := furnace{height: 1, radius: 0.5, nr: 6, nz: 11, material: slab(),
				torches: []heatsource.Torch{{R: 0, Z: 0.5, PowerKW: 10, Efficiency: 1, Sigma: 0.1}}}.build()
			err := s.Advance(0)
			Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
			Expect(s.State()).To(Equal(solver.Stepping))
		})
	})

	Describe("construction", func() {
		It("reports every invalid input", func() {
			_, err := solver.New(nil, nil, nil, solver.Config{InitialTemperature: -1})
			Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("mesh"))
			Expect(err.Error()).To(ContainSubstring("heat_source"))
			Expect(err.Error()).To(ContainSubstring("initial_temperature"))
		})

		It("rejects a heat source built on another mesh", func() {
			m1, err := mesh.New(1, 0.5, 6, 11)
			Expect(err).NotTo(HaveOccurred())
			m2, err := mesh.New(1, 0.5, 6, 11)
			Expect(err).NotTo(HaveOccurred())
			mat := slab()
			model, err := heatsource.New(m2, mat, []heatsource.Torch{{R: 0, Z: 0.5, PowerKW: 10, Efficiency: 1, Sigma: 0.1}})
			Expect(err).NotTo(HaveOccurred())
			_, err = solver.New(m1, mat, model, solver.Config{InitialTemperature: 300})
			Expect(err).To(MatchError(ContainSubstring("solver's mesh")))
		})

		It("starts from the equilibrium state of the initial temperature", func() {
			s := furnace{height: 2, radius: 1, nr: 11, nz: 21, material: lookup("carbon_steel"),
				torches: []heatsource.Torch{steelTorch}}.build()
			frame := s.Snapshot()
			Expect(frame.Step).To(Equal(0))
			Expect(frame.Temperature.Min()).To(BeNumerically("~", 300, 1e-9))
			Expect(frame.Temperature.Max()).To(BeNumerically("~", 300, 1e-9))
			Expect(frame.MeltFraction.Max()).To(BeZero())
		})
	})

	Describe("stable time step", func() {
		It("follows min(dr,dz)^2 / (6 alpha) on a square mesh", func() {
			s := furnace{height: 1, radius: 1, nr: 11, nz: 11, material: slab(),
				torches: []heatsource.Torch{{R: 0, Z: 0.5, PowerKW: 50, Efficiency: 1, Sigma: 0.05}}}.build()
			Expect(s.StableTimeStep()).To(BeNumerically("~", 0.1*0.1/(6*1e-4), 1e-9))
		})

		It("is set by the axis cell stencil 4 alpha/dr^2 + 2 alpha/dz^2", func() {
			s := furnace{height: 1, radius: 1, nr: 11, nz: 21, material: slab(),
				torches: []heatsource.Torch{{R: 0, Z: 0.5, PowerKW: 50, Efficiency: 1, Sigma: 0.05}}}.build()
			want := 1 / (4*1e-4/(0.1*0.1) + 2*1e-4/(0.05*0.05))
			Expect(s.StableTimeStep()).To(BeNumerically("~", want, 1e-9))
		})

		It("uses the override conductivity", func() {
			o, err := formula.NewOverrides(map[string]string{"thermal_conductivity": "1000"}, nil)
			Expect(err).NotTo(HaveOccurred())
			s := furnace{height: 1, radius: 1, nr: 11, nz: 11, material: slab(),
				torches: []heatsource.Torch{{R: 0, Z: 0.5, PowerKW: 50, Efficiency: 1, Sigma: 0.05}},
				cfg:     solver.Config{Override: o}}.build()
			Expect(s.StableTimeStep()).To(BeNumerically("~", 0.01/(6*1e-3), 1e-9))
		})
	})

	Describe("stability boundary", func() {
		var f furnace
		BeforeEach(func() {
			f = furnace{height: 1, radius: 1, nr: 11, nz: 11, material: slab(),
				torches: []heatsource.Torch{{R: 0, Z: 0.5, PowerKW: 50, Efficiency: 1, Sigma: 0.05}}}
		})

		It("stays finite below the bound", func() {
			s := f.build()
			dt := 0.9 * s.StableTimeStep()
			for n := 0; n < 300; n++ {
				Expect(s.Advance(dt)).To(Succeed())
			}
			Expect(s.Temperature().IsValid()).To(BeTrue())
			Expect(s.Temperature().Max()).To(BeNumerically(">", 300))
		})

		It("diverges at twice the bound", func() {
			s := f.build()
			dt := 2 * s.StableTimeStep()
			var err error
			for n := 0; n < 5000 && err == nil; n++ {
				err = s.Advance(dt)
			}
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, dynamo.ErrNumericalInstability)).To(BeTrue())

			var ie *dynamo.InstabilityError
			Expect(errors.As(err, &ie)).To(BeTrue())
			Expect(ie.Step).To(Equal(s.Steps() + 1))
			Expect(ie.Dt).To(BeNumerically("~", dt, 1e-12))
			Expect(ie.Dt).To(BeNumerically(">", ie.StableDt))

			Expect(s.State()).To(Equal(solver.Failed))
			Expect(s.Err()).To(Equal(err))
			Expect(s.Temperature().IsValid()).To(BeTrue(), "the last finite state is kept")
			Expect(errors.Is(s.Advance(dt), dynamo.ErrTerminated)).To(BeTrue())
		})

		It("diverges at twice the bound on an elongated mesh", func() {
			s := furnace{height: 10, radius: 1, nr: 41, nz: 3, material: slab(),
				torches: []heatsource.Torch{{R: 0, Z: 5, PowerKW: 50, Efficiency: 1, Sigma: 0.05}}}.build()
			dt := 2 * s.StableTimeStep()
			var err error
			for n := 0; n < 5000 && err == nil; n++ {
				err = s.Advance(dt)
			}
			Expect(errors.Is(err, dynamo.ErrNumericalInstability)).To(BeTrue())
		})

		It("stays finite below the bound on an elongated mesh", func() {
			s := furnace{height: 10, radius: 1, nr: 41, nz: 3, material: slab(),
				torches: []heatsource.Torch{{R: 0, Z: 5, PowerKW: 50, Efficiency: 1, Sigma: 0.05}}}.build()
			dt := 0.9 * s.StableTimeStep()
			for n := 0; n < 1000; n++ {
				Expect(s.Advance(dt)).To(Succeed())
			}
			Expect(s.Temperature().IsValid()).To(BeTrue())
		})
	})

	Describe("collaborator failures", func() {
		It("fails with the property name and step", func() {
			s := furnace{height: 1, radius: 0.5, nr: 6, nz: 11, material: slab(),
				torches: []heatsource.Torch{{R: 0, Z: 0.5, PowerKW: 10, Efficiency: 1, Sigma: 0.1}},
				cfg:     solver.Config{Override: brokenOverride{}}}.build()
			err := s.Advance(1)
			Expect(errors.Is(err, dynamo.ErrCollaborator)).To(BeTrue())
			var ce *dynamo.CollaboratorError
			Expect(errors.As(err, &ce)).To(BeTrue())
			Expect(ce.Name).To(Equal("thermal_conductivity"))
			Expect(ce.Step).To(Equal(1))
			Expect(s.State()).To(Equal(solver.Failed))
		})

		It("fails with the source formula", func() {
			src, err := formula.NewSource("1 / (t - t)", nil)
			Expect(err).NotTo(HaveOccurred())
			s := furnace{height: 1, radius: 0.5, nr: 6, nz: 11, material: slab(),
				torches: []heatsource.Torch{{R: 0, Z: 0.5, PowerKW: 10, Efficiency: 1, Sigma: 0.1}},
				opts:    []heatsource.Option{heatsource.WithExpression(src)}}.build()
			err = s.Advance(1)
			var ce *dynamo.CollaboratorError
			Expect(errors.As(err, &ce)).To(BeTrue())
			Expect(ce.Kind).To(Equal("source"))
			Expect(ce.Name).To(Equal("1 / (t - t)"))
		})
	})

	Describe("energy", func() {
		It("gains exactly the torch power without losses", func() {
			s := furnace{height: 1, radius: 0.5, nr: 11, nz: 21, material: slab(),
				torches: []heatsource.Torch{{R: 0, Z: 0.3, PowerKW: 20, Efficiency: 0.5, Sigma: 0.05}},
				opts:    []heatsource.Option{heatsource.WithoutLosses()}}.build()
			e0, err := s.Energy()
			Expect(err).NotTo(HaveOccurred())
			run(s, 200, 0.8)
			e1, err := s.Energy()
			Expect(err).NotTo(HaveOccurred())
			Expect(e1 - e0).To(BeNumerically("~", 10e3*200, 10e3*200*1e-8))
		})

		It("conserves energy through melting", func() {
			s := furnace{height: 0.2, radius: 0.1, nr: 6, nz: 11, material: lookup("aluminum"),
				torches: []heatsource.Torch{{R: 0, Z: 0.1, PowerKW: 200, Efficiency: 1, Sigma: 0.02}},
				opts:    []heatsource.Option{heatsource.WithoutLosses()}}.build()
			e0, err := s.Energy()
			Expect(err).NotTo(HaveOccurred())
			run(s, 30, 0.5)
			e1, err := s.Energy()
			Expect(err).NotTo(HaveOccurred())

			frame := s.Snapshot()
			Expect(frame.Temperature.IsValid()).To(BeTrue())
			Expect(frame.MeltFraction.Max()).To(BeNumerically(">", 0))
			Expect(e1 - e0).To(BeNumerically("~", 200e3*30, 200e3*30*1e-8))
		})
	})

	Describe("carbon steel furnace", func() {
		var s *solver.Solver
		BeforeEach(func() {
			s = furnace{height: 2.0, radius: 1.0, nr: 40, nz: 80, material: lookup("carbon_steel"),
				torches: []heatsource.Torch{steelTorch}}.build()
		})

		It("heats monotonically next to the torch", func() {
			m := s.Mesh()
			i, j := m.Nearest(steelTorch.R, steelTorch.Z)
			dt := 0.1 * s.StableTimeStep()
			prev := s.Temperature().At(i, j)
			for n := 0; n < 10; n++ {
				Expect(s.Advance(dt)).To(Succeed())
				cur := s.Temperature().At(i, j)
				Expect(cur).To(BeNumerically(">", prev), "step %d", n+1)
				Expect(cur).To(BeNumerically("<", 5000))
				prev = cur
			}
		})

		It("runs the reference scenario for 60 s", func() {
			run(s, 60, 0.1)
			Expect(s.Time()).To(BeNumerically("~", 60, 1e-9))

			frame := s.Snapshot()
			Expect(frame.Temperature.IsValid()).To(BeTrue())
			Expect(frame.Temperature.Max()).To(BeNumerically(">", 300))
			Expect(frame.Temperature.Max()).To(BeNumerically("<", 1793))
			Expect(frame.MeltFraction.Max()).To(BeZero())
			Expect(frame.VaporFraction.Max()).To(BeZero())
		})
	})

	It("heats the same absolute radius in furnaces of different size", func() {
		torch := func(h float64) []heatsource.Torch {
			return []heatsource.Torch{{R: 0, Z: h / 2, PowerKW: 100, Efficiency: 0.8, Sigma: 0.1}}
		}
		small := furnace{height: 2, radius: 1, nr: 21, nz: 41, material: lookup("carbon_steel"), torches: torch(2)}.build()
		large := furnace{height: 4, radius: 2, nr: 41, nz: 81, material: lookup("carbon_steel"), torches: torch(4)}.build()

		run(small, 60, 0.5)
		run(large, 60, 0.5)

		rs := heatedRadius(small, 1, 5)
		rl := heatedRadius(large, 2, 5)
		Expect(rs).To(BeNumerically(">", 0))
		Expect(rl).To(BeNumerically("~", rs, 0.2*rs))
		Expect(rs).To(BeNumerically("<", 0.5), "the heated zone is set by sigma, not by the furnace size")
	})
})
