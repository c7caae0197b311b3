// Package mesh builds the axisymmetric (radial x axial) finite-volume grid of
// a cylindrical furnace.
//
// Node i sits at r = i*dr on [0, radius] and node j at z = j*dz on
// [0, height]. Every node owns the control volume bounded halfway to its
// neighbours and clipped to the cylinder, so the axis node owns a disc, the
// wall node a thin annulus and the end nodes half an axial step. The cell
// volumes therefore sum to pi*radius^2*height.
package mesh

import (
	"errors"
	"math"

	"github.com/san-kum/furnacesim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// Face couples a cell to one neighbour through a shared surface.
type Face struct {
	Neighbor int
	Area     float64
	Distance float64
}

// Mesh is immutable once built.
type Mesh struct {
	Height, Radius float64
	NR, NZ, NTheta int
	DR, DZ         float64

	r, z, theta []float64
	volumes     []float64
	faces       [][]Face
	outerArea   []float64
	bottomArea  []float64
	topArea     []float64
}

type Option func(*Mesh)

// WithAngular adds an angular coordinate array for 3D visualisation. It does
// not change volumes or adjacency.
func WithAngular(ntheta int) Option {
	return func(m *Mesh) { m.NTheta = ntheta }
}

// New builds a mesh. It fails with a dynamo.ConfigError when the geometry or
// resolution is invalid.
func New(height, radius float64, nr, nz int, opts ...Option) (*Mesh, error) {
	m := &Mesh{Height: height, Radius: radius, NR: nr, NZ: nz}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}

	m.DR = radius / float64(nr-1)
	m.DZ = height / float64(nz-1)
	m.r = linspace(0, radius, nr)
	m.z = linspace(0, height, nz)
	if m.NTheta > 0 {
		m.theta = make([]float64, m.NTheta)
		for k := range m.theta {
			m.theta[k] = 2 * math.Pi * float64(k) / float64(m.NTheta)
		}
	}

	m.build()
	return m, nil
}

func (m *Mesh) validate() error {
	var errs []error
	if !(m.Height > 0) || math.IsInf(m.Height, 0) {
		errs = append(errs, dynamo.Invalid("geometry.height", m.Height, "a finite length > 0 m"))
	}
	if !(m.Radius > 0) || math.IsInf(m.Radius, 0) {
		errs = append(errs, dynamo.Invalid("geometry.radius", m.Radius, "a finite length > 0 m"))
	}
	if m.NR < 2 {
		errs = append(errs, dynamo.Invalid("mesh.nr", m.NR, "an integer >= 2"))
	}
	if m.NZ < 2 {
		errs = append(errs, dynamo.Invalid("mesh.nz", m.NZ, "an integer >= 2"))
	}
	if m.NTheta < 0 {
		errs = append(errs, dynamo.Invalid("mesh.ntheta", m.NTheta, "0 (disabled) or a positive integer"))
	}
	return errors.Join(errs...)
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

// radialBounds returns the clipped inner and outer radius of ring i.
func (m *Mesh) radialBounds(i int) (float64, float64) {
	inner := math.Max(m.r[i]-m.DR/2, 0)
	outer := math.Min(m.r[i]+m.DR/2, m.Radius)
	return inner, outer
}

func (m *Mesh) axialStep(j int) float64 {
	lo := math.Max(m.z[j]-m.DZ/2, 0)
	hi := math.Min(m.z[j]+m.DZ/2, m.Height)
	return hi - lo
}

func (m *Mesh) build() {
	n := m.NR * m.NZ
	m.volumes = make([]float64, n)
	m.faces = make([][]Face, n)
	m.outerArea = make([]float64, n)
	m.bottomArea = make([]float64, n)
	m.topArea = make([]float64, n)

	for i := 0; i < m.NR; i++ {
		inner, outer := m.radialBounds(i)
		ring := math.Pi * (outer*outer - inner*inner)
		for j := 0; j < m.NZ; j++ {
			c := m.Index(i, j)
			hz := m.axialStep(j)
			m.volumes[c] = ring * hz

			faces := make([]Face, 0, 4)
			if i > 0 {
				faces = append(faces, Face{Neighbor: m.Index(i-1, j), Area: 2 * math.Pi * inner * hz, Distance: m.DR})
			}
			if i < m.NR-1 {
				faces = append(faces, Face{Neighbor: m.Index(i+1, j), Area: 2 * math.Pi * outer * hz, Distance: m.DR})
			}
			if j > 0 {
				faces = append(faces, Face{Neighbor: m.Index(i, j-1), Area: ring, Distance: m.DZ})
			}
			if j < m.NZ-1 {
				faces = append(faces, Face{Neighbor: m.Index(i, j+1), Area: ring, Distance: m.DZ})
			}
			m.faces[c] = faces

			if i == m.NR-1 {
				m.outerArea[c] = 2 * math.Pi * m.Radius * hz
			}
			if j == 0 {
				m.bottomArea[c] = ring
			}
			if j == m.NZ-1 {
				m.topArea[c] = ring
			}
		}
	}
}

func (m *Mesh) Cells() int         { return m.NR * m.NZ }
func (m *Mesh) Index(i, j int) int { return i*m.NZ + j }

// Coords inverts Index.
func (m *Mesh) Coords(c int) (int, int) { return c / m.NZ, c % m.NZ }

// Position returns the (r, z) coordinates of node (i, j).
func (m *Mesh) Position(i, j int) (float64, float64) { return m.r[i], m.z[j] }

func (m *Mesh) R(i int) float64 { return m.r[i] }
func (m *Mesh) Z(j int) float64 { return m.z[j] }

// RadialCoordinates returns a copy of the radial node positions.
func (m *Mesh) RadialCoordinates() []float64 { return append([]float64(nil), m.r...) }

// AxialCoordinates returns a copy of the axial node positions.
func (m *Mesh) AxialCoordinates() []float64 { return append([]float64(nil), m.z...) }

// AngularCoordinates is empty unless the mesh was built WithAngular.
func (m *Mesh) AngularCoordinates() []float64 { return append([]float64(nil), m.theta...) }

// Nearest rounds (r, z) to the closest node, clamped to the grid. It is meant
// for source placement and diagnostics, not for conservative accounting.
func (m *Mesh) Nearest(r, z float64) (int, int) {
	return clampIndex(r/m.DR, m.NR), clampIndex(z/m.DZ, m.NZ)
}

func clampIndex(x float64, n int) int {
	if math.IsNaN(x) {
		return 0
	}
	k := math.Round(x)
	if k < 0 {
		return 0
	}
	if k > float64(n-1) {
		return n - 1
	}
	return int(k)
}

func (m *Mesh) Volume(c int) float64 { return m.volumes[c] }

// Volumes returns a copy of the per-cell volumes.
func (m *Mesh) Volumes() []float64 { return append([]float64(nil), m.volumes...) }

func (m *Mesh) TotalVolume() float64 { return floats.Sum(m.volumes) }

// Faces lists the neighbours of cell c. The slice must not be modified.
func (m *Mesh) Faces(c int) []Face { return m.faces[c] }

// BoundaryArea is the surface of cell c exposed to the furnace wall, floor
// and roof combined.
func (m *Mesh) BoundaryArea(c int) float64 {
	return m.outerArea[c] + m.bottomArea[c] + m.topArea[c]
}

func (m *Mesh) IsBoundary(c int) bool { return m.BoundaryArea(c) > 0 }

// MinSpacing is min(dr, dz).
func (m *Mesh) MinSpacing() float64 { return math.Min(m.DR, m.DZ) }
