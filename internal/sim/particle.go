package sim

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Status values of Particle.Flag.
const (
	FlagNone   = 0
	FlagFailed = 1 // dead: merged away, consumed or fully transferred
)

// DefaultMass is the mass given to particles created without explicit state.
const DefaultMass = 1e-10

// Particle is a point mass owned by one Simulation.
type Particle struct {
	Pos, Vel, Acc mgl64.Vec3
	Mass          float64
	Potential     float64
	Age           float64

	Type   int // registry particle type id
	Origin int // provenance tag, inherited by spawned particles
	Index  int // creation serial, unique within the simulation

	Flag    int
	Extract int // non-zero marks the particle for removal at the end of a step

	// Pips are ordered as the type's pip list.
	Pips []Pip

	handle Handle
}

// Handle returns the handle that resolves to p while it is alive.
func (p *Particle) Handle() Handle { return p.handle }

// Dead reports whether p has been merged away or consumed.
func (p *Particle) Dead() bool { return p.Flag == FlagFailed }

// Kill zeroes p's mass and marks it dead.
func (p *Particle) Kill() {
	p.Mass = 0
	p.Flag = FlagFailed
}

func (p Particle) String() string {
	return fmt.Sprintf("#%d type %d m: %.4g\np: [%.4g, %.4g, %.4g]\nv: [%.4g, %.4g, %.4g]\n",
		p.Index, p.Type, p.Mass, p.Pos[0], p.Pos[1], p.Pos[2], p.Vel[0], p.Vel[1], p.Vel[2])
}

// Handle is a generational reference to a particle slot. A handle whose slot
// has since been freed no longer resolves.
type Handle struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h was never issued.
func (h Handle) IsZero() bool { return h.gen == 0 }

func (h Handle) String() string { return fmt.Sprintf("%d@%d", h.index, h.gen) }
