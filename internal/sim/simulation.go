// Package sim owns particles: the Simulation arena, the creation-ordered
// particle sequence, Lists over it, and the Session that resolves simulations
// and lists by name.
package sim

import (
	"fmt"
	"math/rand"

	"github.com/bits-and-blooms/bitset"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/quillaja/cloudsim/internal/errs"
	"github.com/quillaja/cloudsim/internal/registry"
)

const none = -1

// Units are presentation scale factors. Internal state is always in code
// units; only I/O multiplies by these.
type Units struct {
	Length, Time, Mass float64
}

// slot holds one particle. Particles are heap allocated so that pointers
// taken before a spawn stay valid when the slot array grows.
type slot struct {
	p          *Particle
	gen        uint32
	prev, next int32
}

// Simulation is a population of particles plus its named lists.
// It is confined to one goroutine; nothing in it locks.
type Simulation struct {
	Name     string
	Age      float64
	Timestep float64
	Units    Units

	reg *registry.Registry
	rng *rand.Rand

	slots      []slot
	free       []int32
	live       *bitset.BitSet
	head, tail int32
	count      int
	serial     int

	lists map[string]*List
}

// New returns an empty simulation resolving types through reg. rng drives
// default placement of particles created without explicit state.
func New(name string, reg *registry.Registry, rng *rand.Rand) *Simulation {
	return &Simulation{
		Name:  name,
		Units: Units{Length: 1, Time: 1, Mass: 1},
		reg:   reg,
		rng:   rng,
		live:  bitset.New(64),
		head:  none,
		tail:  none,
		lists: make(map[string]*List),
	}
}

// Registry returns the type registry the simulation resolves through.
func (s *Simulation) Registry() *registry.Registry { return s.reg }

// Rand returns the simulation's random source.
func (s *Simulation) Rand() *rand.Rand { return s.rng }

// Len returns the number of live particles.
func (s *Simulation) Len() int { return s.count }

// Create adds a particle of the given type at a random position in [0,1)^3,
// at rest, with DefaultMass and default-constructed pips.
func (s *Simulation) Create(typeID int) (Handle, error) {
	pos := mgl64.Vec3{s.rng.Float64(), s.rng.Float64(), s.rng.Float64()}
	return s.CreateExact(typeID, DefaultMass, pos, mgl64.Vec3{}, mgl64.Vec3{})
}

// CreateExact adds a particle of the given type with caller-supplied state.
// Pips are default-constructed.
func (s *Simulation) CreateExact(typeID int, mass float64, pos, vel, acc mgl64.Vec3) (Handle, error) {
	t, err := s.reg.TypeByID(typeID)
	if err != nil {
		return Handle{}, err
	}

	var i int32
	if n := len(s.free); n > 0 {
		i = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		s.slots = append(s.slots, slot{})
		i = int32(len(s.slots) - 1)
	}

	sl := &s.slots[i]
	sl.gen++
	h := Handle{index: uint32(i), gen: sl.gen}
	sl.p = &Particle{
		Pos:    pos,
		Vel:    vel,
		Acc:    acc,
		Mass:   mass,
		Type:   t.ID,
		Origin: s.serial,
		Index:  s.serial,
		Pips:   t.NewPips(),
		handle: h,
	}
	s.serial++

	// append to the tail of the sequence
	sl.prev, sl.next = s.tail, none
	if s.tail != none {
		s.slots[s.tail].next = i
	} else {
		s.head = i
	}
	s.tail = i

	s.live.Set(uint(i))
	s.count++
	return h, nil
}

// Get resolves h.
func (s *Simulation) Get(h Handle) (*Particle, error) {
	if h.IsZero() || int(h.index) >= len(s.slots) {
		return nil, fmt.Errorf("particle %s in %q: %w", h, s.Name, errs.ErrNotFound)
	}
	sl := &s.slots[h.index]
	if sl.gen != h.gen || sl.p == nil {
		return nil, fmt.Errorf("particle %s in %q: %w", h, s.Name, errs.ErrStale)
	}
	return sl.p, nil
}

// Delete destroys the particle's pips and unlinks it from the sequence.
// Lists still holding h see ErrStale afterwards.
func (s *Simulation) Delete(h Handle) error {
	p, err := s.Get(h)
	if err != nil {
		return err
	}
	for _, pip := range p.Pips {
		pip.Destroy()
	}
	// pointers still held by an octree read as dead
	p.Flag = FlagFailed

	i := int32(h.index)
	sl := &s.slots[i]
	if sl.prev != none {
		s.slots[sl.prev].next = sl.next
	} else {
		s.head = sl.next
	}
	if sl.next != none {
		s.slots[sl.next].prev = sl.prev
	} else {
		s.tail = sl.prev
	}

	sl.p = nil
	sl.prev, sl.next = none, none
	sl.gen++ // handles issued for the old occupant no longer match
	s.free = append(s.free, i)
	s.live.Clear(uint(i))
	s.count--
	return nil
}

// Each calls fn for every live particle in creation order until fn returns
// false. fn may delete the particle it was handed.
func (s *Simulation) Each(fn func(p *Particle) bool) {
	for i := s.head; i != none; {
		next := s.slots[i].next
		if !fn(s.slots[i].p) {
			return
		}
		i = next
	}
}

// Particles returns the live particles in creation order.
func (s *Simulation) Particles() []*Particle {
	out := make([]*Particle, 0, s.count)
	s.Each(func(p *Particle) bool {
		out = append(out, p)
		return true
	})
	return out
}

// First returns the head of the sequence, or nil when empty.
func (s *Simulation) First() *Particle {
	if s.head == none {
		return nil
	}
	return s.slots[s.head].p
}

// Last returns the tail of the sequence, or nil when empty.
func (s *Simulation) Last() *Particle {
	if s.tail == none {
		return nil
	}
	return s.slots[s.tail].p
}

// Reap deletes every dead particle and every particle marked for extraction,
// returning how many were removed.
func (s *Simulation) Reap() int {
	var doomed []Handle
	s.Each(func(p *Particle) bool {
		if p.Dead() || p.Extract != 0 {
			doomed = append(doomed, p.handle)
		}
		return true
	})
	for _, h := range doomed {
		// handles were just read from live particles
		_ = s.Delete(h)
	}
	return len(doomed)
}

// Totals are conserved quantities summed over live, non-dead particles.
type Totals struct {
	N        int
	Mass     float64
	Momentum mgl64.Vec3
}

// Totals sums mass and momentum over the population.
func (s *Simulation) Totals() Totals {
	var t Totals
	s.Each(func(p *Particle) bool {
		if !p.Dead() {
			t.N++
			t.Mass += p.Mass
			t.Momentum = t.Momentum.Add(p.Vel.Mul(p.Mass))
		}
		return true
	})
	return t
}
