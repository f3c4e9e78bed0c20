package sim

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/quillaja/cloudsim/internal/errs"
	"github.com/quillaja/cloudsim/internal/registry"
)

// Session resolves simulations, and lists within them, by name. It is the
// only name-resolution service the core consults.
type Session struct {
	Registry *registry.Registry

	seed int64
	sims map[string]*Simulation
}

// NewSession returns a session whose simulations draw from sources seeded
// deterministically from seed.
func NewSession(reg *registry.Registry, seed int64) *Session {
	return &Session{Registry: reg, seed: seed, sims: make(map[string]*Simulation)}
}

// NewSimulation creates an empty simulation named name.
func (ss *Session) NewSimulation(name string) (*Simulation, error) {
	if _, ok := ss.sims[name]; ok {
		return nil, fmt.Errorf("simulation %q: %w", name, errs.ErrDuplicateName)
	}
	s := New(name, ss.Registry, rand.New(rand.NewSource(ss.seed+int64(len(ss.sims)))))
	ss.sims[name] = s
	return s, nil
}

// Simulation resolves a simulation by name.
func (ss *Session) Simulation(name string) (*Simulation, error) {
	s, ok := ss.sims[name]
	if !ok {
		return nil, fmt.Errorf("simulation %q: %w", name, errs.ErrNotFound)
	}
	return s, nil
}

// DeleteSimulation drops a simulation and everything it owns.
func (ss *Session) DeleteSimulation(name string) error {
	s, err := ss.Simulation(name)
	if err != nil {
		return err
	}
	s.Each(func(p *Particle) bool {
		_ = s.Delete(p.handle)
		return true
	})
	delete(ss.sims, name)
	return nil
}

// List resolves list listName of simulation simName.
func (ss *Session) List(simName, listName string) (*List, error) {
	s, err := ss.Simulation(simName)
	if err != nil {
		return nil, err
	}
	return s.List(listName)
}

// Names returns the simulation names in sorted order.
func (ss *Session) Names() []string {
	names := make([]string, 0, len(ss.sims))
	for name := range ss.sims {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
