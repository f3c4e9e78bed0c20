// Package engine advances a simulation one step at a time: forces from the
// octree, collisions, supernovae, star formation and fragmentation, then
// integration and removal of dead particles.
package engine

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/quillaja/cloudsim/internal/config"
	"github.com/quillaja/cloudsim/internal/octree"
	"github.com/quillaja/cloudsim/internal/physics"
	"github.com/quillaja/cloudsim/internal/pip"
	"github.com/quillaja/cloudsim/internal/sim"
)

// gravityGroups is the number of goroutines sharing the gravity walk.
const gravityGroups = 4

// Engine steps one Simulation. It is not safe for concurrent use.
type Engine struct {
	Sim *sim.Simulation
	Cfg config.Config
	Log zerolog.Logger

	tree  *octree.Tree
	steps int
}

// StepStats summarizes what a step did.
type StepStats struct {
	Step      int
	Particles int
	Merges    int
	Transfers int
	Exploded  int
	Shocked   int
	Extracted int
	Stars     int
	Fragments int
	Removed   int
}

// New returns an engine for s.
func New(s *sim.Simulation, cfg config.Config, log zerolog.Logger) *Engine {
	return &Engine{
		Sim:  s,
		Cfg:  cfg,
		Log:  log,
		tree: octree.New(cfg.Tree),
	}
}

// Tree returns the octree built during the last step.
func (e *Engine) Tree() *octree.Tree { return e.tree }

// Steps returns the number of completed steps.
func (e *Engine) Steps() int { return e.steps }

// Step advances the simulation by dt.
func (e *Engine) Step(dt float64) (StepStats, error) {
	stats := StepStats{Step: e.steps + 1}

	ps := e.Sim.Particles()
	for _, p := range ps {
		physics.ZeroForces(p)
	}
	e.tree.Build(ps)
	e.gravity(ps)

	if e.Cfg.Physics.Collisions {
		cs, err := physics.Collide(e.tree, ps, dt, e.Cfg.Physics)
		if err != nil {
			return stats, err
		}
		stats.Merges, stats.Transfers = cs.Merges, cs.Transfers
		stats.Shocked += cs.Shocked
	}

	if err := e.supernovae(dt, &stats); err != nil {
		return stats, err
	}
	if e.Cfg.Physics.StarFormation {
		if err := e.formStars(&stats); err != nil {
			return stats, err
		}
	}
	if e.Cfg.Physics.Fragmentation {
		if err := e.fragment(&stats); err != nil {
			return stats, err
		}
	}

	e.Sim.Each(func(p *sim.Particle) bool {
		if !p.Dead() {
			physics.Drift(p, dt)
		}
		return true
	})
	e.Sim.Age += dt
	e.Sim.Timestep = dt

	stats.Removed = e.Sim.Reap()
	stats.Particles = e.Sim.Len()
	e.steps++

	totals := e.Sim.Totals()
	e.Log.Info().
		Int("step", stats.Step).
		Int("particles", stats.Particles).
		Int("merges", stats.Merges).
		Int("transfers", stats.Transfers).
		Int("spawned", stats.Stars+stats.Fragments+stats.Exploded).
		Int("removed", stats.Removed).
		Float64("mass", totals.Mass).
		Float64("age", e.Sim.Age).
		Msg("step")
	return stats, nil
}

// gravity accumulates forces for every live particle of ps. The tree is only
// read during the walk and each goroutine writes its own particles.
func (e *Engine) gravity(ps []*sim.Particle) {
	wg := sync.WaitGroup{}
	size := (len(ps) + gravityGroups - 1) / gravityGroups
	for lo := 0; lo < len(ps); lo += size {
		hi := min(lo+size, len(ps))
		wg.Add(1)
		go func(group []*sim.Particle) {
			defer wg.Done()
			for _, p := range group {
				if !p.Dead() {
					e.tree.AccumulateGravity(p)
				}
			}
		}(ps[lo:hi])
	}
	wg.Wait()
}

// supernovae explodes progenitors that outlived the configured lifetime and
// sweeps every remnant's shell across the step.
func (e *Engine) supernovae(dt float64, stats *StepStats) error {
	cfg := e.Cfg.Supernova
	progenitor, err := e.Sim.Registry().Type(cfg.Progenitor)
	if err != nil {
		return err
	}

	var ripe []sim.Handle
	e.Sim.Each(func(p *sim.Particle) bool {
		if !p.Dead() && p.Type == progenitor.ID && p.Age >= cfg.Lifetime {
			ripe = append(ripe, p.Handle())
		}
		return true
	})
	for _, h := range ripe {
		rh, err := physics.Explode(e.Sim, h, cfg)
		if err != nil {
			return err
		}
		stats.Exploded++
		e.Log.Debug().Stringer("remnant", rh).Msg("supernova")
	}

	var remnants []*sim.Particle
	e.Sim.Each(func(p *sim.Particle) bool {
		if _, err := pip.SupernovaOf(p); err == nil && !p.Dead() {
			remnants = append(remnants, p)
		}
		return true
	})
	for _, sn := range remnants {
		ss, err := physics.Shock(sn, e.tree, dt, cfg)
		if err != nil {
			return err
		}
		stats.Shocked += ss.Hit
		stats.Extracted += ss.Extracted
		if ss.Hit > 0 {
			e.Log.Debug().Int("remnant", sn.Index).Int("hit", ss.Hit).Int("extracted", ss.Extracted).Msg("shock")
		}
	}
	return nil
}

// clouds returns the handles of live clouds accepted by keep.
func (e *Engine) clouds(keep func(p *sim.Particle, c *pip.Cloud) bool) []sim.Handle {
	var hs []sim.Handle
	e.Sim.Each(func(p *sim.Particle) bool {
		if p.Dead() || p.Extract != 0 {
			return true
		}
		if c, err := pip.CloudOf(p); err == nil && keep(p, c) {
			hs = append(hs, p.Handle())
		}
		return true
	})
	return hs
}

// formStars turns part of every shocked cloud into stars and clears the
// shock.
func (e *Engine) formStars(stats *StepStats) error {
	cfg := e.Cfg.StarFormation
	shocked := e.clouds(func(p *sim.Particle, c *pip.Cloud) bool { return c.Shocked })
	for _, h := range shocked {
		p, err := e.Sim.Get(h)
		if err != nil {
			return err
		}
		c, err := pip.CloudOf(p)
		if err != nil {
			return err
		}
		c.Shocked = false

		if cfg.Bimodal {
			low, high, err := physics.FormStarsBimodal(e.Sim, h, cfg)
			if err != nil {
				return err
			}
			for _, sh := range []sim.Handle{low, high} {
				if !sh.IsZero() {
					stats.Stars++
				}
			}
			continue
		}
		sh, err := physics.FormStars(e.Sim, h, cfg)
		if err != nil {
			return err
		}
		if !sh.IsZero() {
			stats.Stars++
		}
	}
	return nil
}

// fragment breaks up clouds heavier than the largest fragment mass.
func (e *Engine) fragment(stats *StepStats) error {
	cfg := e.Cfg.Fragment
	heavy := e.clouds(func(p *sim.Particle, c *pip.Cloud) bool { return p.Mass > cfg.MaxMass })
	for _, h := range heavy {
		frags, err := physics.Fragment(e.Sim, h, cfg)
		if err != nil {
			return err
		}
		stats.Fragments += len(frags)
	}
	return nil
}
