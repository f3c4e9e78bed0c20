package physics

import (
	"errors"
	"math"

	"github.com/quillaja/cloudsim/internal/config"
	"github.com/quillaja/cloudsim/internal/octree"
	"github.com/quillaja/cloudsim/internal/pip"
	"github.com/quillaja/cloudsim/internal/sim"
)

// ExtractMach is the Mach number above which a shocked cloud is removed.
const ExtractMach = 10

// RemnantRadius is the self-similar shell radius
// RadiusScale * mass^MassExponent * age^RadiusExponent.
func RemnantRadius(age, mass float64, cfg config.Supernova) float64 {
	if age <= 0 {
		return 0
	}
	return cfg.RadiusScale * math.Pow(mass, cfg.MassExponent) * math.Pow(age, cfg.RadiusExponent)
}

// RemnantSpeed is dR/dt of RemnantRadius.
func RemnantSpeed(age, mass float64, cfg config.Supernova) float64 {
	if age <= 0 {
		return 0
	}
	return cfg.RadiusExponent * RemnantRadius(age, mass, cfg) / age
}

// Mach is the shock Mach number at distance d from the explosion.
func Mach(d float64, cfg config.Supernova) float64 {
	return cfg.MachScale * math.Pow(d/cfg.MachRadius, cfg.MachExponent)
}

// Explode replaces star h with a supernova remnant of type cfg.Type at the
// same position, velocity and mass. The star is deleted.
func Explode(s *sim.Simulation, h sim.Handle, cfg config.Supernova) (sim.Handle, error) {
	star, err := s.Get(h)
	if err != nil {
		return sim.Handle{}, err
	}
	t, err := s.Registry().Type(cfg.Type)
	if err != nil {
		return sim.Handle{}, err
	}
	rh, err := s.CreateExact(t.ID, star.Mass, star.Pos, star.Vel, star.Acc)
	if err != nil {
		return sim.Handle{}, err
	}
	rem, err := s.Get(rh)
	if err != nil {
		return sim.Handle{}, err
	}
	rem.Origin = star.Origin
	if _, err := pip.SupernovaOf(rem); err != nil {
		return sim.Handle{}, errors.Join(err, s.Delete(rh))
	}
	return rh, s.Delete(h)
}

// ShockStats counts what a Shock call did.
type ShockStats struct {
	Hit       int
	Extracted int
}

// Shock sweeps the shell of remnant sn across the step: clouds in tr lying
// in [R, R + dt*speed) from sn are pushed outward and heated, and clouds hit
// above ExtractMach are marked for extraction. The remnant's radius and
// speed are then advanced to age sn.Age+dt; the age itself is left to the
// integrator.
func Shock(sn *sim.Particle, tr *octree.Tree, dt float64, cfg config.Supernova) (ShockStats, error) {
	var stats ShockStats
	rem, err := pip.SupernovaOf(sn)
	if err != nil {
		return stats, err
	}

	inner := rem.Radius
	outer := inner + dt*rem.Speed
	if rem.Speed == 0 {
		// fresh remnant: the power law is singular at age zero
		outer = RemnantRadius(sn.Age+dt, sn.Mass, cfg)
	}

	tr.Search(sn.Pos, inner, outer, func(q *sim.Particle) bool {
		c, err := pip.CloudOf(q)
		if err != nil {
			return true
		}
		dx := q.Pos.Sub(sn.Pos)
		d := dx.Len()
		if d == 0 {
			return true
		}
		dir := dx.Mul(1 / d)

		mach := Mach(d, cfg)
		shellSpeed := rem.Speed
		if shellSpeed == 0 {
			shellSpeed = (outer - inner) / dt
		}
		if rel := shellSpeed - dir.Dot(q.Vel.Sub(sn.Vel)); rel > 0 {
			q.Vel = q.Vel.Add(dir.Mul(cfg.Coupling * rel))
		}
		c.Temperature += cfg.Heating * mach * mach
		c.Shocked = true
		stats.Hit++
		if mach > ExtractMach {
			q.Extract = 1
			stats.Extracted++
		}
		return true
	})

	rem.Radius = RemnantRadius(sn.Age+dt, sn.Mass, cfg)
	rem.Speed = RemnantSpeed(sn.Age+dt, sn.Mass, cfg)
	return stats, nil
}
