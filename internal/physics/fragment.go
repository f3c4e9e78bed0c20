package physics

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/quillaja/cloudsim/internal/config"
	"github.com/quillaja/cloudsim/internal/errs"
	"github.com/quillaja/cloudsim/internal/pip"
	"github.com/quillaja/cloudsim/internal/sim"
)

// SamplePowerLaw maps u in [0,1) onto a mass drawn from dN/dm ~ m^index
// bounded to [lo, hi], by inverting the cumulative distribution.
func SamplePowerLaw(u, lo, hi, index float64) float64 {
	var m float64
	if k := index + 1; k == 0 {
		m = lo * math.Pow(hi/lo, u)
	} else {
		a, b := math.Pow(lo, k), math.Pow(hi, k)
		m = math.Pow(u*(b-a)+a, 1/k)
	}
	// rounding in the power can step just outside the bounds
	return math.Max(lo, math.Min(m, hi))
}

// jitter returns a vector with each component uniform in [-r, r].
func jitter(rng *rand.Rand, r float64) mgl64.Vec3 {
	return mgl64.Vec3{
		(2*rng.Float64() - 1) * r,
		(2*rng.Float64() - 1) * r,
		(2*rng.Float64() - 1) * r,
	}
}

// Fragment breaks pieces off cloud h while its mass exceeds cfg.MinMass,
// stopping at the first sampled fragment heavier than what is left. Each
// fragment is a new cloud near the parent carrying its temperature and
// metallicity. Randomness comes from the simulation's source. It returns the
// handles of the fragments.
func Fragment(s *sim.Simulation, h sim.Handle, cfg config.Fragment) ([]sim.Handle, error) {
	if cfg.MinMass <= 0 || cfg.MaxMass < cfg.MinMass {
		return nil, fmt.Errorf("fragment mass bounds [%g, %g]: %w", cfg.MinMass, cfg.MaxMass, errs.ErrInvalidArgument)
	}
	parent, err := s.Get(h)
	if err != nil {
		return nil, err
	}
	cp, err := pip.CloudOf(parent)
	if err != nil {
		return nil, err
	}

	rng := s.Rand()
	var frags []sim.Handle
	for !parent.Dead() && parent.Mass > cfg.MinMass {
		m := SamplePowerLaw(rng.Float64(), cfg.MinMass, cfg.MaxMass, cfg.Index)
		if m > parent.Mass {
			break
		}

		pos := parent.Pos.Add(sampleBall(rng, cp.Radius/2))
		vel := parent.Vel.Add(mgl64.Vec3{
			rng.NormFloat64() * cfg.Dispersion,
			rng.NormFloat64() * cfg.Dispersion,
			rng.NormFloat64() * cfg.Dispersion,
		})
		fh, err := s.CreateExact(parent.Type, m, pos, vel, mgl64.Vec3{})
		if err != nil {
			return frags, err
		}
		frag, err := s.Get(fh)
		if err != nil {
			return frags, err
		}
		frag.Origin = parent.Origin
		frag.Age = parent.Age

		cf, err := pip.CloudOf(frag)
		if err != nil {
			return frags, err
		}
		cf.Temperature = cp.Temperature
		cf.Metallicity = cp.Metallicity
		cf.Pressure = cp.Pressure
		cf.Density = cp.Density
		cf.Radius = cp.Radius * math.Cbrt(m/parent.Mass)

		cp.Radius *= math.Cbrt((parent.Mass - m) / parent.Mass)
		parent.Mass -= m
		frags = append(frags, fh)
	}
	return frags, nil
}
