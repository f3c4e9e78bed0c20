package physics

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/quillaja/cloudsim/internal/config"
	"github.com/quillaja/cloudsim/internal/pip"
	"github.com/quillaja/cloudsim/internal/sim"
)

// Star formation heats its parent cloud toward this temperature.
const (
	IonizedTemperature = 1e4
	saturatingSFE      = 0.1
)

// SFE is the star formation efficiency C * m^alpha * Z^beta. Factors with a
// zero exponent are left out, so zero metallicity with beta = 0 is fine.
func SFE(mass, metallicity float64, cfg config.StarFormation) float64 {
	sfe := cfg.Coefficient
	if cfg.MassExponent != 0 {
		sfe *= math.Pow(mass, cfg.MassExponent)
	}
	if cfg.MetalExponent != 0 {
		sfe *= math.Pow(metallicity, cfg.MetalExponent)
	}
	return sfe
}

// IMFSplit returns the fractions of stellar mass below and above mid for a
// power-law IMF dN/dm ~ m^index between lo and hi.
func IMFSplit(index, lo, mid, hi float64) (low, high float64) {
	massIn := func(a, b float64) float64 {
		// integral of m * m^index dm
		if k := index + 2; k != 0 {
			return (math.Pow(b, k) - math.Pow(a, k)) / k
		}
		return math.Log(b / a)
	}
	total := massIn(lo, hi)
	low = massIn(lo, mid) / total
	return low, 1 - low
}

// sampleBall returns a point uniformly distributed in a ball of radius r.
func sampleBall(rng *rand.Rand, r float64) mgl64.Vec3 {
	for {
		v := jitter(rng, 1)
		if v.LenSqr() <= 1 {
			return v.Mul(r)
		}
	}
}

// starMass computes how much of cloud p becomes stars, deducts it, heats the
// cloud and marks it consumed if the efficiency saturated.
func starMass(p *sim.Particle, c *pip.Cloud, cfg config.StarFormation) float64 {
	sfe := SFE(p.Mass, c.Metallicity, cfg)
	if sfe <= 0 {
		return 0
	}
	consumed := false
	if sfe >= 1 {
		sfe, consumed = 1, true
	}
	m := sfe * p.Mass
	p.Mass -= m

	if c.Temperature < IonizedTemperature {
		c.Temperature += (IonizedTemperature - c.Temperature) * math.Min(1, sfe/saturatingSFE)
	}
	if consumed {
		p.Kill()
	}
	return m
}

func spawnStar(s *sim.Simulation, parent *sim.Particle, radius float64, typeName string, m float64) (sim.Handle, error) {
	t, err := s.Registry().Type(typeName)
	if err != nil {
		return sim.Handle{}, err
	}
	pos := parent.Pos.Add(sampleBall(s.Rand(), radius))
	h, err := s.CreateExact(t.ID, m, pos, parent.Vel, mgl64.Vec3{})
	if err != nil {
		return sim.Handle{}, err
	}
	star, err := s.Get(h)
	if err != nil {
		return sim.Handle{}, err
	}
	star.Origin = parent.Origin
	return h, nil
}

// FormStars turns a fraction of cloud h into one star particle of type
// cfg.StarType. It returns the zero handle when the efficiency is zero.
func FormStars(s *sim.Simulation, h sim.Handle, cfg config.StarFormation) (sim.Handle, error) {
	p, err := s.Get(h)
	if err != nil {
		return sim.Handle{}, err
	}
	c, err := pip.CloudOf(p)
	if err != nil {
		return sim.Handle{}, err
	}
	// a type lookup failure must not leave the cloud half processed
	if _, err := s.Registry().Type(cfg.StarType); err != nil {
		return sim.Handle{}, err
	}

	radius := c.Radius
	m := starMass(p, c, cfg)
	if m == 0 {
		return sim.Handle{}, nil
	}
	return spawnStar(s, p, radius, cfg.StarType, m)
}

// FormStarsBimodal is FormStars with the stellar mass split between a low-
// and a high-mass population according to IMFSplit.
func FormStarsBimodal(s *sim.Simulation, h sim.Handle, cfg config.StarFormation) (low, high sim.Handle, err error) {
	p, err := s.Get(h)
	if err != nil {
		return low, high, err
	}
	c, err := pip.CloudOf(p)
	if err != nil {
		return low, high, err
	}
	for _, name := range []string{cfg.LowType, cfg.HighType} {
		if _, err := s.Registry().Type(name); err != nil {
			return low, high, err
		}
	}

	radius := c.Radius
	m := starMass(p, c, cfg)
	if m == 0 {
		return low, high, nil
	}
	fLow, fHigh := IMFSplit(cfg.IMFIndex, cfg.IMFLow, cfg.IMFMid, cfg.IMFHigh)
	if low, err = spawnStar(s, p, radius, cfg.LowType, fLow*m); err != nil {
		return low, high, err
	}
	high, err = spawnStar(s, p, radius, cfg.HighType, fHigh*m)
	return low, high, err
}
