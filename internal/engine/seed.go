package engine

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/quillaja/cloudsim/internal/errs"
	"github.com/quillaja/cloudsim/internal/sim"
)

// Core is a massive body that seeded clouds orbit. Axis is the rotation axis
// of the orbits; a zero axis leaves the clouds at the core's velocity.
type Core struct {
	Mass     float64
	Pos, Vel mgl64.Vec3
	Axis     mgl64.Vec3
}

// Seeding describes an initial population.
type Seeding struct {
	Clouds    int
	MeanMass  float64
	Spread    float64 // standard deviation of positions about the core
	CloudType string
	CoreType  string
	Cores     []Core
}

// Seed fills the simulation with cores followed by clouds scattered around
// them. Clouds spread less along a core's rotation axis, giving each group a
// flattened shape, and start on circular orbits about their core.
func (e *Engine) Seed(cfg Seeding) ([]sim.Handle, error) {
	if cfg.Clouds < 0 || cfg.MeanMass <= 0 || cfg.Spread <= 0 {
		return nil, fmt.Errorf("seeding %d clouds of mass %g spread %g: %w",
			cfg.Clouds, cfg.MeanMass, cfg.Spread, errs.ErrInvalidArgument)
	}
	reg := e.Sim.Registry()
	cloudType, err := reg.Type(cfg.CloudType)
	if err != nil {
		return nil, err
	}

	hs := make([]sim.Handle, 0, len(cfg.Cores)+cfg.Clouds)
	if len(cfg.Cores) > 0 {
		coreType, err := reg.Type(cfg.CoreType)
		if err != nil {
			return nil, err
		}
		for _, c := range cfg.Cores {
			h, err := e.Sim.CreateExact(coreType.ID, c.Mass, c.Pos, c.Vel, mgl64.Vec3{})
			if err != nil {
				return hs, err
			}
			hs = append(hs, h)
		}
	}

	rng := e.Sim.Rand()
	g := e.Cfg.Tree.Gravity
	for i := 0; i < cfg.Clouds; i++ {
		m := math.Abs(rng.NormFloat64()*cfg.MeanMass/100 + cfg.MeanMass)

		core := Core{}
		if len(cfg.Cores) > 0 {
			core = cfg.Cores[rng.Intn(len(cfg.Cores))]
		}

		var pos mgl64.Vec3
		for k := 0; k < 3; k++ {
			f := math.Abs(core.Axis[k])
			sigma := cfg.Spread*(1-f) + cfg.Spread/10*f
			pos[k] = rng.NormFloat64()*sigma + core.Pos[k]
		}

		vel := core.Vel
		if core.Mass > 0 && core.Axis.LenSqr() > 0 {
			// circular speed perpendicular to both the radius and the axis
			dx := core.Pos.Sub(pos)
			d := dx.Len()
			if d == 0 {
				d = 1
			}
			dir := dx.Mul(1 / d).Cross(core.Axis)
			vel = vel.Add(dir.Mul(math.Sqrt(g * core.Mass / d)))
		}

		h, err := e.Sim.CreateExact(cloudType.ID, m, pos, vel, mgl64.Vec3{})
		if err != nil {
			return hs, err
		}
		hs = append(hs, h)
	}
	e.Log.Info().Int("cores", len(cfg.Cores)).Int("clouds", cfg.Clouds).Msg("seeded")
	return hs, nil
}
