package physics

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/quillaja/cloudsim/internal/config"
	"github.com/quillaja/cloudsim/internal/errs"
	"github.com/quillaja/cloudsim/internal/pip"
	"github.com/quillaja/cloudsim/internal/sim"
)

// Temperature ratio window inside which two clouds fully merge.
const (
	MinMergeRatio = 0.1
	MaxMergeRatio = 10
)

type Outcome int

const (
	FullMerge Outcome = iota
	Transfer
)

// MergeResult describes the outcome of Merge.
type MergeResult struct {
	Outcome Outcome
	// Survivor received the mass. Loser gave it, and is dead after a full
	// merge or a transfer that consumed it.
	Survivor, Loser *sim.Particle
	Transferred     float64
	Shocked         bool
}

// Merge resolves a collision between clouds a and b. Clouds of similar
// temperature merge completely; otherwise the hotter one loses mass to the
// cooler one. dt is the step length, used only for transfers.
func Merge(a, b *sim.Particle, dt float64, cfg config.Physics) (MergeResult, error) {
	ca, err := pip.CloudOf(a)
	if err != nil {
		return MergeResult{}, err
	}
	cb, err := pip.CloudOf(b)
	if err != nil {
		return MergeResult{}, err
	}
	if a.Mass+b.Mass <= 0 {
		return MergeResult{}, fmt.Errorf("merging massless particles #%d and #%d: %w",
			a.Index, b.Index, errs.ErrInvalidArgument)
	}

	ratio := 1.0
	if ca.Temperature != cb.Temperature {
		ratio = ca.Temperature / cb.Temperature
	}
	if ratio >= MinMergeRatio && ratio <= MaxMergeRatio {
		return fullMerge(a, b, ca, cb, cfg), nil
	}
	return transfer(a, b, ca, cb, dt), nil
}

// weigh returns the mass-weighted mean of x and y.
func weigh(mx, x, my, y float64) float64 {
	return (mx*x + my*y) / (mx + my)
}

func weighVec(mx float64, x mgl64.Vec3, my float64, y mgl64.Vec3) mgl64.Vec3 {
	return x.Mul(mx).Add(y.Mul(my)).Mul(1 / (mx + my))
}

// fullMerge combines b into a or a into b, whichever is heavier surviving.
func fullMerge(a, b *sim.Particle, ca, cb *pip.Cloud, cfg config.Physics) MergeResult {
	ma, mb := a.Mass, b.Mass
	dv := b.Vel.Sub(a.Vel)

	s, l, cs, cl := a, b, ca, cb
	if mb > ma {
		s, l, cs, cl = b, a, cb, ca
	}
	ms, ml := s.Mass, l.Mass
	m := ms + ml

	s.Pos = weighVec(ms, s.Pos, ml, l.Pos)
	s.Vel = weighVec(ms, s.Vel, ml, l.Vel)
	s.Acc = weighVec(ms, s.Acc, ml, l.Acc)

	cs.Temperature = weigh(ms, cs.Temperature, ml, cl.Temperature)
	cs.Metallicity = weigh(ms, cs.Metallicity, ml, cl.Metallicity)
	cs.Pressure = weigh(ms, cs.Pressure, ml, cl.Pressure)
	cs.Density = weigh(ms, cs.Density, ml, cl.Density)
	cs.Radius = math.Cbrt(cs.Radius*cs.Radius*cs.Radius + cl.Radius*cl.Radius*cl.Radius)

	// kinetic energy of b in a's frame becomes heat
	v2 := dv.LenSqr()
	if !cfg.HeatOff {
		cs.Temperature += 0.5 * mb * v2 / (cfg.HeatCapacity * m)
	}

	shocked := cs.Density > 0 && v2 > 5*cs.Pressure/(3*cs.Density)
	if shocked {
		cs.Shocked = true
	}

	s.Mass = m
	// s was chosen as the heavier, so provenance is already its own
	l.Kill()

	return MergeResult{Outcome: FullMerge, Survivor: s, Loser: l, Transferred: ml, Shocked: shocked}
}

// transfer moves mass from the hotter cloud to the cooler one.
func transfer(a, b *sim.Particle, ca, cb *pip.Cloud, dt float64) MergeResult {
	snd, rcv, cs, cr := a, b, ca, cb
	if cb.Temperature > ca.Temperature {
		snd, rcv, cs, cr = b, a, cb, ca
	}

	speed := rcv.Vel.Sub(snd.Vel).Len()
	dm := snd.Mass
	if speed > 0 {
		dm = math.Min(0.5*dt*(cs.Radius/speed)*snd.Mass, snd.Mass)
	}

	mr := rcv.Mass
	if mr+dm > 0 {
		rcv.Vel = weighVec(mr, rcv.Vel, dm, snd.Vel)
		cr.Metallicity = weigh(mr, cr.Metallicity, dm, cs.Metallicity)
	}
	rcv.Mass = mr + dm

	res := MergeResult{Outcome: Transfer, Survivor: rcv, Transferred: dm}
	if dm >= snd.Mass {
		snd.Kill()
		res.Loser = snd
		return res
	}
	cs.Radius *= math.Cbrt((snd.Mass - dm) / snd.Mass)
	snd.Mass -= dm
	return res
}
