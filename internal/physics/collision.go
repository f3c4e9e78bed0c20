// Package physics implements the interaction kernels that mutate the
// particle population: collisions and merges, fragmentation, star formation
// and supernova shocks, plus time integration.
package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/quillaja/cloudsim/internal/config"
	"github.com/quillaja/cloudsim/internal/octree"
	"github.com/quillaja/cloudsim/internal/pip"
	"github.com/quillaja/cloudsim/internal/sim"
)

// StaticCollide reports whether two bodies separated by dx overlap, given
// the sum of their radii.
func StaticCollide(dx mgl64.Vec3, radius float64) bool {
	return dx.LenSqr() < radius*radius
}

// ClosestApproach returns the time in [0, dt] at which two bodies with
// relative position dx and relative velocity dv are nearest.
func ClosestApproach(dx, dv mgl64.Vec3, dt float64) float64 {
	v2 := dv.LenSqr()
	if v2 == 0 {
		return 0
	}
	t := -dv.Dot(dx) / v2
	return math.Max(0, math.Min(t, dt))
}

// SweptCollide reports whether two bodies come within radius of each other
// at any time during the step, assuming straight-line motion.
func SweptCollide(dx, dv mgl64.Vec3, radius, dt float64) bool {
	if StaticCollide(dx, radius) {
		return true
	}
	t := ClosestApproach(dx, dv, dt)
	return dx.Add(dv.Mul(t)).LenSqr() < radius*radius
}

// CollisionStats counts what a Collide pass did.
type CollisionStats struct {
	Merges    int
	Transfers int
	Shocked   int
}

// Collide finds colliding cloud pairs among ps using tr, which must have
// been built over ps, and merges them. Non-cloud particles are ignored.
// Each unordered pair is considered once. A particle that grows or moves by
// absorbing a partner is searched again with its new size and position.
func Collide(tr *octree.Tree, ps []*sim.Particle, dt float64, cfg config.Physics) (CollisionStats, error) {
	var stats CollisionStats

	// the search radius has to cover any partner: the largest radius in the
	// selection plus how far the pair can close in one step. slack bounds how
	// far merges have moved particles away from where the tree saw them.
	var maxRadius, maxSpeed, slack float64
	for _, p := range ps {
		if c, err := pip.CloudOf(p); err == nil && !p.Dead() {
			maxRadius = math.Max(maxRadius, c.Radius)
			maxSpeed = math.Max(maxSpeed, p.Vel.Len())
		}
	}

	var candidates []*sim.Particle
	done := make(map[*sim.Particle]bool)
	for _, p := range ps {
		if p.Dead() {
			continue
		}
		cp, err := pip.CloudOf(p)
		if err != nil {
			continue
		}
		clear(done)

		for again := true; again && !p.Dead(); {
			again = false

			reach := cp.Radius + maxRadius + slack
			if cfg.Swept {
				reach += (p.Vel.Len() + maxSpeed) * dt
			}
			candidates = candidates[:0]
			tr.RadiusSearch(p, reach, func(q *sim.Particle) bool {
				if q.Index > p.Index && !done[q] {
					candidates = append(candidates, q)
				}
				return true
			})

			for _, q := range candidates {
				if p.Dead() {
					break
				}
				if q.Dead() {
					continue
				}
				cq, err := pip.CloudOf(q)
				if err != nil {
					continue
				}
				dx := q.Pos.Sub(p.Pos)
				dv := q.Vel.Sub(p.Vel)
				radius := cp.Radius + cq.Radius
				var hit bool
				if cfg.Swept {
					hit = SweptCollide(dx, dv, radius, dt)
				} else {
					hit = StaticCollide(dx, radius)
				}
				if !hit {
					continue
				}

				done[q] = true
				before := [2]mgl64.Vec3{p.Pos, q.Pos}
				res, err := Merge(p, q, dt, cfg)
				if err != nil {
					return stats, err
				}
				if res.Outcome == FullMerge {
					stats.Merges++
				} else {
					stats.Transfers++
				}
				if res.Shocked {
					stats.Shocked++
				}

				sv := res.Survivor
				cs, _ := pip.CloudOf(sv)
				maxRadius = math.Max(maxRadius, cs.Radius)
				maxSpeed = math.Max(maxSpeed, sv.Vel.Len())
				if sv == p {
					slack += sv.Pos.Sub(before[0]).Len()
				} else {
					slack += sv.Pos.Sub(before[1]).Len()
				}

				if res.Outcome == FullMerge && sv == p {
					again = true
					break
				}
			}
		}
	}
	return stats, nil
}
