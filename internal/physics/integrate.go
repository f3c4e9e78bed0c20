package physics

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/quillaja/cloudsim/internal/sim"
)

// Drift advances p by one kick-drift step and ages it.
func Drift(p *sim.Particle, dt float64) {
	// dv = a*dt
	p.Vel = p.Vel.Add(p.Acc.Mul(dt))
	// dp = v*dt
	p.Pos = p.Pos.Add(p.Vel.Mul(dt))
	p.Age += dt
}

// ZeroForces clears the acceleration and potential accumulated last step.
func ZeroForces(p *sim.Particle) {
	p.Acc = mgl64.Vec3{}
	p.Potential = 0
}
