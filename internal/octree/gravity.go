package octree

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/quillaja/cloudsim/internal/config"
	"github.com/quillaja/cloudsim/internal/sim"
)

// AccumulateGravity walks p through the tree, adding to p.Acc and
// p.Potential the softened attraction of nearby particles and of distant
// nodes treated as point masses. p never attracts itself. An empty tree
// contributes nothing.
func (t *Tree) AccumulateGravity(p *sim.Particle) {
	if len(t.nodes) == 0 {
		return
	}
	theta2 := t.cfg.Theta * t.cfg.Theta
	if t.cfg.Theta >= 1 {
		t.gravityWide(p, 0, theta2)
		return
	}
	t.gravity(p, 0, theta2)
}

// gravity is the usual walk for opening angles below one.
func (t *Tree) gravity(p *sim.Particle, ni int32, theta2 float64) {
	n := &t.nodes[ni]
	if n.mass == 0 {
		return // empty, or only massless occupants
	}
	if n.leaf() {
		t.leafGravity(p, n)
		return
	}

	d2 := p.Pos.Sub(t.reference(n)).LenSqr()
	bound := t.bound(n)
	if bound*bound > theta2*d2 || n.contains(p.Pos) {
		// too close to treat as a single point, or p sits inside the node
		// where the center of mass distance says nothing about proximity.
		for c := n.child; c < n.child+8; c++ {
			t.gravity(p, c, theta2)
		}
		return
	}
	t.pointMass(p, n.com, n.mass)
}

// gravityWide is the walk for opening angles of one and above. With such
// angles the criterion alone would accept nodes containing p, so
// containment is tested first and self exclusion is guaranteed by it.
func (t *Tree) gravityWide(p *sim.Particle, ni int32, theta2 float64) {
	n := &t.nodes[ni]
	if n.mass == 0 {
		return
	}
	if n.leaf() {
		t.leafGravity(p, n)
		return
	}
	if n.contains(p.Pos) {
		for c := n.child; c < n.child+8; c++ {
			t.gravityWide(p, c, theta2)
		}
		return
	}

	d2 := p.Pos.Sub(t.reference(n)).LenSqr()
	bound := t.bound(n)
	if bound*bound > theta2*d2 {
		for c := n.child; c < n.child+8; c++ {
			t.gravityWide(p, c, theta2)
		}
		return
	}
	t.pointMass(p, n.com, n.mass)
}

// leafGravity applies each occupant of a leaf exactly, skipping p.
func (t *Tree) leafGravity(p *sim.Particle, n *node) {
	for bi := n.body; bi != empty; bi = t.next[bi] {
		q := t.bodies[bi]
		if q == p {
			continue
		}
		t.pointMass(p, q.Pos, q.Mass)
	}
}

// reference is the point the opening criterion measures distance to.
func (t *Tree) reference(n *node) mgl64.Vec3 {
	if t.cfg.Distance == config.DistanceCenter {
		return n.center
	}
	return n.com
}

// bound is the node extent compared against theta*d.
func (t *Tree) bound(n *node) float64 {
	if t.cfg.Bound == config.BoundSize {
		return n.size
	}
	return n.offset
}

// pointMass adds the softened pull of mass m at x onto p.
func (t *Tree) pointMass(p *sim.Particle, x mgl64.Vec3, m float64) {
	applyPointMass(p, x, m, t.cfg.Gravity, t.cfg.Softening)
}

func applyPointMass(p *sim.Particle, x mgl64.Vec3, m, g, eps float64) {
	dx := p.Pos.Sub(x)
	r2 := dx.LenSqr() + eps*eps
	if r2 == 0 {
		return // coincident and unsoftened: no defined direction
	}
	r := math.Sqrt(r2)
	gm := g * m
	p.Acc = p.Acc.Sub(dx.Mul(gm / (r2 * r)))
	p.Potential -= gm / r
}

// DirectSum adds to p the softened attraction of every other live particle
// in ps, pair by pair. It is the reference the tree walk is checked against.
func DirectSum(p *sim.Particle, ps []*sim.Particle, cfg config.Tree) {
	for _, q := range ps {
		if q == p || q == nil || q.Dead() {
			continue
		}
		applyPointMass(p, q.Pos, q.Mass, cfg.Gravity, cfg.Softening)
	}
}
