package octree

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/quillaja/cloudsim/internal/sim"
)

// halfDiagonal converts a cube half-size to the radius of its bounding sphere.
var halfDiagonal = math.Sqrt(3)

// Search calls visit for every live particle q in the tree with
// rmin <= |q.Pos-center| < rmax. Nodes whose bounding sphere lies entirely
// outside the shell are pruned. visit returning false stops the search.
func (t *Tree) Search(center mgl64.Vec3, rmin, rmax float64, visit func(q *sim.Particle) bool) {
	if len(t.nodes) == 0 || rmax <= 0 {
		return
	}
	t.search(0, center, rmin, rmax, visit)
}

func (t *Tree) search(ni int32, center mgl64.Vec3, rmin, rmax float64, visit func(q *sim.Particle) bool) bool {
	n := &t.nodes[ni]
	if n.leaf() && n.body == empty {
		return true
	}

	reach := n.size * halfDiagonal
	d2 := center.Sub(n.center).LenSqr()
	if d2 > (rmax+reach)*(rmax+reach) {
		return true // too far
	}
	if rmin > reach && d2 < (rmin-reach)*(rmin-reach) {
		return true // entirely inside the hole of the shell
	}

	if !n.leaf() {
		for c := n.child; c < n.child+8; c++ {
			if !t.search(c, center, rmin, rmax, visit) {
				return false
			}
		}
		return true
	}

	for bi := n.body; bi != empty; bi = t.next[bi] {
		q := t.bodies[bi]
		if q.Dead() {
			continue
		}
		qd2 := q.Pos.Sub(center).LenSqr()
		if qd2 < rmax*rmax && qd2 >= rmin*rmin {
			if !visit(q) {
				return false
			}
		}
	}
	return true
}

// RadiusSearch calls visit for every live particle of p's type, other than
// p, strictly within radius of p.
func (t *Tree) RadiusSearch(p *sim.Particle, radius float64, visit func(q *sim.Particle) bool) {
	t.Search(p.Pos, 0, radius, func(q *sim.Particle) bool {
		if q == p || q.Type != p.Type {
			return true
		}
		return visit(q)
	})
}
