// Package octree is the Barnes-Hut spatial index over a particle selection.
//
// A Tree is rebuilt from scratch for every query episode. Nodes live in one
// slice and refer to each other by index; the 8 children of an internal node
// are contiguous.
package octree

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/quillaja/cloudsim/internal/config"
	"github.com/quillaja/cloudsim/internal/sim"
)

/*

point oct-tree based on Barnes-Hut.
https://en.wikipedia.org/wiki/Barnes%E2%80%93Hut_simulation

*/

type octant uint8

// child positions (octants)
// low bit is X axis, high bit is Z axis
// L (0) means < center, H (1) means >= center
const (
	LLL octant = 0b000
	LLH octant = 0b001
	LHL octant = 0b010
	LHH octant = 0b011
	HLL octant = 0b100
	HLH octant = 0b101
	HHL octant = 0b110
	HHH octant = 0b111
)

// octantOf determines which octant (relative to center) point belongs in.
func octantOf(center, point mgl64.Vec3) (oct octant) {
	if point[0] >= center[0] {
		oct |= LLH
	}
	if point[1] >= center[1] {
		oct |= LHL
	}
	if point[2] >= center[2] {
		oct |= HLL
	}
	return
}

// sign returns -1 or +1 for the given axis bit of oct.
func (oct octant) sign(axis uint) float64 {
	if oct>>axis&1 == 1 {
		return 1
	}
	return -1
}

// maxDepth stops subdivision for particles closer than the float grid can
// separate; they share a leaf.
const maxDepth = 64

const empty = -1

type node struct {
	center mgl64.Vec3
	size   float64 // half of the cube's edge

	mass   float64
	com    mgl64.Vec3
	offset float64 // farthest corner to com

	child int32 // first of 8 children, or empty for a leaf
	body  int32 // first occupant of a leaf, or empty
}

func (n *node) leaf() bool { return n.child == empty }

// contains reports whether point is inside the node's cube.
func (n *node) contains(point mgl64.Vec3) bool {
	return math.Abs(point[0]-n.center[0]) <= n.size &&
		math.Abs(point[1]-n.center[1]) <= n.size &&
		math.Abs(point[2]-n.center[2]) <= n.size
}

// Tree is an octree over a particle selection. The zero value is not usable;
// call New.
type Tree struct {
	cfg config.Tree

	nodes  []node
	bodies []*sim.Particle
	next   []int32 // further occupants sharing a leaf, chained

	// half-size of the barnes root cube, kept across builds
	barnes float64
}

// New returns an empty tree using cfg for root sizing and force evaluation.
func New(cfg config.Tree) *Tree {
	return &Tree{cfg: cfg, barnes: 1}
}

// Len returns the number of particles in the tree.
func (t *Tree) Len() int { return len(t.bodies) }

// reset tears down the previous build, keeping allocations.
func (t *Tree) reset() {
	t.nodes = t.nodes[:0]
	t.bodies = t.bodies[:0]
	t.next = t.next[:0]
}

// Build discards the previous tree, inserts every live particle of ps and
// aggregates masses. Building over an empty selection leaves an empty tree.
func (t *Tree) Build(ps []*sim.Particle) {
	t.reset()
	for _, p := range ps {
		if p != nil && !p.Dead() {
			t.bodies = append(t.bodies, p)
			t.next = append(t.next, empty)
		}
	}
	if len(t.bodies) == 0 {
		return
	}

	center, size := t.rootCube()
	t.nodes = append(t.nodes, node{center: center, size: size, child: empty, body: empty})
	for i := range t.bodies {
		t.insert(int32(i))
	}
	t.Aggregate()
}

// rootCube sizes the root according to the configured mode.
func (t *Tree) rootCube() (mgl64.Vec3, float64) {
	if t.cfg.Root == config.RootBarnes {
		// grow a power-of-two cube about the origin until everything fits.
		// it never shrinks, so successive builds subdivide on the same grid.
		for _, p := range t.bodies {
			for _, x := range p.Pos {
				for math.Abs(x) > t.barnes {
					t.barnes *= 2
				}
			}
		}
		return mgl64.Vec3{}, t.barnes
	}

	lo := t.bodies[0].Pos
	hi := lo
	for _, p := range t.bodies[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = math.Min(lo[k], p.Pos[k])
			hi[k] = math.Max(hi[k], p.Pos[k])
		}
	}
	center := lo.Add(hi).Mul(0.5)
	size := 0.5 * math.Max(hi[0]-lo[0], math.Max(hi[1]-lo[1], hi[2]-lo[2]))
	if size == 0 {
		size = 1
	}
	return center, size
}

// split turns leaf ni into an internal node with 8 empty children.
func (t *Tree) split(ni int32) {
	first := int32(len(t.nodes))
	parent := t.nodes[ni]
	half := parent.size / 2
	for oct := LLL; oct <= HHH; oct++ {
		c := mgl64.Vec3{
			parent.center[0] + oct.sign(0)*half,
			parent.center[1] + oct.sign(1)*half,
			parent.center[2] + oct.sign(2)*half,
		}
		t.nodes = append(t.nodes, node{center: c, size: half, child: empty, body: empty})
	}
	t.nodes[ni].child = first
}

// insert places body bi in the tree, subdividing occupied leaves until the
// newcomer and the occupant land in different octants.
func (t *Tree) insert(bi int32) {
	pos := t.bodies[bi].Pos
	ni := int32(0)
	for depth := 0; ; depth++ {
		n := &t.nodes[ni]
		if !n.leaf() {
			ni = n.child + int32(octantOf(n.center, pos))
			continue
		}

		// simple case: empty leaf
		if n.body == empty {
			n.body = bi
			return
		}

		// coincident particles can never be separated by subdivision
		occupant := n.body
		if depth >= maxDepth || t.bodies[occupant].Pos == pos {
			t.next[bi] = occupant
			n.body = bi
			return
		}

		// occupied leaf: split it, push the occupant (and anything chained to
		// it) down one level and retry the newcomer from here.
		t.split(ni) // invalidates n
		n = &t.nodes[ni]
		n.body = empty
		t.nodes[n.child+int32(octantOf(n.center, t.bodies[occupant].Pos))].body = occupant
	}
}

// Aggregate recomputes mass, center of mass and offset of every node from
// the current particle state. Build calls it; call it again after changing
// masses or positions of particles already in the tree.
func (t *Tree) Aggregate() {
	// children are always allocated after their parent, so walking the slice
	// backwards is a post-order traversal.
	for i := len(t.nodes) - 1; i >= 0; i-- {
		n := &t.nodes[i]
		n.mass = 0
		n.com = mgl64.Vec3{}

		if n.leaf() {
			for bi := n.body; bi != empty; bi = t.next[bi] {
				p := t.bodies[bi]
				n.mass += p.Mass
				n.com = n.com.Add(p.Pos.Mul(p.Mass))
			}
			switch {
			case n.mass > 0:
				n.com = n.com.Mul(1 / n.mass)
			case n.body != empty:
				n.com = t.bodies[n.body].Pos
			default:
				n.com = n.center
			}
		} else {
			for c := n.child; c < n.child+8; c++ {
				child := &t.nodes[c]
				n.mass += child.mass
				n.com = n.com.Add(child.com.Mul(child.mass))
			}
			if n.mass > 0 {
				n.com = n.com.Mul(1 / n.mass)
			} else {
				n.com = n.center
			}
		}
		n.offset = cornerOffset(n)
	}
}

// cornerOffset is the largest distance from any corner of the node's cube
// to its center of mass.
func cornerOffset(n *node) float64 {
	var worst float64
	for oct := LLL; oct <= HHH; oct++ {
		corner := mgl64.Vec3{
			n.center[0] + oct.sign(0)*n.size,
			n.center[1] + oct.sign(1)*n.size,
			n.center[2] + oct.sign(2)*n.size,
		}
		worst = math.Max(worst, corner.Sub(n.com).LenSqr())
	}
	return math.Sqrt(worst)
}

// Mass returns the total aggregated mass of the tree.
func (t *Tree) Mass() float64 {
	if len(t.nodes) == 0 {
		return 0
	}
	return t.nodes[0].mass
}

// CenterOfMass returns the aggregated center of mass of the tree.
func (t *Tree) CenterOfMass() mgl64.Vec3 {
	if len(t.nodes) == 0 {
		return mgl64.Vec3{}
	}
	return t.nodes[0].com
}

// Bounds returns the root cube's center and half-size.
func (t *Tree) Bounds() (center mgl64.Vec3, size float64) {
	if len(t.nodes) == 0 {
		return mgl64.Vec3{}, 0
	}
	return t.nodes[0].center, t.nodes[0].size
}
