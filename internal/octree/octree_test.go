package octree

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillaja/cloudsim/internal/config"
	"github.com/quillaja/cloudsim/internal/sim"
)

func randomParticles(rng *rand.Rand, n int, spread float64) []*sim.Particle {
	ps := make([]*sim.Particle, n)
	for i := range ps {
		ps[i] = &sim.Particle{
			Pos: mgl64.Vec3{
				rng.NormFloat64() * spread,
				rng.NormFloat64() * spread,
				rng.NormFloat64() * spread,
			},
			Mass:  0.5 + rng.Float64(),
			Index: i,
		}
	}
	return ps
}

func treeConfig(theta float64, root config.RootMode, bound config.BoundMode) config.Tree {
	return config.Tree{
		Theta:     theta,
		Softening: 0.05,
		Gravity:   1,
		Root:      root,
		Bound:     bound,
	}
}

func clearForces(ps []*sim.Particle) {
	for _, p := range ps {
		p.Acc = mgl64.Vec3{}
		p.Potential = 0
	}
}

func TestEmptyTreeContributesNothing(t *testing.T) {
	tr := New(treeConfig(0.5, config.RootBarnes, config.BoundOffset))
	tr.Build(nil)
	assert.Equal(t, 0, tr.Len())
	assert.Equal(t, 0.0, tr.Mass())

	p := &sim.Particle{Pos: mgl64.Vec3{1, 2, 3}, Mass: 1, Acc: mgl64.Vec3{0.1, 0.2, 0.3}}
	tr.AccumulateGravity(p)
	assert.Equal(t, mgl64.Vec3{0.1, 0.2, 0.3}, p.Acc)
	assert.Equal(t, 0.0, p.Potential)

	called := false
	tr.Search(p.Pos, 0, 10, func(*sim.Particle) bool { called = true; return true })
	assert.False(t, called)
}

func TestSingleParticleFeelsNothing(t *testing.T) {
	tr := New(treeConfig(0.5, config.RootExact, config.BoundOffset))
	p := &sim.Particle{Pos: mgl64.Vec3{1, 1, 1}, Mass: 3}
	tr.Build([]*sim.Particle{p})
	tr.AccumulateGravity(p)
	assert.Equal(t, mgl64.Vec3{}, p.Acc)
	assert.Equal(t, 3.0, tr.Mass())
	assert.Equal(t, p.Pos, tr.CenterOfMass())
}

func TestTreeMatchesDirectSumAtZeroTheta(t *testing.T) {
	for _, root := range []config.RootMode{config.RootExact, config.RootBarnes} {
		for _, bound := range []config.BoundMode{config.BoundOffset, config.BoundSize} {
			for _, dist := range []config.DistanceMode{config.DistanceCOM, config.DistanceCenter} {
				rng := rand.New(rand.NewSource(3))
				ps := randomParticles(rng, 150, 2)
				cfg := treeConfig(0, root, bound)
				cfg.Distance = dist

				direct := make([]mgl64.Vec3, len(ps))
				potential := make([]float64, len(ps))
				for i, p := range ps {
					DirectSum(p, ps, cfg)
					direct[i], potential[i] = p.Acc, p.Potential
				}
				clearForces(ps)

				tr := New(cfg)
				tr.Build(ps)
				for i, p := range ps {
					tr.AccumulateGravity(p)
					for k := 0; k < 3; k++ {
						assert.InDelta(t, direct[i][k], p.Acc[k], 1e-9*(1+math.Abs(direct[i][k])))
					}
					assert.InDelta(t, potential[i], p.Potential, 1e-9*(1+math.Abs(potential[i])))
				}
			}
		}
	}
}

func TestTreeApproximatesDirectSum(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	ps := randomParticles(rng, 400, 1)
	cfg := treeConfig(0.5, config.RootBarnes, config.BoundOffset)

	direct := make([]mgl64.Vec3, len(ps))
	for i, p := range ps {
		DirectSum(p, ps, cfg)
		direct[i] = p.Acc
	}
	clearForces(ps)

	tr := New(cfg)
	tr.Build(ps)
	var errSum, norm float64
	for i, p := range ps {
		tr.AccumulateGravity(p)
		errSum += p.Acc.Sub(direct[i]).Len()
		norm += direct[i].Len()
	}
	assert.Less(t, errSum/norm, 0.02)
}

func TestWideAndNarrowWalksAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	ps := randomParticles(rng, 200, 1)
	tr := New(treeConfig(0.6, config.RootExact, config.BoundSize))
	tr.Build(ps)

	theta2 := 0.36
	for _, p := range ps[:50] {
		clearForces([]*sim.Particle{p})
		tr.gravity(p, 0, theta2)
		narrow, pot := p.Acc, p.Potential

		clearForces([]*sim.Particle{p})
		tr.gravityWide(p, 0, theta2)
		assert.Equal(t, narrow, p.Acc)
		assert.Equal(t, pot, p.Potential)
	}
}

func TestWideThetaKeepsSelfExclusionAndSoftening(t *testing.T) {
	a := &sim.Particle{Pos: mgl64.Vec3{0, 0, 0}, Mass: 1}
	b := &sim.Particle{Pos: mgl64.Vec3{3, 0, 0}, Mass: 2}
	cfg := treeConfig(2, config.RootExact, config.BoundOffset)

	tr := New(cfg)
	tr.Build([]*sim.Particle{a, b})
	tr.AccumulateGravity(a)

	want := &sim.Particle{Pos: a.Pos, Mass: 1}
	DirectSum(want, []*sim.Particle{a, b}, cfg)
	assert.InDelta(t, want.Acc[0], a.Acc[0], 1e-12)
	assert.Greater(t, a.Acc[0], 0.0)
	assert.InDelta(t, -2/math.Sqrt(9+0.05*0.05), a.Potential, 1e-12)
}

func checkAggregation(t *testing.T, tr *Tree, ni int32) float64 {
	n := &tr.nodes[ni]
	if n.leaf() {
		assert.True(t, n.child == empty)
		var m float64
		for bi := n.body; bi != empty; bi = tr.next[bi] {
			m += tr.bodies[bi].Mass
		}
		assert.InDelta(t, m, n.mass, 1e-12)
		return n.mass
	}
	assert.Equal(t, int32(empty), n.body, "internal node holds a particle")
	var sum float64
	for c := n.child; c < n.child+8; c++ {
		sum += checkAggregation(t, tr, c)
	}
	assert.InDelta(t, sum, n.mass, 1e-9*sum)
	return n.mass
}

func TestAggregationInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	ps := randomParticles(rng, 300, 3)
	tr := New(treeConfig(0.5, config.RootBarnes, config.BoundOffset))
	tr.Build(ps)

	var total float64
	for _, p := range ps {
		total += p.Mass
	}
	assert.InDelta(t, total, checkAggregation(t, tr, 0), 1e-9)

	// offsets bound the distance from any point of the cube to the com
	for i := range tr.nodes {
		n := &tr.nodes[i]
		assert.GreaterOrEqual(t, n.offset, n.size-1e-12)
		assert.LessOrEqual(t, n.offset, 2*math.Sqrt(3)*n.size+1e-12)
	}

	// re-aggregation follows mass changes
	ps[0].Mass += 10
	tr.Aggregate()
	assert.InDelta(t, total+10, checkAggregation(t, tr, 0), 1e-9)
}

func TestCoincidentParticlesShareALeaf(t *testing.T) {
	a := &sim.Particle{Pos: mgl64.Vec3{0.25, 0.25, 0.25}, Mass: 1}
	b := &sim.Particle{Pos: mgl64.Vec3{0.25, 0.25, 0.25}, Mass: 2}
	c := &sim.Particle{Pos: mgl64.Vec3{-0.5, 0, 0}, Mass: 1}
	cfg := treeConfig(0.5, config.RootBarnes, config.BoundOffset)
	tr := New(cfg)
	tr.Build([]*sim.Particle{a, b, c})

	assert.Equal(t, 3, tr.Len())
	assert.InDelta(t, 4.0, tr.Mass(), 1e-12)
	checkAggregation(t, tr, 0)

	tr.AccumulateGravity(a)
	for _, x := range a.Acc {
		assert.False(t, math.IsNaN(x))
	}
	// b sits on a: no direction, only potential
	assert.Less(t, a.Potential, -2/cfg.Softening+1e-9)
}

func TestBarnesRootGrowsAndPersists(t *testing.T) {
	tr := New(treeConfig(0.5, config.RootBarnes, config.BoundOffset))
	tr.Build([]*sim.Particle{{Pos: mgl64.Vec3{5, 0, 0}, Mass: 1}})
	center, size := tr.Bounds()
	assert.Equal(t, mgl64.Vec3{}, center)
	assert.Equal(t, 8.0, size)

	tr.Build([]*sim.Particle{{Pos: mgl64.Vec3{0.5, 0, 0}, Mass: 1}})
	_, size = tr.Bounds()
	assert.Equal(t, 8.0, size)
}

func TestExactRootIsTightCube(t *testing.T) {
	tr := New(treeConfig(0.5, config.RootExact, config.BoundOffset))
	tr.Build([]*sim.Particle{
		{Pos: mgl64.Vec3{1, 1, 1}, Mass: 1},
		{Pos: mgl64.Vec3{3, 2, 1.5}, Mass: 1},
	})
	center, size := tr.Bounds()
	assert.Equal(t, mgl64.Vec3{2, 1.5, 1.25}, center)
	assert.Equal(t, 1.0, size)
}

func TestDeadParticlesAreLeftOut(t *testing.T) {
	live := &sim.Particle{Pos: mgl64.Vec3{0, 0, 0}, Mass: 1}
	dead := &sim.Particle{Pos: mgl64.Vec3{1, 0, 0}, Mass: 5}
	dead.Kill()
	tr := New(treeConfig(0.5, config.RootExact, config.BoundOffset))
	tr.Build([]*sim.Particle{live, dead})
	assert.Equal(t, 1, tr.Len())
}

func TestSearchMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	ps := randomParticles(rng, 500, 1)
	tr := New(treeConfig(0.5, config.RootBarnes, config.BoundOffset))
	tr.Build(ps)

	for trial := 0; trial < 20; trial++ {
		center := mgl64.Vec3{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
		rmin := rng.Float64() * 0.5
		rmax := rmin + rng.Float64()

		want := map[int]bool{}
		for _, p := range ps {
			d := p.Pos.Sub(center).Len()
			if d >= rmin && d < rmax {
				want[p.Index] = true
			}
		}
		got := map[int]bool{}
		tr.Search(center, rmin, rmax, func(q *sim.Particle) bool {
			got[q.Index] = true
			return true
		})
		assert.Equal(t, want, got)
	}
}

func TestSearchStopsEarly(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	ps := randomParticles(rng, 100, 0.1)
	tr := New(treeConfig(0.5, config.RootBarnes, config.BoundOffset))
	tr.Build(ps)

	visits := 0
	tr.Search(mgl64.Vec3{}, 0, 10, func(*sim.Particle) bool {
		visits++
		return visits < 3
	})
	assert.Equal(t, 3, visits)
}

func TestRadiusSearchFilters(t *testing.T) {
	p := &sim.Particle{Pos: mgl64.Vec3{0, 0, 0}, Mass: 1, Type: 1}
	same := &sim.Particle{Pos: mgl64.Vec3{0.1, 0, 0}, Mass: 1, Type: 1}
	other := &sim.Particle{Pos: mgl64.Vec3{0, 0.1, 0}, Mass: 1, Type: 2}
	far := &sim.Particle{Pos: mgl64.Vec3{2, 0, 0}, Mass: 1, Type: 1}
	dead := &sim.Particle{Pos: mgl64.Vec3{0, 0, 0.1}, Mass: 1, Type: 1}

	tr := New(treeConfig(0.5, config.RootExact, config.BoundOffset))
	tr.Build([]*sim.Particle{p, same, other, far, dead})
	dead.Kill() // killed after the build, as merges do mid-step

	var found []*sim.Particle
	tr.RadiusSearch(p, 0.5, func(q *sim.Particle) bool {
		found = append(found, q)
		return true
	})
	require.Len(t, found, 1)
	assert.Same(t, same, found[0])
}
