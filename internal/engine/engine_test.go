package engine

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillaja/cloudsim/internal/config"
	"github.com/quillaja/cloudsim/internal/errs"
	"github.com/quillaja/cloudsim/internal/pip"
	"github.com/quillaja/cloudsim/internal/registry"
	"github.com/quillaja/cloudsim/internal/sim"
)

type fixture struct {
	eng *Engine
	std *pip.Standard
}

func newFixture(t *testing.T, mutate func(cfg *config.Config)) *fixture {
	reg := registry.New()
	std, err := pip.RegisterStandard(reg)
	require.NoError(t, err)
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	s := sim.New("test", reg, rand.New(rand.NewSource(1)))
	return &fixture{eng: New(s, cfg, zerolog.Nop()), std: std}
}

func (f *fixture) add(t *testing.T, typ *registry.ParticleType, mass float64, pos mgl64.Vec3) *sim.Particle {
	h, err := f.eng.Sim.CreateExact(typ.ID, mass, pos, mgl64.Vec3{}, mgl64.Vec3{})
	require.NoError(t, err)
	p, err := f.eng.Sim.Get(h)
	require.NoError(t, err)
	return p
}

func TestStepGravityPullsPairTogether(t *testing.T) {
	f := newFixture(t, nil)
	a := f.add(t, f.std.Star, 1, mgl64.Vec3{-1, 0, 0})
	b := f.add(t, f.std.Star, 2, mgl64.Vec3{1, 0, 0})

	stats, err := f.eng.Step(0.01)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Step)
	assert.Equal(t, 2, stats.Particles)
	assert.Greater(t, a.Vel[0], 0.0)
	assert.Less(t, b.Vel[0], 0.0)
	assert.Less(t, a.Potential, 0.0)

	totals := f.eng.Sim.Totals()
	for k := 0; k < 3; k++ {
		assert.InDelta(t, 0, totals.Momentum[k], 1e-12)
	}
	assert.InDelta(t, 0.01, f.eng.Sim.Age, 1e-15)
	assert.Equal(t, 0.01, f.eng.Sim.Timestep)
	assert.Equal(t, 1, f.eng.Steps())
	assert.Equal(t, 2, f.eng.Tree().Len())
}

func TestStepMergesAndReaps(t *testing.T) {
	f := newFixture(t, nil)
	f.add(t, f.std.Cloud, 0.3, mgl64.Vec3{})
	f.add(t, f.std.Cloud, 0.4, mgl64.Vec3{0.005, 0, 0})

	stats, err := f.eng.Step(0.001)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Merges)
	assert.Equal(t, 1, stats.Removed)
	assert.Equal(t, 1, f.eng.Sim.Len())
	assert.InDelta(t, 0.7, f.eng.Sim.Totals().Mass, 1e-12)
}

func TestStepExplodesAndExtracts(t *testing.T) {
	f := newFixture(t, nil)
	star := f.add(t, f.std.MassiveStar, 20, mgl64.Vec3{})
	star.Age = 1
	f.add(t, f.std.Cloud, 0.1, mgl64.Vec3{0.05, 0, 0})

	stats, err := f.eng.Step(0.01)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Exploded)
	assert.Equal(t, 1, stats.Extracted)
	assert.Equal(t, 1, stats.Removed)
	require.Equal(t, 1, f.eng.Sim.Len())

	rem := f.eng.Sim.First()
	assert.Equal(t, f.std.Supernova.ID, rem.Type)
	r, ok := pip.RadiusOf(rem)
	require.True(t, ok)
	assert.Greater(t, r, 0.0)
	assert.InDelta(t, 0.01, rem.Age, 1e-15)
}

func TestStepFormsStarsFromShockedClouds(t *testing.T) {
	f := newFixture(t, nil)
	p := f.add(t, f.std.Cloud, 0.5, mgl64.Vec3{})
	c, err := pip.CloudOf(p)
	require.NoError(t, err)
	c.Shocked = true

	stats, err := f.eng.Step(0.001)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Stars)
	assert.False(t, c.Shocked)
	assert.Greater(t, c.Temperature, 100.0)
	assert.Equal(t, 2, f.eng.Sim.Len())
	assert.Equal(t, f.std.Star.ID, f.eng.Sim.Last().Type)
	assert.InDelta(t, 0.5, f.eng.Sim.Totals().Mass, 1e-12)
}

func TestStepBimodalStarFormation(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) { cfg.StarFormation.Bimodal = true })
	p := f.add(t, f.std.Cloud, 0.5, mgl64.Vec3{})
	c, _ := pip.CloudOf(p)
	c.Shocked = true

	stats, err := f.eng.Step(0.001)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Stars)
	assert.Equal(t, f.std.MassiveStar.ID, f.eng.Sim.Last().Type)
}

func TestStepFragmentsHeavyClouds(t *testing.T) {
	f := newFixture(t, nil)
	f.add(t, f.std.Cloud, 5, mgl64.Vec3{})

	stats, err := f.eng.Step(0.001)
	require.NoError(t, err)
	assert.Greater(t, stats.Fragments, 0)
	assert.Equal(t, 1+stats.Fragments, f.eng.Sim.Len())
	assert.InDelta(t, 5, f.eng.Sim.Totals().Mass, 1e-9)
}

func TestStepHonorsDisabledKernels(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Physics.Collisions = false
		cfg.Physics.Fragmentation = false
		cfg.Physics.StarFormation = false
	})
	f.add(t, f.std.Cloud, 5, mgl64.Vec3{})
	p := f.add(t, f.std.Cloud, 0.5, mgl64.Vec3{})
	c, _ := pip.CloudOf(p)
	c.Shocked = true

	stats, err := f.eng.Step(0.001)
	require.NoError(t, err)
	assert.Equal(t, StepStats{Step: 1, Particles: 2}, stats)
	assert.True(t, c.Shocked)
}

func TestStepFailsWithoutProgenitorType(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) { cfg.Supernova.Progenitor = "hypergiant" })
	_, err := f.eng.Step(0.001)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestStepLogs(t *testing.T) {
	f := newFixture(t, nil)
	var buf bytes.Buffer
	f.eng.Log = zerolog.New(&buf)
	f.add(t, f.std.Star, 1, mgl64.Vec3{})

	_, err := f.eng.Step(0.001)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"message":"step"`)
	assert.Contains(t, buf.String(), `"particles":1`)
}

func TestSeed(t *testing.T) {
	f := newFixture(t, nil)
	axis := mgl64.Vec3{0, 1, 0}
	hs, err := f.eng.Seed(Seeding{
		Clouds:    50,
		MeanMass:  0.1,
		Spread:    1,
		CloudType: pip.CloudName,
		CoreType:  "star",
		Cores: []Core{
			{Mass: 100, Pos: mgl64.Vec3{-5, 0, 0}, Axis: axis},
			{Mass: 100, Pos: mgl64.Vec3{5, 0, 0}, Axis: axis},
		},
	})
	require.NoError(t, err)
	require.Len(t, hs, 52)
	assert.Equal(t, 52, f.eng.Sim.Len())

	ps := f.eng.Sim.Particles()
	assert.Equal(t, f.std.Star.ID, ps[0].Type)
	assert.Equal(t, 100.0, ps[1].Mass)
	for _, p := range ps[2:] {
		assert.Equal(t, f.std.Cloud.ID, p.Type)
		assert.Greater(t, p.Mass, 0.0)
		assert.InDelta(t, 0, p.Vel.Dot(axis), 1e-12)
		assert.Greater(t, p.Vel.Len(), 0.0)
	}
	assert.Empty(t, f.eng.Sim.Scan())
}

func TestSeedRejectsBadInput(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.eng.Seed(Seeding{Clouds: 1, MeanMass: 0, Spread: 1, CloudType: pip.CloudName})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = f.eng.Seed(Seeding{Clouds: 1, MeanMass: 1, Spread: 1, CloudType: "nebula"})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
