package sim

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillaja/cloudsim/internal/binio"
	"github.com/quillaja/cloudsim/internal/errs"
	"github.com/quillaja/cloudsim/internal/registry"
)

type heatPip struct {
	Temperature float64
	destroyed   *int
}

func (h *heatPip) Destroy() { *h.destroyed++ }
func (h *heatPip) Field(name string) (registry.Field, error) {
	if name != "temperature" {
		return registry.Field{}, registry.UnknownField("heat", name)
	}
	return registry.FloatField(name, &h.Temperature), nil
}
func (h *heatPip) WriteTo(w *binio.Writer) error { return w.Float64(h.Temperature) }
func (h *heatPip) ReadFrom(r *binio.Reader) (err error) {
	h.Temperature, err = r.Float64()
	return err
}

type fixture struct {
	sim       *Simulation
	gas, rock int
	destroyed int
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{}
	reg := registry.New()
	heat, err := reg.RegisterPip("heat", func() registry.Pip {
		return &heatPip{Temperature: 100, destroyed: &f.destroyed}
	})
	require.NoError(t, err)
	gas, err := reg.RegisterType("gas", heat.ID)
	require.NoError(t, err)
	rock, err := reg.RegisterType("rock")
	require.NoError(t, err)
	f.gas, f.rock = gas.ID, rock.ID
	f.sim = New("test", reg, rand.New(rand.NewSource(1)))
	return f
}

func (f *fixture) add(t *testing.T, typ int, mass float64) Handle {
	h, err := f.sim.CreateExact(typ, mass, mgl64.Vec3{mass, 0, 0}, mgl64.Vec3{}, mgl64.Vec3{})
	require.NoError(t, err)
	return h
}

func TestCreateDefaults(t *testing.T) {
	f := newFixture(t)
	h, err := f.sim.Create(f.gas)
	require.NoError(t, err)
	p, err := f.sim.Get(h)
	require.NoError(t, err)

	for _, x := range p.Pos {
		assert.GreaterOrEqual(t, x, 0.0)
		assert.Less(t, x, 1.0)
	}
	assert.Equal(t, mgl64.Vec3{}, p.Vel)
	assert.Equal(t, mgl64.Vec3{}, p.Acc)
	assert.Equal(t, DefaultMass, p.Mass)
	require.Len(t, p.Pips, 1)
	assert.Equal(t, 100.0, p.Pips[0].(*heatPip).Temperature)

	_, err = f.sim.Create(999)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCreateExactKeepsAcceleration(t *testing.T) {
	f := newFixture(t)
	h, err := f.sim.CreateExact(f.rock, 2, mgl64.Vec3{1, 2, 3}, mgl64.Vec3{4, 5, 6}, mgl64.Vec3{7, 8, 9})
	require.NoError(t, err)
	p, err := f.sim.Get(h)
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec3{7, 8, 9}, p.Acc)
	assert.Empty(t, p.Pips)
	assert.Equal(t, p.Index, p.Origin)
}

func TestDeleteKeepsSequenceConsistent(t *testing.T) {
	f := newFixture(t)
	a := f.add(t, f.gas, 1)
	b := f.add(t, f.gas, 2)
	c := f.add(t, f.gas, 3)

	require.NoError(t, f.sim.Delete(a))
	assert.Equal(t, 2.0, f.sim.First().Mass)
	assert.Equal(t, 3.0, f.sim.Last().Mass)
	assert.Equal(t, 1, f.destroyed)

	require.NoError(t, f.sim.Delete(c))
	assert.Equal(t, 2.0, f.sim.First().Mass)
	assert.Equal(t, 2.0, f.sim.Last().Mass)

	require.NoError(t, f.sim.Delete(b))
	assert.Nil(t, f.sim.First())
	assert.Nil(t, f.sim.Last())
	assert.Equal(t, 0, f.sim.Len())
	assert.Equal(t, 3, f.destroyed)

	// slots are reused but old handles stay dead
	d := f.add(t, f.gas, 4)
	_, err := f.sim.Get(b)
	assert.ErrorIs(t, err, errs.ErrStale)
	p, err := f.sim.Get(d)
	require.NoError(t, err)
	assert.Equal(t, 4.0, p.Mass)
	assert.ErrorIs(t, f.sim.Delete(b), errs.ErrStale)
}

func TestParticlesInCreationOrder(t *testing.T) {
	f := newFixture(t)
	var hs []Handle
	for i := 1; i <= 5; i++ {
		hs = append(hs, f.add(t, f.rock, float64(i)))
	}
	require.NoError(t, f.sim.Delete(hs[2]))
	f.add(t, f.rock, 6)

	var masses []float64
	for _, p := range f.sim.Particles() {
		masses = append(masses, p.Mass)
	}
	assert.Equal(t, []float64{1, 2, 4, 5, 6}, masses)
}

func TestListEntriesGoStale(t *testing.T) {
	f := newFixture(t)
	a := f.add(t, f.gas, 1)
	b := f.add(t, f.rock, 2)
	l, err := f.sim.NewList("pair")
	require.NoError(t, err)
	l.Append(a, b)

	require.NoError(t, f.sim.Delete(a))
	_, err = l.Get(0)
	assert.ErrorIs(t, err, errs.ErrStale)
	assert.Len(t, l.Particles(), 1)
	assert.Equal(t, 2, l.Len())

	assert.Equal(t, 1, l.Compact())
	assert.Equal(t, []Handle{b}, l.Handles())

	_, err = l.Get(5)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	l.Clear()
	assert.Equal(t, 0, l.Len())
}

func TestListNames(t *testing.T) {
	f := newFixture(t)
	_, err := f.sim.NewList("x")
	require.NoError(t, err)
	_, err = f.sim.NewList("x")
	assert.ErrorIs(t, err, errs.ErrDuplicateName)
	_, err = f.sim.List("y")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, f.sim.DeleteList("x"))
	assert.ErrorIs(t, f.sim.DeleteList("x"), errs.ErrNotFound)
}

func TestSelectors(t *testing.T) {
	f := newFixture(t)
	hot := f.add(t, f.gas, 1)
	cold := f.add(t, f.gas, 2)
	f.add(t, f.rock, 3)

	p, _ := f.sim.Get(hot)
	p.Pips[0].(*heatPip).Temperature = 5000
	p, _ = f.sim.Get(cold)
	p.Pips[0].(*heatPip).Temperature = 10

	gas, err := f.sim.SelectType("gas", "gas")
	require.NoError(t, err)
	assert.Equal(t, []Handle{hot, cold}, gas.Handles())

	cmp, err := ParseComparator(">")
	require.NoError(t, err)
	warm, err := f.sim.SelectField("warm", "heat", "temperature", cmp, 100)
	require.NoError(t, err)
	assert.Equal(t, []Handle{hot}, warm.Handles())

	_, err = f.sim.SelectField("bad", "heat", "pressure", cmp, 1)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = f.sim.List("bad")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	all, err := f.sim.SelectAll("all")
	require.NoError(t, err)
	assert.Equal(t, 3, all.Len())

	_, err = ParseComparator("~")
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestReapAndTotals(t *testing.T) {
	f := newFixture(t)
	a := f.add(t, f.rock, 1)
	b := f.add(t, f.rock, 2)
	c := f.add(t, f.rock, 3)

	pa, _ := f.sim.Get(a)
	pa.Vel = mgl64.Vec3{1, 0, 0}
	pb, _ := f.sim.Get(b)
	pb.Kill()
	pc, _ := f.sim.Get(c)
	pc.Extract = 1

	tot := f.sim.Totals()
	assert.Equal(t, 2, tot.N)
	assert.Equal(t, 4.0, tot.Mass)
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, tot.Momentum)

	assert.Equal(t, 2, f.sim.Reap())
	assert.Equal(t, 1, f.sim.Len())
}

func TestScan(t *testing.T) {
	f := newFixture(t)
	a := f.add(t, f.rock, 1)
	b := f.add(t, f.rock, 2)
	c := f.add(t, f.rock, 3)

	pa, _ := f.sim.Get(a)
	pa.Mass = -1
	pb, _ := f.sim.Get(b)
	pb.Pos[1] = math.Inf(1)
	pc, _ := f.sim.Get(c)
	pc.Vel[2] = math.NaN()

	problems := f.sim.Scan()
	require.Len(t, problems, 3)
	assert.Equal(t, a, problems[0].Handle)
	assert.Equal(t, "invalid mass", problems[0].Reason)
	assert.Equal(t, "non-finite position", problems[1].Reason)
	assert.Equal(t, "non-finite velocity", problems[2].Reason)
}

func TestSession(t *testing.T) {
	reg := registry.New()
	ss := NewSession(reg, 7)
	s, err := ss.NewSimulation("main")
	require.NoError(t, err)
	_, err = ss.NewSimulation("main")
	assert.ErrorIs(t, err, errs.ErrDuplicateName)

	_, err = s.NewList("clouds")
	require.NoError(t, err)
	l, err := ss.List("main", "clouds")
	require.NoError(t, err)
	assert.Same(t, s, l.Simulation())

	_, err = ss.List("other", "clouds")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = ss.List("main", "stars")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	assert.Equal(t, []string{"main"}, ss.Names())
	require.NoError(t, ss.DeleteSimulation("main"))
	_, err = ss.Simulation("main")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
