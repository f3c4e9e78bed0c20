// Package stream reads and writes particle streams: a type table followed by
// fixed-layout particle records, all in the byte order of a named platform
// profile.
//
// Layout:
//
//	int32 ntypes, then ntypes x (int32 id, int32 len, name bytes)
//	int32 nparticles, then nparticles x particle
//
// A particle is position, velocity and acceleration (3 float64 each), mass
// (float64), type id and origin (int32 each), followed by the encoding of
// each of its pips in type order.
package stream

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/quillaja/cloudsim/internal/binio"
	"github.com/quillaja/cloudsim/internal/errs"
	"github.com/quillaja/cloudsim/internal/registry"
	"github.com/quillaja/cloudsim/internal/sim"
)

// maxTypes bounds the type table so a stream read under the wrong profile
// fails early.
const maxTypes = 1 << 16

// WriteTypes writes every type of reg as an (id, name) pair.
func WriteTypes(w *binio.Writer, reg *registry.Registry) error {
	types := reg.Types()
	if err := w.Int32(int32(len(types))); err != nil {
		return err
	}
	for _, t := range types {
		if err := w.Int32(int32(t.ID)); err != nil {
			return err
		}
		if err := w.String(t.Name); err != nil {
			return err
		}
	}
	return nil
}

// ReadTypes reads a type table and binds it against reg by name.
func ReadTypes(r *binio.Reader, reg *registry.Registry) (*Table, error) {
	n, err := r.Int32()
	if err != nil {
		return nil, err
	}
	if n < 0 || n > maxTypes {
		return nil, fmt.Errorf("type table of %d entries: %w", n, errs.ErrInvalidArgument)
	}

	ids := make([]int, n)
	names := make([]string, n)
	size := 0
	for i := range ids {
		id, err := r.Int32()
		if err != nil {
			return nil, err
		}
		if id < 0 || id >= maxTypes {
			return nil, fmt.Errorf("type id %d: %w", id, errs.ErrInvalidArgument)
		}
		if names[i], err = r.String(); err != nil {
			return nil, err
		}
		ids[i] = int(id)
		size = max(size, int(id)+1)
	}

	tab := NewTable(size)
	for i, id := range ids {
		if _, err := tab.Bind(id, names[i], reg); err != nil {
			return nil, err
		}
	}
	return tab, nil
}

// WriteParticle writes one particle record.
func WriteParticle(w *binio.Writer, p *sim.Particle) error {
	if err := w.Vec3(p.Pos); err != nil {
		return err
	}
	if err := w.Vec3(p.Vel); err != nil {
		return err
	}
	if err := w.Vec3(p.Acc); err != nil {
		return err
	}
	if err := w.Float64(p.Mass); err != nil {
		return err
	}
	if err := w.Int32(int32(p.Type)); err != nil {
		return err
	}
	if err := w.Int32(int32(p.Origin)); err != nil {
		return err
	}
	for _, pp := range p.Pips {
		if err := pp.WriteTo(w); err != nil {
			return err
		}
	}
	return nil
}

// ReadParticle reads one particle record into s, translating its type through
// tab. A particle whose pips fail to decode is removed again.
func ReadParticle(r *binio.Reader, s *sim.Simulation, tab *Table) (sim.Handle, error) {
	pos, err := r.Vec3()
	if err != nil {
		return sim.Handle{}, err
	}
	vel, err := r.Vec3()
	if err != nil {
		return sim.Handle{}, err
	}
	acc, err := r.Vec3()
	if err != nil {
		return sim.Handle{}, err
	}
	mass, err := r.Float64()
	if err != nil {
		return sim.Handle{}, err
	}
	oldType, err := r.Int32()
	if err != nil {
		return sim.Handle{}, err
	}
	origin, err := r.Int32()
	if err != nil {
		return sim.Handle{}, err
	}
	typeID, err := tab.Lookup(int(oldType))
	if err != nil {
		return sim.Handle{}, err
	}

	h, err := s.CreateExact(typeID, mass, pos, vel, acc)
	if err != nil {
		return sim.Handle{}, err
	}
	p, err := s.Get(h)
	if err != nil {
		return sim.Handle{}, err
	}
	p.Origin = int(origin)
	for _, pp := range p.Pips {
		if err := pp.ReadFrom(r); err != nil {
			return sim.Handle{}, errors.Join(err, s.Delete(h))
		}
	}
	return h, nil
}

// Write encodes ps with the type table of reg under the named platform
// profile.
func Write(out io.Writer, reg *registry.Registry, ps []*sim.Particle, platform string) error {
	order, err := binio.Profile(platform)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(out)
	w := binio.NewWriter(bw, order)
	if err := WriteTypes(w, reg); err != nil {
		return err
	}
	if err := w.Int32(int32(len(ps))); err != nil {
		return err
	}
	for _, p := range ps {
		if err := WriteParticle(w, p); err != nil {
			return fmt.Errorf("writing particle #%d: %w", p.Index, err)
		}
	}
	return bw.Flush()
}

// Read decodes a stream written by Write into s under the named platform
// profile and returns the handles of the particles read, in stream order.
func Read(in io.Reader, s *sim.Simulation, platform string) ([]sim.Handle, error) {
	order, err := binio.Profile(platform)
	if err != nil {
		return nil, err
	}
	r := binio.NewReader(bufio.NewReader(in), order)
	tab, err := ReadTypes(r, s.Registry())
	if err != nil {
		return nil, err
	}
	n, err := r.Int32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("particle count %d: %w", n, errs.ErrInvalidArgument)
	}

	var hs []sim.Handle
	for i := int32(0); i < n; i++ {
		h, err := ReadParticle(r, s, tab)
		if err != nil {
			return hs, fmt.Errorf("reading particle %d of %d: %w", i, n, err)
		}
		hs = append(hs, h)
	}
	return hs, nil
}
