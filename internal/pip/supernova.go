package pip

import (
	"fmt"

	"github.com/quillaja/cloudsim/internal/binio"
	"github.com/quillaja/cloudsim/internal/errs"
	"github.com/quillaja/cloudsim/internal/registry"
	"github.com/quillaja/cloudsim/internal/sim"
)

// Supernova is the state of an expanding remnant shell.
type Supernova struct {
	Radius float64
	Speed  float64
}

func NewSupernova() registry.Pip { return &Supernova{} }

func (s *Supernova) Destroy() {}

func (s *Supernova) Field(name string) (registry.Field, error) {
	switch name {
	case "radius":
		return registry.FloatField(name, &s.Radius), nil
	case "speed":
		return registry.FloatField(name, &s.Speed), nil
	}
	return registry.Field{}, registry.UnknownField(SupernovaName, name)
}

func (s *Supernova) WriteTo(w *binio.Writer) error {
	if err := w.Float64(s.Radius); err != nil {
		return err
	}
	return w.Float64(s.Speed)
}

func (s *Supernova) ReadFrom(r *binio.Reader) (err error) {
	if s.Radius, err = r.Float64(); err != nil {
		return err
	}
	s.Speed, err = r.Float64()
	return err
}

// SupernovaOf returns p's supernova pip, or ErrTypeMismatch if p has none.
func SupernovaOf(p *sim.Particle) (*Supernova, error) {
	for _, pp := range p.Pips {
		if s, ok := pp.(*Supernova); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("particle #%d (type %d) has no %s pip: %w", p.Index, p.Type, SupernovaName, errs.ErrTypeMismatch)
}

// RadiusOf returns the physical radius of p from whichever pip carries one.
func RadiusOf(p *sim.Particle) (float64, bool) {
	for _, pp := range p.Pips {
		switch v := pp.(type) {
		case *Cloud:
			return v.Radius, true
		case *Supernova:
			return v.Radius, true
		}
	}
	return 0, false
}
