// Package pip implements the concrete components particles carry.
package pip

import (
	"fmt"

	"github.com/quillaja/cloudsim/internal/binio"
	"github.com/quillaja/cloudsim/internal/errs"
	"github.com/quillaja/cloudsim/internal/registry"
	"github.com/quillaja/cloudsim/internal/sim"
)

const (
	CloudName     = "cloud"
	SupernovaName = "supernova"
)

// Cloud is the thermodynamic state of a gas cloud.
type Cloud struct {
	Temperature float64 // K
	Pressure    float64
	Radius      float64
	Metallicity float64
	Density     float64
	Shocked     bool
}

// NewCloud returns a cloud with the default state: cold, solar metallicity.
func NewCloud() registry.Pip {
	return &Cloud{
		Temperature: 100,
		Pressure:    1,
		Radius:      0.01,
		Metallicity: 0.02,
		Density:     1,
	}
}

func (c *Cloud) Destroy() {}

func (c *Cloud) Field(name string) (registry.Field, error) {
	switch name {
	case "temperature":
		return registry.FloatField(name, &c.Temperature), nil
	case "pressure":
		return registry.FloatField(name, &c.Pressure), nil
	case "radius":
		return registry.FloatField(name, &c.Radius), nil
	case "metallicity":
		return registry.FloatField(name, &c.Metallicity), nil
	case "density":
		return registry.FloatField(name, &c.Density), nil
	case "shocked":
		return registry.BoolField(name, &c.Shocked), nil
	}
	return registry.Field{}, registry.UnknownField(CloudName, name)
}

func (c *Cloud) WriteTo(w *binio.Writer) error {
	for _, v := range [...]float64{c.Temperature, c.Pressure, c.Radius, c.Metallicity, c.Density} {
		if err := w.Float64(v); err != nil {
			return err
		}
	}
	var shocked int32
	if c.Shocked {
		shocked = 1
	}
	return w.Int32(shocked)
}

func (c *Cloud) ReadFrom(r *binio.Reader) error {
	for _, v := range [...]*float64{&c.Temperature, &c.Pressure, &c.Radius, &c.Metallicity, &c.Density} {
		x, err := r.Float64()
		if err != nil {
			return err
		}
		*v = x
	}
	shocked, err := r.Int32()
	if err != nil {
		return err
	}
	c.Shocked = shocked != 0
	return nil
}

// CloudOf returns p's cloud pip, or ErrTypeMismatch if p has none.
func CloudOf(p *sim.Particle) (*Cloud, error) {
	for _, pp := range p.Pips {
		if c, ok := pp.(*Cloud); ok {
			return c, nil
		}
	}
	return nil, fmt.Errorf("particle #%d (type %d) has no %s pip: %w", p.Index, p.Type, CloudName, errs.ErrTypeMismatch)
}
