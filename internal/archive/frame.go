// Package archive records simulation frames: a sqlite table of per-particle
// rows and compressed gob chunks of whole frames.
package archive

import (
	"github.com/google/uuid"

	"github.com/quillaja/cloudsim/internal/pip"
	"github.com/quillaja/cloudsim/internal/sim"
)

// Body is the archived state of one particle, in presentation units.
type Body struct {
	ID      uint32
	Origin  uint32
	Type    string
	X, Y, Z float32
	Mass    float32
	Radius  float32
}

// Frame is one archived snapshot of a run.
type Frame struct {
	Run    uuid.UUID
	Frame  int
	Age    float64
	Bodies []Body
}

// Capture copies the live particles of s into a frame, scaled by s.Units.
func Capture(s *sim.Simulation, run uuid.UUID, frame int) Frame {
	u := s.Units
	f := Frame{
		Run:    run,
		Frame:  frame,
		Age:    s.Age * u.Time,
		Bodies: make([]Body, 0, s.Len()),
	}
	names := make(map[int]string)
	s.Each(func(p *sim.Particle) bool {
		if p.Dead() {
			return true
		}
		name, ok := names[p.Type]
		if !ok {
			if t, err := s.Registry().TypeByID(p.Type); err == nil {
				name = t.Name
			}
			names[p.Type] = name
		}
		r, _ := pip.RadiusOf(p)
		f.Bodies = append(f.Bodies, Body{
			ID:     uint32(p.Index),
			Origin: uint32(p.Origin),
			Type:   name,
			X:      float32(p.Pos[0] * u.Length),
			Y:      float32(p.Pos[1] * u.Length),
			Z:      float32(p.Pos[2] * u.Length),
			Mass:   float32(p.Mass * u.Mass),
			Radius: float32(r * u.Length),
		})
		return true
	})
	return f
}
