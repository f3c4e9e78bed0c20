// Package registry keeps the particle types and pip (component) types known
// to a session.
//
// Ids are handed out from one counter per kind and are never reused, so a
// stream written earlier in the session, or by a session that registered the
// same names in another order, can still be mapped back by name.
package registry

import (
	"fmt"

	"github.com/quillaja/cloudsim/internal/binio"
	"github.com/quillaja/cloudsim/internal/errs"
)

// Pip is the capability set of a component attached to a particle.
// Construction is provided by the owning PipType.
type Pip interface {
	// Destroy releases anything the pip holds. Called once on particle deletion.
	Destroy()
	// Field selects a named scalar field for reading or writing.
	Field(name string) (Field, error)
	// WriteTo encodes the pip's fixed-size binary form.
	WriteTo(w *binio.Writer) error
	// ReadFrom decodes what WriteTo produced.
	ReadFrom(r *binio.Reader) error
}

// PipType describes one kind of pip.
type PipType struct {
	ID   int
	Name string
	New  func() Pip
}

// ParticleType describes one kind of particle and the ordered pips every
// particle of that kind carries. Pips is fixed at registration.
type ParticleType struct {
	ID   int
	Name string
	Pips []*PipType
}

// Offset returns the position of the pip type in t's pip list.
func (t *ParticleType) Offset(pipID int) (int, bool) {
	for i, pt := range t.Pips {
		if pt.ID == pipID {
			return i, true
		}
	}
	return -1, false
}

// NewPips default-constructs one pip per entry of t.Pips, in order.
func (t *ParticleType) NewPips() []Pip {
	if len(t.Pips) == 0 {
		return nil
	}
	pips := make([]Pip, len(t.Pips))
	for i, pt := range t.Pips {
		pips[i] = pt.New()
	}
	return pips
}

// Registry holds the registered types. It is not safe for concurrent use.
type Registry struct {
	types    []*ParticleType
	pips     []*PipType
	nextType int
	nextPip  int
}

// New returns an empty registry. The first id of each kind is 1, so the zero
// value never names a registered type.
func New() *Registry {
	return &Registry{nextType: 1, nextPip: 1}
}

// RegisterPip adds a pip type named name whose instances are built by ctor.
func (r *Registry) RegisterPip(name string, ctor func() Pip) (*PipType, error) {
	if ctor == nil {
		return nil, fmt.Errorf("pip type %q has no constructor: %w", name, errs.ErrInvalidArgument)
	}
	if _, err := r.Pip(name); err == nil {
		return nil, fmt.Errorf("pip type %q: %w", name, errs.ErrDuplicateName)
	}
	pt := &PipType{ID: r.nextPip, Name: name, New: ctor}
	r.nextPip++
	r.pips = append(r.pips, pt)
	return pt, nil
}

// RegisterType adds a particle type named name carrying the given pip types,
// in the given order.
func (r *Registry) RegisterType(name string, pipIDs ...int) (*ParticleType, error) {
	if _, err := r.Type(name); err == nil {
		return nil, fmt.Errorf("particle type %q: %w", name, errs.ErrDuplicateName)
	}
	pips := make([]*PipType, 0, len(pipIDs))
	for _, id := range pipIDs {
		pt, err := r.PipByID(id)
		if err != nil {
			return nil, fmt.Errorf("registering particle type %q: %w", name, err)
		}
		pips = append(pips, pt)
	}
	t := &ParticleType{ID: r.nextType, Name: name, Pips: pips}
	r.nextType++
	r.types = append(r.types, t)
	return t, nil
}

// Type looks up a particle type by name.
func (r *Registry) Type(name string) (*ParticleType, error) {
	for _, t := range r.types {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("particle type %q: %w", name, errs.ErrNotFound)
}

// TypeByID looks up a particle type by id.
func (r *Registry) TypeByID(id int) (*ParticleType, error) {
	for _, t := range r.types {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, fmt.Errorf("particle type id %d: %w", id, errs.ErrNotFound)
}

// Pip looks up a pip type by name.
func (r *Registry) Pip(name string) (*PipType, error) {
	for _, pt := range r.pips {
		if pt.Name == name {
			return pt, nil
		}
	}
	return nil, fmt.Errorf("pip type %q: %w", name, errs.ErrNotFound)
}

// PipByID looks up a pip type by id.
func (r *Registry) PipByID(id int) (*PipType, error) {
	for _, pt := range r.pips {
		if pt.ID == id {
			return pt, nil
		}
	}
	return nil, fmt.Errorf("pip type id %d: %w", id, errs.ErrNotFound)
}

// Offset returns where pip type pipID sits in particle type typeID's pip list.
func (r *Registry) Offset(typeID, pipID int) (int, error) {
	t, err := r.TypeByID(typeID)
	if err != nil {
		return -1, err
	}
	off, ok := t.Offset(pipID)
	if !ok {
		return -1, fmt.Errorf("pip type id %d on particle type %q: %w", pipID, t.Name, errs.ErrNotFound)
	}
	return off, nil
}

// Types returns the registered particle types in registration order.
func (r *Registry) Types() []*ParticleType {
	out := make([]*ParticleType, len(r.types))
	copy(out, r.types)
	return out
}
