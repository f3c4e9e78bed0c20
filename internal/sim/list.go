package sim

import (
	"fmt"

	"github.com/quillaja/cloudsim/internal/errs"
)

// List is a named, ordered, non-owning view over particles of one
// simulation. Entries whose particle was deleted stay in the list and
// resolve to ErrStale until Compact or Clear drops them.
type List struct {
	Name    string
	sim     *Simulation
	handles []Handle
}

// Simulation returns the simulation the list is scoped to.
func (l *List) Simulation() *Simulation { return l.sim }

func (l *List) Len() int { return len(l.handles) }

// Append adds handles to the end of the list.
func (l *List) Append(hs ...Handle) { l.handles = append(l.handles, hs...) }

// Clear empties the list.
func (l *List) Clear() { l.handles = l.handles[:0] }

// Handles returns a copy of the entries.
func (l *List) Handles() []Handle {
	out := make([]Handle, len(l.handles))
	copy(out, l.handles)
	return out
}

// Get resolves the i'th entry.
func (l *List) Get(i int) (*Particle, error) {
	if i < 0 || i >= len(l.handles) {
		return nil, fmt.Errorf("entry %d of list %q: %w", i, l.Name, errs.ErrNotFound)
	}
	return l.sim.Get(l.handles[i])
}

// Particles resolves every entry, skipping stale ones.
func (l *List) Particles() []*Particle {
	out := make([]*Particle, 0, len(l.handles))
	for _, h := range l.handles {
		if p, err := l.sim.Get(h); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// Compact drops stale entries and returns how many were dropped.
func (l *List) Compact() int {
	kept := l.handles[:0]
	for _, h := range l.handles {
		if _, err := l.sim.Get(h); err == nil {
			kept = append(kept, h)
		}
	}
	dropped := len(l.handles) - len(kept)
	l.handles = kept
	return dropped
}

// NewList creates an empty list named name.
func (s *Simulation) NewList(name string) (*List, error) {
	if _, ok := s.lists[name]; ok {
		return nil, fmt.Errorf("list %q in %q: %w", name, s.Name, errs.ErrDuplicateName)
	}
	l := &List{Name: name, sim: s}
	s.lists[name] = l
	return l, nil
}

// List resolves a list by name.
func (s *Simulation) List(name string) (*List, error) {
	l, ok := s.lists[name]
	if !ok {
		return nil, fmt.Errorf("list %q in %q: %w", name, s.Name, errs.ErrNotFound)
	}
	return l, nil
}

// DeleteList removes a list. Its particles are untouched.
func (s *Simulation) DeleteList(name string) error {
	if _, ok := s.lists[name]; !ok {
		return fmt.Errorf("list %q in %q: %w", name, s.Name, errs.ErrNotFound)
	}
	delete(s.lists, name)
	return nil
}

// Select creates a list named name holding, in creation order, every live
// particle for which keep returns true.
func (s *Simulation) Select(name string, keep func(p *Particle) bool) (*List, error) {
	l, err := s.NewList(name)
	if err != nil {
		return nil, err
	}
	s.Each(func(p *Particle) bool {
		if keep(p) {
			l.handles = append(l.handles, p.handle)
		}
		return true
	})
	return l, nil
}

// SelectAll creates a list of every live particle.
func (s *Simulation) SelectAll(name string) (*List, error) {
	return s.Select(name, func(*Particle) bool { return true })
}

// SelectType creates a list of the particles of the named type.
func (s *Simulation) SelectType(name, typeName string) (*List, error) {
	t, err := s.reg.Type(typeName)
	if err != nil {
		return nil, err
	}
	return s.Select(name, func(p *Particle) bool { return p.Type == t.ID })
}

// SelectField creates a list of the particles carrying the named pip whose
// field compares true against value. Particles without the pip are skipped.
func (s *Simulation) SelectField(name, pipName, field string, cmp Comparator, value float64) (*List, error) {
	pt, err := s.reg.Pip(pipName)
	if err != nil {
		return nil, err
	}
	var ferr error
	l, err := s.Select(name, func(p *Particle) bool {
		if ferr != nil {
			return false
		}
		off, err := s.reg.Offset(p.Type, pt.ID)
		if err != nil {
			return false
		}
		f, err := p.Pips[off].Field(field)
		if err != nil {
			ferr = err
			return false
		}
		return cmp.Compare(f.Value(), value)
	})
	if err != nil {
		return nil, err
	}
	if ferr != nil {
		delete(s.lists, name)
		return nil, ferr
	}
	return l, nil
}

// Comparator is a scalar predicate operator used by SelectField.
type Comparator int

const (
	Less Comparator = iota
	LessEqual
	Equal
	NotEqual
	GreaterEqual
	Greater
)

var comparatorSymbols = map[string]Comparator{
	"<": Less, "<=": LessEqual, "==": Equal, "!=": NotEqual, ">=": GreaterEqual, ">": Greater,
}

// ParseComparator parses one of < <= == != >= >.
func ParseComparator(sym string) (Comparator, error) {
	c, ok := comparatorSymbols[sym]
	if !ok {
		return 0, fmt.Errorf("comparator %q: %w", sym, errs.ErrInvalidArgument)
	}
	return c, nil
}

// Compare applies c to a and b.
func (c Comparator) Compare(a, b float64) bool {
	switch c {
	case Less:
		return a < b
	case LessEqual:
		return a <= b
	case Equal:
		return a == b
	case NotEqual:
		return a != b
	case GreaterEqual:
		return a >= b
	case Greater:
		return a > b
	}
	return false
}
