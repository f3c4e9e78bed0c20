package stream

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/quillaja/cloudsim/internal/errs"
	"github.com/quillaja/cloudsim/internal/registry"
)

// Table converts the type ids a stream was written with into the ids of the
// current registry. It is sized once; ids at or beyond its size never
// resolve.
type Table struct {
	ids   []int
	bound *bitset.BitSet
}

// NewTable returns a table accepting old ids in [0, size).
func NewTable(size int) *Table {
	return &Table{ids: make([]int, size), bound: bitset.New(uint(size))}
}

// Len returns the table size.
func (t *Table) Len() int { return len(t.ids) }

// Set maps oldID onto newID.
func (t *Table) Set(oldID, newID int) error {
	if oldID < 0 || oldID >= len(t.ids) {
		return fmt.Errorf("type id %d outside table of %d: %w", oldID, len(t.ids), errs.ErrInvalidArgument)
	}
	t.ids[oldID] = newID
	t.bound.Set(uint(oldID))
	return nil
}

// Bind maps oldID onto whatever id name has in reg. Names reg does not know
// stay unbound, so only particles actually using them fail to read.
func (t *Table) Bind(oldID int, name string, reg *registry.Registry) (bool, error) {
	typ, err := reg.Type(name)
	if err != nil {
		return false, nil
	}
	return true, t.Set(oldID, typ.ID)
}

// Lookup returns the current id for oldID, or ErrLookup if it has no entry.
func (t *Table) Lookup(oldID int) (int, error) {
	if oldID < 0 || oldID >= len(t.ids) || !t.bound.Test(uint(oldID)) {
		return 0, fmt.Errorf("type id %d in stream: %w", oldID, errs.ErrLookup)
	}
	return t.ids[oldID], nil
}
