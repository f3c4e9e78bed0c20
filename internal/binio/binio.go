// Package binio reads and writes the fixed-width scalars used by particle
// streams in a byte order chosen once per session.
package binio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/quillaja/cloudsim/internal/errs"
)

// profiles maps platform names onto the byte order their streams were
// written in. Streams carry no marker, so the profile is always explicit.
var profiles = map[string]binary.ByteOrder{
	"little":  binary.LittleEndian,
	"big":     binary.BigEndian,
	"linux":   binary.LittleEndian,
	"x86":     binary.LittleEndian,
	"intel":   binary.LittleEndian,
	"alpha":   binary.LittleEndian,
	"darwin":  binary.LittleEndian,
	"windows": binary.LittleEndian,
	"irix":    binary.BigEndian,
	"sgi":     binary.BigEndian,
	"sparc":   binary.BigEndian,
	"sun":     binary.BigEndian,
	"hpux":    binary.BigEndian,
	"aix":     binary.BigEndian,
	"ppc":     binary.BigEndian,
}

// Profile returns the byte order of the named platform profile.
func Profile(name string) (binary.ByteOrder, error) {
	order, ok := profiles[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("platform profile %q: %w", name, errs.ErrNotFound)
	}
	return order, nil
}

// Profiles lists the recognized profile names in sorted order.
func Profiles() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Writer encodes scalars to an underlying writer.
type Writer struct {
	w     io.Writer
	order binary.ByteOrder
	buf   [8]byte
}

func NewWriter(w io.Writer, order binary.ByteOrder) *Writer {
	return &Writer{w: w, order: order}
}

// Order returns the byte order the writer encodes with.
func (w *Writer) Order() binary.ByteOrder { return w.order }

func (w *Writer) Float64(v float64) error {
	w.order.PutUint64(w.buf[:8], math.Float64bits(v))
	_, err := w.w.Write(w.buf[:8])
	return err
}

func (w *Writer) Int32(v int32) error {
	w.order.PutUint32(w.buf[:4], uint32(v))
	_, err := w.w.Write(w.buf[:4])
	return err
}

func (w *Writer) Vec3(v mgl64.Vec3) error {
	for i := 0; i < 3; i++ {
		if err := w.Float64(v[i]); err != nil {
			return err
		}
	}
	return nil
}

// String writes a length-prefixed string.
func (w *Writer) String(s string) error {
	if err := w.Int32(int32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w.w, s)
	return err
}

// Reader decodes scalars from an underlying reader.
type Reader struct {
	r     io.Reader
	order binary.ByteOrder
	buf   [8]byte
}

func NewReader(r io.Reader, order binary.ByteOrder) *Reader {
	return &Reader{r: r, order: order}
}

// Order returns the byte order the reader decodes with.
func (r *Reader) Order() binary.ByteOrder { return r.order }

func (r *Reader) Float64() (float64, error) {
	if _, err := io.ReadFull(r.r, r.buf[:8]); err != nil {
		return 0, err
	}
	return math.Float64frombits(r.order.Uint64(r.buf[:8])), nil
}

func (r *Reader) Int32() (int32, error) {
	if _, err := io.ReadFull(r.r, r.buf[:4]); err != nil {
		return 0, err
	}
	return int32(r.order.Uint32(r.buf[:4])), nil
}

func (r *Reader) Vec3() (v mgl64.Vec3, err error) {
	for i := 0; i < 3; i++ {
		if v[i], err = r.Float64(); err != nil {
			return v, err
		}
	}
	return v, nil
}

// maxString bounds string lengths so a stream read under the wrong profile
// fails instead of allocating gigabytes.
const maxString = 1 << 16

func (r *Reader) String() (string, error) {
	n, err := r.Int32()
	if err != nil {
		return "", err
	}
	if n < 0 || n > maxString {
		return "", fmt.Errorf("string length %d: %w", n, errs.ErrInvalidArgument)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
