package registry

import (
	"fmt"

	"github.com/quillaja/cloudsim/internal/errs"
)

// Field is a selected scalar field of a pip. Integral fields only answer Int,
// real fields only answer Float.
type Field struct {
	Name     string
	Integral bool
	get      func() float64
	set      func(float64)
}

// FloatField exposes *v as a real-valued field.
func FloatField(name string, v *float64) Field {
	return Field{
		Name: name,
		get:  func() float64 { return *v },
		set:  func(x float64) { *v = x },
	}
}

// BoolField exposes *v as an integral field holding 0 or 1.
func BoolField(name string, v *bool) Field {
	return Field{
		Name:     name,
		Integral: true,
		get: func() float64 {
			if *v {
				return 1
			}
			return 0
		},
		set: func(x float64) { *v = x != 0 },
	}
}

func (f Field) Float() (float64, error) {
	if f.Integral {
		return 0, fmt.Errorf("field %q is integral: %w", f.Name, errs.ErrTypeMismatch)
	}
	return f.get(), nil
}

func (f Field) Int() (int64, error) {
	if !f.Integral {
		return 0, fmt.Errorf("field %q is real: %w", f.Name, errs.ErrTypeMismatch)
	}
	return int64(f.get()), nil
}

// Value returns the field as a float regardless of kind. Used by comparators.
func (f Field) Value() float64 { return f.get() }

// Set stores x, truncating toward an integer value for integral fields.
func (f Field) Set(x float64) { f.set(x) }

// UnknownField is the error pips return for names they do not carry.
func UnknownField(pip, name string) error {
	return fmt.Errorf("field %q of pip %q: %w", name, pip, errs.ErrNotFound)
}
