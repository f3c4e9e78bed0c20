// Package config holds the tunables of the tree and the physics kernels.
// A Config is built once per run and passed down explicitly.
package config

import (
	"fmt"
	"strings"

	"gopkg.in/gcfg.v1"

	"github.com/quillaja/cloudsim/internal/binio"
	"github.com/quillaja/cloudsim/internal/errs"
)

// RootMode selects how the octree root cube is sized.
type RootMode int

const (
	// RootBarnes uses a power-of-two cube centered on the origin that only
	// grows across builds.
	RootBarnes RootMode = iota
	// RootExact uses the tight bounding cube of the selection.
	RootExact
)

// BoundMode selects the node extent compared against theta*d.
type BoundMode int

const (
	BoundOffset BoundMode = iota // center-of-mass offset
	BoundSize                    // node half-size
)

// DistanceMode selects where d is measured to.
type DistanceMode int

const (
	DistanceCOM    DistanceMode = iota // node center of mass
	DistanceCenter                     // node geometric center
)

func (m *RootMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "barnes":
		*m = RootBarnes
	case "exact":
		*m = RootExact
	default:
		return fmt.Errorf("root mode %q: %w", text, errs.ErrInvalidArgument)
	}
	return nil
}

func (m RootMode) String() string {
	if m == RootExact {
		return "exact"
	}
	return "barnes"
}

func (m *BoundMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "offset":
		*m = BoundOffset
	case "size":
		*m = BoundSize
	default:
		return fmt.Errorf("bound mode %q: %w", text, errs.ErrInvalidArgument)
	}
	return nil
}

func (m BoundMode) String() string {
	if m == BoundSize {
		return "size"
	}
	return "offset"
}

func (m *DistanceMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "com":
		*m = DistanceCOM
	case "center":
		*m = DistanceCenter
	default:
		return fmt.Errorf("distance mode %q: %w", text, errs.ErrInvalidArgument)
	}
	return nil
}

func (m DistanceMode) String() string {
	if m == DistanceCenter {
		return "center"
	}
	return "com"
}

type Tree struct {
	Theta     float64 // opening angle
	Softening float64
	Gravity   float64 // gravitational constant in code units
	Root      RootMode
	Bound     BoundMode
	Distance  DistanceMode
}

type Physics struct {
	HeatOff       bool    // disables collisional heating in merges
	HeatCapacity  float64 // energy per unit mass per kelvin
	Swept         bool    // use the swept collision test instead of the static one
	Collisions    bool
	Fragmentation bool
	StarFormation bool
}

// Fragment bounds the power-law fragment mass distribution.
type Fragment struct {
	MinMass    float64
	MaxMass    float64
	Index      float64
	Dispersion float64 // velocity perturbation of fragments
}

// StarFormation parameterizes sfe = Coefficient * m^MassExponent * Z^MetalExponent
// and the bimodal IMF split.
type StarFormation struct {
	Coefficient   float64
	MassExponent  float64
	MetalExponent float64
	StarType      string
	Bimodal       bool
	LowType       string
	HighType      string
	IMFIndex      float64
	IMFLow        float64
	IMFMid        float64
	IMFHigh       float64
}

// Supernova parameterizes R = RadiusScale * M^MassExponent * t^RadiusExponent
// and Mach = MachScale * (d/MachRadius)^MachExponent.
type Supernova struct {
	Type           string
	Progenitor     string // particle type that explodes
	Lifetime       float64
	RadiusScale    float64
	RadiusExponent float64
	MassExponent   float64
	MachScale      float64
	MachExponent   float64
	MachRadius     float64
	Coupling       float64
	Heating        float64
}

type IO struct {
	Platform string
}

type Config struct {
	Tree          Tree
	Physics       Physics
	Fragment      Fragment
	StarFormation StarFormation
	Supernova     Supernova
	IO            IO
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Tree: Tree{
			Theta:     0.5,
			Softening: 0.01,
			Gravity:   1,
			Root:      RootBarnes,
			Bound:     BoundOffset,
			Distance:  DistanceCOM,
		},
		Physics: Physics{
			HeatCapacity:  1.5,
			Swept:         true,
			Collisions:    true,
			Fragmentation: true,
			StarFormation: true,
		},
		Fragment: Fragment{
			MinMass:    0.01,
			MaxMass:    1,
			Index:      -1.8,
			Dispersion: 0.01,
		},
		StarFormation: StarFormation{
			Coefficient: 0.02,
			StarType:    "star",
			LowType:     "star",
			HighType:    "massivestar",
			IMFIndex:    -2.35,
			IMFLow:      0.1,
			IMFMid:      8,
			IMFHigh:     100,
		},
		Supernova: Supernova{
			Type:           "supernova",
			Progenitor:     "massivestar",
			Lifetime:       0.01,
			RadiusScale:    1,
			RadiusExponent: 0.4,
			MassExponent:   0.2,
			MachScale:      1,
			MachExponent:   -1.5,
			MachRadius:     1,
			Coupling:       0.1,
			Heating:        100,
		},
		IO: IO{Platform: "little"},
	}
}

// ReadFile reads an INI-style config file over the defaults.
func ReadFile(fname string) (Config, error) {
	c := Default()
	if err := gcfg.ReadFileInto(&c, fname); err != nil {
		return c, err
	}
	return c, c.CheckInit()
}

// ReadString parses INI-style text over the defaults.
func ReadString(text string) (Config, error) {
	c := Default()
	if err := gcfg.ReadStringInto(&c, text); err != nil {
		return c, err
	}
	return c, c.CheckInit()
}

// CheckInit validates c.
func (c *Config) CheckInit() error {
	switch {
	case c.Tree.Theta < 0:
		return invalid("theta must be non-negative, but is %g", c.Tree.Theta)
	case c.Tree.Softening < 0:
		return invalid("softening must be non-negative, but is %g", c.Tree.Softening)
	case c.Physics.HeatCapacity <= 0:
		return invalid("heat capacity must be positive, but is %g", c.Physics.HeatCapacity)
	case c.Fragment.MinMass <= 0:
		return invalid("fragment minimum mass must be positive, but is %g", c.Fragment.MinMass)
	case c.Fragment.MaxMass <= c.Fragment.MinMass:
		return invalid("fragment maximum mass %g must exceed minimum mass %g",
			c.Fragment.MaxMass, c.Fragment.MinMass)
	case c.Fragment.Dispersion < 0:
		return invalid("fragment dispersion must be non-negative, but is %g", c.Fragment.Dispersion)
	case c.StarFormation.Coefficient < 0:
		return invalid("star formation coefficient must be non-negative, but is %g",
			c.StarFormation.Coefficient)
	case !(0 < c.StarFormation.IMFLow && c.StarFormation.IMFLow < c.StarFormation.IMFMid &&
		c.StarFormation.IMFMid < c.StarFormation.IMFHigh):
		return invalid("IMF breakpoints must satisfy 0 < low < mid < high, but are %g, %g, %g",
			c.StarFormation.IMFLow, c.StarFormation.IMFMid, c.StarFormation.IMFHigh)
	case c.Supernova.RadiusScale <= 0 || c.Supernova.RadiusExponent <= 0:
		return invalid("supernova radius scale and exponent must be positive")
	case c.Supernova.MachRadius <= 0:
		return invalid("supernova Mach reference radius must be positive, but is %g",
			c.Supernova.MachRadius)
	}
	if _, err := binio.Profile(c.IO.Platform); err != nil {
		return fmt.Errorf("io platform: %w", err)
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), errs.ErrInvalidArgument)
}
