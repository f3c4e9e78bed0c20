package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Problem describes one particle failing the validation scan.
type Problem struct {
	Handle Handle
	Index  int
	Reason string
}

// Scan reports particles with negative mass or non-finite position or
// velocity. The step kernels never check this themselves. Results are in
// slot order.
func (s *Simulation) Scan() []Problem {
	var problems []Problem
	for i, ok := s.live.NextSet(0); ok; i, ok = s.live.NextSet(i + 1) {
		p := s.slots[i].p
		switch {
		case p.Mass < 0 || math.IsNaN(p.Mass):
			problems = append(problems, Problem{p.handle, p.Index, "invalid mass"})
		case !finite(p.Pos):
			problems = append(problems, Problem{p.handle, p.Index, "non-finite position"})
		case !finite(p.Vel):
			problems = append(problems, Problem{p.handle, p.Index, "non-finite velocity"})
		}
	}
	return problems
}

func finite(v mgl64.Vec3) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
