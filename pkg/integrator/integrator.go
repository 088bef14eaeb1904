package integrator

import (
	"github.com/Ameobea/go-volumetric-fog/pkg/core"
)

// Field supplies raw fog density at a world position and scene time
type Field interface {
	Density(worldPos core.Vec3, time float64) float64
}

// ColorSource maps a position and raw density to the fog's emitted color
type ColorSource interface {
	Color(pos core.Vec3, rawDensity float64, frame *core.FrameContext) core.Vec3
}

// JitterSource provides a tileable per-pixel scalar in [0,1)
type JitterSource interface {
	At(x, y int) float64
}

// Marcher integrates fog along one pixel's camera-to-depth segment
type Marcher interface {
	March(start, end core.Vec3, px, py int, frame *core.FrameContext) Result
}

// MarchState tags how a ray's integration terminated
type MarchState int

const (
	// MarchEmpty means the segment never entered the fog slab
	MarchEmpty MarchState = iota
	// MarchSaturated means accumulation reached the density cap early
	MarchSaturated
	// MarchExhausted means the ray was marched to its full length
	MarchExhausted
	// MarchIterationCapped means the step-count safety valve fired; the
	// result still carries the best partial accumulation
	MarchIterationCapped
)

// String returns a human-readable state name
func (s MarchState) String() string {
	switch s {
	case MarchEmpty:
		return "empty"
	case MarchSaturated:
		return "saturated"
	case MarchExhausted:
		return "exhausted"
	case MarchIterationCapped:
		return "iteration-capped"
	default:
		return "unknown"
	}
}

// Result is the outcome of marching one ray: the fog's emitted color, its
// accumulated opacity after terminal shaping, and how the march ended
type Result struct {
	Color   core.Vec3
	Opacity float64
	State   MarchState
	Steps   int
}
