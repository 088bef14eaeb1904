package integrator

import (
	"fmt"
	"math"

	"github.com/Ameobea/go-volumetric-fog/pkg/core"
	"github.com/Ameobea/go-volumetric-fog/pkg/fog"
)

// March tuning constants from the reference renderer
const (
	// densityEpsilon gates colorization in near-empty space
	densityEpsilon = 0.01
	// saturationTolerance ends the march just under the density cap
	saturationTolerance = 0.01
	// Rays shortened by slab clipping get a fraction of their unclipped
	// length back, up to a cap, to counteract under-integration
	longRayLengthFactor = 0.2
	longRayLengthCap    = 1500.0
	// Blue-noise values in [0,1) map to a jitter of ±0.05
	jitterScale = 0.1
	// Fraction of the jitter added to every step length
	stepJitterScale = 0.2
)

// FogMarcher walks clipped rays through the density field, accumulating
// color and opacity front to back under the remaining-transparency rule.
// It holds no per-ray state and is safe for concurrent use across pixels.
type FogMarcher struct {
	config *fog.Config
	field  Field
	colors ColorSource
	jitter JitterSource
}

// NewFogMarcher creates a fog marcher, validating the configuration
func NewFogMarcher(config *fog.Config, field Field, colors ColorSource, jitter JitterSource) (*FogMarcher, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if field == nil || colors == nil || jitter == nil {
		return nil, fmt.Errorf("fog marcher requires a field, a color source and a jitter source")
	}
	return &FogMarcher{config: config, field: field, colors: colors, jitter: jitter}, nil
}

// March integrates fog along the segment from start (the camera position)
// to end (the reconstructed depth hit) for the pixel at (px, py)
func (fm *FogMarcher) March(start, end core.Vec3, px, py int, frame *core.FrameContext) Result {
	unclippedLength := end.Subtract(start).Length()

	clippedStart, clippedEnd := fog.ClipToSlab(start, end, fm.config.FogMinY, fm.config.FogMaxY)
	segment := clippedEnd.Subtract(clippedStart)
	rayLength := segment.Length()
	if rayLength == 0 {
		return Result{State: MarchEmpty}
	}
	direction := segment.Multiply(1 / rayLength)

	// Long-ray compensation: clipped rays recover part of their unclipped
	// geometric length before the cap applies
	maxRayLength := fm.config.BaseMaxRayLength + math.Min(unclippedLength*longRayLengthFactor, longRayLengthCap)
	rayLength = math.Min(rayLength, maxRayLength)
	baseStepLength := rayLength / float64(fm.config.BaseRaymarchStepCount)

	// One jitter draw per pixel decorrelates step banding between neighbors
	res := fm.config.BlueNoiseResolution
	jitter := (fm.jitter.At(px%res, py%res) - 0.5) * jitterScale

	stepLength := max(baseStepLength, fm.config.MinStepLength) + jitter*stepJitterScale
	pos := clippedStart.Add(direction.Multiply(jitter))

	var accColor core.Vec3
	accDensity := 0.0
	distanceTraveled := 0.0
	steps := 0

	for distanceTraveled < rayLength {
		if steps >= fm.config.MaxRaymarchStepCount {
			return fm.finish(accColor, accDensity, MarchIterationCapped, steps)
		}
		steps++

		rawDensity := fm.field.Density(pos, frame.Time)
		if rawDensity > densityEpsilon {
			density := rawDensity * stepLength * fm.config.FogDensityMultiplier
			color := fm.colors.Color(pos, rawDensity, frame)

			// Each step only consumes the transmittance not already spent
			remaining := 1 - accDensity
			accColor = accColor.Add(color.Multiply(density * remaining))
			accDensity = math.Min(accDensity+density*remaining, fm.config.MaxDensity)
		}

		distanceTraveled += stepLength
		pos = pos.Add(direction.Multiply(stepLength))

		if accDensity >= fm.config.MaxDensity-saturationTolerance {
			return fm.finish(accColor, accDensity, MarchSaturated, steps)
		}
	}

	return fm.finish(accColor, accDensity, MarchExhausted, steps)
}

// finish applies the terminal density shaping to a non-empty march
func (fm *FogMarcher) finish(accColor core.Vec3, accDensity float64, state MarchState, steps int) Result {
	shaped := math.Pow(accDensity*fm.config.PostDensityMultiplier, fm.config.PostDensityPow)
	return Result{
		Color:   accColor.Clamp(0, 1),
		Opacity: core.Clamp(shaped, 0, 1),
		State:   state,
		Steps:   steps,
	}
}
