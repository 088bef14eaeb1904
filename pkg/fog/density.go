package fog

import (
	"fmt"
	"math"

	"github.com/Ameobea/go-volumetric-fog/pkg/core"
)

// VolumeSampler provides tileable 3D noise in [-1,1]
type VolumeSampler interface {
	Sample(p core.Vec3) float64
}

// DensityField evaluates the procedural fog density at a world position.
// It combines the configured octave sum with a height-based boost near the
// slab floor and a fade-out toward the top bound. Pure and safe for
// concurrent use once constructed.
type DensityField struct {
	config *Config
	volume VolumeSampler
}

// NewDensityField creates a density field over the given noise volume
func NewDensityField(config *Config, volume VolumeSampler) (*DensityField, error) {
	if volume == nil {
		return nil, fmt.Errorf("density field requires a noise volume")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &DensityField{config: config, volume: volume}, nil
}

// Density returns the raw fog density at worldPos for the given scene time.
// The value is roughly in [0,1] plus the height-fog boost; the march scales
// it into opacity units.
func (df *DensityField) Density(worldPos core.Vec3, time float64) float64 {
	pos := worldPos.Add(df.config.NoiseMovementPerSecond.Multiply(time))

	acc := df.config.NoiseBias
	for _, oct := range df.config.Octaves {
		acc += oct.Weight * df.volume.Sample(pos.Multiply(oct.Scale*df.config.GlobalScale))
	}

	// Remap the signed octave sum toward [0,1] and sharpen
	d := math.Pow(core.Clamp(acc*0.5+0.5, -1, 1), df.config.NoisePow)

	// Height fog: density ramps up as Y falls through the configured band,
	// saturating below heightFogStartY
	if pos.Y <= df.config.HeightFogEndY {
		d += df.config.HeightFogFactor *
			(1 - core.Smoothstep(df.config.HeightFogStartY, df.config.HeightFogEndY, pos.Y))
	}

	// Fade to zero approaching the top bound so the slab has no hard ceiling
	fadeStart := df.config.FogMaxY - df.config.FadeOutRangeY
	fade := 1 - math.Pow(core.Smoothstep(fadeStart, df.config.FogMaxY, pos.Y), df.config.FadeOutPow)
	return d * fade
}

// Normal estimates a shading normal at worldPos by central differences over
// the density field, pointing out of the denser region. Falls back to the
// up vector where the gradient vanishes.
func (df *DensityField) Normal(worldPos core.Vec3, time float64) core.Vec3 {
	const h = 0.35
	dx := df.Density(worldPos.Add(core.NewVec3(h, 0, 0)), time) -
		df.Density(worldPos.Subtract(core.NewVec3(h, 0, 0)), time)
	dy := df.Density(worldPos.Add(core.NewVec3(0, h, 0)), time) -
		df.Density(worldPos.Subtract(core.NewVec3(0, h, 0)), time)
	dz := df.Density(worldPos.Add(core.NewVec3(0, 0, h)), time) -
		df.Density(worldPos.Subtract(core.NewVec3(0, 0, h)), time)

	g := core.NewVec3(-dx, -dy, -dz)
	if g.LengthSquared() < 1e-12 {
		return core.NewVec3(0, 1, 0)
	}
	return g.Normalize()
}
