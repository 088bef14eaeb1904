package fog

import (
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/Ameobea/go-volumetric-fog/pkg/core"
)

// NormalMode selects how the color model derives a shading normal inside
// the fog volume.
type NormalMode int

const (
	// NormalModeFixedUp shades every sample against a fixed (0,1,0) normal
	NormalModeFixedUp NormalMode = iota
	// NormalModeGradient estimates normals by central differences over the
	// density field. Costs six extra field evaluations per lit sample.
	NormalModeGradient
)

// Config holds every recognized fog option. Fields are grouped the way the
// march consumes them; all are plain values so a Config can be copied and
// tweaked per scene. Construct with DefaultConfig and call Validate before
// first use.
type Config struct {
	// Vertical bounds of the fog slab
	FogMinY float64
	FogMaxY float64

	// March control
	BaseRaymarchStepCount int     // nominal step count driving the base step length
	MaxRaymarchStepCount  int     // hard iteration cap
	BaseMaxRayLength      float64 // ray length cap before long-ray compensation
	MinStepLength         float64 // floor on per-step distance
	MaxDensity            float64 // early-saturation threshold

	// Density shaping
	FogDensityMultiplier  float64 // scales raw density into opacity units
	PostDensityMultiplier float64 // final shaping: multiplier before the exponent
	PostDensityPow        float64 // final shaping: exponent

	// Noise field
	NoiseBias              float64   // additive bias on the octave sum
	NoisePow               float64   // post-remap exponent on the octave sum
	GlobalScale            float64   // multiplies every octave's spatial scale
	NoiseMovementPerSecond core.Vec3 // wind drift applied as offset * time
	Octaves                OctaveTable

	// Height-based density boost band
	HeightFogStartY float64
	HeightFogEndY   float64
	HeightFogFactor float64

	// Fade-out toward the top bound
	FadeOutRangeY float64
	FadeOutPow    float64

	// Color blend endpoints
	FogColorLowDensity  core.Vec3
	FogColorHighDensity core.Vec3

	// Optional lighting
	LightingEnabled       bool
	LightColor            core.Vec3
	LightIntensity        float64
	LightFalloffDistance  float64
	AmbientLightColor     core.Vec3
	AmbientLightIntensity float64
	NormalMode            NormalMode

	// Tiling period of the jitter source
	BlueNoiseResolution int
}

// DefaultConfig returns the reference fog configuration
func DefaultConfig() Config {
	return Config{
		FogMinY: -40,
		FogMaxY: 4.4,

		BaseRaymarchStepCount: 80,
		MaxRaymarchStepCount:  400,
		BaseMaxRayLength:      300,
		MinStepLength:         0.2,
		MaxDensity:            1.0,

		FogDensityMultiplier:  0.32,
		PostDensityMultiplier: 1.2,
		PostDensityPow:        1.0,

		NoiseBias:              0.1,
		NoisePow:               3.0,
		GlobalScale:            1.0,
		NoiseMovementPerSecond: core.NewVec3(0.6, 0.08, 0.4),
		Octaves:                DefaultOctaveTable(),

		HeightFogStartY: -40,
		HeightFogEndY:   -15,
		HeightFogFactor: 0.25,

		FadeOutRangeY: 3.0,
		FadeOutPow:    0.6,

		FogColorLowDensity:  core.NewVec3(0.2, 0.23, 0.31),
		FogColorHighDensity: core.NewVec3(0.85, 0.9, 0.98),

		LightingEnabled:       false,
		LightColor:            core.NewVec3(1.0, 0.87, 0.7),
		LightIntensity:        1.4,
		LightFalloffDistance:  60,
		AmbientLightColor:     core.NewVec3(0.45, 0.55, 0.74),
		AmbientLightIntensity: 0.6,
		NormalMode:            NormalModeFixedUp,

		BlueNoiseResolution: 64,
	}
}

// Validate rejects configurations that would misbehave mid-march
func (c *Config) Validate() error {
	if c.FogMinY >= c.FogMaxY {
		return fmt.Errorf("fog config: fogMinY (%v) must be below fogMaxY (%v)", c.FogMinY, c.FogMaxY)
	}
	if c.BaseRaymarchStepCount < 1 {
		return fmt.Errorf("fog config: baseRaymarchStepCount must be at least 1, got %d", c.BaseRaymarchStepCount)
	}
	if c.MaxRaymarchStepCount < c.BaseRaymarchStepCount {
		return fmt.Errorf("fog config: maxRaymarchStepCount (%d) must not be below baseRaymarchStepCount (%d)",
			c.MaxRaymarchStepCount, c.BaseRaymarchStepCount)
	}
	if c.BaseMaxRayLength <= 0 {
		return fmt.Errorf("fog config: baseMaxRayLength must be positive, got %v", c.BaseMaxRayLength)
	}
	// Jitter can subtract up to 0.01 from a step; the floor must stay above
	// that or a ray could stop making forward progress
	if c.MinStepLength <= 0.01 {
		return fmt.Errorf("fog config: minStepLength must exceed 0.01, got %v", c.MinStepLength)
	}
	if c.MaxDensity <= 0 || c.MaxDensity > 1 {
		return fmt.Errorf("fog config: maxDensity must be in (0,1], got %v", c.MaxDensity)
	}
	if c.FogDensityMultiplier < 0 {
		return fmt.Errorf("fog config: fogDensityMultiplier must not be negative, got %v", c.FogDensityMultiplier)
	}
	if c.PostDensityMultiplier < 0 {
		return fmt.Errorf("fog config: postDensityMultiplier must not be negative, got %v", c.PostDensityMultiplier)
	}
	if c.PostDensityPow <= 0 {
		return fmt.Errorf("fog config: postDensityPow must be positive, got %v", c.PostDensityPow)
	}
	if c.NoisePow <= 0 {
		return fmt.Errorf("fog config: noisePow must be positive, got %v", c.NoisePow)
	}
	if c.GlobalScale <= 0 {
		return fmt.Errorf("fog config: globalScale must be positive, got %v", c.GlobalScale)
	}
	if err := c.Octaves.Validate(); err != nil {
		return fmt.Errorf("fog config: %w", err)
	}
	if c.HeightFogStartY > c.HeightFogEndY {
		return fmt.Errorf("fog config: heightFogStartY (%v) must not exceed heightFogEndY (%v)",
			c.HeightFogStartY, c.HeightFogEndY)
	}
	if c.HeightFogFactor < 0 {
		return fmt.Errorf("fog config: heightFogFactor must not be negative, got %v", c.HeightFogFactor)
	}
	if c.FadeOutRangeY < 0 {
		return fmt.Errorf("fog config: fadeOutRangeY must not be negative, got %v", c.FadeOutRangeY)
	}
	if c.FadeOutPow <= 0 {
		return fmt.Errorf("fog config: fadeOutPow must be positive, got %v", c.FadeOutPow)
	}
	if c.LightingEnabled {
		if c.LightFalloffDistance <= 0 {
			return fmt.Errorf("fog config: lightFalloffDistance must be positive, got %v", c.LightFalloffDistance)
		}
		if c.LightIntensity < 0 || c.AmbientLightIntensity < 0 {
			return fmt.Errorf("fog config: light intensities must not be negative")
		}
	}
	if c.BlueNoiseResolution < 1 {
		return fmt.Errorf("fog config: blueNoiseResolution must be at least 1, got %d", c.BlueNoiseResolution)
	}
	return nil
}

// ParseHexColor converts a hex color string like "#c8e0ff" into an RGB vector
func ParseHexColor(s string) (core.Vec3, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return core.Vec3{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return core.NewVec3(c.R, c.G, c.B), nil
}
