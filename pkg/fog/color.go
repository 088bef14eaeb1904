package fog

import (
	"github.com/Ameobea/go-volumetric-fog/pkg/core"
)

// Blend factor sharpening: modest raw density already reads as fully
// "dense" color
const colorBlendSharpening = 12.0

// ColorModel maps a sampled density and position to the fog's emitted
// color: a blend between the low- and high-density colors, optionally
// shaded by an ambient term plus a distance-attenuated point-light diffuse
// term.
type ColorModel struct {
	config *Config
	field  *DensityField
}

// NewColorModel creates a color model. The density field is only consulted
// when gradient normals are enabled; it may be nil otherwise.
func NewColorModel(config *Config, field *DensityField) *ColorModel {
	return &ColorModel{config: config, field: field}
}

// Color returns the emitted fog color at pos for the given raw density
func (cm *ColorModel) Color(pos core.Vec3, rawDensity float64, frame *core.FrameContext) core.Vec3 {
	blend := core.Clamp(rawDensity*colorBlendSharpening, 0, 1)
	base := cm.config.FogColorLowDensity.Lerp(cm.config.FogColorHighDensity, blend)

	if !cm.config.LightingEnabled {
		return base
	}

	normal := core.NewVec3(0, 1, 0)
	if cm.config.NormalMode == NormalModeGradient && cm.field != nil {
		normal = cm.field.Normal(pos, frame.Time)
	}

	toLight := frame.LightPos.Subtract(pos)
	dist := toLight.Length()

	diffuse := 0.0
	if dist > 0 {
		falloff := 1 - core.Smoothstep(0, cm.config.LightFalloffDistance, dist)
		diffuse = max(0, toLight.Multiply(1/dist).Dot(normal)) * cm.config.LightIntensity * falloff
	}

	light := cm.config.AmbientLightColor.Multiply(cm.config.AmbientLightIntensity).
		Add(cm.config.LightColor.Multiply(diffuse))
	return base.MultiplyVec(light)
}
