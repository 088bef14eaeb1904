package scene

import (
	"math"

	"github.com/Ameobea/go-volumetric-fog/pkg/core"
	"github.com/Ameobea/go-volumetric-fog/pkg/fog"
	"github.com/Ameobea/go-volumetric-fog/pkg/renderer"
)

// NewBasinScene creates a deep fog-filled basin: a floor at the bottom of
// the slab with three hill mounds rising into it, viewed from just above
// the fog top. This is the reference scene for the default fog settings.
func NewBasinScene() *Scene {
	return &Scene{
		Name:        "basin",
		Description: "Fog-filled basin with hills rising into the slab",
		Camera:      renderer.DefaultCameraConfig(),
		Fog:         fog.DefaultConfig(),
		Surfaces: []Surface{
			// Basin floor sits on the bottom fog bound
			NewPlane(core.NewVec3(0, -40, 0), core.NewVec3(0, 1, 0), core.NewVec3(0.23, 0.26, 0.2)),
			NewSphere(core.NewVec3(-30, -48, -70), 32, core.NewVec3(0.35, 0.32, 0.28)),
			NewSphere(core.NewVec3(24, -52, -110), 40, core.NewVec3(0.3, 0.3, 0.26)),
			NewSphere(core.NewVec3(-4, -46, -160), 36, core.NewVec3(0.32, 0.3, 0.3)),
		},
		TopColor:    core.NewVec3(0.5, 0.7, 1.0),
		BottomColor: core.NewVec3(1.0, 1.0, 1.0),
		SunDir:      core.NewVec3(0.4, 1, 0.2).Normalize(),
		SunColor:    core.NewVec3(0.9, 0.85, 0.75),
		Ambient:     core.NewVec3(0.25, 0.28, 0.35),
		LightPath: func(time float64) core.Vec3 {
			angle := 0.25 * time
			return core.NewVec3(70*math.Cos(angle), 30, -80+70*math.Sin(angle))
		},
	}
}
