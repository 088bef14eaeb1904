package scene

import (
	"math"

	"github.com/Ameobea/go-volumetric-fog/pkg/core"
	"github.com/Ameobea/go-volumetric-fog/pkg/fog"
	"github.com/Ameobea/go-volumetric-fog/pkg/renderer"
)

// NewRidgeScene creates a line of overlapping mounds crossing the view
// diagonally, with the camera down inside the fog and the point light
// sweeping low over the crest. Fog lighting and gradient normals are on,
// so this is the scene to look at when tuning the lit fog path.
func NewRidgeScene() *Scene {
	fogConfig := fog.DefaultConfig()
	fogConfig.LightingEnabled = true
	fogConfig.NormalMode = fog.NormalModeGradient
	fogConfig.FogDensityMultiplier = 0.26

	surfaces := []Surface{
		NewPlane(core.NewVec3(0, -40, 0), core.NewVec3(0, 1, 0), core.NewVec3(0.22, 0.21, 0.19)),
	}
	// Mounds along the line from (-70,·,-40) to (50,·,-160)
	const mounds = 9
	for i := 0; i < mounds; i++ {
		t := float64(i) / float64(mounds-1)
		x := core.Lerp(-70, 50, t)
		z := core.Lerp(-40, -160, t)
		y := -52 + 6*math.Sin(float64(i)*2.1)
		surfaces = append(surfaces, NewSphere(core.NewVec3(x, y, z), 30, core.NewVec3(0.3, 0.28, 0.25)))
	}

	camera := renderer.DefaultCameraConfig()
	camera.Position = core.NewVec3(-10, 2, 30)
	camera.LookAt = core.NewVec3(10, -12, -80)

	return &Scene{
		Name:        "ridge",
		Description: "Lit fog over a mound ridge, camera inside the slab",
		Camera:      camera,
		Fog:         fogConfig,
		Surfaces:    surfaces,
		TopColor:    core.NewVec3(0.45, 0.55, 0.85),
		BottomColor: core.NewVec3(0.85, 0.8, 0.75),
		SunDir:      core.NewVec3(0.6, 0.5, 0.3).Normalize(),
		SunColor:    core.NewVec3(0.85, 0.75, 0.6),
		Ambient:     core.NewVec3(0.2, 0.22, 0.3),
		LightPath: func(time float64) core.Vec3 {
			angle := 0.15 * time
			return core.NewVec3(60*math.Cos(angle), 0, -90+60*math.Sin(angle))
		},
	}
}
