package scene

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/Ameobea/go-volumetric-fog/pkg/core"
	"github.com/Ameobea/go-volumetric-fog/pkg/fog"
	"github.com/Ameobea/go-volumetric-fog/pkg/renderer"
)

// NewSphereFieldScene creates a grid of floating spheres whose heights cross
// the top fog bound, so some poke out of the slab while others drown in it.
// Useful for judging how the fade-out band softens the fog's upper edge.
func NewSphereFieldScene() *Scene {
	fogConfig := fog.DefaultConfig()
	fogConfig.FogDensityMultiplier = 0.4
	fogConfig.HeightFogFactor = 0.15

	const gridSize = 6
	const spacing = 14.0
	const sphereRadius = 3.5

	surfaces := make([]Surface, 0, gridSize*gridSize+1)
	surfaces = append(surfaces,
		NewPlane(core.NewVec3(0, -40, 0), core.NewVec3(0, 1, 0), core.NewVec3(0.24, 0.24, 0.26)))

	for i := 0; i < gridSize; i++ {
		for j := 0; j < gridSize; j++ {
			x := (float64(i) - float64(gridSize-1)/2) * spacing
			z := -30 - float64(j)*spacing
			// Stagger heights so sphere tops land on both sides of the fog top
			y := -8 + 10*math.Sin(float64(i)*1.3+float64(j)*0.7)

			// Vary hue across the grid, desaturated so the fog still reads
			hue := 360 * float64(i*gridSize+j) / float64(gridSize*gridSize)
			c := colorful.Hsv(hue, 0.4, 0.75)

			surfaces = append(surfaces,
				NewSphere(core.NewVec3(x, y, z), sphereRadius, core.NewVec3(c.R, c.G, c.B)))
		}
	}

	camera := renderer.DefaultCameraConfig()
	camera.Position = core.NewVec3(0, 12, 30)
	camera.LookAt = core.NewVec3(0, -6, -60)

	return &Scene{
		Name:        "spheres",
		Description: "Floating sphere grid straddling the top fog bound",
		Camera:      camera,
		Fog:         fogConfig,
		Surfaces:    surfaces,
		TopColor:    core.NewVec3(0.5, 0.7, 1.0),
		BottomColor: core.NewVec3(1.0, 1.0, 1.0),
		SunDir:      core.NewVec3(-0.3, 1, 0.4).Normalize(),
		SunColor:    core.NewVec3(0.95, 0.9, 0.8),
		Ambient:     core.NewVec3(0.22, 0.25, 0.32),
		LightPath: func(time float64) core.Vec3 {
			angle := 0.3 * time
			return core.NewVec3(50*math.Cos(angle), 20, -60+50*math.Sin(angle))
		},
	}
}
