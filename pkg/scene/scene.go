package scene

import (
	"fmt"
	"math"

	"github.com/Ameobea/go-volumetric-fog/pkg/core"
	"github.com/Ameobea/go-volumetric-fog/pkg/fog"
	"github.com/Ameobea/go-volumetric-fog/pkg/renderer"
)

// hitEpsilon is the minimum ray parameter accepted by surface tests, so a
// surface never shadows its own origin.
const hitEpsilon = 1e-4

// Hit describes the nearest surface intersection along a ray.
type Hit struct {
	T      float64
	Point  core.Vec3
	Normal core.Vec3
	Albedo core.Vec3
}

// Surface is the analytic geometry demo scenes are built from.
type Surface interface {
	Hit(ray core.Ray, tMin, tMax float64) (Hit, bool)
}

// Scene bundles everything a fog render needs to run standalone: a camera,
// fog settings, analytic geometry to synthesize depth and diffuse buffers
// from, and a light position animated over time.
type Scene struct {
	Name        string
	Description string
	Camera      renderer.CameraConfig
	Fog         fog.Config
	Surfaces    []Surface

	// Sky gradient for rays that escape the geometry
	TopColor    core.Vec3
	BottomColor core.Vec3

	// Directional sun for diffuse shading of the baked color buffer
	SunDir   core.Vec3 // unit vector toward the sun
	SunColor core.Vec3
	Ambient  core.Vec3

	// LightPath gives the fog light position at a point in time
	LightPath func(time float64) core.Vec3
}

// Baked holds the synthesized per-resolution inputs for one fog render.
type Baked struct {
	Camera *renderer.Camera
	Depth  *renderer.DepthBuffer
	Color  *renderer.ColorBuffer
}

// Validate rejects scenes that would fail downstream
func (s *Scene) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scene: name is empty")
	}
	if err := s.Camera.Validate(); err != nil {
		return fmt.Errorf("scene %s: %w", s.Name, err)
	}
	if err := s.Fog.Validate(); err != nil {
		return fmt.Errorf("scene %s: %w", s.Name, err)
	}
	if s.SunDir.LengthSquared() == 0 {
		return fmt.Errorf("scene %s: sun direction is zero", s.Name)
	}
	if s.LightPath == nil {
		return fmt.Errorf("scene %s: light path is nil", s.Name)
	}
	return nil
}

// LightAt returns the fog light position at the given time
func (s *Scene) LightAt(time float64) core.Vec3 {
	return s.LightPath(time)
}

// Bake renders the scene's geometry into the depth and diffuse buffers the
// fog pass consumes. Each pixel casts a ray from the camera through the far
// plane; the nearest surface hit is shaded with a single diffuse sun term
// and its depth recorded by projecting the hit point back through the
// camera. Pixels that miss keep the far-plane depth of 1.0 and get the sky
// gradient.
func (s *Scene) Bake(width, height int) (*Baked, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	camera, err := renderer.NewCamera(s.Camera, width, height)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", s.Name, err)
	}
	depth, err := renderer.NewDepthBuffer(width, height)
	if err != nil {
		return nil, err
	}
	colors, err := renderer.NewColorBuffer(width, height)
	if err != nil {
		return nil, err
	}

	// Reconstruction only needs the camera matrices, so time zero works for
	// a bake at any frame time
	frame := camera.FrameContext(0, s.LightAt(0))
	origin := camera.Position()

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sx, sy := renderer.PixelScreenCoord(x, y, width, height)
			farPoint := renderer.ReconstructWorldPos(frame, 1.0, sx, sy)
			toFar := farPoint.Subtract(origin)
			tFar := toFar.Length()
			ray := core.NewRay(origin, toFar.Multiply(1/tFar))

			hit, ok := s.hitNearest(ray, hitEpsilon, tFar)
			if !ok {
				colors.Set(x, y, s.sky(ray.Direction))
				continue
			}
			_, _, d := camera.Project(hit.Point)
			depth.Set(x, y, core.Clamp(d, 0, 1))
			colors.Set(x, y, s.shade(hit))
		}
	}
	return &Baked{Camera: camera, Depth: depth, Color: colors}, nil
}

// hitNearest scans all surfaces for the closest intersection. A handful of
// analytic shapes per scene keeps a linear scan plenty fast.
func (s *Scene) hitNearest(ray core.Ray, tMin, tMax float64) (Hit, bool) {
	var closest Hit
	found := false
	for _, surface := range s.Surfaces {
		if h, ok := surface.Hit(ray, tMin, tMax); ok {
			closest = h
			tMax = h.T
			found = true
		}
	}
	return closest, found
}

// shade lights a hit with one ambient plus one diffuse sun term
func (s *Scene) shade(h Hit) core.Vec3 {
	diffuse := math.Max(0, h.Normal.Dot(s.SunDir))
	light := s.Ambient.Add(s.SunColor.Multiply(diffuse))
	return h.Albedo.MultiplyVec(light)
}

// sky returns the background gradient for an escaped ray direction
func (s *Scene) sky(dir core.Vec3) core.Vec3 {
	t := 0.5 * (dir.Y + 1)
	return s.BottomColor.Lerp(s.TopColor, t)
}
