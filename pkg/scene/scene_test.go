package scene

import (
	"math"
	"strings"
	"testing"

	"github.com/Ameobea/go-volumetric-fog/pkg/core"
	"github.com/Ameobea/go-volumetric-fog/pkg/fog"
	"github.com/Ameobea/go-volumetric-fog/pkg/renderer"
)

// testScene aims straight down the z axis at a sphere hanging over a floor,
// so hit geometry is easy to verify by hand
func testScene() *Scene {
	return &Scene{
		Name:        "test",
		Description: "single sphere over a floor",
		Camera: renderer.CameraConfig{
			Position: core.NewVec3(0, 0, 10),
			LookAt:   core.NewVec3(0, 0, 0),
			Up:       core.NewVec3(0, 1, 0),
			FovY:     60,
			Near:     0.1,
			Far:      200,
		},
		Fog: fog.DefaultConfig(),
		Surfaces: []Surface{
			NewSphere(core.NewVec3(0, 0, 0), 2, core.NewVec3(0.6, 0.4, 0.2)),
			NewPlane(core.NewVec3(0, -5, 0), core.NewVec3(0, 1, 0), core.NewVec3(0.3, 0.3, 0.3)),
		},
		TopColor:    core.NewVec3(0.5, 0.7, 1.0),
		BottomColor: core.NewVec3(1, 1, 1),
		SunDir:      core.NewVec3(0, 0, 1),
		SunColor:    core.NewVec3(0.8, 0.8, 0.8),
		Ambient:     core.NewVec3(0.2, 0.2, 0.2),
		LightPath:   func(time float64) core.Vec3 { return core.NewVec3(0, 10, 0) },
	}
}

func TestBake_Dimensions(t *testing.T) {
	baked, err := testScene().Bake(41, 31)
	if err != nil {
		t.Fatalf("Bake failed: %v", err)
	}
	if baked.Depth.Width() != 41 || baked.Depth.Height() != 31 {
		t.Errorf("depth buffer is %dx%d, want 41x31", baked.Depth.Width(), baked.Depth.Height())
	}
	if baked.Color.Width() != 41 || baked.Color.Height() != 31 {
		t.Errorf("color buffer is %dx%d, want 41x31", baked.Color.Width(), baked.Color.Height())
	}
	if baked.Camera.Width() != 41 || baked.Camera.Height() != 31 {
		t.Errorf("camera is %dx%d, want 41x31", baked.Camera.Width(), baked.Camera.Height())
	}
	for y := 0; y < 31; y++ {
		for x := 0; x < 41; x++ {
			d := baked.Depth.At(x, y)
			if d < 0 || d > 1 {
				t.Fatalf("depth at (%d,%d) = %v, outside [0,1]", x, y, d)
			}
		}
	}
}

func TestBake_CenterPixel(t *testing.T) {
	s := testScene()
	baked, err := s.Bake(41, 31)
	if err != nil {
		t.Fatalf("Bake failed: %v", err)
	}

	// The center pixel's ray runs straight down -z and hits the sphere
	// front face at (0,0,2), 8 units from the camera
	d := baked.Depth.At(20, 15)
	if d >= 1 {
		t.Fatal("center pixel should hit the sphere")
	}
	frame := baked.Camera.FrameContext(0, s.LightAt(0))
	sx, sy := renderer.PixelScreenCoord(20, 15, 41, 31)
	world := renderer.ReconstructWorldPos(frame, d, sx, sy)
	if !vecsClose(world, core.NewVec3(0, 0, 2), 1e-3) {
		t.Errorf("reconstructed hit = %v, want (0,0,2)", world)
	}

	// Front-face normal (0,0,1) faces the sun exactly, so the diffuse term
	// saturates and the color is albedo * (ambient + sun) = albedo
	got := baked.Color.At(20, 15)
	want := core.NewVec3(0.6, 0.4, 0.2)
	if !vecsClose(got, want, 1e-6) {
		t.Errorf("center color = %v, want %v", got, want)
	}
}

func TestBake_DepthRoundTrip(t *testing.T) {
	s := testScene()
	baked, err := s.Bake(41, 31)
	if err != nil {
		t.Fatalf("Bake failed: %v", err)
	}
	frame := baked.Camera.FrameContext(0, s.LightAt(0))
	origin := baked.Camera.Position()

	hits := 0
	for y := 0; y < 31; y++ {
		for x := 0; x < 41; x++ {
			d := baked.Depth.At(x, y)
			if d >= 1 {
				continue
			}
			hits++
			sx, sy := renderer.PixelScreenCoord(x, y, 41, 31)

			// Re-derive the analytic hit the bake should have recorded
			farPoint := renderer.ReconstructWorldPos(frame, 1.0, sx, sy)
			toFar := farPoint.Subtract(origin)
			tFar := toFar.Length()
			ray := core.NewRay(origin, toFar.Multiply(1/tFar))
			hit, ok := s.hitNearest(ray, hitEpsilon, tFar)
			if !ok {
				t.Fatalf("pixel (%d,%d) has depth %v but no analytic hit", x, y, d)
			}

			// Depth is stored as float32, which costs precision near the far
			// plane, so the bound scales with hit distance
			world := renderer.ReconstructWorldPos(frame, d, sx, sy)
			tol := 0.01 + 0.001*hit.T
			if dist := world.Subtract(hit.Point).Length(); dist > tol {
				t.Fatalf("pixel (%d,%d): reconstructed %v is %v from analytic hit %v (tol %v)",
					x, y, world, dist, hit.Point, tol)
			}
		}
	}
	if hits == 0 {
		t.Fatal("no pixels hit any geometry")
	}
}

func TestBake_SkyPixels(t *testing.T) {
	s := testScene()
	baked, err := s.Bake(41, 31)
	if err != nil {
		t.Fatalf("Bake failed: %v", err)
	}
	frame := baked.Camera.FrameContext(0, s.LightAt(0))
	origin := baked.Camera.Position()

	misses := 0
	for y := 0; y < 31; y++ {
		for x := 0; x < 41; x++ {
			if baked.Depth.At(x, y) < 1 {
				continue
			}
			misses++
			sx, sy := renderer.PixelScreenCoord(x, y, 41, 31)
			dir := renderer.ReconstructWorldPos(frame, 1.0, sx, sy).Subtract(origin).Normalize()
			want := s.sky(dir)
			if got := baked.Color.At(x, y); !vecsClose(got, want, 1e-6) {
				t.Fatalf("sky pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
	if misses == 0 {
		t.Fatal("no pixels reached the sky")
	}
}

func TestShade(t *testing.T) {
	s := testScene()
	albedo := core.NewVec3(1, 1, 1)

	tests := []struct {
		name   string
		normal core.Vec3
		want   core.Vec3
	}{
		{"facing the sun", core.NewVec3(0, 0, 1), core.NewVec3(1, 1, 1)},
		{"perpendicular", core.NewVec3(1, 0, 0), core.NewVec3(0.2, 0.2, 0.2)},
		{"facing away", core.NewVec3(0, 0, -1), core.NewVec3(0.2, 0.2, 0.2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.shade(Hit{Normal: tt.normal, Albedo: albedo})
			if !vecsClose(got, tt.want, 1e-12) {
				t.Errorf("shade = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScene_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Scene)
		wantErr string
	}{
		{"valid", func(s *Scene) {}, ""},
		{"empty name", func(s *Scene) { s.Name = "" }, "name is empty"},
		{"bad camera", func(s *Scene) { s.Camera.Near = 0 }, "near plane"},
		{"bad fog", func(s *Scene) { s.Fog.MaxDensity = 0 }, "maxDensity"},
		{"zero sun", func(s *Scene) { s.SunDir = core.Vec3{} }, "sun direction"},
		{"nil light path", func(s *Scene) { s.LightPath = nil }, "light path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testScene()
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestBake_RejectsBadInput(t *testing.T) {
	if _, err := testScene().Bake(0, 10); err == nil {
		t.Error("expected an error for zero width")
	}
	s := testScene()
	s.LightPath = nil
	if _, err := s.Bake(8, 8); err == nil {
		t.Error("expected an error for an invalid scene")
	}
}

func TestSky_Gradient(t *testing.T) {
	s := testScene()
	up := s.sky(core.NewVec3(0, 1, 0))
	if !vecsClose(up, s.TopColor, 1e-12) {
		t.Errorf("sky straight up = %v, want %v", up, s.TopColor)
	}
	down := s.sky(core.NewVec3(0, -1, 0))
	if !vecsClose(down, s.BottomColor, 1e-12) {
		t.Errorf("sky straight down = %v, want %v", down, s.BottomColor)
	}
	horizon := s.sky(core.NewVec3(1, 0, 0))
	mid := s.BottomColor.Lerp(s.TopColor, 0.5)
	if !vecsClose(horizon, mid, 1e-12) {
		t.Errorf("sky at the horizon = %v, want %v", horizon, mid)
	}
}

func TestHitNearest_PicksClosest(t *testing.T) {
	s := testScene()
	// Straight down -z: sphere front face (t=8) sits in front of everything
	ray := core.NewRay(core.NewVec3(0, 0, 10), core.NewVec3(0, 0, -1))
	hit, ok := s.hitNearest(ray, hitEpsilon, 1000)
	if !ok {
		t.Fatal("expected a hit")
	}
	if math.Abs(hit.T-8) > 1e-12 {
		t.Errorf("T = %v, want 8 (sphere front face)", hit.T)
	}
	if !vecsClose(hit.Albedo, core.NewVec3(0.6, 0.4, 0.2), 1e-12) {
		t.Errorf("Albedo = %v, want the sphere's", hit.Albedo)
	}
}
