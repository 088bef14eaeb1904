package renderer

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Ameobea/go-volumetric-fog/pkg/core"
)

// CameraConfig describes a perspective camera in world space
type CameraConfig struct {
	Position core.Vec3
	LookAt   core.Vec3
	Up       core.Vec3
	FovY     float64 // vertical field of view in degrees
	Near     float64
	Far      float64
}

// DefaultCameraConfig returns a camera hovering just above the fog slab,
// looking down into it
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		Position: core.NewVec3(0, 6, 28),
		LookAt:   core.NewVec3(0, -8, -20),
		Up:       core.NewVec3(0, 1, 0),
		FovY:     60,
		Near:     0.1,
		Far:      1000,
	}
}

// Validate rejects camera configurations that produce degenerate matrices
func (c *CameraConfig) Validate() error {
	if c.FovY <= 0 || c.FovY >= 180 {
		return fmt.Errorf("camera: fovY must be in (0, 180) degrees, got %v", c.FovY)
	}
	if c.Near <= 0 {
		return fmt.Errorf("camera: near plane must be positive, got %v", c.Near)
	}
	if c.Far <= c.Near {
		return fmt.Errorf("camera: far plane (%v) must be beyond the near plane (%v)", c.Far, c.Near)
	}
	forward := c.LookAt.Subtract(c.Position)
	if forward.LengthSquared() == 0 {
		return fmt.Errorf("camera: position and look-at point coincide")
	}
	if c.Up.LengthSquared() == 0 {
		return fmt.Errorf("camera: up vector is zero")
	}
	if math.Abs(forward.Normalize().Dot(c.Up.Normalize())) > 0.9999 {
		return fmt.Errorf("camera: up vector is parallel to the view direction")
	}
	return nil
}

// Camera holds the projection and view matrices for one output resolution,
// along with their inverses needed for depth-buffer ray reconstruction
type Camera struct {
	config         CameraConfig
	width, height  int
	projection     mgl64.Mat4
	view           mgl64.Mat4
	viewProjection mgl64.Mat4
	invProjection  mgl64.Mat4
	cameraToWorld  mgl64.Mat4
}

// NewCamera creates a camera for the given output resolution
func NewCamera(config CameraConfig, width, height int) (*Camera, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("camera: resolution must be positive, got %dx%d", width, height)
	}

	aspect := float64(width) / float64(height)
	projection := mgl64.Perspective(mgl64.DegToRad(config.FovY), aspect, config.Near, config.Far)
	view := mgl64.LookAtV(
		mgl64.Vec3{config.Position.X, config.Position.Y, config.Position.Z},
		mgl64.Vec3{config.LookAt.X, config.LookAt.Y, config.LookAt.Z},
		mgl64.Vec3{config.Up.X, config.Up.Y, config.Up.Z},
	)

	return &Camera{
		config:         config,
		width:          width,
		height:         height,
		projection:     projection,
		view:           view,
		viewProjection: projection.Mul4(view),
		invProjection:  projection.Inv(),
		cameraToWorld:  view.Inv(),
	}, nil
}

func (c *Camera) Width() int  { return c.width }
func (c *Camera) Height() int { return c.height }

// Position returns the camera's world-space position
func (c *Camera) Position() core.Vec3 {
	return c.config.Position
}

// FrameContext builds the per-frame state handed to the fog pass
func (c *Camera) FrameContext(time float64, lightPos core.Vec3) *core.FrameContext {
	return &core.FrameContext{
		CameraPos:     c.config.Position,
		InvProjection: c.invProjection,
		CameraToWorld: c.cameraToWorld,
		Time:          time,
		LightPos:      lightPos,
	}
}

// Project maps a world position to a normalized screen coordinate in [0,1]²
// and a depth value in [0,1], the forward counterpart of ReconstructWorldPos
func (c *Camera) Project(world core.Vec3) (sx, sy, depth float64) {
	clip := c.viewProjection.Mul4x1(mgl64.Vec4{world.X, world.Y, world.Z, 1})
	ndc := clip.Mul(1 / clip.W())
	return ndc.X()*0.5 + 0.5, ndc.Y()*0.5 + 0.5, ndc.Z()*0.5 + 0.5
}

// ReconstructWorldPos converts a depth sample and normalized screen
// coordinate back to a world-space position: depth maps to clip-space Z in
// [-1,1], the inverse projection takes the clip position to view space with
// a perspective divide, and the camera-to-world matrix finishes the trip.
// Garbage matrices produce garbage positions; validity is the caller's
// responsibility.
func ReconstructWorldPos(frame *core.FrameContext, depth, sx, sy float64) core.Vec3 {
	clip := mgl64.Vec4{sx*2 - 1, sy*2 - 1, depth*2 - 1, 1}
	view := frame.InvProjection.Mul4x1(clip)
	view = view.Mul(1 / view.W())
	world := frame.CameraToWorld.Mul4x1(view)
	return core.NewVec3(world.X(), world.Y(), world.Z())
}

// PixelScreenCoord returns the normalized screen coordinate of a pixel
// center. Image rows grow downward while screen space grows upward, so the
// y axis flips.
func PixelScreenCoord(x, y, width, height int) (sx, sy float64) {
	sx = (float64(x) + 0.5) / float64(width)
	sy = 1 - (float64(y)+0.5)/float64(height)
	return sx, sy
}
