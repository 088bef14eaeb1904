package core

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// FrameContext carries the per-frame state the fog pass reads while marching:
// camera matrices for ray reconstruction, the elapsed scene time that drives
// wind drift, and the animated light position. It is built once per frame
// and treated as read-only afterwards.
type FrameContext struct {
	CameraPos     Vec3
	InvProjection mgl64.Mat4 // inverse of the projection matrix
	CameraToWorld mgl64.Mat4 // inverse of the view matrix
	Time          float64    // seconds since scene start
	LightPos      Vec3       // world-space point light position
}

// Validate checks that the frame matrices are usable
func (fc *FrameContext) Validate() error {
	if fc.InvProjection == (mgl64.Mat4{}) {
		return fmt.Errorf("frame context: inverse projection matrix is zero")
	}
	if fc.CameraToWorld == (mgl64.Mat4{}) {
		return fmt.Errorf("frame context: camera-to-world matrix is zero")
	}
	return nil
}
