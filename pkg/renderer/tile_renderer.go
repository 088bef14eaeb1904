package renderer

import (
	"image"

	"github.com/Ameobea/go-volumetric-fog/pkg/core"
	"github.com/Ameobea/go-volumetric-fog/pkg/integrator"
)

// TileRenderer marches the fog for every pixel inside a tile's bounds
type TileRenderer struct {
	marcher integrator.Marcher
	camera  *Camera
}

// NewTileRenderer creates a tile renderer for the given marcher and camera
func NewTileRenderer(marcher integrator.Marcher, camera *Camera) *TileRenderer {
	return &TileRenderer{
		marcher: marcher,
		camera:  camera,
	}
}

// RenderTileBounds marches every pixel within bounds: each ray runs from
// the camera to the world position reconstructed from that pixel's depth
// sample. Results land in the shared fog image; tiles have non-overlapping
// bounds, so the writes are thread-safe.
func (tr *TileRenderer) RenderTileBounds(bounds image.Rectangle, depth *DepthBuffer, output *FogImage, frame *core.FrameContext) FrameStats {
	width := tr.camera.Width()
	height := tr.camera.Height()
	stats := newFrameStats()

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			sx, sy := PixelScreenCoord(x, y, width, height)
			hit := ReconstructWorldPos(frame, depth.At(x, y), sx, sy)

			result := tr.marcher.March(frame.CameraPos, hit, x, y, frame)
			output.SetResult(x, y, result)
			stats.Record(result)
		}
	}

	return stats
}
