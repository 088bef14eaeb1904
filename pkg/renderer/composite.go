package renderer

import (
	"fmt"
	"image"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"

	"github.com/Ameobea/go-volumetric-fog/pkg/integrator"
)

// DebugMode selects an alternate visualization of march results
type DebugMode int

const (
	// DebugNone composites the fog over the scene normally
	DebugNone DebugMode = iota
	// DebugIterationCap paints iteration-capped pixels a saturated magenta
	// so runaway configurations stand out during development
	DebugIterationCap
	// DebugStepHeatmap colors every pixel by its march step count, blue for
	// few steps through red for the frame's maximum
	DebugStepHeatmap
)

func (m DebugMode) String() string {
	switch m {
	case DebugNone:
		return "none"
	case DebugIterationCap:
		return "itercap"
	case DebugStepHeatmap:
		return "heatmap"
	default:
		return "unknown"
	}
}

// ParseDebugMode converts a mode name from a flag or query parameter
func ParseDebugMode(name string) (DebugMode, error) {
	switch name {
	case "", "none":
		return DebugNone, nil
	case "itercap":
		return DebugIterationCap, nil
	case "heatmap":
		return DebugStepHeatmap, nil
	default:
		return DebugNone, fmt.Errorf("unknown debug mode %q (want none, itercap or heatmap)", name)
	}
}

// iterationCapSentinel is the visibly-wrong paint for capped pixels
var iterationCapSentinel = color.RGBA{R: 255, G: 0, B: 255, A: 255}

// Composite blends the fog image over the pre-rendered scene colors:
// finalColor = mix(sceneColor, fogRGB, fogAlpha), gamma-corrected into an
// 8-bit image. Debug modes replace or annotate the normal output.
func Composite(scene *ColorBuffer, fog *FogImage, mode DebugMode) (*image.RGBA, error) {
	if scene.Width() != fog.Width() || scene.Height() != fog.Height() {
		return nil, fmt.Errorf("scene buffer is %dx%d but the fog image is %dx%d",
			scene.Width(), scene.Height(), fog.Width(), fog.Height())
	}

	if mode == DebugStepHeatmap {
		return stepHeatmap(fog), nil
	}

	return compositeRegion(scene, fog, mode, image.Rect(0, 0, fog.Width(), fog.Height())), nil
}

// CompositeRegion composites just the given pixel bounds into an image of
// the region's size, so streaming consumers can encode completed tiles
// while the rest of the frame is still rendering. The step heatmap needs
// the whole frame's step range and is rejected here.
func CompositeRegion(scene *ColorBuffer, fog *FogImage, mode DebugMode, bounds image.Rectangle) (*image.RGBA, error) {
	if scene.Width() != fog.Width() || scene.Height() != fog.Height() {
		return nil, fmt.Errorf("scene buffer is %dx%d but the fog image is %dx%d",
			scene.Width(), scene.Height(), fog.Width(), fog.Height())
	}
	if mode == DebugStepHeatmap {
		return nil, fmt.Errorf("step heatmap cannot be composited per region")
	}
	if !bounds.In(image.Rect(0, 0, fog.Width(), fog.Height())) {
		return nil, fmt.Errorf("region %v is outside the %dx%d frame", bounds, fog.Width(), fog.Height())
	}
	return compositeRegion(scene, fog, mode, bounds), nil
}

func compositeRegion(scene *ColorBuffer, fog *FogImage, mode DebugMode, bounds image.Rectangle) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if mode == DebugIterationCap && fog.StateAt(x, y) == integrator.MarchIterationCapped {
				out.SetRGBA(x-bounds.Min.X, y-bounds.Min.Y, iterationCapSentinel)
				continue
			}

			fogColor, alpha := fog.At(x, y)
			mixed := scene.At(x, y).Lerp(fogColor, alpha)
			out.SetRGBA(x-bounds.Min.X, y-bounds.Min.Y, vec3ToColor(mixed))
		}
	}
	return out
}

// stepHeatmap maps step counts onto a blue-to-red hue ramp
func stepHeatmap(fog *FogImage) *image.RGBA {
	maxSteps := 0
	for y := 0; y < fog.Height(); y++ {
		for x := 0; x < fog.Width(); x++ {
			maxSteps = max(maxSteps, fog.StepsAt(x, y))
		}
	}

	out := image.NewRGBA(image.Rect(0, 0, fog.Width(), fog.Height()))
	for y := 0; y < fog.Height(); y++ {
		for x := 0; x < fog.Width(); x++ {
			t := 0.0
			if maxSteps > 0 {
				t = float64(fog.StepsAt(x, y)) / float64(maxSteps)
			}
			c := colorful.Hsv(240*(1-t), 1, 1)
			out.SetRGBA(x, y, color.RGBA{
				R: uint8(c.R*255 + 0.5),
				G: uint8(c.G*255 + 0.5),
				B: uint8(c.B*255 + 0.5),
				A: 255,
			})
		}
	}
	return out
}

// UpscaleImage resizes an image to the target resolution with Catmull-Rom
// filtering. Used when the fog pass rendered at reduced resolution and the
// result needs to match the scene buffer before display.
func UpscaleImage(src *image.RGBA, width, height int) *image.RGBA {
	if src.Bounds().Dx() == width && src.Bounds().Dy() == height {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
