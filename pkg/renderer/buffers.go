package renderer

import (
	"fmt"
	"image"
	"image/color"

	"github.com/Ameobea/go-volumetric-fog/pkg/core"
	"github.com/Ameobea/go-volumetric-fog/pkg/integrator"
)

// DepthBuffer holds one normalized depth value in [0,1] per pixel, row-major
// with y increasing downward. A fresh buffer reads 1.0 everywhere (far plane).
type DepthBuffer struct {
	width, height int
	data          []float32
}

// NewDepthBuffer creates a depth buffer cleared to the far plane
func NewDepthBuffer(width, height int) (*DepthBuffer, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("depth buffer dimensions must be positive, got %dx%d", width, height)
	}
	data := make([]float32, width*height)
	for i := range data {
		data[i] = 1.0
	}
	return &DepthBuffer{width: width, height: height, data: data}, nil
}

// NewDepthBufferFromData wraps an existing row-major depth array
func NewDepthBufferFromData(width, height int, data []float32) (*DepthBuffer, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("depth buffer dimensions must be positive, got %dx%d", width, height)
	}
	if len(data) != width*height {
		return nil, fmt.Errorf("depth buffer needs %d values for %dx%d, got %d", width*height, width, height, len(data))
	}
	return &DepthBuffer{width: width, height: height, data: data}, nil
}

func (b *DepthBuffer) Width() int  { return b.width }
func (b *DepthBuffer) Height() int { return b.height }

// At returns the depth at (x, y)
func (b *DepthBuffer) At(x, y int) float64 {
	return float64(b.data[y*b.width+x])
}

// Set stores a depth value at (x, y)
func (b *DepthBuffer) Set(x, y int, depth float64) {
	b.data[y*b.width+x] = float32(depth)
}

// Data exposes the raw row-major values for serialization
func (b *DepthBuffer) Data() []float32 {
	return b.data
}

// ColorBuffer holds a linear RGB color per pixel, row-major with y
// increasing downward. Used for the pre-rendered scene the fog composites
// over.
type ColorBuffer struct {
	width, height int
	data          []float32 // 3 values per pixel
}

// NewColorBuffer creates a black color buffer
func NewColorBuffer(width, height int) (*ColorBuffer, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("color buffer dimensions must be positive, got %dx%d", width, height)
	}
	return &ColorBuffer{width: width, height: height, data: make([]float32, width*height*3)}, nil
}

// NewColorBufferFromData wraps an existing row-major RGB array
func NewColorBufferFromData(width, height int, data []float32) (*ColorBuffer, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("color buffer dimensions must be positive, got %dx%d", width, height)
	}
	if len(data) != width*height*3 {
		return nil, fmt.Errorf("color buffer needs %d values for %dx%d, got %d", width*height*3, width, height, len(data))
	}
	return &ColorBuffer{width: width, height: height, data: data}, nil
}

func (b *ColorBuffer) Width() int  { return b.width }
func (b *ColorBuffer) Height() int { return b.height }

// At returns the linear color at (x, y)
func (b *ColorBuffer) At(x, y int) core.Vec3 {
	i := (y*b.width + x) * 3
	return core.NewVec3(float64(b.data[i]), float64(b.data[i+1]), float64(b.data[i+2]))
}

// Set stores a linear color at (x, y)
func (b *ColorBuffer) Set(x, y int, c core.Vec3) {
	i := (y*b.width + x) * 3
	b.data[i] = float32(c.X)
	b.data[i+1] = float32(c.Y)
	b.data[i+2] = float32(c.Z)
}

// Data exposes the raw row-major values for serialization
func (b *ColorBuffer) Data() []float32 {
	return b.data
}

// FogImage is the fog pass output: per pixel an RGBA value (RGB is the
// fog's emitted color, A the accumulated opacity) plus the march state and
// step count, kept for diagnostics and debug visualization.
type FogImage struct {
	width, height int
	rgba          []float64
	states        []integrator.MarchState
	steps         []int32
}

// NewFogImage creates a fully transparent fog image
func NewFogImage(width, height int) (*FogImage, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("fog image dimensions must be positive, got %dx%d", width, height)
	}
	return &FogImage{
		width:  width,
		height: height,
		rgba:   make([]float64, width*height*4),
		states: make([]integrator.MarchState, width*height),
		steps:  make([]int32, width*height),
	}, nil
}

// NewFogImageFromRGBA wraps an existing row-major RGBA array. March states
// and step counts are diagnostics of a live render and are not carried;
// every pixel reads MarchEmpty with zero steps.
func NewFogImageFromRGBA(width, height int, rgba []float64) (*FogImage, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("fog image dimensions must be positive, got %dx%d", width, height)
	}
	if len(rgba) != width*height*4 {
		return nil, fmt.Errorf("fog image needs %d values for %dx%d, got %d", width*height*4, width, height, len(rgba))
	}
	return &FogImage{
		width:  width,
		height: height,
		rgba:   rgba,
		states: make([]integrator.MarchState, width*height),
		steps:  make([]int32, width*height),
	}, nil
}

func (img *FogImage) Width() int  { return img.width }
func (img *FogImage) Height() int { return img.height }

// RGBAData exposes the raw row-major values for serialization
func (img *FogImage) RGBAData() []float64 {
	return img.rgba
}

// SetResult stores a march result at (x, y)
func (img *FogImage) SetResult(x, y int, result integrator.Result) {
	i := (y*img.width + x) * 4
	img.rgba[i] = result.Color.X
	img.rgba[i+1] = result.Color.Y
	img.rgba[i+2] = result.Color.Z
	img.rgba[i+3] = result.Opacity
	img.states[y*img.width+x] = result.State
	img.steps[y*img.width+x] = int32(result.Steps)
}

// At returns the fog color and opacity at (x, y)
func (img *FogImage) At(x, y int) (core.Vec3, float64) {
	i := (y*img.width + x) * 4
	return core.NewVec3(img.rgba[i], img.rgba[i+1], img.rgba[i+2]), img.rgba[i+3]
}

// StateAt returns the march terminal state recorded at (x, y)
func (img *FogImage) StateAt(x, y int) integrator.MarchState {
	return img.states[y*img.width+x]
}

// StepsAt returns the march step count recorded at (x, y)
func (img *FogImage) StepsAt(x, y int) int {
	return int(img.steps[y*img.width+x])
}

// ToRGBA renders the fog over black with gamma correction, mostly useful
// for inspecting the fog pass in isolation
func (img *FogImage) ToRGBA() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, img.width, img.height))
	for y := 0; y < img.height; y++ {
		for x := 0; x < img.width; x++ {
			fogColor, alpha := img.At(x, y)
			out.SetRGBA(x, y, vec3ToColor(fogColor.Multiply(alpha)))
		}
	}
	return out
}

// vec3ToColor converts a linear Vec3 color to RGBA with clamping and gamma
// correction (gamma = 2.0)
func vec3ToColor(colorVec core.Vec3) color.RGBA {
	colorVec = colorVec.GammaCorrect(2.0)
	colorVec = colorVec.Clamp(0.0, 1.0)

	return color.RGBA{
		R: uint8(255 * colorVec.X),
		G: uint8(255 * colorVec.Y),
		B: uint8(255 * colorVec.Z),
		A: 255,
	}
}
