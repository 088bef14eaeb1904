package noise

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"math/rand"
)

// BlueNoise is a tileable size² scalar texture with a blue-noise rank
// distribution, indexed by pixel coordinates modulo its size. Raymarch
// start jitter reads it so neighboring pixels decorrelate without the
// banding a white-noise jitter produces.
type BlueNoise struct {
	size   int
	values []float64
}

// Gaussian splat radius used when building the rank ordering. Energy from
// each placed sample spills this many texels in every direction (toroidal).
const blueNoiseKernelRadius = 4

// NewBlueNoise generates a tileable blue-noise texture using void-and-cluster
// style rank assignment: each rank goes to the lowest-energy free texel, then
// a toroidal Gaussian kernel is splatted around it. Values are rank/size².
func NewBlueNoise(size int, seed int64) (*BlueNoise, error) {
	if size < 2 {
		return nil, fmt.Errorf("blue noise size must be at least 2, got %d", size)
	}

	total := size * size
	energy := make([]float64, total)
	placed := make([]bool, total)
	values := make([]float64, total)

	// Tiny random bias breaks ties deterministically
	random := rand.New(rand.NewSource(seed))
	for i := range energy {
		energy[i] = random.Float64() * 1e-6
	}

	sigma := float64(blueNoiseKernelRadius) / 2
	for rank := 0; rank < total; rank++ {
		best := -1
		bestEnergy := math.Inf(1)
		for i := 0; i < total; i++ {
			if !placed[i] && energy[i] < bestEnergy {
				bestEnergy = energy[i]
				best = i
			}
		}

		placed[best] = true
		values[best] = float64(rank) / float64(total)

		bx := best % size
		by := best / size
		for dy := -blueNoiseKernelRadius; dy <= blueNoiseKernelRadius; dy++ {
			for dx := -blueNoiseKernelRadius; dx <= blueNoiseKernelRadius; dx++ {
				x := ((bx+dx)%size + size) % size
				y := ((by+dy)%size + size) % size
				d2 := float64(dx*dx + dy*dy)
				energy[y*size+x] += math.Exp(-d2 / (2 * sigma * sigma))
			}
		}
	}

	return &BlueNoise{size: size, values: values}, nil
}

// LoadBlueNoisePNG reads a pre-baked grayscale blue-noise texture. The image
// must be square; the red channel becomes the value in [0,1).
func LoadBlueNoisePNG(r io.Reader) (*BlueNoise, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode blue noise PNG: %w", err)
	}

	bounds := img.Bounds()
	size := bounds.Dx()
	if size != bounds.Dy() {
		return nil, fmt.Errorf("blue noise texture must be square, got %dx%d", bounds.Dx(), bounds.Dy())
	}
	if size < 2 {
		return nil, fmt.Errorf("blue noise size must be at least 2, got %d", size)
	}

	values := make([]float64, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r16, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			values[y*size+x] = float64(r16) / 65536.0
		}
	}
	return &BlueNoise{size: size, values: values}, nil
}

// EncodePNG writes the texture as an 8-bit grayscale PNG
func (b *BlueNoise) EncodePNG(w io.Writer) error {
	img := image.NewGray(image.Rect(0, 0, b.size, b.size))
	for y := 0; y < b.size; y++ {
		for x := 0; x < b.size; x++ {
			img.Pix[y*img.Stride+x] = uint8(b.values[y*b.size+x] * 256)
		}
	}
	return png.Encode(w, img)
}

// Size returns the texture resolution per axis
func (b *BlueNoise) Size() int {
	return b.size
}

// At returns the value in [0,1) at pixel (x, y), wrapping both coordinates
func (b *BlueNoise) At(x, y int) float64 {
	x = ((x % b.size) + b.size) % b.size
	y = ((y % b.size) + b.size) % b.size
	return b.values[y*b.size+x]
}
