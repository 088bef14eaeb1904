package noise

import (
	"fmt"
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/Ameobea/go-volumetric-fog/pkg/core"
)

// Volume is a size³ grid of scalar noise values in [-1,1]. Sampling is
// trilinear with wrap addressing, so the field is periodic with period 1.0
// in each axis of the normalized coordinates passed to Sample. Built once
// per process and shared read-only across workers.
type Volume struct {
	size int
	data []float32
}

// fBm fill parameters for simplex volumes. The octave table of the density
// field shapes the final spectrum; these only band-limit the stored lattice.
const (
	fillOctaves     = 4
	fillPersistence = 0.5
	fillBaseFreq    = 4.0
)

// NewSimplexVolume creates a volume filled with fractal simplex noise
func NewSimplexVolume(size int, seed int64) (*Volume, error) {
	v, err := newVolume(size)
	if err != nil {
		return nil, err
	}

	osn := opensimplex.New(seed)
	inv := 1.0 / float64(size)
	maxAbs := 0.0
	for z := 0; z < size; z++ {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				value := 0.0
				amplitude := 1.0
				freq := fillBaseFreq
				for o := 0; o < fillOctaves; o++ {
					value += amplitude * osn.Eval3(
						float64(x)*inv*freq,
						float64(y)*inv*freq,
						float64(z)*inv*freq)
					amplitude *= fillPersistence
					freq *= 2
				}
				v.data[(z*size+y)*size+x] = float32(value)
				maxAbs = max(maxAbs, math.Abs(value))
			}
		}
	}

	// Rescale so the lattice uses the full [-1,1] range
	if maxAbs > 0 {
		scale := float32(1.0 / maxAbs)
		for i := range v.data {
			v.data[i] *= scale
		}
	}
	return v, nil
}

// NewUniformVolume creates a volume filled with uniform white noise in [-1,1]
func NewUniformVolume(size int, seed int64) (*Volume, error) {
	v, err := newVolume(size)
	if err != nil {
		return nil, err
	}

	random := rand.New(rand.NewSource(seed))
	for i := range v.data {
		v.data[i] = float32(random.Float64()*2 - 1)
	}
	return v, nil
}

func newVolume(size int) (*Volume, error) {
	if size < 2 {
		return nil, fmt.Errorf("volume size must be at least 2, got %d", size)
	}
	return &Volume{
		size: size,
		data: make([]float32, size*size*size),
	}, nil
}

// Size returns the lattice resolution per axis
func (v *Volume) Size() int {
	return v.size
}

// Sample returns the trilinearly interpolated value at p, where one full
// tile of the volume spans 1.0 units per axis. Coordinates outside [0,1)
// wrap, so the result is periodic in every axis.
func (v *Volume) Sample(p core.Vec3) float64 {
	n := float64(v.size)
	fx := p.X * n
	fy := p.Y * n
	fz := p.Z * n

	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	z0 := int(math.Floor(fz))
	tx := fx - float64(x0)
	ty := fy - float64(y0)
	tz := fz - float64(z0)

	x0 = v.wrap(x0)
	y0 = v.wrap(y0)
	z0 = v.wrap(z0)
	x1 := v.wrap(x0 + 1)
	y1 := v.wrap(y0 + 1)
	z1 := v.wrap(z0 + 1)

	c000 := float64(v.data[(z0*v.size+y0)*v.size+x0])
	c100 := float64(v.data[(z0*v.size+y0)*v.size+x1])
	c010 := float64(v.data[(z0*v.size+y1)*v.size+x0])
	c110 := float64(v.data[(z0*v.size+y1)*v.size+x1])
	c001 := float64(v.data[(z1*v.size+y0)*v.size+x0])
	c101 := float64(v.data[(z1*v.size+y0)*v.size+x1])
	c011 := float64(v.data[(z1*v.size+y1)*v.size+x0])
	c111 := float64(v.data[(z1*v.size+y1)*v.size+x1])

	c00 := core.Lerp(c000, c100, tx)
	c10 := core.Lerp(c010, c110, tx)
	c01 := core.Lerp(c001, c101, tx)
	c11 := core.Lerp(c011, c111, tx)

	c0 := core.Lerp(c00, c10, ty)
	c1 := core.Lerp(c01, c11, ty)

	return core.Lerp(c0, c1, tz)
}

func (v *Volume) wrap(i int) int {
	i %= v.size
	if i < 0 {
		i += v.size
	}
	return i
}
