package fog

import "fmt"

// Octave pairs a noise amplitude with the spatial scale it is sampled at
type Octave struct {
	Weight float64
	Scale  float64
}

// OctaveTable is the ordered octave list the density field sums over.
// Weights must strictly decrease and scales strictly increase so the sum is
// band-limited and convergent: low frequencies dominate, high frequencies
// add fine detail at low amplitude. An empty table disables octave noise
// entirely, leaving only the bias.
type OctaveTable []Octave

// DefaultOctaveTable returns the reference six-octave table
func DefaultOctaveTable() OctaveTable {
	return OctaveTable{
		{Weight: 1.0, Scale: 0.1},
		{Weight: 0.5, Scale: 0.21},
		{Weight: 0.26, Scale: 0.44},
		{Weight: 0.13, Scale: 0.93},
		{Weight: 0.068, Scale: 1.95},
		{Weight: 0.035, Scale: 4.1},
	}
}

// Validate checks the monotonicity requirements
func (t OctaveTable) Validate() error {
	for i, oct := range t {
		if oct.Weight <= 0 {
			return fmt.Errorf("octave %d: weight must be positive, got %v", i, oct.Weight)
		}
		if oct.Scale <= 0 {
			return fmt.Errorf("octave %d: scale must be positive, got %v", i, oct.Scale)
		}
		if i > 0 {
			if oct.Weight >= t[i-1].Weight {
				return fmt.Errorf("octave %d: weights must strictly decrease (%v after %v)",
					i, oct.Weight, t[i-1].Weight)
			}
			if oct.Scale <= t[i-1].Scale {
				return fmt.Errorf("octave %d: scales must strictly increase (%v after %v)",
					i, oct.Scale, t[i-1].Scale)
			}
		}
	}
	return nil
}
