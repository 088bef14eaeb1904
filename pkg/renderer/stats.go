package renderer

import "github.com/Ameobea/go-volumetric-fog/pkg/integrator"

// FrameStats aggregates march outcomes across the pixels of one frame
type FrameStats struct {
	TotalPixels     int // Total number of pixels marched
	EmptyPixels     int // Rays that never entered the slab
	SaturatedPixels int // Rays that hit the density cap early
	ExhaustedPixels int // Rays that covered their full length
	CappedPixels    int // Rays stopped by the iteration cap
	TotalSteps      int // Steps taken across all pixels
	MinSteps        int // Fewest steps taken by any pixel
	MaxSteps        int // Most steps taken by any pixel
}

// newFrameStats returns stats ready for Record calls
func newFrameStats() FrameStats {
	return FrameStats{MinSteps: int(^uint(0) >> 1)} // Start at max int, reduced by Record
}

// Record folds a single march result into the stats
func (s *FrameStats) Record(result integrator.Result) {
	s.TotalPixels++
	switch result.State {
	case integrator.MarchEmpty:
		s.EmptyPixels++
	case integrator.MarchSaturated:
		s.SaturatedPixels++
	case integrator.MarchExhausted:
		s.ExhaustedPixels++
	case integrator.MarchIterationCapped:
		s.CappedPixels++
	}
	s.TotalSteps += result.Steps
	s.MinSteps = min(s.MinSteps, result.Steps)
	s.MaxSteps = max(s.MaxSteps, result.Steps)
}

// Merge combines stats from another tile into this one
func (s *FrameStats) Merge(other FrameStats) {
	s.TotalPixels += other.TotalPixels
	s.EmptyPixels += other.EmptyPixels
	s.SaturatedPixels += other.SaturatedPixels
	s.ExhaustedPixels += other.ExhaustedPixels
	s.CappedPixels += other.CappedPixels
	s.TotalSteps += other.TotalSteps
	s.MinSteps = min(s.MinSteps, other.MinSteps)
	s.MaxSteps = max(s.MaxSteps, other.MaxSteps)
}

// AverageSteps returns the mean step count per pixel
func (s *FrameStats) AverageSteps() float64 {
	if s.TotalPixels == 0 {
		return 0
	}
	return float64(s.TotalSteps) / float64(s.TotalPixels)
}
