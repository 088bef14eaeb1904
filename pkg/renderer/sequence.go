package renderer

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Ameobea/go-volumetric-fog/pkg/core"
)

// FrameContextFunc builds the frame context for a given frame index
type FrameContextFunc func(frameIndex int) *core.FrameContext

// FrameSink consumes a finished frame, typically encoding it to disk.
// Sinks run concurrently with the next frame's march and must not retain
// the image past their return if they mutate it.
type FrameSink func(frameIndex int, img *FogImage, stats FrameStats) error

// RenderSequence marches frameCount frames one after another. Each frame
// already saturates the worker pool, so frames render sequentially; the
// sink runs on an errgroup so encoding overlaps the next frame's march.
func (fr *FrameRenderer) RenderSequence(ctx context.Context, depth *DepthBuffer, frameCount int, makeFrame FrameContextFunc, sink FrameSink) error {
	if frameCount < 1 {
		return fmt.Errorf("frame count must be at least 1, got %d", frameCount)
	}
	if makeFrame == nil || sink == nil {
		return fmt.Errorf("sequence rendering requires a frame context source and a sink")
	}

	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < frameCount; i++ {
		img, stats, err := fr.RenderFrame(gctx, depth, makeFrame(i), nil)
		if err != nil {
			// A sink failure cancels gctx mid-frame; prefer reporting the
			// sink's error over the cancellation it caused
			if sinkErr := g.Wait(); sinkErr != nil {
				return sinkErr
			}
			return err
		}

		i := i // keep per-iteration capture under the go 1.21 language version
		g.Go(func() error {
			return sink(i, img, stats)
		})
	}

	return g.Wait()
}
