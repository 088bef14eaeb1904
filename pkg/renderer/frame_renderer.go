package renderer

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/Ameobea/go-volumetric-fog/pkg/core"
	"github.com/Ameobea/go-volumetric-fog/pkg/integrator"
)

// DefaultLogger implements core.Logger by writing to stdout
type DefaultLogger struct{}

func (dl *DefaultLogger) Printf(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// NewDefaultLogger creates a new default logger
func NewDefaultLogger() core.Logger {
	return &DefaultLogger{}
}

// FrameConfig contains configuration for frame rendering
type FrameConfig struct {
	TileSize   int // Size of each tile (64x64 recommended)
	NumWorkers int // Number of parallel workers (0 = use CPU count)
}

// DefaultFrameConfig returns sensible default values
func DefaultFrameConfig() FrameConfig {
	return FrameConfig{
		TileSize:   64,
		NumWorkers: 0, // Auto-detect CPU count
	}
}

// Validate rejects unusable frame configurations. The worker pool sizes
// its queues assuming tiles are no smaller than 8x8.
func (c *FrameConfig) Validate() error {
	if c.TileSize < 8 {
		return fmt.Errorf("frame config: tile size must be at least 8, got %d", c.TileSize)
	}
	return nil
}

// TileUpdate reports one completed tile for progress callbacks
type TileUpdate struct {
	TileIndex  int             // Completed tile number in this frame (1-based)
	TotalTiles int             // Total number of tiles in the frame
	Bounds     image.Rectangle // Pixel bounds of the completed tile
	Stats      FrameStats      // Stats for just this tile
	Image      *FogImage       // Shared frame output; only pixels inside Bounds are settled
}

// FrameResult bundles a finished fog image with its stats
type FrameResult struct {
	Image *FogImage
	Stats FrameStats
}

// FrameRenderer marches one fog frame at a time across a worker pool
type FrameRenderer struct {
	marcher integrator.Marcher
	camera  *Camera
	config  FrameConfig
	logger  core.Logger
}

// NewFrameRenderer creates a frame renderer. A nil logger falls back to the
// stdout default.
func NewFrameRenderer(marcher integrator.Marcher, camera *Camera, config FrameConfig, logger core.Logger) (*FrameRenderer, error) {
	if marcher == nil {
		return nil, fmt.Errorf("frame renderer requires a marcher")
	}
	if camera == nil {
		return nil, fmt.Errorf("frame renderer requires a camera")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = NewDefaultLogger()
	}
	return &FrameRenderer{
		marcher: marcher,
		camera:  camera,
		config:  config,
		logger:  logger,
	}, nil
}

// Camera returns the camera this renderer reconstructs rays with
func (fr *FrameRenderer) Camera() *Camera {
	return fr.camera
}

// RenderFrame marches the full frame and returns the fog image. The tile
// callback, when non-nil, is invoked from the collection loop as each tile
// completes (single-threaded dispatch, safe without locking).
func (fr *FrameRenderer) RenderFrame(ctx context.Context, depth *DepthBuffer, frame *core.FrameContext, tileCallback func(TileUpdate)) (*FogImage, FrameStats, error) {
	if err := frame.Validate(); err != nil {
		return nil, FrameStats{}, err
	}
	width := fr.camera.Width()
	height := fr.camera.Height()
	if depth.Width() != width || depth.Height() != height {
		return nil, FrameStats{}, fmt.Errorf("depth buffer is %dx%d but the camera renders %dx%d",
			depth.Width(), depth.Height(), width, height)
	}

	output, err := NewFogImage(width, height)
	if err != nil {
		return nil, FrameStats{}, err
	}

	startTime := time.Now()
	tiles := NewTileGrid(width, height, fr.config.TileSize)

	pool := NewWorkerPool(fr.marcher, fr.camera, fr.config.NumWorkers)
	pool.Start(ctx)
	defer pool.Stop()

	// Task and result queues are buffered for the whole grid, so submission
	// never blocks
	for taskID, tile := range tiles {
		pool.SubmitTask(TileTask{
			Tile:   tile,
			TaskID: taskID,
			Frame:  frame,
			Depth:  depth,
			Output: output,
		})
	}

	stats := newFrameStats()
	for i := 0; i < len(tiles); i++ {
		result, ok := pool.GetResult()
		if !ok {
			return nil, FrameStats{}, fmt.Errorf("worker pool closed unexpectedly")
		}
		if result.Error != nil {
			return nil, FrameStats{}, result.Error
		}

		stats.Merge(result.Stats)

		if tileCallback != nil {
			tileCallback(TileUpdate{
				TileIndex:  i + 1,
				TotalTiles: len(tiles),
				Bounds:     tiles[result.TaskID].Bounds,
				Stats:      result.Stats,
				Image:      output,
			})
		}
	}

	// One summary line per frame rather than one per capped pixel
	if stats.CappedPixels > 0 {
		fr.logger.Printf("fog: %d of %d pixels stopped at the iteration cap; consider raising maxRaymarchStepCount or minStepLength\n",
			stats.CappedPixels, stats.TotalPixels)
	}
	fr.logger.Printf("Fog frame rendered in %v (%.1f avg steps/pixel, %d workers)\n",
		time.Since(startTime), stats.AverageSteps(), pool.GetNumWorkers())

	return output, stats, nil
}

// StreamOptions configures streaming frame rendering behavior
type StreamOptions struct {
	TileUpdates bool // Whether to generate tile completion events
}

// StreamFrame renders with channel-based communication. The caller should
// read from these channels in separate goroutines. If options.TileUpdates
// is false, the tile channel is closed immediately and no tile events are
// generated.
func (fr *FrameRenderer) StreamFrame(ctx context.Context, depth *DepthBuffer, frame *core.FrameContext, options StreamOptions) (<-chan FrameResult, <-chan TileUpdate, <-chan error) {
	resultChan := make(chan FrameResult, 1)
	tileChan := make(chan TileUpdate, 100) // Buffer for tiles
	errChan := make(chan error, 1)

	if !options.TileUpdates {
		close(tileChan)
	}

	go func() {
		defer close(resultChan)
		if options.TileUpdates {
			defer close(tileChan)
		}
		defer close(errChan)

		var tileCallback func(TileUpdate)
		if options.TileUpdates {
			tileCallback = func(update TileUpdate) {
				select {
				case tileChan <- update:
				case <-ctx.Done():
				default:
					// Channel full; drop the update rather than stall the frame
				}
			}
		}

		img, stats, err := fr.RenderFrame(ctx, depth, frame, tileCallback)
		if err != nil {
			errChan <- err
			return
		}

		select {
		case resultChan <- FrameResult{Image: img, Stats: stats}:
		case <-ctx.Done():
		}
	}()

	return resultChan, tileChan, errChan
}

// Tile represents a rectangular region of the image to be marched
type Tile struct {
	ID     int             // Unique tile identifier
	Bounds image.Rectangle // Pixel bounds (x0,y0,x1,y1)
}

// NewTile creates a new tile with the specified bounds
func NewTile(id int, bounds image.Rectangle) *Tile {
	return &Tile{
		ID:     id,
		Bounds: bounds,
	}
}

// NewTileGrid creates a grid of tiles covering the entire image
func NewTileGrid(width, height, tileSize int) []*Tile {
	var tiles []*Tile
	tileID := 0

	// Calculate number of tiles in each dimension
	tilesX := (width + tileSize - 1) / tileSize // Ceiling division
	tilesY := (height + tileSize - 1) / tileSize

	for tileY := 0; tileY < tilesY; tileY++ {
		for tileX := 0; tileX < tilesX; tileX++ {
			// Calculate tile bounds
			x0 := tileX * tileSize
			y0 := tileY * tileSize
			x1 := min(x0+tileSize, width) // Don't exceed image bounds
			y1 := min(y0+tileSize, height)

			bounds := image.Rect(x0, y0, x1, y1)
			tiles = append(tiles, NewTile(tileID, bounds))
			tileID++
		}
	}

	return tiles
}
