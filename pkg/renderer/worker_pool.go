package renderer

import (
	"context"
	"runtime"
	"sync"

	"github.com/Ameobea/go-volumetric-fog/pkg/core"
	"github.com/Ameobea/go-volumetric-fog/pkg/integrator"
)

// TileTask represents a tile marching task for the worker pool
type TileTask struct {
	Tile   *Tile
	TaskID int                // For deterministic ordering
	Frame  *core.FrameContext // Read-only per-frame state
	Depth  *DepthBuffer       // Shared read-only depth input
	Output *FogImage          // Shared output image to write to
}

// TileResult contains the result from marching a tile
type TileResult struct {
	TaskID int
	Stats  FrameStats
	Error  error
}

// WorkerPool manages parallel tile marching
type WorkerPool struct {
	taskQueue   chan TileTask
	resultQueue chan TileResult
	workers     []*Worker
	numWorkers  int
	wg          sync.WaitGroup
}

// Worker handles individual tile marching tasks
type Worker struct {
	ID          int
	tiles       *TileRenderer
	taskQueue   chan TileTask
	resultQueue chan TileResult
}

// NewWorkerPool creates a worker pool with the specified number of workers
func NewWorkerPool(marcher integrator.Marcher, camera *Camera, numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	// Buffer for every tile the camera's resolution could produce, assuming
	// a worst case of 8x8 tiles, so submission and result sends never block
	maxTiles := ((camera.Width() + 7) / 8) * ((camera.Height() + 7) / 8)

	wp := &WorkerPool{
		taskQueue:   make(chan TileTask, maxTiles),
		resultQueue: make(chan TileResult, maxTiles),
		numWorkers:  numWorkers,
	}

	for i := 0; i < numWorkers; i++ {
		worker := &Worker{
			ID:          i,
			tiles:       NewTileRenderer(marcher, camera),
			taskQueue:   wp.taskQueue,
			resultQueue: wp.resultQueue,
		}
		wp.workers = append(wp.workers, worker)
	}

	return wp
}

// Start begins all workers; ctx cancellation makes queued tasks fail fast
func (wp *WorkerPool) Start(ctx context.Context) {
	for _, worker := range wp.workers {
		wp.wg.Add(1)
		go worker.run(ctx, &wp.wg)
	}
}

// Stop gracefully shuts down all workers
func (wp *WorkerPool) Stop() {
	close(wp.taskQueue) // No more tasks
	wp.wg.Wait()        // Wait for workers to finish
	close(wp.resultQueue)
}

// SubmitTask submits a tile task to the worker pool
func (wp *WorkerPool) SubmitTask(task TileTask) {
	wp.taskQueue <- task
}

// GetResult retrieves a completed tile result
func (wp *WorkerPool) GetResult() (TileResult, bool) {
	result, ok := <-wp.resultQueue
	return result, ok
}

// GetNumWorkers returns the number of workers in the pool
func (wp *WorkerPool) GetNumWorkers() int {
	return wp.numWorkers
}

// run is the main worker loop
func (w *Worker) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for task := range w.taskQueue {
		// A cancelled frame drains its remaining tasks as errors instead of
		// marching them
		if err := ctx.Err(); err != nil {
			w.resultQueue <- TileResult{TaskID: task.TaskID, Error: err}
			continue
		}

		stats := w.tiles.RenderTileBounds(task.Tile.Bounds, task.Depth, task.Output, task.Frame)

		w.resultQueue <- TileResult{
			TaskID: task.TaskID,
			Stats:  stats,
		}
	}
}
