package renderer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/Ameobea/go-volumetric-fog/pkg/core"
	"github.com/Ameobea/go-volumetric-fog/pkg/fog"
	"github.com/Ameobea/go-volumetric-fog/pkg/integrator"
	"github.com/Ameobea/go-volumetric-fog/pkg/noise"
)

// mockMarcher produces a deterministic result from the pixel coordinate
// alone, making tile placement and worker scheduling visible in the output
type mockMarcher struct {
	state integrator.MarchState
}

func (m mockMarcher) March(_, _ core.Vec3, px, py int, _ *core.FrameContext) integrator.Result {
	return integrator.Result{
		Color:   core.NewVec3(float64(px)/1000, float64(py)/1000, 0.5),
		Opacity: 0.5,
		State:   m.state,
		Steps:   px + py + 1,
	}
}

// mockLogger captures log lines for assertions
type mockLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *mockLogger) Printf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *mockLogger) countContaining(substr string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

func testRenderer(t *testing.T, marcher integrator.Marcher, width, height int, config FrameConfig, logger core.Logger) (*FrameRenderer, *DepthBuffer) {
	t.Helper()
	camera, err := NewCamera(DefaultCameraConfig(), width, height)
	if err != nil {
		t.Fatalf("NewCamera failed: %v", err)
	}
	fr, err := NewFrameRenderer(marcher, camera, config, logger)
	if err != nil {
		t.Fatalf("NewFrameRenderer failed: %v", err)
	}
	depth, err := NewDepthBuffer(width, height)
	if err != nil {
		t.Fatalf("NewDepthBuffer failed: %v", err)
	}
	return fr, depth
}

// Every pixel must be marched exactly once, including pixels in the partial
// tiles along the right and bottom edges.
func TestFrameRenderer_CoversEveryPixel(t *testing.T) {
	const width, height = 70, 50
	config := DefaultFrameConfig()
	config.TileSize = 32 // 3x2 grid with partial tiles on both edges

	fr, depth := testRenderer(t, mockMarcher{state: integrator.MarchExhausted}, width, height, config, &mockLogger{})
	frame := fr.Camera().FrameContext(0, core.Vec3{})

	img, stats, err := fr.RenderFrame(context.Background(), depth, frame, nil)
	if err != nil {
		t.Fatalf("RenderFrame failed: %v", err)
	}

	if stats.TotalPixels != width*height {
		t.Errorf("stats cover %d pixels, want %d", stats.TotalPixels, width*height)
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gotColor, gotAlpha := img.At(x, y)
			want := core.NewVec3(float64(x)/1000, float64(y)/1000, 0.5)
			if gotColor != want || gotAlpha != 0.5 {
				t.Fatalf("pixel (%d,%d) = (%v, %v), want (%v, 0.5)", x, y, gotColor, gotAlpha, want)
			}
			if img.StepsAt(x, y) != x+y+1 {
				t.Fatalf("pixel (%d,%d) steps = %d, want %d", x, y, img.StepsAt(x, y), x+y+1)
			}
		}
	}
}

// Worker scheduling must not affect the output
func TestFrameRenderer_DeterministicAcrossWorkerCounts(t *testing.T) {
	const width, height = 64, 48

	render := func(workers int) *FogImage {
		config := DefaultFrameConfig()
		config.TileSize = 16
		config.NumWorkers = workers
		fr, depth := testRenderer(t, mockMarcher{state: integrator.MarchExhausted}, width, height, config, &mockLogger{})
		img, _, err := fr.RenderFrame(context.Background(), depth, fr.Camera().FrameContext(0, core.Vec3{}), nil)
		if err != nil {
			t.Fatalf("RenderFrame with %d workers failed: %v", workers, err)
		}
		return img
	}

	serial := render(1)
	parallel := render(8)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sc, sa := serial.At(x, y)
			pc, pa := parallel.At(x, y)
			if sc != pc || sa != pa {
				t.Fatalf("pixel (%d,%d) differs between 1 and 8 workers", x, y)
			}
		}
	}
}

func TestFrameRenderer_TileCallback(t *testing.T) {
	const width, height = 64, 64
	config := DefaultFrameConfig()
	config.TileSize = 32 // 4 tiles

	fr, depth := testRenderer(t, mockMarcher{state: integrator.MarchExhausted}, width, height, config, &mockLogger{})

	var updates []TileUpdate
	_, _, err := fr.RenderFrame(context.Background(), depth, fr.Camera().FrameContext(0, core.Vec3{}), func(u TileUpdate) {
		updates = append(updates, u)
	})
	if err != nil {
		t.Fatalf("RenderFrame failed: %v", err)
	}

	if len(updates) != 4 {
		t.Fatalf("got %d tile updates, want 4", len(updates))
	}
	covered := 0
	for i, u := range updates {
		if u.TileIndex != i+1 {
			t.Errorf("update %d has index %d, want %d", i, u.TileIndex, i+1)
		}
		if u.TotalTiles != 4 {
			t.Errorf("update %d reports %d total tiles, want 4", i, u.TotalTiles)
		}
		covered += u.Stats.TotalPixels
	}
	if covered != width*height {
		t.Errorf("tile updates cover %d pixels, want %d", covered, width*height)
	}
}

func TestFrameRenderer_Cancellation(t *testing.T) {
	fr, depth := testRenderer(t, mockMarcher{state: integrator.MarchExhausted}, 32, 32, DefaultFrameConfig(), &mockLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := fr.RenderFrame(ctx, depth, fr.Camera().FrameContext(0, core.Vec3{}), nil)
	if err == nil {
		t.Fatal("expected an error from a cancelled context")
	}
}

// A frame full of capped pixels warns once, not once per pixel
func TestFrameRenderer_IterationCapLoggedOncePerFrame(t *testing.T) {
	logger := &mockLogger{}
	fr, depth := testRenderer(t, mockMarcher{state: integrator.MarchIterationCapped}, 32, 32, DefaultFrameConfig(), logger)

	_, stats, err := fr.RenderFrame(context.Background(), depth, fr.Camera().FrameContext(0, core.Vec3{}), nil)
	if err != nil {
		t.Fatalf("RenderFrame failed: %v", err)
	}
	if stats.CappedPixels != 32*32 {
		t.Fatalf("capped pixels = %d, want %d", stats.CappedPixels, 32*32)
	}
	if n := logger.countContaining("iteration cap"); n != 1 {
		t.Errorf("iteration cap warned %d times, want exactly 1", n)
	}
}

func TestFrameRenderer_DimensionMismatch(t *testing.T) {
	fr, _ := testRenderer(t, mockMarcher{state: integrator.MarchExhausted}, 32, 32, DefaultFrameConfig(), &mockLogger{})
	smallDepth, err := NewDepthBuffer(16, 16)
	if err != nil {
		t.Fatalf("NewDepthBuffer failed: %v", err)
	}

	_, _, err = fr.RenderFrame(context.Background(), smallDepth, fr.Camera().FrameContext(0, core.Vec3{}), nil)
	if err == nil {
		t.Fatal("expected an error for mismatched depth buffer dimensions")
	}
}

func TestFrameRenderer_StreamFrame(t *testing.T) {
	const width, height = 64, 64
	config := DefaultFrameConfig()
	config.TileSize = 32

	fr, depth := testRenderer(t, mockMarcher{state: integrator.MarchExhausted}, width, height, config, &mockLogger{})
	frame := fr.Camera().FrameContext(0, core.Vec3{})

	resultChan, tileChan, errChan := fr.StreamFrame(context.Background(), depth, frame, StreamOptions{TileUpdates: true})

	tileCount := 0
	for range tileChan {
		tileCount++
	}
	result, ok := <-resultChan
	if !ok {
		t.Fatal("result channel closed without a frame")
	}
	if err := <-errChan; err != nil {
		t.Fatalf("StreamFrame reported error: %v", err)
	}

	if tileCount != 4 {
		t.Errorf("streamed %d tile updates, want 4", tileCount)
	}
	if result.Image == nil || result.Stats.TotalPixels != width*height {
		t.Errorf("stream result covers %d pixels, want %d", result.Stats.TotalPixels, width*height)
	}
}

// Full stack: real marcher over a uniform noise volume. The camera looks
// into the slab, so interior pixels accumulate some fog without saturating.
func TestFrameRenderer_FogSmoke(t *testing.T) {
	const width, height = 48, 32

	cfg := fog.DefaultConfig()
	volume, err := noise.NewSimplexVolume(16, 1)
	if err != nil {
		t.Fatalf("NewSimplexVolume failed: %v", err)
	}
	field, err := fog.NewDensityField(&cfg, volume)
	if err != nil {
		t.Fatalf("NewDensityField failed: %v", err)
	}
	jitter, err := noise.NewBlueNoise(cfg.BlueNoiseResolution, 7)
	if err != nil {
		t.Fatalf("NewBlueNoise failed: %v", err)
	}
	marcher, err := integrator.NewFogMarcher(&cfg, field, fog.NewColorModel(&cfg, field), jitter)
	if err != nil {
		t.Fatalf("NewFogMarcher failed: %v", err)
	}

	fr, depth := testRenderer(t, marcher, width, height, DefaultFrameConfig(), &mockLogger{})
	frame := fr.Camera().FrameContext(1.5, core.NewVec3(0, 10, 0))

	img, stats, err := fr.RenderFrame(context.Background(), depth, frame, nil)
	if err != nil {
		t.Fatalf("RenderFrame failed: %v", err)
	}

	if stats.TotalPixels != width*height {
		t.Fatalf("stats cover %d pixels, want %d", stats.TotalPixels, width*height)
	}
	if stats.CappedPixels != 0 {
		t.Errorf("%d pixels hit the iteration cap with default config", stats.CappedPixels)
	}

	fogged := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			_, alpha := img.At(x, y)
			if alpha < 0 || alpha > 1 {
				t.Fatalf("pixel (%d,%d) opacity %v out of [0,1]", x, y, alpha)
			}
			if alpha > 0 {
				fogged++
			}
		}
	}
	if fogged == 0 {
		t.Error("no pixel accumulated any fog")
	}
}
