package renderer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/Ameobea/go-volumetric-fog/pkg/core"
	"github.com/Ameobea/go-volumetric-fog/pkg/integrator"
)

func TestRenderSequence_SinksEveryFrame(t *testing.T) {
	fr, depth := testRenderer(t, mockMarcher{state: integrator.MarchExhausted}, 32, 32, DefaultFrameConfig(), &mockLogger{})

	var mu sync.Mutex
	var sunk []int

	err := fr.RenderSequence(context.Background(), depth, 5,
		func(i int) *core.FrameContext {
			return fr.Camera().FrameContext(float64(i)*0.1, core.Vec3{})
		},
		func(i int, img *FogImage, stats FrameStats) error {
			if img == nil {
				return fmt.Errorf("frame %d has no image", i)
			}
			if stats.TotalPixels != 32*32 {
				return fmt.Errorf("frame %d stats cover %d pixels", i, stats.TotalPixels)
			}
			mu.Lock()
			sunk = append(sunk, i)
			mu.Unlock()
			return nil
		})
	if err != nil {
		t.Fatalf("RenderSequence failed: %v", err)
	}

	sort.Ints(sunk)
	if len(sunk) != 5 {
		t.Fatalf("sank %d frames, want 5", len(sunk))
	}
	for i, got := range sunk {
		if got != i {
			t.Errorf("frame index %d missing (got %v)", i, sunk)
		}
	}
}

func TestRenderSequence_SinkErrorPropagates(t *testing.T) {
	fr, depth := testRenderer(t, mockMarcher{state: integrator.MarchExhausted}, 32, 32, DefaultFrameConfig(), &mockLogger{})

	sinkErr := fmt.Errorf("disk full")
	err := fr.RenderSequence(context.Background(), depth, 3,
		func(i int) *core.FrameContext { return fr.Camera().FrameContext(0, core.Vec3{}) },
		func(i int, img *FogImage, stats FrameStats) error { return sinkErr })

	if err == nil {
		t.Fatal("expected the sink error to propagate")
	}
	if err.Error() != sinkErr.Error() {
		t.Errorf("got error %q, want %q", err, sinkErr)
	}
}

func TestRenderSequence_ValidatesArguments(t *testing.T) {
	fr, depth := testRenderer(t, mockMarcher{state: integrator.MarchExhausted}, 32, 32, DefaultFrameConfig(), &mockLogger{})
	makeFrame := func(i int) *core.FrameContext { return fr.Camera().FrameContext(0, core.Vec3{}) }
	sink := func(int, *FogImage, FrameStats) error { return nil }

	if err := fr.RenderSequence(context.Background(), depth, 0, makeFrame, sink); err == nil {
		t.Error("expected an error for zero frames")
	}
	if err := fr.RenderSequence(context.Background(), depth, 1, nil, sink); err == nil {
		t.Error("expected an error for a nil frame source")
	}
	if err := fr.RenderSequence(context.Background(), depth, 1, makeFrame, nil); err == nil {
		t.Error("expected an error for a nil sink")
	}
}
