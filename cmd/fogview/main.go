package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"github.com/Ameobea/go-volumetric-fog/pkg/fog"
	"github.com/Ameobea/go-volumetric-fog/pkg/integrator"
	"github.com/Ameobea/go-volumetric-fog/pkg/noise"
	"github.com/Ameobea/go-volumetric-fog/pkg/renderer"
	"github.com/Ameobea/go-volumetric-fog/pkg/scene"
)

const (
	previewWidth  = 320
	previewHeight = 180
)

// quietLogger drops render chatter so the frame loop does not spam stdout
type quietLogger struct{}

func (quietLogger) Printf(format string, args ...interface{}) {}

// viewer shares the latest frame and settings between the UI and the
// background render loop
type viewer struct {
	mu        sync.Mutex
	sceneName string
	debug     renderer.DebugMode
	paused    bool
	speed     float64
	seed      int64
	dirty     bool

	volumeSize int

	pixels []byte
	status string
}

func (v *viewer) snapshot() (sceneName string, debug renderer.DebugMode, paused bool, speed float64, seed int64, dirty bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	dirty = v.dirty
	v.dirty = false
	return v.sceneName, v.debug, v.paused, v.speed, v.seed, dirty
}

func (v *viewer) publish(pixels []byte, status string) {
	v.mu.Lock()
	v.pixels = pixels
	v.status = status
	v.mu.Unlock()
}

func (v *viewer) setStatus(status string) {
	v.mu.Lock()
	v.status = status
	v.mu.Unlock()
}

// previewPipeline is everything the render loop needs for one scene
type previewPipeline struct {
	sceneName string
	seed      int64
	scene     *scene.Scene
	baked     *scene.Baked
	renderer  *renderer.FrameRenderer
}

func buildPreview(sceneName string, seed int64, volumeSize int) (*previewPipeline, error) {
	sceneObj, err := scene.ByName(sceneName)
	if err != nil {
		return nil, err
	}
	baked, err := sceneObj.Bake(previewWidth, previewHeight)
	if err != nil {
		return nil, err
	}
	volume, err := noise.NewSimplexVolume(volumeSize, seed)
	if err != nil {
		return nil, err
	}
	jitter, err := noise.NewBlueNoise(sceneObj.Fog.BlueNoiseResolution, seed)
	if err != nil {
		return nil, err
	}
	field, err := fog.NewDensityField(&sceneObj.Fog, volume)
	if err != nil {
		return nil, err
	}
	colors := fog.NewColorModel(&sceneObj.Fog, field)
	marcher, err := integrator.NewFogMarcher(&sceneObj.Fog, field, colors, jitter)
	if err != nil {
		return nil, err
	}
	frameRenderer, err := renderer.NewFrameRenderer(marcher, baked.Camera, renderer.DefaultFrameConfig(), quietLogger{})
	if err != nil {
		return nil, err
	}
	return &previewPipeline{
		sceneName: sceneName,
		seed:      seed,
		scene:     sceneObj,
		baked:     baked,
		renderer:  frameRenderer,
	}, nil
}

// run renders frames continuously, advancing animation time by wall-clock
// elapsed time scaled by the speed setting
func (v *viewer) run(ctx context.Context) {
	var pipe *previewPipeline
	animTime := 0.0
	lastTick := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		sceneName, debug, paused, speed, seed, dirty := v.snapshot()

		if pipe == nil || pipe.sceneName != sceneName || pipe.seed != seed {
			p, err := buildPreview(sceneName, seed, v.volumeSize)
			if err != nil {
				v.setStatus(fmt.Sprintf("error: %v", err))
				time.Sleep(500 * time.Millisecond)
				continue
			}
			pipe = p
			dirty = true
		}

		now := time.Now()
		dt := now.Sub(lastTick).Seconds()
		lastTick = now

		if paused {
			if !dirty {
				time.Sleep(30 * time.Millisecond)
				continue
			}
		} else {
			animTime += dt * speed
		}

		frame := pipe.baked.Camera.FrameContext(animTime, pipe.scene.LightAt(animTime))
		img, stats, err := pipe.renderer.RenderFrame(ctx, pipe.baked.Depth, frame, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			v.setStatus(fmt.Sprintf("error: %v", err))
			time.Sleep(500 * time.Millisecond)
			continue
		}
		out, err := renderer.Composite(pipe.baked.Color, img, debug)
		if err != nil {
			v.setStatus(fmt.Sprintf("error: %v", err))
			time.Sleep(500 * time.Millisecond)
			continue
		}

		state := "playing"
		if paused {
			state = "paused"
		}
		status := fmt.Sprintf("%s  t=%.1fs  %.2fx  %s  debug:%s  %.0f steps/px  capped:%d\n[space] pause  [s] scene  [d] debug  [r] reseed  [up/down] speed",
			pipe.sceneName, animTime, speed, state, debug, stats.AverageSteps(), stats.CappedPixels)
		v.publish(out.Pix, status)
	}
}

// Game implements ebiten.Game, blitting whatever frame the render loop
// published last
type Game struct {
	view       *viewer
	sceneNames []string
	sceneIndex int
	debugIndex int
	prevKeys   map[ebiten.Key]bool
}

var debugCycle = []renderer.DebugMode{renderer.DebugNone, renderer.DebugIterationCap, renderer.DebugStepHeatmap}

// keyJustPressed reports a key transition from released to pressed
func (g *Game) keyJustPressed(key ebiten.Key) bool {
	pressed := ebiten.IsKeyPressed(key)
	was := g.prevKeys[key]
	g.prevKeys[key] = pressed
	return pressed && !was
}

func (g *Game) Update() error {
	v := g.view

	if g.keyJustPressed(ebiten.KeySpace) {
		v.mu.Lock()
		v.paused = !v.paused
		v.dirty = true
		v.mu.Unlock()
	}
	if g.keyJustPressed(ebiten.KeyS) {
		g.sceneIndex = (g.sceneIndex + 1) % len(g.sceneNames)
		v.mu.Lock()
		v.sceneName = g.sceneNames[g.sceneIndex]
		v.dirty = true
		v.mu.Unlock()
	}
	if g.keyJustPressed(ebiten.KeyD) {
		g.debugIndex = (g.debugIndex + 1) % len(debugCycle)
		v.mu.Lock()
		v.debug = debugCycle[g.debugIndex]
		v.dirty = true
		v.mu.Unlock()
	}
	if g.keyJustPressed(ebiten.KeyR) {
		v.mu.Lock()
		v.seed++
		v.dirty = true
		v.mu.Unlock()
	}
	if g.keyJustPressed(ebiten.KeyArrowUp) {
		v.mu.Lock()
		v.speed = min(v.speed*2, 8)
		v.dirty = true
		v.mu.Unlock()
	}
	if g.keyJustPressed(ebiten.KeyArrowDown) {
		v.mu.Lock()
		v.speed = max(v.speed/2, 0.125)
		v.dirty = true
		v.mu.Unlock()
	}

	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	g.view.mu.Lock()
	pixels := g.view.pixels
	status := g.view.status
	g.view.mu.Unlock()

	if pixels != nil {
		screen.WritePixels(pixels)
	}
	ebitenutil.DebugPrint(screen, status)
}

func (g *Game) Layout(_, _ int) (int, int) { return previewWidth, previewHeight }

func main() {
	sceneName := flag.String("scene", scene.DefaultName, "Scene to preview")
	seed := flag.Int64("seed", 1, "Noise seed")
	volumeSize := flag.Int("volume-size", 48, "Edge length of the generated noise volume")
	scale := flag.Int("scale", 3, "Window scale factor")
	flag.Parse()

	names := scene.Names()
	sceneIndex := 0
	for i, name := range names {
		if name == *sceneName {
			sceneIndex = i
		}
	}

	view := &viewer{
		sceneName:  names[sceneIndex],
		speed:      1,
		seed:       *seed,
		volumeSize: *volumeSize,
		status:     "rendering first frame...",
	}
	go view.run(context.Background())

	game := &Game{
		view:       view,
		sceneNames: names,
		sceneIndex: sceneIndex,
		prevKeys:   make(map[ebiten.Key]bool),
	}

	ebiten.SetWindowSize(previewWidth**scale, previewHeight**scale)
	ebiten.SetWindowTitle("Volumetric Fog Preview")
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
