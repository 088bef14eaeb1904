package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Ameobea/go-volumetric-fog/pkg/core"
	"github.com/Ameobea/go-volumetric-fog/pkg/fog"
	"github.com/Ameobea/go-volumetric-fog/pkg/integrator"
	"github.com/Ameobea/go-volumetric-fog/pkg/loaders"
	"github.com/Ameobea/go-volumetric-fog/pkg/noise"
	"github.com/Ameobea/go-volumetric-fog/pkg/renderer"
	"github.com/Ameobea/go-volumetric-fog/pkg/scene"
)

// renderOptions collects the flag values that drive a render
type renderOptions struct {
	sceneName   string
	width       int
	height      int
	startTime   float64
	frames      int
	fps         float64
	seed        int64
	volumePath  string
	saveVolume  string
	volumeSize  int
	depthPath   string
	colorPath   string
	halfRes     bool
	composite   bool
	debug       string
	dumpBuffers bool
	dumpFog     bool
	tileSize    int
	workers     int
	outputDir   string
}

func main() {
	// Parse command line flags
	opts := renderOptions{}
	flag.StringVar(&opts.sceneName, "scene", scene.DefaultName, "Scene name (see -help for the list)")
	flag.IntVar(&opts.width, "width", 640, "Output image width")
	flag.IntVar(&opts.height, "height", 360, "Output image height")
	flag.Float64Var(&opts.startTime, "time", 0, "Animation time of the first frame in seconds")
	flag.IntVar(&opts.frames, "frames", 1, "Number of frames to render")
	flag.Float64Var(&opts.fps, "fps", 30, "Frames per second of animation time when rendering a sequence")
	flag.Int64Var(&opts.seed, "seed", 1, "Noise seed")
	flag.StringVar(&opts.volumePath, "volume", "", "Load a .fogvol noise volume instead of generating one")
	flag.StringVar(&opts.saveVolume, "save-volume", "", "Save the noise volume to this path for reuse")
	flag.IntVar(&opts.volumeSize, "volume-size", 64, "Edge length of the generated noise volume")
	flag.StringVar(&opts.depthPath, "depth", "", "Load the depth buffer from a .fogbuf or .tiff file instead of baking the scene's")
	flag.StringVar(&opts.colorPath, "color", "", "Load the scene color buffer from a .fogbuf or .png file instead of baking the scene's")
	flag.BoolVar(&opts.halfRes, "halfres", false, "March fog at half resolution and upscale the result")
	flag.BoolVar(&opts.composite, "composite", true, "Composite fog over the baked scene (false writes the raw fog accumulation)")
	flag.StringVar(&opts.debug, "debug", "none", "Debug visualization: none, itercap or heatmap")
	flag.BoolVar(&opts.dumpBuffers, "dump-buffers", false, "Also write the baked depth and color buffers")
	flag.BoolVar(&opts.dumpFog, "dump-fog", false, "Also write each frame's raw fog pass as float32")
	flag.IntVar(&opts.tileSize, "tile", 64, "Tile edge length for the worker pool")
	flag.IntVar(&opts.workers, "workers", 0, "Number of render workers (0 uses all CPUs)")
	flag.StringVar(&opts.outputDir, "output", "output", "Output directory")
	help := flag.Bool("help", false, "Show help information")
	flag.Parse()

	// Show help if requested
	if *help {
		fmt.Println("Volumetric Fog Renderer")
		fmt.Println("Usage: fogrender [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		fmt.Println()
		fmt.Println("Available scenes:")
		for _, info := range scene.List() {
			fmt.Printf("  %s - %s\n", info.Name, info.Description)
		}
		fmt.Println()
		fmt.Println("Output will be saved to <output>/<scene>/fog_<timestamp>.png")
		return
	}

	fmt.Println("Starting volumetric fog renderer...")

	if err := run(opts); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts renderOptions) error {
	if opts.width < 8 || opts.height < 8 {
		return fmt.Errorf("output size must be at least 8x8, got %dx%d", opts.width, opts.height)
	}
	if opts.frames > 1 && opts.fps <= 0 {
		return fmt.Errorf("fps must be positive when rendering a sequence, got %v", opts.fps)
	}

	debugMode, err := renderer.ParseDebugMode(opts.debug)
	if err != nil {
		return err
	}
	if !opts.composite && debugMode != renderer.DebugNone {
		return fmt.Errorf("debug visualizations require compositing")
	}

	sceneObj, err := scene.ByName(opts.sceneName)
	if err != nil {
		return err
	}
	fmt.Printf("Using %s scene: %s\n", sceneObj.Name, sceneObj.Description)

	// Create output directory for this scene
	outputDir := filepath.Join(opts.outputDir, sceneObj.Name)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	renderWidth, renderHeight := opts.width, opts.height
	if opts.halfRes {
		renderWidth = max(opts.width/2, 1)
		renderHeight = max(opts.height/2, 1)
	}

	baked, err := sceneObj.Bake(renderWidth, renderHeight)
	if err != nil {
		return err
	}

	// Externally rendered buffers replace the baked ones; the scene still
	// supplies the camera, fog settings and light path, so the buffers must
	// come from a matching projection.
	if opts.depthPath != "" {
		depthBuf, err := loadExternalDepth(opts.depthPath)
		if err != nil {
			return err
		}
		if depthBuf.Width() != renderWidth || depthBuf.Height() != renderHeight {
			return fmt.Errorf("depth buffer %s is %dx%d but the render is %dx%d",
				opts.depthPath, depthBuf.Width(), depthBuf.Height(), renderWidth, renderHeight)
		}
		baked.Depth = depthBuf
		fmt.Printf("Depth buffer loaded from %s\n", opts.depthPath)
	}
	if opts.colorPath != "" {
		colorBuf, err := loadExternalColor(opts.colorPath)
		if err != nil {
			return err
		}
		if colorBuf.Width() != renderWidth || colorBuf.Height() != renderHeight {
			return fmt.Errorf("color buffer %s is %dx%d but the render is %dx%d",
				opts.colorPath, colorBuf.Width(), colorBuf.Height(), renderWidth, renderHeight)
		}
		baked.Color = colorBuf
		fmt.Printf("Color buffer loaded from %s\n", opts.colorPath)
	}

	volume, err := loadOrGenerateVolume(opts.volumePath, opts.volumeSize, opts.seed)
	if err != nil {
		return err
	}
	if opts.saveVolume != "" {
		if err := volume.SaveFile(opts.saveVolume); err != nil {
			return err
		}
		fmt.Printf("Noise volume saved as %s\n", opts.saveVolume)
	}

	jitter, err := noise.NewBlueNoise(sceneObj.Fog.BlueNoiseResolution, opts.seed)
	if err != nil {
		return err
	}
	field, err := fog.NewDensityField(&sceneObj.Fog, volume)
	if err != nil {
		return err
	}
	colors := fog.NewColorModel(&sceneObj.Fog, field)
	marcher, err := integrator.NewFogMarcher(&sceneObj.Fog, field, colors, jitter)
	if err != nil {
		return err
	}

	frameConfig := renderer.DefaultFrameConfig()
	frameConfig.TileSize = opts.tileSize
	frameConfig.NumWorkers = opts.workers
	frameRenderer, err := renderer.NewFrameRenderer(marcher, baked.Camera, frameConfig, nil)
	if err != nil {
		return err
	}

	timestamp := time.Now().Format("20060102_150405")

	if opts.dumpBuffers {
		base := filepath.Join(outputDir, fmt.Sprintf("scene_%s", timestamp))
		if err := loaders.SaveDepthTIFFFile(base+"_depth.tiff", baked.Depth); err != nil {
			return err
		}
		if err := loaders.SaveDepthBufferFile(base+"_depth.fogbuf", baked.Depth); err != nil {
			return err
		}
		if err := loaders.SaveColorBufferFile(base+"_color.fogbuf", baked.Color); err != nil {
			return err
		}
		fmt.Printf("Scene buffers saved with prefix %s\n", base)
	}

	makeFrame := func(frameIndex int) *core.FrameContext {
		t := frameTime(opts.startTime, opts.fps, frameIndex)
		return baked.Camera.FrameContext(t, sceneObj.LightAt(t))
	}

	sink := func(frameIndex int, img *renderer.FogImage, stats renderer.FrameStats) error {
		var out *image.RGBA
		if opts.composite {
			var err error
			out, err = renderer.Composite(baked.Color, img, debugMode)
			if err != nil {
				return err
			}
		} else {
			out = img.ToRGBA()
		}
		if opts.halfRes {
			out = renderer.UpscaleImage(out, opts.width, opts.height)
		}

		filename := outputFilename(outputDir, timestamp, frameIndex, opts.frames)
		if err := loaders.SavePNG(filename, out); err != nil {
			return err
		}
		if opts.dumpFog {
			fogPath := strings.TrimSuffix(filename, ".png") + ".fogbuf"
			if err := loaders.SaveFogImageFile(fogPath, img); err != nil {
				return err
			}
		}
		fmt.Printf("Frame %d of %d saved as %s (%.1f avg steps, %d capped)\n",
			frameIndex+1, opts.frames, filename, stats.AverageSteps(), stats.CappedPixels)
		return nil
	}

	startTime := time.Now()
	if err := frameRenderer.RenderSequence(context.Background(), baked.Depth, opts.frames, makeFrame, sink); err != nil {
		return err
	}
	fmt.Printf("Render completed in %v\n", time.Since(startTime))
	return nil
}

// loadOrGenerateVolume loads a .fogvol file when a path is given, otherwise
// builds a simplex volume from the seed
func loadOrGenerateVolume(path string, size int, seed int64) (*noise.Volume, error) {
	if path != "" {
		return noise.LoadVolumeFile(path)
	}
	return noise.NewSimplexVolume(size, seed)
}

// loadExternalDepth reads a depth buffer rendered elsewhere, picking the
// decoder by file extension
func loadExternalDepth(path string) (*renderer.DepthBuffer, error) {
	switch filepath.Ext(path) {
	case ".tif", ".tiff":
		return loaders.LoadDepthTIFFFile(path)
	default:
		return loaders.LoadDepthBufferFile(path)
	}
}

// loadExternalColor reads a scene color buffer rendered elsewhere
func loadExternalColor(path string) (*renderer.ColorBuffer, error) {
	if filepath.Ext(path) == ".fogbuf" {
		return loaders.LoadColorBufferFile(path)
	}
	return loaders.LoadColorBufferImage(path)
}

// frameTime returns the animation time of a frame in a sequence
func frameTime(start, fps float64, frameIndex int) float64 {
	if frameIndex == 0 {
		return start
	}
	return start + float64(frameIndex)/fps
}

// outputFilename builds the per-frame output path; sequences get a frame
// suffix so files sort in render order
func outputFilename(outputDir, timestamp string, frameIndex, frameCount int) string {
	if frameCount > 1 {
		return filepath.Join(outputDir, fmt.Sprintf("fog_%s_f%03d.png", timestamp, frameIndex))
	}
	return filepath.Join(outputDir, fmt.Sprintf("fog_%s.png", timestamp))
}
