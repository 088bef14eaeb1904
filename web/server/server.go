package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"

	lru "github.com/hashicorp/golang-lru"

	"github.com/Ameobea/go-volumetric-fog/pkg/core"
	"github.com/Ameobea/go-volumetric-fog/pkg/fog"
	"github.com/Ameobea/go-volumetric-fog/pkg/integrator"
	"github.com/Ameobea/go-volumetric-fog/pkg/noise"
	"github.com/Ameobea/go-volumetric-fog/pkg/renderer"
	"github.com/Ameobea/go-volumetric-fog/pkg/scene"
)

// DefaultTileSize is the tile edge used for streamed renders
const DefaultTileSize = 64

const (
	// renderCacheSize bounds how many encoded frames stay in memory
	renderCacheSize = 32
	// assetCacheSize bounds how many noise volumes and jitter textures are
	// kept across requests
	assetCacheSize = 8
	// noiseVolumeSize is the edge length of server-built noise volumes
	noiseVolumeSize = 64
)

// Server handles web requests for the fog renderer
type Server struct {
	port       int
	volumeSize int

	// All three caches are safe for concurrent use
	renderCache *lru.Cache // request key -> completePayload
	volumeCache *lru.Cache // seed -> *noise.Volume
	jitterCache *lru.Cache // jitterKey -> *noise.BlueNoise
}

type jitterKey struct {
	resolution int
	seed       int64
}

// NewServer creates a new web server
func NewServer(port int) (*Server, error) {
	renderCache, err := lru.New(renderCacheSize)
	if err != nil {
		return nil, err
	}
	volumeCache, err := lru.New(assetCacheSize)
	if err != nil {
		return nil, err
	}
	jitterCache, err := lru.New(assetCacheSize)
	if err != nil {
		return nil, err
	}
	return &Server{
		port:        port,
		volumeSize:  noiseVolumeSize,
		renderCache: renderCache,
		volumeCache: volumeCache,
		jitterCache: jitterCache,
	}, nil
}

// Start starts the web server
func (s *Server) Start() error {
	http.HandleFunc("/api/render", s.handleRender)
	http.HandleFunc("/api/inspect", s.handleInspect)
	http.HandleFunc("/api/scenes", s.handleScenes)
	http.HandleFunc("/api/health", s.handleHealth)

	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("Starting fog render server on http://localhost%s", addr)
	return http.ListenAndServe(addr, nil)
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleScenes lists the registered demo scenes
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"scenes":  scene.List(),
		"default": scene.DefaultName,
	})
}

// RenderRequest represents a render request from the client
type RenderRequest struct {
	Scene   string  `json:"scene"`   // Scene name (e.g. "basin")
	Width   int     `json:"width"`   // Output image width
	Height  int     `json:"height"`  // Output image height
	Time    float64 `json:"time"`    // Animation time in seconds
	Seed    int64   `json:"seed"`    // Noise seed
	HalfRes bool    `json:"halfRes"` // March at half resolution, upscale the composite
	Debug   string  `json:"debug"`   // "none", "itercap" or "heatmap"
}

// cacheKey identifies a render by every parameter that affects its pixels
func (req *RenderRequest) cacheKey() string {
	return fmt.Sprintf("%s|%dx%d|t=%g|seed=%d|half=%t|debug=%s",
		req.Scene, req.Width, req.Height, req.Time, req.Seed, req.HalfRes, req.Debug)
}

// parseRenderRequest parses and validates request parameters
func (s *Server) parseRenderRequest(r *http.Request) (*RenderRequest, error) {
	req := &RenderRequest{}
	query := r.URL.Query()

	req.Scene = query.Get("scene")
	if req.Scene == "" {
		req.Scene = scene.DefaultName
	}

	var err error
	if req.Width, err = parseIntParam(query, "width", 640, 16, 2000); err != nil {
		return nil, err
	}
	if req.Height, err = parseIntParam(query, "height", 360, 16, 2000); err != nil {
		return nil, err
	}
	if req.Time, err = parseFloatParam(query, "time", 0, 0, 86400); err != nil {
		return nil, err
	}
	seed, err := parseIntParam(query, "seed", 1, 1, 1<<31-1)
	if err != nil {
		return nil, err
	}
	req.Seed = int64(seed)
	if req.HalfRes, err = parseBoolParam(query, "halfres", false); err != nil {
		return nil, err
	}
	req.Debug = query.Get("debug")
	if req.Debug == "" {
		req.Debug = "none"
	}
	if _, err := renderer.ParseDebugMode(req.Debug); err != nil {
		return nil, err
	}
	return req, nil
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseFloatParam parses a float parameter from URL query with validation
func parseFloatParam(values url.Values, key string, defaultValue, min, max float64) (float64, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %v and %v, got: %v", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseBoolParam parses a boolean parameter from URL query
func parseBoolParam(values url.Values, key string, defaultValue bool) (bool, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("invalid %s: %s", key, value)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// pipeline bundles everything needed to march one frame of a scene
type pipeline struct {
	scene   *scene.Scene
	baked   *scene.Baked
	marcher integrator.Marcher
	frame   *core.FrameContext
}

// buildPipeline assembles the scene buffers, noise assets and marcher for a
// request at the given render resolution
func (s *Server) buildPipeline(req *RenderRequest, width, height int) (*pipeline, error) {
	sceneObj, err := scene.ByName(req.Scene)
	if err != nil {
		return nil, err
	}
	baked, err := sceneObj.Bake(width, height)
	if err != nil {
		return nil, err
	}
	volume, err := s.volumeForSeed(req.Seed)
	if err != nil {
		return nil, err
	}
	jitter, err := s.jitterFor(sceneObj.Fog.BlueNoiseResolution, req.Seed)
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
	return &pipeline{
		scene:   sceneObj,
		baked:   baked,
		marcher: marcher,
		frame:   baked.Camera.FrameContext(req.Time, sceneObj.LightAt(req.Time)),
	}, nil
}

// volumeForSeed returns the noise volume for a seed, building it on first
// use. Volumes are scene-independent, so concurrent renders share them.
func (s *Server) volumeForSeed(seed int64) (*noise.Volume, error) {
	if cached, ok := s.volumeCache.Get(seed); ok {
		return cached.(*noise.Volume), nil
	}
	volume, err := noise.NewSimplexVolume(s.volumeSize, seed)
	if err != nil {
		return nil, err
	}
	s.volumeCache.Add(seed, volume)
	return volume, nil
}

// jitterFor returns the blue-noise jitter texture for a resolution and seed
func (s *Server) jitterFor(resolution int, seed int64) (*noise.BlueNoise, error) {
	key := jitterKey{resolution: resolution, seed: seed}
	if cached, ok := s.jitterCache.Get(key); ok {
		return cached.(*noise.BlueNoise), nil
	}
	jitter, err := noise.NewBlueNoise(resolution, seed)
	if err != nil {
		return nil, err
	}
	s.jitterCache.Add(key, jitter)
	return jitter, nil
}
