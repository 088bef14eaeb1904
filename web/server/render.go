package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"log"
	"net/http"
	"time"

	"github.com/Ameobea/go-volumetric-fog/pkg/integrator"
	"github.com/Ameobea/go-volumetric-fog/pkg/renderer"
)

// SSEEvent represents a server-sent event
type SSEEvent struct {
	Type string
	Data interface{}
}

// tileEvent is sent after each tile of the frame settles
type tileEvent struct {
	TileIndex    int    `json:"tileIndex"`  // 0-based tile number
	TotalTiles   int    `json:"totalTiles"` // Total tiles in the frame
	X            int    `json:"x"`          // Tile origin in final image pixels
	Y            int    `json:"y"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	ImageData    string `json:"imageData"` // Base64 encoded PNG of just this tile
	CappedPixels int    `json:"cappedPixels"`
}

// statsPayload summarizes how the march terminated across the frame
type statsPayload struct {
	TotalPixels     int     `json:"totalPixels"`
	EmptyPixels     int     `json:"emptyPixels"`
	SaturatedPixels int     `json:"saturatedPixels"`
	ExhaustedPixels int     `json:"exhaustedPixels"`
	CappedPixels    int     `json:"cappedPixels"`
	AverageSteps    float64 `json:"averageSteps"`
	MinSteps        int     `json:"minSteps"`
	MaxSteps        int     `json:"maxSteps"`
}

// completePayload is the final SSE event body, and the value cached per request
type completePayload struct {
	ImageData string       `json:"imageData"` // Base64 encoded PNG of the composited frame
	Width     int          `json:"width"`
	Height    int          `json:"height"`
	ElapsedMs int64        `json:"elapsedMs"`
	Cached    bool         `json:"cached"`
	Stats     statsPayload `json:"stats"`
}

// handleRender streams a fog render as server-sent events
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	setSSEHeaders(w)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// Single writer goroutine; handler goroutines only send events.
	// writerDone guarantees the final event is flushed before we return.
	sseEventChan := make(chan SSEEvent, 100)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writeSSEEvents(r.Context(), w, flusher, sseEventChan)
	}()
	defer func() {
		close(sseEventChan)
		<-writerDone
	}()

	req, err := s.parseRenderRequest(r)
	if err != nil {
		sendSSEError(sseEventChan, err.Error())
		return
	}

	key := req.cacheKey()
	if cached, ok := s.renderCache.Get(key); ok {
		payload := cached.(completePayload)
		payload.Cached = true
		sendSSEEvent(sseEventChan, SSEEvent{Type: "complete", Data: payload})
		return
	}

	renderID := fmt.Sprintf("render-%d", time.Now().UnixNano())
	logger, consoleChan := newWebLogger(renderID)
	consoleDone := streamConsoleMessages(r.Context(), consoleChan, sseEventChan)
	defer func() {
		close(consoleChan)
		<-consoleDone
	}()

	log.Printf("Starting render %s: scene=%s %dx%d time=%g seed=%d halfres=%t debug=%s",
		renderID, req.Scene, req.Width, req.Height, req.Time, req.Seed, req.HalfRes, req.Debug)

	payload, err := s.renderFrame(r.Context(), req, logger, sseEventChan)
	if err != nil {
		sendSSEError(sseEventChan, err.Error())
		return
	}

	s.renderCache.Add(key, *payload)
	sendSSEEvent(sseEventChan, SSEEvent{Type: "complete", Data: *payload})
}

// renderFrame marches the fog for one request, streaming tile updates as
// they settle, and returns the final composited payload
func (s *Server) renderFrame(ctx context.Context, req *RenderRequest, logger *WebLogger, sseEventChan chan<- SSEEvent) (*completePayload, error) {
	startTime := time.Now()

	renderWidth, renderHeight := req.Width, req.Height
	if req.HalfRes {
		renderWidth = max(req.Width/2, 1)
		renderHeight = max(req.Height/2, 1)
	}

	pipe, err := s.buildPipeline(req, renderWidth, renderHeight)
	if err != nil {
		return nil, err
	}

	debugMode, err := renderer.ParseDebugMode(req.Debug)
	if err != nil {
		return nil, err
	}
	// Heatmap normalization needs the whole frame, so tiles stream plain
	tileMode := debugMode
	if tileMode == renderer.DebugStepHeatmap {
		tileMode = renderer.DebugNone
	}

	frameConfig := renderer.DefaultFrameConfig()
	frameConfig.TileSize = DefaultTileSize
	frameRenderer, err := renderer.NewFrameRenderer(pipe.marcher, pipe.baked.Camera, frameConfig, logger)
	if err != nil {
		return nil, err
	}

	resultChan, tileChan, errChan := frameRenderer.StreamFrame(ctx, pipe.baked.Depth, pipe.frame, renderer.StreamOptions{TileUpdates: true})

	var result *renderer.FrameResult
renderLoop:
	for {
		select {
		case update, ok := <-tileChan:
			if !ok {
				tileChan = nil
				if resultChan == nil {
					break renderLoop
				}
				continue
			}
			if err := s.handleTileUpdate(update, pipe.baked.Color, tileMode, req, renderWidth, renderHeight, sseEventChan); err != nil {
				log.Printf("Failed to send tile update: %v", err)
			}
		case res, ok := <-resultChan:
			if !ok {
				resultChan = nil
				if tileChan == nil {
					break renderLoop
				}
				continue
			}
			result = &res
		case err, ok := <-errChan:
			if ok && err != nil {
				return nil, err
			}
			errChan = nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if result == nil {
		// A render error may still be buffered; the channel is already closed
		if errChan != nil {
			if err, ok := <-errChan; ok && err != nil {
				return nil, err
			}
		}
		return nil, fmt.Errorf("render produced no frame")
	}

	composited, err := renderer.Composite(pipe.baked.Color, result.Image, debugMode)
	if err != nil {
		return nil, err
	}
	if req.HalfRes {
		composited = renderer.UpscaleImage(composited, req.Width, req.Height)
	}

	imageData, err := imageToBase64PNG(composited)
	if err != nil {
		return nil, err
	}

	stats := result.Stats
	return &completePayload{
		ImageData: imageData,
		Width:     req.Width,
		Height:    req.Height,
		ElapsedMs: time.Since(startTime).Milliseconds(),
		Stats: statsPayload{
			TotalPixels:     stats.TotalPixels,
			EmptyPixels:     stats.EmptyPixels,
			SaturatedPixels: stats.SaturatedPixels,
			ExhaustedPixels: stats.ExhaustedPixels,
			CappedPixels:    stats.CappedPixels,
			AverageSteps:    stats.AverageSteps(),
			MinSteps:        stats.MinSteps,
			MaxSteps:        stats.MaxSteps,
		},
	}, nil
}

// handleTileUpdate composites one settled tile and sends it as an SSE event.
// Tile coordinates are scaled up when marching at half resolution so the
// client can place them in the final image.
func (s *Server) handleTileUpdate(update renderer.TileUpdate, sceneColor *renderer.ColorBuffer, mode renderer.DebugMode, req *RenderRequest, renderWidth, renderHeight int, sseEventChan chan<- SSEEvent) error {
	tileImage, err := renderer.CompositeRegion(sceneColor, update.Image, mode, update.Bounds)
	if err != nil {
		return err
	}

	x, y := update.Bounds.Min.X, update.Bounds.Min.Y
	width, height := update.Bounds.Dx(), update.Bounds.Dy()
	if req.HalfRes {
		tileImage = renderer.UpscaleImage(tileImage, width*req.Width/renderWidth, height*req.Height/renderHeight)
		x = x * req.Width / renderWidth
		y = y * req.Height / renderHeight
		width = tileImage.Bounds().Dx()
		height = tileImage.Bounds().Dy()
	}

	imageData, err := imageToBase64PNG(tileImage)
	if err != nil {
		return err
	}

	cappedPixels := 0
	for py := update.Bounds.Min.Y; py < update.Bounds.Max.Y; py++ {
		for px := update.Bounds.Min.X; px < update.Bounds.Max.X; px++ {
			if update.Image.StateAt(px, py) == integrator.MarchIterationCapped {
				cappedPixels++
			}
		}
	}

	sendSSEEvent(sseEventChan, SSEEvent{Type: "tile", Data: tileEvent{
		TileIndex:    update.TileIndex,
		TotalTiles:   update.TotalTiles,
		X:            x,
		Y:            y,
		Width:        width,
		Height:       height,
		ImageData:    imageData,
		CappedPixels: cappedPixels,
	}})
	return nil
}

// setSSEHeaders sets the headers required for server-sent events
func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Cache-Control")
}

// writeSSEEvents is the single writer for the response; it drains the event
// channel until it closes, dropping writes once the client disconnects
func writeSSEEvents(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, events <-chan SSEEvent) {
	clientGone := false
	for event := range events {
		if clientGone {
			continue
		}
		select {
		case <-ctx.Done():
			clientGone = true
			continue
		default:
		}

		data, err := json.Marshal(event.Data)
		if err != nil {
			log.Printf("Failed to marshal SSE event: %v", err)
			continue
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
		flusher.Flush()
	}
}

// streamConsoleMessages forwards console messages to the SSE channel until
// the console channel closes; the returned channel reports completion
func streamConsoleMessages(ctx context.Context, consoleChan <-chan ConsoleMessage, sseEventChan chan<- SSEEvent) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for message := range consoleChan {
			select {
			case <-ctx.Done():
				continue
			default:
			}
			sendSSEEvent(sseEventChan, SSEEvent{Type: "console", Data: message})
		}
	}()
	return done
}

// sendSSEEvent sends an event without blocking; events are dropped if the
// writer has fallen behind
func sendSSEEvent(sseEventChan chan<- SSEEvent, event SSEEvent) {
	select {
	case sseEventChan <- event:
	default:
		log.Printf("SSE event channel full, dropping %s event", event.Type)
	}
}

// sendSSEError sends an error event to the client
func sendSSEError(sseEventChan chan<- SSEEvent, message string) {
	sendSSEEvent(sseEventChan, SSEEvent{Type: "error", Data: map[string]string{"error": message}})
}

// imageToBase64PNG converts an image to a base64-encoded PNG string
func imageToBase64PNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode PNG: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
