package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Ameobea/go-volumetric-fog/pkg/core"
	"github.com/Ameobea/go-volumetric-fog/pkg/renderer"
)

// InspectResponse describes how the fog march ended for a single pixel
type InspectResponse struct {
	X             int        `json:"x"`
	Y             int        `json:"y"`
	Depth         float64    `json:"depth"`         // Scene depth in [0,1]
	HitPoint      [3]float64 `json:"hitPoint"`      // World-space march endpoint
	RayLength     float64    `json:"rayLength"`     // Camera to endpoint distance
	State         string     `json:"state"`         // empty, saturated, exhausted or iteration-capped
	Steps         int        `json:"steps"`         // Raymarch steps taken
	FogColor      [3]float64 `json:"fogColor"`      // Accumulated fog color, linear
	Opacity       float64    `json:"opacity"`       // Accumulated fog opacity
	SceneColor    [3]float64 `json:"sceneColor"`    // Baked scene color behind the fog
	Composite     [3]float64 `json:"composite"`     // Scene mixed with fog, linear
	Luminance     float64    `json:"luminance"`     // Luminance of the composite
	LightDistance float64    `json:"lightDistance"` // Endpoint to animated light distance
}

// handleInspect marches a single pixel and reports the march result as JSON
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	req, err := s.parseRenderRequest(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	x, err := strconv.Atoi(r.URL.Query().Get("x"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid x coordinate")
		return
	}
	y, err := strconv.Atoi(r.URL.Query().Get("y"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid y coordinate")
		return
	}
	if x < 0 || x >= req.Width || y < 0 || y >= req.Height {
		writeJSONError(w, http.StatusBadRequest, "coordinates out of bounds")
		return
	}

	pipe, err := s.buildPipeline(req, req.Width, req.Height)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	depth := pipe.baked.Depth.At(x, y)
	sx, sy := renderer.PixelScreenCoord(x, y, req.Width, req.Height)
	hitPoint := renderer.ReconstructWorldPos(pipe.frame, depth, sx, sy)
	result := pipe.marcher.March(pipe.frame.CameraPos, hitPoint, x, y, pipe.frame)

	sceneColor := pipe.baked.Color.At(x, y)
	composite := sceneColor.Lerp(result.Color, result.Opacity)

	response := InspectResponse{
		X:             x,
		Y:             y,
		Depth:         depth,
		HitPoint:      vec3Array(hitPoint),
		RayLength:     hitPoint.Subtract(pipe.frame.CameraPos).Length(),
		State:         result.State.String(),
		Steps:         result.Steps,
		FogColor:      vec3Array(result.Color),
		Opacity:       result.Opacity,
		SceneColor:    vec3Array(sceneColor),
		Composite:     vec3Array(composite),
		Luminance:     composite.Luminance(),
		LightDistance: hitPoint.Subtract(pipe.frame.LightPos).Length(),
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func vec3Array(v core.Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// writeJSONError writes an error response as JSON
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
