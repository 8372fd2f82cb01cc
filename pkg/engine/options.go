package engine

import (
	"encoding/json"
	"fmt"
)

// Options are the display and analysis settings that can change while the
// processor runs. Updates take effect on the next tick.
type Options struct {
	// GazePointSize is the marker radius in reference pixels. It also sets
	// the stamp radius of each history point in the heatmap.
	GazePointSize int `json:"gaze_point_size"`

	// GazeColor is the marker color in BGR order.
	GazeColor [3]int `json:"gaze_color"`

	// GazeOpacity blends the marker over the composite, 0 to 1.
	GazeOpacity float64 `json:"gaze_opacity"`

	// ShowFPS draws the frame rate onto the composite.
	ShowFPS bool `json:"show_fps"`

	// OverlayScene warps the undistorted frame into reference space and
	// blends it under the overlays at SceneOpacity.
	OverlayScene bool    `json:"overlay_scene"`
	SceneOpacity float64 `json:"scene_opacity"`

	// HeatmapEnabled renders the gaze history as a density overlay at
	// HeatmapOpacity.
	HeatmapEnabled bool    `json:"heatmap_enabled"`
	HeatmapOpacity float64 `json:"heatmap_opacity"`

	// HistorySize is how many projected points the heatmap retains.
	HistorySize int `json:"history_size"`
}

// DefaultOptions returns the startup display settings: a solid red gaze
// marker, FPS readout on, scene and heatmap overlays off.
func DefaultOptions() Options {
	return Options{
		GazePointSize:  10,
		GazeColor:      [3]int{0, 0, 255},
		GazeOpacity:    1.0,
		ShowFPS:        true,
		OverlayScene:   false,
		SceneOpacity:   0.5,
		HeatmapEnabled: false,
		HeatmapOpacity: 0.5,
		HistorySize:    100,
	}
}

// Validate checks all fields and returns a list of problems, empty when the
// options are usable.
func (o *Options) Validate() []string {
	var errors []string

	if o.GazePointSize < 1 || o.GazePointSize > 100 {
		errors = append(errors, fmt.Sprintf("gaze_point_size must be 1-100, got %d", o.GazePointSize))
	}
	for i, c := range o.GazeColor {
		if c < 0 || c > 255 {
			errors = append(errors, fmt.Sprintf("gaze_color[%d] must be 0-255, got %d", i, c))
		}
	}
	if o.GazeOpacity < 0 || o.GazeOpacity > 1 {
		errors = append(errors, fmt.Sprintf("gaze_opacity must be 0-1, got %v", o.GazeOpacity))
	}
	if o.SceneOpacity < 0 || o.SceneOpacity > 1 {
		errors = append(errors, fmt.Sprintf("scene_opacity must be 0-1, got %v", o.SceneOpacity))
	}
	if o.HeatmapOpacity < 0 || o.HeatmapOpacity > 1 {
		errors = append(errors, fmt.Sprintf("heatmap_opacity must be 0-1, got %v", o.HeatmapOpacity))
	}
	if o.HistorySize < 1 || o.HistorySize > 1000 {
		errors = append(errors, fmt.Sprintf("history_size must be 1-1000, got %d", o.HistorySize))
	}

	return errors
}

// apply overlays individual parameters onto a copy of o. Unknown keys are
// ignored; values of the wrong type leave the field unchanged.
func (o Options) apply(params map[string]interface{}) Options {
	for key, value := range params {
		switch key {
		case "gaze_point_size":
			if v, ok := toInt(value); ok {
				o.GazePointSize = v
			}
		case "gaze_color":
			if v, ok := toColor(value); ok {
				o.GazeColor = v
			}
		case "gaze_opacity":
			if v, ok := toFloat(value); ok {
				o.GazeOpacity = v
			}
		case "show_fps":
			if v, ok := value.(bool); ok {
				o.ShowFPS = v
			}
		case "overlay_scene":
			if v, ok := value.(bool); ok {
				o.OverlayScene = v
			}
		case "scene_opacity":
			if v, ok := toFloat(value); ok {
				o.SceneOpacity = v
			}
		case "heatmap_enabled":
			if v, ok := value.(bool); ok {
				o.HeatmapEnabled = v
			}
		case "heatmap_opacity":
			if v, ok := toFloat(value); ok {
				o.HeatmapOpacity = v
			}
		case "history_size":
			if v, ok := toInt(value); ok {
				o.HistorySize = v
			}
		}
	}
	return o
}

// Helper functions for type conversion

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err == nil {
			return f, true
		}
	}
	return 0, false
}

func toColor(v interface{}) ([3]int, bool) {
	raw, ok := v.([]interface{})
	if !ok || len(raw) != 3 {
		return [3]int{}, false
	}
	var c [3]int
	for i, e := range raw {
		n, ok := toInt(e)
		if !ok {
			return [3]int{}, false
		}
		c[i] = n
	}
	return c, true
}
