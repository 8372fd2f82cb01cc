// Package config loads and validates the engine settings file.
//
// Activation is all-or-nothing: a settings file that fails validation never
// produces a partially configured engine.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Default network settings.
const (
	DefaultListenAddr = ":8089"
	DefaultDatabase   = "gazemap.db"
	DefaultExportDir  = "recordings"
)

// Settings is the root configuration consumed once at startup of a session.
type Settings struct {
	// Endpoint is the gaze stream address (ws:// or wss://).
	Endpoint string `json:"endpoint"`

	// ReferenceImage is the path to the fixed reference image.
	ReferenceImage string `json:"reference_image"`

	// CameraMatrix is the 3x3 intrinsic matrix, row major.
	CameraMatrix [][]float64 `json:"camera_matrix"`

	// DistCoeffs are the five distortion coefficients (k1,k2,p1,p2,k3).
	DistCoeffs []float64 `json:"dist_coeffs"`

	// Listen is the monitor server address. Defaults to DefaultListenAddr.
	Listen string `json:"listen,omitempty"`

	// Database is the session store path. Defaults to DefaultDatabase.
	Database string `json:"database,omitempty"`

	// ExportDir is where finished sessions are written as CSV, laid out
	// as export_dir/user/session. Defaults to DefaultExportDir.
	ExportDir string `json:"export_dir,omitempty"`

	// AOIFile optionally preloads AOI definitions at startup.
	AOIFile string `json:"aoi_file,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	Display DisplaySettings `json:"display"`
}

// DisplaySettings are the initial runtime-adjustable rendering options.
type DisplaySettings struct {
	GazePointSize    int       `json:"gaze_point_size,omitempty"`
	GazePointColor   []int     `json:"gaze_point_color,omitempty"` // BGR
	GazePointOpacity *float64  `json:"gaze_point_opacity,omitempty"`
	HeatmapEnabled   bool      `json:"heatmap_enabled,omitempty"`
	HeatmapOpacity   *float64  `json:"heatmap_opacity,omitempty"`
	HistorySize      int       `json:"history_size,omitempty"`
	SceneOverlay     bool      `json:"scene_overlay,omitempty"`
	SceneOpacity     *float64  `json:"scene_opacity,omitempty"`
	ShowFPS          *bool     `json:"show_fps,omitempty"`
}

// Load reads a settings JSON file and validates it.
// Fields omitted from the JSON keep their defaults, so partial files are safe
// as long as the required fields (endpoint, reference image, calibration) are
// present and well formed.
func Load(path string) (*Settings, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("settings file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("stat settings file: %w", err)
	}
	const maxFileSize = 1 << 20
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("settings file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}

	s := &Settings{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse settings JSON: %w", err)
	}
	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

func (s *Settings) applyDefaults() {
	if s.Listen == "" {
		s.Listen = DefaultListenAddr
	}
	if s.Database == "" {
		s.Database = DefaultDatabase
	}
	if s.ExportDir == "" {
		s.ExportDir = DefaultExportDir
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	// Environment overrides, highest precedence.
	if ep := os.Getenv("GAZEMAP_ENDPOINT"); ep != "" {
		s.Endpoint = ep
	}
	if addr := os.Getenv("GAZEMAP_LISTEN"); addr != "" {
		s.Listen = addr
	}
}

// Validate checks the activation preconditions: shape of the calibration,
// a reference image path and a transport endpoint. It does not touch the
// filesystem; the reference image is read when the engine is built.
func (s *Settings) Validate() error {
	if s.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if s.ReferenceImage == "" {
		return fmt.Errorf("reference_image is required")
	}
	if len(s.CameraMatrix) != 3 {
		return fmt.Errorf("camera_matrix must have 3 rows, got %d", len(s.CameraMatrix))
	}
	for i, row := range s.CameraMatrix {
		if len(row) != 3 {
			return fmt.Errorf("camera_matrix row %d must have 3 columns, got %d", i, len(row))
		}
	}
	if len(s.DistCoeffs) != 5 {
		return fmt.Errorf("dist_coeffs must have 5 elements, got %d", len(s.DistCoeffs))
	}
	if c := s.Display.GazePointColor; c != nil && len(c) != 3 {
		return fmt.Errorf("gaze_point_color must have 3 elements (BGR), got %d", len(c))
	}
	if s.Display.HistorySize < 0 {
		return fmt.Errorf("history_size must not be negative, got %d", s.Display.HistorySize)
	}
	return nil
}

// Matrix flattens the validated camera matrix into row-major form.
func (s *Settings) Matrix() [9]float64 {
	var m [9]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m[r*3+c] = s.CameraMatrix[r][c]
		}
	}
	return m
}

// Distortion returns the five distortion coefficients as a fixed array.
func (s *Settings) Distortion() [5]float64 {
	var d [5]float64
	copy(d[:], s.DistCoeffs)
	return d
}
