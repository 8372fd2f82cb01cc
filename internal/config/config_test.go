package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSettings(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	return path
}

const validSettings = `{
	"endpoint": "ws://127.0.0.1:5555/gaze",
	"reference_image": "testdata/ref.png",
	"camera_matrix": [[800, 0, 320], [0, 800, 240], [0, 0, 1]],
	"dist_coeffs": [0.1, -0.05, 0.001, 0.001, 0.01]
}`

func TestLoad_Valid(t *testing.T) {
	path := writeSettings(t, "settings.json", validSettings)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if s.Endpoint != "ws://127.0.0.1:5555/gaze" {
		t.Errorf("Endpoint: got %q", s.Endpoint)
	}
	if s.Listen != DefaultListenAddr {
		t.Errorf("Listen default: got %q, want %q", s.Listen, DefaultListenAddr)
	}
	if s.Database != DefaultDatabase {
		t.Errorf("Database default: got %q, want %q", s.Database, DefaultDatabase)
	}
	if s.ExportDir != DefaultExportDir {
		t.Errorf("ExportDir default: got %q, want %q", s.ExportDir, DefaultExportDir)
	}
	if s.LogLevel != "info" {
		t.Errorf("LogLevel default: got %q, want info", s.LogLevel)
	}
}

func TestLoad_RejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "missing endpoint",
			body: `{"reference_image": "r.png",
				"camera_matrix": [[1,0,0],[0,1,0],[0,0,1]],
				"dist_coeffs": [0,0,0,0,0]}`,
		},
		{
			name: "missing reference image",
			body: `{"endpoint": "ws://x",
				"camera_matrix": [[1,0,0],[0,1,0],[0,0,1]],
				"dist_coeffs": [0,0,0,0,0]}`,
		},
		{
			name: "camera matrix wrong rows",
			body: `{"endpoint": "ws://x", "reference_image": "r.png",
				"camera_matrix": [[1,0,0],[0,1,0]],
				"dist_coeffs": [0,0,0,0,0]}`,
		},
		{
			name: "camera matrix ragged row",
			body: `{"endpoint": "ws://x", "reference_image": "r.png",
				"camera_matrix": [[1,0,0],[0,1],[0,0,1]],
				"dist_coeffs": [0,0,0,0,0]}`,
		},
		{
			name: "four distortion coefficients",
			body: `{"endpoint": "ws://x", "reference_image": "r.png",
				"camera_matrix": [[1,0,0],[0,1,0],[0,0,1]],
				"dist_coeffs": [0,0,0,0]}`,
		},
		{
			name: "bad gaze color",
			body: `{"endpoint": "ws://x", "reference_image": "r.png",
				"camera_matrix": [[1,0,0],[0,1,0],[0,0,1]],
				"dist_coeffs": [0,0,0,0,0],
				"display": {"gaze_point_color": [255, 0]}}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeSettings(t, "settings.json", tc.body)
			if _, err := Load(path); err == nil {
				t.Error("Load: expected error, got nil")
			}
		})
	}
}

func TestLoad_RejectsNonJSONExtension(t *testing.T) {
	path := writeSettings(t, "settings.yaml", validSettings)
	if _, err := Load(path); err == nil {
		t.Error("Load: expected extension error, got nil")
	}
}

func TestSettings_MatrixFlattening(t *testing.T) {
	path := writeSettings(t, "settings.json", validSettings)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	m := s.Matrix()
	want := [9]float64{800, 0, 320, 0, 800, 240, 0, 0, 1}
	if m != want {
		t.Errorf("Matrix: got %v, want %v", m, want)
	}

	d := s.Distortion()
	wantD := [5]float64{0.1, -0.05, 0.001, 0.001, 0.01}
	if d != wantD {
		t.Errorf("Distortion: got %v, want %v", d, wantD)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GAZEMAP_ENDPOINT", "ws://override:9999")
	t.Setenv("GAZEMAP_LISTEN", ":7070")

	path := writeSettings(t, "settings.json", validSettings)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if s.Endpoint != "ws://override:9999" {
		t.Errorf("Endpoint override: got %q", s.Endpoint)
	}
	if s.Listen != ":7070" {
		t.Errorf("Listen override: got %q", s.Listen)
	}
}
