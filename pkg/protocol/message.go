// Package protocol defines the wire format of the gaze stream.
// Each message carries one scene-camera frame together with the gaze sample
// and eye scores captured for it; the image travels base64-encoded inside
// the JSON body.
package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
)

// GazePacket is one inbound message from the eye tracker.
//
// GazeX/GazeY are normalized to the frame size and expected in [0,1], but
// the tracker does not enforce that: lost tracking shows up as missing or
// out-of-range values. Use GazeValid before trusting them.
type GazePacket struct {
	// Frame is the source sequence number assigned by the tracker.
	Frame int64 `json:"frame"`

	GazeX *float64 `json:"gaze_x"`
	GazeY *float64 `json:"gaze_y"`

	// Image holds the compressed frame (JPEG or PNG bytes), base64 encoded.
	Image string `json:"image"`

	ScoreRight float64 `json:"score_right,omitempty"`
	ScoreLeft  float64 `json:"score_left,omitempty"`

	// SystemTime is the tracker clock, formatted YYYY:MM:DD:HH:MM:SS:MS.
	SystemTime string `json:"system_time,omitempty"`
}

// ParsePacket parses a JSON gaze packet from bytes.
func ParsePacket(data []byte) (*GazePacket, error) {
	var p GazePacket
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse gaze packet: %w", err)
	}
	return &p, nil
}

// DecodeImage decodes the base64 payload into compressed image bytes.
func (p *GazePacket) DecodeImage() ([]byte, error) {
	if p.Image == "" {
		return nil, fmt.Errorf("gaze packet has no image payload")
	}
	raw, err := base64.StdEncoding.DecodeString(p.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image payload: %w", err)
	}
	return raw, nil
}

// GazeValid reports whether the packet carries a usable gaze sample:
// both coordinates present, finite and inside the normalized [0,1] range.
func (p *GazePacket) GazeValid() bool {
	if p.GazeX == nil || p.GazeY == nil {
		return false
	}
	x, y := *p.GazeX, *p.GazeY
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return false
	}
	return x >= 0 && x <= 1 && y >= 0 && y <= 1
}

// Gaze returns the normalized gaze sample, zero-valued when absent.
// Only meaningful when GazeValid reports true.
func (p *GazePacket) Gaze() (x, y float64) {
	if p.GazeX != nil {
		x = *p.GazeX
	}
	if p.GazeY != nil {
		y = *p.GazeY
	}
	return x, y
}

// NewGazePacket builds a packet from raw image bytes, encoding the payload.
// The production producer is the external tracker; this is for stream
// simulators and tests.
func NewGazePacket(frame int64, gazeX, gazeY float64, image []byte) *GazePacket {
	return &GazePacket{
		Frame: frame,
		GazeX: &gazeX,
		GazeY: &gazeY,
		Image: base64.StdEncoding.EncodeToString(image),
	}
}

// Bytes returns the JSON-encoded packet.
func (p *GazePacket) Bytes() ([]byte, error) {
	return json.Marshal(p)
}
