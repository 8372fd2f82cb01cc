// Package aoi tracks gaze presence inside user-defined regions of the
// reference image. Each AOI is a named rectangle with a hit counter and
// accumulated dwell time; a Tracker updates all of them once per processed
// frame.
package aoi

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Rect is an axis-aligned rectangle in reference-image pixel coordinates.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether the point lies inside the rectangle, edges
// included. Empty rectangles contain nothing.
func (r Rect) Contains(x, y float64) bool {
	if r.Width <= 0 || r.Height <= 0 {
		return false
	}
	return x >= r.Left && x <= r.Left+r.Width && y >= r.Top && y <= r.Top+r.Height
}

// AOI is one tracked region. Name and Rect are fixed at creation; the
// counters mutate as gaze moves.
type AOI struct {
	Name string
	Rect Rect

	hitCount int
	dwell    time.Duration
	inside   bool
	entered  time.Time
}

// New creates an AOI with zeroed counters.
func New(name string, r Rect) *AOI {
	return &AOI{Name: name, Rect: r}
}

// update advances the membership state machine by one tick and reports
// whether the point is inside.
func (a *AOI) update(x, y float64, now time.Time) bool {
	inside := a.Rect.Contains(x, y)
	if inside {
		if !a.inside {
			a.hitCount++
			a.entered = now
		}
		a.inside = true
		return true
	}

	if a.inside && !a.entered.IsZero() {
		// Dwell is monotonic even if the source clock steps backwards.
		if d := now.Sub(a.entered); d > 0 {
			a.dwell += d
		}
		a.entered = time.Time{}
	}
	a.inside = false
	return false
}

// HitCount returns how many times gaze has entered the region.
func (a *AOI) HitCount() int {
	return a.hitCount
}

// Inside reports whether gaze was inside the region at the last update.
func (a *AOI) Inside() bool {
	return a.inside
}

// Dwell returns the accumulated dwell time including the still-open visit,
// measured against now.
func (a *AOI) Dwell(now time.Time) time.Duration {
	d := a.dwell
	if a.inside && !a.entered.IsZero() {
		if open := now.Sub(a.entered); open > 0 {
			d += open
		}
	}
	return d
}

// reset zeroes the counters. The membership flag survives so a visit in
// progress is simply forgotten rather than double counted.
func (a *AOI) reset() {
	a.hitCount = 0
	a.dwell = 0
	a.entered = time.Time{}
}

// definition is the persistence schema: {"name": ..., "rect": [l, t, w, h]}.
type definition struct {
	Name string    `json:"name"`
	Rect []float64 `json:"rect"`
}

// Marshal renders AOI definitions in the persistence schema, counters
// excluded.
func Marshal(aois []*AOI) ([]byte, error) {
	defs := make([]definition, 0, len(aois))
	for _, a := range aois {
		defs = append(defs, definition{
			Name: a.Name,
			Rect: []float64{a.Rect.Left, a.Rect.Top, a.Rect.Width, a.Rect.Height},
		})
	}
	return json.MarshalIndent(defs, "", "  ")
}

// Unmarshal parses AOI definitions, returning fresh AOIs with zeroed
// counters in definition order.
func Unmarshal(data []byte) ([]*AOI, error) {
	var defs []definition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("failed to parse aoi definitions: %w", err)
	}

	out := make([]*AOI, 0, len(defs))
	for _, d := range defs {
		if len(d.Rect) != 4 {
			return nil, fmt.Errorf("aoi %q: rect must have 4 elements, got %d", d.Name, len(d.Rect))
		}
		out = append(out, New(d.Name, Rect{
			Left:   d.Rect[0],
			Top:    d.Rect[1],
			Width:  d.Rect[2],
			Height: d.Rect[3],
		}))
	}
	return out, nil
}

// LoadFile reads AOI definitions from a JSON file.
func LoadFile(path string) ([]*AOI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read aoi file: %w", err)
	}
	return Unmarshal(data)
}

// SaveFile writes AOI definitions to a JSON file.
func SaveFile(path string, aois []*AOI) error {
	data, err := Marshal(aois)
	if err != nil {
		return fmt.Errorf("failed to encode aoi definitions: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write aoi file: %w", err)
	}
	return nil
}
