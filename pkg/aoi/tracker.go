package aoi

import "time"

// Tracker owns the AOI list and advances every region's state machine once
// per processed frame. It is owned by the processing loop and is not safe
// for concurrent use.
type Tracker struct {
	aois []*AOI
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Add appends a new region and returns it.
func (t *Tracker) Add(name string, r Rect) *AOI {
	a := New(name, r)
	t.aois = append(t.aois, a)
	return a
}

// Replace swaps in a new AOI list, dropping all previous regions and their
// counters.
func (t *Tracker) Replace(aois []*AOI) {
	t.aois = aois
}

// List returns the regions in definition order. The slice is shared; do not
// mutate it.
func (t *Tracker) List() []*AOI {
	return t.aois
}

// Update evaluates every region against the projected gaze point and
// returns the active region name. Overlapping regions each keep their own
// state; the name reported for the tick is the last-defined region that
// contains the point, empty when none does.
func (t *Tracker) Update(x, y float64, now time.Time) string {
	active := ""
	for _, a := range t.aois {
		if a.update(x, y, now) {
			active = a.Name
		}
	}
	return active
}

// Reset zeroes hit counts and dwell times for all regions. Names and
// rectangles are untouched.
func (t *Tracker) Reset() {
	for _, a := range t.aois {
		a.reset()
	}
}

// Stat is a point-in-time view of one region for stats consumers.
type Stat struct {
	Name         string  `json:"name"`
	Rect         Rect    `json:"rect"`
	HitCount     int     `json:"hit_count"`
	DwellSeconds float64 `json:"dwell_seconds"`
	Inside       bool    `json:"inside"`
}

// Snapshot captures all regions, with dwell measured against now so a visit
// in progress is included.
func (t *Tracker) Snapshot(now time.Time) []Stat {
	stats := make([]Stat, 0, len(t.aois))
	for _, a := range t.aois {
		stats = append(stats, Stat{
			Name:         a.Name,
			Rect:         a.Rect,
			HitCount:     a.hitCount,
			DwellSeconds: a.Dwell(now).Seconds(),
			Inside:       a.inside,
		})
	}
	return stats
}
