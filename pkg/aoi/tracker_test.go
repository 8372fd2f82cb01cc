package aoi

import (
	"math"
	"testing"
	"time"
)

func TestRectContains(t *testing.T) {
	r := Rect{Left: 10, Top: 20, Width: 100, Height: 50}

	tests := []struct {
		name string
		x, y float64
		want bool
	}{
		{name: "center", x: 60, y: 45, want: true},
		{name: "top left corner", x: 10, y: 20, want: true},
		{name: "bottom right corner", x: 110, y: 70, want: true},
		{name: "left of rect", x: 9.9, y: 45, want: false},
		{name: "below rect", x: 60, y: 70.1, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Contains(tt.x, tt.y); got != tt.want {
				t.Errorf("Contains(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestRectContainsEmpty(t *testing.T) {
	empty := Rect{Left: 10, Top: 10, Width: 0, Height: 5}
	if empty.Contains(10, 12) {
		t.Error("empty rect Contains() = true, want false")
	}
}

func TestTrackerEnterExitCycle(t *testing.T) {
	tr := NewTracker()
	a := tr.Add("screen", Rect{Left: 0, Top: 0, Width: 100, Height: 100})

	base := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.Local)

	// Outside -> Inside -> Inside -> Outside. Exactly one hit; dwell equals
	// exit minus entry no matter how many inside ticks happened.
	tr.Update(500, 500, base)
	tr.Update(50, 50, base.Add(100*time.Millisecond))
	tr.Update(60, 60, base.Add(200*time.Millisecond))
	tr.Update(500, 500, base.Add(350*time.Millisecond))

	if got := a.HitCount(); got != 1 {
		t.Errorf("HitCount() = %v, want 1", got)
	}
	want := 250 * time.Millisecond
	if got := a.Dwell(base.Add(time.Second)); got != want {
		t.Errorf("Dwell() = %v, want %v", got, want)
	}
	if a.Inside() {
		t.Error("Inside() = true after exit, want false")
	}
}

func TestTrackerOpenVisitDwell(t *testing.T) {
	tr := NewTracker()
	a := tr.Add("screen", Rect{Left: 0, Top: 0, Width: 100, Height: 100})

	base := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.Local)
	tr.Update(50, 50, base)

	// Visit still open: dwell is measured against the query time.
	got := a.Dwell(base.Add(2 * time.Second))
	if got != 2*time.Second {
		t.Errorf("Dwell() during open visit = %v, want 2s", got)
	}
}

func TestTrackerOverlapLastDefinedWins(t *testing.T) {
	tr := NewTracker()
	outer := tr.Add("outer", Rect{Left: 0, Top: 0, Width: 200, Height: 200})
	inner := tr.Add("inner", Rect{Left: 50, Top: 50, Width: 50, Height: 50})

	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.Local)

	if got := tr.Update(60, 60, now); got != "inner" {
		t.Errorf("Update() active = %q, want %q", got, "inner")
	}
	// Both regions keep independent state.
	if outer.HitCount() != 1 || inner.HitCount() != 1 {
		t.Errorf("hit counts = (%v, %v), want (1, 1)", outer.HitCount(), inner.HitCount())
	}

	// Point inside only the outer region.
	if got := tr.Update(10, 10, now.Add(time.Second)); got != "outer" {
		t.Errorf("Update() active = %q, want %q", got, "outer")
	}
	if inner.Inside() {
		t.Error("inner.Inside() = true, want false")
	}
}

func TestTrackerUpdateNoRegionsActive(t *testing.T) {
	tr := NewTracker()
	tr.Add("screen", Rect{Left: 0, Top: 0, Width: 10, Height: 10})

	now := time.Now()
	if got := tr.Update(500, 500, now); got != "" {
		t.Errorf("Update() active = %q, want empty", got)
	}
}

func TestTrackerReset(t *testing.T) {
	tr := NewTracker()
	a := tr.Add("screen", Rect{Left: 0, Top: 0, Width: 100, Height: 100})

	base := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.Local)
	tr.Update(50, 50, base)
	tr.Update(500, 500, base.Add(time.Second))
	tr.Update(50, 50, base.Add(2*time.Second))

	tr.Reset()

	if got := a.HitCount(); got != 0 {
		t.Errorf("HitCount() after reset = %v, want 0", got)
	}
	if got := a.Dwell(base.Add(10 * time.Second)); got != 0 {
		t.Errorf("Dwell() after reset = %v, want 0", got)
	}
	if a.Name != "screen" || a.Rect.Width != 100 {
		t.Error("reset altered name or rect")
	}

	// The visit open at reset time is forgotten: staying inside adds no new
	// hit, and the next full cycle counts from one again.
	tr.Update(60, 60, base.Add(3*time.Second))
	if got := a.HitCount(); got != 0 {
		t.Errorf("HitCount() while still inside after reset = %v, want 0", got)
	}
	tr.Update(500, 500, base.Add(4*time.Second))
	tr.Update(50, 50, base.Add(5*time.Second))
	if got := a.HitCount(); got != 1 {
		t.Errorf("HitCount() after re-entry = %v, want 1", got)
	}
}

func TestTrackerDwellMonotonicOnClockStep(t *testing.T) {
	tr := NewTracker()
	a := tr.Add("screen", Rect{Left: 0, Top: 0, Width: 100, Height: 100})

	base := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.Local)
	tr.Update(50, 50, base)
	// Source clock steps backwards before the exit tick.
	tr.Update(500, 500, base.Add(-time.Second))

	if got := a.Dwell(base); got != 0 {
		t.Errorf("Dwell() after backwards clock = %v, want 0", got)
	}
}

func TestSnapshot(t *testing.T) {
	tr := NewTracker()
	tr.Add("left", Rect{Left: 0, Top: 0, Width: 50, Height: 50})
	tr.Add("right", Rect{Left: 100, Top: 0, Width: 50, Height: 50})

	base := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.Local)
	tr.Update(25, 25, base)

	stats := tr.Snapshot(base.Add(500 * time.Millisecond))
	if len(stats) != 2 {
		t.Fatalf("len(Snapshot()) = %v, want 2", len(stats))
	}
	if stats[0].Name != "left" || !stats[0].Inside || stats[0].HitCount != 1 {
		t.Errorf("stats[0] = %+v, want inside left with 1 hit", stats[0])
	}
	if math.Abs(stats[0].DwellSeconds-0.5) > 1e-9 {
		t.Errorf("stats[0].DwellSeconds = %v, want 0.5", stats[0].DwellSeconds)
	}
	if stats[1].Inside || stats[1].HitCount != 0 {
		t.Errorf("stats[1] = %+v, want untouched right region", stats[1])
	}
}

func TestDefinitionRoundTrip(t *testing.T) {
	in := []*AOI{
		New("screen", Rect{Left: 10.5, Top: 20, Width: 300, Height: 200}),
		New("", Rect{Left: 0, Top: 0, Width: 50, Height: 50}),
	}

	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	out, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if len(out) != 2 {
		t.Fatalf("len(out) = %v, want 2", len(out))
	}
	if out[0].Name != "screen" || out[0].Rect != in[0].Rect {
		t.Errorf("out[0] = %v %+v, want %v %+v", out[0].Name, out[0].Rect, in[0].Name, in[0].Rect)
	}
	if out[1].Name != "" {
		t.Errorf("out[1].Name = %q, want empty", out[1].Name)
	}
	// Counters never round-trip.
	if out[0].HitCount() != 0 {
		t.Errorf("out[0].HitCount() = %v, want 0", out[0].HitCount())
	}
}

func TestUnmarshalRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: "nope"},
		{name: "rect too short", data: `[{"name":"a","rect":[1,2,3]}]`},
		{name: "rect wrong type", data: `[{"name":"a","rect":"big"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Unmarshal([]byte(tt.data)); err == nil {
				t.Error("Unmarshal() error = nil, want error")
			}
		})
	}
}

func TestSaveLoadFile(t *testing.T) {
	path := t.TempDir() + "/regions.aoi"

	in := []*AOI{New("screen", Rect{Left: 1, Top: 2, Width: 3, Height: 4})}
	if err := SaveFile(path, in); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}

	out, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(out) != 1 || out[0].Name != "screen" || out[0].Rect != in[0].Rect {
		t.Errorf("LoadFile() = %+v, want round-tripped input", out)
	}
}
