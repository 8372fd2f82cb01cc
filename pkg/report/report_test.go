package report

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iohnishijima/GazeMappingApplication/pkg/engine"
	"github.com/iohnishijima/GazeMappingApplication/pkg/protocol"
)

var clockBase = time.Date(2024, time.May, 1, 12, 30, 15, 0, time.Local)

func clock(offset time.Duration) string {
	return protocol.FormatSystemTime(clockBase.Add(offset))
}

func testRecord(frame int64, aoi, systemTime string) engine.Record {
	return engine.Record{
		Frame:      frame,
		PicNum:     frame + 9,
		GazeX:      100 + float64(frame)*10,
		GazeY:      80 + float64(frame)*5,
		AOI:        aoi,
		ScoreRight: 0.9,
		ScoreLeft:  0.8,
		SystemTime: systemTime,
	}
}

func TestBuilderTallies(t *testing.T) {
	b := NewBuilder("user=alice session=trial-1")
	b.Add(testRecord(1, "center", clock(0)))
	b.Add(testRecord(2, "center", clock(100*time.Millisecond)))
	b.Add(testRecord(3, "", clock(200*time.Millisecond)))
	b.Add(testRecord(4, "center", clock(300*time.Millisecond)))

	if got := b.Rows(); got != 4 {
		t.Errorf("Rows() = %d, want 4", got)
	}
	if got := b.samples["center"]; got != 3 {
		t.Errorf("samples[center] = %d, want 3", got)
	}
	if got := b.samples[outsideLabel]; got != 1 {
		t.Errorf("samples[outside] = %d, want 1", got)
	}
	if len(b.order) != 2 || b.order[0] != "center" || b.order[1] != outsideLabel {
		t.Errorf("order = %v, want [center outside]", b.order)
	}

	// Only the 1->2 pair shares a label, 100ms apart.
	if got := b.dwell["center"]; math.Abs(got-0.1) > 1e-9 {
		t.Errorf("dwell[center] = %v, want 0.1", got)
	}
	if got := b.dwell[outsideLabel]; got != 0 {
		t.Errorf("dwell[outside] = %v, want 0", got)
	}
}

func TestBuilderDwellGaps(t *testing.T) {
	tests := []struct {
		name   string
		first  engine.Record
		second engine.Record
		want   float64
	}{
		{
			name:   "within gap",
			first:  testRecord(1, "center", clock(0)),
			second: testRecord(2, "center", clock(500*time.Millisecond)),
			want:   0.5,
		},
		{
			name:   "beyond gap",
			first:  testRecord(1, "center", clock(0)),
			second: testRecord(2, "center", clock(2*time.Second)),
			want:   0,
		},
		{
			name:   "label change",
			first:  testRecord(1, "left", clock(0)),
			second: testRecord(2, "center", clock(100*time.Millisecond)),
			want:   0,
		},
		{
			name:   "clock going backwards",
			first:  testRecord(1, "center", clock(time.Second)),
			second: testRecord(2, "center", clock(0)),
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder("test")
			b.Add(tt.first)
			b.Add(tt.second)
			if got := b.dwell["center"]; math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("dwell[center] = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuilderDwellBadClock(t *testing.T) {
	b := NewBuilder("test")
	b.Add(testRecord(1, "center", clock(0)))
	b.Add(testRecord(2, "center", "not-a-clock"))
	b.Add(testRecord(3, "center", clock(200*time.Millisecond)))

	// The broken clock severs both adjacent pairs.
	if got := b.dwell["center"]; got != 0 {
		t.Errorf("dwell[center] = %v, want 0", got)
	}
}

func TestRenderContainsSeries(t *testing.T) {
	b := NewBuilder("user=alice session=trial-1")
	for i := int64(1); i <= 5; i++ {
		b.Add(testRecord(i, "center", clock(time.Duration(i)*100*time.Millisecond)))
	}
	b.Add(testRecord(6, "", clock(600*time.Millisecond)))

	var buf bytes.Buffer
	if err := b.Render(&buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	html := buf.String()
	for _, want := range []string{
		"Eye Scores",
		"score right",
		"score left",
		"Gaze Scanpath",
		"scanpath",
		"Region Samples",
		"Region Dwell (s)",
		"outside",
		"user=alice session=trial-1",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered page missing %q", want)
		}
	}
}

func TestRenderEmpty(t *testing.T) {
	b := NewBuilder("empty")

	var buf bytes.Buffer
	if err := b.Render(&buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if buf.Len() == 0 {
		t.Error("rendered page is empty")
	}
}

func TestWriteFile(t *testing.T) {
	b := NewBuilder("test")
	b.Add(testRecord(1, "center", clock(0)))

	path := filepath.Join(t.TempDir(), "report.html")
	if err := b.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "echarts") {
		t.Error("report file does not reference echarts assets")
	}
}
