// Package report renders recorded gaze sessions as standalone HTML pages.
package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/iohnishijima/GazeMappingApplication/pkg/engine"
	"github.com/iohnishijima/GazeMappingApplication/pkg/protocol"
)

const pageTitle = "Gaze Session Report"

// Rows without a region land in this bucket.
const outsideLabel = "outside"

// Consecutive rows further apart than this are treated as a recording gap
// and excluded from dwell totals.
const maxDwellGap = time.Second

// Builder aggregates recorded rows into chart series. Feed every row of a
// session through Add, then Render the assembled page.
type Builder struct {
	subtitle string

	frames []string
	right  []opts.LineData
	left   []opts.LineData

	points     []opts.ScatterData
	xMin, xMax float64
	yMin, yMax float64
	maxFrame   int64

	order   []string
	samples map[string]int
	dwell   map[string]float64

	lastAOI  string
	lastTime time.Time
	lastOK   bool
}

// NewBuilder returns an empty builder. The subtitle line, typically
// "user=... session=...", is repeated under every chart title.
func NewBuilder(subtitle string) *Builder {
	return &Builder{
		subtitle: subtitle,
		samples:  make(map[string]int),
		dwell:    make(map[string]float64),
	}
}

// Add folds one recorded row into the report series. Rows must arrive in
// frame order for the dwell estimate to mean anything.
func (b *Builder) Add(rec engine.Record) {
	label := rec.AOI
	if label == "" {
		label = outsideLabel
	}
	if _, seen := b.samples[label]; !seen {
		b.order = append(b.order, label)
	}
	b.samples[label]++

	b.frames = append(b.frames, strconv.FormatInt(rec.Frame, 10))
	b.right = append(b.right, opts.LineData{Value: rec.ScoreRight})
	b.left = append(b.left, opts.LineData{Value: rec.ScoreLeft})

	if len(b.points) == 0 {
		b.xMin, b.xMax = rec.GazeX, rec.GazeX
		b.yMin, b.yMax = rec.GazeY, rec.GazeY
	} else {
		b.xMin = math.Min(b.xMin, rec.GazeX)
		b.xMax = math.Max(b.xMax, rec.GazeX)
		b.yMin = math.Min(b.yMin, rec.GazeY)
		b.yMax = math.Max(b.yMax, rec.GazeY)
	}
	b.points = append(b.points, opts.ScatterData{Value: []interface{}{rec.GazeX, rec.GazeY, rec.Frame}})
	if rec.Frame > b.maxFrame {
		b.maxFrame = rec.Frame
	}

	// Dwell accrues only between adjacent rows that share a label and both
	// carry a parseable clock.
	ts, ok := protocol.ParseSystemTime(rec.SystemTime)
	if ok && b.lastOK && label == b.lastAOI {
		if d := ts.Sub(b.lastTime); d > 0 && d <= maxDwellGap {
			b.dwell[label] += d.Seconds()
		}
	}
	b.lastAOI, b.lastTime, b.lastOK = label, ts, ok
}

// Rows reports how many rows have been added.
func (b *Builder) Rows() int {
	return len(b.frames)
}

// Render writes the assembled report page as HTML.
func (b *Builder) Render(w io.Writer) error {
	page := components.NewPage()
	page.AddCharts(b.scoreChart(), b.scanpathChart(), b.sampleChart(), b.dwellChart())
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// WriteFile renders the report into a file at path.
func (b *Builder) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := b.Render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (b *Builder) scoreChart() *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: pageTitle, Theme: "dark", Width: "1200px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Eye Scores", Subtitle: fmt.Sprintf("%s rows=%d", b.subtitle, len(b.frames))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame", NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Name: "score", Min: 0, Max: 1}),
	)
	line.SetXAxis(b.frames).
		AddSeries("score right", b.right,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#4fc3f7"})).
		AddSeries("score left", b.left,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ff8a65"}))
	return line
}

func (b *Builder) scanpathChart() *charts.Scatter {
	// Pad the plane a little so edge samples stay visible.
	xLo, xHi := pad(b.xMin, b.xMax)
	yLo, yHi := pad(b.yMin, b.yMax)

	maxFrame := b.maxFrame
	if maxFrame == 0 {
		maxFrame = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: pageTitle, Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Gaze Scanpath", Subtitle: fmt.Sprintf("%s points=%d", b.subtitle, len(b.points))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: xLo, Max: xHi, Name: "x (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: yLo, Max: yHi, Name: "y (px)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxFrame),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}},
		}),
	)
	scatter.AddSeries("scanpath", b.points, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	return scatter
}

func (b *Builder) sampleChart() *charts.Bar {
	y := make([]opts.BarData, len(b.order))
	for i, name := range b.order {
		y[i] = opts.BarData{Value: b.samples[name]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: pageTitle, Theme: "dark", Width: "1200px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Region Samples", Subtitle: b.subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(b.order).
		AddSeries("samples", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

func (b *Builder) dwellChart() *charts.Bar {
	y := make([]opts.BarData, len(b.order))
	for i, name := range b.order {
		y[i] = opts.BarData{Value: math.Round(b.dwell[name]*100) / 100}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: pageTitle, Theme: "dark", Width: "1200px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Region Dwell (s)", Subtitle: b.subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(b.order).
		AddSeries("dwell", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

func pad(lo, hi float64) (float64, float64) {
	if hi <= lo {
		return lo - 1, hi + 1
	}
	m := (hi - lo) * 0.05
	return lo - m, hi + m
}
