package heatmap

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// blurSigma is the Gaussian spread of each gaze point in pixels.
const blurSigma = 15.0

// Accumulator owns the gaze history and renders it onto frames.
type Accumulator struct {
	history *History
}

// NewAccumulator creates an accumulator retaining up to capacity points.
func NewAccumulator(capacity int) *Accumulator {
	return &Accumulator{history: NewHistory(capacity)}
}

// Push records a projected gaze point.
func (a *Accumulator) Push(p Point) {
	a.history.Push(p)
}

// Resize changes the history capacity, keeping the most recent points.
func (a *Accumulator) Resize(capacity int) {
	a.history.SetCapacity(capacity)
}

// Len returns how many points are retained.
func (a *Accumulator) Len() int {
	return a.history.Len()
}

// Capacity returns the retention limit.
func (a *Accumulator) Capacity() int {
	return a.history.Capacity()
}

// Points returns the retained points, oldest first.
func (a *Accumulator) Points() []Point {
	return a.history.Points()
}

// Render composites the density field onto dst. Each point is stamped as a
// filled disc of the given radius, blurred, normalized to full range,
// colorized, then blended per pixel: stronger density shows more color, up
// to opacity at the hottest spot. A dst with no points is left untouched.
func (a *Accumulator) Render(dst *gocv.Mat, radius int, opacity float64) {
	pts := a.history.Points()
	if len(pts) == 0 || opacity <= 0 || radius < 1 {
		return
	}

	rows, cols := dst.Rows(), dst.Cols()

	// Density field: unit discs, blurred and stretched to 0..255.
	field := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32F)
	defer field.Close()
	for _, p := range pts {
		gocv.Circle(&field, image.Pt(p.X, p.Y), radius, color.RGBA{B: 1}, -1)
	}
	gocv.GaussianBlur(field, &field, image.Pt(0, 0), blurSigma, blurSigma, gocv.BorderDefault)
	gocv.Normalize(field, &field, 0, 255, gocv.NormMinMax)

	field8 := gocv.NewMat()
	defer field8.Close()
	field.ConvertTo(&field8, gocv.MatTypeCV8U)

	colored := gocv.NewMat()
	defer colored.Close()
	gocv.ApplyColorMap(field8, &colored, gocv.ColormapJet)

	// Per-pixel alpha from the density, scaled by the overall opacity.
	alpha := field.Clone()
	defer alpha.Close()
	alpha.MultiplyFloat(float32(opacity / 255.0))

	alpha3 := gocv.NewMat()
	defer alpha3.Close()
	gocv.Merge([]gocv.Mat{alpha, alpha, alpha}, &alpha3)

	inv := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(1, 1, 1, 0), rows, cols, gocv.MatTypeCV32FC3)
	defer inv.Close()
	gocv.Subtract(inv, alpha3, &inv)

	baseF := gocv.NewMat()
	defer baseF.Close()
	dst.ConvertTo(&baseF, gocv.MatTypeCV32F)
	baseF.MultiplyFloat(1.0 / 255.0)

	colorF := gocv.NewMat()
	defer colorF.Close()
	colored.ConvertTo(&colorF, gocv.MatTypeCV32F)
	colorF.MultiplyFloat(1.0 / 255.0)

	gocv.Multiply(baseF, inv, &baseF)
	gocv.Multiply(colorF, alpha3, &colorF)
	gocv.Add(baseF, colorF, &baseF)

	baseF.MultiplyFloat(255.0)
	baseF.ConvertTo(dst, gocv.MatTypeCV8U)
}
