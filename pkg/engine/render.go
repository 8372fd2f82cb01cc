package engine

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/iohnishijima/GazeMappingApplication/pkg/aoi"
	"github.com/iohnishijima/GazeMappingApplication/pkg/registration"
)

var (
	regionActive = color.RGBA{R: 255}
	regionIdle   = color.RGBA{G: 255}
	previewColor = color.RGBA{B: 255}
	fpsColor     = color.RGBA{R: 255, G: 255, B: 255}
)

// compose renders the display composite for one registered frame: reference
// image, optional warped scene, optional heatmap, gaze marker, region boxes
// and the FPS readout. The caller owns the returned Mat.
func (p *Processor) compose(und gocv.Mat, pose *registration.Pose, gx, gy float64, opts Options) gocv.Mat {
	base := p.reg.Reference().Image().Clone()

	if opts.OverlayScene {
		warped := gocv.NewMat()
		gocv.WarpPerspective(und, &warped, pose.Homography, image.Pt(base.Cols(), base.Rows()))
		gocv.AddWeighted(warped, opts.SceneOpacity, base, 1-opts.SceneOpacity, 0, &base)
		warped.Close()
	}

	if opts.HeatmapEnabled {
		p.heat.Render(&base, opts.GazePointSize, opts.HeatmapOpacity)
	}

	// The marker goes on a throwaway copy so its opacity blends it over
	// whatever is underneath.
	overlay := base.Clone()
	gocv.Circle(&overlay, image.Pt(int(gx), int(gy)), opts.GazePointSize, bgr(opts.GazeColor), -1)
	gocv.AddWeighted(overlay, opts.GazeOpacity, base, 1-opts.GazeOpacity, 0, &base)
	overlay.Close()

	p.drawRegions(&base)

	if opts.ShowFPS {
		gocv.PutText(&base, fmt.Sprintf("FPS: %.2f", p.fps), image.Pt(10, 30),
			gocv.FontHersheySimplex, 1, fpsColor, 2)
	}

	return base
}

// drawRegions outlines every region and labels it with its hit count. The
// label sits just above the box, or below it when the box touches the top
// edge. Red marks the region the gaze is currently inside.
func (p *Processor) drawRegions(dst *gocv.Mat) {
	for _, a := range p.tracker.List() {
		box := pixelRect(a.Rect)
		col := regionIdle
		if a.Inside() {
			col = regionActive
		}
		gocv.Rectangle(dst, box, col, 1)

		name := a.Name
		if name == "" {
			name = "unnamed"
		}
		label := fmt.Sprintf("%s: %d", name, a.HitCount())
		at := image.Pt(box.Min.X, box.Min.Y-5)
		if at.Y < 0 {
			sz := gocv.GetTextSize(label, gocv.FontHersheySimplex, 0.6, 1)
			at.Y = box.Max.Y + sz.Y + 5
		}
		gocv.PutText(dst, label, at, gocv.FontHersheySimplex, 0.6, col, 1)
	}
}

// Preview renders the last composite with a candidate region outlined, for
// sizing a region against live content. Nothing is reprocessed and no
// counters move.
func (p *Processor) Preview(r aoi.Rect) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lastBase.Empty() {
		return nil, errors.New("no composite rendered yet")
	}
	img := p.lastBase.Clone()
	defer img.Close()

	gocv.Rectangle(&img, pixelRect(r), previewColor, 1)
	return encodeJPEG(img)
}

func pixelRect(r aoi.Rect) image.Rectangle {
	return image.Rect(int(r.Left), int(r.Top), int(r.Left+r.Width), int(r.Top+r.Height))
}

// bgr converts a BGR triple into the color type gocv draws with.
func bgr(c [3]int) color.RGBA {
	return color.RGBA{B: uint8(c[0]), G: uint8(c[1]), R: uint8(c[2])}
}

func encodeJPEG(img gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode composite: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}
