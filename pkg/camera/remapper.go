package camera

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Remapper undistorts frames and gaze points using cached rectification
// maps. Computing the maps is expensive, so they are rebuilt only when the
// incoming frame size changes; at a steady frame size every tick reuses
// them.
//
// Not safe for concurrent use; the processing loop owns it.
type Remapper struct {
	calib Calibration

	size   image.Point
	mapX   gocv.Mat
	mapY   gocv.Mat
	newCam gocv.Mat
	roi    image.Rectangle

	ready      bool
	recomputes uint64
}

// NewRemapper creates a remapper for the given calibration. Maps are built
// lazily on the first frame.
func NewRemapper(calib Calibration) *Remapper {
	return &Remapper{calib: calib}
}

// Ensure makes the cached maps valid for the given frame size, rebuilding
// them if the size changed since the last call.
func (r *Remapper) Ensure(size image.Point) error {
	if size.X <= 0 || size.Y <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", size.X, size.Y)
	}
	if r.ready && size == r.size {
		return nil
	}
	return r.recompute(size)
}

func (r *Remapper) recompute(size image.Point) error {
	camera := r.calib.cameraMat()
	defer camera.Close()
	dist := r.calib.distMat()
	defer dist.Close()

	// alpha 0 keeps only valid pixels, principal point recentered.
	newCam, roi := gocv.GetOptimalNewCameraMatrixWithParams(camera, dist, size, 0, size, true)
	if newCam.Empty() {
		return fmt.Errorf("failed to compute optimal camera matrix for %dx%d", size.X, size.Y)
	}

	// Fixed-point maps keep remap fast and the tables compact.
	mapX := gocv.NewMat()
	mapY := gocv.NewMat()
	noRect := gocv.NewMat()
	defer noRect.Close()
	gocv.InitUndistortRectifyMap(camera, dist, noRect, newCam, size, int(gocv.MatTypeCV16SC2), mapX, mapY)

	r.drop()
	r.size = size
	r.mapX = mapX
	r.mapY = mapY
	r.newCam = newCam
	r.roi = roi
	r.ready = true
	r.recomputes++
	return nil
}

// Undistort remaps src through the cached maps and crops to the valid-pixel
// region. The returned Mat is owned by the caller.
func (r *Remapper) Undistort(src gocv.Mat) (gocv.Mat, error) {
	if err := r.Ensure(image.Pt(src.Cols(), src.Rows())); err != nil {
		return gocv.Mat{}, err
	}

	full := gocv.NewMat()
	defer full.Close()
	gocv.Remap(src, &full, r.mapX, r.mapY, gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{})

	roi := r.roi
	if roi.Empty() {
		return full.Clone(), nil
	}
	view := full.Region(roi)
	defer view.Close()
	return view.Clone(), nil
}

// UndistortPoint maps a pixel coordinate from the raw frame into the
// undistorted, ROI-cropped frame. Ensure must have run for the frame size
// the coordinate belongs to.
func (r *Remapper) UndistortPoint(x, y float64) (float64, float64, error) {
	if !r.ready {
		return 0, 0, fmt.Errorf("undistortion maps not initialized")
	}

	src := gocv.NewMatWithSize(1, 1, gocv.MatTypeCV64FC2)
	defer src.Close()
	src.SetDoubleAt(0, 0, x)
	src.SetDoubleAt(0, 1, y)

	dst := gocv.NewMat()
	defer dst.Close()

	camera := r.calib.cameraMat()
	defer camera.Close()
	dist := r.calib.distMat()
	defer dist.Close()
	noRect := gocv.NewMat()
	defer noRect.Close()

	gocv.UndistortPoints(src, &dst, camera, dist, noRect, r.newCam)

	ux := dst.GetDoubleAt(0, 0) - float64(r.roi.Min.X)
	uy := dst.GetDoubleAt(0, 1) - float64(r.roi.Min.Y)
	return ux, uy, nil
}

// ROI returns the valid-pixel region of the current maps.
func (r *Remapper) ROI() image.Rectangle {
	return r.roi
}

// Recomputes returns how many times the maps were (re)built.
func (r *Remapper) Recomputes() uint64 {
	return r.recomputes
}

func (r *Remapper) drop() {
	if !r.ready {
		return
	}
	r.mapX.Close()
	r.mapY.Close()
	r.newCam.Close()
	r.ready = false
}

// Close releases the cached maps.
func (r *Remapper) Close() {
	r.drop()
}
