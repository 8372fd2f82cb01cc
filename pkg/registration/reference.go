package registration

import (
	"image"

	"gocv.io/x/gocv"
)

// Reference holds the reference image and its precomputed features. Features
// are extracted once when the reference is set; every frame registration
// matches against them.
type Reference struct {
	img         gocv.Mat
	keypoints   []gocv.KeyPoint
	descriptors gocv.Mat
}

// Image returns the reference image. The Mat stays owned by the Reference;
// callers compose onto a Clone.
func (r *Reference) Image() gocv.Mat {
	return r.img
}

// Size returns the reference dimensions in pixels.
func (r *Reference) Size() image.Point {
	return image.Pt(r.img.Cols(), r.img.Rows())
}

// Features returns how many keypoints the reference produced.
func (r *Reference) Features() int {
	return len(r.keypoints)
}

// Close releases the reference image and descriptors.
func (r *Reference) Close() {
	if r == nil {
		return
	}
	r.img.Close()
	r.descriptors.Close()
}
