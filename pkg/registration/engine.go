package registration

import (
	"fmt"
	"math"
	"sync"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
)

// Status reports why a registration attempt did or did not produce a pose.
type Status int

const (
	StatusOK Status = iota
	StatusNoReference
	StatusNoFeatures   // frame produced no descriptors
	StatusFewMatches   // ratio-test survivors below MinMatches
	StatusNoHomography // RANSAC could not fit a model
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoReference:
		return "no_reference"
	case StatusNoFeatures:
		return "no_features"
	case StatusFewMatches:
		return "few_matches"
	case StatusNoHomography:
		return "no_homography"
	}
	return "unknown"
}

// Pose is a successful frame-to-reference alignment. Homography maps frame
// pixels into reference pixels. The caller owns it and must Close it.
type Pose struct {
	Homography gocv.Mat

	Inliers int
	// MeanError/StdError are the reprojection residuals of the inliers in
	// reference pixels, for registration quality monitoring.
	MeanError float64
	StdError  float64
}

// Project maps a frame pixel into reference space.
func (p *Pose) Project(x, y float64) (float64, float64) {
	src := gocv.NewMatWithSize(1, 1, gocv.MatTypeCV64FC2)
	defer src.Close()
	src.SetDoubleAt(0, 0, x)
	src.SetDoubleAt(0, 1, y)

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.PerspectiveTransform(src, &dst, p.Homography)

	return dst.GetDoubleAt(0, 0), dst.GetDoubleAt(0, 1)
}

// Close releases the homography.
func (p *Pose) Close() {
	if p == nil {
		return
	}
	p.Homography.Close()
}

// Result is the outcome of one registration attempt. Pose is non-nil only
// when Status is StatusOK.
type Result struct {
	Status    Status
	Pose      *Pose
	Keypoints int // features detected in the frame
	Matches   int // ratio-test survivors
}

// Close releases the pose, if any.
func (r Result) Close() {
	r.Pose.Close()
}

// Engine matches frames against the reference. Descriptor matching is brute
// force over Hamming distance; with MaxFeatures capping the keypoint count
// the exact search stays cheap enough for the frame loop.
type Engine struct {
	cfg     Config
	orb     gocv.ORB
	matcher gocv.BFMatcher
	ref     *Reference
	mu      sync.Mutex // Protects detection and matching
}

// NewEngine creates a registration engine. Call SetReference before
// registering frames, and Close when done.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid registration config: %w", err)
	}

	orb := gocv.NewORBWithParams(
		cfg.MaxFeatures,
		cfg.ScaleFactor,
		cfg.Levels,
		cfg.EdgeThreshold,
		0, // first pyramid level
		2, // WTA_K
		gocv.ORBScoreTypeHarris,
		cfg.PatchSize,
		cfg.FastThreshold,
	)

	return &Engine{
		cfg:     cfg,
		orb:     orb,
		matcher: gocv.NewBFMatcherWithParams(gocv.NormHamming, false),
	}, nil
}

// SetReference extracts features from img and installs it as the reference.
// The image is copied; the caller keeps ownership of img.
func (e *Engine) SetReference(img gocv.Mat) error {
	if img.Empty() {
		return fmt.Errorf("reference image is empty")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	keypoints, descriptors := e.detect(img)
	if descriptors.Empty() || len(keypoints) == 0 {
		descriptors.Close()
		return fmt.Errorf("reference image produced no features")
	}

	if e.ref != nil {
		e.ref.Close()
	}
	e.ref = &Reference{
		img:         img.Clone(),
		keypoints:   keypoints,
		descriptors: descriptors,
	}
	return nil
}

// SetReferenceFile loads an image from disk and installs it as the reference.
func (e *Engine) SetReferenceFile(path string) error {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return fmt.Errorf("failed to read reference image %s", path)
	}
	defer img.Close()
	return e.SetReference(img)
}

// Reference returns the current reference model, or nil.
func (e *Engine) Reference() *Reference {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ref
}

// Register aligns frame against the reference.
func (e *Engine) Register(frame gocv.Mat) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ref == nil {
		return Result{Status: StatusNoReference}
	}
	if frame.Empty() {
		return Result{Status: StatusNoFeatures}
	}

	keypoints, descriptors := e.detect(frame)
	defer descriptors.Close()
	if descriptors.Empty() || len(keypoints) == 0 {
		return Result{Status: StatusNoFeatures}
	}

	// Lowe ratio test over 2-NN matches, reference descriptors as query.
	knn := e.matcher.KnnMatch(e.ref.descriptors, descriptors, 2)
	var good []gocv.DMatch
	for _, pair := range knn {
		if len(pair) < 2 {
			continue
		}
		if pair[0].Distance < e.cfg.Ratio*pair[1].Distance {
			good = append(good, pair[0])
		}
	}

	if len(good) < e.cfg.MinMatches {
		return Result{Status: StatusFewMatches, Keypoints: len(keypoints), Matches: len(good)}
	}

	// Homography maps frame points onto reference points.
	srcPts := gocv.NewMatWithSize(len(good), 1, gocv.MatTypeCV64FC2)
	defer srcPts.Close()
	dstPts := gocv.NewMatWithSize(len(good), 1, gocv.MatTypeCV64FC2)
	defer dstPts.Close()
	for i, m := range good {
		fp := keypoints[m.TrainIdx]
		rp := e.ref.keypoints[m.QueryIdx]
		srcPts.SetDoubleAt(i, 0, fp.X)
		srcPts.SetDoubleAt(i, 1, fp.Y)
		dstPts.SetDoubleAt(i, 0, rp.X)
		dstPts.SetDoubleAt(i, 1, rp.Y)
	}

	mask := gocv.NewMat()
	defer mask.Close()
	h := gocv.FindHomography(srcPts, &dstPts, gocv.HomograpyMethodRANSAC,
		e.cfg.RansacThreshold, &mask, e.cfg.RansacIters, e.cfg.RansacConfidence)
	if h.Empty() {
		h.Close()
		return Result{Status: StatusNoHomography, Keypoints: len(keypoints), Matches: len(good)}
	}

	inliers, meanErr, stdErr := reprojectionError(srcPts, dstPts, mask, h)
	if inliers == 0 {
		h.Close()
		return Result{Status: StatusNoHomography, Keypoints: len(keypoints), Matches: len(good)}
	}

	return Result{
		Status:    StatusOK,
		Keypoints: len(keypoints),
		Matches:   len(good),
		Pose: &Pose{
			Homography: h,
			Inliers:    inliers,
			MeanError:  meanErr,
			StdError:   stdErr,
		},
	}
}

// detect runs ORB on a grayscale view of img. Caller owns the descriptors.
func (e *Engine) detect(img gocv.Mat) ([]gocv.KeyPoint, gocv.Mat) {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	mask := gocv.NewMat()
	defer mask.Close()
	return e.orb.DetectAndCompute(gray, mask)
}

// reprojectionError measures how well h maps the inlier correspondences.
func reprojectionError(src, dst, mask, h gocv.Mat) (int, float64, float64) {
	proj := gocv.NewMat()
	defer proj.Close()
	gocv.PerspectiveTransform(src, &proj, h)

	var residuals []float64
	for i := 0; i < src.Rows(); i++ {
		if mask.Rows() > i && mask.GetUCharAt(i, 0) == 0 {
			continue
		}
		dx := proj.GetDoubleAt(i, 0) - dst.GetDoubleAt(i, 0)
		dy := proj.GetDoubleAt(i, 1) - dst.GetDoubleAt(i, 1)
		residuals = append(residuals, math.Hypot(dx, dy))
	}

	if len(residuals) == 0 {
		return 0, 0, 0
	}
	mean := stat.Mean(residuals, nil)
	std := 0.0
	if len(residuals) > 1 {
		std = stat.StdDev(residuals, nil)
	}
	return len(residuals), mean, std
}

// Close releases the detector, matcher and reference.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.orb.Close()
	e.matcher.Close()
	if e.ref != nil {
		e.ref.Close()
		e.ref = nil
	}
	return nil
}
