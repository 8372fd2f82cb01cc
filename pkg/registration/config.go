// Package registration aligns scene-camera frames against a reference image
// using ORB features, ratio-test matching and a RANSAC homography fit. The
// resulting pose projects gaze points from frame space into reference space.
package registration

import "fmt"

// Config holds the tunable parameters of the registration pipeline
type Config struct {
	// Feature detection
	MaxFeatures   int     // ORB keypoint cap per image
	ScaleFactor   float32 // Pyramid decimation ratio between levels
	Levels        int     // Pyramid levels
	EdgeThreshold int     // Border margin where features are not detected
	PatchSize     int     // BRIEF descriptor patch size
	FastThreshold int     // FAST corner threshold

	// Matching
	Ratio      float64 // Lowe ratio test: keep m when m.dist < Ratio*n.dist
	MinMatches int     // Ratio-test survivors required before fitting

	// Homography fit
	RansacThreshold  float64 // Max reprojection error for RANSAC inliers (px)
	RansacIters      int     // RANSAC iteration cap
	RansacConfidence float64
}

// DefaultConfig returns the tuning used for head-mounted scene cameras
func DefaultConfig() Config {
	return Config{
		// Feature detection - capped low so matching stays cheap at 60 Hz
		MaxFeatures:   300,
		ScaleFactor:   1.2,
		Levels:        8,
		EdgeThreshold: 31,
		PatchSize:     31,
		FastThreshold: 7, // Low threshold keeps weakly-textured scenes usable

		// Matching
		Ratio:      0.75,
		MinMatches: 11,

		// Homography fit
		RansacThreshold:  5.0,
		RansacIters:      2000,
		RansacConfidence: 0.995,
	}
}

// DenseConfig returns a heavier tuning for large or finely detailed
// reference material, at roughly double the matching cost
func DenseConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxFeatures = 600
	cfg.FastThreshold = 10
	return cfg
}

// Validate checks that the config can produce a working pipeline
func (c Config) Validate() error {
	if c.MaxFeatures <= 0 {
		return fmt.Errorf("max features must be positive, got %d", c.MaxFeatures)
	}
	if c.ScaleFactor <= 1.0 {
		return fmt.Errorf("scale factor must be greater than 1.0, got %v", c.ScaleFactor)
	}
	if c.Ratio <= 0 || c.Ratio >= 1 {
		return fmt.Errorf("ratio must be in (0, 1), got %v", c.Ratio)
	}
	// findHomography needs 4 correspondences
	if c.MinMatches < 4 {
		return fmt.Errorf("min matches must be at least 4, got %d", c.MinMatches)
	}
	if c.RansacThreshold <= 0 {
		return fmt.Errorf("ransac threshold must be positive, got %v", c.RansacThreshold)
	}
	return nil
}
