package engine

import "github.com/iohnishijima/GazeMappingApplication/pkg/aoi"

// Stats is a snapshot of the processor counters. Ticks counts every firing
// of the loop; EmptyTicks the subset that found no frame waiting. The
// registration counters partition the consumed frames by outcome.
type Stats struct {
	Ticks        uint64 `json:"ticks"`
	EmptyTicks   uint64 `json:"empty_ticks"`
	Registered   uint64 `json:"registered"`
	NoReference  uint64 `json:"no_reference"`
	NoFeatures   uint64 `json:"no_features"`
	FewMatches   uint64 `json:"few_matches"`
	NoHomography uint64 `json:"no_homography"`
	InvalidGaze  uint64 `json:"invalid_gaze"`

	// FramesIn and FramesDropped come from the capture mailbox: everything
	// the receiver published, and the slice of it overwritten unseen.
	FramesIn      uint64 `json:"frames_in"`
	FramesDropped uint64 `json:"frames_dropped"`

	FPS        float64 `json:"fps"`
	LastStatus string  `json:"last_status"`

	// MeanError/StdError are the inlier reprojection residuals of the last
	// successful registration, in reference pixels.
	MeanError float64 `json:"mean_error"`
	StdError  float64 `json:"std_error"`

	Recording    bool  `json:"recording"`
	RecordedRows int64 `json:"recorded_rows"`

	AOIs []aoi.Stat `json:"aois"`
}
