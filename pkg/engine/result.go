package engine

import "time"

// Result is the outcome of one processed frame, published to the sink after
// the composite is rendered. JPEG is nil when the tick produced no new
// composite (failed registration, invalid gaze).
type Result struct {
	Seq        int64     `json:"seq"`
	Registered bool      `json:"registered"`
	Status     string    `json:"status"`
	GazeX      float64   `json:"gaze_x"`
	GazeY      float64   `json:"gaze_y"`
	ActiveAOI  string    `json:"active_aoi"`
	Matches    int       `json:"matches"`
	Inliers    int       `json:"inliers"`
	ScoreRight float64   `json:"score_right"`
	ScoreLeft  float64   `json:"score_left"`
	FPS        float64   `json:"fps"`
	SourceTime time.Time `json:"source_time"`

	JPEG []byte `json:"-"`
}

// Record is one row of a recording session. GazeX/GazeY are in reference
// pixels; SystemTime is the tracker clock string exactly as received.
type Record struct {
	Frame      int64
	PicNum     int64
	GazeX      float64
	GazeY      float64
	AOI        string
	ScoreRight float64
	ScoreLeft  float64
	SystemTime string
}
