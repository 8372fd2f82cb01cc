// Package capture ingests the eye tracker's frame stream. A Receiver reads
// gaze packets off the WebSocket, decodes them into Frames and publishes
// them to a single-slot Mailbox that the processing loop drains at its own
// rate.
package capture

import (
	"time"

	"gocv.io/x/gocv"
)

// Frame is one decoded scene-camera frame with the gaze sample that was
// captured for it. The holder owns Image and must Close the frame when done.
type Frame struct {
	// Seq is the tracker-assigned frame number.
	Seq int64

	// Image is the decoded BGR frame.
	Image gocv.Mat

	// GazeX/GazeY are normalized to the frame size. Only meaningful when
	// GazeOK is set.
	GazeX  float64
	GazeY  float64
	GazeOK bool

	ScoreRight float64
	ScoreLeft  float64

	// SourceTime is the tracker clock at capture. ClockOK is false when the
	// packet carried no parseable clock and SourceTime holds the receive
	// wall time instead. SystemTime is the raw clock string off the wire,
	// passed through untouched for recording.
	SourceTime time.Time
	ClockOK    bool
	SystemTime string

	// Received is when the packet arrived at this process.
	Received time.Time

	closed bool
}

// Close releases the frame image. Safe to call more than once.
func (f *Frame) Close() {
	if f == nil || f.closed {
		return
	}
	f.closed = true
	f.Image.Close()
}
