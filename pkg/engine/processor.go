// Package engine runs the per-tick processing pipeline: take the freshest
// captured frame, undistort it, register it against the reference image,
// project the gaze point, advance the analysis state and render the
// composite.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/iohnishijima/GazeMappingApplication/internal/log"
	"github.com/iohnishijima/GazeMappingApplication/pkg/aoi"
	"github.com/iohnishijima/GazeMappingApplication/pkg/camera"
	"github.com/iohnishijima/GazeMappingApplication/pkg/capture"
	"github.com/iohnishijima/GazeMappingApplication/pkg/heatmap"
	"github.com/iohnishijima/GazeMappingApplication/pkg/protocol"
	"github.com/iohnishijima/GazeMappingApplication/pkg/registration"
)

// Statuses the processor reports beyond the registration outcomes.
const (
	statusInvalidGaze = "invalid_gaze"
	statusBadFrame    = "bad_frame"
)

// FrameSource hands the processor the freshest captured frame. TryTake
// transfers ownership of the frame; nil means nothing new arrived.
type FrameSource interface {
	TryTake() *capture.Frame
	Published() uint64
	Drops() uint64
}

// Recorder persists rows while a recording session is open. Begin and End
// bracket a session; Append receives one row per registered frame.
type Recorder interface {
	Begin(user, session string) error
	Append(Record) error
	End() (string, error)
}

// ResultSink receives every published result. Implementations must not
// block; a slow sink stalls the loop.
type ResultSink interface {
	PublishResult(Result)
}

// Processor drives the pipeline. All per-tick state belongs to the loop
// goroutine; the control methods marshal external access through the mutex
// so web handlers can call them at any time.
type Processor struct {
	cfg Config

	source   FrameSource
	remapper *camera.Remapper
	reg      *registration.Engine

	recorder Recorder
	sink     ResultSink

	optsMu sync.RWMutex
	opts   Options

	mu           sync.Mutex
	tracker      *aoi.Tracker
	heat         *heatmap.Accumulator
	lastTick     time.Time
	fps          float64
	recording    bool
	frameCounter int64
	recorded     int64
	lastBase     gocv.Mat
	lastJPEG     []byte

	statsMu sync.RWMutex
	stats   Stats
}

// New wires a processor. Set a recorder and sink before Run as needed.
func New(cfg Config, source FrameSource, remapper *camera.Remapper, reg *registration.Engine) (*Processor, error) {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if errs := cfg.Options.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid options: %v", errs)
	}

	return &Processor{
		cfg:      cfg,
		source:   source,
		remapper: remapper,
		reg:      reg,
		opts:     cfg.Options,
		tracker:  aoi.NewTracker(),
		heat:     heatmap.NewAccumulator(cfg.Options.HistorySize),
		lastBase: gocv.NewMat(),
	}, nil
}

// SetRecorder wires the recording backend.
func (p *Processor) SetRecorder(r Recorder) {
	p.recorder = r
}

// SetSink wires the result consumer.
func (p *Processor) SetSink(s ResultSink) {
	p.sink = s
}

// Run drives the loop until ctx is cancelled. Each tick consumes at most
// one frame; a tick that overruns simply delays the next one.
func (p *Processor) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.TickInterval)
	defer ticker.Stop()

	log.Info("processor started", "tick", p.cfg.TickInterval)
	for {
		select {
		case <-ctx.Done():
			log.Info("processor stopped")
			return ctx.Err()
		case <-ticker.C:
			p.tick()
		}
	}
}

func (p *Processor) tick() {
	frame := p.source.TryTake()

	p.statsMu.Lock()
	p.stats.Ticks++
	if frame == nil {
		p.stats.EmptyTicks++
	}
	p.statsMu.Unlock()

	if frame == nil {
		return
	}
	defer frame.Close()

	res := p.process(frame)
	if p.sink != nil {
		p.sink.PublishResult(res)
	}
}

// process runs the pipeline for one consumed frame.
func (p *Processor) process(frame *capture.Frame) Result {
	opts := p.Options()

	p.mu.Lock()
	defer p.mu.Unlock()

	if opts.HistorySize != p.heat.Capacity() {
		p.heat.Resize(opts.HistorySize)
	}

	// Pacing counts every consumed frame, whether or not it registers.
	now := time.Now()
	if !p.lastTick.IsZero() {
		if dt := now.Sub(p.lastTick).Seconds(); dt > 0 {
			p.fps = 1 / dt
		}
	}
	p.lastTick = now

	res := Result{
		Seq:        frame.Seq,
		ScoreRight: frame.ScoreRight,
		ScoreLeft:  frame.ScoreLeft,
		FPS:        p.fps,
		SourceTime: frame.SourceTime,
	}

	if !frame.GazeOK {
		res.Status = statusInvalidGaze
		p.noteOutcome(res.Status)
		return res
	}

	rawW := frame.Image.Cols()
	rawH := frame.Image.Rows()

	und, err := p.remapper.Undistort(frame.Image)
	if err != nil {
		log.Warn("frame undistortion failed", "error", err)
		res.Status = statusBadFrame
		p.noteOutcome(res.Status)
		return res
	}
	defer und.Close()

	// Gaze arrives normalized; scale by the raw frame size, then push the
	// point through the same undistortion model as the image.
	ux, uy, err := p.remapper.UndistortPoint(frame.GazeX*float64(rawW), frame.GazeY*float64(rawH))
	if err != nil {
		log.Warn("gaze undistortion failed", "error", err)
		res.Status = statusBadFrame
		p.noteOutcome(res.Status)
		return res
	}

	rr := p.reg.Register(und)
	defer rr.Close()

	res.Status = rr.Status.String()
	res.Matches = rr.Matches
	if rr.Status != registration.StatusOK {
		p.noteOutcome(res.Status)
		return res
	}

	res.Registered = true
	res.Inliers = rr.Pose.Inliers
	refX, refY := rr.Pose.Project(ux, uy)
	res.GazeX, res.GazeY = refX, refY

	// History stores integer pixels, matching what the marker draws.
	p.heat.Push(heatmap.Point{X: int(refX), Y: int(refY)})
	res.ActiveAOI = p.tracker.Update(refX, refY, frame.SourceTime)

	comp := p.compose(und, rr.Pose, refX, refY, opts)
	jpeg, err := encodeJPEG(comp)
	if err != nil {
		comp.Close()
		log.Warn("composite encode failed", "error", err)
		p.noteOutcome(res.Status)
		return res
	}

	p.lastBase.Close()
	p.lastBase = comp
	p.lastJPEG = jpeg
	res.JPEG = jpeg

	if p.recording && p.recorder != nil {
		p.record(frame, refX, refY, res.ActiveAOI)
	}

	p.noteOutcome(res.Status)
	p.statsMu.Lock()
	p.stats.MeanError = rr.Pose.MeanError
	p.stats.StdError = rr.Pose.StdError
	p.stats.AOIs = p.tracker.Snapshot(frame.SourceTime)
	p.stats.RecordedRows = p.recorded
	p.statsMu.Unlock()

	return res
}

// record appends one row for a registered frame.
func (p *Processor) record(frame *capture.Frame, refX, refY float64, active string) {
	p.frameCounter++
	row := Record{
		Frame:      p.frameCounter,
		PicNum:     frame.Seq,
		GazeX:      refX,
		GazeY:      refY,
		AOI:        active,
		ScoreRight: frame.ScoreRight,
		ScoreLeft:  frame.ScoreLeft,
		SystemTime: frame.SystemTime,
	}
	if row.SystemTime == "" {
		row.SystemTime = protocol.FormatSystemTime(frame.SourceTime)
	}
	if err := p.recorder.Append(row); err != nil {
		log.Warn("failed to record row", "error", err)
		return
	}
	p.recorded++
}

// noteOutcome folds one frame outcome into the counters.
func (p *Processor) noteOutcome(status string) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()

	p.stats.FPS = p.fps
	p.stats.LastStatus = status
	switch status {
	case statusInvalidGaze:
		p.stats.InvalidGaze++
	case registration.StatusOK.String():
		p.stats.Registered++
	case registration.StatusNoReference.String():
		p.stats.NoReference++
	case registration.StatusNoFeatures.String():
		p.stats.NoFeatures++
	case registration.StatusFewMatches.String():
		p.stats.FewMatches++
	case registration.StatusNoHomography.String():
		p.stats.NoHomography++
	}
}

// Options returns the live display settings.
func (p *Processor) Options() Options {
	p.optsMu.RLock()
	defer p.optsMu.RUnlock()
	return p.opts
}

// SetOptions replaces the display settings after validation.
func (p *Processor) SetOptions(o Options) error {
	if errs := o.Validate(); len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	p.optsMu.Lock()
	p.opts = o
	p.optsMu.Unlock()
	return nil
}

// UpdateOptions overlays individual settings onto the current ones.
// Accepts a map of field names to values.
func (p *Processor) UpdateOptions(params map[string]interface{}) error {
	return p.SetOptions(p.Options().apply(params))
}

// SetReference loads a new reference image between ticks.
func (p *Processor) SetReference(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.reg.SetReferenceFile(path); err != nil {
		return err
	}
	log.Info("reference loaded", "path", path)
	return nil
}

// AddAOI appends a tracked region.
func (p *Processor) AddAOI(name string, r aoi.Rect) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tracker.Add(name, r)
}

// SetAOIs replaces the whole region list, dropping old counters.
func (p *Processor) SetAOIs(aois []*aoi.AOI) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tracker.Replace(aois)
}

// RemoveAOI deletes the named region, reporting whether it existed.
func (p *Processor) RemoveAOI(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	list := p.tracker.List()
	for i, a := range list {
		if a.Name == name {
			p.tracker.Replace(append(list[:i:i], list[i+1:]...))
			return true
		}
	}
	return false
}

// AOIDefinitions returns the current regions in the persistence schema.
func (p *Processor) AOIDefinitions() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return aoi.Marshal(p.tracker.List())
}

// ResetCounters zeroes every region's hit count and dwell time. A visit in
// progress is forgotten, not re-counted. The gaze history is untouched.
func (p *Processor) ResetCounters() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tracker.Reset()
	p.statsMu.Lock()
	p.stats.AOIs = p.tracker.Snapshot(time.Now())
	p.statsMu.Unlock()
}

// StartRecording opens a recording session. Every registered frame from now
// until StopRecording produces one row.
func (p *Processor) StartRecording(user, session string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.recorder == nil {
		return errors.New("no recorder configured")
	}
	if p.recording {
		return errors.New("recording already in progress")
	}
	if err := p.recorder.Begin(user, session); err != nil {
		return err
	}
	p.recording = true
	p.frameCounter = 0
	p.recorded = 0

	p.statsMu.Lock()
	p.stats.Recording = true
	p.stats.RecordedRows = 0
	p.statsMu.Unlock()

	log.Info("recording started", "user", user, "session", session)
	return nil
}

// StopRecording closes the session and returns the export path.
func (p *Processor) StopRecording() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.recording {
		return "", errors.New("not recording")
	}
	p.recording = false

	p.statsMu.Lock()
	p.stats.Recording = false
	p.statsMu.Unlock()

	path, err := p.recorder.End()
	if err != nil {
		return "", err
	}
	log.Info("recording stopped", "rows", p.recorded, "file", path)
	return path, nil
}

// Stats returns a copy of the counters with live mailbox numbers.
func (p *Processor) Stats() Stats {
	p.statsMu.RLock()
	s := p.stats
	aois := make([]aoi.Stat, len(s.AOIs))
	copy(aois, s.AOIs)
	p.statsMu.RUnlock()

	s.AOIs = aois
	s.FramesIn = p.source.Published()
	s.FramesDropped = p.source.Drops()
	return s
}

// LastFrame returns the most recent composite as JPEG, nil before the first
// successful registration.
func (p *Processor) LastFrame() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lastJPEG == nil {
		return nil
	}
	out := make([]byte, len(p.lastJPEG))
	copy(out, p.lastJPEG)
	return out
}

// HistoryLen returns how many gaze points the heatmap currently retains.
func (p *Processor) HistoryLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.heat.Len()
}

// Close releases the renderer state. Call after Run has returned.
func (p *Processor) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastBase.Close()
	p.lastJPEG = nil
}
