package capture

import (
	"fmt"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/calibkit/internal/board"
	"github.com/banshee-data/calibkit/internal/dataset"
)

// DefaultTargetFrames is the number of captures after which a session is
// complete. Real sessions configure a larger target.
const DefaultTargetFrames = 1

// SessionConfig holds the tunables for one capture session.
type SessionConfig struct {
	Geometry         board.Geometry
	FrameWidth       int     // pixels; used for the movement threshold
	FrameHeight      int     // pixels
	HistoryCapacity  int     // 0 selects DefaultHistoryCapacity
	MaxOffsetDivisor float64 // 0 selects DefaultMaxOffsetDivisor
	TargetFrames     int     // 0 selects DefaultTargetFrames
	SquareSize       float32 // 0 selects board.DefaultSquareSize
	GridGap          float32 // 0 selects board.DefaultDualGridGap
}

// Result reports what one frame observation did.
type Result struct {
	// Captured is true when the stability gate triggered and a sample was
	// appended to the dataset this frame.
	Captured bool
	// Complete is true once the captured-frame count has reached the target.
	Complete bool
}

// Session is the per-mode capture state machine: it owns the stability gate
// and the captured-frame counter, and appends accepted samples to the shared
// dataset. Capture is atomic within one observation; no capturing state
// persists across frames.
type Session struct {
	mu sync.Mutex

	geometry board.Geometry
	gate     *StabilityGate
	data     *dataset.Dataset

	// objectPoints is precomputed once; the generator is pure so every
	// capture of a geometric family shares the same sequence.
	objectPoints []board.Point3f

	captured int
	target   int

	// trail records every present-frame anchor for post-run reporting. It is
	// unbounded but one entry per detected frame keeps it small.
	trail []r2.Vec
}

// NewSession validates the configuration and builds the session. A malformed
// geometry (for example a zero-sized grid) is a fatal configuration error
// surfaced here, never per frame.
func NewSession(cfg SessionConfig, data *dataset.Dataset) (*Session, error) {
	if data == nil {
		return nil, fmt.Errorf("capture session: dataset is required")
	}
	if err := cfg.Geometry.Validate(); err != nil {
		return nil, fmt.Errorf("capture session: %w", err)
	}
	gate, err := NewStabilityGate(cfg.FrameWidth, cfg.FrameHeight, cfg.HistoryCapacity, cfg.MaxOffsetDivisor)
	if err != nil {
		return nil, fmt.Errorf("capture session: %w", err)
	}

	squareSize := cfg.SquareSize
	if squareSize == 0 {
		squareSize = board.DefaultSquareSize
	}
	gridGap := cfg.GridGap
	if gridGap == 0 {
		gridGap = board.DefaultDualGridGap
	}
	objectPoints, err := board.ObjectPoints(cfg.Geometry, squareSize, gridGap)
	if err != nil {
		return nil, fmt.Errorf("capture session: %w", err)
	}

	target := cfg.TargetFrames
	if target <= 0 {
		target = DefaultTargetFrames
	}

	return &Session{
		geometry:     cfg.Geometry,
		gate:         gate,
		data:         data,
		objectPoints: objectPoints,
		target:       target,
	}, nil
}

// Observe feeds one frame's detection through the stability gate and, on a
// trigger, converts it into a dataset sample. Detection absence is the
// default outcome and simply withholds capture; every frame is independent.
func (s *Session) Observe(det Detection) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A geometric detection must pair one image point with each object
	// point; anything else is an adapter fault that would poison every
	// later solve.
	if det.Found && s.geometry.Type != board.Charuco && len(det.Points) != len(s.objectPoints) {
		return Result{}, fmt.Errorf("capture: detection carries %d points, geometry expects %d",
			len(det.Points), len(s.objectPoints))
	}

	if det.Found {
		s.trail = append(s.trail, det.Anchor)
	}

	if !s.gate.Observe(det.Anchor, det.Found) {
		return Result{Complete: s.captured >= s.target}, nil
	}

	sample := s.buildSample(det)
	if err := s.data.Append(sample); err != nil {
		return Result{}, fmt.Errorf("capture: %w", err)
	}
	s.captured++
	// The same steady hold must not fire twice; the gate restarts empty.
	s.gate.Reset()

	return Result{Captured: true, Complete: s.captured >= s.target}, nil
}

func (s *Session) buildSample(det Detection) dataset.Sample {
	ts := time.Now().UnixNano()
	if s.geometry.Type == board.Charuco {
		corners := make([]board.Point2f, len(det.Points))
		copy(corners, det.Points)
		ids := make([]int, len(det.IDs))
		copy(ids, det.IDs)
		return dataset.Sample{CharucoCorners: corners, CharucoIDs: ids, TSUnixNanos: ts}
	}

	img := make([]board.Point2f, len(det.Points))
	copy(img, det.Points)
	obj := make([]board.Point3f, len(s.objectPoints))
	copy(obj, s.objectPoints)
	return dataset.Sample{ImagePoints: img, ObjectPoints: obj, TSUnixNanos: ts}
}

// IsComplete reports whether the captured-frame count has reached the target.
func (s *Session) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captured >= s.target
}

// Captured returns the number of frames captured since the last reset.
func (s *Session) Captured() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captured
}

// Target returns the configured capture target.
func (s *Session) Target() int { return s.target }

// Geometry returns the session's pattern geometry.
func (s *Session) Geometry() board.Geometry { return s.geometry }

// Gate exposes the stability gate, primarily for reporting and tests.
func (s *Session) Gate() *StabilityGate { return s.gate }

// AnchorTrail returns a copy of every anchor observed on detected frames
// since construction or the last Reset.
func (s *Session) AnchorTrail() []r2.Vec {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]r2.Vec, len(s.trail))
	copy(out, s.trail)
	return out
}

// Reset zeroes the captured-frame count and empties the anchor history.
// Samples already appended to the dataset are untouched.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captured = 0
	s.trail = nil
	s.gate.Reset()
}
