// Package capture implements the frame-by-frame decision logic that turns
// noisy per-frame pattern detections into discrete calibration samples: a
// bounded anchor history, a temporal stability gate over it, and the capture
// session state machine that appends accepted samples to the shared dataset.
//
// The package is deliberately free of any vision-library types so the
// decision logic is testable without a camera or display; adapters in
// internal/vision convert library detections into Detection values.
package capture

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/calibkit/internal/board"
)

// Detection is the outcome of running a pattern detector over one frame.
// Absence (Found == false) is the normal per-frame outcome while the board
// is out of view, not an error.
type Detection struct {
	// Found reports whether the pattern was located this frame. When false
	// all other fields are ignored.
	Found bool

	// Points are the detector-ordered 2-D image points. Order is stable
	// frame-to-frame for a given geometry, so point N always corresponds to
	// the same physical feature.
	Points []board.Point2f

	// IDs are the per-point corner identifiers, parallel to Points.
	// Only ChArUco detections carry IDs.
	IDs []int

	// Anchor is the single representative location tracked by the stability
	// gate: the first point for chessboards and circle grids, the corner
	// centroid for ChArUco boards.
	Anchor r2.Vec
}

// Absent is the Detection for a frame where no pattern was located.
func Absent() Detection {
	return Detection{}
}
