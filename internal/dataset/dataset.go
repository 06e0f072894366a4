// Package dataset holds the calibration samples accumulated during a capture
// session and, once the solver has run, the resulting camera parameters.
//
// A Dataset is the single resource shared across modes: the capture
// processor appends samples, the solver writes parameters back, and the
// preview processor reads them. It outlives both processors and is owned by
// the session driver.
package dataset

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/calibkit/internal/board"
)

// Sample is one accepted calibration observation. Geometric board families
// carry paired image/object points; ChArUco boards carry corner/id pairs
// instead. The two representations are never mixed within a session because
// the geometry is fixed at session start.
type Sample struct {
	ImagePoints  []board.Point2f
	ObjectPoints []board.Point3f

	CharucoCorners []board.Point2f
	CharucoIDs     []int

	TSUnixNanos int64
}

// IsCharuco reports whether the sample carries the marker-board
// representation.
func (s Sample) IsCharuco() bool { return len(s.CharucoCorners) > 0 }

// Results are the solver's write-back: intrinsics, distortion, and fit error.
type Results struct {
	// CameraMatrix is the 3x3 intrinsic matrix; Fx and Fy are At(0,0) and
	// At(1,1).
	CameraMatrix *mat.Dense
	// DistCoeffs is the distortion coefficient vector (k1 k2 p1 p2 k3 ...).
	DistCoeffs []float64
	// TotalAvgErr is the RMS reprojection error reported by the solver.
	TotalAvgErr float64
}

// Fx returns the focal length along x in pixels.
func (r Results) Fx() float64 { return r.CameraMatrix.At(0, 0) }

// Fy returns the focal length along y in pixels.
func (r Results) Fy() float64 { return r.CameraMatrix.At(1, 1) }

// SampleSink receives every appended sample, letting a persistent store
// shadow the in-memory dataset. Appends fail if the sink fails so memory and
// storage never diverge silently.
type SampleSink interface {
	InsertSample(sessionID string, index int, s Sample) error
}

// Dataset is the append-only (until Clear) sample store for one calibration
// session. Access is guarded so a monitor server may read while capture is
// active; within the capture pipeline itself there is only ever one writer.
type Dataset struct {
	mu        sync.RWMutex
	sessionID string
	geometry  board.Geometry
	samples   []Sample
	results   *Results
	sink      SampleSink
}

// New creates an empty dataset for the given geometry with a fresh session
// identifier.
func New(geometry board.Geometry) (*Dataset, error) {
	if err := geometry.Validate(); err != nil {
		return nil, fmt.Errorf("dataset geometry: %w", err)
	}
	return &Dataset{
		sessionID: uuid.NewString(),
		geometry:  geometry,
	}, nil
}

// SetSink attaches a persistent sample sink. Pass nil to detach.
func (d *Dataset) SetSink(sink SampleSink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sink = sink
}

// SessionID returns the identifier assigned at construction.
func (d *Dataset) SessionID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sessionID
}

// Geometry returns the pattern geometry fixed at session start.
func (d *Dataset) Geometry() board.Geometry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.geometry
}

// Append stores a sample and forwards it to the sink, if any.
func (d *Dataset) Append(s Sample) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s.TSUnixNanos == 0 {
		s.TSUnixNanos = time.Now().UnixNano()
	}
	if d.sink != nil {
		if err := d.sink.InsertSample(d.sessionID, len(d.samples), s); err != nil {
			return fmt.Errorf("persist sample: %w", err)
		}
	}
	d.samples = append(d.samples, s)
	return nil
}

// Len returns the number of stored samples.
func (d *Dataset) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.samples)
}

// Samples returns a copy of the stored samples in capture order.
func (d *Dataset) Samples() []Sample {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Sample, len(d.samples))
	copy(out, d.samples)
	return out
}

// SetResults records the solver's parameters. Only the solver writes here.
func (d *Dataset) SetResults(r Results) error {
	if r.CameraMatrix == nil {
		return fmt.Errorf("results: camera matrix is required")
	}
	if rows, cols := r.CameraMatrix.Dims(); rows != 3 || cols != 3 {
		return fmt.Errorf("results: camera matrix is %dx%d, want 3x3", rows, cols)
	}
	if len(r.DistCoeffs) == 0 {
		return fmt.Errorf("results: distortion coefficients are required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.results = &r
	return nil
}

// Results returns the solver's parameters, if present. The parameters start
// absent and are read-only from the capture side.
func (d *Dataset) Results() (Results, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.results == nil {
		return Results{}, false
	}
	return *d.results, true
}

// newDense3x3 builds a 3x3 camera matrix from row-major data.
func newDense3x3(data []float64) *mat.Dense {
	return mat.NewDense(3, 3, data)
}

// Clear drops all samples and results, starting a fresh session id. The
// capture-side Reset never calls this; clearing is an explicit operator
// action.
func (d *Dataset) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.samples = nil
	d.results = nil
	d.sessionID = uuid.NewString()
}
