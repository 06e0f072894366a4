// Package vision adapts the OpenCV boundary (via gocv) to the capture
// pipeline: pattern detectors for the four board families, frame
// annotation, the undistorted preview, and the thin solver call. Everything
// with decision logic lives in internal/capture; this package only converts
// between gocv types and the pipeline's own.
package vision

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/banshee-data/calibkit/internal/capture"
)

// FrameProcessor consumes one frame at a time and returns an annotated copy
// for display. Frames are processed synchronously; there is no pipelining.
type FrameProcessor interface {
	// ProcessFrame runs one frame through the processor. The returned Mat is
	// owned by the caller; the input frame is never mutated.
	ProcessFrame(frame gocv.Mat) gocv.Mat

	// IsComplete reports whether the processor's task has finished. Preview
	// never completes.
	IsComplete() bool

	// Reset returns the processor to its initial per-mode state. Dataset
	// entries already saved are untouched.
	Reset()
}

// Detector locates one pattern family in a frame. Implementations draw the
// detected features onto img, which is a copy owned by the processor, and
// never touch the caller's original frame. Absence is the normal outcome
// while the board is out of view.
type Detector interface {
	Detect(img *gocv.Mat) (capture.Detection, error)
}

// Presenter is the display boundary: it shows a frame and can hold it on
// screen so the operator sees a confirmation before moving the board. The
// hold is a deliberate UX delay, not a concurrency primitive.
type Presenter interface {
	Present(frame gocv.Mat)
	Hold(d time.Duration)
}

// NopPresenter discards frames. Used when running headless and in tests.
type NopPresenter struct{}

func (NopPresenter) Present(gocv.Mat)   {}
func (NopPresenter) Hold(time.Duration) {}

// WindowPresenter shows frames in a gocv window.
type WindowPresenter struct {
	Window *gocv.Window
}

func (p WindowPresenter) Present(frame gocv.Mat) {
	p.Window.IMShow(frame)
}

func (p WindowPresenter) Hold(d time.Duration) {
	p.Window.WaitKey(int(d.Milliseconds()))
}
