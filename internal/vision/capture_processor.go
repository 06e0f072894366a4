package vision

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/banshee-data/calibkit/internal/capture"
	"github.com/banshee-data/calibkit/internal/monitoring"
)

// DefaultCaptureHold is how long the capture confirmation stays on screen.
const DefaultCaptureHold = 300 * time.Millisecond

// CaptureProcessor orchestrates one frame through detection, the stability
// gate, and dataset capture, and overlays operator feedback on the returned
// frame copy.
type CaptureProcessor struct {
	detector  Detector
	session   *capture.Session
	presenter Presenter
	hold      time.Duration
}

// NewCaptureProcessor wires a detector to a capture session. presenter may
// be nil, in which case capture confirmations are not held on screen.
func NewCaptureProcessor(detector Detector, session *capture.Session, presenter Presenter, hold time.Duration) *CaptureProcessor {
	if presenter == nil {
		presenter = NopPresenter{}
	}
	if hold <= 0 {
		hold = DefaultCaptureHold
	}
	return &CaptureProcessor{
		detector:  detector,
		session:   session,
		presenter: presenter,
		hold:      hold,
	}
}

// Session returns the underlying capture session.
func (p *CaptureProcessor) Session() *capture.Session { return p.session }

// ProcessFrame runs detection on a copy of frame, feeds the result through
// the stability gate, and on a trigger appends a sample, banners the frame,
// and holds the display briefly. Detection failure withholds capture and
// annotation; it is the default per-frame outcome, not an error.
func (p *CaptureProcessor) ProcessFrame(frame gocv.Mat) gocv.Mat {
	annotated := frame.Clone()

	det, err := p.detector.Detect(&annotated)
	if err != nil {
		// Adapter failures degrade to absence; every frame is independent.
		monitoring.Logf("vision: detect: %v", err)
		det = capture.Absent()
	}

	result, err := p.session.Observe(det)
	if err != nil {
		monitoring.Logf("vision: capture: %v", err)
		return annotated
	}

	if result.Captured {
		drawBanner(&annotated, bannerFrameCaptured)
		p.presenter.Present(annotated)
		p.presenter.Hold(p.hold)
	}
	return annotated
}

// IsComplete reports whether the session reached its capture target.
func (p *CaptureProcessor) IsComplete() bool {
	return p.session.IsComplete()
}

// Reset zeroes the session's captured-frame count and anchor history.
func (p *CaptureProcessor) Reset() {
	p.session.Reset()
}
