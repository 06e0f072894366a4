package vision

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/calibkit/internal/board"
	"github.com/banshee-data/calibkit/internal/capture"
	"github.com/banshee-data/calibkit/internal/dataset"
)

// fakeDetector returns a canned detection without touching the frame.
type fakeDetector struct {
	det capture.Detection
	err error
}

func (f fakeDetector) Detect(*gocv.Mat) (capture.Detection, error) { return f.det, f.err }

func newProcessorFixture(t *testing.T, det Detector) (*CaptureProcessor, *dataset.Dataset) {
	t.Helper()
	g := board.Geometry{Type: board.Chessboard, Size: board.Size{Width: 6, Height: 9}}
	data, err := dataset.New(g)
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}
	session, err := capture.NewSession(capture.SessionConfig{
		Geometry:   g,
		FrameWidth: 1280, FrameHeight: 960,
	}, data)
	if err != nil {
		t.Fatalf("capture.NewSession: %v", err)
	}
	return NewCaptureProcessor(det, session, NopPresenter{}, 0), data
}

func steadyFake() fakeDetector {
	pts := make([]board.Point2f, 54)
	return fakeDetector{det: capture.Detection{
		Found:  true,
		Points: pts,
		Anchor: r2.Vec{X: 640, Y: 480},
	}}
}

func TestCaptureProcessorCapturesSteadyHold(t *testing.T) {
	proc, data := newProcessorFixture(t, steadyFake())

	frame := gocv.NewMatWithSize(960, 1280, gocv.MatTypeCV8UC3)
	defer frame.Close()

	for i := 0; i < capture.DefaultHistoryCapacity; i++ {
		if proc.IsComplete() {
			t.Fatalf("complete at frame %d, before the window filled", i)
		}
		out := proc.ProcessFrame(frame)
		out.Close()
	}
	if data.Len() != 1 {
		t.Fatalf("dataset holds %d samples, want 1", data.Len())
	}
	if !proc.IsComplete() {
		t.Error("processor not complete after reaching the target")
	}

	proc.Reset()
	if proc.IsComplete() {
		t.Error("processor still complete after reset")
	}
	if data.Len() != 1 {
		t.Errorf("reset dropped dataset samples: %d, want 1", data.Len())
	}
}

func TestCaptureProcessorDetectorErrorDegradesToAbsent(t *testing.T) {
	proc, data := newProcessorFixture(t, fakeDetector{err: errors.New("camera glitch")})

	frame := gocv.NewMatWithSize(960, 1280, gocv.MatTypeCV8UC3)
	defer frame.Close()

	for i := 0; i < 2*capture.DefaultHistoryCapacity; i++ {
		out := proc.ProcessFrame(frame)
		out.Close()
	}
	if data.Len() != 0 {
		t.Errorf("dataset holds %d samples after detector failures, want 0", data.Len())
	}
	if proc.IsComplete() {
		t.Error("processor complete despite no captures")
	}
}

func TestCaptureProcessorReturnsDistinctFrame(t *testing.T) {
	proc, _ := newProcessorFixture(t, fakeDetector{})

	frame := gocv.NewMatWithSize(960, 1280, gocv.MatTypeCV8UC3)
	defer frame.Close()

	out := proc.ProcessFrame(frame)
	defer out.Close()
	if out.Ptr() == frame.Ptr() {
		t.Error("processor returned the input frame instead of a copy")
	}
}
