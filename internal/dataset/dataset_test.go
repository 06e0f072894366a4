package dataset

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/calibkit/internal/board"
)

func chessboard6x9() board.Geometry {
	return board.Geometry{Type: board.Chessboard, Size: board.Size{Width: 6, Height: 9}}
}

func TestNewRejectsInvalidGeometry(t *testing.T) {
	if _, err := New(board.Geometry{Type: board.Chessboard}); err == nil {
		t.Error("expected error for zero-sized geometry")
	}
}

func TestAppendAndSamples(t *testing.T) {
	d, err := New(chessboard6x9())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.SessionID() == "" {
		t.Error("session id is empty")
	}

	s := Sample{
		ImagePoints:  []board.Point2f{{X: 1, Y: 2}},
		ObjectPoints: []board.Point3f{{X: 0, Y: 0, Z: 0}},
		TSUnixNanos:  42,
	}
	if err := d.Append(s); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if d.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", d.Len())
	}

	got := d.Samples()
	if got[0].TSUnixNanos != 42 {
		t.Errorf("timestamp = %d, want 42", got[0].TSUnixNanos)
	}
	// The returned slice is a copy; mutating it must not touch the dataset.
	got[0].ImagePoints[0] = board.Point2f{X: 9, Y: 9}
	got = append(got, Sample{})
	if d.Len() != 1 {
		t.Errorf("Len() = %d after caller mutation, want 1", d.Len())
	}
}

func TestAppendStampsMissingTimestamp(t *testing.T) {
	d, _ := New(chessboard6x9())
	if err := d.Append(Sample{ImagePoints: []board.Point2f{{X: 1}}}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if d.Samples()[0].TSUnixNanos == 0 {
		t.Error("zero timestamp not replaced on append")
	}
}

type failingSink struct{ err error }

func (f failingSink) InsertSample(string, int, Sample) error { return f.err }

func TestAppendFailsAtomicallyWithSink(t *testing.T) {
	d, _ := New(chessboard6x9())
	sinkErr := errors.New("disk full")
	d.SetSink(failingSink{err: sinkErr})

	err := d.Append(Sample{ImagePoints: []board.Point2f{{X: 1}}})
	if !errors.Is(err, sinkErr) {
		t.Fatalf("Append error = %v, want wrapped sink error", err)
	}
	// The in-memory list must not record what the sink rejected.
	if d.Len() != 0 {
		t.Errorf("Len() = %d after sink failure, want 0", d.Len())
	}
}

func TestResultsLifecycle(t *testing.T) {
	d, _ := New(chessboard6x9())
	if _, ok := d.Results(); ok {
		t.Fatal("fresh dataset reports results")
	}

	r := Results{
		CameraMatrix: mat.NewDense(3, 3, []float64{800, 0, 640, 0, 810, 480, 0, 0, 1}),
		DistCoeffs:   []float64{0.1, -0.2, 0, 0, 0.05},
		TotalAvgErr:  0.42,
	}
	if err := d.SetResults(r); err != nil {
		t.Fatalf("SetResults: %v", err)
	}
	got, ok := d.Results()
	if !ok {
		t.Fatal("results missing after SetResults")
	}
	if got.Fx() != 800 || got.Fy() != 810 {
		t.Errorf("Fx/Fy = %v/%v, want 800/810", got.Fx(), got.Fy())
	}
	if got.TotalAvgErr != 0.42 {
		t.Errorf("TotalAvgErr = %v, want 0.42", got.TotalAvgErr)
	}
}

func TestSetResultsValidation(t *testing.T) {
	d, _ := New(chessboard6x9())
	if err := d.SetResults(Results{DistCoeffs: []float64{0.1}}); err == nil {
		t.Error("expected error for nil camera matrix")
	}
	bad := Results{
		CameraMatrix: mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
		DistCoeffs:   []float64{0.1},
	}
	if err := d.SetResults(bad); err == nil {
		t.Error("expected error for non-3x3 camera matrix")
	}
	bad = Results{CameraMatrix: mat.NewDense(3, 3, nil)}
	if err := d.SetResults(bad); err == nil {
		t.Error("expected error for empty distortion coefficients")
	}
}

func TestClearStartsFreshSession(t *testing.T) {
	d, _ := New(chessboard6x9())
	oldID := d.SessionID()
	d.Append(Sample{ImagePoints: []board.Point2f{{X: 1}}})
	d.SetResults(Results{
		CameraMatrix: mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}),
		DistCoeffs:   []float64{0},
	})

	d.Clear()
	if d.Len() != 0 {
		t.Errorf("Len() = %d after clear, want 0", d.Len())
	}
	if _, ok := d.Results(); ok {
		t.Error("results survived clear")
	}
	if d.SessionID() == oldID {
		t.Error("session id unchanged after clear")
	}
}
