package vision

import (
	"testing"

	"github.com/banshee-data/calibkit/internal/board"
	"github.com/banshee-data/calibkit/internal/dataset"
)

func TestCharucoCornerObjectPoint(t *testing.T) {
	g := board.Geometry{Type: board.Charuco, Size: board.Size{Width: 6, Height: 8}}

	// Corner 0 is the first interior corner, one square in from the origin.
	p, err := charucoCornerObjectPoint(g, 0)
	if err != nil {
		t.Fatalf("corner 0: %v", err)
	}
	if p.X != charucoSquareLen || p.Y != charucoSquareLen {
		t.Errorf("corner 0 = (%v,%v), want (%v,%v)", p.X, p.Y, charucoSquareLen, charucoSquareLen)
	}

	// A 6x8 board has 5 interior corners per row: id 7 is row 1, column 2.
	p, err = charucoCornerObjectPoint(g, 7)
	if err != nil {
		t.Fatalf("corner 7: %v", err)
	}
	if p.X != 3*charucoSquareLen || p.Y != 2*charucoSquareLen {
		t.Errorf("corner 7 = (%v,%v), want (%v,%v)", p.X, p.Y, 3*charucoSquareLen, 2*charucoSquareLen)
	}

	// 5x7 interior corners total; 35 is out of range.
	if _, err := charucoCornerObjectPoint(g, 35); err == nil {
		t.Error("expected error for corner id past the board")
	}
	if _, err := charucoCornerObjectPoint(g, -1); err == nil {
		t.Error("expected error for negative corner id")
	}
}

func TestSolverPointsPlanar(t *testing.T) {
	g := board.Geometry{Type: board.Chessboard, Size: board.Size{Width: 6, Height: 9}}
	s := dataset.Sample{
		ImagePoints:  []board.Point2f{{X: 10, Y: 20}, {X: 30, Y: 40}},
		ObjectPoints: []board.Point3f{{X: 0, Y: 0, Z: 0}, {X: 16.3, Y: 0, Z: 0}},
	}
	img, obj, err := solverPoints(g, s)
	if err != nil {
		t.Fatalf("solverPoints: %v", err)
	}
	if len(img) != 2 || len(obj) != 2 {
		t.Fatalf("got %d/%d points, want 2/2", len(img), len(obj))
	}
	if img[1].X != 30 || obj[1].X != 16.3 {
		t.Errorf("point 1 = img %v obj %v", img[1], obj[1])
	}

	s.ObjectPoints = s.ObjectPoints[:1]
	if _, _, err := solverPoints(g, s); err == nil {
		t.Error("expected error for mismatched point counts")
	}
}

func TestSolverPointsCharuco(t *testing.T) {
	g := board.Geometry{Type: board.Charuco, Size: board.Size{Width: 6, Height: 8}}
	s := dataset.Sample{
		CharucoCorners: []board.Point2f{{X: 100, Y: 200}, {X: 300, Y: 400}},
		CharucoIDs:     []int{0, 7},
	}
	img, obj, err := solverPoints(g, s)
	if err != nil {
		t.Fatalf("solverPoints: %v", err)
	}
	if len(img) != 2 || len(obj) != 2 {
		t.Fatalf("got %d/%d points, want 2/2", len(img), len(obj))
	}
	if obj[0].X != charucoSquareLen || obj[0].Y != charucoSquareLen || obj[0].Z != 0 {
		t.Errorf("object point for corner 0 = %v", obj[0])
	}
	if obj[1].X != 3*charucoSquareLen || obj[1].Y != 2*charucoSquareLen {
		t.Errorf("object point for corner 7 = %v", obj[1])
	}

	s.CharucoIDs = []int{0, 99}
	if _, _, err := solverPoints(g, s); err == nil {
		t.Error("expected error for out-of-range corner id")
	}
	s.CharucoIDs = []int{0}
	if _, _, err := solverPoints(g, s); err == nil {
		t.Error("expected error for mismatched corner/id counts")
	}
}
