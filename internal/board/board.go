// Package board describes the calibration pattern families the capture
// pipeline understands and generates their object-space geometry.
package board

import "fmt"

// Type identifies the calibration pattern family.
type Type string

const (
	Chessboard   Type = "chessboard"    // classic checkerboard inner corners
	Charuco      Type = "charuco"       // ArUco markers interleaved with chessboard squares
	ACircles     Type = "acircles"      // asymmetric circle grid
	DualACircles Type = "dual_acircles" // back-to-back white/black asymmetric circle grids
)

// ParseType converts a user-supplied board name into a Type.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case Chessboard, Charuco, ACircles, DualACircles:
		return Type(s), nil
	}
	return "", fmt.Errorf("unknown board type %q", s)
}

// Size is the grid dimensions of a pattern: Width columns by Height rows.
// For a chessboard this counts inner corners, for circle grids it counts
// circles per row/column, for a ChArUco board it counts squares.
type Size struct {
	Width  int
	Height int
}

// Geometry pairs a pattern family with its grid dimensions. The detector
// and the object point generator both interpret raw detections through it.
type Geometry struct {
	Type Type
	Size Size
}

// Validate reports a configuration error for a geometry that can never
// produce a detection. A zero-sized grid is fatal at session construction,
// not a per-frame condition.
func (g Geometry) Validate() error {
	if _, err := ParseType(string(g.Type)); err != nil {
		return err
	}
	if g.Size.Width <= 0 || g.Size.Height <= 0 {
		return fmt.Errorf("board %s: grid size %dx%d must be positive", g.Type, g.Size.Width, g.Size.Height)
	}
	return nil
}

// PointCount returns the number of 2-D points a complete detection of this
// geometry carries. For ChArUco boards the count is the number of interior
// chessboard corners; detections may legitimately carry fewer.
func (g Geometry) PointCount() int {
	switch g.Type {
	case Charuco:
		return (g.Size.Width - 1) * (g.Size.Height - 1)
	case DualACircles:
		return 2 * g.Size.Width * g.Size.Height
	default:
		return g.Size.Width * g.Size.Height
	}
}

// Point2f is a detected image-space location in pixels.
type Point2f struct {
	X float32
	Y float32
}

// Point3f is an object-space location in the board's physical units.
type Point3f struct {
	X float32
	Y float32
	Z float32
}
