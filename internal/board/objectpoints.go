package board

import "fmt"

// Physical layout defaults shared by the stock calibration boards.
const (
	// DefaultSquareSize is the square/circle spacing in physical units.
	DefaultSquareSize = 16.3
	// DefaultDualGridGap is the separation between the white and black
	// sub-grids of a dual asymmetric circle board.
	DefaultDualGridGap = 295.0
)

// ObjectPoints maps a geometry to its 3-D object-space coordinates, in the
// same left-to-right, top-to-bottom order the detector reports image points.
// squareSize is the square/circle spacing; gridGap only applies to
// DualACircles. Charuco boards produce no object points here because the
// solver consumes raw corner/id pairs directly.
//
// The mapping is pure: identical inputs always produce identical sequences.
func ObjectPoints(g Geometry, squareSize, gridGap float32) ([]Point3f, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if squareSize <= 0 {
		return nil, fmt.Errorf("square size %v must be positive", squareSize)
	}

	w, h := g.Size.Width, g.Size.Height
	switch g.Type {
	case Chessboard:
		pts := make([]Point3f, 0, w*h)
		for i := 0; i < h; i++ {
			for j := 0; j < w; j++ {
				pts = append(pts, Point3f{float32(j) * squareSize, float32(i) * squareSize, 0})
			}
		}
		return pts, nil

	case ACircles:
		pts := make([]Point3f, 0, w*h)
		for i := 0; i < h; i++ {
			for j := 0; j < w; j++ {
				pts = append(pts, Point3f{float32(2*j+i%2) * squareSize, float32(i) * squareSize, 0})
			}
		}
		return pts, nil

	case DualACircles:
		if gridGap <= 0 {
			return nil, fmt.Errorf("grid gap %v must be positive", gridGap)
		}
		// Both lattices are recentred so the combined layout is centred at
		// the origin; the white grid is mirrored and shifted past the gap so
		// the two sit back-to-back around the centreline.
		gridWidth := float32(2*(w-1)+1) * squareSize
		centerX := gridWidth + gridGap/2
		centerY := float32(h-1) * squareSize / 2

		pts := make([]Point3f, 0, 2*w*h)
		for i := 0; i < h; i++ { // white sub-grid
			for j := 0; j < w; j++ {
				x := float32(2*j+i%2)*squareSize + gridGap + gridWidth - centerX
				pts = append(pts, Point3f{-x, -float32(i)*squareSize - centerY, 0})
			}
		}
		for i := 0; i < h; i++ { // black sub-grid
			for j := 0; j < w; j++ {
				x := float32(2*j+i%2)*squareSize - centerX
				pts = append(pts, Point3f{-x, -float32(i)*squareSize - centerY, 0})
			}
		}
		return pts, nil

	case Charuco:
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown board type %q", g.Type)
	}
}
