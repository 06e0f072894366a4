package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/calibkit/internal/board"
	"github.com/banshee-data/calibkit/internal/capture"
)

// Corner refinement bounds: a local 11x11 window, iterating until 30 rounds
// or 0.1-unit convergence, whichever comes first.
const (
	subPixWindow  = 11
	subPixMaxIter = 30
	subPixEpsilon = 0.1
)

// ChessboardDetector locates classic checkerboard inner corners with
// adaptive thresholding, normalization, and a fast-reject pre-check, then
// refines each corner to sub-pixel accuracy.
type ChessboardDetector struct {
	size image.Point
}

// NewChessboardDetector builds a detector for the given geometry.
func NewChessboardDetector(g board.Geometry) (*ChessboardDetector, error) {
	if g.Type != board.Chessboard {
		return nil, fmt.Errorf("chessboard detector: got board type %q", g.Type)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("chessboard detector: %w", err)
	}
	return &ChessboardDetector{size: image.Pt(g.Size.Width, g.Size.Height)}, nil
}

// Detect returns the detector-ordered corners with the first refined corner
// as the anchor, drawing them onto img on success.
func (d *ChessboardDetector) Detect(img *gocv.Mat) (capture.Detection, error) {
	corners := gocv.NewMat()
	defer corners.Close()

	flags := gocv.CalibCBAdaptiveThresh | gocv.CalibCBNormalizeImage | gocv.CalibCBFastCheck
	if !gocv.FindChessboardCorners(*img, d.size, &corners, flags) {
		return capture.Absent(), nil
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(*img, &gray, gocv.ColorBGRToGray)
	criteria := gocv.NewTermCriteria(gocv.Count|gocv.EPS, subPixMaxIter, subPixEpsilon)
	gocv.CornerSubPix(gray, &corners, image.Pt(subPixWindow, subPixWindow), image.Pt(-1, -1), criteria)

	gocv.DrawChessboardCorners(img, d.size, corners, true)

	points := matToPoints(corners)
	if len(points) == 0 {
		return capture.Absent(), nil
	}
	return capture.Detection{
		Found:  true,
		Points: points,
		Anchor: r2.Vec{X: float64(points[0].X), Y: float64(points[0].Y)},
	}, nil
}

// matToPoints flattens an Nx1 two-channel float Mat of image points.
func matToPoints(m gocv.Mat) []board.Point2f {
	points := make([]board.Point2f, 0, m.Rows())
	for i := 0; i < m.Rows(); i++ {
		v := m.GetVecfAt(i, 0)
		if len(v) < 2 {
			continue
		}
		points = append(points, board.Point2f{X: v[0], Y: v[1]})
	}
	return points
}
