package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/calibkit/internal/board"
	"github.com/banshee-data/calibkit/internal/capture"
)

// Stock ChArUco board layout: 6x8 squares, square side 200, marker side 100,
// markers drawn from predefined dictionary 0.
const (
	charucoSquaresX  = 6
	charucoSquaresY  = 8
	charucoSquareLen = 200.0
	charucoMarkerLen = 100.0
)

// CharucoDetector locates ArUco markers from the fixed predefined dictionary
// and interpolates the board's interior chessboard corners between them.
// Detection succeeds only when at least one interpolated corner exists.
type CharucoDetector struct {
	detector gocv.ArucoDetector
	squaresX int
	squaresY int
}

// NewCharucoDetector builds a detector for the given geometry. The geometry
// size counts squares; the stock board is 6x8.
func NewCharucoDetector(g board.Geometry) (*CharucoDetector, error) {
	if g.Type != board.Charuco {
		return nil, fmt.Errorf("charuco detector: got board type %q", g.Type)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("charuco detector: %w", err)
	}
	if g.Size.Width < 2 || g.Size.Height < 2 {
		return nil, fmt.Errorf("charuco detector: board %dx%d has no interior corners", g.Size.Width, g.Size.Height)
	}
	dict := gocv.GetPredefinedDictionary(gocv.ArucoDict4x4_50)
	params := gocv.NewArucoDetectorParameters()
	return &CharucoDetector{
		detector: gocv.NewArucoDetectorWithParams(dict, params),
		squaresX: g.Size.Width,
		squaresY: g.Size.Height,
	}, nil
}

// Close releases the underlying ArUco detector.
func (d *CharucoDetector) Close() error {
	d.detector.Close()
	return nil
}

// Detect finds markers, fits a board-plane homography over every usable
// marker corner, and projects the interior chessboard corners through it.
// The anchor is the centroid of the interpolated corners.
func (d *CharucoDetector) Detect(img *gocv.Mat) (capture.Detection, error) {
	markerCorners, markerIDs, _ := d.detector.DetectMarkers(*img)
	if len(markerIDs) == 0 {
		return capture.Absent(), nil
	}
	gocv.ArucoDrawDetectedMarkers(*img, markerCorners, markerIDs, bannerGreen)

	var src, dst []r2.Vec // board plane -> image plane
	for i, id := range markerIDs {
		obj, ok := d.markerObjectCorners(id)
		if !ok || len(markerCorners[i]) != 4 {
			continue
		}
		for c := 0; c < 4; c++ {
			src = append(src, obj[c])
			dst = append(dst, r2.Vec{X: float64(markerCorners[i][c].X), Y: float64(markerCorners[i][c].Y)})
		}
	}
	if len(src) < 4 {
		return capture.Absent(), nil
	}

	h, err := fitHomography(src, dst)
	if err != nil {
		return capture.Absent(), fmt.Errorf("charuco: %w", err)
	}

	cols, rows := img.Cols(), img.Rows()
	var points []board.Point2f
	var ids []int
	var sumX, sumY float64
	for cy := 1; cy < d.squaresY; cy++ {
		for cx := 1; cx < d.squaresX; cx++ {
			p := applyHomography(h, r2.Vec{X: float64(cx) * charucoSquareLen, Y: float64(cy) * charucoSquareLen})
			if p.X < 0 || p.Y < 0 || p.X >= float64(cols) || p.Y >= float64(rows) {
				continue
			}
			points = append(points, board.Point2f{X: float32(p.X), Y: float32(p.Y)})
			ids = append(ids, (cy-1)*(d.squaresX-1)+(cx-1))
			sumX += p.X
			sumY += p.Y
			gocv.Circle(img, image.Pt(int(p.X), int(p.Y)), 4, statusRed, 2)
		}
	}
	if len(points) == 0 {
		return capture.Absent(), nil
	}

	n := float64(len(points))
	return capture.Detection{
		Found:  true,
		Points: points,
		IDs:    ids,
		Anchor: r2.Vec{X: sumX / n, Y: sumY / n},
	}, nil
}

// markerObjectCorners returns the board-plane corners (TL TR BR BL) of the
// marker with the given id, matching the detector's corner order. Markers
// occupy alternating squares row-major; ids beyond the board are rejected
// rather than recovered.
func (d *CharucoDetector) markerObjectCorners(id int) ([4]r2.Vec, bool) {
	idx := 0
	for y := 0; y < d.squaresY; y++ {
		for x := 0; x < d.squaresX; x++ {
			if (x+y)%2 != 0 {
				continue
			}
			if idx == id {
				margin := (charucoSquareLen - charucoMarkerLen) / 2
				left := float64(x)*charucoSquareLen + margin
				top := float64(y)*charucoSquareLen + margin
				return [4]r2.Vec{
					{X: left, Y: top},
					{X: left + charucoMarkerLen, Y: top},
					{X: left + charucoMarkerLen, Y: top + charucoMarkerLen},
					{X: left, Y: top + charucoMarkerLen},
				}, true
			}
			idx++
		}
	}
	return [4]r2.Vec{}, false
}

// fitHomography estimates the 3x3 planar homography mapping src to dst by
// direct linear transform, taking the null-space of the stacked constraint
// matrix via SVD.
func fitHomography(src, dst []r2.Vec) (*mat.Dense, error) {
	if len(src) != len(dst) || len(src) < 4 {
		return nil, fmt.Errorf("homography needs at least 4 correspondences, got %d", len(src))
	}

	a := mat.NewDense(2*len(src), 9, nil)
	for i := range src {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	// Full factorization: with the minimum 4 correspondences the matrix is
	// 8x9 and the null-space vector is outside a thin SVD's V.
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFullV) {
		return nil, fmt.Errorf("homography SVD failed to factorize")
	}
	var v mat.Dense
	svd.VTo(&v)

	_, cols := v.Dims()
	h := mat.NewDense(3, 3, nil)
	for i := 0; i < 9; i++ {
		h.Set(i/3, i%3, v.At(i, cols-1))
	}
	if h.At(2, 2) == 0 {
		return nil, fmt.Errorf("homography is degenerate")
	}
	h.Scale(1/h.At(2, 2), h)
	return h, nil
}

// applyHomography maps a board-plane point into the image plane.
func applyHomography(h *mat.Dense, p r2.Vec) r2.Vec {
	w := h.At(2, 0)*p.X + h.At(2, 1)*p.Y + h.At(2, 2)
	return r2.Vec{
		X: (h.At(0, 0)*p.X + h.At(0, 1)*p.Y + h.At(0, 2)) / w,
		Y: (h.At(1, 0)*p.X + h.At(1, 1)*p.Y + h.At(1, 2)) / w,
	}
}
