package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/calibkit/internal/board"
	"github.com/banshee-data/calibkit/internal/capture"
	"github.com/banshee-data/calibkit/internal/config"
)

// ACirclesDetector locates a single asymmetric circle grid with the
// standard detector and default blob parameters.
type ACirclesDetector struct {
	size image.Point
}

// NewACirclesDetector builds a detector for the given geometry.
func NewACirclesDetector(g board.Geometry) (*ACirclesDetector, error) {
	if g.Type != board.ACircles {
		return nil, fmt.Errorf("acircles detector: got board type %q", g.Type)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("acircles detector: %w", err)
	}
	return &ACirclesDetector{size: image.Pt(g.Size.Width, g.Size.Height)}, nil
}

// Detect returns the grid points with the first as the anchor.
func (d *ACirclesDetector) Detect(img *gocv.Mat) (capture.Detection, error) {
	centers := gocv.NewMat()
	defer centers.Close()

	if !gocv.FindCirclesGrid(*img, d.size, &centers, gocv.CalibCBAsymmetricGrid) {
		return capture.Absent(), nil
	}
	gocv.DrawChessboardCorners(img, d.size, centers, true)

	points := matToPoints(centers)
	if len(points) == 0 {
		return capture.Absent(), nil
	}
	return capture.Detection{
		Found:  true,
		Points: points,
		Anchor: r2.Vec{X: float64(points[0].X), Y: float64(points[0].Y)},
	}, nil
}

// DualACirclesDetector locates two asymmetric circle grids on the same
// frame: the "white" sub-grid on the frame as-is and the "black" sub-grid on
// its photometric inverse. Both must be found or the whole detection fails;
// partial results are discarded, never saved.
type DualACirclesDetector struct {
	size   image.Point
	tuning *config.TuningConfig
}

// NewDualACirclesDetector builds a detector using the blob tuning block from
// cfg. cfg may be nil, selecting the compiled defaults.
func NewDualACirclesDetector(g board.Geometry, cfg *config.TuningConfig) (*DualACirclesDetector, error) {
	if g.Type != board.DualACircles {
		return nil, fmt.Errorf("dual acircles detector: got board type %q", g.Type)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("dual acircles detector: %w", err)
	}
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	return &DualACirclesDetector{size: image.Pt(g.Size.Width, g.Size.Height), tuning: cfg}, nil
}

// blobParams builds the tuned SimpleBlobDetector parameters: small dark
// blobs, circularity filter off, inertia and convexity floors on.
func (d *DualACirclesDetector) blobParams() gocv.SimpleBlobDetectorParams {
	params := gocv.NewSimpleBlobDetectorParams()
	params.SetThresholdStep(d.tuning.GetBlobThresholdStep())
	params.SetMinThreshold(d.tuning.GetBlobMinThreshold())
	params.SetMaxThreshold(d.tuning.GetBlobMaxThreshold())
	params.SetMinRepeatability(d.tuning.GetBlobMinRepeatability())
	params.SetMinDistBetweenBlobs(d.tuning.GetBlobMinDistBetween())

	params.SetFilterByColor(true)
	params.SetBlobColor(0)

	params.SetFilterByArea(true)
	params.SetMinArea(d.tuning.GetBlobMinArea())
	params.SetMaxArea(d.tuning.GetBlobMaxArea())

	params.SetFilterByCircularity(false)

	params.SetFilterByInertia(true)
	params.SetMinInertiaRatio(d.tuning.GetBlobMinInertiaRatio())

	params.SetFilterByConvexity(true)
	params.SetMinConvexity(d.tuning.GetBlobMinConvexity())

	return params
}

// Detect runs the grid search on both polarities. gocv exposes no
// custom-detector overload of FindCirclesGrid, so the tuned blob detector is
// applied as a pre-gate: each polarity must yield at least a grid's worth of
// blobs before the grid search runs.
func (d *DualACirclesDetector) Detect(img *gocv.Mat) (capture.Detection, error) {
	inverted := gocv.NewMat()
	defer inverted.Close()
	gocv.BitwiseNot(*img, &inverted)

	params := d.blobParams()
	blobDetector := gocv.NewSimpleBlobDetectorWithParams(params)
	defer blobDetector.Close()

	need := d.size.X * d.size.Y
	if len(blobDetector.Detect(*img)) < need {
		return capture.Absent(), nil
	}

	whiteCenters := gocv.NewMat()
	defer whiteCenters.Close()
	if !gocv.FindCirclesGrid(*img, d.size, &whiteCenters, gocv.CalibCBAsymmetricGrid) {
		return capture.Absent(), nil
	}

	// Half success is full failure: white-grid points are discarded unless
	// the black grid is found too.
	if len(blobDetector.Detect(inverted)) < need {
		return capture.Absent(), nil
	}
	blackCenters := gocv.NewMat()
	defer blackCenters.Close()
	if !gocv.FindCirclesGrid(inverted, d.size, &blackCenters, gocv.CalibCBAsymmetricGrid) {
		return capture.Absent(), nil
	}

	gocv.DrawChessboardCorners(img, d.size, whiteCenters, true)
	gocv.DrawChessboardCorners(img, d.size, blackCenters, true)

	white := matToPoints(whiteCenters)
	black := matToPoints(blackCenters)
	if len(white) == 0 || len(black) == 0 {
		return capture.Absent(), nil
	}

	points := make([]board.Point2f, 0, len(white)+len(black))
	points = append(points, white...)
	points = append(points, black...)
	return capture.Detection{
		Found:  true,
		Points: points,
		Anchor: r2.Vec{X: float64(white[0].X), Y: float64(white[0].Y)},
	}, nil
}
