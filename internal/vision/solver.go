package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/calibkit/internal/board"
	"github.com/banshee-data/calibkit/internal/dataset"
)

// Solve runs the external calibration solver over the accumulated dataset
// and writes the camera matrix, distortion coefficients, and RMS fit error
// back into it. The numerical estimation itself is entirely the vision
// library's; this is only the boundary call and the write-back.
func Solve(data *dataset.Dataset, frameWidth, frameHeight int) (dataset.Results, error) {
	samples := data.Samples()
	if len(samples) == 0 {
		return dataset.Results{}, fmt.Errorf("solve: dataset holds no samples")
	}

	objectPoints := gocv.NewPoints3fVector()
	defer objectPoints.Close()
	imagePoints := gocv.NewPoints2fVector()
	defer imagePoints.Close()

	for i, s := range samples {
		img, obj, err := solverPoints(data.Geometry(), s)
		if err != nil {
			return dataset.Results{}, fmt.Errorf("solve: sample %d: %w", i, err)
		}
		// Append copies the vector contents, so the per-sample vectors
		// can be released immediately.
		objVec := gocv.NewPoint3fVectorFromPoints(obj)
		objectPoints.Append(objVec)
		objVec.Close()
		imgVec := gocv.NewPoint2fVectorFromPoints(img)
		imagePoints.Append(imgVec)
		imgVec.Close()
	}

	camera := gocv.NewMat()
	defer camera.Close()
	dist := gocv.NewMat()
	defer dist.Close()
	rvecs := gocv.NewMat()
	defer rvecs.Close()
	tvecs := gocv.NewMat()
	defer tvecs.Close()

	rms := gocv.CalibrateCamera(objectPoints, imagePoints,
		image.Pt(frameWidth, frameHeight), &camera, &dist, &rvecs, &tvecs, 0)

	results := dataset.Results{
		CameraMatrix: denseFromMat3x3(camera),
		DistCoeffs:   distFromMat(dist),
		TotalAvgErr:  rms,
	}
	if err := data.SetResults(results); err != nil {
		return dataset.Results{}, fmt.Errorf("solve: %w", err)
	}
	return results, nil
}

// solverPoints converts one sample into paired gocv point sets. ChArUco
// samples derive object points from the board layout by corner id; the
// geometric families carry theirs already.
func solverPoints(g board.Geometry, s dataset.Sample) ([]gocv.Point2f, []gocv.Point3f, error) {
	if s.IsCharuco() {
		if len(s.CharucoCorners) != len(s.CharucoIDs) {
			return nil, nil, fmt.Errorf("%d corners but %d ids", len(s.CharucoCorners), len(s.CharucoIDs))
		}
		img := make([]gocv.Point2f, 0, len(s.CharucoCorners))
		obj := make([]gocv.Point3f, 0, len(s.CharucoCorners))
		for i, c := range s.CharucoCorners {
			p, err := charucoCornerObjectPoint(g, s.CharucoIDs[i])
			if err != nil {
				return nil, nil, err
			}
			img = append(img, gocv.Point2f{X: c.X, Y: c.Y})
			obj = append(obj, p)
		}
		return img, obj, nil
	}

	if len(s.ImagePoints) != len(s.ObjectPoints) {
		return nil, nil, fmt.Errorf("%d image points but %d object points", len(s.ImagePoints), len(s.ObjectPoints))
	}
	img := make([]gocv.Point2f, 0, len(s.ImagePoints))
	obj := make([]gocv.Point3f, 0, len(s.ObjectPoints))
	for i := range s.ImagePoints {
		img = append(img, gocv.Point2f{X: s.ImagePoints[i].X, Y: s.ImagePoints[i].Y})
		obj = append(obj, gocv.Point3f{X: s.ObjectPoints[i].X, Y: s.ObjectPoints[i].Y, Z: s.ObjectPoints[i].Z})
	}
	return img, obj, nil
}

// charucoCornerObjectPoint maps an interior-corner id back to its
// board-plane position.
func charucoCornerObjectPoint(g board.Geometry, id int) (gocv.Point3f, error) {
	cornersPerRow := g.Size.Width - 1
	total := cornersPerRow * (g.Size.Height - 1)
	if cornersPerRow < 1 || id < 0 || id >= total {
		return gocv.Point3f{}, fmt.Errorf("charuco corner id %d out of range for %dx%d board", id, g.Size.Width, g.Size.Height)
	}
	cx := id%cornersPerRow + 1
	cy := id/cornersPerRow + 1
	return gocv.Point3f{
		X: float32(float64(cx) * charucoSquareLen),
		Y: float32(float64(cy) * charucoSquareLen),
	}, nil
}

// denseFromMat3x3 copies a 3x3 CV64F Mat into a gonum matrix.
func denseFromMat3x3(m gocv.Mat) *mat.Dense {
	out := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.Set(i, j, m.GetDoubleAt(i, j))
		}
	}
	return out
}

// distFromMat flattens the solver's distortion coefficient Mat.
func distFromMat(m gocv.Mat) []float64 {
	n := m.Rows() * m.Cols()
	out := make([]float64, 0, n)
	for i := 0; i < m.Rows(); i++ {
		for j := 0; j < m.Cols(); j++ {
			out = append(out, m.GetDoubleAt(i, j))
		}
	}
	return out
}
