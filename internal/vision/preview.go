package vision

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/banshee-data/calibkit/internal/dataset"
)

// PreviewProcessor renders a live undistorted view once the dataset holds
// calibration parameters; before that it draws a fixed "not yet calibrated"
// marker. It is an unbounded live mode and never completes.
type PreviewProcessor struct {
	data *dataset.Dataset
}

// NewPreviewProcessor builds a preview over the shared dataset.
func NewPreviewProcessor(data *dataset.Dataset) *PreviewProcessor {
	return &PreviewProcessor{data: data}
}

// ProcessFrame undistorts the frame with an optimal new camera matrix
// computed for full field-of-view retention and overlays the focal-length /
// fit-error status, or the placeholder marker when no parameters exist yet.
func (p *PreviewProcessor) ProcessFrame(frame gocv.Mat) gocv.Mat {
	results, ok := p.data.Results()
	if !ok {
		out := frame.Clone()
		drawNotCalibratedMarker(&out)
		return out
	}

	camera := resultsCameraMat(results)
	defer camera.Close()
	dist := resultsDistMat(results)
	defer dist.Close()

	size := image.Pt(frame.Cols(), frame.Rows())
	newCamera, _ := gocv.GetOptimalNewCameraMatrixWithParams(camera, dist, size, 1.0, size, false)
	defer newCamera.Close()

	out := gocv.NewMat()
	gocv.Undistort(frame, &out, camera, dist, newCamera)

	drawBanner(&out, bannerUndistorted)
	drawStatusLine(&out, int(results.Fx()), int(results.Fy()), results.TotalAvgErr)
	return out
}

// IsComplete always reports false; preview is not a terminating task.
func (p *PreviewProcessor) IsComplete() bool { return false }

// Reset is a no-op; preview holds no per-mode state.
func (p *PreviewProcessor) Reset() {}

// resultsCameraMat converts the dataset camera matrix to a 3x3 CV64F Mat.
func resultsCameraMat(r dataset.Results) gocv.Mat {
	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.SetDoubleAt(i, j, r.CameraMatrix.At(i, j))
		}
	}
	return m
}

// resultsDistMat converts the distortion coefficient vector to a 1xN CV64F
// Mat.
func resultsDistMat(r dataset.Results) gocv.Mat {
	m := gocv.NewMatWithSize(1, len(r.DistCoeffs), gocv.MatTypeCV64F)
	for i, c := range r.DistCoeffs {
		m.SetDoubleAt(0, i, c)
	}
	return m
}
