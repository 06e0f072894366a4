package vision

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Overlay text contracts shared with the display layer.
const (
	bannerFrameCaptured = "Frame captured"
	bannerUndistorted   = "Undistorted view"
	videoTextScale      = 4
	videoTextThickness  = 2
)

var (
	bannerGreen = color.RGBA{G: 255}
	statusRed   = color.RGBA{R: 255}
)

// drawBanner writes text in the bottom-right corner of img.
func drawBanner(img *gocv.Mat, text string) {
	size, baseline := gocv.GetTextSizeWithBaseline(text, gocv.FontHersheyPlain, videoTextScale, videoTextThickness)
	origin := image.Pt(img.Cols()-2*size.X-10, img.Rows()-2*baseline-10)
	gocv.PutText(img, text, origin, gocv.FontHersheyPlain, videoTextScale, bannerGreen, videoTextThickness)
}

// drawStatusLine writes the focal length / fit error status in the top-left
// corner of img.
func drawStatusLine(img *gocv.Mat, fx, fy int, rms float64) {
	text := fmt.Sprintf("Fx = %d Fy = %d RMS = %f", fx, fy, rms)
	size, _ := gocv.GetTextSizeWithBaseline(text, gocv.FontHersheyPlain, videoTextScale-1, videoTextThickness)
	origin := image.Pt(20, 2*size.Y)
	gocv.PutText(img, text, origin, gocv.FontHersheyPlain, videoTextScale, statusRed, videoTextThickness)
}

// drawNotCalibratedMarker draws the fixed placeholder indicator shown before
// calibration parameters exist.
func drawNotCalibratedMarker(img *gocv.Mat) {
	gocv.Circle(img, image.Pt(100, 100), 10, bannerGreen, 10)
}
