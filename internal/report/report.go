// Package report writes post-run PNG plots of a capture session: the anchor
// trajectory the stability gate observed and the image-point coverage of
// the captured samples.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/calibkit/internal/dataset"
	"github.com/banshee-data/calibkit/internal/security"
)

// SessionReport collects what the plots need from a finished (or aborted)
// capture run.
type SessionReport struct {
	SessionID   string
	FrameWidth  int
	FrameHeight int
	AnchorTrail []r2.Vec
	Samples     []dataset.Sample
}

// Write renders the plots into outputDir, creating it if needed. The
// directory must sit under the working directory or the system temp dir.
// Plots with no data are skipped rather than rendered empty.
func Write(rep SessionReport, outputDir string) error {
	if err := security.ValidateExportPath(outputDir); err != nil {
		return fmt.Errorf("report dir: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if len(rep.AnchorTrail) > 0 {
		if err := writeTrajectory(rep, outputDir); err != nil {
			return err
		}
	}
	if len(rep.Samples) > 0 {
		if err := writeCoverage(rep, outputDir); err != nil {
			return err
		}
	}
	return nil
}

// writeTrajectory plots the anchor path across detected frames, in image
// coordinates (y grows downward, so it is negated for display).
func writeTrajectory(rep SessionReport, outputDir string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Anchor trajectory (session %s)", rep.SessionID)
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "y (px)"
	p.X.Min, p.X.Max = 0, float64(rep.FrameWidth)
	p.Y.Min, p.Y.Max = -float64(rep.FrameHeight), 0

	pts := make(plotter.XYs, 0, len(rep.AnchorTrail))
	for _, a := range rep.AnchorTrail {
		pts = append(pts, plotter.XY{X: a.X, Y: -a.Y})
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("trajectory line: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)

	out := filepath.Join(outputDir, "anchor_trajectory.png")
	if err := p.Save(10*vg.Inch, 7.5*vg.Inch, out); err != nil {
		return fmt.Errorf("save %s: %w", out, err)
	}
	return nil
}

// writeCoverage scatters every captured image point over the frame extent.
func writeCoverage(rep SessionReport, outputDir string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Sample coverage (%d samples)", len(rep.Samples))
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "y (px)"
	p.X.Min, p.X.Max = 0, float64(rep.FrameWidth)
	p.Y.Min, p.Y.Max = -float64(rep.FrameHeight), 0

	pts := make(plotter.XYs, 0, 256)
	for _, s := range rep.Samples {
		points := s.ImagePoints
		if s.IsCharuco() {
			points = s.CharucoCorners
		}
		for _, ip := range points {
			pts = append(pts, plotter.XY{X: float64(ip.X), Y: -float64(ip.Y)})
		}
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("coverage scatter: %w", err)
	}
	scatter.Radius = vg.Points(1.5)
	p.Add(scatter)

	out := filepath.Join(outputDir, "sample_coverage.png")
	if err := p.Save(10*vg.Inch, 7.5*vg.Inch, out); err != nil {
		return fmt.Errorf("save %s: %w", out, err)
	}
	return nil
}
