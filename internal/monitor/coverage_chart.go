package monitor

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/calibkit/internal/httputil"
)

// handleCoverageChart renders an HTML scatter plot of every captured image
// point so the operator can see which regions of the frame the dataset
// covers. Y is inverted to match image coordinates.
func (ws *WebServer) handleCoverageChart(w http.ResponseWriter, r *http.Request) {
	samples := ws.data.Samples()
	if len(samples) == 0 {
		httputil.NotFound(w, "no samples captured yet")
		return
	}

	data := make([]opts.ScatterData, 0, 256)
	var maxX, maxY float32
	for i, s := range samples {
		points := s.ImagePoints
		if s.IsCharuco() {
			points = s.CharucoCorners
		}
		for _, p := range points {
			if p.X > maxX {
				maxX = p.X
			}
			if p.Y > maxY {
				maxY = p.Y
			}
			data = append(data, opts.ScatterData{Value: []interface{}{p.X, -p.Y, i}})
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Calibration Coverage", Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Captured image-point coverage",
			Subtitle: fmt.Sprintf("session=%s samples=%d points=%d", ws.data.SessionID(), len(samples), len(data)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: maxX * 1.05, Name: "x (px)"}),
		charts.WithYAxisOpts(opts.YAxis{Min: -maxY * 1.05, Max: 0, Name: "y (px)"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(len(samples) - 1),
			Dimension:  "2",
		}),
	)
	scatter.AddSeries("image points", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
