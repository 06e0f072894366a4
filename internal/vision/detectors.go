package vision

import (
	"fmt"

	"github.com/banshee-data/calibkit/internal/board"
	"github.com/banshee-data/calibkit/internal/config"
)

// NewDetector builds the detector for a geometry. The blob tuning block of
// cfg only applies to the dual circle grid; cfg may be nil.
func NewDetector(g board.Geometry, cfg *config.TuningConfig) (Detector, error) {
	switch g.Type {
	case board.Chessboard:
		return NewChessboardDetector(g)
	case board.Charuco:
		return NewCharucoDetector(g)
	case board.ACircles:
		return NewACirclesDetector(g)
	case board.DualACircles:
		return NewDualACirclesDetector(g, cfg)
	default:
		return nil, fmt.Errorf("no detector for board type %q", g.Type)
	}
}
