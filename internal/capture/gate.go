package capture

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultMaxOffsetDivisor derives the movement threshold from the frame
// diagonal: the anchor must stay within diagonal/20 (~5%) for a full
// history window before a capture triggers.
const DefaultMaxOffsetDivisor = 20.0

// StabilityGate decides when a handheld board has been deliberately
// presented and held, rather than merely visible. It maintains an
// AnchorHistory and fires once the anchor has drifted less than the
// movement threshold over a full window of consecutive frames.
type StabilityGate struct {
	history   *AnchorHistory
	maxOffset float64
}

// NewStabilityGate builds a gate for frames of the given resolution.
// historyCapacity <= 0 selects DefaultHistoryCapacity; divisor <= 0 selects
// DefaultMaxOffsetDivisor.
func NewStabilityGate(frameWidth, frameHeight int, historyCapacity int, divisor float64) (*StabilityGate, error) {
	if frameWidth <= 0 || frameHeight <= 0 {
		return nil, fmt.Errorf("frame size %dx%d must be positive", frameWidth, frameHeight)
	}
	if divisor <= 0 {
		divisor = DefaultMaxOffsetDivisor
	}
	diag := math.Hypot(float64(frameWidth), float64(frameHeight))
	return &StabilityGate{
		history:   NewAnchorHistory(historyCapacity),
		maxOffset: diag / divisor,
	}, nil
}

// MaxOffset returns the movement threshold in pixels.
func (g *StabilityGate) MaxOffset() float64 { return g.maxOffset }

// History exposes the underlying anchor history, primarily for reporting.
func (g *StabilityGate) History() *AnchorHistory { return g.history }

// Observe feeds one frame's outcome into the gate and reports whether a
// capture should trigger. A frame without a detection still ages the window
// (the oldest entry is evicted) but can never trigger. On a trigger the
// caller must Reset the gate before continuing, otherwise the same steady
// hold would fire again on the next frame.
func (g *StabilityGate) Observe(anchor r2.Vec, present bool) bool {
	if g.history.Full() {
		g.history.EvictOldest()
	}
	if present {
		g.history.Push(anchor)
	}
	if !g.history.Full() || !present {
		return false
	}
	return g.history.Drift() < g.maxOffset
}

// Reset empties the anchor history. Required after every trigger.
func (g *StabilityGate) Reset() {
	g.history.Reset()
}
