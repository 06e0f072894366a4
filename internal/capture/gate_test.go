package capture

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func newTestGate(t *testing.T) *StabilityGate {
	t.Helper()
	g, err := NewStabilityGate(1280, 960, 0, 0)
	if err != nil {
		t.Fatalf("NewStabilityGate: %v", err)
	}
	return g
}

func TestStabilityGateThreshold(t *testing.T) {
	g := newTestGate(t)
	want := math.Hypot(1280, 960) / 20
	if got := g.MaxOffset(); math.Abs(got-want) > 1e-9 {
		t.Errorf("max offset = %v, want %v (80)", got, want)
	}
	// 1280x960 has a 1600px diagonal, so the threshold is a round 80.
	if math.Abs(g.MaxOffset()-80) > 1e-9 {
		t.Errorf("max offset = %v, want 80", g.MaxOffset())
	}
}

func TestStabilityGateRejectsBadFrameSize(t *testing.T) {
	if _, err := NewStabilityGate(0, 960, 0, 0); err == nil {
		t.Error("expected error for zero frame width")
	}
	if _, err := NewStabilityGate(1280, -1, 0, 0); err == nil {
		t.Error("expected error for negative frame height")
	}
}

// A steady hold must not fire before the window fills, must fire exactly
// once when it does, and must not fire again until a fresh window has
// accumulated after the reset.
func TestStabilityGateSteadyHoldFiresOnce(t *testing.T) {
	g := newTestGate(t)
	anchor := r2.Vec{X: 640, Y: 480}

	for i := 0; i < DefaultHistoryCapacity-1; i++ {
		if g.Observe(anchor, true) {
			t.Fatalf("gate fired at frame %d, before the window filled", i)
		}
	}
	if !g.Observe(anchor, true) {
		t.Fatal("gate did not fire on the frame that filled the window")
	}
	g.Reset()
	if g.History().Len() != 0 {
		t.Fatalf("history holds %d anchors after reset, want 0", g.History().Len())
	}

	// The same steady hold needs another full window before firing again.
	for i := 0; i < DefaultHistoryCapacity-1; i++ {
		if g.Observe(anchor, true) {
			t.Fatalf("gate re-fired at frame %d after reset", i)
		}
	}
	if !g.Observe(anchor, true) {
		t.Fatal("gate did not re-fire after a second full window")
	}
}

func TestStabilityGateMovementBlocksTrigger(t *testing.T) {
	g := newTestGate(t)

	// Drift of exactly the threshold between oldest and newest: no trigger.
	g.Observe(r2.Vec{X: 0, Y: 0}, true)
	anchor := r2.Vec{X: 40, Y: 40}
	for i := 0; i < DefaultHistoryCapacity-2; i++ {
		g.Observe(anchor, true)
	}
	if g.Observe(r2.Vec{X: 80, Y: 0}, true) {
		t.Error("gate fired with drift equal to the threshold")
	}

	// Once the large first anchor ages out the drift collapses and the
	// window can fire again.
	g.Reset()
	g.Observe(r2.Vec{X: 500, Y: 500}, true)
	fired := false
	for i := 0; i < 2*DefaultHistoryCapacity; i++ {
		if g.Observe(r2.Vec{X: 10, Y: 10}, true) {
			fired = true
			break
		}
	}
	if !fired {
		t.Error("gate never fired after the outlier anchor aged out")
	}
}

// Frames with no detection still age the window, so an interrupted hold
// cannot trigger until the history refills with real anchors.
func TestStabilityGateAbsentFramesAgeWindow(t *testing.T) {
	g := newTestGate(t)
	anchor := r2.Vec{X: 100, Y: 100}

	for i := 0; i < DefaultHistoryCapacity; i++ {
		g.Observe(anchor, true)
	}
	// The window is full, but an absent frame both evicts and blocks.
	if g.Observe(r2.Vec{}, false) {
		t.Error("gate fired on an absent frame")
	}
	if g.History().Len() != DefaultHistoryCapacity-1 {
		t.Errorf("history len = %d after absent frame, want %d",
			g.History().Len(), DefaultHistoryCapacity-1)
	}
	// One more present frame refills the window and the hold fires.
	if !g.Observe(anchor, true) {
		t.Error("gate did not fire once the window refilled")
	}
}

func TestStabilityGateBelowCapacityAbsentFrames(t *testing.T) {
	g := newTestGate(t)
	// Eviction only happens at capacity, so a short interruption keeps the
	// anchors accumulated so far.
	g.Observe(r2.Vec{X: 5, Y: 5}, true)
	g.Observe(r2.Vec{X: 5, Y: 5}, true)
	g.Observe(r2.Vec{}, false)
	if g.History().Len() != 2 {
		t.Errorf("history len = %d, want 2", g.History().Len())
	}
}
