package capture

import "gonum.org/v1/gonum/spatial/r2"

// DefaultHistoryCapacity is the number of consecutive frames the anchor must
// be observed over before a capture can trigger.
const DefaultHistoryCapacity = 30

// AnchorHistory is a fixed-capacity, most-recent-first trajectory of the
// pattern anchor across the last N frames. Length never exceeds capacity;
// the oldest entry is evicted as new ones arrive.
type AnchorHistory struct {
	capacity int
	points   []r2.Vec
}

// NewAnchorHistory creates a history with the given capacity. Capacities
// below 1 fall back to DefaultHistoryCapacity.
func NewAnchorHistory(capacity int) *AnchorHistory {
	if capacity < 1 {
		capacity = DefaultHistoryCapacity
	}
	return &AnchorHistory{capacity: capacity}
}

// Capacity returns the fixed capacity of the history.
func (h *AnchorHistory) Capacity() int { return h.capacity }

// Len returns the number of anchors currently stored.
func (h *AnchorHistory) Len() int { return len(h.points) }

// Full reports whether the history holds exactly capacity entries.
func (h *AnchorHistory) Full() bool { return len(h.points) == h.capacity }

// Push inserts an anchor at the front (most recent). The caller is expected
// to EvictOldest first when the history is full.
func (h *AnchorHistory) Push(p r2.Vec) {
	h.points = append([]r2.Vec{p}, h.points...)
}

// EvictOldest drops the least recent anchor, if any.
func (h *AnchorHistory) EvictOldest() {
	if len(h.points) > 0 {
		h.points = h.points[:len(h.points)-1]
	}
}

// Newest returns the most recent anchor. Only valid when Len() > 0.
func (h *AnchorHistory) Newest() r2.Vec { return h.points[0] }

// Oldest returns the least recent anchor. Only valid when Len() > 0.
func (h *AnchorHistory) Oldest() r2.Vec { return h.points[len(h.points)-1] }

// Drift is the Euclidean distance between the newest and oldest stored
// anchors. It is zero for histories with fewer than two entries.
func (h *AnchorHistory) Drift() float64 {
	if len(h.points) < 2 {
		return 0
	}
	return r2.Norm(r2.Sub(h.Newest(), h.Oldest()))
}

// Reset empties the history without changing its capacity.
func (h *AnchorHistory) Reset() {
	h.points = h.points[:0]
}
