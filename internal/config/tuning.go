// Package config loads the JSON tuning file for the capture pipeline.
// Fields omitted from the JSON retain compiled defaults, so partial configs
// are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Compiled defaults. The movement threshold is derived from the frame
// diagonal at runtime, not stored here.
const (
	DefaultFrameWidth       = 1280
	DefaultFrameHeight      = 960
	DefaultHistoryCapacity  = 30
	DefaultMaxOffsetDivisor = 20.0
	DefaultTargetFrames     = 1
	DefaultCaptureHold      = 300 * time.Millisecond
	DefaultSquareSize       = 16.3
	DefaultDualGridGap      = 295.0
)

// Blob detector defaults for the dual asymmetric circle grid, tuned for
// small dark low-circularity blobs.
const (
	DefaultBlobThresholdStep    = 40.0
	DefaultBlobMinThreshold     = 20.0
	DefaultBlobMaxThreshold     = 500.0
	DefaultBlobMinRepeatability = 2
	DefaultBlobMinDistBetween   = 5.0
	DefaultBlobMinArea          = 5.0
	DefaultBlobMaxArea          = 5000.0
	DefaultBlobMinInertiaRatio  = 0.1
	DefaultBlobMinConvexity     = 0.8
)

// TuningConfig is the root tuning document. All fields are optional
// pointers so the JSON can override any subset.
type TuningConfig struct {
	// Frame / gate params
	FrameWidth       *int     `json:"frame_width,omitempty"`
	FrameHeight      *int     `json:"frame_height,omitempty"`
	HistoryCapacity  *int     `json:"history_capacity,omitempty"`
	MaxOffsetDivisor *float64 `json:"max_offset_divisor,omitempty"`
	TargetFrames     *int     `json:"target_frames,omitempty"`
	CaptureHold      *string  `json:"capture_hold,omitempty"` // duration string like "300ms"

	// Board physical params
	SquareSize  *float64 `json:"square_size,omitempty"`
	DualGridGap *float64 `json:"dual_grid_gap,omitempty"`

	// Blob detector params (dual circle grid)
	BlobThresholdStep    *float64 `json:"blob_threshold_step,omitempty"`
	BlobMinThreshold     *float64 `json:"blob_min_threshold,omitempty"`
	BlobMaxThreshold     *float64 `json:"blob_max_threshold,omitempty"`
	BlobMinRepeatability *int     `json:"blob_min_repeatability,omitempty"`
	BlobMinDistBetween   *float64 `json:"blob_min_dist_between,omitempty"`
	BlobMinArea          *float64 `json:"blob_min_area,omitempty"`
	BlobMaxArea          *float64 `json:"blob_max_area,omitempty"`
	BlobMinInertiaRatio  *float64 `json:"blob_min_inertia_ratio,omitempty"`
	BlobMinConvexity     *float64 `json:"blob_min_convexity,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset; the Get*
// accessors then serve compiled defaults.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The path must have
// a .json extension and the file must be under 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks every set field for a usable value.
func (c *TuningConfig) Validate() error {
	if c.FrameWidth != nil && *c.FrameWidth <= 0 {
		return fmt.Errorf("frame_width must be positive, got %d", *c.FrameWidth)
	}
	if c.FrameHeight != nil && *c.FrameHeight <= 0 {
		return fmt.Errorf("frame_height must be positive, got %d", *c.FrameHeight)
	}
	if c.HistoryCapacity != nil && *c.HistoryCapacity < 2 {
		return fmt.Errorf("history_capacity must be at least 2, got %d", *c.HistoryCapacity)
	}
	if c.MaxOffsetDivisor != nil && *c.MaxOffsetDivisor <= 0 {
		return fmt.Errorf("max_offset_divisor must be positive, got %v", *c.MaxOffsetDivisor)
	}
	if c.TargetFrames != nil && *c.TargetFrames < 1 {
		return fmt.Errorf("target_frames must be at least 1, got %d", *c.TargetFrames)
	}
	if c.CaptureHold != nil {
		d, err := time.ParseDuration(*c.CaptureHold)
		if err != nil {
			return fmt.Errorf("capture_hold: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("capture_hold must not be negative, got %v", d)
		}
	}
	if c.SquareSize != nil && *c.SquareSize <= 0 {
		return fmt.Errorf("square_size must be positive, got %v", *c.SquareSize)
	}
	if c.DualGridGap != nil && *c.DualGridGap <= 0 {
		return fmt.Errorf("dual_grid_gap must be positive, got %v", *c.DualGridGap)
	}
	if c.BlobMinArea != nil && c.BlobMaxArea != nil && *c.BlobMinArea > *c.BlobMaxArea {
		return fmt.Errorf("blob_min_area %v exceeds blob_max_area %v", *c.BlobMinArea, *c.BlobMaxArea)
	}
	if c.BlobMinRepeatability != nil && *c.BlobMinRepeatability < 1 {
		return fmt.Errorf("blob_min_repeatability must be at least 1, got %d", *c.BlobMinRepeatability)
	}
	return nil
}

// Accessors with compiled fallbacks.

func (c *TuningConfig) GetFrameWidth() int {
	if c.FrameWidth != nil {
		return *c.FrameWidth
	}
	return DefaultFrameWidth
}

func (c *TuningConfig) GetFrameHeight() int {
	if c.FrameHeight != nil {
		return *c.FrameHeight
	}
	return DefaultFrameHeight
}

func (c *TuningConfig) GetHistoryCapacity() int {
	if c.HistoryCapacity != nil {
		return *c.HistoryCapacity
	}
	return DefaultHistoryCapacity
}

func (c *TuningConfig) GetMaxOffsetDivisor() float64 {
	if c.MaxOffsetDivisor != nil {
		return *c.MaxOffsetDivisor
	}
	return DefaultMaxOffsetDivisor
}

func (c *TuningConfig) GetTargetFrames() int {
	if c.TargetFrames != nil {
		return *c.TargetFrames
	}
	return DefaultTargetFrames
}

func (c *TuningConfig) GetCaptureHold() time.Duration {
	if c.CaptureHold != nil {
		if d, err := time.ParseDuration(*c.CaptureHold); err == nil {
			return d
		}
	}
	return DefaultCaptureHold
}

func (c *TuningConfig) GetSquareSize() float64 {
	if c.SquareSize != nil {
		return *c.SquareSize
	}
	return DefaultSquareSize
}

func (c *TuningConfig) GetDualGridGap() float64 {
	if c.DualGridGap != nil {
		return *c.DualGridGap
	}
	return DefaultDualGridGap
}

func (c *TuningConfig) GetBlobThresholdStep() float64 {
	if c.BlobThresholdStep != nil {
		return *c.BlobThresholdStep
	}
	return DefaultBlobThresholdStep
}

func (c *TuningConfig) GetBlobMinThreshold() float64 {
	if c.BlobMinThreshold != nil {
		return *c.BlobMinThreshold
	}
	return DefaultBlobMinThreshold
}

func (c *TuningConfig) GetBlobMaxThreshold() float64 {
	if c.BlobMaxThreshold != nil {
		return *c.BlobMaxThreshold
	}
	return DefaultBlobMaxThreshold
}

func (c *TuningConfig) GetBlobMinRepeatability() int {
	if c.BlobMinRepeatability != nil {
		return *c.BlobMinRepeatability
	}
	return DefaultBlobMinRepeatability
}

func (c *TuningConfig) GetBlobMinDistBetween() float64 {
	if c.BlobMinDistBetween != nil {
		return *c.BlobMinDistBetween
	}
	return DefaultBlobMinDistBetween
}

func (c *TuningConfig) GetBlobMinArea() float64 {
	if c.BlobMinArea != nil {
		return *c.BlobMinArea
	}
	return DefaultBlobMinArea
}

func (c *TuningConfig) GetBlobMaxArea() float64 {
	if c.BlobMaxArea != nil {
		return *c.BlobMaxArea
	}
	return DefaultBlobMaxArea
}

func (c *TuningConfig) GetBlobMinInertiaRatio() float64 {
	if c.BlobMinInertiaRatio != nil {
		return *c.BlobMinInertiaRatio
	}
	return DefaultBlobMinInertiaRatio
}

func (c *TuningConfig) GetBlobMinConvexity() float64 {
	if c.BlobMinConvexity != nil {
		return *c.BlobMinConvexity
	}
	return DefaultBlobMinConvexity
}
