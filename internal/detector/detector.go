package detector

import (
	"time"

	"gocv.io/x/gocv"
)

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns up to MaxHands hands.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int `yaml:"max_hands" mapstructure:"max_hands"`

	// ModelComplexity selects the landmark model variant (0 or 1).
	ModelComplexity int `yaml:"model_complexity" mapstructure:"model_complexity"`

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64 `yaml:"min_confidence" mapstructure:"min_confidence"`

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64 `yaml:"min_tracking_confidence" mapstructure:"min_tracking_confidence"`

	// IdleShutdown stops the helper process after this long without frames.
	IdleShutdown time.Duration `yaml:"idle_shutdown" mapstructure:"idle_shutdown"`

	// Script overrides the helper script location.
	Script string `yaml:"script" mapstructure:"script"`
}

// DefaultConfig returns a Config with the values the demos were tuned with.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		ModelComplexity: 1,
		MinConfidence:   0.6,
		MinTrackingConf: 0.6,
		IdleShutdown:    30 * time.Second,
	}
}
