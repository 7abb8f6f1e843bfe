package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// MotionConfig tunes frame-difference motion detection.
type MotionConfig struct {
	// Threshold is the percentage of pixels that must change.
	Threshold float64 `yaml:"threshold" mapstructure:"threshold" json:"threshold"`
	// BlurSize is the odd Gaussian kernel size applied before differencing.
	BlurSize int `yaml:"blur_size" mapstructure:"blur_size" json:"blur_size"`
	// PixelDelta is the gray level change that counts a pixel as changed.
	PixelDelta float32 `yaml:"pixel_delta" mapstructure:"pixel_delta" json:"pixel_delta"`
}

// DefaultMotionConfig wakes the pipeline when 1% of the image changes.
func DefaultMotionConfig() MotionConfig {
	return MotionConfig{Threshold: 1.0, BlurSize: 21, PixelDelta: 25}
}

// MotionDetector detects motion between consecutive frames. The pipeline
// uses it to switch between idle and active capture rates.
type MotionDetector struct {
	mu          sync.Mutex
	cfg         MotionConfig
	prevGray    gocv.Mat
	initialized bool
	last        float64
}

// NewMotionDetector creates a detector. Invalid fields fall back to the
// defaults.
func NewMotionDetector(cfg MotionConfig) *MotionDetector {
	def := DefaultMotionConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.BlurSize <= 0 || cfg.BlurSize%2 == 0 {
		cfg.BlurSize = def.BlurSize
	}
	if cfg.PixelDelta <= 0 {
		cfg.PixelDelta = def.PixelDelta
	}
	return &MotionDetector{
		cfg:      cfg,
		prevGray: gocv.NewMat(),
	}
}

// Detect compares frame with the previous one and reports whether motion
// was seen along with the percentage of changed pixels. The first frame
// only sets the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	k := m.cfg.BlurSize
	gocv.GaussianBlur(gray, &blurred, image.Point{X: k, Y: k}, 0, 0, gocv.BorderDefault)

	if !m.initialized || blurred.Rows() != m.prevGray.Rows() || blurred.Cols() != m.prevGray.Cols() {
		blurred.CopyTo(&m.prevGray)
		m.initialized = true
		m.last = 0
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, m.cfg.PixelDelta, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(thresh)) / float64(thresh.Rows()*thresh.Cols()) * 100.0
	blurred.CopyTo(&m.prevGray)
	m.last = changed

	return changed > m.cfg.Threshold, changed
}

// Last returns the change percentage of the most recent Detect call.
func (m *MotionDetector) Last() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Reset drops the baseline so the next frame starts over.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

// Close releases resources used by the motion detector.
func (m *MotionDetector) Close() {
	m.Reset()
}

func (m *MotionDetector) release() {
	if !m.prevGray.Empty() {
		m.prevGray.Close()
		m.prevGray = gocv.NewMat()
	}
	m.initialized = false
	m.last = 0
}

// SetThreshold sets the changed pixel percentage. Values less than or
// equal to 0 are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.cfg.Threshold = threshold
}
