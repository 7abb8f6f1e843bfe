// Package gesture derives gesture features, labels and hand identity from
// detected hand landmarks.
package gesture

import (
	"math"

	"github.com/ayusman/mudra/internal/detector"
)

// Space projects normalized landmarks into the coordinate system a mode
// compares its thresholds in (normalized units, canvas pixels, scene units).
type Space struct {
	Width    float64 `yaml:"width" mapstructure:"width" json:"width"`
	Height   float64 `yaml:"height" mapstructure:"height" json:"height"`
	Depth    float64 `yaml:"depth" mapstructure:"depth" json:"depth"`
	Centered bool    `yaml:"centered" mapstructure:"centered" json:"centered"` // subtract 0.5 before scaling
	MirrorX  bool    `yaml:"mirror_x" mapstructure:"mirror_x" json:"mirror_x"`
	FlipY    bool    `yaml:"flip_y" mapstructure:"flip_y" json:"flip_y"`
}

// NormalizedSpace keeps the detector's [0,1] coordinates.
func NormalizedSpace() Space {
	return Space{Width: 1, Height: 1, Depth: 1}
}

// PixelSpace maps onto a width x height raster with y growing downward.
func PixelSpace(width, height int, mirror bool) Space {
	return Space{Width: float64(width), Height: float64(height), MirrorX: mirror}
}

// SceneSpace is the world mapping used by the grab scene: mirrored,
// centered on the origin, y up and depth toward the viewer.
func SceneSpace() Space {
	return Space{Width: 22, Height: 14, Depth: -15, Centered: true, MirrorX: true, FlipY: true}
}

// Project maps one normalized point into the space.
func (s Space) Project(p detector.Point3D) detector.Point3D {
	x, y := p.X, p.Y
	if s.MirrorX {
		x = 1 - x
	}
	if s.Centered {
		x -= 0.5
		y -= 0.5
	}
	if s.FlipY {
		y = -y
	}
	return detector.Point3D{X: x * s.Width, Y: y * s.Height, Z: p.Z * s.Depth}
}

// ProjectHand maps every landmark of a hand into the space.
func (s Space) ProjectHand(h *detector.HandLandmarks) [detector.NumLandmarks]detector.Point3D {
	var out [detector.NumLandmarks]detector.Point3D
	for i, p := range h.Points {
		out[i] = s.Project(p)
	}
	return out
}

// Distance is the planar (x, y) Euclidean distance between two points.
// Depth is ignored: the model's z estimate is too noisy for contact tests.
func Distance(a, b detector.Point3D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b detector.Point3D) detector.Point3D {
	return detector.Point3D{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2, Z: (a.Z + b.Z) / 2}
}

// Finger identifies one of the five digits.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
)

// tip and pip joint per finger; the thumb uses its IP joint.
var fingerJoints = [...][2]detector.Landmark{
	Thumb:  {detector.ThumbTip, detector.ThumbIP},
	Index:  {detector.IndexTip, detector.IndexPIP},
	Middle: {detector.MiddleTip, detector.MiddlePIP},
	Ring:   {detector.RingTip, detector.RingPIP},
	Pinky:  {detector.PinkyTip, detector.PinkyPIP},
}

// IsFingerExtended reports whether the tip sits above its proximal joint in
// image coordinates (y grows downward). It must be called on raw,
// unprojected landmarks.
func IsFingerExtended(h *detector.HandLandmarks, tip, pip detector.Landmark) bool {
	return h.At(tip).Y < h.At(pip).Y
}

// Features are the per-hand scalars the classifier works from.
type Features struct {
	Pinch    float64          `json:"pinch"`
	Fist     float64          `json:"fist"`
	Extended [5]bool          `json:"extended"`
	Index    detector.Point3D `json:"index"` // projected index tip
}

// ExtendedCount returns how many of index..pinky are extended.
func (f Features) ExtendedCount() int {
	n := 0
	for _, finger := range []Finger{Index, Middle, Ring, Pinky} {
		if f.Extended[finger] {
			n++
		}
	}
	return n
}

// Extract computes the features of one hand with distances measured in s.
func Extract(h *detector.HandLandmarks, s Space) Features {
	thumb := s.Project(h.At(detector.ThumbTip))
	index := s.Project(h.At(detector.IndexTip))
	wrist := s.Project(h.At(detector.Wrist))

	f := Features{
		Pinch: Distance(thumb, index),
		Fist:  Distance(index, wrist),
		Index: index,
	}
	for finger, joints := range fingerJoints {
		f.Extended[finger] = IsFingerExtended(h, joints[0], joints[1])
	}
	return f
}

// TwoHandDistance is the distance between the index tips of two hands in s.
func TwoHandDistance(a, b *detector.HandLandmarks, s Space) float64 {
	return Distance(s.Project(a.At(detector.IndexTip)), s.Project(b.At(detector.IndexTip)))
}
