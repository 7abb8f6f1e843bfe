// Package detector provides hand detection interfaces and landmark types.
package detector

import "math"

// Landmark names one of the 21 hand joints reported by the landmark model.
type Landmark int

// Hand landmark roles following the MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist Landmark = iota
	ThumbCMC
	ThumbMCP
	ThumbIP
	ThumbTip
	IndexMCP
	IndexPIP
	IndexDIP
	IndexTip
	MiddleMCP
	MiddlePIP
	MiddleDIP
	MiddleTip
	RingMCP
	RingPIP
	RingDIP
	RingTip
	PinkyMCP
	PinkyPIP
	PinkyDIP
	PinkyTip
)

// NumLandmarks is the number of landmarks in one detected hand.
const NumLandmarks = 21

var landmarkNames = [NumLandmarks]string{
	"wrist",
	"thumb_cmc", "thumb_mcp", "thumb_ip", "thumb_tip",
	"index_mcp", "index_pip", "index_dip", "index_tip",
	"middle_mcp", "middle_pip", "middle_dip", "middle_tip",
	"ring_mcp", "ring_pip", "ring_dip", "ring_tip",
	"pinky_mcp", "pinky_pip", "pinky_dip", "pinky_tip",
}

// String returns the snake_case name of the landmark.
func (l Landmark) String() string {
	if l < 0 || int(l) >= NumLandmarks {
		return "unknown"
	}
	return landmarkNames[l]
}

// Valid reports whether l is one of the 21 known roles.
func (l Landmark) Valid() bool {
	return l >= 0 && int(l) < NumLandmarks
}

// Handedness labels as reported by the detector.
const (
	HandLeft  = "Left"
	HandRight = "Right"
)

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x" cbor:"x"`
	Y float64 `json:"y" cbor:"y"`
	Z float64 `json:"z" cbor:"z"`
}

// HandLandmarks is one detected hand for a single frame.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points" cbor:"points"`
	Handedness string                `json:"handedness" cbor:"handedness"` // "Left" or "Right", possibly mirrored
	Score      float64               `json:"score" cbor:"score"`
}

// At returns the point for the given landmark role.
func (h *HandLandmarks) At(l Landmark) Point3D {
	return h.Points[l]
}

// Mirrored returns a copy with X flipped around the image center.
// The handedness label is left untouched; callers decide how to treat it.
func (h HandLandmarks) Mirrored() HandLandmarks {
	out := h
	for i := range out.Points {
		out.Points[i].X = 1 - out.Points[i].X
	}
	return out
}

// Translated returns a copy with every point shifted by (dx, dy).
func (h HandLandmarks) Translated(dx, dy float64) HandLandmarks {
	out := h
	for i := range out.Points {
		out.Points[i].X += dx
		out.Points[i].Y += dy
	}
	return out
}

func distance3D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Normalize normalizes the hand landmarks relative to wrist position and hand size.
// The normalized landmarks have the wrist at origin (0,0,0) and are scaled
// so that the distance from wrist to middle finger MCP is 1.0.
func (h *HandLandmarks) Normalize() *HandLandmarks {
	if h == nil {
		return nil
	}

	normalized := &HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	wrist := h.Points[Wrist]
	for i := range normalized.Points {
		normalized.Points[i] = Point3D{
			X: h.Points[i].X - wrist.X,
			Y: h.Points[i].Y - wrist.Y,
			Z: h.Points[i].Z - wrist.Z,
		}
	}

	scale := distance3D(Point3D{}, normalized.Points[MiddleMCP])
	if scale < 1e-10 {
		return normalized
	}

	for i := range normalized.Points {
		normalized.Points[i].X /= scale
		normalized.Points[i].Y /= scale
		normalized.Points[i].Z /= scale
	}

	return normalized
}
