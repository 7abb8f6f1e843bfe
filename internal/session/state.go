package session

import (
	"strconv"
	"strings"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// Composite is how a stroke combines with the canvas.
type Composite string

const (
	CompositeDraw  Composite = "draw"
	CompositeErase Composite = "erase"
)

// Brush is the paint tool. Gestures and the UI both change it.
type Brush struct {
	Color        string    `json:"color"`
	Width        float64   `json:"width"`
	Composite    Composite `json:"composite"`
	PenDown      bool      `json:"pen_down"`
	PaletteIndex int       `json:"palette_index"`
}

// HandState is what a slot carries from one frame to the next.
type HandState struct {
	Present bool          `json:"present"`
	Index   int           `json:"index"` // position in the observation
	Side    gesture.Side  `json:"side"`
	Label   gesture.Label `json:"label"`
	Pose    string        `json:"pose,omitempty"`

	Latched   bool             `json:"latched"`
	HasAnchor bool             `json:"has_anchor"`
	Anchor    detector.Point3D `json:"anchor"`
	Mid       detector.Point3D `json:"mid"`
	Tool      Composite        `json:"tool,omitempty"` // composite the anchor was seeded with

	Cursor  detector.Point3D `json:"cursor"`
	Control gesture.Anchor   `json:"control"`

	Grabbing bool `json:"grabbing"`
	Focused  bool `json:"focused"`

	LastSwap  time.Time `json:"last_swap"`
	LastClick time.Time `json:"last_click"`
}

// State is the full session state between frames. It holds no references,
// so copying a State copies everything.
type State struct {
	Mode      Mode                        `json:"mode"` // mode the frame was stepped in
	Hands     [gesture.MaxHands]HandState `json:"hands"`
	Brush     Brush                       `json:"brush"`
	Scroll    float64                     `json:"scroll"`
	LastClear time.Time                   `json:"last_clear"`
	Frame     uint64                      `json:"frame"`
}

// NewState returns the state a session starts from.
func NewState(cfg Config) State {
	s := State{
		Brush: Brush{
			Width:     cfg.Paint.BrushWidth.Clamp(8),
			Composite: CompositeDraw,
		},
		Mode: cfg.Mode,
	}
	if len(cfg.Paint.Palette) > 0 {
		s.Brush.Color = cfg.Paint.Palette[0]
	}
	for i := range s.Hands {
		s.Hands[i].Label = gesture.LabelNone
	}
	return s
}

// ValidColor reports whether s is a #rrggbb color.
func ValidColor(s string) bool {
	if len(s) != 7 || !strings.HasPrefix(s, "#") {
		return false
	}
	_, err := strconv.ParseUint(s[1:], 16, 32)
	return err == nil
}

// Observation is one detector result.
type Observation struct {
	Hands     []detector.HandLandmarks `json:"hands"`
	Timestamp time.Time                `json:"timestamp"`
}
