package session

import (
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// Kind tags an Effect.
type Kind string

const (
	KindLabel   Kind = "label"
	KindStroke  Kind = "stroke"
	KindCursor  Kind = "cursor"
	KindClick   Kind = "click"
	KindScroll  Kind = "scroll"
	KindFocus   Kind = "focus"
	KindBlur    Kind = "blur"
	KindGrab    Kind = "grab"
	KindRelease Kind = "release"
	KindBlast   Kind = "blast"
	KindBrush   Kind = "brush"
	KindClear   Kind = "clear"
)

// Stroke is a quadratic curve segment.
type Stroke struct {
	From      detector.Point3D `json:"from"`
	Control   detector.Point3D `json:"control"`
	To        detector.Point3D `json:"to"`
	Color     string           `json:"color"`
	Width     float64          `json:"width"`
	Composite Composite        `json:"composite"`
}

// Effect describes one side effect for a surface to apply. Which fields
// are set depends on Kind.
type Effect struct {
	Kind  Kind             `json:"kind"`
	Slot  int              `json:"slot"`
	Label gesture.Label    `json:"label,omitempty"`
	Pose  string           `json:"pose,omitempty"`
	Point detector.Point3D `json:"point"`
	Value float64          `json:"value,omitempty"`

	Stroke *Stroke `json:"stroke,omitempty"`
	Brush  *Brush  `json:"brush,omitempty"`
}

// Filter returns the effects of the given kinds.
func Filter(effects []Effect, kinds ...Kind) []Effect {
	var out []Effect
	for _, e := range effects {
		for _, k := range kinds {
			if e.Kind == k {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
