package session

import (
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// grab drives the 3D scene. A pinch blasts shapes near the index tip, a
// fist drags them, anything else lets go.
func (f *frame) grab(slot int, h *detector.HandLandmarks) {
	hs := &f.state.Hands[slot]

	feat := gesture.Extract(h, gesture.SceneSpace())
	hs.Label = gesture.Classify(feat, f.cfg.Grab.Thresholds)
	hs.Cursor = feat.Index

	switch hs.Label {
	case gesture.LabelPinch:
		f.emit(Effect{Kind: KindBlast, Slot: slot, Point: feat.Index})
	case gesture.LabelFist:
		hs.Grabbing = true
		f.emit(Effect{Kind: KindGrab, Slot: slot, Point: feat.Index})
	default:
		if hs.Grabbing {
			hs.Grabbing = false
			f.emit(Effect{Kind: KindRelease, Slot: slot})
		}
	}
}
