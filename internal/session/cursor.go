package session

import (
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// cursor drives the editor with the primary hand: the index tip moves the
// cursor, a pinch clicks and a fist scrolls relative to where it closed.
func (f *frame) cursor(slot int, h *detector.HandLandmarks) {
	cfg := f.cfg.Cursor
	hs := &f.state.Hands[slot]

	space := gesture.NormalizedSpace()
	space.MirrorX = f.cfg.MirrorView
	feat := gesture.Extract(h, space)
	hs.Label = gesture.Classify(feat, cfg.Thresholds)
	hs.Cursor = feat.Index

	if slot != 0 {
		return
	}

	if !hs.Focused {
		hs.Focused = true
		f.emit(Effect{Kind: KindFocus, Slot: slot})
	}
	f.emit(Effect{Kind: KindCursor, Slot: slot, Point: feat.Index})

	wasLatched := hs.Latched
	hs.Latched = cfg.Click.Next(hs.Latched, feat.Pinch)
	if hs.Latched && !wasLatched && cooledDown(hs.LastClick, f.now, cfg.ClickCooldown) {
		hs.LastClick = f.now
		f.emit(Effect{Kind: KindClick, Slot: slot, Point: feat.Index})
	}

	if hs.Label != gesture.LabelFist || hs.Latched {
		hs.Control = gesture.Anchor{}
		return
	}
	if !hs.Control.Active {
		hs.Control = cfg.Scroll.Begin(f.state.Scroll, feat.Index.Y)
		return
	}
	scroll := cfg.Scroll.Value(hs.Control, feat.Index.Y)
	if scroll != f.state.Scroll {
		f.state.Scroll = scroll
		f.emit(Effect{Kind: KindScroll, Slot: slot, Value: scroll})
	}
}
