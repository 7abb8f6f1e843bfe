package session

import (
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

func (f *frame) paintSpace() gesture.Space {
	return gesture.PixelSpace(f.cfg.Paint.Width, f.cfg.Paint.Height, f.cfg.MirrorView)
}

// paint routes slot 0 to the drawing hand and slot 1 to the control hand.
func (f *frame) paint(slot int, h *detector.HandLandmarks) {
	if slot == 0 {
		f.draw(h)
		return
	}
	f.control(slot, h)
}

// draw handles the drawing hand: a latched pinch draws, an open palm
// erases, anything else hovers with the pen up.
func (f *frame) draw(h *detector.HandLandmarks) {
	const slot = 0
	cfg := f.cfg.Paint
	hs := &f.state.Hands[slot]
	brush := &f.state.Brush

	feat := gesture.Extract(h, f.paintSpace())
	hs.Latched = cfg.Draw.Next(hs.Latched, feat.Pinch)
	hs.Cursor = feat.Index
	base := gesture.Classify(feat, gesture.Thresholds{Pinch: cfg.Draw.Start, Fist: cfg.Fist})

	switch {
	case hs.Latched:
		hs.Label = gesture.LabelDrawing
		brush.PenDown = true
		brush.Composite = CompositeDraw
		f.seed(slot, hs, feat.Index, brush.Color, brush.Width, CompositeDraw)
	case base == gesture.LabelOpen:
		hs.Label = gesture.LabelErasing
		brush.PenDown = true
		brush.Composite = CompositeErase
		f.seed(slot, hs, feat.Index, "", cfg.EraserWidth, CompositeErase)
	default:
		hs.Label = gesture.LabelHover
		brush.PenDown = false
		brush.Composite = CompositeDraw
		liftPen(hs)
		f.emit(Effect{Kind: KindCursor, Slot: slot, Point: feat.Index})
	}
}

// control handles the control hand: a latched pinch adjusts the brush
// width relative to where the pinch started, a fist cycles the palette.
func (f *frame) control(slot int, h *detector.HandLandmarks) {
	cfg := f.cfg.Paint
	hs := &f.state.Hands[slot]
	brush := &f.state.Brush

	feat := gesture.Extract(h, f.paintSpace())
	hs.Latched = cfg.Draw.Next(hs.Latched, feat.Pinch)
	hs.Cursor = feat.Index
	hs.Label = gesture.Classify(feat, gesture.Thresholds{Pinch: cfg.Draw.Start, Fist: cfg.Fist})

	if hs.Latched {
		hs.Label = gesture.LabelPinch
		x := gesture.NormalizedSpace()
		x.MirrorX = f.cfg.MirrorView
		coord := x.Project(h.At(detector.IndexTip)).X

		if !hs.Control.Active {
			hs.Control = cfg.BrushWidth.Begin(brush.Width, coord)
			return
		}
		width := cfg.BrushWidth.Value(hs.Control, coord)
		if width != brush.Width {
			brush.Width = width
			f.emitBrush(slot)
		}
		return
	}
	hs.Control = gesture.Anchor{}

	if hs.Label == gesture.LabelFist && cooledDown(hs.LastSwap, f.now, cfg.SwapCooldown) {
		hs.LastSwap = f.now
		brush.PaletteIndex = (brush.PaletteIndex + 1) % len(cfg.Palette)
		brush.Color = cfg.Palette[brush.PaletteIndex]
		f.emitBrush(slot)
	}
}

// clear wipes the canvas when both index tips meet.
func (f *frame) clear(a, b *detector.HandLandmarks) {
	cfg := f.cfg.Paint
	if gesture.TwoHandDistance(a, b, f.paintSpace()) >= cfg.ClearDistance {
		return
	}
	if !cooledDown(f.state.LastClear, f.now, cfg.ClearCooldown) {
		return
	}
	f.state.LastClear = f.now
	liftPen(&f.state.Hands[0])
	f.emit(Effect{Kind: KindClear})
}

func (f *frame) emitBrush(slot int) {
	b := f.state.Brush
	f.emit(Effect{Kind: KindBrush, Slot: slot, Value: b.Width, Brush: &b})
}
