package session

import (
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// Step advances the session by one observation. It is a pure function of
// its arguments: prev is not modified and the same inputs always produce
// the same state and effects.
func Step(cfg Config, prev State, obs Observation) (State, []Effect) {
	f := &frame{
		cfg:   cfg,
		now:   obs.Timestamp,
		state: prev,
	}
	f.state.Frame++
	f.state.Mode = cfg.Mode

	slots := gesture.Assign(obs.Hands, cfg.Identity, cfg.MirroredInput)
	for slot, a := range slots {
		if !a.Present {
			f.lose(slot)
			continue
		}

		hs := &f.state.Hands[slot]
		hs.Present = true
		hs.Index = a.Index
		hs.Side = a.Side

		hand := &obs.Hands[a.Index]
		switch cfg.Mode {
		case ModeGrab:
			f.grab(slot, hand)
		case ModePaint:
			f.paint(slot, hand)
		case ModeCursor:
			f.cursor(slot, hand)
		}
	}

	if cfg.Mode == ModePaint && slots[0].Present && slots[1].Present {
		f.clear(&obs.Hands[slots[0].Index], &obs.Hands[slots[1].Index])
	}

	for slot := range f.state.Hands {
		if f.state.Hands[slot].Label != prev.Hands[slot].Label {
			f.emit(Effect{Kind: KindLabel, Slot: slot, Label: f.state.Hands[slot].Label})
		}
	}

	return f.state, f.effects
}

// frame is the scratch space of one Step call.
type frame struct {
	cfg     Config
	now     time.Time
	state   State
	effects []Effect
}

func (f *frame) emit(e Effect) {
	f.effects = append(f.effects, e)
}

// lose handles a slot without a hand this frame.
func (f *frame) lose(slot int) {
	hs := &f.state.Hands[slot]

	if hs.Focused {
		f.emit(Effect{Kind: KindBlur, Slot: slot})
	}
	if slot == 0 && f.cfg.Mode == ModePaint && hs.Present {
		f.state.Brush.PenDown = false
	}

	if f.cfg.ResetOnLoss {
		if hs.Grabbing {
			f.emit(Effect{Kind: KindRelease, Slot: slot})
		}
		*hs = HandState{LastSwap: hs.LastSwap, LastClick: hs.LastClick}
	}

	hs.Present = false
	hs.Focused = false
	hs.Label = gesture.LabelNone
	hs.Pose = ""
}

// seed starts or continues a curve at p. The first point only seeds the
// anchor; every later point emits the segment between the previous
// midpoint and the new one, bent through the previous anchor.
func (f *frame) seed(slot int, hs *HandState, p detector.Point3D, color string, width float64, comp Composite) {
	if !hs.HasAnchor || hs.Tool != comp {
		hs.HasAnchor = true
		hs.Anchor = p
		hs.Mid = p
		hs.Tool = comp
		return
	}

	to := gesture.Midpoint(hs.Anchor, p)
	f.emit(Effect{
		Kind: KindStroke,
		Slot: slot,
		Stroke: &Stroke{
			From:      hs.Mid,
			Control:   hs.Anchor,
			To:        to,
			Color:     color,
			Width:     width,
			Composite: comp,
		},
	})
	hs.Anchor = p
	hs.Mid = to
}

func liftPen(hs *HandState) {
	hs.HasAnchor = false
	hs.Anchor = detector.Point3D{}
	hs.Mid = detector.Point3D{}
	hs.Tool = ""
}

// cooledDown reports whether at least d passed since last. A zero last
// never blocks.
func cooledDown(last, now time.Time, d time.Duration) bool {
	return last.IsZero() || now.Sub(last) >= d
}
