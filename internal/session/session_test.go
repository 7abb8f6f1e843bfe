package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func configFor(mode Mode) Config {
	cfg := DefaultConfig()
	cfg.Mode = mode
	return cfg
}

func observe(at time.Duration, hands ...detector.HandLandmarks) Observation {
	return Observation{Hands: hands, Timestamp: t0.Add(at)}
}

// run feeds observations through Step and returns the final state and the
// effects of every frame.
func run(cfg Config, obs ...Observation) (State, [][]Effect) {
	state := NewState(cfg)
	var all [][]Effect
	for _, o := range obs {
		var effects []Effect
		state, effects = Step(cfg, state, o)
		all = append(all, effects)
	}
	return state, all
}

func TestParseMode(t *testing.T) {
	for _, name := range []string{"grab", "paint", "cursor"} {
		m, err := ParseMode(name)
		require.NoError(t, err)
		assert.Equal(t, Mode(name), m)
	}

	_, err := ParseMode("sculpt")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"mode", func(c *Config) { c.Mode = "sculpt" }},
		{"identity", func(c *Config) { c.Identity = "closest" }},
		{"draw latch", func(c *Config) { c.Paint.Draw = gesture.Hysteresis{Start: 80, Stop: 40} }},
		{"click latch", func(c *Config) { c.Cursor.Click = gesture.Hysteresis{} }},
		{"canvas size", func(c *Config) { c.Paint.Width = 0 }},
		{"empty palette", func(c *Config) { c.Paint.Palette = nil }},
		{"bad color", func(c *Config) { c.Paint.Palette = []string{"red"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestStep_PinchAtZeroDistance(t *testing.T) {
	// Thumb and index tips coincide on an otherwise curled hand.
	hand := detector.FistLandmarks()
	hand.Points[detector.ThumbTip] = hand.Points[detector.IndexTip]

	tests := []struct {
		mode Mode
		want gesture.Label
	}{
		{ModeGrab, gesture.LabelPinch},
		{ModePaint, gesture.LabelDrawing},
		{ModeCursor, gesture.LabelPinch},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			state, _ := run(configFor(tt.mode), observe(0, hand))
			assert.Equal(t, tt.want, state.Hands[0].Label)
		})
	}
}

func TestStep_NoHandsResetsSlot(t *testing.T) {
	cfg := configFor(ModePaint)
	pinch := detector.PinchLandmarks()

	state, effects := run(cfg,
		observe(0, pinch),
		observe(30*time.Millisecond, pinch.Translated(0.01, 0)),
		observe(60*time.Millisecond),
	)

	hs := state.Hands[0]
	assert.False(t, hs.Present)
	assert.Equal(t, gesture.LabelNone, hs.Label)
	assert.False(t, hs.HasAnchor, "anchor must be cleared")
	assert.False(t, hs.Latched)
	assert.False(t, state.Brush.PenDown)

	labels := Filter(effects[2], KindLabel)
	require.Len(t, labels, 1)
	assert.Equal(t, gesture.LabelNone, labels[0].Label)
}

func TestStep_NoHandsWithoutReset(t *testing.T) {
	cfg := configFor(ModePaint)
	cfg.ResetOnLoss = false
	pinch := detector.PinchLandmarks()

	state, effects := run(cfg,
		observe(0, pinch),
		observe(30*time.Millisecond),
		observe(60*time.Millisecond, pinch.Translated(-0.2, 0.1)),
	)

	assert.True(t, state.Hands[0].HasAnchor)
	// The stale anchor joins the old and new positions.
	strokes := Filter(effects[2], KindStroke)
	require.Len(t, strokes, 1)
	assert.InDelta(t, (1-0.62)*1280, strokes[0].Stroke.Control.X, 1e-6)
}

func TestStep_StrokeContinuity(t *testing.T) {
	cfg := configFor(ModePaint)
	pinch := detector.PinchLandmarks()

	state, effects := run(cfg,
		observe(0, pinch),
		observe(30*time.Millisecond, pinch.Translated(0.01, 0)),
		observe(60*time.Millisecond, pinch.Translated(0.02, 0)),
	)

	assert.Empty(t, Filter(effects[0], KindStroke), "the first latched frame only seeds the anchor")

	x0 := (1 - 0.62) * 1280
	x1 := (1 - 0.63) * 1280
	x2 := (1 - 0.64) * 1280
	y := 0.45 * 720

	first := Filter(effects[1], KindStroke)
	require.Len(t, first, 1)
	s := first[0].Stroke
	assert.InDelta(t, x0, s.From.X, 1e-6)
	assert.InDelta(t, x0, s.Control.X, 1e-6)
	assert.InDelta(t, (x0+x1)/2, s.To.X, 1e-6)
	assert.InDelta(t, y, s.To.Y, 1e-6)
	assert.Equal(t, CompositeDraw, s.Composite)
	assert.Equal(t, DefaultPalette[0], s.Color)
	assert.Equal(t, 8.0, s.Width)

	second := Filter(effects[2], KindStroke)
	require.Len(t, second, 1)
	s = second[0].Stroke
	assert.InDelta(t, (x0+x1)/2, s.From.X, 1e-6, "segments join at the previous midpoint")
	assert.InDelta(t, x1, s.Control.X, 1e-6)
	assert.InDelta(t, (x1+x2)/2, s.To.X, 1e-6)

	assert.Equal(t, gesture.LabelDrawing, state.Hands[0].Label)
	assert.True(t, state.Brush.PenDown)
}

func TestStep_LatchFallLiftsPen(t *testing.T) {
	cfg := configFor(ModePaint)
	pinch := detector.PinchLandmarks()
	point := detector.PointLandmarks()

	state, effects := run(cfg,
		observe(0, pinch),
		observe(30*time.Millisecond, point),
		observe(60*time.Millisecond, pinch.Translated(0.1, 0)),
	)

	assert.Equal(t, gesture.LabelHover, labelOf(effects[1], 0))
	assert.Len(t, Filter(effects[1], KindCursor), 1)
	assert.Empty(t, Filter(effects[2], KindStroke), "a new stroke starts without a connecting segment")
	assert.True(t, state.Hands[0].HasAnchor)
}

func TestStep_Erase(t *testing.T) {
	cfg := configFor(ModePaint)
	pinch := detector.PinchLandmarks()
	palm := detector.OpenPalmLandmarks()

	state, effects := run(cfg,
		observe(0, pinch),
		observe(30*time.Millisecond, palm),
		observe(60*time.Millisecond, palm.Translated(0.05, 0)),
	)

	assert.Empty(t, Filter(effects[1], KindStroke), "switching tools reseeds the anchor")
	strokes := Filter(effects[2], KindStroke)
	require.Len(t, strokes, 1)
	assert.Equal(t, CompositeErase, strokes[0].Stroke.Composite)
	assert.Equal(t, cfg.Paint.EraserWidth, strokes[0].Stroke.Width)
	assert.Equal(t, gesture.LabelErasing, state.Hands[0].Label)
	assert.Equal(t, CompositeErase, state.Brush.Composite)
}

func TestStep_BrushWidthControl(t *testing.T) {
	cfg := configFor(ModePaint)
	point := detector.PointLandmarks()
	pinch := detector.LeftHand(detector.PinchLandmarks())
	open := detector.LeftHand(detector.OpenPalmLandmarks())

	state, effects := run(cfg,
		observe(0, point, pinch),
		observe(30*time.Millisecond, point, pinch.Translated(-0.05, 0)),
		observe(60*time.Millisecond, point, open),
		observe(90*time.Millisecond, point, pinch.Translated(0.1, 0)),
	)

	assert.Equal(t, gesture.SideLeft, state.Hands[1].Side)
	assert.Empty(t, Filter(effects[0], KindBrush))

	brush := Filter(effects[1], KindBrush)
	require.Len(t, brush, 1)
	assert.InDelta(t, 18, brush[0].Value, 1e-6)
	assert.Equal(t, 1, brush[0].Slot)

	// Re-pinching elsewhere does not jump.
	assert.Empty(t, Filter(effects[3], KindBrush))
	assert.InDelta(t, 18, state.Brush.Width, 1e-6)
	assert.True(t, state.Hands[1].Control.Active)
}

func TestStep_PaletteSwapCooldown(t *testing.T) {
	cfg := configFor(ModePaint)
	point := detector.PointLandmarks()
	fist := detector.LeftHand(detector.FistLandmarks())

	state, effects := run(cfg,
		observe(0, point, fist),
		observe(100*time.Millisecond, point, fist),
		observe(900*time.Millisecond, point, fist),
	)

	require.Len(t, Filter(effects[0], KindBrush), 1)
	assert.Empty(t, Filter(effects[1], KindBrush))
	require.Len(t, Filter(effects[2], KindBrush), 1)

	assert.Equal(t, 2, state.Brush.PaletteIndex)
	assert.Equal(t, DefaultPalette[2], state.Brush.Color)
	assert.Equal(t, gesture.LabelFist, state.Hands[1].Label)
}

func TestStep_TwoHandClear(t *testing.T) {
	cfg := configFor(ModePaint)
	right := detector.PointLandmarks()
	left := detector.LeftHand(detector.PointLandmarks()).Translated(0.16, 0)

	state, effects := run(cfg,
		observe(0, right, left),
		observe(100*time.Millisecond, right, left),
		observe(1200*time.Millisecond, right, left),
	)

	assert.Len(t, Filter(effects[0], KindClear), 1)
	assert.Empty(t, Filter(effects[1], KindClear))
	assert.Len(t, Filter(effects[2], KindClear), 1)
	assert.Equal(t, t0.Add(1200*time.Millisecond), state.LastClear)
}

func TestStep_Grab(t *testing.T) {
	cfg := configFor(ModeGrab)

	state, effects := run(cfg,
		observe(0, detector.FistLandmarks()),
		observe(30*time.Millisecond, detector.PinchLandmarks()),
		observe(60*time.Millisecond, detector.OpenPalmLandmarks()),
		observe(90*time.Millisecond, detector.OpenPalmLandmarks()),
	)

	grabs := Filter(effects[0], KindGrab)
	require.Len(t, grabs, 1)
	assert.InDelta(t, 0, grabs[0].Point.X, 1e-9)
	assert.InDelta(t, -(0.72-0.5)*14, grabs[0].Point.Y, 1e-9)
	assert.InDelta(t, 0.3, grabs[0].Point.Z, 1e-9)

	assert.Len(t, Filter(effects[1], KindBlast), 1)
	assert.Empty(t, Filter(effects[1], KindRelease), "a pinch keeps the held shape")
	assert.Len(t, Filter(effects[2], KindRelease), 1)
	assert.Empty(t, Filter(effects[3], KindRelease))

	assert.False(t, state.Hands[0].Grabbing)
	assert.Equal(t, gesture.LabelOpen, state.Hands[0].Label)
}

func TestStep_GrabReleasedOnLoss(t *testing.T) {
	_, effects := run(configFor(ModeGrab),
		observe(0, detector.FistLandmarks()),
		observe(30*time.Millisecond),
	)
	assert.Len(t, Filter(effects[1], KindRelease), 1)

	cfg := configFor(ModeGrab)
	cfg.ResetOnLoss = false
	state, effects := run(cfg,
		observe(0, detector.FistLandmarks()),
		observe(30*time.Millisecond),
	)
	assert.Empty(t, Filter(effects[1], KindRelease))
	assert.True(t, state.Hands[0].Grabbing)
}

func TestStep_Cursor(t *testing.T) {
	cfg := configFor(ModeCursor)
	pinch := detector.PinchLandmarks()
	palm := detector.OpenPalmLandmarks()

	state, effects := run(cfg,
		observe(0, pinch),
		observe(100*time.Millisecond, palm),
		observe(200*time.Millisecond, pinch),
		observe(300*time.Millisecond, palm),
		observe(800*time.Millisecond, pinch),
		observe(900*time.Millisecond),
	)

	assert.Len(t, Filter(effects[0], KindFocus), 1)
	assert.Len(t, Filter(effects[0], KindClick), 1)
	cursor := Filter(effects[0], KindCursor)
	require.Len(t, cursor, 1)
	assert.InDelta(t, 1-0.62, cursor[0].Point.X, 1e-9)
	assert.InDelta(t, 0.45, cursor[0].Point.Y, 1e-9)

	assert.Empty(t, Filter(effects[1], KindFocus))
	assert.Empty(t, Filter(effects[2], KindClick), "click within cooldown")
	assert.Len(t, Filter(effects[4], KindClick), 1)
	assert.Len(t, Filter(effects[5], KindBlur), 1)

	assert.False(t, state.Hands[0].Focused)
	assert.Equal(t, t0.Add(800*time.Millisecond), state.Hands[0].LastClick, "cooldown survives hand loss")
}

func TestStep_CursorScroll(t *testing.T) {
	cfg := configFor(ModeCursor)
	fist := detector.FistLandmarks()

	state, effects := run(cfg,
		observe(0, fist),
		observe(30*time.Millisecond, fist.Translated(0, -0.01)),
	)

	assert.Empty(t, Filter(effects[0], KindScroll))
	scroll := Filter(effects[1], KindScroll)
	require.Len(t, scroll, 1)
	assert.InDelta(t, 20, scroll[0].Value, 1e-6)
	assert.InDelta(t, 20, state.Scroll, 1e-6)
}

func TestStep_Pure(t *testing.T) {
	cfg := configFor(ModePaint)
	pinch := detector.PinchLandmarks()

	prev, _ := Step(cfg, NewState(cfg), observe(0, pinch))
	snapshot := prev
	obs := observe(30*time.Millisecond, pinch.Translated(0.01, 0))

	a, ea := Step(cfg, prev, obs)
	b, eb := Step(cfg, prev, obs)

	assert.Equal(t, snapshot, prev)
	assert.Equal(t, a, b)
	assert.Equal(t, ea, eb)
	assert.Equal(t, prev.Frame+1, a.Frame)
}

type fixedPoses string

func (p fixedPoses) Best(*detector.HandLandmarks) (string, bool) {
	return string(p), p != ""
}

func TestSession_Process(t *testing.T) {
	s, err := New(configFor(ModeGrab), fixedPoses("Victory"))
	require.NoError(t, err)

	state, effects := s.Process(observe(0, detector.OpenPalmLandmarks()))
	assert.Equal(t, "Victory", state.Hands[0].Pose)

	labels := Filter(effects, KindLabel)
	require.Len(t, labels, 1)
	assert.Equal(t, "Victory", labels[0].Pose)
	assert.Equal(t, gesture.LabelOpen, labels[0].Label)

	_, effects = s.Process(observe(30*time.Millisecond, detector.OpenPalmLandmarks()))
	assert.Empty(t, Filter(effects, KindLabel), "unchanged label and pose")

	assert.Equal(t, uint64(2), s.State().Frame)
}

func TestSession_SetMode(t *testing.T) {
	s, err := New(configFor(ModePaint), nil)
	require.NoError(t, err)

	state, _ := s.Process(observe(0, detector.PinchLandmarks()))
	require.True(t, s.State().Hands[0].Latched)
	assert.Equal(t, ModePaint, state.Mode)

	assert.ErrorIs(t, s.SetMode("sculpt"), ErrUnknownMode)
	require.NoError(t, s.SetMode(ModeCursor))
	assert.Equal(t, ModeCursor, s.Mode())
	assert.False(t, s.State().Hands[0].Latched)
	assert.False(t, s.State().Brush.PenDown)
	assert.Equal(t, ModeCursor, s.State().Mode)

	state, _ = s.Process(observe(30*time.Millisecond, detector.PinchLandmarks()))
	assert.Equal(t, ModeCursor, state.Mode, "frame reports the mode it was stepped in")
}

func TestSession_SetBrush(t *testing.T) {
	s, err := New(DefaultConfig(), nil)
	require.NoError(t, err)

	b, err := s.SetBrush(Brush{Color: "#123abc", Width: 500, PaletteIndex: 1})
	require.NoError(t, err)
	assert.Equal(t, "#123abc", b.Color)
	assert.Equal(t, 80.0, b.Width)
	assert.Equal(t, b, s.Brush())

	_, err = s.SetBrush(Brush{Color: "blue", Width: 4})
	assert.Error(t, err)
	_, err = s.SetBrush(Brush{Color: "#000000", Width: 0})
	assert.Error(t, err)
	_, err = s.SetBrush(Brush{Color: "#000000", Width: 4, PaletteIndex: 99})
	assert.Error(t, err)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = "sculpt"
	_, err := New(cfg, nil)
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func labelOf(effects []Effect, slot int) gesture.Label {
	for _, e := range Filter(effects, KindLabel) {
		if e.Slot == slot {
			return e.Label
		}
	}
	return ""
}
