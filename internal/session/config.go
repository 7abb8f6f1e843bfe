package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

// Mode selects which surface the hands drive.
type Mode string

const (
	ModeGrab   Mode = "grab"   // 3D scene: blast and grab shapes
	ModePaint  Mode = "paint"  // 2D canvas: draw, erase, brush control
	ModeCursor Mode = "cursor" // editor: cursor, click, scroll
)

// ErrUnknownMode is returned for mode names outside grab, paint and cursor.
var ErrUnknownMode = errors.New("unknown mode")

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeGrab, ModePaint, ModeCursor:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// GrabConfig holds the thresholds of the grab scene, in scene units.
type GrabConfig struct {
	Thresholds gesture.Thresholds `yaml:"thresholds" mapstructure:"thresholds" json:"thresholds"`
}

// PaintConfig holds the canvas mode settings. Distances are in canvas pixels.
type PaintConfig struct {
	Width         int                `yaml:"width" mapstructure:"width" json:"width"`
	Height        int                `yaml:"height" mapstructure:"height" json:"height"`
	Draw          gesture.Hysteresis `yaml:"draw" mapstructure:"draw" json:"draw"`
	Fist          float64            `yaml:"fist" mapstructure:"fist" json:"fist"`
	BrushWidth    gesture.Control    `yaml:"brush_width" mapstructure:"brush_width" json:"brush_width"`
	EraserWidth   float64            `yaml:"eraser_width" mapstructure:"eraser_width" json:"eraser_width"`
	Palette       []string           `yaml:"palette" mapstructure:"palette" json:"palette"`
	SwapCooldown  time.Duration      `yaml:"swap_cooldown" mapstructure:"swap_cooldown" json:"swap_cooldown"`
	ClearDistance float64            `yaml:"clear_distance" mapstructure:"clear_distance" json:"clear_distance"`
	ClearCooldown time.Duration      `yaml:"clear_cooldown" mapstructure:"clear_cooldown" json:"clear_cooldown"`
}

// CursorConfig holds the editor mode settings, in normalized units.
type CursorConfig struct {
	Thresholds    gesture.Thresholds `yaml:"thresholds" mapstructure:"thresholds" json:"thresholds"`
	Click         gesture.Hysteresis `yaml:"click" mapstructure:"click" json:"click"`
	ClickCooldown time.Duration      `yaml:"click_cooldown" mapstructure:"click_cooldown" json:"click_cooldown"`
	Scroll        gesture.Control    `yaml:"scroll" mapstructure:"scroll" json:"scroll"`
}

// Config is everything Step needs besides the previous state and the
// observation.
type Config struct {
	Mode     Mode                   `yaml:"mode" mapstructure:"mode" json:"mode"`
	Identity gesture.IdentityPolicy `yaml:"identity" mapstructure:"identity" json:"identity"`
	// ResetOnLoss clears anchors, latches and grabs of a slot whose hand
	// disappears. Without it a stale anchor survives the gap.
	ResetOnLoss bool `yaml:"reset_on_loss" mapstructure:"reset_on_loss" json:"reset_on_loss"`
	// MirroredInput is set when frames were flipped before detection.
	MirroredInput bool `yaml:"mirrored_input" mapstructure:"mirrored_input" json:"mirrored_input"`
	// MirrorView shows the paint and cursor surfaces as a mirror.
	MirrorView bool `yaml:"mirror_view" mapstructure:"mirror_view" json:"mirror_view"`

	Grab   GrabConfig   `yaml:"grab" mapstructure:"grab" json:"grab"`
	Paint  PaintConfig  `yaml:"paint" mapstructure:"paint" json:"paint"`
	Cursor CursorConfig `yaml:"cursor" mapstructure:"cursor" json:"cursor"`
}

// DefaultPalette is the color cycle of the control hand.
var DefaultPalette = []string{"#00f3ff", "#ff0055", "#ffaa00", "#00ff88", "#ffffff"}

// DefaultConfig returns grab mode with the stock thresholds.
func DefaultConfig() Config {
	return Config{
		Mode:        ModeGrab,
		Identity:    gesture.IdentityGeometry,
		ResetOnLoss: true,
		MirrorView:  true,
		Grab: GrabConfig{
			Thresholds: gesture.Thresholds{Pinch: 0.6, Fist: 2.0},
		},
		Paint: PaintConfig{
			Width:         1280,
			Height:        720,
			Draw:          gesture.Hysteresis{Start: 40, Stop: 80},
			Fist:          100,
			BrushWidth:    gesture.Control{Scale: 200, Min: 1, Max: 80},
			EraserWidth:   40,
			Palette:       append([]string(nil), DefaultPalette...),
			SwapCooldown:  800 * time.Millisecond,
			ClearDistance: 40,
			ClearCooldown: time.Second,
		},
		Cursor: CursorConfig{
			Thresholds:    gesture.Thresholds{Pinch: 0.05, Fist: 0.15},
			Click:         gesture.Hysteresis{Start: 0.05, Stop: 0.1},
			ClickCooldown: 500 * time.Millisecond,
			Scroll:        gesture.Control{Scale: -2000, Min: 0, Max: 100000},
		},
	}
}

// Validate checks the config for values Step cannot work with.
func (c Config) Validate() error {
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if _, err := gesture.ParseIdentityPolicy(string(c.Identity)); err != nil {
		return err
	}
	if !c.Paint.Draw.Valid() {
		return fmt.Errorf("paint draw latch: start %v must be positive and below stop %v", c.Paint.Draw.Start, c.Paint.Draw.Stop)
	}
	if !c.Cursor.Click.Valid() {
		return fmt.Errorf("cursor click latch: start %v must be positive and below stop %v", c.Cursor.Click.Start, c.Cursor.Click.Stop)
	}
	if c.Paint.Width <= 0 || c.Paint.Height <= 0 {
		return fmt.Errorf("paint canvas size %dx%d must be positive", c.Paint.Width, c.Paint.Height)
	}
	if len(c.Paint.Palette) == 0 {
		return errors.New("paint palette is empty")
	}
	for _, color := range c.Paint.Palette {
		if !ValidColor(color) {
			return fmt.Errorf("paint palette: invalid color %q", color)
		}
	}
	return nil
}
