// Package session turns per-frame hand observations into gesture labels
// and surface effects. Step is the pure frame function; Session wraps it
// with the state and setters an application needs.
package session

import (
	"fmt"
	"sync"

	"github.com/ayusman/mudra/internal/detector"
)

// PoseMatcher names the recorded pose a hand is holding, if any.
type PoseMatcher interface {
	Best(hand *detector.HandLandmarks) (string, bool)
}

// Session owns the state of one gesture session. Process is called from the
// frame pipeline; the getters and setters are safe to call from HTTP
// handlers at the same time.
type Session struct {
	mu    sync.Mutex
	cfg   Config
	state State
	poses PoseMatcher
}

// New creates a session. poses may be nil.
func New(cfg Config, poses PoseMatcher) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}
	return &Session{
		cfg:   cfg,
		state: NewState(cfg),
		poses: poses,
	}, nil
}

// Process steps the session with one observation and returns the new
// state with the effects to apply.
func (s *Session) Process(obs Observation) (State, []Effect) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	next, effects := Step(s.cfg, prev, obs)
	if s.poses != nil {
		effects = s.annotate(&next, prev, obs, effects)
	}
	s.state = next
	return next, effects
}

// annotate attaches the matched pose name to each present hand. A changed
// pose is reported on the slot's label effect.
func (s *Session) annotate(next *State, prev State, obs Observation, effects []Effect) []Effect {
	for slot := range next.Hands {
		hs := &next.Hands[slot]
		if !hs.Present || hs.Index >= len(obs.Hands) {
			continue
		}
		name, _ := s.poses.Best(&obs.Hands[hs.Index])
		hs.Pose = name
		if name == prev.Hands[slot].Pose {
			continue
		}

		found := false
		for i := range effects {
			if effects[i].Kind == KindLabel && effects[i].Slot == slot {
				effects[i].Pose = name
				found = true
			}
		}
		if !found {
			effects = append(effects, Effect{Kind: KindLabel, Slot: slot, Label: hs.Label, Pose: name})
		}
	}
	return effects
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Config returns the session configuration.
func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Mode returns the active mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Mode
}

// SetMode switches modes. Hand state is dropped so no latch or anchor
// leaks from one mode into the other; the brush survives.
func (s *Session) SetMode(m Mode) error {
	if _, err := ParseMode(string(m)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.Mode == m {
		return nil
	}
	s.cfg.Mode = m
	brush := s.state.Brush
	brush.PenDown = false
	s.state = NewState(s.cfg)
	s.state.Brush = brush
	return nil
}

// Brush returns the current brush.
func (s *Session) Brush() Brush {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Brush
}

// SetBrush replaces the user-settable brush fields: color, width and
// palette index. Width is clamped to the brush range.
func (s *Session) SetBrush(b Brush) (Brush, error) {
	if !ValidColor(b.Color) {
		return Brush{}, fmt.Errorf("invalid color %q", b.Color)
	}
	if b.Width <= 0 {
		return Brush{}, fmt.Errorf("invalid width %v", b.Width)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b.PaletteIndex < 0 || b.PaletteIndex >= len(s.cfg.Paint.Palette) {
		return Brush{}, fmt.Errorf("palette index %d out of range", b.PaletteIndex)
	}

	cur := &s.state.Brush
	cur.Color = b.Color
	cur.Width = s.cfg.Paint.BrushWidth.Clamp(b.Width)
	cur.PaletteIndex = b.PaletteIndex
	return *cur, nil
}

// Reset drops all hand state and restores the default brush.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = NewState(s.cfg)
}
