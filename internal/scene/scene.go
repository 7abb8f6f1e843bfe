// Package scene models the objects of the grab demo: three shapes that can
// be grabbed and blasted, and a skeleton per tracked hand. Rendering is
// left to the browser; the scene only keeps transforms and colors.
package scene

import (
	"sync"
	"time"

	"cogentcore.org/core/math32"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/session"
)

// Kind is the geometry of a shape.
type Kind string

const (
	KindBox    Kind = "box"
	KindSphere Kind = "sphere"
	KindTorus  Kind = "torus"
)

// Skeleton colors per gesture.
const (
	ColorBlast = "#ff4400"
	ColorGrab  = "#00ff88"
	ColorIdle  = "#00f3ff"
)

// Status lines shown for the primary hand.
const (
	StatusBlast    = "POWER: FIRE_BLAST"
	StatusGrab     = "ACTION: GRABBING"
	StatusScanning = "SCANNING..."
)

var (
	shapeKinds  = [...]Kind{KindBox, KindSphere, KindTorus}
	shapeColors = [...]string{"#ff0055", "#00f3ff", "#ffaa00"}
)

// notHeld marks a shape no hand holds.
const notHeld = -1

// Config tunes the scene physics, in scene units.
type Config struct {
	BlastRadius float32       `yaml:"blast_radius" mapstructure:"blast_radius" json:"blast_radius"`
	GrabRadius  float32       `yaml:"grab_radius" mapstructure:"grab_radius" json:"grab_radius"`
	GrabLerp    float32       `yaml:"grab_lerp" mapstructure:"grab_lerp" json:"grab_lerp"`
	Spin        float32       `yaml:"spin" mapstructure:"spin" json:"spin"` // radians per tick
	Respawn     time.Duration `yaml:"respawn" mapstructure:"respawn" json:"respawn"`
	Spacing     float32       `yaml:"spacing" mapstructure:"spacing" json:"spacing"`
}

// DefaultConfig returns the scene tuning used by the web page.
func DefaultConfig() Config {
	return Config{
		BlastRadius: 1.5,
		GrabRadius:  2,
		GrabLerp:    0.3,
		Spin:        0.02,
		Respawn:     time.Second,
		Spacing:     4,
	}
}

// Shape is one object in the scene.
type Shape struct {
	ID        int            `json:"id"`
	Kind      Kind           `json:"kind"`
	Color     string         `json:"color"`
	Position  math32.Vector3 `json:"position"`
	RotationY float32        `json:"rotation_y"`
	Scale     float32        `json:"scale"`
	HeldBy    int            `json:"held_by"`
}

// Exploded reports whether the shape was blasted and awaits respawn.
func (s *Shape) Exploded() bool {
	return s.Scale == 0
}

// Skeleton is the rendered form of one hand.
type Skeleton struct {
	Visible bool                                  `json:"visible"`
	Label   gesture.Label                         `json:"label"`
	Color   string                                `json:"color"`
	Points  [detector.NumLandmarks]math32.Vector3 `json:"points"`
}

// Snapshot is a copy of the scene for publishing.
type Snapshot struct {
	Shapes    []Shape                    `json:"shapes"`
	Skeletons [gesture.MaxHands]Skeleton `json:"skeletons"`
	Status    string                     `json:"status"`
	Ticks     uint64                     `json:"ticks"`
}

// Scene holds the shapes and skeletons. The pipeline applies effects while
// the render loop ticks, so every method locks.
type Scene struct {
	mu        sync.Mutex
	cfg       Config
	shapes    []Shape
	skeletons [gesture.MaxHands]Skeleton
	status    string
	respawnAt time.Time
	ticks     uint64
}

// New creates a scene with freshly spawned shapes.
func New(cfg Config) *Scene {
	s := &Scene{cfg: cfg, status: StatusScanning}
	s.spawn()
	return s
}

// spawn places every shape at its home position.
func (s *Scene) spawn() {
	s.shapes = s.shapes[:0]
	for i := range shapeKinds {
		s.shapes = append(s.shapes, Shape{
			ID:       i,
			Kind:     shapeKinds[i],
			Color:    shapeColors[i],
			Position: math32.Vec3(float32(i-1)*s.cfg.Spacing, 0, 0),
			Scale:    1,
			HeldBy:   notHeld,
		})
	}
	s.respawnAt = time.Time{}
}

// Apply applies grab mode effects at time now.
func (s *Scene) Apply(effects []session.Effect, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range effects {
		switch e.Kind {
		case session.KindBlast:
			s.blast(toVector(e.Point), now)
		case session.KindGrab:
			s.grab(e.Slot, toVector(e.Point))
		case session.KindRelease:
			s.release(e.Slot)
		}
	}
}

func (s *Scene) blast(at math32.Vector3, now time.Time) {
	for i := range s.shapes {
		sh := &s.shapes[i]
		if sh.Exploded() || sh.Position.DistanceTo(at) >= s.cfg.BlastRadius {
			continue
		}
		sh.Scale = 0
		sh.HeldBy = notHeld
		if s.respawnAt.IsZero() {
			s.respawnAt = now.Add(s.cfg.Respawn)
		}
	}
}

func (s *Scene) grab(slot int, target math32.Vector3) {
	for i := range s.shapes {
		sh := &s.shapes[i]
		if sh.Exploded() {
			continue
		}
		if sh.HeldBy != slot && sh.Position.DistanceTo(target) >= s.cfg.GrabRadius {
			continue
		}
		sh.HeldBy = slot
		sh.Position = sh.Position.Lerp(target, s.cfg.GrabLerp)
	}
}

func (s *Scene) release(slot int) {
	for i := range s.shapes {
		if s.shapes[i].HeldBy == slot {
			s.shapes[i].HeldBy = notHeld
		}
	}
}

// SetHands updates the skeletons from the hands of one frame.
func (s *Scene) SetHands(state session.State, obs session.Observation) {
	space := gesture.SceneSpace()

	s.mu.Lock()
	defer s.mu.Unlock()

	for slot, hs := range state.Hands {
		sk := &s.skeletons[slot]
		if !hs.Present || hs.Index >= len(obs.Hands) {
			sk.Visible = false
			continue
		}
		sk.Visible = true
		sk.Label = hs.Label
		sk.Color = skeletonColor(hs.Label)
		for i, p := range space.ProjectHand(&obs.Hands[hs.Index]) {
			sk.Points[i] = toVector(p)
		}
	}
	s.status = statusFor(s.skeletons)
}

// Tick advances the scene by one render frame: idle shapes spin and
// blasted shapes come back once the respawn delay passed.
func (s *Scene) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ticks++
	if !s.respawnAt.IsZero() && !now.Before(s.respawnAt) {
		s.spawn()
	}
	for i := range s.shapes {
		if s.shapes[i].HeldBy == notHeld {
			s.shapes[i].RotationY += s.cfg.Spin
		}
	}
}

// Reset respawns every shape and hides the skeletons.
func (s *Scene) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spawn()
	s.skeletons = [gesture.MaxHands]Skeleton{}
	s.status = StatusScanning
}

// Snapshot returns a copy of the scene.
func (s *Scene) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Shapes:    append([]Shape(nil), s.shapes...),
		Skeletons: s.skeletons,
		Status:    s.status,
		Ticks:     s.ticks,
	}
}

func skeletonColor(l gesture.Label) string {
	switch l {
	case gesture.LabelPinch:
		return ColorBlast
	case gesture.LabelFist:
		return ColorGrab
	default:
		return ColorIdle
	}
}

// statusFor reports the first visible hand, in slot order.
func statusFor(skeletons [gesture.MaxHands]Skeleton) string {
	for _, sk := range skeletons {
		if !sk.Visible {
			continue
		}
		switch sk.Label {
		case gesture.LabelPinch:
			return StatusBlast
		case gesture.LabelFist:
			return StatusGrab
		}
		return StatusScanning
	}
	return StatusScanning
}

func toVector(p detector.Point3D) math32.Vector3 {
	return math32.Vec3(float32(p.X), float32(p.Y), float32(p.Z))
}
