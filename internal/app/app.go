// Package app wires capture, hand detection, the gesture session and the
// scene and canvas surfaces into the running service.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/canvas"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/ingest"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/scene"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/store"
)

// Landmark sources.
const (
	SourceCamera = "camera"
	SourceIngest = "ingest"
	SourceReplay = "replay"
)

// StatusCameraError prefixes the status line when the camera cannot be used.
const StatusCameraError = "CAMERA_ERROR"

// Message types sent to clients.
const (
	MessageEffects = "effects"
	MessageScene   = "scene"
	MessageStatus  = "status"
)

// Publisher delivers messages to connected clients. Send must not block and
// must not skip a client that keeps up; Offer may drop the message when
// clients are being sent too much.
type Publisher interface {
	Send(v any)
	Offer(v any) bool
}

// ActionSink receives the effects of frames stepped in cursor mode.
// Dispatch must not block the pipeline.
type ActionSink interface {
	Dispatch(state session.State, effects []session.Effect) int
}

// Message is one update for the clients.
type Message struct {
	Type    string           `json:"type"`
	Frame   uint64           `json:"frame,omitempty"`
	Mode    session.Mode     `json:"mode,omitempty"`
	Effects []session.Effect `json:"effects,omitempty"`
	Scene   *scene.Snapshot  `json:"scene,omitempty"`
	Status  *Status          `json:"status,omitempty"`
}

// Status summarizes the service for the API and the tray.
type Status struct {
	Enabled bool                            `json:"enabled"`
	Active  bool                            `json:"active"`
	Source  string                          `json:"source"`
	Mode    session.Mode                    `json:"mode"`
	Status  string                          `json:"status"`
	Labels  [gesture.MaxHands]gesture.Label `json:"labels"`
	Poses   [gesture.MaxHands]string        `json:"poses"`
	Frame   uint64                          `json:"frame"`
	Brush   session.Brush                   `json:"brush"`
}

// Config holds the collaborators of an App.
type Config struct {
	Settings  config.Config
	Store     *store.Store      // optional; poses and settings are not persisted without it
	Camera    capture.Camera    // nil opens Settings.Camera
	Detector  detector.Detector // nil starts MediaPipe, falling back to the mock detector
	Publisher Publisher         // optional
	Actions   ActionSink        // nil runs the plugins in Settings.Plugins when enabled
}

// App is the main application that runs the frame pipeline and owns the
// session and its surfaces.
type App struct {
	cfg       config.Config
	store     *store.Store
	camera    capture.Camera
	motion    *capture.MotionDetector
	detector  detector.Detector
	matcher   *gesture.PoseMatcher
	session   *session.Session
	scene     *scene.Scene
	canvas    *canvas.Canvas
	publisher Publisher
	actions   ActionSink
	plugins   *plugin.Sink // run by Start when the App built it

	mu        sync.RWMutex
	enabled   bool
	active    bool
	source    string
	cameraErr error
	last      session.State
	jpeg      []byte
	jpegSeq   uint64
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates an App. Persisted mode and brush settings are restored from
// the store.
func New(c Config) (*App, error) {
	settings := c.Settings
	if settings.Camera.Mirror {
		settings.Session.MirroredInput = true
	}

	matcher := gesture.NewPoseMatcher()
	sess, err := session.New(settings.Session, matcher)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:       settings,
		store:     c.Store,
		camera:    c.Camera,
		motion:    capture.NewMotionDetector(settings.Motion),
		detector:  c.Detector,
		matcher:   matcher,
		session:   sess,
		scene:     scene.New(settings.Scene),
		canvas:    canvas.New(settings.Session.Paint.Width, settings.Session.Paint.Height),
		publisher: c.Publisher,
		actions:   c.Actions,
		enabled:   settings.Pipeline.Enabled,
		source:    SourceCamera,
		last:      sess.State(),
	}
	if settings.Ingest.Enabled {
		a.source = SourceIngest
	}

	if a.camera == nil {
		a.camera = capture.NewCamera(settings.Camera)
	}

	if a.detector == nil {
		// Try MediaPipe first, fall back to mock detector
		if mp, err := detector.NewMediaPipeDetector(settings.Detector); err == nil {
			a.detector = mp
			log.Println("Using MediaPipe hand detection")
		} else {
			log.Printf("MediaPipe not available (%v), using mock detector", err)
			a.detector = detector.NewMockDetector()
		}
	}

	if a.actions == nil && settings.Plugins.Enabled {
		a.plugins = newPluginSink(settings.Plugins)
		a.actions = a.plugins
	}

	a.restoreSettings()
	return a, nil
}

func newPluginSink(cfg plugin.Config) *plugin.Sink {
	manager := plugin.NewManager(cfg.Dir)
	if err := manager.Discover(); err != nil {
		log.Printf("Failed to discover plugins in %s: %v", cfg.Dir, err)
	}
	log.Printf("Loaded %d plugins from %s", len(manager.List()), cfg.Dir)
	return plugin.NewSink(manager, plugin.NewExecutor(cfg.Timeout), cfg.Queue)
}

// restoreSettings applies the mode and brush saved by a previous run.
func (a *App) restoreSettings() {
	if a.store == nil {
		return
	}
	settings := a.store.Settings()

	if v, err := settings.Get(store.SettingMode); err == nil {
		if m, err := session.ParseMode(v); err == nil {
			if err := a.session.SetMode(m); err != nil {
				log.Printf("Failed to restore mode %q: %v", v, err)
			}
		} else {
			log.Printf("Ignoring stored mode: %v", err)
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Printf("Failed to read stored mode: %v", err)
	}

	if v, err := settings.Get(store.SettingBrush); err == nil {
		var b session.Brush
		if err := json.Unmarshal([]byte(v), &b); err != nil {
			log.Printf("Ignoring stored brush: %v", err)
		} else if _, err := a.session.SetBrush(b); err != nil {
			log.Printf("Ignoring stored brush: %v", err)
		}
	}

	a.last = a.session.State()
}

// SetEnabled enables or disables gesture detection.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()
	a.publishStatus()
}

// IsEnabled returns whether gesture detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// LoadPoses loads the trained poses from the store into the matcher.
// Poses without landmarks are skipped.
func (a *App) LoadPoses() error {
	if a.store == nil {
		return nil
	}

	poses, err := a.store.Poses().List()
	if err != nil {
		return fmt.Errorf("list poses: %w", err)
	}

	templates := make([]*gesture.Pose, 0, len(poses))
	for _, p := range poses {
		landmarks, err := a.store.Poses().Landmarks(p.ID)
		if err != nil {
			log.Printf("Failed to load landmarks for %s: %v", p.Name, err)
			continue
		}
		if len(landmarks) == 0 {
			continue
		}
		templates = append(templates, &gesture.Pose{
			ID:        p.ID,
			Name:      p.Name,
			Landmarks: landmarks,
			Tolerance: p.Tolerance,
		})
	}
	a.matcher.Replace(templates)

	log.Printf("Loaded %d poses from database", len(templates))
	return nil
}

// Start begins the landmark source and the render loop. A camera that
// cannot be opened is reported through the status line and is not retried;
// the rest of the service keeps running.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	switch a.source {
	case SourceIngest:
		frames, err := ingest.Stream(ctx, a.cfg.Ingest)
		if err != nil {
			cancel()
			a.cancel = nil
			return fmt.Errorf("start ingest: %w", err)
		}
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.runIngest(ctx, frames)
		}()
		log.Printf("Consuming landmarks from %s", a.cfg.Ingest.Endpoint)

	default:
		if err := a.camera.Open(); err != nil {
			a.cameraErr = err
			log.Printf("Camera unavailable: %v", err)
		} else {
			a.camera.SetFPS(a.cfg.Pipeline.IdleFPS)
			a.wg.Add(1)
			go func() {
				defer a.wg.Done()
				a.runPipeline(ctx)
			}()
			log.Println("Detection pipeline started")
		}
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.runRender(ctx)
	}()

	if a.plugins != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.plugins.Run(ctx)
		}()
	}

	return nil
}

// Stop halts the pipeline and releases resources.
func (a *App) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	a.wg.Wait()

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	a.motion.Close()

	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}
	if err := a.canvas.Close(); err != nil && !errors.Is(err, canvas.ErrClosed) {
		log.Printf("Error closing canvas: %v", err)
	}

	log.Println("Detection pipeline stopped")
}

// Process steps the session with one observation, applies the effects to
// the surface of the current mode and publishes them.
func (a *App) Process(obs session.Observation) []session.Effect {
	if obs.Timestamp.IsZero() {
		obs.Timestamp = time.Now()
	}

	state, effects := a.session.Process(obs)

	switch state.Mode {
	case session.ModeGrab:
		a.scene.Apply(effects, obs.Timestamp)
		a.scene.SetHands(state, obs)
	case session.ModePaint:
		a.canvas.Apply(effects)
	case session.ModeCursor:
		if a.actions != nil && len(effects) > 0 {
			a.actions.Dispatch(state, effects)
		}
	}

	a.mu.Lock()
	a.last = state
	a.mu.Unlock()

	if len(effects) > 0 && a.publisher != nil {
		a.publisher.Send(Message{
			Type:    MessageEffects,
			Frame:   state.Frame,
			Mode:    state.Mode,
			Effects: effects,
		})
	}
	return effects
}

// Status returns a summary of the service.
func (a *App) Status() Status {
	a.mu.RLock()
	st := Status{
		Enabled: a.enabled,
		Active:  a.active,
		Source:  a.source,
		Frame:   a.last.Frame,
	}
	for slot, hs := range a.last.Hands {
		st.Labels[slot] = hs.Label
		st.Poses[slot] = hs.Pose
	}
	cameraErr := a.cameraErr
	a.mu.RUnlock()

	st.Mode = a.session.Mode()
	st.Brush = a.session.Brush()

	switch {
	case cameraErr != nil:
		st.Status = StatusCameraError + ": " + cameraErr.Error()
	case st.Mode == session.ModeGrab:
		st.Status = a.scene.Snapshot().Status
	default:
		st.Status = string(st.Labels[0])
	}
	return st
}

// Mode returns the current mode.
func (a *App) Mode() session.Mode {
	return a.session.Mode()
}

// SetMode switches mode, resets the scene and persists the choice.
func (a *App) SetMode(m session.Mode) error {
	if err := a.session.SetMode(m); err != nil {
		return err
	}
	a.scene.Reset()

	a.mu.Lock()
	a.last = a.session.State()
	a.mu.Unlock()

	a.saveSetting(store.SettingMode, string(m))
	a.publishStatus()
	return nil
}

// Brush returns the current paint brush.
func (a *App) Brush() session.Brush {
	return a.session.Brush()
}

// SetBrush replaces the brush and persists it.
func (a *App) SetBrush(b session.Brush) (session.Brush, error) {
	b, err := a.session.SetBrush(b)
	if err != nil {
		return session.Brush{}, err
	}
	if data, err := json.Marshal(b); err == nil {
		a.saveSetting(store.SettingBrush, string(data))
	}
	if a.publisher != nil {
		a.publisher.Send(Message{
			Type:    MessageEffects,
			Mode:    a.session.Mode(),
			Effects: []session.Effect{{Kind: session.KindBrush, Brush: &b}},
		})
	}
	return b, nil
}

// ClearCanvas wipes the canvas and tells clients to do the same.
func (a *App) ClearCanvas() {
	a.canvas.Clear()
	if a.publisher != nil {
		a.publisher.Send(Message{
			Type:    MessageEffects,
			Mode:    a.session.Mode(),
			Effects: []session.Effect{{Kind: session.KindClear}},
		})
	}
}

// Canvas returns the paint surface.
func (a *App) Canvas() *canvas.Canvas {
	return a.canvas
}

// Scene returns the grab scene.
func (a *App) Scene() *scene.Scene {
	return a.scene
}

// Matcher returns the pose matcher.
func (a *App) Matcher() *gesture.PoseMatcher {
	return a.matcher
}

// Frame returns the latest camera frame as JPEG with its sequence number.
func (a *App) Frame() ([]byte, uint64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.jpeg, a.jpegSeq
}

func (a *App) saveSetting(key, value string) {
	if a.store == nil {
		return
	}
	if err := a.store.Settings().Set(key, value); err != nil {
		log.Printf("Failed to save setting %s: %v", key, err)
	}
}

func (a *App) publishStatus() {
	if a.publisher == nil {
		return
	}
	st := a.Status()
	a.publisher.Send(Message{Type: MessageStatus, Mode: st.Mode, Status: &st})
}
