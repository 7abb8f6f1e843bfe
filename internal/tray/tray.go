// Package tray provides the system tray menu: enable toggle, effect mode,
// live status and a shortcut to the settings page.
package tray

import (
	"strings"
	"sync"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/session"
	"github.com/getlantern/systray"
)

// Modes lists the effect modes offered in the menu, in menu order.
var Modes = []session.Mode{session.ModeGrab, session.ModePaint, session.ModeCursor}

// Tray represents the system tray application.
type Tray struct {
	onToggle   func(enabled bool)
	onMode     func(m session.Mode) error
	onSettings func()
	onQuit     func()
	enabled    bool
	mode       session.Mode
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuStatus *systray.MenuItem
	menuModes  map[session.Mode]*systray.MenuItem
}

// New creates a new Tray instance, enabled and in grab mode.
func New() *Tray {
	return &Tray{
		enabled: true,
		mode:    session.ModeGrab,
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnMode sets the callback for a mode chosen from the menu. The check mark
// only moves when it returns nil.
func (t *Tray) OnMode(fn func(m session.Mode) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMode = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra hand gesture effects")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle gesture tracking")
	systray.AddSeparator()

	t.menuStatus = systray.AddMenuItem(statusTitle(app.Status{}), "Current gesture status")
	t.menuStatus.Disable()
	systray.AddSeparator()

	menuMode := systray.AddMenuItem("Mode", "Effect mode")
	t.menuModes = make(map[session.Mode]*systray.MenuItem, len(Modes))
	for _, m := range Modes {
		item := menuMode.AddSubMenuItemCheckbox(modeTitle(m), "Switch to "+string(m)+" mode", m == t.mode)
		t.menuModes[m] = item
		go t.watchMode(m, item)
	}
	systray.AddSeparator()
	t.mu.Unlock()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) watchMode(m session.Mode, item *systray.MenuItem) {
	for range item.ClickedCh {
		t.handleMode(m)
	}
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleMode handles a click on a mode item.
func (t *Tray) handleMode(m session.Mode) {
	t.mu.RLock()
	callback := t.onMode
	t.mu.RUnlock()

	if callback != nil {
		if err := callback(m); err != nil {
			return
		}
	}
	t.setMode(m)
}

func (t *Tray) setMode(m session.Mode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = m
	for mode, item := range t.menuModes {
		if mode == m {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

// handleSettings handles the settings menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetStatus updates the status line, the enabled toggle and the mode check
// marks from the application status.
func (t *Tray) SetStatus(st app.Status) {
	if st.Mode != "" && st.Mode != t.Mode() {
		t.setMode(st.Mode)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enabled != st.Enabled {
		t.enabled = st.Enabled
		if t.menuToggle != nil {
			t.menuToggle.SetTitle(toggleTitle(st.Enabled))
		}
	}
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(statusTitle(st))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Mode returns the checked mode.
func (t *Tray) Mode() session.Mode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mode
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func modeTitle(m session.Mode) string {
	s := string(m)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// statusTitle renders the status line: camera errors win, then the scene
// or gesture status, then a recognized pose.
func statusTitle(st app.Status) string {
	status := st.Status
	if status == "" || status == string(gesture.LabelNone) {
		status = "none"
	}
	if strings.HasPrefix(status, app.StatusCameraError) {
		return "Camera unavailable"
	}
	title := "Last: " + status
	for _, pose := range st.Poses {
		if pose != "" {
			title += " (" + pose + ")"
			break
		}
	}
	return title
}
