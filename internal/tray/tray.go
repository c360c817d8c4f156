// Package tray provides a system tray status menu for the avatar tracking server.
package tray

import (
	"strconv"
	"sync"

	"github.com/getlantern/systray"

	"github.com/dkinzer222/avatarai/internal/app"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle func(enabled bool)
	onOpen   func()
	onQuit   func()
	enabled  bool
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle      *systray.MenuItem
	menuSessions    *systray.MenuItem
	menuCalibration *systray.MenuItem
	menuLastGesture *systray.MenuItem
}

// New creates a new Tray instance with enabled state set to true by default.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback function to be called when pose detection is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpen sets the callback function to be called when the studio menu item is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the tray event loop.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("AvatarAI")
	systray.SetTooltip("AvatarAI Avatar Tracking")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle pose detection")
	systray.AddSeparator()

	t.menuSessions = systray.AddMenuItem(sessionsTitle(0), "Connected clients")
	t.menuSessions.Disable()
	t.menuCalibration = systray.AddMenuItem(calibrationTitle(""), "Latest calibration step")
	t.menuCalibration.Disable()
	t.menuLastGesture = systray.AddMenuItem(gestureTitle(""), "Last detected gesture")
	t.menuLastGesture.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Studio...", "Open the studio in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit AvatarAI")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleToggle flips the enabled state and reports it.
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

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetStatus updates the status lines of the menu. It is safe to call before
// the tray is ready; updates arriving early are dropped.
func (t *Tray) SetStatus(s app.Status) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuSessions != nil {
		t.menuSessions.SetTitle(sessionsTitle(s.Sessions))
	}
	if t.menuCalibration != nil {
		t.menuCalibration.SetTitle(calibrationTitle(s.Calibration.String()))
	}
	if t.menuLastGesture != nil {
		t.menuLastGesture.SetTitle(gestureTitle(s.LastGesture))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Detection on"
	}
	return "○ Detection off"
}

func sessionsTitle(n int) string {
	switch n {
	case 0:
		return "No clients"
	case 1:
		return "1 client"
	}
	return strconv.Itoa(n) + " clients"
}

func calibrationTitle(state string) string {
	if state == "" {
		state = "not_started"
	}
	return "Calibration: " + state
}

func gestureTitle(name string) string {
	if name == "" {
		return "Last: none"
	}
	return "Last: " + name
}
