// Package app wires the detector, renderer, calibration guide and gesture
// recognizer into per-connection sessions.
package app

import (
	"log"
	"sort"
	"sync"

	"github.com/dkinzer222/avatarai/internal/avatar"
	"github.com/dkinzer222/avatarai/internal/calibration"
	"github.com/dkinzer222/avatarai/internal/detector"
	"github.com/dkinzer222/avatarai/internal/events"
	"github.com/dkinzer222/avatarai/internal/gesture"
)

// Config holds configuration options for the application.
type Config struct {
	Detector    detector.Config
	Avatar      avatar.Config
	Calibration calibration.Config
	Gesture     gesture.Config
	// Events receives gesture and calibration events. Nil disables them.
	Events *events.Publisher
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Detector:    detector.DefaultConfig(),
		Avatar:      avatar.DefaultConfig(),
		Calibration: calibration.DefaultConfig(),
		Gesture:     gesture.DefaultConfig(),
	}
}

// Status is a summary of recent activity across sessions.
type Status struct {
	Sessions    int
	Calibration calibration.State
	LastGesture string
}

// App owns the shared pose detector and the set of live sessions.
type App struct {
	config   Config
	detector detector.Detector
	events   *events.Publisher
	enabled  bool
	mu       sync.RWMutex
	detectMu sync.Mutex

	sessions    map[string]*Session
	calibration calibration.State
	lastGesture string
	onStatus    func(Status)
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	pub := config.Events
	if pub == nil {
		pub = events.NewPublisher("")
	}

	a := &App{
		config:   config,
		events:   pub,
		enabled:  true,
		sessions: make(map[string]*Session),
	}

	// Try MediaPipe first, fall back to mock detector
	if mp, err := detector.NewMediaPipeDetector(config.Detector); err == nil {
		a.detector = mp
		log.Println("Using MediaPipe pose detection")
	} else {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		a.detector = detector.NewMockDetector()
	}

	return a
}

// SetEnabled enables or disables server-side pose detection. While disabled,
// video frames are treated as empty scenes.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether pose detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector sets the pose detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the pose detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// OnStatus registers fn to be called whenever Status changes.
func (a *App) OnStatus(fn func(Status)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onStatus = fn
}

// Status returns the current activity summary.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.statusLocked()
}

func (a *App) statusLocked() Status {
	return Status{
		Sessions:    len(a.sessions),
		Calibration: a.calibration,
		LastGesture: a.lastGesture,
	}
}

// Session returns the live session with the given id.
func (a *App) Session(id string) (*Session, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.sessions[id]
	return s, ok
}

// SessionIDs returns the ids of all live sessions, sorted.
func (a *App) SessionIDs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ids := make([]string, 0, len(a.sessions))
	for id := range a.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// updateStatus applies fn under the lock and notifies the status callback.
func (a *App) updateStatus(fn func()) {
	a.mu.Lock()
	fn()
	status := a.statusLocked()
	callback := a.onStatus
	a.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(status)
	}
}

// Close releases the detector and the event connection.
func (a *App) Close() {
	if d := a.Detector(); d != nil {
		if err := d.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}
	a.events.Close()
}
