// Package gesture recognizes arm gestures from a sliding window of body
// landmark frames.
package gesture

import (
	"time"

	"github.com/dkinzer222/avatarai/internal/detector"
)

// Gesture names reported by Detect, in evaluation order.
const (
	Waving      = "waving"
	Pointing    = "pointing"
	Clapping    = "clapping"
	RaisingHand = "raising_hand"
)

// Config holds configuration options for the recognizer.
type Config struct {
	// Window is the number of frames kept; nothing is reported until it is full.
	Window int
	// Cooldown is the minimum time between two reports of the same gesture.
	Cooldown time.Duration
	// WaveAmplitude is the horizontal wrist travel a wave must exceed.
	WaveAmplitude float64
	// MinWaveCycles is the number of back-and-forth movements in a wave.
	MinWaveCycles int
	// PointAngle is the elbow angle in radians above which an arm counts as straight.
	PointAngle float64
	// MinClaps is the number of hand-distance minima in a clap.
	MinClaps int
	// ClapSpeed scales the allowed spacing between claps.
	ClapSpeed float64
	// RaiseHeight is how far a wrist must be above its shoulder.
	RaiseHeight float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Window:        30,
		Cooldown:      2 * time.Second,
		WaveAmplitude: 0.15,
		MinWaveCycles: 2,
		PointAngle:    2.8,
		MinClaps:      2,
		ClapSpeed:     0.1,
		RaiseHeight:   0.2,
	}
}

// detectFunc reports whether a gesture is present in the window.
type detectFunc func(cfg Config, window []detector.Frame) bool

type rule struct {
	name   string
	detect detectFunc
}

var rules = []rule{
	{Waving, detectWaving},
	{Pointing, detectPointing},
	{Clapping, detectClapping},
	{RaisingHand, detectRaisingHand},
}

// Recognizer keeps the landmark window and per-gesture cooldowns for one
// session. It is not safe for concurrent use.
type Recognizer struct {
	config Config
	now    func() time.Time

	window []detector.Frame
	last   map[string]time.Time
}

// NewRecognizer creates a recognizer with an empty window.
func NewRecognizer(config Config) *Recognizer {
	if config.Window < 3 {
		config.Window = 3
	}
	return &Recognizer{
		config: config,
		now:    time.Now,
		window: make([]detector.Frame, 0, config.Window),
		last:   make(map[string]time.Time),
	}
}

// Add appends a frame to the window, dropping the oldest when full. Nil
// frames are ignored.
func (r *Recognizer) Add(frame *detector.Frame) {
	if frame == nil {
		return
	}
	if len(r.window) == r.config.Window {
		copy(r.window, r.window[1:])
		r.window = r.window[:len(r.window)-1]
	}
	r.window = append(r.window, *frame)
}

// Detect returns the first gesture, in evaluation order, that is present in
// the window and not cooling down, or "" if there is none. Every gesture
// present starts a new cooldown, including those not returned.
func (r *Recognizer) Detect() string {
	if len(r.window) < r.config.Window {
		return ""
	}

	now := r.now()
	found := ""
	for _, rl := range rules {
		if last, ok := r.last[rl.name]; ok && now.Sub(last) <= r.config.Cooldown {
			continue
		}
		if rl.detect(r.config, r.window) {
			r.last[rl.name] = now
			if found == "" {
				found = rl.name
			}
		}
	}
	return found
}

// Reset clears the window and all cooldowns.
func (r *Recognizer) Reset() {
	r.window = r.window[:0]
	r.last = make(map[string]time.Time)
}
