// Package calibration implements the guided movement check that runs before
// the avatar is used: a timed sequence of states, each scored from body
// landmarks.
package calibration

import (
	"log"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/dkinzer222/avatarai/internal/detector"
)

// Config holds configuration options for the calibration guide.
type Config struct {
	// StateDuration is how long each movement state may run before the guide
	// moves on regardless of progress.
	StateDuration time.Duration
	// Threshold is the progress both directions must reach to complete a state.
	Threshold float64
	// HistorySize is how many raw samples feed the smoothed score.
	HistorySize int
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		StateDuration: 8 * time.Second,
		Threshold:     0.85,
		HistorySize:   5,
	}
}

// Progress is the per-direction completion of the current state, each in [0, 1].
type Progress struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
	Up    float64 `json:"up"`
	Down  float64 `json:"down"`
}

// pair returns the two directions scored in state s, or nil for states that
// measure nothing.
func (p *Progress) pair(s State) (*float64, *float64) {
	switch s {
	case HeadTurn, BodyTurn:
		return &p.Left, &p.Right
	case ArmsRaise:
		return &p.Up, &p.Down
	case Squat:
		return &p.Down, &p.Up
	}
	return nil, nil
}

// Instruction is what the client shows for the current state.
type Instruction struct {
	State            State    `json:"state"`
	Title            string   `json:"title"`
	Text             string   `json:"text"`
	Details          []string `json:"details"`
	SuccessCriteria  string   `json:"success_criteria"`
	Progress         int      `json:"progress"`
	TimeRemaining    *float64 `json:"time_remaining"`
	MovementProgress Progress `json:"movement_progress"`
}

// TransitionFunc is called after the guide changes state.
type TransitionFunc func(from, to State)

// Guide walks a user through the calibration states. It is not safe for
// concurrent use; each session owns one.
type Guide struct {
	config Config
	now    func() time.Time

	state        State
	stateStart   time.Time
	progress     Progress
	samples      []float64
	onTransition TransitionFunc
}

// NewGuide creates a guide in the NotStarted state.
func NewGuide(config Config) *Guide {
	if config.HistorySize < 1 {
		config.HistorySize = 1
	}
	return &Guide{
		config:  config,
		now:     time.Now,
		samples: make([]float64, 0, config.HistorySize),
	}
}

// OnTransition registers fn to be called on every state change.
func (g *Guide) OnTransition(fn TransitionFunc) {
	g.onTransition = fn
}

// State returns the current state.
func (g *Guide) State() State {
	return g.state
}

// Start begins (or restarts) calibration at HeadTurn.
func (g *Guide) Start() Instruction {
	g.enter(HeadTurn)
	return g.CurrentInstruction()
}

// Reset returns the guide to NotStarted.
func (g *Guide) Reset() Instruction {
	g.enter(NotStarted)
	return g.CurrentInstruction()
}

// Update scores frame against the current state and advances when both
// directions reach the threshold or the state's time runs out. A nil frame,
// a guide that was never started and a completed guide are left untouched.
// Measurement failures are logged and leave progress unchanged; the state's
// timeout still applies.
func (g *Guide) Update(frame *detector.Frame) Instruction {
	if frame == nil || g.state == Completed || g.stateStart.IsZero() {
		return g.CurrentInstruction()
	}
	state := g.state
	if err := g.step(frame); err != nil {
		log.Printf("Calibration measurement failed in %s: %v", state, err)
	}
	return g.CurrentInstruction()
}

// step folds one measurement into progress and advances on completion or
// timeout. A failed measurement leaves progress untouched, but the timeout
// still applies so a bad stance cannot hold the guide in one state.
func (g *Guide) step(frame *detector.Frame) error {
	raw, err := measure(g.state, frame)
	if err != nil {
		g.checkTimeout()
		return err
	}

	if len(g.samples) == g.config.HistorySize {
		copy(g.samples, g.samples[1:])
		g.samples = g.samples[:len(g.samples)-1]
	}
	g.samples = append(g.samples, raw)
	smoothed := weightedAverage(g.samples)

	a, b := g.progress.pair(g.state)
	*a = math.Min(1, math.Max(*a, smoothed))
	*b = math.Min(1, math.Max(*b, smoothed))

	if *a >= g.config.Threshold && *b >= g.config.Threshold {
		g.enter(g.state.next())
		return nil
	}
	g.checkTimeout()
	return nil
}

// checkTimeout advances once the current state has used up its time.
func (g *Guide) checkTimeout() {
	if g.now().Sub(g.stateStart) >= g.config.StateDuration {
		g.enter(g.state.next())
	}
}

// weightedAverage weights samples linearly from 0.5 (oldest) to 1.0 (newest).
func weightedAverage(samples []float64) float64 {
	if len(samples) == 1 {
		return samples[0]
	}
	weights := floats.Span(make([]float64, len(samples)), 0.5, 1.0)
	return stat.Mean(samples, weights)
}

// enter switches to s, clearing progress, samples and the state timer.
func (g *Guide) enter(s State) {
	from := g.state
	g.state = s
	g.progress = Progress{}
	g.samples = g.samples[:0]
	if s.Active() {
		g.stateStart = g.now()
	} else {
		g.stateStart = time.Time{}
	}

	if from != s {
		log.Printf("Calibration: %s -> %s", from, s)
		if g.onTransition != nil {
			g.onTransition(from, s)
		}
	}
}

// CurrentInstruction returns the instruction for the current state.
func (g *Guide) CurrentInstruction() Instruction {
	sc := scriptFor(g.state)
	inst := Instruction{
		State:            g.state,
		Title:            sc.title,
		Text:             sc.text,
		Details:          sc.details,
		SuccessCriteria:  sc.criteria,
		MovementProgress: g.progress,
	}

	if a, b := g.progress.pair(g.state); a != nil {
		inst.Progress = int((*a + *b) / 2 * 100)
	}
	if g.state.Active() && !g.stateStart.IsZero() {
		remaining := (g.config.StateDuration - g.now().Sub(g.stateStart)).Seconds()
		remaining = math.Max(0, remaining)
		inst.TimeRemaining = &remaining
	}
	return inst
}
