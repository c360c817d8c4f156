package calibration

import "fmt"

// State is a step of the calibration sequence. States only move forward
// during a run; Completed is terminal.
type State int

const (
	NotStarted State = iota
	HeadTurn
	ArmsRaise
	BodyTurn
	Squat
	Completed
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case HeadTurn:
		return "head_turn"
	case ArmsRaise:
		return "arms_raise"
	case BodyTurn:
		return "body_turn"
	case Squat:
		return "squat"
	case Completed:
		return "completed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Active reports whether s is one of the timed movement states.
func (s State) Active() bool {
	return s > NotStarted && s < Completed
}

// next returns the state that follows s. Completed follows itself.
func (s State) next() State {
	if s >= Completed {
		return Completed
	}
	return s + 1
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseState converts a wire name back into a State.
func ParseState(name string) (State, error) {
	for s := NotStarted; s <= Completed; s++ {
		if s.String() == name {
			return s, nil
		}
	}
	return NotStarted, fmt.Errorf("unknown calibration state %q", name)
}
