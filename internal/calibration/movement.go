package calibration

import (
	"errors"
	"fmt"
	"math"

	"github.com/dkinzer222/avatarai/internal/detector"
)

var (
	// ErrDegenerate is returned when hips and ankles are at the same height,
	// which leaves the squat ratio undefined.
	ErrDegenerate = errors.New("degenerate stance")
	// ErrNonFinite is returned when a measurement comes out NaN or infinite.
	ErrNonFinite = errors.New("non-finite measurement")
)

// Full-range distances for each movement, in normalized image units.
const (
	headTurnRange  = 0.25
	armsRaiseRange = 0.35
	bodyTurnRange  = 0.2
	squatRange     = 0.15

	// minLegHeight is the smallest hip-to-ankle height accepted for the squat.
	minLegHeight = 1e-3
)

// measure returns the raw movement score for the given state.
func measure(s State, f *detector.Frame) (float64, error) {
	var (
		v   float64
		err error
	)
	switch s {
	case HeadTurn:
		v = headTurn(f)
	case ArmsRaise:
		v = armsRaise(f)
	case BodyTurn:
		v = bodyTurn(f)
	case Squat:
		v, err = squat(f)
	default:
		return 0, fmt.Errorf("no movement measured in state %s", s)
	}
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNonFinite
	}
	return v, nil
}

// headTurn is the horizontal offset of the nose from the midpoint of the ears.
func headTurn(f *detector.Frame) float64 {
	ears := f.Center(detector.LeftEar, detector.RightEar)
	return math.Abs(f.Joint(detector.Nose).X-ears.X) / headTurnRange
}

// armsRaise is the highest wrist lift above its shoulder.
func armsRaise(f *detector.Frame) float64 {
	left := f.Joint(detector.LeftShoulder).Y - f.Joint(detector.LeftWrist).Y
	right := f.Joint(detector.RightShoulder).Y - f.Joint(detector.RightWrist).Y
	return math.Max(math.Max(left, 0), math.Max(right, 0)) / armsRaiseRange
}

// bodyTurn combines shoulder narrowing with the sideways shift of the
// shoulders over the hips, capped at 1.
func bodyTurn(f *detector.Frame) float64 {
	width := math.Abs(f.Joint(detector.RightShoulder).X - f.Joint(detector.LeftShoulder).X)
	shoulders := f.Center(detector.LeftShoulder, detector.RightShoulder)
	hips := f.Center(detector.LeftHip, detector.RightHip)
	v := (1-width)/bodyTurnRange + math.Abs(hips.X-shoulders.X)/bodyTurnRange
	return math.Min(v, 1)
}

// squat is the knee height relative to the hip height, both measured from
// the ankles.
func squat(f *detector.Frame) (float64, error) {
	knees := f.Center(detector.LeftKnee, detector.RightKnee)
	ankles := f.Center(detector.LeftAnkle, detector.RightAnkle)
	hips := f.Center(detector.LeftHip, detector.RightHip)

	leg := hips.Y - ankles.Y
	if math.Abs(leg) < minLegHeight {
		return 0, ErrDegenerate
	}
	return (knees.Y - ankles.Y) / leg / squatRange, nil
}
