// Package detector provides the landmark source for the avatar pipeline: body
// pose and face mesh landmarks extracted from a single video frame.
package detector

import (
	"fmt"
	"math"
)

// Joint indexes a landmark in a body Frame. Indices follow the 33-point
// MediaPipe Pose topology.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
type Joint int

const (
	Nose Joint = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex
)

// NumLandmarks is the number of body landmarks in every Frame.
const NumLandmarks = 33

// NumHeadLandmarks is the number of leading landmarks that belong to the head
// (nose, eyes, ears, mouth).
const NumHeadLandmarks = 11

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Landmark is a single body keypoint. X and Y are normalized to [0,1] image
// coordinates (Y grows downward), Z is detector-scaled depth and Visibility is
// the detector's confidence in [0,1].
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Frame is one detected body pose. It is treated as immutable once produced;
// consumers that smooth or interpolate work on copies.
type Frame struct {
	Points [NumLandmarks]Landmark `json:"points"`
}

// Joint returns the landmark at the given joint.
func (f *Frame) Joint(j Joint) Landmark {
	return f.Points[j]
}

// Center returns the midpoint of two joints. Visibility is the lower of the two.
func (f *Frame) Center(a, b Joint) Landmark {
	pa, pb := f.Points[a], f.Points[b]
	return Landmark{
		X:          (pa.X + pb.X) / 2,
		Y:          (pa.Y + pb.Y) / 2,
		Z:          (pa.Z + pb.Z) / 2,
		Visibility: math.Min(pa.Visibility, pb.Visibility),
	}
}

// Connection is a bone drawn between two joints.
type Connection struct {
	Start Joint
	End   Joint
}

// Connections is the skeleton topology drawn by the avatar renderer.
var Connections = []Connection{
	// Torso
	{LeftShoulder, RightShoulder}, {LeftShoulder, LeftHip}, {RightShoulder, RightHip}, {LeftHip, RightHip},
	// Arms
	{LeftShoulder, LeftElbow}, {LeftElbow, LeftWrist}, {RightShoulder, RightElbow}, {RightElbow, RightWrist},
	// Hands
	{LeftWrist, LeftPinky}, {LeftWrist, LeftIndex}, {LeftWrist, LeftThumb},
	{RightWrist, RightPinky}, {RightWrist, RightIndex}, {RightWrist, RightThumb},
	// Legs
	{LeftHip, LeftKnee}, {LeftKnee, LeftAnkle}, {LeftAnkle, LeftHeel}, {LeftAnkle, LeftFootIndex},
	{RightHip, RightKnee}, {RightKnee, RightAnkle}, {RightAnkle, RightHeel}, {RightAnkle, RightFootIndex},
	// Face
	{Nose, LeftEyeInner}, {LeftEyeInner, LeftEye}, {LeftEye, LeftEyeOuter}, {LeftEyeOuter, LeftEar},
	{Nose, RightEyeInner}, {RightEyeInner, RightEye}, {RightEye, RightEyeOuter}, {RightEyeOuter, RightEar},
}

// RawLandmark is a landmark as it arrives on the wire, from the detector
// service or from a browser running pose detection itself. Visibility is
// optional.
type RawLandmark struct {
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Z          float64  `json:"z"`
	Visibility *float64 `json:"visibility,omitempty"`
}

// NewFrame builds a Frame from wire landmarks. X and Y are clipped to [0,1]
// and a missing visibility defaults to 1.0.
func NewFrame(raw []RawLandmark) (*Frame, error) {
	if len(raw) != NumLandmarks {
		return nil, fmt.Errorf("expected %d landmarks, got %d", NumLandmarks, len(raw))
	}

	f := &Frame{}
	for i, r := range raw {
		if !finite(r.X) || !finite(r.Y) || !finite(r.Z) {
			return nil, fmt.Errorf("landmark %d has non-finite coordinates", i)
		}
		vis := 1.0
		if r.Visibility != nil {
			vis = clamp01(*r.Visibility)
		}
		f.Points[i] = Landmark{
			X:          clamp01(r.X),
			Y:          clamp01(r.Y),
			Z:          r.Z,
			Visibility: vis,
		}
	}
	return f, nil
}

// FaceLandmarks is the optional face mesh for a frame (468 or 478 points).
type FaceLandmarks []Point3D

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
