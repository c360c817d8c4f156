package detector

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	result *Result
	err    error
	calls  int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetBody sets the body frame returned by Detect. A nil frame simulates an
// empty scene.
func (m *MockDetector) SetBody(f *Frame) {
	if m.result == nil {
		m.result = &Result{}
	}
	m.result.Body = f
}

// SetFace sets the face landmarks returned by Detect.
func (m *MockDetector) SetFace(face FaceLandmarks) {
	if m.result == nil {
		m.result = &Result{}
	}
	m.result.Face = face
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	return m.calls
}

// Detect returns the pre-configured result or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*Result, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &Result{}, nil
	}
	r := *m.result
	return &r, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// StandingPose returns a person standing upright facing the camera with arms
// relaxed at their sides. Every landmark is fully visible and at zero depth.
func StandingPose() Frame {
	var f Frame
	set := func(j Joint, x, y float64) {
		f.Points[j] = Landmark{X: x, Y: y, Z: 0, Visibility: 0.99}
	}

	// Head
	set(Nose, 0.50, 0.20)
	set(LeftEyeInner, 0.52, 0.18)
	set(LeftEye, 0.53, 0.18)
	set(LeftEyeOuter, 0.54, 0.18)
	set(RightEyeInner, 0.48, 0.18)
	set(RightEye, 0.47, 0.18)
	set(RightEyeOuter, 0.46, 0.18)
	set(LeftEar, 0.56, 0.19)
	set(RightEar, 0.44, 0.19)
	set(MouthLeft, 0.52, 0.23)
	set(MouthRight, 0.48, 0.23)

	// Arms hanging down
	set(LeftShoulder, 0.60, 0.30)
	set(RightShoulder, 0.40, 0.30)
	set(LeftElbow, 0.63, 0.42)
	set(RightElbow, 0.37, 0.42)
	set(LeftWrist, 0.64, 0.54)
	set(RightWrist, 0.36, 0.54)
	set(LeftPinky, 0.65, 0.57)
	set(RightPinky, 0.35, 0.57)
	set(LeftIndex, 0.64, 0.58)
	set(RightIndex, 0.36, 0.58)
	set(LeftThumb, 0.63, 0.56)
	set(RightThumb, 0.37, 0.56)

	// Legs
	set(LeftHip, 0.56, 0.58)
	set(RightHip, 0.44, 0.58)
	set(LeftKnee, 0.56, 0.74)
	set(RightKnee, 0.44, 0.74)
	set(LeftAnkle, 0.56, 0.90)
	set(RightAnkle, 0.44, 0.90)
	set(LeftHeel, 0.55, 0.92)
	set(RightHeel, 0.45, 0.92)
	set(LeftFootIndex, 0.58, 0.93)
	set(RightFootIndex, 0.42, 0.93)

	return f
}

// HeadTurnedPose returns the standing pose with the nose shifted sideways by
// offset (positive is toward the subject's left), as when the head rotates.
func HeadTurnedPose(offset float64) Frame {
	f := StandingPose()
	f.Points[Nose].X += offset
	return f
}

// ArmsRaisedPose returns the standing pose with both wrists lifted the given
// height above the shoulders.
func ArmsRaisedPose(height float64) Frame {
	f := StandingPose()
	for _, arm := range [][3]Joint{
		{LeftShoulder, LeftElbow, LeftWrist},
		{RightShoulder, RightElbow, RightWrist},
	} {
		shoulder := f.Points[arm[0]]
		f.Points[arm[1]].Y = shoulder.Y - height/2
		f.Points[arm[2]].Y = shoulder.Y - height
	}
	return f
}

// WavePose returns the standing pose with the right arm raised and the right
// wrist at the given horizontal position.
func WavePose(wristX float64) Frame {
	f := StandingPose()
	f.Points[RightElbow] = Landmark{X: 0.30, Y: 0.25, Visibility: 0.99}
	f.Points[RightWrist] = Landmark{X: wristX, Y: 0.08, Visibility: 0.99}
	return f
}

// ClapPose returns the standing pose with the wrists held in front of the
// chest, separated horizontally by gap.
func ClapPose(gap float64) Frame {
	f := StandingPose()
	f.Points[LeftWrist] = Landmark{X: 0.5 + gap/2, Y: 0.40, Visibility: 0.99}
	f.Points[RightWrist] = Landmark{X: 0.5 - gap/2, Y: 0.40, Visibility: 0.99}
	return f
}
