package detector

import (
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-9

func rawFromFrame(f Frame) []RawLandmark {
	raw := make([]RawLandmark, NumLandmarks)
	for i, p := range f.Points {
		vis := p.Visibility
		raw[i] = RawLandmark{X: p.X, Y: p.Y, Z: p.Z, Visibility: &vis}
	}
	return raw
}

func TestNewFrame(t *testing.T) {
	t.Run("copies landmarks in order", func(t *testing.T) {
		standing := StandingPose()
		f, err := NewFrame(rawFromFrame(standing))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Points != standing.Points {
			t.Error("expected frame to match the input landmarks")
		}
	})

	t.Run("clips x and y to unit range", func(t *testing.T) {
		raw := rawFromFrame(StandingPose())
		raw[Nose].X = -0.3
		raw[Nose].Y = 1.7
		raw[Nose].Z = -4.0

		f, err := NewFrame(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		nose := f.Joint(Nose)
		if nose.X != 0 || nose.Y != 1 {
			t.Errorf("expected nose clipped to (0,1), got (%f,%f)", nose.X, nose.Y)
		}
		if nose.Z != -4.0 {
			t.Errorf("expected depth to be left unclipped, got %f", nose.Z)
		}
	})

	t.Run("missing visibility defaults to 1", func(t *testing.T) {
		raw := rawFromFrame(StandingPose())
		raw[LeftWrist].Visibility = nil

		f, err := NewFrame(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Joint(LeftWrist).Visibility != 1.0 {
			t.Errorf("expected default visibility 1.0, got %f", f.Joint(LeftWrist).Visibility)
		}
	})

	t.Run("rejects wrong landmark count", func(t *testing.T) {
		raw := rawFromFrame(StandingPose())[:17]
		if _, err := NewFrame(raw); err == nil {
			t.Error("expected error for 17 landmarks")
		}
	})

	t.Run("rejects non-finite coordinates", func(t *testing.T) {
		raw := rawFromFrame(StandingPose())
		raw[LeftKnee].Z = math.NaN()
		if _, err := NewFrame(raw); err == nil {
			t.Error("expected error for NaN depth")
		}
	})
}

func TestFrame_Center(t *testing.T) {
	f := StandingPose()
	f.Points[RightHip].Visibility = 0.3

	hip := f.Center(LeftHip, RightHip)
	if math.Abs(hip.X-0.5) > epsilon {
		t.Errorf("expected hip center x 0.5, got %f", hip.X)
	}
	if math.Abs(hip.Y-0.58) > epsilon {
		t.Errorf("expected hip center y 0.58, got %f", hip.Y)
	}
	if hip.Visibility != 0.3 {
		t.Errorf("expected lower visibility 0.3, got %f", hip.Visibility)
	}
}

func TestConnections_WithinTopology(t *testing.T) {
	for _, c := range Connections {
		if c.Start < 0 || int(c.Start) >= NumLandmarks || c.End < 0 || int(c.End) >= NumLandmarks {
			t.Errorf("connection %v references a joint outside the topology", c)
		}
		if c.Start == c.End {
			t.Errorf("connection %v joins a joint to itself", c)
		}
	}
}

func TestJointIndices(t *testing.T) {
	// Downstream formulas rely on these positions.
	cases := map[Joint]int{
		Nose:           0,
		LeftEar:        7,
		RightEar:       8,
		LeftShoulder:   11,
		RightShoulder:  12,
		LeftElbow:      13,
		RightElbow:     14,
		LeftWrist:      15,
		RightWrist:     16,
		LeftHip:        23,
		RightHip:       24,
		LeftKnee:       25,
		RightKnee:      26,
		LeftAnkle:      27,
		RightAnkle:     28,
		RightFootIndex: 32,
	}
	for j, want := range cases {
		if int(j) != want {
			t.Errorf("joint %d: expected index %d", j, want)
		}
	}
}

func TestParseServiceResponse(t *testing.T) {
	t.Run("empty pose means nobody detected", func(t *testing.T) {
		r, err := ParseServiceResponse([]byte(`{"pose":[],"face":[]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Body != nil || r.Face != nil {
			t.Errorf("expected empty result, got %+v", r)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		if _, err := ParseServiceResponse([]byte(`{"pose":`)); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("short pose array", func(t *testing.T) {
		if _, err := ParseServiceResponse([]byte(`{"pose":[{"x":0.5,"y":0.5,"z":0}]}`)); err == nil {
			t.Error("expected error for a single landmark")
		}
	})
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty result by default", func(t *testing.T) {
		mock := NewMockDetector()
		r, err := mock.Detect(nil)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if r == nil || r.Body != nil {
			t.Errorf("expected empty result, got %+v", r)
		}
	})

	t.Run("returns configured body and face", func(t *testing.T) {
		mock := NewMockDetector()
		pose := StandingPose()
		mock.SetBody(&pose)
		mock.SetFace(FaceLandmarks{{X: 0.5, Y: 0.5}})

		r, err := mock.Detect(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Body == nil || r.Body.Points != pose.Points {
			t.Error("expected configured body")
		}
		if len(r.Face) != 1 {
			t.Errorf("expected 1 face point, got %d", len(r.Face))
		}
		if mock.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()
		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		r, err := mock.Detect(nil)
		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if r != nil {
			t.Errorf("expected nil result when error is set, got %v", r)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestArmsRaisedPose(t *testing.T) {
	f := ArmsRaisedPose(0.2)
	for _, arm := range [][2]Joint{{LeftShoulder, LeftWrist}, {RightShoulder, RightWrist}} {
		lift := f.Joint(arm[0]).Y - f.Joint(arm[1]).Y
		if math.Abs(lift-0.2) > epsilon {
			t.Errorf("expected wrist 0.2 above shoulder, got %f", lift)
		}
	}
}
