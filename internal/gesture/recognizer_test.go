package gesture

import (
	"testing"
	"time"

	"github.com/dkinzer222/avatarai/internal/detector"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestRecognizer() (*Recognizer, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := NewRecognizer(DefaultConfig())
	r.now = clock.now
	return r, clock
}

func addAll(r *Recognizer, frames []detector.Frame) {
	for i := range frames {
		r.Add(&frames[i])
	}
}

func repeat(f detector.Frame, n int) []detector.Frame {
	out := make([]detector.Frame, n)
	for i := range out {
		out[i] = f
	}
	return out
}

// waveFrames swings the right wrist between two positions every five frames.
func waveFrames(n int) []detector.Frame {
	out := make([]detector.Frame, n)
	for i := range out {
		x := 0.2
		if (i/5)%2 == 1 {
			x = 0.4
		}
		out[i] = detector.WavePose(x)
	}
	return out
}

// clapFrames brings the wrists together every third frame.
func clapFrames(n int) []detector.Frame {
	out := make([]detector.Frame, n)
	for i := range out {
		gap := 0.3
		if i%3 == 2 {
			gap = 0.05
		}
		out[i] = detector.ClapPose(gap)
	}
	return out
}

func foldedArmPose() detector.Frame {
	f := detector.StandingPose()
	f.Points[detector.LeftElbow] = detector.Landmark{X: 0.60, Y: 0.45, Visibility: 0.99}
	f.Points[detector.LeftWrist] = detector.Landmark{X: 0.60, Y: 0.32, Visibility: 0.99}
	return f
}

func TestRecognizer_StaticFramesDetectNothing(t *testing.T) {
	r, _ := newTestRecognizer()
	addAll(r, repeat(detector.StandingPose(), 30))

	if got := r.Detect(); got != "" {
		t.Errorf("expected no gesture for a still person, got %q", got)
	}
}

func TestRecognizer_NeedsFullWindow(t *testing.T) {
	r, _ := newTestRecognizer()
	addAll(r, waveFrames(29))

	if got := r.Detect(); got != "" {
		t.Errorf("expected nothing before the window fills, got %q", got)
	}

	r.Add(nil)
	if got := r.Detect(); got != "" {
		t.Errorf("expected nil frames to be ignored, got %q", got)
	}

	wave := detector.WavePose(0.4)
	r.Add(&wave)
	if got := r.Detect(); got != Waving {
		t.Errorf("expected waving once the window is full, got %q", got)
	}
}

func TestRecognizer_Gestures(t *testing.T) {
	tests := []struct {
		name   string
		frames []detector.Frame
		want   string
	}{
		{"waving", waveFrames(30), Waving},
		{"pointing", repeat(foldedArmPose(), 30), Pointing},
		{"clapping", clapFrames(30), Clapping},
		{"raising hand", repeat(detector.ArmsRaisedPose(0.3), 30), RaisingHand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRecognizer()
			addAll(r, tt.frames)
			if got := r.Detect(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecognizer_Cooldown(t *testing.T) {
	r, clock := newTestRecognizer()
	addAll(r, waveFrames(30))

	if got := r.Detect(); got != Waving {
		t.Fatalf("expected waving, got %q", got)
	}

	clock.advance(time.Second)
	addAll(r, waveFrames(10))
	if got := r.Detect(); got != "" {
		t.Errorf("expected gestures to be suppressed inside the cooldown, got %q", got)
	}

	clock.advance(1500 * time.Millisecond)
	addAll(r, waveFrames(30))
	if got := r.Detect(); got != Waving {
		t.Errorf("expected waving again after the cooldown, got %q", got)
	}
}

func TestRecognizer_CooldownCoversUnreportedGestures(t *testing.T) {
	r, clock := newTestRecognizer()
	addAll(r, waveFrames(30))
	if got := r.Detect(); got != Waving {
		t.Fatalf("expected waving, got %q", got)
	}

	// The wave pose also has the right wrist above the shoulder, so
	// raising_hand was present at the same time and is cooling down too.
	clock.advance(500 * time.Millisecond)
	if got := r.Detect(); got != "" {
		t.Errorf("expected nothing inside the cooldown, got %q", got)
	}

	clock.advance(1600 * time.Millisecond)
	if got := r.Detect(); got != Waving {
		t.Errorf("expected waving after the cooldown, got %q", got)
	}
}

func TestRecognizer_Reset(t *testing.T) {
	r, _ := newTestRecognizer()
	addAll(r, waveFrames(30))
	r.Detect()

	r.Reset()
	if got := r.Detect(); got != "" {
		t.Errorf("expected empty window after reset, got %q", got)
	}

	addAll(r, waveFrames(30))
	if got := r.Detect(); got != Waving {
		t.Errorf("expected reset to clear cooldowns, got %q", got)
	}
}

func TestRecognizer_WindowBounded(t *testing.T) {
	r, _ := newTestRecognizer()
	addAll(r, repeat(detector.StandingPose(), 100))
	if len(r.window) != 30 {
		t.Errorf("expected window of 30, got %d", len(r.window))
	}
}

func TestDetectPointing_ZeroLengthBone(t *testing.T) {
	f := detector.StandingPose()
	f.Points[detector.LeftElbow] = f.Points[detector.LeftShoulder]
	if detectPointing(DefaultConfig(), []detector.Frame{f}) {
		t.Error("expected a zero-length bone never to count as pointing")
	}
}

func TestDetectWaving_SmallAmplitude(t *testing.T) {
	frames := make([]detector.Frame, 30)
	for i := range frames {
		x := 0.30
		if (i/3)%2 == 1 {
			x = 0.40
		}
		frames[i] = detector.WavePose(x)
	}
	if detectWaving(DefaultConfig(), frames) {
		t.Error("expected a 0.10 swing to be too small for a wave")
	}
}
