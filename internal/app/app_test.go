package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/dkinzer222/avatarai/internal/avatar"
	"github.com/dkinzer222/avatarai/internal/calibration"
	"github.com/dkinzer222/avatarai/internal/detector"
	"github.com/dkinzer222/avatarai/internal/gesture"
)

func newTestApp(t *testing.T) (*App, *detector.MockDetector) {
	t.Helper()
	a := New(DefaultConfig())
	mock := detector.NewMockDetector()
	a.SetDetector(mock)
	t.Cleanup(a.Close)
	return a, mock
}

func TestApp_SessionLifecycle(t *testing.T) {
	a, _ := newTestApp(t)

	var statuses []Status
	a.OnStatus(func(s Status) { statuses = append(statuses, s) })

	s1 := a.NewSession()
	s2 := a.NewSession()
	if s1.ID == s2.ID {
		t.Fatal("expected unique session ids")
	}
	if got := len(a.SessionIDs()); got != 2 {
		t.Errorf("expected 2 sessions, got %d", got)
	}
	if _, ok := a.Session(s1.ID); !ok {
		t.Error("expected session to be registered")
	}

	s1.Close()
	s1.Close()
	if got := a.Status().Sessions; got != 1 {
		t.Errorf("expected 1 session after close, got %d", got)
	}
	if _, ok := a.Session(s1.ID); ok {
		t.Error("expected closed session to be removed")
	}

	if len(statuses) != 3 {
		t.Errorf("expected 3 status updates, got %d", len(statuses))
	}
}

func TestSession_IndependentState(t *testing.T) {
	a, _ := newTestApp(t)
	s1 := a.NewSession()
	s2 := a.NewSession()

	s1.StartCalibration()
	size := 2.0
	s1.Customize(avatar.Update{Size: &size})

	if s2.Instruction().State != calibration.NotStarted {
		t.Error("expected calibration to be per session")
	}
	c, _ := s2.Customize(avatar.Update{})
	if c.Size != 1.0 {
		t.Errorf("expected customization to be per session, got size %f", c.Size)
	}
}

func TestSession_ProcessPose(t *testing.T) {
	a, _ := newTestApp(t)
	s := a.NewSession()
	defer s.Close()

	inst := s.StartCalibration()
	if inst.State != calibration.HeadTurn {
		t.Fatalf("expected head_turn, got %s", inst.State)
	}
	if a.Status().Calibration != calibration.HeadTurn {
		t.Errorf("expected status to follow calibration, got %s", a.Status().Calibration)
	}

	var gestures []string
	for i := 0; i < 30; i++ {
		x := 0.2
		if (i/5)%2 == 1 {
			x = 0.4
		}
		f := detector.WavePose(x)
		out := s.ProcessPose(&f, nil, "")
		if out.Gesture != "" {
			gestures = append(gestures, out.Gesture)
		}
		if out.Expression != "neutral" {
			t.Errorf("expected neutral for a missing face, got %q", out.Expression)
		}
		if out.Pose != nil {
			t.Error("expected no pose overlay for client landmarks")
		}
		out.Close()
	}

	if len(gestures) != 1 || gestures[0] != gesture.Waving {
		t.Errorf("expected a single wave, got %v", gestures)
	}
	if a.Status().LastGesture != gesture.Waving {
		t.Errorf("expected last gesture in status, got %q", a.Status().LastGesture)
	}
}

func TestSession_ProcessPoseKeepsClientExpression(t *testing.T) {
	a, _ := newTestApp(t)
	s := a.NewSession()
	defer s.Close()

	f := detector.StandingPose()
	out := s.ProcessPose(&f, nil, "frown")
	defer out.Close()
	if out.Expression != "frown" {
		t.Errorf("expected client expression to pass through, got %q", out.Expression)
	}
}

func TestSession_NoBodyFreezesTracking(t *testing.T) {
	a, _ := newTestApp(t)
	s := a.NewSession()
	defer s.Close()

	s.StartCalibration()
	for i := 0; i < 3; i++ {
		out := s.ProcessPose(nil, nil, "")
		if out.Gesture != "" {
			t.Errorf("expected no gesture without a body, got %q", out.Gesture)
		}
		if out.Instruction.State != calibration.HeadTurn {
			t.Errorf("expected calibration frozen, got %s", out.Instruction.State)
		}
		out.Close()
		time.Sleep(40 * time.Millisecond)
	}
}

func TestSession_ProcessFrame(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	a, mock := newTestApp(t)
	pose := detector.StandingPose()
	mock.SetBody(&pose)

	s := a.NewSession()
	defer s.Close()

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	out, err := s.ProcessFrame(&frame)
	if err != nil {
		t.Fatalf("ProcessFrame() error = %v", err)
	}
	defer out.Close()

	if mock.Calls() != 1 {
		t.Errorf("expected detector to run once, got %d", mock.Calls())
	}
	if out.Avatar == nil {
		t.Fatal("expected an avatar image for the first frame")
	}
	if out.Avatar.Cols() != 640 || out.Avatar.Rows() != 480 {
		t.Errorf("expected 640x480 avatar, got %dx%d", out.Avatar.Cols(), out.Avatar.Rows())
	}
	if out.Pose == nil || out.Pose.Cols() != frame.Cols() {
		t.Error("expected pose overlay the size of the input frame")
	}
	if out.Expression != "neutral" {
		t.Errorf("expected neutral expression, got %q", out.Expression)
	}
}

func TestSession_ProcessFrameErrors(t *testing.T) {
	a, mock := newTestApp(t)
	s := a.NewSession()
	defer s.Close()

	if _, err := s.ProcessFrame(nil); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("expected ErrEmptyFrame, got %v", err)
	}

	if testing.Short() {
		return
	}

	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	detectErr := errors.New("service crashed")
	mock.SetError(detectErr)
	if _, err := s.ProcessFrame(&frame); !errors.Is(err, detectErr) {
		t.Errorf("expected wrapped detector error, got %v", err)
	}

	mock.SetError(nil)
	a.SetEnabled(false)
	calls := mock.Calls()
	out, err := s.ProcessFrame(&frame)
	if err != nil {
		t.Fatalf("unexpected error while disabled: %v", err)
	}
	out.Close()
	if mock.Calls() != calls {
		t.Error("expected detection to be skipped while disabled")
	}
}

func TestSession_CustomizationDuringProcessing(t *testing.T) {
	a, _ := newTestApp(t)
	s := a.NewSession()
	defer s.Close()

	size := 1.5
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		standing := detector.StandingPose()
		for i := 0; i < 20; i++ {
			s.ProcessPose(&standing, nil, "").Close()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			if _, errs := s.Customize(avatar.Update{Size: &size}); len(errs) != 0 {
				t.Errorf("unexpected errors: %v", errs)
			}
			s.Customization()
		}
	}()
	wg.Wait()

	if got := s.Customization().Size; got != size {
		t.Errorf("expected size %v, got %v", size, got)
	}
}
