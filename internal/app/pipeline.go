package app

import (
	"errors"
	"fmt"
	"log"

	"gocv.io/x/gocv"

	"github.com/dkinzer222/avatarai/internal/avatar"
	"github.com/dkinzer222/avatarai/internal/calibration"
	"github.com/dkinzer222/avatarai/internal/detector"
	"github.com/dkinzer222/avatarai/internal/expression"
)

// ErrEmptyFrame is returned when a video frame has no pixels.
var ErrEmptyFrame = errors.New("empty video frame")

// Output is everything produced for one frame. The caller owns the images
// and must Close the Output.
type Output struct {
	// Avatar is the rendered avatar, nil when the renderer throttled this frame.
	Avatar *gocv.Mat
	// Pose is the camera frame with landmarks drawn on it, nil when the
	// landmarks came from the client.
	Pose        *gocv.Mat
	Instruction calibration.Instruction
	Gesture     string
	Expression  string
}

// Close releases the images held by the output.
func (o *Output) Close() {
	if o.Avatar != nil {
		o.Avatar.Close()
		o.Avatar = nil
	}
	if o.Pose != nil {
		o.Pose.Close()
		o.Pose = nil
	}
}

// ProcessFrame runs pose detection on a camera frame and feeds the result
// through the session. Finding nobody is not an error.
func (s *Session) ProcessFrame(img *gocv.Mat) (*Output, error) {
	if img == nil || img.Empty() {
		return nil, ErrEmptyFrame
	}

	result := &detector.Result{}
	if s.app.IsEnabled() {
		r, err := s.app.detect(img)
		if err != nil {
			return nil, fmt.Errorf("detect pose: %w", err)
		}
		result = r
	}

	s.mu.Lock()
	out := s.process(result.Body, string(expression.Classify(result.Face)))
	s.mu.Unlock()

	pose := img.Clone()
	avatar.DrawPose(&pose, result.Body)
	out.Pose = &pose
	return out, nil
}

// ProcessPose feeds landmarks detected by the client through the session.
// When expr is empty it is derived from face.
func (s *Session) ProcessPose(body *detector.Frame, face detector.FaceLandmarks, expr string) *Output {
	if expr == "" {
		expr = string(expression.Classify(face))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.process(body, expr)
}

// process hands the same frame to the recognizer, the guide and the renderer.
func (s *Session) process(body *detector.Frame, expr string) *Output {
	out := &Output{Expression: expr}

	if body != nil {
		s.recognizer.Add(body)
		out.Gesture = s.recognizer.Detect()
	}
	out.Instruction = s.guide.Update(body)
	out.Avatar = s.renderer.Render(body, expr)

	if out.Gesture != "" {
		log.Printf("Session %s: gesture %s", s.ID, out.Gesture)
		s.app.updateStatus(func() {
			s.app.lastGesture = out.Gesture
		})
		if err := s.app.events.PublishGesture(s.ID, out.Gesture); err != nil {
			log.Printf("Failed to publish gesture event: %v", err)
		}
	}
	return out
}

// detect serializes access to the shared detector.
func (a *App) detect(img *gocv.Mat) (*detector.Result, error) {
	a.detectMu.Lock()
	defer a.detectMu.Unlock()

	d := a.Detector()
	if d == nil {
		return &detector.Result{}, nil
	}
	return d.Detect(img)
}
