package app

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/dkinzer222/avatarai/internal/avatar"
	"github.com/dkinzer222/avatarai/internal/calibration"
	"github.com/dkinzer222/avatarai/internal/gesture"
)

// Session holds the tracking state of one client connection. Calls are
// serialized, so frames are processed one at a time; the session is discarded
// when the client leaves.
type Session struct {
	ID string

	app        *App
	mu         sync.Mutex
	renderer   *avatar.Renderer
	guide      *calibration.Guide
	recognizer *gesture.Recognizer
	closeOnce  sync.Once
}

// NewSession creates and registers a session with fresh tracking state.
func (a *App) NewSession() *Session {
	s := &Session{
		ID:         uuid.New().String(),
		app:        a,
		renderer:   avatar.NewRenderer(a.config.Avatar),
		guide:      calibration.NewGuide(a.config.Calibration),
		recognizer: gesture.NewRecognizer(a.config.Gesture),
	}
	s.guide.OnTransition(s.calibrationChanged)

	a.updateStatus(func() {
		a.sessions[s.ID] = s
	})
	log.Printf("Session %s opened", s.ID)
	return s
}

// Close unregisters the session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.app.updateStatus(func() {
			delete(s.app.sessions, s.ID)
		})
		log.Printf("Session %s closed", s.ID)
	})
}

// StartCalibration (re)starts the calibration sequence.
func (s *Session) StartCalibration() calibration.Instruction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guide.Start()
}

// ResetCalibration returns calibration to its initial state.
func (s *Session) ResetCalibration() calibration.Instruction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guide.Reset()
}

// Instruction returns the current calibration instruction.
func (s *Session) Instruction() calibration.Instruction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guide.CurrentInstruction()
}

// Customize applies a customization update and returns the resulting
// customization. See avatar.Renderer.SetCustomization.
func (s *Session) Customize(u avatar.Update) (avatar.Customization, []error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	errs := s.renderer.SetCustomization(u)
	return s.renderer.Customization(), errs
}

// Customization returns the current avatar customization.
func (s *Session) Customization() avatar.Customization {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderer.Customization()
}

func (s *Session) calibrationChanged(from, to calibration.State) {
	s.app.updateStatus(func() {
		s.app.calibration = to
	})
	if err := s.app.events.PublishCalibration(s.ID, from, to); err != nil {
		log.Printf("Failed to publish calibration event: %v", err)
	}
}
