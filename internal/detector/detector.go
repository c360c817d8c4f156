package detector

import "gocv.io/x/gocv"

// Result holds everything the detector found in one frame. Body is nil when
// no person was found; Face is nil when face tracking found nothing or is
// disabled.
type Result struct {
	Body *Frame
	Face FaceLandmarks
}

// Detector defines the interface for pose detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the detected landmarks.
	// Finding nobody is not an error: the result simply has a nil Body.
	Detect(frame *gocv.Mat) (*Result, error)
	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for pose detection.
type Config struct {
	// ModelComplexity selects the pose model (0 lite, 1 full, 2 heavy).
	ModelComplexity int
	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64
	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64
	// SmoothLandmarks enables the detector's own temporal filtering.
	SmoothLandmarks bool
	// EnableFace runs the face mesh alongside the body pose.
	EnableFace bool
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ModelComplexity: 1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		SmoothLandmarks: true,
		EnableFace:      true,
	}
}
