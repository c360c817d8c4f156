package capture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/dkinzer222/avatarai/internal/app"
)

// Processor tracks one frame. *app.Session implements it.
type Processor interface {
	ProcessFrame(img *gocv.Mat) (*app.Output, error)
}

// Feed reads a camera at a fixed rate and hands moving frames to a
// Processor. Each rendered avatar is JPEG-encoded and passed to the sink.
type Feed struct {
	config    Config
	camera    Camera
	processor Processor
	sink      func(jpeg []byte)
	gate      *MotionGate
}

// NewFeed creates a feed. sink may be nil.
func NewFeed(config Config, camera Camera, processor Processor, sink func(jpeg []byte)) *Feed {
	if config.FPS <= 0 {
		config.FPS = DefaultConfig().FPS
	}
	return &Feed{
		config:    config,
		camera:    camera,
		processor: processor,
		sink:      sink,
		gate:      NewMotionGate(config.MotionThreshold, config.MaxIdleFrames),
	}
}

// Run opens the camera and processes frames until ctx is cancelled or the
// camera fails.
func (f *Feed) Run(ctx context.Context) error {
	if err := f.camera.Open(); err != nil {
		return err
	}
	defer f.camera.Close()
	defer f.gate.Close()

	ticker := time.NewTicker(time.Second / time.Duration(f.config.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err := f.step(); err != nil {
			if errors.Is(err, ErrNoMoreFrames) || errors.Is(err, ErrCameraNotOpen) {
				return err
			}
			log.Printf("Camera frame skipped: %v", err)
		}
	}
}

// step reads and, if it passes the motion gate, processes one frame.
func (f *Feed) step() error {
	frame, err := f.camera.ReadFrame()
	if err != nil {
		return err
	}
	defer frame.Close()

	if !f.gate.Pass(frame) {
		return nil
	}

	out, err := f.processor.ProcessFrame(frame)
	if err != nil {
		return err
	}
	defer out.Close()

	if out.Avatar == nil || f.sink == nil {
		return nil
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *out.Avatar)
	if err != nil {
		return fmt.Errorf("encode avatar: %w", err)
	}
	defer buf.Close()
	f.sink(append([]byte(nil), buf.GetBytes()...))
	return nil
}
