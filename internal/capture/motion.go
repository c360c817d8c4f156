package capture

import (
	"image"

	"gocv.io/x/gocv"
)

// Frame differencing parameters.
const (
	blurSize      = 21
	diffThreshold = 25
)

// MotionGate decides which camera frames are worth tracking. A frame passes
// when enough pixels changed since the previous frame, or when too many
// frames in a row have been skipped.
type MotionGate struct {
	threshold float64
	maxIdle   int
	prev      gocv.Mat
	idle      int
}

// NewMotionGate creates a gate. threshold is a percentage of pixels; maxIdle
// bounds the run of skipped frames so a still subject keeps being tracked.
func NewMotionGate(threshold float64, maxIdle int) *MotionGate {
	return &MotionGate{
		threshold: threshold,
		maxIdle:   maxIdle,
		prev:      gocv.NewMat(),
	}
}

// Pass reports whether frame should be processed.
func (g *MotionGate) Pass(frame *gocv.Mat) bool {
	if frame == nil || frame.Empty() {
		return false
	}

	changed := g.change(frame)
	if changed < 0 || changed > g.threshold || g.idle >= g.maxIdle {
		g.idle = 0
		return true
	}
	g.idle++
	return false
}

// change returns the percentage of pixels that differ from the previous
// frame, or -1 for the first frame or a size change.
func (g *MotionGate) change(frame *gocv.Mat) float64 {
	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	gocv.GaussianBlur(gray, &blurred, image.Pt(blurSize, blurSize), 0, 0, gocv.BorderDefault)

	prev := g.prev
	g.prev = blurred
	defer prev.Close()

	if prev.Empty() || prev.Rows() != blurred.Rows() || prev.Cols() != blurred.Cols() {
		return -1
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, prev, &diff)
	gocv.Threshold(diff, &diff, diffThreshold, 255, gocv.ThresholdBinary)

	return float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols()) * 100
}

// Close releases the stored frame.
func (g *MotionGate) Close() {
	g.prev.Close()
}
