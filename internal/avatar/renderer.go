// Package avatar renders a stylized skeleton from body landmarks.
package avatar

import (
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/floats"

	"github.com/dkinzer222/avatarai/internal/detector"
	"github.com/dkinzer222/avatarai/internal/expression"
)

// visibilityThreshold is the confidence a landmark needs before it is drawn.
const visibilityThreshold = 0.5

// Config holds configuration options for the renderer.
type Config struct {
	// Width and Height of the output image in pixels.
	Width  int
	Height int
	// Scale maps normalized coordinates to pixels before the depth multiplier.
	Scale float64
	// HistorySize is how many frames feed the smoothed pose.
	HistorySize int
	// InterpolationFrames is the number of eased steps between poses.
	InterpolationFrames int
	// MinInterval is the shortest gap between two renders.
	MinInterval time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Width:               640,
		Height:              480,
		Scale:               200,
		HistorySize:         5,
		InterpolationFrames: 5,
		MinInterval:         time.Second / 30,
	}
}

// expressionColors tints the head joints.
var expressionColors = map[expression.Label]color.RGBA{
	expression.Neutral:        {R: 255, G: 255, B: 255, A: 255},
	expression.ClosedEyes:     {R: 128, G: 128, B: 255, A: 255},
	expression.OpenMouth:      {R: 255, G: 200, B: 0, A: 255},
	expression.RaisedEyebrows: {R: 0, G: 255, B: 128, A: 255},
	expression.Frown:          {R: 255, G: 64, B: 64, A: 255},
}

// pose holds per-landmark positions and visibilities.
type pose struct {
	pos [detector.NumLandmarks]detector.Point3D
	vis [detector.NumLandmarks]float64
}

// Renderer draws one avatar image per frame. It keeps a short motion history
// and the last smoothed pose, so each session needs its own Renderer.
type Renderer struct {
	config Config
	now    func() time.Time

	mu         sync.Mutex
	custom     Customization
	history    []detector.Frame
	prev       *pose
	lastRender time.Time
}

// NewRenderer creates a renderer with the default customization.
func NewRenderer(config Config) *Renderer {
	if config.HistorySize < 1 {
		config.HistorySize = 1
	}
	if config.InterpolationFrames < 1 {
		config.InterpolationFrames = 1
	}
	return &Renderer{
		config:  config,
		now:     time.Now,
		custom:  DefaultCustomization(),
		history: make([]detector.Frame, 0, config.HistorySize),
	}
}

// Render draws frame and returns the image, which the caller must Close.
// It returns nil when called again within MinInterval of the previous render.
// A nil frame produces a blank image.
func (r *Renderer) Render(frame *detector.Frame, expr string) *gocv.Mat {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if !r.lastRender.IsZero() && now.Sub(r.lastRender) < r.config.MinInterval {
		return nil
	}
	r.lastRender = now

	img := gocv.Zeros(r.config.Height, r.config.Width, gocv.MatTypeCV8UC3)
	if frame == nil {
		return &img
	}

	if len(r.history) == r.config.HistorySize {
		copy(r.history, r.history[1:])
		r.history = r.history[:len(r.history)-1]
	}
	r.history = append(r.history, *frame)

	current := r.smooth()
	target := current
	if r.prev != nil {
		steps := interpolate(r.prev, &current, r.config.InterpolationFrames)
		target = steps[len(steps)-1]
	}
	r.prev = &current

	r.draw(&img, &target, expressionColor(expr, r.custom.Color))
	return &img
}

// SetCustomization applies every valid field of u. Each rejected field is
// reported as a *FieldError; the others still take effect.
func (r *Renderer) SetCustomization(u Update) []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.custom.apply(u)
}

// Customization returns the current customization.
func (r *Renderer) Customization() Customization {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.custom
}

// smooth averages the history with weights exp(linspace(-1, 0, n)), newest
// heaviest, then scales positions by the avatar size. Visibility comes from
// the newest frame.
func (r *Renderer) smooth() pose {
	weights := smoothingWeights(len(r.history))

	var p pose
	for i, f := range r.history {
		w := weights[i]
		for j, lm := range f.Points {
			p.pos[j].X += w * lm.X
			p.pos[j].Y += w * lm.Y
			p.pos[j].Z += w * lm.Z
		}
	}

	newest := r.history[len(r.history)-1]
	size := r.custom.Size
	for j := range p.pos {
		p.pos[j].X *= size
		p.pos[j].Y *= size
		p.pos[j].Z *= size
		p.vis[j] = newest.Points[j].Visibility
	}
	return p
}

func smoothingWeights(n int) []float64 {
	if n == 1 {
		return []float64{1}
	}
	w := floats.Span(make([]float64, n), -1, 0)
	for i := range w {
		w[i] = math.Exp(w[i])
	}
	floats.Scale(1/floats.Sum(w), w)
	return w
}

// interpolate returns n poses eased from prev toward cur with
// t' = 0.5*(1-cos(t*pi)), t = (i+1)/(n+1). Visibility follows cur.
func interpolate(prev, cur *pose, n int) []pose {
	out := make([]pose, n)
	for i := range out {
		t := float64(i+1) / float64(n+1)
		t = 0.5 * (1 - math.Cos(t*math.Pi))
		for j := range cur.pos {
			a, b := prev.pos[j], cur.pos[j]
			out[i].pos[j] = detector.Point3D{
				X: a.X + t*(b.X-a.X),
				Y: a.Y + t*(b.Y-a.Y),
				Z: a.Z + t*(b.Z-a.Z),
			}
		}
		out[i].vis = cur.vis
	}
	return out
}

// project maps each position to pixels: xy * scale * (1+tanh(z)), centered.
func (r *Renderer) project(p *pose) [detector.NumLandmarks]image.Point {
	var pts [detector.NumLandmarks]image.Point
	cx, cy := float64(r.config.Width)/2, float64(r.config.Height)/2
	for i, pos := range p.pos {
		depth := 1 + math.Tanh(pos.Z)
		pts[i] = image.Pt(
			int(pos.X*r.config.Scale*depth+cx),
			int(pos.Y*r.config.Scale*depth+cy),
		)
	}
	return pts
}

// drawableBones returns the connections whose endpoints are both visible and
// inside bounds.
func drawableBones(pts *[detector.NumLandmarks]image.Point, vis *[detector.NumLandmarks]float64, bounds image.Rectangle) []detector.Connection {
	var bones []detector.Connection
	for _, c := range detector.Connections {
		if vis[c.Start] <= visibilityThreshold || vis[c.End] <= visibilityThreshold {
			continue
		}
		if !pts[c.Start].In(bounds) || !pts[c.End].In(bounds) {
			continue
		}
		bones = append(bones, c)
	}
	return bones
}

func (r *Renderer) draw(img *gocv.Mat, p *pose, headColor color.RGBA) {
	c := r.custom
	pts := r.project(p)
	bounds := image.Rect(0, 0, r.config.Width, r.config.Height)

	for _, bone := range drawableBones(&pts, &p.vis, bounds) {
		a, b := pts[bone.Start], pts[bone.End]
		switch c.Style {
		case StyleGradient:
			zAvg := (p.pos[bone.Start].Z + p.pos[bone.End].Z) / 2
			gocv.Line(img, a, b, depthShade(c.Color, zAvg), c.LineThickness)
		case StyleDashed:
			dashedLine(img, a, b, c.Color, c.LineThickness, 10, 5)
		default:
			gocv.Line(img, a, b, c.Color, c.LineThickness)
		}
	}

	for i, pt := range pts {
		if p.vis[i] <= visibilityThreshold {
			continue
		}
		col := c.Color
		if i < detector.NumHeadLandmarks {
			col = headColor
		}
		gocv.Circle(img, pt, jointRadius(c.JointSize, p.pos[i].Z), col, -1)
	}
}

// jointRadius is 5*jointSize*(1+z) clamped to [1, 20].
func jointRadius(jointSize, z float64) int {
	return int(clamp(5*jointSize*(1+z), 1, 20))
}

// depthShade scales each channel by 1+z, clamped to [0, 255].
func depthShade(c color.RGBA, z float64) color.RGBA {
	f := 1 + z
	shade := func(v uint8) uint8 {
		return uint8(clamp(float64(v)*f, 0, 255))
	}
	return color.RGBA{R: shade(c.R), G: shade(c.G), B: shade(c.B), A: c.A}
}

// dashedLine strokes a to b as dash-pixel segments separated by gap pixels.
func dashedLine(img *gocv.Mat, a, b image.Point, c color.RGBA, thickness, dash, gap int) {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	ux, uy := dx/length, dy/length
	for d := 0.0; d < length; d += float64(dash + gap) {
		end := math.Min(d+float64(dash), length)
		p1 := image.Pt(a.X+int(ux*d), a.Y+int(uy*d))
		p2 := image.Pt(a.X+int(ux*end), a.Y+int(uy*end))
		gocv.Line(img, p1, p2, c, thickness)
	}
}

func expressionColor(expr string, fallback color.RGBA) color.RGBA {
	if c, ok := expressionColors[expression.Label(expr)]; ok {
		return c
	}
	return fallback
}

// DrawPose overlays the raw landmarks on a camera image: visible landmarks as
// green dots and bones between visible, in-frame landmarks as red lines.
func DrawPose(img *gocv.Mat, frame *detector.Frame) {
	if img == nil || img.Empty() || frame == nil {
		return
	}

	w, h := img.Cols(), img.Rows()
	bounds := image.Rect(0, 0, w, h)

	var pts [detector.NumLandmarks]image.Point
	var vis [detector.NumLandmarks]float64
	for i, lm := range frame.Points {
		pts[i] = image.Pt(int(lm.X*float64(w)), int(lm.Y*float64(h)))
		vis[i] = lm.Visibility
	}

	green := color.RGBA{G: 255, A: 255}
	red := color.RGBA{R: 255, A: 255}
	for i, pt := range pts {
		if vis[i] > visibilityThreshold && pt.In(bounds) {
			gocv.Circle(img, pt, 5, green, -1)
		}
	}
	for _, bone := range drawableBones(&pts, &vis, bounds) {
		gocv.Line(img, pts[bone.Start], pts[bone.End], red, 2)
	}
}
