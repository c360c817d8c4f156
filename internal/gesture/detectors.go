package gesture

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/dkinzer222/avatarai/internal/detector"
)

// arm lists the joints of one arm from the shoulder out.
type arm struct {
	shoulder, elbow, wrist detector.Joint
}

var arms = [2]arm{
	{detector.LeftShoulder, detector.LeftElbow, detector.LeftWrist},
	{detector.RightShoulder, detector.RightElbow, detector.RightWrist},
}

// detectWaving looks for a wrist swinging side to side: its x position
// crosses the window mean at least twice per cycle with enough travel.
func detectWaving(cfg Config, window []detector.Frame) bool {
	xs := make([]float64, len(window))
	for _, a := range arms {
		for i := range window {
			xs[i] = window[i].Joint(a.wrist).X
		}

		mean := stat.Mean(xs, nil)
		crossings := 0
		for i := 1; i < len(xs); i++ {
			if (xs[i-1] < mean) != (xs[i] < mean) {
				crossings++
			}
		}

		amplitude := floats.Max(xs) - floats.Min(xs)
		if crossings >= 2*cfg.MinWaveCycles && amplitude > cfg.WaveAmplitude {
			return true
		}
	}
	return false
}

// detectPointing reports an arm held straight in the newest frame.
func detectPointing(cfg Config, window []detector.Frame) bool {
	f := &window[len(window)-1]
	for _, a := range arms {
		upper := sub(f.Joint(a.elbow), f.Joint(a.shoulder))
		lower := sub(f.Joint(a.wrist), f.Joint(a.elbow))

		nu, nl := floats.Norm(upper, 2), floats.Norm(lower, 2)
		if nu == 0 || nl == 0 {
			continue
		}
		cos := math.Max(-1, math.Min(1, floats.Dot(upper, lower)/(nu*nl)))
		if math.Acos(cos) > cfg.PointAngle {
			return true
		}
	}
	return false
}

// detectClapping counts strict local minima of the wrist-to-wrist distance.
func detectClapping(cfg Config, window []detector.Frame) bool {
	dist := make([]float64, len(window))
	for i := range window {
		d := sub(window[i].Joint(detector.LeftWrist), window[i].Joint(detector.RightWrist))
		dist[i] = floats.Norm(d, 2)
	}

	minima := 0
	for i := 1; i < len(dist)-1; i++ {
		if dist[i] < dist[i-1] && dist[i] < dist[i+1] {
			minima++
		}
	}
	if minima < cfg.MinClaps {
		return false
	}
	spacing := float64(len(dist)) / float64(minima)
	return spacing < float64(cfg.Window)/cfg.ClapSpeed
}

// detectRaisingHand reports a wrist well above its shoulder in the newest
// frame. Smaller y is higher.
func detectRaisingHand(cfg Config, window []detector.Frame) bool {
	f := &window[len(window)-1]
	for _, a := range arms {
		if f.Joint(a.wrist).Y < f.Joint(a.shoulder).Y-cfg.RaiseHeight {
			return true
		}
	}
	return false
}

func sub(a, b detector.Landmark) []float64 {
	return []float64{a.X - b.X, a.Y - b.Y, a.Z - b.Z}
}
