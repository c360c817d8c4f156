// Package expression maps face mesh landmarks to a coarse expression label.
package expression

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/dkinzer222/avatarai/internal/detector"
)

// Label is a coarse facial expression.
type Label string

const (
	Neutral        Label = "neutral"
	ClosedEyes     Label = "closed_eyes"
	OpenMouth      Label = "open_mouth"
	RaisedEyebrows Label = "raised_eyebrows"
	Frown          Label = "frown"
)

// Face mesh contour indices used by the classifier.
var (
	leftEye  = []int{33, 7, 163, 144, 145, 153, 154, 155, 133, 173, 157, 158, 159, 160, 161, 246}
	rightEye = []int{362, 382, 381, 380, 374, 373, 390, 249, 263, 466, 388, 387, 386, 385, 384, 398}
	mouth    = []int{61, 185, 40, 39, 37, 0, 267, 269, 270, 409, 291, 375, 321, 405, 314, 17, 84, 181, 91, 146}
	eyebrows = []int{70, 63, 105, 66, 107, 336, 296, 334, 293, 300}
)

// minFacePoints is the smallest mesh that covers every contour index.
const minFacePoints = 467

// Thresholds applied in order by Classify.
const (
	ClosedEyesRatio  = 0.2
	OpenMouthRatio   = 0.5
	RaisedBrowHeight = 0.6
	FrownBrowHeight  = 0.3
)

// Classify returns the expression for a face mesh. A missing or truncated
// mesh is neutral.
func Classify(face detector.FaceLandmarks) Label {
	if len(face) < minFacePoints {
		return Neutral
	}

	eyes := (eyeRatio(face, leftEye) + eyeRatio(face, rightEye)) / 2
	mouthOpen := mouthRatio(face)
	brows := eyebrowHeight(face)

	switch {
	case eyes < ClosedEyesRatio:
		return ClosedEyes
	case mouthOpen > OpenMouthRatio:
		return OpenMouth
	case brows > RaisedBrowHeight:
		return RaisedEyebrows
	case brows < FrownBrowHeight:
		return Frown
	}
	return Neutral
}

// eyeRatio is the mean of two vertical lid distances over the eye width.
func eyeRatio(face detector.FaceLandmarks, contour []int) float64 {
	p := pick(face, contour)
	vertical := (dist(p[1], p[5]) + dist(p[2], p[4])) / 2
	horizontal := dist(p[0], p[3])
	if horizontal == 0 {
		return 0
	}
	return vertical / horizontal
}

func mouthRatio(face detector.FaceLandmarks) float64 {
	p := pick(face, mouth)
	horizontal := dist(p[0], p[6])
	if horizontal == 0 {
		return 0
	}
	return dist(p[3], p[9]) / horizontal
}

func eyebrowHeight(face detector.FaceLandmarks) float64 {
	ys := make([]float64, len(eyebrows))
	for i, idx := range eyebrows {
		ys[i] = face[idx].Y
	}
	return stat.Mean(ys, nil)
}

func pick(face detector.FaceLandmarks, idx []int) []detector.Point3D {
	out := make([]detector.Point3D, len(idx))
	for i, j := range idx {
		out[i] = face[j]
	}
	return out
}

func dist(a, b detector.Point3D) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
