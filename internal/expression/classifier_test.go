package expression

import (
	"testing"

	"github.com/dkinzer222/avatarai/internal/detector"
)

// testFace builds a 468-point mesh with open eyes (ratio 0.4), a closed mouth
// (ratio 0.2) and eyebrows at the given height.
func testFace(browY float64) detector.FaceLandmarks {
	face := make(detector.FaceLandmarks, 468)

	for _, eye := range [][]int{leftEye, rightEye} {
		face[eye[0]] = detector.Point3D{X: 0.0, Y: 0.4}
		face[eye[3]] = detector.Point3D{X: 0.1, Y: 0.4}
		face[eye[1]] = detector.Point3D{X: 0.03, Y: 0.38}
		face[eye[5]] = detector.Point3D{X: 0.03, Y: 0.42}
		face[eye[2]] = detector.Point3D{X: 0.06, Y: 0.38}
		face[eye[4]] = detector.Point3D{X: 0.06, Y: 0.42}
	}

	face[mouth[0]] = detector.Point3D{X: 0.45, Y: 0.7}
	face[mouth[6]] = detector.Point3D{X: 0.55, Y: 0.7}
	face[mouth[3]] = detector.Point3D{X: 0.5, Y: 0.69}
	face[mouth[9]] = detector.Point3D{X: 0.5, Y: 0.71}

	for _, idx := range eyebrows {
		face[idx].Y = browY
	}
	return face
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		face func() detector.FaceLandmarks
		want Label
	}{
		{
			name: "missing face is neutral",
			face: func() detector.FaceLandmarks { return nil },
			want: Neutral,
		},
		{
			name: "truncated mesh is neutral",
			face: func() detector.FaceLandmarks { return make(detector.FaceLandmarks, 100) },
			want: Neutral,
		},
		{
			name: "relaxed face",
			face: func() detector.FaceLandmarks { return testFace(0.45) },
			want: Neutral,
		},
		{
			name: "closed eyes",
			face: func() detector.FaceLandmarks {
				f := testFace(0.45)
				for _, eye := range [][]int{leftEye, rightEye} {
					for _, i := range []int{1, 2, 4, 5} {
						f[eye[i]].Y = 0.4
					}
				}
				return f
			},
			want: ClosedEyes,
		},
		{
			name: "open mouth",
			face: func() detector.FaceLandmarks {
				f := testFace(0.45)
				f[mouth[3]].Y = 0.65
				f[mouth[9]].Y = 0.75
				return f
			},
			want: OpenMouth,
		},
		{
			name: "raised eyebrows",
			face: func() detector.FaceLandmarks { return testFace(0.65) },
			want: RaisedEyebrows,
		},
		{
			name: "frown",
			face: func() detector.FaceLandmarks { return testFace(0.25) },
			want: Frown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.face()); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassify_ClosedEyesTakesPrecedence(t *testing.T) {
	f := testFace(0.65)
	f[mouth[3]].Y = 0.65
	f[mouth[9]].Y = 0.75
	for _, eye := range [][]int{leftEye, rightEye} {
		for _, i := range []int{1, 2, 4, 5} {
			f[eye[i]].Y = 0.4
		}
	}
	if got := Classify(f); got != ClosedEyes {
		t.Errorf("Classify() = %q, want %q", got, ClosedEyes)
	}
}
