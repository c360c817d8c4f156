package calibration

// script is the static wording shown for a state.
type script struct {
	title    string
	text     string
	details  []string
	criteria string
}

func scriptFor(s State) script {
	switch s {
	case NotStarted:
		return script{
			title: "Start Calibration",
			text:  "Stand in a clear space, facing the camera",
			details: []string{
				"Make sure your whole body is visible",
				"Keep about two meters between you and the camera",
			},
			criteria: "Click Start when ready",
		}
	case HeadTurn:
		return script{
			title: "Head Movement",
			text:  "Slowly turn your head left to right",
			details: []string{
				"Keep your shoulders facing the camera",
				"Turn until your ear lines up with your cheek",
			},
			criteria: "Complete head rotation",
		}
	case ArmsRaise:
		return script{
			title: "Arm Movement",
			text:  "Raise both arms to shoulder height and back down",
			details: []string{
				"Keep your arms straight",
				"Lift your hands above your shoulders",
			},
			criteria: "Complete arm raise",
		}
	case BodyTurn:
		return script{
			title: "Body Rotation",
			text:  "Slowly turn your body 45° left and right",
			details: []string{
				"Keep your feet in place",
				"Rotate from the hips",
			},
			criteria: "Complete body rotation",
		}
	case Squat:
		return script{
			title: "Squat Movement",
			text:  "Perform a partial squat and return to standing",
			details: []string{
				"Bend your knees while keeping your back straight",
				"Stay inside the camera frame",
			},
			criteria: "Complete squat motion",
		}
	case Completed:
		return script{
			title:    "Calibration Complete",
			text:     "Great job! Avatar is now calibrated",
			details:  []string{},
			criteria: "All movements completed",
		}
	}
	return script{title: s.String(), details: []string{}}
}
