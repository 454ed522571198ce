package fatigue

// Level represents an ordinal fatigue assessment derived from PERCLOS.
type Level string

const (
	// LevelAlert indicates normal alertness.
	LevelAlert Level = "alert"
	// LevelMildFatigue indicates early signs of fatigue.
	LevelMildFatigue Level = "mild_fatigue"
	// LevelDrowsy indicates pronounced drowsiness.
	LevelDrowsy Level = "drowsy"
	// LevelSevereFatigue indicates a high-risk fatigue state.
	LevelSevereFatigue Level = "severe_fatigue"
)

// Severity returns the ordinal rank of the level, with LevelAlert lowest.
// Unknown levels rank below LevelAlert.
func (l Level) Severity() int {
	switch l {
	case LevelAlert:
		return 0
	case LevelMildFatigue:
		return 1
	case LevelDrowsy:
		return 2
	case LevelSevereFatigue:
		return 3
	}
	return -1
}

// Recommendation returns the operator guidance for the level.
func (l Level) Recommendation() string {
	switch l {
	case LevelAlert:
		return "Continue monitoring"
	case LevelMildFatigue:
		return "Consider taking a break soon"
	case LevelDrowsy:
		return "Take a break immediately"
	case LevelSevereFatigue:
		return "Stop activity - high risk"
	}
	return ""
}

// Calibration selects a named eye-closure threshold profile.
type Calibration string

const (
	// CalibrationReal targets genuine faces, which have a narrower natural
	// eye-openness range and need a tighter closure threshold.
	CalibrationReal Calibration = "real"
	// CalibrationSynthetic targets low-fidelity synthetic faces, which need a
	// looser closure threshold.
	CalibrationSynthetic Calibration = "synthetic"
)

// Eye-closure thresholds per calibration profile.
const (
	realEyeClosedThreshold      = 0.08
	syntheticEyeClosedThreshold = 0.15
)

// Threshold returns the eye-closure threshold for the calibration profile,
// or false if the calibration mode is unknown.
func (c Calibration) Threshold() (float64, bool) {
	switch c {
	case CalibrationReal:
		return realEyeClosedThreshold, true
	case CalibrationSynthetic:
		return syntheticEyeClosedThreshold, true
	}
	return 0, false
}
